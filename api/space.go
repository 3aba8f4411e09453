package api

import (
	"context"

	"github.com/Geurney/SpaceNetwork/model/task"
)

// Space is the Universe's view of an intermediate scheduler. A SpaceProxy living inside the Universe calls these
// methods against the remote Space process.
type Space interface {
	// AddTask enqueues task on the Space's ready queue.
	AddTask(ctx context.Context, t task.Task) error

	// GetResult blocks until a final result is available for upward
	// propagation, or ctx is done.
	GetResult(ctx context.Context) (task.Result, error)

	// SetID informs the Space of the id the Universe assigned it.
	SetID(ctx context.Context, id int) error

	// RegisterComputer assigns a new computer id, symmetrical to
	// Universe.RegisterServer/RegisterSpace.
	RegisterComputer(ctx context.Context, computer Computer) (computerID int, err error)
}

// Computer is the Space's view of a registered worker process. A ComputerProxy living inside the Space calls these
// methods against the remote Computer process.
type Computer interface {
	// AddTask enqueues task for local execution.
	AddTask(ctx context.Context, t task.Task) error

	// GetResult blocks until a result is available, or ctx is done.
	GetResult(ctx context.Context) (task.Result, error)

	// IsBusy reports whether the Computer is currently executing a task,
	// used by the ComputerProxy send thread to decide whether to poll
	// again rather than dispatch immediately.
	IsBusy(ctx context.Context) (bool, error)

	// SetID informs the Computer of the id the Space assigned it.
	SetID(ctx context.Context, id int) error

	// GetWorkerNum reports how many local worker threads/goroutines the
	// Computer runs, exposed for diagnostics; not consumed by the core
	// scheduling logic.
	GetWorkerNum(ctx context.Context) (int, error)
}
