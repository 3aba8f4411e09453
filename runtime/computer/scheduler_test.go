package computer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Geurney/SpaceNetwork/model/task"
	"github.com/Geurney/SpaceNetwork/model/taskid"
)

// doubleTask returns a ValueResult holding N*2; used to verify the
// worker pool actually executes what it dequeues rather than just
// shuffling tasks into results untouched.
type doubleTask struct {
	id taskid.ID
	n  int
}

func (d *doubleTask) ID() taskid.ID { return d.id }
func (d *doubleTask) WithID(id taskid.ID) task.Task {
	return &doubleTask{id: id, n: d.n}
}
func (d *doubleTask) Layer() int   { return 0 }
func (d *doubleTask) Coarse() bool { return false }
func (d *doubleTask) Execute(ctx context.Context) (task.Result, error) {
	return task.NewValueResult(d.id, d.id, d.id, 0, d.n*2), nil
}

func mustParse(t *testing.T, raw string) taskid.ID {
	id, err := taskid.Parse(raw)
	assert.NoError(t, err)
	return id
}

func TestExecutesQueuedTaskAndDepositsResult(t *testing.T) {
	scheduler := New(Config{WorkerCount: 2})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	scheduler.Start(ctx)
	defer scheduler.Shutdown()

	id := mustParse(t, "F:1:S0:1:U1:P0:1:C1")
	assert.NoError(t, scheduler.AddTask(ctx, &doubleTask{id: id, n: 21}))

	result, err := scheduler.GetResult(ctx)
	assert.NoError(t, err)
	assert.False(t, result.Coarse())

	vr, ok := result.(*task.ValueResult[int])
	assert.True(t, ok)
	assert.Equal(t, 42, vr.Value())
}

func TestIsBusyReflectsInFlightCount(t *testing.T) {
	scheduler := New(Config{WorkerCount: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	scheduler.Start(ctx)
	defer scheduler.Shutdown()

	busy, err := scheduler.IsBusy(ctx)
	assert.NoError(t, err)
	assert.False(t, busy)

	block := make(chan struct{})
	id := mustParse(t, "F:1:S0:1:U1:P0:1:C1")
	assert.NoError(t, scheduler.AddTask(ctx, &blockingTask{id: id, unblock: block}))

	deadline := time.After(time.Second)
	for {
		busy, err = scheduler.IsBusy(ctx)
		assert.NoError(t, err)
		if busy {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for worker to pick up task")
		case <-time.After(time.Millisecond):
		}
	}

	close(block)
	_, err = scheduler.GetResult(ctx)
	assert.NoError(t, err)
}

type blockingTask struct {
	id      taskid.ID
	unblock chan struct{}
}

func (b *blockingTask) ID() taskid.ID { return b.id }
func (b *blockingTask) WithID(id taskid.ID) task.Task {
	return &blockingTask{id: id, unblock: b.unblock}
}
func (b *blockingTask) Layer() int   { return 0 }
func (b *blockingTask) Coarse() bool { return false }
func (b *blockingTask) Execute(ctx context.Context) (task.Result, error) {
	<-b.unblock
	return task.NewValueResult(b.id, b.id, b.id, 0, 0), nil
}

func TestGetWorkerNumReportsConfiguredPoolSize(t *testing.T) {
	scheduler := New(Config{WorkerCount: 7})
	n, err := scheduler.GetWorkerNum(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestAddTaskTagsWorkerSegment(t *testing.T) {
	scheduler := New(Config{WorkerCount: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	scheduler.Start(ctx)
	defer scheduler.Shutdown()

	id := mustParse(t, "F:1:S0:1:U1:P0:1:C1")
	recorder := &recordingTask{id: id}
	assert.NoError(t, scheduler.AddTask(ctx, recorder))

	result, err := scheduler.GetResult(ctx)
	assert.NoError(t, err)
	assert.True(t, result.ID().HasWorker)
}

type recordingTask struct {
	id taskid.ID
}

func (r *recordingTask) ID() taskid.ID { return r.id }
func (r *recordingTask) WithID(id taskid.ID) task.Task {
	return &recordingTask{id: id}
}
func (r *recordingTask) Layer() int   { return 0 }
func (r *recordingTask) Coarse() bool { return false }
func (r *recordingTask) Execute(ctx context.Context) (task.Result, error) {
	return task.NewValueResult(r.id, r.id, r.id, 0, 0), nil
}
