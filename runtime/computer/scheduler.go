// Package computer implements the worker process that a Space's
// ComputerProxy dispatches tasks to: a fixed-size goroutine pool pulling
// from a local task queue, executing each task's embedded computation,
// and depositing the resulting Result onto a local result queue for the
// owning ComputerProxy to collect. The pool's internal shape is visible
// only through api.Computer's five methods.
package computer

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"github.com/Geurney/SpaceNetwork/api"
	"github.com/Geurney/SpaceNetwork/internal/idgen"
	"github.com/Geurney/SpaceNetwork/internal/queue"
	"github.com/Geurney/SpaceNetwork/model/task"
	"github.com/Geurney/SpaceNetwork/tracing"
)

// Config tunes a Computer's worker pool.
type Config struct {
	// WorkerCount is the number of goroutines concurrently pulling tasks
	// off the local queue.
	WorkerCount int
}

// DefaultConfig returns the Computer's default tuning.
func DefaultConfig() Config {
	return Config{WorkerCount: 4}
}

// Scheduler is a Computer process's local state: the task/result queues
// a ComputerProxy drives over RPC, and the worker pool draining the
// former into the latter.
type Scheduler struct {
	id int

	taskQueue   *queue.Queue[task.Task]
	resultQueue *queue.Queue[task.Result]

	config  Config
	inFlight int64 // atomic: tasks currently being executed, for IsBusy

	nextWorkerSerial idgen.Counter

	workers []*worker
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	started bool
	mu      sync.Mutex
}

var _ api.Computer = (*Scheduler)(nil)

// worker is one goroutine of the pool: an id, the owning Scheduler, and
// the goroutine lifecycle bound to one context.
type worker struct {
	id        int
	scheduler *Scheduler
}

// New creates a Computer scheduler with an idle (not yet started) worker
// pool; call Start to launch the goroutines.
func New(config Config) *Scheduler {
	return &Scheduler{
		taskQueue:   queue.New[task.Task](),
		resultQueue: queue.New[task.Result](),
		config:      config,
	}
}

// Start launches config.WorkerCount worker goroutines, each given its own
// serial from nextWorkerSerial; a worker stamps that serial onto every
// task it picks up via WithWorker — the one genuine local use of the id
// grammar's :W segment.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	workerCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.WorkerCount; i++ {
		w := &worker{id: s.nextWorkerSerial.Next(), scheduler: s}
		s.workers = append(s.workers, w)
		s.wg.Add(1)
		go w.run(workerCtx)
	}
}

// run pulls tasks from the Scheduler's queue until ctx is cancelled,
// executing each and depositing its Result.
func (w *worker) run(ctx context.Context) {
	defer w.scheduler.wg.Done()
	for {
		t, ok := w.scheduler.taskQueue.Take(ctx)
		if !ok {
			return
		}

		atomic.AddInt64(&w.scheduler.inFlight, 1)
		tagged := t.WithID(t.ID().WithWorker(w.id))

		spanCtx, span := tracing.StartTaskSpan(ctx, "computer", tagged.ID())
		result, err := tagged.Execute(spanCtx)
		tracing.EndSpan(span, err)
		atomic.AddInt64(&w.scheduler.inFlight, -1)

		if err != nil {
			log.Printf("computer: worker %d: execute %s: %v", w.id, tagged.ID(), err)
			continue
		}
		w.scheduler.resultQueue.Put(result)
	}
}

// SetID records the id the Space assigned this Computer.
func (s *Scheduler) SetID(ctx context.Context, id int) error {
	s.id = id
	return nil
}

// AddTask enqueues t for execution by the worker pool; called over RPC
// by the owning ComputerProxy's send thread.
func (s *Scheduler) AddTask(ctx context.Context, t task.Task) error {
	s.taskQueue.Put(t)
	return nil
}

// GetResult blocks until a worker has produced a result, or ctx is
// done — the ComputerProxy's receive thread holds exactly one such call
// outstanding at a time.
func (s *Scheduler) GetResult(ctx context.Context) (task.Result, error) {
	result, ok := s.resultQueue.Take(ctx)
	if !ok {
		return nil, ctx.Err()
	}
	return result, nil
}

// IsBusy reports whether every worker is currently executing a task,
// used by the ComputerProxy send thread to decide whether dispatching
// another task right now would just sit in the queue behind a full pool.
func (s *Scheduler) IsBusy(ctx context.Context) (bool, error) {
	return atomic.LoadInt64(&s.inFlight) >= int64(s.config.WorkerCount), nil
}

// GetWorkerNum reports the configured worker pool size.
func (s *Scheduler) GetWorkerNum(ctx context.Context) (int, error) {
	return s.config.WorkerCount, nil
}

// Shutdown cancels every worker and waits for them to exit.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// QueueLen reports the current task-queue depth, exposed for tests.
func (s *Scheduler) QueueLen() int { return s.taskQueue.Len() }
