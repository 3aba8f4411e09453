// Package server implements the client tier that originates coarse tasks
// and receives their final results. A Scheduler here is a local
// in-process queue pair: Submit feeds the Universe's ServerProxy via
// GetTask, and Await blocks a caller until DispatchResult delivers the
// matching final value.
package server

import (
	"context"

	"github.com/Geurney/SpaceNetwork/api"
	"github.com/Geurney/SpaceNetwork/internal/queue"
	"github.com/Geurney/SpaceNetwork/model/task"
)

// Scheduler is a minimal api.Server: a task to submit and a queue of
// results to deliver back to whichever goroutine is waiting on Await.
type Scheduler struct {
	id int

	taskQueue   *queue.Queue[task.Task]
	resultQueue *queue.Queue[task.Result]
}

var _ api.Server = (*Scheduler)(nil)

// New creates an empty client scheduler.
func New() *Scheduler {
	return &Scheduler{
		taskQueue:   queue.New[task.Task](),
		resultQueue: queue.New[task.Result](),
	}
}

// Submit enqueues t for the Universe's ServerProxy to pick up on its next
// GetTask call. Never blocks: the queue is unbounded like every other
// ready queue in the fabric.
func (s *Scheduler) Submit(t task.Task) {
	s.taskQueue.Put(t)
}

// GetTask blocks until a task has been submitted, or ctx is done.
func (s *Scheduler) GetTask(ctx context.Context) (task.Task, error) {
	t, ok := s.taskQueue.Take(ctx)
	if !ok {
		return nil, ctx.Err()
	}
	return t, nil
}

// DispatchResult delivers a final result, called by the Universe's
// ServerProxy once one arrives addressed to this client.
func (s *Scheduler) DispatchResult(ctx context.Context, result task.Result) error {
	s.resultQueue.Put(result)
	return nil
}

// SetID records the id the Universe assigned this client.
func (s *Scheduler) SetID(ctx context.Context, id int) error {
	s.id = id
	return nil
}

// Await blocks until a result is delivered, or ctx is done.
func (s *Scheduler) Await(ctx context.Context) (task.Result, error) {
	result, ok := s.resultQueue.Take(ctx)
	if !ok {
		return nil, ctx.Err()
	}
	return result, nil
}
