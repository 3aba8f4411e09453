package task

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Geurney/SpaceNetwork/model/taskid"
)

// fakeScheduler is the minimal Scheduler used to exercise Result.Process
// in isolation, without pulling in runtime/universe or runtime/space.
type fakeScheduler struct {
	ready      []Task
	successors map[string]*SuccessorTask
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{successors: make(map[string]*SuccessorTask)}
}

func (f *fakeScheduler) AddReady(t Task) { f.ready = append(f.ready, t) }

func (f *fakeScheduler) RegisterSuccessor(id taskid.ID, successor *SuccessorTask) {
	f.successors[id.String()] = successor
}

func (f *fakeScheduler) ResolveSuccessor(id taskid.ID) (*SuccessorTask, bool) {
	s, ok := f.successors[id.String()]
	return s, ok
}

func (f *fakeScheduler) DeleteSuccessor(id taskid.ID) {
	delete(f.successors, id.String())
}

func mustID(t *testing.T, raw string) taskid.ID {
	id, err := taskid.Parse(raw)
	assert.NoError(t, err)
	return id
}

// continuationFunc adapts a plain func to Continuation for tests that never
// cross a wire boundary; production continuations (examples/fib.sumContinuation)
// must be concrete gob-registered types instead, see DESIGN.md.
type continuationFunc func(ctx context.Context, id taskid.ID, args []interface{}) (Result, error)

func (f continuationFunc) Combine(ctx context.Context, id taskid.ID, args []interface{}) (Result, error) {
	return f(ctx, id, args)
}

func TestSuccessorTaskDeposit(t *testing.T) {
	targetID := mustID(t, "!:F:1:S0:1:U1:P0:5")
	var captured []interface{}
	successor := NewSuccessorTask(targetID, 1, 2, continuationFunc(func(ctx context.Context, id taskid.ID, args []interface{}) (Result, error) {
		captured = args
		return nil, nil
	}))

	assert.Equal(t, 2, successor.PendingCount())
	assert.False(t, successor.Deposit(0, 3))
	assert.Equal(t, 1, successor.PendingCount())
	assert.True(t, successor.Deposit(1, 2))
	assert.Equal(t, 0, successor.PendingCount())

	_, err := successor.Execute(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []interface{}{3, 2}, captured)
}

func TestValueResultProcessDepositsAndReleases(t *testing.T) {
	scheduler := newFakeScheduler()
	targetID := mustID(t, "!:F:1:S0:1:U1:P0:5")
	successor := NewSuccessorTask(targetID, 1, 2, continuationFunc(func(ctx context.Context, id taskid.ID, args []interface{}) (Result, error) {
		return nil, nil
	}))
	scheduler.RegisterSuccessor(targetID, successor)

	originA := mustID(t, "F:1:S0:1:U1:P0:3:C1")
	first := NewValueResult(originA, originA, targetID, 0, 3)
	assert.True(t, first.Process(scheduler))
	assert.Len(t, scheduler.ready, 0, "not released until both slots filled")

	originB := mustID(t, "F:1:S0:1:U1:P0:4:C1")
	second := NewValueResult(originB, originB, targetID, 1, 2)
	assert.True(t, second.Process(scheduler))
	assert.Len(t, scheduler.ready, 1, "released exactly once when pendingCount hits zero")
	_, stillRegistered := scheduler.ResolveSuccessor(targetID)
	assert.False(t, stillRegistered)
}

func TestValueResultProcessReturnsFalseForOrphan(t *testing.T) {
	scheduler := newFakeScheduler()
	targetID := mustID(t, "!:F:1:S0:1:U1:P0:5")
	originA := mustID(t, "F:1:S0:1:U1:P0:3:C1")
	result := NewValueResult(originA, originA, targetID, 0, 3)

	assert.False(t, result.Process(scheduler))
	assert.Len(t, scheduler.ready, 0)
}

func TestCoarseResultProcessEnqueuesChildrenAndRegistersSuccessor(t *testing.T) {
	scheduler := newFakeScheduler()
	parentID := mustID(t, "F:1:S0:1:U1:P0:3:C1")
	childA := &stubTask{id: mustID(t, "F:1:S0:1:U1:P0:4")}
	childB := &stubTask{id: mustID(t, "F:1:S0:1:U1:P0:5")}
	successor := NewSuccessorTask(parentID.AsSuccessor(), parentID.ClientTaskID, 2, nil)

	result := NewCoarseResult(parentID, []Task{childA, childB}, successor)
	assert.True(t, result.Process(scheduler))
	assert.Len(t, scheduler.ready, 2)
	_, ok := scheduler.ResolveSuccessor(successor.ID())
	assert.True(t, ok)
}

// stubTask is a minimal Task used only to exercise CoarseResult.Process.
type stubTask struct {
	id taskid.ID
}

func (s *stubTask) ID() taskid.ID       { return s.id }
func (s *stubTask) WithID(id taskid.ID) Task { s.id = id; return s }
func (s *stubTask) Layer() int          { return 0 }
func (s *stubTask) Coarse() bool        { return false }
func (s *stubTask) Execute(ctx context.Context) (Result, error) {
	return nil, nil
}
