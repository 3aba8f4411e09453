package space

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Geurney/SpaceNetwork/api"
	"github.com/Geurney/SpaceNetwork/model/task"
	"github.com/Geurney/SpaceNetwork/model/taskid"
)

// continuationFunc adapts a plain func to task.Continuation for tests that
// never cross a wire boundary.
type continuationFunc func(ctx context.Context, id taskid.ID, args []interface{}) (task.Result, error)

func (f continuationFunc) Combine(ctx context.Context, id taskid.ID, args []interface{}) (task.Result, error) {
	return f(ctx, id, args)
}

// fakeComputer is an in-memory api.Computer used to drive ComputerProxy
// without a real RPC transport.
type fakeComputer struct {
	mu      sync.Mutex
	tasks   []task.Task
	results []task.Result
	busy    bool
	dead    bool
	id      int
}

func (c *fakeComputer) AddTask(ctx context.Context, t task.Task) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dead {
		return errors.New("computer gone")
	}
	c.tasks = append(c.tasks, t)
	return nil
}

func (c *fakeComputer) GetResult(ctx context.Context) (task.Result, error) {
	for {
		c.mu.Lock()
		if c.dead {
			c.mu.Unlock()
			return nil, errors.New("computer gone")
		}
		if len(c.results) > 0 {
			r := c.results[0]
			c.results = c.results[1:]
			c.mu.Unlock()
			return r, nil
		}
		c.mu.Unlock()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

func (c *fakeComputer) IsBusy(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dead {
		return false, errors.New("computer gone")
	}
	return c.busy, nil
}

func (c *fakeComputer) SetID(ctx context.Context, id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = id
	return nil
}

func (c *fakeComputer) GetWorkerNum(ctx context.Context) (int, error) { return 1, nil }

func (c *fakeComputer) pushResult(r task.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

func (c *fakeComputer) kill() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dead = true
}

type leafTask struct {
	id taskid.ID
}

func (l *leafTask) ID() taskid.ID                 { return l.id }
func (l *leafTask) WithID(id taskid.ID) task.Task { return &leafTask{id: id} }
func (l *leafTask) Layer() int                    { return 0 }
func (l *leafTask) Coarse() bool                  { return false }
func (l *leafTask) Execute(ctx context.Context) (task.Result, error) {
	return nil, nil
}

func TestRegisterComputerAssignsSequentialIDs(t *testing.T) {
	scheduler := New(DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c1 := &fakeComputer{}
	id1, err := scheduler.RegisterComputer(ctx, c1)
	assert.NoError(t, err)
	assert.Equal(t, 0, id1)

	c2 := &fakeComputer{}
	id2, err := scheduler.RegisterComputer(ctx, c2)
	assert.NoError(t, err)
	assert.Equal(t, 1, id2)
}

func TestComputerProxyTagsComputerSegment(t *testing.T) {
	scheduler := New(DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	id, err := scheduler.RegisterComputer(ctx, &fakeComputer{})
	assert.NoError(t, err)

	raw, _ := taskid.Parse("F:1:S0:1:U1:P0:3")
	scheduler.AddReady(&leafTask{id: raw})

	proxy := scheduler.computerProxies[id]
	assert.NotNil(t, proxy)

	deadline := time.After(time.Second)
	for len(proxy.runningTaskMap) == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for task dispatch")
		case <-time.After(time.Millisecond):
		}
		proxy.runningMu.Lock()
		_ = len(proxy.runningTaskMap)
		proxy.runningMu.Unlock()
	}

	proxy.runningMu.Lock()
	defer proxy.runningMu.Unlock()
	for _, dispatched := range proxy.runningTaskMap {
		assert.True(t, dispatched.ID().HasComputer)
		assert.Equal(t, id, dispatched.ID().ComputerID)
	}
}

func TestValueResultOrphanForwardsUpward(t *testing.T) {
	scheduler := New(DefaultConfig())

	targetID, _ := taskid.Parse("!:F:1:S0:1:U1:P0:5")
	originID, _ := taskid.Parse("F:1:S0:1:U1:P0:3:C1")
	result := task.NewValueResult(originID, originID, targetID, 0, 7)

	absorbed := result.Process(scheduler)
	assert.False(t, absorbed, "no local successor registered: must report not-absorbed")

	proxy := newComputerProxy(scheduler, 1, nil, 5)
	proxy.processResult(result)
	assert.Equal(t, 1, scheduler.resultQueue.Len(), "orphan must be forwarded upward via AddResult")
	assert.Equal(t, 0, scheduler.ReadyLen())
	assert.Equal(t, 0, scheduler.SuccessorCount())
}

// TestSchedulerSatisfiesSuccessorReleaseContract exercises
// RegisterSuccessor/ResolveSuccessor/DeleteSuccessor through a Space
// Scheduler value, the same generic task.Scheduler contract
// model/task/task_test.go checks against a minimal fake. It is not a
// claim that production code ever registers a successor at a Space:
// CoarseResult.Process only ever runs against the Universe scheduler
// (runtime/universe.SpaceProxy.receiveLoop is the sole call site), so
// Space's successorMap stays empty at runtime. This only confirms
// Space's Scheduler implementation itself is correct, independent of
// whether anything in the fabric currently drives it that way.
func TestSchedulerSatisfiesSuccessorReleaseContract(t *testing.T) {
	scheduler := New(DefaultConfig())

	targetID, _ := taskid.Parse("!:F:1:S0:1:U1:P0:5")
	successor := task.NewSuccessorTask(targetID, 1, 2, continuationFunc(func(ctx context.Context, id taskid.ID, args []interface{}) (task.Result, error) {
		return nil, nil
	}))
	scheduler.RegisterSuccessor(targetID, successor)

	originA, _ := taskid.Parse("F:1:S0:1:U1:P0:3:C1")
	originB, _ := taskid.Parse("F:1:S0:1:U1:P0:4:C1")

	// Arrive in reverse slot order.
	second := task.NewValueResult(originB, originB, targetID, 1, 2)
	assert.True(t, second.Process(scheduler))
	assert.Equal(t, 0, scheduler.ReadyLen())

	first := task.NewValueResult(originA, originA, targetID, 0, 3)
	assert.True(t, first.Process(scheduler))
	assert.Equal(t, 1, scheduler.ReadyLen())
}

func TestUnregisterComputerRedispatchesRunningTasks(t *testing.T) {
	scheduler := New(DefaultConfig())
	id, _ := taskid.Parse("F:1:S0:1:U1:P0:3:C2")
	proxy := newComputerProxy(scheduler, 2, nil, 5)
	proxy.runningTaskMap[id.String()] = &leafTask{id: id}

	scheduler.unregisterComputer(proxy)

	assert.Equal(t, 1, scheduler.ReadyLen())
	tagged, ok := scheduler.readyQueue.TryTake()
	assert.True(t, ok)
	assert.True(t, tagged.ID().HasRedispatch)
	assert.Equal(t, 1, tagged.ID().Redispatch)
}

var _ api.Computer = (*fakeComputer)(nil)
