// Package space implements an intermediate scheduler: the ready queue and
// successor map shared by every registered Computer, the result queue
// the owning SpaceProxy drains, and the per-Computer proxies that carry
// tasks and results across the RPC boundary.
package space

import (
	"context"
	"log"
	"sync"

	"github.com/Geurney/SpaceNetwork/api"
	"github.com/Geurney/SpaceNetwork/internal/idgen"
	"github.com/Geurney/SpaceNetwork/internal/queue"
	"github.com/Geurney/SpaceNetwork/model/task"
	"github.com/Geurney/SpaceNetwork/model/taskid"
)

// Config configures a Space's ComputerProxy polling cadence.
type Config struct {
	// ComputerProxyPollInterval is how long a Computer Proxy's send
	// thread sleeps while the owning Computer reports busy.
	ComputerProxyPollInterval int // milliseconds
}

// DefaultConfig returns the Space's default tuning.
func DefaultConfig() Config {
	return Config{ComputerProxyPollInterval: 5}
}

// Scheduler is a Space's scheduling state. It satisfies
// task.Scheduler so CoarseResult/ValueResult can be processed directly
// against it, the same way runtime/universe.Scheduler does one tier up.
type Scheduler struct {
	id int

	readyQueue  *queue.Queue[task.Task]
	successorMu sync.Mutex
	successorMap map[string]*task.SuccessorTask

	// resultQueue holds final results awaiting pickup by the owning
	// Universe's SpaceProxy.
	resultQueue *queue.Queue[task.Result]

	proxyMu         sync.Mutex
	computerProxies map[int]*ComputerProxy
	nextComputerID  idgen.Counter

	config Config
}

var (
	_ api.Space      = (*Scheduler)(nil)
	_ task.Scheduler = (*Scheduler)(nil)
)

// New creates an empty Space scheduler.
func New(config Config) *Scheduler {
	return &Scheduler{
		readyQueue:      queue.New[task.Task](),
		successorMap:    make(map[string]*task.SuccessorTask),
		resultQueue:     queue.New[task.Result](),
		computerProxies: make(map[int]*ComputerProxy),
		config:          config,
	}
}

// SetID records the id the Universe assigned this Space.
func (s *Scheduler) SetID(ctx context.Context, id int) error {
	s.id = id
	return nil
}

// AddTask enqueues t on the ready queue; called over RPC by the
// Universe's SpaceProxy.
func (s *Scheduler) AddTask(ctx context.Context, t task.Task) error {
	s.readyQueue.Put(t)
	return nil
}

// GetResult blocks until a final result is available for upward
// propagation.
func (s *Scheduler) GetResult(ctx context.Context) (task.Result, error) {
	result, ok := s.resultQueue.Take(ctx)
	if !ok {
		return nil, ctx.Err()
	}
	return result, nil
}

// AddResult enqueues result for upward propagation, called by a
// ComputerProxy's receive loop once it decides a result must be
// forwarded rather than absorbed locally.
func (s *Scheduler) AddResult(result task.Result) {
	s.resultQueue.Put(result)
}

// RegisterComputer assigns a new computer id, starts a ComputerProxy for
// it, and returns the id.
func (s *Scheduler) RegisterComputer(ctx context.Context, remote api.Computer) (int, error) {
	id := s.nextComputerID.Next()
	proxy := newComputerProxy(s, id, remote, s.config.ComputerProxyPollInterval)

	s.proxyMu.Lock()
	s.computerProxies[id] = proxy
	s.proxyMu.Unlock()

	if err := remote.SetID(ctx, id); err != nil {
		return id, err
	}
	proxy.Start(ctx)
	return id, nil
}

// AddReady implements task.Scheduler.
func (s *Scheduler) AddReady(t task.Task) { s.readyQueue.Put(t) }

// RegisterSuccessor implements task.Scheduler.
func (s *Scheduler) RegisterSuccessor(id taskid.ID, successor *task.SuccessorTask) {
	s.successorMu.Lock()
	defer s.successorMu.Unlock()
	s.successorMap[id.String()] = successor
}

// ResolveSuccessor implements task.Scheduler.
func (s *Scheduler) ResolveSuccessor(id taskid.ID) (*task.SuccessorTask, bool) {
	s.successorMu.Lock()
	defer s.successorMu.Unlock()
	successor, ok := s.successorMap[id.String()]
	return successor, ok
}

// DeleteSuccessor implements task.Scheduler.
func (s *Scheduler) DeleteSuccessor(id taskid.ID) {
	s.successorMu.Lock()
	defer s.successorMu.Unlock()
	delete(s.successorMap, id.String())
}

// ExecuteLocally runs a trivial continuation directly on the Space
// rather than shipping it to a Computer, depositing the resulting value
// into the given intermediate queue so it merges into the normal upward
// flow via the owning proxy's receive loop. The caller,
// ComputerProxy.sendLoop, passes the queue of the proxy that took the
// successor off the ready queue; that is not necessarily the proxy whose
// Computer produced the parent task.
func (s *Scheduler) ExecuteLocally(ctx context.Context, successor *task.SuccessorTask, intermediate *queue.Queue[task.Result]) {
	result, err := successor.Execute(ctx)
	if err != nil {
		log.Printf("space: local execution of %s failed: %v", successor.ID(), err)
		return
	}
	intermediate.Put(result)
}

// unregisterComputer removes proxy from the registration table, drains
// its intermediate result queue (processing each result as if it had
// just arrived), then re-enqueues every task from its running-task map
// onto the ready queue.
func (s *Scheduler) unregisterComputer(proxy *ComputerProxy) {
	s.proxyMu.Lock()
	delete(s.computerProxies, proxy.id)
	s.proxyMu.Unlock()

	for {
		result, ok := proxy.intermediateQueue.TryTake()
		if !ok {
			break
		}
		proxy.processResult(result)
	}

	running := proxy.drainRunning()
	for _, t := range running {
		s.AddReady(redispatch(t))
	}
	if len(running) > 0 {
		log.Printf("space: re-dispatched %d running tasks from dead computer %d", len(running), proxy.id)
	}
}

// redispatch tags t with the next re-dispatch counter so a duplicate in
// flight from before the owning Computer died is distinguishable from
// its re-sent replacement once both eventually land.
func redispatch(t task.Task) task.Task {
	id := t.ID()
	return t.WithID(id.WithRedispatch(id.Redispatch + 1))
}

// ReadyLen reports the current ready-queue depth.
func (s *Scheduler) ReadyLen() int { return s.readyQueue.Len() }

// SuccessorCount reports the current successor-map size.
func (s *Scheduler) SuccessorCount() int {
	s.successorMu.Lock()
	defer s.successorMu.Unlock()
	return len(s.successorMap)
}
