// Package universe implements the root broker of the fabric: the ready
// queue and successor map shared by every connected Space, the
// registration tables for Servers and Spaces, and the per-peer proxies
// that carry tasks and results across the RPC boundary.
package universe

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/Geurney/SpaceNetwork/api"
	"github.com/Geurney/SpaceNetwork/internal/idgen"
	"github.com/Geurney/SpaceNetwork/internal/queue"
	"github.com/Geurney/SpaceNetwork/model/task"
	"github.com/Geurney/SpaceNetwork/model/taskid"
)

// Config configures the Universe's scheduler loop.
type Config struct {
	// SpaceProxyPollInterval is how long a Space Proxy's send thread
	// sleeps between ready-queue polls while the queue is empty.
	SpaceProxyPollInterval int // milliseconds

	// CheckpointInterval is how often the Universe serializes its
	// persistent state.
	CheckpointInterval int // seconds
}

// DefaultConfig returns the Universe's default, fixed tuning.
func DefaultConfig() Config {
	return Config{
		SpaceProxyPollInterval: 5,
		CheckpointInterval:     10,
	}
}

// Checkpointer persists a Scheduler snapshot. Implemented by
// checkpoint.Service; kept as a narrow interface here so this package
// does not depend on viant/afs directly.
type Checkpointer interface {
	Save(ctx context.Context, snapshot Snapshot) error
}

// Scheduler is the Universe's top-level scheduling state.
// It satisfies task.Scheduler so CoarseResult/ValueResult can be
// processed directly against it.
type Scheduler struct {
	readyQueue   *queue.Queue[task.Task]
	successorMu  sync.Mutex
	successorMap map[string]*task.SuccessorTask

	proxyMu      sync.Mutex
	serverProxies map[int]*ServerProxy
	spaceProxies  map[int]*SpaceProxy

	nextServerID idgen.Counter
	nextSpaceID  idgen.Counter
	nextTaskID   idgen.Counter

	checkpointer Checkpointer
	config       Config
}

var (
	_ api.Universe  = (*Scheduler)(nil)
	_ task.Scheduler = (*Scheduler)(nil)
)

// New creates an empty Universe scheduler. checkpointer may be nil to
// disable persistence (e.g. in tests).
func New(checkpointer Checkpointer, config Config) *Scheduler {
	return &Scheduler{
		readyQueue:    queue.New[task.Task](),
		successorMap:  make(map[string]*task.SuccessorTask),
		serverProxies: make(map[int]*ServerProxy),
		spaceProxies:  make(map[int]*SpaceProxy),
		checkpointer:  checkpointer,
		config:        config,
	}
}

// AddReady enqueues t on the ready queue. Never blocks: the queue is
// unbounded.
func (s *Scheduler) AddReady(t task.Task) {
	s.readyQueue.Put(t)
}

// RegisterSuccessor records a successor continuation awaiting child-task
// values.
func (s *Scheduler) RegisterSuccessor(id taskid.ID, successor *task.SuccessorTask) {
	s.successorMu.Lock()
	defer s.successorMu.Unlock()
	s.successorMap[id.String()] = successor
}

// ResolveSuccessor looks up a successor by id without removing it.
func (s *Scheduler) ResolveSuccessor(id taskid.ID) (*task.SuccessorTask, bool) {
	s.successorMu.Lock()
	defer s.successorMu.Unlock()
	successor, ok := s.successorMap[id.String()]
	return successor, ok
}

// DeleteSuccessor removes a successor once every argument slot is filled.
func (s *Scheduler) DeleteSuccessor(id taskid.ID) {
	s.successorMu.Lock()
	defer s.successorMu.Unlock()
	delete(s.successorMap, id.String())
}

// RegisterServer assigns a new server id, starts a ServerProxy for it,
// and returns the id. The id is also pushed to the remote client via
// Server.SetID, a two-step register-then-callback handshake.
func (s *Scheduler) RegisterServer(ctx context.Context, remote api.Server) (int, error) {
	id := s.nextServerID.Next()
	proxy := newServerProxy(s, id, remote)

	s.proxyMu.Lock()
	s.serverProxies[id] = proxy
	s.proxyMu.Unlock()

	if err := remote.SetID(ctx, id); err != nil {
		return id, fmt.Errorf("universe: setID on server %d failed: %w", id, err)
	}
	proxy.Start(ctx)
	return id, nil
}

// RegisterSpace assigns a new space id, starts a SpaceProxy for it, and
// returns the id.
func (s *Scheduler) RegisterSpace(ctx context.Context, remote api.Space) (int, error) {
	id := s.nextSpaceID.Next()
	proxy := newSpaceProxy(s, id, remote, s.config.SpaceProxyPollInterval)

	s.proxyMu.Lock()
	s.spaceProxies[id] = proxy
	s.proxyMu.Unlock()

	if err := remote.SetID(ctx, id); err != nil {
		return id, fmt.Errorf("universe: setID on space %d failed: %w", id, err)
	}
	proxy.Start(ctx)
	return id, nil
}

// DispatchResult parses the S<n> segment off result's id and, if that
// server is still registered, hands the result to its ServerProxy's
// result queue; otherwise the result is dropped.
func (s *Scheduler) DispatchResult(result task.Result) {
	id := result.ID()
	if !id.HasRouting {
		log.Printf("universe: dropping result %s: no server routing segment", id)
		return
	}

	s.proxyMu.Lock()
	proxy, ok := s.serverProxies[id.ServerID]
	s.proxyMu.Unlock()
	if !ok {
		log.Printf("universe: dropping result %s: server %d no longer registered", id, id.ServerID)
		return
	}
	proxy.resultQueue.Put(result)
}

// unregisterServer removes proxy from the registration table and purges
// any of its tasks still sitting on the ready queue.
func (s *Scheduler) unregisterServer(proxy *ServerProxy) {
	s.proxyMu.Lock()
	delete(s.serverProxies, proxy.id)
	s.proxyMu.Unlock()

	purged := s.readyQueue.Remove(func(t task.Task) bool {
		return t.ID().MatchesServer(proxy.id)
	})
	if purged > 0 {
		log.Printf("universe: purged %d ready tasks for dead server %d", purged, proxy.id)
	}
}

// unregisterSpace removes proxy from the registration table and
// re-dispatches every task still in its running-task map back onto the
// Universe ready queue.
func (s *Scheduler) unregisterSpace(proxy *SpaceProxy) {
	s.proxyMu.Lock()
	delete(s.spaceProxies, proxy.id)
	s.proxyMu.Unlock()

	running := proxy.drainRunning()
	for _, t := range running {
		s.AddReady(redispatch(t))
	}
	if len(running) > 0 {
		log.Printf("universe: re-dispatched %d running tasks from dead space %d", len(running), proxy.id)
	}
}

// nextTaskSerial returns the next universe-tier serial number, used by
// ServerProxy.sendLoop and SpaceProxy.sendLoop when appending the :U<n>
// segment.
func (s *Scheduler) nextTaskSerial() int {
	return s.nextTaskID.NextSerial()
}

// Checkpoint serializes the Universe's persistent state under a fixed
// lock order (readyQueue, then successorMap). A nil checkpointer makes
// this a no-op.
func (s *Scheduler) Checkpoint(ctx context.Context) error {
	if s.checkpointer == nil {
		return nil
	}
	readyTasks := s.readyQueue.Snapshot()

	s.successorMu.Lock()
	successorIDs := make([]string, 0, len(s.successorMap))
	for id := range s.successorMap {
		successorIDs = append(successorIDs, id)
	}
	s.successorMu.Unlock()

	snapshot := Snapshot{
		ReadyTasks:      readyTasks,
		SuccessorTaskIDs: successorIDs,
	}
	if err := s.checkpointer.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("universe: checkpoint failed: %w", err)
	}
	return nil
}

// Restore repopulates the ready queue from a previously saved snapshot.
// Only ready tasks are restored; the successor map is not rebuilt, since
// the snapshot keeps successor ids only, not the SuccessorTasks
// themselves.
func (s *Scheduler) Restore(tasks []task.Task) {
	for _, t := range tasks {
		s.readyQueue.Put(t)
	}
}

// redispatch tags t with the next re-dispatch counter so a duplicate
// in flight from before the owning Space died is distinguishable from
// its re-sent replacement once both eventually land.
func redispatch(t task.Task) task.Task {
	id := t.ID()
	return t.WithID(id.WithRedispatch(id.Redispatch + 1))
}

// Snapshot is the schema-versioned, checkpoint-persisted view of the
// Universe's ready queue and successor map. It intentionally
// excludes live proxy/thread state.
type Snapshot struct {
	Version          int
	ReadyTasks       []task.Task
	SuccessorTaskIDs []string
}

// ReadyLen reports the current ready-queue depth, used by tests asserting
// the re-dispatch-soundness invariant.
func (s *Scheduler) ReadyLen() int {
	return s.readyQueue.Len()
}

// SuccessorCount reports the current successor-map size.
func (s *Scheduler) SuccessorCount() int {
	s.successorMu.Lock()
	defer s.successorMu.Unlock()
	return len(s.successorMap)
}
