package space

import (
	"context"
	"sync"
	"time"

	"github.com/Geurney/SpaceNetwork/api"
	"github.com/Geurney/SpaceNetwork/internal/queue"
	"github.com/Geurney/SpaceNetwork/model/task"
	"github.com/Geurney/SpaceNetwork/model/taskid"
	"github.com/Geurney/SpaceNetwork/tracing"
)

// ComputerProxy is the Space-side stand-in for a registered worker: a
// send/receive goroutine pair, its running-task map, and the
// intermediate result queue the Space's own direct execution of trivial
// continuations deposits into.
type ComputerProxy struct {
	space  *Scheduler
	id     int
	remote api.Computer

	pollInterval time.Duration

	// nextTaskID is this proxy's own counter, distinct from the Space's
	// and Universe's, even though the :C segment itself carries no
	// numeric serial.
	nextTaskID int64
	taskIDMu   sync.Mutex

	runningMu      sync.Mutex
	runningTaskMap map[string]task.Task

	intermediateQueue *queue.Queue[task.Result]

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	dieOnce sync.Once
}

func newComputerProxy(space *Scheduler, id int, remote api.Computer, pollIntervalMs int) *ComputerProxy {
	return &ComputerProxy{
		space:             space,
		id:                id,
		remote:            remote,
		pollInterval:      time.Duration(pollIntervalMs) * time.Millisecond,
		runningTaskMap:    make(map[string]task.Task),
		intermediateQueue: queue.New[task.Result](),
	}
}

func (p *ComputerProxy) nextSerial() int {
	p.taskIDMu.Lock()
	defer p.taskIDMu.Unlock()
	p.nextTaskID++
	return int(p.nextTaskID)
}

// Start launches the send and receive goroutines.
func (p *ComputerProxy) Start(ctx context.Context) {
	proxyCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(2)
	go p.sendLoop(proxyCtx)
	go p.receiveLoop(proxyCtx)
}

// sendLoop polls the Computer's busy flag and, when idle, pulls a task
// from the Space ready queue, tags it with this proxy's :C segment, and
// dispatches it.
func (p *ComputerProxy) sendLoop(ctx context.Context) {
	defer p.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}

		busy, err := p.remote.IsBusy(ctx)
		if err != nil {
			p.die()
			return
		}
		if busy {
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.pollInterval):
			}
			continue
		}

		t, ok := p.space.readyQueue.TryTake()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.pollInterval):
			}
			continue
		}

		// A released successor is a continuation merging already-computed
		// child values — cheap enough
		// that shipping it to a Computer and back would cost more than
		// running it here. Anything else is an original or decomposed
		// task and still goes to the Computer.
		if successor, ok := t.(*task.SuccessorTask); ok {
			p.space.ExecuteLocally(ctx, successor, p.intermediateQueue)
			continue
		}

		id := t.ID().WithComputer(p.id)
		tagged := t.WithID(id)

		dispatchCtx, span := tracing.StartTaskSpan(ctx, "space.dispatch", id)
		err = p.remote.AddTask(dispatchCtx, tagged)
		tracing.EndSpan(span, err)
		if err != nil {
			p.space.AddReady(tagged)
			p.die()
			return
		}
		p.runningMu.Lock()
		p.runningTaskMap[id.String()] = tagged
		p.runningMu.Unlock()
	}
}

// receiveLoop fans in results from the blocking Computer RPC and the
// local intermediate queue: one goroutine blocks on the Computer's
// GetResult RPC, another blocks on intermediateQueue.Take, and both feed
// a single channel that this loop processes one result at a time.
func (p *ComputerProxy) receiveLoop(ctx context.Context) {
	defer p.wg.Done()

	resultCh := make(chan task.Result)
	errCh := make(chan error, 1)

	go func() {
		for {
			if ctx.Err() != nil {
				return
			}
			result, err := p.remote.GetResult(ctx)
			if err != nil {
				select {
				case errCh <- err:
				default:
				}
				return
			}
			if result == nil {
				continue // idle sentinel
			}
			select {
			case resultCh <- result:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		for {
			result, ok := p.intermediateQueue.Take(ctx)
			if !ok {
				return
			}
			select {
			case resultCh <- result:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-errCh:
			p.die()
			return
		case result := <-resultCh:
			p.processResult(result)
		}
	}
}

// processResult implements the per-result branching of the receive
// thread, run under lock on runningTaskMap:
//
//   - coarse: strip the :C… suffix, remove from runningTaskMap, forward
//     upward via space.AddResult.
//   - value result absorbed locally (Process returns true): remove
//     originTaskId from runningTaskMap.
//   - value result not absorbed (orphan): strip :C…, remove
//     originTaskId, forward upward.
func (p *ComputerProxy) processResult(result task.Result) {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()

	if result.Coarse() {
		delete(p.runningTaskMap, result.ID().String())
		p.space.AddResult(result.WithID(result.ID().StripComputer()))
		return
	}

	absorbed := result.Process(p.space)
	origin, hasOrigin := asOriginTaskID(result)
	if absorbed {
		if hasOrigin {
			delete(p.runningTaskMap, origin.String())
		}
		return
	}

	if hasOrigin {
		delete(p.runningTaskMap, origin.String())
	}
	p.space.AddResult(result.WithID(result.ID().StripComputer()))
}

// asOriginTaskID extracts the originTaskId from a value result, the same
// shape as runtime/universe's helper one tier up.
type originTasker interface {
	OriginTaskID() taskid.ID
}

func asOriginTaskID(result task.Result) (taskid.ID, bool) {
	if o, ok := result.(originTasker); ok {
		return o.OriginTaskID(), true
	}
	return taskid.ID{}, false
}

// die cancels the shared context from a dedicated goroutine and, once
// the sibling loop has exited, sweeps runningTaskMap back onto the
// Space's ready queue via unregisterComputer.
func (p *ComputerProxy) die() {
	p.dieOnce.Do(func() {
		go func() {
			p.cancel()
			p.wg.Wait()
			p.space.unregisterComputer(p)
		}()
	})
}

// drainRunning empties the running-task map and returns its contents.
func (p *ComputerProxy) drainRunning() []task.Task {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()
	out := make([]task.Task, 0, len(p.runningTaskMap))
	for id, t := range p.runningTaskMap {
		out = append(out, t)
		delete(p.runningTaskMap, id)
	}
	return out
}
