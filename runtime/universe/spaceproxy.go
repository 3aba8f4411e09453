package universe

import (
	"context"
	"sync"
	"time"

	"github.com/Geurney/SpaceNetwork/api"
	"github.com/Geurney/SpaceNetwork/model/task"
	"github.com/Geurney/SpaceNetwork/model/taskid"
	"github.com/Geurney/SpaceNetwork/tracing"
)

// spaceProxyState is the SpaceProxy lifecycle:
//
//	INIT -> RUNNING -> (send rpc fail) -> DRAINING -> UNREGISTERED
//	                 -> (recv rpc fail) -> DRAINING -> UNREGISTERED
type spaceProxyState int

const (
	spaceProxyInit spaceProxyState = iota
	spaceProxyRunning
	spaceProxyDraining
	spaceProxyUnregistered
)

// SpaceProxy is the Universe-side stand-in for a connected Space: a
// send/receive goroutine pair plus the running-task map used to recover
// work if the Space dies.
type SpaceProxy struct {
	universe *Scheduler
	id       int
	remote   api.Space

	pollInterval time.Duration

	nextTaskID int64 // this proxy's own TaskID counter
	taskIDMu   sync.Mutex

	runningMu      sync.Mutex
	runningTaskMap map[string]task.Task

	stateMu sync.Mutex
	state   spaceProxyState

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	dieOnce   sync.Once
}

func newSpaceProxy(universe *Scheduler, id int, remote api.Space, pollIntervalMs int) *SpaceProxy {
	return &SpaceProxy{
		universe:       universe,
		id:             id,
		remote:         remote,
		pollInterval:   time.Duration(pollIntervalMs) * time.Millisecond,
		runningTaskMap: make(map[string]task.Task),
		state:          spaceProxyInit,
	}
}

func (p *SpaceProxy) nextSerial() int {
	p.taskIDMu.Lock()
	defer p.taskIDMu.Unlock()
	p.nextTaskID++
	return int(p.nextTaskID)
}

// Start launches the send and receive goroutines and transitions the
// proxy to RUNNING.
func (p *SpaceProxy) Start(ctx context.Context) {
	proxyCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.setState(spaceProxyRunning)
	p.wg.Add(2)
	go p.sendLoop(proxyCtx)
	go p.receiveLoop(proxyCtx)
}

func (p *SpaceProxy) setState(s spaceProxyState) {
	p.stateMu.Lock()
	p.state = s
	p.stateMu.Unlock()
}

// sendLoop polls the Universe ready queue and hands tasks to the Space
// over RPC, tagging each with a fresh :U serial and this proxy's :P
// segment, both idempotent no-ops if already present from an earlier
// dispatch.
func (p *SpaceProxy) sendLoop(ctx context.Context) {
	defer p.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}
		t, ok := p.universe.readyQueue.TryTake()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.pollInterval):
			}
			continue
		}

		id := t.ID().WithUniverse(p.universe.nextTaskSerial()).WithSpace(p.id, p.nextSerial())
		tagged := t.WithID(id)

		dispatchCtx, span := tracing.StartTaskSpan(ctx, "universe.dispatch", id)
		err := p.remote.AddTask(dispatchCtx, tagged)
		tracing.EndSpan(span, err)
		if err != nil {
			p.universe.AddReady(tagged)
			p.die()
			return
		}
		p.runningMu.Lock()
		p.runningTaskMap[id.String()] = tagged
		p.runningMu.Unlock()
	}
}

// receiveLoop blocks on the Space's result queue and processes each
// result under a fixed lock order: universe.readyQueue (implicit via
// AddReady), universe.successorMap, then this proxy's runningTaskMap.
// result.Process itself only touches the first two; runningTaskMap
// bookkeeping happens after, as a separate step from absorbing the
// result.
func (p *SpaceProxy) receiveLoop(ctx context.Context) {
	defer p.wg.Done()
	for {
		result, err := p.remote.GetResult(ctx)
		if err != nil {
			p.die()
			return
		}

		absorbed := result.Process(p.universe)
		if !absorbed {
			p.universe.DispatchResult(result)
		}

		p.runningMu.Lock()
		if result.Coarse() {
			delete(p.runningTaskMap, result.ID().String())
		} else if vr, ok := asOriginTaskID(result); ok {
			delete(p.runningTaskMap, vr.String())
		}
		p.runningMu.Unlock()
	}
}

// asOriginTaskID extracts the originTaskId from a value result so the
// receive loop can remove the right runningTaskMap entry. Defined via a
// narrow interface rather than a type switch over task.ValueResult[T]'s
// infinite instantiations.
type originTasker interface {
	OriginTaskID() taskid.ID
}

func asOriginTaskID(result task.Result) (taskid.ID, bool) {
	if o, ok := result.(originTasker); ok {
		return o.OriginTaskID(), true
	}
	return taskid.ID{}, false
}

// die transitions the proxy to DRAINING and, from a dedicated goroutine
// (never from the send or receive loop itself — both report their own
// exit via wg, and waiting on wg inside the caller's own goroutine would
// deadlock), cancels the shared context, waits for the sibling loop to
// observe its own RPC error, then sweeps the running-task map back onto
// the Universe ready queue via unregisterSpace. dieOnce ensures the
// sweep happens exactly once regardless of which loop notices death
// first.
func (p *SpaceProxy) die() {
	p.dieOnce.Do(func() {
		p.setState(spaceProxyDraining)
		go func() {
			p.cancel()
			p.wg.Wait()
			p.universe.unregisterSpace(p)
			p.setState(spaceProxyUnregistered)
		}()
	})
}

// drainRunning empties the running-task map and returns its contents, for
// re-dispatch onto the Universe ready queue.
func (p *SpaceProxy) drainRunning() []task.Task {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()
	out := make([]task.Task, 0, len(p.runningTaskMap))
	for id, t := range p.runningTaskMap {
		out = append(out, t)
		delete(p.runningTaskMap, id)
	}
	return out
}
