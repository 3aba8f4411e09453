package universe

import (
	"context"
	"sync"

	"github.com/Geurney/SpaceNetwork/api"
	"github.com/Geurney/SpaceNetwork/internal/queue"
	"github.com/Geurney/SpaceNetwork/model/task"
)

// ServerProxy is the Universe-side stand-in for a connected client: a
// send/receive goroutine pair plus the client's local result queue. Peer
// death is detected by either goroutine's RPC call failing; whichever
// notices first cancels the shared context so the other unwinds, and the
// cleanup runs exactly once, after both goroutines have exited.
type ServerProxy struct {
	universe *Scheduler
	id       int
	remote   api.Server

	resultQueue *queue.Queue[task.Result]

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	cleanupOnce sync.Once
}

func newServerProxy(universe *Scheduler, id int, remote api.Server) *ServerProxy {
	return &ServerProxy{
		universe:    universe,
		id:          id,
		remote:      remote,
		resultQueue: queue.New[task.Result](),
	}
}

// Start launches the send and receive goroutines.
func (p *ServerProxy) Start(ctx context.Context) {
	proxyCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(2)
	go p.sendLoop(proxyCtx)
	go p.receiveLoop(proxyCtx)
}

// sendLoop repeatedly pulls a task from the client and pushes it onto the
// Universe ready queue, tagging it with the next universe-tier serial.
func (p *ServerProxy) sendLoop(ctx context.Context) {
	defer p.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}
		t, err := p.remote.GetTask(ctx)
		if err != nil {
			p.die()
			return
		}
		id := t.ID().WithUniverse(p.universe.nextTaskSerial())
		p.universe.AddReady(t.WithID(id))
	}
}

// receiveLoop delivers results queued for this client back over RPC.
func (p *ServerProxy) receiveLoop(ctx context.Context) {
	defer p.wg.Done()
	for {
		result, ok := p.resultQueue.Take(ctx)
		if !ok {
			return
		}
		if err := p.remote.DispatchResult(ctx, result); err != nil {
			p.die()
			return
		}
	}
}

// die cancels the shared context so the sibling goroutine unwinds and,
// from a dedicated goroutine (the calling loop reports its own exit via
// wg, so waiting inline would deadlock), waits for both loops to exit
// before unregistering this proxy exactly once.
func (p *ServerProxy) die() {
	p.cleanupOnce.Do(func() {
		go func() {
			p.cancel()
			p.wg.Wait()
			p.universe.unregisterServer(p)
		}()
	})
}
