package rpc

import (
	"context"
	"net/rpc"
	"sync"

	"github.com/Geurney/SpaceNetwork/api"
)

// RegisterServerArgs carries the callback address a newly-connecting
// Server process is listening on, so the Universe can dial back and push
// GetTask/DispatchResult/SetID calls to it.
type RegisterServerArgs struct {
	CallbackAddr string
}

// RegisterServerReply carries the id the Universe assigned.
type RegisterServerReply struct {
	ServerID int
}

// RegisterSpaceArgs is RegisterServerArgs's counterpart for Space.
type RegisterSpaceArgs struct {
	CallbackAddr string
}

// RegisterSpaceReply carries the id the Universe assigned.
type RegisterSpaceReply struct {
	SpaceID int
}

// UniverseHandler exposes a Universe under the "Universe" net/rpc service
// name. Unlike AddTask/GetResult forwarders elsewhere in this package, its
// methods cannot forward wire arguments straight onto api.Universe: the
// wire only carries a callback address, while api.Universe.RegisterServer/
// RegisterSpace expect a live api.Server/api.Space value. UniverseHandler
// dials the callback itself and hands the resulting client stub to the
// real scheduler, mirroring what RMI's registry does implicitly when a
// remote stub is looked up.
type UniverseHandler struct {
	universe api.Universe
}

// NewUniverseHandler wraps universe for net/rpc registration.
func NewUniverseHandler(universe api.Universe) *UniverseHandler {
	return &UniverseHandler{universe: universe}
}

// ServeUniverse starts a net/rpc listener exposing universe on addr.
func ServeUniverse(addr string, universe api.Universe) (*Endpoint, error) {
	return serve(addr, "Universe", NewUniverseHandler(universe))
}

// RegisterServer dials args.CallbackAddr for a Server stub and registers
// it with the wrapped Universe.
func (h *UniverseHandler) RegisterServer(args RegisterServerArgs, reply *RegisterServerReply) error {
	client, err := DialServer(args.CallbackAddr)
	if err != nil {
		return err
	}
	id, err := h.universe.RegisterServer(context.Background(), client)
	if err != nil {
		return err
	}
	reply.ServerID = id
	return nil
}

// RegisterSpace dials args.CallbackAddr for a Space stub and registers it
// with the wrapped Universe.
func (h *UniverseHandler) RegisterSpace(args RegisterSpaceArgs, reply *RegisterSpaceReply) error {
	client, err := DialSpace(args.CallbackAddr)
	if err != nil {
		return err
	}
	id, err := h.universe.RegisterSpace(context.Background(), client)
	if err != nil {
		return err
	}
	reply.SpaceID = id
	return nil
}

// UniverseClient implements api.Universe by dialing a remote Universe
// process. Calling RegisterServer/RegisterSpace on it starts a local
// net/rpc listener for the passed-in Server/Space value (the process's
// own implementation) and sends that listener's address as the callback
// — the client-side half of the dial-back exchange UniverseHandler
// performs on the other end.
type UniverseClient struct {
	client *rpc.Client

	mu        sync.Mutex
	endpoints []*Endpoint
}

// DialUniverse connects to a Universe process listening at addr.
func DialUniverse(addr string) (*UniverseClient, error) {
	c, err := dial(addr)
	if err != nil {
		return nil, err
	}
	return &UniverseClient{client: c}, nil
}

var _ api.Universe = (*UniverseClient)(nil)

// RegisterServer serves server locally and registers its address with
// the remote Universe.
func (c *UniverseClient) RegisterServer(ctx context.Context, server api.Server) (int, error) {
	endpoint, err := ServeServer(":0", server)
	if err != nil {
		return 0, err
	}
	c.trackEndpoint(endpoint)

	var reply RegisterServerReply
	err = call(ctx, c.client, "Universe.RegisterServer", RegisterServerArgs{CallbackAddr: endpoint.Addr()}, &reply)
	return reply.ServerID, err
}

// RegisterSpace serves space locally and registers its address with the
// remote Universe.
func (c *UniverseClient) RegisterSpace(ctx context.Context, space api.Space) (int, error) {
	endpoint, err := ServeSpace(":0", space)
	if err != nil {
		return 0, err
	}
	c.trackEndpoint(endpoint)

	var reply RegisterSpaceReply
	err = call(ctx, c.client, "Universe.RegisterSpace", RegisterSpaceArgs{CallbackAddr: endpoint.Addr()}, &reply)
	return reply.SpaceID, err
}

func (c *UniverseClient) trackEndpoint(e *Endpoint) {
	c.mu.Lock()
	c.endpoints = append(c.endpoints, e)
	c.mu.Unlock()
}

// Close releases the underlying connection and every callback listener
// opened on this client's behalf.
func (c *UniverseClient) Close() error {
	c.mu.Lock()
	for _, e := range c.endpoints {
		e.Close()
	}
	c.mu.Unlock()
	return c.client.Close()
}
