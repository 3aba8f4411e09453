package rpc

import (
	"context"
	"net/rpc"
	"sync"

	"github.com/Geurney/SpaceNetwork/api"
	"github.com/Geurney/SpaceNetwork/model/task"
)

// AddTaskArgs carries a task destined for a Space's or Computer's ready
// queue.
type AddTaskArgs struct {
	Task task.Task
}

// GetResultReply carries a result a Space or Computer has ready for
// upward propagation.
type GetResultReply struct {
	Result task.Result
}

// RegisterComputerArgs carries a newly-connecting Computer's callback
// address.
type RegisterComputerArgs struct {
	CallbackAddr string
}

// RegisterComputerReply carries the id the Space assigned.
type RegisterComputerReply struct {
	ComputerID int
}

// SpaceHandler exposes a local api.Space under the "Space" net/rpc
// service name. AddTask/GetResult/SetID are direct forwards; RegisterComputer
// dials the callback address itself before delegating, for the same
// reason UniverseHandler.RegisterServer does.
type SpaceHandler struct {
	space api.Space
}

// NewSpaceHandler wraps space for net/rpc registration.
func NewSpaceHandler(space api.Space) *SpaceHandler {
	return &SpaceHandler{space: space}
}

// ServeSpace starts a net/rpc listener exposing space on addr.
func ServeSpace(addr string, space api.Space) (*Endpoint, error) {
	return serve(addr, "Space", NewSpaceHandler(space))
}

func (h *SpaceHandler) AddTask(args AddTaskArgs, _ *struct{}) error {
	return h.space.AddTask(context.Background(), args.Task)
}

func (h *SpaceHandler) GetResult(_ struct{}, reply *GetResultReply) error {
	r, err := h.space.GetResult(context.Background())
	if err != nil {
		return err
	}
	reply.Result = r
	return nil
}

func (h *SpaceHandler) SetID(args SetIDArgs, _ *struct{}) error {
	return h.space.SetID(context.Background(), args.ID)
}

func (h *SpaceHandler) RegisterComputer(args RegisterComputerArgs, reply *RegisterComputerReply) error {
	client, err := DialComputer(args.CallbackAddr)
	if err != nil {
		return err
	}
	id, err := h.space.RegisterComputer(context.Background(), client)
	if err != nil {
		return err
	}
	reply.ComputerID = id
	return nil
}

// SpaceClient implements api.Space by forwarding calls to a Space
// process. The Universe's SpaceProxy dials this once at registration
// time and pushes AddTask/GetResult/SetID through it; a Computer dials
// one directly to call RegisterComputer, serving its own api.Computer
// implementation locally the same way UniverseClient serves Server/Space.
type SpaceClient struct {
	client *rpc.Client

	mu        sync.Mutex
	endpoints []*Endpoint
}

// DialSpace connects to a Space process listening at addr.
func DialSpace(addr string) (*SpaceClient, error) {
	c, err := dial(addr)
	if err != nil {
		return nil, err
	}
	return &SpaceClient{client: c}, nil
}

var _ api.Space = (*SpaceClient)(nil)

func (c *SpaceClient) AddTask(ctx context.Context, t task.Task) error {
	return call(ctx, c.client, "Space.AddTask", AddTaskArgs{Task: t}, &struct{}{})
}

func (c *SpaceClient) GetResult(ctx context.Context) (task.Result, error) {
	var reply GetResultReply
	err := call(ctx, c.client, "Space.GetResult", struct{}{}, &reply)
	return reply.Result, err
}

func (c *SpaceClient) SetID(ctx context.Context, id int) error {
	return call(ctx, c.client, "Space.SetID", SetIDArgs{ID: id}, &struct{}{})
}

// RegisterComputer serves computer locally and registers its address
// with the remote Space.
func (c *SpaceClient) RegisterComputer(ctx context.Context, computer api.Computer) (int, error) {
	endpoint, err := ServeComputer(":0", computer)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	c.endpoints = append(c.endpoints, endpoint)
	c.mu.Unlock()

	var reply RegisterComputerReply
	err = call(ctx, c.client, "Space.RegisterComputer", RegisterComputerArgs{CallbackAddr: endpoint.Addr()}, &reply)
	return reply.ComputerID, err
}

// Close releases the underlying connection and any callback listeners
// opened on this client's behalf.
func (c *SpaceClient) Close() error {
	c.mu.Lock()
	for _, e := range c.endpoints {
		e.Close()
	}
	c.mu.Unlock()
	return c.client.Close()
}
