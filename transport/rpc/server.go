package rpc

import (
	"context"
	"net/rpc"

	"github.com/Geurney/SpaceNetwork/api"
	"github.com/Geurney/SpaceNetwork/model/task"
)

// DispatchResultArgs carries a final Result on its way to the client.
type DispatchResultArgs struct {
	Result task.Result
}

// SetIDArgs carries an id assignment; shared shape across Server, Space
// and Computer's SetID calls.
type SetIDArgs struct {
	ID int
}

// GetTaskReply carries a coarse task pulled from the client.
type GetTaskReply struct {
	Task task.Task
}

// ServerHandler exposes a local api.Server under the "Server" net/rpc
// service name, so the Universe can dial in and push GetTask/
// DispatchResult/SetID calls. Every method here is a
// direct, unconditional forward onto the wrapped implementation — unlike
// UniverseHandler, nothing needs dialing back out.
type ServerHandler struct {
	server api.Server
}

// NewServerHandler wraps server for net/rpc registration.
func NewServerHandler(server api.Server) *ServerHandler {
	return &ServerHandler{server: server}
}

// ServeServer starts a net/rpc listener exposing server on addr.
func ServeServer(addr string, server api.Server) (*Endpoint, error) {
	return serve(addr, "Server", NewServerHandler(server))
}

func (h *ServerHandler) GetTask(_ struct{}, reply *GetTaskReply) error {
	t, err := h.server.GetTask(context.Background())
	if err != nil {
		return err
	}
	reply.Task = t
	return nil
}

func (h *ServerHandler) DispatchResult(args DispatchResultArgs, _ *struct{}) error {
	return h.server.DispatchResult(context.Background(), args.Result)
}

func (h *ServerHandler) SetID(args SetIDArgs, _ *struct{}) error {
	return h.server.SetID(context.Background(), args.ID)
}

// ServerClient implements api.Server by forwarding every call across the
// wire to a Server process's "Server" service. The Universe's ServerProxy
// (runtime/universe) is built against api.Server, so it dials this stub
// once at registration time and never imports net/rpc itself.
type ServerClient struct {
	client *rpc.Client
}

// DialServer connects to a Server process listening at addr.
func DialServer(addr string) (*ServerClient, error) {
	c, err := dial(addr)
	if err != nil {
		return nil, err
	}
	return &ServerClient{client: c}, nil
}

var _ api.Server = (*ServerClient)(nil)

func (c *ServerClient) GetTask(ctx context.Context) (task.Task, error) {
	var reply GetTaskReply
	err := call(ctx, c.client, "Server.GetTask", struct{}{}, &reply)
	return reply.Task, err
}

func (c *ServerClient) DispatchResult(ctx context.Context, result task.Result) error {
	return call(ctx, c.client, "Server.DispatchResult", DispatchResultArgs{Result: result}, &struct{}{})
}

func (c *ServerClient) SetID(ctx context.Context, id int) error {
	return call(ctx, c.client, "Server.SetID", SetIDArgs{ID: id}, &struct{}{})
}

// Close releases the underlying connection.
func (c *ServerClient) Close() error {
	return c.client.Close()
}
