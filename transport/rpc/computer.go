package rpc

import (
	"context"
	"net/rpc"

	"github.com/Geurney/SpaceNetwork/api"
	"github.com/Geurney/SpaceNetwork/model/task"
)

// IsBusyReply carries whether a Computer is currently executing a task.
type IsBusyReply struct {
	Busy bool
}

// GetWorkerNumReply carries a Computer's local worker goroutine count.
type GetWorkerNumReply struct {
	N int
}

// ComputerHandler exposes a local api.Computer under the "Computer"
// net/rpc service name, so a Space's ComputerProxy can dial in and push
// AddTask/GetResult/IsBusy/SetID/GetWorkerNum calls to it.
type ComputerHandler struct {
	computer api.Computer
}

// NewComputerHandler wraps computer for net/rpc registration.
func NewComputerHandler(computer api.Computer) *ComputerHandler {
	return &ComputerHandler{computer: computer}
}

// ServeComputer starts a net/rpc listener exposing computer on addr.
func ServeComputer(addr string, computer api.Computer) (*Endpoint, error) {
	return serve(addr, "Computer", NewComputerHandler(computer))
}

func (h *ComputerHandler) AddTask(args AddTaskArgs, _ *struct{}) error {
	return h.computer.AddTask(context.Background(), args.Task)
}

func (h *ComputerHandler) GetResult(_ struct{}, reply *GetResultReply) error {
	r, err := h.computer.GetResult(context.Background())
	if err != nil {
		return err
	}
	reply.Result = r
	return nil
}

func (h *ComputerHandler) IsBusy(_ struct{}, reply *IsBusyReply) error {
	busy, err := h.computer.IsBusy(context.Background())
	if err != nil {
		return err
	}
	reply.Busy = busy
	return nil
}

func (h *ComputerHandler) SetID(args SetIDArgs, _ *struct{}) error {
	return h.computer.SetID(context.Background(), args.ID)
}

func (h *ComputerHandler) GetWorkerNum(_ struct{}, reply *GetWorkerNumReply) error {
	n, err := h.computer.GetWorkerNum(context.Background())
	if err != nil {
		return err
	}
	reply.N = n
	return nil
}

// ComputerClient implements api.Computer by forwarding every call to a
// Computer process. A Space's ComputerProxy dials this once at
// registration time and never imports net/rpc itself.
type ComputerClient struct {
	client *rpc.Client
}

// DialComputer connects to a Computer process listening at addr.
func DialComputer(addr string) (*ComputerClient, error) {
	c, err := dial(addr)
	if err != nil {
		return nil, err
	}
	return &ComputerClient{client: c}, nil
}

var _ api.Computer = (*ComputerClient)(nil)

func (c *ComputerClient) AddTask(ctx context.Context, t task.Task) error {
	return call(ctx, c.client, "Computer.AddTask", AddTaskArgs{Task: t}, &struct{}{})
}

func (c *ComputerClient) GetResult(ctx context.Context) (task.Result, error) {
	var reply GetResultReply
	err := call(ctx, c.client, "Computer.GetResult", struct{}{}, &reply)
	return reply.Result, err
}

func (c *ComputerClient) IsBusy(ctx context.Context) (bool, error) {
	var reply IsBusyReply
	err := call(ctx, c.client, "Computer.IsBusy", struct{}{}, &reply)
	return reply.Busy, err
}

func (c *ComputerClient) SetID(ctx context.Context, id int) error {
	return call(ctx, c.client, "Computer.SetID", SetIDArgs{ID: id}, &struct{}{})
}

func (c *ComputerClient) GetWorkerNum(ctx context.Context) (int, error) {
	var reply GetWorkerNumReply
	err := call(ctx, c.client, "Computer.GetWorkerNum", struct{}{}, &reply)
	return reply.N, err
}

// Close releases the underlying connection.
func (c *ComputerClient) Close() error {
	return c.client.Close()
}
