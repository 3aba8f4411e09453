// Package rpc adapts the peer RPC contracts in api/* onto net/rpc, the
// codegen-free standard-library analogue of a Java RMI remote-object call
// (see DESIGN.md's transport/rpc entry for why grpc was rejected). Every
// exported call uses encoding/gob under the
// hood, so every concrete task.Task / task.Result implementation crossing
// a wire boundary must be registered once at startup with
// checkpoint.RegisterTaskType (or gob.Register directly) before any dial
// or serve happens — the same requirement the checkpoint package already
// carries for its own snapshot file.
package rpc

import (
	"context"
	"fmt"
	"net"
	"net/rpc"
)

// Endpoint is a running net/rpc listener for one tier's service. Addr is
// the dialable address a peer's callback/registration call should carry.
type Endpoint struct {
	listener net.Listener
	server   *rpc.Server
}

// Addr returns the address this endpoint is listening on.
func (e *Endpoint) Addr() string {
	return e.listener.Addr().String()
}

// Close stops accepting new connections. In-flight calls are left to
// finish on their own.
func (e *Endpoint) Close() error {
	return e.listener.Close()
}

// serve registers svc under name and starts accepting connections on
// addr ("host:port", or ":0" for an OS-assigned port). It returns once
// the listener is open; accepting happens on a background goroutine,
// separating "start up" from "run loop".
func serve(addr, name string, svc interface{}) (*Endpoint, error) {
	server := rpc.NewServer()
	if err := server.RegisterName(name, svc); err != nil {
		return nil, fmt.Errorf("rpc: register %s: %w", name, err)
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("rpc: listen %s: %w", addr, err)
	}
	go server.Accept(listener)
	return &Endpoint{listener: listener, server: server}, nil
}

// call performs a synchronous net/rpc call that also returns early if ctx
// is cancelled, via rpc.Client.Go's async form. The underlying call is
// not aborted server-side — net/rpc has no wire-level cancellation — but
// the caller stops waiting, which is what every blocking api.* method
// needs when a peer shuts down mid-poll.
func call(ctx context.Context, client *rpc.Client, serviceMethod string, args, reply interface{}) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	done := make(chan *rpc.Call, 1)
	client.Go(serviceMethod, args, reply, done)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case result := <-done:
		return result.Error
	}
}

// dial opens a plain TCP net/rpc connection to addr.
func dial(addr string) (*rpc.Client, error) {
	client, err := rpc.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("rpc: dial %s: %w", addr, err)
	}
	return client, nil
}
