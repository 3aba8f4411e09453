package api

import (
	"context"

	"github.com/Geurney/SpaceNetwork/model/task"
)

// Universe is the root broker's RPC surface, called by connecting Servers
// and Spaces to register themselves.
type Universe interface {
	// RegisterServer assigns a new server id and starts its ServerProxy
	// send/receive pair. The Universe also pushes the id to the server via
	// Server.SetID so the proxy and the remote peer agree on it.
	RegisterServer(ctx context.Context, server Server) (serverID int, err error)

	// RegisterSpace assigns a new space id and starts its SpaceProxy
	// send/receive pair.
	RegisterSpace(ctx context.Context, space Space) (spaceID int, err error)
}

// Server is the Universe's view of a connected client. The
// Universe calls back into the client over this interface; the client's
// own process implements it and the Universe dials out to it.
type Server interface {
	// GetTask blocks until the client has a coarse task ready to submit,
	// or ctx is done.
	GetTask(ctx context.Context) (task.Task, error)

	// DispatchResult delivers a final result to the client.
	DispatchResult(ctx context.Context, result task.Result) error

	// SetID informs the client of the id the Universe assigned it.
	SetID(ctx context.Context, id int) error
}
