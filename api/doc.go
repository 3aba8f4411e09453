// Package api defines the peer RPC contracts between tiers of the
// fabric: Universe, Space, Server and Computer. Each interface is
// implemented twice — once by the tier itself (the callee, wired to a
// concrete scheduler) and once by a transport/rpc client stub (the
// caller's view across the wire).
package api
