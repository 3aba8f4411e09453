// Package task defines the unit of work threaded through the fabric
// (Task, SuccessorTask) and the polymorphic outcome of executing one
// (Result, CoarseResult, ValueResult).
package task

import (
	"bytes"
	"context"
	"encoding/gob"
	"sync"

	"github.com/Geurney/SpaceNetwork/model/taskid"
)

// Task is a unit of work. Implementations are expected to be otherwise
// immutable; only the id is ever rewritten, and always by replacing the
// whole struct (see taskid.ID's With* methods), never by mutating shared
// state in place.
type Task interface {
	ID() taskid.ID
	WithID(id taskid.ID) Task

	// Layer reports depth in the decomposition tree. Used for logging and
	// routing heuristics only — it carries no scheduling semantics.
	Layer() int

	// Coarse reports whether executing this task typically produces more
	// tasks (and a successor continuation) rather than a single value.
	Coarse() bool

	// Execute runs the task's embedded computation and returns the
	// resulting Result. The concrete computation is supplied by callers
	// (see examples/fib) — this package only carries the shape.
	Execute(ctx context.Context) (Result, error)
}

// Continuation is the user-supplied computation a SuccessorTask runs once
// every argument slot is filled. Unlike a plain closure, a Continuation
// must be a concrete, gob-registered type (see checkpoint.RegisterTaskType):
// a SuccessorTask crosses the same Computer->Space RPC hop a CoarseResult
// does (ComputerProxy.receiveLoop's GetResult call) before Universe ever
// registers it, and travels back down to a Space to be run, and a Go func
// value cannot survive those trips — only state carried in exported
// fields can.
type Continuation interface {
	Combine(ctx context.Context, id taskid.ID, args []interface{}) (Result, error)
}

// SuccessorTask is a continuation awaiting one or more argument slots from
// child-task results before it can run. Args are deposited by ValueResult
// processing (model/task/result.go); PendingCount reaching zero is the
// trigger that releases it to a ready queue.
type SuccessorTask struct {
	mu sync.Mutex

	id           taskid.ID
	layer        int
	pendingCount int
	args         []interface{}

	// targetTaskID identifies the parent successor to notify when this one
	// completes, if this SuccessorTask is itself feeding another one.
	targetTaskID taskid.ID
	hasTarget    bool

	continuation Continuation
}

// NewSuccessorTask creates a successor awaiting slotCount argument values.
func NewSuccessorTask(id taskid.ID, layer, slotCount int, continuation Continuation) *SuccessorTask {
	return &SuccessorTask{
		id:           id,
		layer:        layer,
		pendingCount: slotCount,
		args:         make([]interface{}, slotCount),
		continuation: continuation,
	}
}

// WithTarget records the successor this one must notify on completion,
// used when a successor's own value is itself consumed by another
// successor (a decomposition more than one level deep).
func (s *SuccessorTask) WithTarget(target taskid.ID) *SuccessorTask {
	s.targetTaskID = target
	s.hasTarget = true
	return s
}

func (s *SuccessorTask) ID() taskid.ID { return s.id }

// WithID returns a shallow copy of the successor re-keyed to id. Used when
// a successor is re-dispatched and must carry a :R suffix without aliasing
// the original's slot storage.
func (s *SuccessorTask) WithID(id taskid.ID) Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := &SuccessorTask{
		id:           id,
		layer:        s.layer,
		pendingCount: s.pendingCount,
		args:         append([]interface{}(nil), s.args...),
		targetTaskID: s.targetTaskID,
		hasTarget:    s.hasTarget,
		continuation: s.continuation,
	}
	return clone
}

func (s *SuccessorTask) Layer() int  { return s.layer }
func (s *SuccessorTask) Coarse() bool { return false }

// Execute runs the user-supplied continuation over the filled argument
// slots. Callers must only invoke Execute once PendingCount has reached
// zero.
func (s *SuccessorTask) Execute(ctx context.Context) (Result, error) {
	s.mu.Lock()
	args := append([]interface{}(nil), s.args...)
	s.mu.Unlock()
	return s.continuation.Combine(ctx, s.id, args)
}

// Deposit writes value into slotIndex and decrements the pending count.
// It returns true once every slot has been filled — the caller must then
// enqueue this successor as a ready task exactly once. Each
// (targetTaskId, slotIndex) pair is expected to be produced by exactly
// one ValueResult; a second write to an already-filled slot silently
// overwrites (see DESIGN.md's Open Question resolution).
func (s *SuccessorTask) Deposit(slotIndex int, value interface{}) (ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wasFilled := s.args[slotIndex] != nil
	s.args[slotIndex] = value
	if !wasFilled {
		s.pendingCount--
	}
	return s.pendingCount == 0
}

// PendingCount reports the number of unfilled argument slots remaining.
func (s *SuccessorTask) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingCount
}

// Target returns the successor to notify on completion, if any.
func (s *SuccessorTask) Target() (taskid.ID, bool) {
	return s.targetTaskID, s.hasTarget
}

// successorTaskWire is the exported-field mirror GobEncode/GobDecode
// marshal through; SuccessorTask itself has no exported fields (gob
// refuses to encode such a type on its own).
type successorTaskWire struct {
	ID           taskid.ID
	Layer        int
	PendingCount int
	Args         []interface{}
	TargetTaskID taskid.ID
	HasTarget    bool
	Continuation Continuation
}

// GobEncode lets a SuccessorTask cross the same RPC boundary a CoarseResult
// does, carrying its continuation by concrete registered type rather than
// relying on reflection over unexported fields.
func (s *SuccessorTask) GobEncode() ([]byte, error) {
	s.mu.Lock()
	wire := successorTaskWire{
		ID:           s.id,
		Layer:        s.layer,
		PendingCount: s.pendingCount,
		Args:         s.args,
		TargetTaskID: s.targetTaskID,
		HasTarget:    s.hasTarget,
		Continuation: s.continuation,
	}
	s.mu.Unlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(wire); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *SuccessorTask) GobDecode(data []byte) error {
	var wire successorTaskWire
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&wire); err != nil {
		return err
	}
	s.id = wire.ID
	s.layer = wire.Layer
	s.pendingCount = wire.PendingCount
	s.args = wire.Args
	s.targetTaskID = wire.TargetTaskID
	s.hasTarget = wire.HasTarget
	s.continuation = wire.Continuation
	return nil
}
