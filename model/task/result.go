package task

import (
	"bytes"
	"encoding/gob"

	"github.com/Geurney/SpaceNetwork/model/taskid"
)

// Scheduler is the subset of a tier's scheduler that Result.Process needs
// to absorb a result locally: push decomposed child tasks onto the ready
// queue and track/resolve successor continuations. Both the Universe and
// Space schedulers satisfy this interface (runtime/universe, runtime/space).
type Scheduler interface {
	AddReady(t Task)
	RegisterSuccessor(id taskid.ID, successor *SuccessorTask)
	ResolveSuccessor(id taskid.ID) (*SuccessorTask, bool)
	DeleteSuccessor(id taskid.ID)
}

// Result is the polymorphic outcome of executing a Task.
// Process reports whether the result was absorbed locally by scheduler
// (true) or must propagate upward to the parent tier (false) because its
// target is not present in the local successor map.
type Result interface {
	ID() taskid.ID
	Coarse() bool
	Process(scheduler Scheduler) bool

	// WithID returns a copy re-keyed to id, used by a ComputerProxy to
	// strip its :C… suffix before forwarding a result upward.
	WithID(id taskid.ID) Result
}

// CoarseResult carries the decomposition of a coarse task: its child
// tasks and the successor continuation awaiting their values.
type CoarseResult struct {
	id         taskid.ID
	childTasks []Task
	successor  *SuccessorTask
}

// NewCoarseResult builds a CoarseResult for a task that decomposed into
// childTasks feeding successor.
func NewCoarseResult(id taskid.ID, childTasks []Task, successor *SuccessorTask) *CoarseResult {
	return &CoarseResult{id: id, childTasks: childTasks, successor: successor}
}

func (r *CoarseResult) ID() taskid.ID { return r.id }
func (r *CoarseResult) Coarse() bool  { return true }

func (r *CoarseResult) WithID(id taskid.ID) Result {
	return &CoarseResult{id: id, childTasks: r.childTasks, successor: r.successor}
}

// Process enqueues every child task and registers the successor. A
// CoarseResult is always absorbed locally.
func (r *CoarseResult) Process(scheduler Scheduler) bool {
	for _, child := range r.childTasks {
		scheduler.AddReady(child)
	}
	scheduler.RegisterSuccessor(r.successor.ID(), r.successor)
	return true
}

// coarseResultWire is the exported-field mirror GobEncode/GobDecode marshal
// through; CoarseResult has no exported fields of its own.
type coarseResultWire struct {
	ID         taskid.ID
	ChildTasks []Task
	Successor  *SuccessorTask
}

func (r *CoarseResult) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	wire := coarseResultWire{ID: r.id, ChildTasks: r.childTasks, Successor: r.successor}
	if err := gob.NewEncoder(&buf).Encode(wire); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *CoarseResult) GobDecode(data []byte) error {
	var wire coarseResultWire
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&wire); err != nil {
		return err
	}
	r.id, r.childTasks, r.successor = wire.ID, wire.ChildTasks, wire.Successor
	return nil
}

// ChildTasks returns the decomposed child tasks, exposed for tests and
// for the intermediate-result path (spaceExecuteTask).
func (r *CoarseResult) ChildTasks() []Task { return r.childTasks }

// Successor returns the continuation awaiting the child tasks' values.
func (r *CoarseResult) Successor() *SuccessorTask { return r.successor }

// ValueResult carries the payload of a completed leaf task, addressed to
// one argument slot of a specific successor.
type ValueResult[T any] struct {
	id           taskid.ID
	originTaskID taskid.ID
	targetTaskID taskid.ID
	slotIndex    int
	value        T
}

// NewValueResult builds a ValueResult addressed to one argument slot of a
// successor continuation.
func NewValueResult[T any](id, originTaskID, targetTaskID taskid.ID, slotIndex int, value T) *ValueResult[T] {
	return &ValueResult[T]{id: id, originTaskID: originTaskID, targetTaskID: targetTaskID, slotIndex: slotIndex, value: value}
}

func (r *ValueResult[T]) ID() taskid.ID           { return r.id }
func (r *ValueResult[T]) Coarse() bool            { return false }
func (r *ValueResult[T]) OriginTaskID() taskid.ID { return r.originTaskID }
func (r *ValueResult[T]) TargetTaskID() taskid.ID { return r.targetTaskID }
func (r *ValueResult[T]) SlotIndex() int          { return r.slotIndex }
func (r *ValueResult[T]) Value() T                { return r.value }

func (r *ValueResult[T]) WithID(id taskid.ID) Result {
	return &ValueResult[T]{id: id, originTaskID: r.originTaskID, targetTaskID: r.targetTaskID, slotIndex: r.slotIndex, value: r.value}
}

// valueResultWire is the exported-field mirror GobEncode/GobDecode marshal
// through; ValueResult has no exported fields of its own.
type valueResultWire[T any] struct {
	ID           taskid.ID
	OriginTaskID taskid.ID
	TargetTaskID taskid.ID
	SlotIndex    int
	Value        T
}

func (r *ValueResult[T]) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	wire := valueResultWire[T]{ID: r.id, OriginTaskID: r.originTaskID, TargetTaskID: r.targetTaskID, SlotIndex: r.slotIndex, Value: r.value}
	if err := gob.NewEncoder(&buf).Encode(wire); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *ValueResult[T]) GobDecode(data []byte) error {
	var wire valueResultWire[T]
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&wire); err != nil {
		return err
	}
	r.id, r.originTaskID, r.targetTaskID, r.slotIndex, r.value = wire.ID, wire.OriginTaskID, wire.TargetTaskID, wire.SlotIndex, wire.Value
	return nil
}

// Process resolves the target successor in scheduler's local map. If
// found, the value is deposited and, once every slot is filled, the
// successor is de-registered and pushed onto the ready queue. If the
// target is not present locally, Process returns false so the caller
// forwards the result to the parent tier.
//
// Payloads cross the net/rpc transport boundary as this exact registered
// concrete type (gob.Register keys on it), so value already arrives typed
// as T — no conversion happens here. The generic conversion step instead
// lives where a SuccessorTask's Continuation reads back its []interface{}
// argument slots (see examples/fib.sumContinuation), which is where a
// dynamically-typed value genuinely needs coercing to a concrete type.
func (r *ValueResult[T]) Process(scheduler Scheduler) bool {
	successor, ok := scheduler.ResolveSuccessor(r.targetTaskID)
	if !ok {
		return false
	}
	ready := successor.Deposit(r.slotIndex, r.value)
	if ready {
		scheduler.DeleteSuccessor(r.targetTaskID)
		scheduler.AddReady(successor)
	}
	return true
}
