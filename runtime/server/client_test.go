package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Geurney/SpaceNetwork/model/task"
	"github.com/Geurney/SpaceNetwork/model/taskid"
)

type leafTask struct {
	id taskid.ID
}

func (l *leafTask) ID() taskid.ID                 { return l.id }
func (l *leafTask) WithID(id taskid.ID) task.Task { return &leafTask{id: id} }
func (l *leafTask) Layer() int                    { return 0 }
func (l *leafTask) Coarse() bool                  { return false }
func (l *leafTask) Execute(ctx context.Context) (task.Result, error) {
	return nil, nil
}

func TestSubmitDeliveredViaGetTask(t *testing.T) {
	scheduler := New()
	id, _ := taskid.Parse("F:1:S0:1")
	scheduler.Submit(&leafTask{id: id})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := scheduler.GetTask(ctx)
	assert.NoError(t, err)
	assert.Equal(t, id, got.ID())
}

func TestDispatchResultDeliveredViaAwait(t *testing.T) {
	scheduler := New()
	id, _ := taskid.Parse("F:1:S0:1")
	result := task.NewValueResult(id, id, id, 0, 42)

	assert.NoError(t, scheduler.DispatchResult(context.Background(), result))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := scheduler.Await(ctx)
	assert.NoError(t, err)
	assert.Equal(t, result, got)
}

func TestGetTaskBlocksUntilContextDone(t *testing.T) {
	scheduler := New()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := scheduler.GetTask(ctx)
	assert.Error(t, err)
}
