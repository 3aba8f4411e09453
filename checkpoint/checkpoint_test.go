package checkpoint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Geurney/SpaceNetwork/model/task"
	"github.com/Geurney/SpaceNetwork/model/taskid"
	"github.com/Geurney/SpaceNetwork/runtime/universe"
)

type gobLeafTask struct {
	ID_ taskid.ID
}

func (l *gobLeafTask) ID() taskid.ID                 { return l.ID_ }
func (l *gobLeafTask) WithID(id taskid.ID) task.Task { return &gobLeafTask{ID_: id} }
func (l *gobLeafTask) Layer() int                    { return 0 }
func (l *gobLeafTask) Coarse() bool                  { return false }
func (l *gobLeafTask) Execute(ctx context.Context) (task.Result, error) {
	return nil, nil
}

func init() {
	RegisterTaskType(&gobLeafTask{})
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := New("mem://localhost/recovery/checkpoint.gob")

	id, err := taskid.Parse("F:1:S0:1:U1")
	assert.NoError(t, err)

	snapshot := universe.Snapshot{
		ReadyTasks:       []task.Task{&gobLeafTask{ID_: id}},
		SuccessorTaskIDs: []string{"!:F:1:S0:1:U1:P0:5"},
	}
	assert.NoError(t, svc.Save(ctx, snapshot))

	record, found, err := svc.Load(ctx)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, schemaVersion, record.Version)
	assert.False(t, record.CreatedAt.IsZero())
	assert.Len(t, record.ReadyTasks, 1)
	assert.Equal(t, id, record.ReadyTasks[0].ID())
	assert.Equal(t, []string{"!:F:1:S0:1:U1:P0:5"}, record.SuccessorTaskIDs)
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	ctx := context.Background()
	svc := New("mem://localhost/recovery/does-not-exist.gob")

	record, found, err := svc.Load(ctx)
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, Record{}, record)
}

func TestCheckpointIdempotence(t *testing.T) {
	ctx := context.Background()
	svc := New("mem://localhost/recovery/idempotent.gob")

	id, _ := taskid.Parse("F:2:S0:2:U1")
	snapshot := universe.Snapshot{
		ReadyTasks:       []task.Task{&gobLeafTask{ID_: id}},
		SuccessorTaskIDs: []string{"!:F:2:S0:2:U1:P0:9"},
	}
	assert.NoError(t, svc.Save(ctx, snapshot))
	first, _, _ := svc.Load(ctx)

	assert.NoError(t, svc.Save(ctx, snapshot))
	second, _, _ := svc.Load(ctx)

	assert.Equal(t, first.SuccessorTaskIDs, second.SuccessorTaskIDs)
	assert.Len(t, second.ReadyTasks, len(first.ReadyTasks))
}
