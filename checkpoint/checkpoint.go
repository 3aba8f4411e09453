// Package checkpoint persists the Universe's ready queue and successor
// map to a single recovery file on a fixed cadence. It writes one
// schema-versioned encoding/gob blob per snapshot — the queues and maps
// are the only thing worth recovering; live thread state is rebuilt by
// the caller after Load.
package checkpoint

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"

	"github.com/Geurney/SpaceNetwork/internal/clock"
	"github.com/Geurney/SpaceNetwork/model/task"
	"github.com/Geurney/SpaceNetwork/runtime/universe"
)

// schemaVersion is bumped whenever the on-disk Record layout changes
// incompatibly; compatibility is scoped to one running version.
const schemaVersion = 1

// Record is the gob-encoded form of universe.Snapshot. Task values are
// stored through their concrete registered types (see RegisterTaskType),
// mirroring how gob requires concrete types for interface fields.
// CreatedAt is stamped from internal/clock at Save time so a recovered
// file can be judged stale without depending on the filesystem's own
// mtime.
type Record struct {
	Version          int
	CreatedAt        time.Time
	ReadyTasks       []task.Task
	SuccessorTaskIDs []string
}

// Service persists and restores Universe snapshots to a single,
// fixed-name recovery file, using viant/afs so the backing store can be
// local disk, S3, GCS, etc. without this package knowing which.
type Service struct {
	fs   afs.Service
	path string
	mu   sync.Mutex
}

// New creates a checkpoint Service writing to path (typically a fixed
// recovery filename).
func New(path string) *Service {
	return &Service{
		fs:   afs.New(),
		path: url.Normalize(path, file.Scheme),
	}
}

var _ universe.Checkpointer = (*Service)(nil)

// Save serializes snapshot and atomically replaces the recovery file:
// write to a temp path, then rename over the real one, so a crash
// mid-write never leaves a half-written file behind. The temp file sits
// beside the recovery file and keeps its extension, so afs Move renames
// it in place rather than treating the destination as a folder.
func (s *Service) Save(ctx context.Context, snapshot universe.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := Record{
		Version:          schemaVersion,
		CreatedAt:        clock.Now(),
		ReadyTasks:       snapshot.ReadyTasks,
		SuccessorTaskIDs: snapshot.SuccessorTaskIDs,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(record); err != nil {
		return fmt.Errorf("checkpoint: encode failed: %w", err)
	}

	slash := strings.LastIndex(s.path, "/")
	tempPath := s.path[:slash+1] + "tmp-" + s.path[slash+1:]
	if err := s.fs.Upload(ctx, tempPath, file.DefaultFileOsMode, bytes.NewReader(buf.Bytes())); err != nil {
		return fmt.Errorf("checkpoint: write temp file failed: %w", err)
	}
	if err := s.fs.Move(ctx, tempPath, s.path); err != nil {
		return fmt.Errorf("checkpoint: atomic rename failed: %w", err)
	}
	return nil
}

// Load reads and decodes the recovery file. A missing file is not an
// error — callers should treat ErrNotExist-shaped failures from Exists as
// "start fresh" rather than propagate them.
func (s *Service) Load(ctx context.Context) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.fs.Exists(ctx, s.path)
	if err != nil {
		return Record{}, false, fmt.Errorf("checkpoint: exists check failed: %w", err)
	}
	if !exists {
		return Record{}, false, nil
	}

	data, err := s.fs.DownloadWithURL(ctx, s.path)
	if err != nil {
		return Record{}, false, fmt.Errorf("checkpoint: read failed: %w", err)
	}

	var record Record
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&record); err != nil {
		return Record{}, false, fmt.Errorf("checkpoint: decode failed: %w", err)
	}
	return record, true, nil
}

// RegisterTaskType registers a concrete Task (or Result) implementation
// with encoding/gob so it can appear inside a gob-encoded interface
// field. Every task.Task / task.Result type a deployment uses (e.g. the
// example FibTask) must be registered once during startup, before the
// first Save or Load — the same requirement gob itself documents for any
// concrete type stored behind an interface.
func RegisterTaskType(value interface{}) {
	gob.Register(value)
}
