package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/zasa-35/oura-visualizer/internal/config"
	"github.com/zasa-35/oura-visualizer/internal/models"
)

func sampleSnapshot() models.Snapshot {
	return models.Snapshot{
		Start:   "2024-03-01",
		End:     "2024-03-02",
		Payload: json.RawMessage(`{"sleep":{"data":[]},"daily":{"data":[]}}`),
	}
}

// TestSQLiteSave verifies rows are appended with server-assigned timestamps.
func TestSQLiteSave(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "snapshots.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	before := time.Now().Add(-time.Minute)
	first, err := s.Save(ctx, sampleSnapshot())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	second, err := s.Save(ctx, sampleSnapshot())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if first.ID == second.ID {
		t.Error("two saves produced the same id")
	}
	if _, err := uuid.Parse(first.ID); err != nil {
		t.Errorf("id %q is not a uuid: %v", first.ID, err)
	}
	if first.CreatedAt.Before(before) {
		t.Errorf("created_at = %v, too early", first.CreatedAt)
	}
	if first.Start != "2024-03-01" || first.End != "2024-03-02" {
		t.Errorf("bounds = %s..%s", first.Start, first.End)
	}
	n, err := s.Count(ctx)
	if err != nil || n != 2 {
		t.Errorf("Count() = %d, %v; want 2", n, err)
	}
}

// TestSaveRejectsIncomplete verifies every backend refuses empty snapshots
// before touching the sink.
func TestSaveRejectsIncomplete(t *testing.T) {
	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "s.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer sq.Close()

	stores := map[string]Store{
		"sqlite": sq,
		"blob":   newBlobStore(&fakeUploader{}, "c", ""),
		"redis":  newRedisStore(&fakeStream{}, ""),
	}
	bad := []models.Snapshot{
		{End: "2024-03-02", Payload: json.RawMessage(`{}`)},
		{Start: "2024-03-01", Payload: json.RawMessage(`{}`)},
		{Start: "2024-03-01", End: "2024-03-02"},
	}
	for name, s := range stores {
		for _, snap := range bad {
			if _, err := s.Save(context.Background(), snap); !errors.Is(err, ErrInvalidSnapshot) {
				t.Errorf("%s: Save(%+v) err = %v, want ErrInvalidSnapshot", name, snap, err)
			}
		}
	}
}

type fakeUploader struct {
	container string
	name      string
	data      []byte
	opts      *azblob.UploadBufferOptions
	modified  time.Time
	err       error
}

func (f *fakeUploader) UploadBuffer(ctx context.Context, containerName, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error) {
	f.container, f.name, f.data, f.opts = containerName, blobName, buffer, o
	if f.err != nil {
		return azblob.UploadBufferResponse{}, f.err
	}
	return azblob.UploadBufferResponse{LastModified: &f.modified}, nil
}

// TestBlobSave verifies the blob layout and the create-only condition.
func TestBlobSave(t *testing.T) {
	modified := time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC)
	up := &fakeUploader{modified: modified}
	s := newBlobStore(up, "sleep", "")

	saved, err := s.Save(context.Background(), sampleSnapshot())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if up.container != "sleep" {
		t.Errorf("container = %q", up.container)
	}
	want := "snapshots/2024-03-01_2024-03-02/" + saved.ID + ".json"
	if up.name != want {
		t.Errorf("blob name = %q, want %q", up.name, want)
	}
	if string(up.data) != string(sampleSnapshot().Payload) {
		t.Errorf("data = %s", up.data)
	}
	cond := up.opts.AccessConditions.ModifiedAccessConditions
	if cond == nil || cond.IfNoneMatch == nil || *cond.IfNoneMatch != azcore.ETagAny {
		t.Error("upload is not conditional on absence")
	}
	if !saved.CreatedAt.Equal(modified) {
		t.Errorf("created_at = %v, want %v", saved.CreatedAt, modified)
	}
}

func TestBlobSaveError(t *testing.T) {
	s := newBlobStore(&fakeUploader{err: errors.New("409 BlobAlreadyExists")}, "sleep", "custom")
	_, err := s.Save(context.Background(), sampleSnapshot())
	if err == nil || !strings.Contains(err.Error(), "BlobAlreadyExists") {
		t.Errorf("err = %v", err)
	}
}

type fakeStream struct {
	args *redis.XAddArgs
	id   string
	err  error
}

func (f *fakeStream) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.args = a
	return redis.NewStringResult(f.id, f.err)
}

// TestRedisSave verifies the stream entry fields and created_at from the id.
func TestRedisSave(t *testing.T) {
	fs := &fakeStream{id: "1709371800000-0"}
	s := newRedisStore(fs, "")

	saved, err := s.Save(context.Background(), sampleSnapshot())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if fs.args.Stream != DefaultStream {
		t.Errorf("stream = %q", fs.args.Stream)
	}
	values := fs.args.Values.(map[string]interface{})
	if values["start"] != "2024-03-01" || values["end"] != "2024-03-02" || values["id"] != saved.ID {
		t.Errorf("values = %v", values)
	}
	if want := time.UnixMilli(1709371800000).UTC(); !saved.CreatedAt.Equal(want) {
		t.Errorf("created_at = %v, want %v", saved.CreatedAt, want)
	}
}

func TestRedisSaveError(t *testing.T) {
	s := newRedisStore(&fakeStream{err: errors.New("NOAUTH")}, "custom")
	if _, err := s.Save(context.Background(), sampleSnapshot()); err == nil {
		t.Fatal("expected error")
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestStreamIDTime(t *testing.T) {
	if _, err := streamIDTime("garbage"); err == nil {
		t.Error("expected error for id without sequence")
	}
	if _, err := streamIDTime("abc-0"); err == nil {
		t.Error("expected error for non-numeric id")
	}
	got, err := streamIDTime("1000-5")
	if err != nil || !got.Equal(time.Unix(1, 0)) {
		t.Errorf("streamIDTime = %v, %v", got, err)
	}
}

// TestOpen verifies backend selection.
func TestOpen(t *testing.T) {
	ctx := context.Background()
	log := slog.Default()

	s, err := Open(ctx, config.StoreConfig{Backend: config.BackendNone}, log)
	if err != nil || s != nil {
		t.Errorf("none backend = %v, %v; want nil, nil", s, err)
	}

	s, err = Open(ctx, config.StoreConfig{
		Backend: config.BackendSQLite,
		SQLite:  config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "o.db")},
	}, log)
	if err != nil {
		t.Fatalf("sqlite backend: %v", err)
	}
	if _, ok := s.(*SQLiteStore); !ok {
		t.Errorf("sqlite backend returned %T", s)
	}
	s.Close()

	if _, err := Open(ctx, config.StoreConfig{Backend: "dynamodb"}, log); err == nil {
		t.Error("expected error for unknown backend")
	}
}
