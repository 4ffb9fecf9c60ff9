package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestJobLifecycle(t *testing.T) {
	db := testDB(t)

	id, err := db.CreateJob(map[string]string{"vocals": "a.wav"}, map[string]any{"recipe": "AoverB"}, map[string]bool{"auto_eq": true})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	job, err := db.GetJob(id)
	require.NoError(t, err)
	require.Equal(t, JobStatusQueued, job.Status)
	require.Zero(t, job.Progress)

	claimed, err := db.ClaimJob()
	require.NoError(t, err)
	require.NotNil(t, claimed)
	require.Equal(t, id, claimed.ID)
	require.Equal(t, JobStatusProcessing, claimed.Status)
	require.Equal(t, 1, claimed.Attempts)
	require.NotNil(t, claimed.StartedAt)

	// Queue is now empty.
	next, err := db.ClaimJob()
	require.NoError(t, err)
	require.Nil(t, next)

	require.NoError(t, db.UpdateProgress(id, 0.5, "rendering"))
	job, err = db.GetJob(id)
	require.NoError(t, err)
	require.InDelta(t, 0.5, job.Progress, 1e-9)
	require.Equal(t, "rendering", job.Message)

	require.NoError(t, db.CompleteJob(id, "file:///m.wav", "file:///p.json"))
	job, err = db.GetJob(id)
	require.NoError(t, err)
	require.Equal(t, JobStatusCompleted, job.Status)
	require.Equal(t, "file:///m.wav", job.MashupURI)
	require.InDelta(t, 1.0, job.Progress, 1e-9)
}

func TestFailJobBoundsMessage(t *testing.T) {
	db := testDB(t)
	id, err := db.CreateJob(nil, nil, nil)
	require.NoError(t, err)

	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	require.NoError(t, db.FailJob(id, string(long)))

	job, err := db.GetJob(id)
	require.NoError(t, err)
	require.Equal(t, JobStatusFailed, job.Status)
	require.LessOrEqual(t, len(job.Error), 500)
}

func TestGetJobNotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.GetJob("nope")
	require.ErrorIs(t, err, ErrJobNotFound)
}

func TestArtifactIndex(t *testing.T) {
	db := testDB(t)
	id, err := db.CreateJob(nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, db.RecordArtifact("mashups/x.wav", id, "file:///x.wav", "abc", 42))
	// Keys are unique.
	require.Error(t, db.RecordArtifact("mashups/x.wav", id, "file:///x.wav", "abc", 42))
	require.NoError(t, db.DeleteArtifactsForJob(id))
	// After deletion the key is free again.
	require.NoError(t, db.RecordArtifact("mashups/x.wav", id, "file:///x.wav", "abc", 42))
}

func TestLocalStoreWriteOnce(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root)
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "out.wav")
	require.NoError(t, os.WriteFile(src, []byte("pcm data"), 0o644))

	uri, err := store.Put(context.Background(), "mashups/job1.wav", src)
	require.NoError(t, err)
	require.Contains(t, uri, "file://")

	data, err := os.ReadFile(filepath.Join(root, "mashups", "job1.wav"))
	require.NoError(t, err)
	require.Equal(t, "pcm data", string(data))

	// Second put with the same key is rejected.
	_, err = store.Put(context.Background(), "mashups/job1.wav", src)
	require.ErrorIs(t, err, ErrArtifactExists)

	// Delete is idempotent.
	require.NoError(t, store.Delete(context.Background(), "mashups/job1.wav"))
	require.NoError(t, store.Delete(context.Background(), "mashups/job1.wav"))
}

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))
	sha, size, err := HashFile(path)
	require.NoError(t, err)
	require.Equal(t, int64(3), size)
	require.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", sha)
}
