package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/songmash/lisbon/internal/audio"
	"github.com/songmash/lisbon/internal/fixtures"
	"github.com/songmash/lisbon/internal/planner"
	"github.com/songmash/lisbon/internal/render"
	"github.com/songmash/lisbon/internal/storage"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// harness wires a full orchestrator over temp dirs with the identity
// transformer and synthesized stems on disk.
type harness struct {
	orch      *Orchestrator
	db        *storage.DB
	storeRoot string
	req       Request
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := discard()

	db, err := storage.Open(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	storeRoot := t.TempDir()
	store, err := storage.NewLocalStore(storeRoot)
	require.NoError(t, err)

	renderer := render.New(logger, render.Identity{})
	orch := New(db, store, renderer, 1, logger)

	stemDir := t.TempDir()
	stems := fixtures.StemSet(3, audio.DefaultSampleRate)
	uris := StemURIs{}
	for name, pcm := range stems {
		path := filepath.Join(stemDir, name+".wav")
		require.NoError(t, audio.WriteWAV16(path, pcm))
		switch name {
		case "vocals":
			uris.Vocals = path
		case "drums":
			uris.Drums = path
		case "bass":
			uris.Bass = path
		case "other":
			uris.Other = path
		}
	}

	req := Request{
		Stems: RequestStems{A: uris, B: uris},
		Plan: planner.Plan{
			Recipe:  planner.RecipeAoverB,
			Stretch: planner.StretchMap{TargetBPM: 120, StretchA: 1, StretchB: 1, Quality: "high"},
		},
		Mix: render.DefaultMixParams(),
	}
	return &harness{orch: orch, db: db, storeRoot: storeRoot, req: req}
}

func TestJobCompletesAndPublishes(t *testing.T) {
	h := newHarness(t)

	id, err := h.orch.Submit(h.req)
	require.NoError(t, err)

	ran, err := h.orch.RunOne(context.Background())
	require.NoError(t, err)
	require.True(t, ran)

	job, err := h.orch.Job(id)
	require.NoError(t, err)
	require.Equal(t, storage.JobStatusCompleted, job.Status)
	require.InDelta(t, 1.0, job.Progress, 1e-9)
	require.NotEmpty(t, job.MashupURI)
	require.NotEmpty(t, job.ProjectURI)

	// Published artifacts exist under the job's keys.
	mashup := filepath.Join(h.storeRoot, "mashups", id+".wav")
	_, err = os.Stat(mashup)
	require.NoError(t, err)
	project := filepath.Join(h.storeRoot, "projects", id+".json")
	data, err := os.ReadFile(project)
	require.NoError(t, err)

	desc, err := render.ParseDescriptor(data)
	require.NoError(t, err)
	require.Equal(t, render.DescriptorVersion, desc.Version)
	require.Equal(t, planner.RecipeAoverB, desc.Plan.Recipe)

	// The rendered audio decodes at the canonical rate.
	pcm, err := audio.Load(mashup, audio.DefaultSampleRate)
	require.NoError(t, err)
	require.InDelta(t, 3.0, pcm.Duration(), 0.5)
}

func TestSubmitRejectsUnknownRecipe(t *testing.T) {
	h := newHarness(t)
	bad := h.req
	bad.Plan.Recipe = "Sideways"
	_, err := h.orch.Submit(bad)
	require.ErrorIs(t, err, planner.ErrUnknownRecipe)
}

func TestSubmitRejectsStretchOutOfRange(t *testing.T) {
	h := newHarness(t)
	bad := h.req
	bad.Plan.Stretch.StretchA = 3.0
	_, err := h.orch.Submit(bad)
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestJobFailsOnMissingStem(t *testing.T) {
	h := newHarness(t)
	bad := h.req
	bad.Stems.A.Vocals = ""
	id, err := h.orch.Submit(bad)
	require.NoError(t, err)

	ran, err := h.orch.RunOne(context.Background())
	require.NoError(t, err)
	require.True(t, ran)

	job, err := h.orch.Job(id)
	require.NoError(t, err)
	require.Equal(t, storage.JobStatusFailed, job.Status)
	require.Equal(t, "required stem missing", job.Error)
	require.NotContains(t, job.Error, "/") // no paths in user-visible messages
}

func TestJobFailsOnUndecodableStem(t *testing.T) {
	h := newHarness(t)
	badStem := filepath.Join(t.TempDir(), "junk.wav")
	require.NoError(t, os.WriteFile(badStem, []byte("not audio"), 0o644))

	bad := h.req
	bad.Stems.A.Vocals = badStem
	id, err := h.orch.Submit(bad)
	require.NoError(t, err)

	_, err = h.orch.RunOne(context.Background())
	require.NoError(t, err)

	job, err := h.orch.Job(id)
	require.NoError(t, err)
	require.Equal(t, storage.JobStatusFailed, job.Status)
	require.Equal(t, "invalid audio input", job.Error)
}

func TestCancelledJobLeavesNoArtifacts(t *testing.T) {
	h := newHarness(t)
	id, err := h.orch.Submit(h.req)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.orch.RunOne(ctx)
	require.NoError(t, err)

	job, err := h.orch.Job(id)
	require.NoError(t, err)
	require.Equal(t, storage.JobStatusFailed, job.Status)
	require.Equal(t, "cancelled", job.Error)

	_, err = os.Stat(filepath.Join(h.storeRoot, "mashups", id+".wav"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(h.storeRoot, "projects", id+".json"))
	require.True(t, os.IsNotExist(err))
}

func TestRunOneEmptyQueue(t *testing.T) {
	h := newHarness(t)
	ran, err := h.orch.RunOne(context.Background())
	require.NoError(t, err)
	require.False(t, ran)
}
