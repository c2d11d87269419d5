package provisor_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/provisor/provisor"
	"github.com/provisor/provisor/model/record"
	"github.com/provisor/provisor/service/engine"
	"github.com/provisor/provisor/service/engine/memory"
	"github.com/provisor/provisor/service/query"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	srv, err := provisor.New(ctx)
	assert.NoError(t, err)
	assert.NotNil(t, srv.Engine())
	assert.NotNil(t, srv.Supervisor())
	assert.NotNil(t, srv.Itemizer())
}

func TestServiceWithSeededEngine(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	assert.NoError(t, store.Save(ctx, &record.ProcessRecord{ID: "p1", ProcessLabel: "Scf", State: record.StateRunning}))

	srv, err := provisor.New(ctx, provisor.WithEngine(store))
	assert.NoError(t, err)

	q, err := srv.Query(query.WithStates(record.StateRunning))
	assert.NoError(t, err)
	count, err := q.Count(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, count)

	classifier, err := srv.Classify(ctx, []*record.ProcessRecord{{ID: "p1", ProcessLabel: "Scf", State: record.StateRunning}})
	assert.NoError(t, err)
	assert.Equal(t, 1, classifier.Count())
}

func TestServiceFileStore(t *testing.T) {
	ctx := context.Background()
	srv, err := provisor.New(ctx, provisor.WithStoreBaseURL(filepath.Join(t.TempDir(), "store")))
	assert.NoError(t, err)

	submitted, err := srv.Engine().Submit(ctx, &engine.Builder{
		ProcessLabel: "Scf",
		Metadata:     engine.Metadata{Label: "unit-1"},
	})
	assert.NoError(t, err)

	loaded, err := srv.Engine().Load(ctx, submitted.ID)
	assert.NoError(t, err)
	assert.Equal(t, "unit-1", loaded.Label)
}

func TestConfigValidate(t *testing.T) {
	cfg := provisor.DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Supervisor.WaitForSubmit = 0
	assert.Error(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
supervisor:
  dryRun: true
  maxTopProcessesRunning: 3
quota:
  workdir: /scratch
  minFreeSpace: 1024
`)
	assert.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := provisor.LoadConfig(ctx, path)
	assert.NoError(t, err)
	assert.True(t, cfg.Supervisor.DryRun)
	assert.Equal(t, 3, cfg.Supervisor.MaxTopProcessesRunning)
	// unset fields keep their defaults
	assert.Equal(t, 5, cfg.Supervisor.WaitForSubmit)
	assert.Equal(t, int64(1024), cfg.Quota.MinFreeSpace)

	_, err = provisor.LoadConfig(ctx, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
