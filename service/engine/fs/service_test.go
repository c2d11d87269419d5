package fs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/provisor/provisor/model/record"
	"github.com/provisor/provisor/service/engine"
)

func intPtr(v int) *int { return &v }

func newService(t *testing.T) *Service {
	service, err := New(filepath.Join(t.TempDir(), "store"))
	assert.NoError(t, err)
	return service
}

func TestNewRequiresBasePath(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestSaveAndLoad(t *testing.T) {
	service := newService(t)
	ctx := context.Background()

	r := &record.ProcessRecord{ID: "p1", Label: "scf-run", State: record.StateRunning}
	assert.NoError(t, service.Save(ctx, r))

	loaded, err := service.Load(ctx, "p1")
	assert.NoError(t, err)
	assert.Equal(t, "scf-run", loaded.Label)
	assert.Equal(t, record.StateRunning, loaded.State)

	_, err = service.Load(ctx, "missing")
	assert.True(t, errors.Is(err, engine.ErrNotFound))
}

func TestQueryAndCount(t *testing.T) {
	service := newService(t)
	ctx := context.Background()

	assert.NoError(t, service.Save(ctx, &record.ProcessRecord{ID: "p1", ProcessLabel: "Scf", State: record.StateFinished}))
	assert.NoError(t, service.Save(ctx, &record.ProcessRecord{ID: "p2", ProcessLabel: "Scf", State: record.StateFinished, ExitStatus: intPtr(302)}))
	assert.NoError(t, service.Save(ctx, &record.ProcessRecord{ID: "p3", ProcessLabel: "Relax", State: record.StateRunning}))

	matched, err := service.Query(ctx, &engine.Filters{ProcessLabel: "Scf"})
	assert.NoError(t, err)
	assert.Len(t, matched, 2)

	count, err := service.Count(ctx, &engine.Filters{Failed: true})
	assert.NoError(t, err)
	assert.Equal(t, 1, count)

	// empty store queries are fine
	empty := newService(t)
	matched, err = empty.Query(ctx, nil)
	assert.NoError(t, err)
	assert.Empty(t, matched)
}

func TestSubmitAndRestart(t *testing.T) {
	service := newService(t)
	ctx := context.Background()

	builder := &engine.Builder{
		ProcessLabel: "Scf",
		Metadata:     engine.Metadata{Label: "unit-1"},
		Inputs:       map[string]interface{}{"structure": "si-bulk"},
	}
	submitted, err := service.Submit(ctx, builder)
	assert.NoError(t, err)
	assert.NotEmpty(t, submitted.ID)
	assert.Equal(t, record.StateCreated, submitted.State)

	restarted, err := service.RestartBuilder(ctx, submitted.ID)
	assert.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"structure": "si-bulk"}, restarted.Inputs)
	assert.Equal(t, "unit-1", restarted.Metadata.Label)

	_, err = service.Submit(ctx, nil)
	assert.True(t, errors.Is(err, engine.ErrNilBuilder))
}

func TestDeleteTree(t *testing.T) {
	service := newService(t)
	ctx := context.Background()

	assert.NoError(t, service.Save(ctx, &record.ProcessRecord{ID: "root", State: record.StateFinished, Descendants: []string{"c1"}}))
	assert.NoError(t, service.Save(ctx, &record.ProcessRecord{ID: "c1", State: record.StateFinished}))

	deleted, err := service.DeleteTree(ctx, "root", true)
	assert.NoError(t, err)
	assert.ElementsMatch(t, []string{"root", "c1"}, deleted)
	_, err = service.Load(ctx, "c1")
	assert.NoError(t, err)

	_, err = service.DeleteTree(ctx, "root", false)
	assert.NoError(t, err)
	_, err = service.Load(ctx, "root")
	assert.True(t, errors.Is(err, engine.ErrNotFound))
}

func TestGroups(t *testing.T) {
	service := newService(t)
	ctx := context.Background()
	groups := service.Groups()

	group, created, err := groups.GetOrCreate(ctx, "experiment-1")
	assert.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "experiment-1", group.Label)

	assert.NoError(t, groups.AddMembers(ctx, "experiment-1", "p1", "p2"))
	members, err := groups.Members(ctx, "experiment-1")
	assert.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, members)

	list, err := groups.List(ctx, "experiment")
	assert.NoError(t, err)
	assert.Len(t, list, 1)

	err = groups.Delete(ctx, "experiment-1", true)
	assert.True(t, errors.Is(err, engine.ErrGroupNotEmpty))
	assert.NoError(t, groups.Delete(ctx, "experiment-1", false))
	_, err = groups.Load(ctx, "experiment-1")
	assert.True(t, errors.Is(err, engine.ErrNotFound))
}

func TestGroupScopedQuery(t *testing.T) {
	service := newService(t)
	ctx := context.Background()

	assert.NoError(t, service.Save(ctx, &record.ProcessRecord{ID: "p1", State: record.StateRunning}))
	assert.NoError(t, service.Save(ctx, &record.ProcessRecord{ID: "p2", State: record.StateRunning}))
	_, _, err := service.Groups().GetOrCreate(ctx, "experiment-1")
	assert.NoError(t, err)
	assert.NoError(t, service.Groups().AddMembers(ctx, "experiment-1", "p2", "stray"))

	matched, err := service.Query(ctx, &engine.Filters{Group: "experiment-1"})
	assert.NoError(t, err)
	assert.Len(t, matched, 1)
	assert.Equal(t, "p2", matched[0].ID)
}
