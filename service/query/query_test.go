package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/provisor/provisor/internal/clock"
	"github.com/provisor/provisor/model/record"
	"github.com/provisor/provisor/service/engine/memory"
)

func intPtr(v int) *int { return &v }

func seeded(t *testing.T) *memory.Service {
	service := memory.New()
	ctx := context.Background()
	records := []*record.ProcessRecord{
		{ID: "p1", Label: "scf-si", ProcessLabel: "Scf", Kind: record.KindCalculation, State: record.StateFinished},
		{ID: "p2", ProcessLabel: "Scf", Kind: record.KindCalculation, State: record.StateFinished, ExitStatus: intPtr(302)},
		{ID: "p3", ProcessLabel: "Relax", Kind: record.KindWorkflow, State: record.StateRunning},
	}
	for _, r := range records {
		assert.NoError(t, service.Save(ctx, r))
	}
	return service
}

func TestProcessesAll(t *testing.T) {
	service := seeded(t)
	ctx := context.Background()

	q, err := Processes(service)
	assert.NoError(t, err)
	all, err := q.All(ctx)
	assert.NoError(t, err)
	assert.Len(t, all, 3)

	q, err = Processes(service, WithLabel("scf-si"))
	assert.NoError(t, err)
	matched, err := q.All(ctx)
	assert.NoError(t, err)
	assert.Len(t, matched, 1)
	assert.Equal(t, "p1", matched[0].ID)

	q, err = Processes(service, WithStates(record.StateRunning))
	assert.NoError(t, err)
	count, err := q.Count(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestProcessesEmptyLabel(t *testing.T) {
	_, err := Processes(memory.New(), WithLabel(""))
	assert.Error(t, err)
}

func TestFailedOverridesStates(t *testing.T) {
	q, err := Processes(seeded(t), WithFailed(), WithStates(record.StateRunning), WithExitStatuses(0))
	assert.NoError(t, err)
	filters := q.Filters()
	assert.True(t, filters.Failed)
	assert.Empty(t, filters.States)
	assert.Empty(t, filters.ExitStatuses)

	matched, err := q.All(context.Background())
	assert.NoError(t, err)
	assert.Len(t, matched, 1)
	assert.Equal(t, "p2", matched[0].ID)
}

func TestExitStatusesImplyFinished(t *testing.T) {
	q, err := Processes(seeded(t), WithExitStatuses(302))
	assert.NoError(t, err)
	assert.Equal(t, []record.State{record.StateFinished}, q.Filters().States)

	matched, err := q.All(context.Background())
	assert.NoError(t, err)
	assert.Len(t, matched, 1)
	assert.Equal(t, "p2", matched[0].ID)
}

func TestInvalidKindsFallBack(t *testing.T) {
	q, err := Processes(seeded(t), WithKinds(record.Kind("data"), record.Kind("node")))
	assert.NoError(t, err)
	assert.Equal(t, []record.Kind{record.KindProcess}, q.Filters().Kinds)

	// KindProcess is universal, so all records still match
	matched, err := q.All(context.Background())
	assert.NoError(t, err)
	assert.Len(t, matched, 3)

	q, err = Processes(seeded(t), WithKinds(record.KindWorkflow, record.Kind("data")))
	assert.NoError(t, err)
	assert.Equal(t, []record.Kind{record.KindWorkflow}, q.Filters().Kinds)
}

func TestCreatedWithin(t *testing.T) {
	prev := clock.NowFunc
	defer func() { clock.NowFunc = prev }()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clock.NowFunc = func() time.Time { return now }

	q, err := Processes(memory.New(), WithCreatedWithin(2*time.Hour))
	assert.NoError(t, err)
	assert.Equal(t, now.Add(-2*time.Hour), q.Filters().CreatedAfter)

	q, err = Processes(memory.New())
	assert.NoError(t, err)
	assert.True(t, q.Filters().CreatedAfter.IsZero())
}

func TestGroupScope(t *testing.T) {
	service := seeded(t)
	ctx := context.Background()
	_, _, err := service.Groups().GetOrCreate(ctx, "experiment-1")
	assert.NoError(t, err)
	assert.NoError(t, service.Groups().AddMembers(ctx, "experiment-1", "p1", "p3"))

	q, err := Processes(service, WithGroup("experiment-1"), WithStates(record.StateRunning))
	assert.NoError(t, err)
	matched, err := q.All(ctx)
	assert.NoError(t, err)
	assert.Len(t, matched, 1)
	assert.Equal(t, "p3", matched[0].ID)
}
