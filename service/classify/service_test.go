package classify

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/provisor/provisor/model/record"
	"github.com/provisor/provisor/service/engine/memory"
)

func intPtr(v int) *int { return &v }

func seed(t *testing.T, service *memory.Service) []*record.ProcessRecord {
	records := []*record.ProcessRecord{
		{ID: "p1", ProcessLabel: "Scf", ProcessType: "quantum.calculations:ScfCalculation", Kind: record.KindCalculation, State: record.StateFinished},
		{ID: "p2", ProcessLabel: "Scf", ProcessType: "quantum.calculations:ScfCalculation", Kind: record.KindCalculation, State: record.StateFinished, ExitStatus: intPtr(302)},
		{ID: "p3", ProcessLabel: "Relax", ProcessType: "quantum.workflows.relax", Kind: record.KindWorkflow, State: record.StateRunning},
		{ID: "p4", ProcessLabel: "Relax", ProcessType: "quantum.workflows.relax", Kind: record.KindWorkflow, State: record.StateExcepted},
		{ID: "p5", ProcessLabel: "Scf", ProcessType: "quantum.calculations:ScfCalculation", Kind: record.KindCalculation, State: record.StateFinished, ExitStatus: intPtr(302)},
	}
	for _, r := range records {
		assert.NoError(t, service.Save(context.Background(), r))
	}
	return records
}

func TestClassifyByState(t *testing.T) {
	service := memory.New()
	records := seed(t, service)
	ctx := context.Background()

	classifier, err := New(ctx, service, records)
	assert.NoError(t, err)
	assert.NoError(t, classifier.ClassifyByState(ctx))

	assert.Len(t, classifier.ByState(record.StateRunning), 1)
	assert.Len(t, classifier.ByState(record.StateExcepted), 1)
	assert.Empty(t, classifier.ByState(record.StateKilled))

	finished := classifier.Finished()
	assert.Len(t, finished[0], 1)
	assert.Len(t, finished[302], 2)

	// every record lands in exactly one bucket
	assert.Equal(t, len(records), classifier.Count())
	assert.Equal(t, 4, classifier.Count(record.States(record.Terminated)...))
	assert.Equal(t, 1, classifier.Count(record.States(record.NotTerminated)...))

	// the temporary staging group is cleaned up
	leftovers, err := service.Groups().List(ctx, TmpGroupPrefix)
	assert.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestClassifyByStateIdempotence(t *testing.T) {
	service := memory.New()
	records := seed(t, service)
	ctx := context.Background()

	classifier, err := New(ctx, service, records)
	assert.NoError(t, err)
	assert.NoError(t, classifier.ClassifyByState(ctx))
	first := map[record.State][]*record.ProcessRecord{}
	for _, state := range record.AllStates() {
		first[state] = classifier.ByState(state)
	}
	firstFinished := classifier.Finished()

	assert.NoError(t, classifier.ClassifyByState(ctx))
	for _, state := range record.AllStates() {
		if state == record.StateFinished {
			continue
		}
		assert.Equal(t, first[state], classifier.ByState(state), string(state))
	}
	assert.Equal(t, firstFinished, classifier.Finished())
}

func TestNewPurgesOrphanGroups(t *testing.T) {
	service := memory.New()
	ctx := context.Background()
	_, _, err := service.Groups().GetOrCreate(ctx, TmpGroupPrefix+"_2026-01-01_00-00-00_deadbeefdeadbeef")
	assert.NoError(t, err)

	_, err = New(ctx, service, nil)
	assert.NoError(t, err)

	leftovers, err := service.Groups().List(ctx, TmpGroupPrefix)
	assert.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestClassifyByType(t *testing.T) {
	service := memory.New()
	records := seed(t, service)
	classifier, err := New(context.Background(), service, records)
	assert.NoError(t, err)
	classifier.ClassifyByType()

	byType := classifier.ByType()
	assert.Len(t, byType.Kind[record.KindCalculation], 3)
	assert.Len(t, byType.Kind[record.KindWorkflow], 2)
	assert.Len(t, byType.ProcessClass["ScfCalculation"], 3)
	assert.Len(t, byType.ProcessClass["relax"], 2)
	assert.Len(t, byType.ProcessLabel["Scf"], 3)
	assert.Len(t, byType.ProcessType["quantum.workflows.relax"], 2)
}

func TestProcessClass(t *testing.T) {
	testCases := []struct {
		processType  string
		processLabel string
		expected     string
	}{
		{"quantum.calculations:ScfCalculation", "Scf", "ScfCalculation"},
		{"quantum.workflows.relax", "Relax", "relax"},
		{"", "Relax", "Relax"},
		{"plain", "x", "plain"},
	}
	for _, tc := range testCases {
		r := &record.ProcessRecord{ProcessType: tc.processType, ProcessLabel: tc.processLabel}
		assert.Equal(t, tc.expected, ProcessClass(r), tc.processType)
	}
}

func TestSubgroupClassifiedResults(t *testing.T) {
	service := memory.New()
	records := seed(t, service)
	ctx := context.Background()

	_, _, err := service.Groups().GetOrCreate(ctx, "experiment-1")
	assert.NoError(t, err)
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	assert.NoError(t, service.Groups().AddMembers(ctx, "experiment-1", ids...))

	classifier, err := New(ctx, service, records)
	assert.NoError(t, err)

	// without prior classification nothing is created
	assert.NoError(t, classifier.SubgroupClassifiedResults(ctx, "experiment-1", false, true))
	_, err = service.Groups().Load(ctx, "experiment-1/"+SubgroupFinishedOK)
	assert.Error(t, err)

	assert.NoError(t, classifier.ClassifyByState(ctx))

	// dry run only prints the plan
	assert.NoError(t, classifier.SubgroupClassifiedResults(ctx, "experiment-1", true, true))
	_, err = service.Groups().Load(ctx, "experiment-1/"+SubgroupFailed)
	assert.Error(t, err)

	assert.NoError(t, classifier.SubgroupClassifiedResults(ctx, "experiment-1", false, true))
	okMembers, err := service.Groups().Members(ctx, "experiment-1/"+SubgroupFinishedOK)
	assert.NoError(t, err)
	assert.Equal(t, []string{"p1"}, okMembers)

	failedMembers, err := service.Groups().Members(ctx, "experiment-1/"+SubgroupFailed)
	assert.NoError(t, err)
	assert.ElementsMatch(t, []string{"p2", "p4", "p5"}, failedMembers)
}

func TestPartiallyExcepted(t *testing.T) {
	service := memory.New()
	ctx := context.Background()

	parent := &record.ProcessRecord{ID: "w1", State: record.StateFinished, Descendants: []string{"c1", "c2", "gone"}}
	exceptedParent := &record.ProcessRecord{ID: "w2", State: record.StateExcepted, Descendants: []string{"c3"}}
	assert.NoError(t, service.Save(ctx, parent))
	assert.NoError(t, service.Save(ctx, exceptedParent))
	assert.NoError(t, service.Save(ctx, &record.ProcessRecord{ID: "c1", State: record.StateExcepted}))
	assert.NoError(t, service.Save(ctx, &record.ProcessRecord{ID: "c2", State: record.StateFinished}))
	assert.NoError(t, service.Save(ctx, &record.ProcessRecord{ID: "c3", State: record.StateExcepted}))

	out, err := PartiallyExcepted(ctx, service, []*record.ProcessRecord{parent, exceptedParent}, 1)
	assert.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Len(t, out["w1"], 1)
	assert.Equal(t, "c1", out["w1"][0].ID)

	_, err = PartiallyExcepted(ctx, service, nil, 2)
	assert.Error(t, err)
}

func TestPrintStatistics(t *testing.T) {
	service := memory.New()
	records := seed(t, service)
	ctx := context.Background()

	classifier, err := New(ctx, service, records)
	assert.NoError(t, err)
	assert.NoError(t, classifier.Classify(ctx))

	var buf bytes.Buffer
	classifier.PrintStatistics(&buf, "batch 1", true, DimensionProcessClass)
	out := buf.String()
	assert.Contains(t, out, "batch 1")
	assert.Contains(t, out, "Total terminated: 4.")
	assert.Contains(t, out, "Total not terminated: 1.")
	assert.Contains(t, out, "ScfCalculation")
	assert.Contains(t, out, "302")
}
