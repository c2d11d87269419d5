// Package classify partitions batches of process records by lifecycle state
// and by type indicators, and derives result subgroups in the engine's store.
package classify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/provisor/provisor/model/record"
	"github.com/provisor/provisor/runtime/grouping"
	"github.com/provisor/provisor/service/engine"
	"github.com/provisor/provisor/service/query"
	"github.com/provisor/provisor/tracing"
)

// TmpGroupPrefix scopes the temporary groups classification creates in the
// engine's store.
const TmpGroupPrefix = "process_classification"

// TypeClassification groups one input batch along four independent type
// dimensions. Each record appears exactly once per dimension.
type TypeClassification struct {
	Kind         map[record.Kind][]*record.ProcessRecord
	ProcessClass map[string][]*record.ProcessRecord
	ProcessLabel map[string][]*record.ProcessRecord
	ProcessType  map[string][]*record.ProcessRecord
}

// Classifier classifies a fixed batch of process records by state and type.
// State classification re-queries the store so buckets reflect live state, not
// the snapshot the caller holds.
type Classifier struct {
	service engine.Service
	records []*record.ProcessRecord

	// byState holds every state bucket except finished, which is further
	// partitioned by exit status in finished.
	byState  map[record.State][]*record.ProcessRecord
	finished map[int][]*record.ProcessRecord
	byType   *TypeClassification
}

// New creates a classifier for the given batch. Leftover temporary groups
// from crashed prior runs are purged with a warning before any classification.
func New(ctx context.Context, service engine.Service, records []*record.ProcessRecord) (*Classifier, error) {
	orphans, err := service.Groups().List(ctx, TmpGroupPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for temporary classification groups: %w", err)
	}
	if len(orphans) > 0 {
		log.Printf("Info: found %d temporary classification group(s), most likely not cleaned up from a previous classifier instance. Deleting them now.", len(orphans))
		for _, orphan := range orphans {
			if err := service.Groups().Delete(ctx, orphan.Label, false); err != nil {
				return nil, fmt.Errorf("failed to delete temporary group %s: %w", orphan.Label, err)
			}
		}
	}
	return &Classifier{service: service, records: records}, nil
}

// Records returns the input batch.
func (c *Classifier) Records() []*record.ProcessRecord { return c.records }

// Classify runs both classification passes.
func (c *Classifier) Classify(ctx context.Context) error {
	c.ClassifyByType()
	return c.ClassifyByState(ctx)
}

// ClassifyByState partitions the batch by lifecycle state, with finished
// sub-partitioned by exit status. The batch is staged in a temporary group so
// the per-state queries observe the records' current state; the group is
// removed afterwards even when classification fails midway.
func (c *Classifier) ClassifyByState(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "classify.byState", "INTERNAL")
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	tmpLabel, err := c.stageTmpGroup(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if deleteErr := c.service.Groups().Delete(ctx, tmpLabel, false); deleteErr != nil && err == nil {
			err = fmt.Errorf("failed to delete temporary group %s: %w", tmpLabel, deleteErr)
		}
	}()

	recordsOf := func(state record.State) ([]*record.ProcessRecord, error) {
		q, err := query.Processes(c.service, query.WithGroup(tmpLabel), query.WithStates(state))
		if err != nil {
			return nil, err
		}
		return q.All(ctx)
	}

	byState := make(map[record.State][]*record.ProcessRecord)
	for _, state := range record.AllStates() {
		if state == record.StateFinished {
			continue
		}
		matched, stateErr := recordsOf(state)
		if stateErr != nil {
			err = stateErr
			return err
		}
		if matched == nil {
			matched = []*record.ProcessRecord{}
		}
		byState[state] = matched
	}

	finished := make(map[int][]*record.ProcessRecord)
	finishedRecords, finishedErr := recordsOf(record.StateFinished)
	if finishedErr != nil {
		err = finishedErr
		return err
	}
	for _, r := range finishedRecords {
		status := r.ExitStatusValue()
		finished[status] = append(finished[status], r)
	}

	c.byState = byState
	c.finished = finished
	return nil
}

// stageTmpGroup creates a uniquely named temporary group holding the batch.
// On a name collision it regenerates and retries.
func (c *Classifier) stageTmpGroup(ctx context.Context) (string, error) {
	groups := c.service.Groups()
	var label string
	for {
		label = grouping.UniqueLabel(TmpGroupPrefix)
		_, err := groups.Load(ctx, label)
		if errors.Is(err, engine.ErrNotFound) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to probe temporary group label: %w", err)
		}
		// Label already taken, regenerate.
	}
	if _, _, err := groups.GetOrCreate(ctx, label); err != nil {
		return "", fmt.Errorf("failed to create temporary group %s: %w", label, err)
	}
	ids := make([]string, 0, len(c.records))
	for _, r := range c.records {
		ids = append(ids, r.ID)
	}
	if err := groups.AddMembers(ctx, label, ids...); err != nil {
		// Constructing the group failed midway; do not leak it.
		if deleteErr := groups.Delete(ctx, label, false); deleteErr != nil {
			log.Printf("Warning: failed to delete temporary group %s after staging error: %v", label, deleteErr)
		}
		return "", fmt.Errorf("failed to populate temporary group %s: %w", label, err)
	}
	return label, nil
}

// ClassifyByType partitions the batch along four type dimensions without any
// store access.
func (c *Classifier) ClassifyByType() {
	out := &TypeClassification{
		Kind:         make(map[record.Kind][]*record.ProcessRecord),
		ProcessClass: make(map[string][]*record.ProcessRecord),
		ProcessLabel: make(map[string][]*record.ProcessRecord),
		ProcessType:  make(map[string][]*record.ProcessRecord),
	}
	for _, r := range c.records {
		out.Kind[r.Kind] = append(out.Kind[r.Kind], r)
		class := ProcessClass(r)
		out.ProcessClass[class] = append(out.ProcessClass[class], r)
		out.ProcessLabel[r.ProcessLabel] = append(out.ProcessLabel[r.ProcessLabel], r)
		out.ProcessType[r.ProcessType] = append(out.ProcessType[r.ProcessType], r)
	}
	c.byType = out
}

// ProcessClass derives the short process class name from a record's fully
// qualified process type, falling back to the process label.
func ProcessClass(r *record.ProcessRecord) string {
	processType := r.ProcessType
	if idx := strings.LastIndexAny(processType, ":."); idx >= 0 {
		processType = processType[idx+1:]
	}
	if processType == "" {
		return r.ProcessLabel
	}
	return processType
}

// ByState returns the bucket for a non-finished state.
func (c *Classifier) ByState(state record.State) []*record.ProcessRecord {
	return c.byState[state]
}

// Finished returns the finished buckets keyed by exit status.
func (c *Classifier) Finished() map[int][]*record.ProcessRecord { return c.finished }

// ByType returns the type classification, or nil before ClassifyByType ran.
func (c *Classifier) ByType() *TypeClassification { return c.byType }

// Count sums bucket sizes for the requested states; finished is summed across
// all its exit-status sub-buckets. Without arguments every state counts.
func (c *Classifier) Count(states ...record.State) int {
	if len(states) == 0 {
		states = record.AllStates()
	}
	total := 0
	for _, state := range states {
		if state == record.StateFinished {
			for _, bucket := range c.finished {
				total += len(bucket)
			}
			continue
		}
		total += len(c.byState[state])
	}
	return total
}
