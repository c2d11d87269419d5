// Package query builds filtered queries over the engine's process record
// store. All filters are optional; a query without any matches everything.
package query

import (
	"context"
	"fmt"
	"log"

	"github.com/provisor/provisor/internal/clock"
	"github.com/provisor/provisor/model/record"
	"github.com/provisor/provisor/service/engine"
)

// Query is a filtered process query evaluable as a count or a materialized
// list.
type Query struct {
	service engine.Service
	filters engine.Filters
}

// Processes builds a query over the engine's record store from the supplied
// filter options.
func Processes(service engine.Service, opts ...Option) (*Query, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.label != nil && *o.label == "" {
		return nil, fmt.Errorf("label filter requested without a label")
	}

	filters := engine.Filters{
		ProcessLabel: o.processLabel,
		Paused:       o.paused,
		Group:        o.group,
		Kinds:        normalizeKinds(o.kinds),
	}
	if o.label != nil {
		filters.Label = *o.label
	}
	switch {
	case o.failed:
		// The failed shortcut wins over explicit state/exit-status filters.
		filters.Failed = true
	case len(o.exitStatuses) > 0:
		filters.States = []record.State{record.StateFinished}
		filters.ExitStatuses = o.exitStatuses
	default:
		filters.States = o.states
	}
	if o.hasWithin {
		filters.CreatedAfter = clock.Now().Add(-o.within)
	}
	return &Query{service: service, filters: filters}, nil
}

// All returns the matching records.
func (q *Query) All(ctx context.Context) ([]*record.ProcessRecord, error) {
	return q.service.Query(ctx, &q.filters)
}

// Count returns the number of matching records.
func (q *Query) Count(ctx context.Context) (int, error) {
	return q.service.Count(ctx, &q.filters)
}

// Filters exposes the resolved filters, mostly for logging and tests.
func (q *Query) Filters() engine.Filters { return q.filters }

// normalizeKinds drops unrecognized record subtypes with a warning. When some
// kinds were requested but none survive, the universal subtype is used so the
// query still evaluates against a safe default.
func normalizeKinds(kinds []record.Kind) []record.Kind {
	if len(kinds) == 0 {
		return nil
	}
	valid := make([]record.Kind, 0, len(kinds))
	var dropped []record.Kind
	for _, kind := range kinds {
		if record.ValidKind(kind) {
			valid = append(valid, kind)
		} else {
			dropped = append(dropped, kind)
		}
	}
	if len(dropped) > 0 {
		replacement := valid
		if len(replacement) == 0 {
			replacement = []record.Kind{record.KindProcess}
		}
		log.Printf("Warning: query: specified kinds %v, some of which are not recognized record subtypes. Replaced with kinds %v.", kinds, replacement)
	}
	if len(valid) == 0 {
		return []record.Kind{record.KindProcess}
	}
	return valid
}
