package criteria

import (
	"github.com/provisor/provisor/model/record"
	"github.com/provisor/provisor/service/engine"
)

// Matches evaluates every filter except group membership, which engine
// implementations resolve against their own group store.
func Matches(r *record.ProcessRecord, f *engine.Filters) bool {
	if f == nil {
		return true
	}
	if f.Label != "" && r.Label != f.Label {
		return false
	}
	if f.ProcessLabel != "" && r.ProcessLabel != f.ProcessLabel {
		return false
	}
	if !matchesKind(r, f.Kinds) {
		return false
	}
	if !f.CreatedAfter.IsZero() && !r.CreatedAt.After(f.CreatedAfter) {
		return false
	}
	if f.Paused && !r.Paused {
		return false
	}
	return matchesState(r, f)
}

func matchesState(r *record.ProcessRecord, f *engine.Filters) bool {
	if f.Failed {
		return r.IsFailed()
	}
	if len(f.ExitStatuses) > 0 {
		if r.State != record.StateFinished {
			return false
		}
		for _, status := range f.ExitStatuses {
			if r.ExitStatusValue() == status {
				return true
			}
		}
		return false
	}
	if len(f.States) == 0 {
		return true
	}
	for _, state := range f.States {
		if r.State == state {
			return true
		}
	}
	return false
}

func matchesKind(r *record.ProcessRecord, kinds []record.Kind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, kind := range kinds {
		if kind == record.KindProcess || kind == r.Kind {
			return true
		}
	}
	return false
}
