package record

import (
	"time"
)

// Kind identifies the concrete record subtype persisted by the engine.
type Kind string

const (
	// KindProcess is the universal subtype; every record matches it.
	KindProcess     Kind = "process"
	KindCalculation Kind = "calculation"
	KindWorkflow    Kind = "workflow"
)

// ValidKind reports whether k is one of the defined record subtypes.
func ValidKind(k Kind) bool {
	switch k {
	case KindProcess, KindCalculation, KindWorkflow:
		return true
	}
	return false
}

// ProcessRecord is one persisted execution of computational work. The engine
// owns and mutates records; this layer only reads them and re-tags group
// membership.
type ProcessRecord struct {
	ID           string `json:"id"`
	Label        string `json:"label,omitempty"`
	Description  string `json:"description,omitempty"`
	ProcessLabel string `json:"processLabel,omitempty"`
	ProcessType  string `json:"processType,omitempty"`
	Kind         Kind   `json:"kind,omitempty"`

	State      State `json:"state"`
	ExitStatus *int  `json:"exitStatus,omitempty"`
	Paused     bool  `json:"paused,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Descendants holds the IDs of records this record called, in call order.
	Descendants []string `json:"descendants,omitempty"`

	// Options carries engine scheduler options (wallclock limit, resources, ...).
	Options map[string]interface{} `json:"options,omitempty"`
}

// IsTerminated reports whether the record reached a final state.
func (r *ProcessRecord) IsTerminated() bool { return r.State.Terminated() }

// IsFinishedOK reports whether the record finished with exit status 0.
func (r *ProcessRecord) IsFinishedOK() bool {
	return r.State == StateFinished && (r.ExitStatus == nil || *r.ExitStatus == 0)
}

// IsFailed reports whether the record finished with a nonzero exit status.
func (r *ProcessRecord) IsFailed() bool {
	return r.State == StateFinished && r.ExitStatus != nil && *r.ExitStatus > 0
}

// ExitStatusValue returns the exit status, or 0 when none was recorded.
func (r *ProcessRecord) ExitStatusValue() int {
	if r.ExitStatus == nil {
		return 0
	}
	return *r.ExitStatus
}

// Clone returns a copy safe to mutate independently of the original.
func (r *ProcessRecord) Clone() *ProcessRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.ExitStatus != nil {
		status := *r.ExitStatus
		out.ExitStatus = &status
	}
	if len(r.Descendants) > 0 {
		out.Descendants = append([]string(nil), r.Descendants...)
	}
	if r.Options != nil {
		out.Options = make(map[string]interface{}, len(r.Options))
		for k, v := range r.Options {
			out.Options[k] = v
		}
	}
	return &out
}

// Runtime estimates elapsed runtime of a record. With descendants present the
// estimate is the latest descendant modification minus the record creation;
// without any it falls back to the record's own mtime-ctime delta, which can
// overshoot when the record was modified after termination.
func Runtime(r *ProcessRecord, descendants []*ProcessRecord) time.Duration {
	if len(descendants) == 0 {
		return r.UpdatedAt.Sub(r.CreatedAt)
	}
	latest := descendants[0].UpdatedAt
	for _, d := range descendants[1:] {
		if d.UpdatedAt.After(latest) {
			latest = d.UpdatedAt
		}
	}
	return latest.Sub(r.CreatedAt)
}
