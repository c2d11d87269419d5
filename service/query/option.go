package query

import (
	"time"

	"github.com/provisor/provisor/model/record"
)

// Option configures a process query.
type Option func(*options)

type options struct {
	label        *string
	processLabel string
	states       []record.State
	exitStatuses []int
	failed       bool
	paused       bool
	kinds        []record.Kind
	group        string
	within       time.Duration
	hasWithin    bool
}

// WithLabel restricts to records with this exact user-assigned label. An
// empty label is an error: label filtering without a label cannot identify
// anything.
func WithLabel(label string) Option {
	return func(o *options) { o.label = &label }
}

// WithProcessLabel restricts to records of this process class name.
func WithProcessLabel(processLabel string) Option {
	return func(o *options) { o.processLabel = processLabel }
}

// WithStates restricts to records in any of the given lifecycle states.
func WithStates(states ...record.State) Option {
	return func(o *options) { o.states = append(o.states, states...) }
}

// WithExitStatuses restricts to finished records whose exit status is in the
// given set. Implies state 'finished'.
func WithExitStatuses(statuses ...int) Option {
	return func(o *options) { o.exitStatuses = append(o.exitStatuses, statuses...) }
}

// WithFailed restricts to finished records with exit status > 0, overriding
// any explicit state or exit status filters.
func WithFailed() Option {
	return func(o *options) { o.failed = true }
}

// WithPaused restricts to paused records.
func WithPaused() Option {
	return func(o *options) { o.paused = true }
}

// WithKinds restricts to the given record subtypes. Unrecognized kinds are
// dropped with a warning; when none remain the universal subtype is used.
func WithKinds(kinds ...record.Kind) Option {
	return func(o *options) { o.kinds = append(o.kinds, kinds...) }
}

// WithGroup restricts the search to members of the named group instead of the
// whole store.
func WithGroup(label string) Option {
	return func(o *options) { o.group = label }
}

// WithCreatedWithin restricts to records created strictly after now minus d.
// The bound is fixed when the query is built, not when it is evaluated.
func WithCreatedWithin(d time.Duration) Option {
	return func(o *options) {
		o.within = d
		o.hasWithin = true
	}
}
