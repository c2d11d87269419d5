package engine

import (
	"context"
	"time"

	"github.com/provisor/provisor/model/record"
	"github.com/provisor/provisor/runtime/grouping"
)

// Filters narrows a record query. The zero value matches every record.
type Filters struct {
	// Label matches the user-assigned record label exactly.
	Label string
	// ProcessLabel matches the short process class name.
	ProcessLabel string
	// States restricts to the given lifecycle states.
	States []record.State
	// ExitStatuses restricts to records whose exit status is in the set.
	ExitStatuses []int
	// Failed restricts to finished records with exit status > 0. Takes
	// precedence over States and ExitStatuses.
	Failed bool
	// Paused restricts to paused records.
	Paused bool
	// Kinds restricts to the given record subtypes. KindProcess matches all.
	Kinds []record.Kind
	// Group restricts the search to members of the named group.
	Group string
	// CreatedAfter, when set, restricts to records created strictly after it.
	CreatedAfter time.Time
}

// Service is the surface this library consumes from the external
// provenance-tracking process engine.
type Service interface {
	// Query returns all records matching the filters.
	Query(ctx context.Context, filters *Filters) ([]*record.ProcessRecord, error)

	// Count returns the number of records matching the filters.
	Count(ctx context.Context, filters *Filters) (int, error)

	// Load returns a record by identifier.
	Load(ctx context.Context, id string) (*record.ProcessRecord, error)

	// Submit hands a build request to the engine, producing a new record.
	Submit(ctx context.Context, builder *Builder) (*record.ProcessRecord, error)

	// RestartBuilder rebuilds a submission request from a terminated record,
	// carrying over its inputs and options.
	RestartBuilder(ctx context.Context, id string) (*Builder, error)

	// DeleteTree removes a record and all its descendants, returning the
	// affected IDs. With dryRun only the IDs are reported.
	DeleteTree(ctx context.Context, id string, dryRun bool) ([]string, error)

	// Groups exposes the engine's group operations.
	Groups() GroupService
}

// GroupService covers the engine's record grouping surface.
type GroupService interface {
	// GetOrCreate loads the group with the given label, creating it when
	// absent; created reports which happened.
	GetOrCreate(ctx context.Context, label string) (group *grouping.Group, created bool, err error)

	// Load returns the group by label, or ErrNotFound.
	Load(ctx context.Context, label string) (*grouping.Group, error)

	// List returns all groups whose label starts with labelPrefix; an empty
	// prefix lists every group.
	List(ctx context.Context, labelPrefix string) ([]*grouping.Group, error)

	// AddMembers adds records to the group.
	AddMembers(ctx context.Context, label string, ids ...string) error

	// Members returns the group's member record IDs.
	Members(ctx context.Context, label string) ([]string, error)

	// Delete removes the group. With skipNonEmpty a populated group is left
	// in place and ErrGroupNotEmpty returned.
	Delete(ctx context.Context, label string, skipNonEmpty bool) error
}
