package grouping

import "context"

// DAO abstracts persistence operations for groups so that engine
// implementations can share one group model.
type DAO interface {
	Save(ctx context.Context, g *Group) error
	Load(ctx context.Context, label string) (*Group, error)
	Delete(ctx context.Context, label string) error
	List(ctx context.Context, labelPrefix string) ([]*Group, error)
}
