package memory

import (
	"context"
	"fmt"

	"github.com/provisor/provisor/internal/clock"
	"github.com/provisor/provisor/runtime/grouping"
	"github.com/provisor/provisor/service/engine"
)

// groupService adapts the grouping memory DAO to the engine group surface.
type groupService struct {
	dao *grouping.MemoryDAO
}

var _ engine.GroupService = (*groupService)(nil)

func (g *groupService) GetOrCreate(ctx context.Context, label string) (*grouping.Group, bool, error) {
	if label == "" {
		return nil, false, engine.ErrInvalidID
	}
	existing, err := g.dao.Load(ctx, label)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	created := &grouping.Group{Label: label, CreatedAt: clock.Now()}
	if err := g.dao.Save(ctx, created); err != nil {
		return nil, false, err
	}
	return created, true, nil
}

func (g *groupService) Load(ctx context.Context, label string) (*grouping.Group, error) {
	if label == "" {
		return nil, engine.ErrInvalidID
	}
	group, err := g.dao.Load(ctx, label)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, fmt.Errorf("group %s: %w", label, engine.ErrNotFound)
	}
	return group, nil
}

func (g *groupService) List(ctx context.Context, labelPrefix string) ([]*grouping.Group, error) {
	return g.dao.List(ctx, labelPrefix)
}

func (g *groupService) AddMembers(ctx context.Context, label string, ids ...string) error {
	group, err := g.Load(ctx, label)
	if err != nil {
		return err
	}
	group.AddMembers(ids...)
	return g.dao.Save(ctx, group)
}

func (g *groupService) Members(ctx context.Context, label string) ([]string, error) {
	group, err := g.Load(ctx, label)
	if err != nil {
		return nil, err
	}
	return group.MemberIDs(), nil
}

func (g *groupService) Delete(ctx context.Context, label string, skipNonEmpty bool) error {
	group, err := g.Load(ctx, label)
	if err != nil {
		return err
	}
	if skipNonEmpty && group.Size() > 0 {
		return fmt.Errorf("group %s: %w", label, engine.ErrGroupNotEmpty)
	}
	return g.dao.Delete(ctx, label)
}
