package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"

	"github.com/provisor/provisor/internal/clock"
	"github.com/provisor/provisor/runtime/grouping"
	"github.com/provisor/provisor/service/engine"
)

// groupService persists groups as one JSON membership file per group.
type groupService struct {
	basePath string
	fs       afs.Service
	mu       sync.RWMutex
}

var _ engine.GroupService = (*groupService)(nil)

func (g *groupService) GetOrCreate(ctx context.Context, label string) (*grouping.Group, bool, error) {
	if label == "" {
		return nil, false, engine.ErrInvalidID
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	existing, err := g.load(ctx, label)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	created := &grouping.Group{Label: label, CreatedAt: clock.Now()}
	if err := g.save(ctx, created); err != nil {
		return nil, false, err
	}
	return created, true, nil
}

func (g *groupService) Load(ctx context.Context, label string) (*grouping.Group, error) {
	if label == "" {
		return nil, engine.ErrInvalidID
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	group, err := g.load(ctx, label)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, fmt.Errorf("group %s: %w", label, engine.ErrNotFound)
	}
	return group, nil
}

func (g *groupService) List(ctx context.Context, labelPrefix string) ([]*grouping.Group, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if exists, _ := g.fs.Exists(ctx, g.basePath); !exists {
		return nil, nil
	}
	objects, err := g.fs.List(ctx, g.basePath, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list group files: %w", err)
	}
	var out []*grouping.Group
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := g.fs.Download(ctx, object)
		if err != nil {
			fmt.Printf("Error reading group file %s: %v\n", object.URL(), err)
			continue
		}
		var group grouping.Group
		if err := json.Unmarshal(data, &group); err != nil {
			fmt.Printf("Error unmarshaling group from %s: %v\n", object.URL(), err)
			continue
		}
		if labelPrefix != "" && !strings.HasPrefix(group.Label, labelPrefix) {
			continue
		}
		out = append(out, &group)
	}
	return out, nil
}

func (g *groupService) AddMembers(ctx context.Context, label string, ids ...string) error {
	group, err := g.Load(ctx, label)
	if err != nil {
		return err
	}
	group.AddMembers(ids...)
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.save(ctx, group)
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
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fs.Delete(ctx, g.groupPath(label)); err != nil {
		return fmt.Errorf("failed to delete group file: %w", err)
	}
	return nil
}

func (g *groupService) load(ctx context.Context, label string) (*grouping.Group, error) {
	filePath := g.groupPath(label)
	exists, err := g.fs.Exists(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to check if group exists: %w", err)
	}
	if !exists {
		return nil, nil
	}
	data, err := g.fs.DownloadWithURL(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read group file: %w", err)
	}
	var group grouping.Group
	if err := json.Unmarshal(data, &group); err != nil {
		return nil, fmt.Errorf("failed to unmarshal group data: %w", err)
	}
	return &group, nil
}

func (g *groupService) save(ctx context.Context, group *grouping.Group) error {
	data, err := json.Marshal(group)
	if err != nil {
		return fmt.Errorf("failed to marshal group: %w", err)
	}
	if err := g.fs.Upload(ctx, g.groupPath(group.Label), file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save group file: %w", err)
	}
	return nil
}

func (g *groupService) groupPath(label string) string {
	return path.Join(g.basePath, fmt.Sprintf("%s.json", label))
}
