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
	"github.com/viant/afs/url"

	"github.com/provisor/provisor/internal/clock"
	"github.com/provisor/provisor/internal/idgen"
	"github.com/provisor/provisor/model/record"
	"github.com/provisor/provisor/service/engine"
	"github.com/provisor/provisor/service/engine/criteria"
)

// Service implements a filesystem-backed process engine store: one JSON file
// per record, one per group, one per remembered submission. It is suitable for
// single-node use and for inspecting a store with ordinary file tools.
type Service struct {
	basePath string
	fs       afs.Service
	groups   *groupService
	mu       sync.RWMutex
}

var _ engine.Service = (*Service)(nil)

// New creates a filesystem engine store rooted at basePath.
func New(basePath string) (*Service, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	fsService := afs.New()

	ctx := context.Background()
	exists, _ := fsService.Exists(ctx, basePath)
	if !exists {
		if err := fsService.Create(ctx, basePath, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", err)
		}
	}
	basePath = url.Normalize(basePath, file.Scheme)
	s := &Service{basePath: basePath, fs: fsService}
	s.groups = &groupService{basePath: path.Join(basePath, "groups"), fs: fsService}
	return s, nil
}

// Save persists a record. Tests and bookkeeping scripts use it to seed the
// store; in production the engine daemon writes records.
func (s *Service) Save(ctx context.Context, r *record.ProcessRecord) error {
	if r == nil {
		return fmt.Errorf("cannot save nil record")
	}
	if r.ID == "" {
		return engine.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upload(ctx, s.recordPath(r.ID), r)
}

func (s *Service) Load(ctx context.Context, id string) (*record.ProcessRecord, error) {
	if id == "" {
		return nil, engine.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load(ctx, id)
}

func (s *Service) load(ctx context.Context, id string) (*record.ProcessRecord, error) {
	filePath := s.recordPath(id)
	exists, err := s.fs.Exists(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to check if record exists: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("record %s: %w", id, engine.ErrNotFound)
	}
	data, err := s.fs.DownloadWithURL(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read record file: %w", err)
	}
	var r record.ProcessRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record data: %w", err)
	}
	return &r, nil
}

func (s *Service) Query(ctx context.Context, filters *engine.Filters) ([]*record.ProcessRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if filters != nil && filters.Group != "" {
		members, err := s.groups.Members(ctx, filters.Group)
		if err != nil {
			return nil, err
		}
		var out []*record.ProcessRecord
		for _, id := range members {
			r, err := s.load(ctx, id)
			if err != nil {
				// Group members can outlive their records; skip the strays.
				fmt.Printf("Error reading group member %s: %v\n", id, err)
				continue
			}
			if criteria.Matches(r, filters) {
				out = append(out, r)
			}
		}
		return out, nil
	}

	recordsPath := path.Join(s.basePath, "records")
	if exists, _ := s.fs.Exists(ctx, recordsPath); !exists {
		return nil, nil
	}
	objects, err := s.fs.List(ctx, recordsPath, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list record files: %w", err)
	}
	var out []*record.ProcessRecord
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			fmt.Printf("Error reading record file %s: %v\n", object.URL(), err)
			continue
		}
		var r record.ProcessRecord
		if err := json.Unmarshal(data, &r); err != nil {
			fmt.Printf("Error unmarshaling record from %s: %v\n", object.URL(), err)
			continue
		}
		if criteria.Matches(&r, filters) {
			out = append(out, &r)
		}
	}
	return out, nil
}

func (s *Service) Count(ctx context.Context, filters *engine.Filters) (int, error) {
	matched, err := s.Query(ctx, filters)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

func (s *Service) Submit(ctx context.Context, builder *engine.Builder) (*record.ProcessRecord, error) {
	if builder == nil {
		return nil, engine.ErrNilBuilder
	}
	now := clock.Now()
	kind := builder.Kind
	if kind == "" {
		kind = record.KindProcess
	}
	r := &record.ProcessRecord{
		ID:           idgen.New(),
		Label:        builder.Metadata.Label,
		Description:  builder.Metadata.Description,
		ProcessLabel: builder.ProcessLabel,
		ProcessType:  builder.ProcessLabel,
		Kind:         kind,
		State:        record.StateCreated,
		CreatedAt:    now,
		UpdatedAt:    now,
		Options:      builder.Options,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.upload(ctx, s.recordPath(r.ID), r); err != nil {
		return nil, err
	}
	if err := s.upload(ctx, s.submissionPath(r.ID), builder); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) RestartBuilder(ctx context.Context, id string) (*engine.Builder, error) {
	r, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	filePath := s.submissionPath(id)
	if exists, _ := s.fs.Exists(ctx, filePath); exists {
		data, err := s.fs.DownloadWithURL(ctx, filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read submission file: %w", err)
		}
		var restarted engine.Builder
		if err := json.Unmarshal(data, &restarted); err != nil {
			return nil, fmt.Errorf("failed to unmarshal submission data: %w", err)
		}
		restarted.Metadata = engine.Metadata{Label: r.Label, Description: r.Description}
		return &restarted, nil
	}
	restarted := &engine.Builder{
		ProcessLabel: r.ProcessLabel,
		Kind:         r.Kind,
		Metadata:     engine.Metadata{Label: r.Label, Description: r.Description},
	}
	restarted.CopyOptions(r)
	return restarted, nil
}

func (s *Service) DeleteTree(ctx context.Context, id string, dryRun bool) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted []string
	var walk func(id string) error
	walk = func(id string) error {
		r, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		deleted = append(deleted, r.ID)
		for _, childID := range r.Descendants {
			if exists, _ := s.fs.Exists(ctx, s.recordPath(childID)); exists {
				if err := walk(childID); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(id); err != nil {
		return nil, err
	}
	if dryRun {
		return deleted, nil
	}
	for _, rid := range deleted {
		if err := s.fs.Delete(ctx, s.recordPath(rid)); err != nil {
			return deleted, fmt.Errorf("failed to delete record file: %w", err)
		}
		if exists, _ := s.fs.Exists(ctx, s.submissionPath(rid)); exists {
			_ = s.fs.Delete(ctx, s.submissionPath(rid))
		}
	}
	return deleted, nil
}

func (s *Service) Groups() engine.GroupService { return s.groups }

func (s *Service) upload(ctx context.Context, filePath string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filePath, err)
	}
	if err := s.fs.Upload(ctx, filePath, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save %s: %w", filePath, err)
	}
	return nil
}

func (s *Service) recordPath(id string) string {
	return path.Join(s.basePath, "records", fmt.Sprintf("%s.json", id))
}

func (s *Service) submissionPath(id string) string {
	return path.Join(s.basePath, "submissions", fmt.Sprintf("%s.json", id))
}
