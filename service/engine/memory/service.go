package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/provisor/provisor/internal/clock"
	"github.com/provisor/provisor/internal/idgen"
	"github.com/provisor/provisor/model/record"
	"github.com/provisor/provisor/runtime/grouping"
	"github.com/provisor/provisor/service/engine"
	"github.com/provisor/provisor/service/engine/criteria"
)

// Service implements an in-memory, thread-safe process engine store. It backs
// unit tests and single-instance use; a real deployment points the library at
// the production engine instead.
type Service struct {
	records     map[string]*record.ProcessRecord
	submissions map[string]*engine.Builder
	groups      *groupService
	mux         sync.RWMutex
}

var _ engine.Service = (*Service)(nil)

func New() *Service {
	return &Service{
		records:     map[string]*record.ProcessRecord{},
		submissions: map[string]*engine.Builder{},
		groups:      &groupService{dao: grouping.NewMemoryDAO()},
	}
}

// Save stores or overwrites a record. It exists so tests and bookkeeping
// scripts can seed the store; the engine owns record mutation in production.
func (s *Service) Save(_ context.Context, r *record.ProcessRecord) error {
	if r == nil {
		return fmt.Errorf("cannot save nil record")
	}
	if r.ID == "" {
		return engine.ErrInvalidID
	}
	s.mux.Lock()
	s.records[r.ID] = r
	s.mux.Unlock()
	return nil
}

func (s *Service) Load(_ context.Context, id string) (*record.ProcessRecord, error) {
	if id == "" {
		return nil, engine.ErrInvalidID
	}
	s.mux.RLock()
	r, ok := s.records[id]
	s.mux.RUnlock()
	if !ok {
		return nil, fmt.Errorf("record %s: %w", id, engine.ErrNotFound)
	}
	return r, nil
}

func (s *Service) Query(ctx context.Context, filters *engine.Filters) ([]*record.ProcessRecord, error) {
	members, err := s.groupMembers(ctx, filters)
	if err != nil {
		return nil, err
	}

	s.mux.RLock()
	defer s.mux.RUnlock()

	var out []*record.ProcessRecord
	appendMatch := func(r *record.ProcessRecord) {
		if r != nil && criteria.Matches(r, filters) {
			out = append(out, r)
		}
	}
	if members != nil {
		// Group scope preserves the group's insertion order.
		for _, id := range members {
			appendMatch(s.records[id])
		}
		return out, nil
	}
	for _, r := range s.records {
		appendMatch(r)
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

func (s *Service) Submit(_ context.Context, builder *engine.Builder) (*record.ProcessRecord, error) {
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
	}
	if builder.Options != nil {
		r.Options = make(map[string]interface{}, len(builder.Options))
		for k, v := range builder.Options {
			r.Options[k] = v
		}
	}
	s.mux.Lock()
	s.records[r.ID] = r
	s.submissions[r.ID] = builder.Clone()
	s.mux.Unlock()
	return r, nil
}

func (s *Service) RestartBuilder(ctx context.Context, id string) (*engine.Builder, error) {
	r, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mux.RLock()
	submitted := s.submissions[id]
	s.mux.RUnlock()
	if submitted != nil {
		restarted := submitted.Clone()
		restarted.Metadata = engine.Metadata{Label: r.Label, Description: r.Description}
		return restarted, nil
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
	root, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	var deleted []string
	var walk func(r *record.ProcessRecord)
	walk = func(r *record.ProcessRecord) {
		deleted = append(deleted, r.ID)
		for _, childID := range r.Descendants {
			if child, ok := s.records[childID]; ok {
				walk(child)
			}
		}
	}
	walk(root)

	if dryRun {
		return deleted, nil
	}
	for _, rid := range deleted {
		delete(s.records, rid)
		delete(s.submissions, rid)
	}
	return deleted, nil
}

func (s *Service) Groups() engine.GroupService { return s.groups }

// groupMembers resolves the group filter to member IDs; nil means unscoped.
func (s *Service) groupMembers(ctx context.Context, filters *engine.Filters) ([]string, error) {
	if filters == nil || filters.Group == "" {
		return nil, nil
	}
	members, err := s.groups.Members(ctx, filters.Group)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []string{}
	}
	return members, nil
}
