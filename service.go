package provisor

import (
	"context"

	"github.com/provisor/provisor/model/record"
	"github.com/provisor/provisor/service/classify"
	"github.com/provisor/provisor/service/engine"
	enginefs "github.com/provisor/provisor/service/engine/fs"
	"github.com/provisor/provisor/service/engine/memory"
	"github.com/provisor/provisor/service/itemize"
	"github.com/provisor/provisor/service/query"
	"github.com/provisor/provisor/service/quota"
	"github.com/provisor/provisor/service/supervisor"
)

// Service is the high-level facade wiring the process store, query facade,
// classifier and submission supervisor together.
type Service struct {
	config     *Config
	engine     engine.Service
	quota      quota.Querier
	supervisor *supervisor.Supervisor
	itemizer   *itemize.Service
	quotaOpts  []quota.Option
}

// New creates a Service from the supplied options. Without options it runs on
// defaults: in-memory process store, no quota pre-check.
func New(ctx context.Context, options ...Option) (*Service, error) {
	ret := &Service{config: DefaultConfig()}
	for _, option := range options {
		option(ret)
	}
	if err := ret.config.Validate(); err != nil {
		return nil, err
	}
	if err := ret.ensureBaseSetup(ctx); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *Service) ensureBaseSetup(ctx context.Context) error {
	if s.engine == nil {
		if s.config.StoreBaseURL != "" {
			store, err := enginefs.New(s.config.StoreBaseURL)
			if err != nil {
				return err
			}
			s.engine = store
		} else {
			s.engine = memory.New()
		}
	}
	if s.quota == nil && s.config.Quota != nil {
		querier, err := quota.New(ctx, *s.config.Quota, s.quotaOpts...)
		if err != nil {
			return err
		}
		s.quota = querier
	}
	var opts []supervisor.Option
	if s.quota != nil {
		opts = append(opts, supervisor.WithQuota(s.quota))
	}
	s.supervisor = supervisor.New(s.config.Supervisor, s.engine, opts...)
	s.itemizer = itemize.New()
	return nil
}

// Engine exposes the underlying process store.
func (s *Service) Engine() engine.Service { return s.engine }

// Supervisor exposes the submission supervisor.
func (s *Service) Supervisor() *supervisor.Supervisor { return s.supervisor }

// Itemizer exposes the list itemization service.
func (s *Service) Itemizer() *itemize.Service { return s.itemizer }

// Query builds a process query against the underlying store.
func (s *Service) Query(opts ...query.Option) (*query.Query, error) {
	return query.Processes(s.engine, opts...)
}

// Classify builds a classifier over the supplied records and runs the full
// classification.
func (s *Service) Classify(ctx context.Context, records []*record.ProcessRecord) (*classify.Classifier, error) {
	classifier, err := classify.New(ctx, s.engine, records)
	if err != nil {
		return nil, err
	}
	if err := classifier.Classify(ctx); err != nil {
		return nil, err
	}
	return classifier, nil
}
