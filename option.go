package provisor

import (
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/provisor/provisor/service/engine"
	"github.com/provisor/provisor/service/quota"
	"github.com/provisor/provisor/tracing"
)

// Option customizes the Service.
type Option func(s *Service)

// WithConfig replaces the default configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			s.config = config
		}
	}
}

// WithEngine sets the process store implementation.
func WithEngine(service engine.Service) Option {
	return func(s *Service) { s.engine = service }
}

// WithStoreBaseURL selects the file-backed process store rooted at baseURL.
func WithStoreBaseURL(baseURL string) Option {
	return func(s *Service) { s.config.StoreBaseURL = baseURL }
}

// WithQuota sets the free-space querier used by the supervisor pre-check.
func WithQuota(querier quota.Querier) Option {
	return func(s *Service) { s.quota = querier }
}

// WithQuotaOptions supplies additional options passed to quota.New when the
// querier is built from configuration (e.g. WithSSHConfig).
func WithQuotaOptions(opts ...quota.Option) Option {
	return func(s *Service) { s.quotaOpts = append(s.quotaOpts, opts...) }
}

// WithTracing configures OpenTelemetry tracing for the service. If outputFile
// is empty the stdout exporter is used; otherwise traces are written to the
// supplied file path. Safe to call multiple times; the first successful
// initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom
// SpanExporter, for example OTLP, Jaeger or Zipkin.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
