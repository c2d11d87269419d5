// Package quota reports remote resource availability for submission
// decisions, by running a disk-usage command on the computer hosting the
// engine's working directories.
package quota

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/viant/gosh"
	"github.com/viant/gosh/runner"
	"github.com/viant/gosh/runner/local"
	rssh "github.com/viant/gosh/runner/ssh"
	"golang.org/x/crypto/ssh"
)

// DefaultCommand reports available kibibytes for a path.
const DefaultCommand = "df -k --output=avail"

// Settings configures a quota querier.
type Settings struct {
	// Host of the remote computer; empty or "localhost" runs locally.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`
	// Workdir is the remote directory whose filesystem is checked.
	Workdir string `json:"workdir" yaml:"workdir"`
	// MinFreeSpace in bytes below which submission must not proceed.
	MinFreeSpace int64 `json:"minFreeSpace" yaml:"minFreeSpace"`
	// SafetyFactor scales MinFreeSpace for the comparison; zero means 1.0.
	SafetyFactor float64 `json:"safetyFactor,omitempty" yaml:"safetyFactor,omitempty"`
	// Command overrides DefaultCommand; it must print available kibibytes as
	// the last line of output.
	Command string `json:"command,omitempty" yaml:"command,omitempty"`
	// TimeoutMs bounds command execution.
	TimeoutMs int `json:"timeoutMs,omitempty" yaml:"timeoutMs,omitempty"`
}

// Querier answers whether the configured minimum free space is still left on
// the target computer.
type Querier interface {
	IsMinFreeSpaceLeft(ctx context.Context) (bool, error)
	Settings() Settings
}

// Service implements Querier over a command runner session.
type Service struct {
	settings Settings
	service  *gosh.Service
}

var _ Querier = (*Service)(nil)

// Option configures a quota Service.
type Option func(*config)

type config struct {
	sshConfig *ssh.ClientConfig
	env       map[string]string
}

// WithSSHConfig supplies credentials for a remote host.
func WithSSHConfig(sshConfig *ssh.ClientConfig) Option {
	return func(c *config) { c.sshConfig = sshConfig }
}

// WithEnvironment sets environment variables for the runner session.
func WithEnvironment(env map[string]string) Option {
	return func(c *config) { c.env = env }
}

// New creates a quota querier. A remote host requires WithSSHConfig.
func New(ctx context.Context, settings Settings, opts ...Option) (*Service, error) {
	if settings.Workdir == "" {
		return nil, fmt.Errorf("quota workdir cannot be empty")
	}
	if settings.MinFreeSpace <= 0 {
		return nil, fmt.Errorf("quota minFreeSpace must be > 0")
	}
	c := &config{}
	for _, opt := range opts {
		opt(c)
	}
	var envOptions []runner.Option
	if len(c.env) > 0 {
		envOptions = append(envOptions, runner.WithEnvironment(c.env))
	}

	var service *gosh.Service
	var err error
	if settings.Host == "" || settings.Host == "localhost" {
		service, err = gosh.New(ctx, local.New(envOptions...))
	} else {
		if c.sshConfig == nil {
			return nil, fmt.Errorf("remote host %s requires ssh credentials", settings.Host)
		}
		host := settings.Host
		if !strings.Contains(host, ":") {
			host += ":22"
		}
		service, err = gosh.New(ctx, rssh.New(host, c.sshConfig, envOptions...))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open quota session: %w", err)
	}
	return &Service{settings: settings, service: service}, nil
}

// Settings returns the querier configuration.
func (s *Service) Settings() Settings { return s.settings }

// FreeSpace returns the available bytes on the workdir's filesystem.
func (s *Service) FreeSpace(ctx context.Context) (int64, error) {
	command := s.settings.Command
	if command == "" {
		command = DefaultCommand
	}
	timeout := time.Duration(s.settings.TimeoutMs) * time.Millisecond
	if timeout == 0 {
		timeout = time.Minute
	}
	output, status, err := s.service.Run(ctx, fmt.Sprintf("%s %s", command, s.settings.Workdir), runner.WithTimeout(int(timeout.Milliseconds())))
	if err != nil {
		return 0, fmt.Errorf("quota command failed: %w", err)
	}
	if status != 0 {
		return 0, fmt.Errorf("quota command exited with status %d: %s", status, output)
	}
	return parseAvail(output)
}

// IsMinFreeSpaceLeft reports whether at least MinFreeSpace bytes, scaled by
// the safety factor, are left.
func (s *Service) IsMinFreeSpaceLeft(ctx context.Context) (bool, error) {
	free, err := s.FreeSpace(ctx)
	if err != nil {
		return false, err
	}
	factor := s.settings.SafetyFactor
	if factor <= 0 {
		factor = 1.0
	}
	return float64(free) >= factor*float64(s.settings.MinFreeSpace), nil
}

// Close releases the runner session.
func (s *Service) Close() error { return s.service.Close() }

// parseAvail extracts the available kibibytes from command output, taking the
// last non-empty line so headers are skipped.
func parseAvail(output string) (int64, error) {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) == 0 {
		return 0, fmt.Errorf("quota command produced no output")
	}
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" {
		return 0, fmt.Errorf("quota command produced no output")
	}
	kib, err := strconv.ParseInt(strings.Fields(last)[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse available space from %q: %w", last, err)
	}
	return kib * 1024, nil
}
