// Package supervisor implements supervised process submission: for a named
// unit of work it reuses completed or in-flight records where possible and
// otherwise submits, waiting in line while admission ceilings are exceeded.
package supervisor

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/provisor/provisor/internal/clock"
	"github.com/provisor/provisor/model/record"
	"github.com/provisor/provisor/service/engine"
	"github.com/provisor/provisor/service/query"
	"github.com/provisor/provisor/service/quota"
	"github.com/provisor/provisor/tracing"
)

// Source reports where a BlockingSubmit result came from.
type Source string

const (
	// SourceStore marks a record reused from the engine's store.
	SourceStore Source = "store"
	// SourceSubmit marks a record submitted (or found still in flight) now.
	SourceSubmit Source = "submit"
	// SourceNone marks a call that could not produce a record.
	SourceNone Source = ""
)

// Supervisor supervises process submission against the engine. A single
// instance is safe for sequential use; the tracked in-flight set is owned by
// the instance and lives as long as it does.
type Supervisor struct {
	settings Settings
	service  engine.Service
	quota    quota.Querier

	// submitted tracks records this instance submitted or observed in flight.
	// Entries leave only on confirmed stalling cleanup.
	submitted []*record.ProcessRecord

	sleep func(time.Duration)
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithQuota makes BlockingSubmit abort when the remote workdir runs out of
// free space. The querier's target computer must match the builder's.
func WithQuota(querier quota.Querier) Option {
	return func(s *Supervisor) { s.quota = querier }
}

// New creates a Supervisor. An unsafe DeleteIfStalling setting is downgraded
// to its dry-run variant with a warning.
func New(settings Settings, service engine.Service, opts ...Option) *Supervisor {
	s := &Supervisor{settings: settings, service: service, sleep: time.Sleep}
	for _, opt := range opts {
		opt(s)
	}
	s.guardDeleteIfStalling()
	return s
}

// Settings returns the effective settings, after guards.
func (s *Supervisor) Settings() Settings { return s.settings }

// Tracked returns the records this instance currently tracks as in flight.
func (s *Supervisor) Tracked() []*record.ProcessRecord {
	return append([]*record.ProcessRecord(nil), s.submitted...)
}

// guardDeleteIfStalling downgrades destructive stalling deletion to its
// simulation; the destructive mode is not supported yet.
func (s *Supervisor) guardDeleteIfStalling() {
	if s.settings.DeleteIfStalling {
		log.Printf("Warning: Settings.DeleteIfStalling=true is currently not supported. Setting DeleteIfStallingDryRun=true instead to show what the setting would do.")
		s.settings.DeleteIfStalling = false
		s.settings.DeleteIfStallingDryRun = true
	}
}

// BlockingSubmit submits the builder's process but waits in line while more
// than the permitted number of processes are running.
//
// Units of work are identified by builder metadata label: when one of the
// groups holds a record with that label in state finished_ok, that record is
// returned instead of submitting. A terminated-but-failed record is returned
// as is when resubmission is disabled, and an in-flight record is returned as
// already queued. Otherwise the call enters the admission loop and submits
// once both ceilings clear, or gives up after MaxWaitForSubmit.
//
// The returned Source tells the three outcomes apart: SourceStore for records
// reused from the store, SourceSubmit for records submitted or observed in
// flight now (nil record in dry-run mode), SourceNone with a nil record when
// the wait timed out.
func (s *Supervisor) BlockingSubmit(ctx context.Context, builder *engine.Builder, groups ...string) (*record.ProcessRecord, Source, error) {
	var err error
	ctx, span := tracing.StartSpan(ctx, "supervisor.blockingSubmit", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()

	if builder == nil {
		err = engine.ErrNilBuilder
		return nil, SourceNone, err
	}
	label := builder.Metadata.Label
	if label == "" {
		err = fmt.Errorf("builder metadata label not set; submission supervision does not work without an identifying process label")
		return nil, SourceNone, err
	}
	processLabel := builder.ProcessLabel
	if processLabel == "" {
		err = fmt.Errorf("builder process label not set")
		return nil, SourceNone, err
	}

	matches, err := s.matchesInGroups(ctx, label, processLabel, groups)
	if err != nil {
		return nil, SourceNone, err
	}
	if len(matches) > 1 {
		fmt.Printf("INFO: %q: found multiple (%d) results in group(s) %v\n", label, len(matches), groups)
	}

	var finishedOK, terminated, notTerminated []*record.ProcessRecord
	for _, match := range matches {
		switch {
		case match.IsFinishedOK():
			finishedOK = append(finishedOK, match)
		case match.IsTerminated():
			terminated = append(terminated, match)
		default:
			notTerminated = append(notTerminated, match)
		}
	}

	if len(finishedOK) > 0 {
		var reused *record.ProcessRecord
		reused, err = s.service.Load(ctx, finishedOK[0].ID)
		if err != nil {
			return nil, SourceNone, err
		}
		fmt.Printf("loaded %q from store, finished_ok\n", label)
		return reused, SourceStore, nil
	}

	if len(terminated) > 0 && !s.settings.ResubmitFailed {
		var reused *record.ProcessRecord
		reused, err = s.service.Load(ctx, terminated[0].ID)
		if err != nil {
			return nil, SourceNone, err
		}
		info := fmt.Sprintf("process state %s", reused.State)
		if reused.ExitStatusValue() != 0 {
			info += fmt.Sprintf(", exit status %d", reused.ExitStatusValue())
		}
		fmt.Printf("loaded %q from store, %s (retry mode %v)\n", label, info, s.settings.ResubmitFailed)
		return reused, SourceStore, nil
	}

	if len(notTerminated) > 0 {
		var queued *record.ProcessRecord
		queued, err = s.service.Load(ctx, notTerminated[0].ID)
		if err != nil {
			return nil, SourceNone, err
		}
		s.submitted = append(s.submitted, queued)
		fmt.Printf("%q is not terminated\n", label)
		return queued, SourceSubmit, nil
	}

	toSubmit := builder
	if s.settings.ResubmitFailed && len(terminated) > 0 {
		toSubmit, err = s.restartBuilder(ctx, builder, terminated)
		if err != nil {
			return nil, SourceNone, err
		}
	}

	if s.quota != nil {
		var enough bool
		enough, err = s.quota.IsMinFreeSpaceLeft(ctx)
		if err != nil {
			return nil, SourceNone, err
		}
		if !enough {
			err = fmt.Errorf("abort: not enough free space (min %v) left on remote workdir %s", s.quota.Settings().MinFreeSpace, s.quota.Settings().Workdir)
			return nil, SourceNone, err
		}
	}

	return s.admit(ctx, toSubmit, label, processLabel, groups)
}

// admit is the admission loop: periodically recheck the per-label and global
// ceilings, clean up stalling records, and submit once there is room. Ceiling
// state is externally mutated and must be re-observed each round, never
// cached.
func (s *Supervisor) admit(ctx context.Context, builder *engine.Builder, label, processLabel string, groups []string) (*record.ProcessRecord, Source, error) {
	unit := time.Minute
	if s.settings.DryRun {
		unit = time.Second
	}

	waited := 0
	for waited <= s.settings.MaxWaitForSubmit {
		if s.settings.DeleteIfStalling || s.settings.DeleteIfStallingDryRun {
			s.sweepStalling(ctx, unit)
		}

		topRunning, err := s.countRunning(ctx, processLabel)
		if err != nil {
			return nil, SourceNone, err
		}
		allRunning, err := s.countRunning(ctx, "")
		if err != nil {
			return nil, SourceNone, err
		}
		if topRunning > s.settings.MaxTopProcessesRunning || allRunning > s.settings.MaxAllProcessesRunning {
			// Queue is too full, wait in line.
			waited += s.settings.WaitForSubmit
			s.sleep(time.Duration(s.settings.WaitForSubmit) * unit)
			continue
		}

		fmt.Printf("try submit (waited %d min, queued: %d top, %d all processes; wait another %d minutes after submission)\n",
			waited, topRunning, allRunning, s.settings.WaitAfterSubmit)
		if s.settings.DryRun {
			fmt.Printf("dry run: would now submit %q\n", label)
			return nil, SourceSubmit, nil
		}
		submitted, err := s.service.Submit(ctx, builder)
		if err != nil {
			return nil, SourceNone, err
		}
		s.submitted = append(s.submitted, submitted)
		for _, group := range groups {
			if err := s.service.Groups().AddMembers(ctx, group, submitted.ID); err != nil {
				return submitted, SourceSubmit, fmt.Errorf("failed to add submitted record to group %s: %w", group, err)
			}
		}
		fmt.Printf("submitted %q, id %s\n", label, submitted.ID)
		s.sleep(time.Duration(s.settings.WaitAfterSubmit) * unit)
		return submitted, SourceSubmit, nil
	}

	log.Printf("Warning: submission of %q timed out after %d min waiting time.", label, waited)
	return nil, SourceNone, nil
}

// restartBuilder rebuilds the submission as a restart from the first failed
// match, keeping the caller-supplied label and description.
func (s *Supervisor) restartBuilder(ctx context.Context, builder *engine.Builder, terminated []*record.ProcessRecord) (*engine.Builder, error) {
	info := fmt.Sprintf("staging submit %q, resubmit (previously failed: ", builder.Metadata.Label)
	for i, failed := range terminated {
		if i > 0 {
			info += "; "
		}
		info += fmt.Sprintf("id %s, state %s, exit status %d", failed.ID, failed.State, failed.ExitStatusValue())
	}
	info += ")"
	if !s.settings.ResubmitFailedAsRestart {
		fmt.Println(info + " ...")
		return builder, nil
	}

	failedFirst := terminated[0]
	restarted, err := s.service.RestartBuilder(ctx, failedFirst.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild submission from failed record %s: %w", failedFirst.ID, err)
	}
	// Label and description are not carried over by the restart; set them
	// from the caller's builder.
	restarted.Metadata = builder.Metadata
	info += fmt.Sprintf(", restart from first found previously failed, id=%s", failedFirst.ID)
	if builder.Metadata.Label != failedFirst.Label || builder.Metadata.Description != failedFirst.Description {
		log.Printf("Warning: label, description supplied via builder (%q, %q) do not correspond to label, description from first found previously failed (%q, %q). Using those supplied via builder.",
			builder.Metadata.Label, builder.Metadata.Description, failedFirst.Label, failedFirst.Description)
	}
	fmt.Println(info + " ...")
	return restarted, nil
}

// sweepStalling drops tracked records whose last modification is older than
// the stalling threshold. Deletion removes the full record tree and is only
// performed outside dry-run mode; the construction guard keeps that mode off.
func (s *Supervisor) sweepStalling(ctx context.Context, unit time.Duration) {
	threshold := time.Duration(s.settings.MaxWaitForStalling) * unit
	kept := s.submitted[:0]
	for _, tracked := range s.submitted {
		live, err := s.service.Load(ctx, tracked.ID)
		if err != nil {
			// Deleted externally; nothing left to watch.
			continue
		}
		if clock.Since(live.UpdatedAt) <= threshold {
			kept = append(kept, tracked)
			continue
		}
		if s.settings.DeleteIfStallingDryRun {
			fmt.Printf("INFO: process id=%s label=%q exceeded max stalling time %d min, would now delete its record tree (dry run) ...\n",
				live.ID, live.Label, s.settings.MaxWaitForStalling)
			kept = append(kept, tracked)
			continue
		}
		fmt.Printf("INFO: process id=%s label=%q exceeded max stalling time %d min, deleting its record tree ...\n",
			live.ID, live.Label, s.settings.MaxWaitForStalling)
		if _, err := s.service.DeleteTree(ctx, live.ID, false); err != nil {
			log.Printf("Warning: failed to delete stalling record tree %s: %v", live.ID, err)
			kept = append(kept, tracked)
		}
	}
	s.submitted = kept
}

// matchesInGroups queries every target group for records of this label and
// process class, deduplicated by identity keeping the first occurrence.
func (s *Supervisor) matchesInGroups(ctx context.Context, label, processLabel string, groups []string) ([]*record.ProcessRecord, error) {
	var matches []*record.ProcessRecord
	seen := make(map[string]bool)
	for _, group := range groups {
		q, err := query.Processes(s.service,
			query.WithLabel(label),
			query.WithProcessLabel(processLabel),
			query.WithGroup(group))
		if err != nil {
			return nil, err
		}
		found, err := q.All(ctx)
		if err != nil {
			return nil, err
		}
		for _, match := range found {
			if seen[match.ID] {
				continue
			}
			seen[match.ID] = true
			matches = append(matches, match)
		}
	}
	return matches, nil
}

// countRunning counts not-terminated records, scoped to one process class
// when processLabel is set and to the whole store otherwise.
func (s *Supervisor) countRunning(ctx context.Context, processLabel string) (int, error) {
	opts := []query.Option{query.WithStates(record.States(record.NotTerminated)...)}
	if processLabel != "" {
		opts = append(opts, query.WithProcessLabel(processLabel))
	}
	q, err := query.Processes(s.service, opts...)
	if err != nil {
		return 0, err
	}
	return q.Count(ctx)
}
