package supervisor

import "fmt"

// Settings configures a Supervisor, e.g. in a loop of many submissions.
//
// The time unit of all wait attributes is minutes. With DryRun nothing is
// submitted and every minute is rescaled to one second, so the exact same
// control flow completes in a deterministic fraction of real time.
type Settings struct {
	// DryRun simulates submission with one-second time units.
	DryRun bool `json:"dryRun" yaml:"dryRun"`
	// MaxTopProcessesRunning is the admission ceiling for not-terminated
	// records of the submitted process class.
	MaxTopProcessesRunning int `json:"maxTopProcessesRunning" yaml:"maxTopProcessesRunning"`
	// MaxAllProcessesRunning is the admission ceiling for all not-terminated
	// records, top and children alike.
	MaxAllProcessesRunning int `json:"maxAllProcessesRunning" yaml:"maxAllProcessesRunning"`
	// WaitForSubmit is the interval to recheck whether the line is free now.
	WaitForSubmit int `json:"waitForSubmit" yaml:"waitForSubmit"`
	// MaxWaitForSubmit is the maximum time to wait in line before giving up.
	MaxWaitForSubmit int `json:"maxWaitForSubmit" yaml:"maxWaitForSubmit"`
	// WaitAfterSubmit is the cooldown after a successful submission.
	WaitAfterSubmit int `json:"waitAfterSubmit" yaml:"waitAfterSubmit"`
	// ResubmitFailed resubmits when a failed record of the same label exists.
	ResubmitFailed bool `json:"resubmitFailed" yaml:"resubmitFailed"`
	// ResubmitFailedAsRestart rebuilds the submission as a restart from the
	// failed record instead of submitting the caller's builder unchanged.
	ResubmitFailedAsRestart bool `json:"resubmitFailedAsRestart" yaml:"resubmitFailedAsRestart"`
	// DeleteIfStalling deletes the record trees of stalling tracked records.
	// Currently unsupported: the supervisor downgrades it to
	// DeleteIfStallingDryRun at construction.
	DeleteIfStalling bool `json:"deleteIfStalling" yaml:"deleteIfStalling"`
	// DeleteIfStallingDryRun only reports what DeleteIfStalling would delete.
	DeleteIfStallingDryRun bool `json:"deleteIfStallingDryRun" yaml:"deleteIfStallingDryRun"`
	// MaxWaitForStalling marks a tracked record stalling when unmodified for
	// this long. Avoids congestion from hung submissions.
	MaxWaitForStalling int `json:"maxWaitForStalling" yaml:"maxWaitForStalling"`
}

// DefaultSettings returns the stock supervisor configuration.
func DefaultSettings() Settings {
	return Settings{
		MaxTopProcessesRunning:  10,
		MaxAllProcessesRunning:  100,
		WaitForSubmit:           5,
		MaxWaitForSubmit:        120,
		WaitAfterSubmit:         2,
		ResubmitFailed:          true,
		ResubmitFailedAsRestart: true,
		MaxWaitForStalling:      240,
	}
}

// Validate returns an aggregated error describing invalid settings or nil.
func (s *Settings) Validate() error {
	if s == nil {
		return nil
	}
	if s.MaxTopProcessesRunning < 0 {
		return fmt.Errorf("maxTopProcessesRunning must be >= 0")
	}
	if s.MaxAllProcessesRunning < 0 {
		return fmt.Errorf("maxAllProcessesRunning must be >= 0")
	}
	if s.WaitForSubmit <= 0 {
		return fmt.Errorf("waitForSubmit must be > 0")
	}
	if s.MaxWaitForSubmit < 0 {
		return fmt.Errorf("maxWaitForSubmit must be >= 0")
	}
	if s.WaitAfterSubmit < 0 {
		return fmt.Errorf("waitAfterSubmit must be >= 0")
	}
	if s.MaxWaitForStalling <= 0 {
		return fmt.Errorf("maxWaitForStalling must be > 0")
	}
	return nil
}
