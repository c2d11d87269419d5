package engine

import "github.com/provisor/provisor/model/record"

// Metadata carries the user-facing identification of a submission.
type Metadata struct {
	Label       string `json:"label,omitempty" yaml:"label,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Builder is a submission request for a new process record.
type Builder struct {
	// ProcessLabel names the process class to run.
	ProcessLabel string `json:"processLabel" yaml:"processLabel"`
	// Kind is the record subtype the submission will produce.
	Kind record.Kind `json:"kind,omitempty" yaml:"kind,omitempty"`

	Metadata Metadata `json:"metadata" yaml:"metadata"`

	// Inputs are the process inputs, keyed by port name.
	Inputs map[string]interface{} `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	// Options are engine scheduler options.
	Options map[string]interface{} `json:"options,omitempty" yaml:"options,omitempty"`
}

// schedulerOptionKeys are the options carried over by CopyOptions.
var schedulerOptionKeys = []string{
	"max_wallclock_seconds",
	"resources",
	"custom_scheduler_commands",
	"withmpi",
}

// CopyOptions copies standard scheduler options from a performed record onto
// the builder, replacing any previously set options.
func (b *Builder) CopyOptions(parent *record.ProcessRecord) {
	if parent == nil || parent.Options == nil {
		return
	}
	if b.Options == nil {
		b.Options = make(map[string]interface{}, len(schedulerOptionKeys))
	}
	for _, key := range schedulerOptionKeys {
		if value, ok := parent.Options[key]; ok {
			b.Options[key] = value
		}
	}
}

// Clone returns a copy of the builder safe to mutate independently.
func (b *Builder) Clone() *Builder {
	if b == nil {
		return nil
	}
	out := *b
	if b.Inputs != nil {
		out.Inputs = make(map[string]interface{}, len(b.Inputs))
		for k, v := range b.Inputs {
			out.Inputs[k] = v
		}
	}
	if b.Options != nil {
		out.Options = make(map[string]interface{}, len(b.Options))
		for k, v := range b.Options {
			out.Options[k] = v
		}
	}
	return &out
}
