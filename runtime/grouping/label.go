package grouping

import (
	"strings"

	"github.com/provisor/provisor/internal/clock"
	"github.com/provisor/provisor/internal/idgen"
)

// UniqueLabel returns a probabilistically unique group label scoped by prefix:
// "<prefix>_<timestamp>_<random suffix>". Callers that hit a store collision
// regenerate and retry.
func UniqueLabel(prefix string) string {
	suffix := strings.ReplaceAll(idgen.New(), "-", "")
	if len(suffix) > 16 {
		suffix = suffix[:16]
	}
	return strings.Join([]string{prefix, clock.Now().Format("2006-01-02_15-04-05"), suffix}, "_")
}
