package quota

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAvail(t *testing.T) {
	testCases := []struct {
		description string
		output      string
		expected    int64
		hasError    bool
	}{
		{
			description: "df output with header",
			output:      "Avail\n104857600\n",
			expected:    104857600 * 1024,
		},
		{
			description: "single line",
			output:      "42",
			expected:    42 * 1024,
		},
		{
			description: "trailing fields ignored",
			output:      "Avail Use%\n2048 12%\n",
			expected:    2048 * 1024,
		},
		{
			description: "empty output",
			output:      "",
			hasError:    true,
		},
		{
			description: "whitespace only",
			output:      "   \n  \n",
			hasError:    true,
		},
		{
			description: "non-numeric",
			output:      "df: /scratch: No such file or directory",
			hasError:    true,
		},
	}

	for _, tc := range testCases {
		actual, err := parseAvail(tc.output)
		if tc.hasError {
			assert.Error(t, err, tc.description)
			continue
		}
		assert.NoError(t, err, tc.description)
		assert.Equal(t, tc.expected, actual, tc.description)
	}
}
