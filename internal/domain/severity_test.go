package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardrailResultJSONRoundTrip(t *testing.T) {
	in := GuardrailResult{
		Passed:     false,
		Violations: []string{"DATA QUALITY: score 50.0 below minimum 70.0"},
		Severity:   SeverityError,
		Action:     ActionBlock,
	}

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"severity":"ERROR"`)
	assert.Contains(t, string(raw), `"action":"BLOCK"`)

	var out GuardrailResult
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}

func TestSeverityUnmarshalRejectsUnknown(t *testing.T) {
	var s Severity
	assert.Error(t, json.Unmarshal([]byte(`"CATASTROPHIC"`), &s))
	var a Action
	assert.Error(t, json.Unmarshal([]byte(`"PANIC"`), &a))
}
