package domain

import (
	"encoding/json"
	"fmt"
)

// Severity ranks how bad a finding is. The integer ordering is the contract:
// "most severe wins" reductions rely on it.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON emits the symbolic name so downstream consumers never see the
// raw ordinal.
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "INFO":
		*s = SeverityInfo
	case "WARNING":
		*s = SeverityWarning
	case "ERROR":
		*s = SeverityError
	case "FATAL":
		*s = SeverityFatal
	default:
		return fmt.Errorf("unknown severity %q", name)
	}
	return nil
}

// Max returns the more severe of the two.
func (s Severity) Max(other Severity) Severity {
	if other > s {
		return other
	}
	return s
}

// Action is what the guardrail layer tells the caller to do. Ordered from
// least to most restrictive; reductions take the max.
type Action int

const (
	ActionProceed Action = iota
	ActionWarn
	ActionBlock
	ActionSuspend
)

func (a Action) String() string {
	switch a {
	case ActionProceed:
		return "PROCEED"
	case ActionWarn:
		return "WARN"
	case ActionBlock:
		return "BLOCK"
	case ActionSuspend:
		return "SUSPEND"
	default:
		return "UNKNOWN"
	}
}

func (a Action) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

func (a *Action) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "PROCEED":
		*a = ActionProceed
	case "WARN":
		*a = ActionWarn
	case "BLOCK":
		*a = ActionBlock
	case "SUSPEND":
		*a = ActionSuspend
	default:
		return fmt.Errorf("unknown action %q", name)
	}
	return nil
}

// Max returns the more restrictive of the two.
func (a Action) Max(other Action) Action {
	if other > a {
		return other
	}
	return a
}

// GuardrailResult is the final gate verdict for one operation.
type GuardrailResult struct {
	Passed     bool     `json:"passed"`
	Violations []string `json:"violations"`
	Severity   Severity `json:"severity"`
	Action     Action   `json:"action"`
}
