package fraud

import (
	"fmt"
	"time"

	"fraudcheck/ml"
)

// State follows one submission: Idle -> Predicting -> Rendered | ErrorDisplayed.
// Both terminal states fall back to Idle on the next interaction.
type State int

const (
	StateIdle State = iota
	StatePredicting
	StateRendered
	StateErrorDisplayed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePredicting:
		return "predicting"
	case StateRendered:
		return "rendered"
	case StateErrorDisplayed:
		return "error"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for _, candidate := range []State{StateIdle, StatePredicting, StateRendered, StateErrorDisplayed} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}

type Verdict int

const (
	VerdictLegitimate Verdict = iota
	VerdictFraud
)

// VerdictFromLabel accepts only the two labels a binary classifier may emit.
func VerdictFromLabel(label int) (Verdict, error) {
	switch label {
	case ml.LabelLegitimate:
		return VerdictLegitimate, nil
	case ml.LabelFraud:
		return VerdictFraud, nil
	}
	return 0, fmt.Errorf("classifier returned unexpected label %d", label)
}

func (v Verdict) Label() int {
	if v == VerdictFraud {
		return ml.LabelFraud
	}
	return ml.LabelLegitimate
}

func (v Verdict) String() string {
	if v == VerdictFraud {
		return "fraud"
	}
	return "legitimate"
}

func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Verdict) UnmarshalText(text []byte) error {
	switch string(text) {
	case "fraud":
		*v = VerdictFraud
	case "legitimate":
		*v = VerdictLegitimate
	default:
		return fmt.Errorf("unknown verdict %q", text)
	}
	return nil
}

func (v Verdict) Headline() string {
	if v == VerdictFraud {
		return "Alert: This transaction is likely FRAUDULENT."
	}
	return "This transaction appears to be legitimate."
}

// Detail is the follow-up line shown under the headline, if any.
func (v Verdict) Detail() string {
	if v == VerdictFraud {
		return "Please investigate further before processing."
	}
	return ""
}

type Submission struct {
	Type       ml.TransactionType
	Amount     float64
	OldBalance float64
	NewBalance float64
}

// Outcome is the result of one check. Verdict is meaningful only when
// State is StateRendered, Failure only when State is StateErrorDisplayed.
type Outcome struct {
	ID        string
	State     State
	Type      ml.TransactionType
	Vector    ml.FeatureVector
	Verdict   Verdict
	Failure   string
	Cached    bool
	CheckedAt time.Time
}

func (o Outcome) OK() bool {
	return o.State == StateRendered
}

func (o Outcome) Message() string {
	if o.State == StateErrorDisplayed {
		return "Prediction error: " + o.Failure
	}
	return o.Verdict.Headline()
}
