package resolution

import (
	"encoding/json"
	"slices"

	"github.com/matt-riley/moneycoach/internal/core"
)

// State tags the variant held by an [Outcome].
type State int

const (
	StateLoading State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "loading"
	}
}

// Outcome is exactly one of Loading, Ready(features) or Failed(message).
// Its fields are unexported so a value can only be built through the
// constructors; the zero value is Loading.
type Outcome struct {
	state    State
	features core.ResolvedFeatures
	message  string
}

// Loading returns the outcome of an attempt that has not settled.
func Loading() Outcome {
	return Outcome{state: StateLoading}
}

// Ready returns the outcome of a successful attempt. The name slice is copied.
func Ready(features core.ResolvedFeatures) Outcome {
	names := make([]string, len(features.Names))
	copy(names, features.Names)
	return Outcome{
		state:    StateReady,
		features: core.ResolvedFeatures{PartnerID: features.PartnerID, Names: names},
	}
}

// Failed returns the outcome of a failed attempt.
func Failed(message string) Outcome {
	return Outcome{state: StateFailed, message: message}
}

func (o Outcome) State() State {
	return o.state
}

// Features returns a copy of the resolved features when the outcome is Ready.
func (o Outcome) Features() (core.ResolvedFeatures, bool) {
	if o.state != StateReady {
		return core.ResolvedFeatures{}, false
	}
	return core.ResolvedFeatures{
		PartnerID: o.features.PartnerID,
		Names:     slices.Clone(o.features.Names),
	}, true
}

// EnabledNames returns the enabled feature names, or nil unless the outcome
// is Ready.
func (o Outcome) EnabledNames() []string {
	if o.state != StateReady {
		return nil
	}
	return slices.Clone(o.features.Names)
}

// Message returns the failure description when the outcome is Failed.
func (o Outcome) Message() (string, bool) {
	if o.state != StateFailed {
		return "", false
	}
	return o.message, true
}

// Equal reports whether o and other hold the same variant and payload.
func (o Outcome) Equal(other Outcome) bool {
	if o.state != other.state {
		return false
	}
	switch o.state {
	case StateReady:
		return o.features.PartnerID == other.features.PartnerID &&
			slices.Equal(o.features.Names, other.features.Names)
	case StateFailed:
		return o.message == other.message
	default:
		return true
	}
}

type outcomeJSON struct {
	State     string    `json:"state"`
	PartnerID string    `json:"partnerId,omitempty"`
	Features  *[]string `json:"features,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	out := outcomeJSON{State: o.state.String()}
	switch o.state {
	case StateReady:
		out.PartnerID = o.features.PartnerID
		names := o.features.Names
		if names == nil {
			names = []string{}
		}
		out.Features = &names
	case StateFailed:
		out.Error = o.message
	}
	return json.Marshal(out)
}
