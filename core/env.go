package core

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrInvalidAction = errors.New("invalid action")
)

// StepResult is the outcome of one environment transition. Info is reserved
// for diagnostic data; successful steps always return it non-nil, possibly
// empty.
type StepResult struct {
	Observation *mat.VecDense
	Reward      float64
	Done        bool
	Info        map[string]interface{}
}

// Environment is the interaction contract shared by all simulators. An
// instance owns all of its episode state and its random source, and is meant
// for exclusive use by one episode loop at a time. Calls on the same instance
// must be serialized by the caller.
type Environment interface {
	// Reset reinitializes all episode state from the instance's randomness
	// and returns the initial observation. Callable repeatedly, leaves no
	// residue from the previous episode.
	Reset() (*mat.VecDense, error)
	// Step applies one action and returns the transition outcome. Discrete
	// environments reject actions outside their space with an error wrapping
	// ErrInvalidAction, continuous environments clip in-shape actions to
	// their bounds. Stepping a finished episode is tolerated but the
	// returned values are not meaningful, callers should Reset instead.
	Step(mat.Vector) (StepResult, error)
	// ActionSpace declares the action domain. Queryable before any Step.
	ActionSpace() Space
	// ObservationSpace declares the observation domain. Queryable before
	// any Step.
	ObservationSpace() Space
	// Seed replaces the instance's random source. Instances never share
	// randomness, seeding one has no effect on any other.
	Seed(uint64)
}

type EnvironmentConstructor interface {
	// NewEnvironment creates a new environment with the given instance number.
	NewEnvironment(int) Environment
}
