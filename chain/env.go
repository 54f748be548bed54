package chain

import (
	"log"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/zeu5/rl-worlds/core"
)

// 6 states on a line, from 0 to 5
const (
	totalStates = 6
	startState  = 1
	lastState   = totalStates - 1
)

// terminal payoff is 1/1 after visiting the last state, 1/100 otherwise
const (
	rewardVisited   = 1.0
	rewardUnvisited = 1.0 / 100.0
)

type ChainEnvConfig struct {
	// RawObservation switches the observation from a one-hot vector over
	// the six states to a single raw state index.
	RawObservation bool
	// Seed for the instance's random source, 0 seeds from the clock.
	Seed uint64
}

// ChainEnv is the noisy chain exploration benchmark: a 6 state, 2 action
// Markov chain with biased stochastic drift and an asymmetric terminal
// reward. Action 0 always moves left. Action 1 moves right only when a
// uniform roll exceeds 0.5 and the agent is not already at the last state,
// otherwise it moves left too. The episode ends the moment state 0 is
// reached, paying 1.0 when state 5 was visited during the episode and 0.01
// when it was not. All other transitions pay 0.
type ChainEnv struct {
	config           ChainEnvConfig
	actionSpace      *core.Discrete
	observationSpace core.Space
	rand             *rand.Rand

	state       int
	visitedLast bool
	done        bool
	warnedDone  bool
}

var _ core.Environment = &ChainEnv{}

func NewChainEnv(c ChainEnvConfig) *ChainEnv {
	seed := c.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	e := &ChainEnv{
		config:      c,
		actionSpace: core.NewDiscrete(2),
		rand:        rand.New(rand.NewSource(seed)),
	}
	if c.RawObservation {
		e.observationSpace = core.NewDiscrete(totalStates)
	} else {
		low := make([]float64, totalStates)
		high := make([]float64, totalStates)
		for i := range high {
			high[i] = 1
		}
		e.observationSpace = core.NewBox(low, high)
	}
	e.reset()
	return e
}

func (c *ChainEnv) ActionSpace() core.Space {
	return c.actionSpace
}

func (c *ChainEnv) ObservationSpace() core.Space {
	return c.observationSpace
}

func (c *ChainEnv) Seed(seed uint64) {
	c.rand = rand.New(rand.NewSource(seed))
}

func (c *ChainEnv) reset() {
	c.state = startState
	c.visitedLast = false
	c.done = false
	c.warnedDone = false
}

func (c *ChainEnv) Reset() (*mat.VecDense, error) {
	c.reset()
	return c.observation(), nil
}

func (c *ChainEnv) Step(action mat.Vector) (core.StepResult, error) {
	a, err := c.actionSpace.ActionValue(action)
	if err != nil {
		return core.StepResult{}, err
	}
	// a finished episode stays pinned at the terminal state
	if c.done {
		if !c.warnedDone {
			log.Printf("chain: Step called after the episode is done, call Reset to start a new episode")
			c.warnedDone = true
		}
		return core.StepResult{
			Observation: c.observation(),
			Done:        true,
			Info:        map[string]interface{}{},
		}, nil
	}

	if a == 0 {
		// going left
		c.state--
	} else {
		roll := c.rand.Float64()
		if roll > 0.5 && c.state != lastState {
			c.state++
		} else {
			c.state--
		}
	}

	if c.state == lastState {
		c.visitedLast = true
	}
	reward := 0.0
	if c.state == 0 {
		c.done = true
		reward = rewardUnvisited
		if c.visitedLast {
			reward = rewardVisited
		}
	}
	return core.StepResult{
		Observation: c.observation(),
		Reward:      reward,
		Done:        c.done,
		Info:        map[string]interface{}{},
	}, nil
}

func (c *ChainEnv) observation() *mat.VecDense {
	if c.config.RawObservation {
		return mat.NewVecDense(1, []float64{float64(c.state)})
	}
	buffer := make([]float64, totalStates)
	buffer[c.state] = 1.0
	return mat.NewVecDense(totalStates, buffer)
}

type ChainEnvConstructor struct {
	config ChainEnvConfig
}

var _ core.EnvironmentConstructor = &ChainEnvConstructor{}

func NewChainEnvConstructor(c ChainEnvConfig) *ChainEnvConstructor {
	return &ChainEnvConstructor{config: c}
}

// NewEnvironment derives a distinct seed per instance when the base config
// is seeded, so parallel rollouts get independent reproducible streams.
func (c *ChainEnvConstructor) NewEnvironment(instance int) core.Environment {
	config := c.config
	if config.Seed != 0 {
		config.Seed += uint64(instance)
	}
	return NewChainEnv(config)
}
