package pointmaze

import (
	"log"
	"math"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/zeu5/rl-worlds/core"
)

// every step costs 0.1, reaching the goal cell pays +100 once
const (
	rewardStep = -0.1
	rewardGoal = 100.0
)

const (
	defaultScalingFactor = 4.0
	defaultMaxSteps      = 500

	// maxTurn caps the per-step heading change.
	maxTurn = math.Pi / 4
)

type cell int

const (
	cellFloor cell = iota
	cellWall
	cellGoal
)

// row 0 is the top of the maze, the agent's y axis grows upward
var defaultMaze = [][]cell{
	{cellWall, cellWall, cellWall, cellWall, cellWall},
	{cellWall, cellGoal, cellFloor, cellFloor, cellWall},
	{cellWall, cellWall, cellWall, cellFloor, cellWall},
	{cellWall, cellFloor, cellFloor, cellFloor, cellWall},
	{cellWall, cellWall, cellWall, cellWall, cellWall},
}

type PointMazeEnvConfig struct {
	// ScalingFactor caps the per-step displacement at 1/ScalingFactor,
	// 0 defaults to 4.
	ScalingFactor float64
	// MaxSteps bounds the time component of the observation space only,
	// never the dynamics, 0 defaults to 500. The episode time limit is
	// left to the caller.
	MaxSteps int
	// Seed for the instance's random source, 0 seeds from the clock.
	Seed uint64
}

// PointMazeEnv is a small and fast PointMaze in the AntMaze family. The
// agent is a point with pose (x, y, theta) in a fixed 5x5 cell maze. An
// action is (ds, dtheta): a forward displacement of at most 1/ScalingFactor
// and a turn of at most pi/4, both clipped into bounds. Orientation 0 moves
// the point right and grows anti-clockwise. A move that would land in a
// wall cell is discarded while the turn is kept. Reaching the goal cell
// ends the episode with a +100 bonus on top of the step cost. The
// environment counts as solved at an average reward of 90 over the latest
// 100 episodes, with the recommended caller limit of 500 steps at scaling
// factor 4.
type PointMazeEnv struct {
	config           PointMazeEnvConfig
	maze             [][]cell
	mazeWidth        int
	mazeHeight       int
	startX           float64
	startY           float64
	startTheta       float64
	actionSpace      *core.Box
	observationSpace *core.Box
	rand             *rand.Rand

	x     float64
	y     float64
	theta float64

	episodeSteps int
	// stepsBeyondDone is -1 until the goal is reached, 0 on the step that
	// reaches it and incremented on every Step after that.
	stepsBeyondDone int
}

var _ core.Environment = &PointMazeEnv{}

func NewPointMazeEnv(c PointMazeEnvConfig) *PointMazeEnv {
	if c.ScalingFactor <= 0 {
		c.ScalingFactor = defaultScalingFactor
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = defaultMaxSteps
	}
	seed := c.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	maxDist := 1.0 / c.ScalingFactor
	e := &PointMazeEnv{
		config:     c,
		maze:       defaultMaze,
		mazeWidth:  len(defaultMaze[0]),
		mazeHeight: len(defaultMaze),
		startX:     1.5,
		startY:     1.5,
		startTheta: 0,
		rand:       rand.New(rand.NewSource(seed)),
	}
	e.actionSpace = core.NewBox(
		[]float64{-maxDist, -maxTurn},
		[]float64{maxDist, maxTurn},
	)
	e.observationSpace = core.NewBox(
		[]float64{-e.startX, -e.startY, 0, 0},
		[]float64{
			float64(e.mazeWidth) - e.startX,
			float64(e.mazeHeight) - e.startY,
			1,
			float64(c.MaxSteps) / 10,
		},
	)
	e.reset()
	return e
}

func (p *PointMazeEnv) ActionSpace() core.Space {
	return p.actionSpace
}

func (p *PointMazeEnv) ObservationSpace() core.Space {
	return p.observationSpace
}

func (p *PointMazeEnv) Seed(seed uint64) {
	p.rand = rand.New(rand.NewSource(seed))
}

func (p *PointMazeEnv) reset() {
	jitter := distuv.Uniform{Min: -0.1, Max: 0.1, Src: p.rand}
	p.x = p.startX + jitter.Rand()
	p.y = p.startY + jitter.Rand()
	p.theta = wrapAngle(p.startTheta + jitter.Rand())
	p.episodeSteps = 0
	p.stepsBeyondDone = -1
}

func (p *PointMazeEnv) Reset() (*mat.VecDense, error) {
	p.reset()
	return p.observation(), nil
}

func (p *PointMazeEnv) Step(action mat.Vector) (core.StepResult, error) {
	clipped, err := p.actionSpace.Clip(action)
	if err != nil {
		return core.StepResult{}, err
	}
	p.episodeSteps++

	ds := clipped.AtVec(0)
	dtheta := clipped.AtVec(1)

	// the turn commits regardless of what happens to the move
	p.theta = wrapAngle(p.theta + dtheta)
	x := p.x + math.Cos(p.theta)*ds
	y := p.y + math.Sin(p.theta)*ds
	if !p.collides(x, y, cellWall) {
		p.x = x
		p.y = y
	}

	done := p.collides(p.x, p.y, cellGoal)

	reward := rewardStep
	if done && p.stepsBeyondDone < 0 {
		// solved the maze
		reward += rewardGoal
		p.stepsBeyondDone = 0
	} else if p.stepsBeyondDone >= 0 {
		if p.stepsBeyondDone == 0 {
			log.Printf("pointmaze: Step called after the episode is done, call Reset to start a new episode")
		}
		p.stepsBeyondDone++
	}

	return core.StepResult{
		Observation: p.observation(),
		Reward:      reward,
		Done:        done,
		Info:        map[string]interface{}{},
	}, nil
}

// collides reports whether (x, y) falls in a cell of the given kind. Rows
// are flipped on lookup because row 0 of the maze is the top while the y
// axis grows upward. Leaving the grid counts as colliding.
func (p *PointMazeEnv) collides(x, y float64, kind cell) bool {
	cx := int(math.Floor(x))
	cy := int(math.Floor(y))
	if cx >= 0 && cx < p.mazeWidth && cy >= 0 && cy < p.mazeHeight {
		return p.maze[p.mazeHeight-1-cy][cx] == kind
	}
	return true
}

// observation is the pose relative to the nominal start with the heading
// normalized to [0, 1], followed by the elapsed steps divided by 10.
func (p *PointMazeEnv) observation() *mat.VecDense {
	return mat.NewVecDense(4, []float64{
		p.x - p.startX,
		p.y - p.startY,
		(p.theta - p.startTheta) / (2 * math.Pi),
		float64(p.episodeSteps) / 10,
	})
}

// wrapAngle normalizes an angle to [0, 2pi).
func wrapAngle(t float64) float64 {
	t = math.Mod(t, 2*math.Pi)
	if t < 0 {
		t += 2 * math.Pi
	}
	return t
}

type PointMazeEnvConstructor struct {
	config PointMazeEnvConfig
}

var _ core.EnvironmentConstructor = &PointMazeEnvConstructor{}

func NewPointMazeEnvConstructor(c PointMazeEnvConfig) *PointMazeEnvConstructor {
	return &PointMazeEnvConstructor{config: c}
}

// NewEnvironment derives a distinct seed per instance when the base config
// is seeded, so parallel rollouts get independent reproducible streams.
func (p *PointMazeEnvConstructor) NewEnvironment(instance int) core.Environment {
	config := p.config
	if config.Seed != 0 {
		config.Seed += uint64(instance)
	}
	return NewPointMazeEnv(config)
}
