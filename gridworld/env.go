package gridworld

import (
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/zeu5/rl-worlds/core"
	"github.com/zeu5/rl-worlds/util"
)

// key reward: +10
// key + car reward: +40 on top of the key reward
// bumping into a wall or a doorless border: -2
const (
	rewardBump = -2.0
	rewardKey  = 10.0
	rewardCar  = 40.0
)

const (
	defaultRoomSize  = 3
	defaultRoomCount = 2

	// pickedUp marks a collected key or car position.
	pickedUp = -1
)

// N, S, W, E
var actionMoves = [4][2]int{{0, -1}, {0, 1}, {-1, 0}, {1, 0}}

type GridWorldEnvConfig struct {
	// RoomSize is the width and height of one room in cells, 0 defaults
	// to 3.
	RoomSize int
	// RoomCount is the number of rooms per side, 0 defaults to 2. A count
	// of 1 is a valid maze with no doors.
	RoomCount int
	// Seed for the instance's random source, 0 seeds from the clock.
	Seed uint64
}

// GridWorldEnv is the multi-room maze benchmark described in
// https://arxiv.org/abs/1810.10096. The grid is RoomCount*RoomCount rooms of
// RoomSize*RoomSize cells. On every reset the player, a key and a car are
// placed uniformly at random and every internal room boundary gets one
// randomly offset door per room segment. Crossing a boundary is only
// possible through a door. Picking up the key pays +10. Reaching the car
// afterwards pays +40 more and ends the episode. Bumping into the grid edge
// or a doorless border pays -2. The episode also ends once the step counter
// exceeds twice the cell count. Cell positions are encoded as x + side*y.
type GridWorldEnv struct {
	config           GridWorldEnvConfig
	side             int
	maxSteps         int
	actionSpace      *core.Discrete
	observationSpace *core.Box
	rand             *rand.Rand

	player      int
	key         int
	car         int
	doors       map[int][]int
	doorPairing []int
	visitedKey  bool
	steps       int
}

var _ core.Environment = &GridWorldEnv{}

func NewGridWorldEnv(c GridWorldEnvConfig) *GridWorldEnv {
	if c.RoomSize <= 0 {
		c.RoomSize = defaultRoomSize
	}
	if c.RoomCount <= 0 {
		c.RoomCount = defaultRoomCount
	}
	seed := c.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	side := c.RoomSize * c.RoomCount
	e := &GridWorldEnv{
		config:      c,
		side:        side,
		maxSteps:    2 * side * side,
		actionSpace: core.NewDiscrete(len(actionMoves)),
		rand:        rand.New(rand.NewSource(seed)),
	}
	e.generate()

	// player, key, car positions followed by the door pairing
	obsLen := 3 + len(e.doorPairing)
	low := make([]float64, obsLen)
	high := make([]float64, obsLen)
	for i := range low {
		low[i] = pickedUp
		high[i] = float64(side*side - 1)
	}
	e.observationSpace = core.NewBox(low, high)
	return e
}

func (g *GridWorldEnv) ActionSpace() core.Space {
	return g.actionSpace
}

func (g *GridWorldEnv) ObservationSpace() core.Space {
	return g.observationSpace
}

func (g *GridWorldEnv) Seed(seed uint64) {
	g.rand = rand.New(rand.NewSource(seed))
}

func (g *GridWorldEnv) coordToPos(x, y int) int {
	return x + g.side*y
}

func (g *GridWorldEnv) posToCoord(pos int) (int, int) {
	return pos % g.side, pos / g.side
}

func (g *GridWorldEnv) randomCell() int {
	x := g.rand.Intn(g.side)
	y := g.rand.Intn(g.side)
	return g.coordToPos(x, y)
}

// generate draws a fresh maze. Placements may collide, that is allowed and
// not corrected. The draw order (player, key, car, then horizontal and
// vertical doors) is fixed so a seeded instance reproduces the same maze.
func (g *GridWorldEnv) generate() {
	g.player = g.randomCell()
	g.key = g.randomCell()
	g.car = g.randomCell()

	g.doors = make(map[int][]int)
	g.doorPairing = make([]int, 0)
	// one door per room segment on every internal boundary
	for hor := 0; hor < g.config.RoomCount-1; hor++ {
		for i := 0; i < g.config.RoomCount; i++ {
			x := g.rand.Intn(g.config.RoomSize) + i*g.config.RoomSize
			y := (hor + 1) * g.config.RoomSize
			g.addDoor(g.coordToPos(x, y), g.coordToPos(x, y-1))
		}
	}
	for vert := 0; vert < g.config.RoomCount-1; vert++ {
		for i := 0; i < g.config.RoomCount; i++ {
			x := (vert + 1) * g.config.RoomSize
			y := g.rand.Intn(g.config.RoomSize) + i*g.config.RoomSize
			g.addDoor(g.coordToPos(x, y), g.coordToPos(x-1, y))
		}
	}

	g.visitedKey = false
	g.steps = 0
}

// addDoor records both directions in the door map and appends the two
// endpoints to the ordered pairing that is part of the observation.
func (g *GridWorldEnv) addDoor(a, b int) {
	g.doors[a] = append(g.doors[a], b)
	g.doors[b] = append(g.doors[b], a)
	g.doorPairing = append(g.doorPairing, a, b)
}

func (g *GridWorldEnv) allowed(pos, newPos int) bool {
	for _, d := range g.doors[pos] {
		if d == newPos {
			return true
		}
	}
	return false
}

// crossesBoundary reports whether moving from (px, py) to the adjacent
// (nx, ny) wraps across a room-size multiple in the travel direction.
func (g *GridWorldEnv) crossesBoundary(px, py, nx, ny int) bool {
	rs := g.config.RoomSize
	return (px%rs == 0 && nx%rs == rs-1) ||
		(px%rs == rs-1 && nx%rs == 0) ||
		(py%rs == 0 && ny%rs == rs-1) ||
		(py%rs == rs-1 && ny%rs == 0)
}

func (g *GridWorldEnv) Reset() (*mat.VecDense, error) {
	g.generate()
	return g.observation(), nil
}

func (g *GridWorldEnv) Step(action mat.Vector) (core.StepResult, error) {
	a, err := g.actionSpace.ActionValue(action)
	if err != nil {
		return core.StepResult{}, err
	}
	g.steps++
	done := false
	reward := 0.0

	move := actionMoves[a]
	px, py := g.posToCoord(g.player)
	nx, ny := px+move[0], py+move[1]

	if nx < 0 || nx >= g.side || ny < 0 || ny >= g.side {
		// can't leave the grid
		reward = rewardBump
	} else if g.crossesBoundary(px, py, nx, ny) {
		// on a border, crossing needs a door
		newPos := g.coordToPos(nx, ny)
		if g.allowed(g.player, newPos) {
			g.player = newPos
		} else {
			reward = rewardBump
		}
	} else {
		g.player = g.coordToPos(nx, ny)
	}

	// pickups, in this order: the key overwrites the move reward, the car
	// adds on top of whatever reward stands
	if g.player == g.key {
		g.key = pickedUp
		g.visitedKey = true
		reward = rewardKey
	}
	if g.player == g.car && g.visitedKey {
		g.car = pickedUp
		reward += rewardCar
		done = true
	}

	if g.steps > g.maxSteps {
		done = true
	}

	return core.StepResult{
		Observation: g.observation(),
		Reward:      reward,
		Done:        done,
		Info:        map[string]interface{}{},
	}, nil
}

func (g *GridWorldEnv) observation() *mat.VecDense {
	data := make([]float64, 3+len(g.doorPairing))
	data[0] = float64(g.player)
	data[1] = float64(g.key)
	data[2] = float64(g.car)
	for i, p := range g.doorPairing {
		data[3+i] = float64(p)
	}
	return mat.NewVecDense(len(data), data)
}

// Snapshot is a deep copy of the visible environment state, safe to hold
// across steps. Renderers consume snapshots, never the environment itself.
type Snapshot struct {
	RoomSize    int
	RoomCount   int
	Player      int
	Key         int
	Car         int
	Doors       map[int][]int
	DoorPairing []int
	VisitedKey  bool
	Steps       int
}

func (g *GridWorldEnv) Snapshot() Snapshot {
	return Snapshot{
		RoomSize:    g.config.RoomSize,
		RoomCount:   g.config.RoomCount,
		Player:      g.player,
		Key:         g.key,
		Car:         g.car,
		Doors:       util.CopyIntSliceMap(g.doors),
		DoorPairing: util.CopyIntSlice(g.doorPairing),
		VisitedKey:  g.visitedKey,
		Steps:       g.steps,
	}
}

type GridWorldEnvConstructor struct {
	config GridWorldEnvConfig
}

var _ core.EnvironmentConstructor = &GridWorldEnvConstructor{}

func NewGridWorldEnvConstructor(c GridWorldEnvConfig) *GridWorldEnvConstructor {
	return &GridWorldEnvConstructor{config: c}
}

// NewEnvironment derives a distinct seed per instance when the base config
// is seeded, so parallel rollouts get independent reproducible mazes.
func (g *GridWorldEnvConstructor) NewEnvironment(instance int) core.Environment {
	config := g.config
	if config.Seed != 0 {
		config.Seed += uint64(instance)
	}
	return NewGridWorldEnv(config)
}
