package gridworld

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/zeu5/rl-worlds/core"
	"github.com/zeu5/rl-worlds/util"
)

const (
	actNorth = 0
	actSouth = 1
	actWest  = 2
	actEast  = 3
)

func gridAction(a int) mat.Vector {
	return mat.NewVecDense(1, []float64{float64(a)})
}

func newTestEnv(seed uint64) *GridWorldEnv {
	return NewGridWorldEnv(GridWorldEnvConfig{RoomSize: 3, RoomCount: 2, Seed: seed})
}

// park places the pieces directly for scripted transitions, keeping the
// generated doors.
func park(g *GridWorldEnv, player, key, car int) {
	g.player = player
	g.key = key
	g.car = car
	g.visitedKey = false
	g.steps = 0
}

func TestGridWorldDefaults(t *testing.T) {
	e := NewGridWorldEnv(GridWorldEnvConfig{Seed: 1})
	if e.side != defaultRoomSize*defaultRoomCount {
		t.Errorf("expected side %d, got %d", defaultRoomSize*defaultRoomCount, e.side)
	}
	if e.maxSteps != 2*e.side*e.side {
		t.Errorf("expected %d max steps, got %d", 2*e.side*e.side, e.maxSteps)
	}
	if e.ActionSpace().Size() != 1 {
		t.Errorf("expected a single component action space")
	}
	if !e.ActionSpace().Contains(gridAction(3)) || e.ActionSpace().Contains(gridAction(4)) {
		t.Errorf("expected exactly the actions 0 to 3")
	}
}

func TestGridWorldDoorsAreSymmetric(t *testing.T) {
	for seed := uint64(1); seed <= 25; seed++ {
		e := newTestEnv(seed)
		for a, neighbors := range e.doors {
			for _, b := range neighbors {
				if !e.allowed(b, a) {
					t.Fatalf("seed %d: door %d->%d has no reverse", seed, a, b)
				}
			}
		}
	}
}

func TestGridWorldDoorPairingMatchesDoors(t *testing.T) {
	for seed := uint64(1); seed <= 25; seed++ {
		e := newTestEnv(seed)
		rc := e.config.RoomCount
		want := 4 * (rc - 1) * rc
		if len(e.doorPairing) != want {
			t.Fatalf("seed %d: expected %d pairing entries, got %d", seed, want, len(e.doorPairing))
		}
		for i := 0; i < len(e.doorPairing); i += 2 {
			a, b := e.doorPairing[i], e.doorPairing[i+1]
			if !e.allowed(a, b) || !e.allowed(b, a) {
				t.Fatalf("seed %d: pairing (%d, %d) is not an open door", seed, a, b)
			}
			ax, ay := e.posToCoord(a)
			bx, by := e.posToCoord(b)
			if dx, dy := ax-bx, ay-by; dx*dx+dy*dy != 1 {
				t.Fatalf("seed %d: pairing (%d, %d) does not join adjacent cells", seed, a, b)
			}
		}
	}
}

func TestGridWorldDoorPlacement(t *testing.T) {
	e := newTestEnv(11)
	rs, rc := e.config.RoomSize, e.config.RoomCount
	// horizontal doors come first, one per room segment, then vertical
	for i := 0; i < rc; i++ {
		a, b := e.doorPairing[2*i], e.doorPairing[2*i+1]
		ax, ay := e.posToCoord(a)
		bx, by := e.posToCoord(b)
		if ay != rs || by != rs-1 || ax != bx {
			t.Errorf("horizontal door %d: expected endpoints stacked on the boundary, got (%d,%d)-(%d,%d)", i, ax, ay, bx, by)
		}
		if ax < i*rs || ax >= (i+1)*rs {
			t.Errorf("horizontal door %d: expected x in segment [%d, %d), got %d", i, i*rs, (i+1)*rs, ax)
		}
	}
	for i := 0; i < rc; i++ {
		a, b := e.doorPairing[2*rc+2*i], e.doorPairing[2*rc+2*i+1]
		ax, ay := e.posToCoord(a)
		bx, by := e.posToCoord(b)
		if ax != rs || bx != rs-1 || ay != by {
			t.Errorf("vertical door %d: expected endpoints side by side on the boundary, got (%d,%d)-(%d,%d)", i, ax, ay, bx, by)
		}
		if ay < i*rs || ay >= (i+1)*rs {
			t.Errorf("vertical door %d: expected y in segment [%d, %d), got %d", i, i*rs, (i+1)*rs, ay)
		}
	}
}

func TestGridWorldEdgeBump(t *testing.T) {
	e := newTestEnv(5)
	park(e, e.coordToPos(0, 0), e.coordToPos(5, 5), e.coordToPos(4, 5))
	for _, a := range []int{actNorth, actWest} {
		res, err := e.Step(gridAction(a))
		if err != nil {
			t.Fatalf("step: %v", err)
		}
		if res.Reward != rewardBump {
			t.Errorf("action %d: expected reward %v, got %v", a, rewardBump, res.Reward)
		}
		if e.player != e.coordToPos(0, 0) {
			t.Errorf("action %d: expected the player to stay put", a)
		}
		if res.Done {
			t.Errorf("action %d: expected the episode to continue", a)
		}
	}
}

func TestGridWorldDoorlessBorderBump(t *testing.T) {
	e := newTestEnv(9)
	rs := e.config.RoomSize
	doorX, plainX := -1, -1
	for x := 0; x < rs; x++ {
		if e.allowed(e.coordToPos(x, rs), e.coordToPos(x, rs-1)) {
			doorX = x
		} else {
			plainX = x
		}
	}
	if doorX < 0 || plainX < 0 {
		t.Fatalf("expected the first boundary segment to have a door and a wall")
	}

	park(e, e.coordToPos(plainX, rs), e.coordToPos(5, 5), e.coordToPos(4, 5))
	res, err := e.Step(gridAction(actNorth))
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if res.Reward != rewardBump {
		t.Errorf("expected reward %v on a doorless border, got %v", rewardBump, res.Reward)
	}
	if e.player != e.coordToPos(plainX, rs) {
		t.Errorf("expected the player to stay put")
	}

	park(e, e.coordToPos(doorX, rs), e.coordToPos(5, 5), e.coordToPos(4, 5))
	res, err = e.Step(gridAction(actNorth))
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if res.Reward != 0 {
		t.Errorf("expected free passage through the door, got reward %v", res.Reward)
	}
	if e.player != e.coordToPos(doorX, rs-1) {
		t.Errorf("expected the player through the door")
	}
}

func TestGridWorldKeyThenCar(t *testing.T) {
	e := newTestEnv(13)
	park(e, e.coordToPos(1, 1), e.coordToPos(1, 2), e.coordToPos(1, 0))

	res, err := e.Step(gridAction(actSouth))
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if res.Reward != rewardKey {
		t.Errorf("expected reward %v for the key, got %v", rewardKey, res.Reward)
	}
	if !e.visitedKey || e.key != pickedUp {
		t.Errorf("expected the key collected")
	}
	if res.Observation.AtVec(1) != pickedUp {
		t.Errorf("expected the key marked picked up in the observation, got %v", res.Observation.AtVec(1))
	}

	res, err = e.Step(gridAction(actNorth))
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if res.Reward != 0 || res.Done {
		t.Fatalf("expected a plain move, got reward %v done %v", res.Reward, res.Done)
	}

	res, err = e.Step(gridAction(actNorth))
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if res.Reward != rewardCar {
		t.Errorf("expected reward %v for the car, got %v", rewardCar, res.Reward)
	}
	if !res.Done {
		t.Errorf("expected the episode to end at the car")
	}
	if e.car != pickedUp {
		t.Errorf("expected the car collected")
	}

	if _, err := e.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if e.steps != 0 || e.visitedKey {
		t.Errorf("expected fresh counters after reset")
	}
	if e.key == pickedUp || e.car == pickedUp {
		t.Errorf("expected fresh pieces after reset")
	}
}

func TestGridWorldCarNeedsKey(t *testing.T) {
	e := newTestEnv(15)
	park(e, e.coordToPos(1, 1), e.coordToPos(5, 5), e.coordToPos(1, 2))
	res, err := e.Step(gridAction(actSouth))
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if res.Reward != 0 || res.Done {
		t.Errorf("expected the car untouchable without the key, got reward %v done %v", res.Reward, res.Done)
	}
	if e.car == pickedUp {
		t.Errorf("expected the car still in place")
	}
	if e.player != e.coordToPos(1, 2) {
		t.Errorf("expected the player standing on the car cell")
	}
}

func TestGridWorldKeyAndCarOnSameCell(t *testing.T) {
	e := newTestEnv(17)
	target := e.coordToPos(1, 2)
	park(e, e.coordToPos(1, 1), target, target)
	res, err := e.Step(gridAction(actSouth))
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if want := rewardKey + rewardCar; res.Reward != want {
		t.Errorf("expected reward %v, got %v", want, res.Reward)
	}
	if !res.Done {
		t.Errorf("expected the episode to end")
	}
	if e.key != pickedUp || e.car != pickedUp {
		t.Errorf("expected both pickups collected")
	}
}

func TestGridWorldKeyOverwritesBumpPenalty(t *testing.T) {
	e := newTestEnv(19)
	corner := e.coordToPos(0, 0)
	park(e, corner, corner, e.coordToPos(5, 5))
	res, err := e.Step(gridAction(actNorth))
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if res.Reward != rewardKey {
		t.Errorf("expected the key pickup to overwrite the bump penalty, got %v", res.Reward)
	}
	if e.player != corner || !e.visitedKey {
		t.Errorf("expected the player bumped in place with the key collected")
	}
}

func TestGridWorldTimeout(t *testing.T) {
	e := NewGridWorldEnv(GridWorldEnvConfig{RoomSize: 3, RoomCount: 1, Seed: 21})
	if len(e.doors) != 0 || len(e.doorPairing) != 0 {
		t.Fatalf("expected a single room without doors")
	}
	obs, err := e.Reset()
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if obs.Len() != 3 {
		t.Fatalf("expected 3 observation components, got %d", obs.Len())
	}

	park(e, e.coordToPos(0, 0), e.coordToPos(2, 2), e.coordToPos(2, 0))
	for i := 1; i <= e.maxSteps; i++ {
		res, err := e.Step(gridAction(actWest))
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if res.Done {
			t.Fatalf("expected the episode still running at step %d", i)
		}
		if res.Reward != rewardBump {
			t.Fatalf("step %d: expected a bump, got reward %v", i, res.Reward)
		}
	}
	res, err := e.Step(gridAction(actWest))
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if !res.Done {
		t.Errorf("expected the episode to end once the step count exceeds %d", e.maxSteps)
	}
}

func TestGridWorldInvalidAction(t *testing.T) {
	e := newTestEnv(23)
	before := e.player
	invalid := []mat.Vector{
		nil,
		gridAction(4),
		gridAction(-1),
		mat.NewVecDense(2, []float64{0, 1}),
		mat.NewVecDense(1, []float64{1.5}),
	}
	for i, v := range invalid {
		if _, err := e.Step(v); !errors.Is(err, core.ErrInvalidAction) {
			t.Errorf("case %d: expected an invalid action error, got %v", i, err)
		}
	}
	if e.steps != 0 {
		t.Errorf("expected rejected actions to not consume steps, got %d", e.steps)
	}
	if e.player != before {
		t.Errorf("expected the player unmoved")
	}
}

func TestGridWorldObservationLayout(t *testing.T) {
	e := newTestEnv(35)
	obs, err := e.Reset()
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	wantLen := 3 + len(e.doorPairing)
	if obs.Len() != wantLen {
		t.Fatalf("expected %d observation components, got %d", wantLen, obs.Len())
	}
	if e.ObservationSpace().Size() != wantLen {
		t.Errorf("expected observation space size %d, got %d", wantLen, e.ObservationSpace().Size())
	}
	if int(obs.AtVec(0)) != e.player || int(obs.AtVec(1)) != e.key || int(obs.AtVec(2)) != e.car {
		t.Errorf("expected the player, key and car positions up front")
	}
	for i, p := range e.doorPairing {
		if int(obs.AtVec(3+i)) != p {
			t.Errorf("pairing %d: expected %d, got %v", i, p, obs.AtVec(3+i))
		}
	}
	if !e.ObservationSpace().Contains(obs) {
		t.Errorf("expected the observation inside the observation space")
	}
}

func TestGridWorldSeedReproducible(t *testing.T) {
	first := newTestEnv(31)
	second := newTestEnv(31)
	if util.JsonHash(first.Snapshot()) != util.JsonHash(second.Snapshot()) {
		t.Fatalf("expected identical mazes from the same seed")
	}
	first.Seed(77)
	second.Seed(77)
	if _, err := first.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := second.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if util.JsonHash(first.Snapshot()) != util.JsonHash(second.Snapshot()) {
		t.Fatalf("expected identical mazes after reseeding")
	}
}

func TestGridWorldSnapshotIsolation(t *testing.T) {
	e := newTestEnv(33)
	s := e.Snapshot()
	s.DoorPairing[0] = -42
	for k := range s.Doors {
		s.Doors[k][0] = -42
		break
	}
	if e.doorPairing[0] == -42 {
		t.Errorf("expected the pairing copied")
	}
	for _, neighbors := range e.doors {
		for _, n := range neighbors {
			if n == -42 {
				t.Errorf("expected the door map copied")
			}
		}
	}
}

func TestGridWorldConstructorDerivesSeeds(t *testing.T) {
	ctor := NewGridWorldEnvConstructor(GridWorldEnvConfig{RoomSize: 3, RoomCount: 2, Seed: 50})
	derived := ctor.NewEnvironment(2)
	direct := NewGridWorldEnv(GridWorldEnvConfig{RoomSize: 3, RoomCount: 2, Seed: 52})
	obs, err := derived.Reset()
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	want, err := direct.Reset()
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !mat.Equal(obs, want) {
		t.Fatalf("expected instance 2 to reproduce a fresh environment seeded with 52")
	}
}
