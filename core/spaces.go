package core

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/zeu5/rl-worlds/util"
)

// Space describes the domain of the actions or observations of an
// environment, so that callers can validate or clip inputs before stepping.
type Space interface {
	// Contains reports whether v is an element of the space.
	Contains(v mat.Vector) bool
	// Size is the number of components of an element of the space.
	Size() int
	// Sample draws a uniform random element of the space.
	Sample(rng *rand.Rand) *mat.VecDense
}

// Discrete is the space of choices {0, 1, ..., N-1}, carried on the wire as
// length-1 vectors holding an integer-valued component.
type Discrete struct {
	N int
}

var _ Space = &Discrete{}

func NewDiscrete(n int) *Discrete {
	return &Discrete{N: n}
}

func (d *Discrete) Size() int {
	return 1
}

func (d *Discrete) Contains(v mat.Vector) bool {
	if v == nil {
		return false
	}
	_, err := d.ActionValue(v)
	return err == nil
}

// ActionValue validates v and extracts the choice it encodes. The error
// wraps ErrInvalidAction.
func (d *Discrete) ActionValue(v mat.Vector) (int, error) {
	if v == nil {
		return 0, fmt.Errorf("%w: nil action", ErrInvalidAction)
	}
	if v.Len() != 1 {
		return 0, fmt.Errorf("%w: expected 1 component, got %d", ErrInvalidAction, v.Len())
	}
	f := v.AtVec(0)
	a := int(f)
	if float64(a) != f || a < 0 || a >= d.N {
		return 0, fmt.Errorf("%w: %v is not in [0, %d)", ErrInvalidAction, f, d.N)
	}
	return a, nil
}

func (d *Discrete) Sample(rng *rand.Rand) *mat.VecDense {
	return mat.NewVecDense(1, []float64{float64(rng.Intn(d.N))})
}

// Box is an elementwise bounded continuous space.
type Box struct {
	Low  *mat.VecDense
	High *mat.VecDense
}

var _ Space = &Box{}

// NewBox copies the bounds. Panics when the bounds differ in length.
func NewBox(low, high []float64) *Box {
	if len(low) != len(high) {
		panic("box bounds differ in length")
	}
	l := make([]float64, len(low))
	h := make([]float64, len(high))
	copy(l, low)
	copy(h, high)
	return &Box{
		Low:  mat.NewVecDense(len(l), l),
		High: mat.NewVecDense(len(h), h),
	}
}

func (b *Box) Size() int {
	return b.Low.Len()
}

func (b *Box) Contains(v mat.Vector) bool {
	if v == nil || v.Len() != b.Size() {
		return false
	}
	for i := 0; i < v.Len(); i++ {
		f := v.AtVec(i)
		if math.IsNaN(f) || f < b.Low.AtVec(i) || f > b.High.AtVec(i) {
			return false
		}
	}
	return true
}

// Clip projects v into the box component by component. Only the shape is
// validated, the error wraps ErrInvalidAction.
func (b *Box) Clip(v mat.Vector) (*mat.VecDense, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil action", ErrInvalidAction)
	}
	if v.Len() != b.Size() {
		return nil, fmt.Errorf("%w: expected %d components, got %d", ErrInvalidAction, b.Size(), v.Len())
	}
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = util.ClipFloat(v.AtVec(i), b.Low.AtVec(i), b.High.AtVec(i))
	}
	return mat.NewVecDense(len(out), out), nil
}

func (b *Box) Sample(rng *rand.Rand) *mat.VecDense {
	out := make([]float64, b.Size())
	for i := range out {
		u := distuv.Uniform{Min: b.Low.AtVec(i), Max: b.High.AtVec(i), Src: rng}
		out[i] = u.Rand()
	}
	return mat.NewVecDense(len(out), out)
}
