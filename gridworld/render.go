package gridworld

import (
	"io"
	"strings"

	"github.com/logrusorgru/aurora"
)

// Renderer formats textual frames of a grid world snapshot. Player, key, car
// and door cells print as P, K, C and D over a . floor, rooms are framed
// with | and _ borders. Frames pair well with util.LiveView for watching an
// episode in place.
type Renderer struct {
	w  io.Writer
	au aurora.Aurora
}

// NewRenderer writes plain frames to w, or ANSI colored ones when color is
// set.
func NewRenderer(w io.Writer, color bool) *Renderer {
	return &Renderer{
		w:  w,
		au: aurora.NewAurora(color),
	}
}

// Frame formats one snapshot as a multi-line string.
func (r *Renderer) Frame(s Snapshot) string {
	var b strings.Builder
	rs, rc := s.RoomSize, s.RoomCount
	side := rs * rc

	b.WriteString("|")
	b.WriteString(strings.Repeat("_", side+rc-1))
	b.WriteString("|\n")
	for ry := 0; ry < rc; ry++ {
		for y := 0; y < rs; y++ {
			b.WriteString("|")
			for rx := 0; rx < rc; rx++ {
				for x := 0; x < rs; x++ {
					pos := x + rx*rs + side*(y+ry*rs)
					b.WriteString(r.glyph(s, pos))
				}
				b.WriteString("|")
			}
			b.WriteString("\n")
		}
		b.WriteString("|")
		for rx := 0; rx < rc; rx++ {
			b.WriteString(strings.Repeat("_", rs))
			b.WriteString("|")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (r *Renderer) glyph(s Snapshot, pos int) string {
	switch {
	case pos == s.Player:
		return r.au.Green("P").String()
	case pos == s.Key:
		return r.au.Yellow("K").String()
	case pos == s.Car:
		return r.au.Cyan("C").String()
	default:
		if _, ok := s.Doors[pos]; ok {
			return r.au.White("D").String()
		}
		return "."
	}
}

// Render writes one frame to the renderer's writer.
func (r *Renderer) Render(s Snapshot) error {
	_, err := io.WriteString(r.w, r.Frame(s))
	return err
}
