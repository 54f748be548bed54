package util

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gosuri/uilive"
)

// LiveView repaints the most recent text frame in place on a terminal, for
// watching an environment evolve step by step. It is a display sink only:
// callers push rendered frames, the view never owns simulation state.
type LiveView struct {
	mu    sync.Mutex
	frame string

	frequency time.Duration
	doneCh    chan struct{}

	writer *uilive.Writer
}

func NewLiveView(frequency time.Duration) *LiveView {
	return &LiveView{
		frequency: frequency,
		doneCh:    make(chan struct{}),
		writer:    uilive.New(),
	}
}

// SetOutput redirects repainted frames, which go to stdout by default.
// Call before Start.
func (v *LiveView) SetOutput(w io.Writer) {
	v.writer.Out = w
}

func (v *LiveView) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-v.doneCh:
				// paint the last frame before going away
				v.repaint()
				return
			case <-ctx.Done():
				return
			case <-time.After(v.frequency):
				v.repaint()
			}
		}
	}()
}

func (v *LiveView) Stop() {
	close(v.doneCh)
}

// SetFrame replaces the displayed frame (blocking).
func (v *LiveView) SetFrame(s string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.frame = s
}

// TrySetFrame replaces the displayed frame unless a repaint holds the lock
// (non-blocking).
func (v *LiveView) TrySetFrame(s string) bool {
	if v.mu.TryLock() {
		defer v.mu.Unlock()
		v.frame = s
		return true
	}
	return false
}

func (v *LiveView) repaint() {
	v.mu.Lock()
	frame := v.frame
	v.mu.Unlock()
	fmt.Fprint(v.writer, frame)
	v.writer.Flush()
}
