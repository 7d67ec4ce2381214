package display

import (
	"github.com/sweeney/growbox/internal/policy"
	"github.com/sweeney/growbox/internal/sensor"
)

// FakeRenderer records rendered frames for test assertions.
type FakeRenderer struct {
	// Frames contains the formatted lines of every Render call.
	Frames [][2]string

	// RenderError, if set, will be returned by Render.
	RenderError error
}

// NewFakeRenderer creates a FakeRenderer.
func NewFakeRenderer() *FakeRenderer {
	return &FakeRenderer{}
}

// Render records the frame.
func (f *FakeRenderer) Render(snap sensor.Snapshot, state policy.ActuatorState) error {
	if f.RenderError != nil {
		return f.RenderError
	}
	f.Frames = append(f.Frames, FormatLines(snap, state))
	return nil
}

// Last returns the most recent frame, or empty lines if nothing was rendered.
func (f *FakeRenderer) Last() [2]string {
	if len(f.Frames) == 0 {
		return [2]string{}
	}
	return f.Frames[len(f.Frames)-1]
}
