package grapple

import (
	"encoding/json"
	"fmt"
)

// scriptStep represents a single action in a gesture script.
type scriptStep struct {
	Action string       `json:"action"`
	X      float64      `json:"x,omitempty"`
	Y      float64      `json:"y,omitempty"`
	FromX  float64      `json:"fromX,omitempty"`
	FromY  float64      `json:"fromY,omitempty"`
	ToX    float64      `json:"toX,omitempty"`
	ToY    float64      `json:"toY,omitempty"`
	Frames int          `json:"frames,omitempty"`
	Files  []scriptFile `json:"files,omitempty"`
}

// scriptFile describes a file carried by a scripted "dropfiles" step.
// Scripted drops carry names and sizes only; their contents cannot be
// opened.
type scriptFile struct {
	Name string `json:"name"`
	Size int64  `json:"size,omitempty"`
}

// gestureScript is the top-level JSON structure for a gesture script.
type gestureScript struct {
	Steps []scriptStep `json:"steps"`
}

// ScriptRunner sequences injected gestures across frames for automated
// testing and replays. Attach to a Driver via SetScript; each step waits
// for the previously queued frames to drain before firing.
//
// Supported actions: "click" (x, y), "drag" (fromX, fromY, toX, toY,
// frames), "dropfiles" (x, y, files) and "wait" (frames).
type ScriptRunner struct {
	steps     []scriptStep
	cursor    int
	waitCount int
	done      bool
}

// LoadScript parses a JSON gesture script and returns a ScriptRunner
// ready to be attached to a Driver via SetScript.
func LoadScript(jsonData []byte) (*ScriptRunner, error) {
	var script gestureScript
	if err := json.Unmarshal(jsonData, &script); err != nil {
		return nil, fmt.Errorf("parse gesture script: %w", err)
	}
	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("parse gesture script: no steps")
	}
	return &ScriptRunner{steps: script.Steps}, nil
}

// SetScript attaches a gesture script to the driver. The runner's step
// method is called from Update before the frame's input is read.
func (d *Driver) SetScript(runner *ScriptRunner) {
	d.script = runner
}

// Done reports whether all steps in the script have been executed.
func (r *ScriptRunner) Done() bool {
	return r.done
}

// step advances the runner by one frame. Called from Driver.Update.
func (r *ScriptRunner) step(d *Driver) {
	if r.done {
		return
	}
	// Wait for pending injections to drain before advancing.
	if len(d.injectQueue) > 0 {
		return
	}
	// Count down wait frames.
	if r.waitCount > 0 {
		r.waitCount--
		return
	}
	if r.cursor >= len(r.steps) {
		r.done = true
		return
	}

	st := r.steps[r.cursor]
	r.cursor++

	switch st.Action {
	case "click":
		d.InjectClick(st.X, st.Y)
	case "drag":
		frames := st.Frames
		if frames < 2 {
			frames = 2
		}
		d.InjectDrag(st.FromX, st.FromY, st.ToX, st.ToY, frames)
	case "dropfiles":
		files := make([]File, 0, len(st.Files))
		for _, f := range st.Files {
			files = append(files, File{Name: f.Name, Size: f.Size})
		}
		d.InjectDropFiles(st.X, st.Y, files...)
	case "wait":
		if st.Frames > 0 {
			r.waitCount = st.Frames - 1 // this frame counts as one
		}
	}

	// Check if we've reached the end after executing.
	if r.cursor >= len(r.steps) && r.waitCount == 0 && len(d.injectQueue) == 0 {
		r.done = true
	}
}
