package editor

import (
	"fmt"
	"os"
	"strconv"

	"github.com/ivlev/adboard/internal/geometry"
	"gopkg.in/yaml.v3"
)

// Step is one scripted editor action. Coordinates are in display space.
type Step struct {
	Action    string  `yaml:"action"`
	Billboard string  `yaml:"billboard,omitempty"`
	X         float64 `yaml:"x,omitempty"`
	Y         float64 `yaml:"y,omitempty"`
}

// Script replays pointer interactions headlessly.
type Script struct {
	Display *struct {
		Width  float64 `yaml:"width"`
		Height float64 `yaml:"height"`
	} `yaml:"display,omitempty"`
	Steps []Step `yaml:"steps"`
}

// LoadScript reads a YAML edit script.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse edit script %s: %w", path, err)
	}
	return &s, nil
}

// Run applies every step in order. Billboard references are ids or
// zero-based indexes.
func (s *Script) Run(e *Editor) error {
	if s.Display != nil {
		e.SetViewport(s.Display.Width, s.Display.Height)
	}
	for i, st := range s.Steps {
		if err := e.apply(st); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, st.Action, err)
		}
	}
	return nil
}

func (e *Editor) apply(st Step) error {
	p := geometry.Point{X: st.X, Y: st.Y}
	switch st.Action {
	case "perspective", "rectangle":
		id, err := e.resolve(st.Billboard)
		if err != nil {
			return err
		}
		mode := ModePerspective
		if st.Action == "rectangle" {
			mode = ModeRectangle
		}
		return e.Begin(mode, id)
	case "down":
		e.PointerDown(p)
	case "move":
		e.PointerMove(p)
	case "up":
		e.PointerUp()
	case "drag":
		// shorthand: move to X,Y and release
		e.PointerMove(p)
		e.PointerUp()
	case "confirm":
		_, err := e.Confirm()
		return err
	case "cancel":
		e.Cancel()
	case "add":
		e.Cancel()
		e.scene.Add()
	case "delete":
		id, err := e.resolve(st.Billboard)
		if err != nil {
			return err
		}
		e.Cancel()
		return e.scene.Delete(id)
	case "select":
		id, err := e.resolve(st.Billboard)
		if err != nil {
			return err
		}
		return e.scene.Select(id)
	default:
		return fmt.Errorf("unknown action %q", st.Action)
	}
	return nil
}

func (e *Editor) resolve(ref string) (string, error) {
	if ref == "" {
		return e.scene.Selected(), nil
	}
	if _, ok := e.scene.Billboard(ref); ok {
		return ref, nil
	}
	i, err := strconv.Atoi(ref)
	if err != nil {
		return "", fmt.Errorf("billboard %q not found", ref)
	}
	bbs := e.scene.Billboards()
	if i < 0 || i >= len(bbs) {
		return "", fmt.Errorf("billboard index %d out of range", i)
	}
	return bbs[i].ID, nil
}
