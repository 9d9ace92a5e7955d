package perception

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Step is one scripted frame, served Repeat times (at least once).
type Step struct {
	Name   string `yaml:"name"`
	Repeat int    `yaml:"repeat"`
	Frame  Frame  `yaml:"frame"`

	// Queue asks the controller to queue an action when the step starts,
	// standing in for the operator's key press.
	Queue bool `yaml:"queue"`
}

// Script is a replayable perception scenario.
//
//	name: partner-takes-floor
//	loop: false
//	steps:
//	  - name: partner gestures
//	    repeat: 3
//	    frame:
//	      gaze: [0]
//	      gesturing: [true]
//	      who_speaking: -2
type Script struct {
	Name  string `yaml:"name"`
	Loop  bool   `yaml:"loop"`
	Steps []Step `yaml:"steps"`
}

// ParseScript decodes a YAML scenario.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("perception: parse script: %w", err)
	}
	if len(s.Steps) == 0 {
		return nil, errors.New("perception: script has no steps")
	}
	for i := range s.Steps {
		if s.Steps[i].Repeat < 1 {
			s.Steps[i].Repeat = 1
		}
	}
	return &s, nil
}

// LoadScript reads and decodes a YAML scenario file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("perception: read script: %w", err)
	}
	return ParseScript(data)
}

// Player serves a Script one frame per Next call.
type Player struct {
	script *Script
	onStep func(Step)

	mu     sync.Mutex
	step   int
	served int
}

// NewPlayer returns a Player at the first step. onStep, if non-nil, is
// called each time a step starts.
func NewPlayer(s *Script, onStep func(Step)) *Player {
	return &Player{script: s, onStep: onStep}
}

// Next returns the current frame, or ErrExhausted after the last step of a
// non-looping script.
func (p *Player) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	p.mu.Lock()
	if p.step >= len(p.script.Steps) {
		if !p.script.Loop {
			p.mu.Unlock()
			return Frame{}, ErrExhausted
		}
		p.step = 0
	}
	st := p.script.Steps[p.step]
	starting := p.served == 0
	p.served++
	if p.served >= st.Repeat {
		p.step++
		p.served = 0
	}
	p.mu.Unlock()

	if starting && p.onStep != nil {
		p.onStep(st)
	}
	return st.Frame, nil
}
