// Package testing provides a scripted Prompter for tests.
package testing

import "fmt"

// Scripted replays canned answers keyed by prompt title. Unscripted
// prompts return an error so tests fail loudly instead of hanging.
type Scripted struct {
	Answers map[string]string
	Bools   map[string]bool
	Asked   []string
}

// NewScripted creates an empty scripted prompter.
func NewScripted() *Scripted {
	return &Scripted{
		Answers: make(map[string]string),
		Bools:   make(map[string]bool),
	}
}

func (s *Scripted) Input(title, def string) (string, error) {
	s.Asked = append(s.Asked, title)
	if v, ok := s.Answers[title]; ok {
		if v == "" {
			return def, nil
		}
		return v, nil
	}
	return "", fmt.Errorf("unscripted input prompt: %q", title)
}

func (s *Scripted) Secret(title string) (string, error) {
	s.Asked = append(s.Asked, title)
	if v, ok := s.Answers[title]; ok {
		return v, nil
	}
	return "", fmt.Errorf("unscripted secret prompt: %q", title)
}

func (s *Scripted) Confirm(title string, def bool) (bool, error) {
	s.Asked = append(s.Asked, title)
	if v, ok := s.Bools[title]; ok {
		return v, nil
	}
	return def, nil
}

func (s *Scripted) Select(title string, options []string) (string, error) {
	s.Asked = append(s.Asked, title)
	if v, ok := s.Answers[title]; ok {
		for _, o := range options {
			if o == v {
				return v, nil
			}
		}
		return "", fmt.Errorf("scripted answer %q not among options %v", v, options)
	}
	if len(options) == 1 {
		return options[0], nil
	}
	return "", fmt.Errorf("unscripted select prompt: %q", title)
}
