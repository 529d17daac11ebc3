// Package testing provides test doubles for the execas package.
package testing

import (
	"fmt"
	"strings"
	"sync"

	"github.com/calebmarsh/hostup/internal/execas"
)

// Response is a canned result for a command prefix.
type Response struct {
	Output   string
	ExitCode int
	Err      error
}

// FakeRunner records every command and replays configured responses.
// Commands match on their rendered form ("name arg1 arg2 ..."); the
// longest configured prefix wins. Unmatched commands succeed with empty
// output.
type FakeRunner struct {
	mu        sync.Mutex
	Calls     []execas.Command
	responses map[string]Response
	missing   map[string]bool
}

// NewFakeRunner creates an empty fake runner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		responses: make(map[string]Response),
		missing:   make(map[string]bool),
	}
}

// Respond configures the response for commands whose rendered form starts
// with prefix.
func (f *FakeRunner) Respond(prefix string, resp Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[prefix] = resp
}

// SetMissing makes LookPath fail for the named binary.
func (f *FakeRunner) SetMissing(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.missing[name] = true
}

// Run records the command and returns the configured response.
func (f *FakeRunner) Run(cmd execas.Command) (execas.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, cmd)

	rendered := Render(cmd)
	var best string
	for prefix := range f.responses {
		if strings.HasPrefix(rendered, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best != "" {
		resp := f.responses[best]
		if cmd.Stream != nil && resp.Output != "" {
			fmt.Fprint(cmd.Stream, resp.Output)
			resp.Output = ""
		}
		return execas.Result{Output: resp.Output, ExitCode: resp.ExitCode}, resp.Err
	}
	return execas.Result{}, nil
}

// LookPath resolves to a fixed path unless the binary was marked missing.
func (f *FakeRunner) LookPath(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missing[name] {
		return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
	}
	return "/usr/bin/" + name, nil
}

// Rendered returns the rendered form of every recorded call, in order.
func (f *FakeRunner) Rendered() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		out[i] = Render(c)
	}
	return out
}

// CalledWith reports whether any recorded call's rendered form starts
// with prefix.
func (f *FakeRunner) CalledWith(prefix string) bool {
	for _, r := range f.Rendered() {
		if strings.HasPrefix(r, prefix) {
			return true
		}
	}
	return false
}

// Render flattens a command into "name arg1 arg2 ..." for matching.
func Render(cmd execas.Command) string {
	parts := append([]string{cmd.Name}, cmd.Args...)
	return strings.Join(parts, " ")
}
