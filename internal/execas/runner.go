// Package execas runs external commands, optionally as another account.
// The pipeline steps receive a Runner instead of shelling out directly so
// that privilege switching stays out of the step logic and tests can
// substitute a fake.
package execas

import (
	"io"
	"os/exec"
	"os/user"
	"strings"

	"github.com/calebmarsh/hostup/internal/errors"
	"github.com/calebmarsh/hostup/internal/logger"
)

// Command describes a single external command invocation.
type Command struct {
	// Name is the binary to run, resolved via PATH.
	Name string

	// Args are passed verbatim; no shell interpretation happens.
	Args []string

	// AsUser runs the command under this account (via sudo -u) when it
	// differs from the current user. Empty means run as the invoker.
	AsUser string

	// Dir is the working directory. Empty means inherit.
	Dir string

	// Env entries are appended to the inherited environment.
	Env []string

	// Stream receives combined output as it is produced. When nil the
	// output is captured and returned in Result.Output instead.
	Stream io.Writer
}

// Result holds the outcome of a command invocation.
type Result struct {
	// Output is the combined stdout/stderr, empty when streamed.
	Output string

	// ExitCode is the command's exit status. A nonzero exit is not an
	// error at this layer; callers decide what is fatal.
	ExitCode int
}

// Runner executes commands. The real implementation shells out; tests use
// the fake in the testing subpackage.
type Runner interface {
	Run(cmd Command) (Result, error)
	LookPath(name string) (string, error)
}

// Local runs commands on the local host.
type Local struct {
	log logger.Logger
}

// NewLocal creates a Runner that executes commands locally.
func NewLocal(log logger.Logger) *Local {
	if log == nil {
		log = logger.Noop()
	}
	return &Local{log: log}
}

// Run executes the command, switching identity with sudo when AsUser names
// a different account than the current one.
func (l *Local) Run(cmd Command) (Result, error) {
	name := cmd.Name
	args := cmd.Args

	if cmd.AsUser != "" && !isCurrentUser(cmd.AsUser) {
		args = append([]string{"-u", cmd.AsUser, "--", name}, args...)
		name = "sudo"
	}

	l.log.Debug("exec: %s %s", name, strings.Join(args, " "))

	command := exec.Command(name, args...)
	if cmd.Dir != "" {
		command.Dir = cmd.Dir
	}
	if len(cmd.Env) > 0 {
		command.Env = append(command.Environ(), cmd.Env...)
	}

	var output []byte
	var runErr error
	if cmd.Stream != nil {
		command.Stdout = cmd.Stream
		command.Stderr = cmd.Stream
		runErr = command.Run()
	} else {
		output, runErr = command.CombinedOutput()
	}

	if runErr != nil {
		// Nonzero exit: the command ran, report the code.
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			return Result{
				Output:   strings.TrimSpace(string(output)),
				ExitCode: exitErr.ExitCode(),
			}, nil
		}
		return Result{ExitCode: -1}, errors.WrapWithCode(runErr, errors.ErrExec,
			"Couldn't run "+cmd.Name,
			"Make sure the command exists and is executable.")
	}

	return Result{Output: strings.TrimSpace(string(output))}, nil
}

// LookPath reports where a binary resolves, or an error if it is absent.
func (l *Local) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// isCurrentUser reports whether the current process already runs as name.
func isCurrentUser(name string) bool {
	current, err := user.Current()
	if err != nil {
		return false
	}
	return current.Username == name
}
