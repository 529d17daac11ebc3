package doctor

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/calebmarsh/hostup/internal/config"
	"github.com/calebmarsh/hostup/internal/execas"
	"github.com/calebmarsh/hostup/internal/github"
	"github.com/calebmarsh/hostup/internal/sshconfig"
	"github.com/calebmarsh/hostup/internal/system"
)

// Checks builds the standard diagnostic set for cfg.
func Checks(cfg config.RunConfig, runner execas.Runner) []Check {
	return []Check{
		&BinaryCheck{Runner: runner, Binary: "git"},
		&BinaryCheck{Runner: runner, Binary: "apt-get"},
		&BinaryCheck{Runner: runner, Binary: "sudo"},
		&PrivilegeCheck{},
		&KeyCheck{Label: "operations key", Path: cfg.OpsKeyPath()},
		&KeyCheck{Label: "deploy key", Path: cfg.DeployKeyPath()},
		&SSHConfigCheck{Path: cfg.SSHConfigPath()},
		&APICheck{},
	}
}

// BinaryCheck verifies a binary resolves on PATH.
type BinaryCheck struct {
	Runner execas.Runner
	Binary string
}

func (c *BinaryCheck) Name() string { return c.Binary }

func (c *BinaryCheck) Run() CheckResult {
	path, err := c.Runner.LookPath(c.Binary)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    c.Binary + " not found on PATH",
			Suggestion: "Install " + c.Binary + " before running setup",
		}
	}
	return CheckResult{Name: c.Name(), Status: StatusPass, Message: path}
}

// PrivilegeCheck reports whether setup could run from this process.
type PrivilegeCheck struct{}

func (c *PrivilegeCheck) Name() string { return "privilege" }

func (c *PrivilegeCheck) Run() CheckResult {
	if err := system.CheckPrivileged(); err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "not running as root",
			Suggestion: "'hostup setup' needs root; 'hostup register' does not",
		}
	}
	return CheckResult{Name: c.Name(), Status: StatusPass, Message: "running as root"}
}

// KeyCheck reports whether a key pair exists with sane private modes.
type KeyCheck struct {
	Label string
	Path  string
}

func (c *KeyCheck) Name() string { return c.Label }

func (c *KeyCheck) Run() CheckResult {
	info, err := os.Stat(c.Path)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    c.Path + " missing",
			Suggestion: "Run 'hostup setup' to generate key material",
		}
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("%s has mode %04o, want 0600", c.Path, perm),
			Suggestion: "chmod 600 " + c.Path,
		}
	}
	if _, err := os.Stat(c.Path + ".pub"); err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    c.Path + ".pub missing",
			Suggestion: "Regenerate the pair by removing " + c.Path + " and re-running setup",
		}
	}
	return CheckResult{Name: c.Name(), Status: StatusPass, Message: c.Path}
}

// SSHConfigCheck reports whether the github.com stanza is in place.
type SSHConfigCheck struct {
	Path string
}

func (c *SSHConfigCheck) Name() string { return "ssh config" }

func (c *SSHConfigCheck) Run() CheckResult {
	found, err := sshconfig.HasHost(c.Path, "github.com")
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    err.Error(),
			Suggestion: "Inspect " + c.Path + " by hand",
		}
	}
	if !found {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "no github.com stanza in " + c.Path,
			Suggestion: "Run 'hostup setup' or 'hostup register'",
		}
	}
	return CheckResult{Name: c.Name(), Status: StatusPass, Message: "github.com stanza present"}
}

// APICheck probes the GitHub API endpoint.
type APICheck struct {
	// BaseURL overrides the probed endpoint, for tests.
	BaseURL string
	// HTTPClient overrides the client, for tests.
	HTTPClient *http.Client
}

func (c *APICheck) Name() string { return "github api" }

func (c *APICheck) Run() CheckResult {
	base := c.BaseURL
	if base == "" {
		base = github.DefaultBaseURL
	}
	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	resp, err := client.Head(base)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    "cannot reach " + base,
			Suggestion: "Check network connectivity and proxies",
		}
	}
	resp.Body.Close()
	return CheckResult{Name: c.Name(), Status: StatusPass, Message: base + " reachable"}
}
