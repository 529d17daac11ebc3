// Package gitcfg sets git identity for the operations account and
// clones the configured repository over SSH.
package gitcfg

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/calebmarsh/hostup/internal/config"
	"github.com/calebmarsh/hostup/internal/errors"
	"github.com/calebmarsh/hostup/internal/execas"
	"github.com/calebmarsh/hostup/internal/logger"
)

// Configurator drives git through the system binary as a given user.
type Configurator struct {
	runner execas.Runner
	log    logger.Logger
}

// NewConfigurator creates a git configurator backed by runner.
func NewConfigurator(runner execas.Runner, log logger.Logger) *Configurator {
	if log == nil {
		log = logger.Noop()
	}
	return &Configurator{runner: runner, log: log}
}

// SSHURL builds the SSH clone URL for org/repo.
func SSHURL(org, repo string) string {
	return fmt.Sprintf("git@github.com:%s/%s.git", org, strings.TrimSuffix(repo, ".git"))
}

// SetGlobalIdentity writes the global git identity for user. The default
// branch and pull strategy are pinned so later clones behave the same on
// every host.
func (c *Configurator) SetGlobalIdentity(user, name, email string) error {
	settings := [][2]string{
		{"user.name", name},
		{"user.email", email},
		{"init.defaultBranch", config.DefaultGitBranch},
		{"pull.rebase", "false"},
	}
	for _, s := range settings {
		result, err := c.runner.Run(execas.Command{
			Name:   "git",
			Args:   []string{"config", "--global", s[0], s[1]},
			AsUser: user,
		})
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrGit,
				"Couldn't set git "+s[0], "")
		}
		if result.ExitCode != 0 {
			return errors.New(errors.ErrGit,
				fmt.Sprintf("git config %s failed: %s", s[0], result.Output),
				"Check that git is installed")
		}
	}
	c.log.Info("git identity set for %s: %s <%s>", user, name, email)
	return nil
}

// CloneOrPull clones repoURL into dir as owner, or pulls when dir already
// holds a working copy. Returns true when a fresh clone happened.
func (c *Configurator) CloneOrPull(repoURL, dir, owner string) (bool, error) {
	probe, err := c.runner.Run(execas.Command{
		Name:   "test",
		Args:   []string{"-d", filepath.Join(dir, ".git")},
		AsUser: owner,
	})
	if err != nil {
		return false, errors.WrapWithCode(err, errors.ErrGit,
			"Couldn't inspect "+dir, "")
	}

	if probe.ExitCode == 0 {
		result, err := c.runner.Run(execas.Command{
			Name:   "git",
			Args:   []string{"-C", dir, "pull", "--ff-only"},
			AsUser: owner,
		})
		if err != nil {
			return false, errors.WrapWithCode(err, errors.ErrGit,
				"Couldn't update "+dir, "")
		}
		if result.ExitCode != 0 {
			return false, errors.New(errors.ErrGit,
				fmt.Sprintf("git pull in %s failed: %s", dir, result.Output),
				"Check the deploy key and repository access")
		}
		c.log.Info("updated existing clone in %s", dir)
		return false, nil
	}

	result, err := c.runner.Run(execas.Command{
		Name:   "git",
		Args:   []string{"clone", repoURL, dir},
		AsUser: owner,
	})
	if err != nil {
		return false, errors.WrapWithCode(err, errors.ErrGit,
			"Couldn't clone "+repoURL, "")
	}
	if result.ExitCode != 0 {
		return false, errors.New(errors.ErrGit,
			fmt.Sprintf("git clone %s failed: %s", repoURL, result.Output),
			"Verify the deploy key was registered and SSH config points at it")
	}
	c.log.Info("cloned %s into %s", repoURL, dir)
	return true, nil
}

// RunScript executes the fetched helper script as owner. A nonzero exit
// is reported through the returned code, not as an error, so the caller
// can surface it as a warning.
func (c *Configurator) RunScript(path, owner string) (int, string, error) {
	result, err := c.runner.Run(execas.Command{
		Name:   "bash",
		Args:   []string{path},
		AsUser: owner,
	})
	if err != nil {
		return -1, "", errors.WrapWithCode(err, errors.ErrGit,
			"Couldn't run "+path, "")
	}
	return result.ExitCode, result.Output, nil
}
