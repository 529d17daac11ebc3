package system

import (
	"fmt"
	"os"

	"github.com/calebmarsh/hostup/internal/errors"
	"github.com/calebmarsh/hostup/internal/execas"
	"github.com/calebmarsh/hostup/internal/logger"
)

// Provisioner creates the operations account and its SSH directory.
type Provisioner struct {
	runner execas.Runner
	log    logger.Logger
}

// NewProvisioner creates an account provisioner.
func NewProvisioner(runner execas.Runner, log logger.Logger) *Provisioner {
	if log == nil {
		log = logger.Noop()
	}
	return &Provisioner{runner: runner, log: log}
}

// EnsureAccount creates the named account with a login shell and enrolls
// it in the admin group. An existing account is left untouched.
// Returns true when the account already existed.
func (p *Provisioner) EnsureAccount(name, adminGroup string) (existed bool, err error) {
	result, err := p.runner.Run(execas.Command{Name: "id", Args: []string{"-u", name}})
	if err != nil {
		return false, err
	}
	if result.ExitCode == 0 {
		p.log.Info("account %q already exists", name)
		return true, nil
	}

	result, err = p.runner.Run(execas.Command{
		Name: "useradd",
		Args: []string{"-m", "-s", "/bin/bash", name},
	})
	if err != nil {
		return false, err
	}
	if result.ExitCode != 0 {
		return false, errors.New(errors.ErrExec,
			fmt.Sprintf("Couldn't create account %q: %s", name, result.Output),
			"Check that useradd is available and the name is valid")
	}

	result, err = p.runner.Run(execas.Command{
		Name: "usermod",
		Args: []string{"-aG", adminGroup, name},
	})
	if err != nil {
		return false, err
	}
	if result.ExitCode != 0 {
		return false, errors.New(errors.ErrExec,
			fmt.Sprintf("Couldn't add %q to group %q: %s", name, adminGroup, result.Output),
			"Check that the admin group exists")
	}

	p.log.Info("created account %q in group %q", name, adminGroup)
	return false, nil
}

// EnsureSSHDir creates the account's SSH directory with owner-only
// permissions and hands ownership to the account.
func (p *Provisioner) EnsureSSHDir(dir, owner string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.WrapWithCode(err, errors.ErrSSH,
			"Couldn't create SSH directory "+dir,
			"Check permissions on the home directory")
	}
	// MkdirAll does not tighten an existing directory.
	if err := os.Chmod(dir, 0700); err != nil {
		return errors.WrapWithCode(err, errors.ErrSSH,
			"Couldn't set permissions on "+dir, "")
	}

	result, err := p.runner.Run(execas.Command{
		Name: "chown",
		Args: []string{owner + ":" + owner, dir},
	})
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return errors.New(errors.ErrSSH,
			fmt.Sprintf("Couldn't chown %s to %s: %s", dir, owner, result.Output),
			"")
	}
	return nil
}
