package system

import (
	"fmt"
	"io"

	"github.com/calebmarsh/hostup/internal/errors"
	"github.com/calebmarsh/hostup/internal/execas"
	"github.com/calebmarsh/hostup/internal/logger"
)

// Installer installs OS packages through apt.
type Installer struct {
	runner execas.Runner
	log    logger.Logger
}

// NewInstaller creates a package installer.
func NewInstaller(runner execas.Runner, log logger.Logger) *Installer {
	if log == nil {
		log = logger.Noop()
	}
	return &Installer{runner: runner, log: log}
}

// aptEnv suppresses interactive debconf prompts.
var aptEnv = []string{"DEBIAN_FRONTEND=noninteractive"}

// Install refreshes the package index, upgrades existing packages, and
// installs the given list. Any nonzero exit is fatal; there is no retry
// and no partial continuation.
func (i *Installer) Install(packages []string, stream io.Writer) error {
	steps := [][]string{
		{"update"},
		{"upgrade", "-y"},
		append([]string{"install", "-y"}, packages...),
	}

	for _, args := range steps {
		i.log.Debug("apt-get %v", args)
		result, err := i.runner.Run(execas.Command{
			Name:   "apt-get",
			Args:   args,
			Env:    aptEnv,
			Stream: stream,
		})
		if err != nil {
			return err
		}
		if result.ExitCode != 0 {
			return errors.New(errors.ErrPackage,
				fmt.Sprintf("apt-get %s failed (exit %d)", args[0], result.ExitCode),
				"Inspect the apt output above, fix the package source, and re-run")
		}
	}

	i.log.Info("installed %d packages", len(packages))
	return nil
}
