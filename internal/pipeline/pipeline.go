// Package pipeline orders the bootstrap steps and applies their failure
// rules: most steps abort the run, the script download does not.
package pipeline

import (
	"fmt"
	"io"
	"os"

	"github.com/calebmarsh/hostup/internal/config"
	"github.com/calebmarsh/hostup/internal/errors"
	"github.com/calebmarsh/hostup/internal/execas"
	"github.com/calebmarsh/hostup/internal/fetch"
	"github.com/calebmarsh/hostup/internal/gitcfg"
	"github.com/calebmarsh/hostup/internal/logger"
	"github.com/calebmarsh/hostup/internal/sshconfig"
	"github.com/calebmarsh/hostup/internal/sshkey"
	"github.com/calebmarsh/hostup/internal/system"
)

// Status is the terminal state of a pipeline step.
type Status int

const (
	StatusRunning Status = iota
	StatusDone
	StatusSkipped
	StatusWarned
	StatusFailed
)

// Event reports step progress to whoever is rendering the run.
type Event struct {
	Step   string
	Status Status
	Detail string
}

// Step names, in execution order.
const (
	StepAccount   = "operations account"
	StepPackages  = "system packages"
	StepOpsKey    = "operations ssh key"
	StepDeployKey = "github deploy key"
	StepSSHConfig = "ssh client config"
	StepFetch     = "registrar script"
	StepGitID     = "git identity"
	StepRegistrar = "registrar run"
)

// Pipeline executes the bootstrap sequence for a single host.
type Pipeline struct {
	cfg     config.RunConfig
	runner  execas.Runner
	log     logger.Logger
	fetcher *fetch.Fetcher
	stream  io.Writer
	onEvent func(Event)
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithFetcher overrides the script fetcher.
func WithFetcher(f *fetch.Fetcher) Option {
	return func(p *Pipeline) { p.fetcher = f }
}

// WithPackageStream mirrors package manager output to w as it runs.
func WithPackageStream(w io.Writer) Option {
	return func(p *Pipeline) { p.stream = w }
}

// New creates a pipeline for cfg.
func New(cfg config.RunConfig, runner execas.Runner, log logger.Logger, opts ...Option) *Pipeline {
	if log == nil {
		log = logger.Noop()
	}
	p := &Pipeline{cfg: cfg, runner: runner, log: log}
	for _, o := range opts {
		o(p)
	}
	if p.fetcher == nil {
		p.fetcher = fetch.NewFetcher(nil, runner, log)
	}
	return p
}

// SetEventHandler installs the progress callback. Must be called before
// Run; events arrive on the calling goroutine.
func (p *Pipeline) SetEventHandler(fn func(Event)) {
	p.onEvent = fn
}

func (p *Pipeline) emit(step string, status Status, detail string) {
	if p.onEvent != nil {
		p.onEvent(Event{Step: step, Status: status, Detail: detail})
	}
}

// Plan returns the step names in execution order, for dry runs.
func (p *Pipeline) Plan() []string {
	return []string{
		StepAccount,
		StepPackages,
		StepOpsKey,
		StepDeployKey,
		StepSSHConfig,
		StepFetch,
		StepGitID,
		StepRegistrar,
	}
}

// Run walks the steps in order. The script download and registrar run
// degrade to warnings; every other failure stops the walk and is
// returned.
func (p *Pipeline) Run() error {
	cfg := p.cfg

	p.emit(StepAccount, StatusRunning, "")
	prov := system.NewProvisioner(p.runner, p.log)
	existed, err := prov.EnsureAccount(cfg.OpsUser, cfg.AdminGroup)
	if err != nil {
		p.emit(StepAccount, StatusFailed, err.Error())
		return err
	}
	if err := prov.EnsureSSHDir(cfg.SSHDir(), cfg.OpsUser); err != nil {
		p.emit(StepAccount, StatusFailed, err.Error())
		return err
	}
	if existed {
		p.emit(StepAccount, StatusSkipped, cfg.OpsUser+" already exists")
	} else {
		p.emit(StepAccount, StatusDone, "created "+cfg.OpsUser)
	}

	if cfg.SkipPackages {
		p.emit(StepPackages, StatusSkipped, "skipped by flag")
	} else {
		p.emit(StepPackages, StatusRunning, "")
		if err := system.NewInstaller(p.runner, p.log).Install(cfg.Packages, p.stream); err != nil {
			p.emit(StepPackages, StatusFailed, err.Error())
			return err
		}
		p.emit(StepPackages, StatusDone, fmt.Sprintf("%d packages", len(cfg.Packages)))
	}

	gen := sshkey.NewGenerator(p.runner, p.log)
	keySteps := []struct {
		step    string
		path    string
		comment string
	}{
		{StepOpsKey, cfg.OpsKeyPath(), config.DefaultKeyComment},
		{StepDeployKey, cfg.DeployKeyPath(), config.DefaultDeployKeyComment},
	}
	for _, ks := range keySteps {
		p.emit(ks.step, StatusRunning, "")
		created, err := gen.EnsureKeyPair(ks.path, ks.comment, cfg.OpsUser)
		if err != nil {
			p.emit(ks.step, StatusFailed, err.Error())
			return err
		}
		if created {
			p.emit(ks.step, StatusDone, ks.path)
		} else {
			p.emit(ks.step, StatusSkipped, "already present")
		}
	}

	p.emit(StepSSHConfig, StatusRunning, "")
	changed, err := p.configureSSH()
	if err != nil {
		p.emit(StepSSHConfig, StatusFailed, err.Error())
		return err
	}
	if changed {
		p.emit(StepSSHConfig, StatusDone, cfg.SSHConfigPath())
	} else {
		p.emit(StepSSHConfig, StatusSkipped, "already current")
	}

	p.emit(StepFetch, StatusRunning, "")
	if err := p.fetcher.Fetch(cfg.ScriptURL(), cfg.ScriptPath(), cfg.OpsUser); err != nil {
		p.log.Warn("script download failed: %v", err)
		p.emit(StepFetch, StatusWarned, err.Error())
	} else {
		p.emit(StepFetch, StatusDone, cfg.ScriptPath())
	}

	p.emit(StepGitID, StatusRunning, "")
	git := gitcfg.NewConfigurator(p.runner, p.log)
	if err := git.SetGlobalIdentity(cfg.OpsUser, cfg.GitUserName, cfg.GitEmail); err != nil {
		p.emit(StepGitID, StatusFailed, err.Error())
		return err
	}
	p.emit(StepGitID, StatusDone, cfg.GitUserName+" <"+cfg.GitEmail+">")

	// A script left behind by an earlier run still counts, so key the
	// step on the file being present rather than on today's download.
	if _, statErr := os.Stat(cfg.ScriptPath()); statErr != nil {
		p.emit(StepRegistrar, StatusSkipped, "script not present")
		return nil
	}
	p.emit(StepRegistrar, StatusRunning, "")
	code, output, err := git.RunScript(cfg.ScriptPath(), cfg.OpsUser)
	if err != nil {
		p.emit(StepRegistrar, StatusWarned, err.Error())
		return nil
	}
	if code != 0 {
		p.log.Warn("registrar script exited %d: %s", code, output)
		p.emit(StepRegistrar, StatusWarned, fmt.Sprintf("exited %d", code))
		return nil
	}
	p.emit(StepRegistrar, StatusDone, "")
	return nil
}

// configureSSH upserts both host stanzas and hands the file to the
// operations account when it was rewritten.
func (p *Pipeline) configureSSH() (bool, error) {
	cfg := p.cfg
	changed, err := sshconfig.Upsert(cfg.SSHConfigPath(),
		sshconfig.GithubStanza(cfg.DeployKeyPath()),
		sshconfig.HostStanza("netsrv*", cfg.OpsUser, cfg.OpsKeyPath()),
	)
	if err != nil {
		return false, err
	}
	if changed {
		result, runErr := p.runner.Run(execas.Command{
			Name: "chown",
			Args: []string{cfg.OpsUser + ":" + cfg.OpsUser, cfg.SSHConfigPath()},
		})
		if runErr != nil {
			return changed, runErr
		}
		if result.ExitCode != 0 {
			return changed, errors.New(errors.ErrSSH,
				fmt.Sprintf("Couldn't chown %s to %s: %s", cfg.SSHConfigPath(), cfg.OpsUser, result.Output),
				"")
		}
	}
	return changed, nil
}
