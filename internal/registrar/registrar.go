// Package registrar registers a deploy key with GitHub and wires the
// host's SSH and git state so the configured repository can be cloned
// over SSH.
package registrar

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/calebmarsh/hostup/internal/config"
	"github.com/calebmarsh/hostup/internal/errors"
	"github.com/calebmarsh/hostup/internal/execas"
	"github.com/calebmarsh/hostup/internal/gitcfg"
	"github.com/calebmarsh/hostup/internal/github"
	"github.com/calebmarsh/hostup/internal/logger"
	"github.com/calebmarsh/hostup/internal/prompt"
	"github.com/calebmarsh/hostup/internal/sshconfig"
	"github.com/calebmarsh/hostup/internal/sshkey"
	"github.com/calebmarsh/hostup/internal/ui"
)

// TokenEnvVar names the environment variable checked before prompting
// for a GitHub token.
const TokenEnvVar = "HOSTUP_GITHUB_TOKEN"

// Outcome summarizes what a registration run did.
type Outcome struct {
	// KeyPath is the public key that was registered.
	KeyPath string
	// Result is the GitHub API classification for the registration.
	Result github.RegisterResult
	// SSHConfigChanged reports whether the client config was rewritten.
	SSHConfigChanged bool
	// Cloned is true for a fresh clone, false for a pull.
	Cloned bool
}

// Registrar walks key selection, detail prompts, API registration, SSH
// configuration, and clone in order. Any failure stops the walk.
type Registrar struct {
	cfg       config.RunConfig
	prompter  prompt.Prompter
	runner    execas.Runner
	log       logger.Logger
	out       io.Writer
	newClient func(token string) *github.Client
	hostname  func() (string, error)
}

// Option customizes a Registrar.
type Option func(*Registrar)

// WithOutput redirects progress output.
func WithOutput(w io.Writer) Option {
	return func(r *Registrar) { r.out = w }
}

// WithClientFactory overrides how the GitHub client is built.
func WithClientFactory(f func(token string) *github.Client) Option {
	return func(r *Registrar) { r.newClient = f }
}

// WithHostname overrides hostname resolution for the default key title.
func WithHostname(f func() (string, error)) Option {
	return func(r *Registrar) { r.hostname = f }
}

// New creates a registrar for cfg.
func New(cfg config.RunConfig, prompter prompt.Prompter, runner execas.Runner, log logger.Logger, opts ...Option) *Registrar {
	if log == nil {
		log = logger.Noop()
	}
	r := &Registrar{
		cfg:      cfg,
		prompter: prompter,
		runner:   runner,
		log:      log,
		out:      os.Stdout,
		newClient: func(token string) *github.Client {
			return github.NewClient(token, github.WithLogger(log))
		},
		hostname: os.Hostname,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run executes the full registration flow. No HTTP call is made until a
// public key has been selected and all details collected.
func (r *Registrar) Run() (Outcome, error) {
	var out Outcome

	keyPath, err := r.selectKey()
	if err != nil {
		return out, err
	}
	out.KeyPath = keyPath

	org, repo, title, token, err := r.collectDetails()
	if err != nil {
		return out, err
	}

	material, err := sshkey.ReadPublicKey(keyPath)
	if err != nil {
		return out, err
	}

	result, err := r.newClient(token).RegisterDeployKey(org, repo, title, material)
	if err != nil {
		return out, err
	}
	out.Result = result
	switch result {
	case github.KeyAlreadyExists:
		fmt.Fprintf(r.out, "%s Deploy key already registered for %s/%s\n", ui.SymbolWarn, org, repo)
	default:
		fmt.Fprintf(r.out, "%s Deploy key %q registered for %s/%s\n", ui.SymbolSuccess, title, org, repo)
	}

	changed, err := r.configureSSH(keyPath)
	if err != nil {
		return out, err
	}
	out.SSHConfigChanged = changed
	if changed {
		fmt.Fprintf(r.out, "%s SSH client config updated\n", ui.SymbolSuccess)
	} else {
		fmt.Fprintf(r.out, "%s SSH client config already current\n", ui.SymbolSkipped)
	}

	cloned, err := gitcfg.NewConfigurator(r.runner, r.log).
		CloneOrPull(gitcfg.SSHURL(org, repo), r.cfg.ResolvedCloneDir(), r.cfg.OpsUser)
	if err != nil {
		return out, err
	}
	out.Cloned = cloned
	if cloned {
		fmt.Fprintf(r.out, "%s Cloned %s/%s into %s\n", ui.SymbolSuccess, org, repo, r.cfg.ResolvedCloneDir())
	} else {
		fmt.Fprintf(r.out, "%s Updated existing clone in %s\n", ui.SymbolSuccess, r.cfg.ResolvedCloneDir())
	}

	return out, nil
}

// selectKey enumerates public keys and picks one, asking the user when
// there is more than one candidate.
func (r *Registrar) selectKey() (string, error) {
	dir := r.cfg.SSHDir()
	pubs, err := sshkey.ListPublicKeys(dir)
	if err != nil {
		return "", err
	}
	if len(pubs) == 0 {
		return "", errors.New(errors.ErrSSH,
			"No public keys found in "+dir,
			"Run 'hostup setup' first to generate key material")
	}
	if len(pubs) == 1 {
		r.log.Info("using sole public key %s", pubs[0])
		return pubs[0], nil
	}

	names := make([]string, len(pubs))
	for i, p := range pubs {
		names[i] = filepath.Base(p)
	}
	chosen, err := r.prompter.Select("Which public key should be registered?", names)
	if err != nil {
		return "", err
	}
	for i, n := range names {
		if n == chosen {
			return pubs[i], nil
		}
	}
	return "", errors.New(errors.ErrSSH, "Selected key not found: "+chosen, "")
}

// collectDetails resolves org, repo, title, and token from the config,
// environment, and interactive prompts, in that order.
func (r *Registrar) collectDetails() (org, repo, title, token string, err error) {
	org = r.cfg.GitHubOrg
	if org == "" {
		if org, err = r.prompter.Input("GitHub organization or user", ""); err != nil {
			return
		}
	}
	if org == "" {
		err = errors.New(errors.ErrConfig, "GitHub organization is required", "Pass --github-org")
		return
	}

	repo = r.cfg.Repo
	if repo == "" {
		if repo, err = r.prompter.Input("Repository name", ""); err != nil {
			return
		}
	}
	if repo == "" {
		err = errors.New(errors.ErrConfig, "Repository name is required", "Pass --repo")
		return
	}

	title = r.cfg.KeyTitle
	if title == "" {
		def := r.defaultTitle()
		if title, err = r.prompter.Input("Deploy key title", def); err != nil {
			return
		}
		if title == "" {
			title = def
		}
	}

	token = r.cfg.Token
	if token == "" {
		token = os.Getenv(TokenEnvVar)
	}
	if token == "" {
		if token, err = r.prompter.Secret("GitHub API token"); err != nil {
			return
		}
	}
	if token == "" {
		err = errors.New(errors.ErrGitHub,
			"A GitHub API token is required",
			"Set "+TokenEnvVar+" or enter one at the prompt")
	}
	return
}

// defaultTitle derives a deploy key title from the hostname.
func (r *Registrar) defaultTitle() string {
	host, err := r.hostname()
	if err != nil || host == "" {
		host = "host"
	}
	return host + " deploy key"
}

// configureSSH upserts the github.com stanza pointing at the chosen
// key's private half and hands the config file to the operations user.
func (r *Registrar) configureSSH(pubPath string) (bool, error) {
	cfgPath := r.cfg.SSHConfigPath()
	changed, err := sshconfig.Upsert(cfgPath, sshconfig.GithubStanza(sshkey.PrivatePath(pubPath)))
	if err != nil {
		return false, err
	}
	if changed && r.cfg.OpsUser != "" {
		result, runErr := r.runner.Run(execas.Command{
			Name: "chown",
			Args: []string{r.cfg.OpsUser + ":" + r.cfg.OpsUser, cfgPath},
		})
		if runErr != nil {
			return changed, runErr
		}
		if result.ExitCode != 0 {
			return changed, errors.New(errors.ErrSSH,
				"Couldn't chown "+cfgPath+": "+result.Output, "")
		}
	}
	return changed, nil
}
