package config

import "path/filepath"

// Default values compiled into the binary. Any of these can be overridden
// by the config file or command-line flags.
const (
	DefaultOpsUser    = "ops"
	DefaultAdminGroup = "sudo"
	DefaultGitBranch  = "main"
	DefaultRawHost    = "raw.githubusercontent.com"
	DefaultRef        = "refs/heads/main"

	// DefaultKeyComment tags the operations identity key.
	DefaultKeyComment = "ops identity"
	// DefaultDeployKeyComment tags the GitHub deploy key.
	DefaultDeployKeyComment = "github deploy key"
)

// DefaultPackages is the fixed package list installed during setup.
var DefaultPackages = []string{
	"curl",
	"wget",
	"git",
	"jq",
	"openssh-client",
	"ca-certificates",
}

// RunConfig carries every value the bootstrap pipeline needs. It is
// resolved once at startup and passed to each step as a parameter; steps
// never read ambient state.
type RunConfig struct {
	// OpsUser is the operations account that owns key material and the
	// repository clone.
	OpsUser string

	// AdminGroup is the group the operations account is enrolled in for
	// sudo access.
	AdminGroup string

	// GitHubOrg is the GitHub organization or user owning the repository.
	GitHubOrg string

	// Repo is the repository name (without owner).
	Repo string

	// GitUserName and GitEmail set the global git identity for the
	// operations account.
	GitUserName string
	GitEmail    string

	// KeyTitle is the deploy key title shown in the GitHub UI. Empty
	// means derive one from the hostname at registration time.
	KeyTitle string

	// CloneDir is where the repository is cloned. Empty means
	// <ops home>/<Repo>.
	CloneDir string

	// Packages installed by the package installer step.
	Packages []string

	// SkipPackages skips the package installer step entirely.
	SkipPackages bool

	// RawHost and Ref build the registrar script URL.
	RawHost string
	Ref     string

	// Token is the GitHub API token. Read from HOSTUP_GITHUB_TOKEN or an
	// interactive prompt; never written to disk.
	Token string

	// HomeBase is the directory containing user homes. Empty means /home.
	HomeBase string
}

// Default returns a RunConfig populated with compiled-in defaults.
func Default() RunConfig {
	return RunConfig{
		OpsUser:    DefaultOpsUser,
		AdminGroup: DefaultAdminGroup,
		Packages:   append([]string(nil), DefaultPackages...),
		RawHost:    DefaultRawHost,
		Ref:        DefaultRef,
	}
}

// HomeDir returns the operations account's home directory.
func (c RunConfig) HomeDir() string {
	base := c.HomeBase
	if base == "" {
		base = "/home"
	}
	return filepath.Join(base, c.OpsUser)
}

// SSHDir returns the operations account's SSH directory.
func (c RunConfig) SSHDir() string {
	return filepath.Join(c.HomeDir(), ".ssh")
}

// SSHConfigPath returns the operations account's SSH client config file.
func (c RunConfig) SSHConfigPath() string {
	return filepath.Join(c.SSHDir(), "config")
}

// OpsKeyPath returns the private key path for the operations identity.
func (c RunConfig) OpsKeyPath() string {
	return filepath.Join(c.SSHDir(), "id_ed25519")
}

// DeployKeyPath returns the private key path for the GitHub deploy key.
func (c RunConfig) DeployKeyPath() string {
	return filepath.Join(c.SSHDir(), "github_deploy")
}

// ScriptURL returns the raw-content URL the registrar script is fetched from.
func (c RunConfig) ScriptURL() string {
	return "https://" + c.RawHost + "/" + c.GitHubOrg + "/" + c.Repo + "/" + c.Ref + "/configure-git.sh"
}

// ScriptPath returns where the fetched registrar script lands.
func (c RunConfig) ScriptPath() string {
	return filepath.Join(c.HomeDir(), "configure-git.sh")
}

// ResolvedCloneDir returns CloneDir, defaulting to <ops home>/<Repo>.
func (c RunConfig) ResolvedCloneDir() string {
	if c.CloneDir != "" {
		return c.CloneDir
	}
	return filepath.Join(c.HomeDir(), c.Repo)
}
