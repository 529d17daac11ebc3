package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "ops", cfg.OpsUser)
	assert.Equal(t, "sudo", cfg.AdminGroup)
	assert.Equal(t, "raw.githubusercontent.com", cfg.RawHost)
	assert.Equal(t, "refs/heads/main", cfg.Ref)
	assert.NotEmpty(t, cfg.Packages)
	assert.Contains(t, cfg.Packages, "git")
	assert.Contains(t, cfg.Packages, "curl")
}

func TestDerivedPaths(t *testing.T) {
	cfg := Default()
	cfg.OpsUser = "deploy"
	cfg.GitHubOrg = "acme"
	cfg.Repo = "infra"

	assert.Equal(t, "/home/deploy", cfg.HomeDir())
	assert.Equal(t, "/home/deploy/.ssh", cfg.SSHDir())
	assert.Equal(t, "/home/deploy/.ssh/config", cfg.SSHConfigPath())
	assert.Equal(t, "/home/deploy/.ssh/id_ed25519", cfg.OpsKeyPath())
	assert.Equal(t, "/home/deploy/.ssh/github_deploy", cfg.DeployKeyPath())
	assert.Equal(t, "/home/deploy/configure-git.sh", cfg.ScriptPath())
	assert.Equal(t,
		"https://raw.githubusercontent.com/acme/infra/refs/heads/main/configure-git.sh",
		cfg.ScriptURL())
}

func TestResolvedCloneDir(t *testing.T) {
	cfg := Default()
	cfg.Repo = "infra"

	assert.Equal(t, "/home/ops/infra", cfg.ResolvedCloneDir())

	cfg.CloneDir = "/srv/checkout"
	assert.Equal(t, "/srv/checkout", cfg.ResolvedCloneDir())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	// Point the home directory somewhere empty so no user config is found.
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "ops", cfg.OpsUser)
}

func TestLoadExplicitFileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadOverlaysFileValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `ops_user: deploy
github_org: acme
repo: infra
git_user: Jane Doe
git_email: jane@acme.com
packages:
  - git
  - curl
skip_packages: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "deploy", cfg.OpsUser)
	assert.Equal(t, "acme", cfg.GitHubOrg)
	assert.Equal(t, "infra", cfg.Repo)
	assert.Equal(t, "Jane Doe", cfg.GitUserName)
	assert.Equal(t, "jane@acme.com", cfg.GitEmail)
	assert.Equal(t, []string{"git", "curl"}, cfg.Packages)
	assert.True(t, cfg.SkipPackages)

	// Values absent from the file keep their defaults.
	assert.Equal(t, "sudo", cfg.AdminGroup)
	assert.Equal(t, "raw.githubusercontent.com", cfg.RawHost)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ops_user: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RunConfig)
		strict  bool
		wantErr bool
	}{
		{
			name: "defaults with org and repo pass non-strict",
			mutate: func(c *RunConfig) {
				c.GitHubOrg = "acme"
				c.Repo = "infra"
			},
		},
		{
			name:    "missing org fails",
			mutate:  func(c *RunConfig) { c.Repo = "infra" },
			wantErr: true,
		},
		{
			name:    "missing repo fails",
			mutate:  func(c *RunConfig) { c.GitHubOrg = "acme" },
			wantErr: true,
		},
		{
			name: "strict requires git identity",
			mutate: func(c *RunConfig) {
				c.GitHubOrg = "acme"
				c.Repo = "infra"
			},
			strict:  true,
			wantErr: true,
		},
		{
			name: "strict passes with full identity",
			mutate: func(c *RunConfig) {
				c.GitHubOrg = "acme"
				c.Repo = "infra"
				c.GitUserName = "Jane Doe"
				c.GitEmail = "jane@acme.com"
			},
			strict: true,
		},
		{
			name: "root ops user rejected",
			mutate: func(c *RunConfig) {
				c.GitHubOrg = "acme"
				c.Repo = "infra"
				c.OpsUser = "root"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := Validate(cfg, tt.strict)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
