package cli

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetRegisterFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		registerCmd.Flags().VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	})
}

func TestResolveRegisterConfigDefaults(t *testing.T) {
	withConfigFile(t, "github_org: acme\nrepo: infra\n")
	resetRegisterFlags(t)

	cfg, err := resolveRegisterConfig(registerCmd)
	require.NoError(t, err)
	assert.Equal(t, "acme", cfg.GitHubOrg)
	assert.Equal(t, "infra", cfg.Repo)
	assert.Equal(t, "ops", cfg.OpsUser)
}

func TestResolveRegisterConfigFlagOverrides(t *testing.T) {
	withConfigFile(t, "github_org: acme\nrepo: infra\n")
	resetRegisterFlags(t)

	require.NoError(t, registerCmd.Flags().Set("repo", "other"))
	require.NoError(t, registerCmd.Flags().Set("ops-user", "deploy"))

	cfg, err := resolveRegisterConfig(registerCmd)
	require.NoError(t, err)
	assert.Equal(t, "other", cfg.Repo)
	assert.Equal(t, "deploy", cfg.OpsUser)
	assert.Equal(t, "/home/deploy/.ssh", cfg.SSHDir())
}
