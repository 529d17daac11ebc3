package registrar

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calebmarsh/hostup/internal/config"
	"github.com/calebmarsh/hostup/internal/errors"
	execastest "github.com/calebmarsh/hostup/internal/execas/testing"
	"github.com/calebmarsh/hostup/internal/github"
	prompttest "github.com/calebmarsh/hostup/internal/prompt/testing"
)

func testConfig(t *testing.T) config.RunConfig {
	t.Helper()
	cfg := config.Default()
	cfg.HomeBase = t.TempDir()
	cfg.GitHubOrg = "acme"
	cfg.Repo = "infra"
	cfg.KeyTitle = "test key"
	cfg.Token = "ghp_testtoken"
	require.NoError(t, os.MkdirAll(cfg.SSHDir(), 0700))
	return cfg
}

func writeKeyPair(t *testing.T, dir, name string) string {
	t.Helper()
	pub := filepath.Join(dir, name+".pub")
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("private"), 0600))
	require.NoError(t, os.WriteFile(pub, []byte("ssh-ed25519 AAAAC3Nz test"), 0644))
	return pub
}

func apiServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestRegistrar(cfg config.RunConfig, runner *execastest.FakeRunner, p *prompttest.Scripted, apiURL string) *Registrar {
	return New(cfg, p, runner, nil,
		WithOutput(io.Discard),
		WithClientFactory(func(token string) *github.Client {
			return github.NewClient(token, github.WithBaseURL(apiURL))
		}),
		WithHostname(func() (string, error) { return "netsrv01", nil }),
	)
}

func TestRunFailsWithoutKeys(t *testing.T) {
	cfg := testConfig(t)
	runner := execastest.NewFakeRunner()
	r := New(cfg, prompttest.NewScripted(), runner, nil,
		WithOutput(io.Discard),
		WithClientFactory(func(token string) *github.Client {
			t.Fatal("no API client should be built without a key")
			return nil
		}),
	)

	_, err := r.Run()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrSSH))
	assert.Empty(t, runner.Calls)
}

func TestRunHappyPathFreshClone(t *testing.T) {
	cfg := testConfig(t)
	pub := writeKeyPair(t, cfg.SSHDir(), "github_deploy")
	server := apiServer(t, http.StatusCreated)

	runner := execastest.NewFakeRunner()
	runner.Respond("test -d", execastest.Response{ExitCode: 1})

	out, err := newTestRegistrar(cfg, runner, prompttest.NewScripted(), server.URL).Run()
	require.NoError(t, err)
	assert.Equal(t, pub, out.KeyPath)
	assert.Equal(t, github.KeyCreated, out.Result)
	assert.True(t, out.SSHConfigChanged)
	assert.True(t, out.Cloned)

	data, err := os.ReadFile(cfg.SSHConfigPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "Host github.com")
	assert.Contains(t, string(data), filepath.Join(cfg.SSHDir(), "github_deploy"))

	assert.True(t, runner.CalledWith("chown ops:ops "+cfg.SSHConfigPath()))
	assert.True(t, runner.CalledWith("git clone git@github.com:acme/infra.git"))
}

func TestRunConflictContinues(t *testing.T) {
	cfg := testConfig(t)
	writeKeyPair(t, cfg.SSHDir(), "github_deploy")
	server := apiServer(t, http.StatusUnprocessableEntity)

	runner := execastest.NewFakeRunner()
	out, err := newTestRegistrar(cfg, runner, prompttest.NewScripted(), server.URL).Run()
	require.NoError(t, err)
	assert.Equal(t, github.KeyAlreadyExists, out.Result)
	assert.False(t, out.Cloned)
	assert.True(t, runner.CalledWith("git -C"), "existing clone should be pulled")
}

func TestRunFatalStatusStopsBeforeClone(t *testing.T) {
	cfg := testConfig(t)
	writeKeyPair(t, cfg.SSHDir(), "github_deploy")
	server := apiServer(t, http.StatusInternalServerError)

	runner := execastest.NewFakeRunner()
	_, err := newTestRegistrar(cfg, runner, prompttest.NewScripted(), server.URL).Run()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrGitHub))
	assert.False(t, runner.CalledWith("git"))

	_, statErr := os.Stat(cfg.SSHConfigPath())
	assert.True(t, os.IsNotExist(statErr), "ssh config must not be written after a fatal API error")
}

func TestRunSelectsAmongMultipleKeys(t *testing.T) {
	cfg := testConfig(t)
	writeKeyPair(t, cfg.SSHDir(), "id_ed25519")
	pub := writeKeyPair(t, cfg.SSHDir(), "github_deploy")
	server := apiServer(t, http.StatusCreated)

	p := prompttest.NewScripted()
	p.Answers["Which public key should be registered?"] = "github_deploy.pub"

	runner := execastest.NewFakeRunner()
	out, err := newTestRegistrar(cfg, runner, p, server.URL).Run()
	require.NoError(t, err)
	assert.Equal(t, pub, out.KeyPath)
}

func TestRunPromptsForMissingDetails(t *testing.T) {
	cfg := testConfig(t)
	cfg.GitHubOrg = ""
	cfg.Repo = ""
	cfg.KeyTitle = ""
	cfg.Token = ""
	writeKeyPair(t, cfg.SSHDir(), "github_deploy")
	server := apiServer(t, http.StatusCreated)

	p := prompttest.NewScripted()
	p.Answers["GitHub organization or user"] = "acme"
	p.Answers["Repository name"] = "infra"
	p.Answers["Deploy key title"] = ""
	p.Answers["GitHub API token"] = "ghp_prompted"

	runner := execastest.NewFakeRunner()
	_, err := newTestRegistrar(cfg, runner, p, server.URL).Run()
	require.NoError(t, err)
	assert.Contains(t, p.Asked, "GitHub API token")
}

func TestRunTokenFromEnvironment(t *testing.T) {
	cfg := testConfig(t)
	cfg.Token = ""
	t.Setenv(TokenEnvVar, "ghp_fromenv")
	writeKeyPair(t, cfg.SSHDir(), "github_deploy")
	server := apiServer(t, http.StatusCreated)

	p := prompttest.NewScripted()
	runner := execastest.NewFakeRunner()
	_, err := newTestRegistrar(cfg, runner, p, server.URL).Run()
	require.NoError(t, err)
	assert.NotContains(t, p.Asked, "GitHub API token")
}
