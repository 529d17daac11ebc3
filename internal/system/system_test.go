package system

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/calebmarsh/hostup/internal/errors"
	execastest "github.com/calebmarsh/hostup/internal/execas/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPrivileged(t *testing.T) {
	orig := geteuid
	defer func() { geteuid = orig }()

	geteuid = func() int { return 0 }
	assert.NoError(t, CheckPrivileged())

	geteuid = func() int { return 1000 }
	err := CheckPrivileged()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrPrivilege))
}

func TestEnsureAccountCreates(t *testing.T) {
	runner := execastest.NewFakeRunner()
	// id -u exits nonzero: account does not exist.
	runner.Respond("id -u ops", execastest.Response{ExitCode: 1})

	p := NewProvisioner(runner, nil)
	existed, err := p.EnsureAccount("ops", "sudo")
	require.NoError(t, err)
	assert.False(t, existed)

	assert.True(t, runner.CalledWith("useradd -m -s /bin/bash ops"))
	assert.True(t, runner.CalledWith("usermod -aG sudo ops"))
}

func TestEnsureAccountIdempotent(t *testing.T) {
	runner := execastest.NewFakeRunner()
	// id -u succeeds: account exists, nothing else runs.

	p := NewProvisioner(runner, nil)
	existed, err := p.EnsureAccount("ops", "sudo")
	require.NoError(t, err)
	assert.True(t, existed)

	assert.False(t, runner.CalledWith("useradd"))
	assert.False(t, runner.CalledWith("usermod"))
}

func TestEnsureAccountUseraddFailure(t *testing.T) {
	runner := execastest.NewFakeRunner()
	runner.Respond("id -u ops", execastest.Response{ExitCode: 1})
	runner.Respond("useradd", execastest.Response{ExitCode: 1, Output: "invalid name"})

	p := NewProvisioner(runner, nil)
	_, err := p.EnsureAccount("ops", "sudo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid name")
}

func TestEnsureSSHDir(t *testing.T) {
	runner := execastest.NewFakeRunner()
	dir := filepath.Join(t.TempDir(), ".ssh")

	p := NewProvisioner(runner, nil)
	require.NoError(t, p.EnsureSSHDir(dir, "ops"))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
	assert.True(t, runner.CalledWith("chown ops:ops "+dir))
}

func TestEnsureSSHDirTightensExisting(t *testing.T) {
	runner := execastest.NewFakeRunner()
	dir := filepath.Join(t.TempDir(), ".ssh")
	require.NoError(t, os.MkdirAll(dir, 0755))

	p := NewProvisioner(runner, nil)
	require.NoError(t, p.EnsureSSHDir(dir, "ops"))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

func TestInstallRunsAllSteps(t *testing.T) {
	runner := execastest.NewFakeRunner()

	inst := NewInstaller(runner, nil)
	var out bytes.Buffer
	require.NoError(t, inst.Install([]string{"git", "curl"}, &out))

	rendered := runner.Rendered()
	require.Len(t, rendered, 3)
	assert.Equal(t, "apt-get update", rendered[0])
	assert.Equal(t, "apt-get upgrade -y", rendered[1])
	assert.Equal(t, "apt-get install -y git curl", rendered[2])

	for _, call := range runner.Calls {
		assert.Contains(t, call.Env, "DEBIAN_FRONTEND=noninteractive")
	}
}

func TestInstallFailureIsFatal(t *testing.T) {
	runner := execastest.NewFakeRunner()
	runner.Respond("apt-get install", execastest.Response{ExitCode: 100})

	inst := NewInstaller(runner, nil)
	err := inst.Install([]string{"git"}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrPackage))
	assert.Contains(t, err.Error(), "exit 100")
}

func TestInstallStopsOnUpdateFailure(t *testing.T) {
	runner := execastest.NewFakeRunner()
	runner.Respond("apt-get update", execastest.Response{ExitCode: 1})

	inst := NewInstaller(runner, nil)
	err := inst.Install([]string{"git"}, nil)
	require.Error(t, err)

	// install must not have been attempted
	assert.False(t, runner.CalledWith("apt-get install"))
}
