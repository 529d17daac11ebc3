package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodes(t *testing.T) {
	codes := []string{
		ErrConfig,
		ErrPrivilege,
		ErrPackage,
		ErrSSH,
		ErrGitHub,
		ErrGit,
		ErrFetch,
		ErrExec,
	}

	for _, code := range codes {
		assert.NotEmpty(t, code, "error code should not be empty")
	}

	// Verify codes are unique
	seen := make(map[string]bool)
	for _, code := range codes {
		assert.False(t, seen[code], "error code %q should be unique", code)
		seen[code] = true
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		message    string
		suggestion string
	}{
		{
			name:       "config error",
			code:       ErrConfig,
			message:    "Missing required flag --repo",
			suggestion: "Pass --repo or set it in the config file",
		},
		{
			name:       "privilege error",
			code:       ErrPrivilege,
			message:    "hostup setup must run as root",
			suggestion: "Re-run with sudo",
		},
		{
			name:       "github error",
			code:       ErrGitHub,
			message:    "Deploy key registration failed (HTTP 500)",
			suggestion: "Check GitHub status and token scopes",
		},
		{
			name:       "git error",
			code:       ErrGit,
			message:    "Repository update failed",
			suggestion: "Check the working tree for local changes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, tt.suggestion)

			require.NotNil(t, err)
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.message, err.Message)
			assert.Equal(t, tt.suggestion, err.Suggestion)
			assert.Nil(t, err.Cause)
		})
	}
}

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name          string
		err           *Error
		expectedParts []string
		notExpected   []string
	}{
		{
			name: "basic error formatting",
			err:  New(ErrConfig, "Missing GitHub organization", "Pass --github-org"),
			expectedParts: []string{
				"Missing GitHub organization",
				"Pass --github-org",
			},
		},
		{
			name: "error with failure symbol",
			err:  New(ErrSSH, "Key generation failed", "Check disk space"),
			expectedParts: []string{
				"✗",
				"Key generation failed",
			},
		},
		{
			name: "error without suggestion",
			err:  New(ErrExec, "Command failed", ""),
			expectedParts: []string{
				"Command failed",
			},
			notExpected: []string{
				"suggestion",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := tt.err.Error()

			for _, part := range tt.expectedParts {
				assert.Contains(t, output, part, "output should contain %q", part)
			}

			for _, part := range tt.notExpected {
				assert.NotContains(t, output, part, "output should not contain %q", part)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("exit status 100")
	wrapped := Wrap(cause, "apt-get install failed")

	require.NotNil(t, wrapped)
	assert.Equal(t, ErrExec, wrapped.Code)
	assert.Equal(t, "apt-get install failed", wrapped.Message)
	assert.Equal(t, cause, wrapped.Cause)
	assert.Contains(t, wrapped.Error(), "exit status 100")
}

func TestWrapWithCode(t *testing.T) {
	cause := errors.New("connection refused")
	wrapped := WrapWithCode(cause, ErrGitHub,
		"Cannot reach api.github.com",
		"Check network connectivity")

	assert.Equal(t, ErrGitHub, wrapped.Code)
	assert.Equal(t, cause, wrapped.Cause)
	assert.Contains(t, wrapped.Error(), "connection refused")
	assert.Contains(t, wrapped.Error(), "Check network connectivity")
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	wrapped := Wrap(cause, "something failed")

	assert.Equal(t, cause, errors.Unwrap(wrapped))
	assert.True(t, errors.Is(wrapped, cause))
}

func TestIsCode(t *testing.T) {
	err := New(ErrPrivilege, "not root", "")

	assert.True(t, IsCode(err, ErrPrivilege))
	assert.False(t, IsCode(err, ErrConfig))
	assert.False(t, IsCode(nil, ErrPrivilege))
	assert.False(t, IsCode(errors.New("plain"), ErrPrivilege))

	// Works through wrapping
	outer := Wrap(err, "outer")
	assert.True(t, IsCode(outer, ErrExec))
}
