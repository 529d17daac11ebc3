package github

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/calebmarsh/hostup/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDeployKeyCreated(t *testing.T) {
	var captured struct {
		method  string
		path    string
		auth    string
		accept  string
		version string
		body    map[string]interface{}
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		captured.accept = r.Header.Get("Accept")
		captured.version = r.Header.Get("X-GitHub-Api-Version")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &captured.body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	c := NewClient("tok123", WithBaseURL(server.URL))
	result, err := c.RegisterDeployKey("acme", "infra", "netsrv01 deploy key", "ssh-ed25519 AAAA key")
	require.NoError(t, err)
	assert.Equal(t, KeyCreated, result)

	assert.Equal(t, http.MethodPost, captured.method)
	assert.Equal(t, "/repos/acme/infra/keys", captured.path)
	assert.Equal(t, "token tok123", captured.auth)
	assert.Equal(t, "application/vnd.github+json", captured.accept)
	assert.NotEmpty(t, captured.version)

	assert.Equal(t, "netsrv01 deploy key", captured.body["title"])
	assert.Equal(t, "ssh-ed25519 AAAA key", captured.body["key"])
	assert.Equal(t, true, captured.body["read_only"])
}

func TestRegisterDeployKeyConflictIsNonFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	c := NewClient("tok", WithBaseURL(server.URL))
	result, err := c.RegisterDeployKey("acme", "infra", "t", "k")
	require.NoError(t, err)
	assert.Equal(t, KeyAlreadyExists, result)
}

func TestRegisterDeployKeyFatalStatuses(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"unauthorized", http.StatusUnauthorized},
		{"forbidden", http.StatusForbidden},
		{"not found", http.StatusNotFound},
		{"server error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			c := NewClient("tok", WithBaseURL(server.URL))
			_, err := c.RegisterDeployKey("acme", "infra", "t", "k")
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrGitHub))
		})
	}
}

func TestRegisterDeployKeyNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	c := NewClient("tok", WithBaseURL(server.URL))
	_, err := c.RegisterDeployKey("acme", "infra", "t", "k")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrGitHub))
}
