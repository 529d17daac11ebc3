// Package github registers repository deploy keys through the GitHub
// REST API. Only the status code of the response matters: 201 means the
// key was created, 422 means it is already registered.
package github

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/calebmarsh/hostup/internal/errors"
	"github.com/calebmarsh/hostup/internal/logger"
)

// DefaultBaseURL is the public GitHub API endpoint.
const DefaultBaseURL = "https://api.github.com"

// apiVersion pins the REST API version header for consistent behavior.
const apiVersion = "2022-11-28"

// defaultTimeout bounds the registration call.
const defaultTimeout = 30 * time.Second

// Client calls the GitHub repository-keys endpoint.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        logger.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (used by tests).
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient creates a deploy key client authenticated with token.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        logger.Noop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterResult classifies a registration outcome.
type RegisterResult int

const (
	// KeyCreated means the deploy key was registered (HTTP 201).
	KeyCreated RegisterResult = iota
	// KeyAlreadyExists means the key was registered previously
	// (HTTP 422); callers treat this as a warning and continue.
	KeyAlreadyExists
)

// deployKeyRequest is the JSON body for the keys endpoint.
type deployKeyRequest struct {
	Title    string `json:"title"`
	Key      string `json:"key"`
	ReadOnly bool   `json:"read_only"`
}

// RegisterDeployKey registers keyMaterial as a read-only deploy key on
// owner/repo. The response body is discarded; classification is by
// status code only.
func (c *Client) RegisterDeployKey(owner, repo, title, keyMaterial string) (RegisterResult, error) {
	body, err := json.Marshal(deployKeyRequest{
		Title:    title,
		Key:      keyMaterial,
		ReadOnly: true,
	})
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrGitHub,
			"Couldn't encode the deploy key request", "")
	}

	url := fmt.Sprintf("%s/repos/%s/%s/keys", c.baseURL, owner, repo)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrGitHub,
			"Couldn't build the registration request", "")
	}
	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug("POST %s", url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrGitHub,
			"Couldn't reach the GitHub API",
			"Check network connectivity to "+c.baseURL)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		c.log.Info("deploy key %q registered on %s/%s", title, owner, repo)
		return KeyCreated, nil
	case http.StatusUnprocessableEntity:
		c.log.Warn("deploy key already registered on %s/%s", owner, repo)
		return KeyAlreadyExists, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return 0, errors.New(errors.ErrGitHub,
			fmt.Sprintf("Deploy key registration rejected (HTTP %d)", resp.StatusCode),
			"Check that the token is valid and has repository admin scope")
	case http.StatusNotFound:
		return 0, errors.New(errors.ErrGitHub,
			fmt.Sprintf("Repository %s/%s not found (HTTP 404)", owner, repo),
			"Check the organization and repository names")
	default:
		return 0, errors.New(errors.ErrGitHub,
			fmt.Sprintf("Deploy key registration failed (HTTP %d)", resp.StatusCode),
			"Check GitHub status and try again")
	}
}
