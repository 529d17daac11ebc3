// Package fetch downloads the registrar helper script into the
// operations account's home directory.
package fetch

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/calebmarsh/hostup/internal/errors"
	"github.com/calebmarsh/hostup/internal/execas"
	"github.com/calebmarsh/hostup/internal/logger"
)

// defaultTimeout bounds the script download.
const defaultTimeout = 60 * time.Second

// Fetcher downloads scripts over HTTP.
type Fetcher struct {
	httpClient *http.Client
	runner     execas.Runner
	log        logger.Logger
}

// NewFetcher creates a script fetcher. A nil httpClient gets a default
// with a timeout.
func NewFetcher(httpClient *http.Client, runner execas.Runner, log logger.Logger) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if log == nil {
		log = logger.Noop()
	}
	return &Fetcher{httpClient: httpClient, runner: runner, log: log}
}

// Fetch downloads url to destPath, marks it executable, and hands
// ownership to owner when non-empty. A failure is returned to the caller
// rather than terminating the run; the pipeline treats it as best-effort.
func (f *Fetcher) Fetch(url, destPath, owner string) error {
	resp, err := f.httpClient.Get(url)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrFetch,
			"Couldn't download "+url,
			"Check network connectivity and the repository path")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.New(errors.ErrFetch,
			fmt.Sprintf("Download of %s failed (HTTP %d)", url, resp.StatusCode),
			"Check that the repository and branch exist")
	}

	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0755)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrFetch,
			"Couldn't create "+destPath, "")
	}
	_, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if copyErr != nil {
		return errors.WrapWithCode(copyErr, errors.ErrFetch,
			"Couldn't write "+destPath, "Check disk space")
	}
	if closeErr != nil {
		return errors.WrapWithCode(closeErr, errors.ErrFetch,
			"Couldn't write "+destPath, "")
	}

	if owner != "" && f.runner != nil {
		result, runErr := f.runner.Run(execas.Command{
			Name: "chown",
			Args: []string{owner + ":" + owner, destPath},
		})
		if runErr != nil {
			return runErr
		}
		if result.ExitCode != 0 {
			return errors.New(errors.ErrFetch,
				fmt.Sprintf("Couldn't chown %s to %s: %s", destPath, owner, result.Output),
				"")
		}
	}

	f.log.Info("fetched %s to %s", url, destPath)
	return nil
}
