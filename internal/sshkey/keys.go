// Package sshkey generates the Ed25519 key material the bootstrap needs:
// the operations identity and the GitHub deploy key.
package sshkey

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/calebmarsh/hostup/internal/errors"
	"github.com/calebmarsh/hostup/internal/execas"
	"github.com/calebmarsh/hostup/internal/logger"
	xssh "golang.org/x/crypto/ssh"
)

// Generator creates key pairs on disk and hands ownership to the
// operations account.
type Generator struct {
	runner execas.Runner
	log    logger.Logger
}

// NewGenerator creates a key generator.
func NewGenerator(runner execas.Runner, log logger.Logger) *Generator {
	if log == nil {
		log = logger.Noop()
	}
	return &Generator{runner: runner, log: log}
}

// EnsureKeyPair creates an Ed25519 key pair at path/path.pub with the
// given comment and no passphrase, unless the private key already exists.
// Existing keys are never regenerated or rotated. The private key is
// written 0600 and the public key 0644; both are chowned to owner when
// owner is non-empty. Returns true when a new pair was generated.
func (g *Generator) EnsureKeyPair(path, comment, owner string) (created bool, err error) {
	if _, statErr := os.Stat(path); statErr == nil {
		g.log.Info("key %s already exists, skipping generation", path)
		return false, nil
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return false, errors.WrapWithCode(err, errors.ErrSSH,
			"Couldn't generate Ed25519 key material", "")
	}

	block, err := xssh.MarshalPrivateKey(priv, comment)
	if err != nil {
		return false, errors.WrapWithCode(err, errors.ErrSSH,
			"Couldn't encode the private key", "")
	}
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0600); err != nil {
		return false, errors.WrapWithCode(err, errors.ErrSSH,
			"Couldn't write private key "+path,
			"Check disk space and directory permissions")
	}

	sshPub, err := xssh.NewPublicKey(pub)
	if err != nil {
		return false, errors.WrapWithCode(err, errors.ErrSSH,
			"Couldn't encode the public key", "")
	}
	authorized := strings.TrimRight(string(xssh.MarshalAuthorizedKey(sshPub)), "\n")
	if comment != "" {
		authorized += " " + comment
	}
	if err := os.WriteFile(path+".pub", []byte(authorized+"\n"), 0644); err != nil {
		return false, errors.WrapWithCode(err, errors.ErrSSH,
			"Couldn't write public key "+path+".pub", "")
	}

	if owner != "" {
		result, runErr := g.runner.Run(execas.Command{
			Name: "chown",
			Args: []string{owner + ":" + owner, path, path + ".pub"},
		})
		if runErr != nil {
			return false, runErr
		}
		if result.ExitCode != 0 {
			return false, errors.New(errors.ErrSSH,
				fmt.Sprintf("Couldn't chown key files to %s: %s", owner, result.Output),
				"")
		}
	}

	g.log.Info("generated key pair at %s (%s)", path, comment)
	return true, nil
}

// ReadPublicKey returns the trimmed contents of a public key file.
func ReadPublicKey(pubPath string) (string, error) {
	data, err := os.ReadFile(pubPath)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrSSH,
			"Couldn't read public key "+pubPath,
			"Check that the file exists and is readable")
	}
	return strings.TrimSpace(string(data)), nil
}

// ListPublicKeys returns the full paths of the *.pub files in dir,
// sorted by name.
func ListPublicKeys(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			"Couldn't read SSH directory "+dir, "")
	}

	var keys []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".pub") {
			continue
		}
		keys = append(keys, filepath.Join(dir, entry.Name()))
	}
	return keys, nil
}

// PrivatePath derives the private key path from a public key path.
func PrivatePath(pubPath string) string {
	return strings.TrimSuffix(pubPath, ".pub")
}
