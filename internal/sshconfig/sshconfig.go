// Package sshconfig manages host stanzas in an SSH client config file.
//
// The file is parsed into host blocks and stanzas are upserted by host
// pattern: a stanza with the same pattern is replaced when its options
// differ, left byte-for-byte untouched when they match, and appended
// when absent. A stanza pointing at a stale identity file therefore gets
// corrected on the next run instead of accumulating duplicates.
package sshconfig

import (
	"bytes"
	"os"
	"strings"

	"github.com/calebmarsh/hostup/internal/errors"
	"github.com/kevinburke/ssh_config"
)

// Option is a single key/value line inside a stanza.
type Option struct {
	Key   string
	Value string
}

// Stanza is a host block keyed by its pattern.
type Stanza struct {
	Pattern string
	Options []Option
}

// GithubStanza binds github.com to the deploy identity file.
func GithubStanza(identityFile string) Stanza {
	return Stanza{
		Pattern: "github.com",
		Options: []Option{
			{"HostName", "github.com"},
			{"User", "git"},
			{"IdentityFile", identityFile},
			{"IdentitiesOnly", "yes"},
		},
	}
}

// HostStanza binds a host pattern to a user and identity file.
func HostStanza(pattern, user, identityFile string) Stanza {
	return Stanza{
		Pattern: pattern,
		Options: []Option{
			{"User", user},
			{"IdentityFile", identityFile},
			{"IdentitiesOnly", "yes"},
		},
	}
}

// Render returns the stanza in config file form.
func Render(s Stanza) string {
	var b strings.Builder
	b.WriteString("Host " + s.Pattern + "\n")
	for _, opt := range s.Options {
		b.WriteString("    " + opt.Key + " " + opt.Value + "\n")
	}
	return b.String()
}

// block is a parsed chunk of the config file: either the prelude before
// the first Host line, or one host block.
type block struct {
	pattern string // empty for the prelude
	lines   []string
}

// parseBlocks splits config content into a prelude and host blocks.
func parseBlocks(content string) []block {
	var blocks []block
	current := block{}

	for _, line := range strings.Split(content, "\n") {
		if pattern, ok := hostLine(line); ok {
			blocks = append(blocks, current)
			current = block{pattern: pattern, lines: []string{line}}
			continue
		}
		current.lines = append(current.lines, line)
	}
	blocks = append(blocks, current)
	return blocks
}

// hostLine reports whether a line opens a host block, returning its full
// pattern list. A multi-pattern line like "Host a b" keeps both patterns,
// so it never matches a single-pattern stanza and is left alone.
func hostLine(line string) (string, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 || !strings.EqualFold(fields[0], "Host") {
		return "", false
	}
	return strings.Join(fields[1:], " "), true
}

// options parses a block's body into a key (lowercased) to value map.
func (b block) options() map[string]string {
	opts := make(map[string]string)
	for i, line := range b.lines {
		if i == 0 {
			continue // Host line
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		fields := strings.SplitN(trimmed, " ", 2)
		if len(fields) != 2 {
			continue
		}
		opts[strings.ToLower(fields[0])] = strings.TrimSpace(fields[1])
	}
	return opts
}

// equivalent reports whether the block already carries exactly the
// stanza's options. Formatting differences don't count.
func (b block) equivalent(s Stanza) bool {
	have := b.options()
	if len(have) != len(s.Options) {
		return false
	}
	for _, opt := range s.Options {
		if have[strings.ToLower(opt.Key)] != opt.Value {
			return false
		}
	}
	return true
}

// Upsert ensures each stanza is present in the config file at path.
// Matching is by host pattern: an equivalent stanza leaves the file
// untouched, a divergent one is replaced in place, a missing one is
// appended. The file is created with mode 0600 when it does not exist,
// and rewritten 0600 when modified. Returns true when the file changed.
func Upsert(path string, stanzas ...Stanza) (changed bool, err error) {
	content := ""
	if data, readErr := os.ReadFile(path); readErr == nil {
		content = string(data)
	} else if !os.IsNotExist(readErr) {
		return false, errors.WrapWithCode(readErr, errors.ErrSSH,
			"Couldn't read SSH config "+path, "")
	}

	var blocks []block
	if content != "" {
		blocks = parseBlocks(content)
	}

	for _, s := range stanzas {
		found := false
		for i := range blocks {
			if blocks[i].pattern != s.Pattern {
				continue
			}
			found = true
			if !blocks[i].equivalent(s) {
				blocks[i].lines = strings.Split(strings.TrimRight(Render(s), "\n"), "\n")
				changed = true
			}
			break
		}
		if !found {
			rendered := strings.Split(strings.TrimRight(Render(s), "\n"), "\n")
			// Blank separator when appending after existing content.
			if len(blocks) > 0 {
				rendered = append([]string{""}, rendered...)
			}
			blocks = append(blocks, block{pattern: s.Pattern, lines: rendered})
			changed = true
		}
	}

	if !changed {
		return false, nil
	}

	var out []string
	for _, b := range blocks {
		out = append(out, b.lines...)
	}
	result := strings.Join(out, "\n")
	if !strings.HasSuffix(result, "\n") {
		result += "\n"
	}

	// Sanity-check that what we are about to write still parses.
	if _, decodeErr := ssh_config.Decode(bytes.NewReader([]byte(result))); decodeErr != nil {
		return false, errors.WrapWithCode(decodeErr, errors.ErrSSH,
			"Refusing to write a malformed SSH config", "")
	}

	if err := os.WriteFile(path, []byte(result), 0600); err != nil {
		return false, errors.WrapWithCode(err, errors.ErrSSH,
			"Couldn't write SSH config "+path,
			"Check directory permissions")
	}
	if err := os.Chmod(path, 0600); err != nil {
		return false, errors.WrapWithCode(err, errors.ErrSSH,
			"Couldn't set permissions on "+path, "")
	}

	return true, nil
}

// Lookup returns the value configured for a key under the given host
// alias, using real ssh_config resolution (wildcards included).
func Lookup(path, alias, key string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.WrapWithCode(err, errors.ErrSSH,
			"Couldn't read SSH config "+path, "")
	}

	cfg, err := ssh_config.Decode(bytes.NewReader(data))
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrSSH,
			"Couldn't parse SSH config "+path, "")
	}

	value, err := cfg.Get(alias, key)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrSSH,
			"Couldn't resolve "+key+" for "+alias, "")
	}
	return value, nil
}

// HasHost reports whether the config file contains a block for the exact
// host pattern.
func HasHost(path, pattern string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.WrapWithCode(err, errors.ErrSSH,
			"Couldn't read SSH config "+path, "")
	}

	for _, b := range parseBlocks(string(data)) {
		if b.pattern == pattern {
			return true, nil
		}
	}
	return false, nil
}
