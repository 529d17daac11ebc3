package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/calebmarsh/hostup/internal/errors"
	"github.com/spf13/viper"
)

const (
	// GlobalConfigDir is the per-user config directory, under ~/.config.
	GlobalConfigDir = "hostup"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yaml"
	// SystemConfigPath is the host-wide config file.
	SystemConfigPath = "/etc/hostup/config.yaml"
)

// GlobalConfigPath returns the per-user config file path.
func GlobalConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", GlobalConfigDir, GlobalConfigFile)
}

// Load resolves a RunConfig from compiled defaults overlaid with the first
// config file found. Search order:
//
//  1. Explicit path (from --config flag)
//  2. ~/.config/hostup/config.yaml
//  3. /etc/hostup/config.yaml
//
// A missing file is not an error; the defaults stand.
func Load(explicit string) (RunConfig, error) {
	cfg := Default()

	path := explicit
	if path == "" {
		for _, candidate := range []string{GlobalConfigPath(), SystemConfigPath} {
			if candidate == "" {
				continue
			}
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if explicit != "" && os.IsNotExist(err) {
			return cfg, errors.WrapWithCode(err, errors.ErrConfig,
				"Specified config file not found: "+explicit,
				"Check the path is correct")
		}
		return cfg, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file: "+path,
			"Check the file is valid YAML")
	}

	applyFile(v, &cfg)
	return cfg, nil
}

// applyFile overlays file values onto cfg. Only keys present in the file
// override the compiled defaults.
func applyFile(v *viper.Viper, cfg *RunConfig) {
	set := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	set("ops_user", &cfg.OpsUser)
	set("admin_group", &cfg.AdminGroup)
	set("github_org", &cfg.GitHubOrg)
	set("repo", &cfg.Repo)
	set("git_user", &cfg.GitUserName)
	set("git_email", &cfg.GitEmail)
	set("key_title", &cfg.KeyTitle)
	set("clone_dir", &cfg.CloneDir)
	set("raw_host", &cfg.RawHost)
	set("ref", &cfg.Ref)

	if v.IsSet("packages") {
		cfg.Packages = v.GetStringSlice("packages")
	}
	if v.IsSet("skip_packages") {
		cfg.SkipPackages = v.GetBool("skip_packages")
	}
}

// Validate checks that the required values are present. Strict mode is the
// long-form script behavior: every identity value must be set explicitly.
// Non-strict mode only requires what cannot be defaulted.
func Validate(cfg RunConfig, strict bool) error {
	type req struct {
		flag  string
		value string
	}
	required := []req{
		{"--github-org", cfg.GitHubOrg},
		{"--repo", cfg.Repo},
	}
	if strict {
		required = append(required,
			req{"--ops-user", cfg.OpsUser},
			req{"--git-user", cfg.GitUserName},
			req{"--git-email", cfg.GitEmail},
		)
	}

	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.flag)
		}
	}

	if len(missing) > 0 {
		return errors.New(errors.ErrConfig,
			"Missing required values: "+strings.Join(missing, ", "),
			"Pass the flags listed above, or set them in "+GlobalConfigPath())
	}

	if cfg.OpsUser == "root" {
		return errors.New(errors.ErrConfig,
			"The operations account cannot be root",
			"Pick an unprivileged account name with --ops-user")
	}

	return nil
}
