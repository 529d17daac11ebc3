package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/calebmarsh/hostup/internal/config"
	"github.com/calebmarsh/hostup/internal/errors"
	"github.com/calebmarsh/hostup/internal/prompt"
	"github.com/calebmarsh/hostup/internal/ui"
)

var initForce bool

// initCmd writes a starter config file.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a hostup config file",
	Long: `Create ` + "~/.config/hostup/config.yaml" + ` with the values setup and
register will use, so they don't have to be passed as flags every run.

Prompts for the values when run interactively; otherwise writes the
compiled defaults.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit()
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing config file")
}

// fileConfig is the YAML shape of the config file. Field names match the
// keys the loader reads.
type fileConfig struct {
	OpsUser    string `yaml:"ops_user"`
	AdminGroup string `yaml:"admin_group"`
	GitHubOrg  string `yaml:"github_org"`
	Repo       string `yaml:"repo"`
	GitUser    string `yaml:"git_user,omitempty"`
	GitEmail   string `yaml:"git_email,omitempty"`
	KeyTitle   string `yaml:"key_title,omitempty"`
	CloneDir   string `yaml:"clone_dir,omitempty"`
}

func runInit() error {
	path := config.GlobalConfigPath()
	if path == "" {
		return errors.New(errors.ErrConfig,
			"Couldn't resolve your home directory", "")
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		if !prompt.Interactive() {
			return errors.New(errors.ErrConfig,
				"Config file already exists: "+path,
				"Use --force to overwrite")
		}
		var overwrite bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", path)).
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite")
		}
		if !overwrite {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	fc := fileConfig{
		OpsUser:    config.DefaultOpsUser,
		AdminGroup: config.DefaultAdminGroup,
	}

	if prompt.Interactive() {
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Operations account name").
					Value(&fc.OpsUser),
				huh.NewInput().
					Title("GitHub organization or user").
					Value(&fc.GitHubOrg),
				huh.NewInput().
					Title("Repository name").
					Value(&fc.Repo),
				huh.NewInput().
					Title("Git user.name (optional)").
					Value(&fc.GitUser),
				huh.NewInput().
					Title("Git user.email (optional)").
					Value(&fc.GitEmail),
			),
		)
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input", "")
		}
	}

	if err := writeConfigFile(path, fc); err != nil {
		return err
	}
	fmt.Printf("%s Wrote %s\n", ui.SymbolSuccess, path)
	return nil
}

func writeConfigFile(path string, fc fileConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't create "+filepath.Dir(path), "")
	}
	data, err := yaml.Marshal(fc)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't encode config", "")
	}
	header := []byte("# hostup configuration. Flags override these values.\n")
	if err := os.WriteFile(path, append(header, data...), 0644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't write "+path,
			"Check directory permissions")
	}
	return nil
}
