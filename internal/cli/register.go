package cli

import (
	"github.com/spf13/cobra"

	"github.com/calebmarsh/hostup/internal/config"
	"github.com/calebmarsh/hostup/internal/execas"
	"github.com/calebmarsh/hostup/internal/prompt"
	"github.com/calebmarsh/hostup/internal/registrar"
)

// register command flags
var (
	registerGitHubOrg      string
	registerRepo           string
	registerKeyTitle       string
	registerCloneDir       string
	registerOpsUser        string
	registerNonInteractive bool
)

// registerCmd registers a deploy key with GitHub and clones the repo.
var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a deploy key with GitHub and clone the repository",
	Long: `Select one of the host's public keys, register it as a read-only
deploy key on the configured repository, point the SSH client config at
it, and clone (or update) the repository.

The GitHub token is read from ` + registrar.TokenEnvVar + ` or prompted
for without echo. It is never written to disk.

Examples:
  hostup register
  hostup register --github-org acme --repo infra --non-interactive`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRegister(cmd)
	},
}

func init() {
	rootCmd.AddCommand(registerCmd)
	registerCmd.Flags().StringVar(&registerGitHubOrg, "github-org", "", "GitHub organization or user")
	registerCmd.Flags().StringVar(&registerRepo, "repo", "", "Repository name")
	registerCmd.Flags().StringVar(&registerKeyTitle, "key-title", "", "Deploy key title (default derived from hostname)")
	registerCmd.Flags().StringVar(&registerCloneDir, "clone-dir", "", "Clone destination (default <ops home>/<repo>)")
	registerCmd.Flags().StringVar(&registerOpsUser, "ops-user", "", "Operations account owning the key material")
	registerCmd.Flags().BoolVar(&registerNonInteractive, "non-interactive", false, "Fail instead of prompting for missing values")
}

func resolveRegisterConfig(cmd *cobra.Command) (config.RunConfig, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("github-org") {
		cfg.GitHubOrg = registerGitHubOrg
	}
	if flags.Changed("repo") {
		cfg.Repo = registerRepo
	}
	if flags.Changed("key-title") {
		cfg.KeyTitle = registerKeyTitle
	}
	if flags.Changed("clone-dir") {
		cfg.CloneDir = registerCloneDir
	}
	if flags.Changed("ops-user") {
		cfg.OpsUser = registerOpsUser
	}
	return cfg, nil
}

func runRegister(cmd *cobra.Command) error {
	cfg, err := resolveRegisterConfig(cmd)
	if err != nil {
		return err
	}

	var prompter prompt.Prompter
	if registerNonInteractive || !prompt.Interactive() {
		prompter = prompt.NewNonInteractive()
	} else {
		prompter = prompt.NewTerminal()
	}

	log := runLogger("[register]")
	r := registrar.New(cfg, prompter, execas.NewLocal(log), log)
	_, err = r.Run()
	return err
}
