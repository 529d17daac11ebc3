package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/calebmarsh/hostup/internal/config"
	"github.com/calebmarsh/hostup/internal/execas"
	"github.com/calebmarsh/hostup/internal/pipeline"
	"github.com/calebmarsh/hostup/internal/prompt"
	"github.com/calebmarsh/hostup/internal/system"
	"github.com/calebmarsh/hostup/internal/ui"
)

// setup command flags
var (
	setupOpsUser      string
	setupGitHubOrg    string
	setupGitHubUser   string
	setupRepo         string
	setupGitUser      string
	setupGitEmail     string
	setupKeyTitle     string
	setupCloneDir     string
	setupSkipPackages bool
	setupDryRun       bool
	setupYes          bool
	setupStrict       bool
)

// setupCmd runs the full bootstrap pipeline on the local host.
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Bootstrap this host",
	Long: `Run the bootstrap pipeline: create the operations account, install
base packages, generate SSH key pairs, write the SSH client config, fetch
the registrar script, and set the git identity.

Every step is idempotent; re-running setup on an already bootstrapped
host changes nothing.

Examples:
  hostup setup --github-org acme --repo infra
  hostup setup --ops-user deploy --git-user "Ops Bot" --git-email ops@acme.dev
  hostup setup --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetup(cmd)
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
	setupCmd.Flags().StringVar(&setupOpsUser, "ops-user", "", "Operations account name")
	setupCmd.Flags().StringVar(&setupGitHubOrg, "github-org", "", "GitHub organization or user")
	setupCmd.Flags().StringVar(&setupGitHubUser, "github-user", "", "Alias for --github-org")
	setupCmd.Flags().StringVar(&setupRepo, "repo", "", "Repository name")
	setupCmd.Flags().StringVar(&setupGitUser, "git-user", "", "Git user.name for the operations account")
	setupCmd.Flags().StringVar(&setupGitEmail, "git-email", "", "Git user.email for the operations account")
	setupCmd.Flags().StringVar(&setupKeyTitle, "key-title", "", "Deploy key title")
	setupCmd.Flags().StringVar(&setupCloneDir, "clone-dir", "", "Clone destination (default <ops home>/<repo>)")
	setupCmd.Flags().BoolVar(&setupSkipPackages, "skip-packages", false, "Skip the package installer step")
	setupCmd.Flags().BoolVar(&setupDryRun, "dry-run", false, "Print the step plan without changing anything")
	setupCmd.Flags().BoolVarP(&setupYes, "yes", "y", false, "Skip the confirmation prompt")
	setupCmd.Flags().BoolVar(&setupStrict, "strict", false, "Require every identity value instead of falling back to defaults")
}

// resolveSetupConfig overlays explicitly passed flags on the loaded
// config. Flags the user did not touch leave file/default values alone.
func resolveSetupConfig(cmd *cobra.Command) (config.RunConfig, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("ops-user") {
		cfg.OpsUser = setupOpsUser
	}
	if flags.Changed("github-user") {
		cfg.GitHubOrg = setupGitHubUser
	}
	if flags.Changed("github-org") {
		cfg.GitHubOrg = setupGitHubOrg
	}
	if flags.Changed("repo") {
		cfg.Repo = setupRepo
	}
	if flags.Changed("git-user") {
		cfg.GitUserName = setupGitUser
	}
	if flags.Changed("git-email") {
		cfg.GitEmail = setupGitEmail
	}
	if flags.Changed("key-title") {
		cfg.KeyTitle = setupKeyTitle
	}
	if flags.Changed("clone-dir") {
		cfg.CloneDir = setupCloneDir
	}
	if flags.Changed("skip-packages") {
		cfg.SkipPackages = setupSkipPackages
	}
	if err := config.Validate(cfg, setupStrict); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func runSetup(cmd *cobra.Command) error {
	cfg, err := resolveSetupConfig(cmd)
	if err != nil {
		return err
	}

	log := runLogger("[setup]")
	p := pipeline.New(cfg, execas.NewLocal(log), log)

	if setupDryRun {
		fmt.Println("Plan (dry run, nothing executed):")
		for _, step := range p.Plan() {
			fmt.Printf("  %s %s\n", ui.SymbolPending, step)
		}
		return nil
	}

	if err := system.CheckPrivileged(); err != nil {
		return err
	}

	if !setupYes && prompt.Interactive() {
		proceed, err := prompt.NewTerminal().Confirm(
			fmt.Sprintf("Bootstrap this host for %s/%s as %q?", cfg.GitHubOrg, cfg.Repo, cfg.OpsUser), true)
		if err != nil {
			return err
		}
		if !proceed {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if prompt.Interactive() && !verbose {
		return runSetupWithStepList(p)
	}
	return runSetupPlain(p)
}

// runSetupWithStepList renders live progress through the Bubble Tea step
// list while the pipeline runs on its own goroutine.
func runSetupWithStepList(p *pipeline.Pipeline) error {
	program := tea.NewProgram(ui.NewStepList(p.Plan()))

	p.SetEventHandler(func(e pipeline.Event) {
		program.Send(ui.StepUpdateMsg{
			Name:   e.Step,
			Status: stepStatus(e.Status),
			Detail: e.Detail,
		})
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- p.Run()
		program.Send(ui.StepsDoneMsg{})
	}()

	if _, err := program.Run(); err != nil {
		return err
	}
	if err := <-errCh; err != nil {
		return err
	}
	fmt.Printf("\n%s Host bootstrapped\n", ui.SymbolSuccess)
	return nil
}

// runSetupPlain prints one line per step transition, for non-terminal
// output and verbose runs.
func runSetupPlain(p *pipeline.Pipeline) error {
	p.SetEventHandler(func(e pipeline.Event) {
		symbol := map[pipeline.Status]string{
			pipeline.StatusRunning: ui.SymbolProgress,
			pipeline.StatusDone:    ui.SymbolSuccess,
			pipeline.StatusSkipped: ui.SymbolSkipped,
			pipeline.StatusWarned:  ui.SymbolWarn,
			pipeline.StatusFailed:  ui.SymbolFail,
		}[e.Status]
		if e.Detail != "" {
			fmt.Printf("%s %s (%s)\n", symbol, e.Step, e.Detail)
		} else {
			fmt.Printf("%s %s\n", symbol, e.Step)
		}
	})

	if err := p.Run(); err != nil {
		return err
	}
	fmt.Printf("\n%s Host bootstrapped\n", ui.SymbolSuccess)
	return nil
}

// stepStatus maps pipeline statuses onto step list statuses.
func stepStatus(s pipeline.Status) ui.StepStatus {
	switch s {
	case pipeline.StatusRunning:
		return ui.StepRunning
	case pipeline.StatusDone:
		return ui.StepDone
	case pipeline.StatusSkipped:
		return ui.StepSkipped
	case pipeline.StatusWarned:
		return ui.StepWarned
	case pipeline.StatusFailed:
		return ui.StepFailed
	default:
		return ui.StepPending
	}
}
