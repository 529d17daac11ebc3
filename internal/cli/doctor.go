package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/calebmarsh/hostup/internal/doctor"
	"github.com/calebmarsh/hostup/internal/errors"
	"github.com/calebmarsh/hostup/internal/execas"
	"github.com/calebmarsh/hostup/internal/ui"
)

var doctorJSON bool

// doctorCmd runs preflight diagnostics without changing anything.
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check this host's readiness for setup and register",
	Long: `Run read-only diagnostics: required binaries, privilege level, key
material, SSH client config, and GitHub API reachability.

Exits nonzero when any check fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDoctor()
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "Machine-readable output")
}

func runDoctor() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	runner := execas.NewLocal(runLogger("[doctor]"))

	var sp *ui.Spinner
	if !doctorJSON {
		sp = ui.NewSpinner("Running checks")
		sp.Start()
	}
	results := doctor.RunAll(doctor.Checks(cfg, runner))
	if sp != nil {
		if doctor.HasFailures(results) {
			sp.Fail()
		} else {
			sp.Success()
		}
	}

	if doctorJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		printDoctorResults(results)
	}

	if doctor.HasFailures(results) {
		return errors.New(errors.ErrConfig,
			"Preflight found problems",
			"Address the failed checks above and re-run 'hostup doctor'")
	}
	return nil
}

func printDoctorResults(results []doctor.CheckResult) {
	muted := lipgloss.NewStyle().Foreground(ui.ColorMuted)

	for _, r := range results {
		var symbol string
		switch r.Status {
		case doctor.StatusPass:
			symbol = ui.SymbolSuccess
		case doctor.StatusWarn:
			symbol = ui.SymbolWarn
		default:
			symbol = ui.SymbolFail
		}
		fmt.Printf("%s %s %s\n", symbol, r.Name, muted.Render(r.Message))
		if r.Suggestion != "" && r.Status != doctor.StatusPass {
			fmt.Printf("  %s\n", muted.Render(r.Suggestion))
		}
	}

	counts := doctor.CountByStatus(results)
	fmt.Printf("\n%d passed, %d warnings, %d failed\n",
		counts[doctor.StatusPass], counts[doctor.StatusWarn], counts[doctor.StatusFail])
}
