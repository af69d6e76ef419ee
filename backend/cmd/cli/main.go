package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/retouchly/brief-assistant/backend/internal/analyzer"
	"github.com/retouchly/brief-assistant/backend/internal/api"
	"github.com/retouchly/brief-assistant/backend/internal/config"
	"github.com/retouchly/brief-assistant/backend/internal/intake"
	"github.com/retouchly/brief-assistant/backend/internal/logger"
)

var (
	outputFormat string
	policyPath   string
	skipIntake   bool
	platforms    []string
	urgencyFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "brief",
	Short: "Analyze photo-editing project briefs",
	Long: `brief runs the intake form assistant locally: it detects platforms, complexity,
templates, urgency and asset counts in a free-text brief and shows whether the
intake policy would quote it automatically.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch outputFormat {
		case "text", "json", "yaml":
			return nil
		default:
			return fmt.Errorf("unknown format %q (want text, json or yaml)", outputFormat)
		}
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [brief...]",
	Short: "Run the full analysis on a brief (reads stdin when no brief is given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := briefText(args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		engine, err := loadEngine()
		if err != nil {
			return err
		}
		return runAnalysis(cmd.OutOrStdout(), engine, text, platforms, analyzer.ParseUrgencyLevel(urgencyFlag))
	},
}

var detectCmd = &cobra.Command{
	Use:       "detect <platforms|complexity|templates|urgency|assets> [brief...]",
	Short:     "Run a single detector on a brief",
	Args:      cobra.MinimumNArgs(1),
	ValidArgs: []string{"platforms", "complexity", "templates", "urgency", "assets"},
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := briefText(args[1:], cmd.InOrStdin())
		if err != nil {
			return err
		}
		result, err := api.RunDetector(analyzer.NewAssistant(), args[0], text)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), result, func(w io.Writer) { printDetector(w, args[0], result) })
	},
}

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "Print the keyword tables the analyzer matches against",
	RunE: func(cmd *cobra.Command, args []string) error {
		tables := analyzer.Keywords()
		return render(cmd.OutOrStdout(), tables, func(w io.Writer) { printKeywords(w, tables) })
	},
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Type briefs interactively and see the analysis as you go",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := loadEngine()
		if err != nil {
			return err
		}
		return repl(cmd.InOrStdin(), cmd.OutOrStdout(), engine)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "text", "output format: text, json or yaml")
	rootCmd.PersistentFlags().StringVar(&policyPath, "policy", "", "intake policy file (defaults to INTAKE_POLICY_PATH)")
	rootCmd.PersistentFlags().BoolVar(&skipIntake, "no-intake", false, "skip the intake policy decision")

	for _, c := range []*cobra.Command{analyzeCmd, replCmd} {
		c.Flags().StringSliceVarP(&platforms, "platforms", "p", nil, "platforms already selected on the form")
		c.Flags().StringVarP(&urgencyFlag, "urgency", "u", "standard", "urgency selected on the form: standard, rush or emergency")
	}

	rootCmd.AddCommand(analyzeCmd, detectCmd, keywordsCmd, replCmd)
}

func main() {
	godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadEngine() (*intake.Engine, error) {
	if skipIntake {
		return nil, nil
	}
	path := policyPath
	if path == "" {
		path = config.Load().Intake.PolicyPath
	}
	engine, err := intake.NewEngine(path, logger.Discard())
	if err != nil {
		return nil, fmt.Errorf("failed to load intake policy: %w", err)
	}
	return engine, nil
}

// briefText joins the arguments, or reads the whole of stdin when there are none
func briefText(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read brief from stdin: %w", err)
	}
	return string(data), nil
}

func runAnalysis(w io.Writer, engine *intake.Engine, text string, current []string, urgency analyzer.UrgencyLevel) error {
	analysis := analyzer.AnalyzeInput(text, current, urgency)

	var decision *intake.Result
	if engine != nil && !analysis.Empty() {
		result := engine.Evaluate("cli", analysis)
		decision = &result
	}

	out := api.AnalyzeResponse{Analysis: analysis, Intake: decision}
	return render(w, out, func(w io.Writer) { printAnalysis(w, analysis, decision) })
}

func repl(in io.Reader, out io.Writer, engine *intake.Engine) error {
	banner := color.New(color.FgCyan, color.Bold)
	banner.Fprintln(out, "Brief assistant. Describe a project, or type 'exit' to quit.")
	fmt.Fprintln(out)

	prompt := color.New(color.FgBlue, color.Bold)
	scanner := bufio.NewScanner(in)
	current := append([]string(nil), platforms...)
	urgency := analyzer.ParseUrgencyLevel(urgencyFlag)

	for {
		prompt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			banner.Fprintln(out, "Goodbye!")
			break
		}

		if err := runAnalysis(out, engine, line, current, urgency); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}
	return scanner.Err()
}
