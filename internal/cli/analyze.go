package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/claimscope/claimscope/internal/progress"
	"github.com/claimscope/claimscope/internal/step"
)

var (
	analyzeStep    string
	analyzeAll     bool
	analyzeForce   bool
	analyzeTimeout time.Duration
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <url>",
	Short: "Run analysis steps against a URL",
	Long: `Analyze fetches a page and runs one or all analysis steps against it:
summary, claims, controversy, fallacies, counterargument.

Each step's JSON output is printed to stdout; progress goes to stderr.
Results are persisted, so re-running a step serves the stored output
unless --force is given.

Example:
  claimscope analyze https://example.org/article
  claimscope analyze https://example.org/article --step claims
  claimscope analyze https://example.org/article --all`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeStep, "step", string(step.Summary), "step to run (summary, claims, controversy, fallacies, counterargument)")
	analyzeCmd.Flags().BoolVar(&analyzeAll, "all", false, "run every analysis step in order")
	analyzeCmd.Flags().BoolVar(&analyzeForce, "force", false, "re-run even when a stored result exists")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 5*time.Minute, "overall timeout")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	url := args[0]

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), analyzeTimeout)
	defer cancel()

	steps := []step.ID{step.ID(analyzeStep)}
	if analyzeAll {
		steps = step.AnalysisSteps
	}
	for _, id := range steps {
		if !step.Valid(id) {
			return fmt.Errorf("unknown step: %s", id)
		}
	}

	sink := progress.SinkFunc(func(e progress.Event) {
		if e.Type == progress.EventProgress && verbose {
			fmt.Fprintf(os.Stderr, "[%3d%%] %s %s\n", e.Progress, e.Step, e.Message)
		}
	})

	output := make(map[string]any, len(steps))
	for _, id := range steps {
		if !analyzeForce {
			if cached, ok, err := storedResult(a, id, url); err != nil {
				return err
			} else if ok {
				output[string(id)] = cached
				fmt.Fprintf(os.Stderr, "✓ %s (stored)\n", id)
				continue
			}
		}

		result, err := a.orchestrator.RunStepWithProgress(ctx, id, url, sink)
		if err != nil {
			return fmt.Errorf("step %s: %w", id, err)
		}
		output[string(id)] = result
		fmt.Fprintf(os.Stderr, "✓ %s\n", id)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

// storedResult returns a previously persisted result for the steps that have
// one (summary, claims)
func storedResult(a *app, id step.ID, url string) (any, bool, error) {
	switch id {
	case step.Summary:
		existing, err := a.orchestrator.CheckExisting(url)
		if err != nil || existing == nil {
			return nil, false, err
		}
		return existing, true, nil
	case step.Claims:
		existing, err := a.orchestrator.CheckExistingClaims(url)
		if err != nil || existing == nil {
			return nil, false, err
		}
		return existing, true, nil
	default:
		return nil, false, nil
	}
}
