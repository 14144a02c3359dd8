package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/claimscope/claimscope/internal/progress"
	"github.com/claimscope/claimscope/internal/worker"
)

var (
	verifySourceURL   string
	verifyFile        string
	verifyConcurrency int
	verifyTimeout     time.Duration
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify [claim]",
	Short: "Verify a claim against web evidence",
	Long: `Verify searches the web for evidence on a claim, weighs source
credibility, and produces a supported, refuted, or inconclusive verdict.

Requires a Tavily API key (TAVILY_API_KEY) for web search.

A batch file verifies one claim per line (blank lines and # comments are
skipped; an optional tab-separated source URL may follow the claim).

Example:
  claimscope verify "The Eiffel Tower is in Paris"
  claimscope verify "..." --source-url https://example.org/article
  claimscope verify --file claims.txt --concurrency 4`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifySourceURL, "source-url", "", "URL the claim came from")
	verifyCmd.Flags().StringVar(&verifyFile, "file", "", "batch file with one claim per line")
	verifyCmd.Flags().IntVar(&verifyConcurrency, "concurrency", 2, "concurrent verifications in batch mode")
	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", 10*time.Minute, "overall timeout")
}

func runVerify(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && verifyFile == "" {
		return fmt.Errorf("a claim argument or --file is required")
	}

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if verifyFile != "" {
		batch := worker.NewBatchVerifier(a.verifier, verifyConcurrency)
		outcomes, err := batch.ProcessFile(ctx, verifyFile)
		if err != nil {
			return err
		}

		failed := 0
		for _, outcome := range outcomes {
			if outcome.Err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "✗ %s: %v\n", outcome.Request.ClaimText, outcome.Err)
			}
		}
		fmt.Fprintf(os.Stderr, "Verified %d claims (%d failed)\n", len(outcomes), failed)
		return enc.Encode(outcomes)
	}

	sink := progress.SinkFunc(func(e progress.Event) {
		if e.Type == progress.EventProgress {
			fmt.Fprintf(os.Stderr, "[%3d%%] %s %s\n", e.Progress, e.Step, e.Message)
		}
	})

	verification, err := a.verifier.VerifyClaim(ctx, args[0], verifySourceURL, "", sink)
	if verification == nil && err != nil {
		return err
	}
	return enc.Encode(verification)
}
