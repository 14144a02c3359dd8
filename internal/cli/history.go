package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/claimscope/claimscope/internal/model"
)

var (
	historyStatus string
	historyLimit  int
	historyOffset int
	historyClaims bool
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored analyses and verifications",
	Long: `History lists persisted content analyses, or claim verifications with
--claims.

Example:
  claimscope history
  claimscope history --status failed
  claimscope history --claims --limit 20`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyStatus, "status", "", "filter analyses by status (pending, completed, failed)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "maximum records to return")
	historyCmd.Flags().IntVar(&historyOffset, "offset", 0, "records to skip")
	historyCmd.Flags().BoolVar(&historyClaims, "claims", false, "list claim verifications instead of analyses")
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if historyClaims {
		verifications, err := a.verifs.List("", historyLimit)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "%d verifications\n", len(verifications))
		return enc.Encode(verifications)
	}

	status := model.AnalysisStatus(historyStatus)
	switch status {
	case "", model.AnalysisPending, model.AnalysisCompleted, model.AnalysisFailed:
	default:
		return fmt.Errorf("invalid status: %s", historyStatus)
	}

	analyses, total, err := a.analyses.List(status, historyLimit, historyOffset)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%d of %d analyses\n", len(analyses), total)
	return enc.Encode(analyses)
}
