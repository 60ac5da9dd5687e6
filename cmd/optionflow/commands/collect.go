package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run one fetch-and-store cycle",
	Long: `Fetches the full option chain for one underlying, scores every
contract, and upserts the day's rows into Postgres.

Outside the US trading session the run is skipped unless --force is
given. Rerunning on the same trading date overwrites the day's rows
in place.

Example:
  go run ./cmd/optionflow collect
  go run ./cmd/optionflow collect --symbol QQQ
  go run ./cmd/optionflow collect --force`,
	RunE: runCollect,
}

var (
	collectSymbol string
	collectForce  bool
	collectDryRun bool
	collectExpiry string
)

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().StringVar(&collectSymbol, "symbol", "", "underlying symbol (default from UNDERLYING_SYMBOL env)")
	collectCmd.Flags().BoolVar(&collectForce, "force", false, "bypass the market window gate")
	collectCmd.Flags().BoolVar(&collectDryRun, "dry-run", false, "fetch and transform without writing")
	collectCmd.Flags().StringVar(&collectExpiry, "expiry", "", "with --dry-run, keep only this expiration (YYYY-MM-DD)")
}

func runCollect(cmd *cobra.Command, args []string) error {
	d, err := buildDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	symbol := collectSymbol
	if symbol == "" {
		symbol = d.cfg.Ingest.Symbol
	}

	ctx := cmd.Context()

	if collectDryRun {
		result, rows, err := d.pipeline.FetchOnly(ctx, symbol, collectExpiry, collectForce)
		if err != nil {
			return fmt.Errorf("fetch-only for %s: %w", symbol, err)
		}
		if result.Skipped {
			fmt.Printf("Skipped: %s\n", result.SkipReason)
			return nil
		}
		fmt.Printf("Fetched %d contracts, %d rows after transform (nothing written)\n",
			result.ContractsFetched, len(rows))
		return nil
	}

	if err := d.repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	result, err := d.pipeline.Run(ctx, symbol, collectForce)
	if err != nil {
		return fmt.Errorf("collect for %s: %w", symbol, err)
	}

	if result.Skipped {
		fmt.Printf("Skipped: %s\n", result.SkipReason)
		return nil
	}

	fmt.Printf("Stored %d rows (%d calls, %d puts) from %d contracts in %s\n",
		result.RowsWritten, result.Calls, result.Puts,
		result.ContractsFetched, result.Elapsed)
	if result.ContractsSkipped > 0 {
		fmt.Printf("Skipped %d contracts missing mandatory fields\n", result.ContractsSkipped)
	}

	return nil
}
