package cli

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"fxjournal/internal/metrics"
)

// addJournalCommands adds the trade journal commands.
func addJournalCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newListCmd(app))
	rootCmd.AddCommand(newStatsCmd(app))
	rootCmd.AddCommand(newChartCmd(app))
	rootCmd.AddCommand(newLeaderboardCmd(app))
	rootCmd.AddCommand(newExportCmd(app))
	rootCmd.AddCommand(newImportCmd(app))
}

func newListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List trades, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			result, err := app.Service.ListTrades(cmd.Context(), app.principal(cmd), "")
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(result)
			}
			if result.Degraded {
				output.Warning("Store unavailable, showing empty journal")
			}
			if len(result.Trades) == 0 {
				output.Dim("No trades recorded")
				return nil
			}

			table := NewTable(output, "DATE", "INSTRUMENT", "DIR", "STATUS", "RR", "PNL", "OUTCOME")
			for _, t := range result.Trades {
				pnl := "-"
				if t.PnL != nil {
					pnl = output.FormatPnL(*t.PnL)
				}
				table.AddRow(
					FormatDate(t.Date),
					t.Instrument,
					string(t.Direction),
					string(t.Status),
					FormatRR(t.PlannedRR),
					pnl,
					string(t.Outcome),
				)
			}
			table.Render()
			return nil
		},
	}
	return cmd
}

func newStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show performance summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			result, err := app.Service.ListTrades(cmd.Context(), app.principal(cmd), "")
			if err != nil {
				return err
			}
			summary := metrics.ComputeSummary(result.Trades)
			if output.IsJSON() {
				return output.JSON(summary)
			}

			output.Bold("Performance Summary")
			output.Printf("  Closed trades:  %d\n", summary.TotalTrades)
			output.Printf("  Win rate:       %.1f%%\n", summary.WinRate)
			output.Printf("  Net PnL:        %s\n", output.FormatPnL(summary.NetPnL))
			output.Printf("  Profit factor:  %.2f\n", summary.ProfitFactor)
			output.Printf("  Avg win:        %s\n", FormatCurrency(summary.AvgWin))
			output.Printf("  Avg loss:       %s\n", FormatCurrency(summary.AvgLoss))
			output.Printf("  Max drawdown:   %s\n", FormatCurrency(summary.MaxDrawdown))
			return nil
		},
	}
}

func newChartCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Show cumulative PnL chart points",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			timeframe, _ := cmd.Flags().GetString("timeframe")

			tf := metrics.Timeframe(timeframe)
			switch tf {
			case metrics.TimeframeDaily, metrics.TimeframeWeekly, metrics.TimeframeMonthly:
			default:
				return fmt.Errorf("invalid timeframe: %s", timeframe)
			}

			result, err := app.Service.ListTrades(cmd.Context(), app.principal(cmd), "")
			if err != nil {
				return err
			}
			points := metrics.BucketByTimeframe(result.Trades, tf)
			if output.IsJSON() {
				return output.JSON(points)
			}

			table := NewTable(output, "PERIOD", "CUMULATIVE PNL")
			for _, p := range points {
				table.AddRow(p.Label, output.FormatPnL(p.PnL))
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().String("timeframe", string(metrics.TimeframeDaily), "Daily, Weekly or Monthly")
	return cmd
}

func newLeaderboardCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the community leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			entries, err := app.Leaderboard.Build(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(entries)
			}
			if len(entries) == 0 {
				output.Dim("No ranked traders yet")
				return nil
			}

			table := NewTable(output, "RANK", "TRADER", "TRADES", "WIN RATE", "TOTAL R")
			for _, e := range entries {
				table.AddRow(
					fmt.Sprintf("%d", e.Rank),
					Truncate(e.DisplayName, 24),
					fmt.Sprintf("%d", e.TotalTrades),
					fmt.Sprintf("%.1f%%", e.WinRate),
					fmt.Sprintf("%.2f", e.TotalR),
				)
			}
			table.Render()
			return nil
		},
	}
}

func newExportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export trades to a backup file",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			format, _ := cmd.Flags().GetString("format")
			outPath, _ := cmd.Flags().GetString("output")

			var data []byte
			switch format {
			case "json":
				backup, err := app.Service.Export(cmd.Context(), app.principal(cmd), "")
				if err != nil {
					return err
				}
				data = backup
			case "csv":
				result, err := app.Service.ListTrades(cmd.Context(), app.principal(cmd), "")
				if err != nil {
					return err
				}
				if result.Degraded {
					return fmt.Errorf("store unavailable, refusing to export an empty backup")
				}
				trades := result.Trades
				csvData, err := gocsv.MarshalString(&trades)
				if err != nil {
					return err
				}
				data = []byte(csvData)
			default:
				return fmt.Errorf("invalid format: %s (must be json or csv)", format)
			}

			if outPath == "" {
				output.Printf("%s", data)
				return nil
			}
			if err := os.WriteFile(outPath, data, 0644); err != nil {
				return err
			}
			output.Success("Exported to %s", outPath)
			return nil
		},
	}
	cmd.Flags().String("format", "json", "backup format: json or csv")
	cmd.Flags().String("output", "", "output file (default stdout)")
	return cmd
}

func newImportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <backup.json>",
		Short: "Restore trades from a JSON backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			result, err := app.Service.Import(cmd.Context(), app.principal(cmd), "", data)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(result)
			}
			output.Success("Import finished: %d created, %d updated, %d errors",
				result.Created, result.Updated, result.Errors)
			if result.Errors > 0 {
				output.Warning("Some records failed to import, see logs")
			}
			return nil
		},
	}
	return cmd
}
