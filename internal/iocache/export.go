package iocache

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/devpulse/internal/contract"
	"github.com/huangsam/devpulse/internal/parquet"
)

// ExportStats writes the commits, daily_stats and weekly_stats tables to
// Parquet files named <outputFile>.<table>.parquet.
func ExportStats(ctx context.Context, store contract.StatsStore, outputFile string, w io.Writer) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("stats store is not initialized")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get stats status: %w", err)
	}
	if status.TotalCommits == 0 && status.TotalDays == 0 {
		return errors.New("no stats data found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)

	commits, err := store.RawCommits(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to retrieve commits: %w", err)
	}
	daily, err := store.ListDailyStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve daily stats: %w", err)
	}
	weekly, err := store.ListWeeklyStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve weekly stats: %w", err)
	}

	commitsFile := outputFile + "." + commitsTable + ".parquet"
	if err := parquet.Write(parquet.ConvertCommits(commits), commitsFile); err != nil {
		return fmt.Errorf("failed to write commits: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d commits to: %s\n", len(commits), commitsFile)

	dailyFile := outputFile + "." + dailyStatsTable + ".parquet"
	if err := parquet.Write(parquet.ConvertDailyStats(daily), dailyFile); err != nil {
		return fmt.Errorf("failed to write daily stats: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d daily rows to: %s\n", len(daily), dailyFile)

	weeklyFile := outputFile + "." + weeklyStatsTable + ".parquet"
	if err := parquet.Write(parquet.ConvertWeeklyStats(weekly), weeklyFile); err != nil {
		return fmt.Errorf("failed to write weekly stats: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d weekly rows to: %s\n", len(weekly), weeklyFile)

	_, _ = fmt.Fprintln(w, "\nExport complete! The Parquet files can be used with:")
	_, _ = fmt.Fprintln(w, "  - Apache Spark")
	_, _ = fmt.Fprintln(w, "  - Pandas (via pyarrow)")
	_, _ = fmt.Fprintln(w, "  - DuckDB")
	return nil
}
