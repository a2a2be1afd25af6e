// Package core has the command entry points that wire ingestion,
// categorization, analysis and persistence together.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/huangsam/devpulse/core/categorize"
	"github.com/huangsam/devpulse/core/ingest"
	"github.com/huangsam/devpulse/core/productivity"
	"github.com/huangsam/devpulse/core/publish"
	"github.com/huangsam/devpulse/internal/contract"
	"github.com/huangsam/devpulse/internal/outwriter"
	"github.com/huangsam/devpulse/internal/report"
	"github.com/huangsam/devpulse/schema"
	"go.uber.org/zap"
)

// ErrNoActivity is returned when the window holds no commits at all.
var ErrNoActivity = errors.New("no commits found in the requested window")

// ExecutorFunc defines the function signature for executing a command.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, svc *Services, out io.Writer) error

// today returns midnight of now in the configured location.
func today(cfg *contract.Config, now time.Time) time.Time {
	if cfg.Location != nil {
		now = now.In(cfg.Location)
	}
	return schema.TruncateDay(now)
}

// buildReport fetches the configured window and aggregates it.
func buildReport(ctx context.Context, cfg *contract.Config, svc *Services, now time.Time) (schema.Report, error) {
	if err := contract.ValidateSourceConfig(cfg); err != nil {
		return schema.Report{}, err
	}
	commits, err := svc.Client.GetCommits(ctx, cfg.Repositories, cfg.StartTime, cfg.EndTime)
	if err != nil {
		return schema.Report{}, fmt.Errorf("failed to fetch commits: %w", err)
	}
	svc.Logger.Info("fetched commits",
		zap.Int("commits", len(commits)),
		zap.Int("repositories", len(cfg.Repositories)))

	return svc.Analyzer.GenerateReport(ctx, commits, cfg.StartTime, cfg.EndTime, today(cfg, now)), nil
}

// targetDay resolves the day the terminal summary focuses on.
func targetDay(cfg *contract.Config, r schema.Report, now time.Time) *schema.DayStats {
	var requested *time.Time
	if !cfg.TargetDate.IsZero() {
		requested = &cfg.TargetDate
	}
	day, ok := productivity.TargetDay(r.Days, requested, today(cfg, now))
	if !ok {
		return nil
	}
	return &day
}

// ExecuteReport builds the full report, saves the spreadsheet and prints the
// target-day and last-week summaries (or the configured export).
func ExecuteReport(ctx context.Context, cfg *contract.Config, svc *Services, out io.Writer) error {
	now := time.Now()
	r, err := buildReport(ctx, cfg, svc, now)
	if err != nil {
		return err
	}

	excelFile := cfg.ExcelFile
	if excelFile == "" {
		excelFile = contract.DefaultExcelFile(today(cfg, now).Format(schema.DateLayout))
	}
	if err := report.SaveAs(excelFile, r); err != nil {
		return fmt.Errorf("failed to save spreadsheet: %w", err)
	}
	_, _ = contract.GoodColor.Fprintf(out, "💾 Report saved to %s\n", excelFile)

	writer := outwriter.NewOutWriter(out, cfg)
	return writer.WriteReport(r, targetDay(cfg, r, now), svc.Registry, !cfg.TargetDate.IsZero())
}

// ExecuteSummary prints the target-day summary without writing a spreadsheet.
func ExecuteSummary(ctx context.Context, cfg *contract.Config, svc *Services, out io.Writer) error {
	now := time.Now()
	r, err := buildReport(ctx, cfg, svc, now)
	if err != nil {
		return err
	}
	day := targetDay(cfg, r, now)
	if day == nil && cfg.Output == schema.TextOut {
		return ErrNoActivity
	}
	writer := outwriter.NewOutWriter(out, cfg)
	return writer.WriteReport(r, day, svc.Registry, true)
}

// ExecuteIngest publishes the last DaysBack days of every configured
// repository (or only TargetRepo) to the stats store.
func ExecuteIngest(ctx context.Context, cfg *contract.Config, svc *Services, mgr contract.CacheManager, out io.Writer) error {
	if err := contract.ValidateSourceConfig(cfg); err != nil {
		return err
	}
	var store contract.StatsStore
	if mgr != nil && cfg.StatsBackend != schema.NoneBackend {
		store = mgr.GetStatsStore()
	}
	if store == nil {
		return errors.New("ingest requires a stats backend (set --stats-backend)")
	}

	repos := cfg.Repositories
	if cfg.TargetRepo != "" {
		repos = []string{cfg.TargetRepo}
	}
	until := today(cfg, time.Now())
	since := until.AddDate(0, 0, -cfg.DaysBack)

	publisher := publish.NewPublisher(svc.Client, svc.Analyzer, svc.Registry, store, svc.Logger.Named("publish"), cfg.Workers)
	result, err := publisher.Run(ctx, repos, since, until)
	if err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}
	return outwriter.NewOutWriter(out, cfg).WritePublishResult(result)
}

// ExecuteCategorize classifies a single message when one is given, else every
// commit of the configured window.
func ExecuteCategorize(ctx context.Context, cfg *contract.Config, svc *Services, message string, files []string, out io.Writer) error {
	writer := outwriter.NewOutWriter(out, cfg)
	if strings.TrimSpace(message) != "" {
		in := categorize.Input{Message: message, Files: files}
		res := svc.Categorizer.Categorize(ctx, in, cfg.UseLLM)
		record := schema.CommitRecord{Message: message, FilesChanged: files}
		if err := writer.WriteCategorizations([]outwriter.CategorizedCommit{{
			CommitRecord:         record,
			CategorizationResult: res,
		}}); err != nil {
			return err
		}
		if cfg.Output != schema.TextOut || res.Method == schema.MethodExplicit || res.IsFallback() {
			return nil
		}
		suggested, err := svc.Registry.FormatMessage(res.Tag, record.Subject())
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "Suggested message: %s\n", suggested)
		return nil
	}

	if err := contract.ValidateSourceConfig(cfg); err != nil {
		return err
	}
	commits, err := svc.Client.GetCommits(ctx, cfg.Repositories, cfg.StartTime, cfg.EndTime)
	if err != nil {
		return fmt.Errorf("failed to fetch commits: %w", err)
	}
	if len(commits) == 0 {
		return ErrNoActivity
	}
	results := svc.Analyzer.Classify(ctx, commits)
	rows := make([]outwriter.CategorizedCommit, len(commits))
	for i, c := range commits {
		rows[i] = outwriter.CategorizedCommit{CommitRecord: c, CategorizationResult: results[i]}
	}
	return writer.WriteCategorizations(rows)
}

// ExecuteTags prints the tag taxonomy.
func ExecuteTags(_ context.Context, cfg *contract.Config, svc *Services, out io.Writer) error {
	return outwriter.NewOutWriter(out, cfg).WriteTags(svc.Registry)
}

// ExecuteCheck reports the upstream quota and repository reachability. It
// fails when any repository is unreachable.
func ExecuteCheck(ctx context.Context, cfg *contract.Config, svc *Services, out io.Writer) error {
	if err := contract.ValidateSourceConfig(cfg); err != nil {
		return err
	}
	conn := svc.Client.CheckConnection(ctx, cfg.Repositories)
	if err := outwriter.NewOutWriter(out, cfg).WriteConnection(conn); err != nil {
		return err
	}
	var failed []string
	for _, repo := range cfg.Repositories {
		if !strings.HasPrefix(conn.Repositories[repo], ingest.StatusOK) {
			failed = append(failed, repo)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d repositories unreachable: %s", len(failed), len(cfg.Repositories), strings.Join(failed, ", "))
	}
	return nil
}
