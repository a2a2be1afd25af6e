package outwriter

import (
	"io"
	"strconv"

	"github.com/huangsam/devpulse/core/publish"
	"github.com/huangsam/devpulse/internal/contract"
	"github.com/huangsam/devpulse/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

func printWeeklySummaries(ow *OutWriter, weeks []schema.WeeklySummary) error {
	if ow.cfg.Output == schema.JSONOut {
		return writeWithFile(ow.out, ow.cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, weeks)
		}, "Wrote JSON weekly stats")
	}

	fmtFloat := createFormatter(ow.cfg.Precision)
	table := tablewriter.NewWriter(ow.out)
	table.Header([]string{"Year", "Week", "Score", "Commits", "Weighted", "Lines", "Repos"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	var data [][]string
	for _, w := range weeks {
		data = append(data, []string{
			strconv.Itoa(w.Year),
			strconv.Itoa(w.Week),
			contract.ColorProductivity(w.ProductivityScore, fmtFloat(w.ProductivityScore)),
			strconv.Itoa(w.TotalCommits),
			fmtFloat(w.WeightedCommits),
			comma(w.LinesTouched),
			strconv.Itoa(w.Repos),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func printDailyDetail(ow *OutWriter, detail schema.DailyDetail) error {
	if ow.cfg.Output == schema.JSONOut {
		return writeWithFile(ow.out, ow.cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, detail)
		}, "Wrote JSON daily detail")
	}

	fmtFloat := createFormatter(ow.cfg.Precision)
	sum := detail.Summary
	_, _ = contract.HeaderColor.Fprintf(ow.out, "📅 %s  %s %s\n",
		detail.Date.Format(schema.DateLayout), sum.DayTypeIcon, sum.DayType)
	if len(detail.Repos) == 0 {
		_, _ = contract.SubtleColor.Fprintln(ow.out, "No stored activity for this day.")
		return nil
	}

	table := tablewriter.NewWriter(ow.out)
	table.Header([]string{"Repo", "Commits", "Weighted", "Net", "Files", "CL", "Score", "Tags"})
	var data [][]string
	for _, r := range detail.Repos {
		data = append(data, []string{
			schema.ShortRepoName(r.RepoName),
			strconv.Itoa(r.TotalCommits),
			fmtFloat(r.WeightedCommits),
			signed(r.NetLines),
			strconv.Itoa(r.FilesTouched),
			fmtFloat(r.CognitiveLoad),
			contract.ColorProductivity(r.ProductivityScore, fmtFloat(r.ProductivityScore)),
			TagDistribution(r.TagsBreakdown),
		})
	}
	table.Footer([]string{
		"Total",
		strconv.Itoa(sum.TotalCommits),
		fmtFloat(sum.WeightedCommits),
		signed(sum.NetLines),
		strconv.Itoa(sum.FilesTouched),
		fmtFloat(sum.CognitiveLoad),
		fmtFloat(sum.ProductivityScore),
		"",
	})
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func printPublishResult(ow *OutWriter, result publish.Result) error {
	if ow.cfg.Output == schema.JSONOut {
		return writeJSON(ow.out, result)
	}
	_, _ = contract.GoodColor.Fprintf(ow.out, "✅ Published %d commits, %d daily rows and %d weekly rows from %d repositories\n",
		result.Commits, result.DailyRows, result.WeeklyRows, len(result.Repositories)-len(result.Failed))
	for _, repo := range result.Failed {
		_, _ = contract.BadColor.Fprintf(ow.out, "❌ %s failed\n", repo)
	}
	_, _ = contract.SubtleColor.Fprintf(ow.out, "Run ID: %s\n", result.RunID)
	return nil
}

func printRawCommits(ow *OutWriter, commits []schema.StoredCommit) error {
	if ow.cfg.Output == schema.JSONOut {
		return writeWithFile(ow.out, ow.cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, commits)
		}, "Wrote JSON commits")
	}

	msgWidth := maxMessageWidth(ow.cfg)
	table := tablewriter.NewWriter(ow.out)
	table.Header([]string{"Date", "Repo", "SHA", "Tag", "Weight", "Message"})
	var data [][]string
	for _, c := range commits {
		tag, weight := "", ""
		if a, err := schema.DecodeCommitAnalysis(c.Analysis); err == nil {
			tag = a.CanonicTag
			weight = strconv.FormatFloat(a.Weight, 'f', 1, 64)
		}
		data = append(data, []string{
			c.Date.Format(schema.DateLayout),
			schema.ShortRepoName(c.RepoName),
			shortSHA(c.Hash),
			tag,
			weight,
			contract.Truncate(schema.CommitRecord{Message: c.Message}.Subject(), msgWidth),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
