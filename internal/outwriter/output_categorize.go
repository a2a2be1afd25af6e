package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/huangsam/devpulse/core/tags"
	"github.com/huangsam/devpulse/internal/contract"
	"github.com/huangsam/devpulse/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// CategorizedCommit pairs a commit with its categorization.
type CategorizedCommit struct {
	schema.CommitRecord
	schema.CategorizationResult
}

func printCategorizations(ow *OutWriter, rows []CategorizedCommit) error {
	fmtFloat := createFormatter(ow.cfg.Precision)
	switch ow.cfg.Output {
	case schema.JSONOut:
		return writeWithFile(ow.out, ow.cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, rows)
		}, "Wrote JSON categorizations")
	case schema.CSVOut:
		return writeWithFile(ow.out, ow.cfg.OutputFile, func(w io.Writer) error {
			return writeCategorizationsCSV(w, rows, fmtFloat)
		}, "Wrote CSV categorizations")
	default:
		return writeCategorizationTable(ow.out, rows, fmtFloat, maxMessageWidth(ow.cfg))
	}
}

func writeCategorizationsCSV(w io.Writer, rows []CategorizedCommit, fmtFloat func(float64) string) error {
	header := []string{"repository", "sha", "date", "author", "subject", "tag", "method", "confidence", "reasoning"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, r := range rows {
			if err := cw.Write([]string{
				r.Repository,
				r.SHA,
				r.Date.Format(schema.DateLayout),
				r.Author,
				r.Subject(),
				r.Tag,
				string(r.Method),
				fmtFloat(r.Confidence),
				r.Reasoning,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeCategorizationTable(w io.Writer, rows []CategorizedCommit, fmtFloat func(float64) string, msgWidth int) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Repo", "SHA", "Message", "Tag", "Method", "Conf"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	counts := map[string]int{}
	var data [][]string
	for _, r := range rows {
		counts[r.Tag]++
		tag := r.Tag
		if r.IsFallback() {
			tag = contract.SubtleColor.Sprint(tag)
		}
		data = append(data, []string{
			schema.ShortRepoName(r.Repository),
			shortSHA(r.SHA),
			contract.Truncate(r.Subject(), msgWidth),
			tag,
			string(r.Method),
			fmtFloat(r.Confidence),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	untagged := counts[schema.UntaggedTag]
	_, _ = fmt.Fprintf(w, "Categorized %d commits, %d untagged. %s\n", len(rows), untagged, TagDistribution(counts))
	return nil
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

func printTags(ow *OutWriter, registry *tags.Registry) error {
	defs := registry.Tags()
	switch ow.cfg.Output {
	case schema.JSONOut:
		return writeWithFile(ow.out, ow.cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, defs)
		}, "Wrote JSON tags")
	case schema.CSVOut:
		return writeWithFile(ow.out, ow.cfg.OutputFile, func(w io.Writer) error {
			return writeCSVWithHeader(w, []string{"name", "weight", "aliases", "description", "color", "icon"}, func(cw *csv.Writer) error {
				for _, d := range defs {
					if err := cw.Write([]string{
						d.Name, strconv.FormatFloat(d.Weight, 'f', -1, 64), strings.Join(d.Aliases, "|"),
						d.Description, d.Color, d.Icon,
					}); err != nil {
						return err
					}
				}
				return nil
			})
		}, "Wrote CSV tags")
	}

	table := tablewriter.NewWriter(ow.out)
	table.Header([]string{"", "Tag", "Weight", "Description", "Aliases"})
	var data [][]string
	for _, d := range defs {
		aliases := slices.Clone(d.Aliases)
		slices.Sort(aliases)
		aliases = slices.Compact(aliases)
		data = append(data, []string{
			d.Icon,
			d.Name,
			strconv.FormatFloat(d.Weight, 'f', -1, 64) + "x",
			d.Description,
			contract.Truncate(strings.Join(aliases, ", "), 40),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func printConnection(ow *OutWriter, report schema.ConnectionReport) error {
	if ow.cfg.Output == schema.JSONOut {
		return writeJSON(ow.out, report)
	}

	_, _ = contract.HeaderColor.Fprintf(ow.out, "Provider: %s\n", report.Provider)
	if rl := report.RateLimit; rl != nil {
		_, _ = fmt.Fprintf(ow.out, "Rate limit: %d/%d remaining, resets at %s\n",
			rl.Remaining, rl.Limit, rl.Reset.Format("2006-01-02 15:04:05"))
	}

	repos := make([]string, 0, len(report.Repositories))
	for repo := range report.Repositories {
		repos = append(repos, repo)
	}
	slices.Sort(repos)
	for _, repo := range repos {
		status := report.Repositories[repo]
		label := contract.GoodColor.Sprint("✅")
		if !strings.HasPrefix(status, "ok") {
			label = contract.BadColor.Sprint("❌")
		}
		_, _ = fmt.Fprintf(ow.out, "%s %s: %s\n", label, repo, status)
	}
	return nil
}
