package iocache

import (
	"fmt"
	"io"
	"slices"

	"github.com/huangsam/devpulse/schema"
)

const statusTimeLayout = "2006-01-02 15:04:05"

// PrintCacheStatus prints cache status information.
func PrintCacheStatus(w io.Writer, status schema.CacheStatus) {
	_, _ = fmt.Fprintf(w, "Cache Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Total Entries: %d\n", status.TotalEntries)
	if status.TotalEntries > 0 {
		_, _ = fmt.Fprintf(w, "Last Entry: %s\n", status.LastEntryTime.Format(statusTimeLayout))
		_, _ = fmt.Fprintf(w, "Oldest Entry: %s\n", status.OldestEntryTime.Format(statusTimeLayout))
	}
	_, _ = fmt.Fprintf(w, "Table Size: %d bytes\n", status.TableSizeBytes)
}

// PrintStatsStatus prints stats store status information.
func PrintStatsStatus(w io.Writer, status schema.StatsStatus) {
	_, _ = fmt.Fprintf(w, "Stats Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Total Commits: %d\n", status.TotalCommits)
	_, _ = fmt.Fprintf(w, "Total Days: %d\n", status.TotalDays)
	_, _ = fmt.Fprintf(w, "Total Weeks: %d\n", status.TotalWeeks)
	if status.TotalCommits > 0 {
		_, _ = fmt.Fprintf(w, "First Commit: %s\n", status.FirstCommitAt.Format(statusTimeLayout))
		_, _ = fmt.Fprintf(w, "Last Commit: %s\n", status.LastCommitAt.Format(statusTimeLayout))
	}
	if len(status.TableSizes) == 0 {
		return
	}
	_, _ = fmt.Fprintln(w, "Table Sizes:")
	names := make([]string, 0, len(status.TableSizes))
	for name := range status.TableSizes {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		_, _ = fmt.Fprintf(w, "  %s: %d bytes\n", name, status.TableSizes[name])
	}
}
