package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/timemachine/pkg/history"
)

// maxMessageWidth truncates commit subjects in tables.
const maxMessageWidth = 72

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateHeader = false
	tbl.Style().Format.Header = text.FormatDefault
	tbl.Style().Format.Footer = text.FormatDefault

	return tbl
}

func (p *Printer) blameTable(result *history.BlameResult) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"Line", "Commit", "Author", "When", "Content"})

	for _, line := range result.Lines {
		tbl.AppendRow(table.Row{
			line.LineNumber,
			p.palette.commit.Sprint(shortID(line.Commit.SHA)),
			line.Commit.Author,
			p.palette.muted.Sprint(p.relativeTime(line.Commit.Timestamp)),
			line.Content,
		})
	}

	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
	})

	return tbl.Render()
}

func (p *Printer) commitsTable(commits []history.CommitRecord) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"Commit", "Date", "Author", "Message"})

	for _, commit := range commits {
		tbl.AppendRow(table.Row{
			p.palette.commit.Sprint(shortID(commit.SHA)),
			fmt.Sprintf("%s (%s)", commit.Timestamp, p.relativeTime(commit.Timestamp)),
			commit.Author,
			text.Trim(firstLine(commit.Message), maxMessageWidth),
		})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %s commits", humanize.Comma(int64(len(commits))))})

	return tbl.Render()
}

func (p *Printer) changesTable(changes []history.FileChange, stats history.DiffStats) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"Change", "Path", "+", "-"})

	for _, change := range changes {
		tbl.AppendRow(table.Row{
			strings.ToLower(string(change.ChangeType)),
			change.Path,
			p.palette.added.Sprint(change.Additions),
			p.palette.removed.Sprint(change.Deletions),
		})
	}

	tbl.AppendFooter(table.Row{
		fmt.Sprintf("%s files", humanize.Comma(int64(stats.FilesChanged))),
		"",
		humanize.Comma(int64(stats.Insertions)),
		humanize.Comma(int64(stats.Deletions)),
	})

	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})

	return tbl.Render()
}

// relativeTime renders an RFC 3339 timestamp as "3 days ago". Unparseable
// timestamps are returned unchanged.
func (p *Printer) relativeTime(timestamp string) string {
	then, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return timestamp
	}

	return humanize.RelTime(then, p.opts.Now(), "ago", "from now")
}

func formatSize(size int) string {
	if size < 0 {
		size = 0
	}

	return humanize.IBytes(uint64(size))
}
