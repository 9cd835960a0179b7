// Package terminal renders session manifests for the lsdl command.
package terminal

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/localsend-web/server/internal/display"
	"github.com/localsend-web/server/internal/links"
	"github.com/localsend-web/server/internal/models"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// maxNameWidth truncates long leaf names so the URL column stays readable.
const maxNameWidth = 50

// ManifestTable writes a manifest as a file table
type ManifestTable struct {
	out   io.Writer
	links *links.Builder
}

// NewManifestTable creates a table writer whose download links use b
func NewManifestTable(out io.Writer, b *links.Builder) *ManifestTable {
	return &ManifestTable{out: out, links: b}
}

func (mt *ManifestTable) newTable() *tablewriter.Table {
	table := tablewriter.NewWriter(mt.out)
	table.Options(
		tablewriter.WithRendition(tw.Rendition{Borders: tw.Border{Left: tw.Pending, Right: tw.Pending, Top: tw.Pending, Bottom: tw.Pending}}),
	)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.MaxWidth = 0
		cfg.Header = tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		}
		cfg.Row = tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		}
		cfg.Behavior = tw.Behavior{}
	})
	table.Header("Name", "Directory", "Size", "Type", "Download")
	return table
}

// Render writes the sender line followed by one row per file, sorted by
// file name.
func (mt *ManifestTable) Render(m *models.Manifest) error {
	sender := m.Info.Alias
	if model := models.StringValue(m.Info.DeviceModel); model != "" {
		sender = fmt.Sprintf("%s (%s)", sender, model)
	}
	fmt.Fprintf(mt.out, "%s %s\n", color.New(color.Bold).Sprint("From"), sender)

	ids := m.FileIDs()
	if len(ids) == 0 {
		fmt.Fprintln(mt.out, "Session has no files")
		return nil
	}

	table := mt.newTable()
	for _, id := range ids {
		f := m.Files[id]
		parts := display.Split(f.FileName)

		name := parts.Name
		if len(name) > maxNameWidth {
			name = name[:maxNameWidth-3] + "..."
		}
		dir := parts.Directory
		if dir == "" {
			dir = "-"
		}

		if err := table.Append([]string{
			name,
			dir,
			display.FormatFileSize(f.Size),
			f.FileType,
			mt.links.BuildURL(m.SessionID, id),
		}); err != nil {
			return err
		}
	}

	if err := table.Render(); err != nil {
		return err
	}
	Successf(mt.out, "%d files, %s", len(ids), display.FormatFileSize(m.TotalSize()))
	return nil
}

// Errorf prints a red error line
func Errorf(out io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(out, color.RedString(format, args...))
}

// Successf prints a green status line
func Successf(out io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(out, color.GreenString(format, args...))
}

// Infof prints a cyan status line
func Infof(out io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(out, color.CyanString(format, args...))
}
