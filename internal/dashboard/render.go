package dashboard

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

//go:embed templates/report.html
var templatesFS embed.FS

var reportTemplate = template.Must(template.New("report.html").Funcs(template.FuncMap{
	"comma": func(v int) string { return humanize.Comma(int64(v)) },
	"label": func(s Section, r Row, c Column) string { return s.Label(r, c) },
	"share": share,
}).ParseFS(templatesFS, "templates/report.html"))

func RenderText(w io.Writer, r Report) error {
	if _, err := fmt.Fprintf(w, "== %s\n", r.Title); err != nil {
		return err
	}
	if r.Warning != "" {
		_, err := fmt.Fprintf(w, "warning: %s\n", r.Warning)
		return err
	}
	fmt.Fprintf(w, "%s: students=%s reservations=%s\n",
		r.TotalsLabel, humanize.Comma(int64(r.Totals.Students)), humanize.Comma(int64(r.Totals.Reservations)))

	for _, s := range r.Sections {
		fmt.Fprintf(w, "\n-- %s\n", s.Title)
		table := tablewriter.NewWriter(w)
		header := make([]string, 0, len(s.Columns)+2)
		for _, c := range s.Columns {
			header = append(header, string(c))
		}
		table.SetAutoFormatHeaders(false)
		table.SetHeader(append(header, "Students", "Reservations"))
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		for _, row := range s.Rows {
			cells := make([]string, 0, len(s.Columns)+2)
			for _, c := range s.Columns {
				cells = append(cells, s.Label(row, c))
			}
			cells = append(cells, humanize.Comma(int64(row.Students)), humanize.Comma(int64(row.Reservations)))
			table.Append(cells)
		}
		table.Render()
	}
	return nil
}

func RenderHTML(w io.Writer, r Report) error {
	return reportTemplate.Execute(w, r)
}

// share scales one row's metric against the section maximum to 0..100, used as the bar width in px.
func share(s Section, r Row, metric string) int {
	m := Metric(metric)
	top := 0
	for _, row := range s.Rows {
		top = max(top, row.Value(m))
	}
	if top == 0 {
		return 0
	}
	return r.Value(m) * 100 / top
}
