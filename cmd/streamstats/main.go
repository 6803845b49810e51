package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/olekukonko/tablewriter"

	"streamstats/internal"
	"streamstats/internal/config"
	"streamstats/internal/dashboard"
	"streamstats/internal/pipeline"
	"streamstats/internal/publish"
	"streamstats/internal/storage"
)

type sourceFlags []string

func (s *sourceFlags) String() string { return strings.Join(*s, ", ") }

func (s *sourceFlags) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := os.Args[1]
	switch cmd {
	case "clean":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		manifest := fs.String("manifest", "", "pipeline manifest (yaml)")
		var sources sourceFlags
		fs.Var(&sources, "source", "FILE#SHEET[=TERM], repeatable")
		format := fs.String("format", "direct", "direct|grouped (for --source)")
		out := fs.String("out", "", "output json path")
		name := fs.String("name", "", "document name in the database")
		_ = fs.Parse(os.Args[2:])

		opts := pipeline.RunOptions{OutputPath: *out, DocumentName: *name}
		if strings.TrimSpace(*manifest) != "" {
			m, err := config.LoadManifest(*manifest)
			must(err)
			opts.Sources = m.Sources
			if len(m.TermOrder) > 0 {
				opts.TermOrder = m.TermOrder
			}
			if opts.OutputPath == "" {
				opts.OutputPath = m.Output
			}
			if opts.DocumentName == "" {
				opts.DocumentName = m.DocumentName
			}
		}
		if len(sources) > 0 {
			f, err := config.ParseFormat(*format)
			must(err)
			for _, v := range sources {
				src, err := config.ParseSource(v, f)
				must(err)
				opts.Sources = append(opts.Sources, src)
			}
		}
		if len(opts.Sources) == 0 {
			must(fmt.Errorf("--manifest or --source is required"))
		}

		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()

		res, err := pipeline.NewProcessingService(db, cfg).Run(ctx, opts)
		must(err)
		fmt.Printf("clean done trace=%s terms=%d output=%s hash=%s\n", res.TraceID, len(res.Document.Terms), res.Output, res.Hash[:12])
	case "group":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "booking workbook (xlsx)")
		sheet := fs.String("sheet", "RAW", "booking sheet")
		term := fs.String("term", "", "term name, also the output sheet name")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if *input == "" || *term == "" || *out == "" {
			must(fmt.Errorf("--input --term --out are required"))
		}
		groups, st, err := pipeline.GroupSheet(*input, *sheet)
		must(err)
		must(pipeline.ExportGroupedToXLSX(groups, *term, *out))
		fmt.Printf("group done read=%d dropped=%d groups=%d output=%s\n", st.Read, st.Dropped, len(groups), *out)
	case "report", "export:html":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		docPath := fs.String("doc", "", "document json path")
		url := fs.String("url", "", "published document url")
		name := fs.String("name", "", "document name in the database")
		term := fs.String("term", dashboard.AllTerms, "term or \"All Terms\"")
		view := fs.String("view", "department", "department|level")
		dept := fs.String("dept", dashboard.AllDepartments, "department")
		level := fs.String("level", "", "level")
		top := fs.Int("top", cfg.ReportTopN, "top N")
		out := fs.String("out", "", "output html path (export:html)")
		_ = fs.Parse(os.Args[2:])
		if cmd == "export:html" && strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--out is required"))
		}

		doc, err := loadDocument(ctx, cfg, *docPath, *url, *name)
		must(err)
		r, err := dashboard.Build(doc, cfg.TermOrder, dashboard.Selection{
			Term:       *term,
			Mode:       dashboard.Mode(*view),
			Department: *dept,
			Level:      *level,
			TopN:       *top,
		})
		must(err)
		if cmd == "report" {
			must(dashboard.RenderText(os.Stdout, r))
			return
		}
		f, err := os.Create(*out)
		must(err)
		defer f.Close()
		must(dashboard.RenderHTML(f, r))
		fmt.Printf("exported report %q to %s\n", r.Title, *out)
	case "runs":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		name := fs.String("name", cfg.DocumentName, "document name")
		limit := fs.Int("max", 20, "max runs")
		_ = fs.Parse(os.Args[2:])
		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()
		runs, err := db.ListRuns(*name, *limit)
		must(err)
		printRuns(runs)
	default:
		usage()
		os.Exit(1)
	}
}

func loadDocument(ctx context.Context, cfg config.Config, docPath, url, name string) (*pipeline.Document, error) {
	switch {
	case strings.TrimSpace(url) != "":
		return publish.NewClient(cfg).Fetch(ctx, url)
	case strings.TrimSpace(docPath) != "":
		return pipeline.ReadDocument(docPath)
	case strings.TrimSpace(name) != "":
		db, err := storage.Open(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		stored, err := db.MustDocument(name)
		if err != nil {
			return nil, err
		}
		return pipeline.DecodeDocument([]byte(stored.Body))
	case cfg.PublishedDocumentURL != "":
		return publish.NewClient(cfg).Fetch(ctx, cfg.PublishedDocumentURL)
	default:
		return pipeline.ReadDocument(cfg.DocumentPath)
	}
}

func printRuns(runs []storage.RunRow) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"created", "trace", "hash", "source", "term", "read", "kept", "dropped"})
	for _, run := range runs {
		sources := run.Sources
		if len(sources) == 0 {
			sources = []internal.SourceStats{{}}
		}
		for _, st := range sources {
			table.Append([]string{
				run.CreatedAt, run.TraceID, shortHash(run.DocumentHash), st.Source, st.Term,
				fmt.Sprint(st.Read), fmt.Sprint(st.Kept), fmt.Sprint(st.Dropped),
			})
		}
	}
	table.Render()
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func usage() {
	fmt.Println("usage: streamstats <command>")
	fmt.Println("commands:")
	fmt.Println("  clean --manifest=pipeline.yaml | --source=FILE#SHEET[=TERM]... [--format=direct|grouped] [--out=doc.json] [--name=NAME]")
	fmt.Println("  group --input=raw.xlsx [--sheet=RAW] --term=\"Fall 2024\" --out=\"Fall 2024.xlsx\"")
	fmt.Println("  report [--doc=PATH | --url=URL | --name=NAME] [--term=T] [--view=department|level] [--dept=D] [--level=L] [--top=8]")
	fmt.Println("  export:html [--doc=PATH | --url=URL | --name=NAME] [--term=T] [--view=...] --out=report.html")
	fmt.Println("  runs [--name=NAME] [--max=20]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
