package pipeline

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"iter"
	"strings"
	"time"

	"streamstats/internal"
	"streamstats/internal/config"
	"streamstats/internal/storage"
)

const defaultGroupedSheet = "RAW"

type ProcessingService struct {
	db  *storage.DB
	cfg config.Config
}

// NewProcessingService builds a service; db may be nil to skip persistence.
func NewProcessingService(db *storage.DB, cfg config.Config) *ProcessingService {
	return &ProcessingService{db: db, cfg: cfg}
}

type RunOptions struct {
	Sources      []config.Source
	TermOrder    []string
	OutputPath   string
	DocumentName string
}

type RunResult struct {
	TraceID  string
	Document *Document
	Stats    []internal.SourceStats
	Hash     string
	Output   string
}

// Run rebuilds the whole document from the given sources. A structural defect
// in any source aborts the run before anything is written.
func (s *ProcessingService) Run(ctx context.Context, opts RunOptions) (RunResult, error) {
	start := time.Now()
	if len(opts.Sources) == 0 {
		return RunResult{}, fmt.Errorf("no sources given")
	}
	order := opts.TermOrder
	if order == nil {
		order = s.cfg.TermOrder
	}
	output := firstNonEmpty(opts.OutputPath, s.cfg.DocumentPath)
	name := firstNonEmpty(opts.DocumentName, s.cfg.DocumentName)
	if err := s.cfg.Require("DOCUMENT_PATH", output); err != nil {
		return RunResult{}, err
	}
	if s.db != nil {
		if err := s.cfg.Require("DOCUMENT_NAME", name); err != nil {
			return RunResult{}, err
		}
	}

	workbooks := map[string]*Workbook{}
	defer func() {
		for _, wb := range workbooks {
			_ = wb.Close()
		}
	}()

	var units []TermUnit
	var stats []internal.SourceStats
	for _, src := range opts.Sources {
		if err := ctx.Err(); err != nil {
			return RunResult{}, err
		}
		wb, ok := workbooks[src.Path]
		if !ok {
			opened, err := OpenWorkbook(src.Path)
			if err != nil {
				return RunResult{}, err
			}
			wb = opened
			workbooks[src.Path] = wb
		}

		for _, target := range expandSource(wb, src) {
			unit, st, err := BuildTerm(wb, target)
			if err != nil {
				return RunResult{}, err
			}
			fmt.Printf("term built source=%s term=%q read=%d kept=%d dropped=%d students=%d reservations=%d\n",
				st.Source, st.Term, st.Read, st.Kept, st.Dropped, unit.Aggregate.TotalStudents, unit.Aggregate.TotalReservations)
			units = append(units, unit)
			stats = append(stats, st)
		}
	}

	doc, err := AssembleDocument(units, order)
	if err != nil {
		return RunResult{}, err
	}
	blob, err := doc.Encode()
	if err != nil {
		return RunResult{}, err
	}
	sum := sha256.Sum256(blob)
	hash := hex.EncodeToString(sum[:])

	if err := WriteDocument(doc, output); err != nil {
		return RunResult{}, err
	}

	trace := traceID()
	if s.db != nil {
		if err := s.db.UpsertDocument(name, hash, string(blob)); err != nil {
			return RunResult{}, err
		}
		timings := map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())}
		if err := s.db.InsertRun(trace, name, hash, timings, stats); err != nil {
			fmt.Printf("run log failed trace=%s name=%s err=%v\n", trace, name, err)
		}
	}

	return RunResult{TraceID: trace, Document: doc, Stats: stats, Hash: hash, Output: output}, nil
}

// expandSource turns a workbook-wide source into one source per sheet.
func expandSource(wb *Workbook, src config.Source) []config.Source {
	if src.Sheet != "" {
		return []config.Source{src}
	}
	if src.Format == internal.FormatGrouped {
		src.Sheet = defaultGroupedSheet
		return []config.Source{src}
	}
	sheets := wb.Sheets()
	out := make([]config.Source, 0, len(sheets))
	for _, sheet := range sheets {
		s := src
		s.Sheet = sheet
		s.Term = ""
		out = append(out, s)
	}
	return out
}

// BuildTerm reads, normalizes and aggregates one sheet into one term.
func BuildTerm(wb *Workbook, src config.Source) (TermUnit, internal.SourceStats, error) {
	term := strings.TrimSpace(firstNonEmpty(src.Term, src.Sheet))
	st := internal.SourceStats{Source: src.String(), Term: term}

	raws, err := wb.ReadSheet(src.Sheet, src.Format)
	if err != nil {
		return TermUnit{}, st, err
	}
	st.Read = len(raws)

	n := NewNormalizer(src.Format)
	if n.Format() == internal.FormatGrouped {
		for _, raw := range raws {
			if n.Excluded(raw.Course) {
				st.Dropped++
			}
		}
		groups := GroupBookings(raws, n)
		raws = make([]internal.RawRecord, 0, len(groups))
		for _, g := range groups {
			raws = append(raws, GroupedToRaw(g))
		}
	}

	agg := AggregateTerm(normalized(n, raws, &st))
	if n.Format() != internal.FormatGrouped {
		st.Dropped = st.Read - st.Kept
	}
	return TermUnit{Name: term, Aggregate: agg}, st, nil
}

func normalized(n *Normalizer, raws []internal.RawRecord, st *internal.SourceStats) iter.Seq[internal.NormalizedRecord] {
	return func(yield func(internal.NormalizedRecord) bool) {
		for _, raw := range raws {
			rec, ok := n.Normalize(raw)
			if !ok {
				continue
			}
			st.Kept++
			if !yield(rec) {
				return
			}
		}
	}
}

func traceID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
