package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type TermUnit struct {
	Name      string
	Aggregate *TermAggregate
}

// Document is the published term -> department -> level tree. Terms keep
// their order through encoding and decoding.
type Document struct {
	Terms []TermUnit
}

func (d *Document) Term(name string) (*TermAggregate, bool) {
	for _, t := range d.Terms {
		if t.Name == name {
			return t.Aggregate, true
		}
	}
	return nil, false
}

func (d *Document) TermNames() []string {
	out := make([]string, 0, len(d.Terms))
	for _, t := range d.Terms {
		out = append(out, t.Name)
	}
	return out
}

// AssembleDocument composes already aggregated terms. Terms named in order come
// first in that order; the rest keep their declared relative order.
func AssembleDocument(units []TermUnit, order []string) (*Document, error) {
	byName := make(map[string]TermUnit, len(units))
	for _, u := range units {
		if _, dup := byName[u.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTerm, u.Name)
		}
		byName[u.Name] = u
	}

	doc := &Document{Terms: make([]TermUnit, 0, len(units))}
	placed := map[string]struct{}{}
	for _, name := range order {
		u, ok := byName[name]
		if !ok {
			continue
		}
		if _, done := placed[name]; done {
			continue
		}
		placed[name] = struct{}{}
		doc.Terms = append(doc.Terms, u)
	}
	for _, u := range units {
		if _, done := placed[u.Name]; done {
			continue
		}
		doc.Terms = append(doc.Terms, u)
	}
	return doc, nil
}

// OrderTerms applies the same ordering rule to bare term names.
func OrderTerms(names []string, order []string) []string {
	present := make(map[string]struct{}, len(names))
	for _, n := range names {
		present[n] = struct{}{}
	}
	out := make([]string, 0, len(names))
	placed := map[string]struct{}{}
	for _, n := range order {
		if _, ok := present[n]; !ok {
			continue
		}
		if _, done := placed[n]; done {
			continue
		}
		placed[n] = struct{}{}
		out = append(out, n)
	}
	for _, n := range names {
		if _, done := placed[n]; done {
			continue
		}
		placed[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"terms":{`)
	for i, t := range d.Terms {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(t.Name)
		if err != nil {
			return nil, err
		}
		agg := t.Aggregate
		if agg == nil {
			agg = NewTermAggregate()
		}
		val, err := json.Marshal(agg)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteString(`}}`)
	return buf.Bytes(), nil
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var envelope struct {
		Terms json.RawMessage `json:"terms"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}
	d.Terms = nil
	if len(envelope.Terms) == 0 || string(envelope.Terms) == "null" {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(envelope.Terms))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("document terms: expected object, got %v", tok)
	}
	seen := map[string]struct{}{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		agg := NewTermAggregate()
		if err := dec.Decode(agg); err != nil {
			return fmt.Errorf("document term %q: %w", name, err)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateTerm, name)
		}
		seen[name] = struct{}{}
		d.Terms = append(d.Terms, TermUnit{Name: name, Aggregate: agg})
	}
	_, err = dec.Token()
	return err
}

// Encode renders the document as indented UTF-8 JSON with a trailing newline.
func (d *Document) Encode() ([]byte, error) {
	blob, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(blob, '\n'), nil
}

func DecodeDocument(blob []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(blob, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if err := doc.validate(); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}

// validate rejects null entries, negative counts and totals that disagree
// with their children.
func (d *Document) validate() error {
	for _, t := range d.Terms {
		for name, dept := range t.Aggregate.Departments {
			if dept == nil {
				return fmt.Errorf("%w: term %q department %q is null", ErrBadDocument, t.Name, name)
			}
			for level, counts := range dept.Levels {
				if counts == nil {
					return fmt.Errorf("%w: term %q department %q level %q is null", ErrBadDocument, t.Name, name, level)
				}
				if counts.Students < 0 || counts.Reservations < 0 {
					return fmt.Errorf("%w: term %q department %q level %q has negative counts", ErrBadDocument, t.Name, name, level)
				}
			}
		}
		if !t.Aggregate.Consistent() {
			return fmt.Errorf("%w: term %q totals do not match their departments and levels", ErrBadDocument, t.Name)
		}
	}
	return nil
}

func WriteDocument(doc *Document, outputPath string) error {
	blob, err := doc.Encode()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outputPath, blob, 0o644)
}

func ReadDocument(path string) (*Document, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeDocument(blob)
}
