// Package export writes search results to JSON or CSV files.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"voterlookup/internal/components/chrono"
	"voterlookup/internal/voter"
)

type Format string

const (
	JSON Format = "json"
	CSV  Format = "csv"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case JSON, CSV:
		return Format(s), nil
	}
	return "", fmt.Errorf("%w: unknown export format %q", voter.ErrValidation, s)
}

// DefaultFilename is voter_results_<YYYYmmdd_HHMMSS>.<format> in local time.
func DefaultFilename(format Format, clock chrono.TimeAPI) string {
	return fmt.Sprintf("voter_results_%s.%s", clock.Now().Format("20060102_150405"), format)
}

// merge folds repeated search names into their first position, the later
// results win.
func merge(results []voter.NamedResults) []voter.NamedResults {
	index := map[string]int{}
	var out []voter.NamedResults
	for _, r := range results {
		if r.Results == nil {
			r.Results = []voter.SearchResult{}
		}
		if i, ok := index[r.Name]; ok {
			out[i] = r
			continue
		}
		index[r.Name] = len(out)
		out = append(out, r)
	}
	return out
}

// WriteJSON writes one object keyed by search name, in search order. Every
// field is present, missing values are null.
func WriteJSON(w io.Writer, results []voter.NamedResults) error {
	merged := merge(results)

	var buf bytes.Buffer
	buf.WriteString("{")
	for i, r := range merged {
		if i > 0 {
			buf.WriteString(",")
		}
		key, err := json.Marshal(r.Name)
		if err != nil {
			return err
		}
		value, err := json.MarshalIndent(r.Results, "  ", "  ")
		if err != nil {
			return err
		}
		buf.WriteString("\n  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(value)
	}
	if len(merged) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")

	_, err := w.Write(buf.Bytes())
	return err
}

// flatten turns a result into column -> value. Detail fields are prefixed
// with "detail_", their section is dropped.
func flatten(r voter.SearchResult) (map[string]string, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	err = json.Unmarshal(raw, &fields)
	if err != nil {
		return nil, err
	}

	out := map[string]string{}
	for key, value := range fields {
		if key != "detail" {
			out[key] = cell(value)
			continue
		}
		sections, ok := value.(map[string]any)
		if !ok {
			continue
		}
		for _, section := range sections {
			sectionFields, ok := section.(map[string]any)
			if !ok {
				continue
			}
			for name, v := range sectionFields {
				out["detail_"+name] = cell(v)
			}
		}
	}
	return out, nil
}

func cell(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// WriteCSV writes one line per result with a search_name column followed by
// every field seen, sorted.
func WriteCSV(w io.Writer, results []voter.NamedResults) error {
	type line struct {
		name   string
		fields map[string]string
	}

	var lines []line
	seen := map[string]bool{}
	for _, r := range merge(results) {
		for _, result := range r.Results {
			fields, err := flatten(result)
			if err != nil {
				return err
			}
			for key := range fields {
				seen[key] = true
			}
			lines = append(lines, line{name: r.Name, fields: fields})
		}
	}

	columns := make([]string, 0, len(seen))
	for key := range seen {
		columns = append(columns, key)
	}
	slices.Sort(columns)

	writer := csv.NewWriter(w)
	if len(lines) > 0 {
		err := writer.Write(append([]string{"search_name"}, columns...))
		if err != nil {
			return err
		}
	}
	for _, l := range lines {
		record := make([]string, 0, len(columns)+1)
		record = append(record, l.name)
		for _, c := range columns {
			record = append(record, l.fields[c])
		}
		err := writer.Write(record)
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func Write(w io.Writer, format Format, results []voter.NamedResults) error {
	switch format {
	case JSON:
		return WriteJSON(w, results)
	case CSV:
		return WriteCSV(w, results)
	}
	return fmt.Errorf("%w: unknown export format %q", voter.ErrValidation, format)
}

// WriteFile exports to path, or to DefaultFilename when path is empty, and
// returns the path written.
func WriteFile(path string, format Format, results []voter.NamedResults, clock chrono.TimeAPI) (string, error) {
	if path == "" {
		path = DefaultFilename(format, clock)
	}
	var buf bytes.Buffer
	err := Write(&buf, format, results)
	if err != nil {
		return "", err
	}
	err = os.WriteFile(path, buf.Bytes(), 0644)
	if err != nil {
		return "", err
	}
	return path, nil
}
