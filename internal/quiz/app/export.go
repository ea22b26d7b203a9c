package app

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"securequiz/internal/observability"
	"securequiz/internal/quiz/domain"
)

// CSVHeader is the first line of every export.
var CSVHeader = []string{"Email", "Name", "Archetype", "Confidence", "Completed At", "IP Address"}

// ISOTimestamp renders completion times with millisecond precision in UTC.
const ISOTimestamp = "2006-01-02T15:04:05.000Z07:00"

// ExportFormat selects the CSV quoting mode.
type ExportFormat string

const (
	// ExportStandard quotes every field and doubles embedded quotes.
	ExportStandard ExportFormat = "standard"
	// ExportLegacy wraps fields in quotes without escaping, byte-compatible
	// with exports produced before quoting was hardened.
	ExportLegacy ExportFormat = "legacy"
)

// ParseExportFormat maps a query value to a format, defaulting to standard.
func ParseExportFormat(value string) ExportFormat {
	if value == string(ExportLegacy) {
		return ExportLegacy
	}
	return ExportStandard
}

// ExportCSV writes every submission, most recent first.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer, format ExportFormat) (err error) {
	ctx, span := s.tracer.StartSpan(ctx, observability.SpanExport)
	defer func() { observability.EndSpan(span, err) }()

	subs, err := s.ListSubmissions(ctx)
	if err != nil {
		return err
	}
	if format == ExportLegacy {
		return WriteLegacyCSV(w, subs)
	}
	return WriteCSV(w, subs)
}

func csvRecord(sub domain.Submission) []string {
	return []string{
		sub.Email,
		sub.Name,
		string(sub.Result.Archetype),
		string(sub.Result.Confidence),
		sub.CompletedAt.UTC().Format(ISOTimestamp),
		sub.IPAddress,
	}
}

// WriteCSV renders submissions with every field quoted and embedded quotes doubled.
// Rows are newline separated with no trailing newline.
func WriteCSV(w io.Writer, subs []domain.Submission) error {
	return writeRows(w, subs, quoteEscaped)
}

// WriteLegacyCSV wraps each field in double quotes without escaping.
func WriteLegacyCSV(w io.Writer, subs []domain.Submission) error {
	return writeRows(w, subs, func(field string) string { return `"` + field + `"` })
}

func writeRows(w io.Writer, subs []domain.Submission, quote func(string) string) error {
	bw := bufio.NewWriter(w)
	for i, field := range CSVHeader {
		if i > 0 {
			bw.WriteByte(',')
		}
		bw.WriteString(field)
	}
	for _, sub := range subs {
		bw.WriteByte('\n')
		for i, field := range csvRecord(sub) {
			if i > 0 {
				bw.WriteByte(',')
			}
			bw.WriteString(quote(field))
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func quoteEscaped(field string) string {
	out := make([]byte, 0, len(field)+2)
	out = append(out, '"')
	for i := 0; i < len(field); i++ {
		if field[i] == '"' {
			out = append(out, '"')
		}
		out = append(out, field[i])
	}
	return string(append(out, '"'))
}
