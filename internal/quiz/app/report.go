package app

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/jung-kurt/gofpdf"

	"securequiz/internal/observability"
	"securequiz/internal/quiz/domain"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// ReportFilename returns quiz-results-<name-slug>.pdf.
func ReportFilename(name string) string {
	slug := whitespaceRun.ReplaceAllString(strings.TrimSpace(name), "-")
	slug = strings.Map(func(r rune) rune {
		switch {
		case r == '-' || r == '_' || r == '.':
			return r
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return unicode.ToLower(r)
		default:
			return -1
		}
	}, slug)
	if slug == "" {
		slug = "participant"
	}
	return "quiz-results-" + slug + ".pdf"
}

// RenderReport writes the PDF result report for the submission stored under email.
func (s *Service) RenderReport(ctx context.Context, email string, w io.Writer) (sub domain.Submission, err error) {
	ctx, span := s.tracer.StartSpan(ctx, observability.SpanReport)
	defer func() { observability.EndSpan(span, err) }()

	sub, err = s.FindSubmission(ctx, email)
	if err != nil {
		return domain.Submission{}, err
	}
	if err := WriteReport(w, sub, s.Rank(sub.Answers), s.now()); err != nil {
		return domain.Submission{}, err
	}
	return sub, nil
}

// WriteReport renders one submission as a single-page A4 PDF.
func WriteReport(w io.Writer, sub domain.Submission, ranking []domain.ArchetypeScore, generatedAt time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Personality Quiz Results", true)
	pdf.SetCreator("quiz-server", true)
	pdf.SetCreationDate(generatedAt)
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 24)
	pdf.SetTextColor(99, 102, 241)
	pdf.SetXY(0, 22)
	pdf.CellFormat(210, 12, "Personality Quiz Results", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	pdf.SetTextColor(0, 0, 0)
	for i, line := range []string{
		"Name: " + sub.Name,
		"Email: " + sub.Email,
		"Date: " + sub.CompletedAt.UTC().Format("2006-01-02"),
	} {
		pdf.SetXY(20, 45+float64(i)*10)
		pdf.CellFormat(170, 8, tr(line), "", 0, "L", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(99, 102, 241)
	pdf.SetXY(20, 84)
	pdf.CellFormat(170, 10, tr("Your Archetype: "+string(sub.Result.Archetype)), "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(20, 96)
	pdf.CellFormat(170, 6, tr("Confidence: "+string(sub.Result.Confidence)), "", 0, "L", false, 0, "")

	y := 110.0
	if sub.Result.Description != "" {
		pdf.SetFont("Helvetica", "", 12)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetXY(20, y)
		pdf.MultiCell(170, 6, tr(sub.Result.Description), "", "L", false)
		y = pdf.GetY() + 8
	}

	if len(ranking) > 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetXY(20, y)
		pdf.CellFormat(170, 8, "Score breakdown", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		for _, row := range ranking {
			pdf.SetX(20)
			pdf.CellFormat(60, 7, string(row.Archetype), "B", 0, "L", false, 0, "")
			pdf.CellFormat(30, 7, fmt.Sprintf("%d%%", row.Percentage), "B", 0, "R", false, 0, "")
			pdf.CellFormat(40, 7, fmt.Sprintf("%d / %d", row.Raw, row.MaxPossible), "B", 1, "R", false, 0, "")
		}
	}

	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(200, 200, 200)
	pdf.SetXY(0, 280)
	pdf.CellFormat(210, 5, "Generated "+generatedAt.UTC().Format("2006-01-02 15:04:05 MST"), "", 0, "C", false, 0, "")

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
