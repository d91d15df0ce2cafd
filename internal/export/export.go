// Package export writes stored analyses to an Excel workbook for offline
// review.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"reel-monitor-go/internal/types"
)

const sheetName = "Analyses"

var headers = []string{
	"username", "url", "content_type", "primary_topic", "secondary_topics",
	"severity_score", "amplification_score", "confidence_score",
	"action_recommendation", "analyzed_at", "classifier_version", "reasoning",
}

// Write streams an xlsx workbook with one row per analysis.
func Write(w io.Writer, analyses []types.Analysis) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for i, a := range analyses {
		values := []any{
			a.Username,
			a.URL,
			a.ContentType,
			a.PrimaryTopic,
			strings.Join(a.SecondaryTopics, ", "),
			scoreCell(a.SeverityScore),
			scoreCell(a.AmplificationScore),
			a.ConfidenceScore,
			a.ActionRecommendation,
			a.AnalyzedAt,
			a.ClassifierVersion,
			a.Reasoning,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", i+2, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// scoreCell renders nullable scores as empty cells instead of zeros.
func scoreCell(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
