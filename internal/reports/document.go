// Package reports renders submissions into diagnosis report documents.
package reports

import (
	"fmt"
	"strings"

	"github.com/JaimeStill/mammoguard/internal/history"
	"github.com/JaimeStill/mammoguard/internal/predictions"
)

const (
	Title           = "MammoGuard Diagnosis Report"
	TimestampLayout = "1/2/2006, 3:04:05 PM"
)

var separator = strings.Repeat("-", 60)

// Document is the fixed field content of one report.
type Document struct {
	Generated  string            `json:"generated"`
	File       string            `json:"file"`
	Prediction predictions.Class `json:"prediction"`
	Confidence string            `json:"confidence"`
	Diagnosis  string            `json:"diagnosis"`
}

// Compose derives the report content for s. The generation line uses the
// submission's own timestamp, so composing the same submission twice yields
// identical documents.
func Compose(s history.Submission) Document {
	file := s.FileName
	if file == "" {
		file = "N/A"
	}

	return Document{
		Generated:  s.Timestamp.Format(TimestampLayout),
		File:       file,
		Prediction: s.Class,
		Confidence: FormatConfidence(s.Confidence),
		Diagnosis:  Diagnosis(s.Class),
	}
}

// Lines returns the document in layout order.
func (d Document) Lines() []string {
	return []string{
		Title,
		"Generated: " + d.Generated,
		separator,
		"File: " + d.File,
		"Prediction: " + string(d.Prediction),
		"Confidence: " + d.Confidence,
		"Diagnosis: " + d.Diagnosis,
	}
}

// FormatConfidence renders a [0,1] confidence as a percentage with two decimals.
func FormatConfidence(c float64) string {
	return fmt.Sprintf("%.2f%%", c*100)
}

// Diagnosis returns the one-line diagnosis sentence for class.
func Diagnosis(class predictions.Class) string {
	switch class {
	case predictions.Malignant:
		return "Signs of breast cancer detected"
	case predictions.Benign:
		return "Benign mass found. Monitor if needed."
	default:
		return "Breast tissue appears normal"
	}
}
