package reports

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// A4 portrait in points.
const (
	pageHeight = 842.0
	marginLeft = 57.0
)

var (
	disableConfig sync.Once
	// pdfcpu keeps package-level font state during content creation
	createMu sync.Mutex
)

type pdfFont struct {
	Name string `json:"name"`
	Size int    `json:"size"`
	Col  string `json:"col,omitempty"`
}

type pdfText struct {
	Value string     `json:"value"`
	Pos   [2]float64 `json:"pos"`
	Font  pdfFont    `json:"font"`
}

type pdfContent struct {
	Text []pdfText `json:"text"`
}

type pdfPage struct {
	Content pdfContent `json:"content"`
}

type pdfLayout struct {
	Paper  string             `json:"paper"`
	Origin string             `json:"origin"`
	Pages  map[string]pdfPage `json:"pages"`
}

// top offsets for each layout line, in points from the top edge
var lineOffsets = []float64{71, 99, 113, 156, 184, 213, 255}

// Encode renders d as a single-page A4 PDF.
func Encode(d Document) ([]byte, error) {
	disableConfig.Do(api.DisableConfigDir)

	layout, err := json.Marshal(describe(d))
	if err != nil {
		return nil, fmt.Errorf("encode layout: %w", err)
	}

	var buf bytes.Buffer
	conf := model.NewDefaultConfiguration()

	createMu.Lock()
	err = api.Create(nil, bytes.NewReader(layout), &buf, conf)
	createMu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("create pdf: %w", err)
	}

	return buf.Bytes(), nil
}

func describe(d Document) pdfLayout {
	lines := d.Lines()
	text := make([]pdfText, len(lines))

	for i, line := range lines {
		font := pdfFont{Name: "Helvetica", Size: 14, Col: "#212529"}
		switch i {
		case 0:
			font.Name, font.Size = "Helvetica-Bold", 22
		case 1, 2:
			font.Size, font.Col = 12, "#646464"
		case len(lines) - 1:
			font.Name, font.Col = "Helvetica-Oblique", "#5A5A5A"
		}

		text[i] = pdfText{
			Value: line,
			Pos:   [2]float64{marginLeft, pageHeight - lineOffsets[i]},
			Font:  font,
		}
	}

	return pdfLayout{
		Paper:  "A4P",
		Origin: "LowerLeft",
		Pages: map[string]pdfPage{
			"1": {Content: pdfContent{Text: text}},
		},
	}
}
