package caregiver

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"time"

	"healthguard/internal/models"
	"healthguard/internal/triage"

	"github.com/xuri/excelize/v2"
)

const triageSheet = "Triage"

var triageHeader = []string{"Patient ID", "Name", "Triage", "Status", "Adherence %", "Alert"}

// TriagedPatient is a patient with its triage result.
type TriagedPatient struct {
	models.PatientSummary
	Triage triage.Result `json:"triage"`
}

// Rank triages patients and orders them most urgent first, then by name.
func Rank(patients []models.PatientSummary) []TriagedPatient {
	out := make([]TriagedPatient, 0, len(patients))
	for _, p := range patients {
		out = append(out, TriagedPatient{PatientSummary: p, Triage: triage.Analyze(p)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Triage.Level != out[j].Triage.Level {
			return out[i].Triage.Level > out[j].Triage.Level
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// GenerateTriageWorkbook renders the ranked patient list as an xlsx file.
func GenerateTriageWorkbook(patients []models.PatientSummary, generatedAt time.Time) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(triageSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	levelStyles := make(map[string]int)
	for _, color := range []string{triage.ColorCritical, triage.ColorWarning, triage.ColorStable} {
		id, err := f.NewStyle(&excelize.Style{
			Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create triage style: %w", err)
		}
		levelStyles[color] = id
	}

	for col, header := range triageHeader {
		if err := setCell(f, col+1, 1, header, headerStyle); err != nil {
			f.Close()
			return nil, err
		}
	}

	widths := []float64{12, 28, 14, 12, 14, 40}
	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(triageSheet, col, col, w); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, p := range Rank(patients) {
		row := i + 2
		alert := ""
		if p.AlertMessage != nil {
			alert = *p.AlertMessage
		}
		values := []interface{}{p.ID, p.Name, p.Triage.Label, string(p.Status), p.Adherence, alert}
		for col, v := range values {
			style := 0
			if col == 2 {
				style = levelStyles[p.Triage.Color]
			}
			if err := setCell(f, col+1, row, v, style); err != nil {
				f.Close()
				return nil, err
			}
		}
	}

	footer := len(patients) + 3
	if err := setCell(f, 1, footer, "Generated "+generatedAt.Format(time.RFC3339), 0); err != nil {
		f.Close()
		return nil, err
	}

	if err := f.SetPanes(triageSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteTriageWorkbook writes the workbook to path.
func WriteTriageWorkbook(path string, patients []models.PatientSummary, generatedAt time.Time) error {
	data, err := GenerateTriageWorkbook(patients, generatedAt)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func setCell(f *excelize.File, col, row int, value interface{}, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellValue(triageSheet, cell, value); err != nil {
		return fmt.Errorf("failed to set cell %s: %w", cell, err)
	}
	if style != 0 {
		if err := f.SetCellStyle(triageSheet, cell, cell, style); err != nil {
			return fmt.Errorf("failed to style cell %s: %w", cell, err)
		}
	}
	return nil
}
