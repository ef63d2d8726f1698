// Package export renders project views as spreadsheets.
package export

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"gantt-tracker/internal/service"
)

const (
	GanttSheet    = "Gantt"
	BurndownSheet = "Burndown"
	LegendSheet   = "Resources"
	dateLayout    = "2006-01-02"
)

var ganttHeader = []any{"ID", "Task", "Start", "End", "Progress %", "Resource", "Depends on", "Blocks", "Kind"}

// WriteXLSX writes a workbook with sheets for Gantt rows, burndown points and the
// resource color legend. Rows with a resource color get that color as their fill.
func WriteXLSX(w io.Writer, rows []service.GanttRow, burndown service.Burndown, legend map[string]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", GanttSheet); err != nil {
		return err
	}
	if err := writeGantt(f, rows); err != nil {
		return fmt.Errorf("gantt sheet: %w", err)
	}
	if _, err := f.NewSheet(BurndownSheet); err != nil {
		return err
	}
	if err := writeBurndown(f, burndown); err != nil {
		return fmt.Errorf("burndown sheet: %w", err)
	}
	if _, err := f.NewSheet(LegendSheet); err != nil {
		return err
	}
	if err := writeLegend(f, legend); err != nil {
		return fmt.Errorf("legend sheet: %w", err)
	}
	return f.Write(w)
}

func fillStyle(f *excelize.File, styles map[string]int, color string) (int, error) {
	if style, ok := styles[color]; ok {
		return style, nil
	}
	style, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{strings.TrimPrefix(color, "#")}},
	})
	if err != nil {
		return 0, err
	}
	styles[color] = style
	return style, nil
}

func writeGantt(f *excelize.File, rows []service.GanttRow) error {
	if err := f.SetSheetRow(GanttSheet, "A1", &ganttHeader); err != nil {
		return err
	}
	if err := f.SetColWidth(GanttSheet, "B", "B", 32); err != nil {
		return err
	}
	styles := make(map[string]int)
	for i, r := range rows {
		label := strings.Repeat("  ", r.Depth) + r.Label
		values := []any{
			r.TaskID,
			label,
			r.Start.Format(dateLayout),
			r.End.Format(dateLayout),
			r.PercentComplete,
			r.ResourceLabel,
			r.DependencyLabel,
			r.BlocksLabel,
			string(r.Kind),
		}
		first, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(GanttSheet, first, &values); err != nil {
			return err
		}
		if r.Color == "" {
			continue
		}
		style, err := fillStyle(f, styles, r.Color)
		if err != nil {
			return err
		}
		last, err := excelize.CoordinatesToCellName(len(values), i+2)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(GanttSheet, first, last, style); err != nil {
			return err
		}
	}
	return nil
}

func writeBurndown(f *excelize.File, burndown service.Burndown) error {
	header := []any{"Date", "Remaining", "Ideal"}
	if err := f.SetSheetRow(BurndownSheet, "A1", &header); err != nil {
		return err
	}
	for i, p := range burndown.Points {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{p.Date.Format(dateLayout), p.Remaining, p.Ideal}
		if err := f.SetSheetRow(BurndownSheet, cell, &values); err != nil {
			return err
		}
	}
	return nil
}

func writeLegend(f *excelize.File, legend map[string]string) error {
	header := []any{"Resource", "Color"}
	if err := f.SetSheetRow(LegendSheet, "A1", &header); err != nil {
		return err
	}
	names := make([]string, 0, len(legend))
	for name := range legend {
		names = append(names, name)
	}
	sort.Strings(names)
	styles := make(map[string]int)
	for i, name := range names {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{name, legend[name]}
		if err := f.SetSheetRow(LegendSheet, cell, &values); err != nil {
			return err
		}
		style, err := fillStyle(f, styles, legend[name])
		if err != nil {
			return err
		}
		swatch, err := excelize.CoordinatesToCellName(2, i+2)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(LegendSheet, swatch, swatch, style); err != nil {
			return err
		}
	}
	return nil
}
