package dashboard

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/Ducpm1301/ga-webcs/internal/stats"
)

// WriteWorkbook renders a fetched result as an XLSX workbook: one
// sheet, a header row, rows grouped by production day, and a totals
// block at the bottom.
func WriteWorkbook(w io.Writer, res *Result) error {
	desc, err := stats.SiteByTag(res.Site)
	if err != nil {
		return err
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(desc.Name)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, title := range []string{"Day", "Shift", "Supervisor", "Hours"} {
		header.AddCell().SetString(title)
	}
	if desc.CrewField != "" {
		header.AddCell().SetString("Crew")
	}
	for _, key := range desc.Tracked {
		header.AddCell().SetString(key)
	}

	for _, day := range res.Groups.Days {
		for _, row := range day.Rows {
			r := sheet.AddRow()
			r.AddCell().SetString(row.Day)
			r.AddCell().SetInt(row.Shift)
			r.AddCell().SetString(row.Supervisor)
			r.AddCell().SetFloat(row.Hours)
			if desc.CrewField != "" {
				r.AddCell().SetFloat(row.Crew)
			}
			for _, key := range desc.Tracked {
				cell := r.AddCell()
				if v := row.Metrics[key]; v != nil {
					cell.SetFloat(*v)
				} else {
					// Missing readings export as blanks, not zeros.
					cell.SetString("")
				}
			}
		}
	}

	sheet.AddRow()
	totals := [][2]any{{"Total hours", res.Summary.TotalHours}}
	if desc.CrewField != "" {
		totals = append(totals, [2]any{"Total crew", res.Summary.TotalCrew})
	}
	totals = append(totals,
		[2]any{"Shifts reported", res.Groups.TotalShifts},
		[2]any{"Shifts expected", res.Groups.Expected},
		[2]any{"Shifts missing", res.Groups.MissingShifts},
		[2]any{"Shifts with gaps", res.Groups.MissingData},
	)
	for _, t := range totals {
		r := sheet.AddRow()
		r.AddCell().SetString(t[0].(string))
		switch v := t[1].(type) {
		case float64:
			r.AddCell().SetFloat(v)
		case int:
			r.AddCell().SetInt(v)
		}
	}

	return eris.Wrap(f.Write(w), "export: write workbook")
}
