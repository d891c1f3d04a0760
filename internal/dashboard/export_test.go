package dashboard

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/Ducpm1301/ga-webcs/internal/stats"
)

func sampleResult(t *testing.T, site string) *Result {
	t.Helper()
	desc, err := stats.SiteByTag(site)
	require.NoError(t, err)

	hours := 7.5
	rows := []stats.Row{
		{Day: "2024-01-10", Shift: 1, Supervisor: "A", Hours: 8,
			Metrics: map[string]*float64{desc.Tracked[0]: &hours}},
		{Day: "2024-01-10", Shift: 2, Supervisor: "B", Hours: 7.5,
			Metrics: map[string]*float64{desc.Tracked[0]: nil}},
	}
	return &Result{
		Site:      site,
		SiteName:  desc.Name,
		PartnerID: "pid-1",
		Summary:   stats.Summary{Rows: rows, TotalHours: 15.5},
		Groups:    stats.GroupByDay(rows, 0, 3),
		FetchedAt: time.Now().UTC(),
	}
}

func TestWriteWorkbook(t *testing.T) {
	res := sampleResult(t, "furnace")

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, res))

	// Round-trip through a file so the library can reopen it.
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	sheet := f.Sheets[0]
	assert.Equal(t, "Blast Furnace", sheet.Name)

	// Header + 2 data rows + blank + 5 totals rows.
	require.GreaterOrEqual(t, len(sheet.Rows), 9)
	assert.Equal(t, "Day", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "2024-01-10", sheet.Rows[1].Cells[0].String())
	assert.Equal(t, "A", sheet.Rows[1].Cells[2].String())

	// A nil metric exports as a blank cell. Furnace has no crew column,
	// so the first tracked metric sits right after Hours.
	assert.Equal(t, "", sheet.Rows[2].Cells[4].String())
}

func TestWriteWorkbook_CrewColumnOnlyForCrewSites(t *testing.T) {
	res := sampleResult(t, "sinter")

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, res))

	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	header := f.Sheets[0].Rows[0]
	assert.Equal(t, "Crew", header.Cells[4].String())
}

func TestWriteWorkbook_UnknownSite(t *testing.T) {
	res := &Result{Site: "rolling-mill"}
	var buf bytes.Buffer
	require.Error(t, WriteWorkbook(&buf, res))
}
