package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ducpm1301/ga-webcs/pkg/bsapi"
)

func sinterDesc(t *testing.T) SiteDescriptor {
	t.Helper()
	d, err := SiteByTag("sinter")
	require.NoError(t, err)
	return d
}

func TestSummarize_TotalsAndTrackedMetrics(t *testing.T) {
	t.Parallel()

	desc, err := SiteByTag("furnace")
	require.NoError(t, err)

	rows := []bsapi.ShiftRow{
		{Day: "2024-01-10", Shift: 1, Supervisor: "A", Metrics: map[string]any{
			"runtime_hours":    "7.5",
			"hot_metal_output": 120.0,
			"energy_kwh":       nil,
		}},
		{Day: "2024-01-10", Shift: 2, Supervisor: "B", Metrics: map[string]any{
			"runtime_hours":    8.0,
			"hot_metal_output": "130",
			"unmapped_column":  "raw",
		}},
		{Day: "2024-01-11", Shift: 1, Supervisor: "C", Metrics: map[string]any{
			"runtime_hours": "broken",
		}},
	}

	sum := Summarize(desc, rows, nil)

	require.Len(t, sum.Rows, 3)
	assert.Equal(t, 15.5, sum.TotalHours)
	assert.Zero(t, sum.TotalCrew)

	r0 := sum.Rows[0]
	assert.Equal(t, 7.5, r0.Hours)
	require.NotNil(t, r0.Metrics["hot_metal_output"])
	assert.Equal(t, 120.0, *r0.Metrics["hot_metal_output"])
	// Explicit null and absent key both surface as nil.
	assert.Nil(t, r0.Metrics["energy_kwh"])
	assert.Nil(t, r0.Metrics["slag_output"])
	assert.Contains(t, r0.Metrics, "slag_output")
	// No snapshot block for a site that does not merge one.
	assert.Nil(t, r0.Snapshot)

	r1 := sum.Rows[1]
	require.NotNil(t, r1.Metrics["hot_metal_output"])
	assert.Equal(t, 130.0, *r1.Metrics["hot_metal_output"])
	assert.Equal(t, "raw", r1.Extra["unmapped_column"])
	assert.NotContains(t, r1.Extra, "runtime_hours")

	// A broken hours value contributes zero, not an error.
	assert.Equal(t, 0.0, sum.Rows[2].Hours)
}

func TestSummarize_CrewTotals(t *testing.T) {
	t.Parallel()

	desc := sinterDesc(t)
	rows := []bsapi.ShiftRow{
		{Day: "2024-01-10", Shift: 1, Metrics: map[string]any{"runtime_hours": 8.0, "headcount": "12"}},
		{Day: "2024-01-10", Shift: 2, Metrics: map[string]any{"runtime_hours": 8.0, "headcount": 11.0}},
	}

	sum := Summarize(desc, rows, nil)
	assert.Equal(t, 16.0, sum.TotalHours)
	assert.Equal(t, 23.0, sum.TotalCrew)
	assert.Equal(t, 12.0, sum.Rows[0].Crew)
}

func TestSummarize_LatestSnapshotMergedIntoEveryRow(t *testing.T) {
	t.Parallel()

	desc := sinterDesc(t)
	rows := []bsapi.ShiftRow{
		{Day: "2024-01-10", Shift: 1, Metrics: map[string]any{"runtime_hours": 8.0}},
		{Day: "2024-01-10", Shift: 2, Metrics: map[string]any{"runtime_hours": 8.0}},
	}
	snaps := []bsapi.TechSnapshot{
		{SuctionPressure: 10.0, RecordedAt: "2024-01-10T06:00:00Z"},
		{SuctionPressure: 12.0, IgnitionTemp: "1105", RecordedAt: "2024-01-10T14:00:00Z"},
		{SuctionPressure: 9.0, RecordedAt: "2024-01-10T02:00:00Z"},
	}

	sum := Summarize(desc, rows, snaps)

	require.Len(t, sum.Rows, 2)
	for _, r := range sum.Rows {
		require.NotNil(t, r.Snapshot)
		require.NotNil(t, r.Snapshot.SuctionPressure)
		assert.Equal(t, 12.0, *r.Snapshot.SuctionPressure)
		require.NotNil(t, r.Snapshot.IgnitionTemp)
		assert.Equal(t, 1105.0, *r.Snapshot.IgnitionTemp)
		assert.Nil(t, r.Snapshot.GasPressure)
	}
	// Both rows share the same resolved snapshot.
	assert.Same(t, sum.Rows[0].Snapshot, sum.Rows[1].Snapshot)
}

func TestSummarize_SnapshotTieGoesToLaterReading(t *testing.T) {
	t.Parallel()

	desc := sinterDesc(t)
	rows := []bsapi.ShiftRow{{Day: "2024-01-10", Shift: 1, Metrics: map[string]any{}}}
	snaps := []bsapi.TechSnapshot{
		{SuctionPressure: 1.0, RecordedAt: 1000.0},
		{SuctionPressure: 2.0, RecordedAt: 1000.0},
	}

	sum := Summarize(desc, rows, snaps)
	require.NotNil(t, sum.Rows[0].Snapshot.SuctionPressure)
	assert.Equal(t, 2.0, *sum.Rows[0].Snapshot.SuctionPressure)
}

func TestSummarize_UnstampedSnapshotsSortOldest(t *testing.T) {
	t.Parallel()

	desc := sinterDesc(t)
	rows := []bsapi.ShiftRow{{Day: "2024-01-10", Shift: 1, Metrics: map[string]any{}}}
	snaps := []bsapi.TechSnapshot{
		{SuctionPressure: 5.0, RecordedAt: 2000.0},
		{SuctionPressure: 6.0, RecordedAt: nil},
	}

	sum := Summarize(desc, rows, snaps)
	assert.Equal(t, 5.0, *sum.Rows[0].Snapshot.SuctionPressure)
}

func TestSummarize_NoSnapshotsYieldsEmptyBlock(t *testing.T) {
	t.Parallel()

	desc := sinterDesc(t)
	rows := []bsapi.ShiftRow{{Day: "2024-01-10", Shift: 1, Metrics: map[string]any{}}}

	sum := Summarize(desc, rows, nil)
	require.NotNil(t, sum.Rows[0].Snapshot)
	assert.Nil(t, sum.Rows[0].Snapshot.SuctionPressure)
	assert.Nil(t, sum.Rows[0].Snapshot.DamperOpening)
}

func TestSummarize_Empty(t *testing.T) {
	t.Parallel()

	sum := Summarize(sinterDesc(t), nil, nil)
	assert.Empty(t, sum.Rows)
	assert.Zero(t, sum.TotalHours)
	assert.Zero(t, sum.TotalCrew)
}
