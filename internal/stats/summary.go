package stats

import "github.com/Ducpm1301/ga-webcs/pkg/bsapi"

// SnapshotValues is the sinter technology sensor reading after
// coercion. Fields are nil when the sensor had no value recorded.
type SnapshotValues struct {
	SuctionPressure *float64 `json:"suction_pressure"`
	IgnitionTemp    *float64 `json:"ignition_temp"`
	Duct12Pressure  *float64 `json:"duct12_pressure"`
	GasPressure     *float64 `json:"gas_pressure"`
	DamperOpening   *float64 `json:"damper_opening"`
}

// Row is one summarized shift. Metrics holds every tracked column of
// the site descriptor, nil where the upstream row had no such key or a
// null, so missing data stays distinguishable from a zero reading.
type Row struct {
	Day        string              `json:"production_day"`
	Shift      int                 `json:"shift_no"`
	Supervisor string              `json:"supervisor"`
	Hours      float64             `json:"hours"`
	Crew       float64             `json:"crew,omitempty"`
	Metrics    map[string]*float64 `json:"metrics"`
	Snapshot   *SnapshotValues     `json:"snapshot,omitempty"`
	Extra      map[string]any      `json:"extra,omitempty"`
}

// Summary is the full per-site result for a query window.
type Summary struct {
	Rows       []Row   `json:"rows"`
	TotalHours float64 `json:"total_gio"`
	TotalCrew  float64 `json:"total_nv,omitempty"`
}

// Summarize shapes raw upstream rows for one site. The descriptor
// drives everything: which column is summed into TotalHours, which into
// TotalCrew, which metric keys are surfaced, and whether the latest
// technology snapshot is folded into each row.
func Summarize(desc SiteDescriptor, rows []bsapi.ShiftRow, snaps []bsapi.TechSnapshot) Summary {
	var snapshot *SnapshotValues
	if desc.MergeSnapshot {
		snapshot = latestSnapshot(snaps)
	}

	out := Summary{Rows: make([]Row, 0, len(rows))}
	for _, src := range rows {
		row := Row{
			Day:        src.Day,
			Shift:      src.Shift,
			Supervisor: src.Supervisor,
			Hours:      ToNumber(src.Metrics[desc.HoursField]),
			Metrics:    make(map[string]*float64, len(desc.Tracked)),
			Snapshot:   snapshot,
		}
		if desc.CrewField != "" {
			row.Crew = ToNumber(src.Metrics[desc.CrewField])
			out.TotalCrew += row.Crew
		}
		for _, key := range desc.Tracked {
			v, ok := src.Metrics[key]
			if !ok || v == nil {
				row.Metrics[key] = nil
				continue
			}
			row.Metrics[key] = ToNullableNumber(v)
		}
		for key, v := range src.Metrics {
			if key == desc.HoursField || key == desc.CrewField || tracked(desc, key) {
				continue
			}
			if row.Extra == nil {
				row.Extra = make(map[string]any)
			}
			row.Extra[key] = v
		}
		out.TotalHours += row.Hours
		out.Rows = append(out.Rows, row)
	}
	return out
}

func tracked(desc SiteDescriptor, key string) bool {
	for _, k := range desc.Tracked {
		if k == key {
			return true
		}
	}
	return false
}

// latestSnapshot picks the most recent reading by coerced timestamp.
// Ties go to the later element so a feed of equal-stamped readings
// resolves to the last one sent.
func latestSnapshot(snaps []bsapi.TechSnapshot) *SnapshotValues {
	if len(snaps) == 0 {
		// Sites that merge snapshots always render the snapshot block,
		// with every sensor absent when no reading exists.
		return &SnapshotValues{}
	}
	best := snaps[0]
	bestAt := ToTimestamp(best.RecordedAt)
	for _, s := range snaps[1:] {
		if at := ToTimestamp(s.RecordedAt); at >= bestAt {
			best = s
			bestAt = at
		}
	}
	return &SnapshotValues{
		SuctionPressure: ToNullableNumber(best.SuctionPressure),
		IgnitionTemp:    ToNullableNumber(best.IgnitionTemp),
		Duct12Pressure:  ToNullableNumber(best.Duct12Pressure),
		GasPressure:     ToNullableNumber(best.GasPressure),
		DamperOpening:   ToNullableNumber(best.DamperOpening),
	}
}
