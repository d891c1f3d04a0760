package stats

import (
	"sort"
	"time"
)

const shiftsPerDay = 3

// DayGroup is every reported shift for one production day.
type DayGroup struct {
	Day  string `json:"production_day"`
	Rows []Row  `json:"rows"`
}

// GroupResult is the day-grouped view of a summary plus completeness
// counters for the queried window.
type GroupResult struct {
	Days          []DayGroup `json:"days"`
	TotalShifts   int        `json:"total_shifts"`
	Expected      int        `json:"expected_shifts"`
	MissingShifts int        `json:"missing_shifts"`
	MissingData   int        `json:"missing_data"`
}

// GroupByDay buckets rows by production day, days and shifts ascending.
// shiftFilter narrows to one shift number; zero keeps all. Rows with no
// production day cannot be placed and are excluded from groups and
// counters alike. expected is the shift count the window should have
// produced, from ExpectedShiftCount.
func GroupByDay(rows []Row, shiftFilter int, expected int) GroupResult {
	byDay := make(map[string][]Row)
	var days []string
	total := 0
	missingData := 0

	for _, r := range rows {
		if r.Day == "" {
			continue
		}
		if shiftFilter != 0 && r.Shift != shiftFilter {
			continue
		}
		if _, seen := byDay[r.Day]; !seen {
			days = append(days, r.Day)
		}
		byDay[r.Day] = append(byDay[r.Day], r)
		total++
		if hasMissingData(r) {
			missingData++
		}
	}

	sort.Strings(days)
	result := GroupResult{
		Days:        make([]DayGroup, 0, len(days)),
		TotalShifts: total,
		Expected:    expected,
		MissingData: missingData,
	}
	for _, day := range days {
		group := byDay[day]
		sort.SliceStable(group, func(i, j int) bool { return group[i].Shift < group[j].Shift })
		result.Days = append(result.Days, DayGroup{Day: day, Rows: group})
	}
	if expected > total {
		result.MissingShifts = expected - total
	}
	return result
}

func hasMissingData(r Row) bool {
	for _, v := range r.Metrics {
		if v == nil {
			return true
		}
	}
	return false
}

// ExpectedShiftCount computes how many shifts a date window should
// contain: the inclusive day span times three. An empty end date means
// a single day. Unparseable dates yield zero, disabling the
// missing-shift counter rather than guessing.
func ExpectedShiftCount(startDate, endDate string) int {
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return 0
	}
	if endDate == "" {
		return shiftsPerDay
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return 0
	}
	days := int(end.Sub(start).Hours()/24) + 1
	if days < 1 {
		return 0
	}
	return days * shiftsPerDay
}
