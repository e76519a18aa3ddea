package engine

import "sort"

// orderCourses returns the outer-loop placement order: two-session and
// large courses are the most constrained and should fail fast, ties broken
// by id for reproducibility.
func orderCourses(courses []Course) []Course {
	ordered := make([]Course, len(courses))
	copy(ordered, courses)
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.SessionCount != b.SessionCount {
			return a.SessionCount > b.SessionCount
		}
		if a.Capacity != b.Capacity {
			return a.Capacity > b.Capacity
		}
		return a.ID < b.ID
	})
	return ordered
}

// generateDayPairs enumerates the candidate day sets for a course: every
// single day for one-session courses, every unordered pair of distinct
// days for two-session courses, restricted to the instructor's days.
func generateDayPairs(sessionCount int, days []Day) [][]Day {
	if sessionCount == 1 {
		pairs := make([][]Day, 0, len(days))
		for _, d := range days {
			pairs = append(pairs, []Day{d})
		}
		return pairs
	}
	var pairs [][]Day
	for i := 0; i < len(days); i++ {
		for j := i + 1; j < len(days); j++ {
			pairs = append(pairs, []Day{days[i], days[j]})
		}
	}
	return pairs
}

// rankDayPairs orders candidate day sets by the instructor's current
// combined load, ascending, to spread teaching across the week. The sort
// is stable over the generation order.
func rankDayPairs(pairs [][]Day, ledger *loadLedger, instructorID string) [][]Day {
	ranked := make([][]Day, len(pairs))
	copy(ranked, pairs)
	load := func(days []Day) int {
		total := 0
		for _, d := range days {
			total += ledger.dayMinutes(instructorID, d)
		}
		return total
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return load(ranked[i]) < load(ranked[j])
	})
	return ranked
}

// rankStarts orders candidate start times by aggregate slot occupancy
// across the candidate days, ascending, preferring lightly used slots.
// Stable over the ascending start order.
func rankStarts(starts []int, days []Day, occ *occupancy) []int {
	ranked := make([]int, len(starts))
	copy(ranked, starts)
	use := func(start int) int {
		total := 0
		for _, d := range days {
			total += occ.countSlot(d, start)
		}
		return total
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return use(ranked[i]) < use(ranked[j])
	})
	return ranked
}

// rankRooms filters rooms that seat the course and orders them by wasted
// capacity, ascending, ties broken by room id.
func rankRooms(rooms []Room, capacity int) []Room {
	fit := make([]Room, 0, len(rooms))
	for _, r := range rooms {
		if r.Capacity >= capacity {
			fit = append(fit, r)
		}
	}
	sort.Slice(fit, func(i, j int) bool {
		if fit[i].Capacity != fit[j].Capacity {
			return fit[i].Capacity < fit[j].Capacity
		}
		return fit[i].ID < fit[j].ID
	})
	return fit
}
