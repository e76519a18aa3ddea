package engine

// loadLedger tracks committed teaching minutes per instructor, per day and
// per week. Apply and revert route through one delta routine so the pair
// stays an exact inverse; a bookkeeping asymmetry here would silently
// corrupt every later affordability decision.
type loadLedger struct {
	daily  map[string]map[Day]int
	weekly map[string]int
}

func newLoadLedger(instructors []Instructor) *loadLedger {
	l := &loadLedger{
		daily:  make(map[string]map[Day]int, len(instructors)),
		weekly: make(map[string]int, len(instructors)),
	}
	for _, in := range instructors {
		l.daily[in.ID] = make(map[Day]int)
		l.weekly[in.ID] = 0
	}
	return l
}

// canAfford reports whether adding one session of the given duration on
// each day keeps the instructor within both daily and weekly limits.
func (l *loadLedger) canAfford(in *Instructor, days []Day, duration int) bool {
	for _, d := range days {
		if l.daily[in.ID][d]+duration > in.MaxDailyMinutes {
			return false
		}
	}
	return l.weekly[in.ID]+duration*len(days) <= in.MaxWeeklyMinutes
}

func (l *loadLedger) apply(instructorID string, days []Day, duration int) {
	l.adjust(instructorID, days, duration, 1)
}

func (l *loadLedger) revert(instructorID string, days []Day, duration int) {
	l.adjust(instructorID, days, duration, -1)
}

func (l *loadLedger) adjust(instructorID string, days []Day, duration, sign int) {
	for _, d := range days {
		l.daily[instructorID][d] += sign * duration
	}
	l.weekly[instructorID] += sign * duration * len(days)
}

func (l *loadLedger) dayMinutes(instructorID string, d Day) int {
	return l.daily[instructorID][d]
}
