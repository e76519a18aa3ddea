package engine

// cohortBuffer is the minimum gap, in minutes, between sessions of two
// different courses sharing level and term on the same day.
const cohortBuffer = 15

type occKey struct {
	RoomID string
	Day    Day
}

type slotKey struct {
	Day   Day
	Start int
}

// occupancy holds every committed (and tentatively committed) session of
// the current run. Sessions are stored as values keyed by (room, day) for
// the room check and mirrored per day for the cohort and instructor
// checks; nothing is aliased, so undo is a plain value removal.
type occupancy struct {
	byRoomDay map[occKey][]SessionPlacement
	byDay     map[Day][]SessionPlacement
	slotUse   map[slotKey]int
}

func newOccupancy() *occupancy {
	return &occupancy{
		byRoomDay: make(map[occKey][]SessionPlacement),
		byDay:     make(map[Day][]SessionPlacement),
		slotUse:   make(map[slotKey]int),
	}
}

func (o *occupancy) add(s SessionPlacement) {
	key := occKey{RoomID: s.RoomID, Day: s.Day}
	o.byRoomDay[key] = append(o.byRoomDay[key], s)
	o.byDay[s.Day] = append(o.byDay[s.Day], s)
}

func (o *occupancy) remove(s SessionPlacement) {
	key := occKey{RoomID: s.RoomID, Day: s.Day}
	o.byRoomDay[key] = removeSession(o.byRoomDay[key], s)
	o.byDay[s.Day] = removeSession(o.byDay[s.Day], s)
}

func (o *occupancy) countSlot(day Day, start int) int {
	return o.slotUse[slotKey{Day: day, Start: start}]
}

func (o *occupancy) adjustSlot(day Day, start, delta int) {
	key := slotKey{Day: day, Start: start}
	o.slotUse[key] += delta
	if o.slotUse[key] == 0 {
		delete(o.slotUse, key)
	}
}

func removeSession(sessions []SessionPlacement, target SessionPlacement) []SessionPlacement {
	for i, s := range sessions {
		if s == target {
			return append(sessions[:i], sessions[i+1:]...)
		}
	}
	return sessions
}

// conflicts reports whether the candidate session violates any of the
// three hard rules against the sessions committed so far. Capacity fit is
// a ranker precondition and is not re-checked here.
func (o *occupancy) conflicts(cand SessionPlacement, course *Course, courses map[string]*Course) bool {
	for _, s := range o.byRoomDay[occKey{RoomID: cand.RoomID, Day: cand.Day}] {
		if overlaps(cand.Start, cand.End, s.Start, s.End) {
			return true
		}
	}

	for _, s := range o.byDay[cand.Day] {
		other := courses[s.CourseID]
		if other == nil {
			continue
		}
		if other.ID != course.ID && other.Level == course.Level && other.Term == course.Term {
			// Same cohort: require a buffer on both sides, even across rooms.
			if !(cand.End+cohortBuffer <= s.Start || s.End+cohortBuffer <= cand.Start) {
				return true
			}
		}
		if other.InstructorID == course.InstructorID && overlaps(cand.Start, cand.End, s.Start, s.End) {
			return true
		}
	}

	return false
}

func overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}
