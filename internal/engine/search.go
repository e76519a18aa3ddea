package engine

// Options configures one scheduling run.
type Options struct {
	// Policy selects strict or best-effort completion. Defaults to strict.
	Policy Policy
	// MaxNodes bounds the number of tentative commits explored before the
	// run aborts with ErrBudgetExhausted. Zero means unbounded.
	MaxNodes int
}

// Stats summarises the work of a completed run.
type Stats struct {
	Nodes      int `json:"nodes"`
	Backtracks int `json:"backtracks"`
}

// run owns the mutable state of one scheduling pass. A run is single
// writer and never shared; hosts parallelise across independent runs only.
type run struct {
	courses     []Course
	courseIndex map[string]*Course
	instructors map[string]*Instructor
	rooms       []Room

	occ    *occupancy
	ledger *loadLedger

	entries  []ScheduleEntry
	unplaced []string

	policy    Policy
	maxNodes  int
	stats     Stats
	exhausted bool
}

// Schedule builds a weekly timetable for the snapshot. In strict mode it
// returns ErrInfeasible when no complete assignment exists; in best-effort
// mode it always succeeds and reports skipped courses in Result.Unplaced.
// Identical inputs produce identical results.
func Schedule(snap Snapshot, opts Options) (*Result, *Stats, error) {
	if opts.Policy == "" {
		opts.Policy = PolicyStrict
	}
	if err := validate(snap); err != nil {
		return nil, nil, err
	}

	r := &run{
		courses:     orderCourses(snap.Courses),
		courseIndex: make(map[string]*Course, len(snap.Courses)),
		instructors: make(map[string]*Instructor, len(snap.Instructors)),
		rooms:       snap.Rooms,
		occ:         newOccupancy(),
		ledger:      newLoadLedger(snap.Instructors),
		policy:      opts.Policy,
		maxNodes:    opts.MaxNodes,
	}
	for i := range r.courses {
		r.courseIndex[r.courses[i].ID] = &r.courses[i]
	}
	for i := range snap.Instructors {
		r.instructors[snap.Instructors[i].ID] = &snap.Instructors[i]
	}

	ok := r.assign(0)
	if r.exhausted {
		return nil, nil, ErrBudgetExhausted
	}
	if !ok {
		return nil, nil, ErrInfeasible
	}

	result := &Result{Entries: r.entries, Unplaced: r.unplaced}
	if result.Entries == nil {
		result.Entries = []ScheduleEntry{}
	}
	if result.Unplaced == nil {
		result.Unplaced = []string{}
	}
	stats := r.stats
	return result, &stats, nil
}

// assign places courses[idx:] depth-first, trying ranked day-pairs, start
// times, and rooms for the course at idx. Every commit is undone exactly
// once when the branch below it fails.
func (r *run) assign(idx int) bool {
	if idx == len(r.courses) {
		return true
	}
	course := &r.courses[idx]
	instructor := r.instructors[course.InstructorID]
	days := availableDays(instructor)

	pairs := rankDayPairs(generateDayPairs(course.SessionCount, days), r.ledger, instructor.ID)
	starts := CandidateStarts(course.Duration)
	rooms := rankRooms(r.rooms, course.Capacity)

	for _, pair := range pairs {
		if !r.ledger.canAfford(instructor, pair, course.Duration) {
			continue
		}
		for _, start := range rankStarts(starts, pair, r.occ) {
			end := start + course.Duration

			if course.SessionCount == 1 {
				for _, room := range rooms {
					cand := SessionPlacement{CourseID: course.ID, RoomID: room.ID, Day: pair[0], Start: start, End: end}
					if r.budgetSpent() {
						return false
					}
					if r.occ.conflicts(cand, course, r.courseIndex) {
						continue
					}
					r.occ.add(cand)
					r.commit(course, pair, []SessionPlacement{cand})
					if r.assign(idx + 1) {
						return true
					}
					r.undo(course, pair, []SessionPlacement{cand})
					r.occ.remove(cand)
				}
				continue
			}

			// Two sessions share the clock window on two distinct days;
			// room2 is enumerated inside a tentative commit of session 1.
			for _, room1 := range rooms {
				s1 := SessionPlacement{CourseID: course.ID, RoomID: room1.ID, Day: pair[0], Start: start, End: end}
				if r.budgetSpent() {
					return false
				}
				if r.occ.conflicts(s1, course, r.courseIndex) {
					continue
				}
				r.occ.add(s1)
				for _, room2 := range rooms {
					s2 := SessionPlacement{CourseID: course.ID, RoomID: room2.ID, Day: pair[1], Start: start, End: end}
					if r.budgetSpent() {
						r.occ.remove(s1)
						return false
					}
					if r.occ.conflicts(s2, course, r.courseIndex) {
						continue
					}
					r.occ.add(s2)
					r.commit(course, pair, []SessionPlacement{s1, s2})
					if r.assign(idx + 1) {
						return true
					}
					r.undo(course, pair, []SessionPlacement{s1, s2})
					r.occ.remove(s2)
				}
				r.occ.remove(s1)
			}
		}
	}

	if r.policy == PolicyBestEffort {
		// Exhausted candidates are skipped without reopening earlier
		// commitments; the course is reported as unplaced.
		r.unplaced = append(r.unplaced, course.ID)
		return r.assign(idx + 1)
	}
	return false
}

// commit registers a fully accepted course placement: slot counters, load
// ledger, and the result entry. Sessions are already in occupancy.
func (r *run) commit(course *Course, days []Day, sessions []SessionPlacement) {
	for _, s := range sessions {
		r.occ.adjustSlot(s.Day, s.Start, 1)
	}
	r.ledger.apply(course.InstructorID, days, course.Duration)
	r.entries = append(r.entries, ScheduleEntry{CourseID: course.ID, Sessions: sessions})
	r.stats.Nodes++
}

// undo reverses commit exactly: it pops the entry, reverts the ledger by
// the matching delta, and decrements the slot counters.
func (r *run) undo(course *Course, days []Day, sessions []SessionPlacement) {
	r.entries = r.entries[:len(r.entries)-1]
	r.ledger.revert(course.InstructorID, days, course.Duration)
	for _, s := range sessions {
		r.occ.adjustSlot(s.Day, s.Start, -1)
	}
	r.stats.Backtracks++
}

func (r *run) budgetSpent() bool {
	if r.maxNodes > 0 && r.stats.Nodes >= r.maxNodes {
		r.exhausted = true
		return true
	}
	return false
}

// validate rejects malformed snapshots before any search state is built.
func validate(snap Snapshot) error {
	known := make(map[string]bool, len(snap.Instructors))
	for _, in := range snap.Instructors {
		known[in.ID] = true
		if in.MaxDailyMinutes <= 0 || in.MaxWeeklyMinutes <= 0 {
			return inputErr("instructor", in.ID, "load limits must be positive")
		}
	}
	for _, room := range snap.Rooms {
		if room.Capacity <= 0 {
			return inputErr("room", room.ID, "capacity must be positive")
		}
	}
	for _, course := range snap.Courses {
		if !known[course.InstructorID] {
			return inputErr("course", course.ID, "unknown instructor %q", course.InstructorID)
		}
		if course.SessionCount < 1 || course.SessionCount > 2 {
			return inputErr("course", course.ID, "session count must be 1 or 2")
		}
		if course.Duration < 60 || course.Duration > 120 || course.Duration%slotStep != 0 {
			return inputErr("course", course.ID, "duration must be 60-120 minutes in steps of %d", slotStep)
		}
		if course.Capacity <= 0 {
			return inputErr("course", course.ID, "capacity must be positive")
		}
	}
	return nil
}
