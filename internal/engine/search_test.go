package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singleRoomSnapshot() Snapshot {
	return Snapshot{
		Rooms: []Room{{ID: "r1", Capacity: 50}},
		Instructors: []Instructor{
			{ID: "i1", Name: "Dr. Pour", MaxDailyMinutes: 480, MaxWeeklyMinutes: 1200},
		},
		Courses: []Course{
			{ID: "c1", Name: "Algorithms", InstructorID: "i1", SessionCount: 1, Duration: 60, Capacity: 30, Level: LevelUndergraduate, Term: 1},
		},
	}
}

func TestScheduleSingleCourse(t *testing.T) {
	result, stats, err := Schedule(singleRoomSnapshot(), Options{Policy: PolicyStrict})
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	assert.Empty(t, result.Unplaced)
	assert.Equal(t, 1, stats.Nodes)

	entry := result.Entries[0]
	require.Len(t, entry.Sessions, 1)
	s := entry.Sessions[0]
	assert.Equal(t, "c1", s.CourseID)
	assert.Equal(t, "r1", s.RoomID)
	assert.GreaterOrEqual(t, s.Start, 480)
	assert.LessOrEqual(t, s.End, 1080)
	assert.Equal(t, s.Start+60, s.End)
	assert.Zero(t, s.Start%15)
}

func TestScheduleStrictInfeasible(t *testing.T) {
	snap := Snapshot{
		Rooms: []Room{{ID: "r1", Capacity: 50}},
		Instructors: []Instructor{
			{ID: "i1", MaxDailyMinutes: 120, MaxWeeklyMinutes: 120, AvailableDays: []Day{DaySat}},
		},
		Courses: []Course{
			{ID: "c1", InstructorID: "i1", SessionCount: 1, Duration: 120, Capacity: 30, Level: LevelUndergraduate, Term: 1},
			{ID: "c2", InstructorID: "i1", SessionCount: 1, Duration: 120, Capacity: 30, Level: LevelUndergraduate, Term: 2},
		},
	}

	_, _, err := Schedule(snap, Options{Policy: PolicyStrict})
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestScheduleBestEffortSkipsUnplaceable(t *testing.T) {
	snap := Snapshot{
		Rooms: []Room{{ID: "r1", Capacity: 50}},
		Instructors: []Instructor{
			{ID: "i1", MaxDailyMinutes: 120, MaxWeeklyMinutes: 120, AvailableDays: []Day{DaySat}},
		},
		Courses: []Course{
			{ID: "c1", InstructorID: "i1", SessionCount: 1, Duration: 120, Capacity: 30, Level: LevelUndergraduate, Term: 1},
			{ID: "c2", InstructorID: "i1", SessionCount: 1, Duration: 120, Capacity: 30, Level: LevelUndergraduate, Term: 2},
		},
	}

	result, _, err := Schedule(snap, Options{Policy: PolicyBestEffort})
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, []string{"c2"}, result.Unplaced)
}

func TestScheduleCohortBufferEnforced(t *testing.T) {
	snap := Snapshot{
		Rooms: []Room{{ID: "r1", Capacity: 50}, {ID: "r2", Capacity: 50}},
		Instructors: []Instructor{
			{ID: "i1", MaxDailyMinutes: 480, MaxWeeklyMinutes: 1200},
			{ID: "i2", MaxDailyMinutes: 480, MaxWeeklyMinutes: 1200},
		},
		Courses: []Course{
			{ID: "c1", InstructorID: "i1", SessionCount: 1, Duration: 60, Capacity: 30, Level: LevelGraduate, Term: 3},
			{ID: "c2", InstructorID: "i2", SessionCount: 1, Duration: 60, Capacity: 30, Level: LevelGraduate, Term: 3},
		},
	}

	result, _, err := Schedule(snap, Options{Policy: PolicyStrict})
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)
	verifyInvariants(t, snap, result)

	a := result.Entries[0].Sessions[0]
	b := result.Entries[1].Sessions[0]
	if a.Day == b.Day {
		gap := b.Start - a.End
		if a.Start > b.Start {
			gap = a.Start - b.End
		}
		assert.GreaterOrEqual(t, gap, 15, "same-cohort sessions need a 15 minute buffer")
	}
}

func TestScheduleTwoSessionCourseUsesAvailablePair(t *testing.T) {
	snap := Snapshot{
		Rooms: []Room{{ID: "r1", Capacity: 40}},
		Instructors: []Instructor{
			{ID: "i1", MaxDailyMinutes: 240, MaxWeeklyMinutes: 480, AvailableDays: []Day{DaySat, DaySun}},
		},
		Courses: []Course{
			{ID: "c1", InstructorID: "i1", SessionCount: 2, Duration: 90, Capacity: 25, Level: LevelPhD, Term: 5},
		},
	}

	result, _, err := Schedule(snap, Options{Policy: PolicyStrict})
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)

	sessions := result.Entries[0].Sessions
	require.Len(t, sessions, 2)
	assert.Equal(t, sessions[0].Start, sessions[1].Start)
	assert.Equal(t, sessions[0].End, sessions[1].End)
	days := map[Day]bool{sessions[0].Day: true, sessions[1].Day: true}
	assert.Equal(t, map[Day]bool{DaySat: true, DaySun: true}, days)
}

func TestScheduleDeterminism(t *testing.T) {
	snap := contendedSnapshot()

	first, firstStats, err := Schedule(snap, Options{Policy: PolicyBestEffort})
	require.NoError(t, err)
	second, secondStats, err := Schedule(snap, Options{Policy: PolicyBestEffort})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstStats, secondStats)
}

func TestScheduleHonoursAllInvariants(t *testing.T) {
	snap := contendedSnapshot()

	result, _, err := Schedule(snap, Options{Policy: PolicyBestEffort})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Entries)
	verifyInvariants(t, snap, result)
}

func TestScheduleInputErrors(t *testing.T) {
	base := singleRoomSnapshot()

	unknown := base
	unknown.Courses = []Course{{ID: "c9", InstructorID: "ghost", SessionCount: 1, Duration: 60, Capacity: 10}}
	_, _, err := Schedule(unknown, Options{})
	var inputError *InputError
	require.ErrorAs(t, err, &inputError)
	assert.Equal(t, "c9", inputError.ID)

	badDuration := singleRoomSnapshot()
	badDuration.Courses[0].Duration = 70
	_, _, err = Schedule(badDuration, Options{})
	require.ErrorAs(t, err, &inputError)

	badCapacity := singleRoomSnapshot()
	badCapacity.Rooms[0].Capacity = 0
	_, _, err = Schedule(badCapacity, Options{})
	require.ErrorAs(t, err, &inputError)
	assert.Equal(t, "room", inputError.Entity)
}

func TestScheduleBudgetExhaustion(t *testing.T) {
	snap := Snapshot{
		Rooms: []Room{{ID: "r1", Capacity: 50}},
		Instructors: []Instructor{
			{ID: "i1", MaxDailyMinutes: 120, MaxWeeklyMinutes: 120, AvailableDays: []Day{DaySat}},
		},
		Courses: []Course{
			{ID: "c1", InstructorID: "i1", SessionCount: 1, Duration: 120, Capacity: 30, Level: LevelUndergraduate, Term: 1},
			{ID: "c2", InstructorID: "i1", SessionCount: 1, Duration: 120, Capacity: 30, Level: LevelUndergraduate, Term: 2},
		},
	}

	_, _, err := Schedule(snap, Options{Policy: PolicyStrict, MaxNodes: 1})
	assert.ErrorIs(t, err, ErrBudgetExhausted)
}

func TestUndoRestoresStateExactly(t *testing.T) {
	// Every placement of c1 leaves too little daily budget for c2, so the
	// search commits c1 repeatedly, fails on c2, and undoes each attempt.
	instructors := []Instructor{{ID: "i1", MaxDailyMinutes: 150, MaxWeeklyMinutes: 150, AvailableDays: []Day{DaySat}}}
	courses := orderCourses([]Course{
		{ID: "c1", InstructorID: "i1", SessionCount: 1, Duration: 60, Capacity: 30, Level: LevelUndergraduate, Term: 1},
		{ID: "c2", InstructorID: "i1", SessionCount: 1, Duration: 120, Capacity: 30, Level: LevelUndergraduate, Term: 2},
	})

	r := &run{
		courses:     courses,
		courseIndex: map[string]*Course{},
		instructors: map[string]*Instructor{"i1": &instructors[0]},
		rooms:       []Room{{ID: "r1", Capacity: 50}},
		occ:         newOccupancy(),
		ledger:      newLoadLedger(instructors),
		policy:      PolicyStrict,
	}
	for i := range r.courses {
		r.courseIndex[r.courses[i].ID] = &r.courses[i]
	}

	ok := r.assign(0)
	require.False(t, ok)
	assert.Greater(t, r.stats.Backtracks, 0)

	assert.Empty(t, r.entries)
	assert.Zero(t, r.ledger.dayMinutes("i1", DaySat))
	assert.Zero(t, r.ledger.weekly["i1"])
	assert.Empty(t, r.occ.slotUse)
	for key, sessions := range r.occ.byRoomDay {
		assert.Empty(t, sessions, key)
	}
	for day, sessions := range r.occ.byDay {
		assert.Empty(t, sessions, day)
	}
}

// contendedSnapshot builds a snapshot with enough contention to force
// ranking and backtracking decisions without being infeasible.
func contendedSnapshot() Snapshot {
	return Snapshot{
		Rooms: []Room{
			{ID: "r-a", Capacity: 30},
			{ID: "r-b", Capacity: 60},
			{ID: "r-c", Capacity: 120},
		},
		Instructors: []Instructor{
			{ID: "i1", MaxDailyMinutes: 240, MaxWeeklyMinutes: 600},
			{ID: "i2", MaxDailyMinutes: 180, MaxWeeklyMinutes: 360, AvailableDays: []Day{DayMon, DayTue, DayWed}},
			{ID: "i3", MaxDailyMinutes: 480, MaxWeeklyMinutes: 960},
		},
		Courses: []Course{
			{ID: "c1", InstructorID: "i1", SessionCount: 2, Duration: 90, Capacity: 55, Level: LevelUndergraduate, Term: 1},
			{ID: "c2", InstructorID: "i1", SessionCount: 1, Duration: 120, Capacity: 25, Level: LevelUndergraduate, Term: 1},
			{ID: "c3", InstructorID: "i2", SessionCount: 2, Duration: 75, Capacity: 110, Level: LevelGraduate, Term: 2},
			{ID: "c4", InstructorID: "i2", SessionCount: 1, Duration: 60, Capacity: 20, Level: LevelUndergraduate, Term: 1},
			{ID: "c5", InstructorID: "i3", SessionCount: 2, Duration: 120, Capacity: 45, Level: LevelGraduate, Term: 2},
			{ID: "c6", InstructorID: "i3", SessionCount: 1, Duration: 90, Capacity: 30, Level: LevelPhD, Term: 4},
		},
	}
}

// verifyInvariants asserts the structural guarantees that must hold for
// every committed result: no room double-booking, cohort buffers,
// instructor non-overlap, load bounds, availability, and atomic entries.
func verifyInvariants(t *testing.T, snap Snapshot, result *Result) {
	t.Helper()

	courseByID := make(map[string]Course, len(snap.Courses))
	for _, c := range snap.Courses {
		courseByID[c.ID] = c
	}
	instructorByID := make(map[string]Instructor, len(snap.Instructors))
	for _, in := range snap.Instructors {
		instructorByID[in.ID] = in
	}

	var all []SessionPlacement
	daily := map[string]map[Day]int{}
	weekly := map[string]int{}

	for _, entry := range result.Entries {
		course, ok := courseByID[entry.CourseID]
		require.True(t, ok, "entry for unknown course %s", entry.CourseID)
		require.Len(t, entry.Sessions, course.SessionCount, "partial placement for %s", entry.CourseID)

		instructor := instructorByID[course.InstructorID]
		allowed := map[Day]bool{}
		for _, d := range availableDays(&instructor) {
			allowed[d] = true
		}

		seenDays := map[Day]bool{}
		for _, s := range entry.Sessions {
			assert.True(t, allowed[s.Day], "course %s placed on unavailable day %s", course.ID, s.Day)
			assert.False(t, seenDays[s.Day], "course %s has two sessions on %s", course.ID, s.Day)
			seenDays[s.Day] = true
			assert.GreaterOrEqual(t, s.Start, 480)
			assert.LessOrEqual(t, s.End, 1080)
			assert.Zero(t, s.Start%15)
			assert.Equal(t, s.Start+course.Duration, s.End)

			if daily[course.InstructorID] == nil {
				daily[course.InstructorID] = map[Day]int{}
			}
			daily[course.InstructorID][s.Day] += course.Duration
			weekly[course.InstructorID] += course.Duration
			all = append(all, s)
		}
		if course.SessionCount == 2 {
			assert.Equal(t, entry.Sessions[0].Start, entry.Sessions[1].Start)
		}
	}

	for id, perDay := range daily {
		instructor := instructorByID[id]
		for day, minutes := range perDay {
			assert.LessOrEqual(t, minutes, instructor.MaxDailyMinutes, "daily load for %s on %s", id, day)
		}
		assert.LessOrEqual(t, weekly[id], instructor.MaxWeeklyMinutes, "weekly load for %s", id)
	}

	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			a, b := all[i], all[j]
			if a.Day != b.Day {
				continue
			}
			ca, cb := courseByID[a.CourseID], courseByID[b.CourseID]
			if a.RoomID == b.RoomID {
				assert.False(t, overlaps(a.Start, a.End, b.Start, b.End), "room double-booking: %+v vs %+v", a, b)
			}
			if ca.InstructorID == cb.InstructorID {
				assert.False(t, overlaps(a.Start, a.End, b.Start, b.End), "instructor overlap: %+v vs %+v", a, b)
			}
			if ca.ID != cb.ID && ca.Level == cb.Level && ca.Term == cb.Term {
				ok := a.End+15 <= b.Start || b.End+15 <= a.Start
				assert.True(t, ok, "cohort buffer violated: %+v vs %+v", a, b)
			}
		}
	}
}
