package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/campus-tools/timetable-api/internal/engine"
)

type snapshotFile struct {
	Rooms []struct {
		ID       string `json:"id"`
		Capacity int    `json:"capacity"`
	} `json:"rooms"`
	Instructors []struct {
		ID               string   `json:"id"`
		Name             string   `json:"name"`
		MaxDailyMinutes  int      `json:"maxDailyMinutes"`
		MaxWeeklyMinutes int      `json:"maxWeeklyMinutes"`
		AvailableDays    []string `json:"availableDays"`
	} `json:"instructors"`
	Courses []struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		InstructorID string `json:"instructorId"`
		SessionCount int    `json:"sessionCount"`
		Duration     int    `json:"duration"`
		Capacity     int    `json:"capacity"`
		Level        string `json:"level"`
		Term         int    `json:"term"`
	} `json:"courses"`
}

type runOutcome struct {
	Policy   engine.Policy
	Result   *engine.Result
	Stats    *engine.Stats
	Err      error
	Duration time.Duration
}

func main() {
	var (
		snapshotPath string
		maxNodes     int
	)

	flag.StringVar(&snapshotPath, "snapshot", filepath.Join("scripts", "policy_compare", "snapshot.json"), "Path to JSON snapshot file")
	flag.IntVar(&maxNodes, "max-nodes", 0, "Node budget per run (0 = unbounded)")
	flag.Parse()

	snap, err := loadSnapshot(snapshotPath)
	if err != nil {
		log.Fatalf("failed to load snapshot: %v", err)
	}

	strict := runPolicy(snap, engine.PolicyStrict, maxNodes)
	bestEffort := runPolicy(snap, engine.PolicyBestEffort, maxNodes)

	printReport(snap, strict, bestEffort)

	if strict.Err != nil && bestEffort.Err != nil {
		os.Exit(1)
	}
}

func loadSnapshot(path string) (engine.Snapshot, error) {
	var snap engine.Snapshot

	data, err := os.ReadFile(path)
	if err != nil {
		return snap, err
	}
	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return snap, err
	}
	if len(file.Courses) == 0 {
		return snap, fmt.Errorf("no courses defined in %s", path)
	}

	for _, r := range file.Rooms {
		snap.Rooms = append(snap.Rooms, engine.Room{ID: r.ID, Capacity: r.Capacity})
	}
	for _, i := range file.Instructors {
		days := make([]engine.Day, 0, len(i.AvailableDays))
		for _, d := range i.AvailableDays {
			days = append(days, engine.Day(d))
		}
		snap.Instructors = append(snap.Instructors, engine.Instructor{
			ID:               i.ID,
			Name:             i.Name,
			MaxDailyMinutes:  i.MaxDailyMinutes,
			MaxWeeklyMinutes: i.MaxWeeklyMinutes,
			AvailableDays:    days,
		})
	}
	for _, c := range file.Courses {
		snap.Courses = append(snap.Courses, engine.Course{
			ID:           c.ID,
			Name:         c.Name,
			InstructorID: c.InstructorID,
			SessionCount: c.SessionCount,
			Duration:     c.Duration,
			Capacity:     c.Capacity,
			Level:        engine.Level(c.Level),
			Term:         c.Term,
		})
	}
	return snap, nil
}

func runPolicy(snap engine.Snapshot, policy engine.Policy, maxNodes int) runOutcome {
	start := time.Now()
	result, stats, err := engine.Schedule(snap, engine.Options{Policy: policy, MaxNodes: maxNodes})
	return runOutcome{
		Policy:   policy,
		Result:   result,
		Stats:    stats,
		Err:      err,
		Duration: time.Since(start),
	}
}

func printReport(snap engine.Snapshot, strict, bestEffort runOutcome) {
	fmt.Println("Policy Compare Report")
	fmt.Println("=====================")
	fmt.Printf("Input: %d rooms, %d instructors, %d courses\n\n", len(snap.Rooms), len(snap.Instructors), len(snap.Courses))

	for _, out := range []runOutcome{strict, bestEffort} {
		fmt.Printf("[%s]\n", out.Policy)
		if out.Err != nil {
			fmt.Printf("  Outcome: %v\n", out.Err)
		} else {
			fmt.Printf("  Placed: %d courses\n", len(out.Result.Entries))
			if len(out.Result.Unplaced) > 0 {
				fmt.Printf("  Unplaced: %v\n", out.Result.Unplaced)
			}
		}
		if out.Stats != nil {
			fmt.Printf("  Nodes: %d | Backtracks: %d | Duration: %s\n", out.Stats.Nodes, out.Stats.Backtracks, out.Duration)
		}
		fmt.Println()
	}

	if strict.Err != nil || bestEffort.Err != nil {
		return
	}
	diffPlacements(strict, bestEffort)
}

// diffPlacements lists courses whose room or slot differs between the two
// policies. When strict succeeds both policies should agree exactly.
func diffPlacements(strict, bestEffort runOutcome) {
	strictByID := placementKeys(strict.Result)
	effortByID := placementKeys(bestEffort.Result)

	var diffs []string
	for id, key := range strictByID {
		if other, ok := effortByID[id]; !ok || other != key {
			diffs = append(diffs, id)
		}
	}
	for id := range effortByID {
		if _, ok := strictByID[id]; !ok {
			diffs = append(diffs, id)
		}
	}
	sort.Strings(diffs)

	if len(diffs) == 0 {
		fmt.Println("Placements identical across policies.")
		return
	}
	fmt.Printf("Diverging courses: %v\n", diffs)
}

func placementKeys(result *engine.Result) map[string]string {
	keys := make(map[string]string, len(result.Entries))
	for _, entry := range result.Entries {
		key := ""
		for _, s := range entry.Sessions {
			key += fmt.Sprintf("%s|%s|%d|%d;", s.RoomID, s.Day, s.Start, s.End)
		}
		keys[entry.CourseID] = key
	}
	return keys
}
