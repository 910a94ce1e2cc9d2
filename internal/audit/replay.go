package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// ReplayFilter holds filtering criteria for session replay.
type ReplayFilter struct {
	SessionID string
	From      time.Time // zero value = no lower bound
	To        time.Time // zero value = no upper bound
}

// ReplaySummary holds decision counts and metadata for a replayed session.
type ReplaySummary struct {
	Total          int    `json:"total"`
	FlowCount      int    `json:"flow_count"`
	NudgeCount     int    `json:"nudge_count"`
	PauseCount     int    `json:"pause_count"`
	BlockCount     int    `json:"block_count"`
	ProtectCount   int    `json:"protect_count"`
	SnapshotCount  int    `json:"snapshot_count"`
	FirstTimestamp string `json:"first_timestamp"`
	LastTimestamp  string `json:"last_timestamp"`
	MaxState       string `json:"max_state"`
}

// ReplayResult holds filtered entries and summary for a session replay.
type ReplayResult struct {
	SessionID string        `json:"session_id"`
	Entries   []Entry       `json:"entries"`
	Summary   ReplaySummary `json:"summary"`
}

// stateRank orders the intervention levels for MaxState reporting.
var stateRank = map[string]int{
	"flow":    0,
	"nudge":   1,
	"pause":   2,
	"block":   3,
	"protect": 4,
}

// Replay reads the decision log and returns entries matching the filter.
func Replay(path string, filter ReplayFilter) (*ReplayResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open decision log: %w", err)
	}
	defer f.Close()

	result := &ReplayResult{SessionID: filter.SessionID}
	maxRank := -1

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("parse decision log: %w", err)
		}

		if filter.SessionID != "" && e.SessionID != filter.SessionID {
			continue
		}
		if !inRange(e.Timestamp, filter.From, filter.To) {
			continue
		}

		result.Entries = append(result.Entries, e)

		s := &result.Summary
		s.Total++
		switch e.State {
		case "flow":
			s.FlowCount++
		case "nudge":
			s.NudgeCount++
		case "pause":
			s.PauseCount++
		case "block":
			s.BlockCount++
		case "protect":
			s.ProtectCount++
		}
		if e.SnapshotID != "" {
			s.SnapshotCount++
		}
		if s.FirstTimestamp == "" {
			s.FirstTimestamp = e.Timestamp
		}
		s.LastTimestamp = e.Timestamp
		if r, ok := stateRank[e.State]; ok && r > maxRank {
			maxRank = r
			s.MaxState = e.State
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan decision log: %w", err)
	}
	return result, nil
}

func inRange(ts string, from, to time.Time) bool {
	if from.IsZero() && to.IsZero() {
		return true
	}
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return false
	}
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}
