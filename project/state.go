package project

import "time"

// Stage is the progress of a sync pass. Stages only move forward within a pass.
type Stage int

const (
	StageIdle Stage = iota
	StageMergeRequests
	StageMembers
	StageCommits
	StageIssues
	StageCodeDiffs
	StageDone
)

var stageNames = map[Stage]string{
	StageIdle:          "idle",
	StageMergeRequests: "merge_requests",
	StageMembers:       "members",
	StageCommits:       "commits",
	StageIssues:        "issues",
	StageCodeDiffs:     "code_diffs",
	StageDone:          "done",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the stage by name.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SyncState is the observable bookkeeping of a project's sync passes.
type SyncState struct {
	Stage      Stage      `json:"stage"`
	Running    bool       `json:"running"`
	Passes     int        `json:"passes"`
	LastSynced *time.Time `json:"last_synced,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}
