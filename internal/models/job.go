package models

import (
	"time"

	"IFCompiler/pkg/artifact"
	"IFCompiler/pkg/tables"
)

type TerminationReason string

const (
	ReasonNatural        TerminationReason = "natural"
	ReasonTimeout        TerminationReason = "timeout"
	ReasonUserTerminated TerminationReason = "user-terminated"
	ReasonSpawnError     TerminationReason = "spawn-error"
)

type Job struct {
	ID          string
	Code        string
	SubmittedAt time.Time
}

type Tables struct {
	Tokens    []tables.Token    `json:"tokens"`
	Symbols   []tables.Symbol   `json:"symbols"`
	Constants []tables.Constant `json:"constants"`
}

type JobResult struct {
	ID          string
	Output      string
	ErrorOutput string
	Reason      TerminationReason
	ExitCode    int
	Duration    time.Duration
	Artifacts   artifact.Set
	Tables      Tables
	TreeDOT     string
	// TreeImage is the file name of the rendered tree, empty when rendering
	// is disabled or failed.
	TreeImage string
}

// Outcome is the ledger row kept for each settled job.
type Outcome struct {
	JobID     string
	Reason    TerminationReason
	ExitCode  int
	Duration  time.Duration
	SettledAt time.Time
}

type Stats struct {
	Total    int                       `json:"total"`
	ByReason map[TerminationReason]int `json:"byReason"`
}
