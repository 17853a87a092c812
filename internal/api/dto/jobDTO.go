package dto

type TerminateRequestDTO struct {
	JobID string `json:"jobId"`
}

type TerminateResponseDTO struct {
	Success    bool `json:"success"`
	Terminated bool `json:"terminated"`
}

type InputRequestDTO struct {
	JobID string `json:"jobId"`
	Input string `json:"input"`
}

type InputResponseDTO struct {
	Success bool `json:"success"`
}

type LiveJobsResponseDTO struct {
	Jobs []string `json:"jobs"`
}

type OutcomeResponseDTO struct {
	JobID             string `json:"jobId"`
	TerminationReason string `json:"terminationReason"`
	ExitCode          int    `json:"exitCode"`
	DurationMS        int64  `json:"durationMs"`
	SettledAt         string `json:"settledAt"`
}

type ConvertRequestDTO struct {
	Tree string `json:"tree"`
}

type ConvertResponseDTO struct {
	DOT   string `json:"dot"`
	Nodes int    `json:"nodes"`
	Edges int    `json:"edges"`
}
