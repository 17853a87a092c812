package dto

import "IFCompiler/pkg/tables"

type CompileRequestDTO struct {
	Code string `json:"code"`
}

type ArtifactsDTO struct {
	Tokens    string `json:"tokens"`
	Symbols   string `json:"symbols"`
	Constants string `json:"constants"`
	Tree      string `json:"tree"`
}

type TablesDTO struct {
	Tokens    []tables.Token    `json:"tokens"`
	Symbols   []tables.Symbol   `json:"symbols"`
	Constants []tables.Constant `json:"constants"`
}

type CompileResponseDTO struct {
	JobID             string       `json:"jobId"`
	Output            string       `json:"output"`
	Error             string       `json:"error"`
	TerminationReason string       `json:"terminationReason"`
	ExitCode          int          `json:"exitCode"`
	DurationMS        int64        `json:"durationMs"`
	Artifacts         ArtifactsDTO `json:"artifacts"`
	Tables            TablesDTO    `json:"tables"`
	TreeDOT           string       `json:"treeDot"`
	TreeImage         string       `json:"treeImage,omitempty"`
}

type ErrorResponseDTO struct {
	JobID string `json:"jobId,omitempty"`
	Error string `json:"error"`
}
