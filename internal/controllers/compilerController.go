package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"IFCompiler/internal/api/dto"
	"IFCompiler/internal/models"
	customErrors "IFCompiler/internal/models/errors"
	"IFCompiler/internal/services"
	"IFCompiler/pkg/artifact"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
)

// OutcomeReader exposes the settled-job ledger.
type OutcomeReader interface {
	GetByJobID(id string) (models.Outcome, error)
	Stats() (models.Stats, error)
}

type CompilerController struct {
	compilerService *services.CompilerService
	treeService     *services.TreeService
	outcomes        OutcomeReader
	logger          *log.Logger
}

func StartCompilerController(
	compilerService *services.CompilerService,
	treeService *services.TreeService,
	outcomes OutcomeReader,
	logger *log.Logger,
) (*CompilerController, error) {
	if compilerService == nil {
		return nil, errors.New("compiler service is required")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &CompilerController{
		compilerService: compilerService,
		treeService:     treeService,
		outcomes:        outcomes,
		logger:          logger,
	}, nil
}

func (c *CompilerController) HandleCompile(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req dto.CompileRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "", "Invalid JSON format")
		return
	}

	result, err := c.compilerService.Submit(r.Context(), req.Code)
	if err != nil {
		switch {
		case errors.Is(err, customErrors.ErrInputRejected):
			writeError(w, http.StatusBadRequest, "", "No code provided")
		case errors.Is(err, customErrors.ErrBusy):
			writeError(w, http.StatusServiceUnavailable, "", "Server is busy, try again later")
		case errors.Is(err, customErrors.ErrSpawnFailure):
			writeError(w, http.StatusInternalServerError, result.ID, err.Error())
		default:
			c.logger.Error("[API] Compile failed", "err", err)
			writeError(w, http.StatusInternalServerError, result.ID, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, toCompileResponse(result))
}

func toCompileResponse(result models.JobResult) dto.CompileResponseDTO {
	return dto.CompileResponseDTO{
		JobID:             result.ID,
		Output:            result.Output,
		Error:             result.ErrorOutput,
		TerminationReason: string(result.Reason),
		ExitCode:          result.ExitCode,
		DurationMS:        result.Duration.Milliseconds(),
		Artifacts: dto.ArtifactsDTO{
			Tokens:    result.Artifacts.Get(artifact.Tokens),
			Symbols:   result.Artifacts.Get(artifact.Symbols),
			Constants: result.Artifacts.Get(artifact.Constants),
			Tree:      result.Artifacts.Get(artifact.Tree),
		},
		Tables: dto.TablesDTO{
			Tokens:    nonNil(result.Tables.Tokens),
			Symbols:   nonNil(result.Tables.Symbols),
			Constants: nonNil(result.Tables.Constants),
		},
		TreeDOT:   result.TreeDOT,
		TreeImage: result.TreeImage,
	}
}

// nonNil keeps missing tables encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// HandleTerminate always succeeds; unknown and settled jobs are ignored.
func (c *CompilerController) HandleTerminate(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req dto.TerminateRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.logger.Debug("[API] Terminate with unreadable body", "err", err)
	}

	terminated := false
	if req.JobID != "" {
		terminated = c.compilerService.Terminate(req.JobID)
	}

	writeJSON(w, http.StatusOK, dto.TerminateResponseDTO{Success: true, Terminated: terminated})
}

// HandleInput acknowledges interactive input. Nothing is forwarded to the
// toolchain.
func (c *CompilerController) HandleInput(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req dto.InputRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.logger.Debug("[API] Input with unreadable body", "err", err)
	}
	c.compilerService.AcceptInput(req.JobID, req.Input)

	writeJSON(w, http.StatusOK, dto.InputResponseDTO{Success: true})
}

func (c *CompilerController) HandleConvertTree(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req dto.ConvertRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "", "Invalid JSON format")
		return
	}

	converter := c.compilerService.Converter()
	graph := converter.Parse(artifact.NormalizeNewlines(req.Tree))

	writeJSON(w, http.StatusOK, dto.ConvertResponseDTO{
		DOT:   converter.ToDOT(graph),
		Nodes: len(graph.Nodes),
		Edges: len(graph.Edges),
	})
}

func (c *CompilerController) HandleTreeImage(w http.ResponseWriter, r *http.Request) {
	if c.treeService == nil {
		http.NotFound(w, r)
		return
	}

	path, contentType, err := c.treeService.ImagePath(chi.URLParam(r, "name"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFile(w, r, path)
}

func (c *CompilerController) HandleLiveJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.LiveJobsResponseDTO{Jobs: c.compilerService.LiveJobs()})
}

func (c *CompilerController) HandleOutcome(w http.ResponseWriter, r *http.Request) {
	if c.outcomes == nil {
		writeError(w, http.StatusNotFound, "", "Outcome not found")
		return
	}

	id := chi.URLParam(r, "jobID")
	outcome, err := c.outcomes.GetByJobID(id)
	if err != nil {
		if errors.Is(err, customErrors.ErrNotFound) {
			writeError(w, http.StatusNotFound, id, "Outcome not found")
			return
		}
		c.logger.Error("[API] Reading outcome failed", "job", id, "err", err)
		writeError(w, http.StatusInternalServerError, id, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, dto.OutcomeResponseDTO{
		JobID:             outcome.JobID,
		TerminationReason: string(outcome.Reason),
		ExitCode:          outcome.ExitCode,
		DurationMS:        outcome.Duration.Milliseconds(),
		SettledAt:         outcome.SettledAt.UTC().Format(time.RFC3339),
	})
}

func (c *CompilerController) HandleStats(w http.ResponseWriter, r *http.Request) {
	if c.outcomes == nil {
		writeJSON(w, http.StatusOK, models.Stats{ByReason: map[models.TerminationReason]int{}})
		return
	}

	stats, err := c.outcomes.Stats()
	if err != nil {
		c.logger.Error("[API] Reading stats failed", "err", err)
		writeError(w, http.StatusInternalServerError, "", "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (c *CompilerController) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, jobID, message string) {
	writeJSON(w, status, dto.ErrorResponseDTO{JobID: jobID, Error: message})
}
