package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"IFCompiler/internal/models"
	"IFCompiler/internal/models/configs"
	customErrors "IFCompiler/internal/models/errors"
	"IFCompiler/pkg/artifact"
	"IFCompiler/pkg/parsetree"
	"IFCompiler/pkg/runner"
	"IFCompiler/pkg/tables"
	"IFCompiler/pkg/workspace"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// OutcomeRecorder stores the outcome of every settled job.
type OutcomeRecorder interface {
	Record(outcome models.Outcome) error
}

// TreeImageRenderer renders a job's DOT description and returns the image
// file name.
type TreeImageRenderer interface {
	RenderTree(ctx context.Context, jobID, dot string) (string, error)
}

type CompilerService struct {
	config     configs.CompilerServiceConfig
	workspaces *workspace.Manager
	converter  *parsetree.Converter
	images     TreeImageRenderer
	outcomes   OutcomeRecorder
	logger     *log.Logger

	slots *semaphore.Weighted

	mu   sync.Mutex
	live map[string]*liveJob
}

var (
	errJobTimedOut   = errors.New("job timed out")
	errJobTerminated = errors.New("job terminated")
)

// liveJob is the registry entry of a job that has not settled.
type liveJob struct {
	models.Job

	// cancel stops the job's context with errJobTerminated.
	cancel context.CancelCauseFunc
	// closed is set by whichever comes first: a terminate request or the
	// job settling.
	closed atomic.Bool
}

func (j *liveJob) requestTermination() bool {
	if !j.closed.CompareAndSwap(false, true) {
		return false
	}
	j.cancel(errJobTerminated)
	return true
}

func (j *liveJob) settle() {
	j.closed.Store(true)
}

func StartCompilerService(
	config configs.CompilerServiceConfig,
	workspaces *workspace.Manager,
	images TreeImageRenderer,
	outcomes OutcomeRecorder,
	logger *log.Logger,
) (*CompilerService, error) {
	if len(config.ToolchainArgs) == 0 {
		return nil, errors.New("toolchain command is empty")
	}
	if config.JobTimeout <= 0 {
		return nil, fmt.Errorf("invalid job timeout %s", config.JobTimeout)
	}
	if config.MaxConcurrentJobs <= 0 {
		config.MaxConcurrentJobs = 1
	}
	if config.ArtifactNames == nil {
		config.ArtifactNames = artifact.DefaultNames()
	}
	if logger == nil {
		logger = log.Default()
	}

	logger.Infof("[Init] Starting CompilerService with %d slots and a %s timeout", config.MaxConcurrentJobs, config.JobTimeout)

	return &CompilerService{
		config:     config,
		workspaces: workspaces,
		converter:  parsetree.NewConverter(config.Tree),
		images:     images,
		outcomes:   outcomes,
		logger:     logger,
		slots:      semaphore.NewWeighted(int64(config.MaxConcurrentJobs)),
		live:       make(map[string]*liveJob),
	}, nil
}

// Submit runs one compilation job to completion and returns its result. The
// job is killed when it exceeds the configured timeout, when Terminate is
// called with its ID, or when ctx is cancelled. The timeout counts from
// submission, so time spent waiting for the shared workspace is included.
//
// Only two outcomes are errors: ErrInputRejected (no job is created) and a
// *SpawnError, in which case the returned result still carries the job ID.
// ErrBusy is returned when every slot is taken.
func (s *CompilerService) Submit(ctx context.Context, code string) (models.JobResult, error) {
	if code == "" {
		return models.JobResult{}, customErrors.ErrInputRejected
	}

	if !s.slots.TryAcquire(1) {
		s.logger.Warn("[API] Rejecting job, all slots are busy")
		return models.JobResult{}, customErrors.ErrBusy
	}
	defer s.slots.Release(1)

	job := &liveJob{
		Job: models.Job{
			ID:          uuid.NewString(),
			Code:        code,
			SubmittedAt: time.Now(),
		},
	}

	base, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	job.cancel = cancel
	jobCtx, stop := context.WithDeadlineCause(base, job.SubmittedAt.Add(s.config.JobTimeout), errJobTimedOut)
	defer stop()

	s.register(job)

	logger := s.logger.With("job", job.ID)
	logger.Debug("[Job] Registered")

	ws, err := s.workspaces.Prepare(jobCtx, job.ID, job.Code)
	if err != nil {
		if jobCtx.Err() != nil {
			return s.settleUnstarted(jobCtx, job, logger), nil
		}
		return s.spawnFailed(job, logger, fmt.Errorf("prepare workspace: %w", err))
	}
	if jobCtx.Err() != nil {
		ws.Release()
		return s.settleUnstarted(jobCtx, job, logger), nil
	}

	proc, err := runner.Start(runner.Spec{
		Command: s.config.ToolchainArgs,
		Dir:     ws.Dir,
		Env: []string{
			"COMPILER_INPUT=" + ws.InputPath,
			"COMPILER_OUTPUT_DIR=" + ws.ArtifactDir,
			"COMPILER_JOB_ID=" + job.ID,
		},
		MaxOutputBytes: s.config.MaxOutputBytes,
		WaitDelay:      s.config.KillGrace,
	})
	if err != nil {
		ws.Release()
		return s.spawnFailed(job, logger, err)
	}
	logger.Debug("[Job] Toolchain started", "pid", proc.Pid(), "dir", ws.Dir)

	reason, res, reaped := s.await(jobCtx, job, proc, logger)
	s.unregister(job.ID)

	result := models.JobResult{
		ID:          job.ID,
		Output:      res.Stdout,
		ErrorOutput: res.Stderr,
		Reason:      reason,
		ExitCode:    res.ExitCode,
	}
	s.collect(ctx, &result, ws.ArtifactDir, logger)
	result.Duration = time.Since(job.SubmittedAt)

	if reaped {
		ws.Release()
	} else {
		logger.Error("[Job] Keeping workspace until the toolchain exits", "pid", proc.Pid(), "dir", ws.Dir)
		releaseWhenExited(proc.Done(), ws)
	}

	s.record(result, logger)
	logger.Info("[Job] Settled", "reason", reason, "exit", res.ExitCode, "elapsed", result.Duration.Round(time.Millisecond))

	return result, nil
}

// stopReason maps the cause of a finished job context to a termination reason.
func stopReason(jobCtx context.Context) models.TerminationReason {
	if errors.Is(context.Cause(jobCtx), errJobTimedOut) {
		return models.ReasonTimeout
	}
	// A terminate request, or the client went away.
	return models.ReasonUserTerminated
}

// await races process exit against jobCtx, which ends on timeout, terminate
// or client cancellation. Exactly one branch wins; the job is closed to
// terminate requests before await returns. reaped is false when the process
// outlived the kill grace period.
func (s *CompilerService) await(jobCtx context.Context, job *liveJob, proc *runner.Process, logger *log.Logger) (models.TerminationReason, runner.Result, bool) {
	defer job.settle()

	select {
	case <-proc.Done():
		return models.ReasonNatural, proc.Result(), true
	case <-jobCtx.Done():
	}
	reason := stopReason(jobCtx)

	// The process may have exited in the same instant the context ended.
	select {
	case <-proc.Done():
		return models.ReasonNatural, proc.Result(), true
	default:
	}

	logger.Warn("[Job] Killing toolchain", "reason", reason)
	if err := proc.Kill(); err != nil {
		logger.Error("[Job] Kill failed", "err", err)
	}

	grace := s.config.KillGrace
	if grace <= 0 {
		grace = runner.DefaultWaitDelay
	}
	// Wait already bounds pipe draining by the same delay; allow one more for reaping.
	reap := time.NewTimer(2 * grace)
	defer reap.Stop()

	select {
	case <-proc.Done():
		return reason, proc.Result(), true
	case <-reap.C:
		logger.Error("[Job] Toolchain was not reaped after kill", "pid", proc.Pid(), "grace", grace)
		return reason, runner.Result{ExitCode: -1, Signaled: true}, false
	}
}

// releaseWhenExited frees ws in the background once done is closed.
func releaseWhenExited(done <-chan struct{}, ws *workspace.Workspace) {
	go func() {
		<-done
		ws.Release()
	}()
}

// settleUnstarted settles a job whose context ended before its toolchain
// was started.
func (s *CompilerService) settleUnstarted(jobCtx context.Context, job *liveJob, logger *log.Logger) models.JobResult {
	job.settle()
	s.unregister(job.ID)

	result := models.JobResult{
		ID:       job.ID,
		Reason:   stopReason(jobCtx),
		ExitCode: -1,
		Duration: time.Since(job.SubmittedAt),
	}
	result.TreeDOT = s.converter.Convert("")
	s.record(result, logger)
	logger.Info("[Job] Settled before the toolchain started", "reason", result.Reason)

	return result
}

func (s *CompilerService) collect(ctx context.Context, result *models.JobResult, dir string, logger *log.Logger) {
	set, err := artifact.ReadSet(context.WithoutCancel(ctx), dir, s.config.ArtifactNames)
	if err != nil {
		logger.Error("[Job] Reading artifacts failed", "err", err)
		set = artifact.Set{}
	}
	result.Artifacts = set

	result.Tables = models.Tables{
		Tokens:    tables.ParseTokens(set.Get(artifact.Tokens)),
		Symbols:   tables.ParseSymbols(set.Get(artifact.Symbols)),
		Constants: tables.ParseConstants(set.Get(artifact.Constants)),
	}

	result.TreeDOT = s.converter.Convert(set.Get(artifact.Tree))

	if s.images == nil {
		return
	}
	name, err := s.images.RenderTree(context.WithoutCancel(ctx), result.ID, result.TreeDOT)
	if err != nil {
		logger.Error("[Job] Rendering tree image failed", "err", err)
		return
	}
	result.TreeImage = name
}

func (s *CompilerService) spawnFailed(job *liveJob, logger *log.Logger, err error) (models.JobResult, error) {
	job.settle()
	s.unregister(job.ID)
	logger.Error("[Job] Toolchain failed to start", "err", err)

	result := models.JobResult{
		ID:          job.ID,
		ErrorOutput: err.Error(),
		Reason:      models.ReasonSpawnError,
		ExitCode:    -1,
		Duration:    time.Since(job.SubmittedAt),
	}
	s.record(result, logger)

	return result, &customErrors.SpawnError{JobID: job.ID, Err: err}
}

func (s *CompilerService) record(result models.JobResult, logger *log.Logger) {
	if s.outcomes == nil {
		return
	}
	err := s.outcomes.Record(models.Outcome{
		JobID:     result.ID,
		Reason:    result.Reason,
		ExitCode:  result.ExitCode,
		Duration:  result.Duration,
		SettledAt: time.Now(),
	})
	if err != nil {
		logger.Error("[Job] Recording outcome failed", "err", err)
	}
}

// Terminate asks a live job to kill its toolchain. It reports whether this
// call delivered the request; unknown, settled and already terminated jobs
// are left alone. A job waiting for the shared workspace is settled without
// ever starting the toolchain.
func (s *CompilerService) Terminate(id string) bool {
	s.mu.Lock()
	job, ok := s.live[id]
	s.mu.Unlock()

	if !ok {
		s.logger.Debug("[API] Terminate for unknown or settled job", "job", id)
		return false
	}

	delivered := job.requestTermination()
	if delivered {
		s.logger.Info("[API] Terminate requested", "job", id)
	}
	return delivered
}

// AcceptInput acknowledges interactive input for a job. The toolchain has no
// interactive channel, so the input is only logged.
func (s *CompilerService) AcceptInput(id, input string) bool {
	s.mu.Lock()
	_, ok := s.live[id]
	s.mu.Unlock()

	s.logger.Debug("[API] Input received", "job", id, "live", ok, "bytes", len(input))
	return ok
}

// LiveJobs returns the IDs of jobs that have not settled, sorted.
func (s *CompilerService) LiveJobs() []string {
	s.mu.Lock()
	ids := make([]string, 0, len(s.live))
	for id := range s.live {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	sort.Strings(ids)
	return ids
}

func (s *CompilerService) Converter() *parsetree.Converter {
	return s.converter
}

func (s *CompilerService) register(job *liveJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live[job.ID] = job
}

func (s *CompilerService) unregister(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.live, id)
}
