// Package orchestrator owns the set of active projects, sequences the
// planner and coder, and maintains process-wide generation metrics.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fabrica-ai/fabrica/internal/graph"
	"github.com/fabrica-ai/fabrica/internal/provider"
	"github.com/fabrica-ai/fabrica/pkg/models"
)

// ErrUnknownProject indicates the project id is not registered.
var ErrUnknownProject = errors.New("unknown project")

// ErrUnknownTask indicates the task id is not part of the project.
var ErrUnknownTask = errors.New("unknown task")

// ErrDependenciesUnmet indicates the task has dependencies that have
// not completed.
var ErrDependenciesUnmet = errors.New("task has unmet dependencies")

// ErrPlannerFailed indicates project creation failed during planning.
var ErrPlannerFailed = errors.New("planner failed")

// ErrCoderFailed indicates code generation failed for a task.
var ErrCoderFailed = errors.New("code generation failed")

// ErrProjectNotActive indicates the project already reached a terminal
// state and accepts no further generation.
var ErrProjectNotActive = errors.New("project is not active")

// Planner decomposes a description into tasks.
type Planner interface {
	GenerateTasks(ctx context.Context, description string) ([]*models.Task, error)
}

// Coder produces file artifacts for a single task.
type Coder interface {
	GenerateCode(ctx context.Context, task *models.Task, projectContext map[string]string) (map[string]string, error)
}

// Archiver persists a finished project's files. Archive failures are
// logged, never surfaced: persistence is a courtesy, not a step of the
// generation state machine.
type Archiver interface {
	WriteProject(name string, files map[string]string) error
}

// TaskResult is the outcome of one GenerateTaskCode call.
type TaskResult struct {
	TaskID        int                  `json:"task_id"`
	Status        string               `json:"status"`
	Files         map[string]string    `json:"code,omitempty"`
	ProjectStatus models.ProjectStatus `json:"project_status"`
}

// projectState pairs a project with its task graph. The graph's nodes
// are the project's own task structs, so status transitions applied by
// the graph are visible through the project. Mutations happen only
// while holding mu.
type projectState struct {
	mu      sync.Mutex
	project *models.Project
	graph   *graph.TaskGraph
}

// Orchestrator coordinates planning and code generation across
// projects.
type Orchestrator struct {
	mu       sync.RWMutex
	projects map[string]*projectState

	planner  Planner
	coder    Coder
	archiver Archiver
	tracker  *provider.TokenTracker
	metrics  *metrics
	now      func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithArchiver attaches an artifact writer invoked when a project
// completes.
func WithArchiver(a Archiver) Option {
	return func(o *Orchestrator) { o.archiver = a }
}

// WithTokenTracker surfaces provider token usage in metrics snapshots.
func WithTokenTracker(t *provider.TokenTracker) Option {
	return func(o *Orchestrator) { o.tracker = t }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an Orchestrator over the given planner and coder.
func New(planner Planner, coder Coder, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		projects: make(map[string]*projectState),
		planner:  planner,
		coder:    coder,
		metrics:  &metrics{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CreateProject plans a new project from the description and registers
// it under a fresh UUID. The returned view includes the initial task
// list, all pending.
func (o *Orchestrator) CreateProject(ctx context.Context, description, projectType string) (*models.ProjectView, error) {
	tasks, err := o.planner.GenerateTasks(ctx, description)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlannerFailed, err)
	}

	g, err := graph.Build(tasks)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlannerFailed, err)
	}

	now := o.now()
	project := &models.Project{
		ID:          uuid.NewString(),
		Description: description,
		Type:        projectType,
		Status:      models.ProjectStatusInitializing,
		Tasks:       tasks,
		CreatedAt:   now,
		UpdatedAt:   now,
		StartTime:   now,
	}

	o.mu.Lock()
	o.projects[project.ID] = &projectState{project: project, graph: g}
	o.mu.Unlock()

	o.metrics.projectCreated()
	log.Printf("[orchestrator] created project %s with %d tasks", project.ID, len(tasks))
	return project.View(), nil
}

// GenerateTaskCode runs the coder for one task, gated on its
// dependencies being completed. On success the artifact is stored on
// the task; when the last task completes the project transitions to
// completed and metrics are folded. On coder failure the task and the
// project are marked failed. A cancellation leaves the task
// in_progress for the caller to ResetTask or fail explicitly.
func (o *Orchestrator) GenerateTaskCode(ctx context.Context, projectID string, taskID int) (*TaskResult, error) {
	state, err := o.lookup(projectID)
	if err != nil {
		return nil, err
	}

	task, err := o.startTask(state, taskID)
	if err != nil {
		return nil, err
	}

	// The provider call runs outside the project lock so reads stay
	// responsive; the task is already fenced off as in_progress.
	files, genErr := o.coder.GenerateCode(ctx, task, o.projectContext(state))

	if genErr != nil && (errors.Is(genErr, context.Canceled) || errors.Is(genErr, context.DeadlineExceeded)) {
		// Cancelled mid-flight: the caller owns the task's fate now.
		return nil, genErr
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	project := state.project
	project.UpdatedAt = o.now()

	if genErr != nil {
		if err := state.graph.MarkFailed(taskID, genErr.Error()); err != nil {
			return nil, err
		}
		project.TasksFailed++
		o.finishProject(state, models.ProjectStatusError)
		return nil, fmt.Errorf("%w: task %d: %v", ErrCoderFailed, taskID, genErr)
	}

	if err := state.graph.MarkCompleted(taskID, files); err != nil {
		return nil, err
	}
	project.TasksCompleted++

	if state.graph.IsComplete() {
		o.finishProject(state, models.ProjectStatusCompleted)
		o.archive(project)
	}

	return &TaskResult{
		TaskID:        taskID,
		Status:        "success",
		Files:         files,
		ProjectStatus: project.Status,
	}, nil
}

// startTask atomically validates and transitions the task to
// in_progress under the project lock.
func (o *Orchestrator) startTask(state *projectState, taskID int) (*models.Task, error) {
	state.mu.Lock()
	defer state.mu.Unlock()

	project := state.project
	if project.Status.Terminal() {
		return nil, fmt.Errorf("%w: project %s is %s", ErrProjectNotActive, project.ID, project.Status)
	}

	task := state.graph.Task(taskID)
	if task == nil {
		return nil, fmt.Errorf("%w: %d in project %s", ErrUnknownTask, taskID, project.ID)
	}

	ok, err := state.graph.DepsCompleted(taskID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: task %d", ErrDependenciesUnmet, taskID)
	}

	if err := state.graph.Start(taskID); err != nil {
		return nil, err
	}

	if project.Status == models.ProjectStatusInitializing {
		project.Status = models.ProjectStatusInProgress
	}
	project.UpdatedAt = o.now()

	return task.Clone(), nil
}

// finishProject moves the project to a terminal state and updates the
// aggregate metrics. Caller holds state.mu.
func (o *Orchestrator) finishProject(state *projectState, status models.ProjectStatus) {
	project := state.project
	if project.Status.Terminal() {
		return
	}
	project.Status = status
	end := o.now()
	project.EndTime = &end

	switch status {
	case models.ProjectStatusCompleted:
		o.metrics.projectCompleted(end.Sub(project.StartTime))
		log.Printf("[orchestrator] project %s completed in %s", project.ID, end.Sub(project.StartTime))
	case models.ProjectStatusError:
		o.metrics.projectFailed()
		log.Printf("[orchestrator] project %s failed", project.ID)
	}
}

// archive writes the project's merged files through the attached
// archiver, if any. Caller holds state.mu.
func (o *Orchestrator) archive(project *models.Project) {
	if o.archiver == nil {
		return
	}
	merged := make(map[string]string)
	for _, task := range project.Tasks {
		for name, content := range task.Files {
			merged[name] = content
		}
	}
	name := "project_" + shortID(project.ID)
	if err := o.archiver.WriteProject(name, merged); err != nil {
		log.Printf("[orchestrator] archive %s: %v", name, err)
	}
}

// ResetTask returns a cancelled in_progress task to pending so it can
// be retried.
func (o *Orchestrator) ResetTask(projectID string, taskID int) error {
	state, err := o.lookup(projectID)
	if err != nil {
		return err
	}
	state.mu.Lock()
	defer state.mu.Unlock()

	if err := state.graph.ResetTask(taskID); err != nil {
		if errors.Is(err, graph.ErrUnknownTask) {
			return fmt.Errorf("%w: %d", ErrUnknownTask, taskID)
		}
		return err
	}
	state.project.UpdatedAt = o.now()
	return nil
}

// GetProject returns a read-only snapshot of the project.
func (o *Orchestrator) GetProject(projectID string) (*models.ProjectView, error) {
	state, err := o.lookup(projectID)
	if err != nil {
		return nil, err
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.project.View(), nil
}

// NextRunnable returns the next task the project can run, or nil when
// nothing is runnable right now.
func (o *Orchestrator) NextRunnable(projectID string) (*models.Task, error) {
	state, err := o.lookup(projectID)
	if err != nil {
		return nil, err
	}
	state.mu.Lock()
	defer state.mu.Unlock()

	task := state.graph.NextRunnable()
	if task == nil {
		return nil, nil
	}
	return task.Clone(), nil
}

// Unresolvable reports whether the project has pending tasks that can
// never run because a failed task sits in their dependency closure.
func (o *Orchestrator) Unresolvable(projectID string) (bool, error) {
	state, err := o.lookup(projectID)
	if err != nil {
		return false, err
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.graph.HasUnresolvable(), nil
}

// GetMetrics returns a snapshot of the process-wide counters.
func (o *Orchestrator) GetMetrics() models.MetricsSnapshot {
	snap := o.metrics.snapshot()
	if o.tracker != nil {
		snap.InputTokens, snap.OutputTokens = o.tracker.Total()
		snap.ProviderCalls = o.tracker.Calls()
	}
	return snap
}

func (o *Orchestrator) lookup(projectID string) (*projectState, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	state, ok := o.projects[projectID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProject, projectID)
	}
	return state, nil
}

// projectContext summarizes the project for the coder's prompt,
// including the files generated by completed tasks so far.
func (o *Orchestrator) projectContext(state *projectState) map[string]string {
	state.mu.Lock()
	defer state.mu.Unlock()

	project := state.project
	ctx := map[string]string{
		"description":  project.Description,
		"project_type": project.Type,
	}

	var generated []string
	for _, task := range project.Tasks {
		for name := range task.Files {
			generated = append(generated, name)
		}
	}
	if len(generated) > 0 {
		sort.Strings(generated)
		ctx["existing_files"] = strings.Join(generated, ", ")
	}
	return ctx
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
