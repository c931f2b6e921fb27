// Package graph provides a dependency graph for task scheduling within a
// single project.
package graph

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/fabrica-ai/fabrica/pkg/models"
)

// ErrCycleDetected indicates adding a task would create a circular
// dependency.
var ErrCycleDetected = errors.New("circular dependency detected")

// ErrUnknownTask indicates the referenced task id is not in the graph.
var ErrUnknownTask = errors.New("unknown task")

// ErrUnknownDependency indicates a task references a dependency id that
// is not in the graph.
var ErrUnknownDependency = errors.New("unknown dependency")

// ErrSelfDependency indicates a task lists itself as a dependency.
var ErrSelfDependency = errors.New("task depends on itself")

// ErrDuplicateTask indicates a task id is already registered.
var ErrDuplicateTask = errors.New("duplicate task id")

// ErrInvalidTransition indicates a status change that the task state
// machine does not allow.
var ErrInvalidTransition = errors.New("invalid status transition")

// TaskGraph is a directed acyclic graph of task dependencies. Edges
// point from a task to the tasks it is blocked by. All operations are
// safe for concurrent use; status transitions are atomic under the
// graph's lock.
type TaskGraph struct {
	mu sync.RWMutex
	// nodes maps task id to the task itself.
	nodes map[int]*models.Task
	// edges maps task id to the ids of tasks it depends on.
	edges map[int][]int
	// debugLog is an optional logging function.
	debugLog func(format string, args ...interface{})
}

// New creates a new empty task graph.
func New() *TaskGraph {
	return &TaskGraph{
		nodes:    make(map[int]*models.Task),
		edges:    make(map[int][]int),
		debugLog: func(format string, args ...interface{}) {},
	}
}

// SetDebugLog sets the debug logging function.
func (g *TaskGraph) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		g.debugLog = fn
	}
}

// Build constructs a graph from an ordered task list, adding each task
// in turn and verifying every dependency resolves to a known task.
func Build(tasks []*models.Task) (*TaskGraph, error) {
	g := New()
	for _, task := range tasks {
		if err := g.AddTask(task); err != nil {
			return nil, fmt.Errorf("add task %d: %w", task.ID, err)
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// AddTask registers a task and its dependency edges. A dependency may
// reference a task that has not been added yet; Validate checks that
// every edge resolves once the graph is fully built. On any error the
// graph is left unmodified.
func (g *TaskGraph) AddTask(task *models.Task) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[task.ID]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicateTask, task.ID)
	}

	for _, dep := range task.Dependencies {
		if dep == task.ID {
			return fmt.Errorf("%w: %d", ErrSelfDependency, task.ID)
		}
	}

	// Reject edges whose dependency closure reaches back to the new
	// task. Edges are recorded even for ids not yet added, so this
	// catches cycles regardless of insertion order. Checked before
	// mutation so a rejected add leaves no trace.
	for _, dep := range task.Dependencies {
		if g.reachesLocked(dep, task.ID) {
			return fmt.Errorf("%w: task %d", ErrCycleDetected, task.ID)
		}
	}

	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}

	g.debugLog("[graph] add task %d deps=%v", task.ID, task.Dependencies)
	g.nodes[task.ID] = task
	if len(task.Dependencies) > 0 {
		deps := make([]int, len(task.Dependencies))
		copy(deps, task.Dependencies)
		g.edges[task.ID] = deps
	} else {
		g.edges[task.ID] = nil
	}
	return nil
}

// Validate checks that every dependency edge points at a registered
// task. Call after the last AddTask.
func (g *TaskGraph) Validate() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for id, deps := range g.edges {
		for _, dep := range deps {
			if _, exists := g.nodes[dep]; !exists {
				return fmt.Errorf("%w: task %d depends on %d", ErrUnknownDependency, id, dep)
			}
		}
	}
	return nil
}

// reachesLocked reports whether target is reachable from start by
// following dependency edges. Assumes the lock is held.
func (g *TaskGraph) reachesLocked(start, target int) bool {
	if start == target {
		return true
	}
	visited := make(map[int]bool)
	stack := []int{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			continue
		}
		visited[id] = true
		for _, dep := range g.edges[id] {
			if dep == target {
				return true
			}
			stack = append(stack, dep)
		}
	}
	return false
}

// NextRunnable returns the lowest-id pending task whose dependencies
// have all completed, or nil when no task is runnable.
func (g *TaskGraph) NextRunnable() *models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := make([]int, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		task := g.nodes[id]
		if task.Status != models.TaskStatusPending {
			continue
		}
		if g.depsCompletedLocked(id) {
			return task
		}
	}
	return nil
}

func (g *TaskGraph) depsCompletedLocked(id int) bool {
	for _, dep := range g.edges[id] {
		node, exists := g.nodes[dep]
		if !exists || node.Status != models.TaskStatusCompleted {
			return false
		}
	}
	return true
}

// DepsCompleted reports whether every dependency of the task has
// completed. Fails with ErrUnknownTask for absent ids.
func (g *TaskGraph) DepsCompleted(id int) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if _, exists := g.nodes[id]; !exists {
		return false, fmt.Errorf("%w: %d", ErrUnknownTask, id)
	}
	return g.depsCompletedLocked(id), nil
}

// Start transitions a pending task to in_progress. The check and the
// transition happen under the graph lock, so no two callers can start
// the same task.
func (g *TaskGraph) Start(id int) error {
	return g.transition(id, models.TaskStatusPending, models.TaskStatusInProgress)
}

// MarkCompleted transitions an in_progress task to completed and
// attaches its generated files.
func (g *TaskGraph) MarkCompleted(id int, files map[string]string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	task, exists := g.nodes[id]
	if !exists {
		return fmt.Errorf("%w: %d", ErrUnknownTask, id)
	}
	if task.Status != models.TaskStatusInProgress {
		return fmt.Errorf("%w: task %d is %s, not in_progress", ErrInvalidTransition, id, task.Status)
	}
	task.Status = models.TaskStatusCompleted
	task.Files = files
	g.debugLog("[graph] task %d completed with %d files", id, len(files))
	return nil
}

// MarkFailed transitions an in_progress task to failed, recording the
// failure reason on the task.
func (g *TaskGraph) MarkFailed(id int, reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	task, exists := g.nodes[id]
	if !exists {
		return fmt.Errorf("%w: %d", ErrUnknownTask, id)
	}
	if task.Status != models.TaskStatusInProgress {
		return fmt.Errorf("%w: task %d is %s, not in_progress", ErrInvalidTransition, id, task.Status)
	}
	task.Status = models.TaskStatusFailed
	task.Error = reason
	g.debugLog("[graph] task %d failed: %s", id, reason)
	return nil
}

// ResetTask returns an in_progress task to pending. Used by callers
// that cancelled a generation mid-flight and want to requeue it.
func (g *TaskGraph) ResetTask(id int) error {
	return g.transition(id, models.TaskStatusInProgress, models.TaskStatusPending)
}

func (g *TaskGraph) transition(id int, from, to models.TaskStatus) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	task, exists := g.nodes[id]
	if !exists {
		return fmt.Errorf("%w: %d", ErrUnknownTask, id)
	}
	if task.Status != from {
		return fmt.Errorf("%w: task %d is %s, not %s", ErrInvalidTransition, id, task.Status, from)
	}
	task.Status = to
	return nil
}

// IsComplete returns true iff every task in the graph has completed.
func (g *TaskGraph) IsComplete() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, task := range g.nodes {
		if task.Status != models.TaskStatusCompleted {
			return false
		}
	}
	return true
}

// HasUnresolvable returns true if any pending task has a failed task
// somewhere in its dependency closure, meaning the project can never
// complete without intervention. Graphs stay small, so this recomputes
// on demand rather than caching reachability.
func (g *TaskGraph) HasUnresolvable() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	memo := make(map[int]bool)
	var blocked func(id int) bool
	blocked = func(id int) bool {
		if v, ok := memo[id]; ok {
			return v
		}
		memo[id] = false
		for _, dep := range g.edges[id] {
			node, exists := g.nodes[dep]
			if (exists && node.Status == models.TaskStatusFailed) || blocked(dep) {
				memo[id] = true
				break
			}
		}
		return memo[id]
	}

	for id, task := range g.nodes {
		if task.Status == models.TaskStatusPending && blocked(id) {
			return true
		}
	}
	return false
}

// Task returns the task for a given id, or nil if not found.
func (g *TaskGraph) Task(id int) *models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[id]
}

// Size returns the number of tasks in the graph.
func (g *TaskGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Dependencies returns the ids of tasks the given task depends on.
func (g *TaskGraph) Dependencies(id int) []int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	deps := make([]int, len(g.edges[id]))
	copy(deps, g.edges[id])
	return deps
}

// Dependents returns the ids of tasks that depend on the given task.
func (g *TaskGraph) Dependents(id int) []int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var dependents []int
	for other, deps := range g.edges {
		for _, dep := range deps {
			if dep == id {
				dependents = append(dependents, other)
				break
			}
		}
	}
	sort.Ints(dependents)
	return dependents
}
