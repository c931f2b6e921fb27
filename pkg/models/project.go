package models

import "time"

// ProjectStatus represents the current state of a project.
type ProjectStatus string

const (
	// ProjectStatusInitializing indicates the project was created but no
	// task has been generated yet.
	ProjectStatusInitializing ProjectStatus = "initializing"
	// ProjectStatusInProgress indicates at least one task has started.
	ProjectStatusInProgress ProjectStatus = "in_progress"
	// ProjectStatusCompleted indicates every task completed.
	ProjectStatusCompleted ProjectStatus = "completed"
	// ProjectStatusError indicates a task failed and the project stopped.
	ProjectStatusError ProjectStatus = "error"
)

// Valid returns true if the status is a known value.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusInitializing, ProjectStatusInProgress, ProjectStatusCompleted, ProjectStatusError:
		return true
	default:
		return false
	}
}

// Terminal returns true if the project can no longer change state.
func (s ProjectStatus) Terminal() bool {
	return s == ProjectStatusCompleted || s == ProjectStatusError
}

// Project is a collection of tasks derived from one user description.
type Project struct {
	// ID is the project UUID.
	ID string `json:"project_id"`
	// Description is the user-supplied project description.
	Description string `json:"description"`
	// Type categorizes the project (web, api, cli, ...).
	Type string `json:"project_type"`
	// Status is the current state of the project.
	Status ProjectStatus `json:"status"`
	// Tasks is the ordered task list, ascending by ID.
	Tasks []*Task `json:"tasks"`
	// CreatedAt is when the project was registered.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the project last changed.
	UpdatedAt time.Time `json:"updated_at"`
	// StartTime is when generation began.
	StartTime time.Time `json:"start_time"`
	// EndTime is when the project reached a terminal state, if it has.
	EndTime *time.Time `json:"end_time,omitempty"`
	// TasksCompleted counts tasks that produced artifacts.
	TasksCompleted int `json:"tasks_completed"`
	// TasksFailed counts tasks that failed generation.
	TasksFailed int `json:"tasks_failed"`
}

// Task returns the task with the given id, or nil if absent.
func (p *Project) Task(id int) *Task {
	for _, t := range p.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// ProjectView is the read-only serialization of a project handed to
// front ends. Task state is deep-copied so callers cannot mutate the
// orchestrator's copy.
type ProjectView struct {
	ProjectID   string        `json:"project_id"`
	Description string        `json:"description"`
	Type        string        `json:"project_type"`
	Status      ProjectStatus `json:"status"`
	Tasks       []*Task       `json:"tasks"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	TotalTasks  int           `json:"total_tasks"`
	Completed   int           `json:"tasks_completed"`
	Failed      int           `json:"tasks_failed"`
}

// View builds a ProjectView snapshot from the project's current state.
func (p *Project) View() *ProjectView {
	tasks := make([]*Task, len(p.Tasks))
	for i, t := range p.Tasks {
		tasks[i] = t.Clone()
	}
	return &ProjectView{
		ProjectID:   p.ID,
		Description: p.Description,
		Type:        p.Type,
		Status:      p.Status,
		Tasks:       tasks,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		TotalTasks:  len(p.Tasks),
		Completed:   p.TasksCompleted,
		Failed:      p.TasksFailed,
	}
}
