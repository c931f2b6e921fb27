package models

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has not started.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress indicates the task is being generated.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusCompleted indicates the task produced its artifact.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates generation failed for the task.
	TaskStatusFailed TaskStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status admits no further transitions.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Task represents a unit of generation work within a project.
type Task struct {
	// ID is the task identifier, unique within its project.
	ID int `json:"id"`
	// Description is what the task should produce.
	Description string `json:"description"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// Dependencies lists task IDs that must complete before this task.
	Dependencies []int `json:"dependencies"`
	// Files maps generated file names to their content, set on completion.
	Files map[string]string `json:"code,omitempty"`
	// Error contains the failure message if the task failed.
	Error string `json:"error,omitempty"`
}

// DependsOn reports whether the task lists id as a direct dependency.
func (t *Task) DependsOn(id int) bool {
	for _, dep := range t.Dependencies {
		if dep == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the task, safe to hand to callers.
func (t *Task) Clone() *Task {
	c := *t
	if t.Dependencies != nil {
		c.Dependencies = make([]int, len(t.Dependencies))
		copy(c.Dependencies, t.Dependencies)
	}
	if t.Files != nil {
		c.Files = make(map[string]string, len(t.Files))
		for name, content := range t.Files {
			c.Files[name] = content
		}
	}
	return &c
}
