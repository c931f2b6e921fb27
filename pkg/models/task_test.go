package models

import "testing"

func TestTaskStatusValid(t *testing.T) {
	valid := []TaskStatus{TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusFailed}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}
	if TaskStatus("done").Valid() {
		t.Error("expected unknown status to be invalid")
	}
}

func TestTaskStatusTerminal(t *testing.T) {
	if !TaskStatusCompleted.Terminal() || !TaskStatusFailed.Terminal() {
		t.Error("completed and failed should be terminal")
	}
	if TaskStatusPending.Terminal() || TaskStatusInProgress.Terminal() {
		t.Error("pending and in_progress should not be terminal")
	}
}

func TestTaskDependsOn(t *testing.T) {
	task := &Task{ID: 3, Dependencies: []int{1, 2}}
	if !task.DependsOn(1) {
		t.Error("expected dependency on 1")
	}
	if task.DependsOn(3) {
		t.Error("did not expect dependency on 3")
	}
}

func TestTaskClone(t *testing.T) {
	task := &Task{
		ID:           1,
		Description:  "build the API",
		Status:       TaskStatusCompleted,
		Dependencies: []int{2},
		Files:        map[string]string{"app.py": "print('hi')"},
	}

	clone := task.Clone()
	clone.Dependencies[0] = 9
	clone.Files["app.py"] = "changed"

	if task.Dependencies[0] != 2 {
		t.Error("clone shares dependency slice with original")
	}
	if task.Files["app.py"] != "print('hi')" {
		t.Error("clone shares files map with original")
	}
}

func TestProjectStatusValid(t *testing.T) {
	for _, s := range []ProjectStatus{ProjectStatusInitializing, ProjectStatusInProgress, ProjectStatusCompleted, ProjectStatusError} {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}
	if ProjectStatus("draft").Valid() {
		t.Error("expected unknown status to be invalid")
	}
}

func TestProjectView(t *testing.T) {
	p := &Project{
		ID:          "abc",
		Description: "a calculator",
		Status:      ProjectStatusInProgress,
		Tasks: []*Task{
			{ID: 1, Description: "scaffold", Status: TaskStatusCompleted, Files: map[string]string{"main.py": "x"}},
			{ID: 2, Description: "tests", Status: TaskStatusPending},
		},
		TasksCompleted: 1,
	}

	view := p.View()
	if view.TotalTasks != 2 || view.Completed != 1 {
		t.Errorf("unexpected counters: total=%d completed=%d", view.TotalTasks, view.Completed)
	}

	// Mutating the view must not leak into the project.
	view.Tasks[0].Files["main.py"] = "mutated"
	if p.Tasks[0].Files["main.py"] != "x" {
		t.Error("view shares task state with project")
	}
}
