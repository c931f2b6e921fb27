package graph

import (
	"errors"
	"testing"

	"github.com/fabrica-ai/fabrica/pkg/models"
)

func task(id int, deps ...int) *models.Task {
	return &models.Task{ID: id, Description: "task", Status: models.TaskStatusPending, Dependencies: deps}
}

func mustBuild(t *testing.T, tasks ...*models.Task) *TaskGraph {
	t.Helper()
	g, err := Build(tasks)
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	return g
}

func complete(t *testing.T, g *TaskGraph, id int) {
	t.Helper()
	if err := g.Start(id); err != nil {
		t.Fatalf("start %d: %v", id, err)
	}
	if err := g.MarkCompleted(id, nil); err != nil {
		t.Fatalf("complete %d: %v", id, err)
	}
}

func TestBuildSimple(t *testing.T) {
	g := mustBuild(t, task(1), task(2, 1), task(3, 1, 2))
	if g.Size() != 3 {
		t.Errorf("expected size 3, got %d", g.Size())
	}
	deps := g.Dependencies(3)
	if len(deps) != 2 {
		t.Errorf("expected 2 dependencies for task 3, got %v", deps)
	}
	dependents := g.Dependents(1)
	if len(dependents) != 2 {
		t.Errorf("expected 2 dependents of task 1, got %v", dependents)
	}
}

func TestBuildForwardReference(t *testing.T) {
	// Task 1 depends on task 2, which is added later.
	g := mustBuild(t, task(1, 2), task(2))
	if g.NextRunnable().ID != 2 {
		t.Error("expected task 2 to be runnable first")
	}
}

func TestBuildUnknownDependency(t *testing.T) {
	_, err := Build([]*models.Task{task(1, 99)})
	if !errors.Is(err, ErrUnknownDependency) {
		t.Fatalf("expected ErrUnknownDependency, got %v", err)
	}
}

func TestAddTaskSelfDependency(t *testing.T) {
	g := New()
	err := g.AddTask(task(1, 1))
	if !errors.Is(err, ErrSelfDependency) {
		t.Fatalf("expected ErrSelfDependency, got %v", err)
	}
}

func TestAddTaskDuplicate(t *testing.T) {
	g := New()
	if err := g.AddTask(task(1)); err != nil {
		t.Fatal(err)
	}
	if err := g.AddTask(task(1)); !errors.Is(err, ErrDuplicateTask) {
		t.Fatalf("expected ErrDuplicateTask, got %v", err)
	}
}

func TestAddTaskCycleDetected(t *testing.T) {
	g := New()
	if err := g.AddTask(task(1, 2)); err != nil {
		t.Fatal(err)
	}
	err := g.AddTask(task(2, 1))
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("expected ErrCycleDetected, got %v", err)
	}
	// The rejected task must not have been inserted.
	if g.Size() != 1 {
		t.Errorf("expected graph unmodified after rejection, size=%d", g.Size())
	}
	if g.Task(2) != nil {
		t.Error("rejected task 2 was inserted")
	}
}

func TestAddTaskIndirectCycle(t *testing.T) {
	g := New()
	for _, tk := range []*models.Task{task(1, 2), task(3, 1)} {
		if err := g.AddTask(tk); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.AddTask(task(2, 3)); !errors.Is(err, ErrCycleDetected) {
		t.Fatal("expected indirect cycle to be rejected")
	}
}

func TestNextRunnableRespectsDependencies(t *testing.T) {
	g := mustBuild(t, task(1), task(2, 1), task(3))

	next := g.NextRunnable()
	if next == nil || next.ID != 1 {
		t.Fatalf("expected task 1 runnable first, got %v", next)
	}

	complete(t, g, 1)
	next = g.NextRunnable()
	if next == nil || next.ID != 2 {
		t.Fatalf("expected task 2 after 1 completes, got %v", next)
	}
}

func TestNextRunnableLowestIDWins(t *testing.T) {
	g := mustBuild(t, task(1), task(2), task(3))
	if got := g.NextRunnable().ID; got != 1 {
		t.Errorf("expected lowest id 1, got %d", got)
	}
}

func TestNextRunnableNoneLeft(t *testing.T) {
	g := mustBuild(t, task(1), task(2, 1))
	complete(t, g, 1)
	if err := g.Start(2); err != nil {
		t.Fatal(err)
	}
	if next := g.NextRunnable(); next != nil {
		t.Errorf("expected no runnable task, got %d", next.ID)
	}
}

func TestNextRunnableClosureCompleted(t *testing.T) {
	// Diamond: 4 depends on 2 and 3, which both depend on 1.
	g := mustBuild(t, task(1), task(2, 1), task(3, 1), task(4, 2, 3))

	seen := make(map[int]bool)
	for {
		next := g.NextRunnable()
		if next == nil {
			break
		}
		for _, dep := range next.Dependencies {
			if !seen[dep] {
				t.Fatalf("task %d became runnable before dependency %d completed", next.ID, dep)
			}
		}
		complete(t, g, next.ID)
		seen[next.ID] = true
	}

	if !g.IsComplete() {
		t.Error("expected all tasks completed")
	}
}

func TestTransitions(t *testing.T) {
	g := mustBuild(t, task(1))

	if err := g.MarkCompleted(1, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("completing a pending task should fail, got %v", err)
	}
	if err := g.Start(1); err != nil {
		t.Fatal(err)
	}
	if err := g.Start(1); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("starting an in_progress task should fail, got %v", err)
	}
	if err := g.MarkCompleted(1, map[string]string{"app.py": "x"}); err != nil {
		t.Fatal(err)
	}
	if err := g.MarkFailed(1, "boom"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("failing a completed task should fail, got %v", err)
	}
	if err := g.MarkCompleted(99, nil); !errors.Is(err, ErrUnknownTask) {
		t.Errorf("expected ErrUnknownTask, got %v", err)
	}
}

func TestResetTask(t *testing.T) {
	g := mustBuild(t, task(1))
	if err := g.Start(1); err != nil {
		t.Fatal(err)
	}
	if err := g.ResetTask(1); err != nil {
		t.Fatal(err)
	}
	if g.Task(1).Status != models.TaskStatusPending {
		t.Errorf("expected pending after reset, got %s", g.Task(1).Status)
	}
	if err := g.ResetTask(1); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("resetting a pending task should fail, got %v", err)
	}
}

func TestHasUnresolvable(t *testing.T) {
	g := mustBuild(t, task(1), task(2, 1), task(3, 2), task(4))

	if g.HasUnresolvable() {
		t.Error("fresh graph should have no unresolvable tasks")
	}

	if err := g.Start(1); err != nil {
		t.Fatal(err)
	}
	if err := g.MarkFailed(1, "provider down"); err != nil {
		t.Fatal(err)
	}

	// Tasks 2 and 3 are now blocked forever; task 4 is unaffected.
	if !g.HasUnresolvable() {
		t.Error("expected unresolvable tasks after dependency failure")
	}

	complete(t, g, 4)
	if g.IsComplete() {
		t.Error("graph with failed task cannot be complete")
	}
}
