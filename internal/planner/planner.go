// Package planner turns a project description into an ordered,
// dependency-validated task list by querying the text-generation
// provider and parsing whatever shape of response comes back.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/fabrica-ai/fabrica/internal/extract"
	"github.com/fabrica-ai/fabrica/internal/graph"
	"github.com/fabrica-ai/fabrica/internal/provider"
	"github.com/fabrica-ai/fabrica/pkg/models"
)

// ErrEmptyDescription indicates a blank project description. No provider
// call is made.
var ErrEmptyDescription = errors.New("project description is empty")

// ErrProviderUnavailable indicates the provider could not be reached
// after retries.
var ErrProviderUnavailable = errors.New("planning provider unavailable")

// ErrParseFailure indicates the provider responded but no usable task
// list could be recovered from the text.
var ErrParseFailure = errors.New("could not parse task list from response")

// Provider is the slice of the resilient client the planner needs.
type Provider interface {
	Send(ctx context.Context, messages []provider.Message) (string, error)
}

// Planner decomposes project descriptions into tasks.
type Planner struct {
	client Provider
	// minTasks is the smallest acceptable decomposition.
	minTasks int
}

// New creates a Planner over the given provider client.
func New(client Provider) *Planner {
	return &Planner{client: client, minTasks: 2}
}

// taskSpec is the JSON shape the provider is asked to return per task.
type taskSpec struct {
	ID           int    `json:"id"`
	Description  string `json:"description"`
	Dependencies []int  `json:"dependencies"`
}

// planResponse is the JSON envelope the provider is asked to return.
type planResponse struct {
	Tasks []taskSpec `json:"tasks"`
}

// GenerateTasks asks the provider for a task breakdown of description
// and returns the parsed tasks with sequential ids starting at 1.
// Dependencies are kept only when the provider's structured response
// supplied them, and are validated to form a DAG.
func (p *Planner) GenerateTasks(ctx context.Context, description string) ([]*models.Task, error) {
	if strings.TrimSpace(description) == "" {
		return nil, ErrEmptyDescription
	}

	response, err := p.client.Send(ctx, []provider.Message{
		{Role: provider.RoleSystem, Content: plannerSystemPrompt},
		{Role: provider.RoleUser, Content: fmt.Sprintf(plannerUserPrompt, description)},
	})
	if err != nil {
		if errors.Is(err, provider.ErrUnreachable) {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		return nil, fmt.Errorf("planner provider call: %w", err)
	}

	specs, strategyName, err := parseTaskList(response)
	if err != nil {
		return nil, err
	}
	log.Printf("[planner] parsed %d tasks via %s strategy", len(specs), strategyName)

	tasks := materialize(specs)
	if _, err := graph.Build(cloneTasks(tasks)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	return tasks, nil
}

// listStrategy is one way of recovering a task list from response text.
// Strategies are tried in order until one yields a usable list.
type listStrategy struct {
	name  string
	parse func(text string) ([]taskSpec, error)
}

var strategies = []listStrategy{
	{name: "json", parse: parseJSON},
	{name: "numbered-list", parse: parseNumbered},
	{name: "lines", parse: parseLines},
}

func parseTaskList(response string) ([]taskSpec, string, error) {
	var lastErr error
	for _, s := range strategies {
		specs, err := s.parse(response)
		if err != nil {
			lastErr = err
			continue
		}
		if distinctDescriptions(specs) >= 2 {
			return specs, s.name, nil
		}
		lastErr = fmt.Errorf("%s strategy yielded %d distinct tasks", s.name, distinctDescriptions(specs))
	}
	return nil, "", fmt.Errorf("%w: %v", ErrParseFailure, lastErr)
}

// parseJSON recovers tasks from a structured response, either a
// {"tasks": [...]} envelope or a bare array of task objects or strings.
func parseJSON(text string) ([]taskSpec, error) {
	var envelope planResponse
	if err := extract.JSON(text, &envelope); err == nil && len(envelope.Tasks) > 0 {
		return envelope.Tasks, nil
	}

	var objects []taskSpec
	if err := extract.JSON(text, &objects); err == nil && len(objects) > 0 && objects[0].Description != "" {
		return objects, nil
	}

	var lines []string
	if err := extract.JSON(text, &lines); err != nil {
		return nil, err
	}
	specs := make([]taskSpec, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			specs = append(specs, taskSpec{Description: strings.TrimSpace(line)})
		}
	}
	if len(specs) == 0 {
		return nil, errors.New("structured response held no tasks")
	}
	return specs, nil
}

var numberedLineRe = regexp.MustCompile(`(?m)^\s*\d+[.)]\s+(.+)$`)

// parseNumbered splits "<number>. <text>" lines out of the response.
func parseNumbered(text string) ([]taskSpec, error) {
	matches := numberedLineRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil, errors.New("no numbered list found")
	}
	specs := make([]taskSpec, 0, len(matches))
	for _, m := range matches {
		desc := strings.TrimSpace(m[1])
		if desc != "" {
			specs = append(specs, taskSpec{Description: desc})
		}
	}
	return specs, nil
}

// parseLines is the last resort: every nonblank line becomes a task.
func parseLines(text string) ([]taskSpec, error) {
	var specs []taskSpec
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			specs = append(specs, taskSpec{Description: line})
		}
	}
	if len(specs) == 0 {
		return nil, errors.New("response is blank")
	}
	return specs, nil
}

func distinctDescriptions(specs []taskSpec) int {
	seen := make(map[string]bool)
	for _, s := range specs {
		desc := strings.TrimSpace(s.Description)
		if desc != "" {
			seen[desc] = true
		}
	}
	return len(seen)
}

// materialize converts parsed specs into model tasks. Ids are
// renumbered sequentially from 1 unless the provider supplied ids for
// every task; dependencies survive only alongside provider-supplied ids.
func materialize(specs []taskSpec) []*models.Task {
	providerIDs := true
	for _, s := range specs {
		if s.ID == 0 {
			providerIDs = false
			break
		}
	}

	tasks := make([]*models.Task, 0, len(specs))
	for i, s := range specs {
		task := &models.Task{
			ID:          i + 1,
			Description: strings.TrimSpace(s.Description),
			Status:      models.TaskStatusPending,
		}
		if providerIDs {
			task.ID = s.ID
			task.Dependencies = s.Dependencies
		}
		tasks = append(tasks, task)
	}
	return tasks
}

// cloneTasks copies tasks for the throwaway validation graph so the
// graph's status bookkeeping never touches the returned tasks.
func cloneTasks(tasks []*models.Task) []*models.Task {
	out := make([]*models.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
