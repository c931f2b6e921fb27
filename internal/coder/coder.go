// Package coder generates file artifacts for individual tasks by
// querying the text-generation provider and extracting labeled content
// blocks from the response.
package coder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/fabrica-ai/fabrica/internal/extract"
	"github.com/fabrica-ai/fabrica/internal/provider"
	"github.com/fabrica-ai/fabrica/pkg/models"
)

// ErrProviderUnavailable indicates the provider could not be reached
// after retries.
var ErrProviderUnavailable = errors.New("code generation provider unavailable")

// Provider is the slice of the resilient client the coder needs.
type Provider interface {
	Send(ctx context.Context, messages []provider.Message) (string, error)
}

// Coder produces file artifacts for tasks.
type Coder struct {
	client Provider
	// sniffDependencies controls whether generated Python code is
	// scanned for imports to synthesize a requirements.txt.
	sniffDependencies bool
}

// New creates a Coder over the given provider client. Dependency
// sniffing is on by default.
func New(client Provider) *Coder {
	return &Coder{client: client, sniffDependencies: true}
}

// SetDependencySniffing toggles requirements.txt synthesis.
func (c *Coder) SetDependencySniffing(enabled bool) {
	c.sniffDependencies = enabled
}

// GenerateCode asks the provider to implement the task and returns a
// mapping from file name to content. A response with no content blocks
// yields an empty mapping and no error: trivial tasks can legitimately
// produce nothing, and the caller decides whether that is a failure.
func (c *Coder) GenerateCode(ctx context.Context, task *models.Task, projectContext map[string]string) (map[string]string, error) {
	response, err := c.client.Send(ctx, []provider.Message{
		{Role: provider.RoleSystem, Content: coderSystemPrompt},
		{Role: provider.RoleUser, Content: buildUserPrompt(task, projectContext)},
	})
	if err != nil {
		if errors.Is(err, provider.ErrUnreachable) {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		return nil, fmt.Errorf("coder provider call: %w", err)
	}

	files, err := extract.Files(response)
	if err != nil {
		if errors.Is(err, extract.ErrNoContentFound) {
			log.Printf("[coder] task %d produced no content blocks, returning empty artifact", task.ID)
			return map[string]string{}, nil
		}
		return nil, err
	}

	if c.sniffDependencies {
		if reqs := sniffRequirements(files); reqs != "" {
			if _, exists := files["requirements.txt"]; !exists {
				files["requirements.txt"] = reqs
			}
		}
	}

	return files, nil
}

// buildUserPrompt renders the task plus project context into the user
// message. Context keys are sorted so the prompt is deterministic.
func buildUserPrompt(task *models.Task, projectContext map[string]string) string {
	var b strings.Builder
	b.WriteString("Project context:\n")

	keys := make([]string, 0, len(projectContext))
	for k := range projectContext {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %s\n", k, projectContext[k])
	}

	fmt.Fprintf(&b, "\nCurrent task (#%d): %s\n\n", task.ID, task.Description)
	b.WriteString("Generate the content needed to complete this task. ")
	b.WriteString("If the task involves several files, separate them with '### filename.py' or '### filename.md' headings.")
	return b.String()
}

// coderSystemPrompt asks for filename-labeled fenced blocks, the format
// extract.Files understands.
const coderSystemPrompt = `You are an expert code and documentation generator. Write the content needed to complete one specific task. For coding tasks, write functional, high-quality Python. For design, planning, or documentation tasks, write Markdown.

Put code in fenced blocks marked python and documentation in fenced blocks marked markdown. Always precede each block with a heading naming the file, for example '### app.py' or '### README.md'.`
