package coder

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fabrica-ai/fabrica/internal/provider"
	"github.com/fabrica-ai/fabrica/pkg/models"
)

type stubProvider struct {
	response string
	err      error
	prompt   string
}

func (s *stubProvider) Send(ctx context.Context, messages []provider.Message) (string, error) {
	for _, m := range messages {
		if m.Role == provider.RoleUser {
			s.prompt = m.Content
		}
	}
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func sampleTask() *models.Task {
	return &models.Task{ID: 2, Description: "implement the calculator core", Status: models.TaskStatusInProgress}
}

func TestGenerateCodeLabeledBlocks(t *testing.T) {
	stub := &stubProvider{response: "### calc.py\n```python\ndef add(a, b):\n    return a + b\n```\n" +
		"### README.md\n```markdown\n# Calculator\n```\n"}

	files, err := New(stub).GenerateCode(context.Background(), sampleTask(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	if !strings.Contains(files["calc.py"], "def add") {
		t.Errorf("unexpected calc.py content: %q", files["calc.py"])
	}
}

func TestGenerateCodeNoContentIsSoftSuccess(t *testing.T) {
	stub := &stubProvider{response: "This task is already covered by the existing scaffold; nothing to add."}

	files, err := New(stub).GenerateCode(context.Background(), sampleTask(), nil)
	if err != nil {
		t.Fatalf("no-content must not be an error, got %v", err)
	}
	if files == nil || len(files) != 0 {
		t.Errorf("expected empty non-nil mapping, got %#v", files)
	}
}

func TestGenerateCodeProviderUnavailable(t *testing.T) {
	stub := &stubProvider{err: provider.ErrUnreachable}

	_, err := New(stub).GenerateCode(context.Background(), sampleTask(), nil)
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestGenerateCodeSynthesizesRequirements(t *testing.T) {
	stub := &stubProvider{response: "### app.py\n```python\nfrom flask import Flask\nimport pandas\n\napp = Flask(__name__)\n```\n"}

	files, err := New(stub).GenerateCode(context.Background(), sampleTask(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reqs, ok := files["requirements.txt"]
	if !ok {
		t.Fatal("expected requirements.txt to be synthesized")
	}
	if reqs != "flask\npandas\n" {
		t.Errorf("unexpected requirements: %q", reqs)
	}
}

func TestGenerateCodeRespectsExplicitRequirements(t *testing.T) {
	stub := &stubProvider{response: "### app.py\n```python\nimport numpy\n```\n" +
		"### requirements.txt\n```text\nnumpy==1.26.0\n```\n"}

	files, err := New(stub).GenerateCode(context.Background(), sampleTask(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if files["requirements.txt"] != "numpy==1.26.0" {
		t.Errorf("model-provided requirements.txt was overwritten: %q", files["requirements.txt"])
	}
}

func TestGenerateCodeSniffingDisabled(t *testing.T) {
	stub := &stubProvider{response: "### app.py\n```python\nimport numpy\n```\n"}

	c := New(stub)
	c.SetDependencySniffing(false)
	files, err := c.GenerateCode(context.Background(), sampleTask(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := files["requirements.txt"]; ok {
		t.Error("sniffing disabled but requirements.txt was synthesized")
	}
}

func TestGenerateCodePromptIncludesContext(t *testing.T) {
	stub := &stubProvider{response: "### app.py\n```python\npass\n```\n"}

	_, err := New(stub).GenerateCode(context.Background(), sampleTask(), map[string]string{
		"technologies": "Python, Flask",
		"structure":    "modular",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stub.prompt, "technologies: Python, Flask") {
		t.Errorf("prompt missing project context: %q", stub.prompt)
	}
	if !strings.Contains(stub.prompt, "implement the calculator core") {
		t.Errorf("prompt missing task description: %q", stub.prompt)
	}
}
