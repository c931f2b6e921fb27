package extract

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
)

// ErrNoContentFound indicates the response contained no fenced blocks at
// all, labeled or otherwise.
var ErrNoContentFound = errors.New("no content blocks found in response")

var (
	// labeledBlockRe matches a "### filename" heading followed by a
	// fenced block. The language tag on the fence is optional.
	labeledBlockRe = regexp.MustCompile("(?s)###\\s*(.*?)\\s*```(?:python|markdown|json|yaml|text|)\\n(.*?)\\n```")
	// anonymousBlockRe matches any fenced block, used as a fallback when
	// no headings are present.
	anonymousBlockRe = regexp.MustCompile("(?s)```(?:python|markdown|json|yaml|text|)\\n(.*?)\\n```")

	unsafeChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	knownExt    = regexp.MustCompile(`(?i)\.(py|md|txt|json|yaml|yml|html|css|js|go)$`)
)

// Files extracts named content blocks from a model response. Blocks
// labeled with a "### filename" heading win; if none are labeled, every
// anonymous fenced block becomes a file named by ordinal position, typed
// .py or .md by a keyword sniff. Returns ErrNoContentFound when the
// response has no fenced content at all.
func Files(text string) (map[string]string, error) {
	files := make(map[string]string)

	for _, m := range labeledBlockRe.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		if name == "" {
			continue
		}
		sanitized := SanitizeFilename(name, "app.py")
		// First block wins on duplicate names.
		if _, exists := files[sanitized]; !exists {
			files[sanitized] = strings.TrimSpace(m[2])
		}
	}

	if len(files) > 0 {
		return files, nil
	}

	for i, m := range anonymousBlockRe.FindAllStringSubmatch(text, -1) {
		content := strings.TrimSpace(m[1])
		files[anonymousName(content, i+1)] = content
	}

	if len(files) == 0 {
		return nil, ErrNoContentFound
	}
	return files, nil
}

// anonymousName names an unlabeled block by ordinal, inferring code vs
// documentation from the presence of function or import keywords.
func anonymousName(content string, ordinal int) string {
	if strings.Contains(content, "def ") || strings.Contains(content, "import ") {
		return fmt.Sprintf("app_%d.py", ordinal)
	}
	return fmt.Sprintf("documentation_%d.md", ordinal)
}

// SanitizeFilename reduces a model-supplied filename to a safe basename.
// Path components are stripped, unsafe characters become underscores,
// and a .py extension is appended when no recognized extension is
// present. Returns fallback when nothing usable remains.
func SanitizeFilename(name, fallback string) string {
	if strings.TrimSpace(name) == "" {
		return fallback
	}

	// Normalize separators, then keep only the final element.
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)

	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return fallback
	}

	if !knownExt.MatchString(name) {
		name += ".py"
	}
	return name
}

