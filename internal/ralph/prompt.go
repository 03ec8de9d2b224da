package ralph

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"ralph/internal/prd"
)

//go:embed prompt.md
var defaultPrompt string

// DefaultCompletionMarker is what the agent outputs when it finds no
// remaining work in the document.
const DefaultCompletionMarker = "ALL FEATURES COMPLETE"

// PromptVars holds the closed set of values substituted into a prompt
// template. Every supported placeholder maps to exactly one field.
type PromptVars struct {
	PRDPath          string
	PRDContent       string
	ProgressPath     string
	Verification     string
	CompletionMarker string
}

// RenderPrompt substitutes the named placeholders in template. Unknown
// placeholders are left untouched so template typos surface in the
// agent output rather than failing silently.
func RenderPrompt(template string, vars PromptVars) string {
	r := strings.NewReplacer(
		"{prd_path}", vars.PRDPath,
		"{prd_content}", vars.PRDContent,
		"{progress_path}", vars.ProgressPath,
		"{verification_commands}", vars.Verification,
		"{completion_marker}", vars.CompletionMarker,
	)
	return r.Replace(template)
}

// LoadPromptTemplate reads a template from path, falling back to the
// embedded default when path is empty.
func LoadPromptTemplate(path string) (string, error) {
	if path == "" {
		return defaultPrompt, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading prompt template: %w", err)
	}
	return string(data), nil
}

// FormatVerification renders a document's verification commands as a
// numbered list for inclusion in the prompt.
func FormatVerification(doc *prd.Document) string {
	if len(doc.Verification.Commands) == 0 {
		return "(none configured)"
	}
	var b strings.Builder
	for i, cmd := range doc.Verification.Commands {
		fmt.Fprintf(&b, "%d. %s: `%s`\n", i+1, cmd.Name, cmd.Command)
	}
	return strings.TrimRight(b.String(), "\n")
}
