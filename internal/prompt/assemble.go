// Package prompt builds the ordered message sequence for a normalized
// request and injects retrieved context per provider-specific rules.
package prompt

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ytlailabs/llmkit/internal/domain"
)

const (
	// DefaultSystemText keeps the system layer stable when the caller
	// supplies none.
	DefaultSystemText = "You are a helpful assistant."

	// DefaultJSONContract is appended to the system message when the
	// caller requested JSON output and the contract toggle is on.
	DefaultJSONContract = "Return a valid JSON object only."
)

// Assembler constructs PreparedRequests. All behavior is configured at
// construction; the assembler itself reads no process environment and is
// safe for concurrent use.
type Assembler struct {
	// SystemDefault is the fallback system text. Empty means DefaultSystemText.
	SystemDefault string
	// JSONContract is the JSON-output instruction. Empty means DefaultJSONContract.
	JSONContract string
	// AppendJSONContract enables the contract append for return_json requests.
	AppendJSONContract bool
	// RAGDirs are searched in order when resolving a rag_id to a file
	// named <rag_id>.txt; the first existing file wins.
	RAGDirs []string
	// RAGMaxChars caps resolved context text when > 0.
	RAGMaxChars int
}

// Prepare builds the final message sequence for spec and returns the
// request that crosses into the adapter boundary.
func (a *Assembler) Prepare(spec *domain.InputSpec) *domain.PreparedRequest {
	var messages []domain.Message
	if len(spec.Messages) > 0 {
		messages = a.fromCallerMessages(spec)
	} else {
		messages = a.fromPrompts(spec)
	}

	if ragText := a.resolveRAGText(spec); ragText != "" {
		messages = a.injectRAG(messages, spec.Provider, ragText)
	}

	return &domain.PreparedRequest{
		Provider:   spec.Provider,
		Model:      spec.Model,
		Messages:   messages,
		ReturnJSON: spec.ReturnJSON,
		Options:    spec.Options,
	}
}

// fromPrompts is simple mode: [system, user].
func (a *Assembler) fromPrompts(spec *domain.InputSpec) []domain.Message {
	systemText := strings.TrimSpace(spec.SystemPrompt)
	if systemText == "" {
		systemText = a.systemDefault()
	}

	messages := []domain.Message{
		{Role: domain.RoleSystem, Content: systemText},
		{Role: domain.RoleUser, Content: strings.TrimSpace(spec.UserPrompt)},
	}

	if spec.ReturnJSON && a.AppendJSONContract {
		messages[0].Content = appendContract(messages[0].Content, a.jsonContract())
	}
	return messages
}

// fromCallerMessages is advanced mode: the caller's sequence, with a system
// entry guaranteed at position 0 and the system_prompt override applied.
func (a *Assembler) fromCallerMessages(spec *domain.InputSpec) []domain.Message {
	messages := make([]domain.Message, len(spec.Messages))
	copy(messages, spec.Messages)

	sysIdx := -1
	for i, m := range messages {
		if m.Role == domain.RoleSystem {
			sysIdx = i
			break
		}
	}
	if sysIdx == -1 {
		messages = append([]domain.Message{{Role: domain.RoleSystem, Content: a.systemDefault()}}, messages...)
		sysIdx = 0
	}

	if override := strings.TrimSpace(spec.SystemPrompt); override != "" {
		messages[sysIdx].Content = override
	}

	if spec.ReturnJSON && a.AppendJSONContract {
		messages[sysIdx].Content = appendContract(messages[sysIdx].Content, a.jsonContract())
	}
	return messages
}

// resolveRAGText returns the context text to inject, or "". Literal
// rag_text wins; otherwise rag_id is looked up as <id>.txt in each RAG dir.
// Missing everywhere is not an error.
func (a *Assembler) resolveRAGText(spec *domain.InputSpec) string {
	if text := strings.TrimSpace(spec.RAGText); text != "" {
		return a.truncate(text)
	}
	if spec.RAGID == "" {
		return ""
	}

	for _, dir := range a.RAGDirs {
		if dir == "" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, spec.RAGID+".txt"))
		if err != nil {
			continue
		}
		if text := strings.TrimSpace(string(data)); text != "" {
			return a.truncate(text)
		}
	}
	return ""
}

// injectRAG applies the provider-dependent injection policy. OpenAI gets a
// developer message after the last system entry; everyone else gets the
// last user message rewritten around a reference-context block.
func (a *Assembler) injectRAG(messages []domain.Message, provider domain.Provider, ragText string) []domain.Message {
	out := make([]domain.Message, len(messages))
	copy(out, messages)

	if provider == domain.ProviderOpenAI {
		insertAt := 1
		for i, m := range out {
			if m.Role == domain.RoleSystem {
				insertAt = i + 1
			}
		}
		out = append(out, domain.Message{})
		copy(out[insertAt+1:], out[insertAt:])
		out[insertAt] = domain.Message{Role: domain.RoleDeveloper, Content: ragText}
		return out
	}

	lastUser := -1
	for i, m := range out {
		if m.Role == domain.RoleUser {
			lastUser = i
		}
	}
	if lastUser == -1 {
		return append(out, domain.Message{
			Role:    domain.RoleUser,
			Content: "### Reference Context:\n" + ragText,
		})
	}

	out[lastUser].Content = "### Reference Context:\n" + ragText +
		"\n\n### User Question:\n" + out[lastUser].Content
	return out
}

func (a *Assembler) truncate(text string) string {
	if a.RAGMaxChars > 0 && len(text) > a.RAGMaxChars {
		return text[:a.RAGMaxChars]
	}
	return text
}

func (a *Assembler) systemDefault() string {
	if a.SystemDefault != "" {
		return a.SystemDefault
	}
	return DefaultSystemText
}

func (a *Assembler) jsonContract() string {
	if a.JSONContract != "" {
		return a.JSONContract
	}
	return DefaultJSONContract
}

func appendContract(content, contract string) string {
	return strings.TrimRight(content, " \t\n") + "\n\n" + strings.TrimSpace(contract)
}
