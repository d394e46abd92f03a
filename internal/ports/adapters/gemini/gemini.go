// Package gemini adapts the Gemini API to the AI analyzer port.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"showclip/internal/services"
	"showclip/internal/types"
)

type Adapter struct {
	client *genai.Client
	model  string
}

func New(ctx context.Context, apiKey, model string) (*Adapter, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-1.5-pro-latest"
	}
	return &Adapter{client: client, model: model}, nil
}

// Analyze submits the persona prompt, optional user context, and the full
// timestamped transcript, and parses the proposed spans out of the reply.
// Transport and quota failures are errors; a reply the parser cannot make
// sense of yields zero spans so the planner can decide what that means.
func (a *Adapter) Analyze(ctx context.Context, tr types.Transcript, persona, userContext string) ([]types.RawSpan, error) {
	prompt := BuildPrompt(tr, persona, userContext)

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(prompt)}, genai.RoleUser),
	}
	result, err := a.client.Models.GenerateContent(ctx, a.model, contents, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "airesult", "gemini", "", err)
	}
	return ParseSpans(result.Text()), nil
}

// BuildPrompt assembles the request text: persona, user context, then the
// transcript as "[12.00s - 15.00s] text" lines.
func BuildPrompt(tr types.Transcript, persona, userContext string) string {
	var b strings.Builder
	b.WriteString(persona)
	if userContext != "" {
		b.WriteString("\n\nAdditional Context (User-provided):\n---\n")
		b.WriteString(userContext)
		b.WriteString("\n---")
	}
	b.WriteString("\n\nFull Transcription:\n---\n")
	for _, seg := range tr.Segments {
		fmt.Fprintf(&b, "[%.2fs - %.2fs] %s\n", seg.Start, seg.End, seg.Text)
	}
	b.WriteString("---")
	return b.String()
}

// ParseSpans extracts {"clips":[{"title","start_s","end_s"}]} from a model
// reply, tolerating markdown fences and surrounding prose. Anything
// unparseable yields nil.
func ParseSpans(text string) []types.RawSpan {
	t := strings.TrimSpace(text)
	if t == "" {
		return nil
	}
	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}

	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start < 0 || end <= start {
		return nil
	}

	var out struct {
		Clips []types.RawSpan `json:"clips"`
	}
	if err := json.Unmarshal([]byte(t[start:end+1]), &out); err != nil {
		return nil
	}
	return out.Clips
}
