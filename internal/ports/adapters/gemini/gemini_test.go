package gemini

import (
	"strings"
	"testing"

	"showclip/internal/types"
)

func TestParseSpans(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
		want int
	}{
		{
			name: "plain json",
			text: `{"clips":[{"title":"Solo","start_s":10,"end_s":40}]}`,
			want: 1,
		},
		{
			name: "fenced json",
			text: "```json\n{\"clips\":[{\"title\":\"A\",\"start_s\":1,\"end_s\":9},{\"title\":\"B\",\"start_s\":20,\"end_s\":30}]}\n```",
			want: 2,
		},
		{
			name: "json surrounded by prose",
			text: "Here are the best moments:\n{\"clips\":[{\"title\":\"X\",\"start_s\":5,\"end_s\":15}]}\nEnjoy!",
			want: 1,
		},
		{name: "empty reply", text: "", want: 0},
		{name: "whitespace only", text: "   \n\t", want: 0},
		{name: "no json at all", text: "I could not find any highlights.", want: 0},
		{name: "malformed json", text: `{"clips":[{"title":`, want: 0},
		{name: "wrong shape", text: `{"highlights":[1,2,3]}`, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spans := ParseSpans(tc.text)
			if len(spans) != tc.want {
				t.Fatalf("ParseSpans = %+v, want %d spans", spans, tc.want)
			}
		})
	}
}

func TestParseSpans_Fields(t *testing.T) {
	t.Parallel()

	spans := ParseSpans(`{"clips":[{"title":"Solo","start_s":10.5,"end_s":40}]}`)
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %+v", spans)
	}
	want := types.RawSpan{Label: "Solo", Start: 10.5, End: 40}
	if spans[0] != want {
		t.Fatalf("span = %+v, want %+v", spans[0], want)
	}
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	tr := types.Transcript{Segments: []types.Segment{
		{Start: 12, End: 15, Text: "hello world"},
	}}
	prompt := BuildPrompt(tr, "You pick highlights.", "focus on the guitar")

	if !strings.HasPrefix(prompt, "You pick highlights.") {
		t.Fatalf("persona not first:\n%s", prompt)
	}
	if !strings.Contains(prompt, "focus on the guitar") {
		t.Fatalf("user context missing:\n%s", prompt)
	}
	if !strings.Contains(prompt, "[12.00s - 15.00s] hello world") {
		t.Fatalf("transcript line missing:\n%s", prompt)
	}
}

func TestBuildPrompt_NoContext(t *testing.T) {
	t.Parallel()

	prompt := BuildPrompt(types.Transcript{}, "persona", "")
	if strings.Contains(prompt, "Additional Context") {
		t.Fatalf("context block should be omitted:\n%s", prompt)
	}
}
