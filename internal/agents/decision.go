package agents

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/danielpatrickdp/brainbox/internal/runstate"
)

// #region decision

// decision is the structured step a tool-using model returns.
type decision struct {
	Thought     string       `json:"thought"`
	Tool        *toolCall    `json:"tool"`
	FinalAnswer *finalAnswer `json:"final_answer"`
}

type toolCall struct {
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// finalAnswer tolerates models that emit a bare string, a number, or a
// boolean where an answer is expected.
type finalAnswer struct {
	text string
	set  bool
}

func (f *finalAnswer) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		f.text, f.set = s, true
		return nil
	}
	f.text = strings.TrimSpace(string(b))
	f.set = f.text != "" && f.text != "null"
	return nil
}

var finalAnswerPattern = regexp.MustCompile(`(?is)final answer:\s*(.+)`)
var thinkPattern = regexp.MustCompile(`(?s)<think>.*?</think>`)

// parseDecision extracts a decision from raw model output. It tries the
// outermost JSON object first, then falls back to a "Final Answer:" line.
// A nil decision with ok=false means the output was unusable.
func parseDecision(raw string) (decision, bool) {
	text := strings.TrimSpace(thinkPattern.ReplaceAllString(raw, ""))

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		var d decision
		if err := json.Unmarshal([]byte(text[start:end+1]), &d); err == nil {
			if d.Tool != nil || (d.FinalAnswer != nil && d.FinalAnswer.set) {
				return d, true
			}
		}
	}

	if m := finalAnswerPattern.FindStringSubmatch(text); m != nil {
		return decision{
			Thought:     "Recovered answer from unstructured output.",
			FinalAnswer: &finalAnswer{text: strings.TrimSpace(m[1]), set: true},
		}, true
	}

	return decision{}, false
}

// toRequest converts a parsed tool call into a run-state request.
func (d decision) toRequest() *runstate.ToolRequest {
	if d.Tool == nil {
		return nil
	}
	in := d.Tool.Input
	if in == nil {
		in = map[string]any{}
	}
	return &runstate.ToolRequest{Name: d.Tool.Name, Input: in, Thought: d.Thought}
}

// #endregion decision
