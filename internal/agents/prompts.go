package agents

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/danielpatrickdp/brainbox/internal/retrieval"
	"github.com/danielpatrickdp/brainbox/internal/runstate"
	"github.com/danielpatrickdp/brainbox/internal/tools"
)

// #region system-prompts

const ragSystemInstruction = "Answer using only the provided context. " +
	"If the answer cannot be found in the context, say you do not know."

const answerSystemInstruction = "You are a helpful assistant. " +
	"Answer the user's question directly and concisely."

const plannerSystemInstruction = "You are a planner. " +
	"Break the task into minimal steps. " +
	"Do NOT execute anything. " +
	"Focus on sequential logic."

// #endregion system-prompts

// #region planner-prompt

// plannerUserInput renders the question and tool catalog with the
// required plan shape.
func plannerUserInput(question string, specs []tools.Spec) string {
	catalog, _ := json.MarshalIndent(specs, "", "  ")
	return fmt.Sprintf(`Question:
%s

Available tools:
%s

RULES:
1. Output a valid JSON object with a "steps" list.
2. Each step has "action" ("tool" or "answer"), "thought", "name" (tool name or null), and "input".
3. A later step may reference an earlier result with { "from_memory": "<tool name>" }.
4. End with exactly one "answer" step whose input holds { "answer": "..." }.

Example Output:
{
  "steps": [
    {
      "action": "tool",
      "name": "calculator",
      "input": { "expression": "10 + 5" },
      "thought": "First calculate the sum."
    },
    {
      "action": "answer",
      "name": null,
      "input": { "answer": "15" },
      "thought": "Final answer."
    }
  ]
}

Output JSON ONLY:
`, question, string(catalog))
}

// #endregion planner-prompt

// #region react-prompt

// reactSystemInstruction builds the tool-use instruction with the full
// tool catalog inlined.
func reactSystemInstruction(specs []tools.Spec) string {
	b, _ := json.MarshalIndent(specs, "", "  ")
	return fmt.Sprintf(`You are a reasoning agent capable of using tools to answer questions.

Available Tools:
%s

**Instructions**:
1. Reasoning: Always think about what to do next, checking previous observations.
2. Tool Use: If you need more information or need to perform an action, output a tool request. You MUST provide 'input' arguments.
3. Final Answer: If you have enough information, output the final answer.

**Output Format**:
Respond ONLY with valid JSON.

Example 1 (Math):
{
  "thought": "I need to calculate 15 * 6 first.",
  "tool": {
    "name": "calculator",
    "input": { "expression": "15 * 6" }
  },
  "final_answer": null
}

Example 2 (Final Answer):
{
  "thought": "I have calculated the result to be 80.",
  "tool": null,
  "final_answer": "80"
}

Your Output:
`, string(b))
}

// reactUserInput renders the question, any retrieved context, and the
// step history for the model.
func reactUserInput(question string, docs []retrieval.Document, history []runstate.HistoryEntry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question: %s\n\n", question)

	if len(docs) > 0 {
		sb.WriteString("Retrieved Context (if helpful):\n")
		for i, d := range docs {
			fmt.Fprintf(&sb, "[%d] %s\n", i+1, d.Content)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("History:\n")
	for _, step := range history {
		fmt.Fprintf(&sb, "Thought: %s\n", step.Thought)
		if step.Request != nil {
			in, _ := json.Marshal(step.Request.Input)
			fmt.Fprintf(&sb, "Action: Call %s with %s\n", step.Request.Name, string(in))
		}
		if step.Result != nil {
			res := fmt.Sprint(step.Result)
			if len(res) > 500 {
				res = res[:500] + "...(truncated)"
			}
			fmt.Fprintf(&sb, "Observation: %s\n", res)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Next Step:")
	return sb.String()
}

// contextDocs projects document contents for the model call.
func contextDocs(docs []retrieval.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Content)
	}
	return out
}

// #endregion react-prompt
