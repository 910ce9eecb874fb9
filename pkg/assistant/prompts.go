package assistant

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/harrisonrobin/taskboard/pkg/model"
)

type memberView struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Role model.Role `json:"role"`
}

func toJSON(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding prompt context: %w", err)
	}
	return string(b), nil
}

func summaryPrompt(tasks []model.Task, period Period, now time.Time) (string, error) {
	list, err := toJSON(nonNil(tasks))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the following list of tasks and provide a %s summary.\n", period)
	b.WriteString("The summary should be formatted in Markdown and include:\n")
	b.WriteString("- A brief overview of accomplishments (completed tasks).\n")
	b.WriteString("- A list of pending tasks, highlighting any that are overdue.\n")
	b.WriteString("- A productivity analysis or observation.\n\n")
	fmt.Fprintf(&b, "Today's date is %s.\n\n", now.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Tasks:\n%s\n", list)
	return b.String(), nil
}

func optimizePrompt(tasks []model.Task, members []model.User, actor model.User, now time.Time) (string, error) {
	list, err := toJSON(nonNil(tasks))
	if err != nil {
		return "", err
	}
	who, err := toJSON(memberView{ID: actor.ID, Name: actor.Name, Role: actor.Role})
	if err != nil {
		return "", err
	}

	team := "The user is working in an individual account."
	if actor.AccountType == model.AccountTeam {
		views := make([]memberView, 0, len(members))
		for _, m := range members {
			views = append(views, memberView{ID: m.ID, Name: m.Name, Role: m.Role})
		}
		roster, err := toJSON(views)
		if err != nil {
			return "", err
		}
		team = "The user is part of a team. Here are the team members available for delegation: " + roster
	}

	var b strings.Builder
	b.WriteString("As an expert productivity coach, analyze the user's current tasks and provide personalized, ")
	b.WriteString("actionable suggestions to optimize their schedule.\n")
	b.WriteString("The suggestions should be specific, insightful, and formatted in Markdown.\n\n")
	b.WriteString("**Context:**\n")
	fmt.Fprintf(&b, "- Today's date is %s.\n", now.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- The request is coming from: %s.\n", who)
	fmt.Fprintf(&b, "- %s\n\n", team)
	b.WriteString("**Analysis requirements:**\n")
	b.WriteString("1. **Task Prioritization & Ordering:** Recommend a specific order to tackle the tasks, ")
	b.WriteString("based on priority, due dates and potential for quick wins.\n")
	b.WriteString("2. **Conflict Detection:** Identify scheduling conflicts, such as multiple high-priority ")
	b.WriteString("tasks due on the same day or an unrealistic workload.\n")
	if actor.AccountType == model.AccountTeam {
		b.WriteString("3. **Smart Delegation:** Suggest delegating specific tasks to other team members ")
		b.WriteString("and say why each person is a good fit.\n")
	} else {
		b.WriteString("3. **Delegation:** This is an individual account. Do not suggest delegation.\n")
	}
	b.WriteString("4. **Task Batching:** Suggest grouping similar tasks to reduce context switching.\n\n")
	fmt.Fprintf(&b, "**Current Tasks:**\n%s\n\n", list)
	b.WriteString("Provide a friendly but professional response.\n")
	return b.String(), nil
}

func voicePrompt(transcript string, now time.Time) string {
	var b strings.Builder
	b.WriteString("Parse the following voice command for a to-do list application.\n")
	fmt.Fprintf(&b, "Now is %s.\n", now.Format(time.RFC3339))
	b.WriteString("Extract the action ('add', 'delete', 'error') and its payload.\n")
	b.WriteString("For 'add', payload should include 'title', and optional 'priority' ('High', 'Medium', 'Low'), ")
	b.WriteString("'description', and 'dueDate'. The dueDate must be an RFC 3339 timestamp with an offset.\n")
	b.WriteString("For 'delete', payload should include the 'title' of the task to remove.\n")
	b.WriteString("If the command is unclear, the action should be 'error' with a short 'message'.\n\n")
	fmt.Fprintf(&b, "Command: %q\n\n", transcript)
	b.WriteString("Return ONLY a JSON object.\n")
	return b.String()
}

// voiceSchema is the response schema sent with voice parsing requests.
var voiceSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"action": map[string]any{"type": "STRING", "enum": []string{"add", "delete", "error"}},
		"payload": map[string]any{
			"type": "OBJECT",
			"properties": map[string]any{
				"title":       map[string]any{"type": "STRING"},
				"description": map[string]any{"type": "STRING"},
				"priority":    map[string]any{"type": "STRING"},
				"dueDate":     map[string]any{"type": "STRING", "description": "An RFC 3339 timestamp"},
				"message":     map[string]any{"type": "STRING"},
			},
		},
	},
	"required": []string{"action"},
}

// nonNil keeps an empty list encoding as [] rather than null.
func nonNil(tasks []model.Task) []model.Task {
	if tasks == nil {
		return []model.Task{}
	}
	return tasks
}
