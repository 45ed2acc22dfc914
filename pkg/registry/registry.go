// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"os"
)

// LoadRegistry reads a task registry overlay from disk. Deployments that
// customize timeouts or disable tasks ship their own file; EngineTasks is the
// built-in baseline.
func LoadRegistry(path string) (*TaskRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg TaskRegistry
	err = json.Unmarshal(data, &reg)
	return &reg, err
}

// EngineTasks returns the registry of job types this binary serves.
func EngineTasks() *TaskRegistry {
	return &TaskRegistry{
		Version: "1.0",
		Tasks: []Task{
			{
				ID:          "match-communication",
				DisplayName: "Match Communication",
				Description: "Resolves an inbound email thread or meeting to candidate CRM leads by tiered identity matching, optionally auto-linking the top HIGH-confidence candidate.",
				TaskType:    "match-communication",
				InputSchema: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"threadId":          map[string]interface{}{"type": "string"},
						"meetingId":         map[string]interface{}{"type": "string"},
						"participantEmails": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
						"autoLink":          map[string]interface{}{"type": "boolean"},
					},
				},
				OutputSchema: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"candidates":   map[string]interface{}{"type": "array"},
						"linked":       map[string]interface{}{"type": "boolean"},
						"linkedLeadId": map[string]interface{}{"type": "string"},
					},
				},
				ErrorCodes: []string{"INVALID_JOB_INPUT", "THREAD_NOT_FOUND", "MEETING_NOT_FOUND", "QUERY_EXECUTION_FAILED"},
				TimeoutMs:  10000,
				Retries:    3,
			},
			{
				ID:          "score-lead",
				DisplayName: "Score Lead",
				Description: "Assembles a lead's communication context, invokes AI scoring behind a staleness gate, and persists score, tier, signals, and close probability.",
				TaskType:    "score-lead",
				InputSchema: map[string]interface{}{
					"type":     "object",
					"required": []string{"leadId"},
					"properties": map[string]interface{}{
						"leadId": map[string]interface{}{"type": "string"},
						"force":  map[string]interface{}{"type": "boolean"},
					},
				},
				OutputSchema: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"scored":       map[string]interface{}{"type": "boolean"},
						"overallScore": map[string]interface{}{"type": "integer"},
						"priorityTier": map[string]interface{}{"type": "string"},
					},
				},
				ErrorCodes: []string{"INVALID_JOB_INPUT", "LEAD_NOT_FOUND", "AI_CALL_FAILED", "AI_VALIDATION_FAILED", "LEAD_UPDATE_FAILED"},
				TimeoutMs:  60000,
				Retries:    2,
			},
			{
				ID:          "suggest-actions",
				DisplayName: "Suggest Actions",
				Description: "Generates an AI action plan for a lead and materializes it as deduplicated suggestion records.",
				TaskType:    "suggest-actions",
				InputSchema: map[string]interface{}{
					"type":     "object",
					"required": []string{"leadId"},
					"properties": map[string]interface{}{
						"leadId": map[string]interface{}{"type": "string"},
						"force":  map[string]interface{}{"type": "boolean"},
					},
				},
				OutputSchema: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"suggested":    map[string]interface{}{"type": "boolean"},
						"createdCount": map[string]interface{}{"type": "integer"},
					},
				},
				ErrorCodes: []string{"INVALID_JOB_INPUT", "LEAD_NOT_FOUND", "AI_CALL_FAILED", "SUGGESTION_INSERT_FAILED"},
				TimeoutMs:  60000,
				Retries:    2,
			},
		},
	}
}
