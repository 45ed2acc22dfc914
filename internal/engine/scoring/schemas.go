package scoring

// Output schemas for the structured generation calls. The field descriptions
// are part of the prompt contract: the generation endpoint forwards them to
// the model verbatim, and the returned object is validated against the same
// schema before the orchestrator accepts it.

// ScoreResultSchema constrains the lead-scoring output.
func ScoreResultSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []interface{}{"score", "tier", "signals", "closeProbability"},
		"properties": map[string]interface{}{
			"score": map[string]interface{}{
				"type":        "integer",
				"minimum":     0,
				"maximum":     100,
				"description": "Overall lead quality score from 0 to 100.",
			},
			"tier": map[string]interface{}{
				"type":        "string",
				"enum":        []interface{}{"hot", "warm", "cold"},
				"description": "Priority tier: hot for scores 70+, warm for 40-69, cold below 40.",
			},
			"signals": map[string]interface{}{
				"type":        "array",
				"description": "Weighted evidence supporting the score, strongest first.",
				"items": map[string]interface{}{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []interface{}{"type", "weight", "detail"},
					"properties": map[string]interface{}{
						"type": map[string]interface{}{
							"type":        "string",
							"description": "Short signal identifier, e.g. budget_mentioned.",
						},
						"weight": map[string]interface{}{
							"type":        "number",
							"minimum":     0,
							"maximum":     1,
							"description": "Relative strength of this signal from 0 to 1.",
						},
						"detail": map[string]interface{}{
							"type":        "string",
							"description": "One-sentence explanation grounded in the provided context.",
						},
					},
				},
			},
			"closeProbability": map[string]interface{}{
				"type":        "number",
				"minimum":     0,
				"maximum":     1,
				"description": "Predicted probability that this lead converts to a client.",
			},
		},
	}
}

// ActionPlanSchema constrains the action-suggestion output. Actions are
// capped at five, already prioritized by the model.
func ActionPlanSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []interface{}{"actions", "summary", "shouldFollowUp"},
		"properties": map[string]interface{}{
			"actions": map[string]interface{}{
				"type":        "array",
				"maxItems":    5,
				"description": "Up to five next-best actions, highest priority first.",
				"items": map[string]interface{}{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []interface{}{"actionType", "title", "confidence", "reasoning"},
					"properties": map[string]interface{}{
						"actionType": map[string]interface{}{
							"type": "string",
							"enum": []interface{}{
								"FOLLOW_UP", "REPLY", "SCHEDULE_CALL",
								"SEND_PROPOSAL", "ADVANCE_STATUS",
							},
							"description": "Kind of action being proposed.",
						},
						"title": map[string]interface{}{
							"type":        "string",
							"description": "Short imperative title for the action.",
						},
						"body": map[string]interface{}{
							"type":        "string",
							"description": "Drafted message body for REPLY and FOLLOW_UP actions.",
						},
						"targetStatus": map[string]interface{}{
							"type": "string",
							"enum": []interface{}{
								"NEW", "CONTACTED", "QUALIFIED", "PROPOSAL",
								"NEGOTIATION", "WON", "LOST",
							},
							"description": "Target pipeline status for ADVANCE_STATUS actions.",
						},
						"confidence": map[string]interface{}{
							"type":        "number",
							"minimum":     0,
							"maximum":     1,
							"description": "Model confidence that this action is the right next step.",
						},
						"reasoning": map[string]interface{}{
							"type":        "string",
							"description": "Why this action, grounded in the provided context.",
						},
					},
				},
			},
			"summary": map[string]interface{}{
				"type":        "string",
				"description": "Two-sentence summary of where this lead stands.",
			},
			"shouldFollowUp": map[string]interface{}{
				"type":        "boolean",
				"description": "Whether the lead is awaiting a reply from the agency.",
			},
		},
	}
}
