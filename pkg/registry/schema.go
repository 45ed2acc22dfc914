// pkg/registry/schema.go
package registry

// TaskRegistry describes the job types the engine serves, for workflow
// tooling and the /registry endpoint.
type TaskRegistry struct {
	Version string `json:"version"`
	Tasks   []Task `json:"tasks"`
}

// Task is one Zeebe job type with its variable contract.
type Task struct {
	ID           string                 `json:"id"`
	DisplayName  string                 `json:"displayName"`
	Description  string                 `json:"description"`
	TaskType     string                 `json:"taskType"`
	InputSchema  map[string]interface{} `json:"inputSchema"`
	OutputSchema map[string]interface{} `json:"outputSchema"`
	ErrorCodes   []string               `json:"errorCodes"`
	TimeoutMs    int                    `json:"timeoutMs"`
	Retries      int                    `json:"retries"`
}
