package models

// MetricsSnapshot is a point-in-time copy of the orchestrator's
// process-wide counters.
type MetricsSnapshot struct {
	// TotalProjects counts every project ever created.
	TotalProjects int `json:"total_projects"`
	// ActiveProjects counts projects not yet completed or failed.
	ActiveProjects int `json:"active_projects"`
	// CompletedProjects counts projects that finished every task.
	CompletedProjects int `json:"completed_projects"`
	// FailedProjects counts projects that ended in error.
	FailedProjects int `json:"failed_projects"`
	// AvgGenerationTime is the running mean of per-project wall-clock
	// duration in seconds, over completed projects.
	AvgGenerationTime float64 `json:"avg_generation_time"`
	// SuccessRate is completed / (completed + failed), 1.0 when no
	// project has finished yet.
	SuccessRate float64 `json:"success_rate"`
	// InputTokens is the total input tokens sent to the provider.
	InputTokens int64 `json:"input_tokens"`
	// OutputTokens is the total output tokens received from the provider.
	OutputTokens int64 `json:"output_tokens"`
	// ProviderCalls is the number of provider API calls made.
	ProviderCalls int `json:"provider_calls"`
}
