package engine

// Statistics accumulates per-run counters. Mutated only by the run's single
// worker; read-only once the run completes.
type Statistics struct {
	TotalCalls           int `json:"total_calls" yaml:"total_calls"`
	QualifiedCalls       int `json:"qualified_calls" yaml:"qualified_calls"`
	ProcessedCalls       int `json:"processed_calls" yaml:"processed_calls"`
	ExistingLeadsUpdated int `json:"existing_leads_updated" yaml:"existing_leads_updated"`
	NewLeadsCreated      int `json:"new_leads_created" yaml:"new_leads_created"`
	SkippedCalls         int `json:"skipped_calls" yaml:"skipped_calls"`
	AcceptedCalls        int `json:"accepted_calls" yaml:"accepted_calls"`
	RecordingsAttached   int `json:"recordings_attached" yaml:"recordings_attached"`
	RecordingFailures    int `json:"recording_failures" yaml:"recording_failures"`
	DuplicatesPrevented  int `json:"duplicates_prevented" yaml:"duplicates_prevented"`
	APIErrors            int `json:"api_errors" yaml:"api_errors"`
	FailedCalls          int `json:"failed_calls" yaml:"failed_calls"`
}
