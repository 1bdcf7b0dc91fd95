package model

// Usage holds token counters reported by the provider
type Usage struct {
	PromptTokens int `json:"prompt_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// DispatchResult is the terminal successful outcome of a dispatch,
// across both models and all retries.
type DispatchResult struct {
	RawText   string `json:"raw_text"`
	ModelUsed string `json:"model_used"`
	Usage     Usage  `json:"usage"`
}

// ExtractedFragment is a chunk of model output believed to cover one criterion
type ExtractedFragment struct {
	SlotKey     string `json:"slot_key"`     // Positional key, e.g. "criteria_3"
	ClaimedName string `json:"claimed_name"` // Name as written by the model (may be garbled)
	Content     string `json:"content"`      // Verdict text
}

// ReconciledResult is the final per-criterion output.
// CanonicalName is always the original Criterion.Text, never the model's label.
type ReconciledResult struct {
	CriterionID   string `json:"criterion_id,omitempty"`
	CanonicalName string `json:"canonical_name"`
	Content       string `json:"content"`
}
