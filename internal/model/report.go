package model

import "time"

// Report is the complete record of one analysis run.
// It is what the pipeline hands to the persistence sink and the renderers.
type Report struct {
	ID        string    `json:"id"`         // Run identifier (UUID)
	CreatedAt time.Time `json:"created_at"` // When the analysis finished
	Duration  string    `json:"duration"`   // Wall time including gate wait and backoff

	ModelUsed string `json:"model_used"` // Primary or fallback model name
	Usage     Usage  `json:"usage"`

	CriteriaCount int      `json:"criteria_count"` // Criteria sent to the model
	Files         []string `json:"files"`          // Paths of analyzed files, in prompt order

	Prompt            string `json:"prompt"`             // Assembled prompt (audit)
	RawResponse       string `json:"raw_response"`       // Untouched model output (audit)
	ProcessedResponse string `json:"processed_response"` // Output after end-of-analysis truncation
	Strategy          string `json:"strategy,omitempty"` // Extraction strategy that matched, empty if none

	Results []ReconciledResult `json:"results"`
}

// Matched reports whether any criterion verdict was recovered from the response
func (r *Report) Matched() bool {
	return len(r.Results) > 0
}

// ResultFor returns the result for the given criterion ID
func (r *Report) ResultFor(criterionID string) (ReconciledResult, bool) {
	for _, res := range r.Results {
		if res.CriterionID == criterionID {
			return res, true
		}
	}
	return ReconciledResult{}, false
}
