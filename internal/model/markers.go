package model

// Sentinel tokens shared by the prompt (which asks the model to emit them)
// and the response extractor (which splits on them).
const (
	// EndOfAnalysisMarker closes the whole response; anything after it is noise
	EndOfAnalysisMarker = "<<<END_OF_ANALYSIS>>>"

	// EndOfCriterionMarker closes each per-criterion section
	EndOfCriterionMarker = "<<<END_OF_CRITERION>>>"
)
