package model

// Criterion is one named evaluation rule the code is judged against.
// The engine never mutates criteria; they are owned by the criteria store.
type Criterion struct {
	ID     string `json:"id" yaml:"id"`         // Opaque identifier from the criteria store
	Text   string `json:"text" yaml:"text"`     // Natural-language rule, also the canonical result name
	Order  int    `json:"order" yaml:"order"`   // Position within the criteria set
	Active bool   `json:"active" yaml:"active"` // Inactive criteria are filtered out before analysis
}

// SourceFile is one file of the corpus under analysis
type SourceFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// AnalysisRequest is everything needed to run one analysis.
// Built once per run by the caller and consumed by the prompt injector.
type AnalysisRequest struct {
	Criteria           []Criterion  `json:"criteria"`
	SourceFiles        []SourceFile `json:"source_files"`
	BasePromptTemplate string       `json:"base_prompt_template"`
	Temperature        float64      `json:"temperature"`
	MaxOutputTokens    int          `json:"max_output_tokens"`
}

// AssembledPrompt is the final prompt text sent to the model
type AssembledPrompt struct {
	Text string `json:"text"`
}
