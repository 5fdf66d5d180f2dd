package domain

// Scenario is a hand-authored evaluation fixture. Loaded from the scenario
// catalog and read-only afterwards.
type Scenario struct {
	Name                  string   `yaml:"name" json:"name"`
	DurationDays          int      `yaml:"duration_days" json:"duration_days"`
	Budget                string   `yaml:"budget" json:"budget"`
	TravelType            string   `yaml:"travel_type" json:"travel_type"`
	Interests             []string `yaml:"interests" json:"interests"`
	UserInput             string   `yaml:"user_input" json:"user_input"`
	ExpectedRelevantDocs  []string `yaml:"expected_relevant_docs" json:"expected_relevant_docs"`
	ReferenceResponse     string   `yaml:"reference_response" json:"reference_response,omitempty"`
	EvaluateRetrievalDocs bool     `yaml:"evaluate_retrieval_docs" json:"evaluate_retrieval_docs"`
}

// EvaluationResult maps metric names to scores in [0,1], rounded to two
// decimal places for reporting.
type EvaluationResult struct {
	Scenario string             `json:"scenario"`
	Metrics  map[string]float64 `json:"metrics"`
}

// Metric names reported by the evaluator.
const (
	MetricAdaptiveRecall    = "adaptive_recall"
	MetricThematicCoverage  = "thematic_coverage"
	MetricSemanticCoherence = "semantic_coherence"
)
