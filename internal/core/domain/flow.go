package domain

// Stage is the explicit position of a turn inside the conversational flow.
// Transitions are strictly StageStart -> StageRetrieved -> StageDone.
type Stage int

const (
	StageStart Stage = iota
	StageRetrieved
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageStart:
		return "start"
	case StageRetrieved:
		return "retrieved"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// Flow node names. "consulta" is the retrieval node, "llm" the generation
// node; the names are part of the error-reporting contract.
const (
	NodeConsulta = "consulta"
	NodeLLM      = "llm"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// FlowState is the state threaded through one turn of the flow. It is created
// fresh per user query, mutated only by the node that currently owns it, and
// discarded at the end of the turn.
type FlowState struct {
	Input     string
	Context   string
	Messages  []ChatMessage
	Response  string
	Stage     Stage
	Retrieved []RetrievedDoc
}

func NewFlowState(input string) *FlowState {
	return &FlowState{Input: input, Stage: StageStart}
}

// TurnResult is the output contract of a full turn.
type TurnResult struct {
	Response      string         `json:"response"`
	RetrievedDocs []RetrievedDoc `json:"retrieved_docs"`
}
