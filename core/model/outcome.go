package model

// OutcomeKind names the branch taken by the session orchestrator.
type OutcomeKind string

const (
	KindAskMissing OutcomeKind = "ask_missing"
	KindPredict    OutcomeKind = "predict"
)

// Outcome is either AskMissing or ReadyToPredict. The set is closed: no type
// outside this package can implement it, so a type switch over the two
// variants is exhaustive.
type Outcome interface {
	Kind() OutcomeKind
	outcome()
}

// AskMissing lists the questions to send back to the user, in order.
type AskMissing struct {
	Questions []string `json:"questions"`
}

// ReadyToPredict carries a session complete enough to be scored.
type ReadyToPredict struct {
	Session SessionInfo `json:"session"`
}

func (AskMissing) Kind() OutcomeKind     { return KindAskMissing }
func (ReadyToPredict) Kind() OutcomeKind { return KindPredict }

func (AskMissing) outcome()     {}
func (ReadyToPredict) outcome() {}
