package domain

// SearchOutcome records what happened to the web search step of a turn.
type SearchOutcome struct {
	Requested bool
	OK        bool
	Content   string
	Err       error
}

// Failed reports whether a requested search did not produce results text.
func (s SearchOutcome) Failed() bool { return s.Requested && !s.OK }

// TurnFailure describes a turn whose model call did not produce a reply.
type TurnFailure struct {
	Kind FailureKind
	Err  error
}

func (f *TurnFailure) Error() string { return f.Err.Error() }

func (f *TurnFailure) Unwrap() error { return f.Err }

// Turn is the result of one submit cycle. Reply holds the assistant message
// appended to the transcript; Failure is non-nil when that message is a
// rendered error rather than a model reply.
type Turn struct {
	User    Message
	Prompt  string
	Search  SearchOutcome
	Reply   Message
	Failure *TurnFailure
}

// OK reports whether the model produced a reply.
func (t *Turn) OK() bool { return t.Failure == nil }
