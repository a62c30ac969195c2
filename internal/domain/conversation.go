package domain

// State holds the conversation log plus the two scalar flags the presentation
// layer needs: whether a request is in flight and the last error text. The log
// is append-only; messages are never removed or rewritten.
//
// State is not safe for concurrent use. All mutation happens on the single
// event loop that owns it.
type State struct {
	messages []Message
	loading  bool
	lastErr  string
}

// NewState creates a State seeded with the given messages, typically the
// initial disclaimer notice.
func NewState(initial ...Message) *State {
	s := &State{}
	s.messages = append(s.messages, initial...)
	return s
}

// Append adds a message to the log. Sources on non-assistant messages are
// discarded to preserve the invariant that only answers carry citations.
func (s *State) Append(m Message) {
	if m.Role != RoleAssistant {
		m.Sources = nil
	}
	s.messages = append(s.messages, m)
}

// Begin marks a request as in flight and clears the last error. It reports
// false if another request is already outstanding; exactly one request may be
// in flight at a time.
func (s *State) Begin() bool {
	if s.loading {
		return false
	}
	s.loading = true
	s.lastErr = ""
	return true
}

// Finish clears the in-flight flag and records the error text, if any.
func (s *State) Finish(errText string) {
	s.loading = false
	s.lastErr = errText
}

// Loading reports whether a request is outstanding.
func (s *State) Loading() bool {
	return s.loading
}

// Err returns the error text from the most recent failed request, or "".
func (s *State) Err() string {
	return s.lastErr
}

// Messages returns a copy of the conversation log in order.
func (s *State) Messages() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// HasDialogue reports whether a real user or assistant turn exists yet.
// Starter prompts are shown only while this is false.
func (s *State) HasDialogue() bool {
	for _, m := range s.messages {
		if m.Role == RoleUser || m.Role == RoleAssistant {
			return true
		}
	}
	return false
}
