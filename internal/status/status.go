// Package status implements the single-slot user-facing status channel.
package status

// Severity classifies a status message.
type Severity int

const (
	// Loading marks an operation in progress; it must always be followed by
	// an Error or Info message from the same operation.
	Loading Severity = iota
	Error
	Info
)

// Message is one user-visible status line. The zero value is "no status".
type Message struct {
	Severity Severity
	Text     string
}

// Empty reports whether there is nothing to display.
func (m Message) Empty() bool {
	return m.Text == ""
}

// Reporter holds the most recent status message. Last write wins; there is no
// queue and no history.
type Reporter struct {
	current Message
}

func (r *Reporter) Loading(text string) { r.current = Message{Severity: Loading, Text: text} }
func (r *Reporter) Error(text string)   { r.current = Message{Severity: Error, Text: text} }
func (r *Reporter) Info(text string)    { r.current = Message{Severity: Info, Text: text} }

// Clear hides the status entirely.
func (r *Reporter) Clear() { r.current = Message{} }

// Current returns the message to display.
func (r *Reporter) Current() Message { return r.current }
