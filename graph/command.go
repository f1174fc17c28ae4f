package graph

// Result is the tagged sum of values a Node may return: Delta, Command,
// Send, MultiSend, or Interrupt. It exists purely as a marker so
// normalizeResult has a closed set of cases to switch over; callers never
// need to implement it themselves.
type Result interface {
	isResult()
}

func (Delta) isResult()     {}
func (Command) isResult()   {}
func (Send) isResult()      {}
func (MultiSend) isResult() {}
func (Interrupt) isResult() {}

// Command bundles an optional state update with an optional forced
// destination. A non-empty Goto overrides edge-based routing for the frame
// that produced it, bypassing edge evaluation entirely.
type Command struct {
	Update Delta
	Goto   string
}

// Send schedules one new frame at To, whose state is the producing frame's
// state merged with Payload. Sends bypass the producing node's edges
// entirely — routing is determined solely by To.
type Send struct {
	To      string
	Payload Delta
}

// MultiSend is an ordered list of Sends, processed in order so that the
// resulting frames are enqueued deterministically.
type MultiSend []Send

// Interrupt suspends the frame pending external input. If the Runner has an
// interrupt handler registered, the handler is invoked with the Interrupt
// and its returned delta is merged in before the same node re-runs. With no
// handler registered, an Interrupt is a clean termination at the
// pre-interrupt state.
type Interrupt struct {
	Message string
	Data    any
}

// normalizeResult coerces an arbitrary node return value into a Result.
// Any value that isn't already one of Delta, Command, Send, MultiSend, or
// Interrupt is treated as an empty Delta: misclassified returns become Delta
// by default rather than raising a fault.
func normalizeResult(v any) Result {
	switch r := v.(type) {
	case Delta:
		return r
	case Command:
		return r
	case Send:
		return r
	case MultiSend:
		return r
	case Interrupt:
		return r
	case map[string]any:
		return Delta(r)
	case nil:
		return Delta{}
	default:
		return Delta{}
	}
}
