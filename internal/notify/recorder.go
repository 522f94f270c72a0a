package notify

import "fmt"

// Event is one recorded notification.
type Event[I any] struct {
	Type        string // "begin", "end" or "data"
	Kind        Kind   // set for begin/end
	Scope       Scope[I]
	TopLeft     I
	BottomRight I
}

func (e Event[I]) String() string {
	switch e.Type {
	case "data":
		return fmt.Sprintf("data(%v..%v)", e.TopLeft, e.BottomRight)
	default:
		return fmt.Sprintf("%s_%s(%d..%d)", e.Type, e.Kind, e.Scope.First, e.Scope.Last)
	}
}

// Recorder is an Observer that keeps every notification in order.
// Besides tests, the CLI uses it to print what a feed update changed.
type Recorder[I any] struct {
	Events []Event[I]
}

func (r *Recorder[I]) BeginChange(kind Kind, scope Scope[I]) {
	r.Events = append(r.Events, Event[I]{Type: "begin", Kind: kind, Scope: scope})
}

func (r *Recorder[I]) EndChange(kind Kind, scope Scope[I]) {
	r.Events = append(r.Events, Event[I]{Type: "end", Kind: kind, Scope: scope})
}

func (r *Recorder[I]) DataChanged(topLeft, bottomRight I) {
	r.Events = append(r.Events, Event[I]{Type: "data", TopLeft: topLeft, BottomRight: bottomRight})
}

// Data returns only the DataChanged events.
func (r *Recorder[I]) Data() []Event[I] {
	var out []Event[I]
	for _, e := range r.Events {
		if e.Type == "data" {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the number of recorded events of the given type ("begin", "end", "data").
func (r *Recorder[I]) Count(eventType string) int {
	n := 0
	for _, e := range r.Events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

// Reset drops all recorded events.
func (r *Recorder[I]) Reset() {
	r.Events = nil
}

// Balanced reports whether every BeginChange is matched by an EndChange of the
// same kind, without interleaving.
func (r *Recorder[I]) Balanced() bool {
	open := Kind(0)
	for _, e := range r.Events {
		switch e.Type {
		case "begin":
			if open != 0 {
				return false
			}
			open = e.Kind
		case "end":
			if open != e.Kind {
				return false
			}
			open = 0
		}
	}
	return open == 0
}
