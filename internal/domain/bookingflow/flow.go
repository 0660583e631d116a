package bookingflow

import (
	"bytes"
	"encoding/json"
)

// Flow is a normalized ordered step sequence. The zero value is the default flow.
type Flow []Step

// DefaultFlow is used when a salon has no usable configuration.
func DefaultFlow() Flow {
	return Flow{StepService, StepTechnician, StepTime, StepConfirm}
}

func (f Flow) steps() Flow {
	if len(f) == 0 {
		return DefaultFlow()
	}
	return f
}

// Steps returns a copy of the effective sequence.
func (f Flow) Steps() []Step {
	return append([]Step(nil), f.steps()...)
}

// Normalize turns any stored step list into a valid flow: unknown and duplicate
// ids are dropped, missing required steps are inserted at their canonical
// position and confirm is always last. Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw []string) Flow {
	seen := make(map[Step]bool, len(canonicalOrder))
	var ordered []Step
	for _, r := range raw {
		s, ok := ParseStep(r)
		if !ok || seen[s] {
			continue
		}
		seen[s] = true
		if s != StepConfirm {
			ordered = append(ordered, s)
		}
	}
	if len(seen) == 0 {
		return DefaultFlow()
	}

	for _, req := range canonicalOrder {
		if !req.IsRequired() || req == StepConfirm || seen[req] {
			continue
		}
		ordered = insertAtCanonical(ordered, req)
		seen[req] = true
	}

	return append(Flow(ordered), StepConfirm)
}

// insertAtCanonical places s after the last step that canonically precedes it.
func insertAtCanonical(ordered []Step, s Step) []Step {
	pos := 0
	idx := s.canonicalIndex()
	for i, existing := range ordered {
		if existing.canonicalIndex() < idx {
			pos = i + 1
		}
	}
	out := make([]Step, 0, len(ordered)+1)
	out = append(out, ordered[:pos]...)
	out = append(out, s)
	return append(out, ordered[pos:]...)
}

type storedFlow struct {
	Steps []json.RawMessage `json:"steps"`
}

// ParseStored decodes the salons.booking_flow column. It accepts a JSON array
// of step ids or an object with a "steps" array; anything else yields the default.
func ParseStored(raw []byte) Flow {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return DefaultFlow()
	}

	var items []json.RawMessage
	switch raw[0] {
	case '[':
		if err := json.Unmarshal(raw, &items); err != nil {
			return DefaultFlow()
		}
	case '{':
		var obj storedFlow
		if err := json.Unmarshal(raw, &obj); err != nil {
			return DefaultFlow()
		}
		items = obj.Steps
	default:
		return DefaultFlow()
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		var id string
		if err := json.Unmarshal(item, &id); err == nil {
			ids = append(ids, id)
		}
	}
	return Normalize(ids)
}

// FirstStep returns the entry step of the flow.
func FirstStep(flow Flow) Step {
	return flow.steps()[0]
}

// StepIndex returns the zero-based position of step, or -1 when absent.
func StepIndex(step Step, flow Flow) int {
	for i, s := range flow.steps() {
		if s == step {
			return i
		}
	}
	return -1
}

// NextStep returns the step after cur; false at the end or when cur is absent.
func NextStep(cur Step, flow Flow) (Step, bool) {
	steps := flow.steps()
	i := StepIndex(cur, steps)
	if i < 0 || i+1 >= len(steps) {
		return "", false
	}
	return steps[i+1], true
}

// PrevStep returns the step before cur; false at the start or when cur is absent.
func PrevStep(cur Step, flow Flow) (Step, bool) {
	steps := flow.steps()
	i := StepIndex(cur, steps)
	if i <= 0 {
		return "", false
	}
	return steps[i-1], true
}
