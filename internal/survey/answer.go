package survey

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Answer is a validated answer value: Choice, Choices, TextAnswer or Number.
type Answer interface {
	// Empty reports whether the answer carries no content.
	Empty() bool
	// Value returns the plain Go value for presentation.
	Value() any
	tag() string
}

// Choice answers a single-choice question.
type Choice string

// Choices answers a multi-choice question.
type Choices []string

// TextAnswer answers a short- or long-text question.
type TextAnswer string

// Number answers an integer question.
type Number int64

func (c Choice) Empty() bool     { return c == "" }
func (c Choice) Value() any      { return string(c) }
func (Choice) tag() string       { return "choice" }
func (c Choices) Empty() bool    { return len(c) == 0 }
func (c Choices) Value() any     { return []string(slices.Clone(c)) }
func (Choices) tag() string      { return "choices" }
func (t TextAnswer) Empty() bool { return strings.TrimSpace(string(t)) == "" }
func (t TextAnswer) Value() any  { return string(t) }
func (TextAnswer) tag() string   { return "text" }
func (Number) Empty() bool       { return false }
func (n Number) Value() any      { return int64(n) }
func (Number) tag() string       { return "number" }

// Answers maps question id to its stored answer. Partial sets are normal.
type Answers map[string]Answer

// Clone returns a copy that shares no mutable state with a.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for id, v := range a {
		if c, ok := v.(Choices); ok {
			v = Choices(slices.Clone(c))
		}
		out[id] = v
	}
	return out
}

// Values flattens the answers to plain values keyed by question id.
func (a Answers) Values() map[string]any {
	out := make(map[string]any, len(a))
	for _, id := range slices.Sorted(maps.Keys(a)) {
		out[id] = a[id].Value()
	}
	return out
}

type storedAnswer struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON writes each answer with its type tag so it can be restored
// without the survey schema.
func (a Answers) MarshalJSON() ([]byte, error) {
	out := make(map[string]storedAnswer, len(a))
	for id, v := range a {
		raw, err := json.Marshal(v.Value())
		if err != nil {
			return nil, err
		}
		out[id] = storedAnswer{Type: v.tag(), Value: raw}
	}
	return json.Marshal(out)
}

func (a *Answers) UnmarshalJSON(b []byte) error {
	var in map[string]storedAnswer
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	out := make(Answers, len(in))
	for id, s := range in {
		var err error
		switch s.Type {
		case "choice":
			var v string
			err = json.Unmarshal(s.Value, &v)
			out[id] = Choice(v)
		case "choices":
			var v []string
			err = json.Unmarshal(s.Value, &v)
			out[id] = Choices(v)
		case "text":
			var v string
			err = json.Unmarshal(s.Value, &v)
			out[id] = TextAnswer(v)
		case "number":
			var v int64
			err = json.Unmarshal(s.Value, &v)
			out[id] = Number(v)
		default:
			err = fmt.Errorf("unknown answer type %q", s.Type)
		}
		if err != nil {
			return fmt.Errorf("answer %s: %w", id, err)
		}
	}
	*a = out
	return nil
}
