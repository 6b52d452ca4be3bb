package survey

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// Kind identifies the answer contract of a question.
type Kind string

const (
	KindSingleChoice Kind = "single-choice"
	KindMultiChoice  Kind = "multi-choice"
	KindLongText     Kind = "long-text"
	KindShortText    Kind = "short-text"
	KindInteger      Kind = "integer"
)

var (
	ErrInvalidAnswerShape = errors.New("invalid answer shape")
	ErrSurveyIncomplete   = errors.New("survey incomplete")
	ErrUnknownQuestion    = errors.New("unknown question")
	ErrInvalidQuestion    = errors.New("invalid question definition")
)

// Prompt is the human-facing copy of a question.
type Prompt struct {
	Title       string
	Description string
	Placeholder string
}

// Question is one of SingleChoice, MultiChoice, Text or Integer. The set is
// closed: only this package can add kinds.
type Question interface {
	ID() string
	Kind() Kind
	Required() bool
	Prompt() Prompt
	// validate returns a nil Answer when raw carries no answer.
	validate(raw any) (Answer, error)
}

type header struct {
	id       string
	required bool
	prompt   Prompt
}

func (h header) ID() string     { return h.id }
func (h header) Required() bool { return h.required }
func (h header) Prompt() Prompt { return h.prompt }

// SingleChoice accepts exactly one of its options.
type SingleChoice struct {
	header
	options []string
}

func (SingleChoice) Kind() Kind { return KindSingleChoice }

// Options returns a copy of the allowed values in display order.
func (q SingleChoice) Options() []string { return slices.Clone(q.options) }

func (q SingleChoice) validate(raw any) (Answer, error) {
	var v string
	switch x := raw.(type) {
	case nil:
		return nil, nil
	case Choice:
		v = string(x)
	case string:
		v = x
	default:
		return nil, fmt.Errorf("expected a single option, got %T", raw)
	}
	if !slices.Contains(q.options, v) {
		return nil, fmt.Errorf("%q is not an option", v)
	}
	return Choice(v), nil
}

// MultiChoice accepts a duplicate-free subset of its options.
type MultiChoice struct {
	header
	options []string
}

func (MultiChoice) Kind() Kind { return KindMultiChoice }

// Options returns a copy of the allowed values in display order.
func (q MultiChoice) Options() []string { return slices.Clone(q.options) }

func (q MultiChoice) validate(raw any) (Answer, error) {
	var vs []string
	switch x := raw.(type) {
	case nil:
		return nil, nil
	case Choices:
		vs = x
	case []string:
		vs = x
	case []any:
		vs = make([]string, 0, len(x))
		for _, e := range x {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("expected option strings, got %T", e)
			}
			vs = append(vs, s)
		}
	default:
		return nil, fmt.Errorf("expected a list of options, got %T", raw)
	}
	seen := make(map[string]struct{}, len(vs))
	for _, v := range vs {
		if !slices.Contains(q.options, v) {
			return nil, fmt.Errorf("%q is not an option", v)
		}
		if _, dup := seen[v]; dup {
			return nil, fmt.Errorf("%q selected more than once", v)
		}
		seen[v] = struct{}{}
	}
	return Choices(slices.Clone(vs)), nil
}

// Text is a free-form answer, short (single line) or long.
type Text struct {
	header
	long bool
}

func (q Text) Kind() Kind {
	if q.long {
		return KindLongText
	}
	return KindShortText
}

func (q Text) validate(raw any) (Answer, error) {
	var v string
	switch x := raw.(type) {
	case nil:
		return nil, nil
	case TextAnswer:
		v = string(x)
	case string:
		v = x
	default:
		return nil, fmt.Errorf("expected text, got %T", raw)
	}
	if q.required && strings.TrimSpace(v) == "" {
		return nil, errors.New("answer is required")
	}
	return TextAnswer(v), nil
}

// Integer accepts whole numbers. Blank input means no answer.
type Integer struct {
	header
}

func (Integer) Kind() Kind { return KindInteger }

func (q Integer) validate(raw any) (Answer, error) {
	switch x := raw.(type) {
	case nil:
		return nil, nil
	case Number:
		return x, nil
	case json.Number:
		return parseNumber(string(x))
	case string:
		if strings.TrimSpace(x) == "" {
			return nil, nil
		}
		return parseNumber(x)
	}
	v := reflect.ValueOf(raw)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if v.Uint() > math.MaxInt64 {
			return nil, fmt.Errorf("%v is out of range", raw)
		}
		return Number(v.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return wholeNumber(v.Float())
	default:
		return nil, fmt.Errorf("expected a whole number, got %T", raw)
	}
}

func wholeNumber(f float64) (Answer, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, fmt.Errorf("%v is not a whole number", f)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, fmt.Errorf("%v is out of range", f)
	}
	return Number(int64(f)), nil
}

// parseNumber accepts decimal forms such as "3.0" when they hold a whole
// number.
func parseNumber(s string) (Answer, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Number(n), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%q is not a whole number", s)
	}
	return wholeNumber(f)
}

// Spec is the configuration form of a question, as read from the catalog
// file and served to clients.
type Spec struct {
	ID          string   `yaml:"id" json:"id"`
	Type        Kind     `yaml:"type" json:"type"`
	Prompt      string   `yaml:"prompt" json:"prompt"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Required    bool     `yaml:"required" json:"required"`
	Options     []string `yaml:"options,omitempty" json:"options,omitempty"`
	Placeholder string   `yaml:"placeholder,omitempty" json:"placeholder,omitempty"`
}

// NewQuestion builds a Question from its Spec. Options must be present,
// non-empty and unique for choice kinds and absent otherwise.
func NewQuestion(s Spec) (Question, error) {
	id := strings.TrimSpace(s.ID)
	if id == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidQuestion)
	}
	h := header{id: id, required: s.Required, prompt: Prompt{
		Title:       s.Prompt,
		Description: s.Description,
		Placeholder: s.Placeholder,
	}}
	switch s.Type {
	case KindSingleChoice, KindMultiChoice:
		if len(s.Options) == 0 {
			return nil, fmt.Errorf("%w: %s: %s needs options", ErrInvalidQuestion, id, s.Type)
		}
		seen := make(map[string]struct{}, len(s.Options))
		for _, o := range s.Options {
			if o == "" {
				return nil, fmt.Errorf("%w: %s: empty option", ErrInvalidQuestion, id)
			}
			if _, dup := seen[o]; dup {
				return nil, fmt.Errorf("%w: %s: duplicate option %q", ErrInvalidQuestion, id, o)
			}
			seen[o] = struct{}{}
		}
		if s.Type == KindSingleChoice {
			return SingleChoice{header: h, options: slices.Clone(s.Options)}, nil
		}
		return MultiChoice{header: h, options: slices.Clone(s.Options)}, nil
	}
	switch s.Type {
	case KindShortText, KindLongText, KindInteger:
		if len(s.Options) > 0 {
			return nil, fmt.Errorf("%w: %s: %s does not take options", ErrInvalidQuestion, id, s.Type)
		}
	}
	switch s.Type {
	case KindShortText:
		return Text{header: h}, nil
	case KindLongText:
		return Text{header: h, long: true}, nil
	case KindInteger:
		return Integer{header: h}, nil
	default:
		return nil, fmt.Errorf("%w: %s: unknown type %q", ErrInvalidQuestion, id, s.Type)
	}
}

// Describe converts a Question back to its Spec.
func Describe(q Question) Spec {
	p := q.Prompt()
	s := Spec{
		ID:          q.ID(),
		Type:        q.Kind(),
		Prompt:      p.Title,
		Description: p.Description,
		Required:    q.Required(),
		Placeholder: p.Placeholder,
	}
	switch c := q.(type) {
	case SingleChoice:
		s.Options = c.Options()
	case MultiChoice:
		s.Options = c.Options()
	}
	return s
}

// ValidateAnswer checks raw against the contract of q. A nil Answer with a
// nil error means raw carries no answer.
func ValidateAnswer(q Question, raw any) (Answer, error) {
	a, err := q.validate(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidAnswerShape, q.ID(), err)
	}
	return a, nil
}
