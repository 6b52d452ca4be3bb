package survey

import (
	"fmt"
	"iter"
	"slices"
	"strings"
)

// Section groups questions shown together.
type Section struct {
	ID          string
	Title       string
	Description string
	Questions   []Question
}

// Survey is an immutable, ordered question set.
type Survey struct {
	sections []Section
	byID     map[string]Question
	order    []Question
}

// New builds a Survey. Question ids must be unique across all sections.
func New(sections []Section) (*Survey, error) {
	s := &Survey{byID: make(map[string]Question)}
	for _, sec := range sections {
		if len(sec.Questions) == 0 {
			return nil, fmt.Errorf("%w: section %q has no questions", ErrInvalidQuestion, sec.ID)
		}
		sec.Questions = slices.Clone(sec.Questions)
		for _, q := range sec.Questions {
			if _, dup := s.byID[q.ID()]; dup {
				return nil, fmt.Errorf("%w: duplicate question id %q", ErrInvalidQuestion, q.ID())
			}
			s.byID[q.ID()] = q
			s.order = append(s.order, q)
		}
		s.sections = append(s.sections, sec)
	}
	return s, nil
}

// Sections returns the sections in display order.
func (s *Survey) Sections() []Section { return slices.Clone(s.sections) }

// Questions returns every question in display order.
func (s *Survey) Questions() []Question { return slices.Clone(s.order) }

// Question looks a question up by id.
func (s *Survey) Question(id string) (Question, bool) {
	q, ok := s.byID[id]
	return q, ok
}

// ValidateAnswer validates raw against the question with the given id.
func (s *Survey) ValidateAnswer(questionID string, raw any) (Answer, error) {
	q, ok := s.byID[questionID]
	if !ok {
		return nil, fmt.Errorf("%w: %w: %s", ErrInvalidAnswerShape, ErrUnknownQuestion, questionID)
	}
	return ValidateAnswer(q, raw)
}

// satisfied reports whether a holds a valid, non-empty answer to q.
func satisfied(q Question, a Answer) bool {
	if a == nil || a.Empty() {
		return false
	}
	v, err := q.validate(a)
	return err == nil && v != nil && !v.Empty()
}

// UnansweredRequired yields the ids of required questions without a valid
// answer, in display order. The sequence may be ranged over repeatedly.
func (s *Survey) UnansweredRequired(answers Answers) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, q := range s.order {
			if !q.Required() || satisfied(q, answers[q.ID()]) {
				continue
			}
			if !yield(q.ID()) {
				return
			}
		}
	}
}

// IsComplete reports whether every required question has a valid answer.
func (s *Survey) IsComplete(answers Answers) bool {
	for range s.UnansweredRequired(answers) {
		return false
	}
	return true
}

// IncompleteError lists the required questions still missing an answer.
type IncompleteError struct {
	Missing []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%s: missing %s", ErrSurveyIncomplete, strings.Join(e.Missing, ", "))
}

func (e *IncompleteError) Is(target error) bool { return target == ErrSurveyIncomplete }

// Check returns an *IncompleteError when required answers are missing.
func (s *Survey) Check(answers Answers) error {
	missing := slices.Collect(s.UnansweredRequired(answers))
	if len(missing) > 0 {
		return &IncompleteError{Missing: missing}
	}
	return nil
}

// Progress summarises how far a member is through the survey.
type Progress struct {
	AnsweredRequired int `json:"answered_required"`
	TotalRequired    int `json:"total_required"`
	Percent          int `json:"percent"`
	// CurrentSection is the 1-based section holding the first missing
	// required answer, or TotalSections once nothing is missing.
	CurrentSection int `json:"current_section"`
	TotalSections  int `json:"total_sections"`
}

func (s *Survey) Progress(answers Answers) Progress {
	p := Progress{TotalSections: len(s.sections)}
	for i, sec := range s.sections {
		for _, q := range sec.Questions {
			if !q.Required() {
				continue
			}
			p.TotalRequired++
			if satisfied(q, answers[q.ID()]) {
				p.AnsweredRequired++
			} else if p.CurrentSection == 0 {
				p.CurrentSection = i + 1
			}
		}
	}
	if p.CurrentSection == 0 {
		p.CurrentSection = p.TotalSections
	}
	if p.TotalRequired == 0 {
		p.Percent = 100
	} else {
		p.Percent = p.AnsweredRequired * 100 / p.TotalRequired
	}
	return p
}
