package catalog

import "fmt"

// ConfigError reports a divergence between the deployed question catalog and
// the data referencing it (unknown search type or question id). It indicates
// a deployment bug, not bad user input.
type ConfigError struct {
	SearchType string
	QuestionID int
}

func (e *ConfigError) Error() string {
	if e.QuestionID != 0 {
		return fmt.Sprintf("catalog: question %d not found in set %q", e.QuestionID, e.SearchType)
	}
	return fmt.Sprintf("catalog: unknown search type %q", e.SearchType)
}

// Option is a single selectable answer. Label is what the user sees and
// sends back; Value is what gets stored and fed into the search query.
type Option struct {
	Label string
	Value string
}

// Question is one multiple-choice step of a questionnaire.
type Question struct {
	ID       int
	Prompt   string
	Property string
	Options  []Option
}

// Resolve maps a user-supplied label to its stored value.
func (q Question) Resolve(label string) (string, bool) {
	for _, opt := range q.Options {
		if opt.Label == label {
			return opt.Value, true
		}
	}
	return "", false
}

// Labels returns the option labels in presentation order.
func (q Question) Labels() []string {
	labels := make([]string, 0, len(q.Options))
	for _, opt := range q.Options {
		labels = append(labels, opt.Label)
	}
	return labels
}

// QuestionSet is the ordered questionnaire for one search type.
type QuestionSet struct {
	Type      string
	Order     []int
	Questions map[int]Question
}

// First returns the id of the opening question.
func (s QuestionSet) First() int {
	return s.Order[0]
}

// Question looks up a question by id.
func (s QuestionSet) Question(id int) (Question, error) {
	q, ok := s.Questions[id]
	if !ok {
		return Question{}, &ConfigError{SearchType: s.Type, QuestionID: id}
	}
	return q, nil
}

// Next returns the question id following the given one, or ok=false when the
// given id is the last in the order. An id outside the order is a ConfigError.
func (s QuestionSet) Next(id int) (next int, ok bool, err error) {
	for i, cur := range s.Order {
		if cur == id {
			if i == len(s.Order)-1 {
				return 0, false, nil
			}
			return s.Order[i+1], true, nil
		}
	}
	return 0, false, &ConfigError{SearchType: s.Type, QuestionID: id}
}

// Catalog is the read-only set of questionnaires and their trigger phrases.
type Catalog struct {
	sets     map[string]QuestionSet
	triggers map[string]string
}

// New builds a catalog and validates its invariants: every set has a
// non-empty order, only positive ids, no repeated ids, and every ordered id
// resolves to a question. Non-positive ids are rejected because conversation
// records reserve them as sentinel statuses.
func New(sets []QuestionSet, triggers map[string]string) (*Catalog, error) {
	byType := make(map[string]QuestionSet, len(sets))
	for _, set := range sets {
		if set.Type == "" {
			return nil, fmt.Errorf("catalog: question set with empty type")
		}
		if len(set.Order) == 0 {
			return nil, fmt.Errorf("catalog: question set %q has empty order", set.Type)
		}
		seen := make(map[int]struct{}, len(set.Order))
		for _, id := range set.Order {
			if id <= 0 {
				return nil, fmt.Errorf("catalog: question set %q has non-positive id %d", set.Type, id)
			}
			if _, dup := seen[id]; dup {
				return nil, fmt.Errorf("catalog: question set %q repeats id %d", set.Type, id)
			}
			seen[id] = struct{}{}
			if _, ok := set.Questions[id]; !ok {
				return nil, &ConfigError{SearchType: set.Type, QuestionID: id}
			}
		}
		byType[set.Type] = set
	}
	for phrase, searchType := range triggers {
		if _, ok := byType[searchType]; !ok {
			return nil, fmt.Errorf("catalog: trigger %q references unknown type %q", phrase, searchType)
		}
	}
	return &Catalog{sets: byType, triggers: triggers}, nil
}

// MustNew is New but panics on invalid data. Intended for the built-in catalog.
func MustNew(sets []QuestionSet, triggers map[string]string) *Catalog {
	c, err := New(sets, triggers)
	if err != nil {
		panic(err)
	}
	return c
}

// SetFor returns the questionnaire governing the given search type.
func (c *Catalog) SetFor(searchType string) (QuestionSet, error) {
	set, ok := c.sets[searchType]
	if !ok {
		return QuestionSet{}, &ConfigError{SearchType: searchType}
	}
	return set, nil
}

// TypeForTrigger maps an exact trigger phrase to its search type.
func (c *Catalog) TypeForTrigger(phrase string) (string, bool) {
	searchType, ok := c.triggers[phrase]
	return searchType, ok
}
