package rules

// Set is an ordered collection of mutually exclusive rules, each carrying a
// payload (typically a handler). Rules are tried most recently matched first.
type Set[H any] struct {
	cache *MRU[string, setEntry[H]]
}

type setEntry[H any] struct {
	rule    *Rule
	payload H
}

// NewSet returns an empty rule set.
func NewSet[H any]() *Set[H] {
	return &Set[H]{cache: NewMRU[string, setEntry[H]]()}
}

// Add registers rule with its payload. Adding a rule name twice replaces the
// earlier payload.
func (s *Set[H]) Add(rule *Rule, payload H) *Set[H] {
	s.cache.Put(rule.Name(), setEntry[H]{rule: rule, payload: payload})
	return s
}

// Len returns the number of rules.
func (s *Set[H]) Len() int { return s.cache.Len() }

// Order returns rule names in the order they will next be tried.
func (s *Set[H]) Order() []string { return s.cache.Keys() }

// Match tries each rule in recency order. The first match wins and is
// promoted to the front.
func (s *Set[H]) Match(line string) (H, *Trace, bool) {
	var (
		found *Trace
		hit   setEntry[H]
	)
	s.cache.Each(func(_ string, e setEntry[H]) bool {
		if tr := e.rule.Parse(line); tr != nil {
			found, hit = tr, e
			return false
		}
		return true
	})
	if found == nil {
		var zero H
		return zero, nil, false
	}
	s.cache.Get(hit.rule.Name())
	return hit.payload, found, true
}
