// Package mapping decides, per imported category and tag name, whether it maps
// onto an existing entity, should be created, or should be dropped.
package mapping

import (
	"errors"
	"fmt"
	"strings"

	"github.com/schollz/closestmatch"

	"moneta/internal/models"
	"moneta/internal/textnorm"
)

// Action is the decision taken for one imported name.
type Action string

const (
	ActionMap    Action = "map"
	ActionCreate Action = "create"
	ActionIgnore Action = "ignore"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	return a == ActionMap || a == ActionCreate || a == ActionIgnore
}

var (
	ErrUnknownMapping  = errors.New("no mapping for name")
	ErrInvalidDecision = errors.New("invalid mapping decision")
)

// Row is the part of an imported transaction the resolver looks at.
type Row struct {
	Type     models.TransactionType
	Category string
	Tags     []string
}

// Existing is a category or tag the user already has. Type is empty for tags.
type Existing struct {
	ID   string
	Name string
	Type models.TransactionType
}

// CategoryMapping is the decision for one (name, type) pair.
type CategoryMapping struct {
	Name       string                 `json:"name"`
	Type       models.TransactionType `json:"type"`
	Action     Action                 `json:"action"`
	ResolvedID string                 `json:"resolved_id,omitempty"`
	Suggestion string                 `json:"suggestion,omitempty"`
	Count      int                    `json:"count"`
}

// TagMapping is the decision for one tag name.
type TagMapping struct {
	Name       string `json:"name"`
	Action     Action `json:"action"`
	ResolvedID string `json:"resolved_id,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Count      int    `json:"count"`
}

// Result lists mappings in the order their names first appeared.
type Result struct {
	Categories []CategoryMapping `json:"category_mappings"`
	Tags       []TagMapping      `json:"tag_mappings"`
}

// Resolver builds mappings. AutoCreate selects create over ignore for names
// with no existing match.
type Resolver struct {
	AutoCreate bool
}

// Resolve is deterministic: the same input always yields the same actions.
// Suggestion is only a hint and never changes an action.
func (r Resolver) Resolve(rows []Row, categories []Existing, tags []Existing) Result {
	unmatched := ActionIgnore
	if r.AutoCreate {
		unmatched = ActionCreate
	}

	catByKey := make(map[string]Existing, len(categories))
	for _, c := range categories {
		k := CategoryKey(c.Name, c.Type)
		if _, dup := catByKey[k]; !dup {
			catByKey[k] = c
		}
	}
	tagByKey := make(map[string]Existing, len(tags))
	for _, t := range tags {
		k := TagKey(t.Name)
		if _, dup := tagByKey[k]; !dup {
			tagByKey[k] = t
		}
	}
	catHints := newSuggester(categories)
	tagHints := newSuggester(tags)

	var res Result
	catIdx := make(map[string]int)
	tagIdx := make(map[string]int)
	for _, row := range rows {
		if name := textnorm.Collapse(row.Category); name != "" {
			k := CategoryKey(name, row.Type)
			if i, seen := catIdx[k]; seen {
				res.Categories[i].Count++
			} else {
				m := CategoryMapping{Name: name, Type: row.Type, Count: 1, Action: unmatched}
				if c, ok := catByKey[k]; ok {
					m.Action = ActionMap
					m.ResolvedID = c.ID
				} else {
					m.Suggestion = catHints.closest(name, row.Type)
				}
				catIdx[k] = len(res.Categories)
				res.Categories = append(res.Categories, m)
			}
		}

		for _, tag := range row.Tags {
			name := textnorm.Collapse(tag)
			if name == "" {
				continue
			}
			k := TagKey(name)
			if i, seen := tagIdx[k]; seen {
				res.Tags[i].Count++
				continue
			}
			m := TagMapping{Name: name, Count: 1, Action: unmatched}
			if t, ok := tagByKey[k]; ok {
				m.Action = ActionMap
				m.ResolvedID = t.ID
			} else {
				m.Suggestion = tagHints.closest(name, "")
			}
			tagIdx[k] = len(res.Tags)
			res.Tags = append(res.Tags, m)
		}
	}
	return res
}

// CategoryKey identifies a category name within its type partition.
func CategoryKey(name string, t models.TransactionType) string {
	return string(t) + "|" + textnorm.NameKey(name)
}

// TagKey identifies a tag name.
func TagKey(name string) string {
	return textnorm.NameKey(name)
}

// Category looks up the mapping for name in partition t.
func (r Result) Category(name string, t models.TransactionType) (CategoryMapping, bool) {
	k := CategoryKey(name, t)
	for _, m := range r.Categories {
		if CategoryKey(m.Name, m.Type) == k {
			return m, true
		}
	}
	return CategoryMapping{}, false
}

// Tag looks up the mapping for a tag name.
func (r Result) Tag(name string) (TagMapping, bool) {
	k := TagKey(name)
	for _, m := range r.Tags {
		if TagKey(m.Name) == k {
			return m, true
		}
	}
	return TagMapping{}, false
}

// Decision is a user override of one mapping before commit. Kind is
// "category" or "tag"; ID is required when Action is map.
type Decision struct {
	Kind   string                 `json:"kind" binding:"required,oneof=category tag"`
	Name   string                 `json:"name" binding:"required"`
	Type   models.TransactionType `json:"type"`
	Action Action                 `json:"action" binding:"required"`
	ID     string                 `json:"id"`
}

// ApplyDecisions returns a copy of res with decisions applied. A decision for
// a name that was never resolved is rejected.
func ApplyDecisions(res Result, decisions []Decision) (Result, error) {
	out := Result{
		Categories: append([]CategoryMapping(nil), res.Categories...),
		Tags:       append([]TagMapping(nil), res.Tags...),
	}
	for _, d := range decisions {
		if !d.Action.Valid() {
			return Result{}, fmt.Errorf("%w: action %q", ErrInvalidDecision, d.Action)
		}
		if d.Action == ActionMap && d.ID == "" {
			return Result{}, fmt.Errorf("%w: map %q requires an id", ErrInvalidDecision, d.Name)
		}
		resolvedID := ""
		if d.Action == ActionMap {
			resolvedID = d.ID
		}

		switch d.Kind {
		case "category":
			i := indexCategory(out.Categories, d.Name, d.Type)
			if i < 0 {
				return Result{}, fmt.Errorf("%w: category %q (%s)", ErrUnknownMapping, d.Name, d.Type)
			}
			out.Categories[i].Action = d.Action
			out.Categories[i].ResolvedID = resolvedID
		case "tag":
			i := indexTag(out.Tags, d.Name)
			if i < 0 {
				return Result{}, fmt.Errorf("%w: tag %q", ErrUnknownMapping, d.Name)
			}
			out.Tags[i].Action = d.Action
			out.Tags[i].ResolvedID = resolvedID
		default:
			return Result{}, fmt.Errorf("%w: kind %q", ErrInvalidDecision, d.Kind)
		}
	}
	return out, nil
}

func indexCategory(ms []CategoryMapping, name string, t models.TransactionType) int {
	k := CategoryKey(name, t)
	for i, m := range ms {
		if CategoryKey(m.Name, m.Type) == k {
			return i
		}
	}
	return -1
}

func indexTag(ms []TagMapping, name string) int {
	k := TagKey(name)
	for i, m := range ms {
		if TagKey(m.Name) == k {
			return i
		}
	}
	return -1
}

// suggester finds the closest existing name per type partition.
type suggester struct {
	byType map[models.TransactionType]*partition
}

type partition struct {
	cm       *closestmatch.ClosestMatch
	original map[string]string
}

func newSuggester(existing []Existing) *suggester {
	groups := make(map[models.TransactionType][]Existing)
	for _, e := range existing {
		groups[e.Type] = append(groups[e.Type], e)
	}
	s := &suggester{byType: make(map[models.TransactionType]*partition, len(groups))}
	for t, es := range groups {
		p := &partition{original: make(map[string]string, len(es))}
		keys := make([]string, 0, len(es))
		for _, e := range es {
			k := textnorm.Fold(e.Name)
			if _, dup := p.original[k]; dup {
				continue
			}
			p.original[k] = e.Name
			keys = append(keys, k)
		}
		p.cm = closestmatch.New(keys, []int{3, 4})
		s.byType[t] = p
	}
	return s
}

// closest ranks candidates by shared substrings over the closestmatch index.
// Equal scores go to the name listed first in existing, so the same input
// always yields the same suggestion.
func (s *suggester) closest(name string, t models.TransactionType) string {
	p, ok := s.byType[t]
	if !ok {
		return ""
	}
	scores := make(map[uint32]int)
	for sub := range substrings(textnorm.Fold(name), p.cm.SubstringSizes) {
		for id := range p.cm.SubstringToID[sub] {
			scores[id]++
		}
	}
	var best uint32
	bestScore := 0
	for id, n := range scores {
		if n > bestScore || (n == bestScore && id < best) {
			best, bestScore = id, n
		}
	}
	if bestScore == 0 {
		return ""
	}
	return p.original[p.cm.ID[best].Key]
}

// substrings splits word the way closestmatch indexes its keys.
func substrings(word string, sizes []int) map[string]struct{} {
	out := make(map[string]struct{})
	for _, n := range sizes {
		for i := 0; i < len(word)-n; i++ {
			if sub := word[i : i+n]; strings.TrimSpace(sub) != "" {
				out[sub] = struct{}{}
			}
		}
	}
	return out
}
