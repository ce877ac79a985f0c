package classifier

import (
	"context"
	"iter"
	"maps"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/2hard2touch/smart-data-sanitizer/internal/pii"
	"github.com/2hard2touch/smart-data-sanitizer/patterns"
)

// Scores assigned by the NameRecognizer.
const (
	fieldHintScore = 0.85
	fullNameScore  = 0.85
	namePartScore  = 0.6
)

// maxNameTokens bounds how many words a hinted field may hold and still be
// treated as a person's name.
const maxNameTokens = 5

// defaultFieldHints maps normalised field names (lower case, letters and
// digits only) to the name category their whole value belongs to.
var defaultFieldHints = map[string]pii.Category{
	"name":         pii.FullName,
	"fullname":     pii.FullName,
	"customername": pii.FullName,
	"contactname":  pii.FullName,
	"personname":   pii.FullName,
	"displayname":  pii.FullName,
	"firstname":    pii.GivenName,
	"fname":        pii.GivenName,
	"givenname":    pii.GivenName,
	"first":        pii.GivenName,
	"forename":     pii.GivenName,
	"lastname":     pii.FamilyName,
	"lname":        pii.FamilyName,
	"surname":      pii.FamilyName,
	"familyname":   pii.FamilyName,
	"last":         pii.FamilyName,
}

var honorifics = map[string]bool{"mr": true, "mrs": true, "ms": true, "miss": true, "dr": true, "prof": true}

// NameRecognizer is the statistical entity detector for person names. Fields
// whose key names a name (first_name, surname, full_name, ...) match as a
// whole; other text is scanned for capitalised dictionary names.
type NameRecognizer struct {
	given     map[string]bool
	family    map[string]bool
	ambiguous map[string]bool
	hints     map[string]pii.Category
	only      map[pii.Category]bool
}

// NameOption configures a NameRecognizer.
type NameOption func(*NameRecognizer)

// WithFieldHint maps an additional field name to a name category.
func WithFieldHint(field string, category pii.Category) NameOption {
	return func(r *NameRecognizer) { r.hints[normalizeField(field)] = category }
}

// WithNameCategories restricts the categories the recognizer reports.
func WithNameCategories(categories ...pii.Category) NameOption {
	return func(r *NameRecognizer) {
		r.only = make(map[pii.Category]bool, len(categories))
		for _, c := range categories {
			r.only[c] = true
		}
	}
}

// NewNameRecognizer builds a recognizer over the given dictionaries.
func NewNameRecognizer(names *patterns.Names, opts ...NameOption) *NameRecognizer {
	r := &NameRecognizer{
		given:     toSet(names.Given),
		family:    toSet(names.Family),
		ambiguous: toSet(names.Ambiguous),
		hints:     make(map[string]pii.Category, len(defaultFieldHints)),
	}
	for k, v := range defaultFieldHints {
		r.hints[k] = v
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// DefaultNameRecognizer uses the embedded dictionaries.
func DefaultNameRecognizer(opts ...NameOption) (*NameRecognizer, error) {
	names, err := patterns.DefaultNames()
	if err != nil {
		return nil, err
	}
	return NewNameRecognizer(names, opts...), nil
}

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// Name implements pii.Detector.
func (r *NameRecognizer) Name() string { return "names" }

// Detect implements pii.Detector.
func (r *NameRecognizer) Detect(_ context.Context, text string, path pii.FieldPath) ([]pii.Match, error) {
	if category, ok := r.hints[normalizeField(path.Field())]; ok {
		if m, ok := fieldMatch(text, path, category); ok {
			m.Detector = r.Name()
			return r.keep([]pii.Match{m}), nil
		}
	}
	return r.keep(r.scanText(text, path)), nil
}

func (r *NameRecognizer) keep(matches []pii.Match) []pii.Match {
	if r.only == nil {
		return matches
	}
	out := matches[:0]
	for _, m := range matches {
		if r.only[m.Category] {
			out = append(out, m)
		}
	}
	return out
}

// Prime implements pii.Primer. The words of every hinted name field in the
// document join the dictionaries of the returned recognizer, so free text
// mentioning those people is found even when the names are not in the
// embedded lists. Ambiguous words and initials are not added.
func (r *NameRecognizer) Prime(fields iter.Seq2[pii.FieldPath, string]) pii.Detector {
	given, family := map[string]bool{}, map[string]bool{}
	for path, text := range fields {
		category, ok := r.hints[normalizeField(path.Field())]
		if !ok {
			continue
		}
		m, ok := fieldMatch(text, path, category)
		if !ok {
			continue
		}
		var words []string
		for _, t := range tokenize(m.Text) {
			if len([]rune(t.word)) > 1 && !honorifics[t.word] {
				words = append(words, t.word)
			}
		}
		switch {
		case len(words) == 0:
		case m.Category == pii.FamilyName:
			addNew(family, r.family, words...)
		case m.Category == pii.FullName && len(words) > 1:
			addNew(given, r.given, words[:len(words)-1]...)
			addNew(family, r.family, words[len(words)-1])
		default:
			addNew(given, r.given, words...)
		}
	}
	for w := range given {
		if r.ambiguous[w] {
			delete(given, w)
		}
	}
	if len(given) == 0 && len(family) == 0 {
		return r
	}
	primed := *r
	primed.given = maps.Clone(r.given)
	primed.family = maps.Clone(r.family)
	maps.Copy(primed.given, given)
	maps.Copy(primed.family, family)
	return &primed
}

func addNew(dst, known map[string]bool, words ...string) {
	for _, w := range words {
		if !known[w] {
			dst[w] = true
		}
	}
}

// fieldMatch treats the whole trimmed value of a hinted field as one name.
// A single word in a full-name field is a given name.
func fieldMatch(text string, path pii.FieldPath, category pii.Category) (pii.Match, bool) {
	start := len(text) - len(strings.TrimLeftFunc(text, unicode.IsSpace))
	end := len(strings.TrimRightFunc(text, unicode.IsSpace))
	if start >= end {
		return pii.Match{}, false
	}
	value := text[start:end]
	if !looksLikeName(value) {
		return pii.Match{}, false
	}
	if category == pii.FullName && len(strings.Fields(value)) == 1 {
		category = pii.GivenName
	}
	return pii.Match{
		Category:   category,
		Start:      start,
		End:        end,
		Text:       value,
		Path:       path,
		Confidence: fieldHintScore,
	}, true
}

func looksLikeName(s string) bool {
	if len(strings.Fields(s)) > maxNameTokens || utf8.RuneCountInString(s) > 100 {
		return false
	}
	letters := 0
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsSpace(r), r == '-', r == '\'', r == '’', r == '.':
		default:
			return false
		}
	}
	return letters > 0
}

type token struct {
	start, end int
	word       string
	pattern    pii.CasePattern
}

// scanText finds "Given [Middle] Family" sequences, lone given names and
// honorific-prefixed family names among capitalised words. Ambiguous given
// names ("May", "Will") only count when a family name follows.
func (r *NameRecognizer) scanText(text string, path pii.FieldPath) []pii.Match {
	toks := tokenize(text)
	var out []pii.Match
	emit := func(c pii.Category, from, to int, score float64) {
		out = append(out, pii.Match{
			Category:   c,
			Start:      toks[from].start,
			End:        toks[to].end,
			Text:       text[toks[from].start:toks[to].end],
			Path:       path,
			Confidence: score,
			Detector:   r.Name(),
		})
	}
	joined := func(a, b int) bool {
		return b < len(toks) && nameCased(toks[b]) && onlySpace(text[toks[a].end:toks[b].start])
	}

	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if !nameCased(t) {
			continue
		}
		if r.given[t.word] || r.ambiguous[t.word] {
			switch {
			case joined(i, i+1) && r.given[toks[i+1].word] && joined(i+1, i+2) && r.family[toks[i+2].word]:
				emit(pii.FullName, i, i+2, fullNameScore)
				i += 2
			case joined(i, i+1) && r.family[toks[i+1].word]:
				emit(pii.FullName, i, i+1, fullNameScore)
				i++
			case r.given[t.word]:
				emit(pii.GivenName, i, i, namePartScore)
			}
			continue
		}
		if r.family[t.word] && i > 0 && honorifics[toks[i-1].word] &&
			onlySpace(strings.TrimPrefix(text[toks[i-1].end:t.start], ".")) {
			emit(pii.FamilyName, i, i, namePartScore)
		}
	}
	return out
}

// tokenize splits text into letter runs. Hyphens and apostrophes inside a
// word are kept; a trailing possessive "'s" is dropped from the token.
func tokenize(text string) []token {
	var toks []token
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !unicode.IsLetter(r) {
			i += size
			continue
		}
		start := i
		i += size
		for i < len(text) {
			r, size = utf8.DecodeRuneInString(text[i:])
			if unicode.IsLetter(r) {
				i += size
				continue
			}
			if r == '-' || r == '\'' || r == '’' {
				next, _ := utf8.DecodeRuneInString(text[i+size:])
				if i+size < len(text) && unicode.IsLetter(next) {
					i += size
					continue
				}
			}
			break
		}
		end := i
		for _, suffix := range []string{"'s", "’s", "'S", "’S"} {
			if strings.HasSuffix(text[start:end], suffix) && end-len(suffix) > start {
				end -= len(suffix)
				break
			}
		}
		word := text[start:end]
		toks = append(toks, token{start: start, end: end, word: strings.ToLower(word), pattern: pii.CaseOf(word)})
	}
	return toks
}

func nameCased(t token) bool {
	return t.pattern == pii.CaseCapitalized || (t.pattern == pii.CaseUpper && t.end-t.start > 1)
}

func onlySpace(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\u00a0' {
			return false
		}
	}
	return true
}

// normalizeField lower-cases a field name and drops separators, so
// "First-Name", "first_name" and "firstName" compare equal.
func normalizeField(field string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(field) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
