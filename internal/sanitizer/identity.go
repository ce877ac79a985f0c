package sanitizer

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/2hard2touch/smart-data-sanitizer/internal/pii"
)

// IdentityGroup binds a given-name entry and a family-name entry that were
// seen together in one object to a single synthetic person. Emails whose
// local part was built from the original names are re-derived from the
// synthetic ones and recorded here.
type IdentityGroup struct {
	ID     string
	Given  *Entry
	Family *Entry
	Emails []*Entry
}

// Identity returns the synthetic person in the given email style.
func (g *IdentityGroup) Identity(style pii.EmailStyle) pii.Identity {
	return pii.Identity{Given: g.Given.Value, Family: g.Family.Value, Style: style}
}

type linkState uint8

const (
	unlinked linkState = iota
	partiallyLinked
	linked
)

// scope tracks the identity of one record or array element.
type scope struct {
	state      linkState
	given      *Entry
	family     *Entry
	givenText  string
	familyText string
	group      *IdentityGroup
	emails     []scopedEmail
	pending    []*site
}

type scopedEmail struct {
	entry *Entry
	local string
}

func (s *scope) side(c pii.Category) (**Entry, *string) {
	if c == pii.GivenName {
		return &s.given, &s.givenText
	}
	return &s.family, &s.familyText
}

// linker applies cross-field identity rules for one sanitization call.
type linker struct {
	cache     *Cache
	logger    zerolog.Logger
	groups    map[[2]*Entry]*IdentityGroup
	conflicts int
}

func newLinker(cache *Cache, logger zerolog.Logger) *linker {
	return &linker{cache: cache, logger: logger, groups: make(map[[2]*Entry]*IdentityGroup)}
}

// observeName records a whole-field given or family name in sc. The second
// side seen in a scope links the pair. A different value for a side that
// is already known is a conflict: the first mapping is kept.
func (l *linker) observeName(sc *scope, category pii.Category, original string, e *Entry, path pii.FieldPath) error {
	known, text := sc.side(category)
	switch {
	case *known == e:
		return nil
	case *known != nil:
		l.conflicts++
		l.logger.Info().
			Str("path", path.String()).
			Str("category", string(category)).
			Msg("identity conflict, keeping first mapping")
		return nil
	}
	*known, *text = e, strings.TrimSpace(original)
	if sc.state == unlinked {
		sc.state = partiallyLinked
		return nil
	}
	return l.link(sc)
}

// observeEmail records an email seen in sc and derives it at once when the
// object's identity is already linked.
func (l *linker) observeEmail(sc *scope, original string, e *Entry) error {
	local, _, _ := strings.Cut(strings.TrimSpace(original), "@")
	em := scopedEmail{entry: e, local: local}
	sc.emails = append(sc.emails, em)
	if sc.state != linked {
		return nil
	}
	return l.derive(sc, em)
}

// observeFullName marks a free-text name that shares the known half of a
// partially linked object; it is revisited once the object links.
func (l *linker) observeFullName(sc *scope, e *Entry, st *site) {
	if sc.state != partiallyLinked || st.pending {
		return
	}
	for _, p := range e.parts {
		if p == sc.given || p == sc.family {
			st.pending = true
			sc.pending = append(sc.pending, st)
			return
		}
	}
}

func (l *linker) link(sc *scope) error {
	g, err := l.group(sc.given, sc.family)
	if err != nil {
		return err
	}
	sc.group = g
	sc.state = linked
	for _, em := range sc.emails {
		if err := l.derive(sc, em); err != nil {
			return err
		}
	}
	return nil
}

// group returns the identity group of a (given, family) pair. The family
// replacement is re-drawn once so that it is chosen knowing the given
// replacement; entries already bound to another group keep their values.
func (l *linker) group(given, family *Entry) (*IdentityGroup, error) {
	key := [2]*Entry{given, family}
	if g, ok := l.groups[key]; ok {
		return g, nil
	}
	if !family.bound {
		if err := l.cache.restamp(family, &pii.Identity{Given: given.Value}); err != nil {
			return nil, err
		}
	}
	given.bound, family.bound = true, true
	g := &IdentityGroup{ID: uuid.NewString(), Given: given, Family: family}
	l.groups[key] = g
	return g, nil
}

func (l *linker) derive(sc *scope, em scopedEmail) error {
	style, ok := matchStyle(em.local, sc.givenText, sc.familyText)
	if !ok {
		return nil
	}
	switch em.entry.derived {
	case sc.group:
		return nil
	case nil:
	default:
		l.conflicts++
		l.logger.Info().
			Str("identity", sc.group.ID).
			Msg("email already derived from another identity, keeping first mapping")
		return nil
	}
	id := sc.group.Identity(style)
	if err := l.cache.restamp(em.entry, &id); err != nil {
		return err
	}
	em.entry.derived = sc.group
	sc.group.Emails = append(sc.group.Emails, em.entry)
	return nil
}

// matchStyle reports whether an email local part was built from the given
// and family names, and how. Trailing digits are ignored.
func matchStyle(local, given, family string) (pii.EmailStyle, bool) {
	l := strings.TrimRightFunc(pii.FoldAccents(local), unicode.IsDigit)
	g, f := foldWord(given), foldWord(family)
	if l == "" || g == "" || f == "" {
		return pii.EmailStyle{}, false
	}
	for _, sep := range []string{".", "_", "-", ""} {
		switch l {
		case g + sep + f:
			return pii.EmailStyle{Separator: sep}, true
		case f + sep + g:
			return pii.EmailStyle{Separator: sep, FamilyFirst: true}, true
		}
		if l == g[:1]+sep+f {
			return pii.EmailStyle{Separator: sep, GivenInitial: true}, true
		}
	}
	return pii.EmailStyle{}, false
}

func foldWord(s string) string {
	var b strings.Builder
	for _, r := range pii.FoldAccents(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
