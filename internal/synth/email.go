package synth

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/2hard2touch/smart-data-sanitizer/internal/pii"
)

// email builds "<given><sep><family>@<domain>". With a hint the names come
// from the hint in its style; otherwise names are drawn and the separator is
// taken from the skeleton's local part. Digits trailing the original local
// part are kept as a count of fresh digits.
func (g *Generator) email(k pii.Skeleton, hint *pii.Identity) (string, error) {
	if k.IsZero() {
		k = defaultEmail
	}
	local, at := localSlots(k)
	if at < 0 {
		return "", fmt.Errorf("synth: email skeleton %q has no '@'", k.String())
	}

	var id pii.Identity
	if hint != nil {
		id = *hint
	}
	if id.Given == "" {
		id.Given = g.draw(g.given, "")
	}
	if id.Family == "" {
		id.Family = g.draw(g.family, "")
	}
	if hint == nil {
		id.Style.Separator = separatorOf(local)
	}

	user := LocalPart(id)
	if user == "" {
		return "", fmt.Errorf("synth: empty local part")
	}
	if hint == nil {
		for i := trailingDigits(local); i > 0; i-- {
			user += string(g.digit(0))
		}
	}
	return user + "@" + g.pick(g.domains), nil
}

// LocalPart renders an identity as an email local part in its style, folded
// to lower-case ASCII letters and digits.
func LocalPart(id pii.Identity) string {
	given, family := asciiWord(id.Given), asciiWord(id.Family)
	if id.Style.GivenInitial && given != "" {
		given = given[:1]
	}
	switch {
	case given == "":
		return family
	case family == "":
		return given
	case id.Style.FamilyFirst:
		return family + id.Style.Separator + given
	}
	return given + id.Style.Separator + family
}

func asciiWord(s string) string {
	var b strings.Builder
	for _, r := range pii.FoldAccents(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func localSlots(k pii.Skeleton) ([]pii.Slot, int) {
	slots := k.Slots()
	for i, s := range slots {
		if s.Class == pii.Literal && s.Rune == '@' {
			return slots[:i], i
		}
	}
	return nil, -1
}

func separatorOf(local []pii.Slot) string {
	for _, s := range local {
		if s.Class == pii.Literal && (s.Rune == '.' || s.Rune == '_' || s.Rune == '-') {
			return string(s.Rune)
		}
	}
	return ""
}

func trailingDigits(local []pii.Slot) int {
	n := 0
	for i := len(local) - 1; i >= 0 && local[i].Class == pii.Digit; i-- {
		n++
	}
	return n
}
