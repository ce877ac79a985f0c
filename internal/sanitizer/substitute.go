package sanitizer

import (
	"errors"
	"strings"

	"github.com/2hard2touch/smart-data-sanitizer/internal/document"
	"github.com/2hard2touch/smart-data-sanitizer/internal/pii"
)

// span is one replaced range of a site, stamped with the entry version it
// was rendered from.
type span struct {
	start, end int
	entry      *Entry
	stamp      int
}

// site is a replaced string whose entries may still be re-drawn by identity
// linking later in the walk.
type site struct {
	node     *document.String
	original string
	spans    []span
	pending  bool
}

// render rebuilds the value right to left so earlier offsets stay valid.
func (s *site) render() string {
	out := s.original
	for i := len(s.spans) - 1; i >= 0; i-- {
		sp := &s.spans[i]
		out = out[:sp.start] + sp.entry.Render(s.original[sp.start:sp.end]) + out[sp.end:]
		sp.stamp = sp.entry.stamp()
	}
	return out
}

func (s *site) stale() bool {
	for _, sp := range s.spans {
		if sp.stamp != sp.entry.stamp() {
			return true
		}
	}
	return false
}

// substitute detects and replaces PII in one string value. It returns the
// input node itself when nothing was replaced.
func (r *run) substitute(n *document.String, path pii.FieldPath, sc *scope) (document.Node, error) {
	matches, failures := r.chain.detect(r.ctx, n.Value, path)
	r.summary.DetectorFailures += failures
	if len(matches) == 0 {
		return n, nil
	}

	st := &site{original: n.Value, spans: make([]span, 0, len(matches))}
	track := false
	for _, m := range matches {
		e, err := r.cache.Resolve(m.Category, m.Text)
		if err != nil {
			return nil, withPath(err, path)
		}
		switch {
		case m.Category.Linkable() && wholeField(n.Value, m):
			err = r.linker.observeName(sc, m.Category, m.Text, e, path)
		case m.Category == pii.Email:
			err = r.linker.observeEmail(sc, m.Text, e)
		case m.Category == pii.FullName:
			r.linker.observeFullName(sc, e, st)
		}
		if err != nil {
			return nil, withPath(err, path)
		}
		if m.Category == pii.Email || m.Category.IsName() {
			track = true
		}
		st.spans = append(st.spans, span{start: m.Start, end: m.End, entry: e})
		r.summary.count(m.Category)
	}
	r.summary.FieldsWithPII++

	st.node = &document.String{Value: st.render()}
	if track {
		r.sites = append(r.sites, st)
	}
	return st.node, nil
}

// repair re-renders sites whose entries changed after they were written.
func (r *run) repair() {
	for _, st := range r.sites {
		if !st.stale() {
			continue
		}
		st.node.Value = st.render()
		if st.pending {
			r.summary.PendingRepaired++
		}
	}
}

// wholeField reports whether m covers the entire value apart from
// surrounding whitespace.
func wholeField(text string, m pii.Match) bool {
	return strings.TrimSpace(text[:m.Start]) == "" && strings.TrimSpace(text[m.End:]) == ""
}

func withPath(err error, path pii.FieldPath) error {
	var ge *GeneratorError
	if errors.As(err, &ge) && ge.Path == "" {
		ge.Path = path.String()
	}
	return err
}
