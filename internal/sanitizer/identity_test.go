package sanitizer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/2hard2touch/smart-data-sanitizer/internal/pii"
)

func TestMatchStyle(t *testing.T) {
	tests := []struct {
		local string
		want  pii.EmailStyle
		ok    bool
	}{
		{local: "jane.smith", want: pii.EmailStyle{Separator: "."}, ok: true},
		{local: "Jane_Smith", want: pii.EmailStyle{Separator: "_"}, ok: true},
		{local: "smith-jane", want: pii.EmailStyle{Separator: "-", FamilyFirst: true}, ok: true},
		{local: "janesmith42", want: pii.EmailStyle{}, ok: true},
		{local: "jsmith", want: pii.EmailStyle{GivenInitial: true}, ok: true},
		{local: "j.smith", want: pii.EmailStyle{Separator: ".", GivenInitial: true}, ok: true},
		{local: "support"},
		{local: "jane"},
	}
	for _, tt := range tests {
		t.Run(tt.local, func(t *testing.T) {
			got, ok := matchStyle(tt.local, "Jane", "Smith")
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchStyleFoldsAccents(t *testing.T) {
	got, ok := matchStyle("zoe.muller", "Zoë", "Müller")
	assert.True(t, ok)
	assert.Equal(t, ".", got.Separator)
}
