package recurring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComposeTitle(t *testing.T) {
	tests := []struct {
		name  string
		tpl   Template
		role  string
		label string
		want  string
	}{
		{"title", Template{Title: "VAT return", Code: "vat"}, "Accountant", "September 2026", "Prepare VAT return (Accountant) for September 2026"},
		{"code fallback", Template{Code: "vat"}, "Accountant", "2025", "Prepare vat (Accountant) for 2025"},
		{"strip label suffix", Template{Title: "VAT return for September 2026"}, "Accountant", "September 2026", "Prepare VAT return (Accountant) for September 2026"},
		{"strip bare label", Template{Title: "VAT return September 2026"}, "", "September 2026", "Prepare VAT return for September 2026"},
		{"no double prefix", Template{Title: "Prepare weekly digest"}, "Editor", "12.10.2026-18.10.2026", "Prepare weekly digest (Editor) for 12.10.2026-18.10.2026"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComposeTitle(&tt.tpl, tt.role, tt.label))
		})
	}
}
