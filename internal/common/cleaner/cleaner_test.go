package cleaner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanToText(t *testing.T) {
	c := NewStrictCleaner()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "Go developer", "Go developer"},
		{"strips tags", "<p>Build <b>APIs</b> in Go</p>", "Build APIs in Go"},
		{"keeps block breaks", "<p>First</p><p>Second</p>", "First\nSecond"},
		{"unescapes entities", "R&amp;D &lt;team&gt;", "R&D <team>"},
		{"drops scripts", "<script>alert(1)</script>Safe", "Safe"},
		{"collapses blank lines", "a<br><br><br><br>b", "a\n\nb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.CleanToText(tt.in))
		})
	}
}
