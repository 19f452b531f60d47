package jobs

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTypeValid(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		want bool
	}{
		{name: "raw", typ: TypeRaw, want: true},
		{name: "normalize", typ: TypeNormalize, want: true},
		{name: "enrich", typ: TypeEnrich, want: true},
		{name: "publish", typ: TypePublish, want: true},
		{name: "stock refresh", typ: TypeStockRefresh, want: true},
		{name: "empty", typ: Type(""), want: false},
		{name: "unknown", typ: Type("REINDEX"), want: false},
		{name: "lowercase is not a known type", typ: Type("raw"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.Valid())
		})
	}
}

func TestTypesCoversAllStages(t *testing.T) {
	all := Types()
	assert.Len(t, all, 5)
	for _, typ := range all {
		assert.True(t, typ.Valid())
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusDone.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestTruncateError(t *testing.T) {
	tests := []struct {
		name    string
		message string
		wantLen int
	}{
		{name: "short message untouched", message: "boom", wantLen: 4},
		{name: "empty message", message: "", wantLen: 0},
		{name: "exactly at limit", message: strings.Repeat("x", maxErrorLength), wantLen: maxErrorLength},
		{name: "over limit is cut", message: strings.Repeat("x", maxErrorLength*3), wantLen: maxErrorLength},
		{
			// "é" is two bytes; placing it across the limit must cut
			// before the whole rune, never through it.
			name:    "multibyte rune straddling the limit",
			message: strings.Repeat("x", maxErrorLength-1) + "été",
			wantLen: maxErrorLength - 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateError(tt.message)
			assert.Len(t, got, tt.wantLen)
			assert.True(t, strings.HasPrefix(tt.message, got))
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestClampProgress(t *testing.T) {
	tests := []struct {
		name    string
		percent int
		want    int
	}{
		{name: "negative clamps to zero", percent: -5, want: 0},
		{name: "zero", percent: 0, want: 0},
		{name: "mid range passes through", percent: 42, want: 42},
		{name: "full", percent: 100, want: 100},
		{name: "over full clamps to 100", percent: 250, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, clampProgress(tt.percent))
		})
	}
}
