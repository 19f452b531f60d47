package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mytankugift/catalog-sync/internal/jobs"
)

func TestJobCursorRoundTrip(t *testing.T) {
	original := &jobs.Cursor{
		CreatedAt: time.Date(2025, 6, 1, 12, 30, 0, 123456789, time.UTC),
		ID:        "3f1b2a6e-0000-4000-8000-000000000001",
	}

	decoded, err := DecodeJobCursor(EncodeJobCursor(original))
	require.NoError(t, err)
	require.NotNil(t, decoded)

	assert.Equal(t, original.CreatedAt.UnixNano(), decoded.CreatedAt.UnixNano())
	assert.Equal(t, original.ID, decoded.ID)
}

func TestDecodeJobCursorEmpty(t *testing.T) {
	cursor, err := DecodeJobCursor("")
	require.NoError(t, err)
	assert.Nil(t, cursor, "an empty cursor means first page")
}

func TestDecodeJobCursorInvalid(t *testing.T) {
	tests := []struct {
		name   string
		cursor string
	}{
		{name: "not base64", cursor: "not-base64!!"},
		{name: "missing separator", cursor: "MTIzNDU2Nzg5MA=="},     // "1234567890"
		{name: "non-numeric timestamp", cursor: "YWJjfGRlZg=="},     // "abc|def"
		{name: "too many parts", cursor: "MXwyfDM="},                // "1|2|3"
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeJobCursor(tt.cursor)
			assert.Error(t, err)
		})
	}
}
