package handler

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/mytankugift/catalog-sync/internal/jobs"
)

// DecodeJobCursor parses an opaque listing cursor. An empty string means
// "first page" and decodes to nil.
func DecodeJobCursor(cursorStr string) (*jobs.Cursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(string(decoded), "|")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid cursor format")
	}

	var createdAt int64
	if _, err := fmt.Sscanf(parts[0], "%d", &createdAt); err != nil {
		return nil, fmt.Errorf("invalid createdAt in cursor: %w", err)
	}

	return &jobs.Cursor{
		CreatedAt: time.Unix(0, createdAt),
		ID:        parts[1],
	}, nil
}

// EncodeJobCursor renders a cursor as base64("createdAtUnixNano|id").
func EncodeJobCursor(cursor *jobs.Cursor) string {
	raw := fmt.Sprintf("%d|%s", cursor.CreatedAt.UnixNano(), cursor.ID)
	return base64.StdEncoding.EncodeToString([]byte(raw))
}
