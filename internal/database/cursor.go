package database

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const cursorSeparator = "_"

// encodeCursor builds an opaque cursor string from a timestamp and a UUID.
func encodeCursor(t time.Time, id uuid.UUID) string {
	key := fmt.Sprintf("%d%s%s", t.UnixNano(), cursorSeparator, id.String())
	return base64.URLEncoding.EncodeToString([]byte(key))
}

// decodeCursor parses a cursor string back into timestamp and UUID.
// An empty cursor is valid and means "start from the beginning".
func decodeCursor(cursor string) (time.Time, uuid.UUID, error) {
	if cursor == "" {
		return time.Time{}, uuid.Nil, nil
	}
	decoded, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, uuid.Nil, fmt.Errorf("bad cursor (base64): %w", err)
	}
	parts := strings.SplitN(string(decoded), cursorSeparator, 2)
	if len(parts) != 2 {
		return time.Time{}, uuid.Nil, fmt.Errorf("bad cursor (separator)")
	}
	nano, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, uuid.Nil, fmt.Errorf("bad cursor (timestamp): %w", err)
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return time.Time{}, uuid.Nil, fmt.Errorf("bad cursor (uuid): %w", err)
	}
	return time.Unix(0, nano).UTC(), id, nil
}
