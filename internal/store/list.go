package store

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/mnemoshq/mnemos/internal/memerr"
	"github.com/mnemoshq/mnemos/internal/model"
)

const defaultListLimit = 50

// List returns a page of an owner's non-expired records, newest first.
// The cursor is a keyset over (created_at, id), so pages stay stable while
// new records arrive.
func (s *SQLiteStore) List(ctx context.Context, p ListParams) (*ListPage, error) {
	limit := p.Limit
	if limit <= 0 || limit > 200 {
		limit = defaultListLimit
	}

	now := fmtTime(time.Now().UTC())
	where := []string{
		"owner_id = ?", "expired_at IS NULL",
		"(expires_at IS NULL OR expires_at > ?)",
	}
	args := []interface{}{p.OwnerID, now}

	if p.Tier != "" {
		where = append(where, "tier = ?")
		args = append(args, string(p.Tier))
	}

	if p.Cursor != "" {
		createdAt, id, err := decodeCursor(p.Cursor)
		if err != nil {
			return nil, memerr.Validation("invalid cursor")
		}
		where = append(where, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, createdAt, createdAt, id)
	}

	// Fetch one extra row to know whether another page exists.
	args = append(args, limit+1)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memoryCols+` FROM memories
		 WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	memories, err := collectMemories(rows)
	if err != nil {
		return nil, err
	}

	page := &ListPage{Memories: memories}
	if len(memories) > limit {
		page.Memories = memories[:limit]
		last := page.Memories[limit-1]
		page.NextCursor = encodeCursor(fmtTime(last.CreatedAt), last.ID)
	}
	if page.Memories == nil {
		page.Memories = []model.Memory{}
	}
	return page, nil
}

func encodeCursor(createdAt, id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(createdAt + "|" + id))
}

func decodeCursor(cursor string) (createdAt, id string, err error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", "", err
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed cursor")
	}
	return parts[0], parts[1], nil
}
