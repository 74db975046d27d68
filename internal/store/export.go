package store

import (
	"context"
	"strings"
	"time"

	"github.com/mnemoshq/mnemos/internal/model"
)

// ExportAll returns all non-expired memories, optionally filtered by owner.
// Used by the export CLI command; preserves original IDs and timestamps.
func (s *SQLiteStore) ExportAll(ctx context.Context, ownerID string) ([]model.Memory, error) {
	now := fmtTime(time.Now().UTC())
	where := []string{"expired_at IS NULL", "(expires_at IS NULL OR expires_at > ?)"}
	args := []interface{}{now}

	if ownerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, ownerID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memoryCols+` FROM memories
		 WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY owner_id, created_at`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMemories(rows)
}

// Import inserts memories from an export verbatim, keeping IDs, tiers,
// counters and timestamps. Records whose ID already exists are skipped.
func (s *SQLiteStore) Import(ctx context.Context, memories []model.Memory) (int, error) {
	imported := 0
	for i := range memories {
		m := &memories[i]
		res, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO memories (`+memoryCols+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.OwnerID, nullStr(m.SessionID), string(m.Kind), m.InputContext, nullStr(m.OutputResponse),
			string(m.Outcome), m.EmotionalWeight, m.ConfidenceScore, boolInt(m.PolicyValid),
			tagsJSON(m.Tags), string(m.Tier), m.AccessCount, fmtTimePtr(m.LastAccessedAt),
			fmtTime(m.CreatedAt), fmtTimePtr(m.ExpiresAt), fmtTimePtr(m.ExpiredAt), encodeVector(m.Embedding))
		if err != nil {
			return imported, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			continue
		}
		imported++
		if m.Tier == model.TierLTM && len(m.Embedding) > 0 && s.index != nil {
			if err := s.index.Index(ctx, m); err != nil {
				s.log.Warn("index imported record", "id", m.ID, "error", err)
			}
		}
	}
	return imported, nil
}
