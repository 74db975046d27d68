package store

import (
	"context"
	"time"

	"github.com/mnemoshq/mnemos/internal/model"
)

// Stats reports per-tier counts and storage size for an owner. Size is
// the text payload plus the embedding blob, which is what quota charges.
func (s *SQLiteStore) Stats(ctx context.Context, ownerID string) (*Stats, error) {
	now := fmtTime(time.Now().UTC())

	rows, err := s.db.QueryContext(ctx,
		`SELECT tier, COUNT(*),
		        COALESCE(SUM(LENGTH(input_context) + LENGTH(COALESCE(output_response, '')) + LENGTH(COALESCE(embedding, ''))), 0)
		 FROM memories
		 WHERE owner_id = ? AND expired_at IS NULL
		   AND (expires_at IS NULL OR expires_at > ?)
		 GROUP BY tier`,
		ownerID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &Stats{
		OwnerID: ownerID,
		Tiers:   make(map[model.Tier]TierStats),
	}
	for _, tier := range []model.Tier{model.TierSTM, model.TierITM, model.TierLTM} {
		stats.Tiers[tier] = TierStats{}
	}

	for rows.Next() {
		var tier string
		var ts TierStats
		if err := rows.Scan(&tier, &ts.Count, &ts.Bytes); err != nil {
			return nil, err
		}
		stats.Tiers[model.Tier(tier)] = ts
		stats.Total += ts.Count
		stats.StorageBytes += ts.Bytes
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM distilled_knowledge WHERE owner_id = ?`,
		ownerID).Scan(&stats.Knowledge); err != nil {
		return nil, err
	}

	return stats, nil
}
