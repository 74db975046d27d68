// Package compose assembles the working context handed to an agent at the
// start of a turn: relevant long-term knowledge, frequently used mid-term
// memories and the current session's short-term log.
package compose

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mnemoshq/mnemos/internal/config"
	"github.com/mnemoshq/mnemos/internal/embedding"
	"github.com/mnemoshq/mnemos/internal/index"
	"github.com/mnemoshq/mnemos/internal/model"
	"github.com/mnemoshq/mnemos/internal/store"
)

// Context is the composed view over the three tiers. TiersIncluded
// records which tiers actually contributed, so callers can tell a quiet
// tier from a degraded one.
type Context struct {
	OwnerID       string              `json:"owner_id"`
	SessionID     string              `json:"session_id"`
	LTM           []model.Memory      `json:"ltm"`
	ITM           []model.Memory      `json:"itm"`
	STM           []model.Interaction `json:"stm"`
	TiersIncluded []string            `json:"tiers_included"`
}

// Composer builds contexts. The session store is a soft dependency: a
// failed tier is omitted and noted, never fatal.
type Composer struct {
	cfg      config.ContextConfig
	store    store.TierStore
	session  store.SessionStore
	index    index.SemanticIndex
	embedder embedding.Embedder
	log      *slog.Logger
}

func New(cfg config.ContextConfig, ts store.TierStore, ss store.SessionStore, idx index.SemanticIndex, e embedding.Embedder, log *slog.Logger) *Composer {
	if log == nil {
		log = slog.Default()
	}
	return &Composer{
		cfg:      cfg,
		store:    ts,
		session:  ss,
		index:    idx,
		embedder: e,
		log:      log.With("component", "compose"),
	}
}

// Compose assembles the context for a session. Tier order is fixed:
// long-term first, then mid-term, then the session log.
func (c *Composer) Compose(ctx context.Context, ownerID, sessionID string) (*Context, error) {
	out := &Context{
		OwnerID:       ownerID,
		SessionID:     sessionID,
		LTM:           []model.Memory{},
		ITM:           []model.Memory{},
		STM:           []model.Interaction{},
		TiersIncluded: []string{},
	}

	stm, stmOK := c.sessionLog(ctx, ownerID, sessionID)

	ltm, ltmOK := c.relevantLTM(ctx, ownerID, stm)
	if ltmOK {
		out.LTM = ltm
		out.TiersIncluded = append(out.TiersIncluded, string(model.TierLTM))
	}

	itm, itmOK := c.frequentITM(ctx, ownerID)
	if itmOK {
		out.ITM = itm
		out.TiersIncluded = append(out.TiersIncluded, string(model.TierITM))
	}

	if stmOK {
		out.STM = stm
		out.TiersIncluded = append(out.TiersIncluded, string(model.TierSTM))
	}

	return out, nil
}

// sessionLog reads the short-term slice. The second return reports tier
// availability: false means the session store failed, and the STM slice
// is omitted from the context instead of failing the request.
func (c *Composer) sessionLog(ctx context.Context, ownerID, sessionID string) ([]model.Interaction, bool) {
	if c.session == nil || sessionID == "" {
		return nil, false
	}
	log, err := c.session.Interactions(ctx, ownerID, sessionID, c.cfg.STMLimit)
	if err != nil {
		c.log.Warn("session store unavailable, omitting stm slice",
			"owner", ownerID, "session", sessionID, "error", err)
		return nil, false
	}
	return log, true
}

// relevantLTM searches the semantic index using the session's recent
// inputs as the query. Without a usable query or vector it falls back to
// the most-accessed long-term records. The second return reports tier
// availability: an empty slice from a healthy read still counts as
// included.
func (c *Composer) relevantLTM(ctx context.Context, ownerID string, stm []model.Interaction) ([]model.Memory, bool) {
	query := recentQuery(stm)

	if query != "" && c.embedder != nil && c.index != nil {
		vec, err := embedding.EmbedText(ctx, c.embedder, query)
		if err != nil {
			c.log.Warn("embed context query", "owner", ownerID, "error", err)
		} else {
			matches, err := c.index.Search(ctx, index.Query{
				OwnerID: ownerID,
				Vector:  vec,
				Limit:   c.cfg.LTMLimit,
				Tier:    model.TierLTM,
			})
			if err != nil {
				c.log.Warn("semantic search", "owner", ownerID, "error", err)
			} else {
				return c.retrieveMatches(ctx, ownerID, matches), true
			}
		}
	}

	memories, err := c.store.TopAccessed(ctx, ownerID, model.TierLTM, c.cfg.LTMLimit)
	if err != nil {
		c.log.Warn("ltm fallback", "owner", ownerID, "error", err)
		return nil, false
	}
	return c.retrieveByID(ctx, ownerID, memories), true
}

func (c *Composer) frequentITM(ctx context.Context, ownerID string) ([]model.Memory, bool) {
	memories, err := c.store.TopAccessed(ctx, ownerID, model.TierITM, c.cfg.ITMLimit)
	if err != nil {
		c.log.Warn("itm slice", "owner", ownerID, "error", err)
		return nil, false
	}
	return c.retrieveByID(ctx, ownerID, memories), true
}

// retrieveMatches resolves index matches into full records. Retrieval is
// content-returning, so access counts are bumped; an index entry whose
// record has since expired is silently dropped.
func (c *Composer) retrieveMatches(ctx context.Context, ownerID string, matches []index.Match) []model.Memory {
	out := make([]model.Memory, 0, len(matches))
	for _, match := range matches {
		m, err := c.store.Retrieve(ctx, ownerID, match.ID)
		if err != nil {
			continue
		}
		out = append(out, *m)
	}
	return out
}

func (c *Composer) retrieveByID(ctx context.Context, ownerID string, memories []model.Memory) []model.Memory {
	out := make([]model.Memory, 0, len(memories))
	for i := range memories {
		m, err := c.store.Retrieve(ctx, ownerID, memories[i].ID)
		if err != nil {
			continue
		}
		out = append(out, *m)
	}
	return out
}

// recentQuery joins the latest session inputs into the semantic query.
func recentQuery(stm []model.Interaction) string {
	if len(stm) == 0 {
		return ""
	}
	start := len(stm) - 3
	if start < 0 {
		start = 0
	}
	var parts []string
	for _, it := range stm[start:] {
		if s := strings.TrimSpace(it.Input); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}
