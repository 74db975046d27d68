package server

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/mnemoshq/mnemos/internal/embedding"
	"github.com/mnemoshq/mnemos/internal/index"
	"github.com/mnemoshq/mnemos/internal/memerr"
	"github.com/mnemoshq/mnemos/internal/model"
	"github.com/mnemoshq/mnemos/internal/store"
	"github.com/mnemoshq/mnemos/internal/usage"
)

type storeRequest struct {
	Kind            model.Kind    `json:"kind"`
	InputContext    string        `json:"input_context"`
	OutputResponse  string        `json:"output_response"`
	Outcome         model.Outcome `json:"outcome"`
	EmotionalWeight *float64      `json:"emotional_weight"`
	ConfidenceScore *float64      `json:"confidence_score"`
	PolicyValid     *bool         `json:"policy_valid"`
	Tags            []string      `json:"tags"`
	Tier            model.Tier    `json:"tier"`
	SessionID       string        `json:"session_id"`
}

// storeMemory handles POST /memory/store. Durable-tier writes are quota
// checked; a policy-rejected long-term write is downgraded to a
// short-term audit record rather than dropped.
func (s *Server) storeMemory(c *fiber.Ctx) error {
	var req storeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	policyValid := true
	if req.PolicyValid != nil {
		policyValid = *req.PolicyValid
	}
	tier := req.Tier
	if tier == "" {
		tier = model.TierSTM
	}

	if tier != model.TierSTM {
		dims := 0
		if tier == model.TierLTM && s.deps.Embedder != nil {
			dims = s.deps.Embedder.Dims()
		}
		size := usage.SizeOf(req.InputContext, req.OutputResponse, dims)
		if err := s.deps.Meter.CheckWrite(c.Context(), ownerOf(c), planOf(c), size); err != nil {
			return renderError(c, err)
		}
	}

	params := store.StoreParams{
		OwnerID:         ownerOf(c),
		SessionID:       req.SessionID,
		Kind:            req.Kind,
		InputContext:    req.InputContext,
		OutputResponse:  req.OutputResponse,
		Outcome:         req.Outcome,
		EmotionalWeight: req.EmotionalWeight,
		ConfidenceScore: req.ConfidenceScore,
		PolicyValid:     policyValid,
		Tags:            req.Tags,
		Tier:            tier,
	}

	m, err := s.deps.Store.Store(c.Context(), params)
	if memerr.IsPolicyRejected(err) && tier == model.TierLTM {
		// Keep the rejected content for audit in the volatile tier.
		params.Tier = model.TierSTM
		m, err = s.deps.Store.Store(c.Context(), params)
		if err != nil {
			return renderError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"memory": m,
			"audit":  true,
			"note":   "content failed policy validation; stored short-term for audit",
		})
	}
	if err != nil {
		return renderError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}

// retrieveMemory handles GET /memory/retrieve/:id. Content-returning, so
// the access count is bumped.
func (s *Server) retrieveMemory(c *fiber.Ctx) error {
	m, err := s.deps.Store.Retrieve(c.Context(), ownerOf(c), c.Params("id"))
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(m)
}

// listMemories handles GET /memory/list.
func (s *Server) listMemories(c *fiber.Ctx) error {
	tier := model.Tier(c.Query("tier"))
	if tier != "" && !model.ValidTiers[tier] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid tier filter",
		})
	}

	page, err := s.deps.Store.List(c.Context(), store.ListParams{
		OwnerID: ownerOf(c),
		Tier:    tier,
		Cursor:  c.Query("cursor"),
		Limit:   c.QueryInt("limit"),
	})
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(page)
}

type searchRequest struct {
	Query string     `json:"query"`
	Limit int        `json:"limit"`
	Tier  model.Tier `json:"tier"`
}

// searchMemories handles POST /memory/search: semantic search over the
// vector index. Matches carry metadata and similarity only, so access
// counts are untouched.
func (s *Server) searchMemories(c *fiber.Ctx) error {
	var req searchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query is required",
		})
	}
	if req.Tier != "" && !model.ValidTiers[req.Tier] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid tier filter",
		})
	}
	if s.deps.Embedder == nil || s.deps.Index == nil {
		return renderError(c, memerr.Unavailable("semantic search", nil))
	}

	vec, err := embedding.EmbedText(c.Context(), s.deps.Embedder, req.Query)
	if err != nil {
		return renderError(c, memerr.Unavailable("embedding provider", err))
	}

	matches, err := s.deps.Index.Search(c.Context(), index.Query{
		OwnerID: ownerOf(c),
		Vector:  vec,
		Limit:   req.Limit,
		Tier:    req.Tier,
	})
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(fiber.Map{
		"matches": matches,
		"count":   len(matches),
	})
}

// updateMemory handles PATCH /memory/update/:id. Tier is not mutable
// here; absent fields stay untouched.
func (s *Server) updateMemory(c *fiber.Ctx) error {
	var req struct {
		InputContext    *string        `json:"input_context"`
		OutputResponse  *string        `json:"output_response"`
		Outcome         *model.Outcome `json:"outcome"`
		EmotionalWeight *float64       `json:"emotional_weight"`
		ConfidenceScore *float64       `json:"confidence_score"`
		Tags            []string       `json:"tags"`
		Tier            *model.Tier    `json:"tier"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Tier != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Tier cannot be changed via update; use promote",
		})
	}

	m, err := s.deps.Store.Update(c.Context(), ownerOf(c), c.Params("id"), store.UpdateParams{
		InputContext:    req.InputContext,
		OutputResponse:  req.OutputResponse,
		Outcome:         req.Outcome,
		EmotionalWeight: req.EmotionalWeight,
		ConfidenceScore: req.ConfidenceScore,
		Tags:            req.Tags,
	})
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(m)
}

// promoteMemory handles POST /memory/promote/:id. Without an explicit
// target the record advances one tier.
func (s *Server) promoteMemory(c *fiber.Ctx) error {
	var req struct {
		Tier model.Tier `json:"tier"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
	}

	owner, id := ownerOf(c), c.Params("id")
	target := req.Tier
	if target == "" {
		cur, err := s.deps.Store.Peek(c.Context(), owner, id)
		if err != nil {
			return renderError(c, err)
		}
		next, ok := cur.Tier.Next()
		if !ok {
			return renderError(c, memerr.InvalidTransition(string(cur.Tier), string(cur.Tier)))
		}
		target = next
	} else if !model.ValidTiers[target] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid target tier",
		})
	}

	m, err := s.deps.Store.Promote(c.Context(), owner, id, target)
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(m)
}

// deleteMemory handles DELETE /memory/delete/:id (soft).
func (s *Server) deleteMemory(c *fiber.Ctx) error {
	if err := s.deps.Store.Expire(c.Context(), ownerOf(c), c.Params("id")); err != nil {
		return renderError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// memoryStats handles GET /memory/stats.
func (s *Server) memoryStats(c *fiber.Ctx) error {
	stats, err := s.deps.Store.Stats(c.Context(), ownerOf(c))
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(stats)
}

// composeContext handles GET /memory/context.
func (s *Server) composeContext(c *fiber.Ctx) error {
	out, err := s.deps.Composer.Compose(c.Context(), ownerOf(c), c.Query("session_id"))
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(out)
}

// listKnowledge handles GET /memory/knowledge.
func (s *Server) listKnowledge(c *fiber.Ctx) error {
	knowledge, err := s.deps.Store.ListKnowledge(c.Context(), ownerOf(c), c.QueryInt("limit"))
	if err != nil {
		return renderError(c, err)
	}
	if knowledge == nil {
		knowledge = []model.DistilledKnowledge{}
	}
	return c.JSON(fiber.Map{
		"knowledge": knowledge,
		"count":     len(knowledge),
	})
}

// itmReferences handles GET /memory/itm/retrieve: id-level references to
// the most used mid-term records. No content is returned and access
// counts stay untouched.
func (s *Server) itmReferences(c *fiber.Ctx) error {
	memories, err := s.deps.Store.TopAccessed(c.Context(), ownerOf(c), model.TierITM, c.QueryInt("limit"))
	if err != nil {
		return renderError(c, err)
	}

	type ref struct {
		ID          string   `json:"id"`
		Kind        string   `json:"kind"`
		Tags        []string `json:"tags,omitempty"`
		AccessCount int      `json:"access_count"`
		CreatedAt   string   `json:"created_at"`
	}
	refs := make([]ref, 0, len(memories))
	for i := range memories {
		m := &memories[i]
		refs = append(refs, ref{
			ID:          m.ID,
			Kind:        string(m.Kind),
			Tags:        m.Tags,
			AccessCount: m.AccessCount,
			CreatedAt:   m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return c.JSON(fiber.Map{
		"references": refs,
		"count":      len(refs),
	})
}

// ownerUsage handles GET /memory/usage.
func (s *Server) ownerUsage(c *fiber.Ctx) error {
	report, err := s.deps.Meter.Report(c.Context(), ownerOf(c), planOf(c))
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(report)
}

// runDistillation handles POST /memory/distill: a manual run scoped to
// the calling owner. An overlapping run is rejected, not queued.
func (s *Server) runDistillation(c *fiber.Ctx) error {
	report, err := s.deps.Engine.Run(c.Context(), ownerOf(c))
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(report)
}

// health handles GET /health. The durable store is a hard dependency;
// the session store and embedder degrade the report but not the status.
func (s *Server) health(c *fiber.Ctx) error {
	components := fiber.Map{}
	status := "healthy"
	httpStatus := fiber.StatusOK

	if _, err := s.deps.Store.Stats(c.Context(), healthProbeOwner); err != nil {
		components["store"] = "down"
		status = "unhealthy"
		httpStatus = fiber.StatusServiceUnavailable
	} else {
		components["store"] = "ok"
	}

	if s.deps.Session == nil {
		components["session"] = "disabled"
	} else if err := s.deps.Session.Ping(c.Context()); err != nil {
		components["session"] = "down"
		if status == "healthy" {
			status = "degraded"
		}
	} else {
		components["session"] = "ok"
	}

	if s.deps.Embedder == nil {
		components["embedder"] = "disabled"
	} else {
		components["embedder"] = "ok (" + strconv.Itoa(s.deps.Embedder.Dims()) + " dims)"
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":     status,
		"service":    "mnemos",
		"components": components,
	})
}

// healthProbeOwner is a fixed UUID used only to exercise the stats query.
const healthProbeOwner = "00000000-0000-0000-0000-000000000000"
