// Package model defines the core memory data types.
package model

import (
	"fmt"
	"time"
)

// Tier identifies the durability tier a memory record lives in.
type Tier string

const (
	TierSTM Tier = "stm"
	TierITM Tier = "itm"
	TierLTM Tier = "ltm"
)

// ValidTiers are the allowed memory tiers.
var ValidTiers = map[Tier]bool{
	TierSTM: true,
	TierITM: true,
	TierLTM: true,
}

// Next returns the tier one promotion step forward.
// LTM is terminal; Next on LTM returns TierLTM and false.
func (t Tier) Next() (Tier, bool) {
	switch t {
	case TierSTM:
		return TierITM, true
	case TierITM:
		return TierLTM, true
	default:
		return TierLTM, false
	}
}

// rank orders tiers by durability for transition checks.
func (t Tier) rank() int {
	switch t {
	case TierSTM:
		return 0
	case TierITM:
		return 1
	case TierLTM:
		return 2
	}
	return -1
}

// CanPromoteTo reports whether moving from t to target is a legal forward
// transition. Only stm→itm and itm→ltm are legal.
func (t Tier) CanPromoteTo(target Tier) bool {
	return ValidTiers[t] && ValidTiers[target] && target.rank() == t.rank()+1
}

// Kind classifies what a memory records.
type Kind string

const (
	KindConversation Kind = "conversation"
	KindTask         Kind = "task"
	KindLesson       Kind = "lesson"
	KindError        Kind = "error"
	KindReflection   Kind = "reflection"
	KindAchievement  Kind = "achievement"
)

// ValidKinds are the allowed memory kinds.
var ValidKinds = map[Kind]bool{
	KindConversation: true,
	KindTask:         true,
	KindLesson:       true,
	KindError:        true,
	KindReflection:   true,
	KindAchievement:  true,
}

// Outcome records how the interaction behind a memory went.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeNeutral Outcome = "neutral"
)

// ValidOutcomes are the allowed outcomes.
var ValidOutcomes = map[Outcome]bool{
	OutcomeSuccess: true,
	OutcomeFailure: true,
	OutcomeNeutral: true,
}

// Memory represents a stored memory record.
type Memory struct {
	ID              string     `json:"id"`
	OwnerID         string     `json:"owner_id"`
	SessionID       string     `json:"session_id,omitempty"`
	Kind            Kind       `json:"kind"`
	InputContext    string     `json:"input_context"`
	OutputResponse  string     `json:"output_response,omitempty"`
	Outcome         Outcome    `json:"outcome"`
	EmotionalWeight *float64   `json:"emotional_weight,omitempty"`
	ConfidenceScore *float64   `json:"confidence_score,omitempty"`
	PolicyValid     bool       `json:"policy_valid"`
	Tags            []string   `json:"tags,omitempty"`
	Tier            Tier       `json:"tier"`
	AccessCount     int        `json:"access_count"`
	LastAccessedAt  *time.Time `json:"last_accessed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	ExpiredAt       *time.Time `json:"expired_at,omitempty"`
	Embedding       []float32  `json:"embedding,omitempty"`
}

// Expired reports whether the record is terminally expired or past its TTL.
func (m *Memory) Expired(now time.Time) bool {
	if m.ExpiredAt != nil {
		return true
	}
	return m.ExpiresAt != nil && !m.ExpiresAt.After(now)
}

// Promotable reports whether the record is eligible for promotion to the
// next tier at the given time.
func (m *Memory) Promotable(now time.Time) bool {
	if !m.PolicyValid || m.Expired(now) {
		return false
	}
	_, ok := m.Tier.Next()
	return ok
}

// Validate checks enum fields and score ranges at the boundary so illegal
// values are rejected rather than silently stored.
func (m *Memory) Validate() error {
	if m.OwnerID == "" {
		return fmt.Errorf("owner_id is required")
	}
	if !ValidKinds[m.Kind] {
		return fmt.Errorf("invalid kind %q", m.Kind)
	}
	if !ValidOutcomes[m.Outcome] {
		return fmt.Errorf("invalid outcome %q", m.Outcome)
	}
	if !ValidTiers[m.Tier] {
		return fmt.Errorf("invalid tier %q", m.Tier)
	}
	if m.InputContext == "" {
		return fmt.Errorf("input_context is required")
	}
	if m.EmotionalWeight != nil && (*m.EmotionalWeight < -1 || *m.EmotionalWeight > 1) {
		return fmt.Errorf("emotional_weight must be between -1 and 1")
	}
	if m.ConfidenceScore != nil && (*m.ConfidenceScore < 0 || *m.ConfidenceScore > 1) {
		return fmt.Errorf("confidence_score must be between 0 and 1")
	}
	return nil
}

// DistilledKnowledge is a compressed principle derived from a group of
// reflection memories by the distillation engine. Source IDs are weak
// references: expiring a source never cascades here.
type DistilledKnowledge struct {
	ID                  string    `json:"id"`
	OwnerID             string    `json:"owner_id"`
	SourceReflectionIDs []string  `json:"source_reflection_ids"`
	Topic               string    `json:"topic"`
	Principle           string    `json:"principle"`
	Embedding           []float32 `json:"embedding,omitempty"`
	Confidence          float64   `json:"confidence"`
	CreatedAt           time.Time `json:"created_at"`
}

// Interaction is a single short-term conversational turn kept in the
// ephemeral session log.
type Interaction struct {
	Input     string    `json:"input"`
	Output    string    `json:"output,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
