// Package loyalty detects discount entitlements from an owner's completed
// visit history. Rules are mutually exclusive and checked in strict
// priority order.
package loyalty

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vetcare/vetclinic-platform/pkg/logging"
)

// Rule names the discount rule that matched.
type Rule string

const (
	RuleNone              Rule = ""
	RuleCard              Rule = "loyalty_card"
	RuleRecentVisit       Rule = "recent_visit"
	RuleConsecutiveMonths Rule = "consecutive_months"
)

// Card is a time-bounded discount entitlement.
type Card struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ValidAt reports whether the card is unexpired at t.
func (c *Card) ValidAt(t time.Time) bool {
	return c != nil && t.Before(c.ExpiresAt)
}

// CardStore persists loyalty cards. Get returns (nil, nil) when the owner
// holds no card.
type CardStore interface {
	Get(ctx context.Context, ownerID uuid.UUID) (*Card, error)
	Put(ctx context.Context, card *Card) error
}

// Result is the detected discount for a candidate visit.
type Result struct {
	Percent int  `json:"percent"`
	Rule    Rule `json:"rule,omitempty"`
}

const (
	cardPercent        = 15
	recentVisitPercent = 20
	streakPercent      = 15

	recentVisitWindow = 30 * 24 * time.Hour
	cardValidity      = 6 * 30 * 24 * time.Hour
	streakMonths      = 3
)

// Detector applies the discount rules.
type Detector struct {
	cards  CardStore
	logger *logging.Logger
}

// NewDetector creates a detector. cards may be nil, disabling the card
// rule and card issuance.
func NewDetector(cards CardStore, logger *logging.Logger) *Detector {
	if logger == nil {
		logger = logging.Default()
	}
	return &Detector{cards: cards, logger: logger}
}

// Detect resolves the discount for a visit on candidate, given the
// owner's completed visit dates. First match wins: unexpired card 15%,
// visit within 30 days 20%, three consecutive calendar months 15% plus a
// fresh 6-month card.
func (d *Detector) Detect(ctx context.Context, ownerID uuid.UUID, candidate time.Time, history []time.Time) (Result, error) {
	if d.cards != nil {
		card, err := d.cards.Get(ctx, ownerID)
		if err != nil {
			return Result{}, err
		}
		if card.ValidAt(candidate) {
			return Result{Percent: cardPercent, Rule: RuleCard}, nil
		}
	}

	if visitWithin(history, candidate, recentVisitWindow) {
		return Result{Percent: recentVisitPercent, Rule: RuleRecentVisit}, nil
	}

	if hasMonthStreak(history, streakMonths) {
		if d.cards != nil {
			card := &Card{
				ID:        uuid.New(),
				OwnerID:   ownerID,
				IssuedAt:  candidate,
				ExpiresAt: candidate.Add(cardValidity),
			}
			if err := d.cards.Put(ctx, card); err != nil {
				// The discount stands; the card just was not recorded.
				d.logger.Error("loyalty: failed to issue card", "error", err, "owner_id", ownerID)
			} else {
				d.logger.Info("loyalty: card issued", "owner_id", ownerID, "expires_at", card.ExpiresAt)
			}
		}
		return Result{Percent: streakPercent, Rule: RuleConsecutiveMonths}, nil
	}

	return Result{}, nil
}

// visitWithin reports whether any prior visit falls inside the window
// before candidate.
func visitWithin(history []time.Time, candidate time.Time, window time.Duration) bool {
	for _, visit := range history {
		if visit.After(candidate) {
			continue
		}
		if candidate.Sub(visit) <= window {
			return true
		}
	}
	return false
}

// hasMonthStreak reports whether the most recent n distinct visit months
// are consecutive, scanning backward from the latest visit.
func hasMonthStreak(history []time.Time, n int) bool {
	if len(history) == 0 {
		return false
	}
	months := make(map[int]bool, len(history))
	latest := 0
	for _, visit := range history {
		m := visit.Year()*12 + int(visit.Month()) - 1
		months[m] = true
		if m > latest {
			latest = m
		}
	}
	for i := 0; i < n; i++ {
		if !months[latest-i] {
			return false
		}
	}
	return true
}
