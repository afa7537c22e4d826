/**
 * @description
 * Tier hierarchy for the billing engine. The platform has three operator
 * tiers that owe each other periodic fees, plus the field-user level that is
 * never a payer but is what admins are billed for.
 */
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Tier identifies one level of the payer/payee hierarchy.
type Tier string

const (
	TierUser            Tier = "user"
	TierAdmin           Tier = "admin"
	TierSuperAdmin      Tier = "super_admin"
	TierSuperSuperAdmin Tier = "super_super_admin"
)

// tierRelation captures who a tier pays and who it is billed for. Dispatching
// through this table replaces scattered role-string comparisons.
type tierRelation struct {
	payee       Tier
	subordinate Tier
}

var tierRelations = map[Tier]tierRelation{
	TierAdmin:           {payee: TierSuperAdmin, subordinate: TierUser},
	TierSuperAdmin:      {payee: TierSuperSuperAdmin, subordinate: TierAdmin},
	TierSuperSuperAdmin: {subordinate: TierSuperAdmin},
}

// ParseTier validates a tier string coming from the API surface.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	switch t {
	case TierAdmin, TierSuperAdmin, TierSuperSuperAdmin:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown tier %q", ErrValidation, s)
}

// Billable reports whether accounts at this tier owe periodic fees.
func (t Tier) Billable() bool {
	rel, ok := tierRelations[t]
	return ok && rel.payee != ""
}

// PayeeTier returns the tier that collects from payers at this tier.
func (t Tier) PayeeTier() (Tier, bool) {
	rel, ok := tierRelations[t]
	if !ok || rel.payee == "" {
		return "", false
	}
	return rel.payee, true
}

// SubordinateTier returns the tier whose accounts make up this tier's
// headcount.
func (t Tier) SubordinateTier() (Tier, bool) {
	rel, ok := tierRelations[t]
	if !ok || rel.subordinate == "" {
		return "", false
	}
	return rel.subordinate, true
}

// Actor is the authenticated caller supplied by the identity layer. The
// engine trusts the caller to have already authorized the actor for the
// payee/payer scope it acts on.
type Actor struct {
	ID   uuid.UUID
	Role Tier
}
