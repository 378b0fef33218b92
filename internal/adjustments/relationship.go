package adjustments

import (
	"strings"

	"github.com/Sconzo/lalur-sub001/internal/shared"
)

// fkRule lists which foreign keys a relationship kind requires. false means must be absent.
type fkRule struct {
	ledgerRequired     bool
	adjustmentRequired bool
}

var relationshipRules = map[Relationship]fkRule{
	RelationshipLedgerAccount:     {ledgerRequired: true, adjustmentRequired: false},
	RelationshipAdjustmentAccount: {ledgerRequired: false, adjustmentRequired: true},
	RelationshipBoth:              {ledgerRequired: true, adjustmentRequired: true},
}

// ValidateRelationship checks the whole adjustment from scratch: the conditional
// foreign keys mandated by the relationship kind first, then the amount and the
// remaining fields.
func ValidateRelationship(a Adjustment) error {
	rule, ok := relationshipRules[a.Relationship]
	if !ok {
		return shared.NewFieldError(shared.ErrValidation, "relationship", "invalid relationship kind %q", a.Relationship)
	}
	if err := checkFK("ledgerAccountId", a.LedgerAccountID, rule.ledgerRequired, a.Relationship); err != nil {
		return err
	}
	if err := checkFK("adjustmentAccountId", a.AdjustmentAccountID, rule.adjustmentRequired, a.Relationship); err != nil {
		return err
	}
	if err := shared.CheckAmount("amount", a.Amount); err != nil {
		return err
	}
	if a.CompanyID <= 0 {
		return shared.NewFieldError(shared.ErrMissingParameter, "companyId", "company is required")
	}
	if a.Month < 1 || a.Month > 12 {
		return shared.NewFieldError(shared.ErrValidation, "month", "month must be between 1 and 12")
	}
	if a.Year <= 0 {
		return shared.NewFieldError(shared.ErrValidation, "year", "year is required")
	}
	if a.Apportionment != ApportionmentIRPJ && a.Apportionment != ApportionmentCSLL {
		return shared.NewFieldError(shared.ErrValidation, "apportionment", "invalid apportionment %q", a.Apportionment)
	}
	if a.Direction != DirectionAddition && a.Direction != DirectionExclusion {
		return shared.NewFieldError(shared.ErrValidation, "direction", "invalid adjustment direction %q", a.Direction)
	}
	if a.TaxParameterID <= 0 {
		return shared.NewFieldError(shared.ErrUnresolvedReference, "taxParameterId", "tax parameter is required")
	}
	if strings.TrimSpace(a.Description) == "" {
		return shared.NewFieldError(shared.ErrValidation, "description", "description is required")
	}
	return nil
}

func checkFK(field string, id *int64, required bool, kind Relationship) error {
	present := id != nil && *id > 0
	switch {
	case required && !present:
		return shared.NewFieldError(shared.ErrConditionalFK, field, "%s is required for relationship %s", field, kind)
	case !required && present:
		return shared.NewFieldError(shared.ErrConditionalFK, field, "%s must be empty for relationship %s", field, kind)
	}
	return nil
}
