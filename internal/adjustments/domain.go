// Package adjustments holds the fiscal adjustments ledger (LALUR Parte A lancamentos)
// that add to or exclude from the IRPJ/CSLL taxable base.
package adjustments

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Sconzo/lalur-sub001/internal/shared"
)

// Apportionment is the tax the adjustment applies to.
type Apportionment string

const (
	ApportionmentIRPJ Apportionment = "IRPJ"
	ApportionmentCSLL Apportionment = "CSLL"
)

// Relationship says which accounts an adjustment points at.
type Relationship string

const (
	RelationshipLedgerAccount     Relationship = "LEDGER_ACCOUNT"
	RelationshipAdjustmentAccount Relationship = "ADJUSTMENT_ACCOUNT"
	RelationshipBoth              Relationship = "BOTH"
)

// Direction is addition to or exclusion from the taxable base.
type Direction string

const (
	DirectionAddition  Direction = "ADDITION"
	DirectionExclusion Direction = "EXCLUSION"
)

// Adjustment is one fiscal adjustment of a company for a reference month.
type Adjustment struct {
	ID                  int64
	CompanyID           int64
	Month               int
	Year                int
	Apportionment       Apportionment
	Relationship        Relationship
	LedgerAccountID     *int64
	AdjustmentAccountID *int64
	TaxParameterID      int64
	Direction           Direction
	Description         string
	Amount              decimal.Decimal
	Status              shared.Status
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// OwningCompany implements periodlock.Dated.
func (a Adjustment) OwningCompany() int64 { return a.CompanyID }

// ReferenceDate is the first day of the reference month.
func (a Adjustment) ReferenceDate() time.Time {
	return shared.FirstOfMonth(a.Year, a.Month)
}

// ExportRow is an adjustment with its references rendered as codes.
type ExportRow struct {
	Adjustment
	LedgerAccountCode     string
	AdjustmentAccountCode string
	TaxParameterCode      string
}

// Filter selects adjustments of one company and year.
type Filter struct {
	CompanyID  int64
	FiscalYear int
}

var apportionmentAliases = map[string]Apportionment{
	"IRPJ": ApportionmentIRPJ,
	"CSLL": ApportionmentCSLL,
}

var relationshipAliases = map[string]Relationship{
	"LEDGER_ACCOUNT":     RelationshipLedgerAccount,
	"CONTA_CONTABIL":     RelationshipLedgerAccount,
	"ADJUSTMENT_ACCOUNT": RelationshipAdjustmentAccount,
	"CONTA_PARTE_B":      RelationshipAdjustmentAccount,
	"BOTH":               RelationshipBoth,
	"AMBOS":              RelationshipBoth,
}

var directionAliases = map[string]Direction{
	"ADDITION":  DirectionAddition,
	"ADICAO":    DirectionAddition,
	"EXCLUSION": DirectionExclusion,
	"EXCLUSAO":  DirectionExclusion,
}

// ParseApportionment reads IRPJ or CSLL.
func ParseApportionment(raw string) (Apportionment, error) {
	if v, ok := apportionmentAliases[normalize(raw)]; ok {
		return v, nil
	}
	return "", shared.NewFieldError(shared.ErrValidation, "apportionment", "invalid apportionment %q", raw)
}

// ParseRelationship reads a relationship kind, accepting Portuguese spellings.
func ParseRelationship(raw string) (Relationship, error) {
	if v, ok := relationshipAliases[normalize(raw)]; ok {
		return v, nil
	}
	return "", shared.NewFieldError(shared.ErrValidation, "relationship", "invalid relationship kind %q", raw)
}

// ParseDirection reads ADDITION or EXCLUSION, accepting Portuguese spellings.
func ParseDirection(raw string) (Direction, error) {
	if v, ok := directionAliases[normalize(raw)]; ok {
		return v, nil
	}
	return "", shared.NewFieldError(shared.ErrValidation, "direction", "invalid adjustment direction %q", raw)
}

func normalize(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, " ", "_")
	return strings.NewReplacer("Ç", "C", "Ã", "A", "Á", "A", "Í", "I").Replace(s)
}
