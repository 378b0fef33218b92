package accounts

import (
	"fmt"
	"strings"
	"time"

	"github.com/Sconzo/lalur-sub001/internal/shared"
)

// Type distinguishes grouping accounts from posting accounts.
type Type string

const (
	TypeSynthetic Type = "SYNTHETIC"
	TypeAnalytic  Type = "ANALYTIC"
)

// Class enumerates CoA categories.
type Class string

const (
	ClassAsset     Class = "ASSET"
	ClassLiability Class = "LIABILITY"
	ClassEquity    Class = "EQUITY"
	ClassRevenue   Class = "REVENUE"
	ClassExpense   Class = "EXPENSE"
)

// Nature is the side on which an account's balance normally sits.
type Nature string

const (
	NatureDebit  Nature = "DEBIT"
	NatureCredit Nature = "CREDIT"
)

// Account models a chart of accounts node for one company and fiscal year.
type Account struct {
	ID                 int64
	CompanyID          int64
	FiscalYear         int
	Code               string
	Name               string
	Type               Type
	ReferenceAccountID *int64
	Class              Class
	Level              int
	Nature             Nature
	AffectsResult      bool
	Deductible         bool
	Status             shared.Status
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Ref is the slim view of an account used by validators and exports.
type Ref struct {
	ID         int64
	Code       string
	Name       string
	FiscalYear int
}

// Ref returns the account reference.
func (a Account) Ref() Ref {
	return Ref{ID: a.ID, Code: a.Code, Name: a.Name, FiscalYear: a.FiscalYear}
}

// ReferenceAccount is an entry of the official referential chart, versioned by validity year.
type ReferenceAccount struct {
	ID           int64
	Code         string
	Description  string
	ValidityYear int
	Status       shared.Status
}

// AdjustmentAccount is a company's Parte B account used by fiscal adjustments.
type AdjustmentAccount struct {
	ID          int64
	CompanyID   int64
	Code        string
	Description string
	Status      shared.Status
}

// ExportRow is an account joined with its reference account code.
type ExportRow struct {
	Account
	ReferenceCode string
}

var typeAliases = map[string]Type{
	"SYNTHETIC": TypeSynthetic,
	"SINTETICA": TypeSynthetic,
	"S":         TypeSynthetic,
	"ANALYTIC":  TypeAnalytic,
	"ANALITICA": TypeAnalytic,
	"A":         TypeAnalytic,
}

var classAliases = map[string]Class{
	"ASSET":              ClassAsset,
	"ATIVO":              ClassAsset,
	"LIABILITY":          ClassLiability,
	"PASSIVO":            ClassLiability,
	"EQUITY":             ClassEquity,
	"PATRIMONIO_LIQUIDO": ClassEquity,
	"REVENUE":            ClassRevenue,
	"RECEITA":            ClassRevenue,
	"EXPENSE":            ClassExpense,
	"DESPESA":            ClassExpense,
}

var natureAliases = map[string]Nature{
	"DEBIT":    NatureDebit,
	"DEVEDORA": NatureDebit,
	"D":        NatureDebit,
	"CREDIT":   NatureCredit,
	"CREDORA":  NatureCredit,
	"C":        NatureCredit,
}

// ParseType accepts the canonical names and their Portuguese spellings.
func ParseType(raw string) (Type, error) {
	if t, ok := typeAliases[normalize(raw)]; ok {
		return t, nil
	}
	return "", shared.NewFieldError(shared.ErrValidation, "accountType", "invalid account type %q", raw)
}

// ParseClass accepts the canonical names and their Portuguese spellings.
func ParseClass(raw string) (Class, error) {
	if c, ok := classAliases[normalize(raw)]; ok {
		return c, nil
	}
	return "", shared.NewFieldError(shared.ErrValidation, "class", "invalid account class %q", raw)
}

// ParseNature accepts the canonical names and their Portuguese spellings.
func ParseNature(raw string) (Nature, error) {
	if n, ok := natureAliases[normalize(raw)]; ok {
		return n, nil
	}
	return "", shared.NewFieldError(shared.ErrValidation, "nature", "invalid account nature %q", raw)
}

// ParseFlag reads yes/no columns such as affectsResult and deductible.
func ParseFlag(field, raw string) (bool, error) {
	switch normalize(raw) {
	case "TRUE", "SIM", "S", "YES", "Y", "1":
		return true, nil
	case "FALSE", "NAO", "NÃO", "N", "NO", "0", "":
		return false, nil
	}
	return false, shared.NewFieldError(shared.ErrValidation, field, "invalid boolean %q for %s", raw, field)
}

// FormatFlag renders a boolean the way ParseFlag reads it back.
func FormatFlag(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func normalize(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, " ", "_")
	return strings.NewReplacer("Í", "I", "Ô", "O", "Á", "A", "É", "E").Replace(s)
}

func (t Type) valid() bool   { return t == TypeSynthetic || t == TypeAnalytic }
func (n Nature) valid() bool { return n == NatureDebit || n == NatureCredit }

func (c Class) valid() bool {
	switch c {
	case ClassAsset, ClassLiability, ClassEquity, ClassRevenue, ClassExpense:
		return true
	}
	return false
}

// String renders a ref for messages.
func (r Ref) String() string {
	return fmt.Sprintf("%s (%d)", r.Code, r.FiscalYear)
}
