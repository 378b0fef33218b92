package importer

// Column layouts accepted by the importers and written by the exporter.
var (
	LedgerHeader = []string{"debitAccountCode", "creditAccountCode", "referenceDate", "amount", "memo", "documentNumber"}

	LedgerExportHeader = []string{"debitAccountCode", "debitAccountName", "creditAccountCode", "creditAccountName",
		"referenceDate", "amount", "memo", "documentNumber"}

	AdjustmentHeader = []string{"month", "year", "apportionment", "relationship", "ledgerAccountCode",
		"adjustmentAccountCode", "taxParameterCode", "direction", "description", "amount"}

	AccountHeader = []string{"code", "name", "accountType", "referenceAccountCode", "class", "level", "nature",
		"affectsResult", "deductible"}

	ReferenceAccountHeader = []string{"code", "description", "validityYear"}
)

// Kinds of import accepted by the HTTP and CLI surfaces.
const (
	KindLedger            = "ledger"
	KindAdjustments       = "adjustments"
	KindAccounts          = "accounts"
	KindReferenceAccounts = "reference-accounts"
)
