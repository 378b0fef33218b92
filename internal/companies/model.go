// Package companies owns the company registry consulted before any import, export or cutoff change.
package companies

import (
	"time"

	"github.com/Sconzo/lalur-sub001/internal/shared"
)

// Company represents a taxpayer whose books are kept in the system.
type Company struct {
	ID        int64         `json:"id"`
	CNPJ      string        `json:"cnpj"`
	Name      string        `json:"name"`
	Status    shared.Status `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
