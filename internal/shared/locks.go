package shared

import "fmt"

// CutoffCacheKey builds the redis key holding a company's accounting period cutoff.
func CutoffCacheKey(companyID int64) string {
	return fmt.Sprintf("lalur:company:%d:cutoff", companyID)
}

// CutoffGenerationKey builds the redis counter bumped on every cutoff invalidation.
func CutoffGenerationKey(companyID int64) string {
	return fmt.Sprintf("lalur:company:%d:cutoff:gen", companyID)
}
