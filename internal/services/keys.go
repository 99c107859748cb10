package services

import "strconv"

const (
	// anonOwnerToken stands in for an absent owner id. It is reserved, so it
	// can never collide with a real identifier.
	anonOwnerToken = "anonymous"

	// allLimitToken marks an unlimited query.
	allLimitToken = "all"
)

// cacheKey derives the cache key for a query scope. It is pure and
// deterministic: identical scopes always map to the identical key, and both
// components are incorporated so distinct scopes cannot collide.
func cacheKey(ownerID string, limit int) string {
	owner := ownerID
	if owner == "" {
		owner = anonOwnerToken
	}
	lim := allLimitToken
	if limit > 0 {
		lim = strconv.Itoa(limit)
	}
	return "transactions_" + owner + "_" + lim
}
