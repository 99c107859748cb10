package services

import "testing"

func TestCacheKeyDeterminism(t *testing.T) {
	if cacheKey("user-a", 10) != cacheKey("user-a", 10) {
		t.Error("identical scopes must derive identical keys")
	}
}

func TestCacheKeyDistinctScopes(t *testing.T) {
	tests := []struct {
		a, b string
	}{
		{a: cacheKey("user-a", 10), b: cacheKey("user-a", 20)},
		{a: cacheKey("user-a", 10), b: cacheKey("user-b", 10)},
		{a: cacheKey("user-a", 0), b: cacheKey("user-a", 10)},
		{a: cacheKey("user-a", 0), b: cacheKey("", 0)},
	}
	for _, tt := range tests {
		if tt.a == tt.b {
			t.Errorf("distinct scopes collided on key %q", tt.a)
		}
	}
}

func TestCacheKeyTokens(t *testing.T) {
	if got, want := cacheKey("user-a", 0), "transactions_user-a_all"; got != want {
		t.Errorf("cacheKey(user-a, 0) = %q, want %q", got, want)
	}
	if got, want := cacheKey("", 5), "transactions_anonymous_5"; got != want {
		t.Errorf(`cacheKey("", 5) = %q, want %q`, got, want)
	}
}
