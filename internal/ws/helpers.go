package ws

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

func newConnID() string {
	return uuid.NewString()
}

// originChecker accepts requests without an Origin header (non-browser
// clients) and, otherwise, only the configured frontend origin.
func originChecker(allowed string) func(r *http.Request) bool {
	if allowed == "" || allowed == "*" {
		return func(r *http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || strings.EqualFold(origin, allowed)
	}
}
