package api

import (
	"net/http"
	"strings"
)

// FriendlyMessage maps known backend error shapes to user-facing copy. The
// backend's errors are untyped strings, so this matches on substrings of the
// detail text; fragile, but the only handle the wire format offers.
func FriendlyMessage(err error) string {
	apiErr, ok := err.(*APIError)
	if !ok {
		return err.Error()
	}

	detail := strings.ToLower(apiErr.Detail)
	switch {
	case apiErr.StatusCode == http.StatusForbidden && strings.Contains(detail, "private"):
		return "You are not allowed to start a test for this private deck."
	case apiErr.StatusCode == http.StatusNotFound && strings.Contains(detail, "deck"):
		return "Deck not found. It may have been deleted or made private."
	case apiErr.StatusCode == http.StatusUnauthorized:
		return "Your session has expired. Please log in again."
	}

	if apiErr.Detail != "" {
		return apiErr.Detail
	}
	return apiErr.Error()
}
