package common

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode"

	"github.com/go-chi/chi/v5"
)

// MaxPathParamLength bounds decoded source and module names
const MaxPathParamLength = 128

// PathParam returns the decoded chi URL parameter key. Source and module
// names are single tokens: blank values, whitespace, control characters and
// values over MaxPathParamLength are rejected.
func PathParam(r *http.Request, key string) (string, error) {
	value, err := url.PathUnescape(chi.URLParam(r, key))
	if err != nil {
		return "", fmt.Errorf("invalid URL encoding in %s", key)
	}

	switch {
	case strings.TrimSpace(value) == "":
		return "", fmt.Errorf("%s cannot be empty", key)
	case strings.IndexFunc(value, unicode.IsSpace) >= 0:
		return "", fmt.Errorf("%s cannot contain whitespace", key)
	case strings.IndexFunc(value, unicode.IsControl) >= 0:
		return "", fmt.Errorf("%s cannot contain control characters", key)
	case len(value) > MaxPathParamLength:
		return "", fmt.Errorf("%s exceeds %d bytes", key, MaxPathParamLength)
	}
	return value, nil
}
