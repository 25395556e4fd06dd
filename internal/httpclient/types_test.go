package httpclient_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/omnifield-ingest/internal/httpclient"
)

func TestHTTPError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		statusCode    int
		url           string
		message       string
		wantMessage   string
		wantRetryable bool
	}{
		{
			name:        "not found",
			statusCode:  http.StatusNotFound,
			url:         "https://example.com/petro.csv",
			message:     "404 Not Found",
			wantMessage: "HTTP 404 for URL https://example.com/petro.csv: 404 Not Found",
		},
		{
			name:          "service unavailable",
			statusCode:    http.StatusServiceUnavailable,
			url:           "https://example.com/history.parquet",
			message:       "503 Service Unavailable",
			wantMessage:   "HTTP 503 for URL https://example.com/history.parquet: 503 Service Unavailable",
			wantRetryable: true,
		},
		{
			name:          "too many requests",
			statusCode:    http.StatusTooManyRequests,
			url:           "https://example.com/a.csv",
			message:       "slow down",
			wantMessage:   "HTTP 429 for URL https://example.com/a.csv: slow down",
			wantRetryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := httpclient.NewHTTPError(tt.statusCode, tt.url, tt.message)
			assert.Equal(t, tt.wantMessage, err.Error())

			var httpErr *httpclient.HTTPError
			require.True(t, errors.As(err, &httpErr))
			assert.Equal(t, tt.statusCode, httpErr.StatusCode)
			assert.Equal(t, tt.url, httpErr.URL)
			assert.Equal(t, tt.wantRetryable, httpErr.Retryable())
		})
	}
}
