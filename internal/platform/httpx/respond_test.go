package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRespondErrorStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		detail string
	}{
		{fmt.Errorf("product P9: %w", ErrNotFound), http.StatusNotFound, "product P9: resource not found"},
		{fmt.Errorf("%w: top must be positive", ErrValidation), http.StatusBadRequest, "validation failed: top must be positive"},
		{ErrUnavailable, http.StatusServiceUnavailable, "dependency unavailable"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, ""},
		{errors.New("pq: password authentication failed"), http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, tc.err)
		require.Equal(t, tc.status, rr.Code)
		require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

		var body ProblemDetail
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		require.Equal(t, tc.status, body.Status)
		require.Equal(t, tc.detail, body.Detail)
	}
}
