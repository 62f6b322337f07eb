package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
		title  string
	}{
		{err: fmt.Errorf("address 4: %w", ErrNotFound), status: http.StatusNotFound, title: "Not Found"},
		{err: ErrValidation, status: http.StatusBadRequest, title: "Validation Failed"},
		{err: ErrUnauthorized, status: http.StatusUnauthorized, title: "Unauthorized"},
		{err: ErrRateLimited, status: http.StatusTooManyRequests, title: "Too Many Requests"},
		{err: fmt.Errorf("pg: password leaked"), status: http.StatusInternalServerError, title: "Internal Error"},
	}
	for _, tc := range cases {
		t.Run(tc.title, func(t *testing.T) {
			rr := httptest.NewRecorder()
			RespondError(rr, tc.err)

			require.Equal(t, tc.status, rr.Code)
			require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
			var body ProblemDetail
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			require.Equal(t, tc.title, body.Title)
			require.Equal(t, tc.status, body.Status)
			require.NotContains(t, body.Detail, "password")
		})
	}
}

func TestJSONWritesBody(t *testing.T) {
	rr := httptest.NewRecorder()
	JSON(rr, http.StatusOK, []int{1, 2})

	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	require.JSONEq(t, "[1,2]", rr.Body.String())
}
