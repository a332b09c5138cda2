package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aditpras/loan-workflow/internal/domain/workflow"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, Token: "test-token"}, zap.NewNop())
}

func TestClient_GetByID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/loans/loan-1", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(Loan{ID: "loan-1", Status: workflow.StatusSubmitted, Amount: 5000000})
	})

	loan, err := client.GetByID(context.Background(), "loan-1")
	require.NoError(t, err)
	assert.Equal(t, "loan-1", loan.ID)
	assert.Equal(t, workflow.StatusSubmitted, loan.Status)
}

func TestClient_ListBuildsQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "25", q.Get("page_size"))
		assert.Equal(t, "submitted_at", q.Get("sort"))
		assert.Equal(t, "desc", q.Get("direction"))
		assert.Equal(t, "siti", q.Get("search"))
		json.NewEncoder(w).Encode(LoanPage{Page: 2, PageSize: 25})
	})

	page, err := client.List(context.Background(), ListQuery{
		Page:          2,
		PageSize:      25,
		SortField:     "submitted_at",
		SortDirection: "desc",
		Search:        "siti",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
}

func TestClient_TransitionPostsBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/loans/loan-1/approve", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ok", body["notes"])

		json.NewEncoder(w).Encode(Loan{ID: "loan-1", Status: workflow.StatusApproved})
	})

	loan, err := client.Approve(context.Background(), "loan-1", "ok")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusApproved, loan.Status)
}

func TestClient_SurfacesRemoteRejection(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"code": "STALE_STATUS", "message": "loan already reviewed"})
	})

	_, err := client.Approve(context.Background(), "loan-1", "ok")
	require.Error(t, err)
	assert.True(t, IsConflict(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "STALE_STATUS", apiErr.Code)
	assert.Contains(t, apiErr.Message, "already reviewed")
}

func TestClient_MissingLoanIsNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"code": "NOT_FOUND", "message": "no such loan"})
	})

	_, err := client.GetByID(context.Background(), "loan-missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsConflict(err))
}

func TestClient_ErrorWithoutBodyFallsBackToStatusText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := client.List(context.Background(), ListQuery{})
	require.Error(t, err)
	assert.True(t, IsForbidden(err))
	assert.Contains(t, err.Error(), "Forbidden")
}
