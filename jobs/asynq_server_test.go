package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func getHealth(t *testing.T, inspector QueueInspector) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(inspector, quietLogger()).MountRoutes)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	return rr
}

func TestHealthWithoutInspector(t *testing.T) {
	rr := getHealth(t, nil)

	require.Equal(t, http.StatusOK, rr.Code)
	var body queueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, queueHealth{Queue: QueueDefault}, body)
}

func TestHealthReportsQueueDepth(t *testing.T) {
	rr := getHealth(t, stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 4, Active: 1, Retry: 2}})

	require.Equal(t, http.StatusOK, rr.Code)
	var body queueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, queueHealth{Queue: QueueDefault, Pending: 4, Active: 1, Retry: 2}, body)
}

func TestHealthUnavailable(t *testing.T) {
	rr := getHealth(t, stubInspector{err: errors.New("redis down")})

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestClientEnqueuesUniqueInvalidations(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewClient(asynq.RedisClientOpt{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	first, err := client.EnqueueSettingsInvalidate(ctx, "settings edited")
	require.NoError(t, err)
	second, err := client.EnqueueSettingsInvalidate(ctx, "settings edited")
	require.NoError(t, err)

	require.Equal(t, TaskSettingsInvalidate, first.Type)
	require.Equal(t, QueueDefault, first.Queue)
	require.NotEqual(t, first.ID, second.ID)
	_, err = uuid.Parse(first.ID)
	require.NoError(t, err)
}
