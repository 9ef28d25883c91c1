package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ckb-ringvote/ringvote/tally"
)

func TestServeTallyBeforeAnyRun(t *testing.T) {
	h := New(nil)
	req := httptest.NewRequest(http.MethodGet, "/tally", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServeTallyAfterUpdate(t *testing.T) {
	h := New(nil)
	result := &tally.Result{
		Order:      []uint32{0x11223344},
		Candidates: map[uint32]string{0x11223344: "A"},
		Counts:     map[uint32]int{0x11223344: 3},
	}
	h.Update(result, nil)

	req := httptest.NewRequest(http.MethodGet, "/tally", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var m map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	require.Equal(t, 3, m["44332211"])
}

func TestServeHealthReflectsLastRun(t *testing.T) {
	h := New(nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h.Update(&tally.Result{}, nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var body healthBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Healthy)
}

func TestServeHealthReportsRunError(t *testing.T) {
	h := New(nil)
	h.Update(&tally.Result{}, nil)
	h.Update(nil, errors.New("scan vote transactions: rpc timeout"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body healthBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.Healthy)
	require.Contains(t, body.Error, "rpc timeout")
}

func TestMetricsEndpointServed(t *testing.T) {
	h := New(nil)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
