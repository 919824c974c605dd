package web_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"code.dogecoin.org/bittune/internal/metrics"
	"code.dogecoin.org/bittune/internal/spec"
	"code.dogecoin.org/bittune/internal/store"
	"code.dogecoin.org/bittune/internal/web"
)

func newAPI(t *testing.T) (http.Handler, spec.StoreCtx, *metrics.Metrics) {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:", context.Background())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	api := web.New("localhost:0", s, reg, 8333, slog.Default())
	return api.Handler(), s.WithCtx(context.Background()), m
}

func TestPeers(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		h, _, _ := newAPI(t)
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/peers", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"peers":[]}`, rec.Body.String())
	})

	t.Run("list", func(t *testing.T) {
		// given
		h, sctx, _ := newAPI(t)
		a := spec.Address{Host: net.ParseIP("10.0.0.1"), Port: 8333}
		require.NoError(t, sctx.UpdatePeerVersion(a, spec.PeerVersion{Version: 70016, Services: 1, Agent: "/Satoshi:27.0.0/", Height: 7}))
		rec := httptest.NewRecorder()

		// when
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/peers", nil))

		// then
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		var res spec.PeerListRes
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		require.Len(t, res.Peers, 1)
		require.Equal(t, "10.0.0.1:8333", res.Peers[0].Address)
		require.Equal(t, "/Satoshi:27.0.0/", res.Peers[0].Agent)
	})

	t.Run("options", func(t *testing.T) {
		h, _, _ := newAPI(t)
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/peers", nil))

		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, "GET, OPTIONS", rec.Header().Get("Allow"))
	})

	t.Run("method not allowed", func(t *testing.T) {
		h, _, _ := newAPI(t)
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/peers", strings.NewReader("{}")))

		require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestAddPeer(t *testing.T) {
	t.Run("default port", func(t *testing.T) {
		// given
		h, sctx, _ := newAPI(t)
		rec := httptest.NewRecorder()

		// when
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/addpeer", strings.NewReader(`{"addr":"10.0.0.9"}`)))

		// then
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `"OK"`, rec.Body.String())
		a, err := sctx.ChoosePeer()
		require.NoError(t, err)
		require.Equal(t, "10.0.0.9:8333", a.String())
	})

	t.Run("bad address", func(t *testing.T) {
		h, _, _ := newAPI(t)
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/addpeer", strings.NewReader(`{"addr":"seed.example.org:8333"}`)))

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad json", func(t *testing.T) {
		h, _, _ := newAPI(t)
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/addpeer", strings.NewReader(`{`)))

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMetrics(t *testing.T) {
	h, _, m := newAPI(t)
	m.Handshakes.WithLabelValues("ok").Inc()
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `bittune_handshakes_total{outcome="ok"} 1`)
}
