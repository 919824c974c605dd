package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"code.dogecoin.org/governor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"code.dogecoin.org/bittune/internal/spec"
)

func New(bind string, store spec.Store, gatherer prometheus.Gatherer, defaultPort uint16, logger *slog.Logger) *WebAPI {
	mux := http.NewServeMux()
	a := &WebAPI{
		_store: store,
		store:  store.WithCtx(context.Background()), // replaced in Run
		srv: http.Server{
			Addr:              bind,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		defaultPort: defaultPort,
		log:         logger,
	}
	mux.HandleFunc("/peers", a.getPeers)
	mux.HandleFunc("/addpeer", a.addPeer)
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return a
}

type WebAPI struct {
	governor.ServiceCtx
	_store      spec.Store
	store       spec.StoreCtx
	srv         http.Server
	defaultPort uint16 // for /addpeer addresses without a port
	log         *slog.Logger
}

// Handler serves the API routes (for tests).
func (a *WebAPI) Handler() http.Handler {
	return a.srv.Handler
}

// called on any
func (a *WebAPI) Stop() {
	// new goroutine because Shutdown() blocks
	go func() {
		// cannot use ServiceCtx here because it's already cancelled
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		a.srv.Shutdown(ctx) // blocking call
		cancel()
	}()
}

// goroutine
func (a *WebAPI) Run() {
	a.store = a._store.WithCtx(a.Context) // Service Context is first available here
	a.log.Info("HTTP server listening", "service", a.ServiceName, "bind", a.srv.Addr)
	if err := a.srv.ListenAndServe(); err != http.ErrServerClosed { // blocking call
		a.log.Error("HTTP server failed", "service", a.ServiceName, "err", err)
	}
}

func (a *WebAPI) getPeers(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		list, err := a.store.PeerList()
		if err != nil {
			http.Error(w, fmt.Sprintf("error in query: %s", err.Error()), http.StatusInternalServerError)
			return
		}
		if list.Peers == nil {
			list.Peers = []spec.PeerInfo{} // encode [] not null
		}
		bytes, err := json.Marshal(list)
		if err != nil {
			http.Error(w, fmt.Sprintf("error encoding JSON: %s", err.Error()), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", strconv.Itoa(len(bytes)))
		w.Header().Set("Allow", "GET, OPTIONS")
		w.Write(bytes)
	} else {
		options(w, r, "GET, OPTIONS")
	}
}

type AddPeer struct {
	Addr string `json:"addr"`
}

func (a *WebAPI) addPeer(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		// request
		body, err := io.ReadAll(io.LimitReader(r.Body, 4096))
		if err != nil {
			http.Error(w, fmt.Sprintf("bad request: %v", err), http.StatusBadRequest)
			return
		}
		var to AddPeer
		err = json.Unmarshal(body, &to)
		if err != nil {
			http.Error(w, fmt.Sprintf("error decoding JSON: %s", err.Error()), http.StatusBadRequest)
			return
		}
		addr, err := spec.ParseHostPort(to.Addr, a.defaultPort)
		if err != nil || !addr.IsValid() {
			http.Error(w, fmt.Sprintf("invalid peer address: %q", to.Addr), http.StatusBadRequest)
			return
		}

		// add peer: a collector will pick it up (new peers first)
		err = a.store.AddPeer(addr, time.Now().Unix(), 0)
		if err != nil {
			http.Error(w, fmt.Sprintf("error in query: %s", err.Error()), http.StatusInternalServerError)
			return
		}
		a.log.Info("added peer", "peer", addr.String())

		// response
		res, err := json.Marshal("OK")
		if err != nil {
			http.Error(w, fmt.Sprintf("error encoding JSON: %s", err.Error()), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", strconv.Itoa(len(res)))
		w.Header().Set("Allow", "POST, OPTIONS")
		w.Write(res)
	} else {
		options(w, r, "POST, OPTIONS")
	}
}

func options(w http.ResponseWriter, r *http.Request, options string) {
	switch r.Method {
	case http.MethodOptions:
		w.Header().Set("Allow", options)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.Header().Set("Allow", options)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
