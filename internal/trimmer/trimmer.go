package trimmer

import (
	"log/slog"
	"time"

	"code.dogecoin.org/governor"

	"code.dogecoin.org/bittune/internal/metrics"
	"code.dogecoin.org/bittune/internal/spec"
)

const TrimInterval = time.Hour

// Trimmer expires old peers from the store and refreshes the
// known-peers gauge.
type Trimmer struct {
	governor.ServiceCtx
	store   spec.Store
	metrics *metrics.Metrics
	log     *slog.Logger
}

func New(store spec.Store, m *metrics.Metrics, logger *slog.Logger) *Trimmer {
	return &Trimmer{store: store, metrics: m, log: logger}
}

func (t *Trimmer) Run() {
	sctx := t.store.WithCtx(t.Context)
	for {
		t.Trim(sctx)
		if t.Sleep(TrimInterval) {
			return
		}
	}
}

// Trim runs one expiry pass.
func (t *Trimmer) Trim(sctx spec.StoreCtx) {
	advanced, removed, err := sctx.TrimPeers()
	if err != nil {
		t.log.Error("cannot trim peers", "service", t.ServiceName, "err", err)
	} else if advanced {
		t.log.Info("expired peers", "service", t.ServiceName, "removed", removed)
	}
	size, fresh, err := sctx.PeerStats()
	if err != nil {
		t.log.Error("cannot count peers", "service", t.ServiceName, "err", err)
		return
	}
	t.metrics.KnownPeers.Set(float64(size))
	t.log.Debug("peer store", "service", t.ServiceName, "peers", size, "new", fresh)
}
