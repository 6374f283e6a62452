package devnet

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// idPattern matches base64url sha256 transaction ids.
const idPattern = "[A-Za-z0-9_-]{43}"

// RegisterRoutes sets up the gateway API. The catch-all data route goes last.
func RegisterRoutes(r *mux.Router, h *Handler, gatherer prometheus.Gatherer) {
	r.HandleFunc("/tx_anchor", h.Anchor).Methods(http.MethodGet)
	r.HandleFunc("/price/{bytes:[0-9]+}", h.Price).Methods(http.MethodGet)
	r.HandleFunc("/tx", h.SubmitTx).Methods(http.MethodPost)
	r.HandleFunc("/tx/{id:"+idPattern+"}/status", h.TxStatus).Methods(http.MethodGet)
	r.HandleFunc("/graphql", h.GraphQL).Methods(http.MethodPost)

	// devnet only
	r.HandleFunc("/mine", h.Mine).Methods(http.MethodPost)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	r.HandleFunc("/{id:"+idPattern+"}", h.TxData).Methods(http.MethodGet)
}
