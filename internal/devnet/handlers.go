package devnet

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/idilsaglam/weavetodo/internal/arweave"
	"github.com/idilsaglam/weavetodo/internal/logger"
)

// winstonPerByte keeps prices non-zero so clients exercise the reward field.
const winstonPerByte = 1000

// Handler serves the gateway API over a Ledger.
type Handler struct {
	Ledger  *Ledger
	Metrics *Metrics
}

func NewHandler(l *Ledger, m *Metrics) *Handler {
	return &Handler{Ledger: l, Metrics: m}
}

func (h *Handler) Anchor(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, h.Ledger.Anchor())
}

func (h *Handler) Price(w http.ResponseWriter, r *http.Request) {
	size, err := strconv.ParseUint(mux.Vars(r)["bytes"], 10, 63)
	if err != nil {
		writeText(w, http.StatusBadRequest, "invalid size")
		return
	}
	writeText(w, http.StatusOK, strconv.FormatUint(size*winstonPerByte, 10))
}

// SubmitTx handles POST /tx. Duplicates answer 208 like a real node.
func (h *Handler) SubmitTx(w http.ResponseWriter, r *http.Request) {
	var tx arweave.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		logger.Logger.Error("Failed to decode transaction", zap.Error(err))
		h.Metrics.RejectedTotal.WithLabelValues("decode").Inc()
		writeText(w, http.StatusBadRequest, "invalid transaction payload")
		return
	}

	err := h.Ledger.Add(&tx)
	switch {
	case errors.Is(err, ErrDuplicate):
		h.Metrics.RejectedTotal.WithLabelValues("duplicate").Inc()
		writeText(w, http.StatusAlreadyReported, "Transaction already processed.")
		return
	case errors.Is(err, ErrNoData):
		h.Metrics.RejectedTotal.WithLabelValues("no_data").Inc()
		writeText(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		logger.Logger.Warn("Rejected transaction", zap.String("id", tx.ID), zap.Error(err))
		h.Metrics.RejectedTotal.WithLabelValues("verify").Inc()
		writeText(w, http.StatusBadRequest, "Transaction verification failed.")
		return
	}

	h.Metrics.AcceptedTotal.Inc()
	h.Metrics.MempoolSize.Inc()
	logger.Logger.Info("Accepted transaction", zap.String("id", tx.ID), zap.String("data_size", tx.DataSize))
	writeText(w, http.StatusOK, "OK")
}

func (h *Handler) TxStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.Ledger.Status(mux.Vars(r)["id"])
	if err != nil {
		writeText(w, http.StatusNotFound, "Not Found")
		return
	}
	if st.BlockHeight == 0 {
		writeText(w, http.StatusAccepted, "Pending")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) TxData(w http.ResponseWriter, r *http.Request) {
	data, err := h.Ledger.Data(mux.Vars(r)["id"])
	if err != nil {
		writeText(w, http.StatusNotFound, "Not Found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// GraphQL answers the transactions query only; the query text is not
// parsed, filters come from the variables.
func (h *Handler) GraphQL(w http.ResponseWriter, r *http.Request) {
	var req arweave.GraphQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGraphQLError(w, "invalid request payload")
		return
	}
	conn, err := h.Ledger.Find(req.Variables)
	if err != nil {
		writeGraphQLError(w, err.Error())
		return
	}
	var resp arweave.GraphQLResponse
	resp.Data.Transactions = conn
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	height := h.mine()
	writeJSON(w, http.StatusOK, map[string]int64{"height": height})
}

func (h *Handler) mine() int64 {
	height := h.Ledger.Mine()
	h.Metrics.BlockHeight.Set(float64(height))
	h.Metrics.MempoolSize.Set(0)
	logger.Logger.Debug("Mined block", zap.Int64("height", height))
	return height
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Logger.Error("Failed to encode response", zap.Error(err))
	}
}

func writeGraphQLError(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, arweave.GraphQLResponse{Errors: []arweave.GraphQLError{{Message: msg}}})
}
