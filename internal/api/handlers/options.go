package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/wonny/optionflow/internal/ingest"
	"github.com/wonny/optionflow/internal/options"
	"github.com/wonny/optionflow/internal/store"
	"github.com/wonny/optionflow/pkg/logger"
	"github.com/wonny/optionflow/pkg/redis"
)

// Supported actions of the dispatch endpoint.
const (
	ActionHealthCheck        = "health-check"
	ActionFetchAndStore      = "fetch-and-store"
	ActionFetchOnly          = "fetch-only"
	ActionGetExpiryDates     = "get-expiry-dates"
	ActionGetOptionsData     = "get-options-data"
	ActionGetUnderlyingPrice = "get-underlying-price"
)

// Runner is the ingest pipeline surface the handler invokes.
type Runner interface {
	Run(ctx context.Context, symbol string, force bool) (*ingest.RunResult, error)
	FetchOnly(ctx context.Context, symbol, expiry string, force bool) (*ingest.RunResult, []options.Row, error)
}

// Reader is the read-only query facade. These reads never trigger a
// fetch.
type Reader interface {
	DistinctExpiries(ctx context.Context, underlying string) ([]time.Time, error)
	GetByExpiry(ctx context.Context, underlying string, expiry time.Time) ([]options.Row, error)
	LatestUnderlyingPrice(ctx context.Context, symbol string) (*store.UnderlyingPrice, error)
}

// Pinger reports backing-store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Response is the envelope every action replies with.
type Response struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
	Symbol    string      `json:"symbol,omitempty"`
	Action    string      `json:"action,omitempty"`
	Result    interface{} `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// OptionsHandler serves the single options dispatch endpoint.
type OptionsHandler struct {
	pipeline      Runner
	reader        Reader
	db            Pinger
	cache         *redis.Cache
	logger        *logger.Logger
	defaultSymbol string
}

// NewOptionsHandler creates the handler.
func NewOptionsHandler(pipeline Runner, reader Reader, db Pinger, cache *redis.Cache, log *logger.Logger, defaultSymbol string) *OptionsHandler {
	return &OptionsHandler{
		pipeline:      pipeline,
		reader:        reader,
		db:            db,
		cache:         cache,
		logger:        log,
		defaultSymbol: defaultSymbol,
	}
}

// Handle dispatches on the action query parameter.
// GET /api/options?action=...&symbol=...&expiry=...&force=...
func (h *OptionsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	action := r.URL.Query().Get("action")
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		symbol = h.defaultSymbol
	}
	expiry := r.URL.Query().Get("expiry")
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	switch action {
	case ActionHealthCheck:
		h.healthCheck(ctx, w, symbol)
	case ActionFetchAndStore:
		h.fetchAndStore(ctx, w, symbol, force)
	case ActionFetchOnly:
		h.fetchOnly(ctx, w, symbol, expiry, force)
	case ActionGetExpiryDates:
		h.getExpiryDates(ctx, w, symbol)
	case ActionGetOptionsData:
		h.getOptionsData(ctx, w, symbol, expiry)
	case ActionGetUnderlyingPrice:
		h.getUnderlyingPrice(ctx, w, symbol)
	default:
		h.respondError(w, http.StatusBadRequest,
			fmt.Sprintf("unknown action %q", action))
	}
}

func (h *OptionsHandler) healthCheck(ctx context.Context, w http.ResponseWriter, symbol string) {
	if err := h.db.Ping(ctx); err != nil {
		h.respondError(w, http.StatusInternalServerError, "database unreachable: "+err.Error())
		return
	}

	h.respond(w, http.StatusOK, Response{
		Success: true,
		Message: "service healthy",
		Symbol:  symbol,
		Action:  ActionHealthCheck,
	})
}

func (h *OptionsHandler) fetchAndStore(ctx context.Context, w http.ResponseWriter, symbol string, force bool) {
	result, err := h.pipeline.Run(ctx, symbol, force)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Error("Fetch-and-store run failed")
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	message := fmt.Sprintf("stored %d rows (%d calls, %d puts) from %d contracts",
		result.RowsWritten, result.Calls, result.Puts, result.ContractsFetched)
	if result.Skipped {
		message = "skipped, " + result.SkipReason
	} else {
		// Writes happened; facade caches for this symbol are stale
		h.invalidateCaches(ctx, symbol)
	}

	h.respond(w, http.StatusOK, Response{
		Success: true,
		Message: message,
		Symbol:  symbol,
		Action:  ActionFetchAndStore,
		Result:  result,
	})
}

func (h *OptionsHandler) fetchOnly(ctx context.Context, w http.ResponseWriter, symbol, expiry string, force bool) {
	result, rows, err := h.pipeline.FetchOnly(ctx, symbol, expiry, force)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Error("Fetch-only run failed")
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	message := fmt.Sprintf("fetched %d contracts, %d rows after transform",
		result.ContractsFetched, len(rows))
	if result.Skipped {
		message = "skipped, " + result.SkipReason
	}

	h.respond(w, http.StatusOK, Response{
		Success: true,
		Message: message,
		Symbol:  symbol,
		Action:  ActionFetchOnly,
		Result: map[string]interface{}{
			"run":  result,
			"rows": rows,
		},
	})
}

func (h *OptionsHandler) getExpiryDates(ctx context.Context, w http.ResponseWriter, symbol string) {
	var dates []string
	cacheKey := redis.ExpiryDatesKey(symbol)
	if found, _ := h.cache.Get(ctx, cacheKey, &dates); !found {
		expiries, err := h.reader.DistinctExpiries(ctx, symbol)
		if err != nil {
			h.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		dates = make([]string, 0, len(expiries))
		for _, expiry := range expiries {
			dates = append(dates, expiry.Format("2006-01-02"))
		}
		_ = h.cache.Set(ctx, cacheKey, dates, redis.TTLMedium)
	}

	h.respond(w, http.StatusOK, Response{
		Success: true,
		Message: fmt.Sprintf("%d expiry dates", len(dates)),
		Symbol:  symbol,
		Action:  ActionGetExpiryDates,
		Result:  dates,
	})
}

func (h *OptionsHandler) getOptionsData(ctx context.Context, w http.ResponseWriter, symbol, expiry string) {
	if expiry == "" {
		h.respondError(w, http.StatusBadRequest, "expiry parameter is required")
		return
	}

	expiryDate, err := time.Parse("2006-01-02", expiry)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid expiry format (expected YYYY-MM-DD)")
		return
	}

	var rows []options.Row
	cacheKey := redis.OptionsByExpiryKey(symbol, expiry)
	if found, _ := h.cache.Get(ctx, cacheKey, &rows); !found {
		rows, err = h.reader.GetByExpiry(ctx, symbol, expiryDate)
		if err != nil {
			h.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		_ = h.cache.Set(ctx, cacheKey, rows, redis.TTLShort)
	}

	h.respond(w, http.StatusOK, Response{
		Success: true,
		Message: fmt.Sprintf("%d rows for expiry %s", len(rows), expiry),
		Symbol:  symbol,
		Action:  ActionGetOptionsData,
		Result:  rows,
	})
}

func (h *OptionsHandler) getUnderlyingPrice(ctx context.Context, w http.ResponseWriter, symbol string) {
	price, err := h.reader.LatestUnderlyingPrice(ctx, symbol)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "no underlying price recorded for "+symbol)
		return
	}

	h.respond(w, http.StatusOK, Response{
		Success: true,
		Message: fmt.Sprintf("latest price for %s as of %s", symbol, price.AsOf.Format(time.RFC3339)),
		Symbol:  symbol,
		Action:  ActionGetUnderlyingPrice,
		Result:  price,
	})
}

// invalidateCaches drops facade caches after a successful store.
func (h *OptionsHandler) invalidateCaches(ctx context.Context, symbol string) {
	_ = h.cache.Delete(ctx, redis.ExpiryDatesKey(symbol))
	_ = h.cache.Delete(ctx, redis.UnderlyingPriceKey(symbol))
}

func (h *OptionsHandler) respond(w http.ResponseWriter, status int, resp Response) {
	resp.Timestamp = time.Now().UTC()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func (h *OptionsHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respond(w, status, Response{
		Success: false,
		Message: message,
		Error:   message,
	})
}
