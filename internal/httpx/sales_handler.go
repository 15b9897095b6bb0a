package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-pos-sales/internal/sales"
)

type SalesHandler struct {
	Sales  sales.UseCases
	Logger *zap.Logger
}

func (h *SalesHandler) Register(r chi.Router) {
	r.Post("/sales/orders", h.placeOrder)
	r.Get("/sales/orders", h.listOrders)
	r.Get("/sales/totals", h.totals)
}

func (h *SalesHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req sales.PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, r, Problem{
			Type:   TypeValidation,
			Title:  "Validation Error",
			Status: http.StatusBadRequest,
			Detail: "invalid json: " + err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	conf, err := h.Sales.PlaceOrder(ctx, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, conf)
}

func (h *SalesHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	storeID, rg, err := storeAndRange(q.Get("storeId"), q.Get("from"), q.Get("to"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sort, err := sales.ParseSort(q.Get("sort"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page, err := optionalInt("page", q.Get("page"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	size, err := optionalInt("pageSize", q.Get("pageSize"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Sales.ListOrders(ctx, sales.OrderQuery{
		StoreID: storeID, Range: rg, Page: page, PageSize: size, Sort: sort,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *SalesHandler) totals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	storeID, rg, err := storeAndRange(q.Get("storeId"), q.Get("from"), q.Get("to"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	t, err := h.Sales.GetSalesTotals(ctx, storeID, rg)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *SalesHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	p := ProblemFor(err)
	if p.Status >= http.StatusInternalServerError && h.Logger != nil {
		h.Logger.Error("sales request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
	}
	writeProblem(w, r, p)
}

func storeAndRange(store, from, to string) (int64, sales.DateRange, error) {
	id, err := strconv.ParseInt(store, 10, 64)
	if err != nil {
		return 0, sales.DateRange{}, badParam("storeId", store)
	}
	f, err := parseTime(from, false)
	if err != nil {
		return 0, sales.DateRange{}, badParam("from", from)
	}
	t, err := parseTime(to, true)
	if err != nil {
		return 0, sales.DateRange{}, badParam("to", to)
	}
	return id, sales.DateRange{From: f, To: t}, nil
}

// parseTime accepts RFC 3339 or a bare date; a bare end date covers the whole day.
func parseTime(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		d = d.AddDate(0, 0, 1).Add(-time.Microsecond)
	}
	return d, nil
}

func optionalInt(name, s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, badParam(name, s)
	}
	return n, nil
}

func badParam(name, value string) error {
	return Problem{
		Type:   TypeValidation,
		Title:  "Validation Error",
		Status: http.StatusBadRequest,
		Detail: name + ": invalid value " + strconv.Quote(value),
	}
}
