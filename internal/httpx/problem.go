package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ariefcatur/go-pos-sales/internal/sales"
)

// ContentTypeProblemJSON is the media type for RFC 7807 responses.
const ContentTypeProblemJSON = "application/problem+json"

const (
	TypeValidation        = "/problems/validation-error"
	TypeInsufficientStock = "/problems/insufficient-stock"
	TypeInternal          = "/problems/internal-error"
	TypeUnavailable       = "/problems/service-unavailable"
)

// Problem is an RFC 7807 Problem Details body.
type Problem struct {
	Type     string         `json:"type"`
	Title    string         `json:"title"`
	Status   int            `json:"status"`
	Detail   string         `json:"detail,omitempty"`
	Instance string         `json:"instance,omitempty"`
	Extra    map[string]any `json:"extensions,omitempty"`
}

func (p Problem) Error() string {
	if p.Detail != "" {
		return fmt.Sprintf("%s: %s", p.Title, p.Detail)
	}
	return p.Title
}

// ProblemFor maps sales errors onto problem details. Unknown errors become a 500 without
// leaking the cause.
func ProblemFor(err error) Problem {
	var (
		stock   *sales.InsufficientStockError
		problem Problem
	)
	switch {
	case errors.As(err, &problem):
		return problem
	case errors.As(err, &stock):
		return Problem{
			Type:   TypeInsufficientStock,
			Title:  "Insufficient Stock",
			Status: http.StatusConflict,
			Detail: stock.Error(),
			Extra:  map[string]any{"productId": stock.ProductID},
		}
	case errors.Is(err, sales.ErrInvalidRequest):
		return Problem{
			Type:   TypeValidation,
			Title:  "Validation Error",
			Status: http.StatusBadRequest,
			Detail: err.Error(),
		}
	default:
		return Problem{
			Type:   TypeInternal,
			Title:  "Internal Server Error",
			Status: http.StatusInternalServerError,
		}
	}
}

func writeProblem(w http.ResponseWriter, r *http.Request, p Problem) {
	if p.Instance == "" {
		p.Instance = r.URL.Path
	}
	w.Header().Set("Content-Type", ContentTypeProblemJSON)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
