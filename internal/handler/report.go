package handler

import (
	"net/http"
	"time"

	"github.com/xenking/orderflow/internal/domain/apperr"
	"github.com/xenking/orderflow/internal/domain/report"
)

// SalesReport handles GET /api/reports/sales?from=&to=.
// Admins get the platform report, sellers their own.
func (h *Handler) SalesReport(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	if !actor.IsAdmin() && !actor.IsSeller() {
		writeError(w, r, apperr.Unauthorized("reports are available to admins and sellers only"))
		return
	}

	q := r.URL.Query()
	from, err := timeParam(q.Get("from"))
	if err != nil {
		writeError(w, r, apperr.WithCause(apperr.KindBadRequest, err, "from must be RFC3339 or YYYY-MM-DD"))
		return
	}
	to, err := timeParam(q.Get("to"))
	if err != nil {
		writeError(w, r, apperr.WithCause(apperr.KindBadRequest, err, "to must be RFC3339 or YYYY-MM-DD"))
		return
	}
	rng := report.NormalizeRange(from, to, h.now())

	if actor.IsAdmin() {
		rep, err := h.reports.Admin(r.Context(), rng)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
		return
	}
	rep, err := h.reports.Seller(r.Context(), actor.UserID, rng)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func timeParam(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		if t, err = time.Parse(time.DateOnly, s); err != nil {
			return nil, err
		}
	}
	return &t, nil
}
