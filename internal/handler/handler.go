// Package handler exposes the order workflow over HTTP.
package handler

import (
	"context"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/xenking/orderflow/internal/domain/order"
	"github.com/xenking/orderflow/internal/domain/report"
	"github.com/xenking/orderflow/internal/domain/user"
)

// OrderService is implemented by *order.Service.
type OrderService interface {
	PlaceOrder(ctx context.Context, userID string, req order.PlaceOrderRequest) (*order.View, error)
	UpdateStatus(ctx context.Context, orderID string, req order.UpdateStatusRequest, actor user.Actor) (*order.View, error)
	GetOrder(ctx context.Context, actor user.Actor, orderID string) (*order.View, error)
	ListOrders(ctx context.Context, actor user.Actor, req order.ListRequest) ([]order.View, error)
}

// ReportService is implemented by *report.Service.
type ReportService interface {
	Admin(ctx context.Context, r report.Range) (*report.AdminReport, error)
	Seller(ctx context.Context, sellerID string, r report.Range) (*report.SellerReport, error)
}

var (
	_ OrderService  = (*order.Service)(nil)
	_ ReportService = (*report.Service)(nil)
)

// Handler serves the order and report endpoints.
type Handler struct {
	orders   OrderService
	reports  ReportService
	validate *validator.Validate
	now      func() time.Time
}

// NewHandler creates a Handler.
func NewHandler(orders OrderService, reports ReportService) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{
		orders:   orders,
		reports:  reports,
		validate: v,
		now:      time.Now,
	}
}

// Routes registers the API on a new mux. Every route requires a bearer token.
func (h *Handler) Routes(sec *SecurityHandler) *http.ServeMux {
	mux := http.NewServeMux()
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, sec.Require(withRoute(pattern, fn)))
	}
	handle("POST /api/orders", h.PlaceOrder)
	handle("GET /api/orders", h.ListOrders)
	handle("GET /api/orders/{id}", h.GetOrder)
	handle("PUT /api/orders/{id}/status", h.UpdateStatus)
	handle("GET /api/reports/sales", h.SalesReport)
	return mux
}

// withRoute labels otelhttp metrics with the route pattern.
func withRoute(pattern string, next http.Handler) http.Handler {
	_, route, _ := strings.Cut(pattern, " ")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l, ok := otelhttp.LabelerFromContext(r.Context()); ok {
			l.Add(attribute.String("http.route", route))
		}
		next.ServeHTTP(w, r)
	})
}
