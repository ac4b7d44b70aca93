package report

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/orderflow/internal/domain/order"
)

var statusOrder = []order.Status{
	order.StatusPending,
	order.StatusConfirmed,
	order.StatusShipped,
	order.StatusDelivered,
	order.StatusCancelled,
}

// Service builds sales reports, optionally through a cache.
type Service struct {
	orders Source
	cache  Cache
	tracer trace.Tracer
}

// NewService creates a report Service. cache may be nil.
func NewService(orders Source, cache Cache, tp trace.TracerProvider) *Service {
	if tp == nil {
		tp = tracenoop.NewTracerProvider()
	}
	return &Service{
		orders: orders,
		cache:  cache,
		tracer: tp.Tracer("orderflow/report"),
	}
}

// Admin aggregates revenue, a daily series and a status histogram over all orders in r.
func (s *Service) Admin(ctx context.Context, r Range) (*AdminReport, error) {
	ctx, span := s.tracer.Start(ctx, "report.Admin")
	defer span.End()

	key := "report:admin:" + rangeKey(r)
	var cached AdminReport
	if s.fromCache(ctx, key, &cached) {
		return &cached, nil
	}

	orders, err := s.orders.List(ctx, order.Filter{From: r.From, To: r.To})
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}

	rep := BuildAdmin(r, orders)
	s.toCache(ctx, key, rep)
	return rep, nil
}

// Seller aggregates the seller's item revenue, a daily series and top products in r.
func (s *Service) Seller(ctx context.Context, sellerID string, r Range) (*SellerReport, error) {
	ctx, span := s.tracer.Start(ctx, "report.Seller", trace.WithAttributes(attribute.String("seller.id", sellerID)))
	defer span.End()

	key := "report:seller:" + sellerID + ":" + rangeKey(r)
	var cached SellerReport
	if s.fromCache(ctx, key, &cached) {
		return &cached, nil
	}

	ids, err := s.orders.IDsBySeller(ctx, sellerID)
	if err != nil {
		return nil, errors.Wrap(err, "seller order ids")
	}
	var orders []order.Order
	if len(ids) > 0 {
		if orders, err = s.orders.ListByIDs(ctx, ids, r.From, r.To); err != nil {
			return nil, errors.Wrap(err, "list seller orders")
		}
	}

	rep := BuildSeller(r, sellerID, orders)
	s.toCache(ctx, key, rep)
	return rep, nil
}

// BuildAdmin aggregates orders into an AdminReport. Orders outside r or
// marked deleted are ignored.
func BuildAdmin(r Range, orders []order.Order) *AdminReport {
	rep := &AdminReport{Range: r, TotalRevenue: decimal.Zero}
	daily := map[string]*DailyPoint{}
	statuses := map[order.Status]int{}

	for _, o := range orders {
		if !inRange(o, r) {
			continue
		}
		rep.TotalOrders++
		rep.TotalRevenue = rep.TotalRevenue.Add(o.TotalAmount)
		addDaily(daily, o.CreatedAt, o.TotalAmount)
		statuses[o.Status]++
	}

	rep.Daily = sortedDaily(daily)
	rep.ByStatus = make([]StatusCount, 0, len(statuses))
	for _, st := range statusOrder {
		if n := statuses[st]; n > 0 {
			rep.ByStatus = append(rep.ByStatus, StatusCount{Status: st, Count: n})
		}
	}
	return rep
}

// BuildSeller aggregates the seller's non-deleted items of orders into a
// SellerReport. Top products rank by units sold, ties by product id.
func BuildSeller(r Range, sellerID string, orders []order.Order) *SellerReport {
	rep := &SellerReport{Range: r, SellerID: sellerID, TotalRevenue: decimal.Zero}
	daily := map[string]*DailyPoint{}
	products := map[string]*TopProduct{}

	for _, o := range orders {
		if !inRange(o, r) {
			continue
		}
		items := o.SellerItems(sellerID)
		if len(items) == 0 {
			continue
		}

		revenue := decimal.Zero
		for _, it := range items {
			revenue = revenue.Add(it.TotalPrice)
			rep.UnitsSold += it.Quantity

			tp, ok := products[it.ProductID]
			if !ok {
				tp = &TopProduct{ProductID: it.ProductID, ProductName: it.ProductName, Revenue: decimal.Zero}
				products[it.ProductID] = tp
			}
			tp.Units += it.Quantity
			tp.Revenue = tp.Revenue.Add(it.TotalPrice)
		}

		rep.TotalOrders++
		rep.TotalRevenue = rep.TotalRevenue.Add(revenue)
		addDaily(daily, o.CreatedAt, revenue)
	}

	rep.Daily = sortedDaily(daily)
	top := make([]TopProduct, 0, len(products))
	for _, tp := range products {
		top = append(top, *tp)
	}
	slices.SortFunc(top, func(a, b TopProduct) int {
		if c := cmp.Compare(b.Units, a.Units); c != 0 {
			return c
		}
		return cmp.Compare(a.ProductID, b.ProductID)
	})
	if len(top) > topProducts {
		top = top[:topProducts]
	}
	rep.TopProducts = top
	return rep
}

func inRange(o order.Order, r Range) bool {
	return !o.IsDeleted && !o.CreatedAt.Before(r.From) && o.CreatedAt.Before(r.To)
}

func addDaily(daily map[string]*DailyPoint, at time.Time, revenue decimal.Decimal) {
	day := at.UTC().Format(time.DateOnly)
	p, ok := daily[day]
	if !ok {
		p = &DailyPoint{Date: day, Revenue: decimal.Zero}
		daily[day] = p
	}
	p.Orders++
	p.Revenue = p.Revenue.Add(revenue)
}

func sortedDaily(daily map[string]*DailyPoint) []DailyPoint {
	out := make([]DailyPoint, 0, len(daily))
	for _, day := range slices.Sorted(maps.Keys(daily)) {
		out = append(out, *daily[day])
	}
	return out
}

// cacheGranularity is the resolution of range bounds in cache keys. Default
// ranges derive from the request time, so sub-minute bounds would give every
// request its own key.
const cacheGranularity = time.Minute

func rangeKey(r Range) string {
	from := r.From.UTC().Truncate(cacheGranularity)
	to := r.To.UTC().Truncate(cacheGranularity)
	return from.Format(time.RFC3339) + ":" + to.Format(time.RFC3339)
}

func (s *Service) fromCache(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	ok, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		zctx.From(ctx).Warn("Read report cache", zap.String("key", key), zap.Error(err))
		return false
	}
	return ok
}

func (s *Service) toCache(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, v); err != nil {
		zctx.From(ctx).Warn("Write report cache", zap.String("key", key), zap.Error(err))
	}
}
