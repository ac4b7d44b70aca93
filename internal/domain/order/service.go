package order

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/orderflow/internal/domain/apperr"
	"github.com/xenking/orderflow/internal/domain/cart"
	"github.com/xenking/orderflow/internal/domain/coupon"
	"github.com/xenking/orderflow/internal/domain/product"
	"github.com/xenking/orderflow/internal/domain/user"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// PlaceOrderRequest holds the input for placing an order from the caller's cart.
type PlaceOrderRequest struct {
	AddressID  string
	CouponCode string
}

// UpdateStatusRequest holds the input for a status change.
type UpdateStatusRequest struct {
	Status         string
	TrackingNumber *string
}

// ListRequest pages through the orders visible to an actor.
type ListRequest struct {
	Status Status
	Limit  int
	Offset int
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithNumberGenerator overrides how candidate order numbers are drawn.
func WithNumberGenerator(gen func(time.Time) string) Option {
	return func(s *Service) { s.newNumber = gen }
}

// WithNumberAttempts bounds how many candidate order numbers are checked per placement.
func WithNumberAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.numberAttempts = n
		}
	}
}

// WithPlaceAttempts bounds how many times a placement transaction is re-run
// after losing an order number race.
func WithPlaceAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.placeAttempts = n
		}
	}
}

// WithNotifyTimeout bounds each notification send.
func WithNotifyTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.notifyTimeout = d
		}
	}
}

// WithMeterProvider sets the meter provider for order counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider = mp }
}

// WithTracerProvider sets the tracer provider for order spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracerProvider = tp }
}

// Service places orders and moves them through fulfillment.
type Service struct {
	stores    Stores
	tx        Transactor
	notifier  Notifier
	evaluator *coupon.Evaluator

	now            func() time.Time
	newNumber      func(time.Time) string
	numberAttempts int
	placeAttempts  int
	notifyTimeout  time.Duration

	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	tracer         trace.Tracer
	placed         metric.Int64Counter
	failed         metric.Int64Counter
	statusUpdates  metric.Int64Counter
	notifyFailed   metric.Int64Counter
}

// NewService creates an order Service. stores is used for reads outside
// transactions; tx opens transactions for placement and status updates.
func NewService(stores Stores, tx Transactor, notifier Notifier, opts ...Option) (*Service, error) {
	s := &Service{
		stores:         stores,
		tx:             tx,
		notifier:       notifier,
		now:            time.Now,
		newNumber:      NewNumber,
		numberAttempts: 10,
		placeAttempts:  3,
		notifyTimeout:  5 * time.Second,
		meterProvider:  metricnoop.NewMeterProvider(),
		tracerProvider: tracenoop.NewTracerProvider(),
	}
	for _, o := range opts {
		o(s)
	}
	s.evaluator = coupon.NewEvaluatorAt(func() time.Time { return s.now() })
	s.tracer = s.tracerProvider.Tracer("orderflow/order")

	meter := s.meterProvider.Meter("orderflow/order")
	var err error
	if s.placed, err = meter.Int64Counter("orders.placed"); err != nil {
		return nil, errors.Wrap(err, "orders.placed counter")
	}
	if s.failed, err = meter.Int64Counter("orders.failed"); err != nil {
		return nil, errors.Wrap(err, "orders.failed counter")
	}
	if s.statusUpdates, err = meter.Int64Counter("orders.status_updates"); err != nil {
		return nil, errors.Wrap(err, "orders.status_updates counter")
	}
	if s.notifyFailed, err = meter.Int64Counter("notifications.failed"); err != nil {
		return nil, errors.Wrap(err, "notifications.failed counter")
	}
	return s, nil
}

// PlaceOrder turns the user's cart into an order. Cart, address and coupon are
// validated up front; pricing, stock deduction, persistence, coupon usage and
// cart clearing then happen in one transaction. The customer is notified after
// commit and notification failures are only logged.
func (s *Service) PlaceOrder(ctx context.Context, userID string, req PlaceOrderRequest) (_ *View, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Place", trace.WithAttributes(attribute.String("user.id", userID)))
	defer func() {
		if rerr != nil {
			s.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", apperr.KindOf(rerr).String())))
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	c, err := s.stores.Carts.GetByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	items := c.ActiveItems()
	if len(items) == 0 {
		return nil, apperr.BadRequest("cart is empty")
	}

	addr, err := s.stores.Addresses.GetByID(ctx, req.AddressID)
	if err != nil {
		return nil, errors.Wrap(err, "get address")
	}
	if !addr.BelongsTo(userID) {
		return nil, apperr.BadRequest("invalid address")
	}

	var applied *coupon.Coupon
	discount := decimal.Zero
	if code := strings.TrimSpace(req.CouponCode); code != "" {
		cp, err := s.stores.Coupons.GetByCode(ctx, code)
		if err != nil {
			return nil, errors.Wrap(err, "get coupon")
		}
		res := s.evaluator.Evaluate(cp, c.Subtotal())
		if !res.Valid {
			return nil, apperr.WithCause(apperr.KindBadRequest, res.Reason, res.Message)
		}
		applied = cp
		discount = res.Discount
	}

	var (
		placed   *Order
		customer *user.User
	)
	for attempt := 1; ; attempt++ {
		placed, customer, err = s.place(ctx, userID, addr.ID, items, applied, discount)
		if err == nil {
			break
		}
		if errors.Is(err, ErrDuplicateOrderNumber) && attempt < s.placeAttempts {
			zctx.From(ctx).Debug("Order number taken, retrying placement", zap.Int("attempt", attempt))
			continue
		}
		return nil, err
	}
	s.placed.Add(ctx, 1)
	span.SetAttributes(attribute.String("order.number", placed.OrderNumber))

	full, err := s.stores.Orders.GetByIDWithDetails(ctx, placed.ID)
	switch {
	case err != nil:
		zctx.From(ctx).Error("Reload placed order", zap.String("order_id", placed.ID), zap.Error(err))
	case full != nil:
		placed = full
	}

	s.notify(ctx, EventPlaced, Notification{
		Email:       customer.Email,
		Name:        customer.Name,
		OrderNumber: placed.OrderNumber,
		Total:       placed.TotalAmount,
		At:          placed.CreatedAt,
	})

	return NewView(placed), nil
}

func (s *Service) place(
	ctx context.Context,
	userID, addressID string,
	items []cart.Item,
	applied *coupon.Coupon,
	discount decimal.Decimal,
) (placed *Order, customer *user.User, err error) {
	err = s.tx.InTx(ctx, func(tx Stores) error {
		number, err := s.nextNumber(ctx, tx.Orders)
		if err != nil {
			return err
		}

		u, err := tx.Users.GetByID(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "get user")
		}
		if u == nil {
			return apperr.Unauthorized("user %s not found", userID)
		}

		now := s.now()
		o := &Order{
			ID:          uuid.New().String(),
			OrderNumber: number,
			UserID:      userID,
			AddressID:   addressID,
			Status:      StatusPending,
			TaxAmount:   decimal.Zero,
			CreatedAt:   now,
			UpdatedAt:   now,
			Items:       make([]Item, 0, len(items)),
		}

		ledger := product.NewLedger(tx.Products, tx.Inventory)
		subtotal := decimal.Zero
		itemIDs := make([]string, 0, len(items))
		for _, ci := range items {
			p, err := tx.Products.GetByID(ctx, ci.ProductID)
			if err != nil {
				return errors.Wrapf(err, "get product %s", ci.ProductID)
			}
			if p == nil || !p.IsActive {
				return apperr.BadRequest("Product %s is no longer available.", ci.ProductID)
			}

			available, err := ledger.Available(ctx, p.ID)
			if err != nil {
				return errors.Wrapf(err, "available stock for %s", p.ID)
			}
			if available < ci.Quantity {
				return apperr.BadRequest("Insufficient stock for %s. Only %d available.", p.Name, available)
			}

			price := p.EffectivePrice()
			line := price.Mul(decimal.NewFromInt(int64(ci.Quantity)))
			subtotal = subtotal.Add(line)
			o.Items = append(o.Items, Item{
				ID:          uuid.New().String(),
				OrderID:     o.ID,
				ProductID:   p.ID,
				SellerID:    p.SellerID,
				ProductName: p.Name,
				Quantity:    ci.Quantity,
				UnitPrice:   price,
				TotalPrice:  line,
			})

			if _, err := ledger.Deduct(ctx, p.ID, ci.Quantity); err != nil {
				return errors.Wrapf(err, "deduct stock for %s", p.ID)
			}
			itemIDs = append(itemIDs, ci.ID)
		}

		o.SubTotal = subtotal
		o.DiscountAmount = discount
		o.TotalAmount = decimal.Max(decimal.Zero, subtotal.Sub(discount).Add(o.TaxAmount))
		if applied != nil {
			id := applied.ID
			o.CouponID = &id
		}

		if err := tx.Orders.Add(ctx, o); err != nil {
			return errors.Wrap(err, "add order")
		}

		payment := &Payment{
			ID:            uuid.New().String(),
			OrderID:       o.ID,
			Amount:        o.TotalAmount,
			Status:        PaymentPending,
			Method:        PaymentOther,
			TransactionID: "ORD-" + o.ID + "-" + uuid.New().String(),
			CreatedAt:     now,
		}
		if err := tx.Payments.Add(ctx, payment); err != nil {
			return errors.Wrap(err, "add payment")
		}

		if applied != nil {
			if err := tx.Coupons.IncrementUsage(ctx, applied.ID); err != nil {
				if errors.Is(err, coupon.ErrCouponUsageLimitReached) {
					return apperr.WithCause(apperr.KindBadRequest, err, "Coupon usage limit has been reached.")
				}
				return errors.Wrap(err, "increment coupon usage")
			}
		}

		if err := tx.Carts.MarkItemsDeleted(ctx, itemIDs); err != nil {
			return errors.Wrap(err, "clear cart")
		}

		placed, customer = o, u
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return placed, customer, nil
}

// UpdateStatus writes a new status to an order. Admins may update any order;
// sellers only orders holding at least one of their items. Any status may
// follow any other. Confirmed, Cancelled and Delivered notify the customer.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, req UpdateStatusRequest, actor user.Actor) (_ *View, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.UpdateStatus", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.status", req.Status),
	))
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	status, ok := ParseStatus(req.Status)
	if !ok {
		return nil, apperr.BadRequest("invalid status %q", req.Status)
	}

	var updated *Order
	err := s.tx.InTx(ctx, func(tx Stores) error {
		o, err := tx.Orders.GetByIDWithDetails(ctx, orderID)
		if err != nil {
			return errors.Wrap(err, "get order")
		}
		if o == nil {
			return apperr.NotFound("order %s not found", orderID)
		}
		if !canManage(o, actor) {
			return apperr.Unauthorized("not allowed to update order %s", o.OrderNumber)
		}

		now := s.now()
		o.Status = status
		o.UpdatedAt = now
		switch status {
		case StatusShipped:
			o.ShippedDate = &now
		case StatusDelivered:
			o.DeliveredDate = &now
		}
		if req.TrackingNumber != nil {
			if tn := strings.TrimSpace(*req.TrackingNumber); tn != "" {
				o.TrackingNumber = &tn
			}
		}

		if err := tx.Orders.UpdateFulfillment(ctx, o); err != nil {
			return errors.Wrap(err, "update order")
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.statusUpdates.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(status))))

	if event, ok := statusEvent(status); ok {
		s.notifyCustomer(ctx, event, updated)
	}

	if actor.IsSeller() {
		return NewSellerView(updated, actor.UserID), nil
	}
	return NewView(updated), nil
}

// GetOrder returns the order as the actor may see it. Orders outside the
// actor's reach are reported as not found.
func (s *Service) GetOrder(ctx context.Context, actor user.Actor, orderID string) (*View, error) {
	o, err := s.stores.Orders.GetByIDWithDetails(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	if o == nil || o.IsDeleted {
		return nil, apperr.NotFound("order %s not found", orderID)
	}

	switch actor.Role {
	case user.RoleAdmin:
		return NewView(o), nil
	case user.RoleSeller:
		if o.HasSeller(actor.UserID) {
			return NewSellerView(o, actor.UserID), nil
		}
	default:
		if o.UserID == actor.UserID {
			return NewView(o), nil
		}
	}
	return nil, apperr.NotFound("order %s not found", orderID)
}

// ListOrders pages through the orders visible to the actor, newest first.
func (s *Service) ListOrders(ctx context.Context, actor user.Actor, req ListRequest) ([]View, error) {
	f := Filter{Status: req.Status, Limit: req.Limit, Offset: max(0, req.Offset)}
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	f.Limit = min(f.Limit, maxListLimit)

	switch actor.Role {
	case user.RoleAdmin:
	case user.RoleSeller:
		f.SellerID = actor.UserID
	default:
		f.UserID = actor.UserID
	}

	orders, err := s.stores.Orders.List(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}

	views := make([]View, 0, len(orders))
	for i := range orders {
		if actor.IsSeller() {
			views = append(views, *NewSellerView(&orders[i], actor.UserID))
			continue
		}
		views = append(views, *NewView(&orders[i]))
	}
	return views, nil
}

func canManage(o *Order, actor user.Actor) bool {
	switch actor.Role {
	case user.RoleAdmin:
		return true
	case user.RoleSeller:
		return o.HasSeller(actor.UserID)
	default:
		return false
	}
}

func (s *Service) notifyCustomer(ctx context.Context, event Event, o *Order) {
	u, err := s.stores.Users.GetByID(ctx, o.UserID)
	if err != nil || u == nil {
		zctx.From(ctx).Warn("Skip notification: customer lookup failed",
			zap.String("order_number", o.OrderNumber),
			zap.Error(err),
		)
		s.notifyFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("event", string(event))))
		return
	}

	n := Notification{
		Email:       u.Email,
		Name:        u.Name,
		OrderNumber: o.OrderNumber,
		Total:       o.TotalAmount,
		At:          o.UpdatedAt,
	}
	if o.TrackingNumber != nil {
		n.TrackingNumber = *o.TrackingNumber
	}
	s.notify(ctx, event, n)
}

// notify sends n without letting a failure reach the caller.
func (s *Service) notify(ctx context.Context, event Event, n Notification) {
	if s.notifier == nil {
		return
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			s.notifyFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("event", string(event))))
			zctx.From(ctx).Error("Order notification panicked",
				zap.String("event", string(event)),
				zap.String("order_number", n.OrderNumber),
				zap.Any("panic", r),
			)
		}
	}()

	if err := Send(sendCtx, s.notifier, event, n); err != nil {
		s.notifyFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("event", string(event))))
		zctx.From(ctx).Warn("Send order notification",
			zap.String("event", string(event)),
			zap.String("order_number", n.OrderNumber),
			zap.Error(err),
		)
	}
}
