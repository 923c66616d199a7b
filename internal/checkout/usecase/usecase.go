package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fekuna/omnipos-storefront-service/internal/apperror"
	"github.com/fekuna/omnipos-storefront-service/internal/cart"
	"github.com/fekuna/omnipos-storefront-service/internal/checkout"
	"github.com/fekuna/omnipos-storefront-service/internal/checkout/dto"
	"github.com/fekuna/omnipos-storefront-service/internal/model"
	"github.com/fekuna/omnipos-storefront-service/internal/payment"
	"github.com/fekuna/omnipos-storefront-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Config struct {
	PublicKey   string
	Currency    string
	DeliveryFee decimal.Decimal
	LockTTL     time.Duration
}

// Deps groups the collaborators. Verifier, Publisher and Cache may be nil.
type Deps struct {
	Repo      checkout.Repository
	Sessions  checkout.SessionStore
	Cart      checkout.CartSource
	Verifier  payment.Verifier
	Publisher checkout.EventPublisher
	Cache     checkout.ProductCache
	Locker    checkout.Locker
}

type checkoutUseCase struct {
	Deps
	cfg    Config
	logger logger.ZapLogger
	now    func() time.Time

	tracer    trace.Tracer
	committed metric.Int64Counter
	failed    metric.Int64Counter
}

func NewCheckoutUseCase(deps Deps, cfg Config, log logger.ZapLogger) checkout.UseCase {
	meter := otel.Meter("storefront/checkout")
	committed, err := meter.Int64Counter("checkout.committed", metric.WithDescription("orders committed"))
	if err != nil {
		log.Warn("failed to create checkout.committed counter", zap.Error(err))
	}
	failed, err := meter.Int64Counter("checkout.failed", metric.WithDescription("checkouts aborted"))
	if err != nil {
		log.Warn("failed to create checkout.failed counter", zap.Error(err))
	}
	if cfg.LockTTL == 0 {
		cfg.LockTTL = 30 * time.Second
	}

	return &checkoutUseCase{
		Deps:      deps,
		cfg:       cfg,
		logger:    log,
		now:       time.Now,
		tracer:    otel.Tracer("storefront/checkout"),
		committed: committed,
		failed:    failed,
	}
}

func (uc *checkoutUseCase) Checkout(ctx context.Context, input *dto.CheckoutInput) (*dto.CheckoutResult, error) {
	ctx, span := uc.tracer.Start(ctx, "checkout.Checkout",
		trace.WithAttributes(attribute.String("payment.reference", input.PaymentReference)))
	defer span.End()

	if err := uc.priceLines(ctx, input.UserID, &input.Lines); err != nil {
		return nil, uc.recordFailure(ctx, span, err)
	}
	input.DeliveryMethod = normalizeDeliveryMethod(input.DeliveryMethod)
	if err := validate(input.Lines, input.PaymentReference, input.DeliveryMethod, input.DeliveryAddress); err != nil {
		return nil, uc.recordFailure(ctx, span, err)
	}

	quote := checkout.QuoteLines(input.Lines, input.DeliveryMethod, uc.cfg.DeliveryFee)
	if err := uc.verifyPayment(ctx, input.PaymentReference, payment.ToMinorUnits(quote.Total)); err != nil {
		return nil, uc.recordFailure(ctx, span, err)
	}

	result, err := uc.commit(ctx, input, quote)
	if err != nil {
		return nil, uc.recordFailure(ctx, span, err)
	}
	return result, nil
}

// priceLines takes names and prices from the server-side cart, which holds
// the effective price captured at add-to-cart time. Request lines only pick
// quantities; with none, the whole cart is checked out.
func (uc *checkoutUseCase) priceLines(ctx context.Context, userID string, lines *[]dto.Line) error {
	if uc.Cart == nil {
		return &apperror.CheckoutFailedError{Err: errors.New("cart source is not configured")}
	}
	view, err := uc.Cart.GetCart(ctx, userID)
	if err != nil {
		return err
	}

	priced := make(map[string]cart.Line, len(view.Lines))
	for _, l := range view.Lines {
		priced[l.ProductID] = l
	}

	if len(*lines) == 0 {
		for _, l := range view.Lines {
			*lines = append(*lines, dto.Line{ProductID: l.ProductID, Name: l.Name, Price: l.UnitPrice, Quantity: l.Quantity})
		}
		return nil
	}

	for i, l := range *lines {
		if l.ProductID == "" {
			continue
		}
		c, ok := priced[l.ProductID]
		if !ok {
			return &apperror.ValidationError{Field: "lines", Reason: fmt.Sprintf("product %s is not in the cart", l.ProductID)}
		}
		(*lines)[i].Name = c.Name
		(*lines)[i].Price = c.UnitPrice
	}
	return nil
}

func normalizeDeliveryMethod(method string) string {
	if method == "" {
		return model.DeliveryMethodCollection
	}
	return method
}

func validate(lines []dto.Line, reference, deliveryMethod string, deliveryAddress *string) error {
	if len(lines) == 0 {
		return apperror.ErrEmptyCart
	}
	for _, l := range lines {
		if l.ProductID == "" {
			return &apperror.ValidationError{Field: "product_id", Reason: "is required"}
		}
		if l.Quantity <= 0 {
			return apperror.ErrInvalidQuantity
		}
		if l.Price.IsNegative() {
			return &apperror.ValidationError{Field: "price", Reason: "must not be negative"}
		}
	}
	if reference == "" {
		return &apperror.ValidationError{Field: "payment_reference", Reason: "is required"}
	}
	switch deliveryMethod {
	case model.DeliveryMethodCollection:
	case model.DeliveryMethodDelivery:
		if deliveryAddress == nil || strings.TrimSpace(*deliveryAddress) == "" {
			return &apperror.ValidationError{Field: "delivery_address", Reason: "is required for delivery"}
		}
	default:
		return &apperror.ValidationError{Field: "delivery_method", Reason: "must be delivery or collection"}
	}
	return nil
}

// verifyPayment refuses to write anything for a reference the gateway has
// not confirmed for exactly the expected amount.
func (uc *checkoutUseCase) verifyPayment(ctx context.Context, reference string, amountMinor int64) error {
	if uc.Verifier == nil {
		return nil
	}

	ctx, span := uc.tracer.Start(ctx, "checkout.VerifyPayment")
	defer span.End()

	v, err := uc.Verifier.Verify(ctx, reference)
	if err != nil {
		// The gateway could not be reached; the payment may still be good.
		return &apperror.CheckoutFailedError{Err: fmt.Errorf("verify payment %s: %w", reference, err)}
	}
	if v.Status != payment.StatusSuccess {
		return &apperror.PaymentVerificationError{Reference: reference, Reason: "gateway status " + v.Status}
	}
	if v.AmountMinor != amountMinor {
		return &apperror.PaymentVerificationError{
			Reference: reference,
			Reason:    fmt.Sprintf("paid %d, expected %d", v.AmountMinor, amountMinor),
		}
	}
	if uc.cfg.Currency != "" && v.Currency != "" && v.Currency != uc.cfg.Currency {
		return &apperror.PaymentVerificationError{Reference: reference, Reason: "currency " + v.Currency}
	}
	return nil
}

// commit runs the read-check-write as one transaction. Nothing is written
// unless every line has enough stock.
func (uc *checkoutUseCase) commit(ctx context.Context, input *dto.CheckoutInput, quote checkout.Quote) (*dto.CheckoutResult, error) {
	ctx, span := uc.tracer.Start(ctx, "checkout.Commit")
	defer span.End()

	wanted := map[string]int{}
	names := map[string]string{}
	for _, l := range input.Lines {
		wanted[l.ProductID] += l.Quantity
		names[l.ProductID] = l.Name
	}
	ids := make([]string, 0, len(wanted))
	for id := range wanted {
		ids = append(ids, id)
	}
	// Lock rows in a fixed order so concurrent checkouts cannot deadlock.
	sort.Strings(ids)

	now := uc.now()
	orderID := uuid.New().String()
	saleID := uuid.New().String()

	paymentStatus := model.PaymentStatusUnverified
	if uc.Verifier != nil {
		paymentStatus = model.PaymentStatusSuccess
	}

	err := uc.Repo.RunInTx(ctx, func(ctx context.Context, tx checkout.Tx) error {
		products, err := tx.GetProductsForUpdate(ctx, ids)
		if err != nil {
			return err
		}

		batch := &model.CheckoutBatch{}
		deltas := make(model.StockDeltas, 0, len(ids))
		for _, id := range ids {
			p, ok := products[id]
			if !ok {
				return &apperror.ProductNotFoundError{ProductID: id}
			}
			if p.StockQuantity < wanted[id] {
				return &apperror.InsufficientStockError{
					ProductID: id,
					Name:      names[id],
					Requested: wanted[id],
					Available: p.StockQuantity,
				}
			}
			batch.Decrements = append(batch.Decrements, model.StockDecrement{ProductID: id, Quantity: wanted[id]})
			deltas = append(deltas, model.NewStockDelta(id, p.StockQuantity, p.StockQuantity-wanted[id]))
		}

		items := make(model.OrderItems, 0, len(input.Lines))
		for _, l := range input.Lines {
			items = append(items, model.OrderItem{ProductID: l.ProductID, Name: l.Name, Price: l.Price, Quantity: l.Quantity})
		}

		batch.Order = &model.Order{
			BaseModel:        model.BaseModel{ID: orderID, CreatedAt: now, UpdatedAt: now},
			SaleID:           saleID,
			OrderReference:   input.PaymentReference,
			UserID:           input.UserID,
			UserEmail:        input.UserEmail,
			Items:            items,
			Subtotal:         quote.Subtotal,
			Tax:              quote.Tax,
			DeliveryFee:      quote.DeliveryFee,
			Amount:           quote.Total,
			Status:           model.OrderStatusPending,
			PaymentStatus:    paymentStatus,
			PaymentReference: input.PaymentReference,
			DeliveryMethod:   input.DeliveryMethod,
			DeliveryAddress:  input.DeliveryAddress,
		}
		batch.Payment = &model.Payment{
			Reference: input.PaymentReference,
			OrderID:   orderID,
			UserID:    input.UserID,
			Amount:    quote.Total,
			Currency:  uc.cfg.Currency,
			Status:    paymentStatus,
			CreatedAt: now,
		}
		batch.Audit = &model.InventoryTransaction{
			ID:               uuid.New().String(),
			SaleID:           &saleID,
			PaymentReference: input.PaymentReference,
			TransactionType:  model.TransactionSale,
			Deltas:           deltas,
			Reason:           "checkout",
			UpdatedBy:        input.UserID,
			CreatedAt:        now,
		}

		return tx.ApplyBatch(ctx, batch)
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		uc.logger.Error("checkout commit failed", zap.String("reference", input.PaymentReference), zap.Error(err))
		return nil, &apperror.CheckoutFailedError{Err: err}
	}

	uc.afterCommit(ctx, input, orderID, saleID, quote.Total, wanted)

	return &dto.CheckoutResult{OrderID: orderID, SaleID: saleID, Amount: quote.Total}, nil
}

func isDomainError(err error) bool {
	var (
		stockErr     *apperror.InsufficientStockError
		notFoundErr  *apperror.ProductNotFoundError
		integrityErr *apperror.DataIntegrityError
	)
	return errors.As(err, &stockErr) ||
		errors.As(err, &notFoundErr) ||
		errors.As(err, &integrityErr) ||
		errors.Is(err, apperror.ErrPaymentAlreadyRecorded)
}

// afterCommit runs the side effects that must not undo a committed order.
func (uc *checkoutUseCase) afterCommit(ctx context.Context, input *dto.CheckoutInput, orderID, saleID string, amount decimal.Decimal, quantities map[string]int) {
	if uc.committed != nil {
		uc.committed.Add(ctx, 1)
	}

	if uc.Cart != nil && input.UserID != "" {
		if err := uc.Cart.Clear(ctx, input.UserID); err != nil {
			uc.logger.Error("failed to clear cart after checkout", zap.String("user_id", input.UserID), zap.Error(err))
		}
	}

	if uc.Cache != nil {
		go uc.Cache.InvalidateListCache(context.Background())
	}

	if uc.Publisher != nil {
		items := make([]dto.OrderItemPayload, 0, len(quantities))
		for id, q := range quantities {
			items = append(items, dto.OrderItemPayload{ProductID: id, Quantity: q})
		}
		sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })

		event := dto.OrderCreatedEvent{
			EventID:   uuid.New().String(),
			EventType: "OrderCreated",
			Payload: dto.OrderPayload{
				ID:               orderID,
				SaleID:           saleID,
				UserID:           input.UserID,
				PaymentReference: input.PaymentReference,
				Amount:           amount,
				Items:            items,
			},
			Timestamp: uc.now(),
		}
		if err := uc.Publisher.PublishJSON(ctx, orderID, event); err != nil {
			uc.logger.Error("failed to publish OrderCreated", zap.String("order_id", orderID), zap.Error(err))
		}
	}

	uc.logger.Info("order committed",
		zap.String("order_id", orderID),
		zap.String("sale_id", saleID),
		zap.String("reference", input.PaymentReference),
	)
}

func (uc *checkoutUseCase) recordFailure(ctx context.Context, span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if uc.failed != nil {
		uc.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", apperror.Code(err))))
	}
	return err
}

func (uc *checkoutUseCase) InitPayment(ctx context.Context, input *dto.PaymentInitInput) (*dto.PaymentInit, error) {
	if err := uc.priceLines(ctx, input.UserID, &input.Lines); err != nil {
		return nil, err
	}
	reference := payment.NewReference()
	input.DeliveryMethod = normalizeDeliveryMethod(input.DeliveryMethod)
	if err := validate(input.Lines, reference, input.DeliveryMethod, input.DeliveryAddress); err != nil {
		return nil, err
	}

	quote := checkout.QuoteLines(input.Lines, input.DeliveryMethod, uc.cfg.DeliveryFee)
	now := uc.now()

	s := &checkout.Session{
		Reference:       reference,
		UserID:          input.UserID,
		UserEmail:       input.UserEmail,
		Lines:           input.Lines,
		DeliveryMethod:  input.DeliveryMethod,
		DeliveryAddress: input.DeliveryAddress,
		AmountMinor:     payment.ToMinorUnits(quote.Total),
		State:           checkout.StateAwaitingPayment,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := uc.Sessions.Save(ctx, s); err != nil {
		return nil, err
	}

	return &dto.PaymentInit{
		PublicKey: uc.cfg.PublicKey,
		Email:     input.UserEmail,
		Amount:    s.AmountMinor,
		Currency:  uc.cfg.Currency,
		Reference: reference,
	}, nil
}

func (uc *checkoutUseCase) GetSession(ctx context.Context, userID, reference string) (*checkout.Session, error) {
	s, err := uc.Sessions.Get(ctx, reference)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, apperror.ErrNotFound
	}
	if s.UserID != userID {
		return nil, apperror.ErrForbidden
	}
	return s, nil
}

// HandleGatewayEvent feeds a hosted checkout callback into its session. A
// lock per reference makes a repeated success callback a rejected no-op
// rather than a second order.
func (uc *checkoutUseCase) HandleGatewayEvent(ctx context.Context, userID string, ev payment.GatewayEvent) (*checkout.Session, error) {
	if ev.Reference == "" {
		return nil, &apperror.ValidationError{Field: "reference", Reason: "is required"}
	}

	lockKey := "lock:checkout:" + ev.Reference
	lockValue := uuid.New().String()
	ok, err := uc.Locker.AcquireLock(ctx, lockKey, lockValue, uc.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.ErrBusy
	}
	defer uc.Locker.ReleaseLock(context.Background(), lockKey, lockValue)

	s, err := uc.GetSession(ctx, userID, ev.Reference)
	if err != nil {
		return nil, err
	}

	persist := func(s *checkout.Session) {
		if err := uc.Sessions.Save(ctx, s); err != nil {
			uc.logger.Error("failed to save checkout session", zap.String("reference", s.Reference), zap.Error(err))
		}
	}

	if err := s.Handle(ctx, ev, sessionSteps{uc}, persist); err != nil {
		return s, err
	}
	return s, nil
}

type sessionSteps struct {
	uc *checkoutUseCase
}

func (st sessionSteps) Verify(ctx context.Context, s *checkout.Session) error {
	return st.uc.verifyPayment(ctx, s.Reference, s.AmountMinor)
}

func (st sessionSteps) PlaceOrder(ctx context.Context, s *checkout.Session) (*dto.CheckoutResult, error) {
	input := &dto.CheckoutInput{
		UserID:           s.UserID,
		UserEmail:        s.UserEmail,
		Lines:            s.Lines,
		PaymentReference: s.Reference,
		DeliveryMethod:   s.DeliveryMethod,
		DeliveryAddress:  s.DeliveryAddress,
	}
	quote := checkout.QuoteLines(input.Lines, input.DeliveryMethod, st.uc.cfg.DeliveryFee)
	return st.uc.commit(ctx, input, quote)
}
