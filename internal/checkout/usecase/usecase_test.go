package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/omnipos-storefront-service/internal/apperror"
	"github.com/fekuna/omnipos-storefront-service/internal/cart"
	"github.com/fekuna/omnipos-storefront-service/internal/checkout"
	"github.com/fekuna/omnipos-storefront-service/internal/checkout/dto"
	"github.com/fekuna/omnipos-storefront-service/internal/model"
	"github.com/fekuna/omnipos-storefront-service/internal/payment"
	"github.com/fekuna/omnipos-storefront-service/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memoryStore applies a checkout transaction to a copy of its state and
// swaps it in on success. The mutex plays the role of row locks.
type memoryStore struct {
	mu        sync.Mutex
	products  map[string]model.Product
	orders    []model.Order
	payments  map[string]model.Payment
	audits    []model.InventoryTransaction
	commitErr error
}

func newMemoryStore(stock map[string]int) *memoryStore {
	s := &memoryStore{products: map[string]model.Product{}, payments: map[string]model.Payment{}}
	for id, q := range stock {
		s.products[id] = model.Product{BaseModel: model.BaseModel{ID: id}, Name: id, Price: decimal.NewFromInt(50), StockQuantity: q}
	}
	return s
}

type memoryTx struct {
	products map[string]model.Product
	payments map[string]model.Payment
	batch    *model.CheckoutBatch
}

func (s *memoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx checkout.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{products: map[string]model.Product{}, payments: s.payments}
	for k, v := range s.products {
		tx.products[k] = v
	}

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if s.commitErr != nil {
		return s.commitErr
	}

	s.products = tx.products
	if b := tx.batch; b != nil {
		s.orders = append(s.orders, *b.Order)
		s.payments[b.Payment.Reference] = *b.Payment
		s.audits = append(s.audits, *b.Audit)
	}
	return nil
}

func (t *memoryTx) GetProductsForUpdate(_ context.Context, ids []string) (map[string]*model.Product, error) {
	out := map[string]*model.Product{}
	for _, id := range ids {
		if p, ok := t.products[id]; ok {
			p := p
			out[id] = &p
		}
	}
	return out, nil
}

func (t *memoryTx) ApplyBatch(_ context.Context, b *model.CheckoutBatch) error {
	if _, dup := t.payments[b.Payment.Reference]; dup {
		return apperror.ErrPaymentAlreadyRecorded
	}
	for _, d := range b.Decrements {
		p := t.products[d.ProductID]
		if p.StockQuantity < d.Quantity {
			return &apperror.InsufficientStockError{ProductID: d.ProductID}
		}
		p.StockQuantity -= d.Quantity
		t.products[d.ProductID] = p
	}
	t.batch = b
	return nil
}

type memorySessions struct {
	mu       sync.Mutex
	sessions map[string]checkout.Session
	history  []checkout.State
}

func newMemorySessions() *memorySessions {
	return &memorySessions{sessions: map[string]checkout.Session{}}
}

func (m *memorySessions) Save(_ context.Context, s *checkout.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Reference] = *s
	m.history = append(m.history, s.State)
	return nil
}

func (m *memorySessions) Get(_ context.Context, ref string) (*checkout.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[ref]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

type memoryLocker struct {
	mu    sync.Mutex
	held  map[string]string
	calls int
}

func (l *memoryLocker) AcquireLock(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.held == nil {
		l.held = map[string]string{}
	}
	if _, ok := l.held[key]; ok {
		return false, nil
	}
	l.held[key] = value
	return true, nil
}

func (l *memoryLocker) ReleaseLock(_ context.Context, key, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == value {
		delete(l.held, key)
	}
	return nil
}

type mockVerifier struct{ mock.Mock }

func (m *mockVerifier) Verify(ctx context.Context, ref string) (*payment.Verification, error) {
	args := m.Called(ctx, ref)
	if v := args.Get(0); v != nil {
		return v.(*payment.Verification), args.Error(1)
	}
	return nil, args.Error(1)
}

// memoryCart stands in for the server-side cart: it prices lines the way the
// cart does and records which users were cleared.
type memoryCart struct {
	mu      sync.Mutex
	lines   []cart.Line
	cleared []string
}

func cartOf(lines ...dto.Line) *memoryCart {
	c := &memoryCart{}
	for _, l := range lines {
		c.put(cart.Line{ProductID: l.ProductID, Name: l.Name, UnitPrice: l.Price, Quantity: l.Quantity})
	}
	return c
}

func (c *memoryCart) put(l cart.Line) {
	for i := range c.lines {
		if c.lines[i].ProductID == l.ProductID {
			c.lines[i].Quantity += l.Quantity
			return
		}
	}
	c.lines = append(c.lines, l)
}

func (c *memoryCart) GetCart(_ context.Context, _ string) (*cart.View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	view := &cart.View{Lines: append([]cart.Line(nil), c.lines...)}
	for _, l := range c.lines {
		view.TotalItems += l.Quantity
	}
	return view, nil
}

func (c *memoryCart) Clear(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
	c.cleared = append(c.cleared, userID)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []dto.OrderCreatedEvent
}

func (p *recordingPublisher) PublishJSON(_ context.Context, _ string, v interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, v.(dto.OrderCreatedEvent))
	return nil
}

func line(id string, qty int, price string) dto.Line {
	return dto.Line{ProductID: id, Name: "Product " + id, Price: decimal.RequireFromString(price), Quantity: qty}
}

func address(s string) *string { return &s }

func testConfig() Config {
	return Config{PublicKey: "pk_test", Currency: "ZAR", DeliveryFee: decimal.NewFromInt(50)}
}

func newUseCase(store *memoryStore, deps Deps) checkout.UseCase {
	deps.Repo = store
	if deps.Sessions == nil {
		deps.Sessions = newMemorySessions()
	}
	if deps.Locker == nil {
		deps.Locker = &memoryLocker{}
	}
	if deps.Cart == nil {
		deps.Cart = cartOf()
	}
	return NewCheckoutUseCase(deps, testConfig(), logger.NewNop())
}

func TestCheckoutComputesAmountAndWritesEverything(t *testing.T) {
	store := newMemoryStore(map[string]int{"A": 10})
	c := cartOf(line("A", 2, "50"))
	pub := &recordingPublisher{}
	uc := newUseCase(store, Deps{Cart: c, Publisher: pub})

	res, err := uc.Checkout(context.Background(), &dto.CheckoutInput{
		UserID:           "u1",
		UserEmail:        "u1@example.com",
		Lines:            []dto.Line{line("A", 2, "50")},
		PaymentReference: "ref-1",
		DeliveryMethod:   model.DeliveryMethodCollection,
	})
	require.NoError(t, err)

	assert.Equal(t, "115.00", res.Amount.StringFixed(2))
	assert.NotEmpty(t, res.OrderID)
	assert.NotEmpty(t, res.SaleID)
	assert.Equal(t, 8, store.products["A"].StockQuantity)

	require.Len(t, store.orders, 1)
	order := store.orders[0]
	assert.Equal(t, res.OrderID, order.ID)
	assert.Equal(t, res.SaleID, order.SaleID)
	assert.Equal(t, "15", order.Tax.String())
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, model.PaymentStatusUnverified, order.PaymentStatus)

	require.Contains(t, store.payments, "ref-1")
	assert.Equal(t, res.OrderID, store.payments["ref-1"].OrderID)
	assert.Equal(t, model.PaymentStatusUnverified, store.payments["ref-1"].Status)

	require.Len(t, store.audits, 1)
	audit := store.audits[0]
	assert.Equal(t, res.SaleID, *audit.SaleID)
	assert.Equal(t, "ref-1", audit.PaymentReference)
	assert.Equal(t, model.StockDeltas{model.NewStockDelta("A", 10, 8)}, audit.Deltas)

	assert.Equal(t, []string{"u1"}, c.cleared)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "OrderCreated", pub.events[0].EventType)
	assert.Equal(t, res.OrderID, pub.events[0].Payload.ID)
}

func TestCheckoutAddsDeliveryFee(t *testing.T) {
	store := newMemoryStore(map[string]int{"A": 10})
	uc := newUseCase(store, Deps{Cart: cartOf(line("A", 1, "19.99"))})

	res, err := uc.Checkout(context.Background(), &dto.CheckoutInput{
		UserID:           "u1",
		Lines:            []dto.Line{line("A", 1, "19.99")},
		PaymentReference: "ref-1",
		DeliveryMethod:   model.DeliveryMethodDelivery,
		DeliveryAddress:  address("12 Long Street, Cape Town"),
	})
	require.NoError(t, err)
	// 19.99 + 2.9985 + 50
	assert.Equal(t, "72.99", res.Amount.StringFixed(2))
	assert.Equal(t, "50", store.orders[0].DeliveryFee.String())
	assert.Equal(t, "12 Long Street, Cape Town", *store.orders[0].DeliveryAddress)
}

func TestCheckoutValidatesDelivery(t *testing.T) {
	cases := []struct {
		name    string
		method  string
		address *string
	}{
		{"delivery without address", model.DeliveryMethodDelivery, nil},
		{"delivery with blank address", model.DeliveryMethodDelivery, address("   ")},
		{"unknown method", "drone", address("12 Long Street")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemoryStore(map[string]int{"A": 10})
			uc := newUseCase(store, Deps{Cart: cartOf(line("A", 1, "50"))})

			_, err := uc.Checkout(context.Background(), &dto.CheckoutInput{
				UserID:           "u1",
				Lines:            []dto.Line{line("A", 1, "50")},
				PaymentReference: "ref-1",
				DeliveryMethod:   tc.method,
				DeliveryAddress:  tc.address,
			})
			assert.ErrorIs(t, err, apperror.ErrInvalidInput)
			assert.Empty(t, store.orders)
			assert.Equal(t, 10, store.products["A"].StockQuantity)
		})
	}
}

func TestCheckoutDefaultsToCollection(t *testing.T) {
	store := newMemoryStore(map[string]int{"A": 10})
	uc := newUseCase(store, Deps{Cart: cartOf(line("A", 1, "50"))})

	res, err := uc.Checkout(context.Background(), &dto.CheckoutInput{
		Lines:            []dto.Line{line("A", 1, "50")},
		PaymentReference: "ref-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "57.5", res.Amount.String())
	assert.Equal(t, model.DeliveryMethodCollection, store.orders[0].DeliveryMethod)
}

func TestCheckoutPricesFromCartNotRequest(t *testing.T) {
	store := newMemoryStore(map[string]int{"A": 200})
	v := new(mockVerifier)
	// The customer paid for 100 units at 0.01.
	v.On("Verify", mock.Anything, "ref-1").Return(&payment.Verification{Status: "success", AmountMinor: 115, Currency: "ZAR"}, nil)
	uc := newUseCase(store, Deps{Cart: cartOf(line("A", 100, "50")), Verifier: v})

	_, err := uc.Checkout(context.Background(), &dto.CheckoutInput{
		UserID:           "u1",
		Lines:            []dto.Line{line("A", 100, "0.01")},
		PaymentReference: "ref-1",
	})

	var verr *apperror.PaymentVerificationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Reason, "expected 575000")
	assert.Empty(t, store.orders)
	assert.Equal(t, 200, store.products["A"].StockQuantity)
}

func TestCheckoutChargesCartPriceForRequestedQuantity(t *testing.T) {
	store := newMemoryStore(map[string]int{"A": 10})
	uc := newUseCase(store, Deps{Cart: cartOf(line("A", 5, "50"))})

	res, err := uc.Checkout(context.Background(), &dto.CheckoutInput{
		Lines:            []dto.Line{line("A", 2, "0.01")},
		PaymentReference: "ref-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "115", res.Amount.String())
	require.Len(t, store.orders, 1)
	assert.Equal(t, "50", store.orders[0].Items[0].Price.String())
	assert.Equal(t, "Product A", store.orders[0].Items[0].Name)
	assert.Equal(t, 8, store.products["A"].StockQuantity)
}

func TestCheckoutRejectsLineMissingFromCart(t *testing.T) {
	store := newMemoryStore(map[string]int{"A": 10, "B": 10})
	uc := newUseCase(store, Deps{Cart: cartOf(line("A", 1, "50"))})

	_, err := uc.Checkout(context.Background(), &dto.CheckoutInput{
		Lines:            []dto.Line{line("A", 1, "50"), line("B", 1, "0")},
		PaymentReference: "ref-1",
	})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	assert.Empty(t, store.orders)
}

func TestCheckoutInsufficientStockWritesNothing(t *testing.T) {
	store := newMemoryStore(map[string]int{"A": 10, "B": 1})
	c := cartOf(line("A", 2, "50"), line("B", 3, "10"))
	uc := newUseCase(store, Deps{Cart: c})

	_, err := uc.Checkout(context.Background(), &dto.CheckoutInput{
		UserID:           "u1",
		Lines:            []dto.Line{line("A", 2, "50"), line("B", 3, "10")},
		PaymentReference: "ref-1",
	})

	var stockErr *apperror.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, "B", stockErr.ProductID)
	assert.Equal(t, 1, stockErr.Available)

	assert.Equal(t, 10, store.products["A"].StockQuantity)
	assert.Equal(t, 1, store.products["B"].StockQuantity)
	assert.Empty(t, store.orders)
	assert.Empty(t, store.payments)
	assert.Empty(t, store.audits)
	assert.Empty(t, c.cleared)
}

func TestCheckoutUnknownProduct(t *testing.T) {
	store := newMemoryStore(map[string]int{"A": 10})
	uc := newUseCase(store, Deps{Cart: cartOf(line("A", 1, "50"), line("ghost", 1, "5"))})

	_, err := uc.Checkout(context.Background(), &dto.CheckoutInput{
		Lines:            []dto.Line{line("A", 1, "50"), line("ghost", 1, "5")},
		PaymentReference: "ref-1",
	})

	var notFound *apperror.ProductNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "ghost", notFound.ProductID)
	assert.Equal(t, 10, store.products["A"].StockQuantity)
	assert.Empty(t, store.orders)
}

func TestCheckoutMergesRepeatedProductLines(t *testing.T) {
	store := newMemoryStore(map[string]int{"A": 5})
	uc := newUseCase(store, Deps{Cart: cartOf(line("A", 6, "50"))})

	_, err := uc.Checkout(context.Background(), &dto.CheckoutInput{
		Lines:            []dto.Line{line("A", 3, "50"), line("A", 3, "50")},
		PaymentReference: "ref-1",
	})
	var stockErr *apperror.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 6, stockErr.Requested)
}

func TestCheckoutCommitFailureIsTransientAndKeepsCart(t *testing.T) {
	store := newMemoryStore(map[string]int{"A": 10})
	store.commitErr = context.DeadlineExceeded
	c := cartOf(line("A", 1, "50"))
	uc := newUseCase(store, Deps{Cart: c})

	_, err := uc.Checkout(context.Background(), &dto.CheckoutInput{
		UserID:           "u1",
		Lines:            []dto.Line{line("A", 1, "50")},
		PaymentReference: "ref-1",
	})

	var failed *apperror.CheckoutFailedError
	require.True(t, errors.As(err, &failed))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 10, store.products["A"].StockQuantity)
	assert.Empty(t, c.cleared)
	assert.Len(t, c.lines, 1)
}

func TestCheckoutDuplicateReferenceRejected(t *testing.T) {
	store := newMemoryStore(map[string]int{"A": 10})
	uc := newUseCase(store, Deps{Cart: cartOf(line("A", 1, "50"))})
	in := func() *dto.CheckoutInput {
		return &dto.CheckoutInput{Lines: []dto.Line{line("A", 1, "50")}, PaymentReference: "ref-1"}
	}

	_, err := uc.Checkout(context.Background(), in())
	require.NoError(t, err)
	_, err = uc.Checkout(context.Background(), in())
	assert.ErrorIs(t, err, apperror.ErrPaymentAlreadyRecorded)

	assert.Len(t, store.orders, 1)
	assert.Equal(t, 9, store.products["A"].StockQuantity)
}

func TestCheckoutValidation(t *testing.T) {
	ctx := context.Background()

	empty := newUseCase(newMemoryStore(nil), Deps{})
	_, err := empty.Checkout(ctx, &dto.CheckoutInput{PaymentReference: "r"})
	assert.ErrorIs(t, err, apperror.ErrEmptyCart)

	uc := newUseCase(newMemoryStore(nil), Deps{Cart: cartOf(line("A", 1, "1"))})
	_, err = uc.Checkout(ctx, &dto.CheckoutInput{Lines: []dto.Line{line("A", 0, "1")}, PaymentReference: "r"})
	assert.ErrorIs(t, err, apperror.ErrInvalidQuantity)

	_, err = uc.Checkout(ctx, &dto.CheckoutInput{Lines: []dto.Line{line("A", 1, "1")}})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestCheckoutUsesServerCartWhenNoLinesSent(t *testing.T) {
	store := newMemoryStore(map[string]int{"A": 10})
	c := &memoryCart{lines: []cart.Line{{ProductID: "A", Name: "A", UnitPrice: decimal.NewFromInt(50), Quantity: 2}}}
	uc := newUseCase(store, Deps{Cart: c})

	res, err := uc.Checkout(context.Background(), &dto.CheckoutInput{UserID: "u1", PaymentReference: "ref-1"})
	require.NoError(t, err)
	assert.Equal(t, "115", res.Amount.String())
	assert.Equal(t, 8, store.products["A"].StockQuantity)
	assert.Equal(t, []string{"u1"}, c.cleared)
}

func TestCheckoutPaymentVerification(t *testing.T) {
	cases := []struct {
		name string
		v    *payment.Verification
	}{
		{"not successful", &payment.Verification{Status: "abandoned", AmountMinor: 11500}},
		{"amount mismatch", &payment.Verification{Status: "success", AmountMinor: 100}},
		{"wrong currency", &payment.Verification{Status: "success", AmountMinor: 11500, Currency: "USD"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemoryStore(map[string]int{"A": 10})
			v := new(mockVerifier)
			v.On("Verify", mock.Anything, "ref-1").Return(tc.v, nil)
			uc := newUseCase(store, Deps{Cart: cartOf(line("A", 2, "50")), Verifier: v})

			_, err := uc.Checkout(context.Background(), &dto.CheckoutInput{
				Lines:            []dto.Line{line("A", 2, "50")},
				PaymentReference: "ref-1",
			})

			var verr *apperror.PaymentVerificationError
			require.True(t, errors.As(err, &verr))
			assert.Empty(t, store.orders)
			assert.Equal(t, 10, store.products["A"].StockQuantity)
		})
	}
}

func TestCheckoutVerifierUnreachableIsTransient(t *testing.T) {
	store := newMemoryStore(map[string]int{"A": 10})
	v := new(mockVerifier)
	v.On("Verify", mock.Anything, "ref-1").Return(nil, errors.New("timeout"))
	uc := newUseCase(store, Deps{Cart: cartOf(line("A", 2, "50")), Verifier: v})

	_, err := uc.Checkout(context.Background(), &dto.CheckoutInput{
		Lines:            []dto.Line{line("A", 2, "50")},
		PaymentReference: "ref-1",
	})
	assert.True(t, apperror.IsTransient(err))
	assert.Empty(t, store.orders)
	assert.Equal(t, 10, store.products["A"].StockQuantity)
}

func TestCheckoutVerifiedPayment(t *testing.T) {
	store := newMemoryStore(map[string]int{"A": 10})
	v := new(mockVerifier)
	v.On("Verify", mock.Anything, "ref-1").Return(&payment.Verification{Status: "success", AmountMinor: 11500, Currency: "ZAR"}, nil)
	uc := newUseCase(store, Deps{Cart: cartOf(line("A", 2, "50")), Verifier: v})

	_, err := uc.Checkout(context.Background(), &dto.CheckoutInput{
		Lines:            []dto.Line{line("A", 2, "50")},
		PaymentReference: "ref-1",
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusSuccess, store.payments["ref-1"].Status)
	require.Len(t, store.orders, 1)
	assert.Equal(t, model.PaymentStatusSuccess, store.orders[0].PaymentStatus)
}

func TestConcurrentCheckoutsNeverOversell(t *testing.T) {
	initial := map[string]int{"A": 20, "B": 15, "C": 5}
	store := newMemoryStore(initial)
	uc := newUseCase(store, Deps{Cart: cartOf(line("A", 4, "10"), line("B", 4, "10"), line("C", 4, "10"))})

	rng := rand.New(rand.NewSource(7))
	type attempt struct{ lines []dto.Line }
	attempts := make([]attempt, 60)
	for i := range attempts {
		var lines []dto.Line
		for _, id := range []string{"A", "B", "C"} {
			if rng.Intn(2) == 0 {
				lines = append(lines, line(id, 1+rng.Intn(4), "10"))
			}
		}
		if len(lines) == 0 {
			lines = append(lines, line("A", 1, "10"))
		}
		attempts[i] = attempt{lines: lines}
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		sold = map[string]int{}
	)
	for i, a := range attempts {
		wg.Add(1)
		go func(i int, a attempt) {
			defer wg.Done()
			_, err := uc.Checkout(context.Background(), &dto.CheckoutInput{
				Lines:            a.lines,
				PaymentReference: fmt.Sprintf("ref-%d", i),
			})
			if err != nil {
				var stockErr *apperror.InsufficientStockError
				assert.True(t, errors.As(err, &stockErr), "unexpected error %v", err)
				return
			}
			mu.Lock()
			for _, l := range a.lines {
				sold[l.ProductID] += l.Quantity
			}
			mu.Unlock()
		}(i, a)
	}
	wg.Wait()

	for id, before := range initial {
		after := store.products[id].StockQuantity
		assert.GreaterOrEqual(t, after, 0)
		assert.Equal(t, sold[id], before-after, "product %s", id)
	}
	assert.Len(t, store.audits, len(store.orders))
	assert.Len(t, store.payments, len(store.orders))
}

func TestInitPaymentCreatesAwaitingSession(t *testing.T) {
	sessions := newMemorySessions()
	uc := newUseCase(newMemoryStore(nil), Deps{Sessions: sessions, Cart: cartOf(line("A", 2, "50"))})

	init, err := uc.InitPayment(context.Background(), &dto.PaymentInitInput{
		UserID:         "u1",
		UserEmail:      "u1@example.com",
		Lines:          []dto.Line{line("A", 2, "50")},
		DeliveryMethod: model.DeliveryMethodCollection,
	})
	require.NoError(t, err)

	assert.Equal(t, "pk_test", init.PublicKey)
	assert.Equal(t, int64(11500), init.Amount)
	assert.Equal(t, "ZAR", init.Currency)
	assert.NotEmpty(t, init.Reference)

	s, err := uc.GetSession(context.Background(), "u1", init.Reference)
	require.NoError(t, err)
	assert.Equal(t, checkout.StateAwaitingPayment, s.State)

	_, err = uc.GetSession(context.Background(), "someone-else", init.Reference)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestInitPaymentPricesFromCart(t *testing.T) {
	sessions := newMemorySessions()
	uc := newUseCase(newMemoryStore(nil), Deps{Sessions: sessions, Cart: cartOf(line("A", 100, "50"))})

	init, err := uc.InitPayment(context.Background(), &dto.PaymentInitInput{
		UserID: "u1",
		Lines:  []dto.Line{line("A", 100, "0.01")},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(575000), init.Amount)

	s, err := uc.GetSession(context.Background(), "u1", init.Reference)
	require.NoError(t, err)
	assert.Equal(t, "50", s.Lines[0].Price.String())
}

func TestInitPaymentRequiresAddressForDelivery(t *testing.T) {
	uc := newUseCase(newMemoryStore(nil), Deps{Cart: cartOf(line("A", 1, "50"))})
	_, err := uc.InitPayment(context.Background(), &dto.PaymentInitInput{
		UserID:         "u1",
		Lines:          []dto.Line{line("A", 1, "50")},
		DeliveryMethod: model.DeliveryMethodDelivery,
	})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func startSession(t *testing.T, uc checkout.UseCase) string {
	t.Helper()
	init, err := uc.InitPayment(context.Background(), &dto.PaymentInitInput{
		UserID: "u1",
		Lines:  []dto.Line{line("A", 2, "50")},
	})
	require.NoError(t, err)
	return init.Reference
}

func sessionCart() *memoryCart { return cartOf(line("A", 2, "50")) }

func TestGatewaySuccessWalksStatesToCommitted(t *testing.T) {
	store := newMemoryStore(map[string]int{"A": 10})
	sessions := newMemorySessions()
	v := new(mockVerifier)
	uc := newUseCase(store, Deps{Sessions: sessions, Verifier: v, Cart: sessionCart()})
	ref := startSession(t, uc)
	v.On("Verify", mock.Anything, ref).Return(&payment.Verification{Status: "success", AmountMinor: 11500}, nil)

	s, err := uc.HandleGatewayEvent(context.Background(), "u1", payment.GatewayEvent{Reference: ref})
	require.NoError(t, err)

	assert.Equal(t, checkout.StateCommitted, s.State)
	require.NotNil(t, s.Result)
	assert.Equal(t, []checkout.State{
		checkout.StateAwaitingPayment,
		checkout.StateVerifying,
		checkout.StateWritingOrder,
		checkout.StateCommitted,
	}, sessions.history)
	assert.Equal(t, 8, store.products["A"].StockQuantity)

	_, err = uc.HandleGatewayEvent(context.Background(), "u1", payment.GatewayEvent{Reference: ref})
	assert.ErrorIs(t, err, checkout.ErrSessionNotAwaiting)
	assert.Len(t, store.orders, 1)
}

func TestGatewayCommitFailureCanBeRetried(t *testing.T) {
	store := newMemoryStore(map[string]int{"A": 10})
	store.commitErr = context.DeadlineExceeded
	sessions := newMemorySessions()
	v := new(mockVerifier)
	uc := newUseCase(store, Deps{Sessions: sessions, Verifier: v, Cart: sessionCart()})
	ref := startSession(t, uc)
	v.On("Verify", mock.Anything, ref).Return(&payment.Verification{Status: "success", AmountMinor: 11500}, nil)

	s, err := uc.HandleGatewayEvent(context.Background(), "u1", payment.GatewayEvent{Reference: ref})
	assert.True(t, apperror.IsTransient(err))
	assert.Equal(t, checkout.StateAwaitingPayment, s.State)
	assert.Empty(t, store.orders)

	stored, err := uc.GetSession(context.Background(), "u1", ref)
	require.NoError(t, err)
	assert.Equal(t, checkout.StateAwaitingPayment, stored.State)

	store.commitErr = nil
	s, err = uc.HandleGatewayEvent(context.Background(), "u1", payment.GatewayEvent{Reference: ref})
	require.NoError(t, err)
	assert.Equal(t, checkout.StateCommitted, s.State)
	assert.Empty(t, s.FailureReason)
	assert.Len(t, store.orders, 1)
	assert.Equal(t, 8, store.products["A"].StockQuantity)
}

func TestGatewayClosedIsNoop(t *testing.T) {
	store := newMemoryStore(map[string]int{"A": 10})
	uc := newUseCase(store, Deps{Cart: sessionCart()})
	ref := startSession(t, uc)

	s, err := uc.HandleGatewayEvent(context.Background(), "u1", payment.GatewayEvent{Reference: ref, Closed: true})
	require.NoError(t, err)
	assert.Equal(t, checkout.StateAwaitingPayment, s.State)
	assert.Empty(t, store.orders)
}

func TestGatewayFailureEndsSession(t *testing.T) {
	store := newMemoryStore(map[string]int{"A": 10})
	uc := newUseCase(store, Deps{Cart: sessionCart()})
	ref := startSession(t, uc)

	s, err := uc.HandleGatewayEvent(context.Background(), "u1", payment.GatewayEvent{
		Reference: ref,
		Error:     &payment.GatewayError{Message: "card declined"},
	})
	require.NoError(t, err)
	assert.Equal(t, checkout.StateFailed, s.State)
	assert.Equal(t, "card declined", s.FailureReason)
	assert.Empty(t, store.orders)
}

func TestGatewayVerificationFailureEndsSession(t *testing.T) {
	store := newMemoryStore(map[string]int{"A": 10})
	v := new(mockVerifier)
	uc := newUseCase(store, Deps{Verifier: v, Cart: sessionCart()})
	ref := startSession(t, uc)
	v.On("Verify", mock.Anything, ref).Return(&payment.Verification{Status: "failed"}, nil)

	s, err := uc.HandleGatewayEvent(context.Background(), "u1", payment.GatewayEvent{Reference: ref})
	var verr *apperror.PaymentVerificationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, checkout.StateFailed, s.State)
	assert.Empty(t, store.orders)
}

func TestGatewayEventForUnknownSession(t *testing.T) {
	uc := newUseCase(newMemoryStore(nil), Deps{})
	_, err := uc.HandleGatewayEvent(context.Background(), "u1", payment.GatewayEvent{Reference: "nope"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestGatewayEventWhileLocked(t *testing.T) {
	locker := &memoryLocker{held: map[string]string{"lock:checkout:ref-x": "other"}}
	uc := newUseCase(newMemoryStore(nil), Deps{Locker: locker})
	_, err := uc.HandleGatewayEvent(context.Background(), "u1", payment.GatewayEvent{Reference: "ref-x"})
	assert.ErrorIs(t, err, apperror.ErrBusy)
}
