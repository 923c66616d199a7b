package cart

import (
	"sort"
	"sync"

	"github.com/fekuna/omnipos-storefront-service/internal/apperror"
	"github.com/shopspring/decimal"
)

// Line is a cart entry with the name and price captured when it was added.
type Line struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Snapshot is an immutable view of a cart. The Lines map is never modified
// after a snapshot is published, so readers may share it freely.
type Snapshot struct {
	Version uint64          `json:"version"`
	Lines   map[string]Line `json:"lines"`
}

func (s Snapshot) TotalItems() int {
	total := 0
	for _, l := range s.Lines {
		total += l.Quantity
	}
	return total
}

// Sorted returns the lines ordered by product id.
func (s Snapshot) Sorted() []Line {
	out := make([]Line, 0, len(s.Lines))
	for _, l := range s.Lines {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func (s Snapshot) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range s.Lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// Holder owns one cart. Every mutation copies the map, edits the copy and
// publishes it as a new snapshot with the next version.
type Holder struct {
	mu      sync.Mutex
	current Snapshot
	subs    map[int]chan Snapshot
	nextSub int
}

func NewHolder(initial Snapshot) *Holder {
	if initial.Lines == nil {
		initial.Lines = map[string]Line{}
	}
	return &Holder{
		current: initial,
		subs:    map[int]chan Snapshot{},
	}
}

func (h *Holder) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Add increases the quantity of a product. The cumulative quantity may not
// exceed stock; on rejection the cart is left unchanged.
func (h *Holder) Add(productID, name string, price decimal.Decimal, qty, stock int) (Snapshot, error) {
	if qty <= 0 {
		return h.Snapshot(), apperror.ErrInvalidQuantity
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	line := h.current.Lines[productID]
	if line.Quantity+qty > stock {
		return h.current, apperror.ErrQuantityExceedsStock
	}

	line.ProductID = productID
	line.Name = name
	line.UnitPrice = price
	line.Quantity += qty

	return h.replace(func(m map[string]Line) { m[productID] = line }), nil
}

// UpdateQuantity sets an absolute quantity. Zero or less removes the line.
func (h *Holder) UpdateQuantity(productID string, qty, stock int) (Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	line, ok := h.current.Lines[productID]
	if qty <= 0 {
		if !ok {
			return h.current, nil
		}
		return h.replace(func(m map[string]Line) { delete(m, productID) }), nil
	}
	if !ok {
		return h.current, apperror.ErrNotFound
	}
	if qty > stock {
		return h.current, apperror.ErrQuantityExceedsStock
	}

	line.Quantity = qty
	return h.replace(func(m map[string]Line) { m[productID] = line }), nil
}

func (h *Holder) Remove(productID string) Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.current.Lines[productID]; !ok {
		return h.current
	}
	return h.replace(func(m map[string]Line) { delete(m, productID) })
}

func (h *Holder) Clear() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.replace(func(m map[string]Line) {
		for k := range m {
			delete(m, k)
		}
	})
}

func (h *Holder) Quantity(productID string) int {
	return h.Snapshot().Lines[productID].Quantity
}

func (h *Holder) TotalItems() int {
	return h.Snapshot().TotalItems()
}

func (h *Holder) Lines() []Line {
	return h.Snapshot().Sorted()
}

// Subscribe delivers the current snapshot immediately and every later one.
// Slow subscribers only ever see the latest snapshot.
func (h *Holder) Subscribe() (<-chan Snapshot, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Snapshot, 1)
	ch <- h.current

	id := h.nextSub
	h.nextSub++
	h.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// replace must be called with mu held.
func (h *Holder) replace(edit func(map[string]Line)) Snapshot {
	next := make(map[string]Line, len(h.current.Lines)+1)
	for k, v := range h.current.Lines {
		next[k] = v
	}
	edit(next)

	h.current = Snapshot{Version: h.current.Version + 1, Lines: next}

	for _, ch := range h.subs {
		select {
		case <-ch:
		default:
		}
		ch <- h.current
	}
	return h.current
}
