// Package history rebuilds a product's stock timeline from either the legacy
// embedded history array or the inventory audit log.
package history

import (
	"fmt"
	"sort"
	"time"

	"github.com/fekuna/omnipos-storefront-service/internal/apperror"
	"github.com/fekuna/omnipos-storefront-service/internal/model"
	"github.com/fekuna/omnipos-storefront-service/pkg/logger"
	"go.uber.org/zap"
)

const InitialStockLabel = "Initial Stock"

type Entry struct {
	Date             time.Time `json:"date"`
	Quantity         int       `json:"quantity"`
	PreviousQuantity int       `json:"previous_quantity"`
	Label            string    `json:"label"`
}

type MonthNode struct {
	Month     int     `json:"month"`
	MonthName string  `json:"month_name"`
	Expanded  bool    `json:"expanded"`
	Entries   []Entry `json:"entries"`
}

type YearNode struct {
	Year     int         `json:"year"`
	Expanded bool        `json:"expanded"`
	Months   []MonthNode `json:"months"`
}

type Reconstructor struct {
	now    func() time.Time
	loc    *time.Location
	logger logger.ZapLogger
}

type Option func(*Reconstructor)

func WithClock(now func() time.Time) Option {
	return func(r *Reconstructor) { r.now = now }
}

// WithLocation sets the calendar used for year and month grouping. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(r *Reconstructor) { r.loc = loc }
}

func NewReconstructor(log logger.ZapLogger, opts ...Option) *Reconstructor {
	r := &Reconstructor{
		now:    time.Now,
		loc:    time.UTC,
		logger: log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconstruct builds the year/month tree for one product. Embedded history
// wins when present, otherwise the audit log is used. Entries with unusable
// timestamps are skipped and returned as DataIntegrityErrors alongside the tree.
func (r *Reconstructor) Reconstruct(
	productID string,
	embedded []model.RawHistoryEntry,
	audit []model.InventoryTransaction,
	createdAt time.Time,
	currentStock int,
) ([]YearNode, []error) {
	var (
		entries []Entry
		errs    []error
	)

	if len(embedded) > 0 {
		entries, errs = r.fromEmbedded(productID, embedded)
	} else {
		entries, errs = r.fromAudit(productID, audit)
	}

	// Stable: same-timestamp decrements from one batch keep log order.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.Before(entries[j].Date)
	})

	if createdAt.IsZero() {
		err := &apperror.DataIntegrityError{Entity: "product", ID: productID, Reason: "missing created_at"}
		r.logger.Warn("stock history without creation date", zap.String("product_id", productID))
		errs = append(errs, err)
		createdAt = r.now()
		if len(entries) > 0 {
			createdAt = entries[0].Date
		}
	}

	if len(entries) == 0 || entries[0].Date.After(createdAt) {
		quantity := currentStock
		if len(entries) > 0 {
			quantity = entries[0].PreviousQuantity
		}
		entries = append([]Entry{{
			Date:     createdAt,
			Quantity: quantity,
			Label:    InitialStockLabel,
		}}, entries...)
	}

	return r.group(productID, entries), errs
}

func (r *Reconstructor) fromEmbedded(productID string, raw []model.RawHistoryEntry) ([]Entry, []error) {
	entries := make([]Entry, 0, len(raw))
	var errs []error

	for i, e := range raw {
		date, err := NormalizeTimestamp(e.Date)
		if err != nil {
			errs = append(errs, r.skip(productID, fmt.Sprintf("stock_history[%d]", i), err))
			continue
		}
		entries = append(entries, Entry{
			Date:             date,
			Quantity:         e.Quantity(),
			PreviousQuantity: e.PreviousStock,
			Label:            e.UpdatedBy,
		})
	}
	return entries, errs
}

func (r *Reconstructor) fromAudit(productID string, audit []model.InventoryTransaction) ([]Entry, []error) {
	var (
		entries []Entry
		errs    []error
	)

	for _, rec := range audit {
		var matching []model.StockDelta
		for _, d := range rec.Deltas {
			if d.ProductID == productID {
				matching = append(matching, d)
			}
		}
		if len(matching) == 0 {
			continue
		}

		date, err := NormalizeTimestamp(rec.CreatedAt)
		if err != nil {
			errs = append(errs, r.skip(productID, "inventory_transaction "+rec.ID, err))
			continue
		}

		label := rec.PaymentReference
		switch {
		case label != "":
		case rec.TransactionType == model.TransactionBackfill && rec.UpdatedBy != "":
			label = rec.UpdatedBy
		default:
			label = string(rec.TransactionType)
		}

		for _, d := range matching {
			entries = append(entries, Entry{
				Date:             date,
				Quantity:         d.NewQuantity,
				PreviousQuantity: d.OldQuantity,
				Label:            label,
			})
		}
	}
	return entries, errs
}

func (r *Reconstructor) skip(productID, where string, cause error) error {
	r.logger.Warn("skipping stock history entry",
		zap.String("product_id", productID),
		zap.String("entry", where),
		zap.Error(cause),
	)
	return &apperror.DataIntegrityError{
		Entity: "stock history entry",
		ID:     productID + "/" + where,
		Reason: cause.Error(),
	}
}

type monthKey struct {
	year  int
	month time.Month
}

// group expects entries sorted by date. Only months holding entries are
// emitted, bounded by the earliest entry month and the current month.
func (r *Reconstructor) group(productID string, entries []Entry) []YearNode {
	now := r.now().In(r.loc)
	last := monthKey{now.Year(), now.Month()}

	var years []YearNode
	for _, e := range entries {
		d := e.Date.In(r.loc)
		key := monthKey{d.Year(), d.Month()}
		if key.year > last.year || (key.year == last.year && key.month > last.month) {
			r.logger.Warn("stock history entry dated in the future",
				zap.String("product_id", productID),
				zap.Time("date", e.Date),
			)
			continue
		}

		if len(years) == 0 || years[len(years)-1].Year != key.year {
			years = append(years, YearNode{Year: key.year})
		}
		y := &years[len(years)-1]

		if len(y.Months) == 0 || y.Months[len(y.Months)-1].Month != int(key.month) {
			y.Months = append(y.Months, MonthNode{
				Month:     int(key.month),
				MonthName: key.month.String(),
			})
		}
		m := &y.Months[len(y.Months)-1]
		m.Entries = append(m.Entries, e)
	}
	return years
}

// Flatten returns every entry of the tree in order.
func Flatten(years []YearNode) []Entry {
	var out []Entry
	for _, y := range years {
		for _, m := range y.Months {
			out = append(out, m.Entries...)
		}
	}
	return out
}
