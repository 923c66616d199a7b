package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-storefront-service/internal/apperror"
	"github.com/fekuna/omnipos-storefront-service/internal/checkout/dto"
	"github.com/fekuna/omnipos-storefront-service/internal/payment"
)

type State string

const (
	StateAwaitingPayment State = "AWAITING_PAYMENT"
	StateVerifying       State = "VERIFYING"
	StateWritingOrder    State = "WRITING_ORDER"
	StateCommitted       State = "COMMITTED"
	StateFailed          State = "FAILED"
)

var (
	ErrSessionNotAwaiting = fmt.Errorf("%w: checkout session is no longer awaiting payment", apperror.ErrInvalidStatus)
	ErrReferenceMismatch  = fmt.Errorf("%w: payment reference does not match checkout session", apperror.ErrInvalidInput)
	ErrUnknownEvent       = fmt.Errorf("%w: unrecognised gateway event", apperror.ErrInvalidInput)
)

// Session tracks one hosted payment attempt from initialisation to order.
type Session struct {
	Reference       string              `json:"reference"`
	UserID          string              `json:"user_id"`
	UserEmail       string              `json:"user_email"`
	Lines           []dto.Line          `json:"lines"`
	DeliveryMethod  string              `json:"delivery_method"`
	DeliveryAddress *string             `json:"delivery_address,omitempty"`
	AmountMinor     int64               `json:"amount_minor"`
	State           State               `json:"state"`
	FailureReason   string              `json:"failure_reason,omitempty"`
	Result          *dto.CheckoutResult `json:"result,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// Steps are the side effects a successful payment event triggers.
type Steps interface {
	Verify(ctx context.Context, s *Session) error
	PlaceOrder(ctx context.Context, s *Session) (*dto.CheckoutResult, error)
}

// Handle applies a gateway event. The gateway callback is the only way out
// of AwaitingPayment: a closed window changes nothing, a failure ends the
// session, and a success verifies the payment and writes the order. A
// transient error while verifying or writing puts the session back to
// AwaitingPayment so the same success event can be replayed.
// onTransition is called after every state change.
func (s *Session) Handle(ctx context.Context, ev payment.GatewayEvent, steps Steps, onTransition func(*Session)) error {
	if s.State != StateAwaitingPayment {
		return fmt.Errorf("%w: state %s", ErrSessionNotAwaiting, s.State)
	}

	switch ev.Kind() {
	case "closed":
		return nil
	case "failure":
		s.fail(ev.Error.Message, onTransition)
		return nil
	case "success":
	default:
		return ErrUnknownEvent
	}

	if ev.Reference != s.Reference {
		return ErrReferenceMismatch
	}

	s.transition(StateVerifying, onTransition)
	if err := steps.Verify(ctx, s); err != nil {
		s.abort(err, onTransition)
		return err
	}

	s.transition(StateWritingOrder, onTransition)
	result, err := steps.PlaceOrder(ctx, s)
	if err != nil {
		s.abort(err, onTransition)
		return err
	}

	s.Result = result
	s.FailureReason = ""
	s.transition(StateCommitted, onTransition)
	return nil
}

func (s *Session) transition(to State, onTransition func(*Session)) {
	s.State = to
	s.UpdatedAt = time.Now()
	if onTransition != nil {
		onTransition(s)
	}
}

func (s *Session) fail(reason string, onTransition func(*Session)) {
	s.FailureReason = reason
	s.transition(StateFailed, onTransition)
}

func (s *Session) abort(err error, onTransition func(*Session)) {
	if apperror.IsTransient(err) {
		s.FailureReason = err.Error()
		s.transition(StateAwaitingPayment, onTransition)
		return
	}
	s.fail(err.Error(), onTransition)
}

func (s *Session) Terminal() bool {
	return s.State == StateCommitted || s.State == StateFailed
}
