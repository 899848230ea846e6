package payment

import (
	"context"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/scoopworks/storefront/internal/domain/order"
)

// Fixed set of accepted test cards. Any other well-formed number is rejected.
var acceptedTestCards = map[string]struct{}{
	"4111111111111111": {}, // Visa
	"5500000000000004": {}, // Mastercard
}

var (
	cardNumberPattern = regexp.MustCompile(`^\d{16}$`)
	expiryPattern     = regexp.MustCompile(`^\d{2}/\d{2}$`)
	cvvPattern        = regexp.MustCompile(`^\d{3}$`)
)

// Processor validates payment data and transitions orders from pending to
// confirmed. There is no gateway integration: cards are checked against fixed
// rules, and delivery methods always succeed with a generated confirmation
// code.
type Processor struct {
	orders order.Repository
	now    func() time.Time
	code   func() string
}

// NewProcessor creates a payment Processor.
func NewProcessor(orders order.Repository) *Processor {
	return &Processor{
		orders: orders,
		now:    time.Now,
		code:   confirmationCode,
	}
}

// Process applies method-specific validation and, on success, marks the order
// as paid. Stock was already reserved at checkout; this stage performs no
// inventory mutation.
func (p *Processor) Process(ctx context.Context, orderID string, method order.Method, data Data) (*Result, error) {
	o, err := p.find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == order.StatusPaymentConfirmed {
		return nil, order.ErrAlreadyPaid
	}

	var code, instructions string

	switch method {
	case order.MethodDebitCard, order.MethodCreditCard:
		if err := p.validateCard(data); err != nil {
			return nil, err
		}
		instructions = fmt.Sprintf(
			"Payment processed successfully. Your order will be shipped to: %s",
			o.ShippingAddress,
		)

	case order.MethodCashOnDelivery:
		code = p.code()
		instructions = fmt.Sprintf(
			"Cash on delivery. Confirmation code: %s. "+
				"Present this code when your order arrives at: %s. Total due: %s",
			code, o.ShippingAddress, o.Total.StringFixed(2),
		)

	case order.MethodCardOnDelivery:
		code = p.code()
		instructions = fmt.Sprintf(
			"Card terminal on delivery. Confirmation code: %s. "+
				"The courier carries a terminal for card payment. Delivery address: %s. Total due: %s",
			code, o.ShippingAddress, o.Total.StringFixed(2),
		)

	case order.MethodBankTransfer, order.MethodWallet:
		return nil, errors.Wrapf(ErrUnsupportedMethod, "method %s is not implemented", method)

	default:
		return nil, errors.Wrapf(ErrUnsupportedMethod, "unknown method %q", method)
	}

	if err := o.ConfirmPayment(method, p.now()); err != nil {
		return nil, err
	}
	if err := p.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrapf(err, "update order %s", orderID)
	}

	return &Result{
		OrderID:          o.ID,
		Method:           method,
		ConfirmationCode: code,
		Instructions:     instructions,
		Total:            o.Total,
	}, nil
}

// Status returns the payment status of an order without mutating anything.
func (p *Processor) Status(ctx context.Context, orderID string) (*StatusInfo, error) {
	o, err := p.find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &StatusInfo{
		OrderID:       o.ID,
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		Total:         o.Total,
		CreatedAt:     o.CreatedAt,
		PaidAt:        o.PaidAt,
	}, nil
}

func (p *Processor) find(ctx context.Context, orderID string) (*order.Order, error) {
	o, err := p.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "find order %s", orderID)
	}
	return o, nil
}

// validateCard checks card number, expiry, and CVV formats, rejects expired
// cards, and accepts only the fixed test card numbers.
func (p *Processor) validateCard(data Data) error {
	if !cardNumberPattern.MatchString(data.CardNumber) {
		return &InvalidCardDataError{Reason: "card number must have 16 digits"}
	}
	if !expiryPattern.MatchString(data.Expiry) {
		return &InvalidCardDataError{Reason: "expiry must use MM/YY format"}
	}

	// Both parts are guaranteed numeric by the pattern above.
	parts := strings.SplitN(data.Expiry, "/", 2)
	month := mustAtoi(parts[0])
	year := 2000 + mustAtoi(parts[1])
	if month < 1 || month > 12 {
		return &InvalidCardDataError{Reason: fmt.Sprintf("invalid expiry month: %02d", month)}
	}

	now := p.now()
	if year < now.Year() || (year == now.Year() && month < int(now.Month())) {
		return &InvalidCardDataError{Reason: "card is expired"}
	}

	if !cvvPattern.MatchString(data.CVV) {
		return &InvalidCardDataError{Reason: "CVV must have 3 digits"}
	}

	if _, ok := acceptedTestCards[data.CardNumber]; !ok {
		return ErrRejected
	}
	return nil
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// confirmationCode returns a random 6-digit code for delivery-time payment
// methods.
func confirmationCode() string {
	return strconv.Itoa(100000 + rand.IntN(900000))
}
