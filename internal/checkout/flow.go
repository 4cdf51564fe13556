package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kiplystart/kiplystart-backend/internal/cart"
	"github.com/kiplystart/kiplystart-backend/pkg/util"
	"github.com/shopspring/decimal"
)

// Step is a state of the checkout flow.
type Step string

const (
	StepCart         Step = "cart"
	StepPersonalInfo Step = "personal_info"
	StepDeliveryInfo Step = "delivery_info"
	StepSubmitted    Step = "submitted"
)

// StatusPending is the status every new order line is written with.
const StatusPending = "pending"

const minPhoneDigits = 10

var (
	ErrInvalidStep  = errors.New("action not allowed at this checkout step")
	ErrEmptyCart    = errors.New("cart is empty")
	ErrSubmitFailed = errors.New("order could not be submitted")
)

type PersonalInfo struct {
	FullName string `json:"fullName" validate:"required,notblank"`
	IDNumber string `json:"idNumber" validate:"required,notblank"`
	Phone    string `json:"phone" validate:"required,notblank,phone"`
	Email    string `json:"email" validate:"omitempty,email"`
}

type DeliveryInfo struct {
	State     string `json:"state" validate:"required,notblank"`
	City      string `json:"city" validate:"required,notblank"`
	Address   string `json:"address" validate:"required,notblank"`
	Reference string `json:"reference"`
}

// OrderRecord is one persisted order row. A checkout writes one record per
// cart line, all sharing the same OrderCode.
type OrderRecord struct {
	OrderCode   string
	FullName    string
	IDNumber    string
	Phone       string
	Email       string
	ProductID   string
	ProductName string
	Quantity    int
	BundleLabel string
	DiscountPct int
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
	State       string
	City        string
	Address     string
	Reference   string
	Status      string
}

// OrderWriter persists order records.
type OrderWriter interface {
	InsertOrder(ctx context.Context, record OrderRecord) error
}

// ValidationError lists the fields that blocked a transition, keyed by their
// JSON name, with a shopper-facing message for each.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "invalid fields: " + strings.Join(names, ", ")
}

// Summary describes a submitted order.
type Summary struct {
	OrderCode string
	Personal  PersonalInfo
	Delivery  DeliveryInfo
	Lines     []cart.Line
	Total     decimal.Decimal
	Units     int
}

// Flow walks a shopper through cart → personal info → delivery info →
// submitted. A Flow is owned by one request and is not safe for concurrent use.
type Flow struct {
	step     Step
	Personal PersonalInfo
	Delivery DeliveryInfo

	// Loading is set while order rows are being written; Failed records that
	// the last submission did not complete.
	Loading bool
	Failed  bool

	codePrefix string
	newCode    func(prefix string) string
}

// NewFlow starts a flow at the cart step. Order codes are generated as
// "<prefix>-XXXXXX".
func NewFlow(codePrefix string) *Flow {
	return &Flow{
		step:       StepCart,
		codePrefix: codePrefix,
		newCode:    util.GenerateOrderCode,
	}
}

func (f *Flow) Step() Step { return f.step }

// Next advances one step. Leaving the personal info step requires valid
// personal data; the delivery info step is only left through Submit.
func (f *Flow) Next() error {
	switch f.step {
	case StepCart:
		f.step = StepPersonalInfo
		return nil
	case StepPersonalInfo:
		if err := ValidatePersonal(f.Personal); err != nil {
			return err
		}
		f.step = StepDeliveryInfo
		return nil
	default:
		return ErrInvalidStep
	}
}

// Back returns to the previous step without any validation. It does nothing
// at the first step or once the order has been submitted.
func (f *Flow) Back() {
	switch f.step {
	case StepPersonalInfo:
		f.step = StepCart
	case StepDeliveryInfo:
		f.step = StepPersonalInfo
	}
}

// Submit writes one order record per line and moves the flow to the
// submitted step. Records are written one at a time without a transaction;
// if a write fails the earlier rows stay in place, Failed is set, and the
// returned error wraps ErrSubmitFailed. There is no retry.
func (f *Flow) Submit(ctx context.Context, lines []cart.Line, w OrderWriter) (*Summary, error) {
	if f.step != StepDeliveryInfo {
		return nil, ErrInvalidStep
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	if err := ValidateDelivery(f.Delivery); err != nil {
		return nil, err
	}

	f.Loading = true
	f.Failed = false
	defer func() { f.Loading = false }()

	summary := &Summary{
		OrderCode: f.newCode(f.codePrefix),
		Personal:  f.Personal,
		Delivery:  f.Delivery,
		Lines:     lines,
		Total:     decimal.Zero,
	}
	for _, l := range lines {
		rec := f.record(summary.OrderCode, l)
		if err := w.InsertOrder(ctx, rec); err != nil {
			f.Failed = true
			return nil, fmt.Errorf("%w: insert line %s: %w", ErrSubmitFailed, l.Key(), err)
		}
		summary.Total = summary.Total.Add(rec.LineTotal)
		summary.Units += rec.Quantity
	}

	f.step = StepSubmitted
	return summary, nil
}

func (f *Flow) record(code string, l cart.Line) OrderRecord {
	return OrderRecord{
		OrderCode:   code,
		FullName:    strings.TrimSpace(f.Personal.FullName),
		IDNumber:    strings.TrimSpace(f.Personal.IDNumber),
		Phone:       util.NormalizePhone(f.Personal.Phone),
		Email:       strings.TrimSpace(f.Personal.Email),
		ProductID:   l.ProductID,
		ProductName: l.Name,
		Quantity:    l.TotalUnits(),
		BundleLabel: l.Label(),
		DiscountPct: l.DiscountPct,
		UnitPrice:   l.UnitPrice,
		LineTotal:   l.LineTotal(),
		State:       strings.TrimSpace(f.Delivery.State),
		City:        strings.TrimSpace(f.Delivery.City),
		Address:     strings.TrimSpace(f.Delivery.Address),
		Reference:   strings.TrimSpace(f.Delivery.Reference),
		Status:      StatusPending,
	}
}
