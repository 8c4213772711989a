package domain

import (
	"fmt"
	"strings"
)

// KindAction identifies the mutation intent of a bulk run.
type KindAction string

const (
	ActionPublish   KindAction = "PUBLISH"
	ActionUnpublish KindAction = "UNPUBLISH"
	ActionMakeFree  KindAction = "MAKE_FREE"
	ActionMakePaid  KindAction = "MAKE_PAID"
)

// Price window for paid courses, in the platform currency.
const (
	MinCoursePrice = 0.01
	MaxCoursePrice = 9999.99
)

func (a KindAction) String() string { return string(a) }

func (a KindAction) IsValid() bool {
	switch a {
	case ActionPublish, ActionUnpublish, ActionMakeFree, ActionMakePaid:
		return true
	}
	return false
}

func ParseKindActionFromString(s string) (KindAction, error) {
	a := KindAction(strings.ToUpper(strings.TrimSpace(s)))
	if !a.IsValid() {
		return "", fmt.Errorf("%w: invalid operation kind %q", ErrValidation, s)
	}
	return a, nil
}

// OperationKind is the mutation applied by one bulk run. The price payload
// only exists for MAKE_PAID and is fixed at construction, so a run can
// never be dispatched with a missing or stale price.
type OperationKind struct {
	action KindAction
	price  float64
}

func NewPublishKind() OperationKind   { return OperationKind{action: ActionPublish} }
func NewUnpublishKind() OperationKind { return OperationKind{action: ActionUnpublish} }
func NewMakeFreeKind() OperationKind  { return OperationKind{action: ActionMakeFree} }

// NewMakePaidKind validates the price window before any item is processed.
func NewMakePaidKind(price float64) (OperationKind, error) {
	if price < MinCoursePrice || price > MaxCoursePrice {
		return OperationKind{}, fmt.Errorf(
			"%w: price must be between %.2f and %.2f (got %.2f)",
			ErrValidation, MinCoursePrice, MaxCoursePrice, price,
		)
	}
	return OperationKind{action: ActionMakePaid, price: price}, nil
}

// NewOperationKind builds a kind from wire input. price is required for
// MAKE_PAID and must be absent otherwise.
func NewOperationKind(action KindAction, price *float64) (OperationKind, error) {
	switch action {
	case ActionPublish:
		return NewPublishKind(), nil
	case ActionUnpublish:
		return NewUnpublishKind(), nil
	case ActionMakeFree:
		return NewMakeFreeKind(), nil
	case ActionMakePaid:
		if price == nil {
			return OperationKind{}, fmt.Errorf("%w: price is required for %s", ErrValidation, ActionMakePaid)
		}
		return NewMakePaidKind(*price)
	default:
		return OperationKind{}, fmt.Errorf("%w: invalid operation kind %q", ErrValidation, action)
	}
}

func (k OperationKind) Action() KindAction { return k.action }

// Price returns the paid price; meaningful only when Action is MAKE_PAID.
func (k OperationKind) Price() float64 { return k.price }

func (k OperationKind) IsZero() bool { return k.action == "" }

// CourseFields is the field-level change sent to the core LMS API for one
// course update.
type CourseFields struct {
	Published *bool
	IsFree    *bool
	Price     *float64
}

// Fields translates the kind into the concrete course update.
func (k OperationKind) Fields() CourseFields {
	truth := true
	falsity := false
	zero := 0.0

	switch k.action {
	case ActionPublish:
		return CourseFields{Published: &truth}
	case ActionUnpublish:
		return CourseFields{Published: &falsity}
	case ActionMakeFree:
		return CourseFields{IsFree: &truth, Price: &zero}
	case ActionMakePaid:
		price := k.price
		return CourseFields{IsFree: &falsity, Price: &price}
	default:
		return CourseFields{}
	}
}
