package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	CommandCreateProduct            = "CreateProduct"
	CommandReserveProduct           = "ReserveProduct"
	CommandCancelProductReservation = "CancelProductReservation"
	CommandProcessPayment           = "ProcessPayment"
	CommandCreateOrder              = "CreateOrder"
	CommandApproveOrder             = "ApproveOrder"
	CommandRejectOrder              = "RejectOrder"
)

// Command is dispatched by the router to the aggregate owning AggregateID.
// Commands against the same aggregate id are serialized by the router.
type Command interface {
	Name() string
	AggregateID() string
}

type CreateProductCommand struct {
	ProductID string `validate:"required"`
	Title     string `validate:"required"`
	Price     int64  `validate:"gt=0"`
	Quantity  int32  `validate:"gte=0"`
}

func (c CreateProductCommand) Name() string        { return CommandCreateProduct }
func (c CreateProductCommand) AggregateID() string { return c.ProductID }

type ReserveProductCommand struct {
	OrderID   string `validate:"required"`
	ProductID string `validate:"required"`
	UserID    string `validate:"required"`
	Quantity  int32  `validate:"gt=0"`
}

func (c ReserveProductCommand) Name() string        { return CommandReserveProduct }
func (c ReserveProductCommand) AggregateID() string { return c.ProductID }

type CancelProductReservationCommand struct {
	OrderID   string `validate:"required"`
	ProductID string `validate:"required"`
	UserID    string `validate:"required"`
	Quantity  int32  `validate:"gt=0"`
	Reason    string
}

func (c CancelProductReservationCommand) Name() string        { return CommandCancelProductReservation }
func (c CancelProductReservationCommand) AggregateID() string { return c.ProductID }

type ProcessPaymentCommand struct {
	PaymentID      string          `validate:"required"`
	OrderID        string          `validate:"required"`
	PaymentDetails *PaymentDetails `validate:"required"`
}

func (c ProcessPaymentCommand) Name() string        { return CommandProcessPayment }
func (c ProcessPaymentCommand) AggregateID() string { return c.PaymentID }

type CreateOrderCommand struct {
	OrderID   string `validate:"required"`
	UserID    string `validate:"required"`
	ProductID string `validate:"required"`
	Quantity  int32  `validate:"gt=0"`
	AddressID string `validate:"required"`
}

func (c CreateOrderCommand) Name() string        { return CommandCreateOrder }
func (c CreateOrderCommand) AggregateID() string { return c.OrderID }

type ApproveOrderCommand struct {
	OrderID string `validate:"required"`
}

func (c ApproveOrderCommand) Name() string        { return CommandApproveOrder }
func (c ApproveOrderCommand) AggregateID() string { return c.OrderID }

type RejectOrderCommand struct {
	OrderID string `validate:"required"`
	Reason  string
}

func (c RejectOrderCommand) Name() string        { return CommandRejectOrder }
func (c RejectOrderCommand) AggregateID() string { return c.OrderID }

var validate = validator.New()

// ValidateCommand rejects a malformed command before it is dispatched, so an
// aggregate never sees a command with missing required fields.
func ValidateCommand(cmd Command) error {
	if err := validate.Struct(cmd); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return &ValidationError{Fields: formatValidationErrors(verrs)}
		}

		return err
	}

	return nil
}

func formatValidationErrors(verrs validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(verrs))
	for _, verr := range verrs {
		field := strings.ToLower(verr.Field())

		switch verr.Tag() {
		case "required":
			fields[field] = fmt.Sprintf("%s is required", field)
		case "gt":
			fields[field] = fmt.Sprintf("%s must be greater than %s", field, verr.Param())
		case "gte":
			fields[field] = fmt.Sprintf("%s must be greater than or equal to %s", field, verr.Param())
		default:
			fields[field] = fmt.Sprintf("%s is invalid", field)
		}
	}

	return fields
}
