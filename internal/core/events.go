package core

import (
	"encoding/json"
	"fmt"
)

type OrderStatus string

const (
	OrderStatusCreated  OrderStatus = "CREATED"
	OrderStatusApproved OrderStatus = "APPROVED"
	OrderStatusRejected OrderStatus = "REJECTED"
)

const (
	EventProductCreated              = "ProductCreated"
	EventProductReserved             = "ProductReserved"
	EventProductReservationCancelled = "ProductReservationCancelled"
	EventPaymentProcessed            = "PaymentProcessed"
	EventOrderCreated                = "OrderCreated"
	EventOrderApproved               = "OrderApproved"
	EventOrderRejected               = "OrderRejected"
)

const (
	TopicProductEvents = "product_events"
	TopicPaymentEvents = "payment_events"
	TopicOrderEvents   = "order_events"
)

// EventPayload is one of the closed set of domain event bodies below. The
// set is matched exhaustively by aggregate reducers and the saga, so adding
// an event kind is a compile-time-visible change.
type EventPayload interface {
	EventName() string
}

type ProductCreatedEvent struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	Price     int64  `json:"price"`
	Quantity  int32  `json:"quantity"`
}

func (ProductCreatedEvent) EventName() string { return EventProductCreated }

type ProductReservedEvent struct {
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	UserID    string `json:"user_id"`
	Quantity  int32  `json:"quantity"`
}

func (ProductReservedEvent) EventName() string { return EventProductReserved }

type ProductReservationCancelledEvent struct {
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	UserID    string `json:"user_id"`
	Quantity  int32  `json:"quantity"`
	Reason    string `json:"reason"`
}

func (ProductReservationCancelledEvent) EventName() string { return EventProductReservationCancelled }

type PaymentProcessedEvent struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
}

func (PaymentProcessedEvent) EventName() string { return EventPaymentProcessed }

type OrderCreatedEvent struct {
	OrderID   string      `json:"order_id"`
	UserID    string      `json:"user_id"`
	ProductID string      `json:"product_id"`
	Quantity  int32       `json:"quantity"`
	AddressID string      `json:"address_id"`
	Status    OrderStatus `json:"status"`
}

func (OrderCreatedEvent) EventName() string { return EventOrderCreated }

type OrderApprovedEvent struct {
	OrderID string      `json:"order_id"`
	Status  OrderStatus `json:"status"`
}

func (OrderApprovedEvent) EventName() string { return EventOrderApproved }

type OrderRejectedEvent struct {
	OrderID string      `json:"order_id"`
	Reason  string      `json:"reason"`
	Status  OrderStatus `json:"status"`
}

func (OrderRejectedEvent) EventName() string { return EventOrderRejected }

// DecodePayload rebuilds a typed payload from its stored JSON form.
func DecodePayload(eventType string, data []byte) (EventPayload, error) {
	switch eventType {
	case EventProductCreated:
		var p ProductCreatedEvent
		return p, json.Unmarshal(data, &p)
	case EventProductReserved:
		var p ProductReservedEvent
		return p, json.Unmarshal(data, &p)
	case EventProductReservationCancelled:
		var p ProductReservationCancelledEvent
		return p, json.Unmarshal(data, &p)
	case EventPaymentProcessed:
		var p PaymentProcessedEvent
		return p, json.Unmarshal(data, &p)
	case EventOrderCreated:
		var p OrderCreatedEvent
		return p, json.Unmarshal(data, &p)
	case EventOrderApproved:
		var p OrderApprovedEvent
		return p, json.Unmarshal(data, &p)
	case EventOrderRejected:
		var p OrderRejectedEvent
		return p, json.Unmarshal(data, &p)
	default:
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}
}

// OrderIDOf returns the order correlation id carried by the payload, used to
// route events to the matching saga instance.
func OrderIDOf(p EventPayload) (string, bool) {
	switch ev := p.(type) {
	case ProductReservedEvent:
		return ev.OrderID, true
	case ProductReservationCancelledEvent:
		return ev.OrderID, true
	case PaymentProcessedEvent:
		return ev.OrderID, true
	case OrderCreatedEvent:
		return ev.OrderID, true
	case OrderApprovedEvent:
		return ev.OrderID, true
	case OrderRejectedEvent:
		return ev.OrderID, true
	default:
		return "", false
	}
}

// TopicFor maps an event type to the Kafka topic the relay publishes it on.
func TopicFor(eventType string) string {
	switch eventType {
	case EventProductCreated, EventProductReserved, EventProductReservationCancelled:
		return TopicProductEvents
	case EventPaymentProcessed:
		return TopicPaymentEvents
	default:
		return TopicOrderEvents
	}
}
