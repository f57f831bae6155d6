package order

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusServed    Status = "served"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// transitions is the directed status graph. Orders only ever move forward
// along it, or sideways into cancelled; terminal statuses have no exits.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusServed, StatusCancelled},
	StatusServed:    {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no further mutation of the order is permitted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether the status graph permits moving to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentStatus is the order-level aggregate derived from its payments.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// Type distinguishes how an order is fulfilled.
type Type string

const (
	TypeDineIn   Type = "dine_in"
	TypeTakeout  Type = "takeout"
	TypeDelivery Type = "delivery"
)

// Valid reports whether t is a known order type.
func (t Type) Valid() bool {
	switch t {
	case TypeDineIn, TypeTakeout, TypeDelivery:
		return true
	}
	return false
}

// ItemStatus tracks a single line item through the kitchen.
type ItemStatus string

const (
	ItemOrdered   ItemStatus = "ordered"
	ItemPreparing ItemStatus = "preparing"
	ItemReady     ItemStatus = "ready"
	ItemServed    ItemStatus = "served"
)

// Valid reports whether s is a known item status.
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemOrdered, ItemPreparing, ItemReady, ItemServed:
		return true
	}
	return false
}
