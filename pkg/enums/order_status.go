package enums

import "fmt"

// OrderStatus tracks a settled market order.
type OrderStatus string

const (
	OrderStatusCompleted OrderStatus = "completed"
)

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	if value == string(OrderStatusCompleted) {
		return OrderStatusCompleted, nil
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
