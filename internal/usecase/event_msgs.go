package usecase

// OrderPlacedMsg goes out on RabbitMQ right after an order commits.
// The admin notifier and the payment worker both consume it.
type OrderPlacedMsg struct {
	OrderNumber string `json:"orderNumber"`
	UserID      string `json:"userId"`
	TotalCents  int64  `json:"totalCents"`
	Currency    string `json:"currency"`
	Delivery    string `json:"delivery"`
}

// OrderStatusChangedMsg arrives on Kafka from the admin panel (or the
// payment callback) when an order's status moves.
type OrderStatusChangedMsg struct {
	OrderNumber string `json:"orderNumber"`
	Status      string `json:"status"` // e.g. "CONFIRMED", "PAID", "SHIPPED", "CANCELLED"
}
