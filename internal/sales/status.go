package sales

import "github.com/shopspring/decimal"

type OrderStatus string

const (
	OrderPaid   OrderStatus = "PAID"
	OrderDebt   OrderStatus = "DEBT"
	OrderClosed OrderStatus = "CLOSED"
)

type LogisticsStatus string

const (
	LogisticsNotSent  LogisticsStatus = "NOT_SENT"
	LogisticsSent     LogisticsStatus = "SENT"
	LogisticsReceived LogisticsStatus = "RECEIVED"
)

// StatusFor is DEBT when an unpaid remainder is left at the till, PAID otherwise.
func StatusFor(toBePaid decimal.Decimal) OrderStatus {
	if toBePaid.IsPositive() {
		return OrderDebt
	}
	return OrderPaid
}
