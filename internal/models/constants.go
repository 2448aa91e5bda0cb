package models

// QuotationStatus константы статусов заявок
const (
	QuotationStatusOpen    = "open"
	QuotationStatusAwarded = "awarded"
	QuotationStatusClosed  = "closed"
)

// BidStatus константы статусов ставок
const (
	BidStatusPending  = "pending"
	BidStatusAccepted = "accepted"
	BidStatusRejected = "rejected"
)

// PaymentStatus константы статусов оплаты ставки
const (
	PaymentStatusPending   = "pending"
	PaymentStatusInEscrow  = "in_escrow"
	PaymentStatusCompleted = "completed"
)

// DisbursementStatus константы статусов выплаты поставщику
const (
	DisbursementStatusPending   = "pending"
	DisbursementStatusDisbursed = "disbursed"
)

// Роли аутентифицированного участника.
const (
	RoleSupplier  = "supplier"
	RoleRequester = "requester"
	RoleOperator  = "operator"
)

// Типы событий в журнале ставки.
const (
	BidEventSubmitted            = "submitted"
	BidEventAccepted             = "accepted"
	BidEventRejected             = "rejected"
	BidEventPaymentCaptured      = "payment_captured"
	BidEventPaymentCompleted     = "payment_completed"
	BidEventDisbursed            = "disbursed"
	BidEventDisputeFiled         = "dispute_filed"
	BidEventDisputeStatusChanged = "dispute_status_changed"
)

// ValidQuotationStatuses список валидных статусов заявок
var ValidQuotationStatuses = map[string]struct{}{
	QuotationStatusOpen:    {},
	QuotationStatusAwarded: {},
	QuotationStatusClosed:  {},
}

// ValidRoles список ролей, которые принимает API.
var ValidRoles = map[string]struct{}{
	RoleSupplier:  {},
	RoleRequester: {},
	RoleOperator:  {},
}
