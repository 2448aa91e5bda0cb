package repository

import "errors"

var (
	ErrQuotationNotFound = errors.New("quotation not found")
	ErrQuotationNotOpen  = errors.New("quotation is not open")
	ErrQuotationAwarded  = errors.New("quotation already awarded")

	ErrBidNotFound      = errors.New("bid not found")
	ErrBidNotPending    = errors.New("bid is not pending")
	ErrBidNotAccepted   = errors.New("bid is not accepted")
	ErrNoPendingBids    = errors.New("quotation has no pending bids")
	ErrCommissionAbsent = errors.New("commission record not found")

	ErrPaymentNotPending   = errors.New("payment is not pending")
	ErrPaymentNotCompleted = errors.New("payment is not completed")
	ErrAlreadyDisbursed    = errors.New("funds already disbursed")
	ErrNotRequester        = errors.New("principal is not the quotation requester")

	ErrDisputeNotFound          = errors.New("dispute not found")
	ErrDisputeExists            = errors.New("dispute already exists for this bid")
	ErrInvalidDisputeTransition = errors.New("invalid dispute status transition")

	ErrSupplierNotFound = errors.New("supplier not found")
)

// Имена ограничений из migrations/0001_init.sql, которые репозитории переводят в доменные ошибки.
const (
	constraintAcceptedBid   = "uniq_bids_accepted_per_quotation"
	constraintCommissionBid = "commission_records_bid_id_key"
	constraintDisputePerBid = "disputes_bid_id_key"
)
