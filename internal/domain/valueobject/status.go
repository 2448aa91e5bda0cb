package valueobject

import "github.com/ignatzorin/escrowbid-backend/internal/pkg/apperror"

// QuotationCategory - категория услуги, к которой относится заявка.
type QuotationCategory string

const (
	CategoryCompanyRelocation  QuotationCategory = "company_relocation"
	CategoryMoveOutCleaning    QuotationCategory = "move_out_cleaning"
	CategoryStorage            QuotationCategory = "storage"
	CategoryHeavyLifting       QuotationCategory = "heavy_lifting"
	CategoryCarryingAssistance QuotationCategory = "carrying_assistance"
	CategoryJunkRemoval        QuotationCategory = "junk_removal"
	CategoryEstateClearance    QuotationCategory = "estate_clearance"
	CategoryEvacuationMove     QuotationCategory = "evacuation_move"
	CategoryPrivacyMove        QuotationCategory = "privacy_move"
	CategoryMovingService      QuotationCategory = "moving_service"
)

func (c QuotationCategory) IsValid() bool {
	switch c {
	case CategoryCompanyRelocation, CategoryMoveOutCleaning, CategoryStorage, CategoryHeavyLifting,
		CategoryCarryingAssistance, CategoryJunkRemoval, CategoryEstateClearance, CategoryEvacuationMove,
		CategoryPrivacyMove, CategoryMovingService:
		return true
	}
	return false
}

func NewQuotationCategory(category string) (QuotationCategory, error) {
	c := QuotationCategory(category)
	if !c.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректная категория заявки")
	}
	return c, nil
}

type DisputeStatus string

const (
	DisputeStatusPending     DisputeStatus = "pending"
	DisputeStatusUnderReview DisputeStatus = "under_review"
	DisputeStatusResolved    DisputeStatus = "resolved"
)

var disputeStatusRank = map[DisputeStatus]int{
	DisputeStatusPending:     0,
	DisputeStatusUnderReview: 1,
	DisputeStatusResolved:    2,
}

func (s DisputeStatus) IsValid() bool {
	_, ok := disputeStatusRank[s]
	return ok
}

// CanTransitionTo разрешает только движение вперёд: pending -> under_review -> resolved.
// Пропуск under_review допустим, повтор и откат нет.
func (s DisputeStatus) CanTransitionTo(newStatus DisputeStatus) bool {
	from, ok := disputeStatusRank[s]
	if !ok {
		return false
	}
	to, ok := disputeStatusRank[newStatus]
	if !ok {
		return false
	}
	return to > from
}

func NewDisputeStatus(status string) (DisputeStatus, error) {
	s := DisputeStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус спора")
	}
	return s, nil
}
