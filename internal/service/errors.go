package service

import (
	"errors"
	"time"

	"github.com/ignatzorin/escrowbid-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrowbid-backend/internal/repository"
)

var (
	ErrInvalidPrice      = apperror.New(apperror.ErrCodeValidation, "цена должна быть положительной")
	ErrInvalidCommission = apperror.New(apperror.ErrCodeValidation, "процент комиссии должен быть положительным")
	ErrInvalidInput      = apperror.New(apperror.ErrCodeValidation, "некорректные входные данные")

	ErrQuotationNotFound = apperror.New(apperror.ErrCodeNotFound, "заявка не найдена")
	ErrQuotationNotOpen  = apperror.New(apperror.ErrCodePrecondition, "заявка не принимает ставки")
	ErrAlreadyAwarded    = apperror.New(apperror.ErrCodeConflict, "заявка уже присуждена")
	ErrAwardFailed       = apperror.New(apperror.ErrCodeDatabaseError, "не удалось присудить ставку")

	ErrBidNotFound    = apperror.New(apperror.ErrCodeNotFound, "ставка не найдена")
	ErrBidNotPending  = apperror.New(apperror.ErrCodePrecondition, "ставка уже рассмотрена")
	ErrBidNotAccepted = apperror.New(apperror.ErrCodePrecondition, "ставка не принята")
	ErrNoPendingBids  = apperror.New(apperror.ErrCodePrecondition, "по заявке нет ставок в ожидании")

	ErrPaymentAlreadyCaptured = apperror.New(apperror.ErrCodeConflict, "оплата по ставке уже получена")
	ErrPaymentNotCompleted    = apperror.New(apperror.ErrCodePrecondition, "срок удержания средств ещё не завершён")
	ErrAlreadyDisbursed       = apperror.New(apperror.ErrCodeConflict, "средства уже выплачены")
	ErrNotQuotationOwner      = apperror.New(apperror.ErrCodeForbidden, "заявка принадлежит другому заказчику")

	ErrDisputeNotFound          = apperror.New(apperror.ErrCodeNotFound, "спор не найден")
	ErrDuplicateDispute         = apperror.New(apperror.ErrCodePrecondition, "спор по этой ставке уже открыт")
	ErrInvalidDisputeTransition = apperror.New(apperror.ErrCodeValidation, "недопустимый переход статуса спора")

	ErrNotificationNotFound = apperror.New(apperror.ErrCodeNotFound, "уведомление не найдено")

	ErrPersistence = apperror.New(apperror.ErrCodeDatabaseError, "ошибка хранилища")
)

// repositoryErrors сопоставляет ошибки хранилища с ошибками API.
var repositoryErrors = []struct {
	from error
	to   *apperror.AppError
}{
	{repository.ErrQuotationNotFound, ErrQuotationNotFound},
	{repository.ErrQuotationNotOpen, ErrQuotationNotOpen},
	{repository.ErrQuotationAwarded, ErrAlreadyAwarded},
	{repository.ErrBidNotFound, ErrBidNotFound},
	{repository.ErrBidNotPending, ErrBidNotPending},
	{repository.ErrBidNotAccepted, ErrBidNotAccepted},
	{repository.ErrNoPendingBids, ErrNoPendingBids},
	{repository.ErrPaymentNotPending, ErrPaymentAlreadyCaptured},
	{repository.ErrPaymentNotCompleted, ErrPaymentNotCompleted},
	{repository.ErrAlreadyDisbursed, ErrAlreadyDisbursed},
	{repository.ErrNotRequester, ErrNotQuotationOwner},
	{repository.ErrDisputeNotFound, ErrDisputeNotFound},
	{repository.ErrDisputeExists, ErrDuplicateDispute},
	{repository.ErrInvalidDisputeTransition, ErrInvalidDisputeTransition},
	{repository.ErrNotificationNotFound, ErrNotificationNotFound},
}

// translate превращает ошибку репозитория в AppError. Неизвестные ошибки считаются
// сбоем хранилища и оборачиваются в fallback.
func translate(err error, fallback *apperror.AppError) error {
	if err == nil {
		return nil
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}

	for _, m := range repositoryErrors {
		if errors.Is(err, m.from) {
			return m.to.WithCause(err)
		}
	}
	return fallback.WithCause(err)
}

// Clock возвращает текущее время; подменяется в тестах.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}
