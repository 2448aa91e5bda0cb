package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/escrowbid-backend/internal/goroutine"
	"github.com/ignatzorin/escrowbid-backend/internal/logger"
	"github.com/ignatzorin/escrowbid-backend/internal/models"
)

const defaultDeliveryTimeout = 15 * time.Second

// Notifier доставляет in-app уведомления.
type Notifier interface {
	Notify(ctx context.Context, req models.NotificationRequest) error
}

// Mailer отправляет письма.
type Mailer interface {
	Send(ctx context.Context, to string, email models.Email) error
}

// Dispatcher доставляет уведомления и письма после фиксации изменений.
// Ошибки доставки только логируются и не влияют на результат операции.
type Dispatcher struct {
	notifier      Notifier
	mailer        Mailer
	suppliers     SupplierDirectory
	operatorEmail string
	timeout       time.Duration
	log           logrus.FieldLogger
	run           func(fn func())
}

// NewDispatcher создаёт диспетчер, выполняющий доставку в фоновых горутинах.
func NewDispatcher(notifier Notifier, mailer Mailer, suppliers SupplierDirectory, operatorEmail string) *Dispatcher {
	return &Dispatcher{
		notifier:      notifier,
		mailer:        mailer,
		suppliers:     suppliers,
		operatorEmail: operatorEmail,
		timeout:       defaultDeliveryTimeout,
		log:           logger.Component("dispatcher"),
		run:           goroutine.SafeGo,
	}
}

// WithRunner подменяет способ запуска доставки.
func (d *Dispatcher) WithRunner(run func(fn func())) *Dispatcher {
	d.run = run
	return d
}

// WithLogger подменяет логгер.
func (d *Dispatcher) WithLogger(log logrus.FieldLogger) *Dispatcher {
	d.log = log
	return d
}

// Go выполняет доставку вне запроса: контекст отвязан от отмены вызывающего и ограничен таймаутом.
func (d *Dispatcher) Go(ctx context.Context, kind string, fields logrus.Fields, fn func(ctx context.Context) error) {
	if d == nil {
		return
	}
	base := context.WithoutCancel(ctx)
	d.run(func() {
		ctx, cancel := context.WithTimeout(base, d.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			d.log.WithFields(fields).WithError(err).Warnf("не удалось доставить %s", kind)
		}
	})
}

// Notify сохраняет и рассылает in-app уведомление.
func (d *Dispatcher) Notify(ctx context.Context, req models.NotificationRequest) {
	if d == nil || d.notifier == nil {
		return
	}
	d.Go(ctx, "уведомление", logrus.Fields{
		"event_type":     req.EventType,
		"recipient_type": req.RecipientType,
		"reference_id":   req.ReferenceID,
	}, func(ctx context.Context) error {
		return d.notifier.Notify(ctx, req)
	})
}

// NotifyUser отправляет уведомление конкретному получателю.
func (d *Dispatcher) NotifyUser(ctx context.Context, recipientType string, recipientID uuid.UUID, event, title, message string, refID uuid.UUID, refType string) {
	id := recipientID
	d.Notify(ctx, models.NotificationRequest{
		RecipientID:   &id,
		RecipientType: recipientType,
		Title:         title,
		Message:       message,
		EventType:     event,
		ReferenceID:   refID,
		ReferenceType: refType,
	})
}

// NotifyOperators публикует уведомление в общий канал операторов.
func (d *Dispatcher) NotifyOperators(ctx context.Context, event, title, message string, refID uuid.UUID, refType string) {
	d.Notify(ctx, models.NotificationRequest{
		RecipientType: models.RecipientOperator,
		Title:         title,
		Message:       message,
		EventType:     event,
		ReferenceID:   refID,
		ReferenceType: refType,
	})
}

// Email отправляет письмо на известный адрес. Пустой адрес пропускается.
func (d *Dispatcher) Email(ctx context.Context, to string, email models.Email) {
	if d == nil || d.mailer == nil || to == "" {
		return
	}
	d.Go(ctx, "письмо", logrus.Fields{"subject": email.Subject}, func(ctx context.Context) error {
		return d.mailer.Send(ctx, to, email)
	})
}

// EmailSupplier находит адрес поставщика и отправляет ему письмо.
func (d *Dispatcher) EmailSupplier(ctx context.Context, supplierID uuid.UUID, email models.Email) {
	if d == nil || d.mailer == nil || d.suppliers == nil {
		return
	}
	d.Go(ctx, "письмо поставщику", logrus.Fields{"supplier_id": supplierID, "subject": email.Subject}, func(ctx context.Context) error {
		supplier, err := d.suppliers.GetByID(ctx, supplierID)
		if err != nil {
			return err
		}
		if supplier.Email == "" {
			return nil
		}
		if err := d.mailer.Send(ctx, supplier.Email, email); err != nil {
			// адрес мог смениться в справочнике, следующее письмо перечитает его
			if inv, ok := d.suppliers.(supplierInvalidator); ok {
				inv.Invalidate(supplierID)
			}
			return err
		}
		return nil
	})
}

// EmailOperators отправляет письмо на адрес операторов, если он задан.
func (d *Dispatcher) EmailOperators(ctx context.Context, email models.Email) {
	if d == nil {
		return
	}
	d.Email(ctx, d.operatorEmail, email)
}
