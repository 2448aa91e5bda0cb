package mailer

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/escrowbid-backend/internal/config"
	"github.com/ignatzorin/escrowbid-backend/internal/models"
)

// sendFunc совпадает с сигнатурой smtp.SendMail.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender отправляет письма через SMTP сервер.
type SMTPSender struct {
	addr string
	host string
	auth smtp.Auth
	from string
	send sendFunc
	now  func() time.Time
}

// NewSMTPSender создаёт отправителя по настройкам почты.
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	var auth smtp.Auth
	if cfg.User != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host)
	}
	return &SMTPSender{
		addr: net.JoinHostPort(cfg.Host, cfg.Port),
		host: cfg.Host,
		auth: auth,
		from: cfg.From,
		send: smtp.SendMail,
		now:  time.Now,
	}
}

// Send отправляет HTML письмо. smtp.SendMail не принимает контекст,
// поэтому отмена учитывается только до начала отправки.
func (s *SMTPSender) Send(ctx context.Context, to string, email models.Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(to, "\r\n") {
		return fmt.Errorf("mailer: некорректный адрес %q", to)
	}

	done := make(chan error, 1)
	msg := s.buildMessage(to, email)
	go func() {
		done <- s.send(s.addr, s.auth, s.from, []string{to}, msg)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("mailer: отправка на %s: %w", to, err)
		}
		return nil
	}
}

func (s *SMTPSender) buildMessage(to string, email models.Email) []byte {
	subject := strings.NewReplacer("\r", " ", "\n", " ").Replace(email.Subject)

	var b strings.Builder
	b.WriteString("From: " + s.from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("Date: " + s.now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(email.HTML)
	return []byte(b.String())
}

// LogSender пишет письма в лог вместо отправки. Используется, когда SMTP не настроен.
type LogSender struct {
	log logrus.FieldLogger
}

// NewLogSender создаёт отправителя-заглушку.
func NewLogSender(log logrus.FieldLogger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, to string, email models.Email) error {
	s.log.WithFields(logrus.Fields{"to": to, "subject": email.Subject}).Info("письмо не отправлено: SMTP не настроен")
	return nil
}

// Sender - общий интерфейс отправителей.
type Sender interface {
	Send(ctx context.Context, to string, email models.Email) error
}

// New выбирает отправителя по конфигурации.
func New(cfg config.MailConfig, log logrus.FieldLogger) Sender {
	if cfg.Host == "" {
		return NewLogSender(log)
	}
	return NewSMTPSender(cfg)
}
