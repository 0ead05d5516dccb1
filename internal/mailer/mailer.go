// Package mailer отправляет выгрузку на почту через Resend
package mailer

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"net/mail"
	"strings"

	"github.com/resend/resend-go/v2"
)

var (
	// ErrNotConfigured не задан API ключ
	ErrNotConfigured = errors.New("отправка почты не настроена")
	// ErrInvalidAddress некорректный адрес получателя
	ErrInvalidAddress = errors.New("некорректный адрес почты")
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Message письмо с выгрузкой
type Message struct {
	To       string
	FileName string
	Content  []byte
	Rows     int
}

// Delivery доставка выгрузки получателю
type Delivery interface {
	Deliver(ctx context.Context, msg Message) error
}

// Mailer доставка через Resend
type Mailer struct {
	client  *resend.Client
	from    string
	subject string
}

// New создает отправителя; без ключа отправка возвращает ErrNotConfigured
func New(apiKey, from, subject string) *Mailer {
	var client *resend.Client
	if strings.TrimSpace(apiKey) != "" {
		client = resend.NewClient(apiKey)
	}
	if subject == "" {
		subject = "Выгрузка точек учета"
	}
	return &Mailer{client: client, from: from, subject: subject}
}

// Configured задан ли ключ API
func (m *Mailer) Configured() bool {
	return m.client != nil
}

// ValidateAddress проверяет адрес получателя
func ValidateAddress(addr string) (string, error) {
	parsed, err := mail.ParseAddress(strings.TrimSpace(addr))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidAddress, addr)
	}
	return parsed.Address, nil
}

// Deliver отправляет письмо с xlsx во вложении
func (m *Mailer) Deliver(ctx context.Context, msg Message) error {
	to, err := ValidateAddress(msg.To)
	if err != nil {
		return err
	}
	if m.client == nil {
		return ErrNotConfigured
	}

	_, err = m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: m.subject,
		Html:    body(msg),
		Attachments: []*resend.Attachment{{
			Filename:    msg.FileName,
			Content:     msg.Content,
			ContentType: xlsxContentType,
		}},
	})
	if err != nil {
		log.Printf("отправка выгрузки на %s: %v", to, err)
		return fmt.Errorf("send email: %w", err)
	}
	log.Printf("выгрузка %s (%d строк) отправлена на %s", msg.FileName, msg.Rows, to)
	return nil
}

func body(msg Message) string {
	return fmt.Sprintf(`<p>Во вложении выгрузка точек учета: <b>%s</b>.</p><p>Строк: %d.</p>`,
		html.EscapeString(msg.FileName), msg.Rows)
}
