// Package email delivers transactional mail over SMTP. The default host is
// Resend's SMTP endpoint but any provider accepting PLAIN auth works.
package email

import (
	"bytes"
	"fmt"
	"net/smtp"
	"text/template"

	"github.com/vuonxanh/plantstore/core/discount"
)

type Email struct {
	address  string
	password string
	host     string
	port     string
}

func New(address string, password string, host string, port string) *Email {
	return &Email{
		address:  address,
		password: password,
		host:     host,
		port:     port,
	}
}

var recoveryTmpl = template.Must(template.New("recovery").Parse(
	"From: {{.From}}\r\n" +
		"To: {{.To}}\r\n" +
		"Subject: Your password reset code\r\n" +
		"\r\n" +
		"Your one-time code is {{.Code}}.\r\n" +
		"It expires shortly. If you did not ask for a reset, ignore this email.\r\n"))

func (e *Email) SendRecoveryCode(to string, code string) error {
	data := struct {
		From string
		To   string
		Code string
	}{From: e.address, To: to, Code: code}

	return e.send(to, recoveryTmpl, data)
}

var confirmationTmpl = template.Must(template.New("confirmation").Parse(
	"From: {{.From}}\r\n" +
		"To: {{.To}}\r\n" +
		"Subject: Order {{.OrderID}} confirmed\r\n" +
		"\r\n" +
		"Thank you for your order!\r\n" +
		"{{if gt .Discount 0}}Discount applied: {{.DiscountVND}}\r\n{{end}}" +
		"Total paid: {{.TotalVND}}\r\n"))

func (e *Email) SendOrderConfirmation(to string, orderID string, total int, discountAmount int) error {
	data := struct {
		From        string
		To          string
		OrderID     string
		Discount    int
		DiscountVND string
		TotalVND    string
	}{
		From:        e.address,
		To:          to,
		OrderID:     orderID,
		Discount:    discountAmount,
		DiscountVND: discount.FormatVND(discountAmount),
		TotalVND:    discount.FormatVND(total),
	}

	return e.send(to, confirmationTmpl, data)
}

func (e *Email) send(to string, tmpl *template.Template, data any) error {
	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("executing email template: %w", err)
	}

	auth := smtp.PlainAuth("", e.address, e.password, e.host)
	addr := e.host + ":" + e.port

	if err := smtp.SendMail(addr, auth, e.address, []string{to}, body.Bytes()); err != nil {
		return fmt.Errorf("sending email to %s: %w", to, err)
	}

	return nil
}
