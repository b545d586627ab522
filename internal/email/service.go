package email

import (
	"fmt"
	"net/smtp"
)

// Service sends transactional storefront email via SMTP.
type Service struct {
	host string
	port string
	from string
}

func NewService(host, port, from string) *Service {
	return &Service{
		host: host,
		port: port,
		from: from,
	}
}

// SendOrderConfirmation thanks the customer for a freshly placed order.
func (s *Service) SendOrderConfirmation(to, name, orderNumber string, total int, items []LineItem) error {
	subject := fmt.Sprintf("Order confirmed - %s", orderNumber)
	body := BuildOrderConfirmationBody(name, orderNumber, total, items)
	return s.send(to, subject, body)
}

// SendPaymentVerified tells the customer their payment proof was approved.
func (s *Service) SendPaymentVerified(to, name, orderNumber string, total int) error {
	subject := fmt.Sprintf("Payment received - %s", orderNumber)
	body := BuildPaymentVerifiedBody(name, orderNumber, total)
	return s.send(to, subject, body)
}

func (s *Service) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return smtp.SendMail(addr, nil, s.from, []string{to}, []byte(msg))
}
