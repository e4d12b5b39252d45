package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/travel-storefront/internal/domain"
	"github.com/robertarktes/travel-storefront/internal/observability"
	"github.com/robertarktes/travel-storefront/internal/receipt"
	"gopkg.in/gomail.v2"
)

// ErrMalformed marks a delivery that can never be handled, so it is dropped
// instead of requeued.
var ErrMalformed = errors.New("malformed notification payload")

// Mailer is satisfied by *gomail.Dialer.
type Mailer interface {
	DialAndSend(m ...*gomail.Message) error
}

func NewSMTPMailer(host string, port int, user, password string) *gomail.Dialer {
	return gomail.NewDialer(host, port, user, password)
}

type Notifier struct {
	mailer  Mailer
	from    string
	support string
	logger  observability.Logger
}

func NewNotifier(mailer Mailer, from, support string, logger observability.Logger) *Notifier {
	return &Notifier{mailer: mailer, from: from, support: support, logger: logger}
}

// Handle sends the mail for one event. Routing keys it does not know are ignored.
func (n *Notifier) Handle(routingKey string, body []byte) error {
	switch routingKey {
	case domain.EventBookingConfirmed:
		var b domain.Booking
		if err := json.Unmarshal(body, &b); err != nil {
			return errors.Wrapf(ErrMalformed, "booking event: %v", err)
		}
		if b.ID == "" || b.UserEmail == "" {
			return errors.Wrap(ErrMalformed, "booking event without id or email")
		}
		return n.mailer.DialAndSend(n.bookingMessage(b))
	case domain.EventContactReceived:
		var m domain.ContactMessage
		if err := json.Unmarshal(body, &m); err != nil {
			return errors.Wrapf(ErrMalformed, "contact event: %v", err)
		}
		if n.support == "" {
			n.logger.WithField("contact_id", m.ID).Warn("no support address configured, contact notification skipped")
			return nil
		}
		return n.mailer.DialAndSend(n.contactMessage(m))
	}
	return nil
}

func (n *Notifier) bookingMessage(b domain.Booking) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", b.UserEmail)
	m.SetHeader("Subject", fmt.Sprintf("Booking confirmed: %s", b.DestinationName))
	m.SetBody("text/plain", fmt.Sprintf(
		"Hi %s,\n\nYour booking for %s on %s is confirmed.\nBooking ID: %s\nPayment ID: %s\nTotal paid: %s\n\nYour receipt is attached.\n",
		b.UserName, b.DestinationName, b.Date.Format("02 Jan 2006"), b.ID, b.PaymentID,
		domain.FormatPrice(b.TotalPrice, b.Currency),
	))

	pdf, name, err := receipt.Render(b)
	if err != nil {
		n.logger.WithField("booking_id", b.ID).WithError(err).Warn("receipt render failed, sending without attachment")
		return m
	}
	m.Attach(name, gomail.SetCopyFunc(func(w io.Writer) error {
		_, err := w.Write(pdf)
		return err
	}))
	return m
}

func (n *Notifier) contactMessage(c domain.ContactMessage) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", n.support)
	m.SetHeader("Reply-To", c.Email)
	m.SetHeader("Subject", "New contact message from "+c.FirstName)
	m.SetBody("text/plain", fmt.Sprintf("From: %s <%s>\nReceived: %s\n\n%s\n",
		c.FirstName, c.Email, c.CreatedAt.Format("02 Jan 2006 15:04 MST"), c.Message))
	return m
}

// Run consumes deliveries until ctx is done or the channel closes. Malformed
// payloads are dropped; send failures are requeued.
func (n *Notifier) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			n.process(d)
		}
	}
}

func (n *Notifier) process(d amqp.Delivery) {
	log := n.logger.WithField("routing_key", d.RoutingKey).WithField("message_id", d.MessageId)
	err := n.Handle(d.RoutingKey, d.Body)
	switch {
	case err == nil:
		if aerr := d.Ack(false); aerr != nil {
			log.WithError(aerr).Warn("ack failed")
		}
	case errors.Is(err, ErrMalformed):
		log.WithError(err).Error("dropping malformed notification")
		if nerr := d.Nack(false, false); nerr != nil {
			log.WithError(nerr).Warn("nack failed")
		}
	case d.Redelivered:
		// Second failure in a row: park it on the dead-letter queue instead of
		// spinning while the mail server is down.
		log.WithError(err).Error("notification send failed again, dead-lettering")
		if nerr := d.Nack(false, false); nerr != nil {
			log.WithError(nerr).Warn("nack failed")
		}
	default:
		log.WithError(err).Warn("notification send failed, requeueing")
		if nerr := d.Nack(false, true); nerr != nil {
			log.WithError(nerr).Warn("nack failed")
		}
	}
}
