package payment

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
)

type OrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

type Order struct {
	ID       string
	Amount   int64
	Currency string
	Status   string
}

// orderAPI is the slice of the SDK order resource we use; tests swap it out.
type orderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type RazorpayGateway struct {
	orders        orderAPI
	keyID         string
	keySecret     string
	webhookSecret string
}

func NewRazorpayGateway(keyID, keySecret, webhookSecret string) *RazorpayGateway {
	client := razorpay.NewClient(keyID, keySecret)
	return &RazorpayGateway{
		orders:        client.Order,
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
	}
}

// KeyID is the public key handed to the hosted checkout widget.
func (g *RazorpayGateway) KeyID() string {
	return g.keyID
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}
	if req.Amount <= 0 {
		return Order{}, errors.Newf("order amount must be positive, got %d", req.Amount)
	}

	data := map[string]interface{}{
		"amount":          req.Amount,
		"currency":        req.Currency,
		"receipt":         req.Receipt,
		"payment_capture": 1,
	}
	if len(req.Notes) > 0 {
		notes := make(map[string]interface{}, len(req.Notes))
		for k, v := range req.Notes {
			notes[k] = v
		}
		data["notes"] = notes
	}

	resp, err := g.orders.Create(data, nil)
	if err != nil {
		return Order{}, errors.Wrap(err, "razorpay create order")
	}

	id, _ := resp["id"].(string)
	if id == "" {
		return Order{}, errors.New("razorpay create order: response without id")
	}
	order := Order{ID: id, Amount: req.Amount, Currency: req.Currency}
	if v, ok := resp["amount"].(float64); ok {
		order.Amount = int64(v)
	}
	if v, ok := resp["currency"].(string); ok && v != "" {
		order.Currency = v
	}
	order.Status, _ = resp["status"].(string)
	return order, nil
}

// VerifyCheckout checks the signature the widget returns on success: an
// HMAC-SHA256 of "order_id|payment_id" keyed with the API secret.
func (g *RazorpayGateway) VerifyCheckout(orderID, paymentID, signature string) bool {
	if orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	return utils.VerifyWebhookSignature(orderID+"|"+paymentID, signature, g.keySecret)
}

func (g *RazorpayGateway) VerifyWebhook(body []byte, signature string) bool {
	if g.webhookSecret == "" || signature == "" {
		return false
	}
	return utils.VerifyWebhookSignature(string(body), signature, g.webhookSecret)
}

const (
	EventPaymentCaptured = "payment.captured"
	EventOrderPaid       = "order.paid"
)

type WebhookEvent struct {
	Event     string
	OrderID   string
	PaymentID string
	Method    string
}

// Captures reports whether the event means money was taken for the order.
func (e WebhookEvent) Captures() bool {
	return e.Event == EventPaymentCaptured || e.Event == EventOrderPaid
}

func ParseWebhook(body []byte) (WebhookEvent, error) {
	var raw struct {
		Event   string `json:"event"`
		Payload struct {
			Payment struct {
				Entity struct {
					ID      string `json:"id"`
					OrderID string `json:"order_id"`
					Method  string `json:"method"`
				} `json:"entity"`
			} `json:"payment"`
			Order struct {
				Entity struct {
					ID string `json:"id"`
				} `json:"entity"`
			} `json:"order"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return WebhookEvent{}, errors.Wrap(err, "decode webhook")
	}

	ev := WebhookEvent{
		Event:     strings.TrimSpace(raw.Event),
		OrderID:   raw.Payload.Payment.Entity.OrderID,
		PaymentID: raw.Payload.Payment.Entity.ID,
		Method:    raw.Payload.Payment.Entity.Method,
	}
	if ev.OrderID == "" {
		ev.OrderID = raw.Payload.Order.Entity.ID
	}
	if ev.Event == "" {
		return WebhookEvent{}, errors.New("webhook without event name")
	}
	return ev, nil
}
