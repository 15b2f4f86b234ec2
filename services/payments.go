package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentOrder is the narrow slice of a gateway response the core consumes:
// an external reference and a status.
type PaymentOrder struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// PaymentGateway is the payment collaborator contract. Both calls happen
// outside any room lock: charges are captured before a sale is recorded, and
// transfers move settled amounts to a recipient.
type PaymentGateway interface {
	CaptureCharge(ctx context.Context, playerID, roomCode string, amount decimal.Decimal) (PaymentOrder, error)
	Transfer(ctx context.Context, recipientID string, amount decimal.Decimal, reference string) (string, error)
}

// HTTPPaymentGateway talks to an external payment service.
type HTTPPaymentGateway struct {
	url    string
	client *http.Client
	log    *zap.SugaredLogger
}

func NewHTTPPaymentGateway(url string, log *zap.SugaredLogger) *HTTPPaymentGateway {
	return &HTTPPaymentGateway{url: url, client: &http.Client{}, log: log}
}

func (g *HTTPPaymentGateway) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, respBody)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response JSON: %v", err)
	}
	return nil
}

func (g *HTTPPaymentGateway) CaptureCharge(ctx context.Context, playerID, roomCode string, amount decimal.Decimal) (PaymentOrder, error) {
	var order PaymentOrder
	err := g.post(ctx, "/orders", map[string]any{
		"playerId": playerID,
		"roomCode": roomCode,
		"amount":   amount,
	}, &order)
	if err != nil {
		return PaymentOrder{}, err
	}
	if order.Status != "captured" {
		return PaymentOrder{}, fmt.Errorf("charge not captured: %s", order.Status)
	}
	return order, nil
}

func (g *HTTPPaymentGateway) Transfer(ctx context.Context, recipientID string, amount decimal.Decimal, reference string) (string, error) {
	var out struct {
		TransferID string `json:"transferId"`
		Status     string `json:"status"`
	}
	err := g.post(ctx, "/transfers", map[string]any{
		"recipientId": recipientID,
		"amount":      amount,
		"reference":   reference,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.Status != "completed" && out.Status != "pending" {
		return "", fmt.Errorf("transfer failed: %s", out.Status)
	}
	return out.TransferID, nil
}

// NoopGateway captures and transfers nothing. Development fallback when
// PAYMENT_URL is unset.
type NoopGateway struct {
	log *zap.SugaredLogger
}

func (g NoopGateway) CaptureCharge(_ context.Context, playerID, roomCode string, amount decimal.Decimal) (PaymentOrder, error) {
	g.log.Infof("[Payments] no-op capture %s for %s in room %s", amount, playerID, roomCode)
	return PaymentOrder{OrderID: "dev_" + uuid.NewString(), Status: "captured"}, nil
}

func (g NoopGateway) Transfer(_ context.Context, recipientID string, amount decimal.Decimal, reference string) (string, error) {
	g.log.Infof("[Payments] no-op transfer %s to %s (%s)", amount, recipientID, reference)
	return "dev_" + uuid.NewString(), nil
}

// NewPaymentGateway picks the HTTP gateway when a URL is configured.
func NewPaymentGateway(paymentURL string, log *zap.SugaredLogger) PaymentGateway {
	if paymentURL != "" {
		return NewHTTPPaymentGateway(paymentURL, log)
	}
	return NoopGateway{log: log}
}

// CommissionSettler pays the owner commission through the gateway. It
// implements game.Settler and is invoked outside the room lock; a failed
// transfer is logged with its reference so operations can retry it by hand.
type CommissionSettler struct {
	gateway PaymentGateway
	log     *zap.SugaredLogger
}

func NewCommissionSettler(gateway PaymentGateway, log *zap.SugaredLogger) *CommissionSettler {
	return &CommissionSettler{gateway: gateway, log: log}
}

func (s *CommissionSettler) PayCommission(roomCode, ownerID string, amount decimal.Decimal) {
	ref := "settle_" + roomCode
	transferID, err := s.gateway.Transfer(context.Background(), ownerID, amount, ref)
	if err != nil {
		s.log.Errorf("[Payments] commission transfer %s failed for room %s: %v", ref, roomCode, err)
		return
	}
	s.log.Infof("[Payments] commission %s paid to %s for room %s (transfer=%s)", amount, ownerID, roomCode, transferID)
}
