package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/splitshare/splitshare-system/internal/model"
	"github.com/splitshare/splitshare-system/internal/repository"
)

// Минимальная сумма пополнения в сотых долях кредита.
const minTopUpCents = 100 * 100

// CreateOrder создаёт платёжное поручение на пополнение баланса.
// Кредиты зачисляются только после подтверждения оплаты.
func (s *Service) CreateOrder(ctx context.Context, userID int64, amount float64) (*model.Payment, error) {
	amountCents := int64(amount * 100)
	if amountCents < minTopUpCents {
		return nil, ErrInvalidAmount
	}

	order, err := s.gateway.CreateOrder(ctx, amountCents)
	if err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}

	return s.repo.CreatePayment(ctx, userID, order.ID, order.Receipt, amountCents)
}

// ConfirmPayment проверяет подпись результата оплаты и зачисляет кредиты.
// Повторное подтверждение того же поручения возвращает ошибку, баланс не меняется.
func (s *Service) ConfirmPayment(ctx context.Context, orderID, paymentID, signature string) (*model.Payment, error) {
	if !s.gateway.VerifySignature(orderID, paymentID, signature) {
		return nil, ErrSignatureMismatch
	}

	return s.repo.ConfirmPayment(ctx, orderID)
}

// webhookEvent описывает тело вебхука платёжного шлюза.
type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		OrderID string `json:"order_id"`
	} `json:"payload"`
}

// HandleWebhook обрабатывает уведомление шлюза о смене статуса оплаты.
// Подпись проверяется по телу запроса; уже зачисленные платежи пропускаются.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !s.gateway.VerifyWebhookSignature(body, signature) {
		return ErrSignatureMismatch
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode webhook: %w", err)
	}
	if event.Payload.OrderID == "" {
		return fmt.Errorf("webhook without order id")
	}

	switch event.Event {
	case "payment.captured":
		_, err := s.repo.ConfirmPayment(ctx, event.Payload.OrderID)
		if errors.Is(err, repository.ErrPaymentVerified) {
			return nil
		}
		return err
	case "payment.failed":
		return s.repo.MarkPaymentFailed(ctx, event.Payload.OrderID)
	default:
		// Неизвестные события подтверждаем без обработки.
		return nil
	}
}
