// Package intent обслуживает создание платёжного намерения у внешнего
// процессора. Сервис конвертирует цену в минимальные денежные единицы и
// делает ровно одну попытку обращения к шлюзу.
package intent

import (
	"context"
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/metrics"
)

// Расчётная валюта процессора фиксирована независимо от валюты витрины.
const settlementCurrency = "usd"

// Service описывает создание платёжного намерения.
type Service interface {
	CreateIntent(ctx context.Context, price float64, productID string) (clientSecret string, err error)
}

type service struct {
	processor domain.PaymentProcessor
	logger    *log.Entry
	metrics   *metrics.OrderMetrics
}

// NewService создаёт сервис платёжных намерений.
func NewService(processor domain.PaymentProcessor, logger *log.Entry) Service {
	if logger == nil {
		logger = log.New().WithField("component", "payment-intent")
	}
	return &service{
		processor: processor,
		logger:    logger,
		metrics:   metrics.NewOrderMetrics(),
	}
}

// NewServiceWithoutMetrics создаёт сервис без метрик (для тестов).
func NewServiceWithoutMetrics(processor domain.PaymentProcessor, logger *log.Entry) Service {
	if logger == nil {
		logger = log.New().WithField("component", "payment-intent")
	}
	return &service{
		processor: processor,
		logger:    logger,
	}
}

// CreateIntent конвертирует цену в минимальные единицы (×100 с округлением)
// и запрашивает client secret у процессора. Пустой товар или
// неположительная цена — ErrMissingPaymentInfo, сбой шлюза —
// ErrGatewayFailure без retry.
func (s *service) CreateIntent(ctx context.Context, price float64, productID string) (string, error) {
	if productID == "" {
		return "", domain.ErrMissingPaymentInfo
	}
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return "", domain.ErrMissingPaymentInfo
	}

	req := domain.IntentRequest{
		AmountMinor: int64(math.Round(price * 100)),
		Currency:    settlementCurrency,
		ProductID:   productID,
	}

	clientSecret, err := s.processor.CreateIntent(ctx, req)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordIntentFailure()
		}
		s.logger.WithError(err).WithFields(log.Fields{
			"amount_minor": req.AmountMinor,
			"product_id":   productID,
		}).Error("payment intent creation failed")
		return "", fmt.Errorf("%w: %v", domain.ErrGatewayFailure, err)
	}

	s.logger.WithFields(log.Fields{
		"amount_minor": req.AmountMinor,
		"currency":     req.Currency,
	}).Debug("payment intent created")

	return clientSecret, nil
}

var _ Service = (*service)(nil)
