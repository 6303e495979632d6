package intent

import (
	"context"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// MockProcessor — конфигурируемая заглушка PaymentProcessor для тестов.
type MockProcessor struct {
	ClientSecret string
	Err          error

	Calls   int
	LastReq domain.IntentRequest
}

// NewMockProcessor возвращает mock с успешным сценарием по умолчанию.
func NewMockProcessor() *MockProcessor {
	return &MockProcessor{ClientSecret: "pi_test_secret"}
}

// CreateIntent возвращает заранее настроенный результат и считает вызовы.
func (m *MockProcessor) CreateIntent(_ context.Context, req domain.IntentRequest) (string, error) {
	m.Calls++
	m.LastReq = req
	return m.ClientSecret, m.Err
}

var _ domain.PaymentProcessor = (*MockProcessor)(nil)
