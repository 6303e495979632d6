package domain

import "time"

// Значения по умолчанию для регистрируемых платежей.
const (
	DefaultPaymentCurrency = "BDT"
	DefaultPaymentMethod   = "card"
	// PaymentRecordSucceeded — единственный статус, с которым платёж
	// попадает в хранилище: записываются только подтверждённые оплаты.
	PaymentRecordSucceeded = "succeeded"
)

// PaymentRecord — подтверждение оплаты от внешнего процессора. Создаётся
// один раз на transaction_id и дальше неизменяем.
type PaymentRecord struct {
	ID            string
	ProductID     string
	BuyerEmail    string
	Amount        int64
	Currency      string
	TransactionID string // уникальный ключ идемпотентности
	PaymentMethod string
	PaymentStatus string
	CreatedAt     time.Time
}

// Validate проверяет обязательные поля платёжной записи.
func (p *PaymentRecord) Validate() []error {
	var errs []error

	if p.ProductID == "" || p.BuyerEmail == "" || p.Amount == 0 || p.TransactionID == "" {
		errs = append(errs, ErrMissingPaymentFields)
	}
	if p.Amount < 0 {
		errs = append(errs, ErrMissingPaymentFields)
	}

	return errs
}
