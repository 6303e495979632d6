package domain

import "time"

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан и ожидает решения менеджера.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusApproved — заказ подтверждён менеджером (терминальный статус).
	OrderStatusApproved OrderStatus = "approved"
	// OrderStatusRejected — заказ отклонён менеджером (терминальный статус).
	OrderStatusRejected OrderStatus = "rejected"
)

// Terminal сообщает, является ли статус конечным: из approved и rejected
// переходов нет.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusApproved || s == OrderStatusRejected
}

// PaymentOption — способ оплаты, выбранный покупателем при оформлении.
type PaymentOption string

const (
	// PaymentOptionCashOnDelivery — оплата при получении.
	PaymentOptionCashOnDelivery PaymentOption = "CashOnDelivery"
	// PaymentOptionPrepaid — предоплата через платёжный процессор.
	PaymentOptionPrepaid PaymentOption = "Prepaid"
)

// PaymentStatus заказа выводится из способа оплаты при создании.
type PaymentStatus string

const (
	// PaymentStatusPending — оплата ожидается при получении.
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusPaid — заказ предоплачен.
	PaymentStatusPaid PaymentStatus = "paid"
)

// Order — заказ покупателя. Создаётся менеджером жизненного цикла после
// валидации против каталога, дальше мутируется только переходами
// approve/reject и никогда не удаляется.
type Order struct {
	ID            string
	ProductID     string
	BuyerEmail    string
	OrderQuantity int32
	TotalPrice    int64
	PaymentOption PaymentOption
	PaymentStatus PaymentStatus
	TransactionID string // слабая ссылка на платёж, пустая для CashOnDelivery
	Status        OrderStatus
	OrderTo       string // email менеджера, подтверждающего заказ
	CreatedAt     time.Time
	ApprovedAt    *time.Time
	RejectedAt    *time.Time
}

// Validate проверяет обязательные поля заявки на заказ.
func (o *Order) Validate() []error {
	var errs []error

	if o.ProductID == "" || o.BuyerEmail == "" || o.OrderQuantity == 0 || o.TotalPrice == 0 {
		errs = append(errs, ErrMissingRequiredFields)
	}
	if o.OrderQuantity < 0 || o.TotalPrice < 0 {
		errs = append(errs, ErrMissingRequiredFields)
	}

	return errs
}

// DerivePaymentStatus выводит статус оплаты из способа оплаты.
func DerivePaymentStatus(option PaymentOption) PaymentStatus {
	if option == PaymentOptionCashOnDelivery {
		return PaymentStatusPending
	}
	return PaymentStatusPaid
}
