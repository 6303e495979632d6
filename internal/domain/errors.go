package domain

import "errors"

var (
	// Ошибка неполного запроса на создание заказа/товара.
	ErrMissingRequiredFields = errors.New("missing required fields")
	// Ошибка неполного запроса на регистрацию платежа.
	ErrMissingPaymentFields = errors.New("missing payment fields")
	// Ошибка неполного запроса на создание payment intent.
	ErrMissingPaymentInfo = errors.New("missing payment info")
	// Ошибка некорректного (непарсящегося) идентификатора.
	ErrInvalidID = errors.New("invalid identifier")
	// Ошибка количества ниже минимального для товара.
	ErrBelowMinOrderQty = errors.New("below minimum order quantity")
	// Ошибка количества сверх доступного остатка.
	ErrExceedsStock = errors.New("exceeds available stock")
	// ErrProductNotFound возвращается, если товар не найден в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrOrderNotFound возвращается, если заказ отсутствует или уже обработан.
	ErrOrderNotFound = errors.New("order not found or already processed")
	// ErrOrderAlreadyApproved — повторное подтверждение уже подтверждённого заказа.
	ErrOrderAlreadyApproved = errors.New("order already approved")
	// ErrOrderRejectFailed — отклонение совпало с заказом, но изменений не произвело.
	ErrOrderRejectFailed = errors.New("order rejection failed")
	// ErrPaymentDuplicate — платёж с таким transaction_id уже зарегистрирован.
	ErrPaymentDuplicate = errors.New("payment already recorded")
	// ErrPaymentNotFound возвращается, если платёжная запись отсутствует.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrUserExists — пользователь с таким email уже зарегистрирован.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrGatewayFailure — ошибка внешнего платёжного процессора.
	ErrGatewayFailure = errors.New("payment gateway failure")
	// ErrStockInconsistent — заказ записан, но списание остатка не прошло.
	// Частичное состояние не компенсируется, только фиксируется для сверки.
	ErrStockInconsistent = errors.New("order persisted but stock decrement failed")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsValidation проверяет, относится ли ошибка к классу некорректного ввода (HTTP 400).
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingRequiredFields) ||
		errors.Is(err, ErrMissingPaymentFields) ||
		errors.Is(err, ErrMissingPaymentInfo) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrBelowMinOrderQty) ||
		errors.Is(err, ErrExceedsStock) ||
		errors.Is(err, ErrOrderRejectFailed)
}

// IsNotFound проверяет, относится ли ошибка к классу отсутствующей сущности (HTTP 404).
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrPaymentNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsConflict проверяет, относится ли ошибка к нарушению идемпотентности или
// ограничений состояния (HTTP 409).
func IsConflict(err error) bool {
	return errors.Is(err, ErrPaymentDuplicate) ||
		errors.Is(err, ErrOrderAlreadyApproved) ||
		errors.Is(err, ErrUserExists)
}

// IsGateway проверяет, является ли ошибка сбоем внешнего процессора.
func IsGateway(err error) bool {
	return errors.Is(err, ErrGatewayFailure)
}

// IsFatalInconsistency проверяет, является ли ошибка частичным сбоем
// многошаговой операции, требующим ручной сверки.
func IsFatalInconsistency(err error) bool {
	return errors.Is(err, ErrStockInconsistent)
}
