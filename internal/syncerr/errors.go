// Package syncerr описывает таксономию ошибок синхронизации.
// Ошибки оборачиваются через fmt.Errorf("...: %w") и классифицируются через errors.Is.
package syncerr

import (
	"errors"
	"fmt"
)

// Kind категория ошибки
type Kind int

const (
	KindUnknown Kind = iota
	// KindTransient недоступность лога, шины или сети: повторять с backoff
	KindTransient
	// KindConflict несовпадение версий: показать ConflictRecord
	KindConflict
	// KindResyncRequired разрыв больше окна хранения лога: пересеять клиента из data pack
	KindResyncRequired
	// KindPermanentReject некорректная мутация или отказ в доступе: не повторять
	KindPermanentReject
	// KindReconciliationGap коммит прошел, а запись в лог нет: лечится сверкой
	KindReconciliationGap
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindConflict:
		return "conflict"
	case KindResyncRequired:
		return "resync_required"
	case KindPermanentReject:
		return "permanent_reject"
	case KindReconciliationGap:
		return "reconciliation_gap"
	default:
		return "unknown"
	}
}

// Sentinel ошибки для каждой категории
var (
	ErrTransient         = errors.New("transient infrastructure error")
	ErrConflict          = errors.New("version conflict")
	ErrResyncRequired    = errors.New("resync required")
	ErrPermanentReject   = errors.New("mutation rejected")
	ErrReconciliationGap = errors.New("reconciliation gap")
)

// Transient оборачивает err как временную ошибку
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// Reject создает ошибку окончательного отказа с описанием причины
func Reject(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPermanentReject, fmt.Sprintf(format, args...))
}

// Classify возвращает категорию ошибки
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrPermanentReject):
		return KindPermanentReject
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrResyncRequired):
		return KindResyncRequired
	case errors.Is(err, ErrReconciliationGap):
		return KindReconciliationGap
	case errors.Is(err, ErrTransient):
		return KindTransient
	default:
		return KindUnknown
	}
}

// IsRetryable сообщает, имеет ли смысл повторять операцию.
// Неизвестные ошибки считаются временными: потеря данных хуже лишней попытки.
func IsRetryable(err error) bool {
	k := Classify(err)
	return k == KindTransient || k == KindUnknown
}
