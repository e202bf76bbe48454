package validation

import (
	"fmt"
	"regexp"

	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/syncerr"
)

// EntityTypePattern допустимый формат типа сущности: строчные латинские буквы, цифры и "_"
var EntityTypePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{1,63}$`)

// EntityIDPattern допустимый формат идентификатора сущности
var EntityIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.:-]{1,128}$`)

// FieldNamePattern допустимый формат имени поля
var FieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// TenantIDPattern допустимый формат идентификатора тенанта
var TenantIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,64}$`)

const (
	// MaxFields максимальное количество полей в одной мутации
	MaxFields = 256
)

// ValidateTenantID проверяет идентификатор тенанта
func ValidateTenantID(tenantID string) error {
	if tenantID == "" {
		return fmt.Errorf("tenant id cannot be empty")
	}
	if !TenantIDPattern.MatchString(tenantID) {
		return fmt.Errorf("tenant id can only contain letters, numbers, '-' and '_' (3-64 characters)")
	}
	return nil
}

// ValidateEntityRef проверяет тип и идентификатор сущности
func ValidateEntityRef(entityType, entityID string) error {
	if !EntityTypePattern.MatchString(entityType) {
		return syncerr.Reject("invalid entity type %q", entityType)
	}
	if !EntityIDPattern.MatchString(entityID) {
		return syncerr.Reject("invalid entity id %q", entityID)
	}
	return nil
}

// ValidateMutation проверяет мутацию до ее применения.
// Все ошибки оборачивают syncerr.ErrPermanentReject: такие мутации не повторяются.
func ValidateMutation(entityType, entityID string, op models.Operation, baseVersion int64, payload map[string]any) error {
	if err := ValidateEntityRef(entityType, entityID); err != nil {
		return err
	}

	if !op.Valid() {
		return syncerr.Reject("unknown operation %q", op)
	}

	if baseVersion < 0 {
		return syncerr.Reject("base version cannot be negative")
	}

	if len(payload) > MaxFields {
		return syncerr.Reject("payload must not exceed %d fields", MaxFields)
	}

	// delete не требует полей, остальные операции без полей бессмысленны
	if op != models.OpDelete && len(payload) == 0 {
		return syncerr.Reject("payload cannot be empty for %q", op)
	}

	for field, value := range payload {
		if !FieldNamePattern.MatchString(field) {
			return syncerr.Reject("invalid field name %q", field)
		}
		if op == models.OpIncrement {
			if _, ok := ToFloat(value); !ok {
				return syncerr.Reject("field %q is not numeric", field)
			}
		}
	}

	return nil
}

// ToFloat приводит числовое значение из JSON/msgpack к float64
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
