package conflict

import (
	"time"

	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/syncerr"
	"github.com/iudanet/fieldsync/internal/validation"
)

// Apply применяет мутацию к текущему состоянию и возвращает новую версию сущности.
// current может быть nil для создания. Версия увеличивается на 1, FieldVersions
// затронутых полей выставляются в новую версию. Возвращает также итоговые значения
// затронутых полей для тела конверта.
func Apply(current *models.Entity, tenantID string, m Mutation, now time.Time) (*models.Entity, map[string]any, error) {
	var next *models.Entity
	if current == nil {
		next = &models.Entity{
			TenantID:      tenantID,
			EntityType:    m.EntityType,
			EntityID:      m.EntityID,
			Fields:        make(map[string]any),
			FieldVersions: make(map[string]int64),
		}
	} else {
		next = current.Clone()
	}

	next.Version++
	next.UpdatedAt = now
	touched := make(map[string]any, len(m.Payload))

	switch m.Operation {
	case models.OpSet:
		if next.Deleted {
			return nil, nil, syncerr.Reject("entity %s is deleted", next.Key())
		}
		for field, value := range m.Payload {
			next.Fields[field] = value
		}

	case models.OpIncrement:
		if next.Deleted {
			return nil, nil, syncerr.Reject("entity %s is deleted", next.Key())
		}
		for field, delta := range m.Payload {
			d, ok := validation.ToFloat(delta)
			if !ok {
				return nil, nil, syncerr.Reject("field %q delta is not numeric", field)
			}
			var base float64
			if cur, exists := next.Fields[field]; exists && cur != nil {
				base, ok = validation.ToFloat(cur)
				if !ok {
					return nil, nil, syncerr.Reject("field %q is not numeric", field)
				}
			}
			next.Fields[field] = base + d
		}

	case models.OpAppend:
		if next.Deleted {
			return nil, nil, syncerr.Reject("entity %s is deleted", next.Key())
		}
		for field, value := range m.Payload {
			var list []any
			if cur, exists := next.Fields[field]; exists && cur != nil {
				existing, ok := cur.([]any)
				if !ok {
					return nil, nil, syncerr.Reject("field %q is not a list", field)
				}
				list = append(list, existing...)
			}
			if items, ok := value.([]any); ok {
				list = append(list, items...)
			} else {
				list = append(list, value)
			}
			next.Fields[field] = list
		}

	case models.OpDelete:
		next.Deleted = true

	default:
		return nil, nil, syncerr.Reject("unknown operation %q", m.Operation)
	}

	if m.Operation != models.OpDelete {
		for field := range m.Payload {
			next.FieldVersions[field] = next.Version
			touched[field] = next.Fields[field]
		}
	}

	return next, touched, nil
}
