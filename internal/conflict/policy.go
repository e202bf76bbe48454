// Package conflict решает, можно ли применить мутацию со старой базовой версией
// к текущему состоянию сущности.
//
// Порядок правил:
//  1. коммутативные операции сливаются автоматически;
//  2. непересекающиеся наборы полей сливаются автоматически;
//  3. все остальное требует ручного разрешения.
//
// delete никогда не сливается автоматически с параллельными изменениями.
package conflict

import (
	"sync"

	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/syncerr"
)

// Mutation входные данные мутации для проверки конфликта
type Mutation struct {
	Payload     map[string]any
	EntityType  string
	EntityID    string
	Operation   models.Operation
	BaseVersion int64
}

// Outcome итог проверки
type Outcome int

const (
	// OutcomeApply базовая версия совпадает с текущей, конфликта нет
	OutcomeApply Outcome = iota
	// OutcomeAutoMerge версии разошлись, но политика допускает применение к текущей версии
	OutcomeAutoMerge
	// OutcomeConflict требуется ручное разрешение
	OutcomeConflict
)

// Decision результат Resolve
type Decision struct {
	Diff     map[string]models.FieldDiff
	Outcome  Outcome
	Strategy models.ResolutionStrategy
}

// Policy реестр коммутативных операций по типам сущностей
type Policy struct {
	byType   map[string]map[models.Operation]bool
	defaults map[models.Operation]bool
	mu       sync.RWMutex
}

// DefaultPolicy increment и append коммутативны для всех типов
func DefaultPolicy() *Policy {
	return NewPolicy(models.OpIncrement, models.OpAppend)
}

// NewPolicy создает политику с коммутативными по умолчанию операциями defaults
func NewPolicy(defaults ...models.Operation) *Policy {
	p := &Policy{
		byType:   make(map[string]map[models.Operation]bool),
		defaults: make(map[models.Operation]bool),
	}
	for _, op := range defaults {
		p.defaults[op] = op != models.OpDelete
	}
	return p
}

// SetCommutative переопределяет набор коммутативных операций для типа сущности.
// Пустой набор отключает автослияние по коммутативности для типа.
func (p *Policy) SetCommutative(entityType string, ops ...models.Operation) {
	p.mu.Lock()
	defer p.mu.Unlock()

	set := make(map[models.Operation]bool, len(ops))
	for _, op := range ops {
		set[op] = op != models.OpDelete
	}
	p.byType[entityType] = set
}

// IsCommutative проверяет, коммутативна ли операция для типа сущности
func (p *Policy) IsCommutative(entityType string, op models.Operation) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if set, ok := p.byType[entityType]; ok {
		return set[op]
	}
	return p.defaults[op]
}

// Resolver применяет политику к мутации и текущему состоянию сущности
type Resolver struct {
	policy *Policy
}

// NewResolver создает Resolver; nil policy заменяется на DefaultPolicy
func NewResolver(policy *Policy) *Resolver {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Resolver{policy: policy}
}

// Resolve сравнивает мутацию с текущей сущностью (nil если сущности нет).
// Возвращает syncerr.ErrPermanentReject для мутаций, которые нельзя применить никогда.
func (r *Resolver) Resolve(current *models.Entity, m Mutation) (Decision, error) {
	if current == nil {
		if m.BaseVersion != 0 {
			return Decision{}, syncerr.Reject("entity %s does not exist", models.EntityKey(m.EntityType, m.EntityID))
		}
		if m.Operation == models.OpDelete {
			return Decision{}, syncerr.Reject("cannot delete missing entity %s", models.EntityKey(m.EntityType, m.EntityID))
		}
		return Decision{Outcome: OutcomeApply}, nil
	}

	if m.BaseVersion > current.Version {
		return Decision{}, syncerr.Reject("base version %d is ahead of server version %d", m.BaseVersion, current.Version)
	}

	if m.BaseVersion == current.Version {
		return Decision{Outcome: OutcomeApply}, nil
	}

	// Далее базовая версия устарела
	if m.Operation == models.OpDelete {
		if current.Deleted {
			// Сущность уже удалена: повторное удаление ничего не меняет
			return Decision{Outcome: OutcomeAutoMerge, Strategy: models.ResolutionAutoMerge}, nil
		}
		return manual(deleteDiff(current)), nil
	}

	if current.Deleted {
		return manual(deletedDiff(m.Payload)), nil
	}

	if r.policy.IsCommutative(m.EntityType, m.Operation) {
		return Decision{Outcome: OutcomeAutoMerge, Strategy: models.ResolutionAutoMerge}, nil
	}

	changed := current.ChangedSince(m.BaseVersion)
	diff := make(map[string]models.FieldDiff)
	for field, mine := range m.Payload {
		if changed[field] {
			diff[field] = models.FieldDiff{Mine: mine, Theirs: current.Fields[field]}
		}
	}

	if len(diff) == 0 {
		return Decision{Outcome: OutcomeAutoMerge, Strategy: models.ResolutionAutoMerge}, nil
	}

	return manual(diff), nil
}

func manual(diff map[string]models.FieldDiff) Decision {
	return Decision{
		Outcome:  OutcomeConflict,
		Strategy: models.ResolutionManual,
		Diff:     diff,
	}
}

// deleteDiff клиент удаляет сущность, которую сервер изменил
func deleteDiff(current *models.Entity) map[string]models.FieldDiff {
	diff := make(map[string]models.FieldDiff, len(current.Fields))
	for field, theirs := range current.Fields {
		diff[field] = models.FieldDiff{Mine: nil, Theirs: theirs}
	}
	return diff
}

// deletedDiff клиент изменяет сущность, которую сервер удалил
func deletedDiff(payload map[string]any) map[string]models.FieldDiff {
	diff := make(map[string]models.FieldDiff, len(payload))
	for field, mine := range payload {
		diff[field] = models.FieldDiff{Mine: mine, Theirs: nil}
	}
	return diff
}
