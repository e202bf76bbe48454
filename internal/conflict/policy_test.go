package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/syncerr"
)

// serverEntity версия 3: qty менялось на версии 3, location на версии 1
func serverEntity() *models.Entity {
	return &models.Entity{
		TenantID:   "t1",
		EntityType: "stock_item",
		EntityID:   "e1",
		Version:    3,
		Fields: map[string]any{
			"qty":      float64(7),
			"location": "A1",
		},
		FieldVersions: map[string]int64{
			"qty":      3,
			"location": 1,
		},
	}
}

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver(nil)

	tests := []struct {
		current      *models.Entity
		wantDiff     map[string]models.FieldDiff
		name         string
		mutation     Mutation
		wantOutcome  Outcome
		wantStrategy models.ResolutionStrategy
	}{
		{
			name:        "create new entity",
			current:     nil,
			mutation:    Mutation{Operation: models.OpSet, BaseVersion: 0, Payload: map[string]any{"qty": 1}},
			wantOutcome: OutcomeApply,
		},
		{
			name:        "matching base version",
			current:     serverEntity(),
			mutation:    Mutation{Operation: models.OpSet, BaseVersion: 3, Payload: map[string]any{"qty": 5}},
			wantOutcome: OutcomeApply,
		},
		{
			name:         "commutative increment on stale base",
			current:      serverEntity(),
			mutation:     Mutation{EntityType: "stock_item", Operation: models.OpIncrement, BaseVersion: 1, Payload: map[string]any{"qty": 2}},
			wantOutcome:  OutcomeAutoMerge,
			wantStrategy: models.ResolutionAutoMerge,
		},
		{
			name:         "disjoint fields on stale base",
			current:      serverEntity(),
			mutation:     Mutation{Operation: models.OpSet, BaseVersion: 2, Payload: map[string]any{"location": "B2"}},
			wantOutcome:  OutcomeAutoMerge,
			wantStrategy: models.ResolutionAutoMerge,
		},
		{
			name:         "overlapping fields on stale base",
			current:      serverEntity(),
			mutation:     Mutation{Operation: models.OpSet, BaseVersion: 2, Payload: map[string]any{"qty": 5, "location": "B2"}},
			wantOutcome:  OutcomeConflict,
			wantStrategy: models.ResolutionManual,
			wantDiff: map[string]models.FieldDiff{
				"qty": {Mine: 5, Theirs: float64(7)},
			},
		},
		{
			name:         "delete against concurrent change",
			current:      serverEntity(),
			mutation:     Mutation{Operation: models.OpDelete, BaseVersion: 2},
			wantOutcome:  OutcomeConflict,
			wantStrategy: models.ResolutionManual,
			wantDiff: map[string]models.FieldDiff{
				"qty":      {Mine: nil, Theirs: float64(7)},
				"location": {Mine: nil, Theirs: "A1"},
			},
		},
		{
			name: "update of concurrently deleted entity",
			current: func() *models.Entity {
				e := serverEntity()
				e.Deleted = true
				return e
			}(),
			mutation:     Mutation{Operation: models.OpIncrement, BaseVersion: 2, Payload: map[string]any{"qty": 1}},
			wantOutcome:  OutcomeConflict,
			wantStrategy: models.ResolutionManual,
			wantDiff: map[string]models.FieldDiff{
				"qty": {Mine: 1, Theirs: nil},
			},
		},
		{
			name: "delete of already deleted entity",
			current: func() *models.Entity {
				e := serverEntity()
				e.Deleted = true
				return e
			}(),
			mutation:     Mutation{Operation: models.OpDelete, BaseVersion: 1},
			wantOutcome:  OutcomeAutoMerge,
			wantStrategy: models.ResolutionAutoMerge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := r.Resolve(tt.current, tt.mutation)
			require.NoError(t, err)

			assert.Equal(t, tt.wantOutcome, decision.Outcome)
			assert.Equal(t, tt.wantStrategy, decision.Strategy)
			if tt.wantDiff != nil {
				assert.Equal(t, tt.wantDiff, decision.Diff)
			}
		})
	}
}

func TestResolver_Resolve_Rejects(t *testing.T) {
	r := NewResolver(DefaultPolicy())

	tests := []struct {
		current  *models.Entity
		name     string
		mutation Mutation
	}{
		{
			name:     "missing entity with base version",
			mutation: Mutation{Operation: models.OpSet, BaseVersion: 2, Payload: map[string]any{"qty": 1}},
		},
		{
			name:     "delete missing entity",
			mutation: Mutation{Operation: models.OpDelete},
		},
		{
			name:     "base version ahead of server",
			current:  serverEntity(),
			mutation: Mutation{Operation: models.OpSet, BaseVersion: 9, Payload: map[string]any{"qty": 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(tt.current, tt.mutation)
			require.Error(t, err)
			assert.Equal(t, syncerr.KindPermanentReject, syncerr.Classify(err))
		})
	}
}

func TestPolicy_PerEntityType(t *testing.T) {
	p := DefaultPolicy()
	p.SetCommutative("ledger", models.OpAppend)
	p.SetCommutative("document")
	p.SetCommutative("audit", models.OpDelete)

	assert.True(t, p.IsCommutative("stock_item", models.OpIncrement))
	assert.True(t, p.IsCommutative("stock_item", models.OpAppend))
	assert.False(t, p.IsCommutative("stock_item", models.OpSet))

	assert.True(t, p.IsCommutative("ledger", models.OpAppend))
	assert.False(t, p.IsCommutative("ledger", models.OpIncrement))

	assert.False(t, p.IsCommutative("document", models.OpIncrement))

	// delete не может быть коммутативным
	assert.False(t, p.IsCommutative("audit", models.OpDelete))

	r := NewResolver(p)
	decision, err := r.Resolve(serverEntity(), Mutation{
		EntityType:  "document",
		Operation:   models.OpIncrement,
		BaseVersion: 2,
		Payload:     map[string]any{"qty": 1},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeConflict, decision.Outcome)
}
