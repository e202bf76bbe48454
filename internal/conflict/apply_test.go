package conflict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/syncerr"
)

func TestApply(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	t.Run("create", func(t *testing.T) {
		next, touched, err := Apply(nil, "t1", Mutation{
			EntityType: "stock_item",
			EntityID:   "e1",
			Operation:  models.OpSet,
			Payload:    map[string]any{"qty": 5},
		}, now)
		require.NoError(t, err)

		assert.Equal(t, int64(1), next.Version)
		assert.Equal(t, "t1", next.TenantID)
		assert.Equal(t, map[string]any{"qty": 5}, next.Fields)
		assert.Equal(t, map[string]int64{"qty": 1}, next.FieldVersions)
		assert.Equal(t, map[string]any{"qty": 5}, touched)
		assert.Equal(t, now, next.UpdatedAt)
	})

	t.Run("set keeps untouched field versions", func(t *testing.T) {
		current := serverEntity()
		next, touched, err := Apply(current, "t1", Mutation{Operation: models.OpSet, Payload: map[string]any{"location": "B2"}}, now)
		require.NoError(t, err)

		assert.Equal(t, int64(4), next.Version)
		assert.Equal(t, "B2", next.Fields["location"])
		assert.Equal(t, int64(4), next.FieldVersions["location"])
		assert.Equal(t, int64(3), next.FieldVersions["qty"])
		assert.Equal(t, map[string]any{"location": "B2"}, touched)

		// Текущая сущность не изменяется
		assert.Equal(t, "A1", current.Fields["location"])
		assert.Equal(t, int64(3), current.Version)
	})

	t.Run("increment", func(t *testing.T) {
		next, touched, err := Apply(serverEntity(), "t1", Mutation{Operation: models.OpIncrement, Payload: map[string]any{"qty": -2, "count": 1}}, now)
		require.NoError(t, err)

		assert.Equal(t, float64(5), next.Fields["qty"])
		assert.Equal(t, float64(1), next.Fields["count"])
		assert.Equal(t, map[string]any{"qty": float64(5), "count": float64(1)}, touched)
	})

	t.Run("append", func(t *testing.T) {
		current := serverEntity()
		current.Fields["tags"] = []any{"a"}

		next, _, err := Apply(current, "t1", Mutation{Operation: models.OpAppend, Payload: map[string]any{"tags": []any{"b", "c"}, "notes": "first"}}, now)
		require.NoError(t, err)

		assert.Equal(t, []any{"a", "b", "c"}, next.Fields["tags"])
		assert.Equal(t, []any{"first"}, next.Fields["notes"])
		assert.Equal(t, []any{"a"}, current.Fields["tags"])
	})

	t.Run("delete", func(t *testing.T) {
		next, touched, err := Apply(serverEntity(), "t1", Mutation{Operation: models.OpDelete}, now)
		require.NoError(t, err)

		assert.True(t, next.Deleted)
		assert.Equal(t, int64(4), next.Version)
		assert.Empty(t, touched)
	})

	rejects := []struct {
		current  func() *models.Entity
		name     string
		mutation Mutation
	}{
		{
			name:     "increment non numeric field",
			current:  serverEntity,
			mutation: Mutation{Operation: models.OpIncrement, Payload: map[string]any{"location": 1}},
		},
		{
			name:     "append to scalar field",
			current:  serverEntity,
			mutation: Mutation{Operation: models.OpAppend, Payload: map[string]any{"qty": 1}},
		},
		{
			name: "set on deleted entity",
			current: func() *models.Entity {
				e := serverEntity()
				e.Deleted = true
				return e
			},
			mutation: Mutation{Operation: models.OpSet, Payload: map[string]any{"qty": 1}},
		},
	}

	for _, tt := range rejects {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Apply(tt.current(), "t1", tt.mutation, now)
			require.Error(t, err)
			assert.ErrorIs(t, err, syncerr.ErrPermanentReject)
		})
	}
}
