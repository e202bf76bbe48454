package validation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/syncerr"
)

func TestValidateMutation(t *testing.T) {
	tooMany := make(map[string]any, MaxFields+1)
	for i := 0; i <= MaxFields; i++ {
		tooMany[fmt.Sprintf("f%d", i)] = 1
	}

	tests := []struct {
		payload    map[string]any
		name       string
		entityType string
		entityID   string
		op         models.Operation
		base       int64
		wantErr    bool
	}{
		{name: "valid set", entityType: "stock_item", entityID: "E1", op: models.OpSet, base: 1, payload: map[string]any{"qty": 5}},
		{name: "valid increment", entityType: "stock_item", entityID: "E1", op: models.OpIncrement, payload: map[string]any{"qty": 2.5}},
		{name: "valid delete without payload", entityType: "stock_item", entityID: "E1", op: models.OpDelete},
		{name: "valid append", entityType: "work_order", entityID: "wo-17", op: models.OpAppend, payload: map[string]any{"notes": "checked"}},
		{name: "bad entity type", entityType: "Stock Item", entityID: "E1", op: models.OpSet, payload: map[string]any{"qty": 5}, wantErr: true},
		{name: "bad entity id", entityType: "stock_item", entityID: "E 1", op: models.OpSet, payload: map[string]any{"qty": 5}, wantErr: true},
		{name: "unknown op", entityType: "stock_item", entityID: "E1", op: "merge", payload: map[string]any{"qty": 5}, wantErr: true},
		{name: "negative base", entityType: "stock_item", entityID: "E1", op: models.OpSet, base: -1, payload: map[string]any{"qty": 5}, wantErr: true},
		{name: "empty set payload", entityType: "stock_item", entityID: "E1", op: models.OpSet, wantErr: true},
		{name: "bad field name", entityType: "stock_item", entityID: "E1", op: models.OpSet, payload: map[string]any{"1qty": 5}, wantErr: true},
		{name: "non numeric increment", entityType: "stock_item", entityID: "E1", op: models.OpIncrement, payload: map[string]any{"qty": "five"}, wantErr: true},
		{name: "too many fields", entityType: "stock_item", entityID: "E1", op: models.OpSet, payload: tooMany, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMutation(tt.entityType, tt.entityID, tt.op, tt.base, tt.payload)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, syncerr.KindPermanentReject, syncerr.Classify(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateTenantID(t *testing.T) {
	assert.NoError(t, ValidateTenantID("acme-field_01"))
	assert.Error(t, ValidateTenantID(""))
	assert.Error(t, ValidateTenantID("ab"))
	assert.Error(t, ValidateTenantID("acme corp"))
}

func TestToFloat(t *testing.T) {
	for _, v := range []any{1, int8(1), int16(1), int32(1), int64(1), uint(1), uint8(1), uint16(1), uint32(1), uint64(1), float32(1), 1.0} {
		f, ok := ToFloat(v)
		assert.True(t, ok)
		assert.Equal(t, 1.0, f)
	}

	_, ok := ToFloat("1")
	assert.False(t, ok)
}
