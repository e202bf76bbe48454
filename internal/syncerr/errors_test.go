package syncerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		name string
		want Kind
	}{
		{name: "nil", err: nil, want: KindUnknown},
		{name: "plain", err: errors.New("boom"), want: KindUnknown},
		{name: "transient", err: Transient(errors.New("dial tcp: refused")), want: KindTransient},
		{name: "wrapped transient", err: fmt.Errorf("apply: %w", Transient(errors.New("x"))), want: KindTransient},
		{name: "reject", err: Reject("unknown operation %q", "merge"), want: KindPermanentReject},
		{name: "conflict", err: fmt.Errorf("entity e1: %w", ErrConflict), want: KindConflict},
		{name: "resync", err: ErrResyncRequired, want: KindResyncRequired},
		{name: "gap", err: ErrReconciliationGap, want: KindReconciliationGap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(Transient(errors.New("timeout"))))
	assert.True(t, IsRetryable(errors.New("unknown")))
	assert.False(t, IsRetryable(Reject("bad payload")))
	assert.False(t, IsRetryable(ErrConflict))
}

func TestTransient_Nil(t *testing.T) {
	assert.NoError(t, Transient(nil))
}

func TestReject_Message(t *testing.T) {
	err := Reject("field %q is not numeric", "qty")
	assert.EqualError(t, err, `mutation rejected: field "qty" is not numeric`)
	assert.Equal(t, "permanent_reject", Classify(err).String())
}
