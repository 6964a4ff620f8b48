package payment

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentLifecycle(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	p := NewSuccessPayment(GeneratePaymentNo(now), 7, 10000, "ref-1", now)

	assert.True(t, strings.HasPrefix(p.PaymentNo, "PAY"))
	assert.Equal(t, StatusSuccess, p.Status)

	later := now.Add(time.Hour)
	require.NoError(t, p.MarkRefunded(later))
	assert.Equal(t, StatusRefunded, p.Status)
	assert.Equal(t, later, p.UpdatedAt)

	err := p.MarkRefunded(later)
	assert.True(t, errors.Is(err, ErrNotRefundable))
}

func TestMarkFailed(t *testing.T) {
	now := time.Now()
	p := NewSuccessPayment("PAY1", 1, 100, "", now)
	p.MarkFailed(now)
	assert.Equal(t, "failed", p.Status.String())
	assert.True(t, errors.Is(p.MarkRefunded(now), ErrNotRefundable))
}
