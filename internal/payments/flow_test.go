package payments

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/escrowdesk/pkg/enums"
	pkgerrors "github.com/angelmondragon/escrowdesk/pkg/errors"
)

func TestFlowSelectMethod(t *testing.T) {
	flow := NewFlow("bogus")
	assert.Equal(t, enums.PaymentMethodCard, flow.Method())
	assert.Equal(t, enums.FlowStateIdle, flow.State())

	require.NoError(t, flow.SelectMethod(enums.PaymentMethodManual))
	assert.Equal(t, enums.PaymentMethodManual, flow.Method())
	assert.True(t, pkgerrors.IsCode(flow.SelectMethod("bitcoin"), pkgerrors.CodeValidation))

	intent := newIntent(Request{JobID: "job-1", Amount: decimal.NewFromInt(1), Method: PayPalMethod{}}, "cust-1")
	require.NoError(t, flow.begin(intent))
	assert.Equal(t, enums.PaymentMethodPayPal, flow.Method())
	assert.True(t, pkgerrors.IsCode(flow.SelectMethod(enums.PaymentMethodCard), pkgerrors.CodeConflict))
	assert.True(t, pkgerrors.IsCode(flow.begin(intent), pkgerrors.CodeConflict))

	flow.fail("declined")
	require.NoError(t, flow.SelectMethod(enums.PaymentMethodCard), "a failed flow can start over")
	assert.Equal(t, "declined", flow.Message())
}

func TestFlowRestartClearsPreviousAttempt(t *testing.T) {
	flow := NewFlow(enums.PaymentMethodCard)
	first := newIntent(Request{JobID: "job-1", Method: CardMethod{}}, "cust-1")
	require.NoError(t, flow.begin(first))
	flow.fail("declined")

	second := newIntent(Request{JobID: "job-1", Method: CardMethod{}}, "cust-1")
	require.NoError(t, flow.begin(second))
	assert.Equal(t, enums.FlowStateSubmitting, flow.State())
	assert.Empty(t, flow.Message())
	assert.Same(t, second, flow.Intent())
}

func TestIntentTerminalStatesAreFinal(t *testing.T) {
	intent := newIntent(Request{JobID: "job-1", Method: CardMethod{}}, "cust-1")
	assert.Equal(t, enums.PaymentIntentStatusInitiated, intent.Status)
	assert.Equal(t, enums.PaymentMethodCard, intent.Method)

	intent.fail("declined")
	intent.succeed()
	intent.setReference("pi_late")
	assert.Equal(t, enums.PaymentIntentStatusFailed, intent.Status)
	assert.Equal(t, "declined", intent.FailureMessage)
	assert.Empty(t, intent.ProviderReference)

	ok := newIntent(Request{JobID: "job-2", Method: ManualMethod{}}, "cust-1")
	ok.succeed()
	ok.fail("too late")
	assert.Equal(t, enums.PaymentIntentStatusSucceeded, ok.Status)
	assert.Empty(t, ok.FailureMessage)
}

func TestOrderTokenFromApprovalURL(t *testing.T) {
	token, err := orderTokenFromApprovalURL("https://www.paypal.com/checkoutnow?token=EC-123&useraction=commit")
	require.NoError(t, err)
	assert.Equal(t, "EC-123", token)

	_, err = orderTokenFromApprovalURL("https://www.paypal.com/checkoutnow")
	assert.Error(t, err)
}

type memoryKV struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func (m *memoryKV) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryKV) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryKV) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memoryKV) PayPalKey(token string) string {
	return "ed:paypal:" + token
}

func TestRedisCorrelationStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := &memoryKV{values: map[string]string{}, ttls: map[string]time.Duration{}}
	store, err := NewCorrelationStore(kv, 3*time.Hour)
	require.NoError(t, err)

	record := PayPalCorrelation{
		Token: "EC-9", JobID: "job-1", CustomerID: "cust-1", VendorID: "ven-1",
		Amount: decimal.RequireFromString("19.99"), CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(ctx, record))
	assert.Equal(t, 3*time.Hour, kv.ttls["ed:paypal:EC-9"])

	loaded, err := store.Load(ctx, "EC-9")
	require.NoError(t, err)
	assert.Equal(t, record.JobID, loaded.JobID)
	assert.True(t, record.Amount.Equal(loaded.Amount))
	assert.True(t, record.CreatedAt.Equal(loaded.CreatedAt))

	require.NoError(t, store.Delete(ctx, "EC-9"))
	_, err = store.Load(ctx, "EC-9")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	assert.Error(t, store.Save(ctx, PayPalCorrelation{}))
	_, err = NewCorrelationStore(kv, 0)
	assert.Error(t, err)
}
