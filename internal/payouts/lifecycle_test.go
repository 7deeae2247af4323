package payouts

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/escrowdesk/pkg/enums"
	pkgerrors "github.com/angelmondragon/escrowdesk/pkg/errors"
	"github.com/angelmondragon/escrowdesk/pkg/marketplace"
)

func TestTransitionTable(t *testing.T) {
	statuses := []enums.PayoutStatus{
		enums.PayoutStatusPending,
		enums.PayoutStatusApproved,
		enums.PayoutStatusProcessed,
		enums.PayoutStatusRejected,
		enums.PayoutStatusFailed,
	}
	actions := []enums.PayoutAction{enums.PayoutActionApprove, enums.PayoutActionReject, enums.PayoutActionProcess}

	legal := map[enums.PayoutStatus]map[enums.PayoutAction]enums.PayoutStatus{
		enums.PayoutStatusPending: {
			enums.PayoutActionApprove: enums.PayoutStatusApproved,
			enums.PayoutActionReject:  enums.PayoutStatusRejected,
		},
		enums.PayoutStatusApproved: {
			enums.PayoutActionProcess: enums.PayoutStatusProcessed,
		},
	}

	for _, status := range statuses {
		for _, action := range actions {
			next, err := Next(status, action)
			want, ok := legal[status][action]
			if ok {
				require.NoError(t, err, "%s --%s-->", status, action)
				assert.Equal(t, want, next)
				continue
			}
			require.Error(t, err, "%s --%s--> must be refused", status, action)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
		}
	}
}

func TestAllowedActions(t *testing.T) {
	assert.Equal(t, []enums.PayoutAction{enums.PayoutActionApprove, enums.PayoutActionReject}, AllowedActions(enums.PayoutStatusPending))
	assert.Equal(t, []enums.PayoutAction{enums.PayoutActionProcess}, AllowedActions(enums.PayoutStatusApproved))
	for _, terminal := range []enums.PayoutStatus{enums.PayoutStatusProcessed, enums.PayoutStatusRejected, enums.PayoutStatusFailed} {
		assert.Empty(t, AllowedActions(terminal), terminal.String())
		assert.True(t, terminal.IsTerminal())
	}
	assert.Empty(t, AllowedActions("on_hold"))
}

func TestNextRejectsUnknownAction(t *testing.T) {
	_, err := Next(enums.PayoutStatusPending, "delete")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestApproveOnProcessedCarriesAllowedActions(t *testing.T) {
	_, err := Next(enums.PayoutStatusProcessed, enums.PayoutActionApprove)
	require.Error(t, err)
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "processed", details["status"])
	assert.Empty(t, details["allowed"])
}

func payout(id string, status enums.PayoutStatus, amount string) marketplace.VendorPayout {
	return marketplace.VendorPayout{
		ID:          id,
		VendorID:    "ven-" + id,
		Amount:      decimal.RequireFromString(amount),
		Method:      enums.PayoutMethodBankTransfer,
		Status:      status,
		RequestedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestComputeStats(t *testing.T) {
	list := []marketplace.VendorPayout{
		payout("1", enums.PayoutStatusPending, "100.10"),
		payout("2", enums.PayoutStatusPending, "50.05"),
		payout("3", enums.PayoutStatusApproved, "200"),
		payout("4", enums.PayoutStatusProcessed, "0.01"),
		payout("5", enums.PayoutStatusRejected, "10"),
	}

	stats := ComputeStats(list)
	assert.Equal(t, 5, stats.TotalPayouts)
	assert.Equal(t, 2, stats.PendingPayouts)
	assert.True(t, stats.TotalAmount.Equal(decimal.RequireFromString("360.16")))
	assert.True(t, stats.PendingAmount.Equal(decimal.RequireFromString("150.15")))

	again := ComputeStats(list)
	assert.Equal(t, stats, again, "stats are a pure function of the list")

	list[0].Status = enums.PayoutStatusApproved
	moved := ComputeStats(list)
	assert.Equal(t, 1, moved.PendingPayouts)
	assert.True(t, moved.PendingAmount.Equal(decimal.RequireFromString("50.05")))
	assert.True(t, moved.TotalAmount.Equal(stats.TotalAmount))

	empty := ComputeStats(nil)
	assert.Zero(t, empty.TotalPayouts)
	assert.True(t, empty.TotalAmount.IsZero())
}

func TestStatsJSON(t *testing.T) {
	raw, err := ComputeStats([]marketplace.VendorPayout{payout("1", enums.PayoutStatusPending, "12.5")}).MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"totalPayouts":1,"pendingPayouts":1,"totalAmount":"12.50","pendingAmount":"12.50"}`, string(raw))
}

func TestBoardReplaceIsWholesale(t *testing.T) {
	board := NewBoard()
	assert.False(t, board.Loaded())

	first := []marketplace.VendorPayout{payout("1", enums.PayoutStatusPending, "1")}
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	board.replace(first, at)
	first[0].Status = enums.PayoutStatusRejected

	snap, refreshedAt := board.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, enums.PayoutStatusPending, snap[0].Status, "board owns its copy")
	assert.Equal(t, at, refreshedAt)
	assert.True(t, board.Loaded())

	snap[0].Status = enums.PayoutStatusFailed
	p, ok := board.Find("1")
	require.True(t, ok)
	assert.Equal(t, enums.PayoutStatusPending, p.Status, "snapshots are copies")

	board.replace(nil, at.Add(time.Minute))
	_, ok = board.Find("1")
	assert.False(t, ok)
}
