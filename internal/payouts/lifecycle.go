package payouts

import (
	"github.com/angelmondragon/escrowdesk/pkg/enums"
	pkgerrors "github.com/angelmondragon/escrowdesk/pkg/errors"
)

type transition struct {
	from   enums.PayoutStatus
	action enums.PayoutAction
}

// transitions is the full set of admin-driven moves. FAILED is only ever
// reported by the backend.
var transitions = map[transition]enums.PayoutStatus{
	{enums.PayoutStatusPending, enums.PayoutActionApprove}:  enums.PayoutStatusApproved,
	{enums.PayoutStatusPending, enums.PayoutActionReject}:   enums.PayoutStatusRejected,
	{enums.PayoutStatusApproved, enums.PayoutActionProcess}: enums.PayoutStatusProcessed,
}

var actionOrder = []enums.PayoutAction{
	enums.PayoutActionApprove,
	enums.PayoutActionReject,
	enums.PayoutActionProcess,
}

// AllowedActions lists the actions an admin may take from status, in display order.
func AllowedActions(status enums.PayoutStatus) []enums.PayoutAction {
	allowed := make([]enums.PayoutAction, 0, 2)
	for _, action := range actionOrder {
		if _, ok := transitions[transition{status, action}]; ok {
			allowed = append(allowed, action)
		}
	}
	return allowed
}

// Next returns the status action leads to, or STATE_CONFLICT when the move is
// not legal from status.
func Next(status enums.PayoutStatus, action enums.PayoutAction) (enums.PayoutStatus, error) {
	if !action.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unknown payout action")
	}
	next, ok := transitions[transition{status, action}]
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "cannot "+action.String()+" a payout that is "+status.String()).
			WithDetails(map[string]any{
				"status":  status.String(),
				"action":  action.String(),
				"allowed": AllowedActions(status),
			})
	}
	return next, nil
}
