package enums

// IsTerminal reports whether no further transition is allowed.
func (p PaymentIntentStatus) IsTerminal() bool {
	return p == PaymentIntentStatusSucceeded || p == PaymentIntentStatusFailed
}

// IsTerminal reports whether the payout has left the approval pipeline.
func (p PayoutStatus) IsTerminal() bool {
	switch p {
	case PayoutStatusProcessed, PayoutStatusRejected, PayoutStatusFailed:
		return true
	}
	return false
}
