package enums

// CheckoutState models the orchestrator's position in the submission flow.
type CheckoutState string

const (
	CheckoutStateEditing        CheckoutState = "editing"
	CheckoutStateValidating     CheckoutState = "validating"
	CheckoutStatePaymentPending CheckoutState = "payment_pending"
	CheckoutStateSubmitting     CheckoutState = "submitting"
	CheckoutStateSubmitted      CheckoutState = "submitted"
	CheckoutStateConfirmed      CheckoutState = "confirmed"
	CheckoutStateFailed         CheckoutState = "failed"
)

var checkoutStateTransitions = map[CheckoutState][]CheckoutState{
	CheckoutStateEditing:        {CheckoutStateValidating},
	CheckoutStateValidating:     {CheckoutStateEditing, CheckoutStatePaymentPending, CheckoutStateSubmitting},
	CheckoutStatePaymentPending: {CheckoutStateEditing, CheckoutStateSubmitting},
	CheckoutStateSubmitting:     {CheckoutStateSubmitted, CheckoutStateFailed},
	CheckoutStateSubmitted:      {CheckoutStateConfirmed, CheckoutStateFailed},
	CheckoutStateFailed:         {CheckoutStateSubmitting},
}

// CanTransitionTo reports whether the move from c to next is allowed.
func (c CheckoutState) CanTransitionTo(next CheckoutState) bool {
	for _, candidate := range checkoutStateTransitions[c] {
		if candidate == next {
			return true
		}
	}
	return false
}
