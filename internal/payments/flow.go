package payments

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/escrowdesk/pkg/enums"
	pkgerrors "github.com/angelmondragon/escrowdesk/pkg/errors"
)

// PaymentIntent is the in-memory record of one payment attempt. It lives for
// the duration of a submission and is discarded once the payment id is
// handed back.
type PaymentIntent struct {
	JobID             string                    `json:"jobId"`
	CustomerID        string                    `json:"customerId"`
	VendorID          string                    `json:"vendorId"`
	Amount            decimal.Decimal           `json:"amount"`
	Method            enums.PaymentMethod       `json:"method"`
	ProviderReference string                    `json:"providerReference,omitempty"`
	Status            enums.PaymentIntentStatus `json:"status"`
	FailureMessage    string                    `json:"failureMessage,omitempty"`
}

func newIntent(req Request, customerID string) *PaymentIntent {
	intent := &PaymentIntent{
		JobID:      req.JobID,
		CustomerID: customerID,
		VendorID:   req.VendorID,
		Amount:     req.Amount,
		Status:     enums.PaymentIntentStatusInitiated,
	}
	if req.Method != nil {
		intent.Method = req.Method.Kind()
	}
	return intent
}

// setReference records the provider id; terminal intents are left alone.
func (p *PaymentIntent) setReference(ref string) {
	if p.Status.IsTerminal() {
		return
	}
	p.ProviderReference = ref
}

func (p *PaymentIntent) succeed() {
	if p.Status.IsTerminal() {
		return
	}
	p.Status = enums.PaymentIntentStatusSucceeded
}

func (p *PaymentIntent) fail(message string) {
	if p.Status.IsTerminal() {
		return
	}
	p.Status = enums.PaymentIntentStatusFailed
	p.FailureMessage = message
}

// Flow is the customer-facing state of a checkout: idle, submitting, success
// or failure. A Flow is owned by one caller and is not safe for concurrent use.
type Flow struct {
	state       enums.FlowState
	method      enums.PaymentMethod
	intent      *PaymentIntent
	message     string
	redirectURL string
}

// NewFlow starts an idle flow with the given method preselected.
func NewFlow(method enums.PaymentMethod) *Flow {
	if !method.IsValid() {
		method = enums.PaymentMethodCard
	}
	return &Flow{state: enums.FlowStateIdle, method: method}
}

func (f *Flow) State() enums.FlowState {
	return f.state
}

func (f *Flow) Method() enums.PaymentMethod {
	return f.method
}

// Intent returns the intent of the most recent attempt, if any.
func (f *Flow) Intent() *PaymentIntent {
	return f.intent
}

// Message is the failure text of the last attempt, shown verbatim to the user.
func (f *Flow) Message() string {
	return f.message
}

// RedirectURL is set while a PayPal attempt waits for the customer to approve.
func (f *Flow) RedirectURL() string {
	return f.redirectURL
}

// SelectMethod switches the provider. Refused while a submission is running.
func (f *Flow) SelectMethod(method enums.PaymentMethod) error {
	if !f.state.CanSubmit() {
		return pkgerrors.New(pkgerrors.CodeConflict, "cannot change payment method while a payment is being submitted")
	}
	if !method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method")
	}
	f.method = method
	return nil
}

func (f *Flow) begin(intent *PaymentIntent) error {
	if !f.state.CanSubmit() {
		return pkgerrors.New(pkgerrors.CodeConflict, "a payment is already being submitted")
	}
	f.state = enums.FlowStateSubmitting
	f.method = intent.Method
	f.intent = intent
	f.message = ""
	f.redirectURL = ""
	return nil
}

func (f *Flow) succeed() {
	f.state = enums.FlowStateSuccess
}

func (f *Flow) fail(message string) {
	f.state = enums.FlowStateFailure
	f.message = message
}

// suspend leaves the flow submitting: control has passed to the provider's page.
func (f *Flow) suspend(redirectURL string) {
	f.redirectURL = redirectURL
}
