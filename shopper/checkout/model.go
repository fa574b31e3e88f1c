package checkout

import (
	"github.com/MarcGrol/manualcheckout/shopper/cart"
)

type Step string

const (
	StepCart       Step = "cart"
	StepDetails    Step = "details"
	StepPayment    Step = "payment"
	StepReview     Step = "review"
	StepProcessing Step = "processing"
	StepResult     Step = "result"
)

var stepOrder = []Step{StepCart, StepDetails, StepPayment, StepReview, StepProcessing, StepResult}

func (s Step) index() int {
	for idx, step := range stepOrder {
		if step == s {
			return idx
		}
	}
	return -1
}

func ParseStep(s string) (Step, bool) {
	step := Step(s)
	return step, step.index() >= 0
}

type OrderStatus string

const (
	OrderIdle       OrderStatus = "idle"
	OrderProcessing OrderStatus = "processing"
	OrderPaid       OrderStatus = "paid"
	OrderFailed     OrderStatus = "failed"
)

type Contact struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Notes    string `json:"notes,omitempty"`
}

// Session is the complete state of one purchase in progress
type Session struct {
	Step            Step        `json:"step"`
	Cart            cart.Cart   `json:"cart"`
	Contact         Contact     `json:"contact"`
	PaymentMethod   string      `json:"paymentMethod,omitempty"`
	IdempotencyKey  string      `json:"idempotencyKey,omitempty"`
	OrderID         string      `json:"orderId,omitempty"`
	OrderStatus     OrderStatus `json:"orderStatus"`
	Error           string      `json:"error,omitempty"`
	AccountUsername string      `json:"accountUsername,omitempty"`
	TrackingCode    string      `json:"trackingCode,omitempty"`
}

func newSession() Session {
	return Session{
		Step:        StepCart,
		OrderStatus: OrderIdle,
	}
}

// SubmitResult is what the buyer sees right after the order was accepted
type SubmitResult struct {
	Session           Session
	GeneratedPassword string
}
