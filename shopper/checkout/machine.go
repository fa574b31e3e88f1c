// Package checkout drives the shopper from cart to submitted order.
// Every change is persisted before it becomes visible, so a restarted client resumes where it was.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"github.com/MarcGrol/manualcheckout/lib/mylog"
	"github.com/MarcGrol/manualcheckout/lib/myuuid"
	"github.com/MarcGrol/manualcheckout/shopper/cart"
	"github.com/MarcGrol/manualcheckout/shopper/shopclient"
)

const MaxReceiptSize = 5 << 20

var (
	ErrInvalidTransition = errors.New("invalid checkout step transition")
	ErrNotEditable       = errors.New("checkout can no longer be changed")
	ErrSubmitInProgress  = errors.New("submission already in progress")
	ErrNoOrder           = errors.New("no order has been placed yet")
	ErrNotAcknowledged   = errors.New("confirm that the payment was sent first")
)

//go:generate mockgen -source=machine.go -package checkout -destination backend_mock.go Backend
type Backend interface {
	CreateOrder(c context.Context, req shopclient.OrderRequest) (shopclient.OrderCreated, error)
	SubmitConfirmation(c context.Context, transactionID string, message string, receipt shopclient.Receipt) (string, error)
}

type Machine struct {
	sync.Mutex
	session    Session
	store      Persistence
	backend    Backend
	uuider     myuuid.UUIDer
	submitting bool
	logger     mylog.Logger
}

// New resumes the persisted session, if any
func New(c context.Context, store Persistence, backend Backend, uuider myuuid.UUIDer) (*Machine, error) {
	session, found, err := store.Load(c)
	if err != nil {
		return nil, err
	}
	if !found {
		session = newSession()
	}
	if session.Step == StepProcessing {
		// interrupted while submitting: the outcome is unknown, resubmitting with the same key is safe
		session.Step = StepReview
		session.OrderStatus = OrderIdle
	}

	return &Machine{
		session: session,
		store:   store,
		backend: backend,
		uuider:  uuider,
		logger:  mylog.New("checkout"),
	}, nil
}

func (m *Machine) Session() Session {
	m.Lock()
	defer m.Unlock()

	return copySession(m.session)
}

// mutate applies f to a copy and keeps it only when it was persisted
func (m *Machine) mutate(c context.Context, f func(s *Session) error) error {
	m.Lock()
	defer m.Unlock()

	return m.mutateLocked(c, f)
}

func (m *Machine) mutateLocked(c context.Context, f func(s *Session) error) error {
	next := copySession(m.session)
	err := f(&next)
	if err != nil {
		return err
	}

	err = m.store.Save(c, next)
	if err != nil {
		return fmt.Errorf("error persisting checkout: %w", err)
	}
	m.session = next
	return nil
}

func (m *Machine) editable(s *Session) error {
	if m.submitting || s.OrderStatus != OrderIdle || s.Step.index() > StepReview.index() {
		return ErrNotEditable
	}
	return nil
}

// newAttempt drops the key of an attempt whose payload changed
func newAttempt(s *Session) {
	if s.OrderID == "" {
		s.IdempotencyKey = ""
	}
}

func (m *Machine) AddItem(c context.Context, item cart.Item) error {
	return m.mutate(c, func(s *Session) error {
		if err := m.editable(s); err != nil {
			return err
		}
		if err := s.Cart.Add(item); err != nil {
			return err
		}
		newAttempt(s)
		return nil
	})
}

func (m *Machine) UpdateItem(c context.Context, id string, quantity int) error {
	return m.mutate(c, func(s *Session) error {
		if err := m.editable(s); err != nil {
			return err
		}
		if err := s.Cart.Update(id, quantity); err != nil {
			return err
		}
		newAttempt(s)
		return nil
	})
}

func (m *Machine) RemoveItem(c context.Context, id string) error {
	return m.mutate(c, func(s *Session) error {
		if err := m.editable(s); err != nil {
			return err
		}
		if err := s.Cart.Remove(id); err != nil {
			return err
		}
		newAttempt(s)
		return nil
	})
}

func (m *Machine) ClearCart(c context.Context) error {
	return m.mutate(c, func(s *Session) error {
		if err := m.editable(s); err != nil {
			return err
		}
		s.Cart.Clear()
		s.Step = StepCart
		newAttempt(s)
		return nil
	})
}

func validateContact(contact Contact) error {
	if strings.TrimSpace(contact.FullName) == "" {
		return fmt.Errorf("full name is required")
	}
	if strings.TrimSpace(contact.Phone) == "" {
		return fmt.Errorf("phone is required")
	}
	if contact.Email != "" {
		if _, err := mail.ParseAddress(contact.Email); err != nil {
			return fmt.Errorf("invalid email address %q", contact.Email)
		}
	}
	return nil
}

func (m *Machine) SetContact(c context.Context, contact Contact) error {
	return m.mutate(c, func(s *Session) error {
		if err := m.editable(s); err != nil {
			return err
		}
		contact.FullName = strings.TrimSpace(contact.FullName)
		contact.Phone = strings.TrimSpace(contact.Phone)
		contact.Email = strings.TrimSpace(contact.Email)
		if err := validateContact(contact); err != nil {
			return err
		}
		if s.Contact != contact {
			newAttempt(s)
		}
		s.Contact = contact
		return nil
	})
}

func (m *Machine) SetPaymentMethod(c context.Context, method string) error {
	return m.mutate(c, func(s *Session) error {
		if err := m.editable(s); err != nil {
			return err
		}
		if method == "" {
			return fmt.Errorf("payment method is required")
		}
		if s.PaymentMethod != method {
			newAttempt(s)
		}
		s.PaymentMethod = method
		return nil
	})
}

// Advance moves one step forward, or back to any earlier step before the order is submitted
func (m *Machine) Advance(c context.Context, target Step) error {
	return m.mutate(c, func(s *Session) error {
		current := s.Step.index()
		next := target.index()
		switch {
		case next < 0:
			return fmt.Errorf("%w: unknown step %q", ErrInvalidTransition, target)
		case next == current:
			return nil
		case next < current:
			if err := m.editable(s); err != nil {
				return fmt.Errorf("%w: %s", ErrInvalidTransition, err)
			}
		case next == current+1 && next <= StepReview.index():
			if err := m.editable(s); err != nil {
				return fmt.Errorf("%w: %s", ErrInvalidTransition, err)
			}
			if err := readyFor(*s, target); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Step, target)
		}

		s.Step = target
		return nil
	})
}

// Back returns to the previous step
func (m *Machine) Back(c context.Context) error {
	current := m.Session().Step.index()
	if current <= 0 {
		return fmt.Errorf("%w: already at the first step", ErrInvalidTransition)
	}
	return m.Advance(c, stepOrder[current-1])
}

func readyFor(s Session, target Step) error {
	if target.index() >= StepDetails.index() && s.Cart.IsEmpty() {
		return fmt.Errorf("cart is empty")
	}
	if target.index() >= StepPayment.index() {
		if err := validateContact(s.Contact); err != nil {
			return err
		}
	}
	if target.index() >= StepReview.index() && s.PaymentMethod == "" {
		return fmt.Errorf("no payment method chosen")
	}
	return nil
}

// EnsureIdempotencyKey returns the key of the current attempt, creating it once
func (m *Machine) EnsureIdempotencyKey(c context.Context) (string, error) {
	m.Lock()
	defer m.Unlock()

	return m.ensureIdempotencyKeyLocked(c)
}

func (m *Machine) ensureIdempotencyKeyLocked(c context.Context) (string, error) {
	if m.session.IdempotencyKey != "" {
		return m.session.IdempotencyKey, nil
	}

	err := m.mutateLocked(c, func(s *Session) error {
		s.IdempotencyKey = m.uuider.Create()
		return nil
	})
	if err != nil {
		return "", err
	}
	return m.session.IdempotencyKey, nil
}

func orderRequest(s Session) shopclient.OrderRequest {
	items := make([]shopclient.OrderItem, 0, len(s.Cart.Items))
	for _, item := range s.Cart.Items {
		items = append(items, shopclient.OrderItem{
			ID:       item.ID,
			Name:     item.Name,
			Image:    item.Image,
			Price:    item.UnitPrice,
			Quantity: item.Quantity,
		})
	}
	return shopclient.OrderRequest{
		CustomerName:   s.Contact.FullName,
		CustomerPhone:  s.Contact.Phone,
		CustomerEmail:  s.Contact.Email,
		Notes:          s.Contact.Notes,
		PaymentMethod:  s.PaymentMethod,
		Items:          items,
		IdempotencyKey: s.IdempotencyKey,
	}
}

// Submit places the order. The lock is not held during the call, so the session stays readable.
func (m *Machine) Submit(c context.Context) (SubmitResult, error) {
	req, err := m.startSubmit(c)
	if err != nil {
		return SubmitResult{}, err
	}

	resp, err := m.backend.CreateOrder(c, req)

	m.Lock()
	defer m.Unlock()
	m.submitting = false

	if err != nil {
		m.logger.Log(c, req.IdempotencyKey, mylog.SeverityWarn, "Order submission failed: %s", err)
		saveErr := m.mutateLocked(c, func(s *Session) error {
			if shopclient.IsTransient(err) {
				s.Step = StepReview
				s.OrderStatus = OrderIdle
			} else {
				s.Step = StepResult
				s.OrderStatus = OrderFailed
			}
			s.Error = err.Error()
			return nil
		})
		if saveErr != nil {
			m.logger.Log(c, req.IdempotencyKey, mylog.SeverityError, "Error persisting failed submission: %s", saveErr)
		}
		return SubmitResult{}, err
	}

	err = m.mutateLocked(c, func(s *Session) error {
		s.OrderID = resp.ID
		s.Step = StepResult
		s.OrderStatus = OrderProcessing
		s.Error = ""
		if resp.Account != nil {
			s.AccountUsername = resp.Account.Username
		}
		return nil
	})
	if err != nil {
		return SubmitResult{}, err
	}

	return SubmitResult{
		Session:           copySession(m.session),
		GeneratedPassword: resp.GeneratedPassword,
	}, nil
}

func (m *Machine) startSubmit(c context.Context) (shopclient.OrderRequest, error) {
	m.Lock()
	defer m.Unlock()

	if m.submitting {
		return shopclient.OrderRequest{}, ErrSubmitInProgress
	}
	if m.session.OrderID != "" {
		return shopclient.OrderRequest{}, fmt.Errorf("order %s was already placed", m.session.OrderID)
	}
	if m.session.Step != StepReview || m.session.OrderStatus != OrderIdle {
		return shopclient.OrderRequest{}, fmt.Errorf("%w: submit from %s", ErrInvalidTransition, m.session.Step)
	}
	err := readyFor(m.session, StepReview)
	if err != nil {
		return shopclient.OrderRequest{}, err
	}

	// the key is persisted before the first request leaves
	_, err = m.ensureIdempotencyKeyLocked(c)
	if err != nil {
		return shopclient.OrderRequest{}, err
	}

	err = m.mutateLocked(c, func(s *Session) error {
		s.Step = StepProcessing
		s.OrderStatus = OrderProcessing
		s.Error = ""
		return nil
	})
	if err != nil {
		return shopclient.OrderRequest{}, err
	}

	m.submitting = true
	return orderRequest(m.session), nil
}

// Retry reopens a failed attempt at the payment step, keeping its key
func (m *Machine) Retry(c context.Context) error {
	return m.mutate(c, func(s *Session) error {
		if s.OrderStatus != OrderFailed {
			return fmt.Errorf("%w: nothing to retry", ErrInvalidTransition)
		}
		s.Step = StepPayment
		s.OrderStatus = OrderIdle
		s.Error = ""
		return nil
	})
}

// ConfirmPayment sends the proof of payment for the placed order and returns the tracking code
func (m *Machine) ConfirmPayment(c context.Context, message string, receipt shopclient.Receipt, acknowledged bool) (string, error) {
	orderID, err := m.startConfirm(message, receipt, acknowledged)
	if err != nil {
		return "", err
	}

	trackingCode, err := m.backend.SubmitConfirmation(c, orderID, message, receipt)

	m.Lock()
	defer m.Unlock()
	m.submitting = false

	if err != nil {
		saveErr := m.mutateLocked(c, func(s *Session) error {
			s.Error = err.Error()
			return nil
		})
		if saveErr != nil {
			m.logger.Log(c, orderID, mylog.SeverityError, "Error persisting failed confirmation: %s", saveErr)
		}
		return "", err
	}

	err = m.mutateLocked(c, func(s *Session) error {
		s.OrderStatus = OrderPaid
		s.TrackingCode = trackingCode
		s.Error = ""
		return nil
	})
	if err != nil {
		return "", err
	}
	return trackingCode, nil
}

func (m *Machine) startConfirm(message string, receipt shopclient.Receipt, acknowledged bool) (string, error) {
	m.Lock()
	defer m.Unlock()

	if m.submitting {
		return "", ErrSubmitInProgress
	}
	if m.session.OrderID == "" {
		return "", ErrNoOrder
	}
	if !acknowledged {
		return "", ErrNotAcknowledged
	}
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("message is required")
	}
	if len(receipt.Data) == 0 {
		return "", fmt.Errorf("receipt is required")
	}
	if len(receipt.Data) > MaxReceiptSize {
		return "", &shopclient.PayloadTooLargeError{Message: fmt.Sprintf("receipt of %d bytes exceeds %d", len(receipt.Data), MaxReceiptSize)}
	}

	m.submitting = true
	return m.session.OrderID, nil
}

// Reset discards the session and its key so a later purchase starts clean
func (m *Machine) Reset(c context.Context) error {
	m.Lock()
	defer m.Unlock()

	if m.submitting {
		return ErrSubmitInProgress
	}

	err := m.store.Clear(c)
	if err != nil {
		return err
	}
	m.session = newSession()
	return nil
}
