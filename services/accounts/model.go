package accounts

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleCustomer = "customer"

	sessionCookieName = "shop_session"
	sessionDuration   = 7 * 24 * time.Hour
	loginLinkDuration = 24 * time.Hour

	purposeSession = "session"
	purposeLogin   = "login"
)

// Account is keyed by its normalized email: the store key is the uniqueness constraint
type Account struct {
	UID          string
	Email        string
	Username     string
	Name         string
	Phone        string
	Role         string
	PasswordHash string `datastore:",noindex"`
	CreatedAt    time.Time
}

// UsedLoginToken records a consumed one-time login link
type UsedLoginToken struct {
	JTI          string
	AccountEmail string
	UsedAt       time.Time
}

type ProvisionRequest struct {
	Email string
	Name  string
	Phone string
}

// Provisioned carries the generated password only when the account was created by this call
type Provisioned struct {
	Account           Account
	Created           bool
	GeneratedPassword string
}

// OrderSummary is what the authenticated area shows per order
type OrderSummary struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"`
	PaymentMethod string    `json:"paymentMethod"`
	Total         int64     `json:"total"`
	CreatedAt     time.Time `json:"createdAt"`
}

type AccountView struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Role     string `json:"role"`
}

func (a Account) View() AccountView {
	return AccountView{
		ID:       a.UID,
		Email:    a.Email,
		Username: a.Username,
		Name:     a.Name,
		Phone:    a.Phone,
		Role:     a.Role,
	}
}

type accountResponse struct {
	Account AccountView    `json:"account"`
	Orders  []OrderSummary `json:"orders"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Account      AccountView `json:"account"`
	SessionToken string      `json:"sessionToken"`
}

type loginLinkRequest struct {
	Token string `form:"token"`
}

type claims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}
