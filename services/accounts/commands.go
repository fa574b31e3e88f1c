package accounts

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/MarcGrol/manualcheckout/lib/myerrors"
	"github.com/MarcGrol/manualcheckout/lib/myhttp"
	"github.com/MarcGrol/manualcheckout/lib/mylog"
	"github.com/MarcGrol/manualcheckout/lib/mymail"
	"github.com/MarcGrol/manualcheckout/lib/myrandom"
)

const generatedPasswordLength = 14

// NormalizeEmail validates an email address and returns its canonical, lower-cased form
func NormalizeEmail(email string) (string, error) {
	address, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return "", fmt.Errorf("invalid email address %q", email)
	}
	return strings.ToLower(address.Address), nil
}

// Provision finds the account for the email or creates it with a random password.
// Concurrent calls for the same email create exactly one account: the others find it.
func (s *Service) Provision(c context.Context, req ProvisionRequest) (Provisioned, error) {
	email, err := NormalizeEmail(req.Email)
	if err != nil {
		return Provisioned{}, myerrors.NewFieldError("customerEmail", err)
	}

	// prepared outside the transaction: hashing is slow
	password, err := myrandom.Password(generatedPasswordLength)
	if err != nil {
		return Provisioned{}, myerrors.NewInternalError(err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.passwordCost)
	if err != nil {
		return Provisioned{}, myerrors.NewInternalError(fmt.Errorf("error hashing password: %s", err))
	}
	suffix, err := myrandom.Hex(2)
	if err != nil {
		return Provisioned{}, myerrors.NewInternalError(err)
	}

	result := Provisioned{}
	err = s.accountStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		existing, found, err := s.accountStore.Get(c, email)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if found {
			result = Provisioned{Account: existing}
			return nil
		}

		account := Account{
			UID:          s.uuider.Create(),
			Email:        email,
			Username:     strings.SplitN(email, "@", 2)[0] + "-" + suffix,
			Name:         strings.TrimSpace(req.Name),
			Phone:        strings.TrimSpace(req.Phone),
			Role:         RoleCustomer,
			PasswordHash: string(hash),
			CreatedAt:    s.nower.Now(),
		}
		err = s.accountStore.Put(c, email, account)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		result = Provisioned{Account: account, Created: true, GeneratedPassword: password}
		return nil
	})
	if err != nil {
		return Provisioned{}, err
	}

	if result.Created {
		s.logger.Log(c, email, mylog.SeverityInfo, "Provisioned account %s", result.Account.UID)
		s.sendLoginLink(c, result.Account)
	} else {
		s.logger.Log(c, email, mylog.SeverityInfo, "Reusing account %s", result.Account.UID)
	}

	return result, nil
}

func (s *Service) sendLoginLink(c context.Context, account Account) {
	token, err := s.issueToken(account, purposeLogin, loginLinkDuration)
	if err != nil {
		s.logger.Log(c, account.Email, mylog.SeverityError, "Error creating login link: %s", err)
		return
	}

	link := myhttp.GuessHostnameWithScheme() + "/account/login?token=" + token
	err = s.mailer.Send(c, mymail.Mail{
		To:      account.Email,
		Subject: "Your shop account",
		Body: fmt.Sprintf("An account (%s) was created for your order.\n\nSign in once with this link, valid for 24 hours:\n%s\n",
			account.Username, link),
	})
	if err != nil {
		// the password returned at checkout remains usable
		s.logger.Log(c, account.Email, mylog.SeverityError, "Error mailing login link: %s", err)
	}
}

func (s *Service) GetAccount(c context.Context, email string) (Account, error) {
	account, found, err := s.accountStore.Get(c, email)
	if err != nil {
		return Account{}, myerrors.NewInternalError(err)
	}
	if !found {
		return Account{}, myerrors.NewNotFoundError(fmt.Errorf("account %s not found", email))
	}
	return account, nil
}

func (s *Service) login(c context.Context, email string, password string) (Account, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return Account{}, myerrors.NewFieldError("email", err)
	}

	account, found, err := s.accountStore.Get(c, normalized)
	if err != nil {
		return Account{}, myerrors.NewInternalError(err)
	}
	if !found || bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return Account{}, myerrors.NewAuthenticationError(fmt.Errorf("invalid credentials"))
	}

	return account, nil
}

// redeemLoginLink accepts each login link once
func (s *Service) redeemLoginLink(c context.Context, token string) (Account, error) {
	cl, err := s.parseToken(token, purposeLogin)
	if err != nil {
		return Account{}, err
	}

	err = s.tokenStore.RunInTransaction(c, func(c context.Context) error {
		_, used, err := s.tokenStore.Get(c, cl.ID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if used {
			return myerrors.NewAuthenticationError(fmt.Errorf("login link already used"))
		}

		return s.tokenStore.Put(c, cl.ID, UsedLoginToken{
			JTI:          cl.ID,
			AccountEmail: cl.Email,
			UsedAt:       s.nower.Now(),
		})
	})
	if err != nil {
		return Account{}, err
	}

	return s.GetAccount(c, cl.Email)
}

func (s *Service) accountOverview(c context.Context, account Account) (accountResponse, error) {
	resp := accountResponse{
		Account: account.View(),
		Orders:  []OrderSummary{},
	}
	if s.orderLister == nil {
		return resp, nil
	}

	orders, err := s.orderLister.ListForAccount(c, account.UID)
	if err != nil {
		return accountResponse{}, myerrors.NewInternalError(err)
	}
	resp.Orders = orders

	return resp, nil
}
