package accounts

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MarcGrol/manualcheckout/lib/myerrors"
)

func (s *Service) issueToken(account Account, purpose string, duration time.Duration) (string, error) {
	now := s.nower.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{
		Email:   account.Email,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.UID,
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        s.uuider.Create(),
		},
	})
	return token.SignedString(s.signingKey)
}

func (s *Service) parseToken(tokenStr string, purpose string) (*claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(s.nower.Now))
	if err != nil {
		return nil, myerrors.NewAuthenticationError(fmt.Errorf("invalid token: %s", err))
	}

	cl, ok := token.Claims.(*claims)
	if !ok || !token.Valid || cl.Purpose != purpose {
		return nil, myerrors.NewAuthenticationError(fmt.Errorf("invalid token"))
	}

	return cl, nil
}

// StartSession authenticates the caller as account for subsequent requests
func (s *Service) StartSession(w http.ResponseWriter, r *http.Request, account Account) (string, error) {
	token, err := s.issueToken(account, purposeSession, sessionDuration)
	if err != nil {
		return "", myerrors.NewInternalError(fmt.Errorf("error creating session: %s", err))
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
	})

	return token, nil
}

// CurrentAccount returns the account of the session cookie or bearer token, if any
func (s *Service) CurrentAccount(c context.Context, r *http.Request) (Account, bool, error) {
	tokenStr := ""
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		tokenStr = cookie.Value
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		tokenStr = strings.TrimPrefix(auth, "Bearer ")
	}
	if tokenStr == "" {
		return Account{}, false, nil
	}

	cl, err := s.parseToken(tokenStr, purposeSession)
	if err != nil {
		// a stale session is treated as no session
		return Account{}, false, nil
	}

	account, found, err := s.accountStore.Get(c, cl.Email)
	if err != nil {
		return Account{}, false, myerrors.NewInternalError(err)
	}
	if !found || account.UID != cl.Subject {
		return Account{}, false, nil
	}

	return account, true, nil
}
