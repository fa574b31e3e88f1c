package accounts

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/MarcGrol/manualcheckout/lib/mylog"
	"github.com/MarcGrol/manualcheckout/lib/mymail"
	"github.com/MarcGrol/manualcheckout/lib/mystore"
	"github.com/MarcGrol/manualcheckout/lib/mytime"
	"github.com/MarcGrol/manualcheckout/lib/myuuid"
)

//go:generate mockgen -source=service.go -package accounts -destination orderlister_mock.go OrderLister
type OrderLister interface {
	ListForAccount(c context.Context, accountUID string) ([]OrderSummary, error)
}

type Service struct {
	accountStore mystore.Store[Account]
	tokenStore   mystore.Store[UsedLoginToken]
	orderLister  OrderLister
	mailer       mymail.Mailer
	nower        mytime.Nower
	uuider       myuuid.UUIDer
	logger       mylog.Logger
	signingKey   []byte
	passwordCost int
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewService(accountStore mystore.Store[Account], tokenStore mystore.Store[UsedLoginToken], orderLister OrderLister, mailer mymail.Mailer, signingKey []byte, nower mytime.Nower, uuider myuuid.UUIDer) *Service {
	return &Service{
		accountStore: accountStore,
		tokenStore:   tokenStore,
		orderLister:  orderLister,
		mailer:       mailer,
		nower:        nower,
		uuider:       uuider,
		logger:       mylog.New("accounts"),
		signingKey:   signingKey,
		passwordCost: bcrypt.DefaultCost,
	}
}
