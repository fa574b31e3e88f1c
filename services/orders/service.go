package orders

import (
	"context"
	"net/http"

	"github.com/MarcGrol/manualcheckout/lib/mylog"
	"github.com/MarcGrol/manualcheckout/lib/mypublisher"
	"github.com/MarcGrol/manualcheckout/lib/mystore"
	"github.com/MarcGrol/manualcheckout/lib/mytime"
	"github.com/MarcGrol/manualcheckout/services/accounts"
)

//go:generate mockgen -source=service.go -package orders -destination service_mock.go PaymentMethods AccountProvisioner
type PaymentMethods interface {
	Exists(code string) bool
}

type AccountProvisioner interface {
	CurrentAccount(c context.Context, r *http.Request) (accounts.Account, bool, error)
	StartSession(w http.ResponseWriter, r *http.Request, account accounts.Account) (string, error)
	Provision(c context.Context, req accounts.ProvisionRequest) (accounts.Provisioned, error)
}

type service struct {
	transactionStore mystore.Store[Transaction]
	paymentMethods   PaymentMethods
	provisioner      AccountProvisioner
	publisher        mypublisher.Publisher
	nower            mytime.Nower
	logger           mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(store mystore.Store[Transaction], paymentMethods PaymentMethods, provisioner AccountProvisioner, pub mypublisher.Publisher, nower mytime.Nower) *service {
	return &service{
		transactionStore: store,
		paymentMethods:   paymentMethods,
		provisioner:      provisioner,
		publisher:        pub,
		nower:            nower,
		logger:           mylog.New("orders"),
	}
}

type orderLister struct {
	transactionStore mystore.Store[Transaction]
}

// NewOrderLister lets the account area show the transactions of an account
func NewOrderLister(store mystore.Store[Transaction]) accounts.OrderLister {
	return &orderLister{transactionStore: store}
}

func (l *orderLister) ListForAccount(c context.Context, accountUID string) ([]accounts.OrderSummary, error) {
	transactions, err := l.transactionStore.Query(c, []mystore.Filter{
		{Field: "UserUID", Compare: "=", Value: accountUID},
	}, "-CreatedAt")
	if err != nil {
		return nil, err
	}

	summaries := make([]accounts.OrderSummary, 0, len(transactions))
	for _, t := range transactions {
		summaries = append(summaries, t.summary())
	}
	return summaries, nil
}
