package backoffice

import (
	"github.com/MarcGrol/manualcheckout/lib/mylog"
	"github.com/MarcGrol/manualcheckout/lib/mymail"
	"github.com/MarcGrol/manualcheckout/lib/mypublisher"
	"github.com/MarcGrol/manualcheckout/lib/mypubsub"
	"github.com/MarcGrol/manualcheckout/lib/mystore"
	"github.com/MarcGrol/manualcheckout/lib/mytime"
	"github.com/MarcGrol/manualcheckout/services/confirmation"
	"github.com/MarcGrol/manualcheckout/services/orders"
)

type service struct {
	config            Config
	transactionStore  mystore.Store[orders.Transaction]
	confirmationStore mystore.Store[confirmation.Confirmation]
	publisher         mypublisher.Publisher
	subscriber        mypubsub.PubSub
	mailer            mymail.Mailer
	nower             mytime.Nower
	logger            mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(config Config, transactionStore mystore.Store[orders.Transaction], confirmationStore mystore.Store[confirmation.Confirmation],
	pub mypublisher.Publisher, sub mypubsub.PubSub, mailer mymail.Mailer, nower mytime.Nower) *service {
	return &service{
		config:            config,
		transactionStore:  transactionStore,
		confirmationStore: confirmationStore,
		publisher:         pub,
		subscriber:        sub,
		mailer:            mailer,
		nower:             nower,
		logger:            mylog.New("backoffice"),
	}
}
