package confirmation

import (
	"context"
	"net/http"

	"github.com/MarcGrol/manualcheckout/lib/myblob"
	"github.com/MarcGrol/manualcheckout/lib/mylog"
	"github.com/MarcGrol/manualcheckout/lib/mypublisher"
	"github.com/MarcGrol/manualcheckout/lib/mystore"
	"github.com/MarcGrol/manualcheckout/lib/mytime"
	"github.com/MarcGrol/manualcheckout/lib/myuuid"
	"github.com/MarcGrol/manualcheckout/services/accounts"
	"github.com/MarcGrol/manualcheckout/services/orders"
)

//go:generate mockgen -source=service.go -package confirmation -destination provisioner_mock.go AccountProvisioner
type AccountProvisioner interface {
	Provision(c context.Context, req accounts.ProvisionRequest) (accounts.Provisioned, error)
	StartSession(w http.ResponseWriter, r *http.Request, account accounts.Account) (string, error)
}

type service struct {
	transactionStore  mystore.Store[orders.Transaction]
	confirmationStore mystore.Store[Confirmation]
	blobStore         myblob.BlobStore
	provisioner       AccountProvisioner
	publisher         mypublisher.Publisher
	nower             mytime.Nower
	uuider            myuuid.UUIDer
	logger            mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(transactionStore mystore.Store[orders.Transaction], confirmationStore mystore.Store[Confirmation], blobStore myblob.BlobStore,
	provisioner AccountProvisioner, pub mypublisher.Publisher, nower mytime.Nower, uuider myuuid.UUIDer) *service {
	return &service{
		transactionStore:  transactionStore,
		confirmationStore: confirmationStore,
		blobStore:         blobStore,
		provisioner:       provisioner,
		publisher:         pub,
		nower:             nower,
		uuider:            uuider,
		logger:            mylog.New("confirmation"),
	}
}
