package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/manualcheckout/lib/myblob"
	"github.com/MarcGrol/manualcheckout/lib/myhttp"
	"github.com/MarcGrol/manualcheckout/lib/mymail"
	"github.com/MarcGrol/manualcheckout/lib/mypublisher"
	"github.com/MarcGrol/manualcheckout/lib/mypubsub"
	"github.com/MarcGrol/manualcheckout/lib/myqueue"
	"github.com/MarcGrol/manualcheckout/lib/myrandom"
	"github.com/MarcGrol/manualcheckout/lib/mystore"
	"github.com/MarcGrol/manualcheckout/lib/mytime"
	"github.com/MarcGrol/manualcheckout/lib/myuuid"
	"github.com/MarcGrol/manualcheckout/lib/myvault"
	"github.com/MarcGrol/manualcheckout/services/accounts"
	"github.com/MarcGrol/manualcheckout/services/backoffice"
	"github.com/MarcGrol/manualcheckout/services/confirmation"
	"github.com/MarcGrol/manualcheckout/services/orders"
	"github.com/MarcGrol/manualcheckout/services/paymentdetails"
	"github.com/MarcGrol/manualcheckout/services/warmup"
)

func main() {
	c := context.Background()

	router := mux.NewRouter()

	nower := mytime.RealNower{}
	uuider := myuuid.RealUUIDer{}

	pubsub, pubsubCleanup, err := mypubsub.New(c)
	if err != nil {
		log.Fatalf("Error creating pubsub: %s", err)
	}
	defer pubsubCleanup()

	queue, queueCleanup, err := myqueue.New(c)
	if err != nil {
		log.Fatalf("Error creating queue: %s", err)
	}
	defer queueCleanup()

	publisher, publisherCleanup, err := mypublisher.New(c, pubsub, queue, nower)
	if err != nil {
		log.Fatalf("Error creating publisher: %s", err)
	}
	defer publisherCleanup()
	publisher.RegisterEndpoints(c, router)

	catalog, err := paymentdetails.LoadCatalog(os.Getenv("PAYMENT_METHODS_FILE"))
	if err != nil {
		log.Fatalf("Error loading payment methods: %s", err)
	}

	accountStore, accountStoreCleanup, err := mystore.New[accounts.Account](c)
	if err != nil {
		log.Fatalf("Error creating account store: %s", err)
	}
	defer accountStoreCleanup()

	tokenStore, tokenStoreCleanup, err := mystore.New[accounts.UsedLoginToken](c)
	if err != nil {
		log.Fatalf("Error creating login-token store: %s", err)
	}
	defer tokenStoreCleanup()

	transactionStore, transactionStoreCleanup, err := mystore.New[orders.Transaction](c)
	if err != nil {
		log.Fatalf("Error creating transaction store: %s", err)
	}
	defer transactionStoreCleanup()

	confirmationStore, confirmationStoreCleanup, err := mystore.New[confirmation.Confirmation](c)
	if err != nil {
		log.Fatalf("Error creating confirmation store: %s", err)
	}
	defer confirmationStoreCleanup()

	receiptDir := getenv("RECEIPT_DIR", "./receipts")
	blobStore, blobCleanup, err := myblob.New(c, os.Getenv("RECEIPT_BUCKET"), receiptDir, myhttp.GuessHostnameWithScheme())
	if err != nil {
		log.Fatalf("Error creating receipt storage: %s", err)
	}
	defer blobCleanup()
	blobStore.RegisterEndpoints(c, router)

	mailer := mymail.New(os.Getenv("SENDGRID_API_KEY"), getenv("MAIL_FROM", "shop@example.com"))

	signingKey, err := sessionSigningKey(c)
	if err != nil {
		log.Fatalf("Error obtaining session signing key: %s", err)
	}

	accountService := accounts.NewService(accountStore, tokenStore, orders.NewOrderLister(transactionStore), mailer, signingKey, nower, uuider)
	accountService.RegisterEndpoints(c, router)

	orderService := orders.NewWebService(transactionStore, catalog, accountService, publisher, nower)
	err = orderService.RegisterEndpoints(c, router)
	if err != nil {
		log.Fatalf("Error registering order endpoints: %s", err)
	}

	confirmationService := confirmation.NewWebService(transactionStore, confirmationStore, blobStore, accountService, publisher, nower, uuider)
	err = confirmationService.RegisterEndpoints(c, router)
	if err != nil {
		log.Fatalf("Error registering confirmation endpoints: %s", err)
	}

	backofficeService := backoffice.NewWebService(backoffice.Config{
		Username:     os.Getenv("BACKOFFICE_USERNAME"),
		Password:     os.Getenv("BACKOFFICE_PASSWORD"),
		AlertAddress: os.Getenv("BACKOFFICE_EMAIL"),
	}, transactionStore, confirmationStore, publisher, pubsub, mailer, nower)
	err = backofficeService.RegisterEndpoints(c, router)
	if err != nil {
		log.Fatalf("Error registering backoffice endpoints: %s", err)
	}

	paymentdetails.NewWebService(catalog).RegisterEndpoints(c, router)

	warmup.NewService(catalog, transactionStore).RegisterEndpoints(c, router)

	startWebServerBlocking(router)
}

// sessionSigningKey prefers SESSION_SECRET and otherwise uses a generated key kept in the vault
func sessionSigningKey(c context.Context) ([]byte, error) {
	if secret := os.Getenv("SESSION_SECRET"); secret != "" {
		return []byte(secret), nil
	}

	vault, vaultCleanup, err := myvault.New(c)
	if err != nil {
		return nil, err
	}
	defer vaultCleanup()

	secret, err := vault.GetOrCreate(c, myvault.SessionSigningKey, func() (string, error) {
		return myrandom.Hex(32)
	})
	if err != nil {
		return nil, err
	}
	return []byte(secret), nil
}

func getenv(name string, defaultValue string) string {
	value := os.Getenv(name)
	if value == "" {
		return defaultValue
	}
	return value
}

func startWebServerBlocking(router *mux.Router) {
	port := getenv("PORT", "8080")

	log.Printf("Starting webserver on port %s (try http://localhost:%s)", port, port)
	err := http.ListenAndServe(fmt.Sprintf(":%s", port), router)
	if err != nil {
		log.Fatalf("Error starting webserver on port %s: %s", port, err)
	}
}
