package backoffice

import (
	"github.com/MarcGrol/manualcheckout/services/confirmation"
	"github.com/MarcGrol/manualcheckout/services/orders"
)

// Config holds the back-office credentials and the address that receives alerts
type Config struct {
	Username     string
	Password     string
	AlertAddress string
}

type transactionDetails struct {
	Transaction   orders.Transaction          `json:"transaction"`
	Confirmations []confirmation.Confirmation `json:"confirmations"`
}

type listRequest struct {
	Status string `form:"status"`
}
