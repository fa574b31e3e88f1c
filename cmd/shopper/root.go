package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/MarcGrol/manualcheckout/lib/myhttpclient"
	"github.com/MarcGrol/manualcheckout/lib/myuuid"
	"github.com/MarcGrol/manualcheckout/shopper/checkout"
	"github.com/MarcGrol/manualcheckout/shopper/shopclient"
)

type options struct {
	server   string
	stateDir string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "shopper",
		Short:         "Buy with a manual payment method: fill a cart, check out, send proof of payment and track the order",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.server, "server", envOr("SHOPPER_SERVER", "http://localhost:8080"), "Base url of the shop backend")
	rootCmd.PersistentFlags().StringVar(&opts.stateDir, "state-dir", envOr("SHOPPER_STATE_DIR", defaultStateDir()), "Directory that keeps the checkout in progress")

	rootCmd.AddCommand(cartCmd(opts))
	rootCmd.AddCommand(checkoutCmd(opts))
	rootCmd.AddCommand(payCmd(opts))
	rootCmd.AddCommand(trackCmd(opts))
	rootCmd.AddCommand(paymentDetailsCmd(opts))

	return rootCmd
}

func (o *options) client() *shopclient.Client {
	return shopclient.New(o.server, myhttpclient.New("shopper"))
}

func (o *options) machine(c context.Context) (*checkout.Machine, error) {
	return checkout.New(c, checkout.NewFileStore(o.stateDir), o.client(), myuuid.RealUUIDer{})
}

func envOr(name string, defaultValue string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return defaultValue
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".shopper"
	}
	return filepath.Join(home, ".shopper")
}

// formatAmount renders minor units as a decimal amount
func formatAmount(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}

func printSession(w io.Writer, session checkout.Session) {
	fmt.Fprintf(w, "Step:           %s\n", session.Step)
	fmt.Fprintf(w, "Order status:   %s\n", session.OrderStatus)
	if session.OrderID != "" {
		fmt.Fprintf(w, "Order:          %s\n", session.OrderID)
	}
	if session.TrackingCode != "" {
		fmt.Fprintf(w, "Tracking code:  %s\n", session.TrackingCode)
	}
	if session.Contact.FullName != "" {
		fmt.Fprintf(w, "Contact:        %s, %s, %s\n", session.Contact.FullName, session.Contact.Phone, session.Contact.Email)
	}
	if session.PaymentMethod != "" {
		fmt.Fprintf(w, "Payment method: %s\n", session.PaymentMethod)
	}
	if session.Error != "" {
		fmt.Fprintf(w, "Last error:     %s\n", session.Error)
	}
	printCart(w, session)
}

func printCart(w io.Writer, session checkout.Session) {
	if session.Cart.IsEmpty() {
		fmt.Fprintln(w, "Cart is empty")
		return
	}
	for _, item := range session.Cart.Items {
		fmt.Fprintf(w, "  %-12s %-30s %3d x %10s = %10s\n", item.ID, item.Name, item.Quantity, formatAmount(item.UnitPrice), formatAmount(item.LineTotal()))
	}
	fmt.Fprintf(w, "  %d item(s), total %s\n", session.Cart.Count(), formatAmount(session.Cart.Total()))
}

func printJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "\t")
	return encoder.Encode(value)
}
