package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MarcGrol/manualcheckout/shopper/shopclient"
)

func paymentDetailsCmd(opts *options) *cobra.Command {
	method := ""

	cmd := &cobra.Command{
		Use:   "payment-details",
		Short: "Show where to send a payment with the given method",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := opts.client().PaymentDetails(cmd.Context(), method)
			if err != nil {
				return err
			}
			printPaymentDetails(cmd, method, details)
			return nil
		},
	}

	cmd.Flags().StringVar(&method, "method", "", "Payment method code")
	_ = cmd.MarkFlagRequired("method")

	return cmd
}

func printPaymentDetails(cmd *cobra.Command, method string, details *shopclient.PaymentDetails) {
	w := cmd.OutOrStdout()
	if details == nil {
		fmt.Fprintf(w, "No payment instructions for %s\n", method)
		return
	}
	fmt.Fprintf(w, "%s: %s\n", details.Title, details.Value)
	if details.Instructions != "" {
		fmt.Fprintln(w, details.Instructions)
	}
}
