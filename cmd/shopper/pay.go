package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/MarcGrol/manualcheckout/shopper/shopclient"
)

func payCmd(opts *options) *cobra.Command {
	message := ""
	receiptFile := ""
	confirmSent := false

	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Send the proof of payment for the placed order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(receiptFile)
			if err != nil {
				return fmt.Errorf("error reading receipt: %w", err)
			}

			c := cmd.Context()
			machine, err := opts.machine(c)
			if err != nil {
				return err
			}

			trackingCode, err := machine.ConfirmPayment(c, message, shopclient.Receipt{
				Filename: filepath.Base(receiptFile),
				Data:     data,
			}, confirmSent)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Payment confirmation received, tracking code %s\n", trackingCode)
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "Message for the shop, for example the transfer reference")
	cmd.Flags().StringVar(&receiptFile, "receipt", "", "Image or PDF of the payment receipt")
	cmd.Flags().BoolVar(&confirmSent, "confirm-sent", false, "Confirm that the payment was sent")
	_ = cmd.MarkFlagRequired("message")
	_ = cmd.MarkFlagRequired("receipt")

	return cmd
}
