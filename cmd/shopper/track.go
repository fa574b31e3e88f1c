package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/MarcGrol/manualcheckout/shopper/tracker"
)

func trackCmd(opts *options) *cobra.Command {
	interval := tracker.DefaultInterval

	cmd := &cobra.Command{
		Use:   "track [orderId]",
		Short: "Follow the order status until it is completed or cancelled",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cmd.Context()
			machine, err := opts.machine(c)
			if err != nil {
				return err
			}

			session := machine.Session()
			orderID := session.OrderID
			if len(args) > 0 {
				orderID = args[0]
			}
			if orderID == "" {
				return fmt.Errorf("no order to track, pass an order id")
			}

			w := cmd.OutOrStdout()
			last, err := tracker.New(opts.client(), tracker.WithInterval(interval)).Track(c, orderID, func(u tracker.Update) {
				fmt.Fprintf(w, "%s %s\n", time.Now().Format(time.TimeOnly), u.Message)
			})
			if err != nil {
				return err
			}

			if last.Terminal && orderID == session.OrderID {
				// the purchase is over: the next one starts with a fresh session
				return machine.Reset(c)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", tracker.DefaultInterval, "Poll interval")

	return cmd
}
