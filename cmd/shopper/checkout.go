package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MarcGrol/manualcheckout/shopper/checkout"
)

func checkoutCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Walk through the checkout steps",
	}

	cmd.AddCommand(checkoutDetailsCmd(opts))
	cmd.AddCommand(checkoutPaymentCmd(opts))
	cmd.AddCommand(checkoutReviewCmd(opts))
	cmd.AddCommand(checkoutBackCmd(opts))
	cmd.AddCommand(checkoutSubmitCmd(opts))
	cmd.AddCommand(checkoutRetryCmd(opts))
	cmd.AddCommand(checkoutResetCmd(opts))
	cmd.AddCommand(checkoutShowCmd(opts))

	return cmd
}

func checkoutDetailsCmd(opts *options) *cobra.Command {
	contact := checkout.Contact{}

	cmd := &cobra.Command{
		Use:   "details",
		Short: "Enter contact details and continue to the payment step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cmd.Context()
			machine, err := opts.machine(c)
			if err != nil {
				return err
			}

			if machine.Session().Step == checkout.StepCart {
				err = machine.Advance(c, checkout.StepDetails)
				if err != nil {
					return err
				}
			}
			err = machine.SetContact(c, contact)
			if err != nil {
				return err
			}
			err = machine.Advance(c, checkout.StepPayment)
			if err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), machine.Session())
			return nil
		},
	}

	cmd.Flags().StringVar(&contact.FullName, "name", "", "Full name")
	cmd.Flags().StringVar(&contact.Email, "email", "", "Email address; an account is created for it")
	cmd.Flags().StringVar(&contact.Phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&contact.Notes, "notes", "", "Notes for the shop")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("phone")

	return cmd
}

func checkoutPaymentCmd(opts *options) *cobra.Command {
	method := ""

	cmd := &cobra.Command{
		Use:   "payment",
		Short: "Choose the payment method and continue to review",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cmd.Context()
			machine, err := opts.machine(c)
			if err != nil {
				return err
			}

			err = machine.SetPaymentMethod(c, method)
			if err != nil {
				return err
			}
			err = machine.Advance(c, checkout.StepReview)
			if err != nil {
				return err
			}

			details, err := opts.client().PaymentDetails(c, method)
			if err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), machine.Session())
			printPaymentDetails(cmd, method, details)
			return nil
		},
	}

	cmd.Flags().StringVar(&method, "method", "", "Payment method code")
	_ = cmd.MarkFlagRequired("method")

	return cmd
}

func checkoutReviewCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "Continue to the review step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cmd.Context()
			machine, err := opts.machine(c)
			if err != nil {
				return err
			}
			err = machine.Advance(c, checkout.StepReview)
			if err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), machine.Session())
			return nil
		},
	}
}

func checkoutBackCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "back [step]",
		Short: "Go back one step, or to the given earlier step",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cmd.Context()
			machine, err := opts.machine(c)
			if err != nil {
				return err
			}

			if len(args) == 0 {
				err = machine.Back(c)
			} else {
				step, ok := checkout.ParseStep(args[0])
				if !ok {
					return fmt.Errorf("unknown step %q", args[0])
				}
				err = machine.Advance(c, step)
			}
			if err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), machine.Session())
			return nil
		},
	}
}

func checkoutSubmitCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "submit",
		Short: "Place the order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cmd.Context()
			machine, err := opts.machine(c)
			if err != nil {
				return err
			}

			result, err := machine.Submit(c)
			if err != nil {
				printSession(cmd.ErrOrStderr(), machine.Session())
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Order %s placed, send your payment and run 'shopper pay'\n", result.Session.OrderID)
			if result.Session.AccountUsername != "" {
				fmt.Fprintf(w, "Account:  %s\n", result.Session.AccountUsername)
			}
			if result.GeneratedPassword != "" {
				fmt.Fprintf(w, "Password: %s (shown only once, a login link was mailed as well)\n", result.GeneratedPassword)
			}
			return nil
		},
	}
}

func checkoutRetryCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Reopen a rejected order at the payment step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cmd.Context()
			machine, err := opts.machine(c)
			if err != nil {
				return err
			}
			err = machine.Retry(c)
			if err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), machine.Session())
			return nil
		},
	}
}

func checkoutResetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget the checkout in progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cmd.Context()
			machine, err := opts.machine(c)
			if err != nil {
				return err
			}
			err = machine.Reset(c)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Checkout reset")
			return nil
		},
	}
}

func checkoutShowCmd(opts *options) *cobra.Command {
	asJSON := false

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the checkout in progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			machine, err := opts.machine(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), machine.Session())
			}
			printSession(cmd.OutOrStdout(), machine.Session())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}
