package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/MarcGrol/manualcheckout/shopper/cart"
)

func cartCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Change or show the cart",
	}

	cmd.AddCommand(cartAddCmd(opts))
	cmd.AddCommand(cartUpdateCmd(opts))
	cmd.AddCommand(cartRemoveCmd(opts))
	cmd.AddCommand(cartShowCmd(opts))
	cmd.AddCommand(cartClearCmd(opts))

	return cmd
}

func cartAddCmd(opts *options) *cobra.Command {
	item := cart.Item{}

	cmd := &cobra.Command{
		Use:   "add [id]",
		Short: "Add a product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cmd.Context()
			machine, err := opts.machine(c)
			if err != nil {
				return err
			}

			item.ID = args[0]
			if item.Name == "" {
				item.Name = item.ID
			}
			err = machine.AddItem(c, item)
			if err != nil {
				return err
			}
			printCart(cmd.OutOrStdout(), machine.Session())
			return nil
		},
	}

	cmd.Flags().StringVar(&item.Name, "name", "", "Product name")
	cmd.Flags().StringVar(&item.Image, "image", "", "Product image url")
	cmd.Flags().Int64Var(&item.UnitPrice, "price", 0, "Unit price in cents")
	cmd.Flags().IntVarP(&item.Quantity, "quantity", "q", 1, "Quantity")
	_ = cmd.MarkFlagRequired("price")

	return cmd
}

func cartUpdateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "update [id] [quantity]",
		Short: "Change the quantity of a product; zero removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			quantity, err := strconv.Atoi(args[1])
			if err != nil {
				return err
			}

			c := cmd.Context()
			machine, err := opts.machine(c)
			if err != nil {
				return err
			}
			err = machine.UpdateItem(c, args[0], quantity)
			if err != nil {
				return err
			}
			printCart(cmd.OutOrStdout(), machine.Session())
			return nil
		},
	}
}

func cartRemoveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "remove [id]",
		Short: "Remove a product from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cmd.Context()
			machine, err := opts.machine(c)
			if err != nil {
				return err
			}
			err = machine.RemoveItem(c, args[0])
			if err != nil {
				return err
			}
			printCart(cmd.OutOrStdout(), machine.Session())
			return nil
		},
	}
}

func cartShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			machine, err := opts.machine(cmd.Context())
			if err != nil {
				return err
			}
			printCart(cmd.OutOrStdout(), machine.Session())
			return nil
		},
	}
}

func cartClearCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cmd.Context()
			machine, err := opts.machine(c)
			if err != nil {
				return err
			}
			err = machine.ClearCart(c)
			if err != nil {
				return err
			}
			printCart(cmd.OutOrStdout(), machine.Session())
			return nil
		},
	}
}
