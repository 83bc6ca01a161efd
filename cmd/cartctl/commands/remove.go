package commands

import (
	"github.com/spf13/cobra"
)

func removeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "remove [product-id]",
		Aliases: []string{"rm"},
		Short:   "Remove a product line from the cart",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Невалидный идентификатор обрабатывает сама корзина: она уведомит об ошибке.
			id, _ := parseID(args[0])
			_, snapshot := c.store.RemoveFromCart(id)
			c.report(snapshot)
			return nil
		},
	}
}

func clearCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all products from the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.report(c.store.ClearCart())
			return nil
		},
	}
}
