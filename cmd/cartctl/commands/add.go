package commands

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/vladislavdragonenkov/cartstore/internal/domain"
)

func addCmd(c *cli) *cobra.Command {
	var (
		title string
		price string
	)

	cmd := &cobra.Command{
		Use:   "add [product-id]",
		Short: "Add a product to the cart",
		Long: "Add a product to the cart. With --catalog the product is fetched from the catalog; " +
			"otherwise --title and --price describe it.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var product domain.Product
			if c.catalog != nil {
				stop := c.watchSpinner()
				product, err = c.catalog.Get(cmd.Context(), id)
				stop()
				if err != nil {
					return fmt.Errorf("fetch product %s: %w", id, err)
				}
			} else {
				if title == "" || price == "" {
					return errors.New("--title and --price are required without --catalog")
				}
				amount, err := decimal.NewFromString(price)
				if err != nil {
					return fmt.Errorf("invalid price %q: %w", price, err)
				}
				if amount.IsNegative() {
					return fmt.Errorf("invalid price %q: must not be negative", price)
				}
				product = domain.Product{ID: id, Title: title, Price: amount}
			}

			c.report(c.store.AddToCart(product))
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "product title")
	cmd.Flags().StringVar(&price, "price", "", "product price (e.g. 9.99)")
	return cmd
}

func parseID(raw string) (domain.ProductID, error) {
	id, err := domain.ParseProductID(raw)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", raw, err)
	}
	if id.IsZero() {
		return 0, fmt.Errorf("%q: %w", raw, domain.ErrInvalidProductID)
	}
	return id, nil
}
