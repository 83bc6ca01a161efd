package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vladislavdragonenkov/cartstore/internal/domain"
)

func showCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print cart contents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.report(c.store.Snapshot())
			return nil
		},
	}
}

func printSnapshot(w io.Writer, snapshot domain.CartSnapshot) {
	if len(snapshot.Products) == 0 {
		_, _ = fmt.Fprintln(w, "Cart is empty")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tTITLE\tPRICE\tQTY")
	for _, p := range snapshot.Products {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", p.ID, p.Title, p.Price.StringFixed(2), p.Quantity)
	}
	_ = tw.Flush()
	_, _ = fmt.Fprintf(w, "Items: %d  Total: %s\n", snapshot.ProductsCount, snapshot.TotalAmount.StringFixed(2))
}
