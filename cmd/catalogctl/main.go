// Command catalogctl issues catalog commands to a storegrid coordinator.
//
// Every invocation opens one session, runs the command and closes the
// session. search first reports the given location with show_stores, since
// the coordinator only searches around a known location.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/dreamware/storegrid/internal/catalog"
	"github.com/dreamware/storegrid/internal/client"
	"github.com/dreamware/storegrid/internal/cluster"
)

var (
	coordinatorAddr string
	timeout         time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "catalogctl",
	Short:         "Talk to a storegrid coordinator",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&coordinatorAddr, "addr", "127.0.0.1:5000", "coordinator client address")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 40*time.Second, "overall command timeout")

	rootCmd.AddCommand(
		registerCmd(), updateCmd(), addProductCmd(), purchaseCmd(), rateCmd(),
		storesCmd(), showStoresCmd(), searchCmd(), salesCmd(), rawCmd(),
	)
}

// exchange is one command sent within a session.
type exchange struct {
	command string
	payload any
}

// run executes exchanges in one session and prints the last reply.
func run(cmd *cobra.Command, exchanges ...exchange) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	s, err := client.Dial(ctx, coordinatorAddr)
	if err != nil {
		return err
	}
	defer s.Close()

	var reply json.RawMessage
	for _, ex := range exchanges {
		if err := s.Do(ctx, ex.command, ex.payload, &reply); err != nil {
			return err
		}
	}
	return printReply(cmd.OutOrStdout(), reply)
}

func printReply(w io.Writer, reply json.RawMessage) error {
	var text string
	if json.Unmarshal(reply, &text) == nil {
		_, err := fmt.Fprintln(w, text)
		return err
	}
	var v any
	if err := json.Unmarshal(reply, &v); err != nil {
		return err
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register FILE...",
		Short: "Register stores from catalog files on the coordinator host",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exchanges := make([]exchange, 0, len(args))
			for _, path := range args {
				exchanges = append(exchanges, exchange{cluster.CmdRegister, path})
			}
			return run(cmd, exchanges...)
		},
	}
}

func updateCmd() *cobra.Command {
	var (
		price    float64
		quantity int
		remove   bool
	)
	c := &cobra.Command{
		Use:   "update STORE PRODUCT",
		Short: "Change a product's price or quantity, or remove it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := cluster.UpdateRequest{StoreName: args[0], ProductName: args[1], Remove: remove}
			if cmd.Flags().Changed("price") {
				req.Price = &price
			}
			if cmd.Flags().Changed("quantity") {
				req.Quantity = &quantity
			}
			return run(cmd, exchange{cluster.CmdUpdate, req})
		},
	}
	c.Flags().Float64Var(&price, "price", 0, "new price")
	c.Flags().IntVar(&quantity, "quantity", 0, "new available amount")
	c.Flags().BoolVar(&remove, "remove", false, "deactivate the product")
	return c
}

func addProductCmd() *cobra.Command {
	var req cluster.AddProductRequest
	c := &cobra.Command{
		Use:   "add-product STORE PRODUCT",
		Short: "Add a product to a store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.StoreName, req.ProductName = args[0], args[1]
			return run(cmd, exchange{cluster.CmdAddProduct, req})
		},
	}
	c.Flags().StringVar(&req.ProductType, "type", "", "product type")
	c.Flags().StringVar(&req.ProductImage, "image", "", "product image reference")
	c.Flags().IntVar(&req.AvailableAmount, "amount", 0, "available amount")
	c.Flags().Float64Var(&req.Price, "price", 0, "price")
	return c
}

func purchaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purchase STORE PRODUCT QUANTITY",
		Short: "Buy a product",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[2])
			}
			return run(cmd, exchange{cluster.CmdPurchase, cluster.PurchaseRequest{StoreName: args[0], ProductName: args[1], Quantity: qty}})
		},
	}
}

func rateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rate STORE STARS",
		Short: "Rate a store from 1 to 5",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stars, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid rating %q", args[1])
			}
			return run(cmd, exchange{cluster.CmdRate, cluster.RateRequest{StoreName: args[0], Stars: stars}})
		},
	}
}

func storesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stores",
		Short: "List every store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, exchange{cluster.CmdGetAllStores, "none"})
		},
	}
}

func parseLocation(lat, lon string) (catalog.Location, error) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return catalog.Location{}, fmt.Errorf("invalid latitude %q", lat)
	}
	lo, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return catalog.Location{}, fmt.Errorf("invalid longitude %q", lon)
	}
	return catalog.Location{Latitude: la, Longitude: lo}, nil
}

func showStoresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show-stores LAT LON",
		Short: "List stores within 5 km of a location",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := parseLocation(args[0], args[1])
			if err != nil {
				return err
			}
			return run(cmd, exchange{cluster.CmdShowStores, loc})
		},
	}
}

func searchCmd() *cobra.Command {
	var criteria catalog.Criteria
	c := &cobra.Command{
		Use:   "search LAT LON",
		Short: "Search stores near a location",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := parseLocation(args[0], args[1])
			if err != nil {
				return err
			}
			return run(cmd,
				exchange{cluster.CmdShowStores, loc},
				exchange{cluster.CmdSearch, criteria},
			)
		},
	}
	c.Flags().StringVar(&criteria.FoodCategory, "category", "", "food category")
	c.Flags().IntVar(&criteria.MinStars, "stars", 1, "minimum stars")
	c.Flags().StringVar(&criteria.PriceCategory, "price", "$", "price category ($, $$ or $$$)")
	return c
}

func salesCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "sales",
		Short: "Sales reports",
	}
	report := func(use, short, command string) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd, exchange{command, args[0]})
			},
		}
	}
	c.AddCommand(
		report("product STORE", "Revenue per product of one store", cluster.CmdSalesByProduct),
		report("category CATEGORY", "Revenue per store in a food category", cluster.CmdSalesByFoodCategory),
		report("type TYPE", "Revenue per store for a product type", cluster.CmdSalesByProductType),
	)
	return c
}

func rawCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "raw COMMAND [JSON]",
		Short: "Send any command with a JSON payload",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload any
			if len(args) == 2 {
				if err := json.Unmarshal([]byte(args[1]), &payload); err != nil {
					return fmt.Errorf("invalid payload: %w", err)
				}
			}
			return run(cmd, exchange{args[0], payload})
		},
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
