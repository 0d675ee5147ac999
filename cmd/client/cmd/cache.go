package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"possync/internal/offline/store"
)

var (
	searchCustomers bool
	searchBarcode   bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Кэш товаров и покупателей",
}

var cacheRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Загрузить товары и покупателей с сервера",
	RunE: func(cmd *cobra.Command, _ []string) error {
		res, err := app.RefreshCache(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка обновления кэша: %w", err)
		}

		return render(cmd, res, func(w io.Writer) {
			fmt.Fprintf(w, "%s Кэш обновлен: товаров %d, покупателей %d\n", okMark("✓"), res.Products, res.Customers)
		})
	},
}

var cacheSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Искать в кэше без сети",
	Long: `Ищет подстроку без учета регистра: у товаров в названии, артикуле и
штрихкоде, у покупателей (--customers) в имени, телефоне и email.
С --barcode ищет товар по точному штрихкоду.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var query string
		if len(args) == 1 {
			query = args[0]
		}

		switch {
		case searchBarcode:
			p, err := app.LookupBarcode(ctx, query)
			if err != nil {
				return err
			}
			return render(cmd, p, func(w io.Writer) { printProducts(w, []*store.Product{p}) })
		case searchCustomers:
			found, err := app.SearchCustomers(ctx, query)
			if err != nil {
				return err
			}
			return render(cmd, found, func(w io.Writer) { printCustomers(w, found) })
		default:
			found, err := app.SearchProducts(ctx, query)
			if err != nil {
				return err
			}
			return render(cmd, found, func(w io.Writer) { printProducts(w, found) })
		}
	},
}

func printProducts(w io.Writer, products []*store.Product) {
	if len(products) == 0 {
		fmt.Fprintln(w, "Ничего не найдено")
		return
	}
	for _, p := range products {
		fmt.Fprintf(w, "%-10s %-28s %-14s %10.2f  остаток %d\n",
			p.SKU, p.Name, p.Barcode, float64(p.Price)/100, p.Stock)
	}
}

func printCustomers(w io.Writer, customers []*store.Customer) {
	if len(customers) == 0 {
		fmt.Fprintln(w, "Ничего не найдено")
		return
	}
	for _, c := range customers {
		fmt.Fprintf(w, "%-8s %-28s %-14s %s\n", c.ID, c.Name, c.Phone, c.Email)
	}
}

func init() {
	cacheSearchCmd.Flags().BoolVar(&searchCustomers, "customers", false, "искать покупателей")
	cacheSearchCmd.Flags().BoolVar(&searchBarcode, "barcode", false, "найти товар по штрихкоду")
	cacheCmd.AddCommand(cacheRefreshCmd, cacheSearchCmd)
}
