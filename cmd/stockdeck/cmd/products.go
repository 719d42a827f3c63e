package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stock-deck/stockdeck/internal/api"
	"github.com/stock-deck/stockdeck/internal/domain/guard"
	"github.com/stock-deck/stockdeck/internal/domain/validation"
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List and manage products",
	Long: `List, create, update, and delete products, and move the catalog
in and out of the backend as CSV.

Examples:
  stockdeck products list --q widget --sort price --order DESC
  stockdeck products create --name Widget --category tools --price 9.99 --stock 4
  stockdeck products export --out catalog.csv
  stockdeck products import catalog.csv`,
}

var productQuery struct {
	q        string
	category string
	sort     string
	order    string
	page     int
	pageSize int
}

var productForm struct {
	name     string
	category string
	price    float64
	stock    int
}

var productExportOut string

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List products",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRoute(guard.RouteProducts, func(ctx context.Context, a *app) error {
			page, err := a.client.Products(ctx, api.ProductQuery{
				Q:        productQuery.q,
				Category: productQuery.category,
				Sort:     productQuery.sort,
				Order:    strings.ToUpper(productQuery.order),
				Page:     productQuery.page,
				PageSize: productQuery.pageSize,
			})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tPRICE\tSTOCK")
			for _, p := range page.Items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%d\n", p.ID, p.Name, p.Category, float64(p.Price), p.Stock)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Printf("page %d/%d, %d products total\n", page.Page, page.Pages, page.Total)
			return nil
		})
	},
}

var productsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a product",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRoute(guard.RouteProducts, func(ctx context.Context, a *app) error {
			if err := validateProductForm(); err != nil {
				return err
			}
			p, err := a.client.CreateProduct(ctx, productInput())
			if err != nil {
				return err
			}
			fmt.Printf("created product %s (%s)\n", p.ID, p.Name)
			return nil
		})
	},
}

var productsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRoute(guard.RouteProducts, func(ctx context.Context, a *app) error {
			if err := validateProductForm(); err != nil {
				return err
			}
			p, err := a.client.UpdateProduct(ctx, args[0], productInput())
			if err != nil {
				return err
			}
			fmt.Printf("updated product %s (version %d)\n", p.ID, p.Version)
			return nil
		})
	},
}

var productsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRoute(guard.RouteProducts, func(ctx context.Context, a *app) error {
			if err := a.client.DeleteProduct(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted product %s\n", args[0])
			return nil
		})
	},
}

var productsCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List known product categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRoute(guard.RouteProducts, func(ctx context.Context, a *app) error {
			cats, err := a.client.Categories(ctx)
			if err != nil {
				return err
			}
			for _, c := range cats {
				fmt.Println(c)
			}
			return nil
		})
	},
}

var productsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the catalog as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRoute(guard.RouteProducts, func(ctx context.Context, a *app) error {
			out := os.Stdout
			if productExportOut != "" {
				f, err := os.Create(productExportOut)
				if err != nil {
					return fmt.Errorf("create export file: %w", err)
				}
				defer f.Close()
				out = f
			}
			if err := a.client.ExportProducts(ctx, out); err != nil {
				return err
			}
			if productExportOut != "" {
				fmt.Printf("exported catalog to %s\n", productExportOut)
			}
			return nil
		})
	},
}

var productsImportCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import products from a CSV file",
	Long: `Import products from a CSV file.

The backend validates row by row: valid rows are inserted, invalid rows
are reported with their row number and reason. A file with invalid rows
is not an error; the report says what was skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRoute(guard.RouteProducts, func(ctx context.Context, a *app) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer f.Close()

			report, err := a.client.ImportProducts(ctx, f.Name(), f)
			if err != nil {
				return err
			}

			fmt.Printf("%d rows: %d inserted, %d invalid\n",
				report.TotalRows, report.Inserted, report.Invalid)
			for _, d := range report.InvalidDetails {
				fmt.Printf("  row %d: %s\n", d.Row, d.Reason)
			}
			return nil
		})
	},
}

func init() {
	productsListCmd.Flags().StringVar(&productQuery.q, "q", "", "name search")
	productsListCmd.Flags().StringVar(&productQuery.category, "category", "", "category filter")
	productsListCmd.Flags().StringVar(&productQuery.sort, "sort", "", "sort column (name, price, stock)")
	productsListCmd.Flags().StringVar(&productQuery.order, "order", "ASC", "sort order (ASC, DESC)")
	productsListCmd.Flags().IntVar(&productQuery.page, "page", 1, "page number")
	productsListCmd.Flags().IntVar(&productQuery.pageSize, "page-size", 20, "page size")

	for _, c := range []*cobra.Command{productsCreateCmd, productsUpdateCmd} {
		c.Flags().StringVar(&productForm.name, "name", "", "product name")
		c.Flags().StringVar(&productForm.category, "category", "", "product category")
		c.Flags().Float64Var(&productForm.price, "price", 0, "unit price")
		c.Flags().IntVar(&productForm.stock, "stock", 0, "stock count")
	}

	productsExportCmd.Flags().StringVar(&productExportOut, "out", "", "output file (default: stdout)")

	productsCmd.AddCommand(productsListCmd, productsCreateCmd, productsUpdateCmd,
		productsDeleteCmd, productsCategoriesCmd, productsExportCmd, productsImportCmd)
	rootCmd.AddCommand(productsCmd)
}

func productInput() api.ProductInput {
	return api.ProductInput{
		Name:     productForm.name,
		Category: productForm.category,
		Price:    productForm.price,
		Stock:    productForm.stock,
	}
}

func validateProductForm() error {
	v, err := validation.New()
	if err != nil {
		return err
	}
	return v.Validate(validation.ProductForm{
		Name:     productForm.name,
		Category: productForm.category,
		Price:    productForm.price,
		Stock:    productForm.stock,
	})
}

// withRoute wires an app, checks the route guard, and runs fn under a
// signal-aware context. Shared by every backend-touching command.
func withRoute(route string, fn func(context.Context, *app) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	if err := a.requireRoute(route); err != nil {
		return err
	}
	return fn(ctx, a)
}
