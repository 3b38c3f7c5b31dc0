package cli

import (
	"context"

	"github.com/Manish6202/MaharaniStore-sub001/src/infrastructure/log"
	"github.com/Manish6202/MaharaniStore-sub001/src/services/inventory"
	"github.com/Manish6202/MaharaniStore-sub001/src/services/user"

	"github.com/spf13/cobra"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert sample products and users if they are missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApplication(ctx, log.NewLogger(), false)
			if err != nil {
				return err
			}
			defer app.Close()
			return seedCatalog(ctx, app)
		},
	}
}

var sampleProducts = []inventory.Product{
	{ID: "p-atta-5kg", Name: "Aashirvaad Atta 5kg", Category: "staples", Price: 245, Stock: 40, IsActive: true},
	{ID: "p-toor-dal-1kg", Name: "Toor Dal 1kg", Category: "staples", Price: 160, Stock: 60, IsActive: true},
	{ID: "p-basmati-1kg", Name: "Basmati Rice 1kg", Category: "staples", Price: 130, Stock: 50, IsActive: true},
	{ID: "p-milk-1l", Name: "Toned Milk 1L", Category: "dairy", Price: 56, Stock: 100, IsActive: true},
	{ID: "p-paneer-200g", Name: "Paneer 200g", Category: "dairy", Price: 90, Stock: 25, IsActive: true},
	{ID: "p-masala-chai", Name: "Masala Chai 250g", Category: "beverages", Price: 145, Stock: 8, IsActive: true},
}

var sampleUsers = []user.User{
	{ID: "u-asha", Name: "Asha Verma", Phone: "9876543210", Email: "asha@example.com"},
	{ID: "u-ravi", Name: "Ravi Kumar", Phone: "9123456780"},
}

// seedCatalog upserts sample data; existing documents are left untouched.
func seedCatalog(ctx context.Context, app *application) error {
	for _, product := range sampleProducts {
		if err := app.products.SeedProduct(ctx, product); err != nil {
			app.logger.Exception(ctx, "Failed to seed product: "+product.Name, err)
			return err
		}
	}
	for _, u := range sampleUsers {
		if err := app.users.SeedUser(ctx, u); err != nil {
			app.logger.Exception(ctx, "Failed to seed user: "+u.Name, err)
			return err
		}
	}
	app.logger.InfoWithExtra(ctx, "Sample data seeded", map[string]any{
		"Products": len(sampleProducts),
		"Users":    len(sampleUsers),
	})
	return nil
}
