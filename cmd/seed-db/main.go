// Command seed-db loads a demo restaurant with tables and a menu, for local
// development and integration testing.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/resto-platform/internal/domain/catalog"
	"github.com/xenking/resto-platform/internal/repository"
)

const restaurantID = "11111111-1111-1111-1111-111111111111"

var demoRestaurant = catalog.Restaurant{
	ID:      restaurantID,
	Name:    "Demo Bistro",
	Address: "1 Demo Street",
	Phone:   "+1-555-0100",
}

var demoTables = []catalog.Table{
	{ID: "21111111-1111-1111-1111-111111111111", RestaurantID: restaurantID, Number: 1, Capacity: 2},
	{ID: "21111111-1111-1111-1111-111111111112", RestaurantID: restaurantID, Number: 2, Capacity: 4},
	{ID: "21111111-1111-1111-1111-111111111113", RestaurantID: restaurantID, Number: 3, Capacity: 4},
	{ID: "21111111-1111-1111-1111-111111111114", RestaurantID: restaurantID, Number: 4, Capacity: 6},
}

type menuEntry struct {
	id, name, description, price, category string
	allergens                              []string
}

// menuSections are inserted concurrently, one goroutine per category.
var menuSections = map[string][]menuEntry{
	"starters": {
		{id: "31111111-0001-0000-0000-000000000001", name: "Tomato Soup", description: "Roasted tomato, basil oil", price: "6.50", category: "starters"},
		{id: "31111111-0001-0000-0000-000000000002", name: "Caesar Salad", description: "Romaine, parmesan, croutons", price: "8.00", category: "starters", allergens: []string{"gluten", "dairy", "egg"}},
	},
	"mains": {
		{id: "31111111-0002-0000-0000-000000000001", name: "Classic Burger", description: "Beef patty, cheddar, brioche bun", price: "10.00", category: "mains", allergens: []string{"gluten", "dairy"}},
		{id: "31111111-0002-0000-0000-000000000002", name: "Pasta Carbonara", description: "Guanciale, pecorino, egg yolk", price: "15.00", category: "mains", allergens: []string{"gluten", "dairy", "egg"}},
		{id: "31111111-0002-0000-0000-000000000003", name: "Grilled Salmon", description: "With seasonal vegetables", price: "18.50", category: "mains", allergens: []string{"fish"}},
	},
	"desserts": {
		{id: "31111111-0003-0000-0000-000000000001", name: "Tiramisu", description: "Espresso-soaked ladyfingers", price: "7.00", category: "desserts", allergens: []string{"gluten", "dairy", "egg"}},
		{id: "31111111-0003-0000-0000-000000000002", name: "Sorbet", description: "Two scoops, ask for flavours", price: "5.00", category: "desserts"},
	},
	"drinks": {
		{id: "31111111-0004-0000-0000-000000000001", name: "House Lemonade", description: "", price: "3.50", category: "drinks"},
		{id: "31111111-0004-0000-0000-000000000002", name: "Espresso", description: "", price: "2.50", category: "drinks"},
	},
}

func main() {
	var databaseURL string
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := repository.NewCatalogRepository(pool)

	if err := repo.CreateRestaurant(ctx, &demoRestaurant); err != nil {
		return errors.Wrap(err, "create restaurant")
	}
	slog.Info("restaurant created", slog.String("id", restaurantID))

	for i := range demoTables {
		if err := repo.CreateTable(ctx, &demoTables[i]); err != nil {
			return errors.Wrapf(err, "create table %d", demoTables[i].Number)
		}
	}
	slog.Info("tables created", slog.Int("count", len(demoTables)))

	g, ctx := errgroup.WithContext(ctx)
	for section, entries := range menuSections {
		g.Go(seedSection(ctx, repo, section, entries))
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "seed menu")
	}

	return nil
}

func seedSection(ctx context.Context, repo *repository.CatalogRepository, section string, entries []menuEntry) func() error {
	return func() error {
		for _, e := range entries {
			price, err := decimal.NewFromString(e.price)
			if err != nil {
				return errors.Wrapf(err, "parse price for %s", e.name)
			}

			mi := catalog.MenuItem{
				ID:           e.id,
				RestaurantID: restaurantID,
				Name:         e.name,
				Description:  e.description,
				Price:        price,
				Category:     e.category,
				Allergens:    e.allergens,
				Available:    true,
			}
			if err := repo.UpsertItem(ctx, &mi); err != nil {
				return errors.Wrapf(err, "upsert %s", e.name)
			}
		}

		slog.Info("menu section seeded", slog.String("section", section), slog.Int("items", len(entries)))
		return nil
	}
}
