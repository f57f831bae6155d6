package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/resto-platform/internal/domain/catalog"
)

const (
	menuItemColumns = `id, restaurant_id, name, description, price, category,
		allergens, is_available, created_at`

	getMenuItemSQL = `SELECT ` + menuItemColumns + ` FROM menu_items
		WHERE restaurant_id = $1 AND id = $2`

	listMenuItemsSQL = `SELECT ` + menuItemColumns + ` FROM menu_items
		WHERE restaurant_id = $1 ORDER BY category, name`

	insertMenuItemSQL = `INSERT INTO menu_items (
			id, restaurant_id, name, description, price, category, allergens, is_available
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	upsertMenuItemSQL = insertMenuItemSQL + `
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, description = EXCLUDED.description,
			price = EXCLUDED.price, category = EXCLUDED.category,
			allergens = EXCLUDED.allergens, is_available = EXCLUDED.is_available`

	setMenuItemAvailabilitySQL = `UPDATE menu_items SET is_available = $3
		WHERE restaurant_id = $1 AND id = $2`

	restaurantExistsSQL = `SELECT EXISTS (SELECT 1 FROM restaurants WHERE id = $1)`

	tableExistsSQL = `SELECT EXISTS (
			SELECT 1 FROM dining_tables WHERE restaurant_id = $1 AND id = $2
		)`

	insertRestaurantSQL = `INSERT INTO restaurants (id, name, address, phone)
		VALUES ($1, $2, $3, $4)`

	insertTableSQL = `INSERT INTO dining_tables (id, restaurant_id, table_number, capacity)
		VALUES ($1, $2, $3, $4)`

	listTablesSQL = `SELECT id, restaurant_id, table_number, capacity
		FROM dining_tables WHERE restaurant_id = $1 ORDER BY table_number`
)

var (
	_ catalog.Catalog       = (*CatalogRepository)(nil)
	_ catalog.TableRegistry = (*CatalogRepository)(nil)
	_ catalog.Registry      = (*CatalogRepository)(nil)
)

// CatalogRepository implements the menu, table, and restaurant lookups backed
// by PostgreSQL, plus the minimal write surface used by seeding and ingest.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// GetItem returns a menu item scoped to a restaurant.
func (r *CatalogRepository) GetItem(ctx context.Context, restaurantID, itemID string) (*catalog.MenuItem, error) {
	rows, err := r.pool.Query(ctx, getMenuItemSQL, restaurantID, itemID)
	if err != nil {
		return nil, fmt.Errorf("getting menu item %q: %w", itemID, err)
	}
	mi, err := pgx.CollectExactlyOneRow(rows, scanMenuItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrItemNotFound
		}
		return nil, fmt.Errorf("getting menu item %q: %w", itemID, err)
	}
	return &mi, nil
}

// ListItems returns all menu items of a restaurant grouped by category.
func (r *CatalogRepository) ListItems(ctx context.Context, restaurantID string) ([]catalog.MenuItem, error) {
	rows, err := r.pool.Query(ctx, listMenuItemsSQL, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("listing menu for restaurant %q: %w", restaurantID, err)
	}
	items, err := pgx.CollectRows(rows, scanMenuItem)
	if err != nil {
		return nil, fmt.Errorf("listing menu for restaurant %q: %w", restaurantID, err)
	}
	return items, nil
}

// CreateItem inserts a menu item. Allergens are serialized to JSONB here, at
// the storage boundary.
func (r *CatalogRepository) CreateItem(ctx context.Context, mi *catalog.MenuItem) error {
	return r.writeItem(ctx, insertMenuItemSQL, mi)
}

// UpsertItem inserts or replaces a menu item by ID. Used by bulk ingest.
func (r *CatalogRepository) UpsertItem(ctx context.Context, mi *catalog.MenuItem) error {
	return r.writeItem(ctx, upsertMenuItemSQL, mi)
}

func (r *CatalogRepository) writeItem(ctx context.Context, sql string, mi *catalog.MenuItem) error {
	allergens := mi.Allergens
	if allergens == nil {
		allergens = []string{}
	}
	allergensJSON, err := json.Marshal(allergens)
	if err != nil {
		return fmt.Errorf("marshaling allergens for item %q: %w", mi.ID, err)
	}

	_, err = r.pool.Exec(ctx, sql,
		mi.ID, mi.RestaurantID, mi.Name, mi.Description, mi.Price,
		mi.Category, allergensJSON, mi.Available,
	)
	if err != nil {
		return fmt.Errorf("writing menu item %q: %w", mi.ID, err)
	}
	return nil
}

// SetItemAvailability toggles whether a menu item can be ordered.
func (r *CatalogRepository) SetItemAvailability(ctx context.Context, restaurantID, itemID string, available bool) error {
	tag, err := r.pool.Exec(ctx, setMenuItemAvailabilitySQL, restaurantID, itemID, available)
	if err != nil {
		return fmt.Errorf("setting availability for item %q: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrItemNotFound
	}
	return nil
}

// RestaurantExists reports whether a restaurant exists.
func (r *CatalogRepository) RestaurantExists(ctx context.Context, restaurantID string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, restaurantExistsSQL, restaurantID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking restaurant %q: %w", restaurantID, err)
	}
	return exists, nil
}

// TableExists reports whether a table belongs to a restaurant.
func (r *CatalogRepository) TableExists(ctx context.Context, restaurantID, tableID string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, tableExistsSQL, restaurantID, tableID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking table %q: %w", tableID, err)
	}
	return exists, nil
}

// CreateRestaurant inserts a restaurant.
func (r *CatalogRepository) CreateRestaurant(ctx context.Context, rest *catalog.Restaurant) error {
	_, err := r.pool.Exec(ctx, insertRestaurantSQL, rest.ID, rest.Name, rest.Address, rest.Phone)
	if err != nil {
		return fmt.Errorf("creating restaurant %q: %w", rest.ID, err)
	}
	return nil
}

// CreateTable inserts a dining table.
func (r *CatalogRepository) CreateTable(ctx context.Context, t *catalog.Table) error {
	_, err := r.pool.Exec(ctx, insertTableSQL, t.ID, t.RestaurantID, t.Number, t.Capacity)
	if err != nil {
		return fmt.Errorf("creating table %q: %w", t.ID, err)
	}
	return nil
}

// ListTables returns a restaurant's tables ordered by table number.
func (r *CatalogRepository) ListTables(ctx context.Context, restaurantID string) ([]catalog.Table, error) {
	rows, err := r.pool.Query(ctx, listTablesSQL, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("listing tables for restaurant %q: %w", restaurantID, err)
	}
	tables, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Table, error) {
		var t catalog.Table
		err := row.Scan(&t.ID, &t.RestaurantID, &t.Number, &t.Capacity)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("listing tables for restaurant %q: %w", restaurantID, err)
	}
	return tables, nil
}

func scanMenuItem(row pgx.CollectableRow) (catalog.MenuItem, error) {
	var (
		mi            catalog.MenuItem
		allergensJSON []byte
	)
	err := row.Scan(
		&mi.ID, &mi.RestaurantID, &mi.Name, &mi.Description, &mi.Price,
		&mi.Category, &allergensJSON, &mi.Available, &mi.CreatedAt,
	)
	if err != nil {
		return mi, err
	}
	if len(allergensJSON) > 0 {
		if err := json.Unmarshal(allergensJSON, &mi.Allergens); err != nil {
			return mi, fmt.Errorf("unmarshaling allergens for item %q: %w", mi.ID, err)
		}
	}
	return mi, nil
}
