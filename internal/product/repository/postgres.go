package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-storefront-service/internal/model"
	"github.com/fekuna/omnipos-storefront-service/internal/product/dto"
	"github.com/jmoiron/sqlx"
)

const productColumns = `id, name, description, price, stock_quantity, category, promotion_id,
            low_stock_threshold, image_url, created_at, updated_at`

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, p *model.Product) error {
	query := `
        INSERT INTO products (
            id, name, description, price, stock_quantity, category, promotion_id,
            low_stock_threshold, image_url, created_at, updated_at
        )
        VALUES (
            :id, :name, :description, :price, :stock_quantity, :category, :promotion_id,
            :low_stock_threshold, :image_url, :created_at, :updated_at
        )
    `
	if _, err := r.DB.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Product, error) {
	var product model.Product
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 LIMIT 1`
	err := r.DB.GetContext(ctx, &product, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *PGRepository) FindByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT `+productColumns+` FROM products WHERE id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}

	var products []model.Product
	if err := r.DB.SelectContext(ctx, &products, r.DB.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	return products, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.ProductFilters) ([]model.Product, int, error) {
	var products []model.Product
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.Category != "" {
		conditions = append(conditions, "category = :category")
		args["category"] = f.Category
	}
	if f.SearchQuery != "" {
		conditions = append(conditions, "(name ILIKE :search OR description ILIKE :search)")
		args["search"] = "%" + f.SearchQuery + "%"
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM products" + whereClause
	cstmt, err := r.DB.PrepareNamedContext(ctx, countQuery)
	if err != nil {
		return nil, 0, err
	}
	defer cstmt.Close()
	if err := cstmt.GetContext(ctx, &count, args); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	// Whitelisted sort columns
	orderBy := "created_at DESC"
	if f.SortBy != "" {
		switch f.SortBy {
		case "name":
			orderBy = "name"
		case "price":
			orderBy = "price"
		case "stock":
			orderBy = "stock_quantity"
		default:
			orderBy = "created_at"
		}
		if strings.ToLower(f.SortOrder) == "asc" {
			orderBy += " ASC"
		} else {
			orderBy += " DESC"
		}
	}

	query := fmt.Sprintf("SELECT %s FROM products%s ORDER BY %s, id", productColumns, whereClause, orderBy)

	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (page-1)*f.PageSize)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	if err := nstmt.SelectContext(ctx, &products, args); err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}

	return products, count, nil
}

func (r *PGRepository) Update(ctx context.Context, p *model.Product) error {
	query := `
        UPDATE products
        SET name = :name,
            description = :description,
            price = :price,
            category = :category,
            promotion_id = :promotion_id,
            low_stock_threshold = :low_stock_threshold,
            image_url = :image_url,
            updated_at = :updated_at
        WHERE id = :id
    `
	if _, err := r.DB.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

func (r *PGRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM products_history WHERE product_id = $1", id); err != nil {
		return fmt.Errorf("failed to delete product history: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	return tx.Commit()
}
