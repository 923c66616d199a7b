package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-storefront-service/internal/model"
	"github.com/fekuna/omnipos-storefront-service/internal/promotion/dto"
	"github.com/jmoiron/sqlx"
)

const promotionColumns = "id, name, description, discount_percentage, start_date, end_date, created_at, updated_at"

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, p *model.Promotion) error {
	query := `
        INSERT INTO promotions (id, name, description, discount_percentage, start_date, end_date, created_at, updated_at)
        VALUES (:id, :name, :description, :discount_percentage, :start_date, :end_date, :created_at, :updated_at)
    `
	if _, err := r.DB.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("failed to create promotion: %w", err)
	}
	return nil
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Promotion, error) {
	var promotion model.Promotion
	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE id = $1 LIMIT 1`
	err := r.DB.GetContext(ctx, &promotion, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &promotion, nil
}

// FindByIDs skips ids that do not exist.
func (r *PGRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*model.Promotion, error) {
	out := make(map[string]*model.Promotion, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(`SELECT `+promotionColumns+` FROM promotions WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}

	var rows []model.Promotion
	if err := r.DB.SelectContext(ctx, &rows, r.DB.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to load promotions: %w", err)
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.PromotionFilters) ([]model.Promotion, int, error) {
	var promotions []model.Promotion
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.ActiveAt != nil {
		conditions = append(conditions, "start_date <= :at AND end_date >= :at")
		args["at"] = *f.ActiveAt
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	cstmt, err := r.DB.PrepareNamedContext(ctx, "SELECT count(*) FROM promotions"+whereClause)
	if err != nil {
		return nil, 0, err
	}
	defer cstmt.Close()
	if err := cstmt.GetContext(ctx, &count, args); err != nil {
		return nil, 0, fmt.Errorf("failed to count promotions: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM promotions%s ORDER BY start_date DESC, id", promotionColumns, whereClause)
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

	if err := nstmt.SelectContext(ctx, &promotions, args); err != nil {
		return nil, 0, fmt.Errorf("failed to list promotions: %w", err)
	}
	return promotions, count, nil
}

func (r *PGRepository) Update(ctx context.Context, p *model.Promotion) error {
	query := `
        UPDATE promotions
        SET name = :name,
            description = :description,
            discount_percentage = :discount_percentage,
            start_date = :start_date,
            end_date = :end_date,
            updated_at = :updated_at
        WHERE id = :id
    `
	if _, err := r.DB.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("failed to update promotion: %w", err)
	}
	return nil
}

// Delete leaves products pointing at the promotion. The reference is weak
// and resolves to no discount once the row is gone.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.DB.ExecContext(ctx, "DELETE FROM promotions WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete promotion: %w", err)
	}
	return nil
}
