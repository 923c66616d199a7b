package usecase

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-storefront-service/internal/apperror"
	"github.com/fekuna/omnipos-storefront-service/internal/inventory/threshold"
	"github.com/fekuna/omnipos-storefront-service/internal/model"
	"github.com/fekuna/omnipos-storefront-service/internal/product"
	"github.com/fekuna/omnipos-storefront-service/internal/product/dto"
	"github.com/fekuna/omnipos-storefront-service/pkg/cache"
	"github.com/fekuna/omnipos-storefront-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	indexName       = "products"
	listCacheTTL    = 5 * time.Minute
	listCachePrefix = "products:list:"
)

const indexMapping = `{
	"mappings": {
		"properties": {
			"name": { "type": "text" },
			"description": { "type": "text" },
			"category": { "type": "keyword" },
			"price": { "type": "double" },
			"stock_quantity": { "type": "integer" },
			"created_at": { "type": "date" }
		}
	}
}`

type productUseCase struct {
	repo       product.Repository
	promotions product.PromotionSource
	cache      *cache.RedisClient
	es         product.Searcher
	policy     threshold.Policy
	logger     logger.ZapLogger
	now        func() time.Time
}

// NewProductUseCase wires the catalog. cache and es may be nil.
func NewProductUseCase(repo product.Repository, promotions product.PromotionSource, cache *cache.RedisClient, es product.Searcher, policy threshold.Policy, log logger.ZapLogger) product.UseCase {
	return &productUseCase{
		repo:       repo,
		promotions: promotions,
		cache:      cache,
		es:         es,
		policy:     policy,
		logger:     log,
		now:        time.Now,
	}
}

func validateFields(name string, price decimal.Decimal, category string, lowStock *int) error {
	if name == "" {
		return &apperror.ValidationError{Field: "name", Reason: "is required"}
	}
	if price.IsNegative() {
		return &apperror.ValidationError{Field: "price", Reason: "must not be negative"}
	}
	if category != "" && !model.ProductCategory(category).Valid() {
		return &apperror.ValidationError{Field: "category", Reason: "unknown category " + category}
	}
	if lowStock != nil && *lowStock < 1 {
		return &apperror.ValidationError{Field: "low_stock_threshold", Reason: "must be at least 1"}
	}
	return nil
}

func (uc *productUseCase) CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.ProductView, error) {
	if err := validateFields(input.Name, input.Price, input.Category, input.LowStockThreshold); err != nil {
		return nil, err
	}
	if input.StockQuantity < 0 {
		return nil, &apperror.ValidationError{Field: "stock_quantity", Reason: "must not be negative"}
	}

	now := uc.now()
	p := &model.Product{
		BaseModel:         model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		Name:              input.Name,
		Description:       input.Description,
		Price:             input.Price,
		StockQuantity:     input.StockQuantity,
		Category:          model.ProductCategory(input.Category),
		PromotionID:       input.PromotionID,
		LowStockThreshold: input.LowStockThreshold,
		ImageURL:          input.ImageURL,
	}

	if err := uc.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	go uc.InvalidateListCache(context.Background())
	go uc.syncToElastic(context.Background(), p)

	return uc.toView(ctx, p)
}

func (uc *productUseCase) syncToElastic(ctx context.Context, p *model.Product) {
	if uc.es == nil {
		return
	}
	_ = uc.es.CreateIndex(ctx, indexName, indexMapping)

	if err := uc.es.Index(ctx, indexName, p.ID, p); err != nil {
		uc.logger.Error("failed to index product", zap.String("product_id", p.ID), zap.Error(err))
	}
}

func (uc *productUseCase) GetProductView(ctx context.Context, id string) (*model.ProductView, error) {
	p, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &apperror.ProductNotFoundError{ProductID: id}
	}
	return uc.toView(ctx, p)
}

type cachedList struct {
	Products []model.Product
	Count    int
}

func (uc *productUseCase) ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.ProductView, int, error) {
	products, count, err := uc.listRaw(ctx, filters)
	if err != nil {
		return nil, 0, err
	}
	views, err := uc.toViews(ctx, products)
	if err != nil {
		return nil, 0, err
	}
	return views, count, nil
}

// listRaw caches products, not views, so promotion windows are evaluated on every read.
func (uc *productUseCase) listRaw(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error) {
	cacheKey, err := generateCacheKey(filters)
	if err == nil && uc.cache != nil {
		val, err := uc.cache.Client.Get(ctx, cacheKey).Result()
		if err == nil {
			var result cachedList
			if err := json.Unmarshal([]byte(val), &result); err == nil {
				return result.Products, result.Count, nil
			}
		}
	}

	if filters.SearchQuery != "" && uc.es != nil {
		products, count, err := uc.searchElastic(ctx, filters)
		if err == nil {
			return products, count, nil
		}
		uc.logger.Error("ES search failed, falling back to DB", zap.Error(err))
	}

	products, count, err := uc.repo.FindAll(ctx, filters)
	if err != nil {
		return nil, 0, err
	}

	if cacheKey != "" && uc.cache != nil {
		if data, err := json.Marshal(cachedList{Products: products, Count: count}); err == nil {
			uc.cache.Client.Set(ctx, cacheKey, data, listCacheTTL)
		}
	}

	return products, count, nil
}

func (uc *productUseCase) searchElastic(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error) {
	must := []map[string]interface{}{
		{
			"multi_match": map[string]interface{}{
				"query":     filters.SearchQuery,
				"fields":    []string{"name^3", "description"},
				"fuzziness": "AUTO",
			},
		},
	}
	if filters.Category != "" {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"category": filters.Category},
		})
	}

	q := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"must": must},
		},
	}
	if filters.PageSize > 0 {
		page := filters.Page
		if page < 1 {
			page = 1
		}
		q["from"] = (page - 1) * filters.PageSize
		q["size"] = filters.PageSize
	}

	res, err := uc.es.Search(ctx, indexName, q)
	if err != nil {
		return nil, 0, err
	}

	products := make([]model.Product, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var p model.Product
		if err := json.Unmarshal(hit.Source, &p); err != nil {
			uc.logger.Warn("skipping malformed search hit", zap.String("id", hit.ID), zap.Error(err))
			continue
		}
		products = append(products, p)
	}
	return products, res.Hits.Total.Value, nil
}

func generateCacheKey(filters *dto.ProductFilters) (string, error) {
	data, err := json.Marshal(filters)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%x", listCachePrefix, md5.Sum(data)), nil
}

// InvalidateListCache drops every cached product listing. Stock and price
// changes make all of them stale.
func (uc *productUseCase) InvalidateListCache(ctx context.Context) {
	if uc.cache == nil {
		return
	}
	keys, err := uc.cache.Client.Keys(ctx, listCachePrefix+"*").Result()
	if err != nil {
		uc.logger.Warn("failed to list product cache keys", zap.Error(err))
		return
	}
	if len(keys) > 0 {
		uc.cache.Client.Del(ctx, keys...)
	}
}

func (uc *productUseCase) UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.ProductView, error) {
	if err := validateFields(input.Name, input.Price, input.Category, input.LowStockThreshold); err != nil {
		return nil, err
	}

	p, err := uc.repo.FindByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &apperror.ProductNotFoundError{ProductID: input.ID}
	}

	p.Name = input.Name
	p.Description = input.Description
	p.Price = input.Price
	p.Category = model.ProductCategory(input.Category)
	p.PromotionID = input.PromotionID
	p.LowStockThreshold = input.LowStockThreshold
	p.ImageURL = input.ImageURL
	p.UpdatedAt = uc.now()

	if err := uc.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	go uc.InvalidateListCache(context.Background())
	go uc.syncToElastic(context.Background(), p)

	return uc.toView(ctx, p)
}

func (uc *productUseCase) DeleteProduct(ctx context.Context, id string) error {
	p, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return &apperror.ProductNotFoundError{ProductID: id}
	}

	if err := uc.repo.Delete(ctx, id); err != nil {
		return err
	}

	go uc.InvalidateListCache(context.Background())
	if uc.es != nil {
		go func() {
			if err := uc.es.Delete(context.Background(), indexName, id); err != nil {
				uc.logger.Error("failed to delete product from ES", zap.Error(err))
			}
		}()
	}

	return nil
}

func (uc *productUseCase) toView(ctx context.Context, p *model.Product) (*model.ProductView, error) {
	views, err := uc.toViews(ctx, []model.Product{*p})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// toViews resolves promotions in one lookup. A dangling or inactive
// promotion means no discount.
func (uc *productUseCase) toViews(ctx context.Context, products []model.Product) ([]model.ProductView, error) {
	var promoIDs []string
	seen := map[string]bool{}
	for _, p := range products {
		if p.PromotionID != nil && *p.PromotionID != "" && !seen[*p.PromotionID] {
			seen[*p.PromotionID] = true
			promoIDs = append(promoIDs, *p.PromotionID)
		}
	}

	promos := map[string]*model.Promotion{}
	if len(promoIDs) > 0 && uc.promotions != nil {
		found, err := uc.promotions.FindByIDs(ctx, promoIDs)
		if err != nil {
			return nil, err
		}
		promos = found
	}

	now := uc.now()
	views := make([]model.ProductView, 0, len(products))
	for _, p := range products {
		v := model.ProductView{
			Product:            p,
			EffectivePrice:     p.Price,
			DiscountPercentage: decimal.Zero,
		}
		if p.PromotionID != nil {
			if promo, ok := promos[*p.PromotionID]; ok && promo.ActiveAt(now) {
				v.EffectivePrice = promo.DiscountedPrice(p.Price)
				v.DiscountPercentage = promo.DiscountPercentage
			}
		}
		status, t := uc.policy.StatusOf(p.StockQuantity, p.LowStockThreshold)
		v.StockStatus = string(status)
		v.EffectiveThreshold = t
		views = append(views, v)
	}
	return views, nil
}
