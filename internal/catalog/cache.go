package catalog

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCategoryCacheSize = 256

// CachedRepository serves GetCategory from an in-memory LRU. Categories are
// never updated or deleted, so entries do not need invalidation.
type CachedRepository struct {
	Repository
	categories *lru.Cache[string, Category]
}

func NewCachedRepository(repo Repository, size int) *CachedRepository {
	if size <= 0 {
		size = defaultCategoryCacheSize
	}
	cache, err := lru.New[string, Category](size)
	if err != nil {
		cache, _ = lru.New[string, Category](defaultCategoryCacheSize)
	}
	return &CachedRepository{Repository: repo, categories: cache}
}

func (r *CachedRepository) GetCategory(ctx context.Context, categoryID string) (Category, error) {
	if c, ok := r.categories.Get(categoryID); ok {
		return c, nil
	}
	c, err := r.Repository.GetCategory(ctx, categoryID)
	if err != nil {
		return Category{}, err
	}
	r.categories.Add(categoryID, c)
	return c, nil
}

func (r *CachedRepository) CreateCategory(ctx context.Context, c *Category) error {
	if err := r.Repository.CreateCategory(ctx, c); err != nil {
		return err
	}
	r.categories.Add(c.ID, *c)
	return nil
}
