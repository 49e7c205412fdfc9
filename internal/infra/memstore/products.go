package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type productRepo struct {
	st  *state
	now func() time.Time
}

func (r *productRepo) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	needle := strings.ToLower(strings.TrimSpace(q.Q))

	hits := []model.Product{}
	for id, p := range r.st.products {
		if r.st.deleted[id] {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(p.Name+" "+p.Description), needle) {
			continue
		}
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if q.StoreID != nil && p.StoreID != *q.StoreID {
			continue
		}
		hits = append(hits, cloneProduct(p))
	}

	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		switch q.Sort {
		case "price_asc":
			if !a.Price.Equal(b.Price) {
				return a.Price.LessThan(b.Price)
			}
		case "price_desc":
			if !a.Price.Equal(b.Price) {
				return a.Price.GreaterThan(b.Price)
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		}
		return a.ID > b.ID
	})

	total := int64(len(hits))
	return paginate(hits, q.Page, q.Limit), total, nil
}

func (r *productRepo) FindByID(ctx context.Context, id int64) (model.Product, error) {
	p, ok := r.st.products[id]
	if !ok || r.st.deleted[id] {
		return model.Product{}, repo.ErrNotFound
	}
	return cloneProduct(p), nil
}

func (r *productRepo) Create(ctx context.Context, p model.Product) (model.Product, error) {
	now := r.now()
	p.ID = r.st.id()
	p.CreatedAt = now
	p.UpdatedAt = now
	r.assignChildIDs(&p)
	p.Availability = p.ComputeAvailability()
	r.st.products[p.ID] = cloneProduct(p)
	return p, nil
}

func (r *productRepo) Update(ctx context.Context, p model.Product) (model.Product, error) {
	cur, ok := r.st.products[p.ID]
	if !ok || r.st.deleted[p.ID] {
		return model.Product{}, repo.ErrNotFound
	}
	p.StoreID = cur.StoreID
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = r.now()
	r.assignChildIDs(&p)
	p.Availability = p.ComputeAvailability()
	r.st.products[p.ID] = cloneProduct(p)
	return p, nil
}

func (r *productRepo) SoftDelete(ctx context.Context, id int64) error {
	if _, ok := r.st.products[id]; !ok || r.st.deleted[id] {
		return repo.ErrNotFound
	}
	r.st.deleted[id] = true
	return nil
}

// ID=0 の子に採番し、親IDを埋める。
func (r *productRepo) assignChildIDs(p *model.Product) {
	for i := range p.Variants {
		if p.Variants[i].ID == 0 {
			p.Variants[i].ID = r.st.id()
		}
		p.Variants[i].ProductID = p.ID
	}
	for i := range p.ChoiceGroups {
		g := &p.ChoiceGroups[i]
		if g.ID == 0 {
			g.ID = r.st.id()
		}
		g.ProductID = p.ID
		for j := range g.Options {
			if g.Options[j].ID == 0 {
				g.Options[j].ID = r.st.id()
			}
			g.Options[j].GroupID = g.ID
			g.Options[j].ProductID = p.ID
		}
	}
}

func paginate[T any](in []T, page, limit int) []T {
	if limit <= 0 {
		return in
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(in) {
		return []T{}
	}
	end := start + limit
	if end > len(in) {
		end = len(in)
	}
	return in[start:end]
}
