package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/petalcrumb/pos-engine/internal/pricing"
)

// ErrProductNotFound is returned when no product matches the given reference.
var ErrProductNotFound = errors.New("product not found")

// Repo reads the catalog from Postgres. Products are stored normalized across
// option, variant and add-on tables and assembled into a pricing.PriceSpec on
// load.
type Repo struct {
	Pool *pgxpool.Pool
}

// ListCategories returns categories in display order.
func (r *Repo) ListCategories(ctx context.Context) ([]Category, error) {
	const q = `SELECT slug, name FROM categories ORDER BY position, slug`
	rows, err := r.Pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.Slug, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountProducts counts active products matching the filters.
func (r *Repo) CountProducts(ctx context.Context, params ListParams) (int64, error) {
	const q = `
SELECT count(*)
FROM products
WHERE active
  AND ($1 = '' OR category_slug = $1)
  AND ($2 = '' OR name ILIKE '%' || $2 || '%')`
	var total int64
	if err := r.Pool.QueryRow(ctx, q, params.Category, params.Query).Scan(&total); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return total, nil
}

// ListProducts returns one page of active products matching the filters.
func (r *Repo) ListProducts(ctx context.Context, params ListParams) ([]ProductSummary, error) {
	const q = `
SELECT id, slug, name, category_slug, base_price, image_url
FROM products
WHERE active
  AND ($1 = '' OR category_slug = $1)
  AND ($2 = '' OR name ILIKE '%' || $2 || '%')
ORDER BY name, id
LIMIT $3 OFFSET $4`
	offset := (params.Page - 1) * params.Limit
	if offset < 0 {
		offset = 0
	}
	rows, err := r.Pool.Query(ctx, q, params.Category, params.Query, params.Limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []ProductSummary
	for rows.Next() {
		var p ProductSummary
		if err := rows.Scan(&p.ID, &p.Slug, &p.Name, &p.Category, &p.BasePrice, &p.ImageURL); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetBySlug loads one product with its full price spec.
func (r *Repo) GetBySlug(ctx context.Context, slug string) (Product, error) {
	return r.getProduct(ctx, `WHERE slug = $1`, slug)
}

// GetByID loads one product with its full price spec.
func (r *Repo) GetByID(ctx context.Context, id string) (Product, error) {
	return r.getProduct(ctx, `WHERE id = $1`, id)
}

func (r *Repo) getProduct(ctx context.Context, where string, arg any) (Product, error) {
	q := `
SELECT id, slug, name, description, category_slug, image_url, active,
       base_price, allows_custom_price, requires_kitchen, requires_design
FROM products ` + where
	var p Product
	err := r.Pool.QueryRow(ctx, q, arg).Scan(
		&p.ID, &p.Slug, &p.Name, &p.Description, &p.Category, &p.ImageURL, &p.Active,
		&p.Spec.BasePrice, &p.Spec.AllowsCustomPrice, &p.RequiresKitchen, &p.RequiresDesign,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	if err := r.loadOptions(ctx, &p); err != nil {
		return Product{}, err
	}
	if err := r.loadVariants(ctx, &p); err != nil {
		return Product{}, err
	}
	if err := r.loadAddonGroups(ctx, &p); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *Repo) loadOptions(ctx context.Context, p *Product) error {
	const optQ = `
SELECT id, name FROM product_options
WHERE product_id = $1 ORDER BY position, id`
	rows, err := r.Pool.Query(ctx, optQ, p.ID)
	if err != nil {
		return fmt.Errorf("list options: %w", err)
	}
	defer rows.Close()
	index := make(map[string]int)
	for rows.Next() {
		var opt pricing.Option
		if err := rows.Scan(&opt.ID, &opt.Name); err != nil {
			return fmt.Errorf("scan option: %w", err)
		}
		index[opt.ID] = len(p.Spec.Options)
		p.Spec.Options = append(p.Spec.Options, opt)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(p.Spec.Options) == 0 {
		return nil
	}

	const valQ = `
SELECT option_id, id, name, price_adjustment FROM product_option_values
WHERE product_id = $1 ORDER BY position, id`
	vrows, err := r.Pool.Query(ctx, valQ, p.ID)
	if err != nil {
		return fmt.Errorf("list option values: %w", err)
	}
	defer vrows.Close()
	for vrows.Next() {
		var optionID string
		var v pricing.OptionValue
		if err := vrows.Scan(&optionID, &v.ID, &v.Name, &v.Adjustment); err != nil {
			return fmt.Errorf("scan option value: %w", err)
		}
		if i, ok := index[optionID]; ok {
			p.Spec.Options[i].Values = append(p.Spec.Options[i].Values, v)
		}
	}
	return vrows.Err()
}

func (r *Repo) loadVariants(ctx context.Context, p *Product) error {
	const varQ = `
SELECT id, price FROM product_variants
WHERE product_id = $1 ORDER BY id`
	rows, err := r.Pool.Query(ctx, varQ, p.ID)
	if err != nil {
		return fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()
	index := make(map[string]int)
	for rows.Next() {
		var v pricing.Variant
		if err := rows.Scan(&v.ID, &v.Price); err != nil {
			return fmt.Errorf("scan variant: %w", err)
		}
		index[v.ID] = len(p.Spec.Variants)
		p.Spec.Variants = append(p.Spec.Variants, v)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(p.Spec.Variants) == 0 {
		return nil
	}

	const valQ = `
SELECT variant_id, option_id, value_id FROM product_variant_values
WHERE product_id = $1 ORDER BY variant_id, option_id`
	vrows, err := r.Pool.Query(ctx, valQ, p.ID)
	if err != nil {
		return fmt.Errorf("list variant values: %w", err)
	}
	defer vrows.Close()
	for vrows.Next() {
		var variantID string
		var vv pricing.VariantValue
		if err := vrows.Scan(&variantID, &vv.OptionID, &vv.ValueID); err != nil {
			return fmt.Errorf("scan variant value: %w", err)
		}
		if i, ok := index[variantID]; ok {
			p.Spec.Variants[i].Values = append(p.Spec.Variants[i].Values, vv)
		}
	}
	return vrows.Err()
}

func (r *Repo) loadAddonGroups(ctx context.Context, p *Product) error {
	const grpQ = `
SELECT id, name, required, min_selections, max_selections FROM addon_groups
WHERE product_id = $1 ORDER BY position, id`
	rows, err := r.Pool.Query(ctx, grpQ, p.ID)
	if err != nil {
		return fmt.Errorf("list addon groups: %w", err)
	}
	defer rows.Close()
	groupIndex := make(map[string]int)
	for rows.Next() {
		var g pricing.AddonGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.Required, &g.MinSelections, &g.MaxSelections); err != nil {
			return fmt.Errorf("scan addon group: %w", err)
		}
		groupIndex[g.ID] = len(p.Spec.AddonGroups)
		p.Spec.AddonGroups = append(p.Spec.AddonGroups, g)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(p.Spec.AddonGroups) == 0 {
		return nil
	}

	const optQ = `
SELECT group_id, id, name, price, allows_custom_text FROM addon_options
WHERE product_id = $1 ORDER BY position, id`
	orows, err := r.Pool.Query(ctx, optQ, p.ID)
	if err != nil {
		return fmt.Errorf("list addon options: %w", err)
	}
	defer orows.Close()
	optionIndex := make(map[string][2]int)
	for orows.Next() {
		var groupID string
		var o pricing.AddonOption
		if err := orows.Scan(&groupID, &o.ID, &o.Name, &o.Price, &o.AllowsCustomText); err != nil {
			return fmt.Errorf("scan addon option: %w", err)
		}
		gi, ok := groupIndex[groupID]
		if !ok {
			continue
		}
		optionIndex[o.ID] = [2]int{gi, len(p.Spec.AddonGroups[gi].Options)}
		p.Spec.AddonGroups[gi].Options = append(p.Spec.AddonGroups[gi].Options, o)
	}
	if err := orows.Err(); err != nil {
		return err
	}

	const subQ = `
SELECT option_id, id, name, price FROM addon_sub_options
WHERE product_id = $1 ORDER BY position, id`
	srows, err := r.Pool.Query(ctx, subQ, p.ID)
	if err != nil {
		return fmt.Errorf("list addon sub options: %w", err)
	}
	defer srows.Close()
	for srows.Next() {
		var optionID string
		var s pricing.SubOption
		if err := srows.Scan(&optionID, &s.ID, &s.Name, &s.Price); err != nil {
			return fmt.Errorf("scan addon sub option: %w", err)
		}
		if at, ok := optionIndex[optionID]; ok {
			opt := &p.Spec.AddonGroups[at[0]].Options[at[1]]
			opt.SubOptions = append(opt.SubOptions, s)
		}
	}
	return srows.Err()
}
