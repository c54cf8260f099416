package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"

	"github.com/petalcrumb/pos-engine/internal/db"
)

// Seeds a demo bakery catalog so a fresh environment has something to sell:
// a handful of categories, configurable cakes with size/flavour variants,
// addon groups for toppers and cards, and a few coupons.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	if err := db.RunMigrations(dbURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer func() { _ = conn.Close(ctx) }()

	seedCategories(ctx, conn)
	seedProducts(ctx, conn)
	seedCoupons(ctx, conn)

	log.Println("Seeding completed successfully!")
}

func seedCategories(ctx context.Context, conn *pgx.Conn) {
	categories := []struct {
		Slug     string
		Name     string
		Position int
	}{
		{"cakes", "Cakes", 1},
		{"flowers", "Flowers", 2},
		{"sets", "Gift Sets", 3},
		{"sweets", "Sweets", 4},
		{"other", "Other", 5},
	}

	log.Println("Seeding categories...")
	for _, c := range categories {
		_, err := conn.Exec(ctx, `
			INSERT INTO categories (slug, name, position)
			VALUES ($1, $2, $3)
			ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name, position = EXCLUDED.position;
		`, c.Slug, c.Name, c.Position)
		if err != nil {
			log.Printf("Failed to upsert category %s: %v", c.Slug, err)
		}
	}
}

type seedVariant struct {
	ID     string
	Price  float64
	Values map[string]string // option id -> value id
}

type seedProduct struct {
	Slug              string
	Name              string
	Description       string
	Category          string
	BasePrice         float64
	AllowsCustomPrice bool
	RequiresKitchen   *bool
	Options           map[string][]string // option name -> value names (ids derived)
	Variants          []seedVariant
}

func seedProducts(ctx context.Context, conn *pgx.Conn) {
	log.Println("Seeding products...")

	yes := true
	no := false

	products := []seedProduct{
		{
			Slug: "classic-vanilla-cake", Name: "Classic Vanilla Cake",
			Description: "Vanilla sponge with buttercream.", Category: "cakes",
			BasePrice: 0, RequiresKitchen: &yes,
			Options: map[string][]string{
				"size":    {"small", "medium", "large"},
				"flavour": {"vanilla", "chocolate", "red-velvet"},
			},
			Variants: []seedVariant{
				{ID: "sml-van", Price: 120, Values: map[string]string{"size": "small", "flavour": "vanilla"}},
				{ID: "med-van", Price: 180, Values: map[string]string{"size": "medium", "flavour": "vanilla"}},
				{ID: "lrg-van", Price: 240, Values: map[string]string{"size": "large", "flavour": "vanilla"}},
				{ID: "sml-cho", Price: 130, Values: map[string]string{"size": "small", "flavour": "chocolate"}},
				{ID: "med-cho", Price: 190, Values: map[string]string{"size": "medium", "flavour": "chocolate"}},
				{ID: "lrg-cho", Price: 250, Values: map[string]string{"size": "large", "flavour": "chocolate"}},
				{ID: "sml-rdv", Price: 140, Values: map[string]string{"size": "small", "flavour": "red-velvet"}},
				{ID: "med-rdv", Price: 200, Values: map[string]string{"size": "medium", "flavour": "red-velvet"}},
				{ID: "lrg-rdv", Price: 260, Values: map[string]string{"size": "large", "flavour": "red-velvet"}},
			},
		},
		{
			Slug: "rose-bouquet", Name: "Rose Bouquet",
			Description: "A dozen fresh roses.", Category: "flowers",
			BasePrice: 95, RequiresKitchen: &no,
		},
		{
			Slug: "celebration-set", Name: "Celebration Set",
			Description: "Cake, flowers and a card in one box.", Category: "sets",
			BasePrice: 320, RequiresKitchen: &yes,
		},
		{
			Slug: "macaron-box", Name: "Macaron Box",
			Description: "Twelve assorted macarons.", Category: "sweets",
			BasePrice: 55, RequiresKitchen: &no,
		},
		{
			Slug: "bespoke-order", Name: "Bespoke Order",
			Description: "Custom request priced at the counter.", Category: "other",
			BasePrice: 0, AllowsCustomPrice: true,
		},
	}

	for _, p := range products {
		var id string
		err := conn.QueryRow(ctx, `
			INSERT INTO products (slug, name, description, category_slug, base_price, allows_custom_price, requires_kitchen, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
			ON CONFLICT (slug) DO UPDATE SET
				name = EXCLUDED.name,
				description = EXCLUDED.description,
				category_slug = EXCLUDED.category_slug,
				base_price = EXCLUDED.base_price,
				allows_custom_price = EXCLUDED.allows_custom_price,
				requires_kitchen = EXCLUDED.requires_kitchen,
				updated_at = now()
			RETURNING id;
		`, p.Slug, p.Name, p.Description, p.Category, p.BasePrice, p.AllowsCustomPrice, p.RequiresKitchen)
		if err != nil {
			log.Printf("Failed to upsert product %s: %v", p.Slug, err)
			continue
		}

		seedOptions(ctx, conn, id, p)
		seedVariants(ctx, conn, id, p)
		if p.Slug == "classic-vanilla-cake" || p.Slug == "celebration-set" {
			seedAddons(ctx, conn, id)
		}
	}
}

func seedOptions(ctx context.Context, conn *pgx.Conn, productID string, p seedProduct) {
	position := 0
	for optID, values := range p.Options {
		position++
		_, err := conn.Exec(ctx, `
			INSERT INTO product_options (id, product_id, name, position)
			VALUES ($1, $2, initcap($1), $3)
			ON CONFLICT (product_id, id) DO UPDATE SET position = EXCLUDED.position;
		`, optID, productID, position)
		if err != nil {
			log.Printf("Failed to upsert option %s for %s: %v", optID, p.Slug, err)
			continue
		}
		for i, valueID := range values {
			_, err := conn.Exec(ctx, `
				INSERT INTO product_option_values (id, product_id, option_id, name, position)
				VALUES ($1, $2, $3, initcap(replace($1, '-', ' ')), $4)
				ON CONFLICT (product_id, id) DO UPDATE SET position = EXCLUDED.position;
			`, valueID, productID, optID, i+1)
			if err != nil {
				log.Printf("Failed to upsert option value %s for %s: %v", valueID, p.Slug, err)
			}
		}
	}
}

func seedVariants(ctx context.Context, conn *pgx.Conn, productID string, p seedProduct) {
	for _, v := range p.Variants {
		_, err := conn.Exec(ctx, `
			INSERT INTO product_variants (id, product_id, price)
			VALUES ($1, $2, $3)
			ON CONFLICT (product_id, id) DO UPDATE SET price = EXCLUDED.price;
		`, v.ID, productID, v.Price)
		if err != nil {
			log.Printf("Failed to upsert variant %s for %s: %v", v.ID, p.Slug, err)
			continue
		}
		for optID, valueID := range v.Values {
			_, err := conn.Exec(ctx, `
				INSERT INTO product_variant_values (product_id, variant_id, option_id, value_id)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (product_id, variant_id, option_id) DO UPDATE SET value_id = EXCLUDED.value_id;
			`, productID, v.ID, optID, valueID)
			if err != nil {
				log.Printf("Failed to upsert variant value %s/%s for %s: %v", v.ID, optID, p.Slug, err)
			}
		}
	}
}

func seedAddons(ctx context.Context, conn *pgx.Conn, productID string) {
	_, err := conn.Exec(ctx, `
		INSERT INTO addon_groups (id, product_id, name, required, min_selections, max_selections, position)
		VALUES ('extras', $1, 'Extras', FALSE, 0, 3, 1)
		ON CONFLICT (product_id, id) DO NOTHING;
	`, productID)
	if err != nil {
		log.Printf("Failed to upsert addon group: %v", err)
		return
	}

	addons := []struct {
		ID         string
		Name       string
		Price      float64
		AllowsText bool
	}{
		{"candles", "Candles", 5, false},
		{"topper", "Cake Topper", 25, true},
		{"card", "Greeting Card", 10, true},
	}
	for i, a := range addons {
		_, err := conn.Exec(ctx, `
			INSERT INTO addon_options (id, product_id, group_id, name, price, allows_custom_text, position)
			VALUES ($1, $2, 'extras', $3, $4, $5, $6)
			ON CONFLICT (product_id, id) DO UPDATE SET price = EXCLUDED.price;
		`, a.ID, productID, a.Name, a.Price, a.AllowsText, i+1)
		if err != nil {
			log.Printf("Failed to upsert addon %s: %v", a.ID, err)
		}
	}

	subOptions := []struct {
		ID    string
		Name  string
		Price float64
	}{
		{"topper-gold", "Gold Lettering", 10},
		{"topper-acrylic", "Acrylic", 0},
	}
	for i, s := range subOptions {
		_, err := conn.Exec(ctx, `
			INSERT INTO addon_sub_options (id, product_id, option_id, name, price, position)
			VALUES ($1, $2, 'topper', $3, $4, $5)
			ON CONFLICT (product_id, id) DO UPDATE SET price = EXCLUDED.price;
		`, s.ID, productID, s.Name, s.Price, i+1)
		if err != nil {
			log.Printf("Failed to upsert sub option %s: %v", s.ID, err)
		}
	}
}

func seedCoupons(ctx context.Context, conn *pgx.Conn) {
	log.Println("Seeding coupons...")
	coupons := []struct {
		Code        string
		Kind        string
		Value       float64
		MinOrder    *float64
		MaxDiscount *float64
	}{
		{"WELCOME10", "PERCENTAGE", 10, nil, f(50)},
		{"SWEET25", "FIXED_AMOUNT", 25, f(150), nil},
		{"VIP15", "PERCENTAGE", 15, f(300), f(100)},
	}
	for _, c := range coupons {
		_, err := conn.Exec(ctx, `
			INSERT INTO coupons (code, kind, value, min_order_amount, max_discount, active)
			VALUES ($1, $2, $3, $4, $5, TRUE)
			ON CONFLICT (code) DO UPDATE SET
				kind = EXCLUDED.kind,
				value = EXCLUDED.value,
				min_order_amount = EXCLUDED.min_order_amount,
				max_discount = EXCLUDED.max_discount,
				active = TRUE;
		`, c.Code, c.Kind, c.Value, c.MinOrder, c.MaxDiscount)
		if err != nil {
			log.Printf("Failed to upsert coupon %s: %v", c.Code, err)
		}
	}
}

func f(v float64) *float64 { return &v }
