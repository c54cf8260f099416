package config_test

import (
	"testing"
	"time"

	"github.com/petalcrumb/pos-engine/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"DATABASE_URL":        "postgres://localhost/pos",
		"REDIS_URL":           "redis://localhost:6379/0",
		"PORT":                "",
		"DELIVERY_NEAR_AREAS": "",
		"DELIVERY_FAR_CHARGE": "",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr() != ":8080" {
		t.Fatalf("expected default addr :8080, got %s", cfg.HTTPAddr())
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Fatalf("expected default session ttl 12h, got %s", cfg.SessionTTL)
	}
	if cfg.DeliveryFarCharge != 30 {
		t.Fatalf("expected default far charge 30, got %v", cfg.DeliveryFarCharge)
	}
	if cfg.OrderNumberPrefix != "PC" {
		t.Fatalf("expected default order prefix PC, got %s", cfg.OrderNumberPrefix)
	}
}

func TestLoadRequiresDatabase(t *testing.T) {
	if _, err := config.LoadForTests(map[string]string{
		"DATABASE_URL": "",
		"REDIS_URL":    "redis://localhost:6379/0",
	}); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoadParsesTiersAndSlots(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"DATABASE_URL":         "postgres://localhost/pos",
		"REDIS_URL":            "redis://localhost:6379/0",
		"DELIVERY_NEAR_AREAS":  "downtown, marina",
		"DELIVERY_NEAR_CHARGE": "12.5",
		"FULFILLMENT_SLOTS":    "10:00-12:00,14:00-16:00",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.DeliveryNearAreas) != 2 || cfg.DeliveryNearAreas[1] != "marina" {
		t.Fatalf("unexpected near areas: %v", cfg.DeliveryNearAreas)
	}
	if cfg.DeliveryNearCharge != 12.5 {
		t.Fatalf("unexpected near charge: %v", cfg.DeliveryNearCharge)
	}
	if len(cfg.FulfillmentSlots) != 2 {
		t.Fatalf("unexpected slots: %v", cfg.FulfillmentSlots)
	}
}
