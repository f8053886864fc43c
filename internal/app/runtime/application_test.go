package runtime

import (
	"context"
	"testing"

	"github.com/agrichain-io/token_layer/internal/config"
)

func TestNewApplicationWithConfig(t *testing.T) {
	cfg := config.Default()
	app, err := NewApplicationWithConfig(cfg)
	if err != nil {
		t.Fatalf("build application: %v", err)
	}
	if err := app.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestNewApplicationRequiresAdmin(t *testing.T) {
	cfg := config.Default()
	cfg.Token.Admin = ""
	if _, err := NewApplicationWithConfig(cfg); err == nil {
		t.Fatal("expected error for missing admin")
	}
}
