package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmbeddedDefaults(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s, err := c.Render("welcome", nil)
	if err != nil {
		t.Fatalf("Render(welcome): %v", err)
	}
	if strings.TrimSpace(s) == "" {
		t.Fatalf("welcome template is empty")
	}
}

func TestRenderWithData(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s, err := c.Render("game.disconnect_winner", map[string]string{"Winner": "white"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if s != "white (opponent disconnected)" {
		t.Fatalf("rendered %q", s)
	}
}

func TestRenderUnknownKey(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Render("no.such.key", nil); err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if got := c.MustRender("no.such.key", nil); got != "no.such.key" {
		t.Fatalf("MustRender fallback = %q, want the key itself", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	content := "welcome: \"hello from override\"\nextra:\n  key: \"added\"\n"
	if err := os.WriteFile(filepath.Join(dir, "10-custom.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.MustRender("welcome", nil); got != "hello from override" {
		t.Fatalf("override not applied, got %q", got)
	}
	if got := c.MustRender("extra.key", nil); got != "added" {
		t.Fatalf("new key not loaded, got %q", got)
	}
	// untouched defaults survive
	if got := c.MustRender("game.not_your_turn", nil); got == "game.not_your_turn" {
		t.Fatalf("default keys must survive an override")
	}
}

func TestMissingOverrideDirFails(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatalf("expected error for missing override dir")
	}
}
