package instance

import "testing"

func TestIDPrefersExplicitValue(t *testing.T) {
	t.Setenv("DYNO", "web.1")
	t.Setenv("CARTA_INSTANCE_ID", "bar-1")
	if got := ID(); got != "bar-1" {
		t.Fatalf("expected bar-1, got %q", got)
	}

	t.Setenv("CARTA_INSTANCE_ID", "")
	if got := ID(); got != "web.1" {
		t.Fatalf("expected dyno name, got %q", got)
	}
}
