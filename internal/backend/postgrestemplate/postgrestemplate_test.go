package postgrestemplate

import (
	"strings"
	"testing"

	"github.com/keylty/pgbranch/internal/config"
)

func TestConnStringIncludesSSLMode(t *testing.T) {
	cfg := config.PostgresTemplateConfig{Host: "db.internal", Port: 5432, User: "app", Password: "secret"}
	s := connString(cfg, "myapp")
	if !strings.Contains(s, "sslmode=prefer") {
		t.Errorf("expected default sslmode=prefer, got %q", s)
	}
	if !strings.Contains(s, "db.internal:5432") {
		t.Errorf("expected host:port in connection string, got %q", s)
	}
}

func TestConnStringHonorsConfiguredSSLMode(t *testing.T) {
	cfg := config.PostgresTemplateConfig{Host: "db.internal", Port: 5432, User: "app", Password: "secret", SSLMode: "require"}
	s := connString(cfg, "myapp")
	if !strings.Contains(s, "sslmode=require") {
		t.Errorf("expected configured sslmode=require, got %q", s)
	}
}

func TestEscapeIdentifierQuotesName(t *testing.T) {
	got := escapeIdentifier("myapp_feature")
	if got != `"myapp_feature"` {
		t.Errorf("got %q, want a quoted identifier", got)
	}
}

func TestEscapeIdentifierEscapesQuotes(t *testing.T) {
	got := escapeIdentifier(`weird"name`)
	if !strings.Contains(got, `""`) {
		t.Errorf("expected embedded quote doubled, got %q", got)
	}
}
