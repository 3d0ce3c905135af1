package shared_test

import (
	"testing"
	"time"

	"property_manager/internal/shared"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"SMOOBU_API_URL", "SYNC_PAGE_SIZE", "CACHE_TTL_SECONDS", "SMOOBU_RPS", "REDIS_DB"} {
		t.Setenv(k, "")
	}
	c := shared.Load()
	if c.SmoobuAPIURL != "https://login.smoobu.com/api" || c.SyncPageSize != 100 || c.CacheTTL != 15*time.Minute {
		t.Fatalf("unexpected defaults: %+v", c)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SMOOBU_API_KEY", "k")
	t.Setenv("SYNC_PAGE_SIZE", "25")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("SMOOBU_RPS", "not-a-number")

	c := shared.Load()
	if c.SmoobuKey != "k" || c.SyncPageSize != 25 || c.RedisDB != 2 {
		t.Fatalf("overrides not applied: %+v", c)
	}
	if c.SmoobuRPS != 5 {
		t.Fatalf("bad number should fall back to default, got %d", c.SmoobuRPS)
	}
}
