package shared

import (
	"reflect"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "APPROVAL_STORE", "HOSTAWAY_RPS", "HOSTAWAY_CACHE_DURATION", "DIGEST_LISTINGS", "HOSTAWAY_API_KEY", "HOSTAWAY_ACCOUNT_ID"} {
		t.Setenv(k, "")
	}
	c := Load()
	if c.HTTPAddr != ":8080" || c.ApprovalStore != "sqlite" || c.HostawayRPS != 5 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.CacheDuration != time.Hour || c.FetchTimeout != 10*time.Second {
		t.Fatalf("unexpected durations: %s %s", c.CacheDuration, c.FetchTimeout)
	}
	if c.DigestListings != nil || c.HostawayConfigured() {
		t.Fatalf("unexpected digest/hostaway settings: %+v", c)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APPROVAL_STORE", "MySQL")
	t.Setenv("HOSTAWAY_CACHE_DURATION", "60")
	t.Setenv("HOSTAWAY_RPS", "not-a-number")
	t.Setenv("DIGEST_LISTINGS", " 2B N1 A ,, Camden Lofts ")
	t.Setenv("HOSTAWAY_ACCOUNT_ID", "61148")
	t.Setenv("HOSTAWAY_API_KEY", "secret")

	c := Load()
	if c.ApprovalStore != "mysql" || c.CacheDuration != time.Minute || c.HostawayRPS != 5 {
		t.Fatalf("unexpected config: %+v", c)
	}
	if !reflect.DeepEqual(c.DigestListings, []string{"2B N1 A", "Camden Lofts"}) {
		t.Fatalf("unexpected listings: %q", c.DigestListings)
	}
	if !c.HostawayConfigured() {
		t.Fatalf("expected hostaway to be configured")
	}
}
