package quota

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/zulandar/arena/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.DemoUsage{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func TestClaim_FirstUse(t *testing.T) {
	db := openTestDB(t)

	res, err := Claim(db, "fp-x", "1.1.1.1")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if !res.Allowed {
		t.Fatal("first claim must be allowed")
	}
	if res.QueriesUsed != 1 || res.MaxQueries != 1 {
		t.Errorf("usage = %d/%d, want 1/1", res.QueriesUsed, res.MaxQueries)
	}
	if res.UsageID == "" {
		t.Error("UsageID must be set")
	}

	var usage models.DemoUsage
	if err := db.Where("device_fingerprint = ?", "fp-x").First(&usage).Error; err != nil {
		t.Fatalf("load usage: %v", err)
	}
	if usage.SessionIDs != "[]" {
		t.Errorf("SessionIDs = %q, want empty list", usage.SessionIDs)
	}
	if usage.FirstUsedAt.IsZero() || usage.LastUsedAt.IsZero() {
		t.Error("timestamps not stamped")
	}
}

func TestClaim_SecondUseDenied(t *testing.T) {
	db := openTestDB(t)

	if _, err := Claim(db, "fp-x", "1.1.1.1"); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	res, err := Claim(db, "fp-x", "1.1.1.1")
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if res.Allowed {
		t.Fatal("second claim must be denied")
	}
	if res.QueriesUsed != 1 || res.MaxQueries != 1 {
		t.Errorf("usage = %d/%d, want 1/1", res.QueriesUsed, res.MaxQueries)
	}
}

func TestClaim_SharedIPDenied(t *testing.T) {
	db := openTestDB(t)

	if _, err := Claim(db, "fp-x", "1.1.1.1"); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	res, err := Claim(db, "fp-fresh", "1.1.1.1")
	if err != nil {
		t.Fatalf("fresh-fingerprint claim: %v", err)
	}
	if res.Allowed {
		t.Fatal("a fresh fingerprint behind an exhausted IP must be denied")
	}
}

func TestClaim_UnknownIPSkipsBackstop(t *testing.T) {
	db := openTestDB(t)

	if _, err := Claim(db, "fp-x", UnknownIP); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	// Different fingerprint, also unresolved IP: the IP backstop does not
	// apply, so the fingerprint bound alone decides.
	res, err := Claim(db, "fp-y", UnknownIP)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if !res.Allowed {
		t.Fatal("unknown-IP claim with a fresh fingerprint must be allowed")
	}
}

func TestClaim_DistinctIPsIndependent(t *testing.T) {
	db := openTestDB(t)

	if _, err := Claim(db, "fp-x", "1.1.1.1"); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	res, err := Claim(db, "fp-y", "2.2.2.2")
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if !res.Allowed {
		t.Fatal("a fresh fingerprint on a fresh IP must be allowed")
	}
}

func TestClaimN_HigherMax(t *testing.T) {
	db := openTestDB(t)

	for i := 1; i <= 3; i++ {
		res, err := ClaimN(db, "fp-x", "1.1.1.1", 3)
		if err != nil {
			t.Fatalf("claim %d: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("claim %d denied, want allowed", i)
		}
		if res.QueriesUsed != i {
			t.Errorf("claim %d: QueriesUsed = %d", i, res.QueriesUsed)
		}
	}
	res, err := ClaimN(db, "fp-x", "1.1.1.1", 3)
	if err != nil {
		t.Fatalf("fourth claim: %v", err)
	}
	if res.Allowed {
		t.Fatal("fourth claim must be denied")
	}
}

func TestClaim_MissingFingerprint(t *testing.T) {
	db := openTestDB(t)

	if _, err := Claim(db, "", "1.1.1.1"); err == nil {
		t.Fatal("expected error for empty fingerprint")
	}
}

// Concurrent claims on one remaining slot: exactly one may win. SQLite
// serializes the transactions; the assertion is on the outcome, not the
// interleaving.
func TestClaim_ConcurrentSingleSlot(t *testing.T) {
	db := openTestDB(t)
	// In-memory SQLite gives each pooled connection its own database;
	// pin the pool to one connection so all goroutines share state.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	const goroutines = 8
	var wg sync.WaitGroup
	allowed := make(chan bool, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := Claim(db, "fp-race", "9.9.9.9")
			if err != nil {
				// SQLite may return a busy error under write contention;
				// that still means the claim did not succeed twice.
				return
			}
			allowed <- res.Allowed
		}()
	}
	wg.Wait()
	close(allowed)

	wins := 0
	for a := range allowed {
		if a {
			wins++
		}
	}
	if wins > 1 {
		t.Fatalf("%d claims won a single slot", wins)
	}
	if wins == 0 {
		t.Fatal("no claim succeeded at all")
	}
}

func TestAssociateSession(t *testing.T) {
	db := openTestDB(t)

	res, err := Claim(db, "fp-x", "1.1.1.1")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}

	if err := AssociateSession(db, res.UsageID, "sess-1"); err != nil {
		t.Fatalf("AssociateSession: %v", err)
	}
	if err := AssociateSession(db, res.UsageID, "sess-2"); err != nil {
		t.Fatalf("AssociateSession: %v", err)
	}
	// No dedup: the same session appended twice stays twice.
	if err := AssociateSession(db, res.UsageID, "sess-2"); err != nil {
		t.Fatalf("AssociateSession: %v", err)
	}

	var usage models.DemoUsage
	if err := db.Where("id = ?", res.UsageID).First(&usage).Error; err != nil {
		t.Fatalf("load usage: %v", err)
	}
	sessions, err := Sessions(&usage)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	want := []string{"sess-1", "sess-2", "sess-2"}
	if fmt.Sprint(sessions) != fmt.Sprint(want) {
		t.Errorf("sessions = %v, want %v", sessions, want)
	}
}

func TestAssociateSession_NotFound(t *testing.T) {
	db := openTestDB(t)

	err := AssociateSession(db, "no-such-usage", "sess-1")
	if !errors.Is(err, ErrUsageNotFound) {
		t.Fatalf("err = %v, want ErrUsageNotFound", err)
	}
}
