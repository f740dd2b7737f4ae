package catalog

import (
	"testing"

	"github.com/nebulacloud/console/pkg/money"
)

func TestLookupInstanceType(t *testing.T) {
	it, err := LookupInstanceType("small")
	if err != nil {
		t.Fatalf("lookup small: %v", err)
	}
	if it.CPUCores != 2 || it.RAMGB != 4 || it.MonthlyCost != 2099 {
		t.Fatalf("unexpected small instance: %+v", it)
	}
	if _, err := LookupInstanceType("gigantic"); err != ErrUnknownInstanceType {
		t.Fatalf("expected ErrUnknownInstanceType, got %v", err)
	}
}

func TestInstanceTypesSortedByPrice(t *testing.T) {
	types := InstanceTypes()
	if len(types) != 6 {
		t.Fatalf("expected 6 instance types, got %d", len(types))
	}
	if types[0].Name != "nano" || types[len(types)-1].Name != "xlarge" {
		t.Fatalf("unexpected ordering: first=%s last=%s", types[0].Name, types[len(types)-1].Name)
	}
}

func TestDatabasePriceFallsBackToCheapest(t *testing.T) {
	if got := DatabasePrice("db.t3.large"); got != money.Cents(7999) {
		t.Fatalf("large price = %s", got)
	}
	if got := DatabasePrice("db.r6.huge"); got != money.Cents(999) {
		t.Fatalf("fallback price = %s", got)
	}
}

func TestValidators(t *testing.T) {
	if !ValidRegion("eu-west-1") || ValidRegion("mars-1") {
		t.Fatal("region validation incorrect")
	}
	if !ValidImage("debian-11") || ValidImage("windows") {
		t.Fatal("image validation incorrect")
	}
	if !ValidDatabaseEngine("redis") || ValidDatabaseEngine("oracle") {
		t.Fatal("engine validation incorrect")
	}
}

func TestCreditPackageTotalIncludesBonus(t *testing.T) {
	pkg, ok := LookupCreditPackage(money.FromDollars(50))
	if !ok {
		t.Fatalf("expected a $50 package")
	}
	if pkg.Total() != money.FromDollars(55) {
		t.Fatalf("expected $55.00 credited, got %s", pkg.Total())
	}
	if _, ok := LookupCreditPackage(money.FromDollars(42)); ok {
		t.Fatalf("expected no $42 package")
	}
}
