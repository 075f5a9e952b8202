package simulation

import (
	"testing"
)

func TestApplyDamage_Severities(t *testing.T) {
	asset := &Asset{ID: "academy-server", Status: AssetSecure, Integrity: 100}

	if got := asset.ApplyDamage(SeverityCritical); got != 85 {
		t.Errorf("Expected integrity 85 after critical hit, got %d", got)
	}
	if asset.Status != AssetSecure {
		t.Errorf("Expected status secure at 85, got %s", asset.Status)
	}

	if got := asset.ApplyDamage(SeverityHigh); got != 75 {
		t.Errorf("Expected integrity 75 after high hit, got %d", got)
	}
	if asset.Status != AssetCompromised {
		t.Errorf("Expected status compromised below 80, got %s", asset.Status)
	}
}

func TestApplyDamage_LowSeverityNoDamage(t *testing.T) {
	asset := &Asset{ID: "mail-gateway", Status: AssetSecure, Integrity: 100}

	for _, sev := range []Severity{SeverityMedium, SeverityLow, Severity("unknown")} {
		if got := asset.ApplyDamage(sev); got != 100 {
			t.Errorf("Expected no damage for severity %q, got integrity %d", sev, got)
		}
	}
}

func TestApplyDamage_ClampsAtZero(t *testing.T) {
	asset := &Asset{ID: "student-database", Status: AssetSecure, Integrity: 100}

	for i := 0; i < 10; i++ {
		asset.ApplyDamage(SeverityCritical)
	}
	if asset.Integrity != 0 {
		t.Errorf("Expected integrity clamped at 0, got %d", asset.Integrity)
	}
	if asset.Status != AssetCompromised {
		t.Errorf("Expected status compromised at 0, got %s", asset.Status)
	}
}

func TestStatusDerivation_Boundary(t *testing.T) {
	if deriveStatus(80) != AssetSecure {
		t.Error("Expected integrity 80 to be secure")
	}
	if deriveStatus(79) != AssetCompromised {
		t.Error("Expected integrity 79 to be compromised")
	}
}

func TestAverageIntegrity(t *testing.T) {
	if got := AverageIntegrity(nil); got != 100 {
		t.Errorf("Expected 100 for empty asset set, got %v", got)
	}

	assets := DefaultAssets()
	if got := AverageIntegrity(assets); got != 100 {
		t.Errorf("Expected 100 for fresh assets, got %v", got)
	}

	assets["academy-server"].ApplyDamage(SeverityCritical) // 85
	assets["mail-gateway"].ApplyDamage(SeverityHigh)       // 90
	want := float64(85+90+100+100) / 4
	if got := AverageIntegrity(assets); got != want {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestDefaultSets(t *testing.T) {
	assets := DefaultAssets()
	if len(assets) != 4 {
		t.Errorf("Expected 4 assets, got %d", len(assets))
	}
	for id, a := range assets {
		if a.Integrity != 100 || a.Status != AssetSecure {
			t.Errorf("Asset %s not at full integrity: %+v", id, a)
		}
	}

	controls := DefaultControls()
	if len(controls) != 3 {
		t.Errorf("Expected 3 controls, got %d", len(controls))
	}
	for id, c := range controls {
		if !c.Active {
			t.Errorf("Control %s should start active", id)
		}
		if c.Effectiveness < 0 || c.Effectiveness > 100 {
			t.Errorf("Control %s effectiveness out of range: %d", id, c.Effectiveness)
		}
	}
}
