package simulation

// AssetStatus is derived from integrity and never stored independently.
type AssetStatus string

const (
	AssetSecure      AssetStatus = "secure"
	AssetCompromised AssetStatus = "compromised"
)

// compromiseThreshold is the integrity value below which an asset counts as
// compromised.
const compromiseThreshold = 80

// Asset is one of the fixed set of protected resources.
type Asset struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Status    AssetStatus `json:"status"`
	Integrity int         `json:"integrity"`
}

// SecurityControl is one of the fixed set of defensive mechanisms.
type SecurityControl struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Active        bool   `json:"active"`
	Effectiveness int    `json:"effectiveness"`
}

// DefaultAssets returns the four protected assets at full integrity.
func DefaultAssets() map[string]*Asset {
	return map[string]*Asset{
		"academy-server":    {ID: "academy-server", Name: "Academy Web Server", Status: AssetSecure, Integrity: 100},
		"student-database":  {ID: "student-database", Name: "Student Database", Status: AssetSecure, Integrity: 100},
		"learning-platform": {ID: "learning-platform", Name: "Learning Platform", Status: AssetSecure, Integrity: 100},
		"mail-gateway":      {ID: "mail-gateway", Name: "Mail Gateway", Status: AssetSecure, Integrity: 100},
	}
}

// DefaultControls returns the three security controls in their initial
// configuration.
func DefaultControls() map[string]*SecurityControl {
	return map[string]*SecurityControl{
		"firewall":            {ID: "firewall", Name: "Perimeter Firewall", Active: true, Effectiveness: 70},
		"ids":                 {ID: "ids", Name: "Intrusion Detection System", Active: true, Effectiveness: 65},
		"endpoint-protection": {ID: "endpoint-protection", Name: "Endpoint Protection", Active: true, Effectiveness: 75},
	}
}

// damageForSeverity maps adversary action severity to integrity damage.
// Severities below high do not damage assets.
func damageForSeverity(sev Severity) int {
	switch sev {
	case SeverityCritical:
		return 15
	case SeverityHigh:
		return 10
	default:
		return 0
	}
}

// deriveStatus recomputes the status for a given integrity value.
func deriveStatus(integrity int) AssetStatus {
	if integrity < compromiseThreshold {
		return AssetCompromised
	}
	return AssetSecure
}

// ApplyDamage reduces the asset's integrity for the given severity, clamped
// at zero, and rederives the status. Returns the new integrity.
func (a *Asset) ApplyDamage(sev Severity) int {
	dmg := damageForSeverity(sev)
	if dmg > 0 {
		a.Integrity -= dmg
		if a.Integrity < 0 {
			a.Integrity = 0
		}
	}
	a.Status = deriveStatus(a.Integrity)
	return a.Integrity
}

// AverageIntegrity returns the mean integrity over the asset set, or 100 for
// an empty set.
func AverageIntegrity(assets map[string]*Asset) float64 {
	if len(assets) == 0 {
		return 100
	}
	total := 0
	for _, a := range assets {
		total += a.Integrity
	}
	return float64(total) / float64(len(assets))
}
