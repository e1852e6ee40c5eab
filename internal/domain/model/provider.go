package model

// Provider identifies a mobile money network the gateway can charge.
type Provider string

const (
	ProviderMTN    Provider = "mtn_money"
	ProviderOrange Provider = "orange_money"
	ProviderWave   Provider = "wave"
)

// ProviderConfig is the static per-provider table loaded at process start.
// It is read-only at runtime; eligibility checks and fee/limit calculation
// read from it on every call.
type ProviderConfig struct {
	DisplayName string
	Enabled     bool
	Available   bool // operational toggle, distinct from Enabled
	Countries   []string
	Currencies  []string
	FeePercent  float64
	MinAmount   float64
	MaxAmount   float64
}

func (c ProviderConfig) SupportsCurrency(currency string) bool {
	for _, cur := range c.Currencies {
		if cur == currency {
			return true
		}
	}
	return false
}

func (c ProviderConfig) SupportsCountry(country string) bool {
	for _, cc := range c.Countries {
		if cc == country {
			return true
		}
	}
	return false
}
