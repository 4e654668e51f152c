package common

// Feature keys stored per branch. They match the keys the clients send.
const (
	FeatureCRM      = "crm_enabled"
	FeatureVault    = "vault_enabled"
	FeatureFinance  = "finance_enabled"
	FeatureHR       = "hr_enabled"
	FeatureAuction  = "auction_enabled"
	FeatureDecision = "decision_enabled"
	FeatureMarket   = "market_enabled"
	FeatureAlerts   = "alerts_enabled"
)

// FeatureFlags is embedded into Branch with the "feature_" column prefix.
type FeatureFlags struct {
	CRM      bool `json:"crm_enabled"`
	Vault    bool `json:"vault_enabled"`
	Finance  bool `json:"finance_enabled"`
	HR       bool `json:"hr_enabled"`
	Auction  bool `json:"auction_enabled"`
	Decision bool `json:"decision_enabled"`
	Market   bool `json:"market_enabled"`
	Alerts   bool `json:"alerts_enabled"`
}

// AllFeatures returns flags with every feature switched on.
func AllFeatures() FeatureFlags {
	return FeatureFlags{
		CRM: true, Vault: true, Finance: true, HR: true,
		Auction: true, Decision: true, Market: true, Alerts: true,
	}
}

func (f FeatureFlags) Map() map[string]bool {
	return map[string]bool{
		FeatureCRM:      f.CRM,
		FeatureVault:    f.Vault,
		FeatureFinance:  f.Finance,
		FeatureHR:       f.HR,
		FeatureAuction:  f.Auction,
		FeatureDecision: f.Decision,
		FeatureMarket:   f.Market,
		FeatureAlerts:   f.Alerts,
	}
}

// Apply overwrites the flags named in m; unknown keys are ignored.
func (f *FeatureFlags) Apply(m map[string]bool) {
	for k, v := range m {
		switch k {
		case FeatureCRM:
			f.CRM = v
		case FeatureVault:
			f.Vault = v
		case FeatureFinance:
			f.Finance = v
		case FeatureHR:
			f.HR = v
		case FeatureAuction:
			f.Auction = v
		case FeatureDecision:
			f.Decision = v
		case FeatureMarket:
			f.Market = v
		case FeatureAlerts:
			f.Alerts = v
		}
	}
}
