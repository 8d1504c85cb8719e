package types

// CurrencyBalance is the virtual currency answer shared by the balance,
// spend and award operations.
type CurrencyBalance struct {
	// Display name of the currency.
	// example: Gems
	CurrencyName string `json:"currencyName" example:"Gems"`
	// Balance after the operation.
	// example: 120
	Amount int `json:"amount" example:"120"`
}

// UserProfile gathers the user attributes the SDK keeps.
type UserProfile struct {
	// example: player-42
	UserID string `json:"user_id" example:"player-42"`
	// example: 7
	Level int `json:"level" example:"7"`
	// example: 60
	MaxLevel int `json:"max_level" example:"60"`
	// One of non_payer, payer, vip, unknown.
	// example: payer
	Segment string `json:"segment" example:"payer"`
	// example: ["beta","eu"]
	Tags []string `json:"tags" example:"[\"beta\",\"eu\"]"`
}

// PlacementStatus summarizes the latest placement object for a name.
type PlacementStatus struct {
	// example: level_complete
	Name string `json:"name" example:"level_complete"`
	// Lifecycle state (created, requesting, request_succeeded, content_ready,
	// request_failed, showing, appeared, dismissed).
	// example: content_ready
	State string `json:"state" example:"content_ready"`
	// Error recorded by the last failed request.
	// example: no fill
	Error string `json:"error,omitempty" example:"no fill"`
	// Pending operation correlation id, if any.
	OperationID string `json:"operation_id,omitempty"`
}

// PrivacyStatus carries the tri-state consent flags. Values are false, true
// or unknown.
type PrivacyStatus struct {
	SubjectToGDPR       string `json:"subject_to_gdpr" example:"true"`
	UserConsent         string `json:"user_consent" example:"unknown"`
	BelowConsentAge     string `json:"below_consent_age" example:"false"`
	USPrivacy           string `json:"us_privacy" example:"1YNN"`
	OptOutAdvertisingID bool   `json:"opt_out_advertising_id"`
}
