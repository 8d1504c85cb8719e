package types

// ConnectRequest starts an SDK session. Empty fields fall back to the
// daemon's configured key and stored user id.
type ConnectRequest struct {
	// example: sdk-key-from-dashboard
	SDKKey string `json:"sdk_key,omitempty" example:"sdk-key-from-dashboard"`
	// example: player-42
	UserID string `json:"user_id,omitempty" example:"player-42"`
	// Extra connect flags forwarded as-is.
	Flags map[string]any `json:"flags,omitempty"`
}

// ConnectResponse reports the connect outcome. Warning is set when the SDK
// emitted a connect warning before the response was written.
type ConnectResponse struct {
	Connected bool   `json:"connected" example:"true"`
	Warning   string `json:"warning,omitempty"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Connected bool `json:"connected" example:"true"`
	// Number of live event subscriptions.
	// example: 2
	Subscriptions int               `json:"subscriptions" example:"2"`
	Placements    []PlacementStatus `json:"placements"`
	Platform      string            `json:"platform" example:"android"`
}

// AmountRequest carries a spend or award amount.
type AmountRequest struct {
	// example: 10
	Amount float64 `json:"amount" example:"10"`
}

// PurchaseRequest records an in-app purchase.
type PurchaseRequest struct {
	// example: USD
	CurrencyCode string `json:"currency_code" example:"USD"`
	// example: 0.99
	Price float64 `json:"price" example:"0.99"`
}

// ValueRequest is the generic body for single-value setters. Exactly one
// field is read depending on the endpoint.
type ValueRequest struct {
	String *string  `json:"string,omitempty"`
	Int    *int     `json:"int,omitempty"`
	Bool   *bool    `json:"bool,omitempty"`
	List   []string `json:"list,omitempty"`
}

// ValueResponse mirrors ValueRequest for getters.
type ValueResponse struct {
	Value any `json:"value"`
}

// CreatePlacementRequest names the placement to create.
type CreatePlacementRequest struct {
	// example: level_complete
	Name string `json:"name" example:"level_complete"`
}

// OperationResponse reports how a request or show operation ended.
type OperationResponse struct {
	OperationID string `json:"operation_id"`
	// Terminal notification, e.g. contentIsReady or contentDidDisappear.
	Notification string `json:"notification,omitempty" example:"contentIsReady"`
	// Non-terminal notifications seen along the way.
	Seen  []string        `json:"seen,omitempty"`
	Error string          `json:"error,omitempty"`
	State PlacementStatus `json:"placement"`
}

// PlacementCurrencyRequest sets a placement's balance or required amount.
type PlacementCurrencyRequest struct {
	// example: 50
	Amount int `json:"amount" example:"50"`
}

// EntryPointRequest sets a placement's entry point by name.
type EntryPointRequest struct {
	// example: main_menu
	EntryPoint string `json:"entry_point" example:"main_menu"`
}

// EventMessage is one bridge event as streamed on GET /events.
type EventMessage struct {
	Name        string         `json:"name"`
	Placement   string         `json:"placement,omitempty"`
	OperationID string         `json:"operation_id,omitempty"`
	Fields      map[string]any `json:"fields,omitempty"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
