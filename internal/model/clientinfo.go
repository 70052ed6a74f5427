package model

// Account is one bank account as returned by the Monobank client-info
// endpoint. Balances are in minor currency units (kopiyka).
type Account struct {
	ID           string   `json:"id"`
	SendID       string   `json:"sendId"`
	Balance      int64    `json:"balance"`
	CreditLimit  int64    `json:"creditLimit"`
	Type         string   `json:"type"`
	CurrencyCode int      `json:"currencyCode"`
	CashbackType string   `json:"cashbackType"`
	MaskedPan    []string `json:"maskedPan"`
	IBAN         string   `json:"iban"`
}

// Jar is a savings goal attached to the client.
type Jar struct {
	ID           string `json:"id"`
	SendID       string `json:"sendId"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	CurrencyCode int    `json:"currencyCode"`
	Balance      int64  `json:"balance"`
	Goal         *int64 `json:"goal,omitempty"`
}

// ClientInfoResult is the full client snapshot: identity, accounts and jars.
// Produced fresh per call, never mutated after construction.
type ClientInfoResult struct {
	ClientID    string    `json:"clientId"`
	Name        string    `json:"name"`
	WebhookURL  string    `json:"webHookUrl"`
	Permissions string    `json:"permissions"`
	Accounts    []Account `json:"accounts"`
	Jars        []Jar     `json:"jars,omitempty"`
}
