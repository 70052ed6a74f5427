package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatementItem is one transaction exactly as the Monobank statement
// endpoint returns it: epoch-second time, amounts in minor units.
type StatementItem struct {
	ID              string `json:"id"`
	Time            int64  `json:"time"`
	Description     string `json:"description"`
	MCC             int    `json:"mcc"`
	OriginalMCC     int    `json:"originalMcc"`
	Hold            bool   `json:"hold"`
	Amount          int64  `json:"amount"`
	OperationAmount int64  `json:"operationAmount"`
	CurrencyCode    int    `json:"currencyCode"`
	CommissionRate  int64  `json:"commissionRate"`
	CashbackAmount  int64  `json:"cashbackAmount"`
	Balance         int64  `json:"balance"`
	Comment         string `json:"comment,omitempty"`
	ReceiptID       string `json:"receiptId,omitempty"`
	InvoiceID       string `json:"invoiceId,omitempty"`
	CounterEdrpou   string `json:"counterEdrpou,omitempty"`
	CounterIBAN     string `json:"counterIban,omitempty"`
	CounterName     string `json:"counterName,omitempty"`
}

// Transaction is the caller-facing form of a statement item: times as
// ISO 8601 UTC, amounts converted to main currency units. Counterparty
// bank identifiers and the invoice id are intentionally not exposed.
type Transaction struct {
	ID              string          `json:"id"`
	Time            string          `json:"time"`
	Description     string          `json:"description"`
	MCC             int             `json:"mcc"`
	OriginalMCC     int             `json:"originalMcc"`
	Hold            bool            `json:"hold"`
	Amount          decimal.Decimal `json:"amount"`
	OperationAmount decimal.Decimal `json:"operationAmount"`
	CurrencyCode    int             `json:"currencyCode"`
	CommissionRate  decimal.Decimal `json:"commissionRate"`
	CashbackAmount  decimal.Decimal `json:"cashbackAmount"`
	Balance         decimal.Decimal `json:"balance"`
	Comment         string          `json:"comment,omitempty"`
	ReceiptID       string          `json:"receiptId,omitempty"`
	CounterName     string          `json:"counterName,omitempty"`
}

// StatementResult holds transactions in upstream order (reverse-chronological).
type StatementResult struct {
	Transactions []Transaction `json:"transactions"`
}

// ToTransaction converts a wire statement item into its caller-facing form.
func (s StatementItem) ToTransaction() Transaction {
	return Transaction{
		ID:             s.ID,
		Time:           time.Unix(s.Time, 0).UTC().Format("2006-01-02T15:04:05Z"),
		Description:    s.Description,
		MCC:            s.MCC,
		OriginalMCC:    s.OriginalMCC,
		Hold:           s.Hold,
		Amount:          minorToMain(s.Amount),
		OperationAmount: minorToMain(s.OperationAmount),
		CurrencyCode:    s.CurrencyCode,
		CommissionRate: minorToMain(s.CommissionRate),
		CashbackAmount: minorToMain(s.CashbackAmount),
		Balance:        minorToMain(s.Balance),
		Comment:        s.Comment,
		ReceiptID:      s.ReceiptID,
		CounterName:    s.CounterName,
	}
}

// minorToMain converts kopiyka (or cents) to main units without float error.
func minorToMain(v int64) decimal.Decimal {
	return decimal.New(v, -2)
}
