// Package viewmodel turns wire-format loan records into display-ready view
// models. Everything here is a pure transform; missing optional fields get
// explicit defaults instead of failures.
package viewmodel

import (
	"encoding/json"
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/aditpras/loan-workflow/internal/domain/workflow"
	"github.com/aditpras/loan-workflow/internal/gateway"
)

// Severity is the color-coding bucket for a status badge
type Severity string

const (
	SeveritySuccess Severity = "SUCCESS"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
	SeverityInfo    Severity = "INFO"
	SeverityDefault Severity = "DEFAULT"
)

// UnknownProduct is displayed when the wire record carries no product name
const UnknownProduct = "Unknown Product"

// LoanView is the display-ready form of a loan record
type LoanView struct {
	ID            string              `json:"id"`
	CustomerID    string              `json:"customer_id"`
	ProductName   string              `json:"product_name"`
	Amount        float64             `json:"amount"`
	AmountDisplay string              `json:"amount_display"`
	TenorMonths   int                 `json:"tenor_months"`
	Status        workflow.LoanStatus `json:"status"`
	StatusLabel   string              `json:"status_label"`
	Severity      Severity            `json:"severity"`
	Stage         workflow.Stage      `json:"stage"`
	Documents     []string            `json:"documents"`
}

var statusSeverities = map[workflow.LoanStatus]Severity{
	workflow.StatusApproved:  SeveritySuccess,
	workflow.StatusDisbursed: SeveritySuccess,
	workflow.StatusCompleted: SeveritySuccess,
	workflow.StatusSubmitted: SeverityWarning,
	workflow.StatusReviewed:  SeverityWarning,
	workflow.StatusRejected:  SeverityError,
	workflow.StatusCancelled: SeverityError,
	workflow.StatusDraft:     SeverityInfo,
}

// SeverityFor maps a loan status to its display severity
func SeverityFor(status workflow.LoanStatus) Severity {
	if sev, ok := statusSeverities[status]; ok {
		return sev
	}
	return SeverityDefault
}

// Adapter formats loans for a fixed display locale
type Adapter struct {
	printer        *message.Printer
	currencySymbol string
}

// NewAdapter creates an adapter for the given BCP 47 locale tag. An
// unparseable tag falls back to Indonesian formatting.
func NewAdapter(locale, currencySymbol string) *Adapter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Indonesian
	}
	return &Adapter{
		printer:        message.NewPrinter(tag),
		currencySymbol: currencySymbol,
	}
}

// FromWire decodes a wire-format loan record, applying defaults for missing
// optional fields.
func (a *Adapter) FromWire(data []byte) (*gateway.Loan, error) {
	var loan gateway.Loan
	if err := json.Unmarshal(data, &loan); err != nil {
		return nil, fmt.Errorf("decode loan record: %w", err)
	}
	if loan.Documents == nil {
		loan.Documents = []gateway.Document{}
	}
	if loan.ProductName == "" {
		loan.ProductName = UnknownProduct
	}
	return &loan, nil
}

// ToView transforms a loan record into its display form
func (a *Adapter) ToView(loan *gateway.Loan) LoanView {
	productName := loan.ProductName
	if productName == "" {
		productName = UnknownProduct
	}

	documents := make([]string, 0, len(loan.Documents))
	for _, doc := range loan.Documents {
		documents = append(documents, doc.Name)
	}

	return LoanView{
		ID:            loan.ID,
		CustomerID:    loan.CustomerID,
		ProductName:   productName,
		Amount:        loan.Amount,
		AmountDisplay: a.FormatAmount(loan.Amount),
		TenorMonths:   loan.TenorMonths,
		Status:        loan.Status,
		StatusLabel:   loan.Status.Label(),
		Severity:      SeverityFor(loan.Status),
		Stage:         loan.Stage,
		Documents:     documents,
	}
}

// FormatAmount renders a zero-decimal localized amount
func (a *Adapter) FormatAmount(amount float64) string {
	formatted := a.printer.Sprint(number.Decimal(amount, number.MaxFractionDigits(0)))
	if a.currencySymbol == "" {
		return formatted
	}
	return a.currencySymbol + " " + formatted
}
