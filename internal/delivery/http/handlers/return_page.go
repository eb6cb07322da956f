package handlers

import (
	"embed"
	"html/template"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
)

//go:embed templates/return.html
var templatesFS embed.FS

var returnTemplate = template.Must(template.ParseFS(templatesFS, "templates/return.html"))

type returnPage struct {
	Title    string
	Message  string
	Class    string
	TxRef    string
	Status   string
	Amount   string
	Currency string
}

func newReturnPage(tx *domain.Transaction) returnPage {
	page := returnPage{
		TxRef:    tx.Reference,
		Status:   string(tx.Status),
		Amount:   tx.Amount.StringFixed(2),
		Currency: tx.Currency,
	}

	switch tx.Status {
	case domain.StatusSuccess:
		page.Title = "Payment received"
		page.Message = "Your tickets are confirmed. A receipt is on its way to your email."
		page.Class = "success"
	case domain.StatusFailed:
		page.Title = "Payment failed"
		page.Message = "The payment did not go through. No money was taken; you can try again."
		page.Class = "failed"
	case domain.StatusExpired:
		page.Title = "Checkout expired"
		page.Message = "This checkout session has expired. Please start a new purchase."
		page.Class = "failed"
	case domain.StatusVerificationFailed:
		page.Title = "We could not confirm your payment yet"
		page.Message = "Please do not pay again. We will confirm the payment with the provider and email you."
	default:
		page.Title = "Confirming your payment"
		page.Message = "We have not received confirmation from the payment provider yet. This page can be refreshed."
	}
	return page
}
