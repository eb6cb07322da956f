package paymentdto

type InitiateOutput struct {
	Reference   string
	CheckoutURL string
	// Replayed is set when an earlier initiation with the same caller
	// reference was returned instead of opening a new checkout.
	Replayed bool
}
