package response

type InitializeResponse struct {
	CheckoutURL string `json:"checkout_url"`
	TxRef       string `json:"tx_ref"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type CallbackResponse struct {
	Status string `json:"status"`
}
