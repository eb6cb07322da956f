package notifier

import "time"

type CallbackPayload struct {
	TxRef       string    `json:"tx_ref"`
	Status      string    `json:"status"`
	Amount      string    `json:"amount"`
	Currency    string    `json:"currency"`
	PayerEmail  string    `json:"payer_email"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}
