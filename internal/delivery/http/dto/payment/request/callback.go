package request

// CallbackRequest is the part of a gateway webhook we read. The status and
// amount fields of the payload are deliberately not decoded.
type CallbackRequest struct {
	TxRef  string `json:"tx_ref"`
	TrxRef string `json:"trx_ref"`
}

func (r CallbackRequest) Reference() string {
	if r.TxRef != "" {
		return r.TxRef
	}
	return r.TrxRef
}
