package models

// EstimateParams is the accumulated parameter set for a loan estimate.
// Amount stays a decimal string end to end; it is validated, never parsed
// into a float.
type EstimateParams struct {
	FromCode    string `json:"from_code"`
	FromNetwork string `json:"from_network"`
	ToCode      string `json:"to_code"`
	ToNetwork   string `json:"to_network"`
	Amount      string `json:"amount"`
	LTVPercent  int    `json:"ltv_percent"`
	Exchange    string `json:"exchange"`
}

// LoanRecord is a read-only projection of a loan as reported by the
// lending API. Status is an upstream-defined string shown verbatim.
type LoanRecord struct {
	LoanID         string `json:"loan_id"`
	ExpectedAmount string `json:"expected_amount"`
	Currency       string `json:"currency"`
	Status         string `json:"status"`
}
