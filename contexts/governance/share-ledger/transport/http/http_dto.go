package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type LedgerResponse struct {
	LedgerID    string `json:"ledger_id"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	TotalSupply string `json:"total_supply"`
	CreatedAt   string `json:"created_at"`
}

type BalanceResponse struct {
	LedgerID string `json:"ledger_id"`
	Holder   string `json:"holder"`
	Balance  string `json:"balance"`
}

type HoldingsResponse struct {
	LedgerID string            `json:"ledger_id"`
	Holdings []BalanceResponse `json:"holdings"`
}

// TransferRequest moves shares from the calling holder.
type TransferRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type TransferResponse struct {
	LedgerID    string `json:"ledger_id"`
	From        string `json:"from"`
	To          string `json:"to"`
	Amount      string `json:"amount"`
	FromBalance string `json:"from_balance"`
}
