package types

// Account holds the balances tracked for one address. Token is the challenge
// currency moved by fees and payouts; Native is the operational currency that
// pays creation fees and funds escrow accounts.
type Account struct {
	Nonce         uint64 `json:"nonce"`
	BalanceToken  uint64 `json:"balanceToken"`
	BalanceNative uint64 `json:"balanceNative"`
}

// Clone returns a copy safe for mutation.
func (a *Account) Clone() *Account {
	if a == nil {
		return &Account{}
	}
	clone := *a
	return &clone
}
