package ledger

// Account is the per-user paywall record. The zero value is the state of a
// user who has never interacted with the bot.
type Account struct {
	// FreeUsed counts free readings already consumed, capped at the
	// configured free quota.
	FreeUsed int `json:"free_used"`
	// Credits is the purchased reading balance. Never negative.
	Credits int `json:"credits"`
	// NatalUnlocked is set once the user buys a pack that includes the
	// natal chart feature. It is never cleared.
	NatalUnlocked bool `json:"natal"`
	// PaymentIDs holds provider charge IDs already credited to this
	// account so duplicate payment events are applied at most once.
	PaymentIDs []string `json:"payment_ids,omitempty"`
}

func (a Account) clone() Account {
	out := a
	if a.PaymentIDs != nil {
		out.PaymentIDs = append([]string(nil), a.PaymentIDs...)
	}
	return out
}

func (a Account) hasPayment(paymentID string) bool {
	for _, id := range a.PaymentIDs {
		if id == paymentID {
			return true
		}
	}
	return false
}

// Source identifies which balance a granted reading was taken from.
type Source string

const (
	SourceFree   Source = "free"
	SourceCredit Source = "credit"
)

// Decision is the outcome of a gating request. Blocked is a normal outcome,
// not an error: Allowed is false and the account is unchanged.
type Decision struct {
	Allowed bool
	Source  Source
	Account Account
}
