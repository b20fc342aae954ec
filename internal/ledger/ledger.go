// Package ledger owns the authoritative in-memory account table and the
// gating decision. All mutations are serialized behind a single mutex; the
// durable mirror on disk is written asynchronously so disk I/O never sits
// inside the critical section.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/arcanabot/arcana/internal/metrics"
)

// DefaultFreeQuota is the number of readings every user gets before the
// paywall kicks in.
const DefaultFreeQuota = 3

const (
	flushMaxAttempts  = 3
	flushInitialDelay = 100 * time.Millisecond
)

// Store persists the full account table as one atomic unit.
type Store interface {
	Load() (map[int64]Account, error)
	Save(accounts map[int64]Account) error
}

// Ledger serializes all account reads and mutations and decides whether a
// requested reading may proceed.
type Ledger struct {
	mu       sync.Mutex
	accounts map[int64]*Account
	quota    int

	store    Store
	flushCh  chan struct{}
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// New loads the persisted account table and starts the background flusher.
// A corrupt state artifact is a startup failure: silently resetting balances
// would erase paid entitlements.
func New(store Store, freeQuota int) (*Ledger, error) {
	if freeQuota < 0 {
		return nil, fmt.Errorf("free quota must not be negative, got %d", freeQuota)
	}

	loaded, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load account state: %w", err)
	}

	accounts := make(map[int64]*Account, len(loaded))
	for id, acct := range loaded {
		copied := acct.clone()
		accounts[id] = &copied
	}

	l := &Ledger{
		accounts: accounts,
		quota:    freeQuota,
		store:    store,
		flushCh:  make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	metrics.SetAccountsTracked(len(accounts))
	go l.flusher()

	log.Info().
		Int("accounts", len(accounts)).
		Int("freeQuota", freeQuota).
		Msg("Ledger initialized")

	return l, nil
}

// FreeQuota returns the configured number of free readings per user.
func (l *Ledger) FreeQuota() int {
	return l.quota
}

// GetAccount returns the current account for a user, materializing the
// default account on first access. It never triggers persistence.
func (l *Ledger) GetAccount(userID int64) Account {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accountLocked(userID).clone()
}

// ConsumeReading spends one unit of allowance for the user, preferring
// purchased credits over the free quota. When neither remains the request
// is Blocked and nothing is mutated. The decision is atomic: two concurrent
// calls can never both spend the last unit.
func (l *Ledger) ConsumeReading(userID int64) Decision {
	l.mu.Lock()
	acct := l.accountLocked(userID)

	var decision Decision
	switch {
	case acct.Credits > 0:
		acct.Credits--
		decision = Decision{Allowed: true, Source: SourceCredit, Account: acct.clone()}
	case acct.FreeUsed < l.quota:
		acct.FreeUsed++
		decision = Decision{Allowed: true, Source: SourceFree, Account: acct.clone()}
	default:
		decision = Decision{Account: acct.clone()}
	}
	l.mu.Unlock()

	if decision.Allowed {
		metrics.RecordReadingAllowed(string(decision.Source))
		log.Debug().
			Int64("userID", userID).
			Str("source", string(decision.Source)).
			Int("credits", decision.Account.Credits).
			Int("freeUsed", decision.Account.FreeUsed).
			Msg("Reading allowed")
		l.requestFlush()
	} else {
		metrics.RecordReadingBlocked()
		log.Debug().Int64("userID", userID).Msg("Reading blocked, allowance exhausted")
	}
	return decision
}

// ApplyCredit adds purchased credits to an account and optionally unlocks
// the natal chart feature. A non-empty paymentID makes the call idempotent:
// a charge that was already applied returns the current account unchanged.
// A negative delta is a contract violation and is rejected outright.
func (l *Ledger) ApplyCredit(userID int64, delta int, unlockNatal bool, paymentID string) (Account, error) {
	if delta < 0 {
		return Account{}, fmt.Errorf("credit delta must not be negative, got %d", delta)
	}

	l.mu.Lock()
	acct := l.accountLocked(userID)

	if paymentID != "" && acct.hasPayment(paymentID) {
		snapshot := acct.clone()
		l.mu.Unlock()
		metrics.RecordDuplicatePayment()
		log.Warn().
			Int64("userID", userID).
			Str("paymentID", paymentID).
			Msg("Duplicate payment event ignored")
		return snapshot, nil
	}

	acct.Credits += delta
	wasLocked := !acct.NatalUnlocked
	if unlockNatal {
		acct.NatalUnlocked = true
	}
	if paymentID != "" {
		acct.PaymentIDs = append(acct.PaymentIDs, paymentID)
	}
	snapshot := acct.clone()
	l.mu.Unlock()

	metrics.RecordCreditsGranted(delta)
	if unlockNatal && wasLocked {
		metrics.RecordNatalUnlock()
	}
	log.Info().
		Int64("userID", userID).
		Int("delta", delta).
		Bool("natal", unlockNatal).
		Int("credits", snapshot.Credits).
		Msg("Credits applied")

	l.requestFlush()
	return snapshot, nil
}

// Close stops the background flusher and performs a final synchronous save
// so a clean shutdown never loses the tail of the mutation stream.
func (l *Ledger) Close() error {
	var err error
	l.stopOnce.Do(func() {
		close(l.stopCh)
		<-l.doneCh
		if saveErr := l.store.Save(l.snapshot()); saveErr != nil {
			err = fmt.Errorf("final account state save: %w", saveErr)
		}
	})
	return err
}

// accountLocked returns the live account for userID, creating the default
// account on first access. Caller must hold l.mu.
func (l *Ledger) accountLocked(userID int64) *Account {
	acct, ok := l.accounts[userID]
	if !ok {
		acct = &Account{}
		l.accounts[userID] = acct
		metrics.SetAccountsTracked(len(l.accounts))
	}
	return acct
}

func (l *Ledger) snapshot() map[int64]Account {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[int64]Account, len(l.accounts))
	for id, acct := range l.accounts {
		out[id] = acct.clone()
	}
	return out
}

// requestFlush signals the flusher without blocking. The channel holds one
// pending token, so a burst of mutations coalesces into a single save of the
// latest snapshot.
func (l *Ledger) requestFlush() {
	select {
	case l.flushCh <- struct{}{}:
	default:
	}
}

func (l *Ledger) flusher() {
	defer close(l.doneCh)
	for {
		select {
		case <-l.stopCh:
			return
		case <-l.flushCh:
			l.saveWithRetry()
		}
	}
}

// saveWithRetry writes the current snapshot with bounded backoff. A save
// that still fails after the last attempt is surfaced through the log and
// the failure counter; the in-memory table stays authoritative and the
// already-granted decisions stand.
func (l *Ledger) saveWithRetry() {
	snapshot := l.snapshot()
	delay := flushInitialDelay

	for attempt := 1; attempt <= flushMaxAttempts; attempt++ {
		err := l.store.Save(snapshot)
		if err == nil {
			metrics.RecordStateFlush()
			return
		}

		metrics.RecordStateFlushFailure()
		log.Error().
			Err(err).
			Int("attempt", attempt).
			Int("maxAttempts", flushMaxAttempts).
			Msg("Failed to persist account state")

		if attempt == flushMaxAttempts {
			return
		}
		select {
		case <-l.stopCh:
			return
		case <-time.After(delay):
		}
		delay *= 2
	}
}
