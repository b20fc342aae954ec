package ledger

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu       sync.Mutex
	initial  map[int64]Account
	loadErr  error
	saveErr  error
	saves    []map[int64]Account
	attempts int
}

func (f *fakeStore) Load() (map[int64]Account, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	out := make(map[int64]Account, len(f.initial))
	for id, acct := range f.initial {
		out[id] = acct
	}
	return out, nil
}

func (f *fakeStore) Save(accounts map[int64]Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.saveErr != nil {
		return f.saveErr
	}
	saved := make(map[int64]Account, len(accounts))
	for id, acct := range accounts {
		saved[id] = acct
	}
	f.saves = append(f.saves, saved)
	return nil
}

func (f *fakeStore) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func (f *fakeStore) saveAttempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func (f *fakeStore) lastSave() map[int64]Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.saves) == 0 {
		return nil
	}
	return f.saves[len(f.saves)-1]
}

func newTestLedger(t *testing.T, store *fakeStore, quota int) *Ledger {
	t.Helper()
	l, err := New(store, quota)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestConsumeScenario(t *testing.T) {
	l := newTestLedger(t, &fakeStore{}, 3)
	const userID = int64(42)

	for i := 1; i <= 3; i++ {
		decision := l.ConsumeReading(userID)
		require.True(t, decision.Allowed, "free reading %d should be allowed", i)
		assert.Equal(t, SourceFree, decision.Source)
		assert.Equal(t, i, decision.Account.FreeUsed)
	}

	blocked := l.ConsumeReading(userID)
	require.False(t, blocked.Allowed, "fourth reading should be blocked")
	assert.Equal(t, 3, blocked.Account.FreeUsed)
	assert.Equal(t, 0, blocked.Account.Credits)

	credited, err := l.ApplyCredit(userID, 5, false, "charge-1")
	require.NoError(t, err)
	assert.Equal(t, 5, credited.Credits)

	fifth := l.ConsumeReading(userID)
	require.True(t, fifth.Allowed)
	assert.Equal(t, SourceCredit, fifth.Source)
	assert.Equal(t, 4, fifth.Account.Credits)
}

func TestConsumePrefersCreditsOverFreeQuota(t *testing.T) {
	store := &fakeStore{initial: map[int64]Account{7: {Credits: 2}}}
	l := newTestLedger(t, store, 3)

	decision := l.ConsumeReading(7)
	require.True(t, decision.Allowed)
	assert.Equal(t, SourceCredit, decision.Source)
	assert.Equal(t, 1, decision.Account.Credits)
	assert.Equal(t, 0, decision.Account.FreeUsed, "free quota must stay untouched while credits remain")
}

func TestNoDoubleSpendUnderConcurrency(t *testing.T) {
	// 2 free readings left plus 3 credits: exactly 5 of the 40 callers
	// may win, no matter the interleaving.
	store := &fakeStore{initial: map[int64]Account{9: {FreeUsed: 1, Credits: 3}}}
	l := newTestLedger(t, store, 3)

	const callers = 40
	var wg sync.WaitGroup
	results := make(chan Decision, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- l.ConsumeReading(9)
		}()
	}
	wg.Wait()
	close(results)

	allowed := 0
	for decision := range results {
		if decision.Allowed {
			allowed++
		}
	}
	assert.Equal(t, 5, allowed)

	final := l.GetAccount(9)
	assert.Equal(t, 3, final.FreeUsed)
	assert.Equal(t, 0, final.Credits)
}

func TestGetAccountDefaultsWithoutPersisting(t *testing.T) {
	store := &fakeStore{}
	l := newTestLedger(t, store, 3)

	acct := l.GetAccount(1001)
	assert.Equal(t, Account{}, acct)

	again := l.GetAccount(1001)
	assert.Equal(t, acct, again)

	assert.Never(t, func() bool { return store.saveCount() > 0 },
		200*time.Millisecond, 20*time.Millisecond,
		"a pure read must not trigger persistence")
}

func TestConsumeTriggersAsyncFlush(t *testing.T) {
	store := &fakeStore{}
	l := newTestLedger(t, store, 3)

	require.True(t, l.ConsumeReading(5).Allowed)

	require.Eventually(t, func() bool { return store.saveCount() >= 1 },
		2*time.Second, 10*time.Millisecond)
	saved := store.lastSave()
	assert.Equal(t, 1, saved[5].FreeUsed)
}

func TestApplyCreditIdempotentPerPaymentID(t *testing.T) {
	l := newTestLedger(t, &fakeStore{}, 3)

	first, err := l.ApplyCredit(11, 5, true, "charge-dup")
	require.NoError(t, err)
	assert.Equal(t, 5, first.Credits)
	assert.True(t, first.NatalUnlocked)

	second, err := l.ApplyCredit(11, 5, true, "charge-dup")
	require.NoError(t, err)
	assert.Equal(t, 5, second.Credits, "duplicate payment event must not double-credit")

	third, err := l.ApplyCredit(11, 5, false, "charge-new")
	require.NoError(t, err)
	assert.Equal(t, 10, third.Credits)
}

func TestApplyCreditNegativeDeltaRejected(t *testing.T) {
	l := newTestLedger(t, &fakeStore{}, 3)

	_, err := l.ApplyCredit(12, -1, true, "charge-neg")
	require.Error(t, err)

	acct := l.GetAccount(12)
	assert.Equal(t, Account{}, acct, "rejected credit must not mutate the account")
}

func TestNatalUnlockIsMonotonic(t *testing.T) {
	l := newTestLedger(t, &fakeStore{}, 3)

	unlocked, err := l.ApplyCredit(13, 10, true, "charge-natal")
	require.NoError(t, err)
	require.True(t, unlocked.NatalUnlocked)

	after, err := l.ApplyCredit(13, 5, false, "charge-plain")
	require.NoError(t, err)
	assert.True(t, after.NatalUnlocked)

	for i := 0; i < 15; i++ {
		l.ConsumeReading(13)
	}
	assert.True(t, l.GetAccount(13).NatalUnlocked)
}

func TestInvariantsHoldAfterMixedOperations(t *testing.T) {
	const quota = 3
	l := newTestLedger(t, &fakeStore{}, quota)

	_, err := l.ApplyCredit(14, 2, false, "charge-a")
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		l.ConsumeReading(14)
		acct := l.GetAccount(14)
		assert.GreaterOrEqual(t, acct.Credits, 0)
		assert.GreaterOrEqual(t, acct.FreeUsed, 0)
		assert.LessOrEqual(t, acct.FreeUsed, quota)
	}

	final := l.GetAccount(14)
	assert.Equal(t, quota, final.FreeUsed)
	assert.Equal(t, 0, final.Credits)
}

func TestCloseSavesFinalState(t *testing.T) {
	store := &fakeStore{}
	l, err := New(store, 3)
	require.NoError(t, err)

	l.ConsumeReading(15)
	l.ConsumeReading(15)
	require.NoError(t, l.Close())

	saved := store.lastSave()
	require.NotNil(t, saved)
	assert.Equal(t, 2, saved[15].FreeUsed)
}

func TestSaveFailureDoesNotRevokeGrants(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("disk full")}
	l, err := New(store, 3)
	require.NoError(t, err)

	decision := l.ConsumeReading(16)
	assert.True(t, decision.Allowed, "persistence trouble must not block the in-memory grant")

	require.Eventually(t, func() bool { return store.saveAttempts() >= 1 },
		2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, l.GetAccount(16).FreeUsed, "in-memory state stays authoritative")
	assert.Error(t, l.Close(), "final save failure must be reported")
}

func TestLoadErrorFailsStartup(t *testing.T) {
	store := &fakeStore{loadErr: errors.New("corrupt state")}
	_, err := New(store, 3)
	require.Error(t, err)
}

func TestNegativeQuotaRejected(t *testing.T) {
	_, err := New(&fakeStore{}, -1)
	require.Error(t, err)
}

func TestZeroQuotaBlocksWithoutCredits(t *testing.T) {
	l := newTestLedger(t, &fakeStore{}, 0)

	decision := l.ConsumeReading(17)
	assert.False(t, decision.Allowed)
	assert.Equal(t, Account{}, decision.Account)
}
