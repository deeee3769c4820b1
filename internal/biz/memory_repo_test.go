package biz

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	creditErrors "credit-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
)

var testLogger = log.NewStdLogger(io.Discard)

// memoryLedger serializes writers per account the way the row lock does and
// only publishes staged writes when fn succeeds.
type memoryLedger struct {
	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	accounts map[string]*Account
	txns     map[string][]*Transaction
	seq      int64
	clock    time.Time
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{
		locks:    make(map[string]*sync.Mutex),
		accounts: make(map[string]*Account),
		txns:     make(map[string][]*Transaction),
		clock:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memoryLedger) lockFor(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

type memoryTx struct {
	ledger  *memoryLedger
	id      string
	account *Account
	staged  []*Transaction
}

func (t *memoryTx) SaveAccount(_ context.Context, acc *Account) error {
	cp := *acc
	t.account = &cp
	return nil
}

func (t *memoryTx) AppendTransaction(_ context.Context, txn *Transaction) error {
	if _, err := ParseTransactionKind(string(txn.Kind)); err != nil {
		return err
	}
	t.ledger.mu.Lock()
	t.ledger.seq++
	if txn.TransactionID == "" {
		txn.TransactionID = fmt.Sprintf("txn_%06d", t.ledger.seq)
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = t.ledger.clock.Add(time.Duration(t.ledger.seq) * time.Millisecond)
	}
	t.ledger.mu.Unlock()
	cp := *txn
	t.staged = append(t.staged, &cp)
	return nil
}

func (t *memoryTx) Transactions(_ context.Context) ([]*Transaction, error) {
	t.ledger.mu.Lock()
	defer t.ledger.mu.Unlock()
	out := make([]*Transaction, 0, len(t.ledger.txns[t.id]))
	for _, txn := range t.ledger.txns[t.id] {
		cp := *txn
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memoryLedger) WithAccountLock(ctx context.Context, accountID string, fn func(ctx context.Context, acc *Account, tx LedgerTx) error) error {
	l := m.lockFor(accountID)
	l.Lock()
	defer l.Unlock()

	m.mu.Lock()
	stored, ok := m.accounts[accountID]
	m.mu.Unlock()
	if !ok {
		return creditErrors.UnknownAccount(accountID)
	}
	working := *stored
	tx := &memoryTx{ledger: m, id: accountID}
	if err := fn(ctx, &working, tx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if tx.account != nil {
		if tx.account.Balance < 0 {
			return fmt.Errorf("negative balance committed for %s", accountID)
		}
		m.accounts[accountID] = tx.account
	}
	m.txns[accountID] = append(m.txns[accountID], tx.staged...)
	return nil
}

func (m *memoryLedger) CreateAccount(_ context.Context, acc *Account, opening *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[acc.AccountID]; ok {
		return creditErrors.AccountExists(acc.AccountID)
	}
	cp := *acc
	m.accounts[acc.AccountID] = &cp
	if opening != nil {
		m.seq++
		o := *opening
		o.TransactionID = fmt.Sprintf("txn_%06d", m.seq)
		o.CreatedAt = m.clock
		m.txns[acc.AccountID] = append(m.txns[acc.AccountID], &o)
	}
	return nil
}

func (m *memoryLedger) GetAccount(_ context.Context, accountID string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[accountID]
	if !ok {
		return nil, creditErrors.UnknownAccount(accountID)
	}
	cp := *acc
	return &cp, nil
}

func (m *memoryLedger) GetBalanceSnapshot(ctx context.Context, accountID string) (*BalanceSnapshot, error) {
	acc, err := m.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &BalanceSnapshot{AccountID: acc.AccountID, Balance: acc.Balance, IsAdmin: acc.IsAdmin, Tier: acc.Tier}, nil
}

func (m *memoryLedger) find(match func(*Account) bool) *Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, acc := range m.accounts {
		if match(acc) {
			cp := *acc
			return &cp
		}
	}
	return nil
}

func (m *memoryLedger) FindAccountByCustomerRef(_ context.Context, ref string) (*Account, error) {
	return m.find(func(a *Account) bool { return a.BillingCustomerRef == ref }), nil
}

func (m *memoryLedger) FindAccountBySubscriptionRef(_ context.Context, ref string) (*Account, error) {
	return m.find(func(a *Account) bool { return a.SubscriptionRef == ref }), nil
}

func (m *memoryLedger) ListTransactions(_ context.Context, accountID string, page, pageSize int) ([]*Transaction, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.txns[accountID]
	// newest first
	out := make([]*Transaction, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, all[i])
	}
	start := (page - 1) * pageSize
	if start >= len(out) {
		return nil, int64(len(all)), nil
	}
	end := start + pageSize
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], int64(len(all)), nil
}

func (m *memoryLedger) ListAccountIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.accounts))
	for id := range m.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// put stores an account directly, bypassing the ledger.
func (m *memoryLedger) put(acc *Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *acc
	m.accounts[acc.AccountID] = &cp
}

func (m *memoryLedger) history(accountID string) []*Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Transaction(nil), m.txns[accountID]...)
}

func (m *memoryLedger) sum(accountID string) int64 {
	var s int64
	for _, t := range m.history(accountID) {
		s += t.Amount
	}
	return s
}

type memoryEvents struct {
	mu   sync.Mutex
	seen map[string]*BillingEventRecord
}

func newMemoryEvents() *memoryEvents {
	return &memoryEvents{seen: make(map[string]*BillingEventRecord)}
}

func (e *memoryEvents) IsProcessed(_ context.Context, provider, eventID string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.seen[provider+"/"+eventID]
	return ok, nil
}

func (e *memoryEvents) MarkProcessed(_ context.Context, rec *BillingEventRecord) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := rec.Provider + "/" + rec.EventID
	if _, ok := e.seen[key]; ok {
		return creditErrors.AlreadyReconciled(rec.EventID)
	}
	e.seen[key] = rec
	return nil
}

type stubProvider struct {
	subs map[string]*SubscriptionSnapshot
	err  error
}

func (p *stubProvider) FetchSubscription(_ context.Context, ref string) (*SubscriptionSnapshot, error) {
	if p.err != nil {
		return nil, p.err
	}
	sub, ok := p.subs[ref]
	if !ok {
		return nil, fmt.Errorf("no such subscription %s", ref)
	}
	return sub, nil
}
