package usecases

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	appledger "github.com/orris-inc/offramp/internal/application/ledger"
	"github.com/orris-inc/offramp/internal/application/matching"
	"github.com/orris-inc/offramp/internal/application/settlement/notification"
	"github.com/orris-inc/offramp/internal/application/settlement/pricing"
	"github.com/orris-inc/offramp/internal/application/settlement/provider"
	"github.com/orris-inc/offramp/internal/domain/deposit"
	"github.com/orris-inc/offramp/internal/domain/intent"
	intentvo "github.com/orris-inc/offramp/internal/domain/intent/valueobjects"
	"github.com/orris-inc/offramp/internal/domain/ledger"
	"github.com/orris-inc/offramp/internal/domain/settlement"
	vo "github.com/orris-inc/offramp/internal/domain/settlement/valueobjects"
	"github.com/orris-inc/offramp/internal/domain/shared/asset"
	"github.com/orris-inc/offramp/internal/shared/biztime"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

// memStore is a serializable in-memory database. RunInTransaction holds the
// store lock for the whole callback and restores a snapshot on error, so the
// fakes behave like rows under a real transaction.
type memStore struct {
	mu        sync.Mutex
	clock     biztime.Clock
	intents   map[string]intent.SellIntent
	records   map[string]settlement.Record
	unmatched map[string]settlement.UnmatchedDeposit
	accounts  map[string]ledger.Account
	ledgerOps map[string]bool
	credits   int
}

type txKey struct{}

func newMemStore(clock biztime.Clock) *memStore {
	return &memStore{
		clock:     clock,
		intents:   make(map[string]intent.SellIntent),
		records:   make(map[string]settlement.Record),
		unmatched: make(map[string]settlement.UnmatchedDeposit),
		accounts:  make(map[string]ledger.Account),
		ledgerOps: make(map[string]bool),
	}
}

func (s *memStore) lock(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *memStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.copyState()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

type storeState struct {
	intents   map[string]intent.SellIntent
	records   map[string]settlement.Record
	unmatched map[string]settlement.UnmatchedDeposit
	accounts  map[string]ledger.Account
	ledgerOps map[string]bool
	credits   int
}

func (s *memStore) copyState() storeState {
	st := storeState{
		intents:   make(map[string]intent.SellIntent, len(s.intents)),
		records:   make(map[string]settlement.Record, len(s.records)),
		unmatched: make(map[string]settlement.UnmatchedDeposit, len(s.unmatched)),
		accounts:  make(map[string]ledger.Account, len(s.accounts)),
		ledgerOps: make(map[string]bool, len(s.ledgerOps)),
		credits:   s.credits,
	}
	for k, v := range s.intents {
		st.intents[k] = v
	}
	for k, v := range s.records {
		st.records[k] = v
	}
	for k, v := range s.unmatched {
		st.unmatched[k] = v
	}
	for k, v := range s.accounts {
		st.accounts[k] = v
	}
	for k, v := range s.ledgerOps {
		st.ledgerOps[k] = v
	}
	return st
}

func (s *memStore) restore(st storeState) {
	s.intents = st.intents
	s.records = st.records
	s.unmatched = st.unmatched
	s.accounts = st.accounts
	s.ledgerOps = st.ledgerOps
	s.credits = st.credits
}

// intent.Repository

type memIntentRepo struct{ s *memStore }

func (r memIntentRepo) Create(ctx context.Context, si *intent.SellIntent) error {
	defer r.s.lock(ctx)()
	r.s.intents[si.ID()] = *si
	return nil
}

func (r memIntentRepo) GetByID(ctx context.Context, id string) (*intent.SellIntent, error) {
	defer r.s.lock(ctx)()
	si, ok := r.s.intents[id]
	if !ok {
		return nil, intent.ErrIntentNotFound
	}
	return &si, nil
}

func (r memIntentRepo) FindNewestPending(ctx context.Context, q intent.MatchQuery) (*intent.SellIntent, error) {
	defer r.s.lock(ctx)()
	var newest *intent.SellIntent
	for _, si := range r.s.intents {
		si := si
		if si.Network() != q.Network || si.DepositAddress() != q.DepositAddress || si.Asset() != q.Asset {
			continue
		}
		if !si.Status().IsPending() || !si.ExpiresAt().After(q.Now) {
			continue
		}
		if newest == nil || si.CreatedAt().After(newest.CreatedAt()) {
			newest = &si
		}
	}
	return newest, nil
}

func (r memIntentRepo) TransitionStatus(ctx context.Context, id string, from, to intentvo.IntentStatus) (bool, error) {
	defer r.s.lock(ctx)()
	si, ok := r.s.intents[id]
	if !ok || si.Status() != from {
		return false, nil
	}
	if err := si.ApplyStatus(to, r.s.clock.Now()); err != nil {
		return false, err
	}
	r.s.intents[id] = si
	return true, nil
}

func (r memIntentRepo) SetPayoutDestination(ctx context.Context, id string, status intentvo.IntentStatus, dest intentvo.PayoutDestination) (bool, error) {
	defer r.s.lock(ctx)()
	si, ok := r.s.intents[id]
	if !ok || si.Status() != status {
		return false, nil
	}
	si.ApplyPayoutDestination(dest, r.s.clock.Now())
	r.s.intents[id] = si
	return true, nil
}

func (r memIntentRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]*intent.SellIntent, error) {
	defer r.s.lock(ctx)()
	var out []*intent.SellIntent
	for _, si := range r.s.intents {
		si := si
		if si.Status().IsPending() && !si.ExpiresAt().After(now) {
			out = append(out, &si)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memStore) intent(id string) *intent.SellIntent {
	s.mu.Lock()
	defer s.mu.Unlock()
	si := s.intents[id]
	return &si
}

// settlement.Repository

type memRecordRepo struct{ s *memStore }

func (r memRecordRepo) Create(ctx context.Context, rec *settlement.Record) error {
	defer r.s.lock(ctx)()
	for _, existing := range r.s.records {
		if existing.IntentID() == rec.IntentID() ||
			(existing.Network() == rec.Network() && existing.ObservedTxHash() == rec.ObservedTxHash()) {
			return settlement.ErrRecordExists
		}
	}
	r.s.records[rec.ID()] = *rec
	return nil
}

func (r memRecordRepo) Update(ctx context.Context, rec *settlement.Record) error {
	defer r.s.lock(ctx)()
	stored, ok := r.s.records[rec.ID()]
	if !ok {
		return settlement.ErrRecordNotFound
	}
	if stored.Version() != rec.Version()-1 {
		return settlement.ErrVersionConflict
	}
	r.s.records[rec.ID()] = *rec
	return nil
}

func (r memRecordRepo) find(ctx context.Context, pred func(settlement.Record) bool) (*settlement.Record, error) {
	defer r.s.lock(ctx)()
	for _, rec := range r.s.records {
		if pred(rec) {
			rec := rec
			return &rec, nil
		}
	}
	return nil, settlement.ErrRecordNotFound
}

func (r memRecordRepo) GetByIntentID(ctx context.Context, intentID string) (*settlement.Record, error) {
	return r.find(ctx, func(rec settlement.Record) bool { return rec.IntentID() == intentID })
}

func (r memRecordRepo) GetByObservedTx(ctx context.Context, network asset.Network, txHash string) (*settlement.Record, error) {
	return r.find(ctx, func(rec settlement.Record) bool {
		return rec.Network() == network && rec.ObservedTxHash() == txHash
	})
}

func (r memRecordRepo) GetByPayoutIdempotencyKey(ctx context.Context, key string) (*settlement.Record, error) {
	return r.find(ctx, func(rec settlement.Record) bool { return rec.PayoutIdempotencyKey() == key })
}

func (r memRecordRepo) GetByPayoutReference(ctx context.Context, reference string) (*settlement.Record, error) {
	return r.find(ctx, func(rec settlement.Record) bool {
		return rec.PayoutResult() != nil && rec.PayoutResult().Reference == reference
	})
}

func (r memRecordRepo) ListStale(ctx context.Context, states []vo.SettlementState, cutoff time.Time, limit int) ([]*settlement.Record, error) {
	defer r.s.lock(ctx)()
	var out []*settlement.Record
	for _, rec := range r.s.records {
		rec := rec
		if !rec.UpdatedAt().Before(cutoff) {
			continue
		}
		if rec.State() == vo.SettlementStateSwapped && rec.Destination() == nil {
			continue
		}
		for _, st := range states {
			if rec.State() == st {
				out = append(out, &rec)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt().Before(out[j].UpdatedAt()) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memRecordRepo) List(ctx context.Context, filter settlement.ListFilter) ([]*settlement.Record, int64, error) {
	defer r.s.lock(ctx)()
	var out []*settlement.Record
	for _, rec := range r.s.records {
		rec := rec
		if filter.Owner != "" && rec.Owner() != filter.Owner {
			continue
		}
		if len(filter.States) > 0 {
			found := false
			for _, st := range filter.States {
				found = found || rec.State() == st
			}
			if !found {
				continue
			}
		}
		out = append(out, &rec)
	}
	total := int64(len(out))
	if filter.Offset >= len(out) {
		return nil, total, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (s *memStore) record(intentID string) *settlement.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.IntentID() == intentID {
			rec := rec
			return &rec
		}
	}
	return &settlement.Record{}
}

func (s *memStore) recordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// settlement.UnmatchedDepositRepository

type memUnmatchedRepo struct{ s *memStore }

func (r memUnmatchedRepo) Save(ctx context.Context, d *settlement.UnmatchedDeposit) (bool, error) {
	defer r.s.lock(ctx)()
	key := string(d.Network) + ":" + d.TxHash + ":" + d.Address
	if _, ok := r.s.unmatched[key]; ok {
		return false, nil
	}
	r.s.unmatched[key] = *d
	return true, nil
}

func (r memUnmatchedRepo) GetByDelivery(ctx context.Context, network asset.Network, txHash, address string) (*settlement.UnmatchedDeposit, error) {
	defer r.s.lock(ctx)()
	d, ok := r.s.unmatched[string(network)+":"+txHash+":"+address]
	if !ok {
		return nil, settlement.ErrUnmatchedNotFound
	}
	return &d, nil
}

func (r memUnmatchedRepo) List(ctx context.Context, offset, limit int) ([]*settlement.UnmatchedDeposit, int64, error) {
	defer r.s.lock(ctx)()
	var out []*settlement.UnmatchedDeposit
	for _, d := range r.s.unmatched {
		d := d
		out = append(out, &d)
	}
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (s *memStore) unmatchedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.unmatched)
}

// ledger.Repository

type memLedgerRepo struct{ s *memStore }

func accountKey(owner string, code asset.Code) string { return owner + "/" + string(code) }

func (r memLedgerRepo) Apply(ctx context.Context, op ledger.Operation) (*ledger.Account, bool, error) {
	defer r.s.lock(ctx)()
	key := accountKey(op.Owner, op.Asset)
	acc, ok := r.s.accounts[key]
	if !ok {
		acc = ledger.Account{Owner: op.Owner, Asset: op.Asset}
	}
	if op.IdempotencyKey != "" && r.s.ledgerOps[op.IdempotencyKey] {
		return &acc, false, nil
	}

	switch op.Kind {
	case ledger.OperationCredit:
		acc.Available += op.Amount
		r.s.credits++
	case ledger.OperationDebit:
		if acc.Available < op.Amount {
			return nil, false, ledger.ErrInsufficientFunds
		}
		acc.Available -= op.Amount
	case ledger.OperationReserve:
		if acc.Available < op.Amount {
			return nil, false, ledger.ErrInsufficientFunds
		}
		acc.Available -= op.Amount
		acc.Pending += op.Amount
	case ledger.OperationRelease:
		if acc.Pending < op.Amount {
			return nil, false, ledger.ErrInsufficientFunds
		}
		acc.Pending -= op.Amount
		acc.Available += op.Amount
	case ledger.OperationCommit:
		if acc.Pending < op.Amount {
			return nil, false, ledger.ErrInsufficientFunds
		}
		acc.Pending -= op.Amount
		acc.Settled += op.Amount
	}
	acc.UpdatedAt = r.s.clock.Now()
	r.s.accounts[key] = acc
	if op.IdempotencyKey != "" {
		r.s.ledgerOps[op.IdempotencyKey] = true
	}
	return &acc, true, nil
}

func (r memLedgerRepo) GetAccount(ctx context.Context, owner string, code asset.Code) (*ledger.Account, error) {
	defer r.s.lock(ctx)()
	acc, ok := r.s.accounts[accountKey(owner, code)]
	if !ok {
		acc = ledger.Account{Owner: owner, Asset: code}
	}
	return &acc, nil
}

func (s *memStore) account(owner string, code asset.Code) ledger.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[accountKey(owner, code)]
}

func (s *memStore) creditCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credits
}

// pricing

type fixedOracle struct {
	prices map[asset.Code]decimal.Decimal
	err    error
}

func (o *fixedOracle) Price(_ context.Context, assetCode, _ asset.Code) (decimal.Decimal, error) {
	if o.err != nil {
		return decimal.Zero, o.err
	}
	p, ok := o.prices[assetCode]
	if !ok {
		return decimal.Zero, pricing.ErrPriceUnavailable
	}
	return p, nil
}

// rateQuoter prices at a fixed rate with no fees, truncating to the currency unit.
type rateQuoter struct {
	mu   sync.Mutex
	rate decimal.Decimal
	err  error
}

func (q *rateQuoter) setRate(rate string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rate = decimal.RequireFromString(rate)
}

func (q *rateQuoter) GetSellQuote(_ context.Context, assetCode, currency asset.Code, amount decimal.Decimal) (*pricing.SellQuote, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return nil, q.err
	}
	receive := currency.Quantize(amount.Mul(q.rate))
	return &pricing.SellQuote{
		Asset:         assetCode,
		Currency:      currency,
		SellAmount:    amount,
		Rate:          q.rate,
		ReceiveAmount: receive,
		Breakdown:     pricing.Breakdown{GrossAmount: receive},
	}, nil
}

// provider and notification mocks

type MockSwapGateway struct {
	mock.Mock
}

func (m *MockSwapGateway) Swap(ctx context.Context, req provider.SwapRequest) (vo.ProviderResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(vo.ProviderResult), args.Error(1)
}

type MockPayoutGateway struct {
	mock.Mock
}

func (m *MockPayoutGateway) Payout(ctx context.Context, req provider.PayoutRequest) (vo.ProviderResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(vo.ProviderResult), args.Error(1)
}

func (m *MockPayoutGateway) PayoutStatus(ctx context.Context, reference, idempotencyKey string) (vo.ProviderResult, error) {
	args := m.Called(ctx, reference, idempotencyKey)
	return args.Get(0).(vo.ProviderResult), args.Error(1)
}

type recordingSink struct {
	mu   sync.Mutex
	sent []notification.SettlementNotification
}

func (s *recordingSink) NotifySettlement(_ context.Context, n notification.SettlementNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, n)
	return nil
}

func (s *recordingSink) outcomes() []notification.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]notification.Outcome, 0, len(s.sent))
	for _, n := range s.sent {
		out = append(out, n.Outcome)
	}
	return out
}

type recordingAlerter struct {
	mu     sync.Mutex
	alerts []notification.OperatorAlert
}

func (a *recordingAlerter) AlertProviderFailure(_ context.Context, alert notification.OperatorAlert) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, alert)
	return nil
}

func (a *recordingAlerter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.alerts)
}

// fixture wiring

const (
	testOwner   = "user_1"
	testAddress = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	clock    *biztime.ManualClock
	store    *memStore
	intents  memIntentRepo
	records  memRecordRepo
	quoter   *rateQuoter
	oracle   *fixedOracle
	swap     *MockSwapGateway
	payout   *MockPayoutGateway
	sink     *recordingSink
	alerter  *recordingAlerter
	settler  *Settler
	deposits *HandleDepositUseCase
}

func newFixture() *fixture {
	return newFixtureWithTolerance(matching.DefaultToleranceUSD)
}

func newFixtureWithTolerance(tolerance decimal.Decimal) *fixture {
	clock := biztime.NewManualClock(testNow)
	store := newMemStore(clock)
	log := logger.NewNop()

	f := &fixture{
		clock:   clock,
		store:   store,
		intents: memIntentRepo{s: store},
		records: memRecordRepo{s: store},
		quoter:  &rateQuoter{rate: decimal.NewFromInt(1500)},
		oracle:  &fixedOracle{prices: map[asset.Code]decimal.Decimal{asset.USDT: decimal.NewFromInt(1)}},
		swap:    &MockSwapGateway{},
		payout:  &MockPayoutGateway{},
		sink:    &recordingSink{},
		alerter: &recordingAlerter{},
	}

	balances := appledger.NewBalanceLedger(memLedgerRepo{s: store}, log)
	matcher := matching.NewDepositMatcher(f.intents, f.oracle, tolerance, clock, log)

	f.settler = NewSettler(f.intents, f.records, balances, store, f.swap, f.payout, clock, log)
	f.settler.SetNotifier(f.sink)
	f.settler.SetAlerter(f.alerter)

	f.deposits = NewHandleDepositUseCase(matcher, f.quoter, f.intents, f.records, memUnmatchedRepo{s: store}, balances, store, f.settler, clock, log)
	return f
}

func (f *fixture) seedIntent(id, quoted string, withDestination bool) *intent.SellIntent {
	amount := decimal.RequireFromString(quoted)
	var dest *intentvo.PayoutDestination
	if withDestination {
		d, err := intentvo.NewPayoutDestination("058", "0123456789", "Ada Obi")
		if err != nil {
			panic(err)
		}
		dest = &d
	}
	si := intent.ReconstructSellIntent(
		id, testOwner, asset.USDT, asset.NetworkTron, testAddress, nil,
		intent.Quote{
			SellAmount:    amount,
			ReceiveAmount: amount.Mul(decimal.NewFromInt(1500)),
			Rate:          decimal.NewFromInt(1500),
		},
		asset.NGN, intentvo.IntentStatusPending, testNow.Add(30*time.Minute), dest, 1,
		testNow.Add(-time.Minute), testNow.Add(-time.Minute),
	)
	f.store.mu.Lock()
	f.store.intents[id] = *si
	f.store.mu.Unlock()
	return si
}

func finalDeposit(amount, txHash string) deposit.Event {
	return deposit.Event{
		Provider:   "custody",
		Asset:      asset.USDT,
		Network:    asset.NetworkTron,
		Address:    testAddress,
		Amount:     decimal.RequireFromString(amount),
		TxHash:     txHash,
		RawStatus:  "confirmed",
		Finality:   deposit.FinalityFinal,
		ReceivedAt: testNow,
	}
}

func succeeded(reference string) vo.ProviderResult {
	return vo.ProviderResult{ProviderID: "test", Reference: reference, Status: vo.ProviderCallSucceeded, ProviderStatus: "successful"}
}

func failed(code, msg string) vo.ProviderResult {
	return vo.ProviderResult{ProviderID: "test", Status: vo.ProviderCallFailed, ErrorCode: code, ErrorMessage: msg, HTTPStatus: 400}
}
