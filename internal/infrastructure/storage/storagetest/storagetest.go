// Package storagetest holds the behaviour every storage backend must share.
//
// Each backend package runs Run against its own repositories and transaction
// manager. Every case works in a fresh counter scope with fresh owner ids, so
// a shared database can be reused across cases and runs.
package storagetest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicebook/internal/core/apperror"
	"invoicebook/internal/core/id"
	"invoicebook/internal/core/numerator"
	"invoicebook/internal/core/tx"
	"invoicebook/internal/domain/invoice"
	infranumerator "invoicebook/internal/infrastructure/numerator"
)

// Backend is one storage implementation under test.
type Backend struct {
	Invoices  invoice.Repository
	Counters  numerator.Counter
	TxManager tx.Manager

	// MaxAttempts is the retry bound TxManager was built with.
	MaxAttempts int

	// LocksCounterOnRead is set when the transactional counter read takes a
	// row lock (SELECT ... FOR UPDATE). The competing write of the retry case
	// then lands after the transaction's first read and before the counter read.
	LocksCounterOnRead bool

	// NoForcedConflict skips the retry exhaustion case with this reason.
	NoForcedConflict string
}

// Run executes every contract case against b.
func Run(t *testing.T, b Backend) {
	t.Helper()
	require.NotNil(t, b.Invoices)
	require.NotNil(t, b.Counters)
	require.NotNil(t, b.TxManager)

	t.Run("CreateRoundTrip", func(t *testing.T) { testCreateRoundTrip(t, b) })
	t.Run("ConcurrentCreatesAreGapless", func(t *testing.T) { testConcurrentCreatesAreGapless(t, b) })
	t.Run("AbortedCreateLeavesNoGap", func(t *testing.T) { testAbortedCreateLeavesNoGap(t, b) })
	t.Run("ListNewestFirst", func(t *testing.T) { testListNewestFirst(t, b) })
	t.Run("ListFallsBackWhenSortedQueryUnavailable", func(t *testing.T) { testListFallback(t, b) })
	t.Run("NumberExists", func(t *testing.T) { testNumberExists(t, b) })
	t.Run("DeleteByNonOwnerChangesNothing", func(t *testing.T) { testDeleteByNonOwner(t, b) })
	t.Run("DeleteRemovesItemsThenHeader", func(t *testing.T) { testDelete(t, b) })
	t.Run("RenameNumber", func(t *testing.T) { testRenameNumber(t, b) })
	t.Run("RetryExhaustionIsConcurrentModification", func(t *testing.T) { testRetryExhaustion(t, b) })
}

var year2025 = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }

type env struct {
	b     Backend
	repo  *faultRepo
	gen   *infranumerator.Service
	svc   *invoice.Service
	scope string
}

func newEnv(t *testing.T, b Backend) *env {
	t.Helper()
	cfg := invoice.DefaultConfig()
	cfg.Numbering.Scope = "contract-" + id.NewString()
	cfg.Numbering.Prefix = "CT"

	e := &env{
		b:     b,
		repo:  &faultRepo{Repository: b.Invoices},
		gen:   infranumerator.New(b.Counters),
		scope: cfg.Numbering.Scope,
	}
	e.svc = invoice.NewService(e.repo, e.gen, b.TxManager, invoice.WithConfig(cfg), invoice.WithClock(year2025))
	return e
}

func owner(name string) string {
	return name + "-" + id.NewString()
}

func (e *env) create(t *testing.T, ownerID string, items ...invoice.ItemInput) string {
	t.Helper()
	if len(items) == 0 {
		items = []invoice.ItemInput{{Description: "Consulting", Quantity: "1", Price: "10"}}
	}
	headerID, err := e.svc.Create(context.Background(), ownerID, invoice.Draft{
		InvoiceDate: "2025-06-15",
		Items:       items,
	})
	require.NoError(t, err)
	return headerID
}

func (e *env) counter(t *testing.T) int64 {
	t.Helper()
	var v int64
	require.NoError(t, e.b.TxManager.RunInTransaction(context.Background(), func(ctx context.Context) error {
		var err error
		v, err = e.b.Counters.Load(ctx, e.scope)
		return err
	}))
	return v
}

func (e *env) number(t *testing.T, headerID string) string {
	t.Helper()
	got, err := e.svc.GetDetails(context.Background(), headerID)
	require.NoError(t, err)
	return got.InvoiceNumber
}

// faultRepo fails selected calls once, then delegates.
type faultRepo struct {
	invoice.Repository

	mu            sync.Mutex
	saveLinesErr  error
	sortedListErr error
	findErr       error
}

func (r *faultRepo) take(slot *error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	err := *slot
	*slot = nil
	return err
}

func (r *faultRepo) SaveLines(ctx context.Context, headerID string, items []invoice.LineItem) error {
	if err := r.take(&r.saveLinesErr); err != nil {
		return err
	}
	return r.Repository.SaveLines(ctx, headerID, items)
}

func (r *faultRepo) ListByOwner(ctx context.Context, ownerID string, opts invoice.ListOptions) ([]*invoice.Header, error) {
	if opts.NewestFirst {
		if err := r.take(&r.sortedListErr); err != nil {
			return nil, err
		}
	}
	return r.Repository.ListByOwner(ctx, ownerID, opts)
}

func (r *faultRepo) FindByNumber(ctx context.Context, ownerID, number string) ([]*invoice.Header, error) {
	if err := r.take(&r.findErr); err != nil {
		return nil, err
	}
	return r.Repository.FindByNumber(ctx, ownerID, number)
}

func testCreateRoundTrip(t *testing.T, b Backend) {
	e := newEnv(t, b)
	ctx := context.Background()
	alice := owner("alice")
	before := time.Now().Add(-time.Minute)

	headerID, err := e.svc.Create(ctx, alice, invoice.Draft{
		InvoiceDate:   "2025-06-15",
		CustomerName:  "  ",
		DiscountType:  invoice.DiscountPercentage,
		DiscountValue: "10",
		Items: []invoice.ItemInput{
			{Description: "Design", Quantity: "2", Price: "100"},
			{Description: "Hosting", Quantity: "1", Price: "50"},
			{Description: "Support", Quantity: "0.5", Price: "0.1"},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, headerID)

	got, err := e.svc.GetDetails(ctx, headerID)
	require.NoError(t, err)

	assert.Equal(t, headerID, got.ID)
	assert.Equal(t, "CT/25/001", got.InvoiceNumber)
	assert.Equal(t, alice, got.UserID)
	assert.Equal(t, invoice.DefaultCustomerName, got.CustomerName)
	assert.Equal(t, invoice.DefaultCurrencySymbol, got.CurrencySymbol)
	assert.Equal(t, invoice.DiscountPercentage, got.DiscountType)
	assert.Equal(t, "250.05", got.SubTotal.StringFixed(2))
	assert.Equal(t, "25.01", got.DiscountAmount.StringFixed(2))
	assert.Equal(t, "225.05", got.GrandTotal.StringFixed(2))
	assert.True(t, got.CreatedAt.After(before), "createdAt %s is server-assigned", got.CreatedAt)
	assert.True(t, got.CreatedAt.Before(time.Now().Add(time.Minute)))

	require.Len(t, got.Items, 3)
	for i, item := range got.Items {
		assert.Equal(t, i+1, item.Position, "positions are 1-based in submission order")
		assert.NotEmpty(t, item.ID)
	}
	assert.Equal(t, "Design", got.Items[0].Description)
	assert.Equal(t, "200.00", got.Items[0].Total.StringFixed(2))
	assert.Equal(t, "0.05", got.Items[2].Total.StringFixed(2), "decimal totals survive the store")

	assert.EqualValues(t, 1, e.counter(t))
}

func testConcurrentCreatesAreGapless(t *testing.T, b Backend) {
	e := newEnv(t, b)
	ctx := context.Background()

	const prior = 40
	require.NoError(t, b.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return e.gen.SetNextNumber(ctx, numerator.Config{Scope: e.scope}, prior)
	}))

	const n = 8
	owners := []string{owner("alice"), owner("bob")}
	ids := make([]string, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// A body re-run by the store counts as one attempt; a create that
			// exhausts them is simply submitted again.
			for try := 0; try < 50; try++ {
				ids[i], errs[i] = e.svc.Create(ctx, owners[i%len(owners)], invoice.Draft{
					Items: []invoice.ItemInput{{Description: "Item", Quantity: "1", Price: "1"}},
				})
				if !apperror.IsConcurrentModification(errs[i]) {
					return
				}
			}
		}(i)
	}
	wg.Wait()

	suffixes := make([]int, 0, n)
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[ids[i]], "duplicate id %s", ids[i])
		seen[ids[i]] = true
		suffixes = append(suffixes, int(infranumerator.ParseNumber(e.number(t, ids[i]))))
	}
	sort.Ints(suffixes)

	for i, s := range suffixes {
		assert.Equal(t, prior+1+i, s)
	}
	assert.EqualValues(t, prior+n, e.counter(t))
}

func testAbortedCreateLeavesNoGap(t *testing.T, b Backend) {
	e := newEnv(t, b)
	ctx := context.Background()
	alice := owner("alice")
	boom := errors.New("line write rejected")
	e.repo.saveLinesErr = boom

	_, err := e.svc.Create(ctx, alice, invoice.Draft{
		Items: []invoice.ItemInput{{Description: "Item", Quantity: "1", Price: "1"}},
	})
	require.ErrorIs(t, err, boom)

	headers, err := e.svc.List(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, headers, "header rolled back with the lines")
	assert.Zero(t, e.counter(t), "counter rolled back")

	assert.Equal(t, "CT/25/001", e.number(t, e.create(t, alice)))
}

func testListNewestFirst(t *testing.T, b Backend) {
	e := newEnv(t, b)
	ctx := context.Background()
	alice, bob := owner("alice"), owner("bob")

	var want []string
	for i := 0; i < 3; i++ {
		want = append([]string{e.create(t, alice)}, want...)
		// Millisecond store clocks must not tie.
		time.Sleep(5 * time.Millisecond)
	}
	e.create(t, bob)

	headers, err := e.svc.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, headers, 3)
	for i, h := range headers {
		assert.Equal(t, want[i], h.ID)
		assert.Equal(t, alice, h.UserID)
		assert.False(t, h.CreatedAt.IsZero())
	}

	empty, err := e.svc.List(ctx, owner("nobody"))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testListFallback(t *testing.T, b Backend) {
	e := newEnv(t, b)
	ctx := context.Background()
	alice := owner("alice")

	for i := 0; i < 3; i++ {
		e.create(t, alice)
		time.Sleep(5 * time.Millisecond)
	}

	primary, err := e.svc.List(ctx, alice)
	require.NoError(t, err)

	e.repo.sortedListErr = apperror.NewIndexUnavailable("invoices by userId, createdAt desc", errors.New("index is building"))
	fallback, err := e.svc.List(ctx, alice)
	require.NoError(t, err)

	require.Len(t, fallback, len(primary))
	for i := range primary {
		assert.Equal(t, primary[i].ID, fallback[i].ID)
	}
}

func testNumberExists(t *testing.T, b Backend) {
	e := newEnv(t, b)
	ctx := context.Background()
	alice := owner("alice")

	first := e.create(t, alice)
	number := e.number(t, first)

	assert.True(t, e.svc.NumberExists(ctx, alice, number, ""))
	assert.True(t, e.svc.NumberExists(ctx, alice, "  "+number+" ", ""), "input is trimmed")
	assert.False(t, e.svc.NumberExists(ctx, alice, number, first), "own invoice is excluded")
	assert.False(t, e.svc.NumberExists(ctx, owner("bob"), number, ""), "numbers are per owner")
	assert.False(t, e.svc.NumberExists(ctx, alice, "CT/25/999", ""))

	e.repo.findErr = apperror.NewDatabase(errors.New("store unreachable"))
	assert.False(t, e.svc.NumberExists(ctx, alice, number, ""), "store errors read as free")
}

func testDeleteByNonOwner(t *testing.T, b Backend) {
	e := newEnv(t, b)
	ctx := context.Background()
	alice := owner("alice")
	headerID := e.create(t, alice,
		invoice.ItemInput{Description: "A", Quantity: "1", Price: "1"},
		invoice.ItemInput{Description: "B", Quantity: "1", Price: "2"})

	err := e.svc.Delete(ctx, headerID, owner("mallory"))
	assert.True(t, apperror.IsForbidden(err), "got %v", err)

	got, err := e.svc.GetDetails(ctx, headerID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)
}

func testDelete(t *testing.T, b Backend) {
	e := newEnv(t, b)
	ctx := context.Background()
	alice := owner("alice")
	headerID := e.create(t, alice,
		invoice.ItemInput{Description: "A", Quantity: "1", Price: "1"},
		invoice.ItemInput{Description: "B", Quantity: "1", Price: "2"},
		invoice.ItemInput{Description: "C", Quantity: "1", Price: "3"})
	kept := e.create(t, alice)

	require.NoError(t, e.svc.Delete(ctx, headerID, alice))

	_, err := e.svc.GetDetails(ctx, headerID)
	assert.True(t, apperror.IsNotFound(err), "got %v", err)

	lines, err := b.Invoices.GetLines(ctx, headerID)
	require.NoError(t, err)
	assert.Empty(t, lines)

	err = e.svc.Delete(ctx, headerID, alice)
	assert.True(t, apperror.IsNotFound(err), "second delete: %v", err)

	headers, err := e.svc.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, headers, 1)
	assert.Equal(t, kept, headers[0].ID)
}

func testRenameNumber(t *testing.T, b Backend) {
	e := newEnv(t, b)
	ctx := context.Background()
	alice, bob := owner("alice"), owner("bob")

	first := e.create(t, alice)
	second := e.create(t, alice)
	oldNumber := e.number(t, second)

	require.NoError(t, e.svc.RenameNumber(ctx, second, alice, " CUSTOM-7 "))
	assert.Equal(t, "CUSTOM-7", e.number(t, second))

	gone, err := b.Invoices.FindByNumber(ctx, alice, oldNumber)
	require.NoError(t, err)
	assert.Empty(t, gone)

	err = e.svc.RenameNumber(ctx, first, alice, "CUSTOM-7")
	assert.True(t, apperror.IsDuplicate(err), "got %v", err)
	assert.Equal(t, "CT/25/001", e.number(t, first))

	require.NoError(t, e.svc.RenameNumber(ctx, second, alice, "CUSTOM-7"), "keeping its own number")

	err = e.svc.RenameNumber(ctx, second, bob, "CUSTOM-8")
	assert.True(t, apperror.IsForbidden(err), "got %v", err)

	bobs := e.create(t, bob)
	require.NoError(t, e.svc.RenameNumber(ctx, bobs, bob, "CUSTOM-7"), "numbers are per owner")

	err = e.svc.RenameNumber(ctx, "missing-"+id.NewString(), alice, "CUSTOM-9")
	assert.True(t, apperror.IsNotFound(err), "got %v", err)
}

func testRetryExhaustion(t *testing.T, b Backend) {
	if b.NoForcedConflict != "" {
		t.Skip(b.NoForcedConflict)
	}
	require.Positive(t, b.MaxAttempts)

	e := newEnv(t, b)
	ctx := context.Background()

	const seed = 10
	require.NoError(t, b.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return b.Counters.Store(ctx, e.scope, seed)
	}))

	var attempts atomic.Int64
	// compete commits a counter write outside the running transaction.
	compete := func() {
		require.NoError(t, b.Counters.Store(context.Background(), e.scope, seed+attempts.Load()))
	}

	err := b.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		attempts.Add(1)
		if b.LocksCounterOnRead {
			if _, err := b.Invoices.FindByNumber(ctx, owner("reader"), "none"); err != nil {
				return err
			}
			compete()
		}
		last, err := b.Counters.Load(ctx, e.scope)
		if err != nil {
			return err
		}
		if !b.LocksCounterOnRead {
			compete()
		}
		return b.Counters.Store(ctx, e.scope, last+100)
	})

	require.Error(t, err)
	assert.True(t, apperror.IsConcurrentModification(err), "got %v", err)
	assert.Equal(t, 409, apperror.GetHTTPStatus(err))
	assert.EqualValues(t, b.MaxAttempts, attempts.Load())
	assert.EqualValues(t, seed+b.MaxAttempts, e.counter(t), "only the competing writes landed")
}
