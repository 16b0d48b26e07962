package invoice_test

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
	"invoicebook/internal/core/numerator"
	"invoicebook/internal/core/types"
	"invoicebook/internal/domain/invoice"
	infranumerator "invoicebook/internal/infrastructure/numerator"
	"invoicebook/internal/infrastructure/storage/memory"
)

var year2025 = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }

type fixture struct {
	store    *memory.Store
	repo     *faultyRepo
	counters *memory.CounterRepo
	txm      *memory.TxManager
	svc      *invoice.Service
}

func newFixture(t *testing.T, opts ...memory.Option) *fixture {
	t.Helper()
	store := memory.New(opts...)
	f := &fixture{
		store:    store,
		repo:     &faultyRepo{Repository: memory.NewInvoiceRepo(store)},
		counters: memory.NewCounterRepo(store),
		txm:      memory.NewTxManager(store),
	}
	f.svc = invoice.NewService(f.repo, infranumerator.New(f.counters), f.txm, invoice.WithClock(year2025))
	return f
}

func (f *fixture) create(t *testing.T, owner string) string {
	t.Helper()
	headerID, err := f.svc.Create(context.Background(), owner, invoice.Draft{
		InvoiceDate: "2025-06-15",
		Items:       []invoice.ItemInput{{Description: "Consulting", Quantity: "1", Price: "10"}},
	})
	require.NoError(t, err)
	return headerID
}

// faultyRepo injects failures into selected repository calls.
type faultyRepo struct {
	invoice.Repository

	saveLinesErr    error
	deleteLineErr   error
	deleteErr       error
	findErr         error
	unsortedListErr error

	writes atomic.Int32
}

func (r *faultyRepo) SaveLines(ctx context.Context, headerID string, items []invoice.LineItem) error {
	if r.saveLinesErr != nil {
		err := r.saveLinesErr
		r.saveLinesErr = nil
		return err
	}
	r.writes.Add(1)
	return r.Repository.SaveLines(ctx, headerID, items)
}

func (r *faultyRepo) DeleteLine(ctx context.Context, headerID, lineID string) error {
	if r.deleteLineErr != nil {
		return r.deleteLineErr
	}
	r.writes.Add(1)
	return r.Repository.DeleteLine(ctx, headerID, lineID)
}

func (r *faultyRepo) Delete(ctx context.Context, headerID string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.writes.Add(1)
	return r.Repository.Delete(ctx, headerID)
}

func (r *faultyRepo) UpdateNumber(ctx context.Context, headerID, number string) error {
	r.writes.Add(1)
	return r.Repository.UpdateNumber(ctx, headerID, number)
}

func (r *faultyRepo) FindByNumber(ctx context.Context, owner, number string) ([]*invoice.Header, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.Repository.FindByNumber(ctx, owner, number)
}

func (r *faultyRepo) ListByOwner(ctx context.Context, owner string, opts invoice.ListOptions) ([]*invoice.Header, error) {
	if !opts.NewestFirst && r.unsortedListErr != nil {
		return nil, r.unsortedListErr
	}
	return r.Repository.ListByOwner(ctx, owner, opts)
}

func TestService_CreateRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	headerID, err := f.svc.Create(ctx, "alice", invoice.Draft{
		InvoiceDate:   "2025-06-01",
		DiscountType:  invoice.DiscountPercentage,
		DiscountValue: "10",
		Items: []invoice.ItemInput{
			{Description: "Design", Quantity: "2", Price: "100"},
			{Description: "Hosting", Quantity: "1", Price: "50"},
		},
	})
	require.NoError(t, err)

	got, err := f.svc.GetDetails(ctx, headerID)
	require.NoError(t, err)

	assert.Equal(t, headerID, got.ID)
	assert.Equal(t, "BILL/25/001", got.InvoiceNumber)
	assert.Equal(t, "alice", got.UserID)
	assert.Equal(t, "2025-06-01", got.InvoiceDate)
	assert.Equal(t, invoice.DefaultCustomerName, got.CustomerName)
	assert.Equal(t, invoice.DefaultCurrencySymbol, got.CurrencySymbol)
	assert.False(t, got.CreatedAt.IsZero())

	assert.True(t, got.SubTotal.Equal(types.MustMoney("250")))
	assert.True(t, got.DiscountAmount.Equal(types.MustMoney("25")))
	assert.True(t, got.GrandTotal.Equal(types.MustMoney("225")))

	require.Len(t, got.Items, 2)
	assert.Equal(t, "Design", got.Items[0].Description)
	assert.True(t, got.Items[0].Total.Equal(types.MustMoney("200")))
	assert.Equal(t, "Hosting", got.Items[1].Description)
	assert.True(t, got.Items[1].Total.Equal(types.MustMoney("50")))
}

func TestService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, "", invoice.Draft{})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.svc.Create(ctx, "alice", invoice.Draft{Items: []invoice.ItemInput{{Description: ""}}})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.svc.Create(ctx, "alice", invoice.Draft{DiscountValue: "-5"})
	assert.True(t, apperror.IsValidation(err))

	value, err := f.counters.Load(ctx, numerator.DefaultScope)
	require.NoError(t, err)
	assert.Zero(t, value, "rejected drafts never reach the allocator")
}

func TestService_NumberPaddingIsMinimumWidth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return f.counters.Store(ctx, numerator.DefaultScope, 999)
	}))

	headerID := f.create(t, "alice")
	got, err := f.svc.GetDetails(ctx, headerID)
	require.NoError(t, err)
	assert.Equal(t, "BILL/25/1000", got.InvoiceNumber)
}

func TestService_ConcurrentCreatesAreContiguous(t *testing.T) {
	f := newFixture(t, memory.WithMaxAttempts(10000))
	ctx := context.Background()

	const prior = 40
	require.NoError(t, f.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return f.counters.Store(ctx, numerator.DefaultScope, prior)
	}))

	const n = 25
	owners := []string{"alice", "bob", "carol"}
	ids := make([]string, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = f.svc.Create(ctx, owners[i%len(owners)], invoice.Draft{
				Items: []invoice.ItemInput{{Description: "Item", Quantity: "1", Price: "1"}},
			})
		}(i)
	}
	wg.Wait()

	suffixes := make([]int, 0, n)
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		got, err := f.svc.GetDetails(ctx, ids[i])
		require.NoError(t, err)
		suffixes = append(suffixes, int(infranumerator.ParseNumber(got.InvoiceNumber)))
	}
	sort.Ints(suffixes)

	for i, s := range suffixes {
		assert.Equal(t, prior+1+i, s)
	}
}

func TestService_FailedCreateConsumesNoNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	boom := errors.New("write rejected")
	f.repo.saveLinesErr = boom

	_, err := f.svc.Create(ctx, "alice", invoice.Draft{
		Items: []invoice.ItemInput{{Description: "Item", Quantity: "1", Price: "1"}},
	})
	assert.ErrorIs(t, err, boom)

	headers, err := f.svc.List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, headers, "no partial header")

	headerID := f.create(t, "alice")
	got, err := f.svc.GetDetails(ctx, headerID)
	require.NoError(t, err)
	assert.Equal(t, "BILL/25/001", got.InvoiceNumber)
}

func TestService_NumberAllocationFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	unavailable := apperror.NewDatabase(errors.New("counter shard offline"))

	var sawScope string
	gen := &numerator.MockGenerator{
		GetNextNumberFunc: func(ctx context.Context, cfg numerator.Config, period time.Time) (string, error) {
			sawScope = cfg.Scope
			return "", unavailable
		},
	}
	svc := invoice.NewService(f.repo, gen, f.txm, invoice.WithClock(year2025))

	_, err := svc.Create(ctx, "alice", invoice.Draft{
		Items: []invoice.ItemInput{{Description: "Item", Quantity: "1", Price: "1"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, unavailable)
	assert.Equal(t, numerator.DefaultScope, sawScope)
	assert.Zero(t, f.repo.writes.Load())

	headers, err := f.svc.List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, headers)
}

func TestService_ConflictExhaustionSurfaces(t *testing.T) {
	var store *memory.Store
	store = memory.New(memory.WithMaxAttempts(2), memory.WithBeforeCommit(func(int) {
		require.NoError(t, memory.NewCounterRepo(store).Store(context.Background(), numerator.DefaultScope, 5))
	}))
	svc := invoice.NewService(memory.NewInvoiceRepo(store), infranumerator.New(memory.NewCounterRepo(store)), memory.NewTxManager(store))

	_, err := svc.Create(context.Background(), "alice", invoice.Draft{})
	assert.True(t, apperror.IsConcurrentModification(err))
}

func TestService_ListNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.create(t, "alice")
	f.create(t, "bob")
	second := f.create(t, "alice")

	headers, err := f.svc.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, headers, 2)
	assert.Equal(t, second, headers[0].ID)
	assert.Equal(t, first, headers[1].ID)
}

func TestService_ListFallbackMatchesPrimaryOrder(t *testing.T) {
	clock := func() func() time.Time {
		base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		var n int
		return func() time.Time {
			n++
			return base.Add(time.Duration(n) * time.Minute)
		}
	}

	primary := newFixture(t, memory.WithClock(clock()))
	degraded := newFixture(t, memory.WithClock(clock()), memory.WithoutListIndex())

	for _, owner := range []string{"alice", "alice", "bob", "alice"} {
		primary.create(t, owner)
		degraded.create(t, owner)
	}

	want, err := primary.svc.List(context.Background(), "alice")
	require.NoError(t, err)
	got, err := degraded.svc.List(context.Background(), "alice")
	require.NoError(t, err)

	require.Len(t, got, 3)
	for i := range want {
		assert.Equal(t, want[i].InvoiceNumber, got[i].InvoiceNumber)
		assert.Equal(t, want[i].CreatedAt, got[i].CreatedAt)
	}
	assert.True(t, got[0].CreatedAt.After(got[1].CreatedAt))
	assert.True(t, got[1].CreatedAt.After(got[2].CreatedAt))
}

func TestService_ListFallbackFailureSurfacesOriginalError(t *testing.T) {
	f := newFixture(t, memory.WithoutListIndex())
	f.repo.unsortedListErr = apperror.NewDatabase(errors.New("unavailable"))
	f.create(t, "alice")

	_, err := f.svc.List(context.Background(), "alice")
	assert.True(t, apperror.IsIndexUnavailable(err))
}

func TestService_DeleteByNonOwnerChangesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	headerID := f.create(t, "alice")
	writes := f.repo.writes.Load()

	err := f.svc.Delete(ctx, headerID, "mallory")
	assert.True(t, apperror.IsForbidden(err))
	assert.Equal(t, writes, f.repo.writes.Load())

	got, err := f.svc.GetDetails(ctx, headerID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
}

func TestService_DeleteTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	headerID, err := f.svc.Create(ctx, "alice", invoice.Draft{
		Items: []invoice.ItemInput{
			{Description: "a", Quantity: "1", Price: "1"},
			{Description: "b", Quantity: "1", Price: "1"},
			{Description: "c", Quantity: "1", Price: "1"},
		},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, headerID, "alice"))
	lines, err := f.repo.GetLines(ctx, headerID)
	require.NoError(t, err)
	assert.Empty(t, lines)

	writes := f.repo.writes.Load()
	err = f.svc.Delete(ctx, headerID, "alice")
	assert.True(t, apperror.IsNotFound(err))
	assert.Equal(t, writes, f.repo.writes.Load())

	_, err = f.svc.GetDetails(ctx, headerID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_DeletePartialFailureIsRetryable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	headerID := f.create(t, "alice")

	f.repo.deleteLineErr = apperror.NewDatabase(errors.New("timeout"))
	err := f.svc.Delete(ctx, headerID, "alice")
	require.Error(t, err)
	got, err := f.svc.GetDetails(ctx, headerID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1, "header and items intact")

	f.repo.deleteLineErr = nil
	f.repo.deleteErr = apperror.NewDatabase(errors.New("timeout"))
	require.Error(t, f.svc.Delete(ctx, headerID, "alice"))
	got, err = f.svc.GetDetails(ctx, headerID)
	require.NoError(t, err)
	assert.Empty(t, got.Items, "orphaned header without items")

	f.repo.deleteErr = nil
	require.NoError(t, f.svc.Delete(ctx, headerID, "alice"))
	_, err = f.svc.GetDetails(ctx, headerID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_RenameNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.create(t, "alice")
	second := f.create(t, "alice")
	bobs := f.create(t, "bob")

	err := f.svc.RenameNumber(ctx, second, "alice", "BILL/25/001")
	assert.True(t, apperror.IsDuplicate(err))
	got, err := f.svc.GetDetails(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, "BILL/25/002", got.InvoiceNumber)

	// Uniqueness is per owner.
	require.NoError(t, f.svc.RenameNumber(ctx, bobs, "bob", "BILL/25/001"))

	// Renaming to its own current number is not a collision.
	require.NoError(t, f.svc.RenameNumber(ctx, first, "alice", "BILL/25/001"))

	require.NoError(t, f.svc.RenameNumber(ctx, second, "alice", " CUSTOM-7 "))
	got, err = f.svc.GetDetails(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, "CUSTOM-7", got.InvoiceNumber)
	assert.Equal(t, "alice", got.UserID)
	assert.Len(t, got.Items, 1)

	assert.True(t, apperror.IsForbidden(f.svc.RenameNumber(ctx, first, "bob", "X")))
	assert.True(t, apperror.IsNotFound(f.svc.RenameNumber(ctx, "missing", "alice", "X")))
	assert.True(t, apperror.IsValidation(f.svc.RenameNumber(ctx, first, "alice", "  ")))
}

func TestService_NumberExists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	headerID := f.create(t, "alice")

	assert.True(t, f.svc.NumberExists(ctx, "alice", "BILL/25/001", ""))
	assert.False(t, f.svc.NumberExists(ctx, "alice", "BILL/25/001", headerID))
	assert.False(t, f.svc.NumberExists(ctx, "bob", "BILL/25/001", ""))
	assert.False(t, f.svc.NumberExists(ctx, "alice", "BILL/25/002", ""))

	f.repo.findErr = apperror.NewDatabase(errors.New("unavailable"))
	assert.False(t, f.svc.NumberExists(ctx, "alice", "BILL/25/001", ""))
}

func TestService_CustomNumbering(t *testing.T) {
	store := memory.New()
	cfg := invoice.DefaultConfig()
	cfg.Numbering.Prefix = "INV"
	cfg.DefaultCurrencySymbol = "€"

	svc := invoice.NewService(
		memory.NewInvoiceRepo(store),
		infranumerator.New(memory.NewCounterRepo(store)),
		memory.NewTxManager(store),
		invoice.WithConfig(cfg),
		invoice.WithClock(year2025),
	)

	headerID, err := svc.Create(context.Background(), "alice", invoice.Draft{CustomerName: "Acme"})
	require.NoError(t, err)
	got, err := svc.GetDetails(context.Background(), headerID)
	require.NoError(t, err)

	assert.Equal(t, "INV/25/001", got.InvoiceNumber)
	assert.Equal(t, "€", got.CurrencySymbol)
	assert.Equal(t, "Acme", got.CustomerName)
	assert.Empty(t, got.Items)
}
