package numerator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicebook/internal/core/apperror"
	corenumerator "invoicebook/internal/core/numerator"
	"invoicebook/internal/core/tx"
)

// Mock objects
type mockCounter struct {
	mu      sync.Mutex
	values  map[string]int64
	loadErr error
	stores  int
}

func newMockCounter() *mockCounter {
	return &mockCounter{values: make(map[string]int64)}
}

func (m *mockCounter) Load(ctx context.Context, scope string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return 0, m.loadErr
	}
	return m.values[scope], nil
}

func (m *mockCounter) Store(ctx context.Context, scope string, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[scope] = value
	m.stores++
	return nil
}

var year2025 = time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)

func inTx() context.Context {
	return tx.MarkActive(context.Background())
}

func TestGetNextNumber_FirstAllocation(t *testing.T) {
	c := newMockCounter()
	svc := New(c)

	num, err := svc.GetNextNumber(inTx(), corenumerator.DefaultConfig("BILL"), year2025)
	require.NoError(t, err)
	assert.Equal(t, "BILL/25/001", num)
	assert.Equal(t, int64(1), c.values[corenumerator.DefaultScope])

	num, err = svc.GetNextNumber(inTx(), corenumerator.DefaultConfig("BILL"), year2025)
	require.NoError(t, err)
	assert.Equal(t, "BILL/25/002", num)
}

func TestGetNextNumber_PaddingIsAMinimum(t *testing.T) {
	c := newMockCounter()
	c.values[corenumerator.DefaultScope] = 999
	svc := New(c)

	num, err := svc.GetNextNumber(inTx(), corenumerator.DefaultConfig("BILL"), year2025)
	require.NoError(t, err)
	assert.Equal(t, "BILL/25/1000", num)
}

func TestGetNextNumber_RequiresTransaction(t *testing.T) {
	c := newMockCounter()
	svc := New(c)

	_, err := svc.GetNextNumber(context.Background(), corenumerator.DefaultConfig("BILL"), year2025)
	require.Error(t, err)
	assert.Equal(t, 0, c.stores, "counter must not move outside a transaction")
}

func TestGetNextNumber_LoadFailureDoesNotStore(t *testing.T) {
	c := newMockCounter()
	c.loadErr = errors.New("unavailable")
	svc := New(c)

	_, err := svc.GetNextNumber(inTx(), corenumerator.DefaultConfig("BILL"), year2025)
	require.ErrorIs(t, err, c.loadErr)
	assert.Equal(t, 0, c.stores)
}

func TestGetNextNumber_UsesPeriodYear(t *testing.T) {
	svc := New(newMockCounter())
	period := time.Date(2031, time.January, 1, 0, 0, 0, 0, time.UTC)

	num, err := svc.GetNextNumber(inTx(), corenumerator.DefaultConfig("INV"), period)
	require.NoError(t, err)
	assert.Equal(t, "INV/31/001", num)
}

func TestSetNextNumber(t *testing.T) {
	c := newMockCounter()
	svc := New(c)
	cfg := corenumerator.DefaultConfig("BILL")

	require.NoError(t, svc.SetNextNumber(inTx(), cfg, 41))
	num, err := svc.GetNextNumber(inTx(), cfg, year2025)
	require.NoError(t, err)
	assert.Equal(t, "BILL/25/042", num)

	err = svc.SetNextNumber(inTx(), cfg, -1)
	assert.True(t, apperror.IsValidation(err))
}

func TestFormatNumber_WithoutYear(t *testing.T) {
	cfg := corenumerator.Config{Prefix: "Q", PadWidth: 5}
	assert.Equal(t, "Q/00042", FormatNumber(cfg, year2025, 42))
}

func TestParseNumber(t *testing.T) {
	assert.Equal(t, int64(1), ParseNumber("BILL/25/001"))
	assert.Equal(t, int64(1000), ParseNumber("BILL/25/1000"))
	assert.Equal(t, int64(-1), ParseNumber("BILL/25/"))
	assert.Equal(t, int64(-1), ParseNumber("custom-number"))
	assert.Equal(t, int64(-1), ParseNumber("BILL/25/x1"))
}
