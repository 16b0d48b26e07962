package invoice

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"invoicebook/internal/core/apperror"
	"invoicebook/internal/core/numerator"
	"invoicebook/internal/core/tx"
	"invoicebook/internal/core/types"
	"invoicebook/pkg/logger"
)

// Service provides the invoice operations: create, list, details, delete,
// rename and the number existence check.
type Service struct {
	repo      Repository
	numerator numerator.Generator
	txManager tx.Manager
	cfg       Config
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithConfig overrides numbering and draft defaults.
func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.cfg = cfg.withDefaults()
	}
}

// WithClock sets the clock used for the year component of new numbers.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a new invoice service.
func NewService(repo Repository, gen numerator.Generator, txManager tx.Manager, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		numerator: gen,
		txManager: txManager,
		cfg:       DefaultConfig(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// Create stores a new invoice for owner and returns its id.
//
// Number allocation, the header, its items and the counter update commit in a
// single transaction. On any failure nothing is written and no number is consumed.
func (s *Service) Create(ctx context.Context, owner string, draft Draft) (string, error) {
	if strings.TrimSpace(owner) == "" {
		return "", apperror.NewValidation("owner is required").WithDetail("field", "userId")
	}

	header, items, err := s.prepare(owner, draft)
	if err != nil {
		return "", err
	}

	var created Header
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		// Fresh copy per attempt: a re-run body must not see the previous attempt's id or number.
		h := *header

		number, err := s.numerator.GetNextNumber(ctx, s.cfg.Numbering, s.now())
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		h.InvoiceNumber = number

		if err := s.repo.Create(ctx, &h); err != nil {
			return fmt.Errorf("create header: %w", err)
		}

		if err := s.repo.SaveLines(ctx, h.ID, items); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}

		created = h
		return nil
	})
	if err != nil {
		return "", err
	}

	logger.Info(ctx, "invoice created",
		logger.InvoiceID(created.ID),
		logger.InvoiceNumber(created.InvoiceNumber),
		logger.OwnerID(created.UserID),
		"items", len(items))

	return created.ID, nil
}

// prepare normalizes and validates a draft into a header without id or number.
func (s *Service) prepare(owner string, draft Draft) (*Header, []LineItem, error) {
	discountType, err := normalizeDiscountType(draft.DiscountType)
	if err != nil {
		return nil, nil, err
	}

	items := NormalizeItems(draft.Items)
	if err := validateItems(items); err != nil {
		return nil, nil, err
	}

	discountValue := types.CoerceMoney(draft.DiscountValue)
	if discountValue.IsNegative() {
		return nil, nil, apperror.NewValidation("discount must not be negative").
			WithDetail("field", "discountValue")
	}

	totals := ComputeTotals(items, discountType, discountValue)

	customerName := strings.TrimSpace(draft.CustomerName)
	if customerName == "" {
		customerName = s.cfg.DefaultCustomerName
	}
	currency := strings.TrimSpace(draft.CurrencySymbol)
	if currency == "" {
		currency = s.cfg.DefaultCurrencySymbol
	}

	return &Header{
		InvoiceDate:     strings.TrimSpace(draft.InvoiceDate),
		CustomerName:    customerName,
		CustomerAddress: strings.TrimSpace(draft.CustomerAddress),
		CustomerPhone:   strings.TrimSpace(draft.CustomerPhone),
		CurrencySymbol:  currency,
		SubTotal:        totals.SubTotal,
		DiscountType:    discountType,
		DiscountValue:   discountValue,
		DiscountAmount:  totals.DiscountAmount,
		GrandTotal:      totals.GrandTotal,
		UserID:          owner,
	}, items, nil
}

// List returns the owner's headers newest first.
//
// When the store cannot serve the sorted query because its index is missing,
// the owner's headers are fetched unsorted and ordered here instead. If that
// also fails the original error is returned.
func (s *Service) List(ctx context.Context, owner string) ([]*Header, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, apperror.NewValidation("owner is required").WithDetail("field", "userId")
	}

	headers, err := s.repo.ListByOwner(ctx, owner, ListOptions{NewestFirst: true})
	if err == nil {
		return headers, nil
	}
	if !apperror.IsIndexUnavailable(err) {
		return nil, err
	}

	logger.Warn(ctx, "sorted invoice list unavailable, sorting client-side",
		logger.OwnerID(owner),
		logger.Err(err))

	headers, fallbackErr := s.repo.ListByOwner(ctx, owner, ListOptions{})
	if fallbackErr != nil {
		logger.Error(ctx, "unsorted invoice list failed",
			logger.OwnerID(owner),
			logger.Err(fallbackErr))
		return nil, err
	}

	SortNewestFirst(headers)
	return headers, nil
}

// GetDetails returns a header with its items in insertion order.
// It does not check ownership; callers that expose it must call Authorize.
func (s *Service) GetDetails(ctx context.Context, headerID string) (*Invoice, error) {
	h, err := s.repo.GetByID(ctx, headerID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.GetLines(ctx, headerID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Position < items[j].Position
	})

	return &Invoice{Header: *h, Items: items}, nil
}

// Delete removes all items of the invoice, then its header.
//
// The two phases are not atomic. A failure after the items are gone leaves an
// empty header behind; repeating the call finishes the job. Once the header is
// gone the call fails with NotFound.
func (s *Service) Delete(ctx context.Context, headerID, callerID string) error {
	h, err := s.repo.GetByID(ctx, headerID)
	if err != nil {
		return err
	}
	if err := Authorize(h, callerID); err != nil {
		return err
	}

	items, err := s.repo.GetLines(ctx, headerID)
	if err != nil {
		return fmt.Errorf("get lines: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, item := range items {
		g.Go(func() error {
			return s.repo.DeleteLine(gctx, headerID, item.ID)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("delete lines: %w", err)
	}

	if err := s.repo.Delete(ctx, headerID); err != nil {
		return fmt.Errorf("delete header: %w", err)
	}

	logger.Info(ctx, "invoice deleted",
		logger.InvoiceID(headerID),
		logger.InvoiceNumber(h.InvoiceNumber),
		"items", len(items))

	return nil
}

// RenameNumber replaces the invoice number of headerID.
//
// The number must be unused among the caller's other invoices. The check and
// the update are separate operations, so two concurrent renames to the same
// number can both succeed.
func (s *Service) RenameNumber(ctx context.Context, headerID, callerID, newNumber string) error {
	newNumber = strings.TrimSpace(newNumber)
	if newNumber == "" {
		return apperror.NewValidation("invoice number is required").WithDetail("field", "invoiceNumber")
	}

	h, err := s.repo.GetByID(ctx, headerID)
	if err != nil {
		return err
	}
	if err := Authorize(h, callerID); err != nil {
		return err
	}

	taken, err := s.numberTaken(ctx, callerID, newNumber, headerID)
	if err != nil {
		return fmt.Errorf("check number: %w", err)
	}
	if taken {
		return apperror.NewDuplicate("invoice", "invoiceNumber", newNumber)
	}

	if err := s.repo.UpdateNumber(ctx, headerID, newNumber); err != nil {
		return fmt.Errorf("update number: %w", err)
	}

	logger.Info(ctx, "invoice renumbered",
		logger.InvoiceID(headerID),
		"from", h.InvoiceNumber,
		logger.InvoiceNumber(newNumber))

	return nil
}

// NumberExists reports whether owner has an invoice numbered number other than excludeID.
//
// Advisory only: any store error yields false. RenameNumber performs its own check.
func (s *Service) NumberExists(ctx context.Context, owner, number, excludeID string) bool {
	taken, err := s.numberTaken(ctx, owner, strings.TrimSpace(number), excludeID)
	if err != nil {
		logger.Warn(ctx, "invoice number check failed, reporting as free",
			logger.OwnerID(owner),
			logger.InvoiceNumber(number),
			logger.Err(err))
		return false
	}
	return taken
}

func (s *Service) numberTaken(ctx context.Context, owner, number, excludeID string) (bool, error) {
	matches, err := s.repo.FindByNumber(ctx, owner, number)
	if err != nil {
		return false, err
	}
	for _, m := range matches {
		if m.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}
