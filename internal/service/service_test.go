package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"salonpos/backend/internal/cache"
	"salonpos/backend/internal/domain"
	"salonpos/backend/internal/reports"
	"salonpos/backend/internal/store"
	"salonpos/backend/internal/store/memory"

	"github.com/shopspring/decimal"
)

func amount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestService() (*Service, *memory.Store) {
	repo := memory.NewSeeded()
	engine := reports.NewEngine(repo, repo, repo, repo, time.UTC)
	svc := New(repo, engine, reports.NewResolver(time.UTC), cache.NoopCatalogCache{}, 5*time.Second)
	return svc, repo
}

func adminContext() context.Context {
	return WithActor(context.Background(), domain.Actor{Email: "admin@salon.local", Role: "admin"})
}

func serviceLine(price string, qty int) domain.LineItem {
	return domain.LineItem{
		Kind:      domain.ItemKindService,
		Name:      "Haircut",
		UnitPrice: amount(price),
		Quantity:  qty,
	}
}

func TestCreateBillRecomputesMissingTotal(t *testing.T) {
	svc, _ := newTestService()

	bill, err := svc.CreateBill(context.Background(), domain.BillCreateRequest{
		Items: []domain.LineItem{serviceLine("500", 1)},
	})
	if err != nil {
		t.Fatalf("create bill failed: %v", err)
	}

	if !bill.Subtotal.Equal(amount("500")) {
		t.Fatalf("expected subtotal 500, got %s", bill.Subtotal)
	}
	if !bill.TotalAmount.Equal(amount("500")) {
		t.Fatalf("expected total 500, got %s", bill.TotalAmount)
	}
	if bill.Status != domain.BillStatusCompleted {
		t.Fatalf("status should default to completed, got %s", bill.Status)
	}
	if bill.PaymentMethod != domain.PaymentMethodCash {
		t.Fatalf("payment method should default to Cash, got %s", bill.PaymentMethod)
	}
	if bill.CompletedAt == nil {
		t.Fatalf("completed bill must carry completedAt")
	}
}

func TestCreateBillAppliesDiscountAndTax(t *testing.T) {
	svc, _ := newTestService()

	bill, err := svc.CreateBill(context.Background(), domain.BillCreateRequest{
		Items:    []domain.LineItem{serviceLine("500", 2)},
		Discount: amount("100"),
		Tax:      amount("50"),
	})
	if err != nil {
		t.Fatalf("create bill failed: %v", err)
	}
	if !bill.Subtotal.Equal(amount("1000")) {
		t.Fatalf("expected subtotal 1000, got %s", bill.Subtotal)
	}
	if !bill.TotalAmount.Equal(amount("950")) {
		t.Fatalf("expected total 950, got %s", bill.TotalAmount)
	}
}

func TestCreateBillKeepsCallerTotal(t *testing.T) {
	svc, _ := newTestService()

	bill, err := svc.CreateBill(context.Background(), domain.BillCreateRequest{
		Items:       []domain.LineItem{serviceLine("500", 1)},
		Subtotal:    amount("500"),
		TotalAmount: amount("450"),
	})
	if err != nil {
		t.Fatalf("create bill failed: %v", err)
	}
	if !bill.TotalAmount.Equal(amount("450")) {
		t.Fatalf("caller-provided total must be kept, got %s", bill.TotalAmount)
	}
}

func TestCreateBillQuantityDefaultsToOne(t *testing.T) {
	svc, _ := newTestService()

	bill, err := svc.CreateBill(context.Background(), domain.BillCreateRequest{
		Items: []domain.LineItem{serviceLine("300", 0)},
	})
	if err != nil {
		t.Fatalf("create bill failed: %v", err)
	}
	if bill.Items[0].Quantity != 1 {
		t.Fatalf("quantity should normalize to 1, got %d", bill.Items[0].Quantity)
	}
	if !bill.TotalAmount.Equal(amount("300")) {
		t.Fatalf("expected total 300, got %s", bill.TotalAmount)
	}
}

func TestCreateBillValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.CreateBill(ctx, domain.BillCreateRequest{}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("empty items must be rejected, got %v", err)
	}

	bad := domain.BillCreateRequest{Items: []domain.LineItem{{Kind: "membership", Name: "x", UnitPrice: amount("10")}}}
	if _, err := svc.CreateBill(ctx, bad); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("unknown item kind must be rejected, got %v", err)
	}

	if _, err := svc.CreateBill(ctx, domain.BillCreateRequest{
		Items:         []domain.LineItem{serviceLine("100", 1)},
		PaymentMethod: "Cheque",
	}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("unsupported payment method must be rejected, got %v", err)
	}
}

func TestCreateBillStripsEmployeeFromProductItems(t *testing.T) {
	svc, _ := newTestService()

	bill, err := svc.CreateBill(context.Background(), domain.BillCreateRequest{
		Items: []domain.LineItem{{
			Kind:         domain.ItemKindProduct,
			Name:         "Beard Oil",
			UnitPrice:    amount("300"),
			Quantity:     1,
			EmployeeID:   "emp-a",
			EmployeeName: "Priya",
		}},
	})
	if err != nil {
		t.Fatalf("create bill failed: %v", err)
	}
	if bill.Items[0].EmployeeID != "" || bill.Items[0].EmployeeName != "" {
		t.Fatalf("product items must not carry stylist attribution: %+v", bill.Items[0])
	}
}

func TestCompletedBillRunsSideEffects(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	customer, err := svc.CreateCustomer(ctx, domain.CustomerCreateRequest{Name: "Asha", Mobile: "9000000001"})
	if err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	product, err := repo.CreateProduct(ctx, domain.Product{ID: "prod-oil", Name: "Beard Oil", Price: amount("300"), Stock: 10})
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}

	_, err = svc.CreateBill(ctx, domain.BillCreateRequest{
		CustomerID: customer.ID,
		Items: []domain.LineItem{{
			Kind:        domain.ItemKindProduct,
			ReferenceID: product.ID,
			Name:        product.Name,
			UnitPrice:   amount("300"),
			Quantity:    2,
		}},
	})
	if err != nil {
		t.Fatalf("create bill failed: %v", err)
	}

	updated, err := repo.GetCustomerByID(ctx, customer.ID)
	if err != nil {
		t.Fatalf("get customer failed: %v", err)
	}
	if updated.TotalVisits != 1 || !updated.TotalSpent.Equal(amount("600")) || updated.LastVisit == nil {
		t.Fatalf("customer aggregates not updated: %+v", updated)
	}

	stocked, err := repo.GetProductByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if stocked.Stock != 8 {
		t.Fatalf("expected stock 8 after selling 2, got %d", stocked.Stock)
	}
}

func TestCompleteBillTransitionsPending(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	customer, err := svc.CreateCustomer(ctx, domain.CustomerCreateRequest{Name: "Vikram", Mobile: "9000000002"})
	if err != nil {
		t.Fatalf("create customer failed: %v", err)
	}

	created, err := svc.CreateBill(ctx, domain.BillCreateRequest{
		CustomerID: customer.ID,
		Items:      []domain.LineItem{serviceLine("350", 1)},
		Status:     domain.BillStatusPending,
	})
	if err != nil {
		t.Fatalf("create bill failed: %v", err)
	}
	if created.CompletedAt != nil {
		t.Fatalf("pending bill must not have completedAt")
	}

	// Pending bills run no side effects.
	beforeComplete, _ := repo.GetCustomerByID(ctx, customer.ID)
	if beforeComplete.TotalVisits != 0 {
		t.Fatalf("pending bill must not bump visits")
	}

	completed, err := svc.CompleteBill(ctx, created.ID, domain.PaymentMethodUPI)
	if err != nil {
		t.Fatalf("complete bill failed: %v", err)
	}
	if completed.Status != domain.BillStatusCompleted || completed.PaymentMethod != domain.PaymentMethodUPI {
		t.Fatalf("unexpected completed bill: %+v", completed)
	}
	if completed.CompletedAt == nil {
		t.Fatalf("completed bill must carry completedAt")
	}

	after, _ := repo.GetCustomerByID(ctx, customer.ID)
	if after.TotalVisits != 1 || !after.TotalSpent.Equal(amount("350")) {
		t.Fatalf("completion side effects missing: %+v", after)
	}

	if _, err := svc.CompleteBill(ctx, created.ID, ""); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("double completion must fail, got %v", err)
	}
}

func TestCompleteBillSurvivesMissingProduct(t *testing.T) {
	// The bill write and the side effects are separate steps. A dangling
	// product reference must not roll back the completion; the failed step
	// is logged and skipped.
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.CreateBill(ctx, domain.BillCreateRequest{
		Items: []domain.LineItem{{
			Kind:        domain.ItemKindProduct,
			ReferenceID: "prod-ghost",
			Name:        "Discontinued Serum",
			UnitPrice:   amount("400"),
			Quantity:    1,
		}},
		Status: domain.BillStatusPending,
	})
	if err != nil {
		t.Fatalf("create bill failed: %v", err)
	}

	completed, err := svc.CompleteBill(ctx, created.ID, domain.PaymentMethodCard)
	if err != nil {
		t.Fatalf("completion must not fail on side-effect errors: %v", err)
	}
	if completed.Status != domain.BillStatusCompleted {
		t.Fatalf("bill should be completed, got %s", completed.Status)
	}
}

func TestCompleteBillNotFound(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.CompleteBill(context.Background(), "bill-missing", ""); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListBillsByDate(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	for _, day := range []time.Time{
		time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC),
	} {
		_, err := repo.CreateBill(ctx, domain.Bill{
			Items:       []domain.LineItem{serviceLine("100", 1)},
			Subtotal:    amount("100"),
			TotalAmount: amount("100"),
			Status:      domain.BillStatusCompleted,
			CreatedAt:   day,
		})
		if err != nil {
			t.Fatalf("seed bill failed: %v", err)
		}
	}

	bills, err := svc.ListBills(ctx, "", "2026-08-29")
	if err != nil {
		t.Fatalf("list bills failed: %v", err)
	}
	if len(bills) != 1 {
		t.Fatalf("expected 1 bill on 2026-08-29, got %d", len(bills))
	}

	if _, err := svc.ListBills(ctx, "", "nope"); !errors.Is(err, reports.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestCatalogMutationsRequireAdmin(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateSalonService(ctx, domain.SalonService{Name: "Pedicure", Price: amount("600"), DurationMinutes: 40})
	if err == nil {
		t.Fatalf("expected error without admin actor")
	}

	receptionist := WithActor(ctx, domain.Actor{Email: "frontdesk@salon.local", Role: "receptionist"})
	if _, err := svc.CreateProduct(receptionist, domain.Product{Name: "Serum", Price: amount("700"), Stock: 3}); err == nil {
		t.Fatalf("expected error for receptionist actor")
	}

	if _, err := svc.CreateSalonService(adminContext(), domain.SalonService{Name: "Pedicure", Price: amount("600"), DurationMinutes: 40}); err != nil {
		t.Fatalf("admin create failed: %v", err)
	}
}

type fakeCatalog struct {
	services    []domain.SalonService
	hasServices bool
	products    []domain.Product
	hasProducts bool
}

func (f *fakeCatalog) GetServices(_ context.Context) ([]domain.SalonService, bool, error) {
	return f.services, f.hasServices, nil
}

func (f *fakeCatalog) SetServices(_ context.Context, services []domain.SalonService, _ time.Duration) error {
	f.services, f.hasServices = services, true
	return nil
}

func (f *fakeCatalog) GetProducts(_ context.Context) ([]domain.Product, bool, error) {
	return f.products, f.hasProducts, nil
}

func (f *fakeCatalog) SetProducts(_ context.Context, products []domain.Product, _ time.Duration) error {
	f.products, f.hasProducts = products, true
	return nil
}

func (f *fakeCatalog) Invalidate(_ context.Context) error {
	f.hasServices, f.hasProducts = false, false
	return nil
}

func TestServiceCatalogReadThroughAndInvalidation(t *testing.T) {
	repo := memory.NewSeeded()
	engine := reports.NewEngine(repo, repo, repo, repo, time.UTC)
	catalog := &fakeCatalog{}
	svc := New(repo, engine, reports.NewResolver(time.UTC), catalog, 5*time.Second)
	ctx := context.Background()

	first, err := svc.ListSalonServices(ctx)
	if err != nil {
		t.Fatalf("list services failed: %v", err)
	}
	if !catalog.hasServices {
		t.Fatalf("cache should be populated after a miss")
	}

	// Writes bypassing the service layer are invisible until invalidation.
	if _, err := repo.CreateSalonService(ctx, domain.SalonService{Name: "Waxing", Price: amount("900"), DurationMinutes: 30}); err != nil {
		t.Fatalf("direct create failed: %v", err)
	}
	cached, err := svc.ListSalonServices(ctx)
	if err != nil {
		t.Fatalf("list services failed: %v", err)
	}
	if len(cached) != len(first) {
		t.Fatalf("expected cached read, got %d services", len(cached))
	}

	if _, err := svc.CreateSalonService(adminContext(), domain.SalonService{Name: "Threading", Price: amount("120"), DurationMinutes: 10}); err != nil {
		t.Fatalf("create service failed: %v", err)
	}
	fresh, err := svc.ListSalonServices(ctx)
	if err != nil {
		t.Fatalf("list services failed: %v", err)
	}
	if len(fresh) != len(first)+2 {
		t.Fatalf("expected fresh read after invalidation, got %d services", len(fresh))
	}
}

func TestCreateCustomerDefaults(t *testing.T) {
	svc, _ := newTestService()

	customer, err := svc.CreateCustomer(context.Background(), domain.CustomerCreateRequest{Name: "  Meera ", Mobile: " 9000000003 "})
	if err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	if customer.Name != "Meera" || customer.Mobile != "9000000003" {
		t.Fatalf("fields must be trimmed: %+v", customer)
	}
	if customer.Gender != "Other" {
		t.Fatalf("gender should default to Other, got %q", customer.Gender)
	}
	if customer.TotalVisits != 0 || !customer.TotalSpent.IsZero() {
		t.Fatalf("new customer must start with zero aggregates: %+v", customer)
	}

	if _, err := svc.CreateCustomer(context.Background(), domain.CustomerCreateRequest{Name: "NoMobile"}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("missing mobile must be rejected, got %v", err)
	}
}
