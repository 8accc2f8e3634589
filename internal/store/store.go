package store

import (
	"context"
	"errors"
	"time"

	"salonpos/backend/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrDuplicate    = errors.New("duplicate record")
	// ErrUnavailable wraps collaborator I/O failures. Aggregations treat it
	// as fatal for the whole computation; no partial result is returned.
	ErrUnavailable = errors.New("store unavailable")
)

// BillFilter narrows bill reads. Nil bounds mean unbounded; bounds are
// inclusive on both ends. Empty status means any status.
type BillFilter struct {
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Status      string
}

type Repository interface {
	// Customers.
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	ListCustomers(ctx context.Context, search string) ([]domain.Customer, error)
	GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error)
	CountCustomers(ctx context.Context, createdFrom, createdTo *time.Time) (int, error)
	ListTopCustomers(ctx context.Context, limit int) ([]domain.Customer, error)
	// RecordCustomerVisit bumps totalVisits by one, adds amount to
	// totalSpent and sets lastVisit. It is a bill-completion side effect.
	RecordCustomerVisit(ctx context.Context, customerID string, amount decimal.Decimal, at time.Time) error

	// Salon services.
	CreateSalonService(ctx context.Context, svc domain.SalonService) (*domain.SalonService, error)
	ListSalonServices(ctx context.Context) ([]domain.SalonService, error)
	UpdateSalonService(ctx context.Context, svc domain.SalonService) (*domain.SalonService, error)
	DeleteSalonService(ctx context.Context, id string) error

	// Products.
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	// AdjustProductStock applies a signed stock delta. Stock may go
	// negative: completion side effects never fail on oversold items.
	AdjustProductStock(ctx context.Context, productID string, delta int) error

	// Employees.
	CreateEmployee(ctx context.Context, employee domain.Employee) (*domain.Employee, error)
	ListEmployees(ctx context.Context, activeOnly bool) ([]domain.Employee, error)
	UpdateEmployee(ctx context.Context, employee domain.Employee) (*domain.Employee, error)
	DeleteEmployee(ctx context.Context, id string) error

	// Bills.
	CreateBill(ctx context.Context, bill domain.Bill) (*domain.Bill, error)
	GetBillByID(ctx context.Context, id string) (*domain.Bill, error)
	QueryBills(ctx context.Context, filter BillFilter) ([]domain.Bill, error)
	MarkBillCompleted(ctx context.Context, billID string, paymentMethod string, at time.Time) (*domain.Bill, error)
	// DistinctCustomerIDs returns the set of customers with at least one
	// bill of the given status created within [from, to].
	DistinctCustomerIDs(ctx context.Context, from, to time.Time, status string) (map[string]struct{}, error)

	// Users.
	GetUserByEmail(ctx context.Context, email string) (*domain.UserAccount, error)
}
