package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Currency amounts are emitted as bare JSON numbers so report payloads
	// stay shape-compatible with chart consumers.
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	BillStatusPending   = "pending"
	BillStatusCompleted = "completed"
)

const (
	ItemKindService = "service"
	ItemKindProduct = "product"
)

const (
	PaymentMethodCash = "Cash"
	PaymentMethodCard = "Card"
	PaymentMethodUPI  = "UPI"
)

// LowStockThreshold marks products that appear in the dashboard
// inventory summary as running low.
const LowStockThreshold = 10

type Customer struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Mobile      string          `json:"mobile"`
	Gender      string          `json:"gender"`
	Email       string          `json:"email,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	LastVisit   *time.Time      `json:"lastVisit,omitempty"`
	TotalVisits int             `json:"totalVisits"`
	TotalSpent  decimal.Decimal `json:"totalSpent"`
}

type CustomerCreateRequest struct {
	Name   string `json:"name"`
	Mobile string `json:"mobile"`
	Gender string `json:"gender"`
	Email  string `json:"email"`
}

type SalonService struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Price           decimal.Decimal `json:"price"`
	DurationMinutes int             `json:"duration"`
	Category        string          `json:"category,omitempty"`
}

type SalonServiceUpdateRequest struct {
	Name            *string          `json:"name,omitempty"`
	Description     *string          `json:"description,omitempty"`
	Price           *decimal.Decimal `json:"price,omitempty"`
	DurationMinutes *int             `json:"duration,omitempty"`
	Category        *string          `json:"category,omitempty"`
}

type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	Category string          `json:"category,omitempty"`
}

type ProductUpdateRequest struct {
	Name     *string          `json:"name,omitempty"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	Stock    *int             `json:"stock,omitempty"`
	Category *string          `json:"category,omitempty"`
}

type Employee struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
	Phone     string `json:"phone,omitempty"`
	Active    bool   `json:"active"`
}

type EmployeeUpdateRequest struct {
	Name      *string `json:"name,omitempty"`
	Specialty *string `json:"specialty,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Active    *bool   `json:"active,omitempty"`
}

// LineItem is one billed service or product. EmployeeID is set only on
// service items with an attributed stylist; product items never carry one.
type LineItem struct {
	Kind         string          `json:"type"`
	ReferenceID  string          `json:"id"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
	EmployeeID   string          `json:"employeeId,omitempty"`
	EmployeeName string          `json:"employeeName,omitempty"`
}

// Revenue is unitPrice * quantity, with quantity defaulting to 1.
func (li LineItem) Revenue() decimal.Decimal {
	qty := li.Quantity
	if qty < 1 {
		qty = 1
	}
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(qty)))
}

type Bill struct {
	ID             string          `json:"id"`
	CustomerID     string          `json:"customerId,omitempty"`
	CustomerName   string          `json:"customerName,omitempty"`
	CustomerMobile string          `json:"customerMobile,omitempty"`
	Items          []LineItem      `json:"items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Discount       decimal.Decimal `json:"discount"`
	Tax            decimal.Decimal `json:"tax"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	Status         string          `json:"status"`
	PaymentMethod  string          `json:"paymentMethod"`
	CreatedAt      time.Time       `json:"createdAt"`
	CompletedAt    *time.Time      `json:"completedAt,omitempty"`
}

type BillCreateRequest struct {
	CustomerID     string          `json:"customerId"`
	CustomerName   string          `json:"customerName"`
	CustomerMobile string          `json:"customerMobile"`
	Items          []LineItem      `json:"items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Discount       decimal.Decimal `json:"discount"`
	Tax            decimal.Decimal `json:"tax"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	Status         string          `json:"status"`
	PaymentMethod  string          `json:"paymentMethod"`
}

type BillCompleteRequest struct {
	PaymentMethod string `json:"paymentMethod"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	AccessToken string `json:"token"`
	ExpiresAt   string `json:"expiresAt"`
}

type Actor struct {
	Email string
	Role  string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Role         string
}

// Report shapes below are all derived and computed fresh per request;
// none are persisted or cached.

type DailySalesReport struct {
	Date        string            `json:"date"`
	TotalSales  decimal.Decimal   `json:"totalSales"`
	TotalBills  int               `json:"totalBills"`
	HourlySales []decimal.Decimal `json:"hourlySales"`
}

type MonthlyRevenueReport struct {
	Year           int               `json:"year"`
	TotalRevenue   decimal.Decimal   `json:"totalRevenue"`
	MonthlyRevenue []decimal.Decimal `json:"monthlyRevenue"`
}

type EmployeePerformance struct {
	EmployeeID    string          `json:"id"`
	Name          string          `json:"name"`
	ServicesCount int             `json:"servicesCount"`
	Revenue       decimal.Decimal `json:"revenue"`
}

type CustomerMonthStats struct {
	Month           string `json:"month"`
	NewCustomers    int    `json:"newCustomers"`
	ActiveCustomers int    `json:"activeCustomers"`
}

type TopService struct {
	Name    string          `json:"name"`
	Count   int             `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

type TopCustomer struct {
	CustomerID  string          `json:"customerId"`
	Name        string          `json:"name"`
	Mobile      string          `json:"mobile"`
	TotalVisits int             `json:"totalVisits"`
	TotalSpent  decimal.Decimal `json:"totalSpent"`
}

type TopEmployee struct {
	EmployeeID        string `json:"employeeId"`
	Name              string `json:"name"`
	ServicesCompleted int    `json:"servicesCompleted"`
}

type RevenueBreakdown struct {
	ServicesRevenue decimal.Decimal `json:"servicesRevenue"`
	ProductsRevenue decimal.Decimal `json:"productsRevenue"`
}

type InventorySummary struct {
	TotalProducts  int             `json:"totalProducts"`
	LowStockCount  int             `json:"lowStockCount"`
	StockValue     decimal.Decimal `json:"stockValue"`
	ProductRevenue decimal.Decimal `json:"productRevenue"`
	ProductsSold   int             `json:"productsSold"`
	LowStockItems  []string        `json:"lowStockItems"`
}

type DashboardSnapshot struct {
	TodayEarnings     decimal.Decimal  `json:"todayEarnings"`
	MonthEarnings     decimal.Decimal  `json:"monthEarnings"`
	TotalCustomers    int              `json:"totalCustomers"`
	ServicesCompleted int              `json:"servicesCompleted"`
	TopStylist        string           `json:"topStylist"`
	TopServices       []TopService     `json:"topServices"`
	RevenueBreakdown  RevenueBreakdown `json:"revenueBreakdown"`
	TopCustomers      []TopCustomer    `json:"topCustomers"`
	TopEmployees      []TopEmployee    `json:"topEmployees"`
	InventorySummary  InventorySummary `json:"inventorySummary"`
	FilterStartDate   string           `json:"filterStartDate"`
	FilterEndDate     string           `json:"filterEndDate"`
}
