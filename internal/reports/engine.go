package reports

import (
	"context"
	"fmt"
	"time"

	"salonpos/backend/internal/domain"
	"salonpos/backend/internal/store"

	"github.com/shopspring/decimal"
)

// BillSource is the read contract the engine needs from the bill store.
type BillSource interface {
	QueryBills(ctx context.Context, filter store.BillFilter) ([]domain.Bill, error)
}

// CustomerSource covers the customer-store reads used by cohort metrics
// and the dashboard.
type CustomerSource interface {
	CountCustomers(ctx context.Context, createdFrom, createdTo *time.Time) (int, error)
	ListTopCustomers(ctx context.Context, limit int) ([]domain.Customer, error)
}

// ActivitySource resolves which distinct customers transacted in a window.
type ActivitySource interface {
	DistinctCustomerIDs(ctx context.Context, from, to time.Time, status string) (map[string]struct{}, error)
}

// ProductSource is the inventory read merged into the dashboard snapshot.
type ProductSource interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
}

// Engine computes every derived report from the current state of the
// collaborator stores. Each call is read-only, builds its accumulators
// locally and returns either a complete result or an error; nothing is
// cached or incrementally maintained between calls.
type Engine struct {
	bills     BillSource
	customers CustomerSource
	activity  ActivitySource
	products  ProductSource
	windows   *Resolver
	now       func() time.Time
}

func NewEngine(bills BillSource, customers CustomerSource, activity ActivitySource, products ProductSource, loc *time.Location) *Engine {
	return &Engine{
		bills:     bills,
		customers: customers,
		activity:  activity,
		products:  products,
		windows:   NewResolver(loc),
		now:       time.Now,
	}
}

func (e *Engine) completedBills(ctx context.Context, win Window) ([]domain.Bill, error) {
	bills, err := e.bills.QueryBills(ctx, store.BillFilter{
		CreatedFrom: &win.Start,
		CreatedTo:   &win.End,
		Status:      domain.BillStatusCompleted,
	})
	if err != nil {
		return nil, fmt.Errorf("query bills: %w", err)
	}
	return bills, nil
}

// DailySales sums completed bills for one day and buckets totalAmount by
// the calendar hour of createdAt. Bills spanning midnight land in the
// bucket of their creation hour; they are never split.
func (e *Engine) DailySales(ctx context.Context, dateStr string) (domain.DailySalesReport, error) {
	win, err := e.windows.DayWindow(dateStr, e.now())
	if err != nil {
		return domain.DailySalesReport{}, err
	}

	bills, err := e.completedBills(ctx, win)
	if err != nil {
		return domain.DailySalesReport{}, err
	}

	hourly := zeroBuckets(24)
	total := decimal.Zero
	for _, bill := range bills {
		hour := bill.CreatedAt.In(e.windows.Location()).Hour()
		hourly[hour] = hourly[hour].Add(bill.TotalAmount)
		total = total.Add(bill.TotalAmount)
	}

	return domain.DailySalesReport{
		Date:        win.Start.Format(dateLayout),
		TotalSales:  total,
		TotalBills:  len(bills),
		HourlySales: hourly,
	}, nil
}

// MonthlyRevenue folds a full year of completed bills into per-month
// buckets keyed by the calendar month of createdAt.
func (e *Engine) MonthlyRevenue(ctx context.Context, yearStr string) (domain.MonthlyRevenueReport, error) {
	win, err := e.windows.YearWindow(yearStr, e.now())
	if err != nil {
		return domain.MonthlyRevenueReport{}, err
	}

	bills, err := e.completedBills(ctx, win)
	if err != nil {
		return domain.MonthlyRevenueReport{}, err
	}

	monthly := zeroBuckets(12)
	total := decimal.Zero
	for _, bill := range bills {
		month := int(bill.CreatedAt.In(e.windows.Location()).Month()) - 1
		monthly[month] = monthly[month].Add(bill.TotalAmount)
		total = total.Add(bill.TotalAmount)
	}

	return domain.MonthlyRevenueReport{
		Year:           win.Start.Year(),
		TotalRevenue:   total,
		MonthlyRevenue: monthly,
	}, nil
}

// EmployeePerformance tallies attributed service line items per employee
// across the window (or all completed bills ever when no range is given).
// Items without an employee reference are silently excluded here; they
// still count toward the dashboard's service totals. Employees are keyed
// by id, not display name, so two stylists sharing a name never merge.
// Output is sorted descending by revenue with first-seen order on ties.
func (e *Engine) EmployeePerformance(ctx context.Context, startStr, endStr string) ([]domain.EmployeePerformance, error) {
	filter := store.BillFilter{Status: domain.BillStatusCompleted}
	if startStr != "" || endStr != "" {
		win, err := e.windows.RangeWindow(startStr, endStr, e.now())
		if err != nil {
			return nil, err
		}
		filter.CreatedFrom = &win.Start
		filter.CreatedTo = &win.End
	}

	bills, err := e.bills.QueryBills(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query bills: %w", err)
	}

	revenue := NewTally[string]()
	counts := make(map[string]int)
	names := make(map[string]string)
	for _, bill := range bills {
		for _, item := range bill.Items {
			if item.EmployeeID == "" {
				continue
			}
			revenue.Add(item.EmployeeID, item.Revenue())
			counts[item.EmployeeID]++
			if _, ok := names[item.EmployeeID]; !ok {
				names[item.EmployeeID] = item.EmployeeName
			}
		}
	}

	ranked := revenue.Top(0)
	performance := make([]domain.EmployeePerformance, 0, len(ranked))
	for _, entry := range ranked {
		performance = append(performance, domain.EmployeePerformance{
			EmployeeID:    entry.Key,
			Name:          names[entry.Key],
			ServicesCount: counts[entry.Key],
			Revenue:       entry.Metric,
		})
	}
	return performance, nil
}

// CustomerAnalytics reports new and active customer counts for the
// trailing months ending at the current month, ordered oldest to newest.
func (e *Engine) CustomerAnalytics(ctx context.Context, months int) ([]domain.CustomerMonthStats, error) {
	if months < 1 {
		months = 6
	}

	anchor := e.now().In(e.windows.Location())
	analytics := make([]domain.CustomerMonthStats, 0, months)
	for i := months - 1; i >= 0; i-- {
		monthRef := time.Date(anchor.Year(), anchor.Month()-time.Month(i), 1, 0, 0, 0, 0, e.windows.Location())
		win := e.windows.MonthWindow(monthRef)

		newCustomers, err := e.customers.CountCustomers(ctx, &win.Start, &win.End)
		if err != nil {
			return nil, fmt.Errorf("count customers: %w", err)
		}
		active, err := e.activity.DistinctCustomerIDs(ctx, win.Start, win.End, domain.BillStatusCompleted)
		if err != nil {
			return nil, fmt.Errorf("distinct customers: %w", err)
		}

		analytics = append(analytics, domain.CustomerMonthStats{
			Month:           win.Start.Format("Jan"),
			NewCustomers:    newCustomers,
			ActiveCustomers: len(active),
		})
	}
	return analytics, nil
}

func zeroBuckets(n int) []decimal.Decimal {
	buckets := make([]decimal.Decimal, n)
	for i := range buckets {
		buckets[i] = decimal.Zero
	}
	return buckets
}
