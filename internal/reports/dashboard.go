package reports

import (
	"context"
	"fmt"

	"salonpos/backend/internal/domain"

	"github.com/shopspring/decimal"
)

// rangeFold is the single pass over range-window bills that feeds the
// dashboard: revenue split, service/employee tallies and product counts.
type rangeFold struct {
	servicesCompleted int
	servicesRevenue   decimal.Decimal
	productsRevenue   decimal.Decimal
	productsSold      int
	serviceCounts     *Tally[string]
	serviceRevenue    map[string]decimal.Decimal
	serviceNames      map[string]string
	employeeCounts    *Tally[string]
	employeeNames     map[string]string
}

func foldRangeBills(bills []domain.Bill) rangeFold {
	fold := rangeFold{
		servicesRevenue: decimal.Zero,
		productsRevenue: decimal.Zero,
		serviceCounts:   NewTally[string](),
		serviceRevenue:  make(map[string]decimal.Decimal),
		serviceNames:    make(map[string]string),
		employeeCounts:  NewTally[string](),
		employeeNames:   make(map[string]string),
	}

	for _, bill := range bills {
		for _, item := range bill.Items {
			qty := item.Quantity
			if qty < 1 {
				qty = 1
			}
			if item.Kind == domain.ItemKindService {
				fold.servicesCompleted++
				fold.servicesRevenue = fold.servicesRevenue.Add(item.Revenue())

				key := serviceKey(item)
				fold.serviceCounts.Add(key, decimal.NewFromInt(int64(qty)))
				fold.serviceRevenue[key] = fold.serviceRevenue[key].Add(item.Revenue())
				if _, ok := fold.serviceNames[key]; !ok {
					fold.serviceNames[key] = item.Name
				}

				// One service rendered, one count: quantity does not
				// multiply employee attribution.
				if item.EmployeeID != "" {
					fold.employeeCounts.Add(item.EmployeeID, decimal.NewFromInt(1))
					if _, ok := fold.employeeNames[item.EmployeeID]; !ok {
						fold.employeeNames[item.EmployeeID] = item.EmployeeName
					}
				}
			} else {
				fold.productsRevenue = fold.productsRevenue.Add(item.Revenue())
				fold.productsSold += qty
			}
		}
	}
	return fold
}

// serviceKey prefers the stable catalog id over the display name, so two
// services sharing a name never merge in the tallies.
func serviceKey(item domain.LineItem) string {
	if item.ReferenceID != "" {
		return item.ReferenceID
	}
	return item.Name
}

// DashboardSnapshot assembles the full dashboard response. It resolves
// two independent windows: the requested range (default today) and the
// current calendar month, which is always included regardless of range.
func (e *Engine) DashboardSnapshot(ctx context.Context, startStr, endStr string) (domain.DashboardSnapshot, error) {
	now := e.now()

	rangeWin, err := e.windows.RangeWindow(startStr, endStr, now)
	if err != nil {
		return domain.DashboardSnapshot{}, err
	}
	monthWin := e.windows.MonthWindow(now)

	rangeBills, err := e.completedBills(ctx, rangeWin)
	if err != nil {
		return domain.DashboardSnapshot{}, err
	}
	monthBills, err := e.completedBills(ctx, monthWin)
	if err != nil {
		return domain.DashboardSnapshot{}, err
	}

	rangeEarnings := decimal.Zero
	for _, bill := range rangeBills {
		rangeEarnings = rangeEarnings.Add(bill.TotalAmount)
	}
	monthEarnings := decimal.Zero
	for _, bill := range monthBills {
		monthEarnings = monthEarnings.Add(bill.TotalAmount)
	}

	totalCustomers, err := e.customers.CountCustomers(ctx, nil, nil)
	if err != nil {
		return domain.DashboardSnapshot{}, fmt.Errorf("count customers: %w", err)
	}

	fold := foldRangeBills(rangeBills)

	topServices := make([]domain.TopService, 0, 5)
	for _, entry := range fold.serviceCounts.Top(5) {
		topServices = append(topServices, domain.TopService{
			Name:    fold.serviceNames[entry.Key],
			Count:   int(entry.Metric.IntPart()),
			Revenue: fold.serviceRevenue[entry.Key],
		})
	}

	topEmployees := make([]domain.TopEmployee, 0, 5)
	for _, entry := range fold.employeeCounts.Top(5) {
		topEmployees = append(topEmployees, domain.TopEmployee{
			EmployeeID:        entry.Key,
			Name:              fold.employeeNames[entry.Key],
			ServicesCompleted: int(entry.Metric.IntPart()),
		})
	}
	topStylist := "N/A"
	if len(topEmployees) > 0 {
		topStylist = topEmployees[0].Name
	}

	// Top customers are all-time by lifetime spend, independent of the
	// requested window; the customer store keeps that ordering.
	customers, err := e.customers.ListTopCustomers(ctx, 5)
	if err != nil {
		return domain.DashboardSnapshot{}, fmt.Errorf("list top customers: %w", err)
	}
	topCustomers := make([]domain.TopCustomer, 0, len(customers))
	for _, c := range customers {
		topCustomers = append(topCustomers, domain.TopCustomer{
			CustomerID:  c.ID,
			Name:        c.Name,
			Mobile:      c.Mobile,
			TotalVisits: c.TotalVisits,
			TotalSpent:  c.TotalSpent,
		})
	}

	products, err := e.products.ListProducts(ctx)
	if err != nil {
		return domain.DashboardSnapshot{}, fmt.Errorf("list products: %w", err)
	}
	inventory := summarizeInventory(products, fold.productsRevenue, fold.productsSold)

	return domain.DashboardSnapshot{
		TodayEarnings:     rangeEarnings,
		MonthEarnings:     monthEarnings,
		TotalCustomers:    totalCustomers,
		ServicesCompleted: fold.servicesCompleted,
		TopStylist:        topStylist,
		TopServices:       topServices,
		RevenueBreakdown: domain.RevenueBreakdown{
			ServicesRevenue: fold.servicesRevenue,
			ProductsRevenue: fold.productsRevenue,
		},
		TopCustomers:     topCustomers,
		TopEmployees:     topEmployees,
		InventorySummary: inventory,
		FilterStartDate:  rangeWin.Start.UTC().Format(timestampLayout),
		FilterEndDate:    rangeWin.End.UTC().Format(timestampLayout),
	}, nil
}

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

func summarizeInventory(products []domain.Product, productRevenue decimal.Decimal, productsSold int) domain.InventorySummary {
	stockValue := decimal.Zero
	lowStockItems := make([]string, 0, 4)
	for _, p := range products {
		stockValue = stockValue.Add(p.Price.Mul(decimal.NewFromInt(int64(p.Stock))))
		if p.Stock < domain.LowStockThreshold {
			lowStockItems = append(lowStockItems, fmt.Sprintf("%s (%d)", p.Name, p.Stock))
		}
	}
	return domain.InventorySummary{
		TotalProducts:  len(products),
		LowStockCount:  len(lowStockItems),
		StockValue:     stockValue,
		ProductRevenue: productRevenue,
		ProductsSold:   productsSold,
		LowStockItems:  lowStockItems,
	}
}
