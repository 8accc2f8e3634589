package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"salonpos/backend/internal/domain"
	"salonpos/backend/internal/store/memory"
)

func newFixedEngine(repo *memory.Store, now time.Time) *Engine {
	engine := NewEngine(repo, repo, repo, repo, time.UTC)
	engine.now = func() time.Time { return now }
	return engine
}

func seedBill(t *testing.T, repo *memory.Store, bill domain.Bill) domain.Bill {
	t.Helper()
	created, err := repo.CreateBill(context.Background(), bill)
	if err != nil {
		t.Fatalf("seed bill failed: %v", err)
	}
	return *created
}

func serviceItem(employeeID, employeeName, name, unitPrice string, qty int) domain.LineItem {
	return domain.LineItem{
		Kind:         domain.ItemKindService,
		ReferenceID:  "svc-" + name,
		Name:         name,
		UnitPrice:    amount(unitPrice),
		Quantity:     qty,
		EmployeeID:   employeeID,
		EmployeeName: employeeName,
	}
}

func completedBill(total string, createdAt time.Time, items ...domain.LineItem) domain.Bill {
	return domain.Bill{
		Items:         items,
		Subtotal:      amount(total),
		TotalAmount:   amount(total),
		Status:        domain.BillStatusCompleted,
		PaymentMethod: domain.PaymentMethodCash,
		CreatedAt:     createdAt,
	}
}

func TestDailySalesCountsFinalHourOnFallBackDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location failed: %v", err)
	}
	repo := memory.NewSeeded()
	engine := NewEngine(repo, repo, repo, repo, loc)

	// The clock falls back on 2026-11-01; the day is 25 hours long. A
	// bill created in the last local hour still belongs to that day.
	seedBill(t, repo, completedBill("350",
		time.Date(2026, 11, 1, 23, 30, 0, 0, loc),
		serviceItem("emp-a", "Priya", "Haircut", "350", 1)))

	report, err := engine.DailySales(context.Background(), "2026-11-01")
	if err != nil {
		t.Fatalf("daily sales failed: %v", err)
	}
	if report.TotalBills != 1 {
		t.Fatalf("late bill on a 25h day must be counted, got %d bills", report.TotalBills)
	}
	if !report.TotalSales.Equal(amount("350")) {
		t.Fatalf("expected total 350, got %s", report.TotalSales)
	}
	if !report.HourlySales[23].Equal(amount("350")) {
		t.Fatalf("expected 350 in hour 23, got %s", report.HourlySales[23])
	}
}

func TestDailySalesBucketsByCreationHour(t *testing.T) {
	repo := memory.NewSeeded()
	now := time.Date(2026, 8, 29, 18, 0, 0, 0, time.UTC)
	engine := newFixedEngine(repo, now)

	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	seedBill(t, repo, completedBill("200", day.Add(10*time.Hour), serviceItem("", "", "Haircut", "200", 1)))
	seedBill(t, repo, completedBill("300", day.Add(10*time.Hour+30*time.Minute), serviceItem("", "", "Facial", "300", 1)))
	seedBill(t, repo, completedBill("100", day.Add(14*time.Hour), serviceItem("", "", "Beard Trim", "100", 1)))

	pending := completedBill("999", day.Add(10*time.Hour))
	pending.Status = domain.BillStatusPending
	pending.Items = []domain.LineItem{serviceItem("", "", "Hair Color", "999", 1)}
	seedBill(t, repo, pending)

	report, err := engine.DailySales(context.Background(), "2026-08-29")
	if err != nil {
		t.Fatalf("daily sales failed: %v", err)
	}

	if report.Date != "2026-08-29" {
		t.Fatalf("unexpected date: %s", report.Date)
	}
	if report.TotalBills != 3 {
		t.Fatalf("pending bills must be excluded, got %d bills", report.TotalBills)
	}
	if !report.HourlySales[10].Equal(amount("500")) {
		t.Fatalf("expected 500 in hour 10, got %s", report.HourlySales[10])
	}
	if !report.HourlySales[14].Equal(amount("100")) {
		t.Fatalf("expected 100 in hour 14, got %s", report.HourlySales[14])
	}
	if !report.TotalSales.Equal(amount("600")) {
		t.Fatalf("expected total 600, got %s", report.TotalSales)
	}

	sum := amount("0")
	for _, h := range report.HourlySales {
		sum = sum.Add(h)
	}
	if !sum.Equal(report.TotalSales) {
		t.Fatalf("hourly buckets (%s) must sum to total sales (%s)", sum, report.TotalSales)
	}
}

func TestDailySalesRejectsInvalidDate(t *testing.T) {
	engine := newFixedEngine(memory.NewSeeded(), time.Now())

	_, err := engine.DailySales(context.Background(), "29-08-2026")
	if !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestMonthlyRevenueFoldsByCalendarMonth(t *testing.T) {
	repo := memory.NewSeeded()
	engine := newFixedEngine(repo, time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC))

	seedBill(t, repo, completedBill("1000", time.Date(2026, 1, 10, 11, 0, 0, 0, time.UTC), serviceItem("", "", "Hair Color", "1000", 1)))
	seedBill(t, repo, completedBill("250.50", time.Date(2026, 3, 5, 16, 0, 0, 0, time.UTC), serviceItem("", "", "Haircut", "250.50", 1)))
	// Previous year stays out of the report.
	seedBill(t, repo, completedBill("700", time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC), serviceItem("", "", "Facial", "700", 1)))

	report, err := engine.MonthlyRevenue(context.Background(), "2026")
	if err != nil {
		t.Fatalf("monthly revenue failed: %v", err)
	}

	if report.Year != 2026 {
		t.Fatalf("unexpected year: %d", report.Year)
	}
	if !report.MonthlyRevenue[0].Equal(amount("1000")) {
		t.Fatalf("expected 1000 in January, got %s", report.MonthlyRevenue[0])
	}
	if !report.MonthlyRevenue[2].Equal(amount("250.50")) {
		t.Fatalf("expected 250.50 in March, got %s", report.MonthlyRevenue[2])
	}
	if !report.TotalRevenue.Equal(amount("1250.50")) {
		t.Fatalf("expected total 1250.50, got %s", report.TotalRevenue)
	}
}

func TestEmployeePerformanceRanksByRevenue(t *testing.T) {
	repo := memory.NewSeeded()
	engine := newFixedEngine(repo, time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC))

	at := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	seedBill(t, repo, completedBill("500", at, serviceItem("emp-a", "Priya", "Manicure", "500", 1)))
	seedBill(t, repo, completedBill("300", at.Add(time.Hour), serviceItem("emp-b", "Rahul", "Haircut", "300", 1)))
	seedBill(t, repo, completedBill("600", at.Add(2*time.Hour), serviceItem("emp-b", "Rahul", "Facial", "600", 1)))
	// Unattributed service item: no employee credit.
	seedBill(t, repo, completedBill("150", at.Add(3*time.Hour), serviceItem("", "", "Beard Trim", "150", 1)))

	performance, err := engine.EmployeePerformance(context.Background(), "", "")
	if err != nil {
		t.Fatalf("employee performance failed: %v", err)
	}

	if len(performance) != 2 {
		t.Fatalf("expected 2 employees, got %d", len(performance))
	}
	if performance[0].EmployeeID != "emp-b" || !performance[0].Revenue.Equal(amount("900")) {
		t.Fatalf("unexpected leader: %+v", performance[0])
	}
	if performance[0].ServicesCount != 2 || performance[0].Name != "Rahul" {
		t.Fatalf("unexpected leader details: %+v", performance[0])
	}
	if performance[1].EmployeeID != "emp-a" || performance[1].ServicesCount != 1 {
		t.Fatalf("unexpected runner-up: %+v", performance[1])
	}
}

func TestEmployeePerformanceHonorsDateRange(t *testing.T) {
	repo := memory.NewSeeded()
	engine := newFixedEngine(repo, time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC))

	seedBill(t, repo, completedBill("500", time.Date(2026, 7, 10, 10, 0, 0, 0, time.UTC), serviceItem("emp-a", "Priya", "Manicure", "500", 1)))
	seedBill(t, repo, completedBill("800", time.Date(2026, 8, 10, 10, 0, 0, 0, time.UTC), serviceItem("emp-b", "Rahul", "Facial", "800", 1)))

	performance, err := engine.EmployeePerformance(context.Background(), "2026-08-01", "2026-08-31")
	if err != nil {
		t.Fatalf("employee performance failed: %v", err)
	}
	if len(performance) != 1 || performance[0].EmployeeID != "emp-b" {
		t.Fatalf("expected only emp-b inside the window, got %+v", performance)
	}

	if _, err := engine.EmployeePerformance(context.Background(), "2026-08-01", ""); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("one-sided range must fail, got %v", err)
	}
}

func TestCustomerAnalyticsTrailingMonths(t *testing.T) {
	repo := memory.NewSeeded()
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	engine := newFixedEngine(repo, now)

	ctx := context.Background()
	july := time.Date(2026, 7, 5, 10, 0, 0, 0, time.UTC)
	august := time.Date(2026, 8, 12, 10, 0, 0, 0, time.UTC)

	first, err := repo.CreateCustomer(ctx, domain.Customer{Name: "Asha", Mobile: "9000000001", Gender: "Female", CreatedAt: july})
	if err != nil {
		t.Fatalf("seed customer failed: %v", err)
	}
	if _, err := repo.CreateCustomer(ctx, domain.Customer{Name: "Vikram", Mobile: "9000000002", Gender: "Male", CreatedAt: august}); err != nil {
		t.Fatalf("seed customer failed: %v", err)
	}

	julyBill := completedBill("350", july.Add(2*time.Hour), serviceItem("emp-a", "Priya", "Haircut", "350", 1))
	julyBill.CustomerID = first.ID
	seedBill(t, repo, julyBill)

	// Pending bills never make a customer "active".
	pendingAug := completedBill("500", august, serviceItem("emp-a", "Priya", "Manicure", "500", 1))
	pendingAug.Status = domain.BillStatusPending
	pendingAug.CustomerID = first.ID
	seedBill(t, repo, pendingAug)

	analytics, err := engine.CustomerAnalytics(ctx, 3)
	if err != nil {
		t.Fatalf("customer analytics failed: %v", err)
	}

	if len(analytics) != 3 {
		t.Fatalf("expected 3 months, got %d", len(analytics))
	}
	if analytics[0].Month != "Jun" || analytics[1].Month != "Jul" || analytics[2].Month != "Aug" {
		t.Fatalf("months must run oldest to newest, got %s %s %s", analytics[0].Month, analytics[1].Month, analytics[2].Month)
	}
	if analytics[1].NewCustomers != 1 || analytics[1].ActiveCustomers != 1 {
		t.Fatalf("unexpected July stats: %+v", analytics[1])
	}
	if analytics[2].NewCustomers != 1 || analytics[2].ActiveCustomers != 0 {
		t.Fatalf("unexpected August stats: %+v", analytics[2])
	}
}

func TestCustomerAnalyticsDefaultsToSixMonths(t *testing.T) {
	engine := newFixedEngine(memory.NewSeeded(), time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC))

	analytics, err := engine.CustomerAnalytics(context.Background(), 0)
	if err != nil {
		t.Fatalf("customer analytics failed: %v", err)
	}
	if len(analytics) != 6 {
		t.Fatalf("expected 6 months by default, got %d", len(analytics))
	}
}
