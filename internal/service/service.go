package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"salonpos/backend/internal/cache"
	"salonpos/backend/internal/domain"
	"salonpos/backend/internal/reports"
	"salonpos/backend/internal/store"
	"salonpos/backend/internal/xid"

	"github.com/shopspring/decimal"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo       store.Repository
	engine     *reports.Engine
	windows    *reports.Resolver
	catalog    cache.CatalogCache
	catalogTTL time.Duration
	now        func() time.Time
}

func New(repo store.Repository, engine *reports.Engine, windows *reports.Resolver, catalog cache.CatalogCache, catalogTTL time.Duration) *Service {
	if catalog == nil {
		catalog = cache.NoopCatalogCache{}
	}
	if catalogTTL <= 0 {
		catalogTTL = 60 * time.Second
	}
	return &Service{
		repo:       repo,
		engine:     engine,
		windows:    windows,
		catalog:    catalog,
		catalogTTL: catalogTTL,
		now:        time.Now,
	}
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Mobile = strings.TrimSpace(req.Mobile)
	req.Gender = strings.TrimSpace(req.Gender)
	if req.Name == "" || req.Mobile == "" {
		return domain.Customer{}, store.ErrInvalidInput
	}
	if req.Gender == "" {
		req.Gender = "Other"
	}

	customer := domain.Customer{
		ID:         xid.New("cust"),
		Name:       req.Name,
		Mobile:     req.Mobile,
		Gender:     req.Gender,
		Email:      strings.TrimSpace(req.Email),
		CreatedAt:  s.now().UTC(),
		TotalSpent: decimal.Zero,
	}
	created, err := s.repo.CreateCustomer(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}
	return *created, nil
}

func (s *Service) ListCustomers(ctx context.Context, search string) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx, search)
}

func (s *Service) CreateSalonService(ctx context.Context, svc domain.SalonService) (domain.SalonService, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.SalonService{}, err
	}

	svc.ID = xid.New("svc")
	svc.Name = strings.TrimSpace(svc.Name)
	svc.Category = strings.TrimSpace(svc.Category)
	if svc.Name == "" || svc.Price.IsNegative() || svc.DurationMinutes < 1 {
		return domain.SalonService{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateSalonService(ctx, svc)
	if err != nil {
		return domain.SalonService{}, err
	}
	s.invalidateCatalog(ctx)
	return *created, nil
}

func (s *Service) ListSalonServices(ctx context.Context) ([]domain.SalonService, error) {
	if cached, ok, err := s.catalog.GetServices(ctx); err == nil && ok {
		return cached, nil
	} else if err != nil {
		log.Printf("[service] WARN: service catalog cache read failed: %v", err)
	}

	services, err := s.repo.ListSalonServices(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.catalog.SetServices(ctx, services, s.catalogTTL); err != nil {
		log.Printf("[service] WARN: service catalog cache write failed: %v", err)
	}
	return services, nil
}

func (s *Service) UpdateSalonService(ctx context.Context, id string, req domain.SalonServiceUpdateRequest) (domain.SalonService, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.SalonService{}, err
	}

	services, err := s.repo.ListSalonServices(ctx)
	if err != nil {
		return domain.SalonService{}, err
	}
	var existing *domain.SalonService
	for i := range services {
		if services[i].ID == id {
			existing = &services[i]
			break
		}
	}
	if existing == nil {
		return domain.SalonService{}, store.ErrNotFound
	}

	updated := *existing
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	if req.Price != nil {
		updated.Price = *req.Price
	}
	if req.DurationMinutes != nil {
		updated.DurationMinutes = *req.DurationMinutes
	}
	if req.Category != nil {
		updated.Category = strings.TrimSpace(*req.Category)
	}
	if updated.Name == "" || updated.Price.IsNegative() || updated.DurationMinutes < 1 {
		return domain.SalonService{}, store.ErrInvalidInput
	}

	saved, err := s.repo.UpdateSalonService(ctx, updated)
	if err != nil {
		return domain.SalonService{}, err
	}
	s.invalidateCatalog(ctx)
	return *saved, nil
}

func (s *Service) DeleteSalonService(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.DeleteSalonService(ctx, id); err != nil {
		return err
	}
	s.invalidateCatalog(ctx)
	return nil
}

func (s *Service) CreateProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}

	product.ID = xid.New("prod")
	product.Name = strings.TrimSpace(product.Name)
	product.Category = strings.TrimSpace(product.Category)
	if product.Name == "" || product.Price.IsNegative() || product.Stock < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	s.invalidateCatalog(ctx)
	return *created, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	if cached, ok, err := s.catalog.GetProducts(ctx); err == nil && ok {
		return cached, nil
	} else if err != nil {
		log.Printf("[service] WARN: product catalog cache read failed: %v", err)
	}

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.catalog.SetProducts(ctx, products, s.catalogTTL); err != nil {
		log.Printf("[service] WARN: product catalog cache write failed: %v", err)
	}
	return products, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}

	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
	}
	if req.Price != nil {
		updated.Price = *req.Price
	}
	if req.Stock != nil {
		updated.Stock = *req.Stock
	}
	if req.Category != nil {
		updated.Category = strings.TrimSpace(*req.Category)
	}
	if updated.Name == "" || updated.Price.IsNegative() || updated.Stock < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}
	s.invalidateCatalog(ctx)
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.invalidateCatalog(ctx)
	return nil
}

func (s *Service) CreateEmployee(ctx context.Context, employee domain.Employee) (domain.Employee, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Employee{}, err
	}

	employee.ID = xid.New("emp")
	employee.Name = strings.TrimSpace(employee.Name)
	if employee.Name == "" {
		return domain.Employee{}, store.ErrInvalidInput
	}
	employee.Active = true

	created, err := s.repo.CreateEmployee(ctx, employee)
	if err != nil {
		return domain.Employee{}, err
	}
	return *created, nil
}

func (s *Service) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	return s.repo.ListEmployees(ctx, true)
}

func (s *Service) UpdateEmployee(ctx context.Context, id string, req domain.EmployeeUpdateRequest) (domain.Employee, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Employee{}, err
	}

	employees, err := s.repo.ListEmployees(ctx, false)
	if err != nil {
		return domain.Employee{}, err
	}
	var existing *domain.Employee
	for i := range employees {
		if employees[i].ID == id {
			existing = &employees[i]
			break
		}
	}
	if existing == nil {
		return domain.Employee{}, store.ErrNotFound
	}

	updated := *existing
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
	}
	if req.Specialty != nil {
		updated.Specialty = strings.TrimSpace(*req.Specialty)
	}
	if req.Phone != nil {
		updated.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}
	if updated.Name == "" {
		return domain.Employee{}, store.ErrInvalidInput
	}

	saved, err := s.repo.UpdateEmployee(ctx, updated)
	if err != nil {
		return domain.Employee{}, err
	}
	return *saved, nil
}

func (s *Service) DeleteEmployee(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.repo.DeleteEmployee(ctx, id)
}

// CreateBill normalizes line items and recomputes totals when the caller
// omits them: subtotal is the sum of unitPrice*quantity, totalAmount is
// subtotal - discount + tax with discount and tax defaulting to zero.
// Bills submitted already completed run the completion side effects
// immediately.
func (s *Service) CreateBill(ctx context.Context, req domain.BillCreateRequest) (domain.Bill, error) {
	items, err := normalizeItems(req.Items)
	if err != nil {
		return domain.Bill{}, err
	}
	if req.Discount.IsNegative() || req.Tax.IsNegative() {
		return domain.Bill{}, store.ErrInvalidInput
	}

	status := req.Status
	if status == "" {
		status = domain.BillStatusCompleted
	}
	if status != domain.BillStatusPending && status != domain.BillStatusCompleted {
		return domain.Bill{}, store.ErrInvalidInput
	}
	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = domain.PaymentMethodCash
	}
	if !isSupportedPaymentMethod(paymentMethod) {
		return domain.Bill{}, store.ErrInvalidInput
	}

	subtotal := req.Subtotal
	totalAmount := req.TotalAmount
	if totalAmount.IsZero() {
		subtotal = decimal.Zero
		for _, item := range items {
			subtotal = subtotal.Add(item.Revenue())
		}
		totalAmount = subtotal.Sub(req.Discount).Add(req.Tax)
	}

	now := s.now().UTC()
	bill := domain.Bill{
		ID:             xid.New("bill"),
		CustomerID:     strings.TrimSpace(req.CustomerID),
		CustomerName:   strings.TrimSpace(req.CustomerName),
		CustomerMobile: strings.TrimSpace(req.CustomerMobile),
		Items:          items,
		Subtotal:       subtotal,
		Discount:       req.Discount,
		Tax:            req.Tax,
		TotalAmount:    totalAmount,
		Status:         status,
		PaymentMethod:  paymentMethod,
		CreatedAt:      now,
	}
	if status == domain.BillStatusCompleted {
		completed := now
		bill.CompletedAt = &completed
	}

	created, err := s.repo.CreateBill(ctx, bill)
	if err != nil {
		return domain.Bill{}, err
	}

	if created.Status == domain.BillStatusCompleted {
		s.runCompletionSideEffects(ctx, created, now)
	}
	return *created, nil
}

func (s *Service) ListBills(ctx context.Context, status string, date string) ([]domain.Bill, error) {
	filter := store.BillFilter{Status: strings.TrimSpace(status)}
	if strings.TrimSpace(date) != "" {
		win, err := s.windows.DayWindow(date, s.now())
		if err != nil {
			return nil, err
		}
		filter.CreatedFrom = &win.Start
		filter.CreatedTo = &win.End
	}
	return s.repo.QueryBills(ctx, filter)
}

func (s *Service) GetBill(ctx context.Context, id string) (domain.Bill, error) {
	bill, err := s.repo.GetBillByID(ctx, id)
	if err != nil {
		return domain.Bill{}, err
	}
	return *bill, nil
}

// CompleteBill transitions a pending bill to completed and then runs the
// post-commit side-effect steps. The bill write and the side effects are
// not one transaction: a crash in between leaves the customer and product
// aggregates behind the bill history. That gap is accepted and logged,
// not papered over.
func (s *Service) CompleteBill(ctx context.Context, billID string, paymentMethod string) (domain.Bill, error) {
	if strings.TrimSpace(billID) == "" {
		return domain.Bill{}, store.ErrInvalidInput
	}
	if paymentMethod == "" {
		paymentMethod = domain.PaymentMethodCash
	}
	if !isSupportedPaymentMethod(paymentMethod) {
		return domain.Bill{}, store.ErrInvalidInput
	}

	now := s.now().UTC()
	bill, err := s.repo.MarkBillCompleted(ctx, billID, paymentMethod, now)
	if err != nil {
		return domain.Bill{}, err
	}

	s.runCompletionSideEffects(ctx, bill, now)
	return *bill, nil
}

type completionStep struct {
	name string
	run  func(ctx context.Context) error
}

// runCompletionSideEffects executes the writes that follow a completed
// bill: the customer visit counters and the product stock decrements.
// Each step is independent; a failed step is logged and skipped so the
// remaining steps still run.
func (s *Service) runCompletionSideEffects(ctx context.Context, bill *domain.Bill, at time.Time) {
	steps := make([]completionStep, 0, 1+len(bill.Items))
	if bill.CustomerID != "" {
		steps = append(steps, completionStep{
			name: "customer visit " + bill.CustomerID,
			run: func(ctx context.Context) error {
				return s.repo.RecordCustomerVisit(ctx, bill.CustomerID, bill.TotalAmount, at)
			},
		})
	}
	for _, item := range bill.Items {
		if item.Kind != domain.ItemKindProduct || item.ReferenceID == "" {
			continue
		}
		productID := item.ReferenceID
		qty := item.Quantity
		if qty < 1 {
			qty = 1
		}
		steps = append(steps, completionStep{
			name: "stock decrement " + productID,
			run: func(ctx context.Context) error {
				return s.repo.AdjustProductStock(ctx, productID, -qty)
			},
		})
	}

	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			log.Printf("[service] WARN: completion side effect failed (%s) bill=%s: %v", step.name, bill.ID, err)
		}
	}
	s.invalidateCatalog(ctx)
}

func (s *Service) DailySales(ctx context.Context, date string) (domain.DailySalesReport, error) {
	return s.engine.DailySales(ctx, date)
}

func (s *Service) MonthlyRevenue(ctx context.Context, year string) (domain.MonthlyRevenueReport, error) {
	return s.engine.MonthlyRevenue(ctx, year)
}

func (s *Service) EmployeePerformance(ctx context.Context, startDate, endDate string) ([]domain.EmployeePerformance, error) {
	return s.engine.EmployeePerformance(ctx, startDate, endDate)
}

func (s *Service) CustomerAnalytics(ctx context.Context, months int) ([]domain.CustomerMonthStats, error) {
	return s.engine.CustomerAnalytics(ctx, months)
}

func (s *Service) DashboardSnapshot(ctx context.Context, startDate, endDate string) (domain.DashboardSnapshot, error) {
	return s.engine.DashboardSnapshot(ctx, startDate, endDate)
}

func (s *Service) invalidateCatalog(ctx context.Context) {
	if err := s.catalog.Invalidate(ctx); err != nil {
		log.Printf("[service] WARN: catalog cache invalidation failed: %v", err)
	}
}

func requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("admin role required")
	}
	return nil
}

func normalizeItems(items []domain.LineItem) ([]domain.LineItem, error) {
	if len(items) == 0 {
		return nil, store.ErrInvalidInput
	}

	normalized := make([]domain.LineItem, 0, len(items))
	for _, item := range items {
		item.Name = strings.TrimSpace(item.Name)
		if item.Kind != domain.ItemKindService && item.Kind != domain.ItemKindProduct {
			return nil, store.ErrInvalidInput
		}
		if item.Name == "" || item.UnitPrice.IsNegative() {
			return nil, store.ErrInvalidInput
		}
		if item.Quantity < 1 {
			item.Quantity = 1
		}
		if item.Kind == domain.ItemKindProduct {
			// Product sales carry no stylist attribution.
			item.EmployeeID = ""
			item.EmployeeName = ""
		}
		normalized = append(normalized, item)
	}
	return normalized, nil
}

func isSupportedPaymentMethod(method string) bool {
	switch method {
	case domain.PaymentMethodCash, domain.PaymentMethodCard, domain.PaymentMethodUPI:
		return true
	}
	return false
}
