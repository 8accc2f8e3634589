package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"salonpos/backend/internal/domain"
	"salonpos/backend/internal/store"
	"salonpos/backend/internal/xid"

	"github.com/shopspring/decimal"
)

type Store struct {
	mu               sync.RWMutex
	customersByID    map[string]domain.Customer
	customerByMobile map[string]string
	servicesByID     map[string]domain.SalonService
	productsByID     map[string]domain.Product
	employeesByID    map[string]domain.Employee
	billsByID        map[string]*domain.Bill
	billOrder        []string
	usersByEmail     map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_FRONTDESK_PASSWORD;
// hardcoded dev defaults are used with a warning when unset. Production
// deployments use PostgreSQL (DATABASE_URL) and never touch these.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	deskPwd := envOr("SEED_FRONTDESK_PASSWORD", "frontdesk123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_FRONTDESK_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_FRONTDESK_PASSWORD to override.")
	}

	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		email    string
		password string
		name     string
		role     string
	}{
		{"admin@salon.local", adminPwd, "Salon Admin", "admin"},
		{"frontdesk@salon.local", deskPwd, "Front Desk", "receptionist"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.email, err)
		}
		users[u.email] = domain.UserAccount{
			ID:           xid.New("user"),
			Email:        u.email,
			PasswordHash: string(hash),
			Name:         u.name,
			Role:         u.role,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func price(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func NewSeeded() *Store {
	services := []domain.SalonService{
		{ID: xid.New("svc"), Name: "Haircut", Price: price("350"), DurationMinutes: 30, Category: "hair"},
		{ID: xid.New("svc"), Name: "Beard Trim", Price: price("150"), DurationMinutes: 15, Category: "hair"},
		{ID: xid.New("svc"), Name: "Hair Color", Price: price("1200"), DurationMinutes: 90, Category: "hair"},
		{ID: xid.New("svc"), Name: "Facial", Price: price("800"), DurationMinutes: 45, Category: "skin"},
		{ID: xid.New("svc"), Name: "Head Massage", Price: price("400"), DurationMinutes: 25, Category: "spa"},
		{ID: xid.New("svc"), Name: "Manicure", Price: price("500"), DurationMinutes: 40, Category: "nails"},
	}
	products := []domain.Product{
		{ID: xid.New("prod"), Name: "Argan Oil Shampoo", Price: price("450"), Stock: 24, Category: "haircare"},
		{ID: xid.New("prod"), Name: "Keratin Conditioner", Price: price("520"), Stock: 18, Category: "haircare"},
		{ID: xid.New("prod"), Name: "Beard Oil", Price: price("300"), Stock: 7, Category: "grooming"},
		{ID: xid.New("prod"), Name: "Face Scrub", Price: price("280"), Stock: 12, Category: "skincare"},
		{ID: xid.New("prod"), Name: "Hair Wax", Price: price("350"), Stock: 5, Category: "styling"},
	}
	employees := []domain.Employee{
		{ID: xid.New("emp"), Name: "Priya Sharma", Specialty: "Hair", Active: true},
		{ID: xid.New("emp"), Name: "Rahul Verma", Specialty: "Beard & Grooming", Active: true},
		{ID: xid.New("emp"), Name: "Anita Desai", Specialty: "Skin", Active: true},
	}

	serviceMap := make(map[string]domain.SalonService, len(services))
	for _, s := range services {
		serviceMap[s.ID] = s
	}
	productMap := make(map[string]domain.Product, len(products))
	for _, p := range products {
		productMap[p.ID] = p
	}
	employeeMap := make(map[string]domain.Employee, len(employees))
	for _, e := range employees {
		employeeMap[e.ID] = e
	}

	return &Store{
		customersByID:    make(map[string]domain.Customer),
		customerByMobile: make(map[string]string),
		servicesByID:     serviceMap,
		productsByID:     productMap,
		employeesByID:    employeeMap,
		billsByID:        make(map[string]*domain.Bill),
		billOrder:        make([]string, 0, 128),
		usersByEmail:     seedUsers(),
	}
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Name == "" || customer.Mobile == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.customerByMobile[customer.Mobile]; exists {
		return nil, store.ErrDuplicate
	}
	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	s.customersByID[customer.ID] = customer
	s.customerByMobile[customer.Mobile] = customer.ID
	created := customer
	return &created, nil
}

func (s *Store) ListCustomers(_ context.Context, search string) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search = strings.ToLower(strings.TrimSpace(search))
	customers := make([]domain.Customer, 0, len(s.customersByID))
	for _, c := range s.customersByID {
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Name), search) &&
			!strings.Contains(c.Mobile, search) {
			continue
		}
		customers = append(customers, c)
	}

	// Most recently visited first, never-visited last.
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		switch {
		case a.LastVisit == nil && b.LastVisit == nil:
			return cmpString(a.Name, b.Name)
		case a.LastVisit == nil:
			return 1
		case b.LastVisit == nil:
			return -1
		case a.LastVisit.After(*b.LastVisit):
			return -1
		case b.LastVisit.After(*a.LastVisit):
			return 1
		}
		return cmpString(a.Name, b.Name)
	})
	return customers, nil
}

func (s *Store) GetCustomerByID(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, exists := s.customersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := customer
	return &found, nil
}

func (s *Store) CountCustomers(_ context.Context, createdFrom, createdTo *time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, c := range s.customersByID {
		if createdFrom != nil && c.CreatedAt.Before(*createdFrom) {
			continue
		}
		if createdTo != nil && c.CreatedAt.After(*createdTo) {
			continue
		}
		count++
	}
	return count, nil
}

func (s *Store) ListTopCustomers(_ context.Context, limit int) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 5
	}
	customers := make([]domain.Customer, 0, len(s.customersByID))
	for _, c := range s.customersByID {
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		if a.TotalSpent.Equal(b.TotalSpent) {
			return cmpString(a.ID, b.ID)
		}
		if a.TotalSpent.GreaterThan(b.TotalSpent) {
			return -1
		}
		return 1
	})
	if len(customers) > limit {
		customers = customers[:limit]
	}
	return customers, nil
}

func (s *Store) RecordCustomerVisit(_ context.Context, customerID string, amount decimal.Decimal, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer, exists := s.customersByID[customerID]
	if !exists {
		return store.ErrNotFound
	}
	customer.TotalVisits++
	customer.TotalSpent = customer.TotalSpent.Add(amount)
	visit := at
	customer.LastVisit = &visit
	s.customersByID[customerID] = customer
	return nil
}

func (s *Store) CreateSalonService(_ context.Context, svc domain.SalonService) (*domain.SalonService, error) {
	if svc.Name == "" || svc.Price.IsNegative() || svc.DurationMinutes < 1 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if svc.ID == "" {
		svc.ID = xid.New("svc")
	}
	s.servicesByID[svc.ID] = svc
	created := svc
	return &created, nil
}

func (s *Store) ListSalonServices(_ context.Context) ([]domain.SalonService, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	services := make([]domain.SalonService, 0, len(s.servicesByID))
	for _, svc := range s.servicesByID {
		services = append(services, svc)
	}
	slices.SortFunc(services, func(a, b domain.SalonService) int {
		if a.Category == b.Category {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.Category, b.Category)
	})
	return services, nil
}

func (s *Store) UpdateSalonService(_ context.Context, svc domain.SalonService) (*domain.SalonService, error) {
	if svc.ID == "" || svc.Name == "" || svc.Price.IsNegative() || svc.DurationMinutes < 1 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.servicesByID[svc.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.servicesByID[svc.ID] = svc
	updated := svc
	return &updated, nil
}

func (s *Store) DeleteSalonService(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.servicesByID[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.servicesByID, id)
	return nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.Price.IsNegative() || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	s.productsByID[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.productsByID))
	for _, p := range s.productsByID {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.Category, b.Category)
	})
	return products, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.productsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := product
	return &found, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.Price.IsNegative() {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.productsByID[product.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.productsByID[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.productsByID[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.productsByID, id)
	return nil
}

func (s *Store) AdjustProductStock(_ context.Context, productID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.productsByID[productID]
	if !exists {
		return store.ErrNotFound
	}
	product.Stock += delta
	s.productsByID[productID] = product
	return nil
}

func (s *Store) CreateEmployee(_ context.Context, employee domain.Employee) (*domain.Employee, error) {
	if employee.Name == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if employee.ID == "" {
		employee.ID = xid.New("emp")
	}
	if employee.Specialty == "" {
		employee.Specialty = "General"
	}
	s.employeesByID[employee.ID] = employee
	created := employee
	return &created, nil
}

func (s *Store) ListEmployees(_ context.Context, activeOnly bool) ([]domain.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	employees := make([]domain.Employee, 0, len(s.employeesByID))
	for _, e := range s.employeesByID {
		if activeOnly && !e.Active {
			continue
		}
		employees = append(employees, e)
	}
	slices.SortFunc(employees, func(a, b domain.Employee) int {
		return cmpString(a.Name, b.Name)
	})
	return employees, nil
}

func (s *Store) UpdateEmployee(_ context.Context, employee domain.Employee) (*domain.Employee, error) {
	if employee.ID == "" || employee.Name == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.employeesByID[employee.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.employeesByID[employee.ID] = employee
	updated := employee
	return &updated, nil
}

func (s *Store) DeleteEmployee(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.employeesByID[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.employeesByID, id)
	return nil
}

func (s *Store) CreateBill(_ context.Context, bill domain.Bill) (*domain.Bill, error) {
	if len(bill.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if bill.ID == "" {
		bill.ID = xid.New("bill")
	}
	if bill.CreatedAt.IsZero() {
		bill.CreatedAt = time.Now().UTC()
	}
	stored := cloneBill(bill)
	s.billsByID[bill.ID] = &stored
	s.billOrder = append(s.billOrder, bill.ID)
	created := cloneBill(bill)
	return &created, nil
}

func (s *Store) GetBillByID(_ context.Context, id string) (*domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bill, exists := s.billsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := cloneBill(*bill)
	return &found, nil
}

func (s *Store) QueryBills(_ context.Context, filter store.BillFilter) ([]domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bills := make([]domain.Bill, 0, len(s.billOrder))
	for _, id := range s.billOrder {
		bill := s.billsByID[id]
		if filter.Status != "" && bill.Status != filter.Status {
			continue
		}
		if filter.CreatedFrom != nil && bill.CreatedAt.Before(*filter.CreatedFrom) {
			continue
		}
		if filter.CreatedTo != nil && bill.CreatedAt.After(*filter.CreatedTo) {
			continue
		}
		bills = append(bills, cloneBill(*bill))
	}

	slices.SortFunc(bills, func(a, b domain.Bill) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return bills, nil
}

func (s *Store) MarkBillCompleted(_ context.Context, billID string, paymentMethod string, at time.Time) (*domain.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bill, exists := s.billsByID[billID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if bill.Status == domain.BillStatusCompleted {
		return nil, store.ErrInvalidInput
	}
	bill.Status = domain.BillStatusCompleted
	completed := at
	bill.CompletedAt = &completed
	if paymentMethod != "" {
		bill.PaymentMethod = paymentMethod
	}
	updated := cloneBill(*bill)
	return &updated, nil
}

func (s *Store) DistinctCustomerIDs(_ context.Context, from, to time.Time, status string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make(map[string]struct{})
	for _, bill := range s.billsByID {
		if status != "" && bill.Status != status {
			continue
		}
		if bill.CreatedAt.Before(from) || bill.CreatedAt.After(to) {
			continue
		}
		if bill.CustomerID == "" {
			continue
		}
		ids[bill.CustomerID] = struct{}{}
	}
	return ids, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.usersByEmail[strings.ToLower(strings.TrimSpace(email))]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := user
	return &found, nil
}

func cloneBill(bill domain.Bill) domain.Bill {
	cloned := bill
	cloned.Items = make([]domain.LineItem, len(bill.Items))
	copy(cloned.Items, bill.Items)
	if bill.CompletedAt != nil {
		completed := *bill.CompletedAt
		cloned.CompletedAt = &completed
	}
	return cloned
}

func cmpString(a, b string) int {
	return strings.Compare(a, b)
}
