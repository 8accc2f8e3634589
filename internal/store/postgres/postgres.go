package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"salonpos/backend/internal/domain"
	"salonpos/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// unavailable tags I/O failures so callers can map them to a 503 and
// aggregations can abort without emitting partial numbers.
func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", store.ErrUnavailable, op, err)
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.ID == "" || customer.Name == "" || customer.Mobile == "" {
		return nil, store.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, mobile, gender, email, created_at, last_visit, total_visits, total_spent)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, customer.ID, customer.Name, customer.Mobile, customer.Gender, nullIfEmpty(customer.Email),
		customer.CreatedAt, nullTime(customer.LastVisit), customer.TotalVisits, customer.TotalSpent)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, unavailable("insert customer", err)
	}

	created := customer
	return &created, nil
}

func (s *Store) ListCustomers(ctx context.Context, search string) ([]domain.Customer, error) {
	query := `
		SELECT id, name, mobile, gender, email, created_at, last_visit, total_visits, total_spent
		FROM customers
	`
	args := make([]any, 0, 1)
	search = strings.TrimSpace(search)
	if search != "" {
		query += ` WHERE name ILIKE $1 OR mobile ILIKE $1`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY last_visit DESC NULLS LAST, created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("list customers", err)
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, unavailable("scan customer", err)
		}
		customers = append(customers, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list customers", err)
	}
	return customers, nil
}

func (s *Store) GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, mobile, gender, email, created_at, last_visit, total_visits, total_spent
		FROM customers
		WHERE id = $1
	`, id)

	customer, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, unavailable("get customer", err)
	}
	return &customer, nil
}

func (s *Store) CountCustomers(ctx context.Context, createdFrom, createdTo *time.Time) (int, error) {
	query := `SELECT count(*) FROM customers`
	args := make([]any, 0, 2)
	clauses := make([]string, 0, 2)
	if createdFrom != nil {
		args = append(args, *createdFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if createdTo != nil {
		args = append(args, *createdTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, unavailable("count customers", err)
	}
	return count, nil
}

func (s *Store) ListTopCustomers(ctx context.Context, limit int) ([]domain.Customer, error) {
	if limit < 1 {
		limit = 5
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, mobile, gender, email, created_at, last_visit, total_visits, total_spent
		FROM customers
		ORDER BY total_spent DESC, total_visits DESC, created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, unavailable("list top customers", err)
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, limit)
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, unavailable("scan customer", err)
		}
		customers = append(customers, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list top customers", err)
	}
	return customers, nil
}

func (s *Store) RecordCustomerVisit(ctx context.Context, customerID string, amount decimal.Decimal, at time.Time) error {
	if customerID == "" {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE customers
		SET total_visits = total_visits + 1,
		    total_spent = total_spent + $2,
		    last_visit = $3
		WHERE id = $1
	`, customerID, amount, at)
	if err != nil {
		return unavailable("record customer visit", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return unavailable("record customer visit", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateSalonService(ctx context.Context, svc domain.SalonService) (*domain.SalonService, error) {
	if svc.ID == "" || svc.Name == "" || svc.DurationMinutes < 1 {
		return nil, store.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO salon_services (id, name, description, price, duration_minutes, category)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, svc.ID, svc.Name, nullIfEmpty(svc.Description), svc.Price, svc.DurationMinutes, nullIfEmpty(svc.Category))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, unavailable("insert salon service", err)
	}

	created := svc
	return &created, nil
}

func (s *Store) ListSalonServices(ctx context.Context) ([]domain.SalonService, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, coalesce(description, ''), price, duration_minutes, coalesce(category, '')
		FROM salon_services
		ORDER BY category, name
	`)
	if err != nil {
		return nil, unavailable("list salon services", err)
	}
	defer rows.Close()

	services := make([]domain.SalonService, 0, 32)
	for rows.Next() {
		var svc domain.SalonService
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.Description, &svc.Price, &svc.DurationMinutes, &svc.Category); err != nil {
			return nil, unavailable("scan salon service", err)
		}
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list salon services", err)
	}
	return services, nil
}

func (s *Store) UpdateSalonService(ctx context.Context, svc domain.SalonService) (*domain.SalonService, error) {
	if svc.ID == "" || svc.Name == "" || svc.DurationMinutes < 1 {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE salon_services
		SET name = $2, description = $3, price = $4, duration_minutes = $5, category = $6
		WHERE id = $1
	`, svc.ID, svc.Name, nullIfEmpty(svc.Description), svc.Price, svc.DurationMinutes, nullIfEmpty(svc.Category))
	if err != nil {
		return nil, unavailable("update salon service", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, unavailable("update salon service", err)
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := svc
	return &updated, nil
}

func (s *Store) DeleteSalonService(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "salon_services", id)
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, price, stock, category)
		VALUES ($1,$2,$3,$4,$5)
	`, product.ID, product.Name, product.Price, product.Stock, nullIfEmpty(product.Category))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, unavailable("insert product", err)
	}

	created := product
	return &created, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, price, stock, coalesce(category, '')
		FROM products
		ORDER BY category, name
	`)
	if err != nil {
		return nil, unavailable("list products", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Category); err != nil {
			return nil, unavailable("scan product", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list products", err)
	}
	return products, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, price, stock, coalesce(category, '')
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Category)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, unavailable("get product", err)
	}
	return &p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, price = $3, stock = $4, category = $5
		WHERE id = $1
	`, product.ID, product.Name, product.Price, product.Stock, nullIfEmpty(product.Category))
	if err != nil {
		return nil, unavailable("update product", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, unavailable("update product", err)
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "products", id)
}

func (s *Store) AdjustProductStock(ctx context.Context, productID string, delta int) error {
	if productID == "" {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + $2
		WHERE id = $1
	`, productID, delta)
	if err != nil {
		return unavailable("adjust product stock", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return unavailable("adjust product stock", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateEmployee(ctx context.Context, employee domain.Employee) (*domain.Employee, error) {
	if employee.ID == "" || employee.Name == "" {
		return nil, store.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, name, specialty, phone, active)
		VALUES ($1,$2,$3,$4,$5)
	`, employee.ID, employee.Name, nullIfEmpty(employee.Specialty), nullIfEmpty(employee.Phone), employee.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, unavailable("insert employee", err)
	}

	created := employee
	return &created, nil
}

func (s *Store) ListEmployees(ctx context.Context, activeOnly bool) ([]domain.Employee, error) {
	query := `
		SELECT id, name, coalesce(specialty, ''), coalesce(phone, ''), active
		FROM employees
	`
	if activeOnly {
		query += ` WHERE active = true`
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, unavailable("list employees", err)
	}
	defer rows.Close()

	employees := make([]domain.Employee, 0, 16)
	for rows.Next() {
		var e domain.Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Specialty, &e.Phone, &e.Active); err != nil {
			return nil, unavailable("scan employee", err)
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list employees", err)
	}
	return employees, nil
}

func (s *Store) UpdateEmployee(ctx context.Context, employee domain.Employee) (*domain.Employee, error) {
	if employee.ID == "" || employee.Name == "" {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE employees
		SET name = $2, specialty = $3, phone = $4, active = $5
		WHERE id = $1
	`, employee.ID, employee.Name, nullIfEmpty(employee.Specialty), nullIfEmpty(employee.Phone), employee.Active)
	if err != nil {
		return nil, unavailable("update employee", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, unavailable("update employee", err)
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := employee
	return &updated, nil
}

func (s *Store) DeleteEmployee(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "employees", id)
}

func (s *Store) CreateBill(ctx context.Context, bill domain.Bill) (*domain.Bill, error) {
	if bill.ID == "" || len(bill.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	itemsJSON, err := json.Marshal(bill.Items)
	if err != nil {
		return nil, store.ErrInvalidInput
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bills (id, customer_id, customer_name, customer_mobile, items, subtotal, discount, tax, total_amount, status, payment_method, created_at, completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, bill.ID, nullIfEmpty(bill.CustomerID), nullIfEmpty(bill.CustomerName), nullIfEmpty(bill.CustomerMobile),
		itemsJSON, bill.Subtotal, bill.Discount, bill.Tax, bill.TotalAmount,
		bill.Status, bill.PaymentMethod, bill.CreatedAt, nullTime(bill.CompletedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, unavailable("insert bill", err)
	}

	created := bill
	return &created, nil
}

func (s *Store) GetBillByID(ctx context.Context, id string) (*domain.Bill, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, customer_id, customer_name, customer_mobile, items, subtotal, discount, tax, total_amount, status, payment_method, created_at, completed_at
		FROM bills
		WHERE id = $1
	`, id)

	bill, err := scanBill(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, unavailable("get bill", err)
	}
	return &bill, nil
}

func (s *Store) QueryBills(ctx context.Context, filter store.BillFilter) ([]domain.Bill, error) {
	query := `
		SELECT id, customer_id, customer_name, customer_mobile, items, subtotal, discount, tax, total_amount, status, payment_method, created_at, completed_at
		FROM bills
	`
	args := make([]any, 0, 3)
	clauses := make([]string, 0, 3)
	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("query bills", err)
	}
	defer rows.Close()

	bills := make([]domain.Bill, 0, 128)
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, unavailable("scan bill", err)
		}
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("query bills", err)
	}
	return bills, nil
}

func (s *Store) MarkBillCompleted(ctx context.Context, billID string, paymentMethod string, at time.Time) (*domain.Bill, error) {
	if billID == "" {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE bills
		SET status = $2, payment_method = $3, completed_at = $4
		WHERE id = $1 AND status = $5
	`, billID, domain.BillStatusCompleted, paymentMethod, at, domain.BillStatusPending)
	if err != nil {
		return nil, unavailable("complete bill", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, unavailable("complete bill", err)
	}
	if affected == 0 {
		// Either the bill does not exist or it is already completed.
		existing, getErr := s.GetBillByID(ctx, billID)
		if getErr != nil {
			return nil, getErr
		}
		if existing.Status == domain.BillStatusCompleted {
			return nil, store.ErrInvalidInput
		}
		return nil, store.ErrNotFound
	}

	return s.GetBillByID(ctx, billID)
}

func (s *Store) DistinctCustomerIDs(ctx context.Context, from, to time.Time, status string) (map[string]struct{}, error) {
	query := `
		SELECT DISTINCT customer_id
		FROM bills
		WHERE customer_id IS NOT NULL AND created_at >= $1 AND created_at <= $2
	`
	args := []any{from, to}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("distinct bill customers", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{}, 64)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, unavailable("scan customer id", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("distinct bill customers", err)
	}
	return ids, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.UserAccount, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, store.ErrInvalidInput
	}

	var account domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, name, role
		FROM app_users
		WHERE email = $1
	`, email).Scan(&account.ID, &account.Email, &account.PasswordHash, &account.Name, &account.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, unavailable("get user", err)
	}
	return &account, nil
}

func (s *Store) deleteByID(ctx context.Context, table string, id string) error {
	if id == "" {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), id)
	if err != nil {
		return unavailable("delete from "+table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return unavailable("delete from "+table, err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (domain.Customer, error) {
	var customer domain.Customer
	var email sql.NullString
	var lastVisit sql.NullTime
	err := row.Scan(&customer.ID, &customer.Name, &customer.Mobile, &customer.Gender, &email,
		&customer.CreatedAt, &lastVisit, &customer.TotalVisits, &customer.TotalSpent)
	if err != nil {
		return domain.Customer{}, err
	}
	customer.Email = email.String
	customer.CreatedAt = customer.CreatedAt.UTC()
	if lastVisit.Valid {
		visited := lastVisit.Time.UTC()
		customer.LastVisit = &visited
	}
	return customer, nil
}

func scanBill(row rowScanner) (domain.Bill, error) {
	var bill domain.Bill
	var customerID, customerName, customerMobile sql.NullString
	var completedAt sql.NullTime
	var itemsJSON []byte
	err := row.Scan(&bill.ID, &customerID, &customerName, &customerMobile, &itemsJSON,
		&bill.Subtotal, &bill.Discount, &bill.Tax, &bill.TotalAmount,
		&bill.Status, &bill.PaymentMethod, &bill.CreatedAt, &completedAt)
	if err != nil {
		return domain.Bill{}, err
	}
	bill.CustomerID = customerID.String
	bill.CustomerName = customerName.String
	bill.CustomerMobile = customerMobile.String
	bill.CreatedAt = bill.CreatedAt.UTC()
	if completedAt.Valid {
		done := completedAt.Time.UTC()
		bill.CompletedAt = &done
	}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &bill.Items); err != nil {
			return domain.Bill{}, err
		}
	}
	return bill, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}
