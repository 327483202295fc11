package sim

import (
	"database/sql"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"github.com/example/delivery-driver/internal/models"
)

// OrderRecord is the server-side view of an order: the pushed payload plus
// which driver claimed it.
type OrderRecord struct {
	models.Order
	Driver    string
	PaymentID string
}

// OrderStore persists the simulated order book. Memory by default,
// Postgres when PG_DSN is set.
type OrderStore interface {
	Save(rec *OrderRecord) error
	Update(rec *OrderRecord) error
	Get(orderID string) (*OrderRecord, bool)
}

type MemoryOrders struct {
	mu     sync.RWMutex
	orders map[string]*OrderRecord
}

func NewMemoryOrders() *MemoryOrders {
	return &MemoryOrders{orders: make(map[string]*OrderRecord)}
}

func (m *MemoryOrders) Save(rec *OrderRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.orders[rec.OrderID] = &cp
	return nil
}

func (m *MemoryOrders) Update(rec *OrderRecord) error {
	return m.Save(rec)
}

func (m *MemoryOrders) Get(orderID string) (*OrderRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.orders[orderID]
	if !ok {
		return nil, false
	}
	cp := *rec
	return &cp, true
}

type PostgresOrders struct {
	db *sql.DB
}

func NewPostgresOrders(dsn string) (*PostgresOrders, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresOrders{db: db}, nil
}

func (p *PostgresOrders) Save(rec *OrderRecord) error {
	_, err := p.db.Exec(`INSERT INTO orders(id, price, start_lat, start_lon, end_lat, end_lon, status, driver, payment_id, pushed_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO NOTHING`,
		rec.OrderID, rec.Price, rec.Start.Lat, rec.Start.Lon, rec.End.Lat, rec.End.Lon,
		rec.Status, rec.Driver, rec.PaymentID, rec.Pushed)
	return err
}

func (p *PostgresOrders) Update(rec *OrderRecord) error {
	_, err := p.db.Exec(`UPDATE orders SET status=$1, driver=$2, payment_id=$3, updated_at=$4 WHERE id=$5`,
		rec.Status, rec.Driver, rec.PaymentID, time.Now(), rec.OrderID)
	return err
}

func (p *PostgresOrders) Get(orderID string) (*OrderRecord, bool) {
	row := p.db.QueryRow(`SELECT id, price, start_lat, start_lon, end_lat, end_lon, status, driver, payment_id, pushed_at FROM orders WHERE id=$1`, orderID)
	var rec OrderRecord
	err := row.Scan(&rec.OrderID, &rec.Price, &rec.Start.Lat, &rec.Start.Lon,
		&rec.End.Lat, &rec.End.Lon, &rec.Status, &rec.Driver, &rec.PaymentID, &rec.Pushed)
	if err != nil {
		return nil, false
	}
	return &rec, true
}
