package integration

import (
	"context"
	"sort"
	"sync"

	"commerce-core/internal/core/domain"
	"commerce-core/internal/core/ports"
	"commerce-core/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Shipment Repo ---

type inMemoryShipmentRepo struct {
	mu        sync.RWMutex
	shipments map[uuid.UUID]domain.Shipment
}

func newInMemoryShipmentRepo() *inMemoryShipmentRepo {
	return &inMemoryShipmentRepo{shipments: make(map[uuid.UUID]domain.Shipment)}
}

func (r *inMemoryShipmentRepo) Create(ctx context.Context, tx pgx.Tx, s *domain.Shipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *s
	stored.Items = nil
	r.shipments[s.ID] = stored
	return nil
}

func (r *inMemoryShipmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Shipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.shipments[id]
	if !ok {
		return nil, nil
	}
	out := s
	return &out, nil
}

// Update performs the same compare-and-swap the SQL repo does: the stored
// version must match the loaded one, and the stored copy gets version+1.
func (r *inMemoryShipmentRepo) Update(ctx context.Context, tx pgx.Tx, s *domain.Shipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.shipments[s.ID]
	if !ok || stored.Version != s.Version {
		return apperror.ErrStaleAggregate("shipment")
	}
	next := *s
	next.Items = nil
	next.Version = s.Version + 1
	r.shipments[s.ID] = next
	s.Version++
	return nil
}

func (r *inMemoryShipmentRepo) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.shipments, id)
	return nil
}

func (r *inMemoryShipmentRepo) List(ctx context.Context, params ports.ShipmentListParams) ([]domain.Shipment, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Shipment
	for _, s := range r.shipments {
		if params.OrderID != nil && s.OrderID != *params.OrderID {
			continue
		}
		if params.Status != nil && s.Status != *params.Status {
			continue
		}
		if params.Carrier != nil && (s.Carrier == nil || *s.Carrier != *params.Carrier) {
			continue
		}
		if params.CreatedFrom != nil && s.CreatedAt.Before(*params.CreatedFrom) {
			continue
		}
		if params.CreatedTo != nil && s.CreatedAt.After(*params.CreatedTo) {
			continue
		}
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		if params.SortDesc {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	total := int64(len(result))

	if params.Offset >= len(result) {
		return []domain.Shipment{}, total, nil
	}
	end := params.Offset + params.Limit
	if end > len(result) {
		end = len(result)
	}
	return result[params.Offset:end], total, nil
}

// --- In-Memory Shipment Item Repo ---

type inMemoryShipmentItemRepo struct {
	mu    sync.RWMutex
	items map[uuid.UUID][]domain.ShipmentItem // keyed by shipment ID
}

func newInMemoryShipmentItemRepo() *inMemoryShipmentItemRepo {
	return &inMemoryShipmentItemRepo{items: make(map[uuid.UUID][]domain.ShipmentItem)}
}

func (r *inMemoryShipmentItemRepo) Create(ctx context.Context, tx pgx.Tx, item *domain.ShipmentItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ShipmentID] = append(r.items[item.ShipmentID], *item)
	return nil
}

func (r *inMemoryShipmentItemRepo) ListByShipmentID(ctx context.Context, shipmentID uuid.UUID) ([]domain.ShipmentItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ShipmentItem, len(r.items[shipmentID]))
	copy(out, r.items[shipmentID])
	return out, nil
}

func (r *inMemoryShipmentItemRepo) Update(ctx context.Context, tx pgx.Tx, item *domain.ShipmentItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.items[item.ShipmentID]
	for i := range list {
		if list[i].OrderItemID == item.OrderItemID {
			list[i] = *item
			return nil
		}
	}
	return apperror.ErrShipmentItemNotFound(item.OrderItemID)
}

func (r *inMemoryShipmentItemRepo) Delete(ctx context.Context, tx pgx.Tx, shipmentID uuid.UUID, orderItemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.items[shipmentID]
	for i := range list {
		if list[i].OrderItemID == orderItemID {
			r.items[shipmentID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return apperror.ErrShipmentItemNotFound(orderItemID)
}

func (r *inMemoryShipmentItemRepo) DeleteByShipmentID(ctx context.Context, tx pgx.Tx, shipmentID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, shipmentID)
	return nil
}

// --- In-Memory Payment Intent Repo ---

type inMemoryIntentRepo struct {
	mu      sync.RWMutex
	intents map[uuid.UUID]domain.PaymentIntent
}

func newInMemoryIntentRepo() *inMemoryIntentRepo {
	return &inMemoryIntentRepo{intents: make(map[uuid.UUID]domain.PaymentIntent)}
}

func (r *inMemoryIntentRepo) Create(ctx context.Context, tx pgx.Tx, intent *domain.PaymentIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.intents {
		if existing.IdempotencyKey == intent.IdempotencyKey {
			return apperror.ErrDatabaseError(nil)
		}
	}
	r.intents[intent.ID] = *intent
	return nil
}

func (r *inMemoryIntentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentIntent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.intents[id]
	if !ok {
		return nil, nil
	}
	out := p
	return &out, nil
}

func (r *inMemoryIntentRepo) GetByOrderID(ctx context.Context, orderID string) (*domain.PaymentIntent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *domain.PaymentIntent
	for _, p := range r.intents {
		if p.OrderID != orderID {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			cp := p
			latest = &cp
		}
	}
	return latest, nil
}

func (r *inMemoryIntentRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.PaymentIntent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.intents {
		if p.IdempotencyKey == key {
			out := p
			return &out, nil
		}
	}
	return nil, nil
}

func (r *inMemoryIntentRepo) GetByExternalReference(ctx context.Context, ref string) (*domain.PaymentIntent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.intents {
		if p.ExternalReference != nil && *p.ExternalReference == ref {
			out := p
			return &out, nil
		}
	}
	return nil, nil
}

func (r *inMemoryIntentRepo) Update(ctx context.Context, tx pgx.Tx, intent *domain.PaymentIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.intents[intent.ID]
	if !ok || stored.Version != intent.Version {
		return apperror.ErrStaleAggregate("payment intent")
	}
	next := *intent
	next.Version = intent.Version + 1
	r.intents[intent.ID] = next
	intent.Version++
	return nil
}

// --- In-Memory Payment Transaction Repo ---

type inMemoryTxnRepo struct {
	mu   sync.RWMutex
	txns []domain.PaymentTransaction
}

func newInMemoryTxnRepo() *inMemoryTxnRepo {
	return &inMemoryTxnRepo{}
}

func (r *inMemoryTxnRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.PaymentTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txns = append(r.txns, *t)
	return nil
}

func (r *inMemoryTxnRepo) ListByIntentID(ctx context.Context, intentID uuid.UUID) ([]domain.PaymentTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.PaymentTransaction
	for _, t := range r.txns {
		if t.IntentID == intentID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// --- In-Memory Transactor (no-op tx) ---

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }
