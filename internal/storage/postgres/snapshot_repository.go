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

	"github.com/vladislavdragonenkov/cartstore/internal/domain"
)

const opTimeout = 5 * time.Second

type snapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository создаёт PostgreSQL-реализацию SnapshotRepository.
//
// total_amount и products_count пишутся для отчётов, но при чтении
// не используются: Load возвращает только список позиций, агрегаты
// пересчитывает корзина.
func NewSnapshotRepository(store *Store) domain.SnapshotRepository {
	return &snapshotRepository{db: store.DB()}
}

func (r *snapshotRepository) Load(ctx context.Context, sessionID string) (domain.CartSnapshot, error) {
	if sessionID == "" {
		return domain.CartSnapshot{}, domain.ErrSessionRequired
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var raw []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT products
		FROM cart_snapshots
		WHERE session_id = $1
	`, sessionID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CartSnapshot{}, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return domain.CartSnapshot{}, classify("load cart snapshot", err)
	}

	var products []domain.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return domain.CartSnapshot{}, fmt.Errorf("%w: %v", domain.ErrSnapshotCorrupt, err)
	}
	return domain.CartSnapshot{Products: products}, nil
}

func (r *snapshotRepository) Save(ctx context.Context, sessionID string, snapshot domain.CartSnapshot) error {
	if sessionID == "" {
		return domain.ErrSessionRequired
	}
	products := snapshot.Products
	if products == nil {
		products = []domain.Product{}
	}
	raw, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("marshal cart products: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO cart_snapshots (session_id, products, total_amount, products_count, updated_at)
		VALUES ($1, $2::jsonb, $3, $4, NOW())
		ON CONFLICT (session_id) DO UPDATE SET
			products = EXCLUDED.products,
			total_amount = EXCLUDED.total_amount,
			products_count = EXCLUDED.products_count,
			updated_at = NOW()
	`, sessionID, string(raw), snapshot.TotalAmount, snapshot.ProductsCount)
	if err != nil {
		return classify("save cart snapshot", err)
	}
	return nil
}

func (r *snapshotRepository) Delete(ctx context.Context, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_snapshots WHERE session_id = $1`, sessionID); err != nil {
		return classify("delete cart snapshot", err)
	}
	return nil
}

// classify помечает временные ошибки соединения как ErrStorageUnavailable.
func classify(op string, err error) error {
	if isTransient(err) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 08xxx - connection exception, 57P0x - operator intervention (shutdown, etc.).
		return strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57P0")
	}
	return pgconn.SafeToRetry(err)
}

var _ domain.SnapshotRepository = (*snapshotRepository)(nil)
