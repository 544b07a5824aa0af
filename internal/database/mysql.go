package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Abhay-hack/Asset-Pulse/pkg/config"
	"github.com/Abhay-hack/Asset-Pulse/pkg/models"
	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNotFound is returned when a referenced asset id does not exist.
	ErrNotFound = errors.New("asset not found")
	// ErrConflict is returned when inserting a symbol that already exists.
	ErrConflict = errors.New("symbol already exists")
)

const mysqlDuplicateEntry = 1062

// MySQLClient handles MySQL database operations for asset records
type MySQLClient struct {
	db     *sql.DB
	logger *logrus.Entry
	cfg    *config.MySQLConfig
}

// NewMySQLClient creates a new MySQL client
func NewMySQLClient(cfg *config.MySQLConfig, logger *logrus.Logger) (*MySQLClient, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
	)

	logger.WithField("dsn", fmt.Sprintf("%s:***@tcp(%s:%d)/%s", cfg.User, cfg.Host, cfg.Port, cfg.Database)).Debug("Connecting to MySQL")

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	return &MySQLClient{
		db:     db,
		logger: logger.WithField("component", "mysql"),
		cfg:    cfg,
	}, nil
}

// NewMySQLClientFromDB wraps an existing connection, used by tests.
func NewMySQLClientFromDB(db *sql.DB, logger *logrus.Logger) *MySQLClient {
	return &MySQLClient{
		db:     db,
		logger: logger.WithField("component", "mysql"),
	}
}

// Close closes the database connection
func (mc *MySQLClient) Close() error {
	return mc.db.Close()
}

// Health checks database health
func (mc *MySQLClient) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return mc.db.PingContext(ctx)
}

const assetColumns = "id, name, symbol, price, is_favorite, created_at"

// ListAssets retrieves all assets, newest first
func (mc *MySQLClient) ListAssets(ctx context.Context) ([]*models.Asset, error) {
	query := fmt.Sprintf("SELECT %s FROM assets ORDER BY id DESC", assetColumns)
	return mc.queryAssets(ctx, query)
}

// ListFavorites retrieves favorite assets, newest first
func (mc *MySQLClient) ListFavorites(ctx context.Context) ([]*models.Asset, error) {
	query := fmt.Sprintf("SELECT %s FROM assets WHERE is_favorite = 1 ORDER BY id DESC", assetColumns)
	return mc.queryAssets(ctx, query)
}

func (mc *MySQLClient) queryAssets(ctx context.Context, query string, args ...interface{}) ([]*models.Asset, error) {
	var rows *sql.Rows
	err := mc.withRetry(ctx, func() error {
		var qerr error
		rows, qerr = mc.db.QueryContext(ctx, query, args...)
		return qerr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var assets []*models.Asset
	for rows.Next() {
		asset := &models.Asset{}
		if err := rows.Scan(
			&asset.ID,
			&asset.Name,
			&asset.Symbol,
			&asset.Price,
			&asset.IsFavorite,
			&asset.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, asset)
	}

	return assets, rows.Err()
}

// GetAsset retrieves a single asset by id
func (mc *MySQLClient) GetAsset(ctx context.Context, id int64) (*models.Asset, error) {
	query := fmt.Sprintf("SELECT %s FROM assets WHERE id = ?", assetColumns)

	asset := &models.Asset{}
	err := mc.db.QueryRowContext(ctx, query, id).Scan(
		&asset.ID,
		&asset.Name,
		&asset.Symbol,
		&asset.Price,
		&asset.IsFavorite,
		&asset.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}

	return asset, nil
}

// InsertAsset inserts a new asset and returns the stored row.
// Symbols are stored uppercase; duplicates yield ErrConflict.
func (mc *MySQLClient) InsertAsset(ctx context.Context, name, symbol string, price float64, isFavorite bool) (*models.Asset, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	query := "INSERT INTO assets (name, symbol, price, is_favorite) VALUES (?, ?, ?, ?)"

	var result sql.Result
	err := mc.withRetry(ctx, func() error {
		var xerr error
		result, xerr = mc.db.ExecContext(ctx, query, name, symbol, price, isFavorite)
		return xerr
	})
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to insert asset: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read inserted id: %w", err)
	}

	return mc.GetAsset(ctx, id)
}

// UpdatePrice persists the latest price for an asset
func (mc *MySQLClient) UpdatePrice(ctx context.Context, id int64, price float64) error {
	query := "UPDATE assets SET price = ? WHERE id = ?"

	err := mc.withRetry(ctx, func() error {
		_, xerr := mc.db.ExecContext(ctx, query, price, id)
		return xerr
	})
	if err != nil {
		return fmt.Errorf("failed to update price: %w", err)
	}

	return nil
}

// UpdatePriceBySymbol persists the latest price for a symbol
func (mc *MySQLClient) UpdatePriceBySymbol(ctx context.Context, symbol string, price float64) error {
	query := "UPDATE assets SET price = ? WHERE symbol = ?"

	err := mc.withRetry(ctx, func() error {
		_, xerr := mc.db.ExecContext(ctx, query, price, strings.ToUpper(symbol))
		return xerr
	})
	if err != nil {
		return fmt.Errorf("failed to update price for %s: %w", symbol, err)
	}

	return nil
}

// ToggleFavorite flips the favorite flag and returns the updated asset
func (mc *MySQLClient) ToggleFavorite(ctx context.Context, id int64) (*models.Asset, error) {
	asset, err := mc.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}

	query := "UPDATE assets SET is_favorite = ? WHERE id = ?"
	if _, err := mc.db.ExecContext(ctx, query, !asset.IsFavorite, id); err != nil {
		return nil, fmt.Errorf("failed to toggle favorite: %w", err)
	}

	return mc.GetAsset(ctx, id)
}

// withRetry runs fn, retrying once when the driver reports a transient
// connection problem (stale pooled connection, reset by peer).
func (mc *MySQLClient) withRetry(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil || !isTransient(err) {
		return err
	}

	mc.logger.WithError(err).Warn("Transient database error, retrying")

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(100 * time.Millisecond):
	}

	return fn()
}

func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "invalid connection") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe")
}
