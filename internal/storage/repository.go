package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/matthewbaird/fadem/internal/clock"
	"github.com/matthewbaird/fadem/internal/ledger"
)

const (
	// KeyPrefix starts every key the application writes.
	KeyPrefix = "fadem_"
	// DefaultModule is the module the rent ledger is stored under.
	DefaultModule = "immobilier"
)

// Envelope is the export file format.
type Envelope struct {
	Module     string          `json:"module"`
	Data       json.RawMessage `json:"data"`
	ExportDate time.Time       `json:"exportDate"`
	Version    string          `json:"version"`
}

// Backup is the snapshot written to the backup key.
type Backup struct {
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	Module    string          `json:"module"`
}

// Repository stores one module's dataset in a KV and implements
// ledger.Store.
type Repository struct {
	kv       KV
	module   string
	currency string
	clock    clock.Clock
	logger   *zap.Logger
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*Repository)

// WithCurrency sets the currency of the dataset created on first load.
func WithCurrency(c string) RepositoryOption {
	return func(r *Repository) { r.currency = c }
}

// WithClock sets the clock used to stamp exports and backups.
func WithClock(c clock.Clock) RepositoryOption {
	return func(r *Repository) { r.clock = c }
}

// WithLogger sets the repository logger.
func WithLogger(l *zap.Logger) RepositoryOption {
	return func(r *Repository) { r.logger = l }
}

func NewRepository(kv KV, module string, opts ...RepositoryOption) *Repository {
	if module == "" {
		module = DefaultModule
	}
	r := &Repository{kv: kv, module: module, clock: clock.System{}, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("storage")
	return r
}

func (r *Repository) Module() string { return r.module }

// Key is where the dataset lives.
func (r *Repository) Key() string { return KeyPrefix + r.module }

// BackupKey is where Backup writes.
func (r *Repository) BackupKey() string { return KeyPrefix + "backup_" + r.module }

// LoadDataset returns the stored dataset, or an empty one when nothing has
// been saved yet.
func (r *Repository) LoadDataset(ctx context.Context) (*ledger.Dataset, error) {
	raw, err := r.kv.Load(ctx, r.Key())
	if errors.Is(err, ErrMiss) {
		r.logger.Info("no stored dataset, starting empty", zap.String("key", r.Key()))
		return ledger.NewDataset(r.currency), nil
	}
	if err != nil {
		return nil, err
	}
	var d ledger.Dataset
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", r.Key(), err)
	}
	return &d, nil
}

func (r *Repository) SaveDataset(ctx context.Context, d *ledger.Dataset) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding dataset: %w", err)
	}
	return r.kv.Save(ctx, r.Key(), raw)
}

// Export returns the stored dataset wrapped in an Envelope, as indented JSON.
func (r *Repository) Export(ctx context.Context) ([]byte, error) {
	d, err := r.LoadDataset(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encoding dataset: %w", err)
	}
	return json.MarshalIndent(Envelope{
		Module:     r.module,
		Data:       data,
		ExportDate: r.clock.Now().UTC(),
		Version:    ledger.DatasetVersion,
	}, "", "  ")
}

// Import decodes and checks an export file. It does not store anything:
// the caller hands the dataset to ledger.Engine.Replace, which validates
// referential integrity and persists it.
func (r *Repository) Import(raw []byte) (*ledger.Dataset, error) {
	if err := ValidateEnvelope(raw); err != nil {
		return nil, err
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &ledger.ValidationError{Field: "file", Reason: err.Error()}
	}
	if env.Module != r.module {
		return nil, &ledger.ValidationError{
			Field:  "module",
			Reason: fmt.Sprintf("file belongs to module %q, expected %q", env.Module, r.module),
		}
	}
	var d ledger.Dataset
	if err := json.Unmarshal(env.Data, &d); err != nil {
		return nil, &ledger.ValidationError{Field: "data", Reason: err.Error()}
	}
	return &d, nil
}

// Backup copies the stored dataset to the backup key.
func (r *Repository) Backup(ctx context.Context) (Backup, error) {
	d, err := r.LoadDataset(ctx)
	if err != nil {
		return Backup{}, err
	}
	data, err := json.Marshal(d)
	if err != nil {
		return Backup{}, fmt.Errorf("encoding dataset: %w", err)
	}
	b := Backup{Data: data, Timestamp: r.clock.Now().UTC(), Module: r.module}
	raw, err := json.Marshal(b)
	if err != nil {
		return Backup{}, fmt.Errorf("encoding backup: %w", err)
	}
	if err := r.kv.Save(ctx, r.BackupKey(), raw); err != nil {
		return Backup{}, err
	}
	r.logger.Info("backup written", zap.String("key", r.BackupKey()), zap.Int("bytes", len(raw)))
	return b, nil
}

// LatestBackup reads the backup without restoring it.
func (r *Repository) LatestBackup(ctx context.Context) (Backup, error) {
	raw, err := r.kv.Load(ctx, r.BackupKey())
	if err != nil {
		return Backup{}, err
	}
	var b Backup
	if err := json.Unmarshal(raw, &b); err != nil {
		return Backup{}, fmt.Errorf("decoding backup: %w", err)
	}
	return b, nil
}

// RestoreBackup decodes the backup for ledger.Engine.Replace. It returns
// ErrMiss when no backup exists.
func (r *Repository) RestoreBackup(ctx context.Context) (*ledger.Dataset, error) {
	b, err := r.LatestBackup(ctx)
	if err != nil {
		return nil, err
	}
	var d ledger.Dataset
	if err := json.Unmarshal(b.Data, &d); err != nil {
		return nil, fmt.Errorf("decoding backup data: %w", err)
	}
	return &d, nil
}

// Reset deletes every application key, across all modules, backups
// included. It returns the deleted keys.
func (r *Repository) Reset(ctx context.Context) ([]string, error) {
	keys, err := r.kv.Keys(ctx, KeyPrefix)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		if err := r.kv.Delete(ctx, k); err != nil {
			return nil, err
		}
	}
	r.logger.Warn("all application data deleted", zap.Strings("keys", keys))
	return keys, nil
}

// RunBackups writes a backup every interval until ctx is done.
func (r *Repository) RunBackups(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Backup(ctx); err != nil {
				r.logger.Error("scheduled backup failed", zap.Error(err))
			}
		}
	}
}

var _ ledger.Store = (*Repository)(nil)
