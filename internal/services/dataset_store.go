package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"co2dash/internal/dataprocessing"
	"co2dash/internal/infrastructure"
	"co2dash/internal/validation"
	"co2dash/pkg/contracts/domain"
)

// Dataset is the immutable in-memory state every view is derived from
type Dataset struct {
	Table    *domain.EmissionTable
	Master   *domain.CountryMaster
	Bounds   domain.YearBounds
	LoadedAt time.Time

	codes map[string]struct{}
}

// NewDataset assembles a dataset from an already loaded table and master
func NewDataset(table *domain.EmissionTable, master *domain.CountryMaster) (*Dataset, error) {
	bounds, ok := dataprocessing.YearBounds(table.Records)
	if !ok {
		return nil, ErrEmptyDataset
	}
	codes := make(map[string]struct{}, master.Len())
	for _, code := range master.Codes() {
		codes[code] = struct{}{}
	}
	for _, r := range table.Records {
		codes[r.Code] = struct{}{}
	}
	return &Dataset{
		Table:    table,
		Master:   master,
		Bounds:   bounds,
		LoadedAt: time.Now(),
		codes:    codes,
	}, nil
}

// HasCode reports whether code appears in the master or in any record
func (d *Dataset) HasCode(code string) bool {
	_, ok := d.codes[code]
	return ok
}

// DatasetProvider hands out the loaded dataset
type DatasetProvider interface {
	Dataset(ctx context.Context) (*Dataset, error)
}

// StoreConfig locates the sources of a DatasetStore
type StoreConfig struct {
	EmissionsFile string
	GeometryFile  string
	Geometry      dataprocessing.GeometryOptions
}

// DatasetStore loads the emissions table and the optional geometry once per
// process and serves them for the rest of its lifetime. There is no refresh.
// A failed load is remembered and returned to every caller.
type DatasetStore struct {
	cfg     StoreConfig
	loader  *dataprocessing.Loader
	files   *validation.FileValidator
	logger  *slog.Logger
	metrics *infrastructure.DashboardMetrics

	once    sync.Once
	mu      sync.RWMutex
	dataset *Dataset
	err     error
}

// NewDatasetStore creates a store. Nothing is read until the first Dataset or Load call.
func NewDatasetStore(cfg StoreConfig, logger *slog.Logger, metrics *infrastructure.DashboardMetrics) *DatasetStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &DatasetStore{
		cfg:     cfg,
		loader:  dataprocessing.NewLoader(logger),
		files:   validation.NewFileValidator(logger),
		logger:  infrastructure.WithComponent(logger, "dataset_store"),
		metrics: metrics,
	}
}

// Load performs the one-time load. Later calls return the first outcome.
func (s *DatasetStore) Load(ctx context.Context) error {
	s.once.Do(func() {
		dataset, err := s.load(ctx)
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrDatasetUnavailable, err)
		}
		s.mu.Lock()
		s.dataset, s.err = dataset, err
		s.mu.Unlock()
	})

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Dataset returns the loaded dataset, loading it on first use
func (s *DatasetStore) Dataset(ctx context.Context) (*Dataset, error) {
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataset, nil
}

// Ready reports whether a dataset was loaded successfully
func (s *DatasetStore) Ready() (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataset != nil, s.err
}

func (s *DatasetStore) load(ctx context.Context) (*Dataset, error) {
	if s.cfg.EmissionsFile == "" {
		return nil, ErrDatasetNotConfigured
	}

	start := time.Now()
	var (
		table    *domain.EmissionTable
		geometry []dataprocessing.GeometryRow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := s.files.ValidateSourceFile(s.cfg.EmissionsFile, validation.EmissionsExtensions...)
		if err == nil {
			table, err = s.loader.Load(gctx, s.cfg.EmissionsFile)
		}
		if err != nil {
			return fmt.Errorf("load emissions %s: %w", s.cfg.EmissionsFile, err)
		}
		return nil
	})
	if s.cfg.GeometryFile != "" {
		g.Go(func() error {
			err := s.files.ValidateSourceFile(s.cfg.GeometryFile, validation.GeometryExtensions...)
			if err == nil {
				geometry, err = s.loader.LoadGeometry(gctx, s.cfg.GeometryFile, s.cfg.Geometry)
			}
			if err != nil {
				return fmt.Errorf("load geometry %s: %w", s.cfg.GeometryFile, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "dataset load failed", slog.String("error", err.Error()))
		return nil, err
	}

	master := dataprocessing.MasterFromRecords(table.Records)
	if s.cfg.GeometryFile != "" {
		master = dataprocessing.BuildCountryMaster(geometry)
	}

	dataset, err := NewDataset(table, master)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, s.cfg.EmissionsFile)
	}

	infrastructure.RecordDataset(ctx, s.metrics, len(table.Records), table.Dropped)
	s.logger.InfoContext(ctx, "dataset ready",
		slog.Int("records", len(table.Records)),
		slog.Int("dropped", table.Dropped),
		slog.Int("countries", master.Len()),
		slog.Bool("geometry", master.HasGeometry()),
		slog.Int("min_year", dataset.Bounds.Min),
		slog.Int("max_year", dataset.Bounds.Max),
		slog.Duration("duration", time.Since(start)))

	return dataset, nil
}
