// Package store persists fitted kinetic parameters and their curves in SQLite
// or PostgreSQL. Curve arrays are stored as MessagePack blobs.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/chrissnell/curekinetics/internal/kinetics"
	"github.com/chrissnell/curekinetics/internal/pipeline"
	"github.com/chrissnell/curekinetics/internal/types"
	"github.com/chrissnell/curekinetics/pkg/migrate"
)

//go:embed migrations
var migrations embed.FS

// ErrNotFound is returned when a fit ID does not exist
var ErrNotFound = errors.New("fit not found")

// Curve kinds
const (
	KindExperimental = "experimental"
	KindSimulated    = "simulated"
)

// FitRecord is one persisted pipeline result
type FitRecord struct {
	ID            uuid.UUID                 `json:"id"`
	CreatedAt     time.Time                 `json:"created_at"`
	Method        string                    `json:"method"`
	Params        types.KineticParameters   `json:"params"`
	RSquared      float64                   `json:"r_squared"`
	ResidualRatio float64                   `json:"residual_ratio"`
	Iterations    int                       `json:"iterations"`
	Observations  int                       `json:"observations"`
	Arrhenius     []kinetics.ArrheniusPoint `json:"arrhenius,omitempty"`
}

// CurveRecord is the experimental or simulated curve of one run
type CurveRecord struct {
	FitID        uuid.UUID `json:"fit_id"`
	RunName      string    `json:"run_name"`
	Kind         string    `json:"kind"`
	TemperatureK float64   `json:"temperature_k"`
	Time         []float64 `json:"time"`
	Alpha        []float64 `json:"alpha"`
	Rate         []float64 `json:"rate"`
	MaxAbsError  float64   `json:"max_abs_error"`
	RMSError     float64   `json:"rms_error"`
}

// Store is a database of fit results
type Store struct {
	db     *sql.DB
	driver string
	logger *zap.SugaredLogger
	now    func() time.Time
}

// Open connects to the database and applies any pending migrations. driver
// is "sqlite" or "postgres".
func Open(ctx context.Context, driver, dsn string, logger *zap.SugaredLogger) (*Store, error) {
	switch driver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("%w: unsupported storage driver %q", types.ErrConfiguration, driver)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if driver == "sqlite" {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}

	if err := migrate.NewMigrator(db, MigrationProvider(driver), logger).MigrateUp(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate %s database: %w", driver, err)
	}

	logger.Debugf("opened %s store", driver)
	return &Store{db: db, driver: driver, logger: logger, now: time.Now}, nil
}

// MigrationProvider returns the embedded schema migrations for driver
func MigrationProvider(driver string) *migrate.FSProvider {
	return migrate.NewFSProvider(migrations, "migrations/"+driver, "", driver)
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders as $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SaveResult stores the parameters, diagnostics and every run's experimental
// and simulated curves of a pipeline result in one transaction.
func (s *Store) SaveResult(ctx context.Context, res *pipeline.Result) (FitRecord, error) {
	rec := FitRecord{
		ID:            uuid.New(),
		CreatedAt:     s.now().UTC().Truncate(time.Millisecond),
		Method:        string(res.Autocatalytic.Method),
		Params:        res.Params,
		RSquared:      res.Arrhenius.RSquared,
		ResidualRatio: res.Autocatalytic.ResidualRatio,
		Iterations:    res.Autocatalytic.Iterations,
		Observations:  res.Autocatalytic.Observations,
		Arrhenius:     res.Arrhenius.Points,
	}

	arrhenius, err := msgpack.Marshal(rec.Arrhenius)
	if err != nil {
		return FitRecord{}, fmt.Errorf("failed to encode Arrhenius points: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return FitRecord{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO fits (id, created_at, method, a1, e1, a2, e2, m, n,
			r_squared, residual_ratio, iterations, observations, arrhenius)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		rec.ID.String(), rec.CreatedAt.UnixMilli(), rec.Method,
		rec.Params.A1, rec.Params.E1, rec.Params.A2, rec.Params.E2, rec.Params.M, rec.Params.N,
		rec.RSquared, rec.ResidualRatio, rec.Iterations, rec.Observations, arrhenius)
	if err != nil {
		return FitRecord{}, fmt.Errorf("failed to insert fit: %w", err)
	}

	for _, run := range res.Runs {
		curves := []CurveRecord{
			{
				RunName:      run.Name,
				Kind:         KindExperimental,
				TemperatureK: run.TemperatureK,
				Time:         run.Conversion.Time,
				Alpha:        run.Conversion.Alpha,
				Rate:         run.Rate.Rate,
			},
			{
				RunName:      run.Name,
				Kind:         KindSimulated,
				TemperatureK: run.TemperatureK,
				Time:         run.Simulation.Time,
				Alpha:        run.Simulation.Alpha,
				Rate:         run.Simulation.Rate,
				MaxAbsError:  run.Comparison.MaxAbsError,
				RMSError:     run.Comparison.RMSError,
			},
		}
		for _, c := range curves {
			if err := s.insertCurve(ctx, tx, rec.ID, c); err != nil {
				return FitRecord{}, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return FitRecord{}, fmt.Errorf("failed to commit fit: %w", err)
	}

	s.logger.Infow("saved fit", "id", rec.ID, "runs", len(res.Runs))
	return rec, nil
}

func (s *Store) insertCurve(ctx context.Context, tx *sql.Tx, id uuid.UUID, c CurveRecord) error {
	blobs := make([][]byte, 3)
	for i, series := range [][]float64{c.Time, c.Alpha, c.Rate} {
		b, err := msgpack.Marshal(series)
		if err != nil {
			return fmt.Errorf("failed to encode %s curve of %s: %w", c.Kind, c.RunName, err)
		}
		blobs[i] = b
	}

	_, err := tx.ExecContext(ctx, s.rebind(`
		INSERT INTO curves (fit_id, run_name, kind, temperature_k, times, alpha, rate, max_abs_error, rms_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		id.String(), c.RunName, c.Kind, c.TemperatureK, blobs[0], blobs[1], blobs[2], c.MaxAbsError, c.RMSError)
	if err != nil {
		return fmt.Errorf("failed to insert %s curve of %s: %w", c.Kind, c.RunName, err)
	}
	return nil
}

const fitColumns = `id, created_at, method, a1, e1, a2, e2, m, n,
	r_squared, residual_ratio, iterations, observations, arrhenius`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanFit(row scanner) (FitRecord, error) {
	var (
		rec       FitRecord
		id        string
		createdAt int64
		arrhenius []byte
	)
	err := row.Scan(&id, &createdAt, &rec.Method,
		&rec.Params.A1, &rec.Params.E1, &rec.Params.A2, &rec.Params.E2, &rec.Params.M, &rec.Params.N,
		&rec.RSquared, &rec.ResidualRatio, &rec.Iterations, &rec.Observations, &arrhenius)
	if err != nil {
		return FitRecord{}, err
	}

	if rec.ID, err = uuid.Parse(id); err != nil {
		return FitRecord{}, fmt.Errorf("invalid fit id %q: %w", id, err)
	}
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	if len(arrhenius) > 0 {
		if err := msgpack.Unmarshal(arrhenius, &rec.Arrhenius); err != nil {
			return FitRecord{}, fmt.Errorf("failed to decode Arrhenius points of %s: %w", id, err)
		}
	}
	return rec, nil
}

// ListFits returns every stored fit, newest first
func (s *Store) ListFits(ctx context.Context) ([]FitRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+fitColumns+` FROM fits ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query fits: %w", err)
	}
	defer rows.Close()

	var fits []FitRecord
	for rows.Next() {
		rec, err := scanFit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fit: %w", err)
		}
		fits = append(fits, rec)
	}
	return fits, rows.Err()
}

// GetFit returns one fit or ErrNotFound
func (s *Store) GetFit(ctx context.Context, id uuid.UUID) (FitRecord, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+fitColumns+` FROM fits WHERE id = ?`), id.String())
	rec, err := scanFit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return FitRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return FitRecord{}, fmt.Errorf("failed to query fit %s: %w", id, err)
	}
	return rec, nil
}

// Curves returns the curves of a fit ordered by temperature. An empty kind
// returns both kinds.
func (s *Store) Curves(ctx context.Context, id uuid.UUID, kind string) ([]CurveRecord, error) {
	if _, err := s.GetFit(ctx, id); err != nil {
		return nil, err
	}

	query := `SELECT run_name, kind, temperature_k, times, alpha, rate, max_abs_error, rms_error
		FROM curves WHERE fit_id = ?`
	args := []interface{}{id.String()}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY temperature_k, kind`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query curves of %s: %w", id, err)
	}
	defer rows.Close()

	var curves []CurveRecord
	for rows.Next() {
		c := CurveRecord{FitID: id}
		var times, alpha, rate []byte
		if err := rows.Scan(&c.RunName, &c.Kind, &c.TemperatureK, &times, &alpha, &rate, &c.MaxAbsError, &c.RMSError); err != nil {
			return nil, fmt.Errorf("failed to scan curve: %w", err)
		}
		for _, d := range []struct {
			blob []byte
			dst  *[]float64
		}{{times, &c.Time}, {alpha, &c.Alpha}, {rate, &c.Rate}} {
			if err := msgpack.Unmarshal(d.blob, d.dst); err != nil {
				return nil, fmt.Errorf("failed to decode %s curve of %s: %w", c.Kind, c.RunName, err)
			}
		}
		curves = append(curves, c)
	}
	return curves, rows.Err()
}

// DeleteFit removes a fit and its curves
func (s *Store) DeleteFit(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM curves WHERE fit_id = ?`), id.String()); err != nil {
		return fmt.Errorf("failed to delete curves of %s: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM fits WHERE id = ?`), id.String())
	if err != nil {
		return fmt.Errorf("failed to delete fit %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return tx.Commit()
}
