// Package sqlite provides SQLite database writing for deconvolution and
// similarity results
package sqlite

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/ChrisMcGann/IsoDecon/pkg/deconv"
	"github.com/ChrisMcGann/IsoDecon/pkg/similarity"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const (
	// Date format for HeaderTable (ISO 8601)
	headerDateFormat = "2006-01-02"
	// Timestamps of runs
	runTimeFormat = time.RFC3339

	schemaVersion = 1
)

// SimilarityRecord is one library comparison.
type SimilarityRecord struct {
	Name     string
	Sequence string
	Charge   int
	Score    float64
	// Comparable is false when the score is undefined; Score is then stored as NULL.
	Comparable bool
	Pairs      []similarity.IntensityPair
}

// Writer handles writing results to SQLite database files. It is not safe
// for concurrent use.
type Writer struct {
	db           *sql.DB
	outputPath   string
	envelopeStmt *sql.Stmt
	scoreStmt    *sql.Stmt
	runs         map[string]int // run id -> rows written
	closed       bool
}

// NewWriter creates a new SQLite writer
func NewWriter(outputPath string) (*Writer, error) {
	db, err := sql.Open("sqlite3", outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	w := &Writer{
		db:         db,
		outputPath: outputPath,
		runs:       make(map[string]int),
	}

	if err := w.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	if err := w.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	return w, nil
}

// createTables creates the required database schema
func (w *Writer) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS RunTable (
		RunId TEXT PRIMARY KEY,
		Kind TEXT NOT NULL,
		Parameters TEXT,
		StartedAt TEXT,
		FinishedAt TEXT,
		RowCount INTEGER
	);

	CREATE TABLE IF NOT EXISTS EnvelopeTable (
		RowId INTEGER PRIMARY KEY AUTOINCREMENT,
		RunId TEXT REFERENCES RunTable(RunId),
		EnvelopeId INTEGER,
		Charge INTEGER,
		MonoisotopicMass DOUBLE,
		MostAbundantMz DOUBLE,
		TotalIntensity DOUBLE,
		Score DOUBLE,
		PeakCount INTEGER,
		blobMass BLOB,
		blobIntensity BLOB
	);

	CREATE TABLE IF NOT EXISTS SimilarityTable (
		RowId INTEGER PRIMARY KEY AUTOINCREMENT,
		RunId TEXT REFERENCES RunTable(RunId),
		Name TEXT,
		Sequence TEXT,
		Charge INTEGER,
		Score DOUBLE,
		PairCount INTEGER,
		blobExperimental BLOB,
		blobTheoretical BLOB
	);

	CREATE TABLE IF NOT EXISTS HeaderTable (
		version INTEGER NOT NULL DEFAULT 0,
		CreationDate TEXT,
		LastModifiedDate TEXT,
		Description TEXT
	);
	`

	if _, err := w.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// prepareStatements prepares SQL statements for batch insertion
func (w *Writer) prepareStatements() error {
	var err error

	w.envelopeStmt, err = w.db.Prepare(`
		INSERT INTO EnvelopeTable (
			RunId, EnvelopeId, Charge, MonoisotopicMass, MostAbundantMz,
			TotalIntensity, Score, PeakCount, blobMass, blobIntensity
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare envelope statement: %w", err)
	}

	w.scoreStmt, err = w.db.Prepare(`
		INSERT INTO SimilarityTable (
			RunId, Name, Sequence, Charge, Score, PairCount,
			blobExperimental, blobTheoretical
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare similarity statement: %w", err)
	}

	return nil
}

// BeginRun records a new run with its parameters stored as JSON and returns
// the run id.
func (w *Writer) BeginRun(kind string, params any) (string, error) {
	encoded, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to encode run parameters: %w", err)
	}
	runID := uuid.NewString()
	_, err = w.db.Exec(`INSERT INTO RunTable (RunId, Kind, Parameters, StartedAt, RowCount) VALUES (?, ?, ?, ?, 0)`,
		runID, kind, string(encoded), time.Now().UTC().Format(runTimeFormat))
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	w.runs[runID] = 0
	return runID, nil
}

// WriteEnvelopes writes the envelopes of one run in a single transaction
func (w *Writer) WriteEnvelopes(runID string, envelopes []deconv.IsotopicEnvelope) error {
	if _, ok := w.runs[runID]; !ok {
		return fmt.Errorf("unknown run %q", runID)
	}
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	stmt := tx.Stmt(w.envelopeStmt)
	for _, e := range envelopes {
		peaks := e.Peaks()
		mz := make([]float64, len(peaks))
		intensity := make([]float64, len(peaks))
		for i, p := range peaks {
			mz[i], intensity[i] = p.Mz, p.Intensity
		}
		_, err := stmt.Exec(
			runID,                // RunId
			e.ID(),               // EnvelopeId
			e.Charge(),           // Charge
			e.MonoisotopicMass(), // MonoisotopicMass
			e.MostAbundantMz(),   // MostAbundantMz
			e.TotalIntensity(),   // TotalIntensity
			e.Score(),            // Score
			len(peaks),           // PeakCount
			encodeFloat64(mz),    // blobMass
			encodeFloat64(intensity),
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert envelope %d: %w", e.ID(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit envelopes: %w", err)
	}
	w.runs[runID] += len(envelopes)
	return nil
}

// WriteSimilarity writes one comparison result
func (w *Writer) WriteSimilarity(runID string, rec SimilarityRecord) error {
	if _, ok := w.runs[runID]; !ok {
		return fmt.Errorf("unknown run %q", runID)
	}
	var score any
	if rec.Comparable {
		score = rec.Score
	}
	exp := make([]float64, len(rec.Pairs))
	theo := make([]float64, len(rec.Pairs))
	for i, p := range rec.Pairs {
		exp[i], theo[i] = p.Experimental, p.Theoretical
	}
	_, err := w.scoreStmt.Exec(runID, rec.Name, rec.Sequence, rec.Charge, score, len(rec.Pairs),
		encodeFloat64(exp), encodeFloat64(theo))
	if err != nil {
		return fmt.Errorf("failed to insert similarity for %s: %w", rec.Name, err)
	}
	w.runs[runID]++
	return nil
}

// encodeFloat64 encodes values as a little-endian float64 blob
func encodeFloat64(values []float64) []byte {
	buf := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// DecodeFloat64 reverses the blob encoding used for peak arrays.
func DecodeFloat64(blob []byte) ([]float64, error) {
	if len(blob)%8 != 0 {
		return nil, fmt.Errorf("blob length %d is not a multiple of 8", len(blob))
	}
	values := make([]float64, len(blob)/8)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return values, nil
}

// Finalize closes open runs, writes the header table and closes the database
func (w *Writer) Finalize() error {
	if w.closed {
		return nil
	}
	w.closed = true

	now := time.Now()
	for runID, rows := range w.runs {
		_, err := w.db.Exec(`UPDATE RunTable SET FinishedAt = ?, RowCount = ? WHERE RunId = ?`,
			now.UTC().Format(runTimeFormat), rows, runID)
		if err != nil {
			return fmt.Errorf("failed to finish run %s: %w", runID, err)
		}
	}

	_, err := w.db.Exec(`
		INSERT INTO HeaderTable (version, CreationDate, LastModifiedDate, Description)
		VALUES (?, ?, ?, ?)
	`, schemaVersion, now.Format(headerDateFormat), now.Format(headerDateFormat), "isodecon results")
	if err != nil {
		return fmt.Errorf("failed to insert header: %w", err)
	}

	return w.closeDB()
}

// Abort closes the database without finishing runs or writing the header
// table. It is a no-op after Finalize, so it can be deferred on error paths.
func (w *Writer) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.closeDB()
}

func (w *Writer) closeDB() error {
	// Close prepared statements
	if w.envelopeStmt != nil {
		w.envelopeStmt.Close()
	}
	if w.scoreStmt != nil {
		w.scoreStmt.Close()
	}

	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

// Close closes the database connection (alias for Finalize)
func (w *Writer) Close() error {
	return w.Finalize()
}
