package database

import (
	"database/sql"
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hervehildenbrand/looking-glass/pkg/models"
	_ "github.com/lib/pq"
)

const (
	batchSize     = 50
	batchInterval = 2 * time.Second
	queueSize     = 10000
)

// journalSchema is created on start if missing.
const journalSchema = `
CREATE TABLE IF NOT EXISTS lg_requests (
	id            BIGSERIAL PRIMARY KEY,
	session_id    UUID        NOT NULL,
	operation     TEXT        NOT NULL,
	dataset_path  TEXT        NOT NULL,
	page_number   INTEGER     NOT NULL,
	filters       JSONB       NOT NULL,
	records       INTEGER     NOT NULL,
	dataset_sum   INTEGER     NOT NULL,
	duration_ms   BIGINT      NOT NULL,
	error         TEXT        NOT NULL,
	requested_at  TIMESTAMPTZ NOT NULL
)`

// Journal batch-writes one row per backend request to PostgreSQL.
type Journal struct {
	db      *sql.DB
	queue   chan models.FetchRecord
	done    chan struct{}
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex

	// Stats
	written uint64
	dropped uint64
	batches uint64
}

// NewJournal connects to PostgreSQL and prepares the journal table.
func NewJournal(databaseURL string) (*Journal, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(journalSchema); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("Connected to PostgreSQL request journal")

	return &Journal{
		db:    db,
		queue: make(chan models.FetchRecord, queueSize),
		done:  make(chan struct{}),
	}, nil
}

// Start begins the background writer goroutine.
func (j *Journal) Start() {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return
	}
	j.running = true
	j.mu.Unlock()

	j.wg.Add(1)
	go j.writerLoop()
	log.Printf("Request journal started")
}

// Stop flushes queued records and closes the database.
func (j *Journal) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	j.running = false
	j.mu.Unlock()

	close(j.done)
	j.wg.Wait()
	j.db.Close()
	log.Printf("Request journal stopped (written=%d, dropped=%d, batches=%d)",
		atomic.LoadUint64(&j.written), atomic.LoadUint64(&j.dropped), atomic.LoadUint64(&j.batches))
}

// Record queues rec for writing. It never blocks; records are dropped when
// the queue is full.
func (j *Journal) Record(rec models.FetchRecord) {
	select {
	case j.queue <- rec:
	default:
		if n := atomic.AddUint64(&j.dropped, 1); n%1000 == 0 {
			log.Printf("Journal queue full, dropped %d records", n)
		}
	}
}

// Stats returns journal statistics.
func (j *Journal) Stats() map[string]interface{} {
	return map[string]interface{}{
		"records_written": atomic.LoadUint64(&j.written),
		"records_dropped": atomic.LoadUint64(&j.dropped),
		"batches_written": atomic.LoadUint64(&j.batches),
		"queue_len":       len(j.queue),
		"queue_cap":       cap(j.queue),
	}
}

func (j *Journal) writerLoop() {
	defer j.wg.Done()

	batch := make([]models.FetchRecord, 0, batchSize)
	ticker := time.NewTicker(batchInterval)
	defer ticker.Stop()

	for {
		select {
		case rec := <-j.queue:
			batch = append(batch, rec)
			if len(batch) >= batchSize {
				j.writeBatch(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				j.writeBatch(batch)
				batch = batch[:0]
			}

		case <-j.done:
			// Drain without closing the queue; Record may still be called
			for {
				select {
				case rec := <-j.queue:
					batch = append(batch, rec)
				default:
					if len(batch) > 0 {
						j.writeBatch(batch)
					}
					return
				}
			}
		}
	}
}

const insertJournal = `
	INSERT INTO lg_requests (
		session_id, operation, dataset_path, page_number, filters,
		records, dataset_sum, duration_ms, error, requested_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// execer is the part of *sql.Tx used to insert a batch.
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func (j *Journal) writeBatch(batch []models.FetchRecord) {
	if len(batch) == 0 {
		return
	}

	tx, err := j.db.Begin()
	if err != nil {
		log.Printf("Failed to begin transaction: %v", err)
		return
	}
	defer tx.Rollback()

	written, err := insertBatch(tx, batch)
	if err != nil {
		log.Printf("Failed to write journal batch: %v", err)
		return
	}

	if err := tx.Commit(); err != nil {
		log.Printf("Failed to commit batch: %v", err)
		return
	}

	atomic.AddUint64(&j.written, uint64(written))
	atomic.AddUint64(&j.batches, 1)
}

// insertBatch inserts each record under its own savepoint so a failing row
// does not abort the transaction for the rest of the batch.
func insertBatch(tx execer, batch []models.FetchRecord) (int, error) {
	written := 0
	for _, rec := range batch {
		if _, err := tx.Exec("SAVEPOINT journal_row"); err != nil {
			return written, err
		}
		if _, err := tx.Exec(insertJournal, journalArgs(rec)...); err != nil {
			log.Printf("Failed to insert journal record: %v", err)
			if _, err := tx.Exec("ROLLBACK TO SAVEPOINT journal_row"); err != nil {
				return written, err
			}
			continue
		}
		if _, err := tx.Exec("RELEASE SAVEPOINT journal_row"); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// journalArgs maps a record to the insert parameters.
func journalArgs(rec models.FetchRecord) []interface{} {
	filters := rec.Filters
	if filters == nil {
		filters = []models.Filter{}
	}
	filtersJSON, err := json.Marshal(filters)
	if err != nil {
		filtersJSON = []byte("[]")
	}

	return []interface{}{
		rec.Session.String(),
		rec.Operation,
		rec.Path,
		rec.PageNumber,
		string(filtersJSON),
		rec.Records,
		rec.DatasetSum,
		rec.DurationMS,
		rec.Error,
		rec.RequestedAt,
	}
}
