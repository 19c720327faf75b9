// Package database provides ASN-to-country resolution and the PostgreSQL
// request journal.
package database

import (
	"bufio"
	"encoding/csv"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const (
	refreshInterval = 15 * time.Minute
	defaultTable    = "asn_countries"
)

// CountryResolver fills in country codes the metadata backend left empty.
type CountryResolver interface {
	// Resolve returns the country code for an ASN, or "" if unknown.
	Resolve(asn uint32) string
	// Count returns the number of ASNs in the mapping.
	Count() int
	Start()
	Stop()
}

// NullResolver knows no ASNs.
type NullResolver struct{}

// NewNullResolver creates a new null resolver.
func NewNullResolver() *NullResolver {
	return &NullResolver{}
}

func (r *NullResolver) Resolve(asn uint32) string { return "" }
func (r *NullResolver) Count() int                { return 0 }
func (r *NullResolver) Start()                    {}
func (r *NullResolver) Stop()                     {}

// FileResolver loads ASN-to-country mappings from a CSV file.
// Expected format: asn,country_code (e.g., "13335,US"), header optional.
type FileResolver struct {
	filePath string
	mapping  map[uint32]string
	mu       sync.RWMutex
}

// NewFileResolver creates a resolver that loads mappings from a CSV file.
func NewFileResolver(filePath string) (*FileResolver, error) {
	r := &FileResolver{
		filePath: filePath,
		mapping:  make(map[uint32]string),
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileResolver) load() error {
	file, err := os.Open(r.filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	reader := csv.NewReader(bufio.NewReader(file))
	reader.FieldsPerRecord = -1

	mapping := make(map[uint32]string)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if len(record) < 2 {
			continue
		}
		// Header rows and comments fail to parse and are skipped
		asn, err := strconv.ParseUint(strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(record[0])), "AS"), 10, 32)
		if err != nil {
			continue
		}
		country := strings.ToUpper(strings.TrimSpace(record[1]))
		if len(country) == 2 {
			mapping[uint32(asn)] = country
		}
	}

	r.mu.Lock()
	r.mapping = mapping
	r.mu.Unlock()

	log.Printf("FileResolver: Loaded %d ASN mappings from %s", len(mapping), r.filePath)
	return nil
}

func (r *FileResolver) Resolve(asn uint32) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mapping[asn]
}

func (r *FileResolver) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.mapping)
}

func (r *FileResolver) Start() {}
func (r *FileResolver) Stop()  {}

// DatabaseResolver loads ASN-to-country mappings from a PostgreSQL table
// with columns asn and country_code, refreshing periodically.
type DatabaseResolver struct {
	db        *sqlx.DB
	tableName string
	mapping   map[uint32]string
	mu        sync.RWMutex
	done      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
	ownsDB    bool
}

// OpenDatabaseResolver connects to databaseURL and returns a resolver that
// closes the connection on Stop. Unreachable databases fail here.
func OpenDatabaseResolver(databaseURL, tableName string) (*DatabaseResolver, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	r := NewDatabaseResolver(db, tableName)
	r.ownsDB = true
	return r, nil
}

// NewDatabaseResolver creates a resolver over tableName ("asn_countries" if empty).
func NewDatabaseResolver(db *sqlx.DB, tableName string) *DatabaseResolver {
	if tableName == "" {
		tableName = defaultTable
	}
	return &DatabaseResolver{
		db:        db,
		tableName: tableName,
		mapping:   make(map[uint32]string),
		done:      make(chan struct{}),
	}
}

// Start loads the mapping and refreshes it every 15 minutes.
func (r *DatabaseResolver) Start() {
	r.refresh()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.refresh()
			case <-r.done:
				return
			}
		}
	}()
}

// Stop stops the refresh loop. A connection opened by OpenDatabaseResolver
// is closed as well.
func (r *DatabaseResolver) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
		if r.ownsDB {
			r.db.Close()
		}
	})
	r.wg.Wait()
}

func (r *DatabaseResolver) Resolve(asn uint32) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mapping[asn]
}

func (r *DatabaseResolver) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.mapping)
}

type asnCountry struct {
	ASN         int64  `db:"asn"`
	CountryCode string `db:"country_code"`
}

func (r *DatabaseResolver) refresh() {
	start := time.Now()

	var rows []asnCountry
	query := "SELECT asn, country_code FROM " + r.tableName + " WHERE country_code IS NOT NULL AND country_code != ''"
	if err := r.db.Select(&rows, query); err != nil {
		log.Printf("DatabaseResolver: Failed to query %s: %v", r.tableName, err)
		return
	}

	mapping := make(map[uint32]string, len(rows))
	for _, row := range rows {
		mapping[uint32(row.ASN)] = strings.ToUpper(row.CountryCode)
	}

	r.mu.Lock()
	r.mapping = mapping
	r.mu.Unlock()

	log.Printf("DatabaseResolver: Loaded %d ASN mappings in %v", len(mapping), time.Since(start))
}
