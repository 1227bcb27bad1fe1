// Booking-race load generator. Hammers the public slot list and the
// screening booking endpoints with concurrent workers and reports how
// many booking attempts won or lost the slot race.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solacemind/clinic-scheduling/internal/config"
	"github.com/solacemind/clinic-scheduling/internal/db"
)

type simConfig struct {
	apiBaseURL   string
	duration     time.Duration
	workers      int
	bookingRatio float64
	confirmRatio float64
	postgresDSN  string
}

type outcome int

const (
	outcomeOK outcome = iota
	outcomeConflict
	outcomeError
)

// opStats accumulates per-operation results. Everything goes through
// record under the mutex; workers are hot but the critical section is
// tiny.
type opStats struct {
	mu        sync.Mutex
	counts    [3]int
	latencies []time.Duration
}

func (s *opStats) record(d time.Duration, o outcome) {
	s.mu.Lock()
	s.counts[o]++
	s.latencies = append(s.latencies, d)
	s.mu.Unlock()
}

func (s *opStats) report(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.counts[outcomeOK] + s.counts[outcomeConflict] + s.counts[outcomeError]
	if total == 0 {
		return
	}

	sorted := make([]time.Duration, len(s.latencies))
	copy(sorted, s.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	fmt.Printf("%-18s total=%-6d ok=%d conflict=%d error=%d  p50=%s p95=%s max=%s\n",
		name, total, s.counts[outcomeOK], s.counts[outcomeConflict], s.counts[outcomeError],
		quantile(sorted, 0.50).Round(time.Millisecond),
		quantile(sorted, 0.95).Round(time.Millisecond),
		sorted[len(sorted)-1].Round(time.Millisecond))
}

func quantile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// pool holds the IDs workers draw from. Triage and slot IDs are loaded
// once from Postgres; screening IDs accumulate as bookings succeed so
// confirm and read operations have live targets.
type pool struct {
	triage []uuid.UUID
	slots  []uuid.UUID

	mu         sync.RWMutex
	screenings []uuid.UUID
}

func (p *pool) addScreening(id uuid.UUID) {
	p.mu.Lock()
	p.screenings = append(p.screenings, id)
	p.mu.Unlock()
}

func (p *pool) randomScreening(rng *rand.Rand) (uuid.UUID, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.screenings) == 0 {
		return uuid.Nil, false
	}
	return p.screenings[rng.Intn(len(p.screenings))], true
}

type simulator struct {
	cfg    simConfig
	pool   *pool
	client *http.Client

	book    opStats
	confirm opStats
	list    opStats
	read    opStats
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := loadSimConfig()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	log.Printf("simulator: duration=%s workers=%d booking=%.2f confirm=%.2f",
		cfg.duration, cfg.workers, cfg.bookingRatio, cfg.confirmRatio)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.postgresDSN, 4)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	dataPool, err := loadPool(ctx, pgPool)
	if err != nil {
		log.Fatalf("load id pool: %v", err)
	}
	log.Printf("loaded %d pending triage records, %d open slots", len(dataPool.triage), len(dataPool.slots))

	sim := &simulator{
		cfg:    cfg,
		pool:   dataPool,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	sim.run()
	sim.printReport()
}

func loadSimConfig() (simConfig, error) {
	base, err := config.Load()
	if err != nil {
		return simConfig{}, err
	}

	cfg := simConfig{
		apiBaseURL:   envStr("SIM_API_BASE_URL", "http://localhost:8080"),
		duration:     envDuration("SIM_DURATION", 30*time.Second),
		workers:      envInt("SIM_WORKERS", 10),
		bookingRatio: envFloat("SIM_BOOKING_RATIO", 0.5),
		confirmRatio: envFloat("SIM_CONFIRM_RATIO", 0.2),
		postgresDSN:  base.PostgresDSN,
	}
	if cfg.workers <= 0 {
		return simConfig{}, fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.duration <= 0 {
		return simConfig{}, fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.bookingRatio+cfg.confirmRatio > 1 {
		return simConfig{}, fmt.Errorf("booking and confirm ratios must sum to <= 1")
	}
	return cfg, nil
}

func loadPool(ctx context.Context, pg *pgxpool.Pool) (*pool, error) {
	p := &pool{}

	if err := scanIDs(ctx, pg,
		`SELECT id FROM triage_records WHERE status = 'pending' LIMIT 500`, &p.triage); err != nil {
		return nil, fmt.Errorf("load triage records: %w", err)
	}
	if err := scanIDs(ctx, pg,
		`SELECT id FROM availability_slots WHERE NOT is_booked AND start_time > now() LIMIT 2400`, &p.slots); err != nil {
		return nil, fmt.Errorf("load slots: %w", err)
	}

	if len(p.triage) == 0 || len(p.slots) == 0 {
		return nil, fmt.Errorf("nothing to book against, run cmd/seed first")
	}
	return p, nil
}

func scanIDs(ctx context.Context, pg *pgxpool.Pool, query string, dst *[]uuid.UUID) error {
	rows, err := pg.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return err
		}
		*dst = append(*dst, id)
	}
	return rows.Err()
}

func (s *simulator) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.workers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			s.worker(ctx, rand.New(rand.NewSource(time.Now().UnixNano()+seed)))
		}(int64(i))
	}
	wg.Wait()
}

func (s *simulator) worker(ctx context.Context, rng *rand.Rand) {
	for ctx.Err() == nil {
		switch r := rng.Float64(); {
		case r < s.cfg.bookingRatio:
			s.doBooking(ctx, rng)
		case r < s.cfg.bookingRatio+s.cfg.confirmRatio:
			s.doConfirm(ctx, rng)
		case rng.Intn(2) == 0:
			s.doListSlots(ctx)
		default:
			s.doReadScreening(ctx, rng)
		}
	}
}

// send performs one request and records its outcome. 2xx counts as a
// win, 409 as a lost race, anything else (including transport errors)
// as an error. The decoded body is returned only for 2xx.
func (s *simulator) send(req *http.Request, stats *opStats) []byte {
	start := time.Now()
	resp, err := s.client.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		stats.record(elapsed, outcomeError)
		return nil
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, _ := io.ReadAll(resp.Body)
		stats.record(elapsed, outcomeOK)
		return body
	case resp.StatusCode == http.StatusConflict:
		stats.record(elapsed, outcomeConflict)
	default:
		stats.record(elapsed, outcomeError)
	}
	return nil
}

func (s *simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	body, _ := json.Marshal(map[string]string{
		"triage_record_id": s.pool.triage[rng.Intn(len(s.pool.triage))].String(),
		"slot_id":          s.pool.slots[rng.Intn(len(s.pool.slots))].String(),
	})
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.apiBaseURL+"/screenings", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	respBody := s.send(req, &s.book)
	if respBody == nil {
		return
	}

	var created struct {
		ID uuid.UUID `json:"id"`
	}
	if json.Unmarshal(respBody, &created) == nil && created.ID != uuid.Nil {
		s.pool.addScreening(created.ID)
	}
}

func (s *simulator) doConfirm(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.randomScreening(rng)
	if !ok {
		return
	}

	body, _ := json.Marshal(map[string]string{
		"meeting_link": fmt.Sprintf("https://meet.example.com/%s", id),
	})
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/screenings/%s/confirm", s.cfg.apiBaseURL, id), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	s.send(req, &s.confirm)
}

func (s *simulator) doListSlots(ctx context.Context) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet,
		s.cfg.apiBaseURL+"/public/slots?limit=50", nil)
	s.send(req, &s.list)
}

func (s *simulator) doReadScreening(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.randomScreening(rng)
	if !ok {
		return
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/screenings/%s", s.cfg.apiBaseURL, id), nil)
	s.send(req, &s.read)
}

func (s *simulator) printReport() {
	fmt.Printf("\nsimulation report (%s, %d workers)\n\n", s.cfg.duration, s.cfg.workers)
	s.book.report("request booking")
	s.confirm.report("confirm")
	s.list.report("list open slots")
	s.read.report("read screening")
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
