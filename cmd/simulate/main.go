package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/hackgods/registry-scheduling/internal/db"
	"github.com/hackgods/registry-scheduling/internal/domain"
	"github.com/hackgods/registry-scheduling/internal/logging"
)

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	BookingRatio float64
	CancelRatio  float64
	ReadRatio    float64
	ContactLimit int
	PostgresDSN  string
}

type booking struct {
	profileID     string
	appointmentID string
}

// DataPool holds the phones and slugs read from Postgres plus whatever the
// run discovers: profiles behind those phones and appointments it booked.
type DataPool struct {
	Phones []string
	Slugs  []string

	mu       sync.RWMutex
	profiles []string
	bookings []booking
}

func (dp *DataPool) AddProfiles(ids []string) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	seen := make(map[string]struct{}, len(dp.profiles))
	for _, id := range dp.profiles {
		seen[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			dp.profiles = append(dp.profiles, id)
			seen[id] = struct{}{}
		}
	}
}

func (dp *DataPool) RandomProfile(faker *gofakeit.Faker) (string, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.profiles) == 0 {
		return "", false
	}
	return dp.profiles[faker.IntN(len(dp.profiles))], true
}

func (dp *DataPool) AddBooking(b booking) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.bookings = append(dp.bookings, b)
}

// TakeBooking removes and returns a random booking so two workers never
// cancel the same appointment.
func (dp *DataPool) TakeBooking(faker *gofakeit.Faker) (booking, bool) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	if len(dp.bookings) == 0 {
		return booking{}, false
	}
	idx := faker.IntN(len(dp.bookings))
	b := dp.bookings[idx]
	dp.bookings[idx] = dp.bookings[len(dp.bookings)-1]
	dp.bookings = dp.bookings[:len(dp.bookings)-1]
	return b, true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	om.mu.Unlock()

	if len(latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[percentileIndex(len(latencies), 50)]
	p95 = latencies[percentileIndex(len(latencies), 95)]
	return avg, min, max, p50, p95
}

func percentileIndex(n, p int) int {
	idx := n * p / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type Metrics struct {
	Resolve      OperationMetrics
	Slots        OperationMetrics
	Booking      OperationMetrics
	Cancel       OperationMetrics
	Appointments OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	logger  zerolog.Logger
	metrics Metrics
}

func main() {
	_ = godotenv.Load()

	logger := logging.New("simulate", getEnv("APP_ENV", "dev"), getEnv("LOG_LEVEL", "info"))
	logger.Info().Msg("simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	logger.Info().
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Float64("booking", cfg.BookingRatio).
		Float64("cancel", cfg.CancelRatio).
		Float64("read", cfg.ReadRatio).
		Msg("config")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("load data pool")
	}

	logger.Info().Int("phones", len(dataPool.Phones)).Int("slugs", len(dataPool.Slugs)).Msg("data pool loaded")

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{Timeout: 20 * time.Second},
		logger: logger,
	}

	sim.Run()
	sim.PrintReport()
}

func loadConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		BookingRatio: getFloat("SIM_BOOKING_RATIO", 0.3),
		CancelRatio:  getFloat("SIM_CANCEL_RATIO", 0.1),
		ReadRatio:    getFloat("SIM_READ_RATIO", 0.6),
		ContactLimit: getInt("SIM_CONTACT_LIMIT", 500),
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
	}

	total := cfg.BookingRatio + cfg.CancelRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.CancelRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	return nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dataPool := &DataPool{}

	rows, err := pool.Query(ctx, `
		SELECT phone FROM contacts WHERE phone <> '' LIMIT $1
	`, cfg.ContactLimit)
	if err != nil {
		return nil, fmt.Errorf("load contacts: %w", err)
	}
	for rows.Next() {
		var phone string
		if err := rows.Scan(&phone); err != nil {
			rows.Close()
			return nil, err
		}
		dataPool.Phones = append(dataPool.Phones, phone)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load contacts: %w", err)
	}

	rows, err = pool.Query(ctx, `SELECT slug FROM catalog_entries WHERE active ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			rows.Close()
			return nil, err
		}
		dataPool.Slugs = append(dataPool.Slugs, slug)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	if len(dataPool.Phones) == 0 {
		return nil, fmt.Errorf("no contacts loaded, run cmd/seed first")
	}
	if len(dataPool.Slugs) == 0 {
		return nil, fmt.Errorf("no catalog entries loaded, run cmd/seed first")
	}

	return dataPool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.logger.Info().Dur("duration", s.config.Duration).Int("workers", s.config.Workers).Msg("starting simulation")

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.logger.Info().Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	faker := gofakeit.New(uint64(time.Now().UnixNano()) + uint64(workerID))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Nothing can be booked until some phone has resolved to a profile.
		if _, ok := s.pool.RandomProfile(faker); !ok {
			s.doResolve(ctx, faker)
			continue
		}

		r := faker.Float64()
		switch {
		case r < s.config.BookingRatio:
			s.doBooking(ctx, faker)
		case r < s.config.BookingRatio+s.config.CancelRatio:
			s.doCancel(ctx, faker)
		default:
			switch faker.IntN(3) {
			case 0:
				s.doResolve(ctx, faker)
			case 1:
				s.doListSlots(ctx, faker)
			case 2:
				s.doListAppointments(ctx, faker)
			}
		}
	}
}

// do sends one request and decodes a 2xx JSON body into out when out is set.
func (s *Simulator) do(ctx context.Context, method, path string, body any, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
		return resp.StatusCode, nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (s *Simulator) doResolve(ctx context.Context, faker *gofakeit.Faker) {
	phone := faker.RandomString(s.pool.Phones)

	var out struct {
		Profiles []domain.Profile `json:"profiles"`
	}

	start := time.Now()
	status, err := s.do(ctx, http.MethodPost, "/patients/resolve", map[string]string{"phone": phone}, &out)
	latency := time.Since(start)

	success := err == nil && status == http.StatusOK
	if success {
		ids := make([]string, 0, len(out.Profiles))
		for _, p := range out.Profiles {
			ids = append(ids, p.ID)
		}
		s.pool.AddProfiles(ids)
	}
	// An unknown phone is a normal answer from the registry.
	s.metrics.Resolve.Record(latency, success, status == http.StatusNotFound)
}

func (s *Simulator) doListSlots(ctx context.Context, faker *gofakeit.Faker) {
	slug := faker.RandomString(s.pool.Slugs)
	path := "/slots/" + url.PathEscape(slug)
	if profileID, ok := s.pool.RandomProfile(faker); ok {
		path += "?profile_id=" + url.QueryEscape(profileID)
	}

	start := time.Now()
	status, err := s.do(ctx, http.MethodGet, path, nil, nil)
	s.metrics.Slots.Record(time.Since(start), err == nil && status == http.StatusOK, false)
}

func (s *Simulator) doBooking(ctx context.Context, faker *gofakeit.Faker) {
	profileID, ok := s.pool.RandomProfile(faker)
	if !ok {
		return
	}
	slug := faker.RandomString(s.pool.Slugs)

	var listed struct {
		Slots []domain.Slot `json:"slots"`
	}
	status, err := s.do(ctx, http.MethodGet,
		"/slots/"+url.PathEscape(slug)+"?profile_id="+url.QueryEscape(profileID), nil, &listed)
	if err != nil || status != http.StatusOK || len(listed.Slots) == 0 {
		return
	}
	slot := listed.Slots[faker.IntN(len(listed.Slots))]

	var appt domain.Appointment

	start := time.Now()
	status, err = s.do(ctx, http.MethodPost,
		"/profiles/"+url.PathEscape(profileID)+"/appointments",
		map[string]string{"slug": slug, "slot_id": slot.ID}, &appt)
	latency := time.Since(start)

	success := err == nil && status == http.StatusCreated
	if success {
		s.pool.AddBooking(booking{profileID: profileID, appointmentID: appt.ID})
	}
	s.metrics.Booking.Record(latency, success, status == http.StatusConflict)
}

func (s *Simulator) doCancel(ctx context.Context, faker *gofakeit.Faker) {
	b, ok := s.pool.TakeBooking(faker)
	if !ok {
		return
	}

	start := time.Now()
	status, err := s.do(ctx, http.MethodDelete,
		"/profiles/"+url.PathEscape(b.profileID)+"/appointments/"+url.PathEscape(b.appointmentID), nil, nil)
	latency := time.Since(start)

	s.metrics.Cancel.Record(latency, err == nil && status == http.StatusNoContent, status == http.StatusNotImplemented)
}

func (s *Simulator) doListAppointments(ctx context.Context, faker *gofakeit.Faker) {
	profileID, ok := s.pool.RandomProfile(faker)
	if !ok {
		return
	}

	start := time.Now()
	status, err := s.do(ctx, http.MethodGet, "/profiles/"+url.PathEscape(profileID)+"/appointments", nil, nil)
	s.metrics.Appointments.Record(time.Since(start), err == nil && status == http.StatusOK, false)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Resolve phone", "Unknown", &s.metrics.Resolve)
	printOperationReport("List slots", "", &s.metrics.Slots)
	printOperationReport("Booking", "Conflicts", &s.metrics.Booking)
	printOperationReport("Cancel", "Unsupported", &s.metrics.Cancel)
	printOperationReport("List appointments", "", &s.metrics.Appointments)
}

func printOperationReport(name, conflictLabel string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  %s: %d (%.1f%%)\n", conflictLabel, conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
