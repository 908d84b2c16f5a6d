package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hackgods/carehome-allocation/internal/auth"
	"github.com/hackgods/carehome-allocation/internal/care"
	"github.com/hackgods/carehome-allocation/internal/logger"
)

type SimConfig struct {
	APIBaseURL     string
	Duration       time.Duration
	Workers        int
	AdmitRatio     float64
	DischargeRatio float64
	ReadRatio      float64
	IsolationRatio float64
	StaffID        string
	Token          string
}

// PatientPool tracks patients the simulator currently has in a bed.
type PatientPool struct {
	mu  sync.Mutex
	ids []string
}

func (p *PatientPool) Add(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, id)
}

// Take removes and returns a random admitted patient.
func (p *PatientPool) Take(rng *rand.Rand) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.ids) == 0 {
		return "", false
	}
	idx := rng.Intn(len(p.ids))
	id := p.ids[idx]
	p.ids[idx] = p.ids[len(p.ids)-1]
	p.ids = p.ids[:len(p.ids)-1]
	return id, true
}

func (p *PatientPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ids)
}

func (p *PatientPool) Peek(rng *rand.Rand) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.ids) == 0 {
		return "", false
	}
	return p.ids[rng.Intn(len(p.ids))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Rejected  int64 // 409 or 422: lost a race or no compliant bed
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success, rejected bool) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case success:
		atomic.AddInt64(&om.Success, 1)
	case rejected:
		atomic.AddInt64(&om.Rejected, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	latencies := append([]time.Duration(nil), om.Latencies...)
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

func percentileIndex(n, pct int) int {
	idx := n * pct / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type Metrics struct {
	Admit     OperationMetrics
	Discharge OperationMetrics
	ReadBed   OperationMetrics
	ListBeds  OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *PatientPool
	client  *http.Client
	metrics Metrics
	log     *zap.Logger
}

func main() {
	log := logger.Must(getEnv("LOG_LEVEL", "info"), "console", "simulate")
	defer func() { _ = log.Sync() }()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	log.Info("simulator starting",
		zap.String("api", cfg.APIBaseURL),
		zap.Duration("duration", cfg.Duration),
		zap.Int("workers", cfg.Workers),
		zap.Float64("admit", cfg.AdmitRatio),
		zap.Float64("discharge", cfg.DischargeRatio),
		zap.Float64("read", cfg.ReadRatio),
	)

	sim := &Simulator{
		config: cfg,
		pool:   &PatientPool{},
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}

	sim.Run()
	sim.PrintReport()
}

func loadConfig() (SimConfig, error) {
	_ = godotenv.Load()

	cfg := SimConfig{
		APIBaseURL:     strings.TrimRight(getEnv("SIM_API_BASE_URL", "http://localhost:8080"), "/"),
		Duration:       getDuration("SIM_DURATION", 30*time.Second),
		Workers:        getInt("SIM_WORKERS", 10),
		AdmitRatio:     getFloat("SIM_ADMIT_RATIO", 0.5),
		DischargeRatio: getFloat("SIM_DISCHARGE_RATIO", 0.3),
		ReadRatio:      getFloat("SIM_READ_RATIO", 0.2),
		IsolationRatio: getFloat("SIM_ISOLATION_RATIO", 0.05),
		StaffID:        getEnv("SIM_STAFF_ID", "MGR01"),
		Token:          os.Getenv("SIM_TOKEN"),
	}

	if cfg.Workers <= 0 {
		return SimConfig{}, fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return SimConfig{}, fmt.Errorf("SIM_DURATION must be > 0")
	}

	// Normalize ratios
	total := cfg.AdmitRatio + cfg.DischargeRatio + cfg.ReadRatio
	if total > 0 {
		cfg.AdmitRatio /= total
		cfg.DischargeRatio /= total
		cfg.ReadRatio /= total
	}

	// Without a token, sign one as a manager with the server's secret.
	if cfg.Token == "" {
		var err error
		tokens := auth.NewTokens(getEnv("JWT_SECRET", "dev-secret"), cfg.Duration+time.Minute)
		cfg.Token, _, err = tokens.Issue(care.Staff{ID: cfg.StaffID, Role: care.RoleManager, Username: "simulator"})
		if err != nil {
			return SimConfig{}, fmt.Errorf("issue token: %w", err)
		}
	}
	return cfg, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.log.Info("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	seed := time.Now().UnixNano() + int64(workerID)
	rng := rand.New(rand.NewSource(seed))
	faker := gofakeit.New(uint64(seed))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			switch {
			case r < s.config.AdmitRatio:
				s.doAdmit(ctx, rng, faker)
			case r < s.config.AdmitRatio+s.config.DischargeRatio:
				s.doDischarge(ctx, rng)
			case rng.Intn(2) == 0:
				s.doReadBed(ctx, rng)
			default:
				s.doListBeds(ctx)
			}
		}
	}
}

func (s *Simulator) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.config.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.client.Do(req)
}

func rejected(status int) bool {
	return status == http.StatusConflict || status == http.StatusUnprocessableEntity
}

func (s *Simulator) doAdmit(ctx context.Context, rng *rand.Rand, faker *gofakeit.Faker) {
	gender := "FEMALE"
	if rng.Intn(2) == 0 {
		gender = "MALE"
	}
	reqBody := map[string]any{
		"first_name":      faker.FirstName(),
		"last_name":       faker.LastName(),
		"age":             faker.Number(60, 98),
		"gender":          gender,
		"needs_isolation": rng.Float64() < s.config.IsolationRatio,
	}

	start := time.Now()
	resp, err := s.do(ctx, http.MethodPost, "/patients", reqBody)
	latency := time.Since(start)
	if err != nil {
		s.recordFailure(ctx, &s.metrics.Admit, latency)
		return
	}
	defer resp.Body.Close()

	success := resp.StatusCode == http.StatusCreated
	if success {
		var placed struct {
			PatientID string `json:"patient_id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&placed); err == nil && placed.PatientID != "" {
			s.pool.Add(placed.PatientID)
		}
	}
	s.metrics.Admit.Record(latency, success, rejected(resp.StatusCode))
}

func (s *Simulator) doDischarge(ctx context.Context, rng *rand.Rand) {
	patientID, ok := s.pool.Take(rng)
	if !ok {
		return
	}

	start := time.Now()
	resp, err := s.do(ctx, http.MethodPost, "/patients/"+patientID+"/discharge", nil)
	latency := time.Since(start)
	if err != nil {
		s.recordFailure(ctx, &s.metrics.Discharge, latency)
		return
	}
	defer resp.Body.Close()

	s.metrics.Discharge.Record(latency, resp.StatusCode == http.StatusOK, rejected(resp.StatusCode))
}

func (s *Simulator) doReadBed(ctx context.Context, rng *rand.Rand) {
	patientID, ok := s.pool.Peek(rng)
	if !ok {
		return
	}

	start := time.Now()
	resp, err := s.do(ctx, http.MethodGet, "/patients/"+patientID+"/bed", nil)
	latency := time.Since(start)
	if err != nil {
		s.recordFailure(ctx, &s.metrics.ReadBed, latency)
		return
	}
	defer resp.Body.Close()

	// a concurrent discharge may have freed the bed
	s.metrics.ReadBed.Record(latency, resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusNotFound)
}

func (s *Simulator) doListBeds(ctx context.Context) {
	start := time.Now()
	resp, err := s.do(ctx, http.MethodGet, "/beds/available", nil)
	latency := time.Since(start)
	if err != nil {
		s.recordFailure(ctx, &s.metrics.ListBeds, latency)
		return
	}
	defer resp.Body.Close()

	s.metrics.ListBeds.Record(latency, resp.StatusCode == http.StatusOK, false)
}

// recordFailure skips requests cut off by the end of the run.
func (s *Simulator) recordFailure(ctx context.Context, om *OperationMetrics, latency time.Duration) {
	if ctx.Err() != nil {
		return
	}
	om.Record(latency, false, false)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Patients still admitted: %d\n", s.pool.Len())
	fmt.Println()

	printOperationReport("Admit", &s.metrics.Admit)
	printOperationReport("Discharge", &s.metrics.Discharge)
	printOperationReport("Read bed", &s.metrics.ReadBed)
	printOperationReport("List available beds", &s.metrics.ListBeds)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	rejected := atomic.LoadInt64(&om.Rejected)
	failed := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if rejected > 0 {
		fmt.Printf("  Rejected: %d (%.1f%%)\n", rejected, float64(rejected)/float64(total)*100)
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
