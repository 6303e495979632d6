// Утилита нагрузочного тестирования HTTP API маркетплейса. Перед прогоном
// сидирует товар с большим остатком, затем гоняет сценарии создания и
// модерации заказов с заданной конкурентностью.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultOrderQty = 1
	defaultPrice    = 9.99
	seedStock       = 100_000_000
	transportCode   = "transport_error"
)

type loadMode string

const (
	modeCreate        loadMode = "create"
	modeCreateApprove loadMode = "create-approve"
	modeCreateReject  loadMode = "create-reject"
)

type config struct {
	baseURL     string
	total       int
	totalSet    bool
	duration    time.Duration
	concurrency int
	connections int
	timeout     time.Duration
	mode        loadMode
	rejectRate  int
	buyerTag    string
	seller      string
	quantity    int
	price       float64
	outputPath  string
}

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type methodReport struct {
	Calls     int64            `json:"calls"`
	Success   int64            `json:"success"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Codes     map[string]int64 `json:"codes"`
	LatencyMs latencySummary   `json:"latency_ms"`
}

type report struct {
	StartedAt         time.Time               `json:"started_at"`
	DurationSeconds   float64                 `json:"duration_seconds"`
	TotalScenarios    int64                   `json:"total_scenarios"`
	SuccessScenarios  int64                   `json:"success_scenarios"`
	FailedScenarios   int64                   `json:"failed_scenarios"`
	ErrorRate         float64                 `json:"error_rate"`
	RPS               float64                 `json:"rps"`
	ScenarioLatencyMs latencySummary          `json:"scenario_latency_ms"`
	Methods           map[string]methodReport `json:"methods"`
}

type methodStats struct {
	calls     int64
	success   int64
	failed    int64
	codes     map[string]int64
	latencies []float64
}

type collector struct {
	mu      sync.Mutex
	methods map[string]*methodStats
}

func newCollector() *collector {
	return &collector{
		methods: make(map[string]*methodStats),
	}
}

func (c *collector) record(method string, latency time.Duration, code string, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, ok := c.methods[method]
	if !ok {
		stats = &methodStats{
			codes: make(map[string]int64),
		}
		c.methods[method] = stats
	}

	stats.calls++
	if success {
		stats.success++
	} else {
		stats.failed++
	}
	stats.codes[code]++
	stats.latencies = append(stats.latencies, float64(latency.Microseconds())/1000.0)
}

func (c *collector) buildReport(startedAt time.Time, duration time.Duration) report {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := report{
		StartedAt:       startedAt.UTC(),
		DurationSeconds: duration.Seconds(),
		Methods:         make(map[string]methodReport, len(c.methods)),
	}

	scenarioStats := c.methods["scenario"]
	if scenarioStats != nil {
		result.TotalScenarios = scenarioStats.calls
		result.SuccessScenarios = scenarioStats.success
		result.FailedScenarios = scenarioStats.failed
		result.ErrorRate = ratio(scenarioStats.failed, scenarioStats.calls)
		result.ScenarioLatencyMs = buildLatencySummary(scenarioStats.latencies)
	}
	if duration > 0 {
		result.RPS = float64(result.TotalScenarios) / duration.Seconds()
	}

	for name, stats := range c.methods {
		codesCopy := make(map[string]int64, len(stats.codes))
		for code, count := range stats.codes {
			codesCopy[code] = count
		}
		result.Methods[name] = methodReport{
			Calls:     stats.calls,
			Success:   stats.success,
			Failed:    stats.failed,
			ErrorRate: ratio(stats.failed, stats.calls),
			Codes:     codesCopy,
			LatencyMs: buildLatencySummary(stats.latencies),
		}
	}

	return result
}

func parseConfig() (config, error) {
	var cfg config
	var modeValue string
	var timeoutValue string
	var durationValue string

	flag.StringVar(&cfg.baseURL, "addr", "http://localhost:8080", "HTTP API base URL")
	flag.IntVar(&cfg.total, "total", 400, "total scenarios to execute in count mode; in duration mode only used when explicitly set")
	flag.StringVar(&durationValue, "duration", "0s", "optional time-based run duration (e.g. 10m, 15m)")
	flag.IntVar(&cfg.concurrency, "concurrency", 40, "number of concurrent workers")
	flag.IntVar(&cfg.connections, "connections", 20, "max idle HTTP connections per host")
	flag.StringVar(&timeoutValue, "timeout", "5s", "per-request timeout")
	flag.StringVar(&modeValue, "mode", string(modeCreate), "load mode: create | create-approve | create-reject")
	flag.IntVar(&cfg.rejectRate, "reject-rate", 0, "reject probability in percent for create-approve mode (0..100)")
	flag.StringVar(&cfg.buyerTag, "buyer-tag", "load", "buyer email prefix")
	flag.StringVar(&cfg.seller, "seller", "loadtest-seller@marketplace.local", "seller email owning the seeded product")
	flag.IntVar(&cfg.quantity, "quantity", defaultOrderQty, "order quantity per scenario")
	flag.Float64Var(&cfg.price, "price", defaultPrice, "seeded product price")
	flag.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	flag.Parse()

	timeout, err := time.ParseDuration(strings.TrimSpace(timeoutValue))
	if err != nil {
		return cfg, fmt.Errorf("parse timeout: %w", err)
	}
	cfg.timeout = timeout

	duration, err := time.ParseDuration(strings.TrimSpace(durationValue))
	if err != nil {
		return cfg, fmt.Errorf("parse duration: %w", err)
	}
	cfg.duration = duration

	flag.CommandLine.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	mode, err := parseMode(modeValue)
	if err != nil {
		return cfg, err
	}
	cfg.mode = mode

	if cfg.duration < 0 {
		return cfg, errors.New("duration must be >= 0")
	}
	if cfg.duration == 0 && cfg.total <= 0 {
		return cfg, errors.New("total must be > 0 when duration is not set")
	}
	if cfg.duration > 0 && cfg.totalSet && cfg.total <= 0 {
		return cfg, errors.New("total must be > 0 when explicitly set with duration")
	}
	if cfg.concurrency <= 0 {
		return cfg, errors.New("concurrency must be > 0")
	}
	if cfg.connections <= 0 {
		return cfg, errors.New("connections must be > 0")
	}
	if cfg.timeout <= 0 {
		return cfg, errors.New("timeout must be > 0")
	}
	if cfg.quantity <= 0 {
		return cfg, errors.New("quantity must be > 0")
	}
	if cfg.price <= 0 {
		return cfg, errors.New("price must be > 0")
	}
	if cfg.rejectRate < 0 || cfg.rejectRate > 100 {
		return cfg, errors.New("reject-rate must be between 0 and 100")
	}
	if !strings.HasPrefix(cfg.baseURL, "http://") && !strings.HasPrefix(cfg.baseURL, "https://") {
		return cfg, fmt.Errorf("addr must be an http(s) URL: %s", cfg.baseURL)
	}
	if strings.TrimSpace(cfg.buyerTag) == "" {
		return cfg, errors.New("buyer-tag is required")
	}
	if strings.TrimSpace(cfg.seller) == "" {
		return cfg, errors.New("seller is required")
	}

	return cfg, nil
}

func parseMode(value string) (loadMode, error) {
	switch loadMode(strings.TrimSpace(value)) {
	case modeCreate:
		return modeCreate, nil
	case modeCreateApprove:
		return modeCreateApprove, nil
	case modeCreateReject:
		return modeCreateReject, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

type apiCaller struct {
	client  *http.Client
	baseURL string
	timeout time.Duration
}

func newAPICaller(cfg config) *apiCaller {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = cfg.connections
	transport.MaxIdleConnsPerHost = cfg.connections

	return &apiCaller{
		client:  &http.Client{Transport: transport},
		baseURL: strings.TrimRight(cfg.baseURL, "/"),
		timeout: cfg.timeout,
	}
}

// call выполняет один запрос и декодирует JSON-ответ; статус возвращается
// даже при ошибочных кодах, чтобы collector видел реальные HTTP-статусы.
func (a *apiCaller) call(method, path string, body any, out any) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response body: %w", err)
		}
	}

	return resp.StatusCode, nil
}

func main() {
	cfg, err := parseConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	caller := newAPICaller(cfg)

	startedAt := time.Now()
	runID := fmt.Sprintf("%d-%d", startedAt.UnixNano(), os.Getpid())

	productID, err := seedProduct(caller, cfg, runID)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to seed product: %v\n", err)
		os.Exit(1)
	}

	col := newCollector()

	jobs := make(chan int, cfg.concurrency*2)
	var failures int64
	var wg sync.WaitGroup

	for workerID := 0; workerID < cfg.concurrency; workerID++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				if runErr := runScenario(caller, cfg, id, runID, productID, col); runErr != nil {
					atomic.AddInt64(&failures, 1)
				}
			}
		}()
	}

	dispatchJobs(jobs, cfg)
	wg.Wait()

	duration := time.Since(startedAt)
	result := col.buildReport(startedAt, duration)
	if result.FailedScenarios == 0 && failures > 0 {
		result.FailedScenarios = failures
		result.ErrorRate = ratio(result.FailedScenarios, result.TotalScenarios)
	}

	printReport(result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}

	if result.FailedScenarios > 0 {
		os.Exit(1)
	}
}

func dispatchJobs(jobs chan<- int, cfg config) {
	defer close(jobs)

	if cfg.duration <= 0 {
		for i := 0; i < cfg.total; i++ {
			jobs <- i
		}
		return
	}

	timer := time.NewTimer(cfg.duration)
	defer timer.Stop()

	for i := 0; ; i++ {
		if cfg.totalSet && i >= cfg.total {
			return
		}

		select {
		case <-timer.C:
			return
		case jobs <- i:
		}
	}
}

func seedProduct(caller *apiCaller, cfg config, runID string) (string, error) {
	body := map[string]any{
		"title":                fmt.Sprintf("loadtest-%s", runID),
		"ownerEmail":           cfg.seller,
		"price":                cfg.price,
		"quantity":             seedStock,
		"minimumOrderQuantity": 1,
	}

	var result struct {
		Success   bool   `json:"success"`
		ProductID string `json:"productId"`
	}

	statusCode, err := caller.call(http.MethodPost, "/products", body, &result)
	if err != nil {
		return "", err
	}
	if statusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected seed status: %d", statusCode)
	}
	if result.ProductID == "" {
		return "", errors.New("seed response returned empty product id")
	}

	return result.ProductID, nil
}

func runScenario(
	caller *apiCaller,
	cfg config,
	index int,
	runID string,
	productID string,
	col *collector,
) error {
	scenarioStart := time.Now()
	scenarioErr := error(nil)
	scenarioCode := strconv.Itoa(http.StatusOK)
	defer func() {
		col.record("scenario", time.Since(scenarioStart), scenarioCode, scenarioErr == nil)
	}()

	orderID, code, err := callCreateOrder(caller, cfg, index, runID, productID, col)
	if err != nil {
		scenarioErr = err
		scenarioCode = code
		return err
	}

	if cfg.mode == modeCreate {
		return nil
	}

	path := "/orders/approve/" + orderID
	method := "ApproveOrder"
	if cfg.mode == modeCreateReject || (cfg.mode == modeCreateApprove && shouldRejectScenario(index, cfg.rejectRate)) {
		path = "/orders/reject/" + orderID
		method = "RejectOrder"
	}

	if code, err := callModeration(caller, method, path, col); err != nil {
		scenarioErr = err
		scenarioCode = code
		return err
	}

	return nil
}

func callCreateOrder(
	caller *apiCaller,
	cfg config,
	index int,
	runID string,
	productID string,
	col *collector,
) (string, string, error) {
	body := map[string]any{
		"productId":     productID,
		"buyerEmail":    fmt.Sprintf("%s-%s-%d@marketplace.local", cfg.buyerTag, runID, index),
		"sellerEmail":   cfg.seller,
		"quantity":      cfg.quantity,
		"paymentOption": "cashOnDelivery",
	}

	var result struct {
		Success bool   `json:"success"`
		OrderID string `json:"orderId"`
	}

	start := time.Now()
	statusCode, err := caller.call(http.MethodPost, "/orders", body, &result)
	code := statusLabel(statusCode, err)
	col.record("CreateOrder", time.Since(start), code, err == nil && statusCode == http.StatusOK)

	if err != nil {
		return "", code, err
	}
	if statusCode != http.StatusOK {
		return "", code, fmt.Errorf("create order status: %d", statusCode)
	}
	if result.OrderID == "" {
		return "", code, errors.New("create response returned empty order id")
	}

	return result.OrderID, code, nil
}

func callModeration(caller *apiCaller, method, path string, col *collector) (string, error) {
	start := time.Now()
	statusCode, err := caller.call(http.MethodPatch, path, nil, nil)
	code := statusLabel(statusCode, err)
	col.record(method, time.Since(start), code, err == nil && statusCode == http.StatusOK)

	if err != nil {
		return code, err
	}
	if statusCode != http.StatusOK {
		return code, fmt.Errorf("%s status: %d", method, statusCode)
	}

	return code, nil
}

func statusLabel(statusCode int, err error) string {
	if err != nil {
		return transportCode
	}
	return strconv.Itoa(statusCode)
}

func shouldRejectScenario(index, rejectRate int) bool {
	if rejectRate <= 0 {
		return false
	}
	if rejectRate >= 100 {
		return true
	}
	return index%100 < rejectRate
}

func writeJSONReport(path string, result report) error {
	cleanPath := filepath.Clean(path)
	if cleanPath == "." || cleanPath == string(filepath.Separator) {
		return errors.New("output path must point to a file")
	}
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("output path must be inside current directory: %s", path)
	}

	// #nosec G304 -- path is an explicit CLI output parameter for local load-test reports.
	file, err := os.Create(cleanPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func printReport(result report, cfg config) {
	fmt.Println("Load test summary")
	fmt.Printf("mode=%s run=%s total=%d success=%d failed=%d error_rate=%.4f\n",
		cfg.mode,
		runTarget(cfg),
		result.TotalScenarios,
		result.SuccessScenarios,
		result.FailedScenarios,
		result.ErrorRate,
	)
	fmt.Printf("duration=%.2fs rps=%.2f\n", result.DurationSeconds, result.RPS)
	fmt.Printf("scenario latency ms: min=%.2f avg=%.2f p50=%.2f p95=%.2f p99=%.2f max=%.2f\n",
		result.ScenarioLatencyMs.Min,
		result.ScenarioLatencyMs.Avg,
		result.ScenarioLatencyMs.P50,
		result.ScenarioLatencyMs.P95,
		result.ScenarioLatencyMs.P99,
		result.ScenarioLatencyMs.Max,
	)

	methodNames := make([]string, 0, len(result.Methods))
	for name := range result.Methods {
		if name == "scenario" {
			continue
		}
		methodNames = append(methodNames, name)
	}
	sort.Strings(methodNames)
	for _, name := range methodNames {
		stats := result.Methods[name]
		fmt.Printf(
			"%s: calls=%d success=%d failed=%d error_rate=%.4f p95=%.2fms\n",
			name,
			stats.Calls,
			stats.Success,
			stats.Failed,
			stats.ErrorRate,
			stats.LatencyMs.P95,
		)
	}
}

func runTarget(cfg config) string {
	if cfg.duration <= 0 {
		return fmt.Sprintf("count:%d", cfg.total)
	}
	if cfg.totalSet {
		return fmt.Sprintf("duration:%s,max-total:%d", cfg.duration, cfg.total)
	}
	return fmt.Sprintf("duration:%s", cfg.duration)
}

func buildLatencySummary(values []float64) latencySummary {
	if len(values) == 0 {
		return latencySummary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, value := range sorted {
		sum += value
	}

	return latencySummary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}

	weight := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*weight
}

func ratio(failed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(failed) / float64(total)
}
