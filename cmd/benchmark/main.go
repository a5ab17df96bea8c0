package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

var (
	targetURL   string
	concurrency int
	duration    time.Duration
	amount      string
)

// Metrics
var (
	totalPayments  uint64
	confirmed      uint64
	failScan       uint64 // upload did not detect a payment
	fail409        uint64 // state conflicts
	fail422        uint64 // rejected payments
	failOther      uint64
	totalLatencyNs uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent payers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.StringVar(&amount, "amount", "1", "Amount requested by the payment QR")
}

func main() {
	flag.Parse()
	log.Printf("Starting Benchmark | Workers: %d | Duration: %s", concurrency, duration)

	merchant := newClient()
	if err := login(merchant, "Bench Merchant", "11111-1111111-1", "0"); err != nil {
		log.Fatalf("Merchant login failed: %v", err)
	}
	png, err := paymentQR(merchant)
	if err != nil {
		log.Fatalf("Payment QR failed: %v", err)
	}

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go worker(&wg, start, i, png)
	}
	wg.Wait()
	printResults(time.Since(start))
}

func newClient() *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{Timeout: 10 * time.Second, Jar: jar}
}

func worker(wg *sync.WaitGroup, start time.Time, id int, png []byte) {
	defer wg.Done()
	client := newClient()
	cnic := fmt.Sprintf("%05d-%07d-%d", 20000+id, id, id%10)
	if err := login(client, fmt.Sprintf("Payer %d", id), cnic, "1000000000"); err != nil {
		log.Printf("worker %d login failed: %v", id, err)
		atomic.AddUint64(&failOther, 1)
		return
	}

	for time.Since(start) < duration {
		began := time.Now()
		atomic.AddUint64(&totalPayments, 1)

		code, err := upload(client, png)
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}
		if code != http.StatusOK {
			atomic.AddUint64(&failScan, 1)
			post(client, "/api/v1/scan/cancel", "", nil)
			continue
		}

		code, err = post(client, "/api/v1/scan/confirm", "", nil)
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}
		switch code {
		case http.StatusOK:
			atomic.AddUint64(&confirmed, 1)
			atomic.AddUint64(&totalLatencyNs, uint64(time.Since(began)))
			post(client, "/api/v1/scan/reset", "", nil)
		case http.StatusConflict:
			atomic.AddUint64(&fail409, 1)
		case http.StatusUnprocessableEntity:
			atomic.AddUint64(&fail422, 1)
			post(client, "/api/v1/scan/cancel", "", nil)
		default:
			atomic.AddUint64(&failOther, 1)
		}
	}
}

func login(client *http.Client, name, cnic, balance string) error {
	body, _ := json.Marshal(map[string]interface{}{
		"name":    name,
		"cnic":    cnic,
		"balance": json.Number(balance),
	})
	code, err := post(client, "/api/v1/session", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	if code != http.StatusCreated {
		return fmt.Errorf("login status %d", code)
	}
	return nil
}

func paymentQR(client *http.Client) ([]byte, error) {
	body, _ := json.Marshal(map[string]interface{}{"amount": json.Number(amount)})
	resp, err := client.Post(targetURL+"/api/v1/qr/payment", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payment qr status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func upload(client *http.Client, png []byte) (int, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "qr.png")
	if err != nil {
		return 0, err
	}
	fw.Write(png)
	mw.Close()
	return post(client, "/api/v1/scan/upload", mw.FormDataContentType(), &buf)
}

func post(client *http.Client, path, contentType string, body io.Reader) (int, error) {
	req, err := http.NewRequest(http.MethodPost, targetURL+path, body)
	if err != nil {
		return 0, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.StatusCode, nil
}

func printResults(d time.Duration) {
	total := atomic.LoadUint64(&totalPayments)
	ok := atomic.LoadUint64(&confirmed)
	avgMs := 0.0
	if ok > 0 {
		avgMs = float64(atomic.LoadUint64(&totalLatencyNs)) / float64(ok) / 1e6
	}

	results := map[string]interface{}{
		"duration_sec":       d.Seconds(),
		"workers":            concurrency,
		"attempted_payments": total,
		"confirmed":          ok,
		"throughput_tps":     float64(ok) / d.Seconds(),
		"avg_payment_ms":     avgMs,
		"scan_failures":      atomic.LoadUint64(&failScan),
		"state_conflicts":    atomic.LoadUint64(&fail409),
		"rejected":           atomic.LoadUint64(&fail422),
		"errors":             atomic.LoadUint64(&failOther),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	file, err := os.Create("results_payments.json")
	if err != nil {
		log.Printf("results not saved: %v", err)
		return
	}
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
