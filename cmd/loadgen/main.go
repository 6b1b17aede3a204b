package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Drives concurrent inventory updates against a running server to observe
// how the per-item lock and throttling retries behave under contention.
func main() {
	baseURL := flag.String("url", "http://localhost:8080", "server base url")
	itemID := flag.String("item", "gid://shopify/InventoryItem/1", "inventory item id")
	locationID := flag.String("location", "gid://shopify/Location/1", "location id")
	sku := flag.String("sku", "LOADGEN-SKU", "sku to bind")
	totalRequests := flag.Int("n", 50, "number of concurrent requests")
	flag.Parse()

	client := &http.Client{Timeout: 30 * time.Second}

	var okCount atomic.Int32
	var busyCount atomic.Int32
	var failCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			body, _ := json.Marshal(map[string]any{
				"available":  n,
				"locationId": *locationID,
				"sku":        *sku,
				"requestId":  uuid.New().String(),
			})
			req, err := http.NewRequest(http.MethodPut,
				fmt.Sprintf("%s/api/inventorylevel/%s", *baseURL, *itemID),
				bytes.NewReader(body))
			if err != nil {
				log.Printf("request %d: %v", n, err)
				failCount.Add(1)
				return
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := client.Do(req)
			if err != nil {
				log.Printf("request %d: %v", n, err)
				failCount.Add(1)
				return
			}
			resp.Body.Close()

			switch resp.StatusCode {
			case http.StatusOK:
				okCount.Add(1)
			case http.StatusConflict:
				busyCount.Add(1)
			default:
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	fmt.Println("========== LOAD TEST RESULTS ==========")
	fmt.Printf("Total Requests:   %d\n", *totalRequests)
	fmt.Printf("Succeeded:        %d\n", okCount.Load())
	fmt.Printf("Busy (409):       %d\n", busyCount.Load())
	fmt.Printf("Failed:           %d\n", failCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("=======================================")

	if okCount.Load()+busyCount.Load() == int32(*totalRequests) {
		fmt.Println("PASS: every request either landed or was serialized away")
	} else {
		fmt.Printf("FAIL: %d requests errored outright\n", failCount.Load())
	}
}
