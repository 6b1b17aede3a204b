package tests

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/AakashRadical/rg-bulk-editor/internal/adapter/shopify"
	"github.com/AakashRadical/rg-bulk-editor/internal/adapter/storage"
	"github.com/AakashRadical/rg-bulk-editor/internal/core/domain"
	"github.com/AakashRadical/rg-bulk-editor/internal/core/service"
)

type testEnv struct {
	redis   *redis.Client
	mysql   *sql.DB
	cache   *storage.RedisAdapter
	db      *storage.MySQLAdapter
	cleanup func()
}

func setupTestEnv(t *testing.T) *testEnv {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "root:root@tcp(localhost:3306)/bulkeditor?parseTime=true"
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	return &testEnv{
		redis: rdb,
		mysql: db,
		cache: storage.NewRedisAdapter(rdb),
		db:    storage.NewMySQLAdapter(db),
		cleanup: func() {
			rdb.Close()
			db.Close()
		},
	}
}

// fakeCatalog is an in-memory stand-in for the Admin GraphQL API. It keeps
// one inventory item's state and applies mutations the way the real side
// would, so reconciliations observe their own writes.
type fakeCatalog struct {
	mu        sync.Mutex
	tracked   bool
	sku       string
	hasLevel  bool
	available int
	mutations []string
}

func (f *fakeCatalog) levelJSON() string {
	return fmt.Sprintf(
		`{"id":"gid://shopify/InventoryLevel/1","quantities":[{"name":"available","quantity":%d}],"updatedAt":%q}`,
		f.available, time.Now().UTC().Format(time.RFC3339),
	)
}

func (f *fakeCatalog) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		f.mu.Lock()
		defer f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")

		switch {
		case strings.Contains(req.Query, "inventoryItemUpdate"):
			input := req.Variables["input"].(map[string]any)
			if tracked, ok := input["tracked"].(bool); ok {
				f.tracked = tracked
				f.mutations = append(f.mutations, "setTracked")
			}
			if sku, ok := input["sku"].(string); ok {
				f.sku = sku
				f.mutations = append(f.mutations, "setSku")
			}
			fmt.Fprint(w, `{"data":{"inventoryItemUpdate":{"userErrors":[]}}}`)

		case strings.Contains(req.Query, "inventoryActivate"):
			f.hasLevel = true
			f.mutations = append(f.mutations, "activate")
			fmt.Fprintf(w, `{"data":{"inventoryActivate":{"inventoryLevel":%s,"userErrors":[]}}}`, f.levelJSON())

		case strings.Contains(req.Query, "inventorySetOnHandQuantities"):
			input := req.Variables["input"].(map[string]any)
			set := input["setQuantities"].([]any)[0].(map[string]any)
			qty, _ := set["quantity"].(float64)
			f.available = int(qty)
			f.mutations = append(f.mutations, "setOnHand")
			fmt.Fprint(w, `{"data":{"inventorySetOnHandQuantities":{"userErrors":[]}}}`)

		case strings.Contains(req.Query, "query inventoryLevel"):
			fmt.Fprintf(w, `{"data":{"inventoryItem":{"inventoryLevel":%s}}}`, f.levelJSON())

		case strings.Contains(req.Query, "query inventoryItem"):
			level := "null"
			if f.hasLevel {
				level = f.levelJSON()
			}
			fmt.Fprintf(w,
				`{"data":{"inventoryItem":{"id":"gid://shopify/InventoryItem/1","tracked":%t,"sku":%q,"inventoryLevel":%s}}}`,
				f.tracked, f.sku, level,
			)

		default:
			fmt.Fprint(w, `{"data":{}}`)
		}
	}
}

func newIntegrationService(t *testing.T, env *testEnv, fake *fakeCatalog) *service.ReconcileService {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	catalog := shopify.NewClient(shopify.Config{
		AccessToken: "test-token",
		APIVersion:  "2024-10",
		BaseURL:     srv.URL,
	}, zap.NewNop())

	return service.NewReconcileService(catalog, env.cache, env.db, nil, zap.NewNop(), 100)
}

func TestIntegration_FullReconciliationFlow(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	itemID := "integration-item-1"

	env.redis.Del(ctx, "lock:inventory:"+itemID)
	env.mysql.ExecContext(ctx, `DELETE FROM inventory_adjustments WHERE inventory_item_id = ?`, itemID)

	fake := &fakeCatalog{}
	svc := newIntegrationService(t, env, fake)
	defer svc.Close()

	result, err := svc.Reconcile(ctx, domain.VariantInventoryIntent{
		RequestID:       uuid.New().String(),
		InventoryItemID: itemID,
		SKU:             "INT-SKU-1",
		Tracked:         true,
		Quantity:        25,
		LocationID:      "loc-1",
	})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if !result.Succeeded() {
		t.Fatalf("expected success, got %s (%s)", result.Reason, result.Detail)
	}
	if result.FinalQuantity == nil || *result.FinalQuantity != 25 {
		t.Fatalf("expected final quantity 25, got %v", result.FinalQuantity)
	}

	// The item started untracked with no SKU and no level, so the full
	// precondition chain must have run in order.
	want := []string{"setTracked", "setSku", "activate", "setOnHand"}
	if len(fake.mutations) != len(want) {
		t.Fatalf("expected mutations %v, got %v", want, fake.mutations)
	}
	for i, m := range want {
		if fake.mutations[i] != m {
			t.Fatalf("expected mutations %v, got %v", want, fake.mutations)
		}
	}

	// Audit record landed in MySQL
	var count int
	env.mysql.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM inventory_adjustments WHERE inventory_item_id = ? AND outcome = 'succeeded'`,
		itemID,
	).Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 audit record, got %d", count)
	}
}

func TestIntegration_ReplayIsIdempotent(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	itemID := "integration-item-2"
	requestID := uuid.New().String()

	env.redis.Del(ctx, "lock:inventory:"+itemID, "reconcile:"+requestID)
	env.mysql.ExecContext(ctx, `DELETE FROM inventory_adjustments WHERE inventory_item_id = ?`, itemID)

	fake := &fakeCatalog{}
	svc := newIntegrationService(t, env, fake)
	defer svc.Close()

	intent := domain.VariantInventoryIntent{
		RequestID:       requestID,
		InventoryItemID: itemID,
		SKU:             "INT-SKU-2",
		Tracked:         true,
		Quantity:        7,
		LocationID:      "loc-1",
	}

	if _, err := svc.Reconcile(ctx, intent); err != nil {
		t.Fatalf("first reconcile failed: %v", err)
	}
	mutationsAfterFirst := len(fake.mutations)

	_, err := svc.Reconcile(ctx, intent)
	if err != service.ErrDuplicateRequest {
		t.Fatalf("expected ErrDuplicateRequest, got %v", err)
	}
	if len(fake.mutations) != mutationsAfterFirst {
		t.Errorf("replay must not touch the remote side, mutations grew from %d to %d",
			mutationsAfterFirst, len(fake.mutations))
	}
}

func TestIntegration_ConcurrentReconciliationsSerialize(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	itemID := "integration-item-3"

	env.redis.Del(ctx, "lock:inventory:"+itemID)
	env.mysql.ExecContext(ctx, `DELETE FROM inventory_adjustments WHERE inventory_item_id = ?`, itemID)

	fake := &fakeCatalog{tracked: true, sku: "INT-SKU-3", hasLevel: true}
	svc := newIntegrationService(t, env, fake)
	defer svc.Close()

	totalRequests := 10
	var okCount, busyCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.Reconcile(ctx, domain.VariantInventoryIntent{
				RequestID:       uuid.New().String(),
				InventoryItemID: itemID,
				SKU:             "INT-SKU-3",
				Tracked:         true,
				Quantity:        n,
				LocationID:      "loc-1",
			})
			switch err {
			case nil:
				okCount.Add(1)
			case service.ErrItemBusy:
				busyCount.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if okCount.Load()+busyCount.Load() != int32(totalRequests) {
		t.Fatalf("expected every request to succeed or report busy, got ok=%d busy=%d",
			okCount.Load(), busyCount.Load())
	}
	if okCount.Load() == 0 {
		t.Fatal("expected at least one reconciliation to win the lock")
	}

	// setOnHand calls never outnumber the winners: the lock serialized access.
	var setOnHand int
	for _, m := range fake.mutations {
		if m == "setOnHand" {
			setOnHand++
		}
	}
	if setOnHand != int(okCount.Load()) {
		t.Errorf("expected %d quantity writes, got %d", okCount.Load(), setOnHand)
	}
}
