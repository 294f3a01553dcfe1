package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"chat-assistant/internal/common/config"
	"chat-assistant/internal/models"

	_ "modernc.org/sqlite"
)

// ===== Test Helper Functions =====

// fakeCompletionServer answers the chat completions wire format: tool calls
// route "show"/"find" utterances to the inventory query, JSON requests get a
// fixed query envelope, anything else a plain reply.
type fakeCompletionServer struct {
	*httptest.Server
	synthesisCalls atomic.Int32
}

func newFakeCompletionServer(t *testing.T) *fakeCompletionServer {
	f := &fakeCompletionServer{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" || r.Header.Get("Authorization") != "Bearer sk-test" {
			http.Error(w, "unexpected request", http.StatusBadRequest)
			return
		}

		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
			Tools          []json.RawMessage `json:"tools"`
			ResponseFormat map[string]string `json:"response_format"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		message := map[string]interface{}{"role": "assistant"}
		switch {
		case len(req.Tools) > 0:
			name := "regular_response"
			last := strings.ToLower(req.Messages[len(req.Messages)-1].Content)
			if strings.Contains(last, "show") || strings.Contains(last, "find") {
				name = "query_inventory"
			}
			message["tool_calls"] = []map[string]interface{}{{
				"type":     "function",
				"function": map[string]string{"name": name, "arguments": `{"user_message":"x"}`},
			}}
		case req.ResponseFormat["type"] == "json_object":
			f.synthesisCalls.Add(1)
			message["content"] = `{"query": "SELECT product_name, color FROM inventory WHERE color = 'Red'"}`
		default:
			message["content"] = "Hello! What can I find for you?"
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{{"message": message}},
		})
	}))
	t.Cleanup(f.Close)
	return f
}

func createInventoryFile(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "inventory.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE inventory (
		id INTEGER PRIMARY KEY, sku TEXT, product_name TEXT, quantity INTEGER, price REAL,
		size TEXT, color TEXT, brand TEXT, image TEXT, description TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO inventory (sku, product_name, quantity, price, size, color, brand)
		VALUES ('SKU001', 'T-Shirt', 20, 159.99, 'M', 'Red', 'Canada Goose'),
		       ('SKU002', 'Hoodie', 5, 89.5, 'L', 'Blue', 'Roots')`)
	require.NoError(t, err)
	return path
}

func createTestConfig(t *testing.T, completionURL, inventoryPath, redisAddr string) *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "chat-assistant-test"},
		Bot: config.BotConfig{Token: "bot-secret", ImageTimeout: 1000},
		Completion: config.CompletionConfig{
			Provider: "openai",
			BaseURL:  completionURL,
			APIKey:   "sk-test",
			Model:    "gpt-test",
			Timeout:  5000,
		},
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			DSN:    inventoryPath,
			Redis:  config.RedisConfig{Address: redisAddr},
		},
		Session: config.SessionConfig{
			Backend:      "redis",
			IdleTimeout:  60000,
			MaxEntries:   100,
			KeyPrefix:    "session:",
			HistoryTurns: 10,
		},
		Query:     config.QueryConfig{Schema: "inventory", Timeout: 5000, MaxRows: 50},
		Synthesis: config.SynthesisConfig{CacheTTL: 60000},
		PlantAPI:  config.PlantAPIConfig{BaseURL: "http://127.0.0.1:1", Timeout: 1000},
	}
}

func fastRetries(t *testing.T) {
	retries, delay := ConnectRetries, ConnectDelay
	ConnectRetries, ConnectDelay = 2, time.Millisecond
	t.Cleanup(func() { ConnectRetries, ConnectDelay = retries, delay })
}

// ===== Tests =====

func TestNew_WiresFullPipeline(t *testing.T) {
	fastRetries(t)
	mr := miniredis.RunT(t)
	completionSrv := newFakeCompletionServer(t)
	cfg := createTestConfig(t, completionSrv.URL, createInventoryFile(t), mr.Addr())

	ctx := context.Background()
	a, err := New(ctx, cfg, zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	defer a.Close()

	assert.ElementsMatch(t, []string{"database", "redis"}, keys(a.ReadinessChecks()))
	for name, check := range a.ReadinessChecks() {
		assert.NoError(t, check(ctx), name)
	}

	// Inventory question runs synthesis, the read-only executor and the formatter.
	replies, err := a.Dispatcher.Dispatch(ctx, models.InboundMessage{SessionKey: "42", Text: "Show me red shirts"})
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, "I found 1 item:\n1. product_name: T-Shirt, color: Red", replies[0].Text)

	// Same question again is served from the Redis synthesis cache.
	_, err = a.Dispatcher.Dispatch(ctx, models.InboundMessage{SessionKey: "42", Text: "show me  RED shirts"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), completionSrv.synthesisCalls.Load())

	// Small talk goes to the freeform responder.
	replies, err = a.Dispatcher.Dispatch(ctx, models.InboundMessage{SessionKey: "42", Text: "hello there"})
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, "Hello! What can I find for you?", replies[0].Text)

	// The session, with its history, lives in Redis.
	assert.True(t, mr.Exists("session:42"))
}

func TestNew_StartCommandUsesGuidedFlow(t *testing.T) {
	fastRetries(t)
	mr := miniredis.RunT(t)
	completionSrv := newFakeCompletionServer(t)
	cfg := createTestConfig(t, completionSrv.URL, createInventoryFile(t), mr.Addr())
	cfg.Session.Backend = "memory"
	cfg.Synthesis.CacheTTL = 0

	a, err := New(context.Background(), cfg, zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, []string{"database"}, keys(a.ReadinessChecks()))

	replies, err := a.Dispatcher.Dispatch(context.Background(), models.InboundMessage{SessionKey: "7", Text: "/start"})
	require.NoError(t, err)
	require.NotEmpty(t, replies)
	assert.NotEmpty(t, replies[len(replies)-1].Options)
}

func TestNew_StartupFailures(t *testing.T) {
	fastRetries(t)
	completionSrv := newFakeCompletionServer(t)

	t.Run("unknown schema", func(t *testing.T) {
		cfg := createTestConfig(t, completionSrv.URL, createInventoryFile(t), "")
		cfg.Query.Schema = "customers"
		_, err := New(context.Background(), cfg, zaptest.NewLogger(t), nil)
		assert.ErrorContains(t, err, "unknown schema")
	})

	t.Run("redis unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		cfg := createTestConfig(t, completionSrv.URL, createInventoryFile(t), addr)
		_, err := New(context.Background(), cfg, zaptest.NewLogger(t), nil)
		assert.ErrorContains(t, err, "Redis connection failed after 2 attempts")
	})

	t.Run("unknown session backend", func(t *testing.T) {
		cfg := createTestConfig(t, completionSrv.URL, createInventoryFile(t), "")
		cfg.Session.Backend = "etcd"
		cfg.Synthesis.CacheTTL = 0
		_, err := New(context.Background(), cfg, zaptest.NewLogger(t), nil)
		assert.ErrorContains(t, err, `unknown session backend "etcd"`)
	})
}

func TestRetryWithBackoff(t *testing.T) {
	log := zaptest.NewLogger(t)

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := retryWithBackoff(func() error {
			calls++
			if calls < 3 {
				return errors.New("connection refused")
			}
			return nil
		}, 5, time.Millisecond, log, "Inventory store connection")

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		cause := errors.New("connection refused")
		calls := 0
		err := retryWithBackoff(func() error {
			calls++
			return cause
		}, 3, time.Millisecond, log, "Redis connection")

		require.Error(t, err)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "Redis connection failed after 3 attempts")
		assert.Equal(t, 3, calls)
	})
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
