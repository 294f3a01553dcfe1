// test/e2e/e2e_test.go
package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"chat-assistant/internal/app"
	"chat-assistant/internal/common/config"
	apperrors "chat-assistant/internal/common/errors"
	"chat-assistant/internal/models"
	"chat-assistant/internal/transport/webhook"
	guidedflow "chat-assistant/internal/workers/plant-care/guided-flow"

	_ "modernc.org/sqlite"
)

// TestFullE2E drives the webhook API end to end: config file, Redis session
// store, SQLite inventory, and fake completion, plant and image services.
func TestFullE2E(t *testing.T) {
	env := startEnvironment(t)

	t.Log("🚀 Starting FULL E2E Test...")

	t.Run("rejects calls without the bot token", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, env.api.URL+"/v1/messages", strings.NewReader(`{"chat_id":"1","text":"hi"}`))
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("readiness reports every store", func(t *testing.T) {
		resp, err := http.Get(env.api.URL + "/ready")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Checks map[string]string `json:"checks"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Contains(t, body.Checks, "database")
		assert.Contains(t, body.Checks, "redis")
	})

	t.Run("inventory question", func(t *testing.T) {
		replies := env.send(t, models.InboundMessage{SessionKey: "shopper", Text: "Do you have any red t-shirts?"})
		require.Len(t, replies, 1)
		assert.Equal(t, "I found 1 item:\n1. product_name: T-Shirt, color: Red, price: 159.99", replies[0].Text)
		t.Log("✅ Inventory query answered")
	})

	t.Run("write attempt is refused", func(t *testing.T) {
		replies := env.send(t, models.InboundMessage{SessionKey: "vandal", Text: "Do you have anything to delete?"})
		require.Len(t, replies, 1)
		assert.Equal(t, apperrors.MessageReadOnly, replies[0].Text)

		var count int
		require.NoError(t, env.inventory.QueryRow(`SELECT COUNT(*) FROM inventory`).Scan(&count))
		assert.Equal(t, 2, count)
		t.Log("✅ Write attempt rejected, inventory intact")
	})

	t.Run("small talk", func(t *testing.T) {
		replies := env.send(t, models.InboundMessage{SessionKey: "shopper", Text: "thanks, bye"})
		require.Len(t, replies, 1)
		assert.Equal(t, "Happy shopping!", replies[0].Text)
	})

	t.Run("plant diagnosis", func(t *testing.T) {
		key := "gardener"

		replies := env.send(t, models.InboundMessage{SessionKey: key, Text: "/start"})
		require.NotEmpty(t, replies)
		assert.Equal(t, guidedflow.MainMenuOptions, replies[len(replies)-1].Options)

		replies = env.send(t, models.InboundMessage{SessionKey: key, Text: guidedflow.OptionDiagnose})
		assert.Equal(t, guidedflow.DiagnosisImagePrompt, replies[0].Text)

		replies = env.send(t, models.InboundMessage{SessionKey: key, Image: &models.ImageRef{URL: env.images.URL + "/leaf.jpg"}})
		assert.Equal(t, guidedflow.LocationPrompt, replies[0].Text)

		env.send(t, models.InboundMessage{SessionKey: key, Text: "Toronto"})
		env.send(t, models.InboundMessage{SessionKey: key, Text: "Every week"})

		replies = env.send(t, models.InboundMessage{SessionKey: key, Text: "Full sun"})
		require.Len(t, replies, 3)
		assert.Equal(t, "The diagnosis is:\nLeaf spot", replies[1].Text)
		assert.Equal(t, []string{guidedflow.OptionRecommendSolutions}, replies[2].Options)

		replies = env.send(t, models.InboundMessage{SessionKey: key, Text: guidedflow.OptionRecommendSolutions})
		require.NotEmpty(t, replies)
		assert.Contains(t, replies[0].Text, "Remove affected leaves")
		t.Log("✅ Guided diagnosis completed")
	})

	t.Run("sessions survive in redis", func(t *testing.T) {
		for _, key := range []string{"shopper", "vandal", "gardener"} {
			assert.True(t, env.redis.Exists("session:"+key), key)
		}
	})

	t.Log("✅ ALL TESTS PASSED: full E2E workflow successful!")
}

// ==========================
// Environment
// ==========================

type environment struct {
	api       *httptest.Server
	images    *httptest.Server
	redis     *miniredis.Miniredis
	inventory *sql.DB
}

func (e *environment) send(t *testing.T, msg models.InboundMessage) []models.Reply {
	t.Helper()

	body, err := json.Marshal(msg)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, e.api.URL+"/v1/messages", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(webhook.TokenHeader, "e2e-bot-token")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out webhook.MessageResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out.Replies
}

func startEnvironment(t *testing.T) *environment {
	t.Helper()

	app.ConnectRetries, app.ConnectDelay = 3, 10*time.Millisecond

	env := &environment{redis: miniredis.RunT(t)}

	inventoryPath := filepath.Join(t.TempDir(), "inventory.db")
	env.inventory = createInventory(t, inventoryPath)

	completionSrv := httptest.NewServer(http.HandlerFunc(completionHandler))
	t.Cleanup(completionSrv.Close)

	plantSrv := httptest.NewServer(http.HandlerFunc(plantHandler))
	t.Cleanup(plantSrv.Close)

	env.images = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	t.Cleanup(env.images.Close)

	t.Setenv("BOT_TOKEN", "e2e-bot-token")
	t.Setenv("OPENAI_API_KEY", "sk-e2e")
	t.Setenv("E2E_INVENTORY", inventoryPath)
	t.Setenv("E2E_COMPLETION_URL", completionSrv.URL)
	t.Setenv("E2E_PLANT_URL", plantSrv.URL)
	t.Setenv("E2E_REDIS", env.redis.Addr())

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
app:
  name: chat-assistant-e2e
completion:
  base_url: ${E2E_COMPLETION_URL}
  model: gpt-e2e
database:
  driver: sqlite
  dsn: ${E2E_INVENTORY}
  redis:
    address: ${E2E_REDIS}
session:
  backend: redis
synthesis:
  cache_ttl: 60000
plant_api:
  base_url: ${E2E_PLANT_URL}
  timeout: 5000
logging:
  level: debug
`), 0o600))

	cfg, err := config.LoadFromFile(cfgPath)
	require.NoError(t, err)

	a, err := app.New(context.Background(), cfg, zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	handler := webhook.NewHandler(a.Dispatcher, cfg.Bot.Token, a.ReadinessChecks(), a.Log)
	env.api = httptest.NewServer(webhook.NewRouter(handler))
	t.Cleanup(env.api.Close)

	return env
}

func createInventory(t *testing.T, path string) *sql.DB {
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	queries := []string{
		`CREATE TABLE inventory (
			id INTEGER PRIMARY KEY,
			sku TEXT,
			product_name TEXT,
			quantity INTEGER,
			price REAL,
			size TEXT,
			color TEXT,
			brand TEXT,
			image TEXT,
			description TEXT
		)`,
		`INSERT INTO inventory (sku, product_name, quantity, price, size, color, brand, image, description)
		 VALUES ('SKU001', 'T-Shirt', 20, 159.99, 'M', 'Red', 'Canada Goose', 'tshirt_image_url', 'Classic red t-shirt made from 100% cotton.')`,
		`INSERT INTO inventory (sku, product_name, quantity, price, size, color, brand, image, description)
		 VALUES ('SKU002', 'Jeans', 15, 79.99, 'L', 'Blue', 'Levis', 'jeans_image_url', 'Slim fit blue jeans.')`,
	}
	for _, q := range queries {
		_, err := db.Exec(q)
		require.NoError(t, err)
	}
	return db
}

// completionHandler imitates the chat completions API. Utterances about
// products are routed to the inventory query; the synthesized query depends
// on whether the user asked to delete something.
func completionHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Tools          []json.RawMessage `json:"tools"`
		ResponseFormat map[string]string `json:"response_format"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	last := strings.ToLower(req.Messages[len(req.Messages)-1].Content)

	message := map[string]interface{}{"role": "assistant"}
	switch {
	case len(req.Tools) > 0:
		name := "regular_response"
		if strings.Contains(last, "do you have") {
			name = "query_inventory"
		}
		message["tool_calls"] = []map[string]interface{}{{
			"type":     "function",
			"function": map[string]string{"name": name, "arguments": fmt.Sprintf(`{"user_message":%q}`, last)},
		}}
	case req.ResponseFormat["type"] == "json_object":
		query := "SELECT product_name, color, price FROM inventory WHERE color = 'Red'"
		if strings.Contains(last, "delete") {
			query = "DELETE FROM inventory"
		}
		content, _ := json.Marshal(map[string]string{"query": query})
		message["content"] = string(content)
	default:
		message["content"] = "Happy shopping!"
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"choices": []map[string]interface{}{{"message": message}},
	})
}

func plantHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/health":
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"final decision": []string{"Leaf spot"}})
	case "/solution":
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"treatment": []string{"Remove affected leaves"}})
	case "/identify":
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"name": "Monstera deliciosa"})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
