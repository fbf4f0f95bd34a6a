package qdrant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexPi44/multimodal-rag-system/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func clientFor(t *testing.T, ts *httptest.Server) *Client {
	t.Helper()

	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	c, err := NewClient(&Config{Host: u.Hostname(), Port: port, Timeout: 5 * time.Second}, testLogger())
	require.NoError(t, err)
	return c
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	bad := []*Config{
		{Host: "", Port: 6333, Timeout: time.Second},
		{Host: "localhost", Port: 0, Timeout: time.Second},
		{Host: "localhost", Port: 70000, Timeout: time.Second},
		{Host: "localhost", Port: 6333, Timeout: 0},
	}
	for i, cfg := range bad {
		assert.Error(t, cfg.Validate(), "config %d should be invalid", i)
	}
}

func TestCollectionConfigValidate(t *testing.T) {
	cfg := &CollectionConfig{Name: "docs", VectorSize: 1024}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DistanceCosine, cfg.Distance)

	assert.Error(t, (&CollectionConfig{VectorSize: 4}).Validate())
	assert.Error(t, (&CollectionConfig{Name: "docs"}).Validate())
}

func TestHealthCheck(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"title": "qdrant"})
	}))
	defer ts.Close()

	assert.NoError(t, clientFor(t, ts).HealthCheck(context.Background()))
}

func TestEnsureCollectionIdempotent(t *testing.T) {
	creates := 0
	exists := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/collections/docs/exists":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"result": map[string]bool{"exists": exists},
			})
		case r.Method == http.MethodPut && r.URL.Path == "/collections/docs":
			creates++
			exists = true

			var body struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, 1024, body.Vectors.Size)
			assert.Equal(t, "Cosine", body.Vectors.Distance)

			_ = json.NewEncoder(w).Encode(map[string]bool{"result": true})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer ts.Close()

	c := clientFor(t, ts)
	cfg := &CollectionConfig{Name: "docs", VectorSize: 1024, Distance: DistanceCosine}

	require.NoError(t, c.EnsureCollection(context.Background(), cfg))
	require.NoError(t, c.EnsureCollection(context.Background(), cfg))
	assert.Equal(t, 1, creates)
}

func TestUpsertPoints(t *testing.T) {
	var received []Point
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/collections/docs/points", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("wait"))

		var body struct {
			Points []Point `json:"points"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		received = body.Points

		_ = json.NewEncoder(w).Encode(map[string]bool{"result": true})
	}))
	defer ts.Close()

	c := clientFor(t, ts)

	t.Run("sends points with payload", func(t *testing.T) {
		err := c.UpsertPoints(context.Background(), "docs", []Point{
			{ID: "p1", Vector: []float32{0.1}, Payload: map[string]interface{}{"user_id": "u1"}},
		})
		require.NoError(t, err)
		require.Len(t, received, 1)
		assert.Equal(t, "p1", received[0].ID)
		assert.Equal(t, "u1", received[0].Payload["user_id"])
	})

	t.Run("rejects points without ids", func(t *testing.T) {
		err := c.UpsertPoints(context.Background(), "docs", []Point{{Vector: []float32{0.1}}})
		assert.Error(t, err)
	})

	t.Run("no-op on empty batch", func(t *testing.T) {
		assert.NoError(t, c.UpsertPoints(context.Background(), "docs", nil))
	})
}

func TestSearchAppliesUserFilter(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/docs/points/search", r.URL.Path)

		var body struct {
			Vector      []float32              `json:"vector"`
			Limit       int                    `json:"limit"`
			WithPayload bool                   `json:"with_payload"`
			Filter      map[string]interface{} `json:"filter"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 20, body.Limit)
		assert.True(t, body.WithPayload)

		must, ok := body.Filter["must"].([]interface{})
		require.True(t, ok, "filter must clause missing")
		require.Len(t, must, 1)
		clause := must[0].(map[string]interface{})
		assert.Equal(t, "user_id", clause["key"])
		assert.Equal(t, "alice", clause["match"].(map[string]interface{})["value"])

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"result": []map[string]interface{}{
				{"id": "c1", "score": 0.91, "payload": map[string]interface{}{"content": "hello", "user_id": "alice"}},
				{"id": "c2", "score": 0.75, "payload": map[string]interface{}{"content": "world", "user_id": "alice"}},
			},
		})
	}))
	defer ts.Close()

	c := clientFor(t, ts)
	points, err := c.Search(context.Background(), "docs", []float32{0.1, 0.2}, UserFilter("alice"), 20)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "c1", points[0].ID)
	assert.InDelta(t, 0.91, points[0].Score, 1e-9)
	assert.Equal(t, "hello", points[0].Payload["content"])
}

func TestCountPoints(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/docs/points/count", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["exact"])

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"result": map[string]int64{"count": 42},
		})
	}))
	defer ts.Close()

	count, err := clientFor(t, ts).CountPoints(context.Background(), "docs", UserFilter("alice"))
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
}

func TestServerErrorsMapToIndexUnavailable(t *testing.T) {
	t.Run("5xx response", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "internal", http.StatusInternalServerError)
		}))
		defer ts.Close()

		err := clientFor(t, ts).HealthCheck(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrIndexUnavailable))
	})

	t.Run("connection refused", func(t *testing.T) {
		c, err := NewClient(&Config{Host: "127.0.0.1", Port: 1, Timeout: time.Second}, testLogger())
		require.NoError(t, err)

		err = c.HealthCheck(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrIndexUnavailable))
	})

	t.Run("4xx is not an availability error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad request", http.StatusBadRequest)
		}))
		defer ts.Close()

		err := clientFor(t, ts).HealthCheck(context.Background())
		require.Error(t, err)
		assert.False(t, errors.Is(err, models.ErrIndexUnavailable))
	})
}
