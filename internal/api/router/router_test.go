package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kebal2/etranslation-mock/internal/api/handler"
	"github.com/kebal2/etranslation-mock/internal/worker"
	"github.com/kebal2/etranslation-mock/internal/worker/domain"
	"github.com/kebal2/etranslation-mock/internal/worker/queue"
	"github.com/kebal2/etranslation-mock/internal/worker/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHealth(t *testing.T) {
	q := queue.NewMemory(nil)
	r := SetupRouter(&handler.Dependencies{
		Logger:      discardLogger(),
		Queue:       q,
		ServiceName: "etranslation-mock",
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"etranslation-mock","queue_depth":0}`, rec.Body.String())
}

func TestHealth_UnhealthyBackend(t *testing.T) {
	r := SetupRouter(&handler.Dependencies{
		Logger: discardLogger(),
		Queue:  queue.NewMemory(nil),
		HealthCheck: func(context.Context) error {
			return errors.New("rabbitmq is not connected")
		},
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "rabbitmq is not connected")
}

func TestCORSPreflight(t *testing.T) {
	r := SetupRouter(&handler.Dependencies{Logger: discardLogger(), Queue: queue.NewMemory(nil)})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/v1/translate", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

type receivedCallback struct {
	language string
	text     string
	request  string
}

// TestTranslateToCallback drives a request through the router, the memory
// queue and an embedded worker to a live callback receiver
func TestTranslateToCallback(t *testing.T) {
	var (
		mu       sync.Mutex
		received []receivedCallback
	)
	done := make(chan struct{}, 10)
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		mu.Lock()
		received = append(received, receivedCallback{
			language: q.Get(domain.QueryTargetLanguage),
			text:     q.Get(domain.QueryTranslatedText),
			request:  q.Get(domain.QueryRequestID),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
		done <- struct{}{}
	}))
	defer receiver.Close()

	q := queue.NewMemory(nil)
	deliveryLog := storage.NewMemory(100)
	w, err := worker.NewWorker(&worker.Config{
		Logger:       discardLogger(),
		Queue:        q,
		HTTPClient:   receiver.Client(),
		DeliveryLog:  deliveryLog,
		IdleInterval: 20 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
		defer stopCancel()
		_ = w.Stop(stopCtx)
	}()

	r := SetupRouter(&handler.Dependencies{
		Logger:      discardLogger(),
		Queue:       q,
		DeliveryLog: deliveryLog,
		Worker:      w,
	})

	body := `{"textToTranslate":"hello","targetLanguages":["de","fr"],"requesterCallback":"` + receiver.URL + `/cb"}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/translate", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	code := rec.Body.String()

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("callback not delivered")
		}
	}

	mu.Lock()
	require.Len(t, received, 2)
	assert.Equal(t, "de", received[0].language)
	assert.Equal(t, "fr", received[1].language)
	for _, cb := range received {
		assert.Equal(t, code, cb.request)
		assert.Equal(t, "hello - should be translated to [de, fr]", cb.text)
	}
	mu.Unlock()

	// the attempt is recorded after the response is read, so poll briefly
	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/translate/"+url.PathEscape(code)+"/deliveries", nil))
		var resp struct {
			Count int `json:"count"`
		}
		return rec.Code == http.StatusOK && json.Unmarshal(rec.Body.Bytes(), &resp) == nil && resp.Count == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		var health struct {
			Worker worker.Stats `json:"worker"`
		}
		return json.Unmarshal(rec.Body.Bytes(), &health) == nil && health.Worker.Delivered == 2
	}, 2*time.Second, 10*time.Millisecond)
}
