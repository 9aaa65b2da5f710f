package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/qarzdaftar/backend/internal/config"
	"github.com/qarzdaftar/backend/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() config.Config {
	return config.Config{
		Env:             "dev",
		Store:           "memory",
		JWTSecret:       "secret",
		JWTIssuer:       "qarzdaftar",
		JWTTTL:          time.Hour,
		Timezone:        "Asia/Tashkent",
		CronSchedule:    "0 9 * * *",
		LinkTTL:         10 * time.Minute,
		ExpoPushURL:     "http://127.0.0.1:1/push",
		PushBatchSize:   100,
		DeliveryTimeout: time.Second,
		DeliveryWorkers: 2,
	}
}

func TestNewWithMemoryStore(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(), logger.Discard())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Bot)
	assert.False(t, a.Linker.Configured())
	assert.NoError(t, a.RegisterWebhook(context.Background()))

	rep, err := a.Sweep.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, rep.Created)

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := memoryConfig()
	cfg.CronSchedule = "every day"
	_, err := New(context.Background(), cfg, logger.Discard())
	assert.Error(t, err)
}
