package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MemoryDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, "order.events", cfg.KafkaTopic)
	assert.Equal(t, 30*time.Minute, cfg.PendingOrderTTL)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.IsProd())
}

func TestLoad_ParsesLists(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("PENDING_ORDER_TTL", "15m")
	t.Setenv("GO_ENV", "prod")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 15*time.Minute, cfg.PendingOrderTTL)
	assert.True(t, cfg.IsProd())
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", map[string]string{"STORAGE_DRIVER": "memory"}, "JWT_SECRET is required"},
		{"postgres without user", map[string]string{"JWT_SECRET": "s", "POSTGRES_DB": "shop"}, "POSTGRES_USER is required"},
		{"unknown driver", map[string]string{"JWT_SECRET": "s", "STORAGE_DRIVER": "mongo"}, "STORAGE_DRIVER must be postgres or memory"},
		{"bad ttl", map[string]string{"JWT_SECRET": "s", "STORAGE_DRIVER": "memory", "PENDING_ORDER_TTL": "soon"}, "PENDING_ORDER_TTL must be duration"},
		{"bad port", map[string]string{"JWT_SECRET": "s", "POSTGRES_PORT": "x"}, "POSTGRES_PORT must be number"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, k := range []string{"JWT_SECRET", "STORAGE_DRIVER", "POSTGRES_USER", "POSTGRES_DB", "DATABASE_URL", "PENDING_ORDER_TTL", "POSTGRES_PORT"} {
				t.Setenv(k, "")
			}
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
