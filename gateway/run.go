// Copyright 2025 ClientAssist
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gateway

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/cors"

	"clientassist/platform/connectors/base"
	"clientassist/platform/connectors/config"
	"clientassist/platform/connectors/mysql"
	"clientassist/platform/connectors/postgres"
	"clientassist/platform/connectors/registry"
	"clientassist/platform/shared/logger"
)

// Run wires the gateway from environment configuration and serves HTTP until
// the process exits. Redis being down at startup is not fatal: the gateway
// runs without a shared cache and with per-instance rate limiting.
func Run() error {
	log := logger.New("gateway")

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	catalog, err := loadCatalog()
	if err != nil {
		return fmt.Errorf("failed to load function catalog: %w", err)
	}

	connectors, err := buildRegistry(log)
	if err != nil {
		return fmt.Errorf("failed to configure connectors: %w", err)
	}

	window := time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 3600)) * time.Second
	timeout := time.Duration(getEnvInt("INVOCATION_TIMEOUT_SECONDS", 30)) * time.Second

	redisClient := connectRedis(log)

	var limiter RateLimiter
	var cache ResultCache
	if redisClient != nil {
		limiter = NewRedisRateLimiter(redisClient, window, log)
		cache = NewRedisResultCache(redisClient, log)
	} else {
		limiter = NewMemoryRateLimiter(window)
		cache = NewMemoryResultCache()
	}

	dispatcher := NewDispatcher(catalog, limiter, cache, connectors, log, timeout)
	server := NewServer(dispatcher, catalog, connectors, []byte(jwtSecret), log)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{getEnv("CORS_ALLOWED_ORIGIN", "*")},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})

	port := getEnv("PORT", "8080")
	log.Info("", "", "", "gateway listening", map[string]interface{}{
		"port":      port,
		"functions": len(catalog.List()),
		"redis":     redisClient != nil,
	})
	return http.ListenAndServe(":"+port, corsHandler.Handler(server.Router()))
}

func loadCatalog() (*Catalog, error) {
	if path := os.Getenv("FUNCTIONS_FILE"); path != "" {
		return LoadCatalogFile(path)
	}
	return NewCatalog(BuiltinFunctions())
}

func buildRegistry(log *logger.Logger) (*registry.Registry, error) {
	reg := registry.NewRegistry()
	reg.SetFactory(func(connectorType string) (base.Connector, error) {
		switch connectorType {
		case "postgres":
			return postgres.NewPostgresConnector(), nil
		case "mysql":
			return mysql.NewMySQLConnector(), nil
		default:
			return nil, fmt.Errorf("unknown connector type '%s'", connectorType)
		}
	})

	if path := os.Getenv("CONNECTORS_FILE"); path != "" {
		loader, err := config.NewYAMLConfigFileLoader(path)
		if err != nil {
			return nil, err
		}
		configs, err := loader.LoadConnectors()
		if err != nil {
			return nil, err
		}
		for _, cfg := range configs {
			if err := config.ValidateConfig(cfg); err != nil {
				return nil, err
			}
			if err := reg.RegisterConfig(cfg); err != nil {
				return nil, err
			}
		}
		return reg, nil
	}

	// No file: a single postgres connector from DATABASE_URL.
	cfg, err := config.LoadPostgresConfig(defaultConnectorName)
	if err != nil {
		return nil, err
	}
	if err := reg.RegisterConfig(cfg); err != nil {
		return nil, err
	}
	log.Info("", "", "", "using default postgres connector from DATABASE_URL", nil)
	return reg, nil
}

func connectRedis(log *logger.Logger) *redis.Client {
	redisURL := getEnv("REDIS_URL", "")
	if redisURL == "" {
		log.Warn("", "", "", "REDIS_URL not set, running without shared cache and rate limits", nil)
		return nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn("", "", "", "invalid REDIS_URL, running without shared cache and rate limits", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("", "", "", "redis unreachable, running without shared cache and rate limits", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	return client
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
