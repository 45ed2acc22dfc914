// cmd/engine-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"crm-engine/internal/common/config"
	"crm-engine/internal/common/database"
	"crm-engine/internal/common/genai"
	"crm-engine/internal/common/logger"
	"crm-engine/internal/common/observability"
	"crm-engine/internal/engine/contextbuilder"
	"crm-engine/internal/engine/matcher"
	"crm-engine/internal/engine/scoring"
	"crm-engine/internal/engine/suggest"
	"crm-engine/internal/store"
	"crm-engine/pkg/registry"

	mc "crm-engine/internal/workers/lead/match-communication"
	sl "crm-engine/internal/workers/lead/score-lead"
	sa "crm-engine/internal/workers/lead/suggest-actions"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting engine manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("engine-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebeClient zbc.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebeClient, err = zbc.NewClient(&zbc.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch with retry (optional) ---
	var threadSearch *store.ThreadSearch
	if cfg.Database.Elasticsearch.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		threadSearch = store.NewThreadSearch(esClient.Client, cfg.Database.Elasticsearch.ThreadIndex, log)
		zapLog.Info("Elasticsearch connected successfully")
	} else {
		zapLog.Info("Elasticsearch disabled, participant search uses SQL only")
	}

	// --- Shared engine components ---
	st := store.New(pg.DB, log)
	aiClient := genai.New(cfg.AI, log)
	cacheTTL := time.Duration(cfg.Scoring.CacheTTLSeconds) * time.Second

	// When the search index is up, thread lookups resolve candidate ids
	// through it and hydrate from SQL; otherwise pure SQL overlap.
	var reader contextbuilder.Reader = st
	if threadSearch != nil {
		reader = store.NewSearchingStore(st, threadSearch, log)
	}

	leadMatcher := matcher.New(st, cfg.Matching.FreeEmailDomains, log)
	assembler := contextbuilder.New(reader, redisClient.Client, cacheTTL, log)
	orchestrator := scoring.New(aiClient, log)
	materializer := suggest.New(st, log)

	// --- Register Workers ---
	if cfg.Workers[mc.TaskType].Enabled {
		handler := mc.NewHandler(
			&mc.Config{
				Timeout: time.Duration(cfg.Workers[mc.TaskType].Timeout) * time.Millisecond,
			},
			leadMatcher, st, assembler, log,
		)
		startWorker(zeebeClient, mc.TaskType, cfg.Workers[mc.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[sl.TaskType].Enabled {
		handler := sl.NewHandler(
			&sl.Config{
				Timeout:              time.Duration(cfg.Workers[sl.TaskType].Timeout) * time.Millisecond,
				RescoreThresholdDays: cfg.Scoring.RescoreThresholdDays,
			},
			assembler, orchestrator, st, log,
		)
		startWorker(zeebeClient, sl.TaskType, cfg.Workers[sl.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[sa.TaskType].Enabled {
		handler := sa.NewHandler(
			&sa.Config{
				Timeout:               time.Duration(cfg.Workers[sa.TaskType].Timeout) * time.Millisecond,
				SuggestThresholdHours: cfg.Scoring.SuggestThresholdHours,
			},
			assembler, orchestrator, materializer, st, log,
		)
		startWorker(zeebeClient, sa.TaskType, cfg.Workers[sa.TaskType], handler.Handle, zapLog)
	}

	zapLog.Info("All engine workers registered successfully")

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/registry", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(registry.EngineTasks())
		})
		if threadSearch != nil {
			// Debug lookup: which threads would participant search surface
			// for a given email.
			http.HandleFunc("/debug/thread-search", func(w http.ResponseWriter, r *http.Request) {
				email := r.URL.Query().Get("email")
				if email == "" {
					http.Error(w, "email query parameter is required", http.StatusBadRequest)
					return
				}
				ids, err := threadSearch.FindThreadIDsByParticipants(r.Context(), []string{email}, 20)
				if err != nil {
					http.Error(w, err.Error(), http.StatusBadGateway)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]interface{}{"threadIds": ids})
			})
		}
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")

	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Engine manager stopped gracefully")
}

func startWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handlerFunc func(worker.JobClient, entities.Job), log *zap.Logger) {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return
	}

	client.NewJobWorker().
		JobType(taskType).
		Handler(handlerFunc).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	log.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)
}
