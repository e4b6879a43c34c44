package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nemonet1337/sedoriKeeper/internal/config"
	"github.com/nemonet1337/sedoriKeeper/pkg/sedori"
	"github.com/nemonet1337/sedoriKeeper/pkg/sedori/cache"
	"github.com/nemonet1337/sedoriKeeper/pkg/sedori/storage"
)

func main() {
	// 設定読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("設定読み込みに失敗しました:", err)
	}

	// ログ設定
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		log.Fatal("ログ初期化に失敗しました:", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// データベース接続
	store, err := storage.NewPostgreSQLStorage(ctx, cfg.DSN(), storage.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("データベース接続に失敗しました", zap.Error(err))
	}
	defer store.Close()

	// レポートキャッシュ（任意）
	var (
		reportCache sedori.ReportCache
		publisher   sedori.EventPublisher
	)
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		redisCache := cache.NewRedisReportCache(client, cfg.Redis.Prefix, cfg.Sedori.ReportTTL, logger)
		if err := redisCache.Ping(ctx); err != nil {
			// キャッシュなしで起動を続ける
			logger.Warn("Redisに接続できません。キャッシュなしで起動します", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			client.Close()
		} else {
			defer redisCache.Close()
			reportCache = redisCache
			publisher = redisCache
			logger.Info("Redisレポートキャッシュを有効化しました", zap.String("addr", cfg.Redis.Addr))
		}
	}

	// 帳簿サービス初期化
	serviceConfig := cfg.Service()
	manager := sedori.NewManager(store, publisher, logger, serviceConfig)
	tracker := sedori.NewTrackingManager(store, logger)
	reporter := sedori.NewReporter(store, reportCache, logger, serviceConfig)

	// メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := NewMetrics(registry)

	// HTTPハンドラー設定
	handlers := NewHandlers(manager, tracker, reporter, store, serviceConfig, metrics, logger)
	router := setupRouter(handlers, routerOptions{
		gatherer:      registry,
		enableCORS:    cfg.API.EnableCORS,
		enableMetrics: cfg.API.EnableMetrics,
	})

	// HTTPサーバー設定
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.API.Port),
		Handler:      router,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		IdleTimeout:  cfg.API.IdleTimeout,
	}

	// グレースフルシャットダウン設定
	go func() {
		logger.Info("せどり帳簿APIサーバーを開始します", zap.Int("port", cfg.API.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("サーバー開始に失敗しました", zap.Error(err))
		}
	}()

	// シャットダウンシグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています...")

	// グレースフルシャットダウン
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("サーバーシャットダウンに失敗しました", zap.Error(err))
	}

	logger.Info("サーバーが正常に停止しました")
}

// newLogger LOG_FORMATとLOG_LEVELに従ってロガーを作成
func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zapConfig = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("無効なログレベル: %w", err)
	}
	zapConfig.Level = level

	return zapConfig.Build()
}

type routerOptions struct {
	gatherer      prometheus.Gatherer
	enableCORS    bool
	enableMetrics bool
}

// setupRouter sets up HTTP routes
// HTTPルートを設定
func setupRouter(handlers *Handlers, opts routerOptions) *mux.Router {
	router := mux.NewRouter()

	// ヘルスチェック
	router.HandleFunc("/health", handlers.HealthCheck).Methods("GET")
	if opts.enableMetrics && opts.gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(opts.gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}

	// API v1ルート
	api := router.PathPrefix("/api/v1").Subrouter()

	// 取引
	api.HandleFunc("/transactions", handlers.ListTransactions).Methods("GET")
	api.HandleFunc("/transactions", handlers.CreateTransaction).Methods("POST")
	api.HandleFunc("/transactions/{transactionId}", handlers.GetTransaction).Methods("GET")
	api.HandleFunc("/transactions/{transactionId}", handlers.UpdateTransaction).Methods("PUT")
	api.HandleFunc("/transactions/{transactionId}", handlers.DeleteTransaction).Methods("DELETE")
	api.HandleFunc("/transactions/{transactionId}/estimate", handlers.EstimateWholeSale).Methods("POST")
	api.HandleFunc("/transactions/{transactionId}/return", handlers.MarkReturned).Methods("POST")
	api.HandleFunc("/transactions/{transactionId}/point-status", handlers.UpdatePointStatus).Methods("PUT")

	// 販売
	api.HandleFunc("/transactions/{transactionId}/sales", handlers.ListSales).Methods("GET")
	api.HandleFunc("/transactions/{transactionId}/sales", handlers.RecordSale).Methods("POST")
	api.HandleFunc("/sales/{salesRecordId}", handlers.CancelSale).Methods("DELETE")

	// マスタデータ
	api.HandleFunc("/payment-methods", handlers.ListPaymentMethods).Methods("GET")
	api.HandleFunc("/payment-methods", handlers.CreatePaymentMethod).Methods("POST")
	api.HandleFunc("/payment-methods/{id}", handlers.DeletePaymentMethod).Methods("DELETE")

	api.HandleFunc("/points-platforms", handlers.ListPointsPlatforms).Methods("GET")
	api.HandleFunc("/points-platforms", handlers.CreatePointsPlatform).Methods("POST")
	api.HandleFunc("/points-platforms/{id}", handlers.DeletePointsPlatform).Methods("DELETE")

	api.HandleFunc("/supplies", handlers.ListSuppliesCosts).Methods("GET")
	api.HandleFunc("/supplies", handlers.CreateSuppliesCost).Methods("POST")
	api.HandleFunc("/supplies/{id}", handlers.DeleteSuppliesCost).Methods("DELETE")

	api.HandleFunc("/bank-accounts", handlers.ListBankAccounts).Methods("GET")
	api.HandleFunc("/bank-accounts", handlers.CreateBankAccount).Methods("POST")
	api.HandleFunc("/bank-accounts/{id}/balance", handlers.UpdateBankBalance).Methods("PUT")
	api.HandleFunc("/bank-accounts/{id}", handlers.DeleteBankAccount).Methods("DELETE")

	api.HandleFunc("/coupons", handlers.ListCoupons).Methods("GET")
	api.HandleFunc("/coupons", handlers.CreateCoupon).Methods("POST")
	api.HandleFunc("/coupons/{id}/use", handlers.UseCoupon).Methods("POST")
	api.HandleFunc("/coupons/{id}", handlers.DeleteCoupon).Methods("DELETE")

	// ダッシュボード・追跡
	api.HandleFunc("/dashboard", handlers.Dashboard).Methods("GET")
	api.HandleFunc("/tracking/payments", handlers.UpcomingPayments).Methods("GET")
	api.HandleFunc("/tracking/coupons", handlers.ExpiringCoupons).Methods("GET")
	api.HandleFunc("/tracking/points", handlers.PendingPoints).Methods("GET")

	// レポート
	api.HandleFunc("/reports/tax/{year:[0-9]+}.csv", handlers.TaxReportCSV).Methods("GET")
	api.HandleFunc("/reports/tax/{year:[0-9]+}", handlers.TaxReport).Methods("GET")

	// 計算
	api.HandleFunc("/calc/payment-date", handlers.CalcPaymentDate).Methods("POST")
	api.HandleFunc("/calc/water-level", handlers.CalcWaterLevel).Methods("POST")

	// CORS設定
	if opts.enableCORS {
		router.Use(corsMiddleware)
	}

	// メトリクス・ログ
	if handlers.metrics != nil {
		router.Use(handlers.metrics.Middleware)
	}
	router.Use(loggingMiddleware(handlers.logger))

	return router
}

// corsMiddleware CORSヘッダーを付与
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
// HTTPリクエストをログ出力するミドルウェア
func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// リクエスト処理
			next.ServeHTTP(w, r)

			// ログ出力
			logger.Info("HTTPリクエスト",
				zap.String("method", r.Method),
				zap.String("url", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
