package di

import (
	"context"
	"fmt"
	"time"

	"StockCast/internal/domain/repository"
	"StockCast/internal/handler/api"
	internalrepo "StockCast/internal/repository"
	icache "StockCast/internal/service/cache"
	fmetrics "StockCast/internal/service/metrics"
	"StockCast/internal/services/forecast"
	"StockCast/internal/usecase"
	pkgcache "StockCast/pkg/cache"
	pkgch "StockCast/pkg/clickhouse"
	"StockCast/pkg/config"
	xhttp "StockCast/pkg/http"
	pkgkafka "StockCast/pkg/kafka"
	applogger "StockCast/pkg/logger"
	"StockCast/pkg/metrics"
	pkgqueue "StockCast/pkg/queue"
	"StockCast/pkg/server"

	"github.com/redis/go-redis/v9"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvidePriceStore creates the daily bar repository and its schema.
func ProvidePriceStore(chClient *pkgch.Client, l *applogger.Logger) (repository.PriceStore, error) {
	store := internalrepo.NewCHPriceStore(chClient)
	store.SetLogger(l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("price store schema: %w", err)
	}
	return store, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	fmetrics.Register()
	return metrics.New()
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is
// disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, 1<<20, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideForecastPublisher creates the Kafka forecast publisher, or
// nil when Kafka is disabled.
func ProvideForecastPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaForecastPublisher(producer, cfg.Kafka.ForecastsTopic)
}

// ProvideKafkaConsumer creates the bar ingest consumer, or nil when
// Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NoopHook{})
	return consumer, nil
}

// ProvideBarsHandler registers the handler for the daily bars topic.
func ProvideBarsHandler(store repository.PriceStore, m repository.Metrics, cfg *config.Config) *usecase.KafkaBarsHandler {
	return usecase.NewKafkaBarsHandler(cfg.Kafka.BarsTopic, store, m)
}

// ProvideRedisCache creates the shared Redis cache client, or nil when
// Redis is disabled.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisAddr(cfg.Redis.Addr),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvidePredictionCache builds the forecast memoization layer. Redis
// acts as a second level when enabled.
func ProvidePredictionCache(cfg *config.Config, m repository.Metrics, rc *pkgcache.RedisCache) *icache.PredictionCache {
	opts := []icache.Option{icache.WithMetrics(m)}
	if rc != nil {
		opts = append(opts, icache.WithL2(rc))
	}
	return icache.NewPredictionCache(cfg.Forecast.CacheTTL, opts...)
}

// ProvideResponseCache builds the short-TTL cache for read endpoints
// like candles. Layered over Redis when available, plain memory
// otherwise.
func ProvideResponseCache(rc *pkgcache.RedisCache) pkgcache.Service {
	if rc != nil {
		return pkgcache.NewLayeredCache(rc)
	}
	return pkgcache.NewMemoryCache()
}

// ProvideCacheWarmer creates the watchlist warmup worker, or nil when
// warmup is disabled.
func ProvideCacheWarmer(cfg *config.Config, predictor *usecase.Predictor, l *applogger.Logger) *usecase.CacheWarmer {
	if !cfg.Warmup.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	q := pkgqueue.NewRedisQueue(l, &pkgqueue.Config{
		Workers:    cfg.Warmup.Workers,
		RetryLimit: cfg.Warmup.RetryMax,
		RetryDelay: 30 * time.Second,
	}, client)
	job := usecase.NewWarmupJob(predictor, cfg.Forecast, l)
	return usecase.NewCacheWarmer(q, job, cfg.Warmup.Symbols, cfg.Warmup.Interval, l)
}

// ProvideRegistry creates the model backend registry.
func ProvideRegistry(cfg *config.Config, l *applogger.Logger) *forecast.Registry {
	return forecast.NewRegistry(cfg.Forecast, l)
}

// ProvidePredictor creates the forecast use case.
func ProvidePredictor(
	store repository.PriceStore,
	registry *forecast.Registry,
	cache *icache.PredictionCache,
	publisher repository.Publisher,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.Predictor {
	return usecase.NewPredictor(store, registry, cache, publisher, m, cfg.Forecast, l)
}

// ProvideHTTPHandler creates the Echo API handler.
func ProvideHTTPHandler(l *applogger.Logger, predictor *usecase.Predictor, store repository.PriceStore, respCache pkgcache.Service) xhttp.Handler {
	return api.NewForecastEchoHandler(l, predictor, store, respCache)
}

// producerLogPublisher adapts the Kafka producer to the log
// aggregation Publisher contract.
type producerLogPublisher struct {
	p *pkgkafka.Producer
}

func (a producerLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return a.p.Publish(ctx, topic, nil, payload)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	consumer *pkgkafka.Consumer,
	barsHdl *usecase.KafkaBarsHandler,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	warmer *usecase.CacheWarmer,
) *server.App {
	var mh pkgkafka.MessageHandler
	if barsHdl != nil {
		mh = barsHdl
	}
	if producer != nil && cfg.Kafka.LogsTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogsTopic,
			Publisher:      producerLogPublisher{producer},
		})
	}
	app := server.New(cfg, l, handler, consumer, mh, producer, chClient)
	app.SetWarmer(warmer)
	return app
}
