package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Zhima-Mochi/sportsphere/internal/application"
	appaccount "github.com/Zhima-Mochi/sportsphere/internal/application/account"
	appcart "github.com/Zhima-Mochi/sportsphere/internal/application/cart"
	appcatalog "github.com/Zhima-Mochi/sportsphere/internal/application/catalog"
	apporder "github.com/Zhima-Mochi/sportsphere/internal/application/order"
	apppay "github.com/Zhima-Mochi/sportsphere/internal/application/payment"
	"github.com/Zhima-Mochi/sportsphere/internal/config"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/account"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/cart"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/catalog"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/money"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/sportsphere/internal/domain/outbox"
	"github.com/Zhima-Mochi/sportsphere/internal/infrastructure/auth"
	"github.com/Zhima-Mochi/sportsphere/internal/infrastructure/id"
	"github.com/Zhima-Mochi/sportsphere/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/sportsphere/internal/infrastructure/notify"
	infraobs "github.com/Zhima-Mochi/sportsphere/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/sportsphere/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/sportsphere/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/sportsphere/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/sportsphere/internal/infrastructure/outbox"
	infrapay "github.com/Zhima-Mochi/sportsphere/internal/infrastructure/payment"
	"github.com/Zhima-Mochi/sportsphere/internal/infrastructure/postgres"
	"github.com/Zhima-Mochi/sportsphere/internal/infrastructure/rabbitmq"
	rediscart "github.com/Zhima-Mochi/sportsphere/internal/infrastructure/redis"
	"github.com/Zhima-Mochi/sportsphere/internal/observability"
	"github.com/Zhima-Mochi/sportsphere/internal/pkg/logging"
	httppresentation "github.com/Zhima-Mochi/sportsphere/internal/presentation/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(getenvDefault("CONFIG_FILE", config.DefaultFile))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	baseLogger := logging.MustNewLogger(logging.Options{
		Service: cfg.Service.Name,
		Env:     cfg.Service.Env,
		Level:   cfg.Service.LogLevel,
		File:    cfg.Service.LogFile,
	})
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	systemLogger := logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	tel := infraobs.NewStandard(
		prometrics.New(prometheus.DefaultRegisterer, "", ""),
		oteltrace.New(cfg.Service.Name),
		zaplogger.Wrap(baseLogger),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	store, closer, err := openStorage(cfg.Database)
	if err != nil {
		systemLogger.Error("storage_open_failed", zap.Error(err))
		return
	}
	if closer != nil {
		closers = append(closers, closer)
	}

	carts, closer, err := openCartStore(ctx, cfg.Redis)
	if err != nil {
		systemLogger.Error("cart_store_open_failed", zap.Error(err))
		return
	}
	if closer != nil {
		closers = append(closers, closer)
	}

	// In-process event bus; the notify worker forwards to RabbitMQ when configured.
	bus := outbox.NewBus(tel)
	forwarder, closer, err := openForwarder(ctx, cfg.AMQP, tel.Logger())
	if err != nil {
		systemLogger.Error("amqp_open_failed", zap.Error(err))
		return
	}
	if closer != nil {
		closers = append(closers, closer)
	}
	notify.New(bus, forwarder, "rabbitmq", tel).Start()
	bus.Start(ctx)

	idGenerator := id.NewUUIDGenerator()
	issuer, err := auth.NewJWTIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		systemLogger.Error("token_issuer_failed", zap.Error(err))
		return
	}

	accountService := appaccount.NewService(store.accounts, auth.NewBcryptHasher(cfg.Auth.BcryptCost), issuer, idGenerator, tel)
	catalogService := appcatalog.NewService(store.products, idGenerator, tel)
	orderService := apporder.NewService(store.uow, store.orders, store.accounts, pricingPolicy(cfg), idGenerator, bus, tel)
	registry, public := paymentProviders(cfg, idGenerator, tel)
	gateway := apppay.NewGateway(orderService, registry, public, cfg.URLs.Frontend, idGenerator, tel)
	cartService := appcart.NewService(carts, catalogService, tel)

	if cfg.Auth.AdminEmail != "" {
		if err := accountService.Bootstrap(ctx, cfg.Auth.AdminEmail); err != nil {
			systemLogger.Warn("admin_bootstrap_skipped",
				zap.String("email", cfg.Auth.AdminEmail),
				zap.Error(err),
			)
		}
	}

	handler := httppresentation.NewHandler(httppresentation.Services{
		Accounts: accountService,
		Catalog:  catalogService,
		Orders:   orderService,
		Payments: gateway,
		Carts:    cartService,
		IDs:      idGenerator,
	}, tel)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           mux,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	go func() {
		systemLogger.Info("http_server_start",
			zap.String("addr", server.Addr),
			zap.Strings("payment_methods", methodNames(registry)),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			systemLogger.Error("http_server_error",
				zap.Error(err),
			)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error",
			zap.Error(err),
		)
	} else {
		systemLogger.Info("http_server_stopped")
	}
	bus.Stop(shutdownCtx)
}

type storage struct {
	products catalog.Repository
	accounts account.Repository
	orders   order.Repository
	uow      order.UnitOfWork
}

// openStorage uses postgres when a DSN is configured and memory otherwise.
func openStorage(cfg config.DatabaseConfig) (storage, io.Closer, error) {
	if cfg.DSN == "" {
		products := memory.NewProductRepository()
		orders := memory.NewOrderRepository()
		return storage{
			products: products,
			accounts: memory.NewAccountRepository(),
			orders:   orders,
			uow:      memory.NewUnitOfWork(orders, products),
		}, nil, nil
	}

	db, err := postgres.Open(postgres.Options{
		DSN:             cfg.DSN,
		Replicas:        cfg.Replicas,
		MaxIdleConns:    cfg.MaxIdleConns,
		MaxOpenConns:    cfg.MaxOpenConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		AutoMigrate:     cfg.AutoMigrate,
	})
	if err != nil {
		return storage{}, nil, err
	}
	return storage{
		products: postgres.NewProductRepository(db),
		accounts: postgres.NewAccountRepository(db),
		orders:   postgres.NewOrderRepository(db),
		uow:      postgres.NewUnitOfWork(db),
	}, closerFunc(func() error { return postgres.Close(db) }), nil
}

func openCartStore(ctx context.Context, cfg config.RedisConfig) (cart.Store, io.Closer, error) {
	if cfg.Addr == "" {
		return memory.NewCartStore(), nil, nil
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	store := rediscart.NewCartStore(client, cfg.CartTTL)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return store, client, nil
}

func openForwarder(ctx context.Context, cfg config.AMQPConfig, log observability.Logger) (domoutbox.Publisher, io.Closer, error) {
	if cfg.URL == "" {
		return nil, nil, nil
	}
	conn, ch, err := rabbitmq.SetupConn(ctx, cfg.URL, cfg.Exchange, log)
	if err != nil {
		return nil, nil, err
	}
	return rabbitmq.NewPublisher(ch, cfg.Exchange), closerFunc(func() error {
		_ = ch.Close()
		return conn.Close()
	}), nil
}

func pricingPolicy(cfg *config.Config) order.Policy {
	p := order.Policy{
		TaxRate:               cfg.Pricing.TaxRate,
		FlatShipping:          money.FromFloat(cfg.Pricing.FlatShipping),
		FreeShippingThreshold: money.FromFloat(cfg.Pricing.FreeShippingThreshold),
	}
	if cfg.Payment.COD.Enabled {
		p.CODSurcharge = money.FromFloat(cfg.Payment.COD.Surcharge)
		p.CODMaxAmount = money.FromFloat(cfg.Payment.COD.MaxAmount)
	}
	return p
}

// paymentProviders registers the enabled providers and the metadata the
// storefront reads from /api/payment/config.
func paymentProviders(cfg *config.Config, ids application.IDGenerator, tel observability.Observability) (*apppay.Registry, apppay.PublicConfig) {
	pc := cfg.Payment
	var providers []apppay.Provider
	var public apppay.PublicConfig

	if pc.COD.Enabled {
		providers = append(providers, infrapay.COD{
			Surcharge: money.FromFloat(pc.COD.Surcharge),
			MaxAmount: money.FromFloat(pc.COD.MaxAmount),
		})
		public.COD.Enabled = true
		public.COD.MaxAmount = money.FromFloat(pc.COD.MaxAmount)
		public.COD.Charges = money.FromFloat(pc.COD.Surcharge)
	}
	if pc.BankTransfer.Enabled {
		instructions := pc.BankTransfer.Instructions
		if len(instructions) == 0 {
			instructions = infrapay.DefaultBankInstructions
		}
		providers = append(providers, infrapay.NewBankTransfer(pc.BankTransfer.Details, instructions))
		public.BankTransfer.Enabled = true
		public.BankTransfer.Details = pc.BankTransfer.Details
	}
	if pc.Khalti.Enabled {
		providers = append(providers, infrapay.NewKhalti(infrapay.KhaltiConfig{
			PublicKey:     pc.Khalti.PublicKey,
			SecretKey:     pc.Khalti.SecretKey,
			PaymentURL:    pc.Khalti.PaymentURL,
			WebhookSecret: pc.Khalti.WebhookSecret,
		}, ids))
		public.Khalti.Enabled = true
		public.Khalti.PublicKey = pc.Khalti.PublicKey
	}
	if pc.Esewa.Enabled {
		esewa := infrapay.NewEsewa(infrapay.EsewaConfig{
			MerchantCode: pc.Esewa.MerchantCode,
			SecretKey:    pc.Esewa.SecretKey,
			FormURL:      pc.Esewa.FormURL,
			StatusURL:    pc.Esewa.StatusURL,
			SuccessURL:   cfg.URLs.Backend + "/api/payment/esewa/success",
			FailureURL:   cfg.URLs.Backend + "/api/payment/esewa/failure",
			Timeout:      pc.Esewa.VerifyTimeout,
			Retries:      pc.Esewa.VerifyRetries,
		}, &http.Client{}, tel)
		providers = append(providers, esewa)
		public.Esewa.Enabled = true
		public.Esewa.MerchantID = pc.Esewa.MerchantCode
		if public.Esewa.MerchantID == "" {
			public.Esewa.MerchantID = infrapay.EsewaTestMerchant
		}
	}
	return apppay.NewRegistry(providers...), public
}

func methodNames(r *apppay.Registry) []string {
	methods := r.Methods()
	out := make([]string, 0, len(methods))
	for _, m := range methods {
		out = append(out, string(m))
	}
	return out
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
