// Package app wires configuration, storage, the discount calculator, and the
// HTTP server into a runnable service.
package app

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/peakcart/discount-service/internal/codefilter"
	"github.com/peakcart/discount-service/internal/discount"
	"github.com/peakcart/discount-service/internal/handler"
	"github.com/peakcart/discount-service/internal/postgres"
	"github.com/peakcart/discount-service/pkg/health"
	"github.com/peakcart/discount-service/pkg/httpmiddleware"
)

// Bloom pre-filter sizing for voucher code dumps.
const (
	codeFilterCapacity = 10_000_000
	codeFilterFPR      = 0.001
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)

	// Optional bloom pre-filter over voucher code dumps.
	var filter *codefilter.Filter
	if len(cfg.VoucherCodeFiles) > 0 {
		filter, err = codefilter.LoadGzipped(ctx, cfg.VoucherCodeFiles, codeFilterCapacity, codeFilterFPR)
		if err != nil {
			return errors.Wrap(err, "load voucher code filter")
		}
		lg.Info("Voucher code filter loaded", zap.Int("files", len(cfg.VoucherCodeFiles)))
	}

	// Discount calculator: rules file + stored voucher rules.
	voucherRepo := postgres.NewVoucherRepository(pool)
	registry := discount.NewRegistry()
	voucherCodes := make(map[string]string) // display name -> code

	if err := registerFileStrategies(cfg.StrategiesFile, registry, voucherCodes); err != nil {
		return err
	}
	if err := registerStoredVouchers(ctx, registry, voucherRepo, filter, voucherCodes); err != nil {
		return err
	}
	lg.Info("Strategies registered", zap.Int("count", len(registry.Strategies())))

	// Redeem stored vouchers when they fire. Auditing and counting only;
	// the pipeline outcome is already decided by then.
	applier := discount.NewApplier(discount.WithAppliedCallback(
		func(name string, amount decimal.Decimal, _ []discount.CartItem) {
			lg.Info("Discount applied",
				zap.String("discount", name),
				zap.String("amount", amount.StringFixed(2)))
			code, ok := voucherCodes[name]
			if !ok {
				return
			}
			go func() {
				redeemCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				defer cancel()
				if err := voucherRepo.IncrementRedemptions(redeemCtx, code); err != nil {
					lg.Warn("Increment voucher redemptions",
						zap.String("code", code), zap.Error(err))
				}
			}()
		}))

	service := discount.NewService(registry, applier)

	// HTTP surface.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	handler.New(service).Register(mux)

	wrapped := httpmiddleware.Wrap(mux,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type"},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.LogRequests(),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: otelhttp.NewHandler(wrapped, "discount-api",
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		),
	}

	healthSvc.SetReady(true)

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// registerFileStrategies builds strategies from the JSON descriptor file.
func registerFileStrategies(path string, registry *discount.Registry, voucherCodes map[string]string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read strategies file %s", path)
	}
	configs, err := discount.DecodeConfigs(data)
	if err != nil {
		return errors.Wrapf(err, "parse strategies file %s", path)
	}

	factory := discount.NewFactory(registry)
	for _, cfg := range configs {
		s, err := factory.Create(cfg)
		if err != nil {
			return errors.Wrapf(err, "create %s strategy", cfg.Type)
		}
		if v, ok := s.(*discount.VoucherStrategy); ok {
			voucherCodes[v.Name()] = v.Code()
		}
	}
	return nil
}

// registerStoredVouchers turns every active voucher rule in the store into a
// voucher strategy whose validator re-checks the rule at calculation time,
// preceded by the bloom membership filter when one is loaded.
func registerStoredVouchers(
	ctx context.Context,
	registry *discount.Registry,
	repo *postgres.VoucherRepository,
	filter *codefilter.Filter,
	voucherCodes map[string]string,
) error {
	rules, err := repo.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list stored vouchers")
	}

	factory := discount.NewFactory(registry)
	for _, rule := range rules {
		s, err := factory.Create(discount.Config{
			Type:           discount.TypeVoucher,
			Code:           rule.Code,
			Percentage:     rule.Percentage,
			MinCartAmount:  rule.MinCartAmount,
			MaxDiscountCap: rule.MaxDiscountCap,
			ValidUntil:     rule.ValidUntil,
			Validator:      storedVoucherValidator(repo, filter, rule.Code),
		})
		if err != nil {
			return errors.Wrapf(err, "create stored voucher %s", rule.Code)
		}
		voucherCodes[s.Name()] = rule.Code
	}
	return nil
}

func storedVoucherValidator(repo *postgres.VoucherRepository, filter *codefilter.Filter, code string) discount.ValidatorFunc {
	dbCheck := repo.ValidatorFor(code)
	return func(ctx context.Context, items []discount.CartItem, customer *discount.Customer, payment *discount.PaymentInfo) (bool, error) {
		if filter != nil && !filter.MightContain(code) {
			return false, nil
		}
		return dbCheck(ctx, items, customer, payment)
	}
}
