package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"arenawager/events"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

// Settings selects where metrics go
type Settings struct {
	Enabled        bool
	ServiceName    string
	Environment    string
	ExporterType   string
	OTLPEndpoint   string
	ExportInterval time.Duration
}

// MetricsProvider manages OpenTelemetry metrics for the wager service
type MetricsProvider struct {
	settings      Settings
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	// Metric instruments
	wagersCreatedCounter       metric.Int64Counter
	wagersAcceptedCounter      metric.Int64Counter
	wagersResolvedCounter      metric.Int64Counter
	wagersCancelledCounter     metric.Int64Counter
	wagersActiveGauge          metric.Int64UpDownCounter
	taxCollectedCounter        metric.Float64Counter
	balanceTransactionsCounter metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(settings Settings) *MetricsProvider {
	return &MetricsProvider{
		settings: settings,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	if !mp.settings.Enabled {
		log.Info("OpenTelemetry metrics disabled")
		return nil
	}

	var (
		exporter sdkmetric.Exporter
		err      error
	)
	switch mp.settings.ExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.settings.OTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.settings.OTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.settings.ExporterType)
	}

	interval := mp.settings.ExportInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return mp.InitializeWithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)))
}

// InitializeWithReader builds the meter provider around an explicit reader
func (mp *MetricsProvider) InitializeWithReader(reader sdkmetric.Reader) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Warn("Metrics provider already initialized")
		return nil
	}

	serviceName := mp.settings.ServiceName
	if serviceName == "" {
		serviceName = "arenawager"
	}
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			attribute.String("environment", mp.settings.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter("arenawager")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	log.Info("Metrics provider initialized successfully")
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	var err error

	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&mp.wagersCreatedCounter, WagersCreatedTotal, "Total number of wager offers created"},
		{&mp.wagersAcceptedCounter, WagersAcceptedTotal, "Total number of wager offers accepted"},
		{&mp.wagersResolvedCounter, WagersResolvedTotal, "Total number of matches resolved with a winner"},
		{&mp.wagersCancelledCounter, WagersCancelledTotal, "Total number of wagers cancelled and refunded"},
		{&mp.balanceTransactionsCounter, BalanceTransactionsTotal, "Total number of wallet balance changes"},
	}
	for _, c := range counters {
		*c.target, err = mp.meter.Int64Counter(c.name, metric.WithDescription(c.description), metric.WithUnit("1"))
		if err != nil {
			return fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
	}

	// UpDownCounter for gauge-like behavior
	mp.wagersActiveGauge, err = mp.meter.Int64UpDownCounter(
		WagersActive,
		metric.WithDescription("Current number of active wagers"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create wagers active gauge: %w", err)
	}

	mp.taxCollectedCounter, err = mp.meter.Float64Counter(
		TaxCollectedTotal,
		metric.WithDescription("Total tax withheld from match pots"),
	)
	if err != nil {
		return fmt.Errorf("failed to create tax counter: %w", err)
	}

	return nil
}

func (mp *MetricsProvider) ready() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized
}

// Subscribe records metrics for lifecycle and balance events
func (mp *MetricsProvider) Subscribe(bus *events.Bus) {
	bus.SubscribeMany(mp.record,
		events.EventTypeOfferCreated,
		events.EventTypeOfferAccepted,
		events.EventTypeMatchResolved,
		events.EventTypeWagerCancelled,
		events.EventTypeWagerSettled,
		events.EventTypeBalanceChange,
	)
}

func (mp *MetricsProvider) record(ctx context.Context, event events.Event) {
	if !mp.ready() {
		return
	}

	switch e := event.(type) {
	case events.OfferCreatedEvent:
		mp.wagersCreatedCounter.Add(ctx, 1)
		mp.wagersActiveGauge.Add(ctx, 1)
	case events.OfferAcceptedEvent:
		mp.wagersAcceptedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String(LabelArena, e.ArenaID)))
	case events.MatchResolvedEvent:
		mp.wagersResolvedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String(LabelArena, e.ArenaID)))
		tax, _ := e.Result.Tax.Float64()
		mp.taxCollectedCounter.Add(ctx, tax)
	case events.WagerCancelledEvent:
		mp.wagersCancelledCounter.Add(ctx, 1, metric.WithAttributes(attribute.String(LabelReason, e.Reason)))
		mp.wagersActiveGauge.Add(ctx, -1)
	case events.WagerSettledEvent:
		mp.wagersActiveGauge.Add(ctx, -1)
	case events.BalanceChangeEvent:
		mp.balanceTransactionsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String(LabelType, string(e.TransactionType))))
	}
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider == nil {
		return nil
	}

	log.Info("Shutting down metrics provider")
	if err := mp.meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	mp.meterProvider = nil
	mp.initialized = false
	return nil
}
