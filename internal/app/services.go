package app

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/virtlight/virtlightd/internal/api"
	"github.com/virtlight/virtlightd/internal/batch"
	"github.com/virtlight/virtlightd/internal/config"
	"github.com/virtlight/virtlightd/internal/db"
	"github.com/virtlight/virtlightd/internal/eventbus"
	"github.com/virtlight/virtlightd/internal/ledger"
	"github.com/virtlight/virtlightd/internal/light"
	"github.com/virtlight/virtlightd/internal/metrics"
	"github.com/virtlight/virtlightd/internal/mqtt"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB      *db.DB
	Ledger  *ledger.Ledger
	Writes  batch.Collector
	Bus     *eventbus.Bus
	Metrics *metrics.Metrics

	// Device transport
	MQTT   *mqtt.Client
	Source *mqtt.Source

	// The composite lights
	Composites []*light.Composite

	API *api.Server
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	// Initialize database and ledger
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database
	s.Ledger = ledger.New(database.DB)

	// Coalesce ledger writes per the configured strategy
	writes, err := batch.New(
		cfg.Ledger.FlushStrategy,
		cfg.Ledger.FlushWindow.Duration(),
		cfg.Ledger.FlushSize,
		s.flushLedger,
	)
	if err != nil {
		database.Close()
		return nil, err
	}
	s.Writes = writes

	// Initialize event bus
	s.Bus = eventbus.New()

	// Initialize metrics
	registry := prometheus.NewRegistry()
	s.Metrics = metrics.New(registry)

	// Initialize MQTT transport
	s.MQTT = mqtt.NewClient(mqtt.Options{
		Broker:         cfg.MQTT.Broker,
		ClientID:       cfg.MQTT.ClientID,
		Username:       cfg.MQTT.Username,
		Password:       cfg.MQTT.Password,
		ConnectTimeout: cfg.MQTT.ConnectTimeout.Duration(),
		CommandTimeout: cfg.MQTT.CommandTimeout.Duration(),
	})
	qos := byte(cfg.MQTT.QoS)
	s.Source = mqtt.NewSource(s.MQTT, cfg.MQTT.TopicPrefix, qos, log.Logger)
	surface := mqtt.NewSurface(s.MQTT, cfg.MQTT.TopicPrefix, qos, log.Logger)

	// Build the composites. Each gets its own observing surface so that
	// command events carry the group name.
	for _, g := range cfg.Groups {
		observed := &observedSurface{group: g.Name, inner: surface, bus: s.Bus}
		composite := light.NewComposite(
			g.Name,
			toMemberIDs(g.MainLights),
			toMemberIDs(g.AuxLights),
			s.Source,
			observed,
			log.Logger,
		)
		registerRefreshObserver(composite, s.Bus)
		s.Composites = append(s.Composites, composite)
	}

	// Initialize API server
	if cfg.API.Enabled {
		var metricsHandler http.Handler
		if cfg.API.Metrics {
			metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
		}
		s.API = api.NewServer(cfg.API.Host, cfg.API.Port, s.Composites, metricsHandler)
	}

	return s, nil
}

// Start starts all services in the correct order.
func (s *Services) Start(ctx context.Context) error {
	// Connect to the broker and begin receiving device state
	if err := s.MQTT.Connect(ctx); err != nil {
		return err
	}
	if err := s.Source.Start(); err != nil {
		return err
	}

	// Register bus consumers before the composites start publishing
	s.registerObservers()

	// Attach the composites: subscribe to member changes + initial refresh
	for _, c := range s.Composites {
		c.Attach()
	}

	// Start the API server
	if s.API != nil {
		go func() {
			if err := s.API.Run(ctx, s.cfg.ShutdownTimeout.Duration()); err != nil {
				log.Error().Err(err).Msg("API server error")
			}
		}()
	}

	// Ledger retention cleanup loop
	go s.runLedgerCleanup(ctx)

	return nil
}

// runLedgerCleanup periodically enforces the ledger retention policy.
func (s *Services) runLedgerCleanup(ctx context.Context) {
	interval := s.cfg.Ledger.CleanupInterval.Duration()
	retention := time.Duration(s.cfg.Ledger.RetentionDays) * 24 * time.Hour

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.Ledger.DeleteOlderThan(retention)
			if err != nil {
				log.Error().Err(err).Msg("Ledger cleanup failed")
				continue
			}
			if deleted > 0 {
				log.Info().Int64("deleted", deleted).Msg("Ledger cleanup completed")
			}
		}
	}
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	s.Close()
	return nil
}

// Close releases all resources.
func (s *Services) Close() {
	for _, c := range s.Composites {
		c.Detach()
	}
	if s.Bus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
		defer cancel()
		s.Bus.Close(ctx)
	}
	if s.Writes != nil {
		s.Writes.Close()
	}
	if s.MQTT != nil {
		s.MQTT.Close()
	}
	if s.DB != nil {
		s.DB.Close()
	}
}

func toMemberIDs(ids []string) []light.MemberID {
	out := make([]light.MemberID, 0, len(ids))
	for _, id := range ids {
		out = append(out, light.MemberID(id))
	}
	return out
}
