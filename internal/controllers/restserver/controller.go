package restserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/chrissnell/hydrograph/internal/hydrograph"
	"github.com/chrissnell/hydrograph/internal/log"
	"github.com/chrissnell/hydrograph/internal/qualifier"
	"github.com/chrissnell/hydrograph/internal/storage"
	"github.com/chrissnell/hydrograph/pkg/config"
)

const defaultRequestLogSize = 200

// Controller represents the REST server controller
type Controller struct {
	ctx           context.Context
	wg            *sync.WaitGroup
	restConfig    config.RESTServerData
	Server        http.Server
	Sites         []config.SiteData
	sitesByID     map[string]*config.SiteData
	Source        storage.SeriesSource
	Health        *storage.HealthManager
	Builder       *hydrograph.Builder
	DefaultPeriod time.Duration
	RequestLog    *log.HTTPLogBuffer
	logger        *zap.SugaredLogger
	handlers      *Handlers
	now           func() time.Time
}

// NewController creates a new REST server controller serving series from source
func NewController(ctx context.Context, wg *sync.WaitGroup, cfg *config.ConfigData, rc config.RESTServerData, source storage.SeriesSource, health *storage.HealthManager, logger *zap.SugaredLogger) (*Controller, error) {
	if source == nil {
		return nil, fmt.Errorf("REST server requires a series source")
	}

	gap, err := cfg.Chart.GapThresholdDuration()
	if err != nil {
		return nil, fmt.Errorf("invalid gap threshold: %w", err)
	}
	period, err := cfg.Chart.DefaultPeriodDuration()
	if err != nil {
		return nil, fmt.Errorf("invalid default period: %w", err)
	}

	if health == nil {
		health = storage.NewHealthManager()
	}

	ctrl := &Controller{
		ctx:        ctx,
		wg:         wg,
		restConfig: rc,
		Sites:      cfg.Sites,
		sitesByID:  make(map[string]*config.SiteData, len(cfg.Sites)),
		Source:     source,
		Health:     health,
		Builder: &hydrograph.Builder{
			Vocabulary:    qualifier.Default().With(cfg.Chart.MaskQualifiers),
			GapThreshold:  gap,
			DomainPadding: cfg.Chart.Padding(),
		},
		DefaultPeriod: period,
		logger:        logger,
		now:           time.Now,
	}

	for i := range ctrl.Sites {
		ctrl.sitesByID[ctrl.Sites[i].ID] = &ctrl.Sites[i]
	}

	// If a ListenAddr was not provided, listen on all interfaces
	if rc.ListenAddr == "" {
		logger.Info("rest.listen_addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		rc.ListenAddr = "0.0.0.0"
	}

	// Set default HTTP port if not specified
	if rc.Port == 0 {
		logger.Info("rest.port not provided; defaulting to 8080")
		rc.Port = 8080
	}

	if rc.RequestLogSize == 0 {
		rc.RequestLogSize = defaultRequestLogSize
	}
	ctrl.restConfig = rc
	ctrl.RequestLog = log.NewHTTPLogBuffer(rc.RequestLogSize)

	ctrl.handlers = NewHandlers(ctrl)

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", rc.ListenAddr, rc.Port)
	ctrl.Server.Handler = ctrl.setupRouter()
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second

	return ctrl, nil
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	log.Info("Starting REST server controller...")
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		if c.restConfig.Cert != "" && c.restConfig.Key != "" {
			if err := c.Server.ListenAndServeTLS(c.restConfig.Cert, c.restConfig.Key); err != http.ErrServerClosed {
				log.Errorf("REST server error: %v", err)
			}
		} else {
			if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
				log.Errorf("REST server error: %v", err)
			}
		}
	}()

	go func() {
		<-c.ctx.Done()
		log.Info("Shutting down the REST server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.Server.Shutdown(shutdownCtx)
	}()

	return nil
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(log.HTTPMiddleware(c.RequestLog))

	router.HandleFunc("/ticks", c.handlers.GetTicks).Methods(http.MethodGet)
	router.HandleFunc("/sites", c.handlers.GetSites).Methods(http.MethodGet)
	router.HandleFunc("/sites/{site}", c.handlers.GetSite).Methods(http.MethodGet)
	router.HandleFunc("/sites/{site}/series/{parameter}", c.handlers.GetSeries).Methods(http.MethodGet)
	router.HandleFunc("/sites/{site}/series/{parameter}/nearest", c.handlers.GetNearest).Methods(http.MethodGet)
	router.HandleFunc("/qualifiers", c.handlers.GetQualifiers).Methods(http.MethodGet)
	router.HandleFunc("/health", c.handlers.GetHealth).Methods(http.MethodGet)
	router.HandleFunc("/requests", c.handlers.GetRequests).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(c.handlers.NotFound)

	return router
}

// site looks up a configured site
func (c *Controller) site(id string) (*config.SiteData, bool) {
	site, ok := c.sitesByID[id]
	return site, ok
}
