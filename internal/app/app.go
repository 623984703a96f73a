package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/scoretally/internal/auth"
	"github.com/abrezinsky/scoretally/internal/config"
	"github.com/abrezinsky/scoretally/internal/handlers"
	"github.com/abrezinsky/scoretally/internal/livestate"
	"github.com/abrezinsky/scoretally/internal/logger"
	"github.com/abrezinsky/scoretally/internal/metrics"
	"github.com/abrezinsky/scoretally/internal/models"
	"github.com/abrezinsky/scoretally/internal/realtime"
	"github.com/abrezinsky/scoretally/internal/repository"
	"github.com/abrezinsky/scoretally/internal/services"
	"github.com/abrezinsky/scoretally/internal/websocket"
)

// sweepInterval is how often expired sessions are dropped
const sweepInterval = time.Minute

// App holds all application dependencies
type App struct {
	cfg      *config.Config
	log      logger.Logger
	repo     *repository.Repository
	feed     *realtime.Feed
	board    *livestate.Board
	hub      *websocket.Hub
	sessions *auth.Store
	metrics  *metrics.Metrics
	handlers *handlers.Handlers
	baseURL  string

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// countingNotifier counts every committed change before handing it to the feed
type countingNotifier struct {
	feed    *realtime.Feed
	metrics *metrics.Metrics
}

func (n countingNotifier) Publish(ev models.ChangeEvent) {
	n.metrics.RealtimeEvent(ev.Table)
	n.feed.Publish(ev)
}

// New creates and initializes a new application instance. The live state
// is seeded from every stored event before New returns.
func New(cfg *config.Config, log logger.Logger) (*App, error) {
	repo, err := repository.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	m := metrics.New()
	feed := realtime.NewFeed(log.With("component", "feed"))
	repo.SetNotifier(countingNotifier{feed: feed, metrics: m})

	baseURL := defaultBaseURL(cfg.BaseURL, cfg.ListenAddr, realNetworkProvider{})
	events := services.NewEventService(log, repo, baseURL)
	svc := handlers.Services{
		Session:     services.NewSessionService(log, repo, cfg.AdminPassword),
		Scoring:     services.NewScoringService(log, repo, m),
		Submission:  services.NewSubmissionService(log, repo, m),
		Tabulation:  services.NewTabulationService(log, repo, m),
		Permissions: services.NewPermissionService(log, repo),
		Events:      events,
	}

	// The hub serves board snapshots and the board publishes through the hub
	board := livestate.NewBoard(log.With("component", "livestate"), nil)
	hub := websocket.New(log.With("component", "websocket"), board)
	board.SetPublisher(hub)

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		cfg:      cfg,
		log:      log,
		repo:     repo,
		feed:     feed,
		board:    board,
		hub:      hub,
		sessions: auth.NewStore(cfg.SessionTTL),
		metrics:  m,
		baseURL:  baseURL,
		cancel:   cancel,
	}

	if err := a.loadBoard(ctx, events); err != nil {
		cancel()
		feed.Close()
		repo.Close()
		return nil, fmt.Errorf("failed to load live state: %w", err)
	}

	hub.Start()
	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		board.Run(ctx, feed)
	}()
	go func() {
		defer a.wg.Done()
		a.sweepSessions(ctx, sweepInterval)
	}()

	a.handlers = handlers.New(svc, a.sessions, http.HandlerFunc(hub.ServeWs), m.Handler(), log)
	return a, nil
}

// loadBoard seeds the live state with every stored event
func (a *App) loadBoard(ctx context.Context, events services.EventServicer) error {
	list, err := events.ListEvents(ctx)
	if err != nil {
		return err
	}
	for _, e := range list {
		if err := a.board.Load(ctx, a.repo, e.ID); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) sweepSessions(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.sessions.Sweep(); n > 0 {
				a.log.Debug("expired sessions removed", "count", n)
			}
		}
	}
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// BaseURL is the public address printed on judge login cards unless an
// admin overrides it
func (a *App) BaseURL() string {
	return a.baseURL
}

// Close stops background work and releases the database. It is safe to
// call more than once.
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.cancel()
		a.feed.Close()
		a.wg.Wait()
		a.hub.Stop()
		err = a.repo.Close()
	})
	return err
}

// defaultBaseURL returns configured when set. Otherwise it builds one from
// the listen address, replacing an unspecified host with the best LAN IP.
func defaultBaseURL(configured, listenAddr string, provider networkProvider) string {
	if configured != "" {
		return strings.TrimRight(configured, "/")
	}
	host, port, err := net.SplitHostPort(listenAddr)
	if err != nil {
		host, port = "", "8081"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = getPreferredIP(provider)
	}
	return "http://" + net.JoinHostPort(host, port)
}

// networkInterface wraps net.Interface for testing
type networkInterface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

// realInterface wraps a real net.Interface
type realInterface struct {
	iface net.Interface
}

func (r realInterface) Flags() net.Flags {
	return r.iface.Flags
}

func (r realInterface) Addrs() ([]net.Addr, error) {
	return r.iface.Addrs()
}

// networkProvider is an interface for getting network interfaces (for testing)
type networkProvider interface {
	Interfaces() ([]networkInterface, error)
}

// realNetworkProvider implements networkProvider using actual net package
type realNetworkProvider struct{}

func (realNetworkProvider) Interfaces() ([]networkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	result := make([]networkInterface, len(ifaces))
	for i, iface := range ifaces {
		result[i] = realInterface{iface: iface}
	}
	return result, nil
}

// getPreferredIP returns the best IPv4 address for judges on the venue
// network. Private ranges win over public ones; localhost is the fallback.
func getPreferredIP(provider networkProvider) string {
	ifaces, err := provider.Interfaces()
	if err != nil {
		return "localhost"
	}

	var candidates []net.IP
	for _, iface := range ifaces {
		flags := iface.Flags()
		if flags&net.FlagUp == 0 || flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.To4() == nil || ip.IsLoopback() {
				continue
			}
			candidates = append(candidates, ip)
		}
	}

	for _, ip := range candidates {
		if ip.IsPrivate() {
			return ip.String()
		}
	}
	if len(candidates) > 0 {
		return candidates[0].String()
	}
	return "localhost"
}
