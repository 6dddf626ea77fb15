// Package server provides the HTTP server and handlers.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bryan-buckman/readhubx/internal/model"
	"github.com/bryan-buckman/readhubx/internal/opml"
	"github.com/bryan-buckman/readhubx/internal/proxy"
	"github.com/bryan-buckman/readhubx/internal/readhub"
	"github.com/bryan-buckman/readhubx/internal/rss"
	"github.com/bryan-buckman/readhubx/internal/subscription"
)

// FeedSize is the number of topics rendered into /feed.xml.
const FeedSize = 10

// maxUploadSize bounds OPML uploads.
const maxUploadSize = 1 << 20

// Config holds server settings.
type Config struct {
	// PublicURL is used for links inside generated feeds and OPML. When
	// empty it is derived from the request host.
	PublicURL string
	Proxy     proxy.Config
}

// Server is the main HTTP server.
type Server struct {
	cfg      Config
	mu       sync.Mutex // guards subs
	subs     *subscription.Store
	api      *readhub.Client
	registry *prometheus.Registry
	router   chi.Router
	httpSrv  *http.Server
}

// New creates a new server around an opened subscription store.
func New(subs *subscription.Store, cfg Config) *Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s := &Server{
		cfg:      cfg,
		subs:     subs,
		api:      readhub.NewClient(cfg.Proxy.Origin, readhub.WithHTTPClient(&http.Client{Timeout: cfg.Proxy.Timeout})),
		registry: reg,
	}
	s.setupRoutes(proxy.New(cfg.Proxy, proxy.WithMetrics(proxy.NewMetrics(reg))))
	s.httpSrv = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes(p *proxy.Handler) {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Handle("/api/*", p)
	r.Handle("/api", p)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Get("/feed.xml", s.handleFeed)

	r.Route("/subscriptions", func(r chi.Router) {
		r.Get("/", s.handleListSubscriptions)
		r.Post("/", s.handleAddSubscription)
		r.Delete("/", s.handleClearSubscriptions)
		r.Get("/opml", s.handleExportOPML)
		r.Post("/opml", s.handleImportOPML)
		r.Delete("/{id}", s.handleRemoveSubscription)
	})

	s.router = r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on addr and blocks until the server stops. It returns nil
// after a Shutdown, including one that happened before Start.
func (s *Server) Start(addr string) error {
	s.httpSrv.Addr = addr
	log.Printf("Server starting on %s", addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// --- Subscription Handlers ---

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	list := s.subs.GetAll()
	s.mu.Unlock()
	if list == nil {
		list = []model.Subscription{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleAddSubscription(w http.ResponseWriter, r *http.Request) {
	var sub model.Subscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if sub.ID == "" {
		http.Error(w, "Missing id", http.StatusBadRequest)
		return
	}
	sub.Type = model.ParseEntityType(string(sub.Type))

	s.mu.Lock()
	s.subs.Add(sub)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRemoveSubscription(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	s.subs.Remove(model.Subscription{ID: id})
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleClearSubscriptions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.subs.ClearAll()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleImportOPML(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, _, err := r.FormFile("opml")
	if err != nil {
		http.Error(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer file.Close()

	entries, err := opml.Parse(file)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse OPML: %v", err), http.StatusBadRequest)
		return
	}

	imported := 0
	s.mu.Lock()
	for _, entry := range entries {
		if s.subs.IsSubscribed(entry) {
			continue
		}
		s.subs.Add(entry)
		imported++
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"imported": imported,
		"total":    len(entries),
	})
}

func (s *Server) handleExportOPML(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	list := s.subs.GetAll()
	s.mu.Unlock()

	base := s.publicURL(r)
	data, err := opml.Export("ReadHubX Subscriptions", list, func(sub model.Subscription) string {
		q := url.Values{"id": {sub.ID}, "entityType": {string(sub.Type)}}
		return base + "/feed.xml?" + q.Encode()
	})
	if err != nil {
		http.Error(w, "Failed to export", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Content-Disposition", "attachment; filename=readhubx-subscriptions.opml")
	w.Write(data)
}

// --- Feed Handler ---

// handleFeed renders the first page of the home feed as RSS. Without an id
// the stored subscriptions of the requested type are used.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var selected []model.Subscription
	tagFeed := q.Get("type") == "tag"

	if id := q.Get("id"); id != "" {
		sub := model.Subscription{ID: id, Type: model.ParseEntityType(q.Get("entityType"))}
		tagFeed = sub.Type.IsTag()
		selected = []model.Subscription{sub}
	} else {
		s.mu.Lock()
		normal, tags := subscription.Split(s.subs.GetAll())
		s.mu.Unlock()
		selected = normal
		if tagFeed {
			selected = tags
		}
	}

	var topics []model.Topic
	if len(selected) > 0 {
		query := readhub.TopicQuery{Page: 1, Size: FeedSize}
		if tagFeed {
			query.TagIDs = subscription.JoinIDs(selected)
		} else {
			query.EntityIDs = subscription.JoinIDs(selected)
		}
		page, err := s.api.ListTopics(r.Context(), query)
		if err != nil {
			log.Printf("Feed error: %v", err)
			http.Error(w, "Failed to load topics", http.StatusBadGateway)
			return
		}
		topics = page.Items
	}

	title := "ReadHubX 订阅"
	if tagFeed {
		title = "ReadHubX 标签订阅"
	}
	data, err := rss.Build(rss.Channel{
		Title:       title,
		Link:        s.publicURL(r) + "/",
		Description: "ReadHub topics for followed entities",
	}, topics)
	if err != nil {
		http.Error(w, "Failed to render feed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Write(data)
}

// --- Helpers ---

func (s *Server) publicURL(r *http.Request) string {
	if s.cfg.PublicURL != "" {
		return strings.TrimRight(s.cfg.PublicURL, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
