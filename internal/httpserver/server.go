package httpserver

import (
	"context"
	"embed"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tinytelemetry/druguse/internal/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Server renders the dataset views over HTTP.
type Server struct {
	addr      string
	store     model.ReadAPI
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a new HTTP server reading from store.
func NewServer(addr string, store model.ReadAPI) *Server {
	if addr == "" {
		addr = "0.0.0.0:3000"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:      addr,
		store:     store,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Handler builds the gin engine with every route registered.
func (s *Server) Handler() (*gin.Engine, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, err
	}
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.SetHTMLTemplate(tmpl)

	r.GET("/", s.handleRoot)
	r.GET("/ages", s.handleAges)
	r.GET("/age/:age", s.handleAge)
	r.GET("/drugs", s.handleDrugs)
	r.GET("/drug/:drug", s.handleDrug)
	r.GET("/frequency", s.handleFrequency)
	r.GET("/export.xlsx", s.handleExport)

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/age/:age/chart", s.handleAgeChart)
	api.GET("/drug/:drug/chart", s.handleDrugChart)

	r.StaticFS("/static", http.FS(static))
	r.NoRoute(s.handleNoRoute)

	return r, nil
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)
	h, err := s.Handler()
	if err != nil {
		return err
	}

	s.server = &http.Server{
		Handler:           h,
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.startTime = time.Now()

	go s.server.Serve(listener)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
