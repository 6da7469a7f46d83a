package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/malonaz/polychat/internal/configuration"
	"github.com/malonaz/polychat/internal/conversation"
	"github.com/malonaz/polychat/internal/debug"
	"github.com/malonaz/polychat/internal/imagegen"
	"github.com/malonaz/polychat/internal/model"
	"github.com/malonaz/polychat/internal/store"
)

//go:embed templates
var templatesFS embed.FS

// NewServeCmd creates a new serve command.
func NewServeCmd(config *configuration.Config, s *store.Store) *cobra.Command {
	var opts struct {
		Port int
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a web interface and a JSON api for chats",
		RunE: func(cmd *cobra.Command, args []string) error {
			gin.SetMode(gin.ReleaseMode)
			server, err := New(&Opts{
				Store:   s,
				Clients: model.Factory(config),
				Images:  imagegen.FromConfig(config),
				Timeout: config.RequestTimeoutDuration(),
				Log:     debug.GetLogger(),
			})
			if err != nil {
				return err
			}
			return server.Start(opts.Port)
		},
	}

	cmd.Flags().IntVarP(&opts.Port, "port", "p", config.Server.Port, "Port to serve on")
	return cmd
}

// Opts for the server.
type Opts struct {
	Store   *store.Store
	Clients conversation.ClientFactory
	Images  conversation.ImageGenerator
	// Timeout of a provider call.
	Timeout time.Duration
	Log     *slog.Logger
}

// Server handles the web interface and the api.
type Server struct {
	store   *store.Store
	clients conversation.ClientFactory
	images  conversation.ImageGenerator
	timeout time.Duration
	log     *slog.Logger
	tmpl    *template.Template
}

// New instantiates a server.
func New(opts *Opts) (*Server, error) {
	funcMap := sprig.HtmlFuncMap()
	funcMap["formatMessage"] = formatMessage

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templatesFS,
		"templates/*.tmpl",
		"templates/includes/*.tmpl",
		"templates/pages/*.tmpl",
	)
	if err != nil {
		return nil, errors.Wrap(err, "parsing templates")
	}
	log := opts.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Server{
		store:   opts.Store,
		clients: opts.Clients,
		images:  opts.Images,
		timeout: timeout,
		log:     log,
		tmpl:    tmpl,
	}, nil
}

// Router returns the handler serving every route.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.logger(), cors())
	router.SetHTMLTemplate(s.tmpl)

	router.GET("/", s.handleInbox)
	router.GET("/chat/:id", s.handleChat)
	router.DELETE("/chat/:id", s.handleDeleteChat)

	api := router.Group("/api")
	api.GET("/models", s.handleListModels)
	api.GET("/sessions", s.handleListSessions)
	api.DELETE("/sessions", s.handleClearSessions)
	api.GET("/sessions/:id", s.handleGetSession)
	api.PUT("/sessions/:id", s.handlePutSession)
	api.DELETE("/sessions/:id", s.handleDeleteSession)
	api.POST("/chat", s.handleSendChat)
	api.POST("/images", s.handleGenerateImage)
	return router
}

// Start serving on the given port until the process exits.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	fmt.Printf("Server starting on http://localhost%s\n", addr)
	s.log.Info("server starting", "addr", addr)
	return s.Router().Run(addr)
}

func (s *Server) logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) providerContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), s.timeout)
}
