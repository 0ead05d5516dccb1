package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"loader/internal/api"
	"loader/internal/config"
	"loader/internal/importer"
	"loader/internal/mailer"
	"loader/internal/netcode"
	"loader/internal/reference"
	"loader/internal/store"
)

// Server HTTP сервер
type Server struct {
	router   *gin.Engine
	store    *store.Store
	sessions *importer.Registry
	api      *api.Handler
	http     *http.Server
}

// NewServer собирает сервер: база, справочники, сессии, почта
func NewServer(cfg *config.AppConfig) (*Server, error) {
	devMode := cfg.Server.DevMode
	if !devMode {
		gin.SetMode(gin.ReleaseMode)
	}

	if _, err := config.EnsureDataDir(cfg); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(config.DBPath(cfg))
	if err != nil {
		return nil, err
	}
	st.SetBasePort(cfg.Reference.BasePort)

	codec := netcode.NewCodec(cfg.Netcode.SubstationCodes)
	sessions := importer.NewRegistry(SessionDeps(cfg, st, codec), cfg.Session.TTL.Duration)
	if err := sessions.StartJanitor(cfg.Session.CleanupSpec); err != nil {
		_ = st.Close()
		return nil, err
	}

	handler := api.NewHandler(api.Options{
		Store:       st,
		Sessions:    sessions,
		Codec:       codec,
		MaxUpload:   cfg.Session.MaxUploadMiB << 20,
		MailEnabled: cfg.Mail.ResendAPIKey != "",
	})

	s := &Server{
		router:   gin.Default(),
		store:    st,
		sessions: sessions,
		api:      handler,
	}
	s.setupRoutes(devMode)
	s.http = &http.Server{Handler: s.router}
	return s, nil
}

// SessionDeps зависимости новой сессии: свой кэш справочников поверх общей базы
func SessionDeps(cfg *config.AppConfig, st *store.Store, codec *netcode.Codec) importer.DepsFactory {
	var delivery mailer.Delivery
	if cfg.Mail.ResendAPIKey != "" {
		delivery = mailer.New(cfg.Mail.ResendAPIKey, cfg.Mail.From, cfg.Mail.Subject)
	} else {
		log.Printf("почта не настроена: отправка выгрузки отключена")
	}
	return func() importer.Deps {
		return importer.Deps{
			Cache:    reference.NewCache(st),
			Codec:    codec,
			Ports:    st,
			Delivery: delivery,
			Journal:  st,
		}
	}
}

func (s *Server) setupRoutes(devMode bool) {
	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Expose-Headers", "Content-Disposition")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	s.api.RegisterRoutes(s.router.Group("/api"))

	if devMode {
		// интерфейс обслуживает dev-сервер фронтенда
		s.router.NoRoute(func(c *gin.Context) {
			c.Redirect(http.StatusTemporaryRedirect, "http://localhost:5173"+c.Request.URL.Path)
		})
		return
	}
	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "не найдено"})
	})
}

// Handler корневой обработчик (для тестов)
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run слушает addr до вызова Shutdown
func (s *Server) Run(addr string) error {
	s.http.Addr = addr
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown останавливает прием запросов, очистку сессий и закрывает базу
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	s.sessions.Stop()
	if cerr := s.store.Close(); err == nil {
		err = cerr
	}
	return err
}

// GetStore хранилище (для тестов)
func (s *Server) GetStore() *store.Store {
	return s.store
}
