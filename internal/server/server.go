package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"teamboard/internal/config"
	"teamboard/internal/handler"
	"teamboard/internal/middleware"
	"teamboard/internal/realtime"
	"teamboard/internal/repository"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Server struct {
	Engine *gin.Engine
	DB     *gorm.DB
	Hub    *realtime.Hub
	Config *config.Config
}

func Init(cfg *config.Config) (*Server, error) {
	// Setup GORM
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("❌ failed to connect to DB: %w", err)
	}
	log.Println("✅ Connected to database")

	// Setup Gin
	r := gin.Default()

	// Realtime hub shared by all mutation handlers
	hub := realtime.NewHub()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	tagRepo := repository.NewTagRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	reflectionRepo := repository.NewReflectionRepository(db)

	// Initialize handlers
	userHandler := handler.NewUserHandler(userRepo)
	teamHandler := handler.NewTeamHandler(teamRepo, userRepo)
	ticketHandler := handler.NewTicketHandler(ticketRepo, teamRepo, userRepo, hub)
	tagHandler := handler.NewTagHandler(tagRepo, ticketRepo, teamRepo, userRepo, hub)
	commentHandler := handler.NewCommentHandler(commentRepo, ticketRepo, teamRepo)
	announcementHandler := handler.NewAnnouncementHandler(announcementRepo, hub)
	reflectionHandler := handler.NewReflectionHandler(reflectionRepo, teamRepo, hub)

	// Public routes
	r.POST("/register", userHandler.Register)
	r.POST("/login", userHandler.Login)

	// Protected routes - require authentication
	authorized := r.Group("/")
	authorized.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	{
		// WebSocket endpoint for room subscriptions and live events
		authorized.GET("/ws", realtime.ServeWS(hub))

		// User routes
		authorized.GET("/me", userHandler.Me)
		authorized.PUT("/me", userHandler.UpdateMe)
		authorized.GET("/users", userHandler.GetAll)
		authorized.PUT("/users/:id/role", userHandler.UpdateRole)

		// Team routes
		authorized.POST("/teams", teamHandler.Create)
		authorized.GET("/teams", teamHandler.GetAll)
		authorized.GET("/teams/:id", teamHandler.GetByID)
		authorized.PUT("/teams/:id", teamHandler.Update)
		authorized.DELETE("/teams/:id", teamHandler.Delete)
		authorized.POST("/teams/:id/members", teamHandler.AddMember)
		authorized.DELETE("/teams/:id/members/:user_id", teamHandler.RemoveMember)

		// Ticket routes
		authorized.POST("/tickets", ticketHandler.Create)
		authorized.GET("/tickets/:id", ticketHandler.GetByID)
		authorized.GET("/teams/:id/tickets", ticketHandler.GetByTeam)
		authorized.PATCH("/tickets/:id", ticketHandler.Update)
		authorized.DELETE("/tickets/:id", ticketHandler.Delete)
		authorized.POST("/tickets/:id/move", ticketHandler.Move)
		authorized.POST("/tickets/:id/tags/:tag_id", tagHandler.AttachToTicket)
		authorized.DELETE("/tickets/:id/tags/:tag_id", tagHandler.DetachFromTicket)

		// Comment routes
		authorized.GET("/tickets/:id/comments", commentHandler.GetByTicket)
		authorized.POST("/tickets/:id/comments", commentHandler.Create)
		authorized.DELETE("/comments/:id", commentHandler.Delete)

		// Tag routes
		authorized.POST("/tags", tagHandler.Create)
		authorized.GET("/tags", tagHandler.GetAll)
		authorized.PUT("/tags/:id", tagHandler.Update)
		authorized.DELETE("/tags/:id", tagHandler.Delete)

		// Announcement routes
		authorized.GET("/announcements", announcementHandler.GetAll)
		authorized.POST("/announcements", announcementHandler.Create)
		authorized.PUT("/announcements/:id", announcementHandler.Update)
		authorized.DELETE("/announcements/:id", announcementHandler.Delete)

		// Reflection routes
		authorized.PUT("/reflections", reflectionHandler.Upsert)
		authorized.GET("/teams/:id/reflections", reflectionHandler.GetRecent)
	}
	return &Server{
		Engine: r,
		DB:     db,
		Hub:    hub,
		Config: cfg,
	}, nil
}

func (s *Server) Run() {
	srv := &http.Server{
		Addr:    ":" + s.Config.ServerPort,
		Handler: s.Engine,
	}

	go func() {
		log.Printf("🚀 Server running on port %s\n", s.Config.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Failed to listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down server...")

	s.Hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %s", err)
	}

	log.Println("✅ Server exited properly")
}
