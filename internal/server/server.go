package server

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/chronicle/internal/config"
	"github.com/agenthands/chronicle/internal/core"
)

type Server struct {
	Chronicle *core.Chronicle
	Config    *config.Config
	Logger    *slog.Logger
}

func NewServer(chronicle *core.Chronicle, cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		Chronicle: chronicle,
		Config:    cfg,
		Logger:    logger,
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	if s.Config != nil && s.Config.Server.Mode != "" {
		gin.SetMode(s.Config.Server.Mode)
	}
	r := gin.Default()

	r.GET("/", s.Root)
	r.GET("/health", s.Health)

	r.POST("/add_episode", s.AddEpisode)
	r.POST("/messages", s.AddMessages)
	r.POST("/search", s.Search)
	r.POST("/search_with_score", s.SearchWithScore)
	r.POST("/get-memory", s.GetMemory)

	r.GET("/nodes", s.ListNodes)
	r.GET("/facts", s.ListFacts)
	r.PUT("/facts", s.UpdateFact)
	r.DELETE("/facts", s.DeleteFact)

	r.GET("/episode/:uuid", s.GetEpisode)
	r.GET("/episodes/:group_id", s.ListEpisodes)
	r.DELETE("/episodes", s.DeleteEpisode)

	r.GET("/communities", s.ListCommunities)

	return r
}

func (s *Server) Run() error {
	port := "8000"
	if s.Config != nil && s.Config.Server.Port != "" {
		port = s.Config.Server.Port
	}
	return s.SetupRouter().Run(":" + port)
}
