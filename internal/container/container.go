package container

import (
	"fmt"

	"gh-intel/internal/analyzer"
	"gh-intel/internal/config"
	"gh-intel/internal/service"
	"gh-intel/internal/service/auth"
	"gh-intel/internal/service/github"
	"gh-intel/pkg/logger"
	"gh-intel/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *logger.Logger
	RedisClient *redis.Client
	Analyzer    *analyzer.Analyzer
	Services    *service.Services
}

// New creates a new dependency injection container
func New(cfg *config.Config, logger *logger.Logger) (*Container, error) {
	// Initialize Redis client if Redis URL is configured
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, logger.Logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize Redis client, proceeding without caching")
		} else {
			redisClient = client
			logger.Info("Redis client initialized successfully")
		}
	} else {
		logger.Info("Redis URL not configured, proceeding without caching")
	}

	trafficAnalyzer := analyzer.New(analyzer.WithTrendThreshold(cfg.TrendThreshold))

	fetcher, err := github.NewService(cfg.GitHubToken, cfg.GitHubBaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GitHub fetcher: %w", err)
	}

	var cacheService *service.CacheService
	if redisClient != nil {
		cacheService = service.NewCacheService(redisClient, logger.Logger)
	}

	authService := auth.NewService(cfg.APIJWTSecret, logger)
	reportService := service.NewTrafficReportService(fetcher, trafficAnalyzer, cacheService, logger, cfg.DefaultTopN)

	services := &service.Services{
		Auth:    authService,
		Fetcher: fetcher,
		Report:  reportService,
	}

	return &Container{
		Config:      cfg,
		Logger:      logger,
		RedisClient: redisClient,
		Analyzer:    trafficAnalyzer,
		Services:    services,
	}, nil
}

// GetAuthService returns the auth service
func (c *Container) GetAuthService() service.AuthService {
	return c.Services.Auth
}

// GetReportService returns the traffic report service
func (c *Container) GetReportService() service.ReportService {
	return c.Services.Report
}

// GetFetcher returns the traffic fetcher
func (c *Container) GetFetcher() service.TrafficFetcher {
	return c.Services.Fetcher
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// GetRedisClient returns the Redis client (may be nil if not configured)
func (c *Container) GetRedisClient() *redis.Client {
	return c.RedisClient
}

// HasRedis returns true if Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}
