package main

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"scraping-analyzer/internal/api"
)

func main() {
	baseDir, err := os.Getwd()
	if err != nil {
		logrus.Fatalf("determine working directory: %v", err)
	}

	dataDir := filepath.Join(baseDir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		logrus.Fatalf("create data directory: %v", err)
	}

	cfg := api.Config{
		DBPath:             filepath.Join(dataDir, "scraping-analyzer.db"),
		ContentRulesPath:   filepath.Join(baseDir, "internal", "evidence", "content_rules.json"),
		TechnicalRulesPath: filepath.Join(baseDir, "internal", "evidence", "technical_rules.json"),
		UserAgent:          os.Getenv("FETCH_USER_AGENT"),
	}

	if override := strings.TrimSpace(os.Getenv("SCRAPING_ANALYZER_DB_PATH")); override != "" {
		cfg.DBPath = override
	}
	if override := strings.TrimSpace(os.Getenv("CONTENT_RULES_PATH")); override != "" {
		cfg.ContentRulesPath = override
	}
	if override := strings.TrimSpace(os.Getenv("TECHNICAL_RULES_PATH")); override != "" {
		cfg.TechnicalRulesPath = override
	}
	if timeout := strings.TrimSpace(os.Getenv("FETCH_TIMEOUT")); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			cfg.FetchTimeout = d
		}
	}
	if origins := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	}

	server, err := api.NewServer(cfg)
	if err != nil {
		logrus.Fatalf("create server: %v", err)
	}

	router, err := server.Router()
	if err != nil {
		logrus.Fatalf("configure router: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logrus.Infof("starting scraping-analyzer backend on :%s", port)
	if err := router.Run(":" + port); err != nil {
		logrus.Fatalf("server exited: %v", err)
	}
}
