package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"scraping-analyzer/internal/decision"
	"scraping-analyzer/internal/evidence"
	"scraping-analyzer/internal/fetch"
	"scraping-analyzer/internal/prefs"
	"scraping-analyzer/internal/store"
)

// Config defines server dependencies.
type Config struct {
	DBPath             string
	ContentRulesPath   string
	TechnicalRulesPath string
	AllowedOrigins     []string
	SilentDB           bool
	FetchTimeout       time.Duration
	UserAgent          string
}

// Server wires HTTP handlers with persistence, retrieval, and the decision
// pipeline.
type Server struct {
	db             *store.Database
	prefStore      *prefs.Store
	fetcher        *fetch.Client
	content        *evidence.ContentExtractor
	technical      *evidence.TechnicalExtractor
	combiner       *decision.Combiner
	contentRules   *evidence.ContentRules
	technicalRules *evidence.TechnicalRules
	contentPath    string
	technicalPath  string
	allowedOrigins []string
}

// NewServer constructs the API server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("db path required")
	}
	db, err := store.Open(cfg.DBPath, cfg.SilentDB)
	if err != nil {
		return nil, err
	}

	contentRules, err := evidence.NewContentRules(cfg.ContentRulesPath)
	if err != nil {
		return nil, fmt.Errorf("content rules: %w", err)
	}
	technicalRules, err := evidence.NewTechnicalRules(cfg.TechnicalRulesPath)
	if err != nil {
		return nil, fmt.Errorf("technical rules: %w", err)
	}

	prefStore := prefs.NewStore(db)

	return &Server{
		db:             db,
		prefStore:      prefStore,
		fetcher:        fetch.NewClient(fetch.Config{Timeout: cfg.FetchTimeout, UserAgent: cfg.UserAgent}),
		content:        evidence.NewContentExtractor(contentRules, prefStore),
		technical:      evidence.NewTechnicalExtractor(technicalRules, prefStore),
		combiner:       decision.NewCombiner(prefStore),
		contentRules:   contentRules,
		technicalRules: technicalRules,
		contentPath:    cfg.ContentRulesPath,
		technicalPath:  cfg.TechnicalRulesPath,
		allowedOrigins: cfg.AllowedOrigins,
	}, nil
}

// Close releases server resources.
func (s *Server) Close() error {
	return s.db.Close()
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = true
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/api/healthz", s.handleHealth)
	r.GET("/api/config", s.handleConfig)

	api := r.Group("/api")
	{
		api.POST("/analyze", s.handleAnalyze)
		api.GET("/analyses/recent", s.handleRecentAnalyses)
		api.GET("/analyses/explanation", s.handleExplanation)
		api.POST("/feedback", s.handleFeedback)
		api.POST("/preferences/cache/clear", s.handleClearCache)
	}

	return r, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleConfig(c *gin.Context) {
	analyses, err := s.db.CountAnalyses()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	preferences, err := s.db.CountPreferences()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"content_rules_path":      s.contentPath,
		"content_rules_version":   s.contentRules.Version(),
		"technical_rules_path":    s.technicalPath,
		"technical_rules_version": s.technicalRules.Version,
		"analyses":                analyses,
		"preference_rows":         preferences,
	})
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, errors.New("no data provided"))
		return
	}

	target, err := normalizeInputURL(req.URL)
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}

	start := time.Now()
	ctx := c.Request.Context()

	var (
		wg                         sync.WaitGroup
		robotsEv, tosEv, techEv    evidence.RuleEvidence
		robotsErr, tosErr, techErr error
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		doc := s.fetcher.Fetch(ctx, target, fetch.KindRobots)
		robotsEv, robotsErr = s.content.AnalyzeRobots(doc)
	}()
	go func() {
		defer wg.Done()
		doc := s.fetcher.Fetch(ctx, target, fetch.KindTOS)
		tosEv, tosErr = s.content.AnalyzeTermsOfService(doc)
	}()
	go func() {
		defer wg.Done()
		doc := s.fetcher.Fetch(ctx, target, fetch.KindMain)
		techEv, techErr = s.technical.Analyze(doc)
	}()
	wg.Wait()

	if err := errors.Join(robotsErr, tosErr, techErr); err != nil {
		logrus.WithError(err).WithField("url", target).Error("analysis failed")
		s.renderError(c, http.StatusInternalServerError, errors.New("analysis failed"))
		return
	}

	rules := []evidence.RuleEvidence{robotsEv, tosEv, techEv}

	dec, err := s.combiner.Decide(rules, target)
	if err != nil {
		logrus.WithError(err).WithField("url", target).Error("decision failed")
		s.renderError(c, http.StatusInternalServerError, errors.New("analysis failed"))
		return
	}

	resp := AnalyzeResponse{Issuer: IssuerDTO{
		DirectoryURLs: []DirectoryURLDTO{{DirectoryURL: target}},
		PrimaryDomain: primaryDomain(target),
		LicenseType:   LicenseFromDecision(dec, rules, target),
	}}

	// History persistence is best effort and never fails the response.
	row := &store.Analysis{URL: target, ProcessingMs: time.Since(start).Milliseconds()}
	if err := row.SetResult(resp); err != nil {
		logrus.WithError(err).WithField("url", target).Warn("encode analysis history")
	} else if err := s.db.SaveAnalysis(row); err != nil {
		logrus.WithError(err).WithField("url", target).Warn("save analysis history")
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleRecentAnalyses(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.RecentAnalyses(limit)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	dtos := make([]RecentAnalysisDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, RecentAnalysisDTO{
			URL:          row.URL,
			Result:       json.RawMessage(row.ResultJSON),
			ProcessingMs: row.ProcessingMs,
			Timestamp:    row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, RecentAnalysesResponse{Status: "success", Analyses: dtos})
}

func (s *Server) handleExplanation(c *gin.Context) {
	target := strings.TrimSpace(c.Query("url"))
	if target == "" {
		s.renderError(c, http.StatusBadRequest, errors.New("url is required"))
		return
	}

	row, err := s.db.AnalysisByURL(target)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.renderError(c, http.StatusNotFound, errors.New("analysis not found"))
		} else {
			s.renderError(c, http.StatusInternalServerError, err)
		}
		return
	}

	var stored AnalyzeResponse
	if err := row.Result(&stored); err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	explanation := decision.Explain(stored.Issuer.LicenseType.ToDecision())
	c.JSON(http.StatusOK, ExplanationResponse{Status: "success", Explanation: explanation})
}

func (s *Server) handleFeedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, errors.New("invalid feedback payload"))
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		s.renderError(c, http.StatusBadRequest, errors.New("url is required"))
		return
	}

	for _, p := range req.Preferences {
		if strings.TrimSpace(p.Agent) == "" || strings.TrimSpace(p.Context) == "" {
			s.renderError(c, http.StatusBadRequest, errors.New("agent and context are required for preference feedback"))
			return
		}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	if err := s.db.SaveFeedback(&store.ExpertFeedback{URL: req.URL, FeedbackJSON: string(payload)}); err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	updated := make(map[string]float64, len(req.Preferences))
	for _, p := range req.Preferences {
		value, err := s.prefStore.Update(p.Agent, p.Context, p.Value)
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"agent":   p.Agent,
				"context": p.Context,
			}).Error("apply preference feedback")
			s.renderError(c, http.StatusInternalServerError, errors.New("preference update failed"))
			return
		}
		updated[p.Agent+"/"+p.Context] = value
	}

	c.JSON(http.StatusOK, FeedbackResponse{Status: "success", Updated: updated})
}

func (s *Server) handleClearCache(c *gin.Context) {
	s.prefStore.ClearCache()
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}

// normalizeInputURL trims, defaults the scheme to https, and validates the
// supplied URL.
func normalizeInputURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.New("url is required")
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "https://" + trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("invalid URL format: %s", trimmed)
	}
	return trimmed, nil
}

// primaryDomain reduces a URL to scheme://host.
func primaryDomain(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return parsed.Scheme + "://" + parsed.Host
}
