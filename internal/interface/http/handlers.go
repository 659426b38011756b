package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ai-literacy/literacy-hub/config"
	"github.com/ai-literacy/literacy-hub/internal/application/command"
	"github.com/ai-literacy/literacy-hub/internal/application/query"
	"github.com/ai-literacy/literacy-hub/internal/domain/catalog"
	"github.com/ai-literacy/literacy-hub/internal/interface/http/handlers"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST BODIES
// ══════════════════════════════════════════════════════════════════════════════

type registerRequest struct {
	Username  string `json:"username" binding:"required"`
	Password  string `json:"password" binding:"required"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Score is a pointer so that a missing score is told apart from zero.
type updateProgressRequest struct {
	LessonID int      `json:"lesson_id" binding:"required"`
	Score    *float64 `json:"score" binding:"required"`
}

type topicProgressRequest struct {
	TopicID int64    `json:"topic_id" binding:"required"`
	Score   *float64 `json:"score" binding:"required"`
}

type generateLessonRequest struct {
	Topic string `json:"topic"`
	Type  string `json:"type"`
}

// bindJSON decodes the body or writes a 400 envelope.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handlers.Fail(c, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
			return false
		}
		handlers.FailWithDetails(c, http.StatusBadRequest, handlers.CodeBadRequest, "invalid request body", err.Error())
		return false
	}
	return true
}

// principal returns the caller; RequireAuth guarantees it on private routes.
func principal(c *gin.Context) (handlers.Principal, bool) {
	p, ok := handlers.CurrentPrincipal(c)
	if !ok {
		handlers.Fail(c, http.StatusUnauthorized, handlers.CodeUnauthorized, "authentication required")
	}
	return p, ok
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE BODIES
// ══════════════════════════════════════════════════════════════════════════════

type userSummary struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	TotalXP       int    `json:"total_xp"`
	Level         int    `json:"level"`
	CurrentStreak int    `json:"current_streak"`
}

type progressSummary struct {
	LessonsCompleted    int     `json:"lessons_completed"`
	TotalScore          float64 `json:"total_score"`
	CertificationEarned bool    `json:"certification_earned"`
}

type loginResponse struct {
	Token     string          `json:"token"`
	TokenType string          `json:"token_type"`
	ExpiresAt time.Time       `json:"expires_at"`
	User      userSummary     `json:"user"`
	Progress  progressSummary `json:"progress"`
}

type xpSummary struct {
	Gained        int  `json:"gained"`
	TotalXP       int  `json:"total_xp"`
	Level         int  `json:"level"`
	LeveledUp     bool `json:"leveled_up"`
	CurrentStreak int  `json:"current_streak"`
}

func newXPSummary(r *command.AwardXPResult) *xpSummary {
	if r == nil {
		return nil
	}
	return &xpSummary{
		Gained:        r.Gained,
		TotalXP:       r.TotalXP.Int(),
		Level:         r.NewLevel.Int(),
		LeveledUp:     r.LeveledUp,
		CurrentStreak: r.CurrentStreak,
	}
}

type updateProgressResponse struct {
	query.ProgressDTO

	LessonID      int        `json:"lesson_id"`
	NewLesson     bool       `json:"new_lesson"`
	JustCertified bool       `json:"just_certified"`
	XP            *xpSummary `json:"xp"`
}

type topicProgressResponse struct {
	TopicID            int64      `json:"topic_id"`
	PreviousDifficulty int        `json:"previous_difficulty"`
	CurrentDifficulty  int        `json:"current_difficulty"`
	AverageScore       float64    `json:"average_score"`
	LessonsCompleted   int        `json:"lessons_completed"`
	XP                 *xpSummary `json:"xp"`
}

type generatedLessonResponse struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Topic        string            `json:"topic"`
	TemplateType string            `json:"template_type"`
	Difficulty   int               `json:"difficulty"`
	Sections     []catalog.Section `json:"sections"`
	CreatedAt    time.Time         `json:"created_at"`
}

// ══════════════════════════════════════════════════════════════════════════════
// STATUS
// ══════════════════════════════════════════════════════════════════════════════

// handleStatus handles GET /api/status
func (s *Server) handleStatus(c *gin.Context) {
	lessons := "disabled"
	if s.deps.Features.IsEnabled(config.FeatureLessonPreparation, nil) {
		lessons = "ready"
	}
	handlers.OK(c, http.StatusOK, gin.H{
		"message":           "AI Literacy Backend is running!",
		"version":           s.config.Version,
		"lesson_generation": lessons,
		"static_lessons":    "working with frontend",
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// IDENTITY HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRegister handles POST /api/register
func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := s.deps.RegisterUser.Handle(c.Request.Context(), command.RegisterUserCommand{
		Username:  req.Username,
		Password:  req.Password,
		Email:     req.Email,
		FirstName: req.FirstName,
	})
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	handlers.OK(c, http.StatusCreated, gin.H{
		"message":  "User created successfully",
		"user_id":  res.UserID.String(),
		"username": res.Username.String(),
	})
}

// handleLogin handles POST /api/login
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := s.deps.LoginUser.Handle(c.Request.Context(), command.LoginUserCommand{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	if s.deps.Features.IsEnabled(config.FeatureSessionCookie, config.ForUser(res.User.ID.String())) {
		s.setSessionCookie(c, res.Token.Value, res.Token.ExpiresAt)
	}

	resp := loginResponse{
		Token:     res.Token.Value,
		TokenType: "bearer",
		ExpiresAt: res.Token.ExpiresAt,
		User: userSummary{
			ID:        res.User.ID.String(),
			Username:  res.User.Username.String(),
			Email:     res.User.Email,
			FirstName: res.User.FirstName,
		},
	}
	if res.Profile != nil {
		resp.User.TotalXP = res.Profile.TotalXP.Int()
		resp.User.Level = res.Profile.Level.Int()
		resp.User.CurrentStreak = res.Profile.CurrentStreak
	}
	if res.Progress != nil {
		resp.Progress = progressSummary{
			LessonsCompleted:    res.Progress.LessonsCompleted,
			TotalScore:          res.Progress.TotalScore,
			CertificationEarned: res.Progress.CertificationEarned,
		}
	}

	handlers.OK(c, http.StatusOK, resp)
}

// handleLogout handles POST /api/logout
func (s *Server) handleLogout(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	err := s.deps.LogoutUser.Handle(c.Request.Context(), command.LogoutUserCommand{
		UserID:    p.UserID,
		TokenID:   p.TokenID,
		ExpiresAt: p.ExpiresAt,
	})
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	s.clearSessionCookie(c)
	handlers.OK(c, http.StatusOK, gin.H{"message": "Logged out"})
}

// handleMe handles GET /api/me
func (s *Server) handleMe(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	dto, err := s.deps.GetUser.Handle(c.Request.Context(), query.GetUserQuery{UserID: p.UserID})
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.OK(c, http.StatusOK, dto)
}

func (s *Server) setSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.config.CookieName, token, maxAge, "/", s.config.CookieDomain, s.config.CookieSecure, true)
}

func (s *Server) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.config.CookieName, "", -1, "/", s.config.CookieDomain, s.config.CookieSecure, true)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetProgress handles GET /api/progress
func (s *Server) handleGetProgress(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	dto, err := s.deps.GetProgress.Handle(c.Request.Context(), query.GetProgressQuery{UserID: p.UserID})
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.OK(c, http.StatusOK, dto)
}

// handleUpdateProgress handles POST /api/update-progress
func (s *Server) handleUpdateProgress(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req updateProgressRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := s.deps.CompleteLesson.Handle(c.Request.Context(), command.CompleteLessonCommand{
		UserID:   p.UserID,
		LessonID: req.LessonID,
		Score:    *req.Score,
	})
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	handlers.OK(c, http.StatusOK, updateProgressResponse{
		ProgressDTO:   query.NewProgressDTO(res.Record),
		LessonID:      res.LessonID.Int(),
		NewLesson:     res.NewLesson,
		JustCertified: res.JustCertified,
		XP:            newXPSummary(res.XP),
	})
}

// handleTopicProgress handles POST /api/topic-progress
func (s *Server) handleTopicProgress(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req topicProgressRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := s.deps.CompleteTopicLesson.Handle(c.Request.Context(), command.CompleteTopicLessonCommand{
		UserID:  p.UserID,
		TopicID: req.TopicID,
		Score:   *req.Score,
	})
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	handlers.OK(c, http.StatusOK, topicProgressResponse{
		TopicID:            res.TopicID.Int64(),
		PreviousDifficulty: res.PreviousDifficulty.Int(),
		CurrentDifficulty:  res.CurrentDifficulty.Int(),
		AverageScore:       res.AverageScore,
		LessonsCompleted:   res.LessonsCompleted,
		XP:                 newXPSummary(res.XP),
	})
}

// handleDashboard handles GET /api/dashboard
func (s *Server) handleDashboard(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	dto, err := s.deps.GetDashboard.Handle(c.Request.Context(), query.GetDashboardQuery{UserID: p.UserID})
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.OK(c, http.StatusOK, dto)
}

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListTopics handles GET /api/topics
func (s *Server) handleListTopics(c *gin.Context) {
	topics, err := s.deps.Catalog.ListTopics(c.Request.Context())
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.OK(c, http.StatusOK, topics)
}

// handleGetTopic handles GET /api/topics/:slug
func (s *Server) handleGetTopic(c *gin.Context) {
	topic, err := s.deps.Catalog.GetTopic(c.Request.Context(), c.Param("slug"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.OK(c, http.StatusOK, topic)
}

// handleListLessons handles GET /api/lessons
func (s *Server) handleListLessons(c *gin.Context) {
	lessons, err := s.deps.Catalog.ListLessons(c.Request.Context())
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.OK(c, http.StatusOK, lessons)
}

// handleGenerateLesson handles POST /api/generate-lesson
func (s *Server) handleGenerateLesson(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if !s.deps.Features.IsEnabled(config.FeatureLessonPreparation, config.ForUser(p.UserID.String())) {
		handlers.Fail(c, http.StatusNotFound, handlers.CodeDisabled, "lesson preparation is disabled")
		return
	}

	// An empty body selects the default topic and template type.
	var req generateLessonRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	res, err := s.deps.PrepareLesson.Handle(c.Request.Context(), command.PrepareLessonCommand{
		UserID: p.UserID,
		Topic:  req.Topic,
		Type:   req.Type,
	})
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	sections := res.Lesson.Sections
	if sections == nil {
		sections = []catalog.Section{}
	}
	handlers.OK(c, http.StatusCreated, generatedLessonResponse{
		ID:           res.Lesson.ID,
		Title:        res.Lesson.Title,
		Topic:        res.Topic.Slug,
		TemplateType: string(res.Type),
		Difficulty:   res.Lesson.DifficultyAdapted.Int(),
		Sections:     sections,
		CreatedAt:    res.Lesson.CreatedAt,
	})
}
