package handlers

import (
	"time"

	"github.com/contentanonymity/backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// RouteConfig carries what the route table needs from the server
type RouteConfig struct {
	Auth middleware.TokenValidator

	// CacheTTL for anonymous catalog GETs; zero disables the response cache
	CacheTTL time.Duration

	APIRateLimit  int // requests per minute per client, 0 for the default
	AuthRateLimit int
}

// RegisterRoutes mounts the /health probe, the websocket endpoint and the
// /api/v1 tree on r
func (h *Handlers) RegisterRoutes(r *gin.Engine, cfg RouteConfig) {
	r.GET("/health", h.Health)

	optionalAuth := middleware.OptionalAuth(cfg.Auth)
	requireAuth := middleware.RequireAuth(cfg.Auth)
	actAs := middleware.ActAsMiddleware(h.users)

	cached := func(group string) gin.HandlerFunc {
		if cfg.CacheTTL <= 0 {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.ResponseCacheMiddleware(group, cfg.CacheTTL)
	}
	catalogCache := cached(cacheGroupCatalog)
	forumCache := cached(cacheGroupForum)
	learningCache := cached(cacheGroupLearning)

	if h.wsHandler != nil {
		r.GET("/ws", h.wsHandler.HandleWebSocket)
		r.GET("/ws/metrics", requireAuth, middleware.RequireAdmin(), h.wsHandler.HandleMetrics)
	}

	api := r.Group("/api/v1")
	api.Use(middleware.RedisRateLimitMiddleware(middleware.DefaultRateLimitConfig(cfg.APIRateLimit)))

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RedisRateLimitMiddleware(middleware.AuthRateLimitConfig(cfg.AuthRateLimit)))
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.GET("/google", h.GoogleLogin)
		authGroup.GET("/google/callback", h.GoogleCallback)
		authGroup.POST("/password/forgot", h.ForgotPassword)
		authGroup.POST("/password/reset", h.ResetPassword)

		twoFactor := authGroup.Group("/2fa", requireAuth)
		twoFactor.POST("/setup", h.SetupTOTP)
		twoFactor.POST("/enable", h.EnableTOTP)
		twoFactor.POST("/disable", h.DisableTOTP)
	}

	me := api.Group("/me", requireAuth, actAs)
	{
		me.GET("", h.Me)
		me.PATCH("", h.UpdateProfile)
		me.POST("/avatar", middleware.RedisRateLimitMiddleware(middleware.UploadRateLimitConfig()), h.UploadAvatar)
	}
	api.GET("/users/:username", h.PublicProfile)

	public := api.Group("", optionalAuth)

	articles := public.Group("/articles")
	{
		articles.GET("", catalogCache, h.ListArticles)
		articles.GET("/featured", catalogCache, h.FeaturedArticles)
		articles.GET("/categories", catalogCache, h.ArticleCategories)
		articles.GET("/by-id/:id", h.GetArticleByID)
		articles.GET("/:slug", catalogCache, h.GetArticle)
		articles.GET("/:slug/related", catalogCache, h.RelatedArticles)
		articles.POST("/:slug/view", h.RecordArticleView)
		articles.POST("/:slug/like", requireAuth, h.LikeArticle)
	}

	tools := public.Group("/tools")
	{
		tools.GET("", catalogCache, h.ListTools)
		tools.GET("/categories", catalogCache, h.ToolCategories)
		tools.GET("/by-id/:id", h.GetToolByID)
		tools.GET("/:slug", catalogCache, h.GetTool)
	}

	templates := public.Group("/templates")
	{
		templates.GET("", catalogCache, h.ListTemplates)
		templates.GET("/categories", catalogCache, h.TemplateCategories)
		templates.GET("/by-id/:id", h.GetTemplateByID)
		templates.GET("/:slug", catalogCache, h.GetTemplate)
		templates.POST("/:slug/download", requireAuth, h.DownloadTemplate)
	}

	guides := public.Group("/guides")
	{
		guides.GET("", catalogCache, h.ListGuides)
		guides.GET("/categories", catalogCache, h.GuideCategories)
		guides.GET("/by-id/:id", h.GetGuideByID)
		// uncached so every read is counted
		guides.GET("/:slug", h.GetGuide)
	}

	niches := public.Group("/niches")
	{
		niches.GET("", catalogCache, h.ListNiches)
		niches.GET("/categories", catalogCache, h.NicheCategories)
		niches.GET("/compare", catalogCache, h.CompareNiches)
		niches.GET("/by-id/:id", h.GetNicheByID)
		niches.GET("/:slug", catalogCache, h.GetNiche)
	}

	learning := public.Group("/learning")
	{
		learning.GET("/paths", learningCache, h.ListPaths)
		learning.GET("/paths/:slug", h.GetPath)
		learning.POST("/paths/:slug/enroll", requireAuth, h.EnrollInPath)
		learning.GET("/paths/:slug/progress", requireAuth, h.PathProgress)
		learning.POST("/lessons/:id/complete", requireAuth, h.CompleteLesson)
		learning.GET("/enrollments", requireAuth, h.MyEnrollments)
	}

	forum := public.Group("/forum")
	{
		forum.GET("/posts", forumCache, h.ListForumPosts)
		forum.GET("/posts/:id", h.GetForumPost)

		member := forum.Group("", requireAuth, actAs)
		member.POST("/posts", h.CreateForumPost)
		member.PATCH("/posts/:id", h.UpdateForumPost)
		member.DELETE("/posts/:id", h.DeleteForumPost)
		member.POST("/posts/:id/replies", h.CreateReply)
		member.POST("/posts/:id/vote", h.VotePost)
		member.DELETE("/posts/:id/vote", h.UnvotePost)
		member.DELETE("/replies/:id", h.DeleteReply)
		member.POST("/replies/:id/accept", h.AcceptReply)
		member.POST("/replies/:id/vote", h.VoteReply)
		member.DELETE("/replies/:id/vote", h.UnvoteReply)
		member.PUT("/posts/:id/moderation", middleware.RequireAdmin(), h.ModeratePost)
	}

	gamification := api.Group("/gamification")
	{
		gamification.GET("/badges", h.BadgeCatalog)
		gamification.GET("/leaderboard", h.Leaderboard)
		gamification.GET("/me", requireAuth, h.PointsSummary)
		gamification.GET("/me/badges", requireAuth, h.MyBadges)
		gamification.POST("/checkin", requireAuth, h.CheckIn)
	}

	api.GET("/search", optionalAuth, middleware.RedisRateLimitMiddleware(middleware.SearchRateLimitConfig()), h.Search)

	newsletter := api.Group("/newsletter")
	{
		newsletter.POST("/subscribe", h.Subscribe)
		newsletter.POST("/confirm", h.ConfirmSubscription)
		newsletter.POST("/unsubscribe", h.Unsubscribe)
	}

	api.POST("/vitals", h.ReportVitals)

	api.POST("/uploads/image", requireAuth, middleware.RequireEditor(),
		middleware.RedisRateLimitMiddleware(middleware.UploadRateLimitConfig()), h.UploadImage)

	editor := api.Group("/editor", requireAuth, middleware.RequireEditor())
	{
		editor.POST("/articles", h.CreateArticle)
		editor.PATCH("/articles/:id", h.UpdateArticle)
		editor.DELETE("/articles/:id", h.DeleteArticle)

		editor.POST("/tools", h.CreateTool)
		editor.PATCH("/tools/:id", h.UpdateTool)
		editor.DELETE("/tools/:id", h.DeleteTool)

		editor.POST("/templates", h.CreateTemplate)
		editor.PATCH("/templates/:id", h.UpdateTemplate)
		editor.DELETE("/templates/:id", h.DeleteTemplate)

		editor.POST("/guides", h.CreateGuide)
		editor.PATCH("/guides/:id", h.UpdateGuide)
		editor.DELETE("/guides/:id", h.DeleteGuide)

		editor.POST("/niches", h.CreateNiche)
		editor.PATCH("/niches/:id", h.UpdateNiche)
		editor.DELETE("/niches/:id", h.DeleteNiche)

		editor.POST("/paths", h.CreatePath)
		editor.PATCH("/paths/:id", h.UpdatePath)
		editor.DELETE("/paths/:id", h.DeletePath)
		editor.POST("/paths/:id/lessons", h.CreateLesson)
	}

	admin := api.Group("/admin", requireAuth, middleware.RequireAdmin())
	{
		admin.POST("/import/:entity", h.ImportContent)
		admin.GET("/import/runs", h.ImportRuns)
		admin.PUT("/users/:username/role", h.PromoteUser)
		admin.POST("/search/reindex", h.Reindex)
		admin.GET("/stats", h.Stats)
	}
}
