package handlers

import (
	"quiz-live-backend/internal/live"
	"quiz-live-backend/internal/middleware"
	"quiz-live-backend/internal/services"
	"quiz-live-backend/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type RouterDeps struct {
	Auth          *services.AuthService
	Backend       *services.Backend
	Manager       *live.Manager
	Hub           *ws.Hub
	PublicBaseURL string
}

// NewRouter mounts the REST API, the WebSocket stream and the swagger UI.
func NewRouter(d RouterDeps) *gin.Engine {
	RegisterValidators()

	authHandler := NewAuthHandler(d.Auth)
	quizHandler := NewQuizHandler(d.Backend.QuizService)
	sessionHandler := NewSessionHandler(d.Manager, d.Backend, d.PublicBaseURL)
	playHandler := NewPlayHandler(d.Manager.Player())
	wsHandler := NewWSHandler(d.Hub)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.ParticipantTokenHeader},
		ExposeHeaders: []string{"Content-Length"},
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/ws/session/:id", wsHandler.HandleWebSocket)

	jwt := middleware.JWTAuth(d.Auth)
	participant := middleware.ParticipantAuth(d.Backend)

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		quizzes := api.Group("/quizzes")
		quizzes.Use(jwt)
		{
			quizzes.GET("", quizHandler.ListQuizzes)
			quizzes.POST("", quizHandler.CreateQuiz)
			quizzes.GET("/:id", quizHandler.GetQuiz)
			quizzes.PUT("/:id", quizHandler.UpdateQuiz)
			quizzes.DELETE("/:id", quizHandler.DeleteQuiz)
			quizzes.POST("/:id/questions", quizHandler.AddQuestion)
		}

		questions := api.Group("/questions")
		questions.Use(jwt)
		{
			questions.DELETE("/:id", quizHandler.DeleteQuestion)
		}

		sessions := api.Group("/sessions")
		sessions.Use(jwt)
		{
			sessions.GET("", sessionHandler.ListSessions)
			sessions.POST("", sessionHandler.CreateSession)
			sessions.GET("/:id", sessionHandler.GetSession)
			sessions.PUT("/:id/config", sessionHandler.ConfigureSession)
			sessions.POST("/:id/start", sessionHandler.StartSession)
			sessions.POST("/:id/end", sessionHandler.EndSession)
			sessions.POST("/:id/play", sessionHandler.HostPlay)
			sessions.GET("/:id/leaderboard", sessionHandler.GetLeaderboard)
			sessions.GET("/:id/events", sessionHandler.ListEvents)
		}

		play := api.Group("/play")
		{
			play.GET("/sessions", playHandler.LookupSession)
			play.POST("/join", playHandler.Join)
			play.GET("/sessions/:id", participant, playHandler.GetSession)
			play.GET("/sessions/:id/questions", participant, playHandler.GetQuestions)
			play.GET("/sessions/:id/leaderboard", participant, playHandler.GetLeaderboard)
			play.PUT("/responses", participant, playHandler.SaveResponse)
			play.POST("/finish", participant, playHandler.Finish)
			play.POST("/score", participant, playHandler.Score)
			play.POST("/leave", participant, playHandler.Leave)
		}
	}

	return r
}
