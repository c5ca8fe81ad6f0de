package handlers

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nour-az/portfolio-cms/internal/auth"
	"github.com/nour-az/portfolio-cms/internal/models"
	"github.com/nour-az/portfolio-cms/internal/services"
)

const requestIDHeader = "X-Request-ID"

// RequestID stamps every response with an id, reusing the caller's when given.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

type RouterDeps struct {
	CMS         *services.CMSService
	LLM         *services.LLMService
	Gate        *auth.Gate
	CORSOrigins []string
	Log         *zap.Logger
}

// NewRouter assembles the API. GETs are public; every other route passes the
// auth gate before its handler touches the store.
func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.Default()

	config := cors.DefaultConfig()
	if len(d.CORSOrigins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = d.CORSOrigins
	}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", requestIDHeader}
	config.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	config.ExposeHeaders = []string{requestIDHeader}
	r.Use(cors.New(config), RequestID())

	log := d.Log.Sugar().Named("handlers")
	guard := d.Gate.Middleware(d.Log.Sugar().Named("auth"))

	api := r.Group("/api")
	{
		api.GET("/health", HealthCheck)
		api.POST("/admin/auth", NewAuthHandler(d.Gate, log).Login)
	}

	cms := api.Group("/cms")
	{
		NewSingletonHandler[models.Bio](d.CMS.Bio, "Bio", log).Register(cms, "/bio", guard)
		NewSingletonHandler[models.Settings](d.CMS.Settings, "Settings", log).Register(cms, "/settings", guard)

		NewListHandler[models.Project](d.CMS.Projects, "project", "projects", log).Register(cms, "/projects", guard)
		NewListHandler[models.Experience](d.CMS.Experiences, "experience", "experiences", log).Register(cms, "/experiences", guard)
		NewListHandler[models.Education](d.CMS.Education, "education entry", "education entries", log).Register(cms, "/education", guard)
		NewListHandler[models.Skill](d.CMS.Skills, "skill", "skills", log).Register(cms, "/skills", guard)

		cms.POST("/clear", guard, NewClearHandler(d.CMS, log).ClearAll)
		cms.POST("/generate-cv", guard, NewGenerateHandler(d.CMS, d.LLM, log).GenerateCV)
	}

	return r
}
