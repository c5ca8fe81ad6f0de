// Package site renders the public portfolio pages from CMS data.
package site

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nour-az/portfolio-cms/internal/models"
	"github.com/nour-az/portfolio-cms/internal/services"
)

//go:embed templates/*.html
var templatesFS embed.FS

var modes = []string{"classic", "fantasy", "portal"}

type page struct {
	Mode        string
	Settings    models.Settings
	Bio         models.Bio
	Projects    []models.Project
	Experiences []models.Experience
	Education   []models.Education
	Skills      []models.Skill
}

type Site struct {
	cms *services.CMSService
	log *zap.SugaredLogger
}

func Templates() *template.Template {
	return template.Must(template.New("").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(templatesFS, "templates/*.html"))
}

// Register mounts the display-mode pages on r. The root redirects to the
// default mode from settings.
func Register(r *gin.Engine, cms *services.CMSService, log *zap.SugaredLogger) {
	s := &Site{cms: cms, log: log}
	r.SetHTMLTemplate(Templates())

	r.GET("/", s.Root)
	for _, mode := range modes {
		r.GET("/"+mode, s.render(mode))
	}
}

func (s *Site) settings(ctx context.Context) models.Settings {
	v, _ := s.cms.Settings.Resolve(ctx)
	if v == nil {
		return *services.DefaultSettings()
	}
	return *v
}

func (s *Site) Root(c *gin.Context) {
	mode := s.settings(c.Request.Context()).DefaultMode
	if mode != "classic" && mode != "fantasy" {
		mode = "portal"
	}
	c.Redirect(http.StatusFound, "/"+mode)
}

func (s *Site) render(mode string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		p := page{Mode: mode, Settings: s.settings(ctx)}
		if bio, _ := s.cms.Bio.Resolve(ctx); bio != nil {
			p.Bio = *bio
		}
		p.Projects, _ = s.cms.Projects.Resolve(ctx)
		p.Experiences, _ = s.cms.Experiences.Resolve(ctx)
		p.Education, _ = s.cms.Education.Resolve(ctx)
		p.Skills, _ = s.cms.Skills.Resolve(ctx)

		s.log.Debugw("rendering page", "mode", mode, "projects", len(p.Projects))
		c.HTML(http.StatusOK, mode+".html", p)
	}
}
