package services

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nour-az/portfolio-cms/internal/kv"
	"github.com/nour-az/portfolio-cms/internal/models"
)

// CMSService is the typed data access layer over the key-value store.
type CMSService struct {
	Bio         *Singleton[models.Bio]
	Settings    *Singleton[models.Settings]
	Projects    *List[models.Project]
	Experiences *List[models.Experience]
	Education   *List[models.Education]
	Skills      *List[models.Skill]

	store kv.Store
	log   *zap.SugaredLogger
}

func NewCMSService(store kv.Store, files *LocalFiles, log *zap.SugaredLogger) *CMSService {
	return &CMSService{
		Bio:         &Singleton[models.Bio]{key: models.KeyBio, store: store, files: files, log: log},
		Settings:    &Singleton[models.Settings]{key: models.KeySettings, store: store, files: files, builtin: DefaultSettings, log: log},
		Projects:    &List[models.Project]{key: models.KeyProjects, store: store, files: files, log: log},
		Experiences: &List[models.Experience]{key: models.KeyExperiences, store: store, files: files, log: log},
		Education:   &List[models.Education]{key: models.KeyEducation, store: store, files: files, log: log},
		Skills:      &List[models.Skill]{key: models.KeySkills, store: store, files: files, log: log},
		store:       store,
		log:         log,
	}
}

// DefaultSettings is the last tier of the settings fallback chain.
func DefaultSettings() *models.Settings {
	return &models.Settings{
		Theme:           "dark",
		DefaultMode:     "classic",
		SiteTitle:       "Traveler Between Realms",
		SiteDescription: "A portfolio bridging reality and fantasy",
	}
}

// ClearAll blanks every CMS key concurrently and reports how many writes
// succeeded and failed. Individual failures do not stop the others.
func (s *CMSService) ClearAll(ctx context.Context) (cleared, failed int) {
	errs := make([]error, len(models.AllKeys))
	var g errgroup.Group
	for i, key := range models.AllKeys {
		g.Go(func() error {
			errs[i] = s.store.Put(ctx, key, "", 0)
			return nil
		})
	}
	g.Wait()

	for i, err := range errs {
		if err != nil {
			failed++
			s.log.Warnw("failed to clear key", "key", models.AllKeys[i], "error", err)
			continue
		}
		cleared++
	}
	s.log.Infof("cleared %d/%d CMS keys", cleared, len(models.AllKeys))
	return cleared, failed
}

// Candidate is everything the document generator knows about the site owner.
type Candidate struct {
	Bio         models.Bio
	Projects    []models.Project
	Skills      []models.Skill
	Experiences []models.Experience
	Education   []models.Education
}

// LoadCandidate resolves the data used to build prompts. It returns
// ErrNotFound when no bio exists in any tier.
func (s *CMSService) LoadCandidate(ctx context.Context) (*Candidate, error) {
	bio, _ := s.Bio.Resolve(ctx)
	if bio == nil {
		return nil, ErrNotFound
	}
	c := &Candidate{Bio: *bio}
	c.Projects, _ = s.Projects.Resolve(ctx)
	c.Skills, _ = s.Skills.Resolve(ctx)
	c.Experiences, _ = s.Experiences.Resolve(ctx)
	c.Education, _ = s.Education.Resolve(ctx)
	return c, nil
}
