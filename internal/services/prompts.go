package services

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/nour-az/portfolio-cms/internal/models"
)

var dateLayouts = []string{time.RFC3339, "2006-01-02", "2006-01", "2006/01/02", "01/2006", "2006"}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func or(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// sortExperiences orders current roles first, then by start date, newest first.
func sortExperiences(in []models.Experience) []models.Experience {
	out := slices.Clone(in)
	slices.SortStableFunc(out, func(a, b models.Experience) int {
		if a.Current != b.Current {
			if a.Current {
				return -1
			}
			return 1
		}
		ta, _ := parseDate(a.StartDate)
		tb, _ := parseDate(b.StartDate)
		return cmp.Compare(tb.Unix(), ta.Unix())
	})
	return out
}

func experienceEntry(exp models.Experience) string {
	dateRange := "[ Date not specified ]"
	if start, ok := parseDate(exp.StartDate); ok {
		end := "Current"
		if exp.EndDate != nil && strings.TrimSpace(*exp.EndDate) != "" {
			end = *exp.EndDate
			if t, ok := parseDate(end); ok {
				end = t.Format("02/01/2006")
			}
		}
		dateRange = fmt.Sprintf("[ %s – %s ]", start.Format("02/01/2006"), end)
	}

	location := "Location not specified"
	if exp.Location != "" && exp.Country != "" {
		location = fmt.Sprintf("City: %s | Country: %s", exp.Location, exp.Country)
	}

	achievements := "• Contributed to company projects and initiatives"
	if len(exp.Achievements) > 0 {
		lines := make([]string, len(exp.Achievements))
		for i, a := range exp.Achievements {
			lines[i] = "• " + a
		}
		achievements = strings.Join(lines, "\n")
	}

	tech := ""
	if len(exp.Technologies) > 0 {
		tech = "Technologies: " + strings.Join(exp.Technologies, ", ")
	}

	return fmt.Sprintf("EXPERIENCE ENTRY:\nCompany: %s\nPosition: %s\nDate Range: %s\nLocation: %s\nAchievements:\n%s\n%s",
		or(exp.Company, "Company"), or(exp.Position, "Position"), dateRange, location, achievements, tech)
}

func educationEntry(edu models.Education) string {
	dateRange := "Dates not specified"
	start, okStart := parseDate(edu.StartDate)
	end, okEnd := parseDate(edu.EndDate)
	if okStart && okEnd {
		dateRange = fmt.Sprintf("[ %s – %s ]", start.Format("01/2006"), end.Format("01/2006"))
	}
	return fmt.Sprintf("Degree: %s\nInstitution: %s\nLocation: %s\nDate Range: %s\nField: %s",
		edu.Degree, edu.InstitutionName(), edu.Location, dateRange, edu.Field)
}

func projectEntry(p models.Project) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s\n", or(p.Title, "Untitled Project"))
	fmt.Fprintf(&b, "Description: %s\n", or(p.Description, "No description"))
	fmt.Fprintf(&b, "Technologies: %s", strings.Join(p.Tech(), ", "))
	if p.Link != "" {
		fmt.Fprintf(&b, "\nLink: %s", p.Link)
	}
	if p.Featured {
		b.WriteString("\n[Featured Project]")
	}
	return b.String()
}

func skillLabel(s models.Skill) string {
	if s.Proficiency != "" {
		return fmt.Sprintf("%s (%s)", s.Name, s.Proficiency)
	}
	return s.Name
}

func joinOr(parts []string, sep, fallback string) string {
	if len(parts) == 0 {
		return fallback
	}
	return strings.Join(parts, sep)
}

func mapSlice[T any](in []T, limit int, f func(T) string) []string {
	if limit > 0 && len(in) > limit {
		in = in[:limit]
	}
	out := make([]string, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}

const outputRule = `**CRITICAL OUTPUT RULE**:
Generate ONLY the HTML code. NO explanations, NO commentary, NO markdown code blocks.
STOP immediately after the closing </div> tag. Do NOT add any text after the HTML.
Your response should start with <div and end with </div> - NOTHING ELSE.`

const cvPromptTemplate = `You are an expert ATS-optimized CV writer specializing in technical roles. Create a professional, achievement-focused CV in clean HTML format.

JOB POSTING:
%s

CANDIDATE DATA:
Name: %s
Current Title: %s
Email: %s
Phone: %s
Location: %s
LinkedIn: %s
GitHub: %s
Website: %s

ABOUT ME:
%s

TECHNICAL SKILLS:
%s

WORK EXPERIENCE DATA (%d entries):
%s

KEY PROJECTS:
%s

EDUCATION DATA:
%s

LANGUAGES:
%s

REQUIREMENTS:
1. Tailor every section to the job posting above: mirror its keywords, emphasize the skills and technologies it asks for, and frame achievements around what this employer needs.
2. Structure: wrap everything in <div class="cv-container"> with a header (name, contact line) followed by ABOUT ME, WORK EXPERIENCE, EDUCATION AND TRAINING and SKILLS sections using h1, h2, ul, li and strong.
3. Include ALL %d experience entries, each in its own experience-item div, in EXACTLY the order given. Do not merge, reorder or invent roles, companies or dates.
4. Rewrite each achievement as a strong, quantified bullet that starts with the • character.
5. ABOUT ME: 5-6 first-person sentences (150-200 words) written for this specific role.
6. SKILLS: prioritize skills named in the posting, grouped by proficiency.
7. No tables or columns. Present tense for current roles, past tense for previous ones.

%s

Generate the CV now:`

func buildCVPrompt(jobPosting string, c *Candidate) string {
	bio := c.Bio
	exps := sortExperiences(c.Experiences)

	return fmt.Sprintf(cvPromptTemplate,
		jobPosting,
		or(bio.Name, "Candidate"), or(bio.Title, "Software Engineer"),
		bio.Email, bio.Phone, bio.Location, bio.Linkedin, bio.Github, bio.Website,
		or(bio.About, bio.Intro),
		joinOr(mapSlice(c.Skills, 0, skillLabel), " • ", "Various technical skills"),
		len(exps),
		joinOr(mapSlice(exps, 0, experienceEntry), "\n\n---\n\n", "No experience data available"),
		joinOr(mapSlice(c.Projects, 8, projectEntry), "\n\n", "No projects listed"),
		joinOr(mapSlice(c.Education, 0, educationEntry), "\n\n", "Not specified"),
		joinOr(mapSlice(bio.Languages, 0, func(l models.Language) string {
			return fmt.Sprintf("%s (%s)", l.Language, l.Level)
		}), " | ", "Not specified"),
		len(exps),
		outputRule,
	)
}

const coverLetterPromptTemplate = `You are an expert cover letter writer specializing in technical roles. Create a compelling, personalized cover letter in HTML format.

JOB POSTING:
%s

CANDIDATE INFORMATION:
Name: %s
Current Title: %s
Email: %s
Phone: %s
Location: %s

PROFESSIONAL BACKGROUND:
%s

KEY TECHNICAL SKILLS: %s

NOTABLE PROJECTS & ACHIEVEMENTS:
%s

REQUIREMENTS:
1. 350-400 words in four paragraphs inside <div class="cover-letter">: a greeting ("Dear Hiring Manager,"), an opening that names the role and why the candidate fits, two body paragraphs on the most relevant skills and one or two quantified achievements, and a closing.
2. Mirror 3-5 technical terms from the posting naturally; mention the company by name if the posting gives it.
3. Close with a concrete value proposition, a confident call to action and availability (%s). Avoid passive endings such as "thank you for your consideration".
4. Sign off with <p class="signature">Sincerely,<br>%s</p>.

%s

Generate the cover letter now:`

func buildCoverLetterPrompt(jobPosting string, c *Candidate) string {
	bio := c.Bio
	name := or(bio.Name, "Candidate")

	projects := mapSlice(c.Projects, 3, func(p models.Project) string {
		s := or(p.Title, "Project")
		if p.Description != "" {
			s += ": " + truncate(p.Description, 100)
		}
		return s
	})
	skills := mapSlice(c.Skills, 8, func(s models.Skill) string { return s.Name })

	return fmt.Sprintf(coverLetterPromptTemplate,
		jobPosting,
		name, or(bio.Title, "Software Engineer"), bio.Email, bio.Phone, bio.Location,
		or(bio.About, bio.Intro),
		joinOr(skills, ", ", "various technical skills"),
		joinOr(projects, "\n", "various innovative projects"),
		or(or(bio.Phone, bio.Email), "your convenience"),
		name,
		outputRule,
	)
}

// trimAfterLastDiv drops whatever the model wrote after the final closing </div>.
func trimAfterLastDiv(s string) string {
	const closing = "</div>"
	if i := strings.LastIndex(s, closing); i != -1 {
		s = s[:i+len(closing)]
	}
	return strings.TrimSpace(s)
}
