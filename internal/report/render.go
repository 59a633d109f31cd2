package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/valueminer/valueminer/internal/domain"
	"github.com/valueminer/valueminer/pkg/ui"
)

const (
	// DefaultTopClips is how many clips the digest lists.
	DefaultTopClips = 8

	maxThemes = 5
	maxSteps  = 3

	defaultMessage     = "Across multiple clips, the core message repeated."
	defaultBelief      = "Clarity comes from doing, not just consuming."
	defaultMicroAction = "Pick one step from this clip and do it today."
)

var beliefs = map[domain.Category]string{
	domain.CategoryBusiness:     "Leverage and execution matter more than ideas.",
	domain.CategoryHealth:       "Small daily choices compound into long-term health.",
	domain.CategoryMindset:      "Identity drives behavior more than willpower.",
	domain.CategoryPolitics:     "Understanding systems reduces reactive decisions.",
	domain.CategoryReligion:     "Meaning is built through practice and reflection.",
	domain.CategoryProductivity: "Consistency beats intensity when pressure rises.",
	domain.CategoryOther:        defaultBelief,
}

var defaultSteps = []string{
	"Pick one habit tied to this theme.",
	"Attach it to a daily routine you already do.",
	"Track it for 7 days without optimizing.",
}

// Theme is a category with the number of clips filed under it.
type Theme struct {
	Name  string
	Count int
}

// Belief returns the underlying belief line for a category.
func Belief(c domain.Category) string {
	if b, ok := beliefs[c]; ok {
		return b
	}
	return defaultBelief
}

// Hook returns the opening line of the scroll report.
func Hook(top Theme, total int) string {
	if total == 0 {
		return "Based on your last 24 hours of scrolling, you mined no clips."
	}
	threshold := float64(total) * 0.5
	if threshold < 2 {
		threshold = 2
	}
	if float64(top.Count) >= threshold {
		return fmt.Sprintf("Your scroll heavily rewarded %s and practical execution.", strings.ToLower(top.Name))
	}
	return "Your scroll rewarded urgency and improvement more than entertainment."
}

// CountCategories counts clips per category in first-seen order.
func CountCategories(clips []*domain.Clip) []Theme {
	var themes []Theme
	index := make(map[domain.Category]int)
	for _, c := range clips {
		cat := c.CategoryOrOther()
		i, ok := index[cat]
		if !ok {
			i = len(themes)
			index[cat] = i
			themes = append(themes, Theme{Name: string(cat)})
		}
		themes[i].Count++
	}
	return themes
}

// TopThemes returns up to five categories ordered by clip count. Ties keep
// first-seen order, so with newest-first clips the most recent theme wins.
func TopThemes(clips []*domain.Clip) []Theme {
	themes := CountCategories(clips)
	sort.SliceStable(themes, func(i, j int) bool {
		return themes[i].Count > themes[j].Count
	})
	if len(themes) > maxThemes {
		themes = themes[:maxThemes]
	}
	return themes
}

type digestClip struct {
	Title    string
	Category string
	Analysis string
	Steps    []string
}

type digestData struct {
	Label      string
	Email      string
	Categories []Theme
	Clips      []digestClip
}

// BuildDigest renders the scheduled report body. clips are expected newest
// first; only the first top are listed.
func BuildDigest(freq domain.Frequency, email string, clips []*domain.Clip, top int) (string, error) {
	if top <= 0 {
		top = DefaultTopClips
	}

	data := digestData{
		Label:      freq.Label(),
		Email:      email,
		Categories: CountCategories(clips),
	}
	for i, c := range clips {
		if i == top {
			break
		}
		data.Clips = append(data.Clips, digestClip{
			Title:    c.DisplayTitle(),
			Category: string(c.CategoryOrOther()),
			Analysis: c.Analysis,
			Steps:    firstSteps(c.ActionPlan),
		})
	}

	var buf bytes.Buffer
	if err := ui.DigestTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render digest: %w", err)
	}
	return buf.String(), nil
}

type deepDive struct {
	Category string
	Message  string
	Belief   string
	Steps    []string
}

type standout struct {
	Title       string
	Analysis    string
	MicroAction string
}

type scrollData struct {
	Label     string
	Email     string
	Hook      string
	Themes    []Theme
	DeepDives []deepDive
	Standout  *standout
}

// BuildScrollReport renders the on-demand report body.
func BuildScrollReport(freq domain.Frequency, email string, clips []*domain.Clip) (string, error) {
	themes := TopThemes(clips)

	top := Theme{Name: string(domain.CategoryOther)}
	if len(themes) > 0 {
		top = themes[0]
	}

	data := scrollData{
		Label:  freq.Label(),
		Email:  email,
		Hook:   Hook(top, len(clips)),
		Themes: themes,
	}

	for _, t := range themes {
		dive := deepDive{
			Category: t.Name,
			Message:  defaultMessage,
			Belief:   Belief(domain.Category(t.Name)),
			Steps:    defaultSteps,
		}
		if sample := firstInCategory(clips, domain.Category(t.Name)); sample != nil {
			if sample.Analysis != "" {
				dive.Message = sample.Analysis
			}
			if len(sample.ActionPlan) > 0 {
				dive.Steps = firstSteps(sample.ActionPlan)
			}
		}
		data.DeepDives = append(data.DeepDives, dive)
	}

	if len(clips) > 0 {
		c := clips[0]
		s := &standout{
			Title:       c.DisplayTitle(),
			Analysis:    c.Analysis,
			MicroAction: defaultMicroAction,
		}
		if len(c.ActionPlan) > 0 && c.ActionPlan[0] != "" {
			s.MicroAction = c.ActionPlan[0]
		}
		data.Standout = s
	}

	var buf bytes.Buffer
	if err := ui.ScrollReportTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render scroll report: %w", err)
	}
	return buf.String(), nil
}

func firstInCategory(clips []*domain.Clip, cat domain.Category) *domain.Clip {
	for _, c := range clips {
		if c.CategoryOrOther() == cat {
			return c
		}
	}
	return nil
}

func firstSteps(plan []string) []string {
	if len(plan) > maxSteps {
		return plan[:maxSteps]
	}
	return plan
}
