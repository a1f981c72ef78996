package followup

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultSchedulingLink is used for coaches without a personal booking page.
	DefaultSchedulingLink = "https://calendly.com/4geeksacademy"
	// GuideLink points to the student reference guide included in step-1 messages.
	GuideLink = "https://www.notion.so/4geeksacademy/GeekFORCE-Student-Page-260b99bb21ab4555a46740473fe416e0"
)

var defaultCoachLinks = map[string]string{
	"Yoaní Palmás":    "https://calendly.com/yoanipalmas/30min",
	"Melissa Zwanck":  "https://calendly.com/melissazwanck/mentoring",
	"Cristina Crespo": "https://calendly.com/ccrespo-4geeksacademy/30min",
}

// CoachLinks maps a coach name to their scheduling link. Read-only once built.
type CoachLinks struct {
	links    map[string]string
	fallback string
}

// coachLinksFile is the YAML shape accepted by LoadCoachLinks.
type coachLinksFile struct {
	Default string            `yaml:"default"`
	Coaches map[string]string `yaml:"coaches"`
}

func DefaultCoachLinks() *CoachLinks {
	links := make(map[string]string, len(defaultCoachLinks))
	for k, v := range defaultCoachLinks {
		links[k] = v
	}
	return &CoachLinks{links: links, fallback: DefaultSchedulingLink}
}

// LoadCoachLinks reads a YAML file and merges it over the built-in table.
// An empty path returns the built-in table.
func LoadCoachLinks(path string) (*CoachLinks, error) {
	cl := DefaultCoachLinks()
	if path == "" {
		return cl, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read coach links file: %w", err)
	}
	var f coachLinksFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse coach links file %s: %w", path, err)
	}
	if d := strings.TrimSpace(f.Default); d != "" {
		cl.fallback = d
	}
	for coach, link := range f.Coaches {
		coach, link = strings.TrimSpace(coach), strings.TrimSpace(link)
		if coach == "" || link == "" {
			continue
		}
		cl.links[coach] = link
	}
	return cl, nil
}

// LinkFor returns the coach's scheduling link, or the default link for unknown coaches.
func (c *CoachLinks) LinkFor(coach string) string {
	if link, ok := c.links[strings.TrimSpace(coach)]; ok {
		return link
	}
	return c.fallback
}

func (c *CoachLinks) Len() int {
	return len(c.links)
}
