package scraper

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Selectors holds the CSS selectors driving extraction. Job matches each
// posting container, the rest are queried inside every matched container.
type Selectors struct {
	Job      string `yaml:"job"`
	Title    string `yaml:"title"`
	Location string `yaml:"location"`
	Link     string `yaml:"link"`
}

// SelectorsFromFile reads selectors from a yaml file with job/title/location/link keys.
func SelectorsFromFile(file string) (Selectors, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return Selectors{}, fmt.Errorf("read selectors file %s: %w", file, err)
	}
	var res Selectors
	if err := yaml.Unmarshal(data, &res); err != nil {
		return Selectors{}, fmt.Errorf("parse selectors file %s: %w", file, err)
	}
	return res, nil
}

// Merge overlays non-empty fields of other on top of s and returns the result.
// Used to let explicit flags win over file-provided values.
func (s Selectors) Merge(other Selectors) Selectors {
	res := s
	if other.Job != "" {
		res.Job = other.Job
	}
	if other.Title != "" {
		res.Title = other.Title
	}
	if other.Location != "" {
		res.Location = other.Location
	}
	if other.Link != "" {
		res.Link = other.Link
	}
	return res
}

// Validate checks all four selectors are present.
func (s Selectors) Validate() error {
	missing := []string{}
	if s.Job == "" {
		missing = append(missing, "job")
	}
	if s.Title == "" {
		missing = append(missing, "title")
	}
	if s.Location == "" {
		missing = append(missing, "location")
	}
	if s.Link == "" {
		missing = append(missing, "link")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing selectors: %v", missing)
	}
	return nil
}
