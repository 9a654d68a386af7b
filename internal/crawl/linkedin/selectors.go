package linkedin

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

// Selectors locate listing data in LinkedIn markup. Card-level fields
// are relative to the card container.
type Selectors struct {
	JobCardContainer string `yaml:"job_card_container" json:"job_card_container"`
	JobIDAttr        string `yaml:"job_id_attr" json:"job_id_attr"`
	Title            string `yaml:"title" json:"title"`
	Company          string `yaml:"company" json:"company"`
	Location         string `yaml:"location" json:"location"`
	PostedAt         string `yaml:"posted_at" json:"posted_at"`
	Link             string `yaml:"link" json:"link"`
	Seniority        string `yaml:"seniority" json:"seniority"`
	EmpType          string `yaml:"emp_type" json:"emp_type"`
	Function         string `yaml:"function" json:"function"`
	Industries       string `yaml:"industries" json:"industries"`
	ApplicantCount   string `yaml:"applicant_count" json:"applicant_count"`
	Description      string `yaml:"description" json:"description"`
	CriteriaItem     string `yaml:"criteria_item" json:"criteria_item"`
	NextPage         string `yaml:"next_page" json:"next_page"`
	NoResults        string `yaml:"no_results" json:"no_results"`
	LoginWall        string `yaml:"login_wall" json:"login_wall"`
}

// DefaultSelectors match the logged-in /jobs/search page.
func DefaultSelectors() Selectors {
	return Selectors{
		JobCardContainer: "[data-job-id]",
		JobIDAttr:        "data-job-id",
		Title:            ".job-card-list__title, .job-card-list__title--link",
		Company:          ".job-card-container__company-name, .artdeco-entity-lockup__subtitle",
		Location:         ".job-card-container__metadata-item, .artdeco-entity-lockup__caption",
		PostedAt:         "time",
		Link:             "a[href*='/jobs/view/']",
		Seniority:        ".job-card-container__metadata-item:nth-child(1)",
		EmpType:          ".job-card-container__metadata-item:nth-child(2)",
		Function:         ".job-card-container__metadata-item:nth-child(3)",
		Industries:       ".job-card-container__metadata-item:nth-child(4)",
		ApplicantCount:   ".job-card-container__applicant-count",
		Description:      ".jobs-description-content__text",
		CriteriaItem:     ".job-details-jobs-unified-top-card__job-insight",
		NextPage:         "button[aria-label='Next'], button[aria-label='View next page']",
		NoResults:        ".jobs-search-no-results-banner",
		LoginWall:        "form.login__form, .authwall-join-form, #join-form",
	}
}

// GuestSelectors match the public jobs-guest fragments.
func GuestSelectors() Selectors {
	return Selectors{
		JobCardContainer: "div.base-card, div.job-search-card",
		JobIDAttr:        "data-entity-urn",
		Title:            ".base-search-card__title",
		Company:          ".base-search-card__subtitle",
		Location:         ".job-search-card__location",
		PostedAt:         "time",
		Link:             "a.base-card__full-link, a[href*='/jobs/view/']",
		ApplicantCount:   ".num-applicants__caption",
		Description:      ".show-more-less-html__markup, .description__text",
		CriteriaItem:     ".description__job-criteria-item",
		NoResults:        ".no-results",
		LoginWall:        ".authwall-join-form, form.join-form, #join-form",
	}
}

// Merge returns s with every non-empty field of o applied on top.
func (s Selectors) Merge(o Selectors) Selectors {
	dst := reflect.ValueOf(&s).Elem()
	src := reflect.ValueOf(o)
	for i := 0; i < src.NumField(); i++ {
		if v := strings.TrimSpace(src.Field(i).String()); v != "" {
			dst.Field(i).SetString(v)
		}
	}
	return s
}

func (s Selectors) Validate() error {
	var missing []string
	if strings.TrimSpace(s.JobCardContainer) == "" {
		missing = append(missing, "job_card_container")
	}
	if strings.TrimSpace(s.Title) == "" {
		missing = append(missing, "title")
	}
	if len(missing) > 0 {
		return fmt.Errorf("selectors: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// LoadSelectors overlays the YAML or JSON file at path onto base. An
// empty path or a missing file returns base unchanged.
func LoadSelectors(path string, base Selectors) (Selectors, error) {
	if strings.TrimSpace(path) == "" {
		return base, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return base, err
	}

	var override Selectors
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(b, &override)
	default:
		err = yaml.Unmarshal(b, &override)
	}
	if err != nil {
		return base, fmt.Errorf("parse selectors %s: %w", path, err)
	}

	out := base.Merge(override)
	return out, out.Validate()
}
