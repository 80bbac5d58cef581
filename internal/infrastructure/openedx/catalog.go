package openedx

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/eskills-store/backend/internal/domain/models"
	"github.com/eskills-store/backend/pkg/constants"
)

// Price sources reported by GetCoursePrice
const (
	PriceSourceCommerce    = "commerce_api"
	PriceSourceCourseModes = "course_modes_api"
	PriceSourceDefault     = "default"
)

// PriceInfo is the resolved price of a course and which API produced it
type PriceInfo struct {
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	Source   string  `json:"source"`
}

// ModeInfo is the resolved enrollment mode of a course
type ModeInfo struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
}

// priceValue tolerates both the string ("149.00") and numeric (149) price
// encodings the LMS APIs use. Unparseable values decode as zero.
type priceValue float64

func (p *priceValue) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*p = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*p = 0
		return nil
	}
	*p = priceValue(f)
	return nil
}

type courseMode struct {
	Name     string     `json:"name"`
	Slug     string     `json:"mode_slug"`
	Price    priceValue `json:"price"`
	MinPrice priceValue `json:"min_price"`
	Currency string     `json:"currency"`
}

func (m courseMode) price() float64 {
	if m.Price != 0 {
		return float64(m.Price)
	}
	return float64(m.MinPrice)
}

func (m courseMode) currencyOrDefault() string {
	if m.Currency == "" {
		return constants.DefaultCurrency
	}
	return strings.ToUpper(m.Currency)
}

type courseListResponse struct {
	Results    []models.Course `json:"results"`
	Pagination struct {
		Count    int     `json:"count"`
		NumPages int     `json:"num_pages"`
		Next     *string `json:"next"`
		Previous *string `json:"previous"`
	} `json:"pagination"`
}

// NormalizeCourseID ensures the id carries the course-v1: prefix the LMS
// APIs expect. Ids arriving from URLs frequently lose it.
func NormalizeCourseID(courseID string) string {
	if courseID == "" || strings.Contains(courseID, ":") {
		return courseID
	}
	return "course-v1:" + courseID
}

// GetCourses fetches one page of the course catalog. It returns the page
// results and the total course count.
func (c *Client) GetCourses(ctx context.Context, page, pageSize int) ([]models.Course, int, error) {
	query := url.Values{
		"page":      {strconv.Itoa(page)},
		"page_size": {strconv.Itoa(pageSize)},
	}

	var data courseListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/courses/v1/courses/?"+query.Encode(), nil, &data, false); err != nil {
		return nil, 0, err
	}
	return data.Results, data.Pagination.Count, nil
}

// GetCourse fetches the catalog detail for a course. When the catalog API
// does not know the course it falls back to the mobile course info API,
// which covers some older course runs.
func (c *Client) GetCourse(ctx context.Context, courseID string) (*models.Course, error) {
	courseID = NormalizeCourseID(courseID)

	var course models.Course
	err := c.doJSON(ctx, http.MethodGet, "/api/courses/v1/courses/"+url.PathEscape(courseID), nil, &course, false)
	if err == nil {
		return &course, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	var info models.Course
	if mobileErr := c.doJSON(ctx, http.MethodGet, "/api/mobile/v0.5/course_info/"+url.PathEscape(courseID), nil, &info, false); mobileErr != nil {
		// Report the catalog miss, not the fallback failure
		return nil, err
	}
	if info.ID == "" {
		info.ID = courseID
	}
	return &info, nil
}

// GetCoursePrice resolves the price of a course. The commerce API is
// authoritative when it lists a paid mode; the enrollment course modes API
// is the fallback. Professional and verified modes win over everything
// else. Courses without a priced mode are free.
func (c *Client) GetCoursePrice(ctx context.Context, courseID string) PriceInfo {
	courseID = NormalizeCourseID(courseID)
	escaped := url.PathEscape(courseID)

	var commerceData struct {
		Modes []courseMode `json:"modes"`
	}
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/commerce/v1/courses/%s/", escaped), nil, &commerceData, false)
	if err == nil {
		if info, ok := resolvePrice(commerceData.Modes, PriceSourceCommerce); ok {
			return info
		}
	}

	var modes []courseMode
	if modesErr := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/enrollment/v1/course/%s/modes", escaped), nil, &modes, false); modesErr == nil {
		if info, ok := resolvePrice(modes, PriceSourceCourseModes); ok {
			return info
		}
	}

	return PriceInfo{Price: 0, Currency: constants.DefaultCurrency, Source: PriceSourceDefault}
}

// resolvePrice applies the mode preference order: professional or verified
// first, then the first mode carrying a nonzero price.
func resolvePrice(modes []courseMode, source string) (PriceInfo, bool) {
	for _, m := range modes {
		name := strings.ToLower(m.Name)
		if name == constants.ModeProfessional || name == constants.ModeVerified {
			return PriceInfo{Price: m.price(), Currency: m.currencyOrDefault(), Source: source}, true
		}
	}
	for _, m := range modes {
		if m.price() > 0 {
			return PriceInfo{Price: m.price(), Currency: m.currencyOrDefault(), Source: source}, true
		}
	}
	return PriceInfo{}, false
}

// GetCourseMode resolves the enrollment mode to purchase a course under,
// preferring professional and verified slugs. Courses without a priced
// mode come back as audit.
func (c *Client) GetCourseMode(ctx context.Context, courseID string) ModeInfo {
	courseID = NormalizeCourseID(courseID)

	var modes []courseMode
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/course_modes/v1/courses/%s/", url.PathEscape(courseID)), nil, &modes, false)
	if err != nil {
		log.Printf("⚠️ Failed to fetch course modes for %s: %v", courseID, err)
		return ModeInfo{Name: constants.ModeAudit, Price: 0, Currency: constants.DefaultCurrency}
	}

	for _, m := range modes {
		slug := strings.ToLower(m.Slug)
		if slug == constants.ModeProfessional || slug == constants.ModeVerified {
			return ModeInfo{Name: slug, Price: m.price(), Currency: m.currencyOrDefault()}
		}
	}
	for _, m := range modes {
		if m.price() > 0 {
			name := m.Name
			if name == "" {
				name = m.Slug
			}
			return ModeInfo{Name: name, Price: m.price(), Currency: m.currencyOrDefault()}
		}
	}
	return ModeInfo{Name: constants.ModeAudit, Price: 0, Currency: constants.DefaultCurrency}
}
