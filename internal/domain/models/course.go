package models

// Course is a catalog entry served from the OpenEdX APIs. Courses are not
// persisted locally; cart items keep a JSON snapshot of this struct instead.
// Field names follow the OpenEdX course API payloads so the same struct
// decodes catalog, mobile, and commerce responses.
type Course struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Org              string       `json:"org,omitempty"`
	Number           string       `json:"number,omitempty"`
	ShortDescription string       `json:"short_description,omitempty"`
	Overview         string       `json:"overview,omitempty"`
	Prerequisites    string       `json:"prerequisites,omitempty"`
	Start            *string      `json:"start,omitempty"`
	StartDisplay     string       `json:"start_display,omitempty"`
	End              *string      `json:"end,omitempty"`
	EnrollmentStart  *string      `json:"enrollment_start,omitempty"`
	EnrollmentEnd    *string      `json:"enrollment_end,omitempty"`
	Pacing           string       `json:"pacing,omitempty"`
	Effort           string       `json:"effort,omitempty"`
	Media            *CourseMedia `json:"media,omitempty"`
	MobileAvailable  *bool        `json:"mobile_available,omitempty"`
	Price            float64      `json:"price"`
	Currency         string       `json:"currency"`
	Mode             string       `json:"mode,omitempty"`
	IsEnrolled       bool         `json:"is_enrolled"`
}

// CourseImage holds the URLs of a course media asset. The catalog API uses
// raw/small/large, the mobile API uses uri.
type CourseImage struct {
	Raw   string `json:"raw,omitempty"`
	Small string `json:"small,omitempty"`
	Large string `json:"large,omitempty"`
	URI   string `json:"uri,omitempty"`
}

// CourseMedia mirrors the media block of the OpenEdX course APIs
type CourseMedia struct {
	CourseImage *CourseImage `json:"course_image,omitempty"`
	Image       *CourseImage `json:"image,omitempty"`
	CourseVideo *CourseImage `json:"course_video,omitempty"`
}

// CourseList is one page of catalog results
type CourseList struct {
	Results    []Course   `json:"results"`
	Pagination Pagination `json:"pagination"`
}

// Pagination describes a catalog page
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// ApplyDisplayDefaults fills the display fields a detail view expects when
// the upstream payload omits them.
func (c *Course) ApplyDisplayDefaults() {
	if c.Name == "" {
		c.Name = "Course"
	}
	if c.ShortDescription == "" {
		c.ShortDescription = "No description available."
	}
	if c.Overview == "" {
		c.Overview = "No overview available."
	}
	if c.Prerequisites == "" {
		c.Prerequisites = "No prerequisites."
	}
	if c.Org == "" {
		c.Org = "Organization"
	}
	if c.Number == "" {
		c.Number = "Course Number"
	}
	if c.StartDisplay == "" {
		c.StartDisplay = "Not specified"
	}
	if c.Pacing == "" {
		c.Pacing = "Self-paced"
	}
	if c.Effort == "" {
		c.Effort = "Not specified"
	}
	if c.Currency == "" {
		c.Currency = "USD"
	}
	if c.Media == nil {
		c.Media = &CourseMedia{}
	}
	if c.MobileAvailable == nil {
		available := true
		c.MobileAvailable = &available
	}
}
