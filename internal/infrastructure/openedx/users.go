package openedx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// RegistrationRequest carries the account fields collected at signup.
// Optional fields fall back to the storefront defaults.
type RegistrationRequest struct {
	Username             string
	Email                string
	Password             string
	Name                 string
	Country              string
	Gender               string
	LevelOfEducation     string
	MarketingEmailsOptIn bool
}

// RegistrationResult reports the account the LMS created. Username is the
// sanitized form the LMS accepted, which may differ from the requested one.
type RegistrationResult struct {
	Username  string
	EdxUserID *string
}

// RegistrationError carries the field messages the LMS returned for a
// rejected registration.
type RegistrationError struct {
	StatusCode int
	Message    string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("openedx registration failed (%d): %s", e.StatusCode, e.Message)
}

// SanitizeUsername strips characters the LMS rejects in usernames, keeping
// letters, digits, dots and underscores, and lowercases the result.
func SanitizeUsername(username string) string {
	var b strings.Builder
	for _, r := range username {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_' {
			b.WriteRune(r)
		}
	}
	return strings.ToLower(b.String())
}

// displayNameFromUsername derives a presentable full name from a username,
// turning separators into spaces and capitalizing each word.
func displayNameFromUsername(username string) string {
	cleaned := strings.NewReplacer(".", " ", "_", " ").Replace(username)
	words := strings.Fields(cleaned)
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// CreateUser registers an account on the LMS. Validation failures come back
// as a RegistrationError whose message joins the per-field messages the LMS
// reported.
func (c *Client) CreateUser(ctx context.Context, reg RegistrationRequest) (*RegistrationResult, error) {
	username := SanitizeUsername(reg.Username)
	if username == "" {
		return nil, &RegistrationError{StatusCode: http.StatusBadRequest, Message: "username: no valid characters"}
	}

	name := strings.TrimSpace(reg.Name)
	if name == "" {
		name = displayNameFromUsername(username)
	}
	country := reg.Country
	if country == "" {
		country = "EG"
	}
	gender := reg.Gender
	if gender == "" {
		gender = "o"
	}
	education := reg.LevelOfEducation
	if education == "" {
		education = "none"
	}

	form := url.Values{
		"username":                {username},
		"email":                   {strings.TrimSpace(reg.Email)},
		"password":                {reg.Password},
		"name":                    {name},
		"country":                 {country},
		"gender":                  {gender},
		"level_of_education":      {education},
		"goals":                   {"Learn new skills"},
		"honor_code":              {"true"},
		"terms_of_service":        {"true"},
		"language":                {"en"},
		"year_of_birth":           {"1990"},
		"marketing_emails_opt_in": {strconv.FormatBool(reg.MarketingEmailsOptIn)},
	}

	var created map[string]interface{}
	status, body, err := c.doForm(ctx, "/api/user/v1/account/registration/", form, &created)
	if err != nil {
		return nil, err
	}

	if status >= 400 {
		return nil, &RegistrationError{StatusCode: status, Message: registrationErrorMessage(body)}
	}

	log.Printf("✅ Registered OpenEdX account %s", username)
	return &RegistrationResult{
		Username:  username,
		EdxUserID: extractUserID(created),
	}, nil
}

// registrationErrorMessage flattens the LMS field error payload into a
// single "field: message" list. Unparseable bodies pass through as-is.
func registrationErrorMessage(body []byte) string {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload) == 0 {
		return strings.TrimSpace(string(body))
	}

	fields := make([]string, 0, len(payload))
	for field := range payload {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var parts []string
	for _, field := range fields {
		items, ok := payload[field].([]interface{})
		if !ok {
			continue
		}
		for _, item := range items {
			if m, ok := item.(map[string]interface{}); ok {
				if msg, ok := m["user_message"].(string); ok {
					parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
					continue
				}
			}
			if s, ok := item.(string); ok {
				parts = append(parts, fmt.Sprintf("%s: %s", field, s))
			}
		}
	}
	if len(parts) == 0 {
		return strings.TrimSpace(string(body))
	}
	return strings.Join(parts, "; ")
}

// extractUserID pulls the numeric account id out of a registration
// response. Deployments differ on whether and how they return it.
func extractUserID(created map[string]interface{}) *string {
	if created == nil {
		return nil
	}
	switch v := created["id"].(type) {
	case float64:
		s := strconv.FormatFloat(v, 'f', -1, 64)
		return &s
	case string:
		if v != "" {
			return &v
		}
	case json.Number:
		s := v.String()
		return &s
	}
	return nil
}

// Enroll enrolls a user in a course under the given mode
func (c *Client) Enroll(ctx context.Context, username, courseID, mode string) error {
	courseID = NormalizeCourseID(courseID)
	payload := map[string]interface{}{
		"user": username,
		"course_details": map[string]string{
			"course_id": courseID,
		},
		"mode": mode,
	}

	err := c.doJSON(ctx, http.MethodPost, "/api/enrollment/v1/enrollment", payload, nil, true)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			if msg := enrollmentErrorMessage([]byte(apiErr.Body)); msg != "" {
				apiErr.Body = msg
			}
		}
		return err
	}

	log.Printf("✅ Enrolled %s in %s (%s)", username, courseID, mode)
	return nil
}

// enrollmentErrorMessage extracts the human readable message the enrollment
// API nests in its error bodies.
func enrollmentErrorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Message
}

// UserEnrollment is one entry of a user's LMS enrollment list
type UserEnrollment struct {
	CourseDetails struct {
		CourseID   string `json:"course_id"`
		CourseName string `json:"course_name"`
	} `json:"course_details"`
	Mode     string `json:"mode"`
	IsActive bool   `json:"is_active"`
	Created  string `json:"created"`
}

// GetUserEnrollments lists the courses a user is enrolled in on the LMS
func (c *Client) GetUserEnrollments(ctx context.Context, username string) ([]UserEnrollment, error) {
	query := url.Values{"user": {username}}

	var enrollments []UserEnrollment
	if err := c.doJSON(ctx, http.MethodGet, "/api/enrollment/v1/enrollment?"+query.Encode(), nil, &enrollments, false); err != nil {
		return nil, err
	}
	return enrollments, nil
}
