package contacts

import (
	"strings"
	"time"

	"github.com/vango-dev/uiregistry/internal/errors"
)

// Company is an employer contacts may belong to.
type Company struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}

// Contact is a person row with its relations.
type Contact struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	CompanyID   *string   `json:"company_id"`
	JobTitle    string    `json:"job_title"`
	Description string    `json:"description"`
	LinkedIn    string    `json:"linkedin"`

	Company *Company `json:"company,omitempty"`
	Emails  []Email  `json:"emails"`
	Phones  []Phone  `json:"phones"`
}

// DisplayName joins first and last name.
func (c *Contact) DisplayName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// PrimaryEmail returns the first email by display order.
func (c *Contact) PrimaryEmail() string {
	if len(c.Emails) == 0 {
		return ""
	}
	return c.Emails[0].Email
}

// PrimaryPhone returns the first phone by display order.
func (c *Contact) PrimaryPhone() string {
	if len(c.Phones) == 0 {
		return ""
	}
	return c.Phones[0].Phone
}

// Email is one address of a contact.
type Email struct {
	ID           string    `json:"id"`
	ContactID    string    `json:"contact_id"`
	Email        string    `json:"email"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
}

// Phone is one phone number of a contact.
type Phone struct {
	ID           string    `json:"id"`
	ContactID    string    `json:"contact_id"`
	Phone        string    `json:"phone"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
}

// Input carries the fields of a create or update. Nil fields are left
// unchanged on update. A nil Emails or Phones keeps the existing list; an
// empty one clears it. An empty CompanyName detaches the company.
type Input struct {
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	City        *string `json:"city,omitempty"`
	State       *string `json:"state,omitempty"`
	JobTitle    *string `json:"job_title,omitempty"`
	Description *string `json:"description,omitempty"`
	LinkedIn    *string `json:"linkedin,omitempty"`

	CompanyName *string  `json:"company_name,omitempty"`
	Emails      []string `json:"_emails,omitempty"`
	Phones      []string `json:"_phones,omitempty"`
}

// field pairs a column with its new value.
type field struct {
	column string
	value  string
}

// fields returns the set scalar columns in a fixed order.
func (in Input) fields() []field {
	var out []field
	add := func(column string, v *string) {
		if v != nil {
			out = append(out, field{column, strings.TrimSpace(*v)})
		}
	}
	add("first_name", in.FirstName)
	add("last_name", in.LastName)
	add("city", in.City)
	add("state", in.State)
	add("job_title", in.JobTitle)
	add("description", in.Description)
	add("linkedin", in.LinkedIn)
	return out
}

// validateNew checks a create payload.
func (in Input) validateNew() error {
	if strings.TrimSpace(deref(in.FirstName)) == "" && strings.TrimSpace(deref(in.LastName)) == "" {
		return errors.New("E034").WithDetail("first_name or last_name is required")
	}
	return in.validate()
}

func (in Input) validate() error {
	for i, e := range in.Emails {
		if e = strings.TrimSpace(e); e != "" && !strings.Contains(e, "@") {
			return errors.New("E034").WithDetailf("_emails[%d] %q is not an email address", i, e)
		}
	}
	return nil
}

// cleanList trims entries and drops blanks. nil stays nil.
func cleanList(list []string) []string {
	if list == nil {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Page is one page of List results.
type Page struct {
	Data      []Contact `json:"data"`
	Total     int       `json:"count"`
	PageCount int       `json:"pageCount"`
}
