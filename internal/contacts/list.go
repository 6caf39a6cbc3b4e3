package contacts

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"

	"github.com/vango-dev/uiregistry/internal/errors"
	"github.com/vango-dev/uiregistry/pkg/tablequery"
	"github.com/vango-dev/uiregistry/pkg/tablestate"
)

// Schema maps the contacts table columns to SQL. Virtual columns sort and
// filter on the underlying fields.
var Schema = tablequery.Schema{
	Columns: map[string]tablequery.Column{
		"display_name":  {Sort: "c.first_name", Filter: []string{"c.first_name", "c.last_name"}},
		"first_name":    {Sort: "c.first_name", Filter: []string{"c.first_name"}},
		"last_name":     {Sort: "c.last_name", Filter: []string{"c.last_name"}},
		"job_title":     {Sort: "c.job_title", Filter: []string{"c.job_title"}},
		"company_name":  {Sort: "co.name", Filter: []string{"co.name"}},
		"location":      {Sort: "c.city", Filter: []string{"c.city", "c.state"}},
		"city":          {Sort: "c.city", Filter: []string{"c.city"}},
		"state":         {Sort: "c.state", Filter: []string{"c.state"}},
		"description":   {Filter: []string{"c.description"}},
		"linkedin":      {Filter: []string{"c.linkedin"}},
		"primary_email": {Sort: "c.first_name"},
		"primary_phone": {Sort: "c.first_name"},
		"created_at":    {Sort: "c.created_at"},
		"updated_at":    {Sort: "c.updated_at"},
	},
	DefaultSort: []tablestate.Sort{{ColumnID: "first_name"}},
}

const contactColumns = `c.id, c.created_at, c.updated_at, c.first_name, c.last_name,
	c.city, c.state, c.company_id, c.job_title, c.description, c.linkedin,
	co.id, co.created_at, co.name, co.description`

const contactFrom = ` FROM contacts c LEFT JOIN companies co ON co.id = c.company_id`

// List returns the page of contacts selected by state.
func (s *Store) List(ctx context.Context, state tablestate.State) (*Page, error) {
	if err := state.Validate(); err != nil {
		return nil, errors.New("E001").Wrap(err)
	}
	q := Schema.Build(state, s.dialect)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*)"+contactFrom+q.WhereClause(), q.Args...).Scan(&total); err != nil {
		return nil, queryFailed(err, "contacts")
	}

	orderBy := q.OrderBy
	if orderBy != "" {
		orderBy += ", "
	}
	q.OrderBy = orderBy + "c.id ASC"

	rows, err := s.db.QueryContext(ctx, "SELECT "+contactColumns+contactFrom+q.WhereClause()+q.PageClause(), q.Args...)
	if err != nil {
		return nil, queryFailed(err, "contacts")
	}
	data, err := scanContacts(rows)
	if err != nil {
		return nil, queryFailed(err, "contacts")
	}
	if err := s.loadRelations(ctx, data); err != nil {
		return nil, err
	}

	s.logger.Debug("contacts listed",
		"total", total,
		"page", state.Pagination.PageIndex,
		"rows", len(data))

	return &Page{
		Data:      data,
		Total:     total,
		PageCount: state.Pagination.PageCount(total),
	}, nil
}

// Get returns one contact with its company, emails and phones.
func (s *Store) Get(ctx context.Context, id string) (*Contact, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind("SELECT "+contactColumns+contactFrom+" WHERE c.id = ?"), id)
	if err != nil {
		return nil, queryFailed(err, id)
	}
	data, err := scanContacts(rows)
	if err != nil {
		return nil, queryFailed(err, id)
	}
	if len(data) == 0 {
		return nil, errors.New("E033").WithResource(id)
	}
	if err := s.loadRelations(ctx, data); err != nil {
		return nil, err
	}
	return &data[0], nil
}

// Companies returns every company ordered by name.
func (s *Store) Companies(ctx context.Context) ([]Company, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, created_at, name, description FROM companies ORDER BY name")
	if err != nil {
		return nil, queryFailed(err, "companies")
	}
	defer rows.Close()

	companies := []Company{}
	for rows.Next() {
		var co Company
		if err := rows.Scan(&co.ID, timestamp{&co.CreatedAt}, &co.Name, &co.Description); err != nil {
			return nil, queryFailed(err, "companies")
		}
		companies = append(companies, co)
	}
	if err := rows.Err(); err != nil {
		return nil, queryFailed(err, "companies")
	}
	return companies, nil
}

func scanContacts(rows *sql.Rows) ([]Contact, error) {
	defer rows.Close()

	data := []Contact{}
	for rows.Next() {
		var (
			c         Contact
			companyID sql.NullString
			coID      sql.NullString
			coName    sql.NullString
			coDesc    sql.NullString
			co        Company
		)
		if err := rows.Scan(
			&c.ID, timestamp{&c.CreatedAt}, timestamp{&c.UpdatedAt},
			&c.FirstName, &c.LastName, &c.City, &c.State, &companyID,
			&c.JobTitle, &c.Description, &c.LinkedIn,
			&coID, timestamp{&co.CreatedAt}, &coName, &coDesc,
		); err != nil {
			return nil, err
		}
		if companyID.Valid {
			c.CompanyID = &companyID.String
		}
		if coID.Valid {
			co.ID, co.Name, co.Description = coID.String, coName.String, coDesc.String
			c.Company = &co
		}
		c.Emails = []Email{}
		c.Phones = []Phone{}
		data = append(data, c)
	}
	return data, rows.Err()
}

// loadRelations fills Emails and Phones for every contact in data.
func (s *Store) loadRelations(ctx context.Context, data []Contact) error {
	if len(data) == 0 {
		return nil
	}
	index := make(map[string]*Contact, len(data))
	ids := make([]any, len(data))
	for i := range data {
		index[data[i].ID] = &data[i]
		ids[i] = data[i].ID
	}
	in := "(" + placeholders(len(ids)) + ")"

	rows, err := s.db.QueryContext(ctx, s.rebind(
		"SELECT id, contact_id, email, display_order, created_at FROM contact_emails WHERE contact_id IN "+in+
			" ORDER BY contact_id, display_order"), ids...)
	if err != nil {
		return queryFailed(err, "contact_emails")
	}
	err = scanEach(rows, func(rows *sql.Rows) error {
		var e Email
		if err := rows.Scan(&e.ID, &e.ContactID, &e.Email, &e.DisplayOrder, timestamp{&e.CreatedAt}); err != nil {
			return err
		}
		if c := index[e.ContactID]; c != nil {
			c.Emails = append(c.Emails, e)
		}
		return nil
	})
	if err != nil {
		return queryFailed(err, "contact_emails")
	}

	rows, err = s.db.QueryContext(ctx, s.rebind(
		"SELECT id, contact_id, phone, display_order, created_at FROM contact_phones WHERE contact_id IN "+in+
			" ORDER BY contact_id, display_order"), ids...)
	if err != nil {
		return queryFailed(err, "contact_phones")
	}
	err = scanEach(rows, func(rows *sql.Rows) error {
		var p Phone
		if err := rows.Scan(&p.ID, &p.ContactID, &p.Phone, &p.DisplayOrder, timestamp{&p.CreatedAt}); err != nil {
			return err
		}
		if c := index[p.ContactID]; c != nil {
			c.Phones = append(c.Phones, p)
		}
		return nil
	})
	if err != nil {
		return queryFailed(err, "contact_phones")
	}
	return nil
}

func scanEach(rows *sql.Rows, fn func(*sql.Rows) error) error {
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// exists reports whether a contact row exists inside tx.
func (s *Store) exists(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, s.rebind("SELECT 1 FROM contacts WHERE id = ?"), id).Scan(&one)
	if stderrors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, queryFailed(err, id)
	}
	return true, nil
}

// setClause renders "a = ?, b = ?" for the given columns.
func setClause(columns []string) string {
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = c + " = ?"
	}
	return strings.Join(parts, ", ")
}
