package contacts

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vango-dev/uiregistry/internal/errors"
	"github.com/vango-dev/uiregistry/pkg/tablequery"
)

// Create inserts a contact and returns it with its relations.
func (s *Store) Create(ctx context.Context, in Input) (*Contact, error) {
	if err := in.validateNew(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	now := s.stamp(s.now())

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var companyID any
		if name := strings.TrimSpace(deref(in.CompanyName)); name != "" {
			cid, err := s.findOrCreateCompany(ctx, tx, name)
			if err != nil {
				return err
			}
			companyID = cid
		}

		columns := []string{"id", "created_at", "updated_at", "company_id"}
		args := []any{id, now, now, companyID}
		for _, f := range in.fields() {
			columns = append(columns, f.column)
			args = append(args, f.value)
		}
		query := "INSERT INTO contacts (" + strings.Join(columns, ", ") + ") VALUES (" + placeholders(len(args)) + ")"
		if _, err := tx.ExecContext(ctx, s.rebind(query), args...); err != nil {
			return queryFailed(err, "contacts")
		}

		if err := s.replaceEmails(ctx, tx, id, cleanList(in.Emails)); err != nil {
			return err
		}
		return s.replacePhones(ctx, tx, id, cleanList(in.Phones))
	})
	if err != nil {
		s.logger.Warn("create contact failed", "error", err)
		return nil, err
	}

	s.logger.Info("contact created", "id", id)
	return s.Get(ctx, id)
}

// Update changes the fields set in in. See Input for the rules on nil
// fields.
func (s *Store) Update(ctx context.Context, id string, in Input) (*Contact, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := s.exists(ctx, tx, id)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("E033").WithResource(id)
		}

		columns := []string{"updated_at"}
		args := []any{s.stamp(s.now())}
		for _, f := range in.fields() {
			columns = append(columns, f.column)
			args = append(args, f.value)
		}
		if in.CompanyName != nil {
			var companyID any
			if name := strings.TrimSpace(*in.CompanyName); name != "" {
				cid, err := s.findOrCreateCompany(ctx, tx, name)
				if err != nil {
					return err
				}
				companyID = cid
			}
			columns = append(columns, "company_id")
			args = append(args, companyID)
		}
		args = append(args, id)
		if _, err := tx.ExecContext(ctx, s.rebind("UPDATE contacts SET "+setClause(columns)+" WHERE id = ?"), args...); err != nil {
			return queryFailed(err, id)
		}

		if in.Emails != nil {
			if err := s.replaceEmails(ctx, tx, id, cleanList(in.Emails)); err != nil {
				return err
			}
		}
		if in.Phones != nil {
			if err := s.replacePhones(ctx, tx, id, cleanList(in.Phones)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("contact updated", "id", id)
	return s.Get(ctx, id)
}

// Delete removes the contacts with the given ids and returns how many
// existed. Emails and phones go with them.
func (s *Store) Delete(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, errors.New("E034").WithDetail("no contact ids given")
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	in := "(" + placeholders(len(args)) + ")"

	var deleted int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"contact_emails", "contact_phones"} {
			if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM "+table+" WHERE contact_id IN "+in), args...); err != nil {
				return queryFailed(err, table)
			}
		}
		res, err := tx.ExecContext(ctx, s.rebind("DELETE FROM contacts WHERE id IN "+in), args...)
		if err != nil {
			return queryFailed(err, "contacts")
		}
		deleted, err = res.RowsAffected()
		if err != nil {
			return queryFailed(err, "contacts")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("contacts deleted", "requested", len(ids), "deleted", deleted)
	return int(deleted), nil
}

// findOrCreateCompany returns the id of the company called name, creating
// it when missing.
func (s *Store) findOrCreateCompany(ctx context.Context, tx *sql.Tx, name string) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx, s.rebind("SELECT id FROM companies WHERE name = ?"), name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !stderrors.Is(err, sql.ErrNoRows) {
		return "", queryFailed(err, "companies")
	}

	id = uuid.NewString()
	if _, err := tx.ExecContext(ctx, s.rebind("INSERT INTO companies (id, created_at, name, description) VALUES (?, ?, ?, ?)"),
		id, s.stamp(s.now()), name, ""); err != nil {
		return "", queryFailed(err, "companies")
	}
	s.logger.Debug("company created", "id", id, "name", name)
	return id, nil
}

func (s *Store) replaceEmails(ctx context.Context, tx *sql.Tx, contactID string, emails []string) error {
	return s.replaceList(ctx, tx, "contact_emails", "email", contactID, emails)
}

func (s *Store) replacePhones(ctx context.Context, tx *sql.Tx, contactID string, phones []string) error {
	return s.replaceList(ctx, tx, "contact_phones", "phone", contactID, phones)
}

// replaceList deletes a contact's rows in table and inserts values with
// display_order set to their index.
func (s *Store) replaceList(ctx context.Context, tx *sql.Tx, table, column, contactID string, values []string) error {
	if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM "+table+" WHERE contact_id = ?"), contactID); err != nil {
		return queryFailed(err, table)
	}
	now := s.stamp(s.now())
	insert := s.rebind("INSERT INTO " + table + " (id, contact_id, " + column + ", display_order, created_at) VALUES (?, ?, ?, ?, ?)")
	for i, v := range values {
		if _, err := tx.ExecContext(ctx, insert, uuid.NewString(), contactID, v, i, now); err != nil {
			return queryFailed(err, table)
		}
	}
	return nil
}

// stamp converts t to the representation bound for TIMESTAMP columns.
// SQLite has no native time type, so it gets RFC 3339 text.
func (s *Store) stamp(t time.Time) any {
	if s.dialect == tablequery.SQLite {
		return t.Format(time.RFC3339Nano)
	}
	return t
}
