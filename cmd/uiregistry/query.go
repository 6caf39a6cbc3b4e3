package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/uiregistry/internal/contacts"
	"github.com/vango-dev/uiregistry/pkg/tablequery"
	"github.com/vango-dev/uiregistry/pkg/tablestate"
)

func queryCmd() *cobra.Command {
	var (
		merge   string
		showSQL bool
		dialect string
	)

	cmd := &cobra.Command{
		Use:   "query <query-string>",
		Short: "Decode a data-table query string",
		Long: `Decode the table state carried in a URL query string and print it with
its canonical encoding.

--merge applies the groups present in a second query string (pagination,
sorting, filters, visibility or order) and keeps every other parameter.
--sql prints the contacts query the state selects.

Examples:
  uiregistry query 'page=2&sort=first_name,-created_at'
  uiregistry query 'utm_source=mail&page=2' --merge 'page=3'
  uiregistry query 'filter_location=berlin' --sql --dialect sqlite`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			codec, err := tablestate.NewCodec(
				tablestate.WithDefaultPageSize(cfg.Table.DefaultPageSize),
				tablestate.WithMaxPageSize(cfg.Table.MaxPageSize),
			)
			if err != nil {
				return err
			}

			query, err := url.ParseQuery(strings.TrimPrefix(args[0], "?"))
			if err != nil {
				return errorf("invalid query string: %v", err)
			}
			if merge != "" {
				query, err = mergeQuery(codec, query, merge)
				if err != nil {
					return err
				}
			}

			state := codec.Parse(query)
			out := map[string]any{
				"state":     state,
				"canonical": codec.Encode(state),
			}
			if merge != "" {
				out["merged"] = query.Encode()
			}

			if showSQL {
				d := tablequery.Postgres
				switch dialect {
				case "postgres", "pgx":
				case "sqlite":
					d = tablequery.SQLite
				default:
					return errorf("unknown dialect %q; use postgres or sqlite", dialect)
				}
				q := contacts.Schema.Build(state, d)
				out["sql"] = map[string]any{
					"where":  q.Where,
					"args":   q.Args,
					"clause": strings.TrimSpace(q.WhereClause() + q.PageClause()),
				}
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVar(&merge, "merge", "", "Query string whose table groups replace those of the input")
	cmd.Flags().BoolVar(&showSQL, "sql", false, "Print the contacts SQL for the state")
	cmd.Flags().StringVar(&dialect, "dialect", "postgres", "SQL dialect: postgres or sqlite")

	return cmd
}

// mergeQuery applies the groups present in raw to query.
func mergeQuery(codec *tablestate.Codec, query url.Values, raw string) (url.Values, error) {
	updates, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		return nil, fmt.Errorf("invalid --merge query: %w", err)
	}
	return codec.MergeIntoQuery(query, updateFor(codec, updates))
}

// updateFor builds an Update carrying every group with a key in params.
func updateFor(codec *tablestate.Codec, params url.Values) tablestate.Update {
	state := codec.Parse(params)
	u := tablestate.NewUpdate()
	present := func(g tablestate.Group) bool {
		for k := range params {
			if g.Owns(k) {
				return true
			}
		}
		return false
	}
	if present(tablestate.GroupPagination) {
		u = u.Pagination(state.Pagination)
	}
	if present(tablestate.GroupSorting) {
		u = u.Sorting(state.Sorting)
	}
	if present(tablestate.GroupFilters) {
		u = u.Filters(state.ColumnFilters)
	}
	if present(tablestate.GroupVisibility) {
		u = u.Visibility(state.ColumnVisibility)
	}
	if present(tablestate.GroupOrder) {
		u = u.Order(state.ColumnOrder)
	}
	return u
}
