package cli

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-docquery/cachemode"
	"github.com/goliatone/go-docquery/hooks"
	"github.com/goliatone/go-docquery/query"
	"github.com/goliatone/go-docquery/record"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type listOptions struct {
	Prefer string
	Where  []string
	Order  []string
	Limit  int
	Meta   bool
}

func newListCommand(a *app) *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list <collection>",
		Short: "List documents of a collection",
		Example: `  docquery list users --where "age >= 18" --order name --limit 10
  docquery list todos --where "completed == false" --prefer cache-first`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pref, err := cachemode.Parse(opts.Prefer)
			if err != nil {
				return err
			}
			desc, err := opts.descriptor()
			if err != nil {
				return err
			}

			q, err := hooks.UseCollection(a.container, args[0], desc, hooks.ReadOptions{
				PreferCache: pref,
				WithMeta:    opts.Meta,
				Debug:       a.settings.Debug,
			})
			if err != nil {
				return err
			}
			result, err := q.Fetch(cmd.Context())
			if err != nil {
				return err
			}

			if err := a.printRecords(result.Records); err != nil {
				return err
			}
			if opts.Meta && result.Meta != nil && a.format == formatTable {
				fmt.Fprintf(a.out, "%d document(s), source %s\n", result.Meta.Size, q.State().Source)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.Prefer, "prefer", "", "cache preference (default, cache-first, cache-only, server-only)")
	flags.StringArrayVar(&opts.Where, "where", nil, `filter as "field op value", repeatable`)
	flags.StringArrayVar(&opts.Order, "order", nil, `sort as "field" or "field:desc", repeatable`)
	flags.IntVar(&opts.Limit, "limit", 0, "maximum number of documents")
	flags.BoolVar(&opts.Meta, "meta", false, "print page metadata")
	return cmd
}

func (o *listOptions) descriptor() (*query.Descriptor, error) {
	desc := &query.Descriptor{}
	for _, w := range o.Where {
		field, op, value, err := parseWhere(w)
		if err != nil {
			return nil, err
		}
		desc.Where(field, op, value)
	}
	for _, s := range o.Order {
		field, dir, _ := strings.Cut(s, ":")
		direction := query.Asc
		if strings.EqualFold(dir, string(query.Desc)) {
			direction = query.Desc
		}
		desc.OrderBy(field, direction)
	}
	if o.Limit > 0 {
		desc.WithLimit(o.Limit)
	}
	return desc, nil
}

// parseWhere splits "field op value". The value is decoded as YAML so
// numbers, booleans and [lists] keep their type.
func parseWhere(s string) (string, query.Operator, any, error) {
	parts := strings.SplitN(strings.TrimSpace(s), " ", 3)
	if len(parts) != 3 {
		return "", "", nil, fmt.Errorf("invalid filter %q, want \"field op value\"", s)
	}
	op := query.Operator(parts[1])
	if !op.Valid() {
		return "", "", nil, fmt.Errorf("invalid filter %q: unknown operator %q", s, parts[1])
	}
	value, err := parseValue(parts[2])
	if err != nil {
		return "", "", nil, fmt.Errorf("invalid filter %q: %w", s, err)
	}
	return parts[0], op, value, nil
}

func parseValue(s string) (any, error) {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// parseFields decodes a JSON or YAML object.
func parseFields(s string) (map[string]any, error) {
	var fields map[string]any
	if err := yaml.Unmarshal([]byte(s), &fields); err != nil {
		return nil, fmt.Errorf("invalid document %q: %w", s, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("invalid document %q: expected an object", s)
	}
	return fields, nil
}

func newGetCommand(a *app) *cobra.Command {
	var prefer string

	cmd := &cobra.Command{
		Use:   "get <collection> <id>",
		Short: "Print one document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pref, err := cachemode.Parse(prefer)
			if err != nil {
				return err
			}
			q, err := hooks.UseDocument(a.container, args[0], args[1], hooks.ReadOptions{
				PreferCache: pref,
				Debug:       a.settings.Debug,
			})
			if err != nil {
				return err
			}
			doc, err := q.Fetch(cmd.Context())
			if err != nil {
				return err
			}
			if doc == nil {
				return fmt.Errorf("document %s/%s not found", args[0], args[1])
			}
			return a.printRecords([]record.Record{doc})
		},
	}
	cmd.Flags().StringVar(&prefer, "prefer", "", "cache preference (default, cache-first, cache-only, server-only)")
	return cmd
}

func newAddCommand(a *app) *cobra.Command {
	var noLog bool

	cmd := &cobra.Command{
		Use:     "add <collection> <document>",
		Short:   "Create a document with a generated id",
		Example: `  docquery add todos '{"title": "Buy milk", "completed": false}'`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(args[1])
			if err != nil {
				return err
			}
			add, err := hooks.UseAddDocument(a.container, args[0], a.writeOptions(noLog))
			if err != nil {
				return err
			}
			out, err := add.Mutate(cmd.Context(), fields)
			if err != nil {
				return err
			}
			return a.printRecords([]record.Record{out})
		},
	}
	cmd.Flags().BoolVar(&noLog, "no-log", false, "skip the audit log entry")
	return cmd
}

func newUpdateCommand(a *app) *cobra.Command {
	var noLog bool

	cmd := &cobra.Command{
		Use:     "update <collection> <id> <fields>",
		Short:   "Merge fields into a document",
		Example: `  docquery update todos 0191... '{"completed": true}'`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(args[2])
			if err != nil {
				return err
			}
			update, err := hooks.UseUpdateDocument(a.container, args[0], a.writeOptions(noLog))
			if err != nil {
				return err
			}
			out, err := update.Mutate(cmd.Context(), record.New(args[1], fields))
			if err != nil {
				return err
			}
			return a.printRecords([]record.Record{out})
		},
	}
	cmd.Flags().BoolVar(&noLog, "no-log", false, "skip the audit log entry")
	return cmd
}

func newDeleteCommand(a *app) *cobra.Command {
	var noLog bool

	cmd := &cobra.Command{
		Use:   "delete <collection> <id>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			del, err := hooks.UseDeleteDocument(a.container, args[0], a.writeOptions(noLog))
			if err != nil {
				return err
			}
			id, err := del.Mutate(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "deleted %s/%s\n", args[0], id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noLog, "no-log", false, "skip the audit log entry")
	return cmd
}

func (a *app) writeOptions(noLog bool) hooks.WriteOptions {
	opts := hooks.WriteOptions{Debug: a.settings.Debug}
	if noLog {
		opts.EnableLogging = hooks.Bool(false)
	}
	return opts
}
