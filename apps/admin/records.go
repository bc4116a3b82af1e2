package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/trezcool/eduadmin/core"
	"github.com/trezcool/eduadmin/core/academic"
	"github.com/trezcool/eduadmin/core/schema"
	"github.com/trezcool/eduadmin/core/tablesync"
)

func (cli *commandLine) refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch every collection and print the row counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := cli.sync(cmd.Context())
			if err != nil {
				return err
			}
			counts := snap.Counts()
			degraded := snap.Degraded()

			w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
			for _, id := range schema.IDs() {
				state := okColor.Sprint("ok")
				if _, ok := degraded[id]; ok {
					state = warnColor.Sprint("degraded")
				}
				fmt.Fprintf(w, "%s\t%d\t%s\n", keyColor.Sprint(id), counts[id], state)
			}
			if err = w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "generation %d, status %s\n", snap.Generation(), cli.engine.State().Status)
			return nil
		},
	}
}

func (cli *commandLine) schemasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schemas [COLLECTION]",
		Short: "Describe the registered collections",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schemas := schema.All()
			if len(args) == 1 {
				cs, ok := schema.Get(schema.CollectionID(args[0]))
				if !ok {
					return tablesync.ErrUnknownCollection
				}
				schemas = []schema.CollectionSchema{cs}
			}

			for _, cs := range schemas {
				fmt.Fprintf(cli.out, "%s (%s) primary key: %s\n", keyColor.Sprint(cs.ID), cs.Label, cs.PrimaryKey)
				if len(args) == 0 {
					continue
				}
				w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
				for _, col := range cs.Columns {
					fmt.Fprintf(w, "  %s\t%s\t%s\n", col.Key, col.Type, strings.Join(col.Options, ", "))
				}
				if err := w.Flush(); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (cli *commandLine) listCmd() *cobra.Command {
	var search, ordering string

	cmd := &cobra.Command{
		Use:   "list COLLECTION",
		Short: "Print the records of a collection",
		Example: `  admin list students --search "computer" --ordering -cgpa,name
  admin list ml_predictions`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, ok := schema.Get(schema.CollectionID(args[0]))
			if !ok {
				return tablesync.ErrUnknownCollection
			}
			q := tablesync.Query{Search: core.SearchTerm(search), Ordering: parseOrdering(ordering)}
			for _, o := range q.Ordering {
				if !cs.IsKnownField(o.Field) {
					return core.NewValidationError(nil, core.FieldError{Field: "ordering", Error: "unknown field " + o.Field})
				}
			}

			snap, err := cli.sync(cmd.Context())
			if err != nil {
				return err
			}
			recs := snap.Query(cs, q)

			cols := append([]string{cs.PrimaryKey}, visibleKeys(cs)...)
			w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, strings.ToUpper(strings.Join(cols, "\t")))
			for _, rec := range recs {
				vals := make([]string, len(cols))
				for i, c := range cols {
					vals[i] = formatValue(rec[c])
				}
				fmt.Fprintln(w, strings.Join(vals, "\t"))
			}
			if err = w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "%d record(s)\n", len(recs))
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "case-insensitive text to look for in the visible columns")
	cmd.Flags().StringVarP(&ordering, "ordering", "o", "", "comma separated fields, prefix with - to sort descending")
	return cmd
}

func (cli *commandLine) deleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete COLLECTION PK",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := schema.CollectionID(args[0])
			if _, ok := schema.Get(id); !ok {
				return tablesync.ErrUnknownCollection
			}
			if !yes {
				return errNotConfirmed
			}

			snap, err := cli.sync(cmd.Context())
			if err != nil {
				return err
			}
			var pk interface{} = args[1]
			if rec, _, found := snap.Find(id, academic.ID(args[1])); found {
				pk = rec[schema.MustGet(id).PrimaryKey]
			}
			if err = cli.engine.Delete(cmd.Context(), id, pk); err != nil {
				return err
			}
			_, _ = okColor.Fprintf(cli.out, "deleted %s %s\n", id, args[1])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the deletion")
	return cmd
}

func parseOrdering(val string) []core.DBOrdering {
	var ords []core.DBOrdering
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		field = strings.TrimPrefix(field, "-")
		if field == "" {
			continue
		}
		ords = append(ords, core.DBOrdering{Field: field, Ascending: !descending})
	}
	return ords
}

func visibleKeys(cs schema.CollectionSchema) []string {
	var keys []string
	for _, c := range cs.VisibleColumns() {
		if c.Key != cs.PrimaryKey {
			keys = append(keys, c.Key)
		}
	}
	return keys
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case float64:
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprint(val)
	}
}
