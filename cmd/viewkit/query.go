package main

import (
	"github.com/autom8ter/viewkit"
	"github.com/autom8ter/viewkit/collate"
	"github.com/autom8ter/viewkit/errors"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func viewsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "views",
		Short: "list the defined views",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd.Context(), func(db *viewkit.DB) error {
				return render(db.Views())
			})
		},
	}
}

func queryCmd() *cobra.Command {
	var (
		startKey, endKey, key, keys string
		skip, limit, groupLevel     int
		descending, exclusiveEnd    bool
		reduce, group, includeDocs  bool
		updateSeq                   bool
		content                     viewkit.ContentOptions
	)
	cmd := &cobra.Command{
		Use:   "query [view]",
		Short: "query a view. keys are json values, e.g. --start-key '[2023, 1]'",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b := viewkit.NewQueryBuilder().
				Skip(skip).
				Descending(descending).
				InclusiveEnd(!exclusiveEnd).
				Reduce(reduce).
				Group(group).
				GroupLevel(groupLevel).
				UpdateSeq(updateSeq)
			if limit >= 0 {
				b = b.Limit(limit)
			}
			if includeDocs {
				b = b.IncludeDocs(content)
			}
			for _, bound := range []struct {
				flag string
				set  func(any) *viewkit.QueryBuilder
			}{{startKey, b.StartKey}, {endKey, b.EndKey}, {key, b.Key}} {
				if bound.flag == "" {
					continue
				}
				v, err := collate.Parse([]byte(bound.flag))
				if err != nil {
					return err
				}
				bound.set(v)
			}
			if keys != "" {
				v, err := collate.Parse([]byte(keys))
				if err != nil {
					return err
				}
				if v.Kind() != collate.KindArray {
					return errors.New(errors.Validation, "--keys must be a json array")
				}
				b = b.Keys(lo.Map(v.Elements(), func(k collate.Value, _ int) any {
					return k
				})...)
			}
			q, err := b.Query()
			if err != nil {
				return err
			}
			return withDB(cmd.Context(), func(db *viewkit.DB) error {
				result, err := db.Query(cmd.Context(), args[0], q)
				if err != nil {
					return err
				}
				return render(result)
			})
		},
	}
	cmd.Flags().StringVar(&startKey, "start-key", "", "first key of the range (json)")
	cmd.Flags().StringVar(&endKey, "end-key", "", "last key of the range (json)")
	cmd.Flags().StringVar(&key, "key", "", "only return rows matching this key (json)")
	cmd.Flags().StringVar(&keys, "keys", "", "json array of keys to look up in order")
	cmd.Flags().IntVar(&skip, "skip", 0, "number of rows to skip")
	cmd.Flags().IntVar(&limit, "limit", -1, "maximum number of rows (-1 is unbounded)")
	cmd.Flags().BoolVar(&descending, "descending", false, "scan in descending key order")
	cmd.Flags().BoolVar(&exclusiveEnd, "exclusive-end", false, "exclude rows matching the end key")
	cmd.Flags().BoolVar(&reduce, "reduce", false, "apply the view's reduce function")
	cmd.Flags().BoolVar(&group, "group", false, "group reduced rows by key")
	cmd.Flags().IntVar(&groupLevel, "group-level", 0, "group reduced rows by the first n key elements")
	cmd.Flags().BoolVar(&includeDocs, "include-docs", false, "include the document of every row")
	cmd.Flags().BoolVar(&content.Attachments, "attachments", false, "inline attachment bodies of included documents")
	cmd.Flags().BoolVar(&content.Conflicts, "conflicts", false, "include the conflicts of included documents")
	cmd.Flags().BoolVar(&content.LocalSeq, "local-seq", false, "include the sequence of included documents")
	cmd.Flags().BoolVar(&content.NoBody, "no-body", false, "omit the body of included documents")
	cmd.Flags().BoolVar(&updateSeq, "update-seq", false, "return the sequence of the queried index")
	return cmd
}
