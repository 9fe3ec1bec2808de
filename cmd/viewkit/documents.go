package main

import (
	"io"
	"os"

	"github.com/autom8ter/viewkit"
	"github.com/autom8ter/viewkit/util"
	"github.com/spf13/cobra"
)

func putCmd() *cobra.Command {
	var (
		file     string
		revision bool
	)
	cmd := &cobra.Command{
		Use:   "put",
		Short: "write a json or yaml document read from a file or stdin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				bits []byte
				err  error
			)
			if file == "" || file == "-" {
				bits, err = io.ReadAll(cmd.InOrStdin())
			} else {
				bits, err = os.ReadFile(file)
			}
			if err != nil {
				return err
			}
			bits, err = util.YAMLToJSON(bits)
			if err != nil {
				return err
			}
			doc, err := viewkit.NewDocumentFromBytes(bits)
			if err != nil {
				return err
			}
			return withDB(cmd.Context(), func(db *viewkit.DB) error {
				write := db.Put
				if revision {
					write = db.PutRevision
				}
				written, err := write(cmd.Context(), doc)
				if err != nil {
					return err
				}
				return render(map[string]any{"id": written.ID, "rev": written.Rev, "seq": written.Sequence})
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "document file (- reads stdin)")
	cmd.Flags().BoolVar(&revision, "revision", false, "store the document's _rev as is, recording conflicts")
	return cmd
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [id]",
		Short: "print the current revision of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(db *viewkit.DB) error {
				doc, err := db.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return render(doc)
			})
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id] [rev]",
		Short: "delete a document revision or resolve a conflict",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(db *viewkit.DB) error {
				doc, err := db.Delete(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return render(map[string]any{"id": doc.ID, "rev": doc.Rev, "deleted": doc.Deleted})
			})
		},
	}
}

func compactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "remove revisions that are no longer current",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd.Context(), func(db *viewkit.DB) error {
				removed, err := db.Compact(cmd.Context())
				if err != nil {
					return err
				}
				return render(map[string]any{"removed": removed})
			})
		},
	}
}
