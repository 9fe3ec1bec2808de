package main

import (
	"context"
	"fmt"
	"os"

	"github.com/autom8ter/viewkit"
	_ "github.com/autom8ter/viewkit/kv/badger"
	"github.com/autom8ter/viewkit/util"
	"github.com/spf13/cobra"
)

var (
	configPath string
	output     string
)

func main() {
	root := &cobra.Command{
		Use:           "viewkit",
		Short:         "query map/reduce view indexes of a json document database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a yaml, json or toml config file")
	root.PersistentFlags().StringVarP(&output, "output", "o", "json", "output format (json or yaml)")
	root.AddCommand(initCmd(), putCmd(), getCmd(), deleteCmd(), viewsCmd(), queryCmd(), compactCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// withDB opens the configured database for the duration of fn
func withDB(ctx context.Context, fn func(db *viewkit.DB) error) error {
	cfg, err := viewkit.LoadConfig(configPath)
	if err != nil {
		return err
	}
	db, err := viewkit.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close(ctx)
	return fn(db)
}

func render(value any) error {
	bits := []byte(util.JSONString(value))
	if output == "yaml" {
		var err error
		bits, err = util.JSONToYAML(bits)
		if err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(os.Stdout, string(bits))
	return err
}
