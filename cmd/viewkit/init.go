package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/spf13/cobra"
)

var configTemplate = `provider: badger
params:
  storage_path: {{ .storagePath | quote }}
logLevel: {{ .logLevel | default "info" }}
collation: {{ .collation | default "raw" | lower }}
{{- if .language }}
language: {{ .language }}
{{- end }}
fetchConcurrency: 8
documentCacheSize: 10000
views:
{{- range .views }}
  - name: {{ . | snakecase }}
    map: |
      function(doc) {
        if (doc.type === {{ . | quote }}) {
          emit(doc._id, null);
        }
      }
    reduce: _count
{{- end }}
`

func initCmd() *cobra.Command {
	var (
		projectPath string
		logLevel    string
		collation   string
		language    string
		types       []string
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "create a config file with a view per document type",
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := os.MkdirAll(projectPath, 0755); err != nil {
				return err
			}
			tmpl, err := template.New("config").Funcs(sprig.TxtFuncMap()).Parse(configTemplate)
			if err != nil {
				return err
			}
			path := filepath.Join(projectPath, "viewkit.yaml")
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := tmpl.Execute(f, map[string]any{
				"storagePath": filepath.Join(projectPath, "data"),
				"logLevel":    logLevel,
				"collation":   collation,
				"language":    language,
				"views":       types,
			}); err != nil {
				return err
			}
			fmt.Printf("config created: %v\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&projectPath, "path", "p", ".", "path to project directory")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level")
	cmd.Flags().StringVar(&collation, "collation", "raw", "collation (raw or unicode)")
	cmd.Flags().StringVar(&language, "language", "", "language of the unicode collation")
	cmd.Flags().StringSliceVarP(&types, "type", "t", []string{"user", "task"}, "document types to create views for")
	return cmd
}
