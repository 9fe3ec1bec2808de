package viewkit

import "github.com/autom8ter/viewkit/collate"

// DBOpt is an option for configuring a database
type DBOpt func(d *DB)

// WithDBLogger overrides the logger built from Config.LogLevel
func WithDBLogger(logger Logger) DBOpt {
	return func(d *DB) {
		d.logger = logger
	}
}

// WithDBCollator overrides the collator selected by Config.Collation
func WithDBCollator(collator collate.Collator) DBOpt {
	return func(d *DB) {
		d.collator = collator
	}
}

// WithViews defines views (typically with go map/reduce functions) when the database is opened
func WithViews(views ...View) DBOpt {
	return func(d *DB) {
		d.initViews = append(d.initViews, views...)
	}
}
