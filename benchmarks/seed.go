package benchmarks

import (
	"context"

	"github.com/autom8ter/viewkit"
	"github.com/autom8ter/viewkit/testutil"
	"github.com/brianvoe/gofakeit/v6"
)

// seedDatabase writes users spread over 10 accounts with 3 tasks each
func seedDatabase(ctx context.Context, db *viewkit.DB, users int) error {
	for i := 0; i < users; i++ {
		u := testutil.NewUserDoc()
		if err := u.Set("account_id", gofakeit.IntRange(0, 9)); err != nil {
			return err
		}
		written, err := db.Put(ctx, u)
		if err != nil {
			return err
		}
		for j := 0; j < 3; j++ {
			if _, err := db.Put(ctx, testutil.NewTaskDoc(written.ID)); err != nil {
				return err
			}
		}
	}
	return nil
}
