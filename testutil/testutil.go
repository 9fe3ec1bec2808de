package testutil

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/autom8ter/viewkit"
	"github.com/autom8ter/viewkit/errors"
	_ "github.com/autom8ter/viewkit/kv/badger"
	"github.com/brianvoe/gofakeit/v6"
)

var (
	// UsersByAccount indexes users by [account_id, age] and counts them
	UsersByAccount = viewkit.View{
		Name: "users_by_account",
		Map: func(doc *viewkit.Document, emit viewkit.EmitFunc) error {
			if doc.GetString("type") != "user" {
				return nil
			}
			return emit([]any{doc.GetFloat("account_id"), doc.GetFloat("age")}, doc.GetString("name"))
		},
		ReduceSource: "_count",
	}
	// TasksByUser indexes tasks by user and links every row to the task's user document
	TasksByUser = viewkit.View{
		Name: "tasks_by_user",
		MapSource: `function(doc) {
			if (doc.type === "task") {
				emit(doc.user, {_id: doc.user});
			}
		}`,
	}
	// UsersByLanguage indexes users by language with the name as value and no reduce function
	UsersByLanguage = viewkit.View{
		Name:      "users_by_language",
		MapSource: `function(doc) { if (doc.type === "user") { emit(doc.language, doc.name); } }`,
	}
	AllViews = []viewkit.View{UsersByAccount, TasksByUser, UsersByLanguage}
)

func NewUserDoc() *viewkit.Document {
	doc, err := viewkit.NewDocumentFrom(map[string]interface{}{
		"_id":  gofakeit.UUID(),
		"type": "user",
		"name": gofakeit.Name(),
		"contact": map[string]interface{}{
			"email": gofakeit.Email(),
		},
		"account_id":     gofakeit.IntRange(0, 10),
		"language":       gofakeit.Language(),
		"birthday_month": gofakeit.Month(),
		"gender":         gofakeit.Gender(),
		"age":            gofakeit.IntRange(0, 100),
		"timestamp":      gofakeit.DateRange(time.Now().Truncate(7200*time.Hour), time.Now()),
	})
	if err != nil {
		panic(err)
	}
	return doc
}

func NewTaskDoc(usrID string) *viewkit.Document {
	doc, err := viewkit.NewDocumentFrom(map[string]interface{}{
		"_id":     gofakeit.UUID(),
		"type":    "task",
		"user":    usrID,
		"content": gofakeit.LoremIpsumSentence(5),
	})
	if err != nil {
		panic(err)
	}
	return doc
}

// TestDB opens a database in a temporary directory with the given views (AllViews by default)
func TestDB(fn func(ctx context.Context, db *viewkit.DB), views ...viewkit.View) error {
	if len(views) == 0 {
		views = AllViews
	}
	dir, err := os.MkdirTemp("", "viewkit")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	cfg := viewkit.DefaultConfig()
	cfg.Params = map[string]any{"storage_path": dir}
	cfg.LogLevel = "error"
	db, err := viewkit.Open(ctx, cfg, viewkit.WithViews(views...))
	if err != nil {
		return err
	}
	defer db.Close(ctx)
	fn(ctx, db)
	return nil
}

// CountingStore is a document store that counts fetches. Documents are served from memory.
type CountingStore struct {
	mu      sync.RWMutex
	docs    map[string]*viewkit.Document
	fetches int64
	// Err, if set, is returned by every fetch
	Err error
}

// NewCountingStore returns a store serving the given documents
func NewCountingStore(docs ...*viewkit.Document) *CountingStore {
	s := &CountingStore{docs: map[string]*viewkit.Document{}}
	for _, d := range docs {
		s.docs[d.ID] = d
	}
	return s
}

// Fetch satisfies viewkit.DocumentStore
func (s *CountingStore) Fetch(ctx context.Context, id string, seq uint64) (*viewkit.Document, error) {
	atomic.AddInt64(&s.fetches, 1)
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, errors.New(errors.NotFound, "document not found: %s", id)
	}
	return doc.Clone(), nil
}

// Fetches returns the number of fetches served so far
func (s *CountingStore) Fetches() int {
	return int(atomic.LoadInt64(&s.fetches))
}
