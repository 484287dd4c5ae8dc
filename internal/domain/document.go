package domain

import "context"

// Kind names an aggregate type in the document store.
type Kind string

const (
	KindActor      Kind = "actor"
	KindAccount    Kind = "account"
	KindConference Kind = "conference"
	KindEvent      Kind = "event"
	KindFolder     Kind = "folder"
	KindMessage    Kind = "message"
	KindPost       Kind = "post"
)

// Kinds lists every aggregate kind.
var Kinds = []Kind{KindActor, KindAccount, KindConference, KindEvent, KindFolder, KindMessage, KindPost}

// Document is one stored aggregate: its encoded body and the version it was read at.
type Document struct {
	Kind    Kind
	ID      string
	Version int64
	Body    []byte
}

// DocumentStore is the external document store, reduced to single-document operations.
//
// Save with version 0 creates the document and fails with ErrVersionConflict if the id exists.
// Any other version must equal the stored one, otherwise Save fails with ErrVersionConflict.
// Versions start at 1 and grow by one on every save.
type DocumentStore interface {
	Get(ctx context.Context, kind Kind, id string) (*Document, error)
	Save(ctx context.Context, kind Kind, id string, version int64, body []byte) (int64, error)
	Delete(ctx context.Context, kind Kind, id string) error
	List(ctx context.Context, kind Kind) ([]*Document, error)
}

// Versioned pairs an aggregate with the version it was read at.
type Versioned[T any] struct {
	Value   *T
	Version int64
}

// Repository is the typed view of one aggregate kind.
type Repository[T any] interface {
	Kind() Kind
	Get(ctx context.Context, id string) (*T, int64, error)
	Save(ctx context.Context, id string, version int64, value *T) (int64, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Versioned[T], error)
}
