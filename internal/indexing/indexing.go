package indexing

import (
	"bytes"
	"encoding/binary"

	"github.com/autom8ter/viewkit/collate"
)

const (
	documentsNamespace = "doc"
	revisionsNamespace = "rev"
	metaNamespace      = "meta"
	entriesNamespace   = "view"
	backrefNamespace   = "vref"
	viewMetaNamespace  = "vmeta"
)

var sep = []byte("\x00")

func join(parts ...[]byte) []byte {
	return bytes.Join(parts, sep)
}

// DocumentPrefix prefixes the current revision of every document
func DocumentPrefix() []byte {
	return append([]byte(documentsNamespace), sep...)
}

// DocumentKey is the key of the current revision of a document
func DocumentKey(id string) []byte {
	return append(DocumentPrefix(), id...)
}

// RevisionPrefix prefixes every stored revision
func RevisionPrefix() []byte {
	return append([]byte(revisionsNamespace), sep...)
}

// RevisionKey is the key of the immutable revision written at seq
func RevisionKey(seq uint64) []byte {
	return append(RevisionPrefix(), EncodeUint(seq)...)
}

// RevisionSeq returns the sequence of a revision key
func RevisionSeq(key []byte) uint64 {
	return DecodeUint(bytes.TrimPrefix(key, RevisionPrefix()))
}

// SequenceKey holds the last sequence assigned by the database
func SequenceKey() []byte {
	return join([]byte(metaNamespace), []byte("seq"))
}

// ViewsKey holds the definitions of all persisted views
func ViewsKey() []byte {
	return join([]byte(metaNamespace), []byte("views"))
}

// ViewGenerationKey holds the generation of a view index that queries and writes use.
// A view is rebuilt into the next generation, which only becomes active once it is complete.
func ViewGenerationKey(view string) []byte {
	return join([]byte(metaNamespace), []byte("gen"), []byte(view))
}

// EntryPath is the path of a single view index entry:
// view prefix | collation key | escaped document id | emit ordinal
type EntryPath struct {
	view         string
	gen          uint64
	collationKey []byte
	documentID   string
	ordinal      uint32
}

// Entry returns the path of the entry emitted by a document for a collation key
func Entry(view string, gen uint64, collationKey []byte) EntryPath {
	return EntryPath{view: view, gen: gen, collationKey: collationKey}
}

// SetDocumentID sets the emitting document and the position of the emit call within its map run
func (p EntryPath) SetDocumentID(id string, ordinal uint32) EntryPath {
	return EntryPath{
		view:         p.view,
		gen:          p.gen,
		collationKey: p.collationKey,
		documentID:   id,
		ordinal:      ordinal,
	}
}

// Path returns the raw key. Without a document id it is the seek position of the collation key.
func (p EntryPath) Path() []byte {
	path := append(ViewPrefix(p.view, p.gen), p.collationKey...)
	if p.documentID == "" {
		return path
	}
	path = collate.AppendEscaped(path, []byte(p.documentID))
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], p.ordinal)
	return append(path, buf[:]...)
}

func viewPrefix(namespace string, view string, gen uint64) []byte {
	return append(join([]byte(namespace), []byte(view), EncodeUint(gen)), sep...)
}

// ViewPrefix prefixes every entry of a generation of a view index
func ViewPrefix(view string, gen uint64) []byte {
	return viewPrefix(entriesNamespace, view, gen)
}

// BackrefPrefix prefixes the per document entry lists of a generation of a view
func BackrefPrefix(view string, gen uint64) []byte {
	return viewPrefix(backrefNamespace, view, gen)
}

// BackrefKey lists the entry paths a document currently contributes to a view
func BackrefKey(view string, gen uint64, documentID string) []byte {
	return append(BackrefPrefix(view, gen), documentID...)
}

// ViewMetaPrefix prefixes the bookkeeping keys of a generation of a view
func ViewMetaPrefix(view string, gen uint64) []byte {
	return viewPrefix(viewMetaNamespace, view, gen)
}

// ViewSeqKey holds the database sequence the view index is current with
func ViewSeqKey(view string, gen uint64) []byte {
	return append(ViewMetaPrefix(view, gen), "seq"...)
}

// ViewCountKey holds the number of entries in the view index
func ViewCountKey(view string, gen uint64) []byte {
	return append(ViewMetaPrefix(view, gen), "count"...)
}

// ViewPrefixes returns every prefix owned by a generation of a view
func ViewPrefixes(view string, gen uint64) [][]byte {
	return [][]byte{ViewPrefix(view, gen), BackrefPrefix(view, gen), ViewMetaPrefix(view, gen)}
}

// EncodeUint encodes a counter value
func EncodeUint(v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return buf[:]
}

// DecodeUint decodes a counter value. Missing values decode to 0.
func DecodeUint(bits []byte) uint64 {
	if len(bits) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(bits)
}
