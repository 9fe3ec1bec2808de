package viewkit

import (
	"bytes"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/autom8ter/viewkit/errors"
	"github.com/spf13/cast"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// reserved document fields
const (
	idField          = "_id"
	revField         = "_rev"
	deletedField     = "_deleted"
	conflictsField   = "_conflicts"
	attachmentsField = "_attachments"
	localSeqField    = "_local_seq"
)

// Attachment is a binary blob stored alongside a document revision
type Attachment struct {
	ContentType string `json:"content_type,omitempty"`
	Length      int    `json:"length"`
	// Digest is "md5-" followed by the base64 md5 of Data
	Digest string `json:"digest,omitempty"`
	Data   []byte `json:"data,omitempty"`
	// Stub is set when Data has been omitted
	Stub bool `json:"stub,omitempty"`
}

// Document is a revision of a JSON document. Reserved fields (prefixed with an underscore) are kept
// outside of the body and only rendered by MarshalJSON.
type Document struct {
	ID          string
	Rev         string
	Sequence    uint64
	Deleted     bool
	Conflicts   []string
	Attachments map[string]Attachment
	// LocalSeq is only set on materialized documents that requested it
	LocalSeq *uint64
	result   gjson.Result
}

// NewDocument creates a new empty document
func NewDocument(id string) *Document {
	return &Document{
		ID:     id,
		result: gjson.Parse("{}"),
	}
}

// NewDocumentFromBytes creates a new document from a json object. _id, _rev, _deleted and _attachments
// are read into the document's metadata and every reserved field is removed from the body.
func NewDocumentFromBytes(bits []byte) (*Document, error) {
	if !gjson.ValidBytes(bits) {
		return nil, errors.New(errors.Validation, "invalid json: %s", string(bits))
	}
	parsed := gjson.ParseBytes(bits)
	if !parsed.IsObject() {
		return nil, errors.New(errors.Validation, "document must be a json object")
	}
	d := &Document{
		ID:      parsed.Get(idField).String(),
		Rev:     parsed.Get(revField).String(),
		Deleted: parsed.Get(deletedField).Bool(),
	}
	if attachments := parsed.Get(attachmentsField); attachments.Exists() {
		if err := json.Unmarshal([]byte(attachments.Raw), &d.Attachments); err != nil {
			return nil, errors.Wrap(err, errors.Validation, "invalid attachments")
		}
	}
	if conflicts := parsed.Get(conflictsField); conflicts.IsArray() {
		for _, c := range conflicts.Array() {
			d.Conflicts = append(d.Conflicts, c.String())
		}
	}
	body := []byte(parsed.Raw)
	var reserved []string
	parsed.ForEach(func(key, _ gjson.Result) bool {
		if strings.HasPrefix(key.String(), "_") {
			reserved = append(reserved, key.String())
		}
		return true
	})
	for _, field := range reserved {
		var err error
		body, err = sjson.DeleteBytes(body, escapePath(field))
		if err != nil {
			return nil, errors.Wrap(err, errors.Validation, "failed to remove reserved field: %s", field)
		}
	}
	d.result = gjson.ParseBytes(body)
	return d, nil
}

// NewDocumentFrom creates a new document from the given value - the value must be json compatible
func NewDocumentFrom(value any) (*Document, error) {
	bits, err := json.Marshal(value)
	if err != nil {
		return nil, errors.New(errors.Validation, "failed to json encode value: %#v", value)
	}
	return NewDocumentFromBytes(bits)
}

// Body returns the document body (without reserved fields) as json bytes
func (d *Document) Body() []byte {
	if d.result.Raw == "" {
		return []byte("{}")
	}
	return []byte(d.result.Raw)
}

// Get gets a field on the document body. Get has GJSON syntax support and supports dot notation
func (d *Document) Get(field string) any {
	return d.result.Get(field).Value()
}

// GetString gets a string field value on the document body
func (d *Document) GetString(field string) string {
	return d.result.Get(field).String()
}

// GetFloat gets a numeric field value on the document body
func (d *Document) GetFloat(field string) float64 {
	return d.result.Get(field).Float()
}

// GetBool gets a bool field value on the document body
func (d *Document) GetBool(field string) bool {
	return d.result.Get(field).Bool()
}

// Set sets a field on the document body. Dot notation is supported.
func (d *Document) Set(field string, val any) error {
	if strings.HasPrefix(field, "_") {
		return errors.New(errors.Validation, "reserved field: %s", field)
	}
	result, err := sjson.SetBytes(d.Body(), field, val)
	if err != nil {
		return errors.Wrap(err, errors.Validation, "failed to set field: %s", field)
	}
	d.result = gjson.ParseBytes(result)
	return nil
}

// Del deletes a field from the document body
func (d *Document) Del(field string) error {
	result, err := sjson.DeleteBytes(d.Body(), field)
	if err != nil {
		return errors.Wrap(err, errors.Validation, "failed to delete field: %s", field)
	}
	d.result = gjson.ParseBytes(result)
	return nil
}

// Value returns the document body as a map including _id and _rev. It is the input of map functions.
func (d *Document) Value() map[string]any {
	value, ok := d.result.Value().(map[string]any)
	if !ok || value == nil {
		value = map[string]any{}
	}
	value[idField] = d.ID
	if d.Rev != "" {
		value[revField] = d.Rev
	}
	return value
}

// Scan scans the json document body into the value
func (d *Document) Scan(value any) error {
	return json.Unmarshal(d.Body(), value)
}

// Clone allocates a new document with identical values
func (d *Document) Clone() *Document {
	clone := *d
	clone.result = gjson.ParseBytes(append([]byte{}, d.Body()...))
	if d.Conflicts != nil {
		clone.Conflicts = append([]string{}, d.Conflicts...)
	}
	if d.Attachments != nil {
		clone.Attachments = make(map[string]Attachment, len(d.Attachments))
		for name, a := range d.Attachments {
			clone.Attachments[name] = a
		}
	}
	if d.LocalSeq != nil {
		seq := *d.LocalSeq
		clone.LocalSeq = &seq
	}
	return &clone
}

// String returns the document as a json string
func (d *Document) String() string {
	bits, _ := d.MarshalJSON()
	return string(bits)
}

// MarshalJSON renders _id and _rev, followed by the body and the remaining reserved fields
func (d *Document) MarshalJSON() ([]byte, error) {
	buf := bytes.NewBufferString("{")
	fields := 0
	writeField := func(name string, value any) error {
		bits, err := json.Marshal(value)
		if err != nil {
			return err
		}
		if fields > 0 {
			buf.WriteByte(',')
		}
		fields++
		fmt.Fprintf(buf, "%q:", name)
		buf.Write(bits)
		return nil
	}
	if err := writeField(idField, d.ID); err != nil {
		return nil, err
	}
	if d.Rev != "" {
		if err := writeField(revField, d.Rev); err != nil {
			return nil, err
		}
	}
	if inner := bytes.TrimSpace(d.Body()); len(inner) > 2 {
		inner = bytes.TrimSpace(inner[1 : len(inner)-1])
		if len(inner) > 0 {
			buf.WriteByte(',')
			buf.Write(inner)
			fields++
		}
	}
	if d.Deleted {
		if err := writeField(deletedField, true); err != nil {
			return nil, err
		}
	}
	if len(d.Attachments) > 0 {
		if err := writeField(attachmentsField, d.Attachments); err != nil {
			return nil, err
		}
	}
	if d.Conflicts != nil {
		if err := writeField(conflictsField, d.Conflicts); err != nil {
			return nil, err
		}
	}
	if d.LocalSeq != nil {
		if err := writeField(localSeqField, *d.LocalSeq); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON satisfies the json Unmarshaler interface
func (d *Document) UnmarshalJSON(bits []byte) error {
	doc, err := NewDocumentFromBytes(bits)
	if err != nil {
		return err
	}
	*d = *doc
	return nil
}

// escapePath escapes gjson/sjson path characters in a single field name
func escapePath(field string) string {
	var sb strings.Builder
	for _, c := range field {
		switch c {
		case '.', '*', '?', '|', '#', '@', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(c)
	}
	return sb.String()
}

// Revision helpers. A revision id is "<generation>-<hex md5>".

func revisionGeneration(rev string) int {
	gen, _, ok := strings.Cut(rev, "-")
	if !ok {
		return 0
	}
	return cast.ToInt(gen)
}

func validRevision(rev string) bool {
	gen, digest, ok := strings.Cut(rev, "-")
	return ok && cast.ToInt(gen) > 0 && digest != ""
}

func nextRevision(prev string, d *Document) string {
	h := md5.New()
	h.Write([]byte(prev))
	h.Write(d.Body())
	if d.Deleted {
		h.Write([]byte{1})
	}
	names := make([]string, 0, len(d.Attachments))
	for name := range d.Attachments {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		h.Write([]byte(name))
		h.Write([]byte(d.Attachments[name].Digest))
	}
	return fmt.Sprintf("%d-%s", revisionGeneration(prev)+1, hex.EncodeToString(h.Sum(nil)))
}

// revisionLess orders leaf revisions: the winner is the revision with the highest generation,
// ties broken by the larger revision string.
func revisionLess(a, b string) bool {
	ga, gb := revisionGeneration(a), revisionGeneration(b)
	if ga != gb {
		return ga < gb
	}
	return a < b
}

func attachmentDigest(data []byte) string {
	sum := md5.Sum(data)
	return "md5-" + base64.StdEncoding.EncodeToString(sum[:])
}
