package viewkit

import (
	"testing"

	"github.com/autom8ter/viewkit/collate"
	"github.com/stretchr/testify/assert"
)

func TestShape(t *testing.T) {
	doc, err := NewDocumentFrom(map[string]any{"_id": "a", "name": "acme"})
	assert.NoError(t, err)
	doc.Rev = "2-abc"
	doc.Sequence = 9
	doc.Conflicts = []string{"2-abb"}
	doc.Attachments = map[string]Attachment{
		"logo.png": {ContentType: "image/png", Length: 5, Digest: attachmentDigest([]byte("hello")), Data: []byte("hello")},
	}
	t.Run("defaults", func(t *testing.T) {
		out := shape(doc, ContentOptions{})
		assert.Nil(t, out.Conflicts)
		assert.Nil(t, out.LocalSeq)
		assert.True(t, out.Attachments["logo.png"].Stub)
		assert.Nil(t, out.Attachments["logo.png"].Data)
		assert.Equal(t, 5, out.Attachments["logo.png"].Length)
		assert.Equal(t, "acme", out.GetString("name"))
		// the source document is left untouched
		assert.Equal(t, []byte("hello"), doc.Attachments["logo.png"].Data)
	})
	t.Run("everything", func(t *testing.T) {
		out := shape(doc, ContentOptions{Attachments: true, Conflicts: true, LocalSeq: true})
		assert.Equal(t, []string{"2-abb"}, out.Conflicts)
		if assert.NotNil(t, out.LocalSeq) {
			assert.Equal(t, uint64(9), *out.LocalSeq)
		}
		assert.Equal(t, []byte("hello"), out.Attachments["logo.png"].Data)
		assert.False(t, out.Attachments["logo.png"].Stub)
	})
	t.Run("no body", func(t *testing.T) {
		out := shape(doc, ContentOptions{NoBody: true})
		assert.Equal(t, `{"_id":"a","_rev":"2-abc","_attachments":{"logo.png":{"content_type":"image/png","length":5,"digest":"md5-XUFAKrxLKna5cZ2REBfFkg==","stub":true}}}`, out.String())
	})
}

func TestLinkedDocument(t *testing.T) {
	id, ok := linkedDocument(collate.MustParse(`{"_id":"user1","n":1}`))
	assert.True(t, ok)
	assert.Equal(t, "user1", id)
	_, ok = linkedDocument(collate.MustParse(`{"_id":1}`))
	assert.False(t, ok)
	_, ok = linkedDocument(collate.String("user1"))
	assert.False(t, ok)
}
