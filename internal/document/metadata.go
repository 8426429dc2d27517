package document

import (
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"hash"
	"time"

	"docstore/pkg/storage"
)

// ErrNoIdentifier is returned when neither the caller nor the invocation
// context supplies an identifier.
var ErrNoIdentifier = errors.New("no document id and no request id available")

// Metadata describes a stored document. Field order matches the JSON copy
// written next to the content.
type Metadata struct {
	ID          string `json:"id"`
	Owner       string `json:"owner"`
	Filename    string `json:"filename"`
	Size        string `json:"size"`
	ContentType string `json:"content_type"`
	Created     int64  `json:"created"`
	Modified    int64  `json:"modified"`
	Deleted     bool   `json:"deleted"`
	URI         string `json:"uri"`
	Checksums
}

// Checksums are lowercase hex digests of the document.
type Checksums struct {
	MD5    string `json:"md5"`
	SHA1   string `json:"sha1"`
	SHA256 string `json:"sha256"`
	SHA512 string `json:"sha512"`
}

// ResolveID returns headerID when it is set, otherwise the invocation's
// requestID.
func ResolveID(headerID string, requestID string) (string, error) {
	if headerID != "" {
		return headerID, nil
	}
	if requestID != "" {
		return requestID, nil
	}
	return "", ErrNoIdentifier
}

func digest(h hash.Hash, data []byte) string {
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ComputeChecksums hashes data with MD5, SHA-1, SHA-256 and SHA-512.
func ComputeChecksums(data []byte) Checksums {
	return Checksums{
		MD5:    digest(md5.New(), data),
		SHA1:   digest(sha1.New(), data),
		SHA256: digest(sha256.New(), data),
		SHA512: digest(sha512.New(), data),
	}
}

// DocumentText returns the string form of a document value: JSON strings are
// unquoted, any other value is its compact JSON text, and an absent or null
// value is empty.
func DocumentText(raw json.RawMessage) []byte {
	if isAbsent(raw) {
		return nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []byte(s)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return raw
	}
	return compact.Bytes()
}

// NewMetadata builds the record for a document stored in bucket. now is read
// once for created and once for modified.
func NewMetadata(id string, headers DocsHeaders, bucket string, document json.RawMessage, now func() time.Time) Metadata {
	return Metadata{
		ID:          id,
		Owner:       headers.Owner,
		Filename:    headers.Filename,
		Size:        string(headers.Size),
		ContentType: headers.ContentType,
		Created:     now().UnixMilli(),
		Modified:    now().UnixMilli(),
		Deleted:     false,
		URI:         bucket + "/" + id,
		Checksums:   ComputeChecksums(DocumentText(document)),
	}
}

// Item returns the typed table record for m.
func (m Metadata) Item() storage.Item {
	return storage.Item{
		"id":           storage.String(m.ID),
		"owner":        storage.String(m.Owner),
		"filename":     storage.String(m.Filename),
		"uri":          storage.String(m.URI),
		"size":         storage.Number(m.Size),
		"content_type": storage.String(m.ContentType),
		"created":      storage.Int(m.Created),
		"modified":     storage.Int(m.Modified),
		"deleted":      storage.Bool(m.Deleted),
		"md5":          storage.String(m.MD5),
		"sha1":         storage.String(m.SHA1),
		"sha256":       storage.String(m.SHA256),
		"sha512":       storage.String(m.SHA512),
	}
}
