// Package apphash computes the per-request authentication hash used by the
// WEBSERVICES protocol.
//
// Every signed request carries a request id, a timestamp and a hash. The hash
// is the lowercase hex MD5 of the session's app id followed by the timestamp,
// encoded as Windows-1252 before hashing. The server recomputes the same value,
// so the encoding step must not be replaced with UTF-8.
package apphash

import (
	"crypto/md5" // #nosec G501 -- MD5 is mandated by the WEBSERVICES wire protocol
	"encoding/hex"
	"net/http"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// AppHash is the signature of a single request.
type AppHash struct {
	// RequestID is the id that the signed request must carry
	RequestID uint32

	// Hash is the lowercase hex MD5 digest
	Hash string

	// Timestamp is the IMF-fixdate used in the digest. It must be sent verbatim
	// as the WWSVC-TS header and the TIMESTAMP body field.
	Timestamp string
}

// New signs the next request after requestID with the current wall-clock time.
func New(requestID uint32, credential string) AppHash {
	return NewAt(requestID, credential, time.Now())
}

// NewAt signs the next request after requestID using now as the timestamp.
func NewAt(requestID uint32, credential string, now time.Time) AppHash {
	ts := FormatTimestamp(now)
	return AppHash{
		RequestID: requestID + 1,
		Hash:      Compute(credential, ts),
		Timestamp: ts,
	}
}

// String returns the hash.
func (a AppHash) String() string {
	return a.Hash
}

// FormatTimestamp renders t as an HTTP-date (e.g. "Tue, 15 Nov 1994 08:12:31 GMT").
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}

// Compute returns the lowercase hex MD5 of credential+timestamp encoded as
// Windows-1252. Runes outside the code page are written as HTML decimal
// character references, so the encoding never fails.
func Compute(credential, timestamp string) string {
	sum := md5.Sum(Encode(credential + timestamp)) // #nosec G401 -- protocol requirement
	return hex.EncodeToString(sum[:])
}

// Encode converts s to Windows-1252 bytes.
func Encode(s string) []byte {
	enc := encoding.HTMLEscapeUnsupported(charmap.Windows1252.NewEncoder())
	out, err := enc.Bytes([]byte(s))
	if err != nil {
		// Only reachable for malformed UTF-8 that the escaper cannot represent.
		return []byte(s)
	}
	return out
}
