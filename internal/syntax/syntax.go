// Package syntax handles turning the raw command line tokens into meaningful
// values, validating URLs and splitting key=value pairs destined for a
// request body.
package syntax

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Separator is the character dividing the key from the value in a [KeyValue] token.
const Separator = "="

var (
	// ErrInvalidURL is the sentinel matched by every [InvalidURLError].
	ErrInvalidURL = errors.New("invalid URL")

	// ErrMissingSeparator is the sentinel matched by every [MissingSeparatorError].
	ErrMissingSeparator = errors.New("missing separator")

	errNoScheme = errors.New("missing scheme")
	errNoHost   = errors.New("missing host")
)

// InvalidURLError is returned from [ValidateURL] when the raw text is not an
// absolute URL.
type InvalidURLError struct {
	Cause error  // The underlying parse diagnostic
	Raw   string // The text as given on the command line
}

// Error implements the error interface for [InvalidURLError].
func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("invalid URL %q: %v", e.Raw, e.Cause)
}

// Unwrap returns the underlying parse diagnostic.
func (e *InvalidURLError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is [ErrInvalidURL].
func (e *InvalidURLError) Is(target error) bool {
	return target == ErrInvalidURL
}

// MissingSeparatorError is returned from [ParseKeyValue] when the raw text has
// no '=' in it.
type MissingSeparatorError struct {
	Raw string // The text as given on the command line
}

// Error implements the error interface for [MissingSeparatorError].
func (e *MissingSeparatorError) Error() string {
	return fmt.Sprintf("bad key value pair %q: expected key%svalue", e.Raw, Separator)
}

// Is reports whether target is [ErrMissingSeparator].
func (e *MissingSeparatorError) Is(target error) bool {
	return target == ErrMissingSeparator
}

// ValidateURL checks that raw is an absolute URL, that is it has both a scheme
// and a host, returning raw unchanged if so.
//
// The URL is only checked, never normalised, the returned string is always
// exactly what was passed in.
//
// A '%' that doesn't start an escape is allowed, as it is by browsers, but a host
// may not contain any of the characters forbidden in a host by the WHATWG URL
// standard and a port must fit in 16 bits.
func ValidateURL(raw string) (string, error) {
	parsed, err := url.Parse(escapeStrayPercents(raw))
	if err != nil {
		// url.Error repeats the raw text, the cause on it's own is enough
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}

		return "", &InvalidURLError{Raw: raw, Cause: err}
	}

	if parsed.Scheme == "" {
		return "", &InvalidURLError{Raw: raw, Cause: errNoScheme}
	}

	host := parsed.Hostname()
	if host == "" {
		return "", &InvalidURLError{Raw: raw, Cause: errNoHost}
	}

	// IPv6 literals have already been checked by url.Parse
	if !strings.HasPrefix(parsed.Host, "[") {
		if i := strings.IndexFunc(host, isForbiddenHostRune); i >= 0 {
			return "", &InvalidURLError{
				Raw:   raw,
				Cause: fmt.Errorf("forbidden character %q in host", host[i]),
			}
		}
	}

	if port := parsed.Port(); port != "" {
		if _, err := strconv.ParseUint(port, 10, 16); err != nil {
			return "", &InvalidURLError{Raw: raw, Cause: fmt.Errorf("port %s out of range", port)}
		}
	}

	return raw, nil
}

// escapeStrayPercents replaces any '%' not followed by two hex digits with "%25"
// so url.Parse treats it as a literal percent sign.
func escapeStrayPercents(raw string) string {
	if !strings.Contains(raw, "%") {
		return raw
	}

	builder := &strings.Builder{}
	builder.Grow(len(raw))

	for i := 0; i < len(raw); i++ {
		if raw[i] == '%' && (i+2 >= len(raw) || !isHex(raw[i+1]) || !isHex(raw[i+2])) {
			builder.WriteString("%25")
			continue
		}

		builder.WriteByte(raw[i])
	}

	return builder.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// isForbiddenHostRune reports whether r may not appear in a domain, these are
// the WHATWG forbidden domain code points.
func isForbiddenHostRune(r rune) bool {
	if r <= 0x1f || r == 0x7f {
		return true
	}

	return strings.ContainsRune(" #%/:<>?@[\\]^|", r)
}

// KeyValue is a single key=value token from the command line, each one becomes
// a field in a JSON request body.
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// String implements [fmt.Stringer] for a [KeyValue].
func (kv KeyValue) String() string {
	return kv.Key + Separator + kv.Value
}

// ParseKeyValue splits raw into a [KeyValue] around the first '='.
//
// Only the first '=' is significant, any others are part of the value so
// "a=b=c" has key "a" and value "b=c". Either side may be empty.
func ParseKeyValue(raw string) (KeyValue, error) {
	key, value, ok := strings.Cut(raw, Separator)
	if !ok {
		return KeyValue{}, &MissingSeparatorError{Raw: raw}
	}

	return KeyValue{Key: key, Value: value}, nil
}

// ParseKeyValues calls [ParseKeyValue] on each of raws in turn, the returned
// pairs are in the same order.
//
// The first bad token aborts the whole thing and no pairs are returned.
func ParseKeyValues(raws []string) ([]KeyValue, error) {
	if len(raws) == 0 {
		return nil, nil
	}

	pairs := make([]KeyValue, 0, len(raws))
	for _, raw := range raws {
		pair, err := ParseKeyValue(raw)
		if err != nil {
			return nil, err
		}

		pairs = append(pairs, pair)
	}

	return pairs, nil
}
