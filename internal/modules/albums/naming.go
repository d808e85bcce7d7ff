package albums

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

// Separator splits album prefixes from photo names in object keys.
const Separator = "/"

// componentReplacer undoes the escapes url.QueryEscape applies but
// encodeURIComponent does not, so keys stay compatible with buckets written
// by browser clients.
var componentReplacer = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeComponent percent-encodes s the way encodeURIComponent does.
func EncodeComponent(s string) string {
	return componentReplacer.Replace(url.QueryEscape(s))
}

// DecodeComponent reverses EncodeComponent. "+" is left as is. Escapes that
// decode to invalid UTF-8 are rejected.
func DecodeComponent(s string) (string, error) {
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return "", err
	}
	if !utf8.ValidString(decoded) {
		return "", fmt.Errorf("decode %q: invalid UTF-8", s)
	}
	return decoded, nil
}

// NormalizeName trims the name and checks that it is usable as an album.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &ValidationError{Err: ErrInvalidName, Reason: "album names must contain at least one non-space character"}
	}
	if strings.Contains(name, Separator) {
		return "", &ValidationError{Err: ErrInvalidName, Reason: "album names cannot contain slashes"}
	}
	return name, nil
}

// AlbumKey is the key of the zero-length marker object of an album.
func AlbumKey(album string) string {
	return EncodeComponent(album)
}

// AlbumPrefix is the key prefix shared by every photo of an album.
func AlbumPrefix(album string) string {
	return EncodeComponent(album) + Separator
}

// PhotoKey is the object key of a photo. The file name is used verbatim.
func PhotoKey(album, fileName string) string {
	return AlbumPrefix(album) + fileName
}

// albumNameFromPrefix turns a common prefix such as "summer%202024/" back into
// an album name. Undecodable prefixes report ok=false.
func albumNameFromPrefix(prefix string) (name string, ok bool) {
	raw := strings.TrimSuffix(prefix, Separator)
	decoded, err := DecodeComponent(raw)
	if err != nil {
		return raw, false
	}
	return decoded, true
}
