package mediaid

import (
	"errors"
	"strings"
)

// Separator joins the library id and the relative path inside an encoded id.
const Separator = "|"

// ErrMalformedID indicates an id that cannot be split into a library id and
// a relative path.
var ErrMalformedID = errors.New("malformed media id")

// Encode builds the opaque id for a media item.
func Encode(libraryID, relativePath string) string {
	return libraryID + Separator + relativePath
}

// Decode splits an id on the first separator occurrence.
// Round-trip law: Decode(Encode(l, p)) == (l, p) for every valid pair.
func Decode(id string) (libraryID, relativePath string, err error) {
	libraryID, relativePath, found := strings.Cut(id, Separator)
	if !found || libraryID == "" || relativePath == "" {
		return "", "", ErrMalformedID
	}
	return libraryID, relativePath, nil
}
