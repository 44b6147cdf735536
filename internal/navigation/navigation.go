// Package navigation computes previous/next moves through a folder's
// filtered media sequence.
package navigation

import (
	"errors"
	"path"

	"photomedit/internal/library"
	"photomedit/internal/mediaid"
)

// Direction selects which neighbor to move to.
type Direction string

const (
	DirectionNext     Direction = "next"
	DirectionPrevious Direction = "previous"
)

// ErrBadDirection means the direction string is neither next nor previous.
var ErrBadDirection = errors.New("direction must be next or previous")

// Navigator answers neighbor queries against live folder listings.
type Navigator struct {
	scanner *library.Scanner
}

// NewNavigator wires a navigator onto a scanner.
func NewNavigator(scanner *library.Scanner) *Navigator {
	return &Navigator{scanner: scanner}
}

// Navigate returns the id of the neighboring media item in the current
// item's folder under the given filter, or "" at the sequence boundary.
//
// The current item itself may no longer match the filter (marking a photo
// reviewed removes it from the unreviewed sequence it was viewed in). In
// that case its position is located in the unfiltered folder order and the
// nearest filter-matching neighbor in the requested direction is returned.
func (n *Navigator) Navigate(currentID string, direction Direction, filter library.Filter) (string, error) {
	if direction != DirectionNext && direction != DirectionPrevious {
		return "", ErrBadDirection
	}

	libraryID, rel, err := mediaid.Decode(currentID)
	if err != nil {
		return "", err
	}
	folder := path.Dir(rel)
	if folder == "." {
		folder = ""
	}

	all, err := n.scanner.ListAll(libraryID, folder)
	if err != nil {
		return "", err
	}

	position := -1
	for i, e := range all {
		if e.ID == currentID {
			position = i
			break
		}
	}
	if position == -1 {
		// Item vanished from the folder; no defined neighbor.
		return "", nil
	}

	step := 1
	if direction == DirectionPrevious {
		step = -1
	}
	for i := position + step; i >= 0 && i < len(all); i += step {
		if filter.Matches(all[i]) {
			return all[i].ID, nil
		}
	}
	return "", nil
}
