// Package id recognises the identifiers users type to address stored
// documents: internal UUIDs and the sequential friendly ids (F-00001 for
// folders, J-00001 for journals) assigned by the database.
package id

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/lherron/advimport/internal/domain"
)

var (
	folderIDPattern  = regexp.MustCompile(`^F-\d{5,}$`)
	journalIDPattern = regexp.MustCompile(`^J-\d{5,}$`)
)

// FormatFolder formats a folder friendly ID
func FormatFolder(seq int) string {
	return fmt.Sprintf("F-%05d", seq)
}

// FormatJournal formats a journal friendly ID
func FormatJournal(seq int) string {
	return fmt.Sprintf("J-%05d", seq)
}

// Parse parses a friendly ID and returns the document kind and sequence number
func Parse(id string) (domain.Kind, int, error) {
	id = strings.TrimSpace(id)

	switch {
	case folderIDPattern.MatchString(id):
		seq, _ := strconv.Atoi(id[2:])
		return domain.KindFolder, seq, nil
	case journalIDPattern.MatchString(id):
		seq, _ := strconv.Atoi(id[2:])
		return domain.KindJournal, seq, nil
	default:
		return "", 0, fmt.Errorf("invalid friendly ID format: %s", id)
	}
}

// IsUUID checks if a string is a canonical hyphenated UUID
func IsUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// IsFriendlyID checks if a string is a valid friendly ID
func IsFriendlyID(s string) bool {
	_, _, err := Parse(s)
	return err == nil
}
