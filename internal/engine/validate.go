package engine

import (
	"strings"

	"github.com/re-cinq/kild/internal/kilderr"
)

const maxBranchLength = 255

// ValidateBranch checks branch against spec.md §3.1 / §8.2: non-empty,
// at most 255 characters, charset [A-Za-z0-9_/-], no "..", and no
// leading or trailing "/".
func ValidateBranch(branch string) error {
	if branch == "" {
		return &kilderr.InvalidBranchError{Branch: branch, Reason: "must not be empty"}
	}
	if len(branch) > maxBranchLength {
		return &kilderr.InvalidBranchError{Branch: branch, Reason: "exceeds 255 characters"}
	}
	if strings.HasPrefix(branch, "/") || strings.HasSuffix(branch, "/") {
		return &kilderr.InvalidBranchError{Branch: branch, Reason: "must not start or end with '/'"}
	}
	if strings.Contains(branch, "..") {
		return &kilderr.InvalidBranchError{Branch: branch, Reason: "must not contain '..'"}
	}
	for _, r := range branch {
		if !isBranchRune(r) {
			return &kilderr.InvalidBranchError{Branch: branch, Reason: "contains characters outside [A-Za-z0-9_/-]"}
		}
	}
	return nil
}

func isBranchRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_', r == '/', r == '-':
		return true
	default:
		return false
	}
}

// KildID builds the conventional "<project_id>_<branch_with_slash_to_underscore>"
// identifier (spec.md §3.1, GLOSSARY).
func KildID(projectID, branch string) string {
	return projectID + "_" + strings.ReplaceAll(branch, "/", "_")
}
