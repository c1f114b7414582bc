package model

import (
	"strings"

	"github.com/re-cinq/kild/internal/kilderr"
)

const maxBranchLength = 255

// branchCharOK reports whether r is in the accepted branch charset
// [A-Za-z0-9_/-] (spec.md §3.1).
func branchCharOK(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '_' || r == '/' || r == '-':
		return true
	}
	return false
}

// ValidateBranch enforces the branch charset and shape invariants from
// spec.md §3.1 and the boundary behaviours in §8.2: non-empty, ≤255
// chars, charset [A-Za-z0-9_/-], no "..", no leading/trailing "/".
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
		if !branchCharOK(r) {
			return &kilderr.InvalidBranchError{Branch: branch, Reason: "contains characters outside [A-Za-z0-9_/-]"}
		}
	}
	return nil
}

// KildID derives the stable id for a kild from its project id and
// branch: "<project_id>_<branch>" with '/' replaced by '_' (spec.md
// §3.1, GLOSSARY).
func KildID(projectID, branch string) string {
	return projectID + "_" + strings.ReplaceAll(branch, "/", "_")
}
