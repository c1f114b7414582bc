package pathutil

// MigrateLegacyID returns the current project id for a project whose
// recorded path might have been hashed before canonicalization existed
// (spec.md §4.1, "A one-shot migration routine rewrites legacy kild
// files whose project_id was derived pre-canonicalization"). If
// currentID already matches ProjectID(canonical(rawPath)), no migration
// is needed and needsMigration is false. Otherwise the caller should
// rewrite every persisted kild whose project_id equals currentID to use
// the returned id.
func MigrateLegacyID(rawPath, currentID string) (newID string, needsMigration bool, err error) {
	canonical, err := Canonicalize(rawPath)
	if err != nil {
		return "", false, err
	}
	correct := ProjectID(canonical)
	if correct == currentID {
		return correct, false, nil
	}
	return correct, true, nil
}
