package domain

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// forbiddenRoots are system directories no destination may resolve into.
var forbiddenRoots = []string{"/etc", "/sys", "/proc", "/dev", "/boot", "/root"}

var filenamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// ValidateDestinationPath canonicalises dest, rejects it if it resolves into
// a forbidden system root, creates it (with parents) if absent, and rejects
// it if it exists as a non-directory. On success it returns the canonical
// absolute path.
func ValidateDestinationPath(dest string) (string, error) {
	abs, err := filepath.Abs(dest)
	if err != nil {
		return "", Wrap(KindInvalidDestinationPath, "cannot resolve destination path", err)
	}
	clean := filepath.Clean(abs)

	for _, root := range forbiddenRoots {
		if clean == root || isWithin(clean, root) {
			return "", New(KindSecurityError, "destination resolves into a forbidden system path: "+clean)
		}
	}

	info, err := os.Stat(clean)
	switch {
	case err == nil:
		if !info.IsDir() {
			return "", New(KindPathIsNotDirectory, "destination exists and is not a directory: "+clean)
		}
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(clean, 0o755); mkErr != nil {
			if os.IsPermission(mkErr) {
				return "", Wrap(KindPathPermissionError, "cannot create destination directory", mkErr)
			}
			return "", Wrap(KindInvalidDestinationPath, "cannot create destination directory", mkErr)
		}
	default:
		if os.IsPermission(err) {
			return "", Wrap(KindPathPermissionError, "cannot stat destination path", err)
		}
		return "", Wrap(KindInvalidDestinationPath, "cannot stat destination path", err)
	}

	return clean, nil
}

func isWithin(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || !strings.HasPrefix(rel, "..")
}

// ValidateFilename rejects path separators, characters outside
// [A-Za-z0-9_.-], and names longer than 255 bytes.
func ValidateFilename(name string) error {
	if name == "" {
		return New(KindInvalidDocName, "filename must not be empty")
	}
	if len(name) > 255 {
		return New(KindInvalidDocName, "filename exceeds 255 characters")
	}
	if filepath.Base(name) != name {
		return New(KindInvalidDocName, "filename must not contain path separators: "+name)
	}
	if !filenamePattern.MatchString(name) {
		return New(KindInvalidDocName, "filename contains disallowed characters: "+name)
	}
	return nil
}
