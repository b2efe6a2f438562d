package access

import "fmt"

// ContentNotFoundError reports that the requested content does not exist, is
// not published, or is soft-deleted. Callers must not be able to distinguish
// those cases; all three present as not found.
type ContentNotFoundError struct {
	ContentID string
}

func (e *ContentNotFoundError) Error() string {
	return fmt.Sprintf("content %s not found", e.ContentID)
}

// DeniedError reports that the content exists but the user holds no grant for
// it. It is returned by callers that need denial as an error value; the engine
// itself reports denial through Decision.Granted.
type DeniedError struct {
	UserID    string
	ContentID string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("user %s has no access to content %s", e.UserID, e.ContentID)
}
