package service

import (
	"regexp"
	"strings"

	dErrors "hiretrack/pkg/domain-errors"
)

var (
	handlePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]{4,31}$`)
	emailPattern  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// NormalizeHandle strips a leading @ and lowercases the handle. Returns ""
// when the result is not a valid handle.
func NormalizeHandle(raw string) string {
	handle := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), "@"))
	if !handlePattern.MatchString(handle) {
		return ""
	}
	return handle
}

func (s *Service) validateCreate(params *CreateParams) error {
	params.FullName = strings.TrimSpace(params.FullName)
	params.Role = strings.TrimSpace(params.Role)
	params.DocsEmail = strings.TrimSpace(params.DocsEmail)

	if params.FullName == "" {
		return dErrors.New(dErrors.CodeBadRequest, "full name is required")
	}
	if params.Role == "" {
		return dErrors.New(dErrors.CodeBadRequest, "role is required")
	}
	if params.StartDate.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "start date is required")
	}
	if !emailPattern.MatchString(params.DocsEmail) {
		return dErrors.New(dErrors.CodeBadRequest, "docs email is not a valid address")
	}
	if params.Checklist == nil {
		params.Checklist = []string{}
	}

	if params.LegalHandle == "" {
		params.LegalHandle = s.defaults.LegalHandle
	}
	if params.DevopsHandle == "" {
		params.DevopsHandle = s.defaults.DevopsHandle
	}

	for _, pair := range []struct {
		name   string
		handle *string
	}{
		{"leader", &params.LeaderHandle},
		{"legal", &params.LegalHandle},
		{"devops", &params.DevopsHandle},
	} {
		normalized := NormalizeHandle(*pair.handle)
		if normalized == "" {
			return dErrors.New(dErrors.CodeBadRequest, pair.name+" handle is missing or malformed")
		}
		*pair.handle = normalized
	}
	return nil
}
