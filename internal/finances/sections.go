package finances

import (
	"fmt"
	"strings"

	appErrors "github.com/saf-slovakia/accountancy/customErrors"
)

const DefaultSections = "saf:SAF,ultimate:Ultimate,discgolf:Discgolf"

// Section is an organizational unit of the federation; Code is what records store.
type Section struct {
	Code  string
	Label string
}

// Sections keeps configuration order, which is also the order of the balance report.
type Sections []Section

// ParseSections reads "code:Label,code:Label". A missing label falls back to the code.
func ParseSections(raw string) (Sections, error) {
	var sections Sections
	seen := make(map[string]bool)

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, label, _ := strings.Cut(part, ":")
		code = strings.ToLower(strings.TrimSpace(code))
		label = strings.TrimSpace(label)
		if code == "" {
			return nil, appErrors.ErrorResponse{
				Code:    appErrors.ErrInvalidInput,
				Message: fmt.Sprintf("invalid section definition: %q", part),
			}
		}
		if seen[code] {
			return nil, appErrors.ErrorResponse{
				Code:    appErrors.ErrInvalidInput,
				Message: fmt.Sprintf("section %q defined twice", code),
			}
		}
		seen[code] = true
		if label == "" {
			label = code
		}
		sections = append(sections, Section{Code: code, Label: label})
	}

	if len(sections) == 0 {
		return nil, appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "at least one section must be configured",
		}
	}
	return sections, nil
}

func (s Sections) Has(code string) bool {
	for _, section := range s {
		if section.Code == code {
			return true
		}
	}
	return false
}

func (s Sections) Label(code string) string {
	for _, section := range s {
		if section.Code == code {
			return section.Label
		}
	}
	return code
}
