package installer

import (
	"fmt"
	"strings"
)

const sourcesListDir = "/etc/apt/sources.list.d"

// Repository locates an openSUSE Build Service project for one distribution
type Repository struct {
	BaseURL      string
	Project      string
	Distribution string
}

// SourceLine is the apt sources entry. OBS publishes the apt tree with ":/"
// separators between project segments.
func (r Repository) SourceLine() string {
	return fmt.Sprintf("deb %s/%s/%s/ /", r.baseURL(), strings.ReplaceAll(r.Project, ":", ":/"), r.Distribution)
}

// ListFile is the sources.list.d file the entry is written to
func (r Repository) ListFile() string {
	return fmt.Sprintf("%s/%s.list", sourcesListDir, r.Project)
}

// KeyURL is the repository signing key
func (r Repository) KeyURL() string {
	return fmt.Sprintf("%s/%s/%s/Release.key", r.baseURL(), r.Project, r.Distribution)
}

func (r Repository) baseURL() string {
	return strings.TrimRight(r.BaseURL, "/")
}
