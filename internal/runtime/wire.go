package runtime

import (
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"

	"github.com/lucent-labs/lucent-provision/internal/domain"
)

// The daemon reports names with a leading slash (e.g. "/lucent-server-fastapi").
func trimName(name string) string {
	return strings.TrimPrefix(name, "/")
}

// summaryHasName reports whether any of the summary's names equals name
// exactly. Anchored comparison, never substring.
func summaryHasName(s container.Summary, name string) bool {
	for _, n := range s.Names {
		if trimName(n) == name {
			return true
		}
	}
	return false
}

func fromContainerSummary(s container.Summary) domain.Container {
	name := ""
	if len(s.Names) > 0 {
		name = trimName(s.Names[0])
	}
	return domain.Container{
		Id:      s.ID,
		Name:    name,
		Image:   s.Image,
		Status:  s.Status,
		State:   s.State,
		Created: time.Unix(s.Created, 0),
	}
}
