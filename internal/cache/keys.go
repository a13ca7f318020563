package cache

import (
	"fmt"
	"strings"

	"routemap/internal/domain"
)

// KeyBundle identifies a resolved bundle by source, relation, display type
// and color, since the color is baked into the geometry styles.
func KeyBundle(source domain.Source, relationID string, displayType domain.DisplayType, color string) string {
	return fmt.Sprintf("bundle:%s:%s:%s:%s", source, relationID, displayType, strings.TrimPrefix(color, "#"))
}

func KeyBundlePattern(source domain.Source) string {
	return fmt.Sprintf("bundle:%s:*", source)
}
