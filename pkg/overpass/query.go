package overpass

import (
	"fmt"
	"strings"

	"github.com/paulmach/osm"
)

// Stop roles used by public transport relations (PTv2)
const (
	RoleStop          = "stop"
	RoleStopEntryOnly = "stop_entry_only"
	RoleStopExitOnly  = "stop_exit_only"
)

// RouteQuery builds a query returning the member ways of a route relation
// with inline geometry, followed by the member nodes holding one of the
// given roles.
func RouteQuery(id osm.RelationID, stopRoles []string) string {
	var b strings.Builder
	b.WriteString("[out:json];\n")
	fmt.Fprintf(&b, "relation(%d)->.route;\n", id)
	b.WriteString("way(r.route);\n")
	b.WriteString("out geom;\n")

	if len(stopRoles) > 0 {
		b.WriteString("(")
		for _, role := range stopRoles {
			fmt.Fprintf(&b, "node(r.route:%q);", role)
		}
		b.WriteString(");\n")
		b.WriteString("out geom;\n")
	}
	return b.String()
}
