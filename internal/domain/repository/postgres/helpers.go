package postgres

import "strings"

// qualify prefixes every column in a comma-separated list with a table
// alias, for joins that reuse a shared column list.
func qualify(columns, alias string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
