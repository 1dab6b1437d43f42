package archive

import "strings"

// NormalizeName converts a logical file name to the form stored in the index.
//
// It performs the following transformations:
//   - Lowercases: "Meshes\Clutter" → "meshes\clutter"
//   - Converts backslashes to slashes: "meshes\a.nif" → "meshes/a.nif"
//   - Strips leading and trailing slashes and "./" prefixes
//   - Collapses consecutive slashes: "meshes//a.nif" → "meshes/a.nif"
//
// Game data is looked up case-insensitively, so two names that differ only
// in case refer to the same entry.
func NormalizeName(name string) string {
	name = strings.ToLower(strings.ReplaceAll(name, `\`, "/"))
	parts := strings.Split(name, "/")
	result := parts[:0]
	for _, part := range parts {
		if part != "" && part != "." {
			result = append(result, part)
		}
	}
	return strings.Join(result, "/")
}
