package helpers

import (
	twmerge "github.com/Oudwins/tailwind-merge-go"
)

// Classes merges tailwind class lists, later classes winning conflicts
// (e.g. Classes("p-6 text-lg", "p-4") == "text-lg p-4").
func Classes(classes ...string) string {
	return twmerge.Merge(classes...)
}
