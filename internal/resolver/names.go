package resolver

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Permute inserts a space and n before the extension of title's base name.
func Permute(title string, n int) string {
	ns, base := splitNamespace(title)
	suffix := " " + strconv.Itoa(n)
	if dot := strings.LastIndex(base, "."); dot > 0 {
		base = base[:dot] + suffix + base[dot:]
	} else {
		base += suffix
	}
	if ns == "" {
		return base
	}
	return ns + ":" + base
}

// LocalAssetPath derives a collision-resistant download path for title.
func LocalAssetPath(dir, title string) string {
	_, base := splitNamespace(title)
	name := fmt.Sprintf("%016x%s", xxhash.Sum64String(base), strings.ToLower(filepath.Ext(base)))
	return filepath.Join(dir, name)
}

func splitNamespace(title string) (string, string) {
	if ns, rest, ok := strings.Cut(title, ":"); ok {
		return ns, rest
	}
	return "", title
}
