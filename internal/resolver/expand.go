package resolver

import (
	"context"
	"fmt"
	"strings"

	"WikiMover/internal/ports"
)

// Expand turns user input into file titles: files are taken as they are,
// categories yield their file members, templates the files transcluding them
// and anything else is read as a user whose uploads are wanted. Order is
// kept and duplicates are dropped.
func (r *Resolver) Expand(ctx context.Context, inputs []string) ([]string, error) {
	var out []string
	seen := map[string]struct{}{}
	add := func(titles ...string) {
		for _, title := range titles {
			if _, dup := seen[title]; dup || title == "" {
				continue
			}
			seen[title] = struct{}{}
			out = append(out, title)
		}
	}

	for _, input := range inputs {
		input = strings.TrimSpace(strings.ReplaceAll(input, "_", " "))
		if input == "" {
			continue
		}
		switch ports.NamespaceOf(input) {
		case ports.NamespaceFile:
			add(ports.NamespaceFile.Qualify(ports.StripNamespace(input)))
		case ports.NamespaceCategory:
			titles, err := r.source.CategoryMembers(ctx, input, ports.NamespaceFile)
			if err != nil {
				return nil, fmt.Errorf("expand %s: %w", input, err)
			}
			add(titles...)
		case ports.NamespaceTemplate:
			titles, err := r.source.TransclusionsOf(ctx, input, ports.NamespaceFile)
			if err != nil {
				return nil, fmt.Errorf("expand %s: %w", input, err)
			}
			add(titles...)
		default:
			titles, err := r.source.UploadsByUser(ctx, ports.StripNamespace(input))
			if err != nil {
				return nil, fmt.Errorf("expand %s: %w", input, err)
			}
			add(titles...)
		}
		r.debug("expanded input", "input", input, "total", len(out))
	}
	return out, nil
}
