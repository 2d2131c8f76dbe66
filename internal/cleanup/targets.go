package cleanup

import (
	"fmt"
	"strings"
	"unicode"
)

// DefaultTargets are the collections watched when nothing is configured.
var DefaultTargets = []Target{
	{Name: "onPermitDeleted", Collection: "permits", AssetField: "image"},
	{Name: "onLicenseDeleted", Collection: "licenses", AssetField: "image"},
}

// ParseTargets reads a comma separated list of "name=collection:field" or
// "collection:field" entries. Missing names are derived from the collection
// ("permits" -> "onPermitDeleted").
func ParseTargets(raw string) ([]Target, error) {
	if strings.TrimSpace(raw) == "" {
		return append([]Target(nil), DefaultTargets...), nil
	}

	var (
		targets []Target
		seen    = make(map[string]struct{})
	)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		name, binding, hasName := strings.Cut(entry, "=")
		if !hasName {
			binding, name = name, ""
		}
		collection, field, ok := strings.Cut(binding, ":")
		collection, field = strings.TrimSpace(collection), strings.TrimSpace(field)
		if !ok || collection == "" || field == "" {
			return nil, fmt.Errorf("invalid cleanup target %q: want [name=]collection:field", entry)
		}

		name = strings.TrimSpace(name)
		if name == "" {
			name = defaultTargetName(collection)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate cleanup target name %q", name)
		}
		seen[name] = struct{}{}

		targets = append(targets, Target{Name: name, Collection: collection, AssetField: field})
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("no cleanup targets in %q", raw)
	}
	return targets, nil
}

func defaultTargetName(collection string) string {
	singular := strings.TrimSuffix(collection, "s")
	if singular == "" {
		singular = collection
	}
	r := []rune(singular)
	r[0] = unicode.ToUpper(r[0])
	return "on" + string(r) + "Deleted"
}
