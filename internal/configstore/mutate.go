package configstore

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	serversKey   = "namedServers"
	autoStartKey = "autoStart.servers"
)

// AddServer upserts namedServers[name] = cfg. With autoStart set, name is also
// appended to autoStart.servers if absent.
func AddServer(name string, cfg []byte, autoStart bool) MutateFunc {
	return func(doc []byte) ([]byte, string, error) {
		out, err := sjson.SetRawBytes(doc, serversKey+"."+escapeKey(name), cfg)
		if err != nil {
			return nil, "", fmt.Errorf("set server %q: %w", name, err)
		}

		if autoStart && !autoStartContains(out, name) {
			out, err = sjson.SetBytes(out, autoStartKey+".-1", name)
			if err != nil {
				return nil, "", fmt.Errorf("add %q to autostart: %w", name, err)
			}
		}

		return out, fmt.Sprintf("server %q added or updated", name), nil
	}
}

// RemoveServer deletes namedServers[name] and purges the name from
// autoStart.servers, so no dangling autostart reference survives. Removing an
// absent name is a non-fatal "not found" result, not an error.
func RemoveServer(name string) MutateFunc {
	return func(doc []byte) ([]byte, string, error) {
		key := serversKey + "." + escapeKey(name)
		if !gjson.GetBytes(doc, key).Exists() {
			return doc, fmt.Sprintf("server %q not found", name), nil
		}

		out, err := sjson.DeleteBytes(doc, key)
		if err != nil {
			return nil, "", fmt.Errorf("delete server %q: %w", name, err)
		}

		out, err = purgeAutoStart(out, name)
		if err != nil {
			return nil, "", err
		}

		return out, fmt.Sprintf("server %q removed", name), nil
	}
}

// ServerNames lists the keys of namedServers in document order.
func ServerNames(doc []byte) []string {
	var names []string
	gjson.GetBytes(doc, serversKey).ForEach(func(key, _ gjson.Result) bool {
		names = append(names, key.String())
		return true
	})
	return names
}

func autoStartContains(doc []byte, name string) bool {
	for _, v := range gjson.GetBytes(doc, autoStartKey).Array() {
		if v.String() == name {
			return true
		}
	}
	return false
}

// purgeAutoStart rewrites autoStart.servers without name. A document with no
// autostart list is returned unchanged.
func purgeAutoStart(doc []byte, name string) ([]byte, error) {
	list := gjson.GetBytes(doc, autoStartKey)
	if !list.Exists() {
		return doc, nil
	}

	kept := []string{}
	for _, v := range list.Array() {
		if v.String() != name {
			kept = append(kept, v.String())
		}
	}

	out, err := sjson.SetBytes(doc, autoStartKey, kept)
	if err != nil {
		return nil, fmt.Errorf("rewrite autostart list: %w", err)
	}
	return out, nil
}

// escapeKey protects gjson path metacharacters in server names so a name like
// "my.tool" addresses one key instead of a nested path.
func escapeKey(name string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`.`, `\.`,
		`*`, `\*`,
		`?`, `\?`,
	)
	return r.Replace(name)
}
