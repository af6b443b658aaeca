package dag

import (
	"sort"
)

type NodeID uint32

type Index struct {
	NameToID map[string]NodeID
	IDToName []string
}

// Node is a contract together with the paths of the contracts it deploys.
type Node struct {
	Path string
	Deps []string
}

// собрать уникальные пути, sort.Strings, раздать ID по порядку
func BuildIndex(nodes []Node) Index {
	uniq := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		if n.Path != "" {
			uniq[n.Path] = struct{}{}
		}
		for _, dep := range n.Deps {
			if dep == "" {
				continue
			}
			uniq[dep] = struct{}{}
		}
	}

	paths := make([]string, 0, len(uniq))
	for path := range uniq {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	nameToID := make(map[string]NodeID, len(paths))
	for i, path := range paths {
		nameToID[path] = NodeID(i)
	}

	return Index{
		NameToID: nameToID,
		IDToName: paths,
	}
}
