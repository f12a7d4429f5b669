package archive

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

var charmaps = map[string]*charmap.Charmap{
	"cp437":      charmap.CodePage437,
	"cp850":      charmap.CodePage850,
	"cp866":      charmap.CodePage866,
	"cp1250":     charmap.Windows1250,
	"cp1251":     charmap.Windows1251,
	"cp1252":     charmap.Windows1252,
	"iso-8859-1": charmap.ISO8859_1,
	"iso-8859-2": charmap.ISO8859_2,
	"koi8-r":     charmap.KOI8R,
}

// LookupCharmap returns the code page known by name, such as "cp437".
func LookupCharmap(name string) (*charmap.Charmap, error) {
	cm, ok := charmaps[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("archive: unknown charset %q", name)
	}
	return cm, nil
}

// Charsets returns the names accepted by LookupCharmap.
func Charsets() []string {
	names := make([]string, 0, len(charmaps))
	for name := range charmaps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
