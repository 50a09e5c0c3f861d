package main

import "strings"

// demoKeysyms maps the keysym names used by the default binding set to
// stable synthetic keycodes. hxm carries no real X11 keysym table; a
// concrete Transport would supply its own resolver derived from the
// display server's actual keysym-to-keycode mapping.
var demoKeysyms = map[string]uint32{
	"tab":    23,
	"f4":     70,
	"escape": 9,
}

func demoKeysymResolver(name string) (uint32, bool) {
	code, ok := demoKeysyms[strings.ToLower(name)]
	return code, ok
}
