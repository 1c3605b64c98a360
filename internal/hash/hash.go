/*
Copyright © 2025 the larray authors.
This file is part of larray.

larray is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

larray is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with larray.  If not, see <http://www.gnu.org/licenses/>.*/

// Package hash creates stable keys for task and cache identification.
package hash

import (
	"encoding/gob"
	"fmt"
	"hash/fnv"

	"github.com/davecgh/go-spew/spew"
)

// Key returns a hash key for the specified parts. Two calls with
// equal parts return equal keys.
func Key(parts ...interface{}) string {
	h := fnv.New128a()
	for _, part := range parts {
		if s, ok := part.(fmt.Stringer); ok {
			fmt.Fprint(h, s.String())
			continue
		}
		e := gob.NewEncoder(h)
		if err := e.Encode(part); err != nil {
			// gob fails on some values (e.g. NaN map keys);
			// fall back to a deterministic textual dump.
			printer := spew.ConfigState{
				Indent:                  " ",
				SortKeys:                true,
				DisableMethods:          true,
				SpewKeys:                true,
				DisablePointerAddresses: true,
				DisableCapacities:       true,
			}
			printer.Fprintf(h, "%#v", part)
		}
	}
	bKey := h.Sum([]byte{})
	return fmt.Sprintf("%x", bKey[0:h.Size()])
}
