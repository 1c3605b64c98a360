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
along with larray.  If not, see <http://www.gnu.org/licenses/>.
*/

package larray

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Progress returns a ComputeOption that renders a textual progress
// bar to w, redrawn in place as tasks finish:
//
//	[==========>         ] 52/100
//
// A trailing newline is written when the last task finishes.
func Progress(w io.Writer) ComputeOption {
	var mu sync.Mutex
	best := 0
	const width = 40
	return OnProgress(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		// Workers deliver events out of order; only redraw forward
		// so a lagging event can't overwrite the finished bar.
		if e.Done <= best {
			return
		}
		best = e.Done
		filled := 0
		if e.Total > 0 {
			filled = width * e.Done / e.Total
		}
		bar := strings.Repeat("=", filled)
		if filled < width {
			bar += ">" + strings.Repeat(" ", width-filled-1)
		}
		fmt.Fprintf(w, "\r[%s] %d/%d", bar, e.Done, e.Total)
		if e.Done == e.Total {
			fmt.Fprintln(w)
		}
	})
}
