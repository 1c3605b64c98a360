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

// Command larray is a command-line interface for lazy, chunked,
// parallel computation on labeled arrays.
package main

import (
	"fmt"
	"os"

	"github.com/larray-project/larray/larrayutil"
)

func main() {
	if err := larrayutil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}
