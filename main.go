// SPDX-License-Identifier: MPL-2.0

package main

import cmd "turbocache/cmd/turbocache"

func main() {
	cmd.Execute()
}
