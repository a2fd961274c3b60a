// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/connectedyard/licensescan/cmd/licensescan"

func main() {
	cmd.Execute()
}
