// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/vfxbootstrap/vfxb/cmd/vfxb"

func main() {
	cmd.Execute()
}
