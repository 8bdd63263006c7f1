// Command rugo is the kernel image's entry point: main calls straight into
// Boot, which never returns.
package main

import "github.com/rugo-os/rugo/kernel"

func main() {
	kernel.Boot()
}
