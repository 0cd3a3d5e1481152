// Command s3ksim boots a simulated s3k kernel image from a TOML
// platform descriptor, replays a recorded syscall trace against it,
// and dumps CDT/schedule state for inspection.
package main

import "os"

func main() {
	os.Exit(Execute())
}
