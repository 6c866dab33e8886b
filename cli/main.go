// Command surgery finds, infers and corrects GPS metadata in photo and
// video collections.
package main

import (
	"os"

	"github.com/ankit-chaubey/media-gps-surgery/core"
)

func main() {
	if err := Root.Execute(); err != nil {
		core.PrintError(err.Error())
		os.Exit(1)
	}
}
