// Command newsctl administers the news category taxonomy: schema migrations,
// category graph maintenance and news item filing.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
