package main

import (
	"github.com/bathbot/entitycache/cmd/entitycache/commands"

	// Register storage backends
	_ "github.com/bathbot/entitycache/storage/lmdbstore"
	_ "github.com/bathbot/entitycache/storage/memory"

	// Register export blob backends
	_ "github.com/PowerDNS/simpleblob/backends/fs"
	_ "github.com/PowerDNS/simpleblob/backends/memory"
)

// version is overridden during the build with the go linker
var version = "dev"

func main() {
	commands.SetVersion(version)
	commands.Execute()
}
