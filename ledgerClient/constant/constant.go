package constant

import "os"

// <NodeDir>/                    (e.g., /home/player/.typechain)
// └── config/
//	└── typechain_config.json
// └── databases/
//	└── journal.db
// └── keys/
//	└── id.json

const (
	NodeDir = ".typechain"

	ConfigSubdir   = "config"
	ConfigFileName = "typechain_config.json"

	DatabasesSubdir = "databases"
	JournalDBName   = "journal.db"

	KeysSubdir      = "keys"
	KeypairFileName = "id.json"

	// DefaultProgramID is the deployed typing program.
	DefaultProgramID = "BLLAnstcntKVpbHqmfE4qx7SAydKWMs2udMQah5SEw7o"

	// PlayerSeed is the PDA seed of a player account: ["player", owner].
	PlayerSeed = "player"

	// MetricsNamespace prefixes every exported metric.
	MetricsNamespace = "typechain"
)

var DefaultNodeHome = os.ExpandEnv("$HOME/") + NodeDir
