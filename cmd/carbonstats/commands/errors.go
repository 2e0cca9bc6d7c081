package commands

import "errors"

var (
	errNegativeFlag    = errors.New("flag must not be negative")
	errSeedNeedsSQLite = errors.New("seed writes to the sqlite backend only")
)
