package badgerfx

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// SeekEnd sorts after any printable key byte, so Seek(prefix+SeekEnd)
// positions a reverse iterator on the last entry under a prefix.
const SeekEnd = byte(0xFF)

// New opens the store every repository shares. Badger's own logging is
// redirected into zap so store internals land in the application log.
func New(config Config, logger *badgerLogger) (*badger.DB, error) {
	db, err := badger.Open(config.Build().WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}

	return db, nil
}
