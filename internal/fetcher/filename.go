package fetcher

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const hashLength = 24

// AudioBaseName returns the stable file stem for an episode: a sha256 prefix
// of its source URL. Episodes often share titles ("Trailer", "Bonus"), so the
// title never names the file.
func AudioBaseName(sourceURL string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(sourceURL)))
	return hex.EncodeToString(sum[:])[:hashLength]
}
