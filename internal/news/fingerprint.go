package news

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"strings"
)

// Fingerprint is the dedup key of an ingested item: sha1 of the URL, or of
// title|publishedAt|source when the item has no URL. publishedAt is epoch ms.
func Fingerprint(url, title string, publishedAt int64, source string) string {
	basis := strings.TrimSpace(url)
	if basis == "" {
		basis = title + "|" + strconv.FormatInt(publishedAt, 10) + "|" + source
	}
	sum := sha1.Sum([]byte(basis))
	return hex.EncodeToString(sum[:])
}
