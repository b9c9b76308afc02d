package matrix

import (
	"crypto/sha256"
	"encoding/hex"
	"fleet-route-planner/internal/domain"
	"strconv"
	"strings"
	"time"
)

// Coordinates are rounded to this many decimals (about a metre) before hashing,
// so identical node sets produce identical keys.
const keyPrecision = 5

// CacheKey derives the matrix cache key for one owner, date and ordered point set.
func CacheKey(ownerID int, date time.Time, points []domain.Coordinates) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(ownerID))
	b.WriteByte('|')
	b.WriteString(date.Format(time.DateOnly))
	for _, p := range points {
		r := p.Rounded(keyPrecision)
		b.WriteByte('|')
		b.WriteString(strconv.FormatFloat(r.Lon, 'f', keyPrecision, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(r.Lat, 'f', keyPrecision, 64))
	}

	sum := sha256.Sum256([]byte(b.String()))
	return "matrix:" + hex.EncodeToString(sum[:])
}
