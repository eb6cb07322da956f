package reference

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const MaxLength = 64

var validReference = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// UUIDGenerator mints references of the form <prefix>-<32 hex chars> from a
// random v4 UUID. uuid.New panics if the system randomness source fails.
type UUIDGenerator struct {
	prefix string
}

func NewUUIDGenerator(prefix string) *UUIDGenerator {
	return &UUIDGenerator{prefix: strings.Trim(prefix, "-")}
}

func (g *UUIDGenerator) NewReference() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	if g.prefix == "" {
		return id
	}
	return g.prefix + "-" + id
}

// IsValid reports whether ref may be sent to the gateway as a tx_ref.
func IsValid(ref string) bool {
	return len(ref) > 0 && len(ref) <= MaxLength && validReference.MatchString(ref)
}
