package events

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"lukechampine.com/blake3"
)

// CalculateRollingChecksum folds an ordered event batch into the chained
// digest: checksum_n = hash(checksum_{n-1} ++ serialize(events_n)). Any two
// copies that applied the identical ordered event sequence produce identical
// checksums; divergence of this value is the sole desync signal the core
// exposes. Affected player identifiers are sort-normalized so the supplied
// order never influences the digest.
func CalculateRollingChecksum(previous string, batch []Event) (string, error) {
	normalized := make([]Event, 0, len(batch))
	for _, event := range batch {
		normalized = append(normalized, event.Normalized())
	}
	envelope := struct {
		PreviousChecksum string  `json:"previousChecksum"`
		Events           []Event `json:"events"`
	}{
		PreviousChecksum: previous,
		Events:           normalized,
	}
	serialized, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("serialize checksum envelope: %w", err)
	}
	sum := blake3.Sum256(serialized)
	return hex.EncodeToString(sum[:]), nil
}
