package resource

import (
	"encoding/hex"
	"fmt"
	"strings"

	"lukechampine.com/blake3"
)

// HashHex returns the hex-encoded blake3-256 digest of data.
func HashHex(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HalfHashHex returns the first half of HashHex. Used where a shorter but
// still collision-resistant handle is wanted.
func HalfHashHex(data []byte) string {
	h := HashHex(data)
	return h[:len(h)/2]
}

// CombineHashes hashes the concatenation of child hashes, in order.
func CombineHashes(hashes []string) string {
	return HashHex([]byte(strings.Join(hashes, "")))
}

// NodeHash computes the integrity hash of a single node. Resource nodes hash
// to the merkle root of the nested resource, which must be current.
// Timestamps and metadata do not participate.
func NodeHash(n Node) (string, error) {
	if r, ok := n.Resource(); ok {
		return r.MerkleRoot(), nil
	}
	raw, err := marshalContent(n.Content)
	if err != nil {
		return "", fmt.Errorf("hashing node %q: %w", n.ID, err)
	}
	return HashHex(raw), nil
}

// UpdateMerkleRoot recomputes every node hash bottom-up and then the root
// of this resource. Running it twice on unchanged content is a no-op.
func (c *core) UpdateMerkleRoot() error {
	hashes := make([]string, len(c.nodes))
	for i := range c.nodes {
		if r, ok := c.nodes[i].Resource(); ok {
			if err := r.UpdateMerkleRoot(); err != nil {
				return err
			}
		}
		h, err := NodeHash(c.nodes[i])
		if err != nil {
			return err
		}
		c.nodes[i].MerkleHash = h
		hashes[i] = h
	}
	c.merkleRoot = CombineHashes(hashes)
	return nil
}
