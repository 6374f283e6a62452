package arweave

import "crypto/sha256"

const (
	MaxChunkSize = 256 * 1024
	MinChunkSize = 32 * 1024

	noteSize = 32
)

type chunk struct {
	dataHash []byte
	min, max int
}

type merkleNode struct {
	id  []byte
	max int
}

// chunkData splits data the way the network expects. When the tail after a
// full chunk would be smaller than MinChunkSize, the remainder is split
// evenly instead. A trailing zero-length chunk is kept.
func chunkData(data []byte) []chunk {
	var chunks []chunk
	rest := data
	cursor := 0
	for len(rest) >= MaxChunkSize {
		size := MaxChunkSize
		next := len(rest) - MaxChunkSize
		if next > 0 && next < MinChunkSize {
			size = (len(rest) + 1) / 2
		}
		c := rest[:size]
		cursor += len(c)
		chunks = append(chunks, chunk{dataHash: hash(c), min: cursor - len(c), max: cursor})
		rest = rest[size:]
	}
	chunks = append(chunks, chunk{dataHash: hash(rest), min: cursor, max: cursor + len(rest)})
	return chunks
}

// DataRoot returns the merkle root committing to data.
func DataRoot(data []byte) []byte {
	chunks := chunkData(data)
	nodes := make([]merkleNode, 0, len(chunks))
	for _, c := range chunks {
		nodes = append(nodes, merkleNode{
			id:  hash(hash(c.dataHash), hash(note(c.max))),
			max: c.max,
		})
	}
	for len(nodes) > 1 {
		next := make([]merkleNode, 0, (len(nodes)+1)/2)
		for i := 0; i < len(nodes); i += 2 {
			if i+1 == len(nodes) {
				next = append(next, nodes[i])
				continue
			}
			l, r := nodes[i], nodes[i+1]
			next = append(next, merkleNode{
				id:  hash(hash(l.id), hash(r.id), hash(note(l.max))),
				max: r.max,
			})
		}
		nodes = next
	}
	return nodes[0].id
}

// note encodes n as a 32-byte big-endian integer.
func note(n int) []byte {
	b := make([]byte, noteSize)
	for i := noteSize - 1; i >= 0 && n > 0; i-- {
		b[i] = byte(n % 256)
		n /= 256
	}
	return b
}

// hash is SHA-256 over the concatenation of parts.
func hash(parts ...[]byte) []byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}
