// Package password hashes and verifies user passwords with argon2id.
//
// Digests use the PHC string format,
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
//
// so the work factor travels with each stored hash and can be raised without
// invalidating existing accounts.
package password

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/sentinelauth/internal/cryptox"
	"golang.org/x/crypto/argon2"
)

const algorithmID = "argon2id"

// Upper bounds on the cost a digest may ask for. A stored digest above them
// is treated as malformed rather than evaluated.
const (
	maxMemoryKiB = 4 * 1024 * 1024
	maxTime      = 64
)

// Params is the argon2id work factor.
type Params struct {
	Time       uint32
	MemoryKiB  uint32
	Threads    uint8
	SaltLength uint32
	KeyLength  uint32
}

// DefaultParams is the argon2id cost used when nothing else is configured.
var DefaultParams = Params{Time: 1, MemoryKiB: 64 * 1024, Threads: 4, SaltLength: 16, KeyLength: 32}

// Hasher produces and checks argon2id digests. It is safe for concurrent use.
type Hasher struct {
	params Params
}

// NewHasher validates p and returns a Hasher using it for new digests.
func NewHasher(p Params) (*Hasher, error) {
	switch {
	case p.Time < 1:
		return nil, errors.New("argon2 time must be >= 1")
	case p.Threads < 1:
		return nil, errors.New("argon2 threads must be >= 1")
	case p.MemoryKiB < 8*uint32(p.Threads):
		return nil, errors.New("argon2 memory must be >= 8 KiB per thread")
	case p.Time > maxTime || p.MemoryKiB > maxMemoryKiB:
		return nil, fmt.Errorf("argon2 cost above limit (t <= %d, m <= %d KiB)", maxTime, maxMemoryKiB)
	case p.SaltLength < 16:
		return nil, errors.New("argon2 salt length must be >= 16")
	case p.KeyLength < 16:
		return nil, errors.New("argon2 key length must be >= 16")
	}
	return &Hasher{params: p}, nil
}

// Hash returns a salted PHC-encoded digest of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	salt := cryptox.GenerateRandByteArray(int(h.params.SaltLength))
	key := argon2.IDKey([]byte(plaintext), salt, h.params.Time, h.params.MemoryKiB, h.params.Threads, h.params.KeyLength)
	defer cryptox.WipeByteArray(key)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.params.MemoryKiB,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether plaintext matches digest. The key comparison is
// constant time. A digest that cannot be parsed never matches.
func (h *Hasher) Verify(plaintext, digest string) bool {
	d, err := decode(digest)
	if err != nil {
		return false
	}
	candidate := argon2.IDKey([]byte(plaintext), d.salt, d.time, d.memory, d.threads, uint32(len(d.key)))
	defer cryptox.WipeByteArray(candidate)
	return subtle.ConstantTimeCompare(candidate, d.key) == 1
}

// NeedsRehash reports whether digest was produced with weaker parameters
// than the Hasher's current ones.
func (h *Hasher) NeedsRehash(digest string) bool {
	d, err := decode(digest)
	if err != nil {
		return true
	}
	return d.time < h.params.Time ||
		d.memory < h.params.MemoryKiB ||
		d.threads < h.params.Threads ||
		uint32(len(d.key)) != h.params.KeyLength
}

type decoded struct {
	time    uint32
	memory  uint32
	threads uint8
	salt    []byte
	key     []byte
}

func decode(digest string) (*decoded, error) {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return nil, errors.New("not an argon2id digest")
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return nil, errors.New("unsupported argon2 version")
	}

	d := &decoded{}
	for _, kv := range strings.Split(parts[3], ",") {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, errors.New("malformed argon2 parameters")
		}
		switch name {
		case "m":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return nil, err
			}
			d.memory = uint32(v)
		case "t":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return nil, err
			}
			d.time = uint32(v)
		case "p":
			v, err := strconv.ParseUint(value, 10, 8)
			if err != nil {
				return nil, err
			}
			d.threads = uint8(v)
		default:
			return nil, fmt.Errorf("unknown argon2 parameter %q", name)
		}
	}
	if d.time == 0 || d.threads == 0 || d.memory < 8*uint32(d.threads) {
		return nil, errors.New("invalid argon2 parameters")
	}
	if d.time > maxTime || d.memory > maxMemoryKiB {
		return nil, errors.New("argon2 parameters above limit")
	}

	var err error
	if d.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(d.salt) == 0 {
		return nil, errors.New("invalid salt")
	}
	if d.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(d.key) == 0 {
		return nil, errors.New("invalid key")
	}
	return d, nil
}
