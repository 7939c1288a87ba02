package frontier

import (
	"crypto/sha512"
	"errors"
	"fmt"
	"math"
	"math/big"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
)

// ApproximateSet is a memory-bounded, append-only membership test for
// normalized URLs. It is a Bloom filter using Kirsch-Mitzenmacher double
// hashing over a single SHA-512 digest split in half, backed by an mmap'd
// temp file so RSS stays flat regardless of how many URLs are added.
//
// False negatives are impossible. False positives occur at rate ~epsilon.
type ApproximateSet struct {
	mu        sync.Mutex
	k         int    // number of hash functions
	size      uint64 // bit array size, in bits
	bits      mmap.MMap
	file      *os.File
	tmpPath   string
	dirty     bool
	count     uint64
	syncEvery uint64
}

// NewApproximateSet creates a Bloom filter sized to hold n items at a
// false-positive rate of epsilon, per spec:
//
//	k = ceil(-log(epsilon) / log(2))
//	m = ceil(-n * ln(epsilon) / (ln(2))^2), rounded up to a whole byte
func NewApproximateSet(n int, epsilon float64) (*ApproximateSet, error) {
	if n <= 0 {
		return nil, errors.New("approximate set: n must be positive")
	}
	if epsilon <= 0 || epsilon >= 1 {
		return nil, errors.New("approximate set: epsilon must be in (0, 1)")
	}

	k := int(math.Ceil(-math.Log(epsilon) / math.Log(2)))
	if k < 1 {
		k = 1
	}
	m := uint64(math.Ceil(-(float64(n) * math.Log(epsilon)) / (math.Log(2) * math.Log(2))))
	if m < 8 {
		m = 8
	}
	numBytes := (m + 7) / 8

	tmpFile, err := os.CreateTemp("", "mercator-visited-*.bloom")
	if err != nil {
		return nil, fmt.Errorf("create bloom temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if err := tmpFile.Truncate(int64(numBytes)); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("truncate bloom temp file: %w", err)
	}

	mapped, err := mmap.MapRegion(tmpFile, int(numBytes), mmap.RDWR, 0, 0)
	if err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("mmap bloom temp file: %w", err)
	}

	return &ApproximateSet{
		k:         k,
		size:      m,
		bits:      mapped,
		file:      tmpFile,
		tmpPath:   tmpPath,
		syncEvery: 4096,
	}, nil
}

// h1h2 splits a SHA-512 digest of s in half, each reduced mod size, giving
// the two seed hashes that determine all k probe positions (Kirsch-
// Mitzenmacher). The digest is deterministic across runs for the same
// input, as the spec requires.
func (a *ApproximateSet) h1h2(s string) (uint64, uint64) {
	sum := sha512.Sum512([]byte(s))
	size := new(big.Int).SetUint64(a.size)

	h1 := new(big.Int).Mod(new(big.Int).SetBytes(sum[:32]), size).Uint64()
	h2 := new(big.Int).Mod(new(big.Int).SetBytes(sum[32:]), size).Uint64()
	return h1, h2
}

// setBit sets bit b in the bit array. Caller must hold mu.
func (a *ApproximateSet) setBit(b uint64) {
	a.bits[b/8] |= 1 << (b % 8)
}

// checkBit reports whether bit b is set. Caller must hold mu.
func (a *ApproximateSet) checkBit(b uint64) bool {
	return a.bits[b/8]&(1<<(b%8)) != 0
}

// Add sets all k bits for s.
func (a *ApproximateSet) Add(s string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.addLocked(s)
}

func (a *ApproximateSet) addLocked(s string) {
	h1, h2 := a.h1h2(s)
	hsh := h1
	for range a.k {
		a.setBit(hsh)
		hsh = (hsh + h2) % a.size
	}
	a.count++
	if a.count >= a.syncEvery {
		_ = a.bits.Flush()
		a.count = 0
	}
	a.dirty = true
}

// Check returns true iff all k bits for s are set. A true result may be a
// false positive at rate ~epsilon; a false result is always correct.
func (a *ApproximateSet) Check(s string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.checkLocked(s)
}

func (a *ApproximateSet) checkLocked(s string) bool {
	h1, h2 := a.h1h2(s)
	hsh := h1
	for range a.k {
		if !a.checkBit(hsh) {
			return false
		}
		hsh = (hsh + h2) % a.size
	}
	return true
}

// CheckAndAdd atomically checks membership and, if absent, adds s. It
// returns true iff s was newly added (i.e. was not already a member).
func (a *ApproximateSet) CheckAndAdd(s string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.checkLocked(s) {
		return false
	}
	a.addLocked(s)
	return true
}

// Close flushes the backing mmap and removes the temp file.
func (a *ApproximateSet) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	if a.dirty {
		if err := a.bits.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("flush bloom mmap: %w", err))
		}
	}
	if err := a.bits.Unmap(); err != nil {
		errs = append(errs, fmt.Errorf("unmap bloom file: %w", err))
	}
	if err := a.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close bloom file: %w", err))
	}
	if err := os.Remove(a.tmpPath); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("remove bloom temp file: %w", err))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
