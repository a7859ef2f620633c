package util

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/spaolacci/murmur3"
)

const bitsPerByte = 8

// BloomFilter is a fixed-size set sketch keyed by info hash. scraperd uses
// it to remember which hashes have already had a first scrape published, so
// the set survives restarts via Save/Load.
type BloomFilter struct {
	lock sync.RWMutex

	m    uint64
	n    uint64
	k    uint8
	keys []byte
}

// http://pages.cs.wisc.edu/~cao/papers/summary-cache/node8.html
func NewBloomFilter(bits uint64) *BloomFilter {
	return &BloomFilter{
		m:    bits,
		k:    7,
		keys: make([]byte, bits/bitsPerByte+1),
	}
}

func LoadBloomFilter(reader io.Reader) (*BloomFilter, error) {
	header := make([]byte, 17)
	_, err := io.ReadFull(reader, header)
	if err != nil {
		return nil, err
	}
	keys, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	return &BloomFilter{
		m:    binary.BigEndian.Uint64(header[0:8]),
		n:    binary.BigEndian.Uint64(header[8:16]),
		k:    header[16],
		keys: keys,
	}, nil
}

func (f *BloomFilter) Add(infoHash string) {
	f.lock.Lock()
	defer f.lock.Unlock()

	for _, loc := range f.locations(infoHash) {
		f.keys[loc/bitsPerByte] |= 1 << (loc % bitsPerByte)
	}
	f.n++
}

func (f *BloomFilter) Exists(infoHash string) bool {
	f.lock.RLock()
	defer f.lock.RUnlock()

	for _, loc := range f.locations(infoHash) {
		if f.keys[loc/bitsPerByte]&(1<<(loc%bitsPerByte)) == 0 {
			return false
		}
	}
	return true
}

// Count reports how many keys were added.
func (f *BloomFilter) Count() uint64 {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return f.n
}

func (f *BloomFilter) Save(writer io.Writer) error {
	f.lock.RLock()
	defer f.lock.RUnlock()

	header := make([]byte, 0, 17)
	header = binary.BigEndian.AppendUint64(header, f.m)
	header = binary.BigEndian.AppendUint64(header, f.n)
	header = append(header, f.k)
	_, err := writer.Write(header)
	if err != nil {
		return err
	}
	_, err = writer.Write(f.keys)
	return err
}

func (f *BloomFilter) locations(infoHash string) []uint64 {
	locations := make([]uint64, f.k)
	data := make([]byte, 0, len(infoHash)+1)
	data = append(data, infoHash...)
	for i := uint8(0); i < f.k; i++ {
		locations[i] = murmur3.Sum64(append(data, i)) % f.m
	}
	return locations
}
