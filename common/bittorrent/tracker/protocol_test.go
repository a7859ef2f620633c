package tracker

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/mhdzumair/PyAsyncTracker/common/bittorrent"
	"github.com/stretchr/testify/assert"
)

func testInfoHashes(t *testing.T, n int) []bittorrent.InfoHash {
	hashes := make([]bittorrent.InfoHash, 0, n)
	for i := 0; i < n; i++ {
		h, err := bittorrent.ParseInfoHash(fmt.Sprintf("%040x", i+1))
		if !assert.NoError(t, err) {
			t.FailNow()
		}
		hashes = append(hashes, h)
	}
	return hashes
}

func TestConnectRequestWireFormat(t *testing.T) {
	req, packet := newConnectRequest()
	assert.Len(t, packet, 16)
	assert.Equal(t, ProtocolID, binary.BigEndian.Uint64(packet[0:8]))
	assert.Equal(t, ActionConnect, binary.BigEndian.Uint32(packet[8:12]))
	assert.Equal(t, req.TransactionID, binary.BigEndian.Uint32(packet[12:16]))
}

func TestParseConnectResponse(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	_ = binary.Write(buf, binary.BigEndian, ConnectResponse{
		Action:        ActionConnect,
		TransactionID: 42,
		ConnectionID:  0xdeadbeef,
	})
	resp, err := parseConnectResponse(buf.Bytes(), 42)
	if assert.NoError(t, err) {
		assert.Equal(t, uint64(0xdeadbeef), resp.ConnectionID)
	}

	_, err = parseConnectResponse(buf.Bytes(), 43)
	assert.Error(t, err)

	_, err = parseConnectResponse(buf.Bytes()[:10], 42)
	assert.Error(t, err)
}

func TestBuildScrapeRequest_Batching(t *testing.T) {
	hashes := testInfoHashes(t, 60)
	remaining := hashes
	var all []bittorrent.InfoHash
	for len(remaining) > 0 {
		packet, included, _, err := buildScrapeRequest(7, remaining)
		if !assert.NoError(t, err) {
			return
		}
		assert.LessOrEqual(t, len(packet), MaxScrapePacketSize)
		assert.Equal(t, 16+20*len(included), len(packet))
		// every included hash appears in the packet in request order
		for i, h := range included {
			assert.Equal(t, h.Bytes(), packet[16+20*i:16+20*(i+1)])
		}
		all = append(all, included...)
		remaining = remaining[len(included):]
	}
	// union across waves is the input set, once each
	assert.Equal(t, hashes, all)
}

func TestBuildScrapeRequest_Header(t *testing.T) {
	hashes := testInfoHashes(t, 1)
	packet, included, transactionID, err := buildScrapeRequest(0x1122334455667788, hashes)
	if !assert.NoError(t, err) {
		return
	}
	assert.Len(t, included, 1)
	assert.Equal(t, uint64(0x1122334455667788), binary.BigEndian.Uint64(packet[0:8]))
	assert.Equal(t, ActionScrape, binary.BigEndian.Uint32(packet[8:12]))
	assert.Equal(t, transactionID, binary.BigEndian.Uint32(packet[12:16]))
}

func scrapeResponseBytes(t *testing.T, transactionID uint32, stats []ScrapeStats) []byte {
	buf := bytes.NewBuffer(nil)
	assert.NoError(t, binary.Write(buf, binary.BigEndian, ScrapeResponseHeader{
		Action:        ActionScrape,
		TransactionID: transactionID,
	}))
	for _, s := range stats {
		assert.NoError(t, binary.Write(buf, binary.BigEndian, s))
	}
	return buf.Bytes()
}

func TestParseScrapeResponse(t *testing.T) {
	data := scrapeResponseBytes(t, 99, []ScrapeStats{
		{Seeders: 1022, Completed: 14920, Leechers: 2},
		{Seeders: 5, Completed: 6, Leechers: 7},
	})
	stats, err := parseScrapeResponse(data, 99, 2)
	if assert.NoError(t, err) {
		assert.Len(t, stats, 2)
		assert.Equal(t, int32(1022), stats[0].Seeders)
		assert.Equal(t, int32(2), stats[0].Leechers)
		assert.Equal(t, int32(14920), stats[0].Completed)
	}
}

func TestParseScrapeResponse_TruncatedTail(t *testing.T) {
	data := scrapeResponseBytes(t, 7, []ScrapeStats{
		{Seeders: 1, Completed: 2, Leechers: 3},
		{Seeders: 4, Completed: 5, Leechers: 6},
	})
	// cut into the last 12-byte block: only complete blocks survive
	stats, err := parseScrapeResponse(data[:len(data)-5], 7, 3)
	if assert.NoError(t, err) {
		assert.Len(t, stats, 1)
		assert.Equal(t, int32(1), stats[0].Seeders)
	}
}

func TestParseScrapeResponse_Mismatches(t *testing.T) {
	data := scrapeResponseBytes(t, 7, []ScrapeStats{{Seeders: 1}})

	_, err := parseScrapeResponse(data, 8, 1)
	assert.Error(t, err)

	data[3] = byte(ActionError)
	_, err = parseScrapeResponse(data, 7, 1)
	assert.Error(t, err)

	_, err = parseScrapeResponse(data[:5], 7, 1)
	assert.Error(t, err)
}
