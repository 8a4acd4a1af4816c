// Package idhash derives deterministic identifiers from run data.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// digest hashes the pipe-joined textual form of parts.
func digest(parts ...any) [sha256.Size]byte {
	fields := make([]string, len(parts))
	for i, p := range parts {
		fields[i] = fmt.Sprint(p)
	}
	return sha256.Sum256([]byte(strings.Join(fields, "|")))
}

// ComputeTradeID returns hex(SHA256(run_id|seq|bar_index|action)), 64 characters.
func ComputeTradeID(runID string, seq, barIndex int, action string) string {
	sum := digest(runID, seq, barIndex, action)
	return hex.EncodeToString(sum[:])
}

// ComputeRunFingerprint identifies a run configuration independent of its run_id.
// options must cover the engine options, the instrument costs and the strategy
// settings; runs with equal fingerprints then produce identical trade logs.
// Formula: base58(SHA256(strategy_id|symbol|initial_balance|first_bar_ms|last_bar_ms|bar_count|options))
func ComputeRunFingerprint(strategyID, symbol string, initialBalance float64, firstBarMs, lastBarMs int64, barCount int, options string) string {
	sum := digest(strategyID, symbol, initialBalance, firstBarMs, lastBarMs, barCount, options)
	return base58.Encode(sum[:])
}
