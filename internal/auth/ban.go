// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package auth

import (
	"slices"
	"time"
)

// BanConfig holds configuration for source-address banning.
type BanConfig struct {
	// Threshold is the number of failed attempts that triggers a ban.
	Threshold int

	// Window is the sliding window failures are counted in. Failures
	// older than Window no longer count.
	Window time.Duration

	// Duration is how long a ban lasts.
	Duration time.Duration
}

// DefaultBanConfig returns the defaults: 5 failures in 15 minutes bans the
// address for 15 minutes.
func DefaultBanConfig() BanConfig {
	return BanConfig{
		Threshold: 5,
		Window:    15 * time.Minute,
		Duration:  15 * time.Minute,
	}
}

// BanRecord tracks failed authentication attempts from one source address.
// Failures holds the attempts still inside the window, oldest first.
// BannedUntil is zero unless the threshold was reached.
type BanRecord struct {
	SourceAddress string
	Failures      []time.Time
	BannedUntil   time.Time
}

// FailureCount returns the number of failures inside the window.
func (r *BanRecord) FailureCount() int {
	return len(r.Failures)
}

// IsBanned reports whether the record bans its address at now.
func (r *BanRecord) IsBanned(now time.Time) bool {
	return !r.BannedUntil.IsZero() && now.Before(r.BannedUntil)
}

// prune drops failures older than window.
func (r *BanRecord) prune(now time.Time, window time.Duration) {
	keep := 0
	for keep < len(r.Failures) && now.Sub(r.Failures[keep]) > window {
		keep++
	}
	r.Failures = r.Failures[keep:]
}

// banTable holds ban records. It is not safe for concurrent use; the Gate
// serializes access.
type banTable struct {
	config  BanConfig
	records map[string]*BanRecord
}

func newBanTable(config BanConfig) *banTable {
	return &banTable{
		config:  config,
		records: make(map[string]*BanRecord),
	}
}

// banned reports whether addr is banned at now and the time remaining.
func (t *banTable) banned(addr string, now time.Time) (bool, time.Duration) {
	rec, ok := t.records[addr]
	if !ok || !rec.IsBanned(now) {
		return false, 0
	}
	return true, rec.BannedUntil.Sub(now)
}

// recordFailure counts one failed attempt and reports whether it caused a
// ban. Only failures within the last Window count toward the threshold. An
// expired ban starts the address over.
func (t *banTable) recordFailure(addr string, now time.Time) bool {
	rec, ok := t.records[addr]
	if !ok {
		rec = &BanRecord{SourceAddress: addr}
		t.records[addr] = rec
	}
	if rec.IsBanned(now) {
		return false
	}
	if !rec.BannedUntil.IsZero() {
		rec.BannedUntil = time.Time{}
		rec.Failures = nil
	}

	rec.prune(now, t.config.Window)
	rec.Failures = append(rec.Failures, now)
	if len(rec.Failures) < t.config.Threshold {
		return false
	}

	rec.BannedUntil = now.Add(t.config.Duration)
	return true
}

// clear forgets addr after a successful login.
func (t *banTable) clear(addr string) {
	delete(t.records, addr)
}

// purge removes records whose ban has expired or whose failures fell out of
// the window. It returns the number removed.
func (t *banTable) purge(now time.Time) int {
	count := 0
	for addr, rec := range t.records {
		if rec.IsBanned(now) {
			continue
		}
		expiredBan := !rec.BannedUntil.IsZero()
		rec.prune(now, t.config.Window)
		if expiredBan || len(rec.Failures) == 0 {
			delete(t.records, addr)
			count++
		}
	}
	return count
}

// active returns the number of addresses banned at now.
func (t *banTable) active(now time.Time) int {
	n := 0
	for _, rec := range t.records {
		if rec.IsBanned(now) {
			n++
		}
	}
	return n
}

// snapshot returns a copy of the record for addr.
func (t *banTable) snapshot(addr string) (BanRecord, bool) {
	rec, ok := t.records[addr]
	if !ok {
		return BanRecord{}, false
	}
	cp := *rec
	cp.Failures = slices.Clone(rec.Failures)
	return cp, true
}
