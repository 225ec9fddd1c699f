// Package release models the update offer handed to the agent by the release
// server: the payload descriptor, the ordered download sources derivable from
// it, and the canonical signature used to detect a materially new offer.
package release

import (
	"fmt"
	"strings"
)

// Source identifies the kind of origin a payload is fetched from. The order
// is part of the persisted-key naming scheme and must not change.
type Source int

const (
	SourceHTTPServer Source = iota
	SourceHTTPSServer
	// SourceHTTPPeer is a local peer on the same network. It is never
	// derived from response URLs; the agent switches to it explicitly.
	SourceHTTPPeer

	NumSources
)

func (s Source) String() string {
	switch s {
	case SourceHTTPServer:
		return "HttpServer"
	case SourceHTTPSServer:
		return "HttpsServer"
	case SourceHTTPPeer:
		return "HttpPeer"
	}
	return "Unknown"
}

// Response is one update offer. It is immutable for the duration of an
// attempt cycle; a new offer replaces it wholesale via SetResponse.
type Response struct {
	PayloadURLs          []string
	PayloadSize          int64
	PayloadHash          string
	MetadataSize         int64
	MetadataSignature    string
	IsDelta              bool
	MaxFailuresPerSource int
	BackoffDisabled      bool
}

// Candidate is one policy-filtered download origin.
type Candidate struct {
	URL  string
	Kind Source
}

// ComputeCandidates filters the response URLs by scheme policy, preserving
// order. Plain-HTTP URLs are dropped unless device policy permits them.
func ComputeCandidates(resp Response, httpAllowed bool) []Candidate {
	var candidates []Candidate
	for _, u := range resp.PayloadURLs {
		switch {
		case hasScheme(u, "https://"):
			candidates = append(candidates, Candidate{URL: u, Kind: SourceHTTPSServer})
		case hasScheme(u, "http://"):
			if !httpAllowed {
				continue
			}
			candidates = append(candidates, Candidate{URL: u, Kind: SourceHTTPServer})
		}
	}
	return candidates
}

func hasScheme(u, scheme string) bool {
	return len(u) >= len(scheme) && strings.EqualFold(u[:len(scheme)], scheme)
}

// ComputeSignature renders the retry-relevant fields of a response, in fixed
// order, into a canonical string. Two responses with equal signatures are
// treated as the same offer even if other fields differ. The candidate list
// is hashed after policy filtering so that a policy flip (e.g. HTTP downloads
// disabled) registers as a new offer on the next check.
func ComputeSignature(candidates []Candidate, resp Response) string {
	var b strings.Builder
	fmt.Fprintf(&b, "NumURLs = %d\n", len(candidates))
	for i, c := range candidates {
		fmt.Fprintf(&b, "Candidate Url%d = %s\n", i, c.URL)
	}
	fmt.Fprintf(&b,
		"Payload Size = %d\n"+
			"Payload Sha256 Hash = %s\n"+
			"Metadata Size = %d\n"+
			"Metadata Signature = %s\n"+
			"Is Delta Payload = %t\n"+
			"Max Failure Count Per Url = %d\n"+
			"Disable Payload Backoff = %t\n",
		resp.PayloadSize,
		resp.PayloadHash,
		resp.MetadataSize,
		resp.MetadataSignature,
		resp.IsDelta,
		resp.MaxFailuresPerSource,
		resp.BackoffDisabled)
	return b.String()
}
