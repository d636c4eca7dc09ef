// Package model defines the data types shared across the research pipeline:
// normalized documents, requests, LLM-facing results, the pipeline's shared
// state, and the personalization/memory records.
package model

import (
	"fmt"
	"net/url"
	"time"
)

// SourceKind identifies the broad category of upstream a Document came from.
type SourceKind string

const (
	SourceKindNews   SourceKind = "news"
	SourceKindSocial SourceKind = "social"
	SourceKindForum  SourceKind = "forum"
	SourceKindWeb    SourceKind = "web"
)

// Engagement holds upstream-reported interaction counters. Any field may be
// zero when the adapter's source doesn't expose it.
type Engagement struct {
	Likes    int `json:"likes,omitempty"`
	Comments int `json:"comments,omitempty"`
	Shares   int `json:"shares,omitempty"`
	Views    int `json:"views,omitempty"`
}

// Document is the normalized record produced by every Source Adapter.
//
// URL is the identity key used by the coordinators for deduplication; it
// must be a well-formed absolute URL. SourceKind is fixed at construction
// time and never mutated afterward.
type Document struct {
	Title       string
	URL         string
	Content     string
	Summary     string
	SourceKind  SourceKind
	SourceName  string
	Author      string
	PublishedAt *time.Time
	ScrapedAt   time.Time
	Engagement  *Engagement
	Language    string
	Region      string
	ImageURL    string
	VideoURL    string
	Raw         map[string]any
}

// Validate checks the construction invariants: an absolute http(s) URL and
// a non-empty source kind.
func (d *Document) Validate() error {
	if d.URL == "" {
		return fmt.Errorf("document: url is required")
	}
	u, err := url.Parse(d.URL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("document: url %q is not a well-formed absolute http(s) URL", d.URL)
	}
	if d.SourceKind == "" {
		return fmt.Errorf("document: source_kind is required")
	}
	return nil
}

// PublishedOrMin returns PublishedAt, or the zero time if unset, so that
// documents with a missing publish date sort as the oldest when ordering
// descending by recency.
func (d *Document) PublishedOrMin() time.Time {
	if d.PublishedAt == nil {
		return time.Time{}
	}
	return *d.PublishedAt
}
