// Package sanitize turns an untrusted provider response into a display-ready
// result: cleansed answer text plus the deduplicated subset of grounding
// citations that pass channel and trust classification.
package sanitize

import (
	"errors"
	"strings"

	"sermon-agent/internal/domain"
)

// ChannelClass is the resource class a citation URI resolves to.
type ChannelClass int

const (
	ChannelUnclassified ChannelClass = iota
	ChannelVideo
	ChannelAudio
)

// Options configures a Sanitizer. Host patterns and trust tokens are matched
// case-insensitively as substrings, mirroring the archive allow-list.
type Options struct {
	// EmphasisMarkers are the characters stripped unconditionally from answer
	// text. The upstream instruction forbidding them is not reliably honored.
	EmphasisMarkers string
	// OpeningDelimiter, when non-empty and present in the text, truncates the
	// displayed answer at its first occurrence. Citations are never parsed
	// from the truncated segment; they come only from structured metadata.
	OpeningDelimiter string

	VideoHosts  []string
	AudioHosts  []string
	TrustTokens []string

	// Attribution is stamped on every emitted source reference. Provider
	// metadata never overrides it.
	Attribution string
	// EmptyPlaceholder substitutes an empty provider answer.
	EmptyPlaceholder string
}

// Result is the display-ready outcome of sanitizing one provider response.
type Result struct {
	Text    string
	Sources []domain.SourceReference
}

// Sanitizer applies the cleansing and source-filtering pipeline. It is a pure,
// stateless transformer; the same input always yields the same output.
type Sanitizer struct {
	markers     string
	openDelim   string
	videoHosts  []string
	audioHosts  []string
	trustTokens []string
	attribution string
	placeholder string
}

// New validates the options and returns a Sanitizer.
func New(opts Options) (*Sanitizer, error) {
	if strings.TrimSpace(opts.Attribution) == "" {
		return nil, errors.New("sanitize: attribution must not be empty")
	}
	if strings.TrimSpace(opts.EmptyPlaceholder) == "" {
		return nil, errors.New("sanitize: empty-answer placeholder must not be empty")
	}
	if len(opts.TrustTokens) == 0 {
		return nil, errors.New("sanitize: at least one trust token is required")
	}
	if len(opts.VideoHosts) == 0 && len(opts.AudioHosts) == 0 {
		return nil, errors.New("sanitize: at least one video or audio host pattern is required")
	}
	return &Sanitizer{
		markers:     opts.EmphasisMarkers,
		openDelim:   opts.OpeningDelimiter,
		videoHosts:  lowerAll(opts.VideoHosts),
		audioHosts:  lowerAll(opts.AudioHosts),
		trustTokens: lowerAll(opts.TrustTokens),
		attribution: opts.Attribution,
		placeholder: opts.EmptyPlaceholder,
	}, nil
}

// Sanitize cleanses the raw answer text and filters the citation candidates.
// An empty answer is replaced by the placeholder; citations are still
// extracted, since grounding metadata may exist even without text. Zero
// admissible citations is a normal outcome, not an error.
func (s *Sanitizer) Sanitize(text string, citations []domain.Citation) Result {
	cleaned := s.Cleanse(text)
	if cleaned == "" {
		cleaned = s.placeholder
	}

	refs := newOrderedRefs()
	for _, c := range citations {
		if !s.Admissible(c) {
			continue
		}
		refs.add(c.URI, domain.SourceReference{
			Title:   c.Title,
			URI:     c.URI,
			Speaker: s.attribution,
		})
	}

	return Result{Text: cleaned, Sources: refs.list()}
}

// Cleanse strips every emphasis-marker character from the text and truncates
// it at the first opening delimiter, if one is configured and present.
// Cleanse is idempotent.
func (s *Sanitizer) Cleanse(text string) string {
	if s.openDelim != "" {
		if i := strings.Index(text, s.openDelim); i >= 0 {
			text = text[:i]
		}
	}
	if s.markers != "" {
		text = strings.Map(func(r rune) rune {
			if strings.ContainsRune(s.markers, r) {
				return -1
			}
			return r
		}, text)
	}
	return strings.TrimSpace(text)
}

// ClassifyChannel classifies a citation URI as video, audio or unclassified
// by case-insensitive host-pattern matching.
func (s *Sanitizer) ClassifyChannel(uri string) ChannelClass {
	lower := strings.ToLower(uri)
	for _, h := range s.videoHosts {
		if strings.Contains(lower, h) {
			return ChannelVideo
		}
	}
	for _, h := range s.audioHosts {
		if strings.Contains(lower, h) {
			return ChannelAudio
		}
	}
	return ChannelUnclassified
}

// Trusted reports whether the citation title contains at least one trust
// token, case-insensitively.
func (s *Sanitizer) Trusted(title string) bool {
	lower := strings.ToLower(title)
	for _, tok := range s.trustTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// Admissible reports whether a citation may be surfaced to the user: its
// channel must classify as video or audio and its title must be trusted.
// Everything else is dropped silently.
func (s *Sanitizer) Admissible(c domain.Citation) bool {
	if c.URI == "" || c.Title == "" {
		return false
	}
	return s.ClassifyChannel(c.URI) != ChannelUnclassified && s.Trusted(c.Title)
}

// orderedRefs is an add-only mapping from URI to SourceReference that iterates
// in insertion order. On duplicate URIs the first-seen entry wins.
type orderedRefs struct {
	order []string
	byURI map[string]domain.SourceReference
}

func newOrderedRefs() *orderedRefs {
	return &orderedRefs{byURI: make(map[string]domain.SourceReference)}
}

func (o *orderedRefs) add(uri string, ref domain.SourceReference) {
	if _, exists := o.byURI[uri]; exists {
		return
	}
	o.order = append(o.order, uri)
	o.byURI[uri] = ref
}

func (o *orderedRefs) list() []domain.SourceReference {
	out := make([]domain.SourceReference, 0, len(o.order))
	for _, uri := range o.order {
		out = append(out, o.byURI[uri])
	}
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
