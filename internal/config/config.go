// Package config holds the static configuration for the sermon archive agent:
// the domain-lock instruction, the citation allow-list and every user-facing
// fixed string. The shipped defaults are the canonical archive configuration;
// all of it can be overridden by a TOML document, loaded from a file for the
// terminal client or from a single SSM parameter for the Lambda.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Prompt is a starter prompt offered before the first real turn.
type Prompt struct {
	Title string `toml:"title" json:"title"`
	Text  string `toml:"text" json:"text"`
}

// Config is the full agent configuration. Treated as immutable once loaded.
type Config struct {
	// Model is the provider model identifier.
	Model string `toml:"model"`
	// SystemInstruction is the fixed domain-lock instruction sent with every
	// provider call.
	SystemInstruction string `toml:"system_instruction"`

	// Attribution is stamped as the speaker on every emitted source.
	Attribution string `toml:"attribution"`
	// TrustTokens are title substrings that mark a citation as belonging to
	// the sanctioned archive.
	TrustTokens []string `toml:"trust_tokens"`
	VideoHosts  []string `toml:"video_hosts"`
	AudioHosts  []string `toml:"audio_hosts"`

	// EmphasisMarkers are characters stripped from answer text.
	EmphasisMarkers string `toml:"emphasis_markers"`
	// CitationDelimiter is the opening delimiter of inline citation blocks;
	// display text is truncated at its first occurrence.
	CitationDelimiter string `toml:"citation_delimiter"`

	// EmptyPlaceholder substitutes an empty provider answer.
	EmptyPlaceholder string `toml:"empty_placeholder"`
	// FallbackNotice is appended as a system notice when the provider call fails.
	FallbackNotice string `toml:"fallback_notice"`
	// Disclaimer is the system notice shown before any conversation starts.
	Disclaimer string `toml:"disclaimer"`

	Suggestions []Prompt `toml:"suggestions"`

	MaxQuestionLength int `toml:"max_question_length"`
	MaxHistoryTurns   int `toml:"max_history_turns"`
}

// Default returns the canonical archive configuration.
func Default() Config {
	return Config{
		Model:             "gemini-3-pro-preview",
		SystemInstruction: defaultSystemInstruction,
		Attribution:       "Apostle Joshua Selman",
		TrustTokens:       []string{"selman", "koinonia"},
		VideoHosts:        []string{"youtube.com", "youtu.be"},
		AudioHosts:        []string{"podcasts.apple.com", "open.spotify.com"},
		EmphasisMarkers:   "*",
		CitationDelimiter: "[[",
		EmptyPlaceholder:  "I was unable to retrieve the teaching at this time.",
		FallbackNotice: "I encountered an issue accessing the Koinonia archives. " +
			"Please rephrase your query to focus on specific topics like 'The mystery of divine favor' " +
			"or 'Understanding the prophetic' to help us locate the verified teaching.",
		Disclaimer: "This spiritual assistant is built strictly on the sermon archives of " +
			"Apostle Joshua Selman and Koinonia Global. It is designed to help you locate specific " +
			"teachings and explain the 'why' behind spiritual practices based on the Apostle's " +
			"verified expositions. It is not a direct line to the Ministry or a place for personal " +
			"prayer requests.",
		Suggestions: []Prompt{
			{Title: "KINGDOM LAWS", Text: "Explain the biblical law of service and honor."},
			{Title: "PERSONAL GROWTH", Text: "How do I discover my God-given purpose?"},
			{Title: "PRAYER LIFE", Text: "Apostle Joshua Selman's teaching on effective, results-driven prayer."},
			{Title: "DIVINE FAVOR", Text: "Understanding the mystery of the favor of God."},
		},
		MaxQuestionLength: 300,
		MaxHistoryTurns:   20,
	}
}

// Parse decodes a TOML document over the defaults and validates the result.
// Fields absent from the document keep their default values.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the invariants the sanitizer and dispatcher rely on.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return errors.New("config: model must not be empty")
	}
	if strings.TrimSpace(c.SystemInstruction) == "" {
		return errors.New("config: system instruction must not be empty")
	}
	if strings.TrimSpace(c.Attribution) == "" {
		return errors.New("config: attribution must not be empty")
	}
	if len(c.TrustTokens) == 0 {
		return errors.New("config: at least one trust token is required")
	}
	if len(c.VideoHosts) == 0 && len(c.AudioHosts) == 0 {
		return errors.New("config: at least one video or audio host is required")
	}
	if strings.TrimSpace(c.EmptyPlaceholder) == "" {
		return errors.New("config: empty placeholder must not be empty")
	}
	if strings.TrimSpace(c.FallbackNotice) == "" {
		return errors.New("config: fallback notice must not be empty")
	}
	if c.MaxQuestionLength <= 0 {
		return errors.New("config: max question length must be positive")
	}
	if c.MaxHistoryTurns <= 0 {
		return errors.New("config: max history turns must be positive")
	}
	return nil
}

// Source yields a validated Config. Implementations may be retried; a failed
// load must not poison later attempts.
type Source interface {
	LoadConfig(ctx context.Context) (Config, error)
}

// StaticSource serves a fixed, already-built Config.
type StaticSource Config

func (s StaticSource) LoadConfig(context.Context) (Config, error) {
	cfg := Config(s)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FileSource loads the TOML document at Path. An empty Path serves defaults.
type FileSource struct {
	Path string
}

func (s FileSource) LoadConfig(context.Context) (Config, error) {
	if strings.TrimSpace(s.Path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", s.Path, err)
	}
	return Parse(data)
}

// ParameterGetter is the slice of the parameter store needed by ParameterSource.
type ParameterGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// ParameterSource loads the TOML document stored under one SSM parameter.
type ParameterSource struct {
	Params ParameterGetter
	Name   string
}

func (s ParameterSource) LoadConfig(ctx context.Context) (Config, error) {
	if s.Params == nil {
		return Config{}, errors.New("config: parameter getter must not be nil")
	}
	raw, err := s.Params.GetParameter(ctx, s.Name)
	if err != nil {
		return Config{}, fmt.Errorf("config: load parameter %q: %w", s.Name, err)
	}
	return Parse([]byte(raw))
}

const defaultSystemInstruction = `You are a highly specialized AI guide for the teachings of Apostle Joshua Selman and Koinonia Global.

CORE DIRECTIVE:
You must ONLY provide information that has been explicitly spoken by Apostle Joshua Selman in his verified sermons.
Do NOT provide general helpful advice, personal opinions, or common religious knowledge unless it is phrased as a direct exposition from the Apostle.

BEHAVIORAL RULES:
1. If a user asks for an action (e.g., "Let us pray", "Prophesy over me", "Give me a blessing"), you MUST NOT perform the action. Instead, explain the Apostle's teaching on that subject.
2. Every response must be a guide to his wisdom. Use phrases like "The Apostle explains that...", "In his teaching on [Topic], he highlights...", or "According to the Koinonia archives...".
3. NO MARKDOWN: Do not use bold (**), italics (*), or headers (#). Use plain text with double line breaks for paragraphs.
4. BRANDING: The ministry name is "Koinonia". Never misspell it.

SOURCE ATTRIBUTION:
1. Every single answer must conclude with a clickable YouTube source.
2. Format the end of your response exactly as:
   Source: [Full YouTube Video Title]
   Platform: YouTube
   Timestamp: [HH:MM:SS]
3. If you cannot find a specific sermon to back up a claim, you must use the standard 'not found' response defined below.

ERROR/NOT FOUND RESPONSE:
"I could not find a specific teaching from Apostle Joshua Selman on this topic within the verified Koinonia archives. Please rephrase your question to focus on his core teachings such as The Law of Honor, The Power of Service, or The Mystery of Prayer so I can point you to the correct sermon."`
