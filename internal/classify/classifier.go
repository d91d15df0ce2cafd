// Package classify owns the classification pipeline contract: hash, cache
// lookup, model invocation, JSON recovery, normalization, cache write. All
// failure paths converge to a nil record plus a tagged log entry; the
// transcript itself is never logged, only its hash prefix.
package classify

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"reel-monitor-go/internal/cache"
	"reel-monitor-go/internal/extract"
	"reel-monitor-go/internal/types"
)

// Failure classes callers can branch on. Every one of these means "no
// record"; none of them is retried here.
var (
	ErrMissingAPIKey   = errors.New("classify: OPENAI_API_KEY not set")
	ErrEmptyTranscript = errors.New("classify: empty transcript")
	ErrNoJSON          = errors.New("classify: no JSON object in model output")
)

// Invoker is the model-invocation seam; satisfied by *openai.Client.
type Invoker interface {
	Invoke(ctx context.Context, apiKey, userMessage string) (text string, latencySec float64, tokens int, err error)
}

// Classifier composes the pipeline. It carries no per-call state and is
// safe for concurrent use; the cache store and metrics registry own their
// own locks.
type Classifier struct {
	llm   Invoker
	cache *cache.Store
	log   *logrus.Entry
}

func New(llm Invoker, store *cache.Store, log *logrus.Entry) *Classifier {
	return &Classifier{
		llm:   llm,
		cache: store,
		log:   log.WithField("component", "classify"),
	}
}

// Classify runs one idempotent classification. The same transcript content
// always yields the same taxonomy fields and scores, served from the cache
// after the first call; only username, url and (on old entries) analyzed_at
// are re-stamped per caller.
//
// A nil record means unrecoverable failure; a non-nil record guarantees
// schema validity, not high confidence.
func (c *Classifier) Classify(ctx context.Context, username, transcript, url string) (*types.Analysis, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		c.log.WithField("error_tag", "missing_api_key").Error("OPENAI_API_KEY not set")
		return nil, ErrMissingAPIKey
	}

	trimmed := strings.TrimSpace(transcript)
	if trimmed == "" {
		c.log.WithFields(logrus.Fields{
			"error_tag": "empty_transcript",
			"user":      username,
		}).Warn("nothing to classify")
		return nil, ErrEmptyTranscript
	}

	hash := Hash(trimmed)
	log := c.log.WithFields(logrus.Fields{
		"user": username,
		"hash": hash[:12],
	})

	entries := c.cache.Load()
	if entry, ok := entries[hash]; ok {
		if entry.AnalyzedAt == "" {
			entry.AnalyzedAt = nowUTC()
		}
		log.Info("cache hit")
		return &types.Analysis{Username: username, URL: url, CacheEntry: entry}, nil
	}

	log.WithField("chars", len(trimmed)).Info("classify start")

	userMessage, truncated := buildUserMessage(username, url, trimmed)
	if truncated {
		log.Info("transcript truncated")
	}

	raw, latency, tokens, err := c.llm.Invoke(ctx, apiKey, userMessage)
	if err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"error_tag": "api_failed",
			"latency_s": latency,
		}).Error("model invocation failed")
		return nil, err
	}

	obj, ok := extract.FromText(raw)
	if !ok {
		log.WithField("error_tag", "invalid_json_structure").Error("no JSON object recoverable from model output")
		return nil, ErrNoJSON
	}

	entry := Normalize(obj)
	entry.AnalyzedAt = nowUTC()
	entry.LatencySeconds = &latency

	// The cache stores content-derived fields only; caller context never
	// crosses transcripts.
	entries[hash] = entry
	c.cache.Save(entries)

	log.WithFields(logrus.Fields{
		"type":       entry.ContentType,
		"confidence": entry.ConfidenceScore,
		"latency_s":  latency,
		"tokens":     tokens,
	}).Info("classify done")

	return &types.Analysis{Username: username, URL: url, CacheEntry: entry}, nil
}

func nowUTC() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}
