// The monitor runs the batch pipeline: ingest scraped posts, classify
// everything pending, persist the analyses and report the batch over
// Telegram. Scraping and speech-to-text happen upstream; this binary picks
// up their output.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"reel-monitor-go/internal/cache"
	"reel-monitor-go/internal/classify"
	"reel-monitor-go/internal/export"
	"reel-monitor-go/internal/logger"
	"reel-monitor-go/internal/metrics"
	"reel-monitor-go/internal/openai"
	"reel-monitor-go/internal/report"
	"reel-monitor-go/internal/store"
	"reel-monitor-go/internal/types"
)

// scrapedItem is the shape the upstream scraper emits per post. Only direct
// videos are ingested; carousels and images are skipped.
type scrapedItem struct {
	Type          string `json:"type"`
	VideoURL      string `json:"videoUrl"`
	OwnerUsername string `json:"ownerUsername"`
	Username      string `json:"username"`
	URL           string `json:"url"`
	Caption       string `json:"caption"`
	LikesCount    int64  `json:"likesCount"`
	Timestamp     string `json:"timestamp"`
	Transcript    string `json:"transcript"`
}

const maxPostsPerProfile = 2

func main() {
	_ = godotenv.Load()

	var (
		dbPath     = flag.String("db", "monitor.db", "path to the posts database")
		ingestPath = flag.String("ingest", "", "JSON file of scraped posts to load before classifying")
		exportPath = flag.String("export", "", "write an xlsx of stored analyses after the run")
		cronSpec   = flag.String("cron", "", "cron schedule; empty runs once and exits")
	)
	flag.Parse()

	log := logger.New()
	log.WithField("service", "reel-monitor").Info("starting monitor")

	posts, err := store.Open(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("failed to open post store")
	}
	defer posts.Close()

	registry := metrics.NewRegistry()
	cacheStore := cache.NewStore(envOr("CACHE_PATH", cache.DefaultPath), log.Entry)
	llm := openai.NewClient(os.Getenv("OPENAI_MODEL"), classify.SystemPrompt, registry, log.Entry)
	classifier := classify.New(llm, cacheStore, log.Entry)
	reporter := report.NewReporter(os.Getenv("TELEGRAM_BOT_TOKEN"), os.Getenv("TELEGRAM_CHAT_ID"), log.Entry)

	run := func() {
		runOnce(log, posts, classifier, reporter, registry, *ingestPath, *exportPath)
	}

	if *cronSpec == "" {
		run()
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(*cronSpec, run); err != nil {
		log.WithError(err).WithField("cron", *cronSpec).Fatal("invalid cron schedule")
	}
	log.WithField("cron", *cronSpec).Info("scheduler started")
	c.Start()
	select {}
}

func runOnce(log *logger.Logger, posts *store.Store, classifier *classify.Classifier,
	reporter *report.Reporter, registry *metrics.Registry, ingestPath, exportPath string) {

	if ingestPath != "" {
		inserted, err := ingest(posts, ingestPath)
		if err != nil {
			log.WithError(err).Error("ingest failed")
		} else {
			log.WithField("posts", inserted).Info("posts ingested")
		}
	}

	pending, err := posts.Pending()
	if err != nil {
		log.WithError(err).Fatal("failed to list pending posts")
	}
	log.WithField("pending", len(pending)).Info("classifying pending posts")

	var batch []types.Analysis
	for _, p := range pending {
		text := p.Transcript
		if text == "" {
			text = p.Caption
		}

		analysis, err := classifier.Classify(context.Background(), p.Username, text, p.URL)
		if err != nil {
			log.WithError(err).WithField("post_id", p.ID).Warn("classification failed, skipping post")
			continue
		}
		if err := posts.SaveAnalysis(p.ID, analysis); err != nil {
			log.WithError(err).WithField("post_id", p.ID).Error("failed to save analysis")
			continue
		}
		batch = append(batch, *analysis)
	}

	stats := registry.Snapshot()
	log.WithFields(logrus.Fields{
		"classified":  len(batch),
		"pending":     len(pending),
		"api_calls":   stats.TotalCalls,
		"avg_latency": stats.AvgLatency,
	}).Info("batch complete")

	if len(batch) > 0 {
		if err := reporter.SendAnalysisReport(batch); err != nil {
			log.WithError(err).Error("report failed")
		}
	}
	_ = reporter.SendStatus(fmt.Sprintf(
		"Monitoramento concluido! %d posts pendentes, %d classificados.", len(pending), len(batch)))

	if exportPath != "" {
		if err := writeExport(posts, exportPath); err != nil {
			log.WithError(err).Error("export failed")
		} else {
			log.WithField("path", exportPath).Info("analyses exported")
		}
	}
}

// ingest loads the scraper output file into the store, keeping at most
// maxPostsPerProfile videos per username.
func ingest(posts *store.Store, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}

	var items []scrapedItem
	if err := json.Unmarshal(data, &items); err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}

	perUser := map[string]int{}
	var toInsert []store.Post
	for _, item := range items {
		if item.Type != "Video" || item.VideoURL == "" {
			continue
		}
		username := item.OwnerUsername
		if username == "" {
			username = item.Username
		}
		if username == "" || item.URL == "" {
			continue
		}
		if perUser[username] >= maxPostsPerProfile {
			continue
		}
		perUser[username]++
		toInsert = append(toInsert, store.Post{
			Username:   username,
			URL:        item.URL,
			Caption:    item.Caption,
			Likes:      item.LikesCount,
			Timestamp:  item.Timestamp,
			MediaURL:   item.VideoURL,
			Transcript: item.Transcript,
		})
	}

	inserted, err := posts.InsertPosts(toInsert)
	if err != nil {
		return len(inserted), err
	}
	return len(inserted), nil
}

func writeExport(posts *store.Store, path string) error {
	analyses, err := posts.Analyses(1000)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return export.Write(f, analyses)
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
