package main

import (
	"context"
	"log"
	"strings"

	"github.com/inkbooth/inkbooth/internal/config"
	"github.com/inkbooth/inkbooth/internal/db"
	"github.com/inkbooth/inkbooth/internal/face"
	"github.com/inkbooth/inkbooth/internal/genai"
	"github.com/inkbooth/inkbooth/internal/geoip"
	"github.com/inkbooth/inkbooth/internal/httpapi"
	"github.com/inkbooth/inkbooth/internal/store/rabbitmq"
	"github.com/inkbooth/inkbooth/internal/store/redisstore"
	"github.com/inkbooth/inkbooth/internal/studio"
	"github.com/inkbooth/inkbooth/internal/styles"
	"github.com/inkbooth/inkbooth/internal/token"
)

func main() {
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)

	table, err := styles.Load(cfg.StylesPath, cfg.DefaultStrength, cfg.DefaultSteps)
	if err != nil {
		log.Fatalf("styles: %v", err)
	}

	// Generator registry: route by configured provider name.
	reg := genai.NewRegistry()
	reg.Register("sdwebui", func() (genai.Generator, error) {
		return genai.NewSDWebUIProvider(cfg.SDWebUIURL), nil
	})
	reg.Register("noop", func() (genai.Generator, error) {
		return genai.NewNoopProvider(), nil
	})
	generator, err := reg.Get(cfg.GenProvider)
	if err != nil {
		log.Fatalf("generator: %v", err)
	}
	var captioner genai.Captioner
	if cp, ok := generator.(genai.Captioner); ok {
		captioner = cp
	}

	var analyzer face.Analyzer
	switch strings.ToLower(cfg.FaceProvider) {
	case "http":
		analyzer = face.NewHTTPAnalyzer(cfg.FaceBaseURL)
	default:
		analyzer = face.NewNoopAnalyzer()
	}

	var resolver geoip.Resolver
	if cfg.GeoIPDBPath != "" {
		r, err := geoip.NewMaxMindResolver(cfg.GeoIPDBPath)
		if err != nil {
			log.Printf("geoip: %v, falling back to n.a. locations", err)
			resolver = geoip.NewNoopResolver()
		} else {
			resolver = r
			defer r.Close()
		}
	} else {
		resolver = geoip.NewNoopResolver()
	}

	// Fingerprint locks: redis when configured, else in-process.
	var locker token.Locker
	if cfg.RedisAddr != "" {
		store := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := store.Ping(context.Background()); err != nil {
			log.Fatalf("redis: %v", err)
		}
		locker = store
	} else {
		locker = token.NewMemoryLocker()
	}

	tokens := token.NewService(cfg, token.NewRepo(gdb), analyzer, locker)
	st := studio.NewService(cfg, studio.NewRepo(gdb), table, generator, captioner, tokens)

	var rabbit *rabbitmq.Publisher
	if cfg.RabbitURL != "" {
		rabbit, err = rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			log.Printf("rabbit: %v, async generation disabled", err)
			rabbit = nil
		} else {
			defer rabbit.Close()
		}
	}

	r := httpapi.NewRouter(cfg, tokens, st, rabbit, resolver)

	log.Printf("server listening on %s provider=%s styles=%d", cfg.Port, cfg.GenProvider, len(table.Names()))
	if err := r.Run(cfg.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
