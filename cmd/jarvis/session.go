package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jeanpaul/jarvis/internal/config"
	"github.com/jeanpaul/jarvis/internal/conversation"
	"github.com/jeanpaul/jarvis/internal/crawler"
	"github.com/jeanpaul/jarvis/internal/credential"
	"github.com/jeanpaul/jarvis/internal/extract"
	"github.com/jeanpaul/jarvis/internal/knowledge"
	"github.com/jeanpaul/jarvis/internal/memory"
	"github.com/jeanpaul/jarvis/internal/provider"
	"github.com/jeanpaul/jarvis/internal/resolver"
	"github.com/jeanpaul/jarvis/internal/session"
	"github.com/jeanpaul/jarvis/internal/voice"
	"github.com/jeanpaul/jarvis/internal/weather"
)

func runSession(ctx context.Context, cfg *config.Config, logger *slog.Logger) (err error) {
	rotor, err := credential.New(cfg.Cloud.APIKeys)
	if err != nil {
		return fmt.Errorf("cloud credentials: %w (set OPENAI_KEY_1 or cloud.api_keys)", err)
	}
	factory, err := provider.NewFactory(cfg.Cloud.Type, cfg.Cloud.BaseURL, cfg.Cloud.Model, provider.Options{
		MaxTokens: cfg.Cloud.MaxTokens,
	})
	if err != nil {
		return err
	}

	mem, err := memory.Open(cfg.Memory.Backend, cfg.Memory.Path, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, mem.Close())
	}()

	timeout := cfg.Session.RequestTimeout
	offline := knowledge.NewOffline(ctx, knowledge.OfflineOptions{
		Model:     cfg.Offline.Model,
		BaseURL:   cfg.Offline.BaseURL,
		MaxTokens: cfg.Offline.MaxTokens,
		Pull:      cfg.Offline.Pull,
		Timeout:   timeout,
		Logger:    logger,
	})
	if u, ok := offline.State().(knowledge.Unavailable); ok {
		logger.Info("offline model disabled", "reason", u.Reason)
	}

	res := resolver.New(mem, resolver.Sources{
		Offline: offline,
		Cloud:   knowledge.NewCloud(rotor, factory, timeout, logger),
		Web: knowledge.NewWebLookup(mem, knowledge.WebLookupOptions{
			APIURL:     cfg.Wiki.APIURL,
			SummaryLen: cfg.Wiki.SummaryLen,
			Timeout:    timeout,
			Logger:     logger,
		}),
	}, resolver.Options{
		TopK:    cfg.Memory.TopK,
		Apology: cfg.Session.Apology,
		Logger:  logger,
	})
	res.SetLearning(cfg.Session.Learning)

	log := conversation.NewLog(cfg.Session.UserID)
	crawl := crawler.New(crawler.Options{Render: cfg.Crawler.Render, Logger: logger})

	s := session.New(session.Deps{
		Listener: voice.NewPromptListener(os.Stdin, os.Stdout, cfg.Voice.ListenTimeout),
		Speaker: voice.NewConsoleSpeaker(os.Stdout, voice.SpeakerOptions{
			Markdown:   cfg.Voice.Markdown,
			TTSCommand: cfg.Voice.TTSCommand,
			Logger:     logger,
		}),
		Log:      log,
		Memory:   mem,
		Resolver: res,
		Weather:  newWeather(cfg, logger),
		Learner:  session.NewLibrary(crawl, mem, cfg.Session.ArchiveDir, cfg.Crawler.MaxWords, logger),
		Extractor: extract.New(log, mem, extract.Options{
			Subject: cfg.Session.UserID,
			Logger:  logger,
		}),
	}, cfg.Session.ExtractInterval, logger)

	return s.Run(ctx)
}

func newWeather(cfg *config.Config, logger *slog.Logger) *weather.Client {
	return weather.New(weather.Options{
		APIKey:    cfg.Weather.APIKey,
		APIURL:    cfg.Weather.APIURL,
		LocateURL: cfg.Weather.LocateURL,
		Logger:    logger,
	})
}
