package main

import (
	config "github.com/NordCoder/Killfeed/internal/config/notifier"
	"github.com/NordCoder/Killfeed/internal/repository/discord"
	"github.com/NordCoder/Killfeed/internal/repository/httpclient"
	"github.com/NordCoder/Killfeed/internal/repository/pubg"
	"go.uber.org/zap"
)

func initUpstream(cfg *config.Config, l *zap.Logger) (*pubg.Client, *discord.Webhook) {
	stats := pubg.New(pubg.Config{
		BaseURL:   cfg.Upstream.BaseURL,
		APIKey:    cfg.Upstream.APIKey,
		Platform:  cfg.Upstream.Platform,
		UserAgent: cfg.Upstream.UserAgent,
		Pacing:    cfg.Upstream.Pacing,
		Attempts:  cfg.Upstream.Attempts,
		CacheTTL:  cfg.Upstream.CacheTTL,
	}, httpclient.New(httpclient.Config{Timeout: cfg.Upstream.Timeout, Component: "pubg"})).WithLogger(l)

	hook := discord.New(discord.Config{
		URL:       cfg.Webhook.URL,
		UserAgent: cfg.Webhook.UserAgent,
	}, httpclient.New(httpclient.Config{Timeout: cfg.Webhook.Timeout, Component: "webhook"})).WithLogger(l)

	return stats, hook
}
