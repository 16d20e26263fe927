package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/NordCoder/Killfeed/internal/repository/kafka"
	"go.uber.org/zap"
)

func main() {
	trigger := flag.String("trigger", "", "publish a check request for this player after the topics are ready")
	flag.Parse()

	brokers := splitList(env("KAFKA_BROKERS", "kafka:9092"))
	topics := splitList(env("KAFKA_TOPICS", "killfeed.match.notified,killfeed.check.request"))
	requestTopic := env("KAFKA_REQUEST_TOPIC", "killfeed.check.request")
	partitions := envInt("KAFKA_PARTITIONS", 1)
	rf := envInt("KAFKA_RF", 1)

	l, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	specs := make([]kafka.TopicSpec, 0, len(topics))
	for _, t := range topics {
		specs = append(specs, kafka.TopicSpec{Name: t, NumPartitions: partitions, ReplicationFactor: rf})
	}
	if err := kafka.EnsureTopics(ctx, brokers, 30*time.Second, l, specs...); err != nil {
		l.Fatal("ensure topics", zap.Strings("topics", topics), zap.Error(err))
	}

	if p := strings.TrimSpace(*trigger); p != "" {
		prod := kafka.NewProducer(brokers, requestTopic).WithLogger(l)
		defer func() { _ = prod.Close() }()
		if err := kafka.NewMatchEventsKafka(nil, prod).PublishCheckRequested(ctx, p); err != nil {
			l.Fatal("publish check request", zap.String("player", p), zap.Error(err))
		}
		l.Info("check requested", zap.String("player", p))
	}
	l.Info("kafka-init ok")
}

func splitList(s string) []string {
	var out []string
	for _, x := range strings.Split(s, ",") {
		if x = strings.TrimSpace(x); x != "" {
			out = append(out, x)
		}
	}
	return out
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, _ := strconv.Atoi(v); n > 0 {
			return n
		}
	}
	return def
}
