package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/sitex/tgtemplates/internal/domain"
	"github.com/sitex/tgtemplates/internal/mirror"
	"github.com/sitex/tgtemplates/internal/shared"
)

// sendtemplate is the out-of-process trigger: it has no live channel to the
// phone, so it resolves the template against the shared mirror and leaves the
// single pending marker for the phone's mailbox to consume.

type triggerConfig struct {
	RedisAddr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: sendtemplate <id-or-name>")
		os.Exit(2)
	}
	idOrName := os.Args[1]

	var cfg triggerConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		panic(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	store := shared.NewRedisStore(rdb, logger)

	payload, err := store.LoadMirror(ctx)
	if err != nil {
		fmt.Printf("Failed: %s\n", err)
		os.Exit(1)
	}

	var codec mirror.Codec
	templates, err := codec.Decode(payload)
	if err != nil {
		logger.Warn("corrupt mirror, treating as empty", "error", err)
	}

	tpl, ok := resolve(templates, idOrName)
	if !ok {
		fmt.Println("Template not found")
		os.Exit(1)
	}

	if err := store.SetPending(ctx, tpl.ID.String()); err != nil {
		fmt.Printf("Failed: %s\n", err)
		os.Exit(1)
	}

	fmt.Printf("Queued %s for sending\n", tpl.Name)
}

func resolve(templates []domain.WidgetTemplate, idOrName string) (domain.WidgetTemplate, bool) {
	if id, err := uuid.Parse(idOrName); err == nil {
		for _, t := range templates {
			if t.ID == id {
				return t, true
			}
		}
		return domain.WidgetTemplate{}, false
	}
	for _, t := range templates {
		if strings.EqualFold(t.Name, idOrName) {
			return t, true
		}
	}
	return domain.WidgetTemplate{}, false
}
