package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/sitex/tgtemplates/internal/domain"
	"github.com/sitex/tgtemplates/internal/watch"
)

// watchConfig is the companion's own tiny config: where the phone's hub
// listens and where to keep the local mirror cache.
type watchConfig struct {
	Env      string        `env:"APP_ENV" env-default:"dev"`
	PhoneURL string        `env:"WATCH_PHONE_URL" env-default:"ws://localhost:8090/ws"`
	BaseDir  string        `env:"WATCH_BASE_DIR" env-default:"./data"`
	Timeout  time.Duration `env:"WATCH_REACHABILITY_TIMEOUT" env-default:"10s"`
}

const usage = `usage: watch <command>

commands:
  list                 print the cached template mirror
  send <id-or-name>    ask the phone to send a template, wait for the result
  follow               stay connected and print every mirror update
`

func main() {
	_ = godotenv.Load()

	var cfg watchConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		panic(err)
	}

	logger := setupLogger(cfg.Env)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cache, err := watch.NewFileCache(cfg.BaseDir, logger)
	if err != nil {
		logger.Error("cache init failed", "error", err)
		os.Exit(1)
	}

	cli := watch.NewClient(cfg.PhoneURL, cache, logger)
	cli.SetReachabilityTimeout(cfg.Timeout)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch os.Args[1] {
	case "list":
		runList(ctx, cli, logger)
	case "send":
		if len(os.Args) < 3 {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		runSend(ctx, cli, os.Args[2], logger)
	case "follow":
		runFollow(ctx, cli, logger)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

// runList prints the local mirror. A brief connect attempt freshens it when
// the phone is reachable; offline the cached state is the whole truth.
func runList(ctx context.Context, cli *watch.Client, logger *slog.Logger) {
	connectCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := cli.Connect(connectCtx); err != nil {
		logger.Debug("phone unreachable, using cached mirror", "error", err)
	} else {
		// Give the replayed context frame a moment to land.
		time.Sleep(500 * time.Millisecond)
	}

	printTemplates(cli.Templates())
}

func runSend(ctx context.Context, cli *watch.Client, idOrName string, logger *slog.Logger) {
	if err := cli.Connect(ctx); err != nil {
		fmt.Println("Failed: phone not reachable")
		os.Exit(1)
	}

	tpl, ok := resolve(cli.Templates(), idOrName)
	if !ok {
		fmt.Println("Template not found")
		os.Exit(1)
	}

	if err := cli.SendTemplate(ctx, tpl.ID); err != nil {
		if errors.Is(err, watch.ErrUnreachable) {
			fmt.Println("Failed: phone not reachable")
		} else {
			fmt.Printf("Failed: %s\n", err)
		}
		os.Exit(1)
	}

	fmt.Printf("Sent %s!\n", tpl.Name)
}

func runFollow(ctx context.Context, cli *watch.Client, logger *slog.Logger) {
	cli.OnTemplates(func(templates []domain.WidgetTemplate) {
		printTemplates(templates)
	})

	if err := cli.Connect(ctx); err != nil {
		logger.Error("connect failed", "error", err)
		os.Exit(1)
	}

	printTemplates(cli.Templates())
	<-ctx.Done()
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

func printTemplates(templates []domain.WidgetTemplate) {
	if len(templates) == 0 {
		fmt.Println("no templates")
		return
	}
	for _, t := range templates {
		target := "no target group"
		if t.TargetGroupName != nil {
			target = *t.TargetGroupName
		}
		fmt.Printf("%s  %-24s -> %s\n", t.ID, t.Name, target)
	}
}

func setupLogger(env string) *slog.Logger {
	level := slog.LevelInfo
	if env == "dev" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
