package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"profitradar/internal/backend"
	"profitradar/internal/config"
	"profitradar/internal/metrics"
	"profitradar/internal/notify"
	"profitradar/internal/reconcile"
	"profitradar/internal/scheduler"
	"profitradar/internal/scraper"
)

const taskWatch = "watch"

func main() {
	task := flag.String("task", scheduler.TaskAll, "task to run: calendar, sales, all or watch")
	upcoming := flag.Bool("upcoming", false, "reconcile every auction from today on instead of only today's")
	watchTask := flag.String("watch-task", scheduler.TaskSales, "task repeated by watch")
	flag.Parse()

	fmt.Println("📡 Profit Radar Scraper")
	fmt.Println("=======================")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := backend.Open(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to open store:", err)
	}
	defer store.Close(context.Background())

	scraperCfg, err := config.LoadScraperConfig(cfg.ScraperConfig)
	if err != nil {
		log.Printf("[WARN] Using default scraper configuration: %v", err)
		scraperCfg = config.DefaultScraperConfig()
	}
	source, err := scraper.New(cfg.FixturesDir, scraperCfg)
	if err != nil {
		log.Fatal("Failed to create scraper source:", err)
	}
	defer source.Close()

	m := metrics.New()
	opts := []reconcile.Option{
		reconcile.WithObserver(m),
		reconcile.WithObserver(notify.LogNotifier{}),
	}
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Printf("[WARN] Telegram notifications disabled: %v", err)
		} else {
			opts = append(opts, reconcile.WithObserver(tg))
		}
	}
	runner := scheduler.NewRunner(reconcile.New(store, opts...), source, m)

	if *task == taskWatch {
		if cfg.ScheduleInterval <= 0 {
			log.Fatal("SCHEDULE_INTERVAL must be positive for watch")
		}
		fmt.Printf("⏱️  Running %s every %s (Ctrl+C to stop)\n", *watchTask, cfg.ScheduleInterval)
		s := scheduler.NewScheduler(ctx, runner, *watchTask, *upcoming, cfg.ScheduleInterval)
		s.Start()
		<-ctx.Done()
		s.Stop()
		fmt.Println("👋 Stopped")
		return
	}

	reports, err := runner.Run(ctx, *task, *upcoming)
	for _, rep := range reports {
		if rep == nil {
			continue
		}
		printReport(rep)
	}
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✅ Done")
}

func printReport(rep *scheduler.Report) {
	fmt.Printf("\n📋 %s (%s %d) run %s\n", rep.Task, rep.Month, rep.Year, rep.RunID)
	switch rep.Task {
	case scheduler.TaskCalendar:
		fmt.Printf("   🗓️  Auctions saved: %d\n", rep.Auctions)
	case scheduler.TaskSales:
		fmt.Printf("   🎯 Auctions selected: %d\n", rep.Selected)
		fmt.Printf("   🔄 Reconciled: %d\n", rep.Reconciled)
		fmt.Printf("   ➕ Lots appended: %d\n", rep.Appended)
		fmt.Printf("   ✏️  Field changes: %d\n", rep.Changes)
		if rep.Failed > 0 {
			fmt.Printf("   ⚠️  Failed: %d\n", rep.Failed)
		}
	}
}
