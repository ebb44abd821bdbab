// Package main - операторская утилита для разовой оценки бейджей.
//
// Использование:
//
//	evaluate -student <uuid> [-json]
//
// Утилита собирает контекст ученика из LMS, прогоняет критерии бейджей и
// печатает сохранённые предложения. Удобна для отладки правил и проверки
// кулдаунов без ожидания фонового цикла.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/classpulse/insight-hub/config"
	"github.com/classpulse/insight-hub/internal/application/command"
	"github.com/classpulse/insight-hub/internal/domain/badge"
	"github.com/classpulse/insight-hub/internal/infrastructure/external/lms"
	"github.com/classpulse/insight-hub/internal/infrastructure/persistence/postgres"
)

func main() {
	studentID := flag.String("student", "", "student UUID to evaluate (required)")
	asJSON := flag.Bool("json", false, "print the result as JSON")
	flag.Parse()

	if *studentID == "" {
		fmt.Fprintln(os.Stderr, "usage: evaluate -student <uuid> [-json]")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *studentID, *asJSON); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, studentID string, asJSON bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Утилита пишет результат в stdout, поэтому логи уходят в stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbConn.Close()

	badgeRepo := postgres.NewBadgeRepository(dbConn)

	lmsConfig := lms.DefaultClientConfig(cfg.LMS.BaseURL)
	lmsConfig.APIKey = cfg.LMS.APIKey
	lmsConfig.Timeout = cfg.LMS.RequestTimeout
	lmsConfig.Logger = log
	lmsClient := lms.NewClient(lmsConfig)

	// Без Redis: разовый запуск всегда читает свежие данные из LMS.
	contextProvider := lms.NewContextProvider(lmsClient, badgeRepo, nil, log)

	evaluator := badge.NewEvaluator(badge.DefaultCriteria(), badge.TunedCooldownPolicy(
		cfg.Badge.ProgressCooldownDays,
		cfg.Badge.MasteryCooldownDays,
		cfg.Badge.PersistenceCooldownDays,
	))

	handler := command.NewEvaluateBadgesHandler(contextProvider, badgeRepo, evaluator, nil, log)

	result, err := handler.Handle(ctx, command.EvaluateBadgesCommand{
		StudentID: studentID,
	})
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Printf("student: %s\n", result.StudentID)
	fmt.Printf("evaluated at: %s\n", result.EvaluatedAt.Format("2006-01-02 15:04:05 MST"))
	if len(result.Suggested) == 0 {
		fmt.Printf("no new suggestions (%d duplicates skipped)\n", result.DuplicatesSkipped)
		return nil
	}

	fmt.Printf("suggestions (%d new, %d duplicates skipped):\n", len(result.Suggested), result.DuplicatesSkipped)
	for _, s := range result.Suggested {
		subject := s.Subject
		if subject == "" {
			subject = "-"
		}
		fmt.Printf("  [%s] %s  subject=%s  priority=%s\n", s.SuggestionID, s.BadgeType, subject, s.Priority)
		fmt.Printf("      %s\n", s.Reason)
	}

	return nil
}
