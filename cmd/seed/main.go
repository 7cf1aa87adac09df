// Command seed loads a few sample workflows into an empty database so the
// results page and the send-instructions flow can be tried locally without
// calling a generation API.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"workflow-assist/backend/internal/config"
	"workflow-assist/backend/internal/logging"
	"workflow-assist/backend/internal/repository"
	"workflow-assist/backend/pkg/models"
)

var samples = []models.WorkflowRecord{
	{
		OriginalText: "Every Friday I draft weekly client status reports from my raw project notes.",
		SuggestedSteps: []string{
			"Summarize each client's notes from the week into short bullet points for you to review.",
			"Draft a status paragraph per client in your usual tone that you can edit before sending.",
			"Flag overdue tasks and open questions so you can decide how to raise them.",
			"Suggest next-week priorities for you to confirm with each client.",
		},
	},
	{
		OriginalText: "I triage my support inbox every morning and route tickets to the right teammate.",
		SuggestedSteps: []string{
			"Group new tickets by topic so you can scan them faster.",
			"Propose an owner for each ticket based on past routing for you to approve.",
			"Draft first replies for routine questions that you review before sending.",
			"Highlight urgent or angry messages so you handle them personally.",
		},
	},
	{
		OriginalText:   "I prepare the monthly budget review for my department.",
		SuggestedSteps: []string{},
	},
}

func main() {
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := logging.NewLogger(logging.Options{Level: cfg.Log.Level, Format: "console"})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pool.Close()

	if err := repository.Migrate(ctx, pool); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}
	store := repository.NewPostgresWorkflowStore(pool)

	// Only seed an empty table so reruns do not duplicate the samples.
	existing, err := store.Count(ctx)
	if err != nil {
		log.Fatalf("Failed to count existing workflows: %v", err)
	}
	if existing > 0 {
		logger.Info("Workflows already present, skipping seed", "count", existing)
		return
	}

	for i := range samples {
		record := samples[i]
		if err := store.Create(ctx, &record); err != nil {
			logger.Error("Failed to seed workflow", "error", err)
			continue
		}
		logger.Info("Seeded workflow", "id", record.ID, "steps", len(record.SuggestedSteps))
	}
	logger.Info("Seeding complete!")
}
