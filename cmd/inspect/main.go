// Command inspect dumps the newest entries of the run log.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/danielpatrickdp/brainbox/internal/runlog"
)

func main() {
	dbPath := flag.String("db", envOr("BRAINBOX_RUNLOG_DB", "brainbox_runs.db"), "run log database path")
	limit := flag.Int("n", 20, "number of runs to show")
	flag.Parse()

	store, err := runlog.NewStore(*dbPath)
	if err != nil {
		log.Fatalf("failed to open run log: %v", err)
	}
	defer store.Close()

	entries, err := store.Recent(context.Background(), *limit)
	if err != nil {
		log.Fatalf("failed to read runs: %v", err)
	}
	if len(entries) == 0 {
		fmt.Println("no runs recorded")
		return
	}

	for _, e := range entries {
		fmt.Printf("%s  %s\n", e.CreatedAt.Format(time.RFC3339), e.RunID)
		fmt.Printf("  Q: %s\n", e.Question)
		fmt.Printf("  A: %s\n", e.Answer)
		fmt.Printf("  decision=%s tier=%s support=%.2f coverage=%.2f steps=%d attempts=%d\n",
			e.FinalDecision, e.Tier, e.RetrievalSupport, e.AnswerCoverage, e.Steps, e.Attempts)

		trail, err := store.AttemptsFor(context.Background(), e.RunID)
		if err != nil {
			log.Printf("failed to read attempts for %s: %v", e.RunID, err)
			continue
		}
		for _, a := range trail {
			fmt.Printf("    #%d %s model=%s temp=%.1f support=%.2f coverage=%.2f\n",
				a.Seq, a.Tier, a.Model, a.Temperature, a.RetrievalSupport, a.AnswerCoverage)
		}
		fmt.Println()
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
