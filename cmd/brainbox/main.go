package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/danielpatrickdp/brainbox/internal/codec"
	"github.com/danielpatrickdp/brainbox/internal/model"
	"github.com/danielpatrickdp/brainbox/internal/orchestrator"
	"github.com/danielpatrickdp/brainbox/internal/retrieval"
	"github.com/danielpatrickdp/brainbox/internal/runlog"
	"github.com/danielpatrickdp/brainbox/internal/tools"
)

// #region main
func main() {
	indexPath := envOr("BRAINBOX_INDEX_DB", "brainbox_index.db")
	runlogPath := envOr("BRAINBOX_RUNLOG_DB", "brainbox_runs.db")
	grpcAddr := envOr("CODEC_ADDR", "localhost:50051")

	index, err := retrieval.OpenIndex(indexPath)
	if err != nil {
		log.Fatalf("failed to open index: %v", err)
	}
	defer index.Close()

	runs, err := runlog.NewStore(runlogPath)
	if err != nil {
		log.Fatalf("failed to open run log: %v", err)
	}
	defer runs.Close()

	// Connect to the Python inference sidecar
	sidecar, err := codec.New(grpcAddr)
	if err != nil {
		log.Fatalf("failed to connect to sidecar at %s: %v", grpcAddr, err)
	}
	defer sidecar.Close()

	client := model.NewCodecClient(sidecar)

	retriever := retrieval.NewComposite(
		[]retrieval.Retriever{
			index,
			retrieval.NewVectorRetriever(sidecar),
		},
		retrieval.NewEmbeddingReranker(sidecar),
		retrieval.FusionConfig{},
	)

	toolReg := tools.NewRegistry(
		tools.Calculator{},
		tools.Code{},
		tools.NewWebSearch(sidecar, tools.DefaultWebSearchConfig()),
	)

	engine, err := orchestrator.New(retriever, client, toolReg,
		orchestrator.WithRecorder(runs),
	)
	if err != nil {
		log.Fatalf("failed to build engine: %v", err)
	}

	count, err := index.Count()
	if err != nil {
		log.Printf("index count failed: %v", err)
	}

	fmt.Println("Brainbox engine ready.")
	fmt.Printf("  Index: %s (%d docs) | Runs: %s | Codec: %s\n", indexPath, count, runlogPath, grpcAddr)
	fmt.Println("Type a question, 'plan: <question>' for the plan-then-execute pipeline, or 'quit' to exit:")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "quit" || question == "exit" {
			break
		}

		run := engine.Run
		if rest, ok := strings.CutPrefix(question, "plan:"); ok {
			question = strings.TrimSpace(rest)
			run = engine.RunPlanned
		}

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		res, err := run(ctx, question)
		cancel()
		if err != nil {
			log.Printf("run error: %v", err)
			continue
		}

		fmt.Printf("\n%s\n", res.Answer)
		fmt.Printf("  [decision=%s", res.FinalDecision)
		if res.Tier != "" {
			fmt.Printf(" tier=%s", res.Tier)
		}
		if res.Confidence != nil {
			fmt.Printf(" support=%.2f coverage=%.2f",
				res.Confidence.RetrievalSupport, res.Confidence.AnswerCoverage)
		}
		fmt.Println("]")
		fmt.Println()
	}
}

// #endregion main

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
