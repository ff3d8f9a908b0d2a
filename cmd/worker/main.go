package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portal/internal/config"
	"portal/internal/queue"
	"portal/internal/record"
	"portal/internal/recognizer"
	"portal/internal/store"
)

// Worker consumes comparison jobs, runs the external handwriting
// comparison, and records the verdict.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("migrate failed: %v", err)
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "portal:comparisons")
	}

	records := record.NewRepository(db.Client)
	compare := recognizer.New(cfg.PythonBin, cfg.ModelDir, cfg.ExternalTimeout, cfg.RecognizerSkip)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for comparison jobs...")
	for msg := range messages {
		if msg.Type != "compare" {
			continue
		}

		id := string(msg.Body)
		log.Printf("processing job %s", id)

		job, err := records.GetJob(ctx, id)
		if err != nil {
			log.Printf("fetch job %s failed: %v", id, err)
			continue
		}

		result, err := compare.CompareHandwriting(ctx, job.StudentID)
		if err != nil {
			log.Printf("comparison failed for %s: %v", id, err)
			_ = records.FailJob(ctx, id, err.Error())
			continue
		}
		if !result.Success {
			log.Printf("comparison rejected for %s: %s", id, result.Message)
			_ = records.FailJob(ctx, id, result.Message)
			continue
		}

		verdict := "no match"
		if result.Match {
			verdict = "match"
		}
		_ = records.CompleteJob(ctx, id, result.Similarity, verdict)
		log.Printf("job %s done: %s (similarity %.2f)", id, verdict, result.Similarity)

		time.Sleep(10 * time.Millisecond)
	}

	log.Println("worker stopped")
}
