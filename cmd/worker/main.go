package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/inkbooth/inkbooth/internal/config"
	"github.com/inkbooth/inkbooth/internal/db"
	"github.com/inkbooth/inkbooth/internal/genai"
	"github.com/inkbooth/inkbooth/internal/store/rabbitmq"
	"github.com/inkbooth/inkbooth/internal/studio"
	"github.com/inkbooth/inkbooth/internal/styles"
	"github.com/inkbooth/inkbooth/internal/token"
)

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func main() {
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)

	table, err := styles.Load(cfg.StylesPath, cfg.DefaultStrength, cfg.DefaultSteps)
	if err != nil {
		log.Fatalf("styles: %v", err)
	}

	reg := genai.NewRegistry()
	reg.Register("sdwebui", func() (genai.Generator, error) {
		return genai.NewSDWebUIProvider(cfg.SDWebUIURL), nil
	})
	reg.Register("noop", func() (genai.Generator, error) {
		return genai.NewNoopProvider(), nil
	})
	generator, err := reg.Get(cfg.GenProvider)
	if err != nil {
		log.Fatalf("generator: %v", err)
	}
	var captioner genai.Captioner
	if cp, ok := generator.(genai.Captioner); ok {
		captioner = cp
	}

	// Jobs are pre-charged at enqueue time; the worker never touches token
	// balances, so the analyzer and locker are not needed here.
	tokens := token.NewService(cfg, token.NewRepo(gdb), nil, token.NewMemoryLocker())
	svc := studio.NewService(cfg, studio.NewRepo(gdb), table, generator, captioner, tokens)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	topology := rabbitmq.TopologyFor(cfg.RabbitQueue)
	if err := rabbitmq.DeclareTopology(ch, topology); err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	concurrency := workerConcurrency()

	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("worker started, queue=%s concurrency=%d provider=%s", cfg.RabbitQueue, concurrency, cfg.GenProvider)

	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				var m rabbitmq.JobMessage
				if err := json.Unmarshal(d.Body, &m); err != nil || m.JobID == "" {
					log.Printf("worker=%d bad message: %v", workerID, err)
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				if err := svc.RunJob(ctx, m.JobID); err != nil {
					log.Printf("worker=%d job %s failed attempt=%d cost=%s err=%v", workerID, m.JobID, m.Attempt, time.Since(start), err)
					if delay, retry := rabbitmq.NextRetry(m); retry {
						if perr := rabbitmq.PublishRetryOn(ctx, ch, topology, m, delay); perr != nil {
							log.Printf("worker=%d retry publish job=%s err=%v", workerID, m.JobID, perr)
							_ = d.Nack(false, false)
							continue
						}
						_ = d.Ack(false)
						continue
					}
					// attempts exhausted: dead-letter
					_ = d.Nack(false, false)
					continue
				}
				log.Printf("worker=%d job %s done cost=%s", workerID, m.JobID, time.Since(start))

				if err := d.Ack(false); err != nil {
					log.Printf("worker=%d ack failed job=%s err=%v", workerID, m.JobID, err)
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			log.Printf("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Printf("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			jobs <- d
		}
	}
}
