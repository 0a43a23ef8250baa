package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todo-manager/backend/internal/cache"
	"todo-manager/backend/internal/config"
	"todo-manager/backend/internal/database"
	"todo-manager/backend/internal/handlers"
	"todo-manager/backend/internal/middleware"
	"todo-manager/backend/internal/monitoring"
	"todo-manager/backend/internal/notify"
	"todo-manager/backend/internal/recurrence"
	"todo-manager/backend/internal/scheduler"
	"todo-manager/backend/internal/services"
	"todo-manager/backend/internal/worker"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system environment")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	listCache := cache.NewWithClient(redisClient)

	engine := recurrence.NewEngine()

	authService := services.NewAuthService()
	registerService := services.NewRegisterService()
	userService := services.NewUserService()
	projectService := services.NewProjectService()
	sectionService := services.NewSectionService()
	taskService := services.NewTaskService(engine, listCache)
	tagService := services.NewTagService()
	commentService := services.NewCommentService()
	adminPolicy := services.NewAdminPolicy(taskService, projectService)
	dashboardService := services.NewDashboardService(listCache)

	queue := worker.NewQueue(redisClient)
	digestService := services.NewDigestService(queue, cfg.Digest.AppURL)

	notifier := notify.NewBrevoClient(notify.BrevoConfig{
		APIKey:      cfg.Email.BrevoAPIKey,
		SenderName:  cfg.Email.SenderName,
		SenderEmail: cfg.Email.SenderEmail,
	})

	jobWorker := worker.New(worker.Config{
		RedisClient:  redisClient,
		PollInterval: cfg.Worker.PollInterval,
	})
	jobWorker.RegisterHandler(worker.JobTypeDigestEmail, func(ctx context.Context, job *worker.Job) error {
		var payload services.DigestEmailPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return err
		}
		return notifier.Send(ctx, notify.Email{
			To:      payload.Email,
			ToName:  payload.Name,
			Subject: payload.Subject,
			HTML:    payload.HTML,
		})
	})
	jobWorker.Start(cfg.Worker.Concurrency)
	defer jobWorker.Stop()

	digestLoc, err := time.LoadLocation(cfg.Digest.Timezone)
	if err != nil {
		log.Printf("invalid digest timezone %q, using UTC", cfg.Digest.Timezone)
		digestLoc = time.UTC
	}
	sched := scheduler.New(digestLoc)
	if _, err := sched.ScheduleDaily(cfg.Digest.Time, func() {
		sent, errs := digestService.DispatchAll(context.Background(), db)
		log.Printf("daily digest: queued %d, failed %d", sent, len(errs))
		for _, err := range errs {
			log.Printf("daily digest: %v", err)
		}
	}); err != nil {
		log.Fatalf("failed to schedule daily digest: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	monitor := monitoring.New()
	monitor.RegisterCheck("database", func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
	monitor.RegisterCheck("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimit)
		defer rateLimiter.Stop()
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		DB:        db,
		Monitor:   monitor,
		RateLimit: rateLimiter,
		Auth:      authService,
		Register:  registerService,
		Users:     userService,
		Projects:  projectService,
		Sections:  sectionService,
		Tasks:     taskService,
		Tags:      tagService,
		Comments:  commentService,
		Digest:    digestService,
		Admin:     adminPolicy,
		Stats:     dashboardService,
	})

	srv := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Printf("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
}
