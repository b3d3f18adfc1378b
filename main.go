// main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LilVoxy/wash_dashboard/ETL/cache"
	"github.com/LilVoxy/wash_dashboard/ETL/config"
	"github.com/LilVoxy/wash_dashboard/ETL/pipeline"
	"github.com/LilVoxy/wash_dashboard/ETL/utils"
	"github.com/LilVoxy/wash_dashboard/routes"
	"github.com/LilVoxy/wash_dashboard/websocket"
	"github.com/go-co-op/gocron"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// dashboardRefresher сбрасывает кэш файлов и перерисовывает дашборды клиентов
type dashboardRefresher struct {
	fileCache *cache.FileCache
	wsManager *websocket.Manager
}

func (r dashboardRefresher) Refresh() {
	r.fileCache.Purge()
	r.wsManager.Refresh()
}

// checkStale перечитывает изменившиеся файлы и рассылает обновление клиентам
func (r dashboardRefresher) checkStale() {
	stale := r.fileCache.Stale()
	if len(stale) == 0 {
		return
	}
	for _, path := range stale {
		log.Printf("🔄 Файл %s изменился или появился", path)
		r.fileCache.Invalidate(path)
	}
	r.wsManager.Refresh()
}

func main() {
	configPath := flag.String("config", "", "Путь к YAML-файлу конфигурации")
	addr := flag.String("addr", "", "Адрес HTTP-сервера (перекрывает server.addr)")
	flag.Parse()

	fmt.Println("Запуск сервера дашборда...")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	logger := utils.NewETLLogger(cfg.EnableDetailedLogging, cfg.LogDir)

	fileCache, err := cache.NewFileCache(cfg.CacheSize)
	if err != nil {
		log.Fatalf("❌ Ошибка создания кэша файлов: %v", err)
	}

	p := pipeline.New(cfg, fileCache, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Менеджер WebSocket рендерит дашборд каждому клиенту с его фильтром
	wsManager := websocket.NewManager(p)
	go wsManager.Run(ctx)

	refresher := dashboardRefresher{fileCache: fileCache, wsManager: wsManager}

	// Проверка изменений входных файлов
	scheduler := gocron.NewScheduler(time.UTC)
	if _, err := scheduler.Every(cfg.RefreshInterval).Do(refresher.checkStale); err != nil {
		log.Fatalf("❌ Ошибка при настройке проверки файлов: %v", err)
	}
	scheduler.StartAsync()

	router := mux.NewRouter()
	routes.SetupRoutes(router, routes.NewAPI(p, refresher), wsManager, cfg.Server.StaticDir)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handlers.LoggingHandler(os.Stdout, cors(router)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("✅ Сервер запущен на http://localhost%s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Ошибка запуска сервера: %v", err)
		}
	}()

	// Канал для сигналов завершения
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("⚠️ Получен сигнал завершения, закрываем соединения...")

	scheduler.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ Ошибка при остановке сервера: %v", err)
	}

	log.Println("👋 Сервер остановлен")
}
