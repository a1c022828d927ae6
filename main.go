package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"trade-alert-backend/internal/app"
	"trade-alert-backend/listener"
	"trade-alert-backend/notifier"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func mask(s string) string {
	if len(s) <= 6 {
		return "***"
	}
	return s[:3] + strings.Repeat("*", len(s)-6) + s[len(s)-3:]
}

// loadEnvFile BOM karakterini temizleyerek .env dosyasını yükler
func loadEnvFile(filename string) error {
	content, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	// UTF-16 LE BOM (FF FE): null byte'ları atarak UTF-8'e indir
	if len(content) >= 2 && content[0] == 0xFF && content[1] == 0xFE {
		utf8Content := make([]byte, 0, len(content)/2)
		for i := 2; i < len(content)-1; i += 2 {
			if content[i] != 0x00 {
				utf8Content = append(utf8Content, content[i])
			}
		}
		content = utf8Content
	}

	// UTF-8 BOM (EF BB BF)
	if len(content) >= 3 && content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF {
		content = content[3:]
	}

	env, err := godotenv.UnmarshalBytes(content)
	if err != nil {
		return err
	}
	// mevcut ortam değişkenleri ezilmez
	for k, v := range env {
		if _, ok := os.LookupEnv(k); !ok {
			_ = os.Setenv(k, v)
		}
	}
	return nil
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("💥 Panic yakalandi: %v", r)
		}
	}()

	if err := loadEnvFile(".env"); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("⚠️ .env yükleme hatası: %v", err)
		}
		_ = godotenv.Load("/app/.env")
	} else {
		log.Println("✅ .env dosyası başarıyla yüklendi")
	}

	cfg, err := listener.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	log.Println("🔍 Environment variable kontrolü:")
	log.Println("✅ RPC_WSS_URL:", cfg.RPCWSSURL)
	log.Println("✅ RPC_HTTP_URL:", cfg.RPCHTTPURL)
	log.Println("✅ DISCORD_WEBHOOK_URL:", mask(cfg.WebhookURL))
	if cfg.RoleID != "" {
		log.Println("✅ DISCORD_ROLE_ID:", cfg.RoleID)
	}
	log.Printf("ℹ️ USE_EMBEDS=%t RATE_LIMIT_NOTIFS_PER_MIN=%d DEDUP_TTL=%s", cfg.UseEmbeds, cfg.NotifsPerMinute, cfg.DedupTTL)
	if cfg.Debug {
		log.Println("🔧 DEBUG_MODE: true")
	}

	discord, err := notifier.NewDiscord(notifier.DiscordOptions{
		WebhookURL: cfg.WebhookURL,
		RoleID:     cfg.RoleID,
		UseEmbeds:  cfg.UseEmbeds,
		PerMinute:  cfg.NotifsPerMinute,
		Footer:     "Monad Testnet • nad.fun",
	})
	if err != nil {
		log.Fatalf("❌ Discord webhook kurulamadı: %v", err)
	}

	// Opsiyonel: logları ayrı bir webhook'a da akıt
	if cfg.LogWebhookURL != "" {
		opsHook, err := notifier.NewDiscord(notifier.DiscordOptions{WebhookURL: cfg.LogWebhookURL, PerMinute: 20})
		if err != nil {
			log.Printf("⚠️ LOG_WEBHOOK_URL kullanılamadı: %v", err)
		} else {
			logWriter := notifier.NewWebhookLogWriter(opsHook)
			defer logWriter.Close()
			log.SetOutput(io.MultiWriter(os.Stderr, logWriter))
			log.Println("🧾 Loglar LOG_WEBHOOK_URL'e de gönderiliyor")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wsClient, err := ethclient.DialContext(ctx, cfg.RPCWSSURL)
	if err != nil {
		log.Fatalf("❌ WSS RPC bağlantısı kurulamadı: %v", err)
	}
	defer wsClient.Close()
	httpClient, err := ethclient.DialContext(ctx, cfg.RPCHTTPURL)
	if err != nil {
		log.Fatalf("❌ HTTP RPC bağlantısı kurulamadı: %v", err)
	}
	defer httpClient.Close()
	log.Println("✅ RPC bağlantıları kuruldu")
	if id, err := httpClient.ChainID(ctx); err == nil {
		log.Printf("🌐 ChainID: %s", id.String())
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	stats := listener.NewStats(reg)
	stats.RegisterDispatcher(discord)

	book := listener.NewAddressBookFromConfig(cfg)
	book.LogActiveWallets()

	resolver := listener.NewTokenResolver(listener.NewNadAPI(cfg.APIBase, cfg.APITimeout), cfg.APITimeout, stats)
	resolver.SetDebug(cfg.Debug)
	stats.RegisterCacheSize(resolver.Len)

	liquidity, err := listener.NewLiquidityReader(httpClient)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	liquidity.SetDebug(cfg.Debug)

	pipeline := listener.NewPipeline(listener.PipelineDeps{
		Book:      book,
		Seen:      listener.NewSeenSet(cfg.DedupTTL),
		Tokens:    resolver,
		Liquidity: liquidity,
		Composer:  listener.NewAlertComposer(cfg, book),
		Sender:    discord,
		Stats:     stats,
		Debug:     cfg.Debug,
	})

	router := app.SetupAPI(app.Deps{
		Stats:      stats,
		Tokens:     resolver,
		Dispatcher: discord,
		Book:       book,
		Gatherer:   reg,
	})
	srv := &http.Server{Addr: cfg.APIHost + ":" + cfg.APIPort, Handler: router}
	go func() {
		log.Printf("🌐 HTTP API başlatılıyor: %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("❌ HTTP API hatası: %v", err)
		}
	}()

	log.Println("🚀 Watcher başladı: nad.fun BUY/SELL (Transfer logları, 2 abonelik)")
	listener.NewWatcher(wsClient, httpClient, book, pipeline, stats).Run(ctx)

	log.Println("🛑 Kapanıyor...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
