// Command fetch_klines downloads historical futures klines into the local
// candle archive, optionally exporting them to CSV for external analysis.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"perpPatternBot/config"
	"perpPatternBot/internal/adapters/binanceclient"
	"perpPatternBot/internal/adapters/logger"
	"perpPatternBot/internal/adapters/sqlite"
	"perpPatternBot/internal/utils"
)

func main() {
	symbol := flag.String("symbol", "ETHUSDT", "Futures symbol to fetch")
	interval := flag.String("interval", "5m", "Kline interval")
	days := flag.Int("days", 90, "How many days of history to fetch")
	csvOut := flag.Bool("csv", false, "Also export the candles to a CSV file under data/")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	appLogger, err := logger.NewZapLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()
	ctx := context.Background()

	client, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}

	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer repo.Close()

	end := time.Now()
	start := end.AddDate(0, 0, -*days)
	appLogger.Info(ctx, "Fetching klines", map[string]interface{}{
		"symbol": *symbol, "interval": *interval,
		"start": start.Format(time.RFC3339), "end": end.Format(time.RFC3339),
	})

	candles, err := client.GetKlinesRange(ctx, *symbol, *interval, start, end, 0)
	if err != nil {
		appLogger.Error(ctx, err, "Error fetching klines")
		log.Fatalf("Error fetching klines: %v", err)
	}
	appLogger.Info(ctx, "Fetched klines", map[string]interface{}{"count": len(candles)})

	inserted, err := repo.SaveCandles(ctx, candles)
	if err != nil {
		appLogger.Error(ctx, err, "Error saving candles")
		log.Fatalf("Error saving candles: %v", err)
	}
	appLogger.Info(ctx, "Saved candles to archive", map[string]interface{}{
		"inserted": inserted, "skipped": len(candles) - inserted,
	})

	if *csvOut {
		filename := fmt.Sprintf("data/%s_%s_%s_to_%s.csv",
			*symbol, *interval, start.Format("20060102"), end.Format("20060102"))
		if err := utils.WriteCandlesToCSV(candles, filename); err != nil {
			appLogger.Error(ctx, err, "Error writing CSV")
			log.Fatalf("Error writing CSV: %v", err)
		}
		appLogger.Info(ctx, "Exported candles", map[string]interface{}{"filename": filename})
	}
}
