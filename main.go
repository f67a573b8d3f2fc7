package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/Guillaume6606/sales-market-discovery/internal/api"
	"github.com/Guillaume6606/sales-market-discovery/internal/config"
	"github.com/Guillaume6606/sales-market-discovery/internal/db"
	"github.com/Guillaume6606/sales-market-discovery/internal/engine"
	"github.com/Guillaume6606/sales-market-discovery/internal/logger"
)

var version = "dev"

func main() {
	addrFlag := flag.String("addr", "", "HTTP listen address (overrides SMD_ADDR)")
	flag.Parse()

	logger.Banner(version)

	// .env is optional; real deployments set the environment directly.
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Config", fmt.Sprintf("Failed to load configuration: %v", err))
		os.Exit(1)
	}
	if *addrFlag != "" {
		cfg.Addr = *addrFlag
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("DB", fmt.Sprintf("Failed to open database: %v", err))
		os.Exit(1)
	}
	defer database.Close()

	orc := engine.NewOrchestrator(database, paramsFromConfig(cfg))
	srv := api.NewServer(cfg, database, orc)

	logger.Server(cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, srv.Handler()); err != nil {
		logger.Error("Server", fmt.Sprintf("Failed: %v", err))
		os.Exit(1)
	}
}

// paramsFromConfig maps the loaded configuration onto engine parameters.
func paramsFromConfig(cfg *config.Config) engine.Params {
	p := engine.DefaultParams()
	p.OutlierLowPct = cfg.OutlierLowPct
	p.OutlierHighPct = cfg.OutlierHighPct
	p.HalfLifeDays = cfg.PMNHalfLifeDays
	p.TimeWeightMin = cfg.PMNTimeWeightMin
	p.Liquidity = engine.LiquidityWeights{
		VelocityCap:   cfg.VelocityCap,
		DepthCap:      cfg.DepthCap,
		FreshnessCap:  cfg.FreshnessCap,
		VelocityNorm:  cfg.VelocityNorm,
		DepthNorm:     cfg.DepthNorm,
		FreshnessNorm: cfg.FreshnessNorm,
	}
	p.Fees = make(map[string]engine.Fee, len(cfg.Fees))
	for marketplace, fee := range cfg.Fees {
		p.Fees[marketplace] = engine.Fee{Commission: fee.Commission, Payment: fee.Payment}
	}
	p.BatchWorkers = cfg.BatchWorkers
	p.ProductTimeout = cfg.ProductTimeout()
	return p
}
