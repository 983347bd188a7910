package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/openfiscal/estoque-veiculos/internal/config"
	"github.com/openfiscal/estoque-veiculos/internal/fiscal"
	"github.com/openfiscal/estoque-veiculos/internal/layout"
	"github.com/openfiscal/estoque-veiculos/internal/nfe"
	"github.com/openfiscal/estoque-veiculos/internal/pipeline"
	"github.com/openfiscal/estoque-veiculos/internal/report"
	"github.com/openfiscal/estoque-veiculos/internal/repository"
	"github.com/openfiscal/estoque-veiculos/internal/server"
	"github.com/openfiscal/estoque-veiculos/pkg/database"
	"github.com/openfiscal/estoque-veiculos/pkg/utils"
)

func main() {
	_ = gotenv.Load()

	configPath := "configs/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting vehicle fiscal reconciliation",
		zap.Strings("company_ids", cfg.Company.TaxIDs),
		zap.String("xml_dir", cfg.Input.XMLDir))

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Pipeline failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	startedAt := time.Now()

	paths, err := collectXMLPaths(cfg.Input.XMLDir)
	if err != nil {
		return fmt.Errorf("failed to scan XML directory: %w", err)
	}
	if len(paths) == 0 {
		logger.Warn("No XML documents found", zap.String("xml_dir", cfg.Input.XMLDir))
		return nil
	}

	baseDir := cfg.Input.BaseDir
	if baseDir == "" {
		baseDir = cfg.Input.XMLDir
	}

	rules := nfe.LoadRules(cfg.Rules.ExtractionPath, logger)
	extractor, err := nfe.NewExtractor(rules, baseDir, logger)
	if err != nil {
		return err
	}
	classifier := nfe.NewClassifier(cfg.Company.TaxIDs, logger)
	processor := pipeline.NewProcessor(extractor, classifier, cfg.Batch.Workers, logger)

	batch := processor.Process(context.Background(), paths)
	if len(batch.Records) == 0 {
		logger.Warn("No records extracted, nothing to reconcile")
		return nil
	}

	tables := pipeline.Consolidate(batch.Records, logger)
	lifecycle := pipeline.Reconcile(tables.Inbound, tables.Outbound, logger)
	alerts := pipeline.AuditAlerts(tables, lifecycle, logger)
	validation := pipeline.ValidateFinal(lifecycle, logger)
	if !validation.OK {
		// the report is still generated; validation only flags the run
		logger.Error("Final validation failed, report may be incomplete",
			zap.Strings("issues", validation.Issues))
	}

	quarterly := fiscal.QuarterlyTax(lifecycle, logger)
	monthly := fiscal.MonthlySummary(lifecycle, logger)
	kpis := fiscal.KPIs(lifecycle, logger)

	cols := layout.Load(cfg.Rules.LayoutPath, logger)
	writer := report.NewWriter(cols, logger)
	if err := writer.Write(cfg.Report.OutputPath, report.Data{
		Lifecycle: lifecycle,
		Monthly:   monthly,
		Quarterly: quarterly,
		KPIs:      kpis,
		Alerts:    alerts,
	}); err != nil {
		return err
	}
	logger.Info("Report generated", zap.String("path", cfg.Report.OutputPath))

	logKPIs(logger, kpis)

	var runRepo *repository.RunRepository
	if cfg.Database.Path != "" {
		db, err := database.New(database.Config{
			Path:            cfg.Database.Path,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		}, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(); err != nil {
			return err
		}

		runRepo = repository.NewRunRepository(db, logger)
		if _, err := runRepo.SaveRun(repository.Run{
			StartedAt:      startedAt,
			FinishedAt:     time.Now(),
			CompanyIDs:     cfg.Company.TaxIDs,
			DocumentsTotal: len(paths),
			DocumentsFail:  len(batch.Errors),
			RecordsTotal:   len(batch.Records),
			ValidationOK:   validation.OK,
		}, lifecycle, alerts); err != nil {
			return err
		}
	}

	if cfg.Server.Enabled {
		api := server.New(cfg.Server, server.ResultSet{
			Lifecycle: lifecycle,
			Monthly:   monthly,
			Quarterly: quarterly,
			KPIs:      kpis,
			Alerts:    alerts,
		}, runRepo, logger)
		return api.Run()
	}

	logger.Info("Pipeline finished", zap.Duration("elapsed", time.Since(startedAt)))
	return nil
}

func collectXMLPaths(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".xml") {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

func logKPIs(logger *zap.Logger, kpis fiscal.KPISet) {
	logger.Info("KPIs",
		zap.String("total_vendido", report.FormatCurrency(kpis.TotalSold)),
		zap.String("lucro_bruto", report.FormatCurrency(kpis.GrossProfit)),
		zap.String("icms_debito", report.FormatCurrency(kpis.TaxDebit)),
		zap.String("icms_credito", report.FormatCurrency(kpis.TaxCredit)),
		zap.String("icms_apurado", report.FormatCurrency(kpis.NetTax)),
		zap.String("lucro_liquido", report.FormatCurrency(kpis.NetProfit)),
		zap.String("estoque_atual", report.FormatCurrency(kpis.StockValue)))
}
