package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/openfiscal/estoque-veiculos/internal/nfe"
)

// BatchResult is the unified record table for one processing run plus the
// accumulated extraction errors. A failed document degrades completeness, it
// never aborts the batch.
type BatchResult struct {
	Records []nfe.Record
	Errors  []*nfe.DocumentError
}

// Processor drives the extractor across many documents and classifies every
// resulting record.
type Processor struct {
	extractor  *nfe.Extractor
	classifier *nfe.Classifier
	workers    int
	logger     *zap.Logger
}

// NewProcessor creates a batch processor. workers bounds concurrent document
// extraction; values below 1 mean sequential processing.
func NewProcessor(extractor *nfe.Extractor, classifier *nfe.Classifier, workers int, logger *zap.Logger) *Processor {
	if workers < 1 {
		workers = 1
	}
	return &Processor{
		extractor:  extractor,
		classifier: classifier,
		workers:    workers,
		logger:     logger,
	}
}

type docResult struct {
	records []nfe.LineItem
	errs    []*nfe.DocumentError
}

// Process extracts and classifies every document. Per-document extraction is
// independent, so documents are fanned out to workers; output order still
// follows input order, and item order within a document follows the source.
// Cancellation applies at the per-document boundary.
func (p *Processor) Process(ctx context.Context, paths []string) BatchResult {
	p.logger.Info("Starting batch processing",
		zap.Int("documents", len(paths)),
		zap.Int("workers", p.workers))

	results := make([]docResult, len(paths))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				records, errs := p.extractor.ExtractFile(paths[idx])
				results[idx] = docResult{records: records, errs: errs}
			}
		}()
	}

feed:
	for idx := range paths {
		select {
		case <-ctx.Done():
			p.logger.Warn("Batch processing cancelled", zap.Int("submitted", idx))
			break feed
		case jobs <- idx:
		}
	}
	close(jobs)
	wg.Wait()

	var result BatchResult
	for _, r := range results {
		result.Errors = append(result.Errors, r.errs...)
		for _, item := range r.records {
			direction, advisory := p.classifier.Classify(item.IssuerID, item.RecipientID, item.CFOP)
			category := nfe.CategoryOther
			if item.Vehicle.Chassis != nil && p.extractor.Rules().ValidateChassis(*item.Vehicle.Chassis) {
				category = nfe.CategoryVehicle
			}
			result.Records = append(result.Records, nfe.Record{
				LineItem:  item,
				Direction: direction,
				Advisory:  advisory,
				Category:  category,
			})
		}
	}

	p.logger.Info("Batch processing finished",
		zap.Int("records", len(result.Records)),
		zap.Int("errors", len(result.Errors)))
	for _, err := range result.Errors {
		p.logger.Warn("Extraction error", zap.String("kind", string(err.Kind)), zap.Error(err))
	}
	return result
}
