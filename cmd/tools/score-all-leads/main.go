// cmd/tools/score-all-leads/main.go
//
// Batch sweep: re-scores and re-suggests every live, unconverted lead whose
// score or suggestions are stale. One failure never aborts the sweep; the
// tool reports processed/succeeded/failed counts at the end.
package main

import (
	"context"
	"flag"
	"time"

	"go.uber.org/zap"

	"crm-engine/internal/common/config"
	"crm-engine/internal/common/database"
	"crm-engine/internal/common/genai"
	"crm-engine/internal/common/logger"
	"crm-engine/internal/engine/contextbuilder"
	"crm-engine/internal/engine/scoring"
	"crm-engine/internal/engine/staleness"
	"crm-engine/internal/engine/suggest"
	"crm-engine/internal/models"
	"crm-engine/internal/store"
)

func main() {
	force := flag.Bool("force", false, "score every lead regardless of staleness")
	dryRun := flag.Bool("dry-run", false, "evaluate the staleness gate without calling the AI or writing")
	flag.Parse()

	zapLog := logger.New("info", "console")
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	ctx := context.Background()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres connection failed", zap.Error(err))
	}
	defer pg.Close()
	if err := pg.Ping(ctx); err != nil {
		zapLog.Fatal("postgres ping failed", zap.Error(err))
	}

	st := store.New(pg.DB, log)
	aiClient := genai.New(cfg.AI, log)
	assembler := contextbuilder.New(st, nil, 0, log)
	orchestrator := scoring.New(aiClient, log)
	materializer := suggest.New(st, log)

	leads, err := st.ListScorableLeads(ctx)
	if err != nil {
		zapLog.Fatal("listing leads failed", zap.Error(err))
	}
	zapLog.Info("batch sweep starting",
		zap.Int("leads", len(leads)),
		zap.Bool("force", *force),
		zap.Bool("dryRun", *dryRun),
	)

	delay := time.Duration(cfg.Scoring.BatchDelayMs) * time.Millisecond
	now := time.Now().UTC()

	var processed, succeeded, failed, skipped int
	for i, lead := range leads {
		needsScore := *force || staleness.ShouldRescore(now, lead.LastScoredAt, lead.LastContactAt, cfg.Scoring.RescoreThresholdDays)
		needsSuggest := *force || staleness.ShouldSuggestActions(now, lead.LastSuggestedAt, lead.LastContactAt, cfg.Scoring.SuggestThresholdHours)

		if !needsScore && !needsSuggest {
			skipped++
			continue
		}
		if *dryRun {
			zapLog.Info("would process lead",
				zap.String("leadId", lead.ID),
				zap.Bool("score", needsScore),
				zap.Bool("suggest", needsSuggest),
			)
			skipped++
			continue
		}

		processed++
		if err := processLead(ctx, &lead, needsScore, needsSuggest, assembler, orchestrator, materializer, st); err != nil {
			failed++
			zapLog.Error("lead processing failed",
				zap.String("leadId", lead.ID),
				zap.Error(err),
			)
		} else {
			succeeded++
		}

		// Pacing between leads respects the AI endpoint's rate limits.
		if i < len(leads)-1 {
			time.Sleep(delay)
		}
	}

	zapLog.Info("batch sweep finished",
		zap.Int("processed", processed),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed),
		zap.Int("skipped", skipped),
	)
}

func processLead(ctx context.Context, lead *models.Lead, needsScore, needsSuggest bool, assembler *contextbuilder.Assembler, orchestrator *scoring.Orchestrator, materializer *suggest.Materializer, st *store.Store) error {
	lc, err := assembler.Assemble(ctx, lead.ID)
	if err != nil {
		return err
	}

	if needsScore {
		result, err := orchestrator.ScoreLead(ctx, lc)
		if err != nil {
			return err
		}
		patch := &models.ScorePatch{
			OverallScore:              result.Score,
			PriorityTier:              result.Tier,
			Signals:                   result.Signals,
			PredictedCloseProbability: result.CloseProbability,
			ScoredAt:                  time.Now().UTC(),
		}
		if err := st.ApplyScorePatch(ctx, lead.ID, patch); err != nil {
			return err
		}
	}

	if needsSuggest {
		plan, err := orchestrator.SuggestActions(ctx, lc)
		if err != nil {
			return err
		}
		threads := make([]models.Thread, 0, len(lc.Threads))
		for _, tc := range lc.Threads {
			threads = append(threads, tc.Thread)
		}
		if _, err := materializer.Materialize(ctx, lead.ID, plan, threads, lc.Meetings); err != nil {
			return err
		}
		if err := st.MarkLeadSuggested(ctx, lead.ID, time.Now().UTC()); err != nil {
			return err
		}
	}

	return nil
}
