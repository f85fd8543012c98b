// Package journal implements the trade journal service: plan creation and
// editing, trade closing, listing, backup import/export and profile upkeep.
// It composes the metrics engine, the image promoter and the store; all
// ownership and role checks live here.
package journal

import (
	"context"
	"encoding/json"
	"math"

	"github.com/rs/zerolog"

	"fxjournal/internal/assets"
	apperrors "fxjournal/internal/errors"
	"fxjournal/internal/logging"
	"fxjournal/internal/metrics"
	"fxjournal/internal/models"
	"fxjournal/internal/store"
)

// Principal is the authenticated caller.
type Principal struct {
	UID  string
	Role models.Role
}

// Service exposes the journal operations. The promoter is optional; without
// one, bucket image handling is disabled and URLs pass through untouched.
type Service struct {
	store    store.TradeStore
	promoter *assets.Promoter
	logger   zerolog.Logger
}

// NewService builds a journal service.
func NewService(s store.TradeStore, promoter *assets.Promoter, logger zerolog.Logger) *Service {
	return &Service{store: s, promoter: promoter, logger: logger}
}

// resolveOwner decides which user partition an operation targets. Admins may
// act on any partition; everyone else only on their own.
func (s *Service) resolveOwner(actor Principal, requested string) (string, error) {
	if actor.UID == "" {
		return "", apperrors.ErrNotAuthenticated
	}
	if requested == "" || requested == actor.UID {
		return actor.UID, nil
	}
	if actor.Role != models.RoleAdmin {
		return "", apperrors.ErrForbidden
	}
	return requested, nil
}

// PlanInput carries the fields of a trade plan as entered by the user.
type PlanInput struct {
	Date         int64                `json:"date"`
	Instrument   string               `json:"instrument"`
	Direction    models.Direction     `json:"direction"`
	Strategy     models.StrategyType  `json:"strategy"`
	Setup        models.StrategySetup `json:"setup"`
	PlannedEntry float64              `json:"plannedEntry"`
	PlannedSL    float64              `json:"plannedSL"`
	PlannedTP    float64              `json:"plannedTP"`
	RiskAmount   float64              `json:"riskAmount"`
	PositionSize float64              `json:"positionSize"`
	EntryReason  string               `json:"entryReason"`

	ZoneCreationTime *int64 `json:"zoneCreationTime,omitempty"`
	EntryTime        *int64 `json:"entryTime,omitempty"`

	PreTradeEmotion string `json:"preTradeEmotion,omitempty"`
	SleepScore      *int   `json:"sleepScore,omitempty"`
	TradeType       string `json:"tradeType,omitempty"`
	MarketCondition string `json:"marketCondition,omitempty"`
	Session         string `json:"session,omitempty"`
	Notes           string `json:"notes,omitempty"`

	BeforeImageURL       string `json:"beforeImageUrl,omitempty"`
	ConfirmationImageURL string `json:"confirmationImageUrl,omitempty"`

	Tags []string `json:"tags,omitempty"`
}

func (in *PlanInput) validate() error {
	switch {
	case in.Date == 0:
		return apperrors.NewValidationError("date", in.Date, "required")
	case in.Instrument == "":
		return apperrors.NewValidationError("instrument", in.Instrument, "required")
	case in.Direction != models.Long && in.Direction != models.Short:
		return apperrors.NewValidationError("direction", string(in.Direction), "must be Long or Short")
	case in.PlannedEntry == 0:
		return apperrors.NewValidationError("plannedEntry", in.PlannedEntry, "required")
	case in.PlannedSL == 0:
		return apperrors.NewValidationError("plannedSL", in.PlannedSL, "required")
	case in.PlannedTP == 0:
		return apperrors.NewValidationError("plannedTP", in.PlannedTP, "required")
	case in.RiskAmount == 0:
		return apperrors.NewValidationError("riskAmount", in.RiskAmount, "required")
	case in.PositionSize == 0:
		return apperrors.NewValidationError("positionSize", in.PositionSize, "required")
	case in.EntryReason == "":
		return apperrors.NewValidationError("entryReason", in.EntryReason, "required")
	}

	switch in.Strategy {
	case models.StrategySupplyDemand:
		if in.Setup.ZoneType == "" || in.Setup.Confirmation == "" {
			return apperrors.NewValidationError("setup", in.Setup, "SupplyDemand requires zoneType and confirmation")
		}
	case models.StrategyICT:
		if in.Setup.PDArray == "" || in.Setup.LiquidityTarget == "" || in.Setup.Confirmation == "" {
			return apperrors.NewValidationError("setup", in.Setup, "ICT requires pdArray, liquidityTarget and confirmation")
		}
	case models.StrategyOther:
		// No conditional fields.
	default:
		return apperrors.NewValidationError("strategy", string(in.Strategy), "unknown strategy")
	}
	if !in.Setup.Conforms(in.Strategy) {
		return apperrors.NewValidationError("setup", in.Setup, "setup fields do not match the chosen strategy")
	}

	if err := validateImageURL("beforeImageUrl", in.BeforeImageURL); err != nil {
		return err
	}
	return validateImageURL("confirmationImageUrl", in.ConfirmationImageURL)
}

// validateImageURL accepts empty values, allowed external chart hosts and
// anything that looks like a bucket URL; other absolute URLs are rejected.
func validateImageURL(field, rawURL string) error {
	if rawURL == "" || assets.IsExternalLink(rawURL) {
		return nil
	}
	// Bucket URLs are validated downstream by the promoter, which only
	// touches keys under its own base URL. Reject obvious garbage here.
	if len(rawURL) > 2048 {
		return apperrors.NewValidationError(field, rawURL[:32], "url too long")
	}
	return nil
}

// CreatePlan validates the draft, derives plannedRR and timeToEntry,
// promotes staged images and persists the new Planned trade. Returns the
// assigned id.
func (s *Service) CreatePlan(ctx context.Context, actor Principal, ownerID string, in PlanInput) (string, error) {
	owner, err := s.resolveOwner(actor, ownerID)
	if err != nil {
		return "", err
	}
	if err := in.validate(); err != nil {
		return "", err
	}

	trade := models.Trade{
		UserID:        owner,
		Date:          in.Date,
		Instrument:    in.Instrument,
		Direction:     in.Direction,
		Status:        models.StatusPlanned,
		Strategy:      in.Strategy,
		StrategySetup: in.Setup,

		PlannedEntry: in.PlannedEntry,
		PlannedSL:    in.PlannedSL,
		PlannedTP:    in.PlannedTP,
		PlannedRR:    metrics.ComputeRR(in.PlannedEntry, in.PlannedSL, in.PlannedTP),
		RiskAmount:   in.RiskAmount,
		PositionSize: in.PositionSize,
		EntryReason:  in.EntryReason,

		ZoneCreationTime: in.ZoneCreationTime,
		EntryTime:        in.EntryTime,
		TimeToEntry:      metrics.ComputeTimeToEntry(in.ZoneCreationTime, in.EntryTime),

		PreTradeEmotion: in.PreTradeEmotion,
		SleepScore:      in.SleepScore,
		TradeType:       in.TradeType,
		MarketCondition: in.MarketCondition,
		Session:         in.Session,
		Notes:           in.Notes,

		BeforeImageURL:       in.BeforeImageURL,
		ConfirmationImageURL: in.ConfirmationImageURL,

		Tags: in.Tags,
	}

	urls, promo, err := s.finalizeImages(ctx, map[string]string{
		"beforeImageUrl":       trade.BeforeImageURL,
		"confirmationImageUrl": trade.ConfirmationImageURL,
	})
	if err != nil {
		return "", err
	}
	trade.BeforeImageURL = urls["beforeImageUrl"]
	trade.ConfirmationImageURL = urls["confirmationImageUrl"]

	id, err := s.store.CreateTrade(ctx, &trade)
	if err != nil {
		if promo != nil {
			promo.Rollback(ctx)
		}
		return "", err
	}

	logger := logging.WithUser(s.logger, owner)
	logger.Info().
		Str("event", "plan_created").
		Str("trade_id", id).
		Str("instrument", trade.Instrument).
		Float64("planned_rr", trade.PlannedRR).
		Msg("Trade plan created")
	return id, nil
}

// EditInput carries a partial plan edit. Nil pointers and empty strings mean
// "leave unchanged"; only supplied fields land in the patch.
type EditInput struct {
	Date         *int64                `json:"date,omitempty"`
	Instrument   *string               `json:"instrument,omitempty"`
	Direction    *models.Direction     `json:"direction,omitempty"`
	Strategy     *models.StrategyType  `json:"strategy,omitempty"`
	Setup        *models.StrategySetup `json:"setup,omitempty"`
	PlannedEntry *float64              `json:"plannedEntry,omitempty"`
	PlannedSL    *float64              `json:"plannedSL,omitempty"`
	PlannedTP    *float64              `json:"plannedTP,omitempty"`
	RiskAmount   *float64              `json:"riskAmount,omitempty"`
	PositionSize *float64              `json:"positionSize,omitempty"`
	EntryReason  *string               `json:"entryReason,omitempty"`

	ZoneCreationTime *int64 `json:"zoneCreationTime,omitempty"`
	EntryTime        *int64 `json:"entryTime,omitempty"`

	PreTradeEmotion *string `json:"preTradeEmotion,omitempty"`
	SleepScore      *int    `json:"sleepScore,omitempty"`
	TradeType       *string `json:"tradeType,omitempty"`
	MarketCondition *string `json:"marketCondition,omitempty"`
	Session         *string `json:"session,omitempty"`
	Notes           *string `json:"notes,omitempty"`

	BeforeImageURL       *string `json:"beforeImageUrl,omitempty"`
	ConfirmationImageURL *string `json:"confirmationImageUrl,omitempty"`

	Tags *[]string `json:"tags,omitempty"`
}

// EditPlan applies a partial edit to an existing trade. Price changes
// recompute plannedRR, timing changes recompute timeToEntry, and replaced
// bucket images are promoted before the write and cleaned up after it.
func (s *Service) EditPlan(ctx context.Context, actor Principal, ownerID, tradeID string, in EditInput) error {
	owner, err := s.resolveOwner(actor, ownerID)
	if err != nil {
		return err
	}

	current, err := s.store.GetTrade(ctx, owner, tradeID)
	if err != nil {
		return err
	}
	if current == nil {
		return apperrors.NewNotFoundError("trade", tradeID)
	}

	patch := store.Patch{}
	if in.Date != nil {
		patch["date"] = *in.Date
	}
	if in.Instrument != nil {
		if *in.Instrument == "" {
			return apperrors.NewValidationError("instrument", "", "required")
		}
		patch["instrument"] = *in.Instrument
	}
	if in.Direction != nil {
		patch["direction"] = string(*in.Direction)
	}
	if in.Strategy != nil || in.Setup != nil {
		strategy := current.Strategy
		if in.Strategy != nil {
			strategy = *in.Strategy
		}
		setup := current.StrategySetup
		if in.Setup != nil {
			setup = *in.Setup
		}
		if !setup.Conforms(strategy) {
			return apperrors.NewValidationError("setup", setup, "setup fields do not match the chosen strategy")
		}
		patch["strategy"] = string(strategy)
		patch["zoneType"] = setup.ZoneType
		patch["confirmation"] = setup.Confirmation
		patch["pdArray"] = setup.PDArray
		patch["liquidityTarget"] = setup.LiquidityTarget
	}

	entry, sl, tp := current.PlannedEntry, current.PlannedSL, current.PlannedTP
	priceChanged := false
	if in.PlannedEntry != nil {
		entry = *in.PlannedEntry
		patch["plannedEntry"] = entry
		priceChanged = true
	}
	if in.PlannedSL != nil {
		sl = *in.PlannedSL
		patch["plannedSL"] = sl
		priceChanged = true
	}
	if in.PlannedTP != nil {
		tp = *in.PlannedTP
		patch["plannedTP"] = tp
		priceChanged = true
	}
	if priceChanged {
		patch["plannedRR"] = metrics.ComputeRR(entry, sl, tp)
	}

	if in.RiskAmount != nil {
		patch["riskAmount"] = *in.RiskAmount
	}
	if in.PositionSize != nil {
		patch["positionSize"] = *in.PositionSize
	}
	if in.EntryReason != nil {
		patch["entryReason"] = *in.EntryReason
	}

	zct, et := current.ZoneCreationTime, current.EntryTime
	timingChanged := false
	if in.ZoneCreationTime != nil {
		zct = in.ZoneCreationTime
		patch["zoneCreationTime"] = *in.ZoneCreationTime
		timingChanged = true
	}
	if in.EntryTime != nil {
		et = in.EntryTime
		patch["entryTime"] = *in.EntryTime
		timingChanged = true
	}
	if timingChanged {
		if tte := metrics.ComputeTimeToEntry(zct, et); tte != nil {
			patch["timeToEntry"] = *tte
		}
	}

	setString := func(field string, v *string) {
		if v != nil {
			patch[field] = *v
		}
	}
	setString("preTradeEmotion", in.PreTradeEmotion)
	setString("tradeType", in.TradeType)
	setString("marketCondition", in.MarketCondition)
	setString("session", in.Session)
	setString("notes", in.Notes)
	if in.SleepScore != nil {
		patch["sleepScore"] = *in.SleepScore
	}
	if in.Tags != nil {
		patch["tags"] = *in.Tags
	}

	imageFields := map[string]string{}
	oldURLs := []string{}
	if in.BeforeImageURL != nil {
		if err := validateImageURL("beforeImageUrl", *in.BeforeImageURL); err != nil {
			return err
		}
		imageFields["beforeImageUrl"] = *in.BeforeImageURL
		oldURLs = append(oldURLs, current.BeforeImageURL)
	}
	if in.ConfirmationImageURL != nil {
		if err := validateImageURL("confirmationImageUrl", *in.ConfirmationImageURL); err != nil {
			return err
		}
		imageFields["confirmationImageUrl"] = *in.ConfirmationImageURL
		oldURLs = append(oldURLs, current.ConfirmationImageURL)
	}

	finalURLs, promo, err := s.finalizeImages(ctx, imageFields)
	if err != nil {
		return err
	}
	newURLs := make([]string, 0, len(finalURLs))
	for field, u := range finalURLs {
		patch[field] = u
		newURLs = append(newURLs, u)
	}

	if err := s.store.UpdateTrade(ctx, owner, tradeID, patch); err != nil {
		if promo != nil {
			promo.Rollback(ctx)
		}
		return err
	}
	if s.promoter != nil && len(oldURLs) > 0 {
		s.promoter.DeleteSuperseded(ctx, oldURLs, newURLs)
	}
	return nil
}

// CloseInput carries the execution results recorded when a trade is closed.
type CloseInput struct {
	ExitPrice             float64        `json:"exitPrice"`
	PnL                   float64        `json:"pnl"`
	ActualRR              *float64       `json:"actualRR,omitempty"`
	Outcome               models.Outcome `json:"outcome"`
	ActualEntry           *float64       `json:"actualEntry,omitempty"`
	ExitReason            string         `json:"exitReason,omitempty"`
	PostTradeEmotion      string         `json:"postTradeEmotion,omitempty"`
	LessonsLearned        string         `json:"lessonsLearned,omitempty"`
	MaxAdverseExcursion   *float64       `json:"maxAdverseExcursion,omitempty"`
	MaxFavorableExcursion *float64       `json:"maxFavorableExcursion,omitempty"`
	ClosedReason          string         `json:"closedReason,omitempty"`
	AfterImageURL         string         `json:"afterImageUrl,omitempty"`
}

func (in *CloseInput) validate() error {
	switch in.Outcome {
	case models.OutcomeWin, models.OutcomeLoss, models.OutcomeBE:
	default:
		return apperrors.NewValidationError("outcome", string(in.Outcome), "must be Win, Loss or BE")
	}
	if in.ExitPrice == 0 {
		return apperrors.NewValidationError("exitPrice", in.ExitPrice, "required")
	}
	return validateImageURL("afterImageUrl", in.AfterImageURL)
}

// CloseTrade records execution results and transitions the trade to Closed.
// Status and all execution fields land in a single patch. When actualRR is
// not supplied it is derived from pnl and the planned risk amount.
func (s *Service) CloseTrade(ctx context.Context, actor Principal, ownerID, tradeID string, in CloseInput) error {
	owner, err := s.resolveOwner(actor, ownerID)
	if err != nil {
		return err
	}
	if err := in.validate(); err != nil {
		return err
	}

	current, err := s.store.GetTrade(ctx, owner, tradeID)
	if err != nil {
		return err
	}
	if current == nil {
		return apperrors.NewNotFoundError("trade", tradeID)
	}

	actualRR := in.ActualRR
	if actualRR == nil && current.RiskAmount != 0 {
		actualRR = models.Float64Ptr(round2(in.PnL / current.RiskAmount))
	}

	patch := store.Patch{
		"status":    string(models.StatusClosed),
		"exitPrice": in.ExitPrice,
		"pnl":       in.PnL,
		"outcome":   string(in.Outcome),
	}
	if actualRR != nil {
		patch["actualRR"] = *actualRR
	}
	if in.ActualEntry != nil {
		patch["actualEntry"] = *in.ActualEntry
	}
	if in.ExitReason != "" {
		patch["exitReason"] = in.ExitReason
	}
	if in.PostTradeEmotion != "" {
		patch["postTradeEmotion"] = in.PostTradeEmotion
	}
	if in.LessonsLearned != "" {
		patch["lessonsLearned"] = in.LessonsLearned
	}
	if in.MaxAdverseExcursion != nil {
		patch["maxAdverseExcursion"] = *in.MaxAdverseExcursion
	}
	if in.MaxFavorableExcursion != nil {
		patch["maxFavorableExcursion"] = *in.MaxFavorableExcursion
	}
	if in.ClosedReason != "" {
		patch["closedReason"] = in.ClosedReason
	}

	var promo *assets.Promotion
	if in.AfterImageURL != "" {
		urls, p, err := s.finalizeImages(ctx, map[string]string{"afterImageUrl": in.AfterImageURL})
		if err != nil {
			return err
		}
		promo = p
		patch["afterImageUrl"] = urls["afterImageUrl"]
	}

	if err := s.store.UpdateTrade(ctx, owner, tradeID, patch); err != nil {
		if promo != nil {
			promo.Rollback(ctx)
		}
		return err
	}
	if s.promoter != nil && in.AfterImageURL != "" && current.AfterImageURL != "" {
		s.promoter.DeleteSuperseded(ctx, []string{current.AfterImageURL}, []string{patch["afterImageUrl"].(string)})
	}

	logging.LogTradeClosed(logging.WithUser(s.logger, owner), tradeID, current.Instrument, string(in.Outcome), in.PnL)
	return nil
}

// ListResult is the outcome of a trade listing. Degraded marks a listing
// that returned empty because the store failed, so callers can tell "no
// data" apart from "fetch failed".
type ListResult struct {
	Trades   []models.Trade `json:"trades"`
	Degraded bool           `json:"degraded,omitempty"`
}

// ListTrades returns the owner's trades, date descending. Store failures
// degrade to an empty result instead of an error; the failure is logged.
func (s *Service) ListTrades(ctx context.Context, actor Principal, ownerID string) (ListResult, error) {
	owner, err := s.resolveOwner(actor, ownerID)
	if err != nil {
		return ListResult{}, err
	}

	trades, err := s.store.ListTrades(ctx, owner)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", owner).Msg("Listing trades failed, serving empty result")
		return ListResult{Trades: []models.Trade{}, Degraded: true}, nil
	}
	return ListResult{Trades: trades}, nil
}

// GetTrade returns one trade, or a NotFoundError.
func (s *Service) GetTrade(ctx context.Context, actor Principal, ownerID, tradeID string) (*models.Trade, error) {
	owner, err := s.resolveOwner(actor, ownerID)
	if err != nil {
		return nil, err
	}
	trade, err := s.store.GetTrade(ctx, owner, tradeID)
	if err != nil {
		return nil, err
	}
	if trade == nil {
		return nil, apperrors.NewNotFoundError("trade", tradeID)
	}
	return trade, nil
}

// Export serializes the owner's full trade list to a JSON backup.
func (s *Service) Export(ctx context.Context, actor Principal, ownerID string) ([]byte, error) {
	owner, err := s.resolveOwner(actor, ownerID)
	if err != nil {
		return nil, err
	}
	trades, err := s.store.ListTrades(ctx, owner)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(trades, "", "  ")
}

// Import restores a JSON backup into the owner's partition. Records missing
// date or instrument are silently skipped; per-record store failures are
// counted and do not abort the batch.
func (s *Service) Import(ctx context.Context, actor Principal, ownerID string, data []byte) (store.BulkResult, error) {
	owner, err := s.resolveOwner(actor, ownerID)
	if err != nil {
		return store.BulkResult{}, err
	}

	var trades []models.Trade
	if err := json.Unmarshal(data, &trades); err != nil {
		return store.BulkResult{}, apperrors.Wrap(apperrors.ErrInvalidBackup, err.Error())
	}

	result, err := s.store.BulkUpsertTrades(ctx, owner, trades)
	if err != nil {
		return store.BulkResult{}, err
	}
	logging.LogImport(s.logger, owner, result.Created, result.Updated, result.Errors)
	return result, nil
}

// UpsertProfile records a sign-in: creates the profile on first contact and
// refreshes profile fields afterwards.
func (s *Service) UpsertProfile(ctx context.Context, profile *models.UserProfile) error {
	if profile.UID == "" {
		return apperrors.NewValidationError("uid", "", "required")
	}
	return s.store.UpsertProfile(ctx, profile)
}

// GetProfile fetches a profile by uid.
func (s *Service) GetProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	p, err := s.store.GetProfile(ctx, uid)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperrors.ErrProfileNotFound
	}
	return p, nil
}

func (s *Service) finalizeImages(ctx context.Context, urls map[string]string) (map[string]string, *assets.Promotion, error) {
	if s.promoter == nil || len(urls) == 0 {
		return urls, nil, nil
	}
	return s.promoter.Finalize(ctx, urls)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
