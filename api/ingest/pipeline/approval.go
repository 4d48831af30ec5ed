package pipeline

import (
	"context"
	"errors"
	"log"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"RestoLedger/api/ingest/channel"
	"RestoLedger/api/ingest/salesdata"
	"RestoLedger/api/ingest/staging"
)

// Commit outcome statuses.
const (
	OutcomeCommitted = "committed"
	OutcomeSkipped   = "skipped"
	OutcomeConflict  = "conflict"
	OutcomeFailed    = "failed"
)

// CommitOutcome reports what happened to one staged record during a commit
// request. Outcomes are independent; one record failing never rolls back
// another.
type CommitOutcome struct {
	StagedID string                     `json:"staged_id"`
	FileName string                     `json:"file_name,omitempty"`
	Status   string                     `json:"status"`
	RecordID string                     `json:"record_id,omitempty"`
	Message  string                     `json:"message,omitempty"`
	Channels []channel.ChannelBreakdown `json:"channels,omitempty"`
}

// ApprovalGateway moves approved staged records into the permanent store.
// The keyed lock holds the duplicate check and the write together, so two
// concurrent commits of the same team and date cannot both pass the check.
type ApprovalGateway struct {
	Staging  staging.Store
	Sales    salesdata.Repository
	Channels *channel.Registry
	locks    *salesdata.KeyedLocks
}

func NewApprovalGateway(st staging.Store, repo salesdata.Repository, reg *channel.Registry) *ApprovalGateway {
	return &ApprovalGateway{
		Staging:  st,
		Sales:    repo,
		Channels: reg,
		locks:    salesdata.NewKeyedLocks(),
	}
}

// Commit processes each staged ID in order and returns one outcome per ID.
// Only records in approved status commit; replaceExisting turns a duplicate
// conflict into an overwrite of the stored day.
func (g *ApprovalGateway) Commit(ctx context.Context, stagedIDs []string, replaceExisting bool) []CommitOutcome {
	outcomes := make([]CommitOutcome, 0, len(stagedIDs))
	for _, id := range stagedIDs {
		outcomes = append(outcomes, g.commitOne(ctx, id, replaceExisting))
	}
	return outcomes
}

func (g *ApprovalGateway) commitOne(ctx context.Context, stagedID string, replaceExisting bool) CommitOutcome {
	out := CommitOutcome{StagedID: stagedID}

	rec, err := g.Staging.GetStaged(ctx, stagedID)
	if err != nil {
		out.Status = OutcomeFailed
		out.Message = friendlyDBMessage(err)
		return out
	}
	out.FileName = rec.FileName
	if rec.Status != staging.StagedApproved {
		out.Status = OutcomeSkipped
		out.Message = "record is " + rec.Status + ", only approved records commit"
		return out
	}
	if rec.ExtractedData == nil {
		out.Status = OutcomeFailed
		out.Message = "staged record has no extracted data"
		return out
	}

	merged, err := staging.ApplyCorrections(rec.ExtractedData, rec.UserCorrections)
	if err != nil {
		out.Status = OutcomeFailed
		out.Message = err.Error()
		return out
	}
	if merged.Date.IsZero() {
		out.Status = OutcomeFailed
		out.Message = "record has no business date"
		return out
	}

	unlock := g.locks.Lock(merged.TeamID + "|" + merged.DateKey())
	defer unlock()

	existing, err := g.Sales.FindByTeamAndDate(ctx, merged.TeamID, merged.Date)
	if err != nil && !errors.Is(err, salesdata.ErrNotFound) {
		out.Status = OutcomeFailed
		out.Message = friendlyDBMessage(err)
		return out
	}
	if existing != nil && !replaceExisting {
		out.Status = OutcomeConflict
		out.Message = "a sales record already exists for " + merged.DateKey()
		return out
	}

	saved, err := g.saveWithRetry(ctx, merged, replaceExisting)
	if err != nil {
		out.Status = OutcomeFailed
		out.Message = friendlyDBMessage(err)
		return out
	}

	if err := g.Staging.DeleteStaged(ctx, stagedID); err != nil && !errors.Is(err, staging.ErrStagedNotFound) {
		log.Printf("[SALES-COMMIT] committed %s but failed to clear staging row %s: %v", saved.ID, stagedID, err)
	}
	if g.Channels != nil {
		out.Channels = channel.Attribute(saved, g.Channels)
	}
	out.Status = OutcomeCommitted
	out.RecordID = saved.ID
	log.Printf("[SALES-COMMIT] committed %s (%s %s) from staged %s", saved.ID, saved.TeamID, saved.DateKey(), stagedID)
	return out
}

// saveWithRetry retries exactly once when the first attempt fails with a
// transient error. Duplicate conflicts are not transient and surface
// immediately.
func (g *ApprovalGateway) saveWithRetry(ctx context.Context, rec *salesdata.SalesData, replace bool) (*salesdata.SalesData, error) {
	saved, err := g.Sales.Save(ctx, rec, replace)
	if err == nil || errors.Is(err, salesdata.ErrDuplicateEntry) || !isTransient(err) {
		return saved, err
	}
	log.Printf("[SALES-COMMIT] transient save failure for %s %s, retrying once: %v", rec.TeamID, rec.DateKey(), err)
	return g.Sales.Save(ctx, rec, replace)
}

// ErrTransient marks an error as retryable for implementations that are not
// backed by Postgres.
var ErrTransient = errors.New("transient storage failure")

func isTransient(err error) bool {
	if errors.Is(err, ErrTransient) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientPgCode(pgErr.Code)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return transientPgCode(string(pqErr.Code))
	}
	return false
}

func transientPgCode(code string) bool {
	switch code {
	case "40001", "40P01", "57014":
		return true
	}
	return len(code) >= 2 && code[:2] == "08"
}

// friendlyDBMessage maps database errors to messages safe to hand back to a
// reviewer.
func friendlyDBMessage(err error) string {
	var code string
	var pgErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgErr):
		code = pgErr.Code
	case errors.As(err, &pqErr):
		code = string(pqErr.Code)
	default:
		return err.Error()
	}
	switch code {
	case "23505":
		return "a sales record already exists for this team and date"
	case "23503":
		return "the record references a team that does not exist"
	case "23514", "22P02", "22003":
		return "the record contains a value the database rejected"
	default:
		return "a database error occurred while saving the record"
	}
}
