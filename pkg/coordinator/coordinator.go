// Package coordinator owns submission identity and publish state. Every
// submission mutation flows through here: creation builds the job DAG, upload
// completion advances it, publication snapshots staging into the published
// tables and certifies report artifacts.
package coordinator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/internal/repositories/job"
	"github.com/Ramsey-B/fern/internal/repositories/published"
	"github.com/Ramsey-B/fern/internal/repositories/staging"
	"github.com/Ramsey-B/fern/internal/repositories/submission"
	"github.com/Ramsey-B/fern/pkg/artifacts"
	"github.com/Ramsey-B/fern/pkg/crossfile"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/jobgraph"
	"github.com/Ramsey-B/fern/pkg/materializer"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/pubdiff"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Coordinator sequences submission lifecycle operations
type Coordinator struct {
	logger         ectologger.Logger
	db             database.DB
	submissionRepo *submission.Repository
	jobRepo        *job.Repository
	stagingRepo    *staging.Repository
	publishedRepo  *published.Repository
	builder        *jobgraph.Builder
	differ         *pubdiff.Differ
	deriver        *crossfile.Deriver
	store          *artifacts.Store
	emitter        *events.Emitter
	validate       *validator.Validate
}

// NewCoordinator creates a new submission coordinator
func NewCoordinator(
	logger ectologger.Logger,
	db database.DB,
	submissionRepo *submission.Repository,
	jobRepo *job.Repository,
	stagingRepo *staging.Repository,
	publishedRepo *published.Repository,
	builder *jobgraph.Builder,
	differ *pubdiff.Differ,
	deriver *crossfile.Deriver,
	store *artifacts.Store,
	emitter *events.Emitter,
) *Coordinator {
	return &Coordinator{
		logger:         logger,
		db:             db,
		submissionRepo: submissionRepo,
		jobRepo:        jobRepo,
		stagingRepo:    stagingRepo,
		publishedRepo:  publishedRepo,
		builder:        builder,
		differ:         differ,
		deriver:        deriver,
		store:          store,
		emitter:        emitter,
		validate:       validator.New(),
	}
}

// Create validates the reporting window, creates the submission, and builds
// its job DAG. When the request names an existing submission the window is
// revalidated and the existing submission returned for re-upload.
func (c *Coordinator) Create(ctx context.Context, req models.CreateSubmissionRequest, userID string) (*models.Submission, error) {
	ctx, span := tracing.StartSpan(ctx, "coordinator.Coordinator.Create")
	defer span.End()

	if err := c.validate.Struct(req); err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	period, err := ParseReportingPeriod(req.StartDate, req.EndDate, req.IsQuarterly)
	if err != nil {
		return nil, err
	}

	if req.ExistingID != nil {
		existing, err := c.submissionRepo.Get(ctx, *req.ExistingID)
		if err != nil {
			return nil, err
		}
		if existing.AgencyCode != req.AgencyCode {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, "agency does not match the existing submission")
		}
		return existing, nil
	}

	sub, err := c.submissionRepo.Create(ctx, models.Submission{
		AgencyCode:     req.AgencyCode,
		SubTierCode:    req.SubTierCode,
		FiscalYear:     period.FiscalYear,
		FiscalPeriod:   period.FiscalPeriod,
		IsQuarterly:    req.IsQuarterly,
		ReportingStart: period.Start,
		ReportingEnd:   period.End,
		IsFABS:         req.IsFABS,
		PublishStatus:  models.PublishStatusUnpublished,
		CreatedBy:      userID,
	})
	if err != nil {
		return nil, err
	}

	if _, err := c.builder.BuildForSubmission(ctx, *sub); err != nil {
		return nil, err
	}

	if err := c.emitter.EmitSubmissionCreated(ctx, sub); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Submission created but event emission failed")
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"submission_id": sub.ID,
		"agency_code":   sub.AgencyCode,
		"fiscal_year":   sub.FiscalYear,
		"fiscal_period": sub.FiscalPeriod,
		"is_fabs":       sub.IsFABS,
	}).Info("Created submission")
	return sub, nil
}

// FinalizeUpload advances the upload job for a completed object-store write
// and promotes its dependents. Re-uploads restart the downstream cascade so
// stale validation results never survive a replaced file. A re-upload to a
// published submission moves it to updated.
func (c *Coordinator) FinalizeUpload(ctx context.Context, submissionID string, fileType models.FileType, objectKey, originalFilename string, sizeBytes int64) error {
	ctx, span := tracing.StartSpan(ctx, "coordinator.Coordinator.FinalizeUpload")
	defer span.End()

	sub, err := c.submissionRepo.Get(ctx, submissionID)
	if err != nil {
		return err
	}
	if sub.PublishStatus == models.PublishStatusPublishing {
		return httperror.NewHTTPError(http.StatusConflict, "submission is publishing")
	}

	upload, err := c.jobRepo.GetBySlot(ctx, submissionID, models.JobTypeFileUpload, &fileType)
	if err != nil {
		return err
	}

	if upload.Status == models.JobStatusFinished {
		if err := c.builder.RestartCascade(ctx, *upload); err != nil {
			return err
		}
	}

	if err := c.jobRepo.SetUpload(ctx, upload.ID, objectKey, originalFilename, sizeBytes); err != nil {
		return err
	}
	if err := c.jobRepo.MarkUploadFinished(ctx, upload.ID); err != nil {
		return err
	}
	if _, err := c.jobRepo.MarkReady(ctx, submissionID); err != nil {
		return err
	}

	if sub.PublishStatus == models.PublishStatusPublished {
		if _, err := c.submissionRepo.UpdatePublishStatus(ctx, submissionID, models.PublishStatusPublished, models.PublishStatusUpdated); err != nil {
			return err
		}
	}

	upload.Status = models.JobStatusFinished
	if err := c.emitter.EmitJobFinished(ctx, upload); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Upload finalized but event emission failed")
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"submission_id": submissionID,
		"file_type":     fileType,
		"filename":      originalFilename,
	}).Info("Finalized upload")
	return nil
}

// Restart resets a job and its transitive dependents to waiting and promotes
// whatever became runnable
func (c *Coordinator) Restart(ctx context.Context, jobID string) error {
	ctx, span := tracing.StartSpan(ctx, "coordinator.Coordinator.Restart")
	defer span.End()

	j, err := c.jobRepo.Get(ctx, jobID)
	if err != nil {
		return err
	}
	return c.builder.RestartCascade(ctx, *j)
}

// Publish certifies a submission: snapshot staging into the published tables,
// copy report artifacts to the certified bucket, and freeze publish state.
// The data snapshot is one transaction; a certification failure after commit
// is compensated by backing the publication out.
func (c *Coordinator) Publish(ctx context.Context, submissionID, userID string) (*models.Submission, error) {
	ctx, span := tracing.StartSpan(ctx, "coordinator.Coordinator.Publish")
	defer span.End()

	sub, err := c.submissionRepo.Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	prior := sub.PublishStatus
	if prior == models.PublishStatusPublishing {
		return nil, httperror.NewHTTPError(http.StatusConflict, "publication already in progress")
	}
	if prior == models.PublishStatusPublished {
		return nil, httperror.NewHTTPError(http.StatusConflict, "submission is already published")
	}
	if !sub.Publishable {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "submission is not publishable")
	}
	if !sub.IsFABS && !sub.IsQuarterly {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "only quarterly submissions can be published")
	}
	if sub.NumberOfErrors > 0 {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "submission has %d fatal errors", sub.NumberOfErrors)
	}

	done, err := c.builder.AllValidationsFinished(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if !done {
		return nil, httperror.NewHTTPError(http.StatusConflict, "validation jobs have not finished")
	}

	existing, err := c.submissionRepo.FindPublishedInWindow(ctx, sub.AgencyCode, sub.FiscalYear, sub.FiscalPeriod, sub.IsFABS)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.ID != sub.ID {
		return nil, httperror.NewHTTPErrorf(http.StatusConflict, "reporting window already published by submission %s", existing.ID)
	}

	ok, err := c.submissionRepo.UpdatePublishStatus(ctx, submissionID, prior, models.PublishStatusPublishing)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusConflict, "submission changed state during publish")
	}

	history, deactivated, err := c.publishData(ctx, sub, userID)
	if err != nil {
		c.revertStatus(ctx, submissionID, prior)
		return nil, err
	}

	if err := c.certifyArtifacts(ctx, sub, history.CertifiedPath); err != nil {
		c.compensatePublication(ctx, sub, history, deactivated)
		c.revertStatus(ctx, submissionID, prior)
		return nil, err
	}

	if err := c.submissionRepo.SetCertifyingUser(ctx, submissionID, userID); err != nil {
		return nil, err
	}
	if _, err := c.submissionRepo.UpdatePublishStatus(ctx, submissionID, models.PublishStatusPublishing, models.PublishStatusPublished); err != nil {
		return nil, err
	}

	out, err := c.submissionRepo.Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	if err := c.emitter.EmitSubmissionPublished(ctx, out); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Submission published but event emission failed")
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"submission_id":  submissionID,
		"publish_id":     history.ID,
		"certified_path": history.CertifiedPath,
	}).Info("Published submission")
	return out, nil
}

// publishData writes the publication history record and the snapshot rows in
// one transaction. Returns the history record and, for FABS, the unique award
// keys it deactivated.
func (c *Coordinator) publishData(ctx context.Context, sub *models.Submission, userID string) (*models.PublishHistory, []string, error) {
	ctx, span := tracing.StartSpan(ctx, "coordinator.Coordinator.publishData")
	defer span.End()

	certPrefix := fmt.Sprintf("%s/%d/P%02d/%d", sub.AgencyCode, sub.FiscalYear, sub.FiscalPeriod, time.Now().UTC().Unix())

	var plan *pubdiff.Plan
	var derived []models.FABSRow
	if sub.IsFABS {
		republished, err := c.previouslyPublishedKeys(ctx, sub.ID)
		if err != nil {
			return nil, nil, err
		}

		rows, err := c.stagingRepo.ListFABSForPublish(ctx, sub.ID)
		if err != nil {
			return nil, nil, err
		}

		plan, err = c.differ.Diff(ctx, rows, republished)
		if err != nil {
			return nil, nil, err
		}
		if len(plan.Conflicts) > 0 {
			cf := plan.Conflicts[0]
			return nil, nil, httperror.NewHTTPErrorf(http.StatusConflict,
				"%d rows duplicate already-published awards, first at row %d (%s)",
				len(plan.Conflicts), cf.RowNumber, cf.UniqueAwardKey)
		}

		// Derivations run only here, never during validation.
		derived, err = c.deriver.DeriveAll(ctx, append(append([]models.FABSRow{}, plan.New...), plan.Corrections...))
		if err != nil {
			return nil, nil, err
		}
	}

	ctxTx, tx, err := c.db.GetTx(ctx, nil)
	if err != nil {
		return nil, nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to begin publish transaction")
	}
	defer tx.Rollback(ctxTx)

	history, err := c.submissionRepo.CreatePublishHistory(ctxTx, models.PublishHistory{
		SubmissionID:  sub.ID,
		PublishedBy:   userID,
		FiscalYear:    sub.FiscalYear,
		FiscalPeriod:  sub.FiscalPeriod,
		CertifiedPath: certPrefix,
	})
	if err != nil {
		return nil, nil, err
	}

	var deactivated []string
	if sub.IsFABS {
		if _, err := c.publishedRepo.DeactivateFABSKeys(ctxTx, plan.DeactivateKeys); err != nil {
			return nil, nil, err
		}
		deactivated = plan.DeactivateKeys

		pubRows := buildPublishedFABS(sub.ID, history.ID, derived, plan.Deletes)
		if err := c.publishedRepo.InsertFABS(ctxTx, pubRows); err != nil {
			return nil, nil, err
		}
	} else {
		rows, err := c.stagingRepo.ListAwardFinancialForPublish(ctx, sub.ID)
		if err != nil {
			return nil, nil, err
		}
		if err := c.publishedRepo.InsertAwardFinancial(ctxTx, buildPublishedAwardFinancial(sub, history.ID, rows)); err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(ctxTx); err != nil {
		return nil, nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit publication")
	}
	return history, deactivated, nil
}

// previouslyPublishedKeys returns the unique award keys this submission's
// latest publication wrote. A republish supersedes them rather than
// conflicting with them.
func (c *Coordinator) previouslyPublishedKeys(ctx context.Context, submissionID string) (map[string]bool, error) {
	histories, err := c.submissionRepo.ListPublishHistory(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if len(histories) == 0 {
		return nil, nil
	}

	prev, err := c.publishedRepo.ListFABSForHistory(ctx, submissionID, histories[0].ID)
	if err != nil {
		return nil, err
	}

	keys := make(map[string]bool, len(prev))
	for _, row := range prev {
		keys[row.UniqueAwardKey] = true
	}
	return keys, nil
}

// certifyArtifacts copies the submission's report artifacts to the certified
// bucket under the publication's path
func (c *Coordinator) certifyArtifacts(ctx context.Context, sub *models.Submission, destPrefix string) error {
	ctx, span := tracing.StartSpan(ctx, "coordinator.Coordinator.certifyArtifacts")
	defer span.End()

	fileTypes := []models.FileType{models.FileTypeFABS}
	if !sub.IsFABS {
		fileTypes = []models.FileType{
			models.FileTypeAppropriations,
			models.FileTypeObjectClass,
			models.FileTypeAwardFinancial,
			models.FileTypeD1,
			models.FileTypeD2,
			models.FileTypeCrossFile,
		}
	}

	var keys []string
	for _, ft := range fileTypes {
		for _, severity := range []models.RuleSeverity{models.SeverityFatal, models.SeverityWarning} {
			key := materializer.ReportKey(sub.ID, ft, severity)
			exists, err := c.store.Exists(ctx, key)
			if err != nil {
				return err
			}
			if exists {
				keys = append(keys, key)
			}
		}
	}

	return c.store.Certify(ctx, keys, destPrefix)
}

// compensatePublication backs out a committed publication whose artifacts
// failed to certify: delete the snapshot rows it wrote, reactivate the keys
// it deactivated, and drop the history record.
func (c *Coordinator) compensatePublication(ctx context.Context, sub *models.Submission, history *models.PublishHistory, deactivated []string) {
	ctx, span := tracing.StartSpan(ctx, "coordinator.Coordinator.compensatePublication")
	defer span.End()

	ctxTx, tx, err := c.db.GetTx(ctx, nil)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"publish_id": history.ID}).Error("Failed to begin compensation transaction")
		return
	}
	defer tx.Rollback(ctxTx)

	if err := c.publishedRepo.DeleteForHistory(ctxTx, sub.ID, history.ID); err != nil {
		c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"publish_id": history.ID}).Error("Failed to back out published rows")
		return
	}
	if sub.IsFABS {
		if err := c.publishedRepo.ReactivateFABSForKeys(ctxTx, deactivated); err != nil {
			c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"publish_id": history.ID}).Error("Failed to reactivate superseded rows")
			return
		}
	}
	if err := c.submissionRepo.DeletePublishHistory(ctxTx, history.ID); err != nil {
		c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"publish_id": history.ID}).Error("Failed to delete publish history")
		return
	}

	if err := tx.Commit(ctxTx); err != nil {
		c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"publish_id": history.ID}).Error("Failed to commit compensation")
	}
}

func (c *Coordinator) revertStatus(ctx context.Context, submissionID string, prior models.PublishStatus) {
	if _, err := c.submissionRepo.UpdatePublishStatus(ctx, submissionID, models.PublishStatusPublishing, prior); err != nil {
		c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"submission_id": submissionID}).Error("Failed to revert publish status")
	}
}

// Revert restores staging from the most recent publication and moves the
// submission from updated back to published. Edits made since publication are
// discarded.
func (c *Coordinator) Revert(ctx context.Context, submissionID string) (*models.Submission, error) {
	ctx, span := tracing.StartSpan(ctx, "coordinator.Coordinator.Revert")
	defer span.End()

	sub, err := c.submissionRepo.Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.PublishStatus != models.PublishStatusUpdated {
		return nil, httperror.NewHTTPError(http.StatusConflict, "only updated submissions can revert")
	}

	histories, err := c.submissionRepo.ListPublishHistory(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if len(histories) == 0 {
		return nil, httperror.NewHTTPError(http.StatusConflict, "submission has no publication to revert to")
	}
	latest := histories[0]

	if sub.IsFABS {
		if err := c.restoreFABSStaging(ctx, sub, latest.ID); err != nil {
			return nil, err
		}
	} else {
		if err := c.restoreAwardFinancialStaging(ctx, sub, latest.ID); err != nil {
			return nil, err
		}
	}

	if _, err := c.submissionRepo.UpdatePublishStatus(ctx, submissionID, models.PublishStatusUpdated, models.PublishStatusPublished); err != nil {
		return nil, err
	}

	out, err := c.submissionRepo.Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	if err := c.emitter.EmitSubmissionReverted(ctx, out); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Submission reverted but event emission failed")
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"submission_id": submissionID,
		"publish_id":    latest.ID,
	}).Info("Reverted submission to published state")
	return out, nil
}

func (c *Coordinator) restoreFABSStaging(ctx context.Context, sub *models.Submission, historyID string) error {
	snapshot, err := c.publishedRepo.ListFABSForHistory(ctx, sub.ID, historyID)
	if err != nil {
		return err
	}

	fabs := models.FileTypeFABS
	validation, err := c.jobRepo.GetBySlot(ctx, sub.ID, models.JobTypeRecordValidation, &fabs)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	restored := make([]models.FABSRow, 0, len(snapshot))
	for i, row := range snapshot {
		key := row.UniqueAwardKey
		restored = append(restored, models.FABSRow{
			ID:                       uuid.New().String(),
			SubmissionID:             sub.ID,
			JobID:                    validation.ID,
			RowNumber:                i + 1,
			AFAGeneratedUnique:       &key,
			AwardingSubTierAgencyC:   row.AwardingSubTierAgencyC,
			FAIN:                     row.FAIN,
			URI:                      row.URI,
			AwardModificationAmendme: row.AwardModificationAmendme,
			CFDANumber:               row.CFDANumber,
			ActionDate:               row.ActionDate,
			CorrectionDeleteIndicatr: row.CorrectionDeleteIndicatr,
			FederalActionObligation:  row.FederalActionObligation,
			TotalFundingAmount:       row.TotalFundingAmount,
			CreatedAt:                now,
		})
	}

	if _, err := c.stagingRepo.DeleteForSubmission(ctx, sub.ID, models.FileTypeFABS); err != nil {
		return err
	}
	return c.stagingRepo.InsertFABS(ctx, restored)
}

func (c *Coordinator) restoreAwardFinancialStaging(ctx context.Context, sub *models.Submission, historyID string) error {
	snapshot, err := c.publishedRepo.ListAwardFinancialForHistory(ctx, sub.ID, historyID)
	if err != nil {
		return err
	}

	awardFinancial := models.FileTypeAwardFinancial
	validation, err := c.jobRepo.GetBySlot(ctx, sub.ID, models.JobTypeRecordValidation, &awardFinancial)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	restored := make([]models.AwardFinancialRow, 0, len(snapshot))
	for i, row := range snapshot {
		restored = append(restored, models.AwardFinancialRow{
			ID:                          uuid.New().String(),
			SubmissionID:                sub.ID,
			JobID:                       validation.ID,
			RowNumber:                   i + 1,
			DisplayTAS:                  row.DisplayTAS,
			ObjectClass:                 row.ObjectClass,
			ProgramActivityReportingKey: row.ProgramActivityReportingKey,
			ByDirectReimbursableFun:     row.ByDirectReimbursableFun,
			DisasterEmergencyFundCode:   row.DisasterEmergencyFundCode,
			PriorYearAdjustment:         row.PriorYearAdjustment,
			PIID:                        row.PIID,
			FAIN:                        row.FAIN,
			URI:                         row.URI,
			TransactionObligatedAmount:  row.TransactionObligatedAmount,
			GrossOutlayAmountByAwardCPE: row.GrossOutlayAmountByAwardCPE,
			CreatedAt:                   now,
		})
	}

	if _, err := c.stagingRepo.DeleteForSubmission(ctx, sub.ID, models.FileTypeAwardFinancial); err != nil {
		return err
	}
	return c.stagingRepo.InsertAwardFinancial(ctx, restored)
}

// Delete removes an unpublished submission. Staging rows and jobs go with it.
func (c *Coordinator) Delete(ctx context.Context, submissionID string) error {
	ctx, span := tracing.StartSpan(ctx, "coordinator.Coordinator.Delete")
	defer span.End()

	sub, err := c.submissionRepo.Get(ctx, submissionID)
	if err != nil {
		return err
	}

	if err := c.submissionRepo.Delete(ctx, submissionID); err != nil {
		return err
	}

	if err := c.emitter.EmitSubmissionDeleted(ctx, sub); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Submission deleted but event emission failed")
	}
	return nil
}

// buildPublishedFABS shapes derived staging rows into published snapshot
// rows. Derived rows publish active; delete rows publish as inactive markers.
func buildPublishedFABS(submissionID, historyID string, derived, deletes []models.FABSRow) []models.PublishedFABSRow {
	now := time.Now().UTC()
	out := make([]models.PublishedFABSRow, 0, len(derived)+len(deletes))

	add := func(row models.FABSRow, active bool) {
		out = append(out, models.PublishedFABSRow{
			SubmissionID:             submissionID,
			PublishHistoryID:         historyID,
			UniqueAwardKey:           row.UniqueKey(),
			AwardingSubTierAgencyC:   row.AwardingSubTierAgencyC,
			FAIN:                     row.FAIN,
			URI:                      row.URI,
			AwardModificationAmendme: row.AwardModificationAmendme,
			CFDANumber:               row.CFDANumber,
			ActionDate:               row.ActionDate,
			CorrectionDeleteIndicatr: row.CorrectionDeleteIndicatr,
			FederalActionObligation:  row.FederalActionObligation,
			TotalFundingAmount:       row.TotalFundingAmount,
			IsActive:                 active,
			ModifiedAt:               now,
		})
	}

	for _, row := range derived {
		add(row, true)
	}
	for _, row := range deletes {
		add(row, false)
	}
	return out
}

func buildPublishedAwardFinancial(sub *models.Submission, historyID string, rows []models.AwardFinancialRow) []models.PublishedAwardFinancialRow {
	out := make([]models.PublishedAwardFinancialRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.PublishedAwardFinancialRow{
			SubmissionID:                sub.ID,
			PublishHistoryID:            historyID,
			AgencyCode:                  sub.AgencyCode,
			FiscalYear:                  sub.FiscalYear,
			FiscalPeriod:                sub.FiscalPeriod,
			DisplayTAS:                  row.DisplayTAS,
			ObjectClass:                 row.ObjectClass,
			ProgramActivityReportingKey: row.ProgramActivityReportingKey,
			ByDirectReimbursableFun:     row.ByDirectReimbursableFun,
			DisasterEmergencyFundCode:   row.DisasterEmergencyFundCode,
			PriorYearAdjustment:         row.PriorYearAdjustment,
			PIID:                        row.PIID,
			FAIN:                        row.FAIN,
			URI:                         row.URI,
			TransactionObligatedAmount:  row.TransactionObligatedAmount,
			GrossOutlayAmountByAwardCPE: row.GrossOutlayAmountByAwardCPE,
		})
	}
	return out
}
