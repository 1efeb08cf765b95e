package store

import (
	"database/sql"
	"encoding/json"

	"github.com/codeready-toolchain/fortuned/pkg/apperr"
	"github.com/codeready-toolchain/fortuned/pkg/models"
	"github.com/codeready-toolchain/fortuned/pkg/statuscode"
)

const taskColumns = `
	id, owner_id, deity_id, number, question, context, language, priority,
	state, progress, status_code, last_message, claimed_by, cancel_requested,
	last_activity_at, submitted_at, started_at, completed_at,
	response, structured, confidence, source_chunk_ids, processing_time_ms,
	error_category, error_message, can_generate_report, retry_count`

const selectTaskByID = `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	var (
		contextJSON, structuredJSON, sourcesJSON []byte
		state, errorCategory                     string
		statusCode                                int
		claimedBy, response, errorMessage        sql.NullString
		confidence                                sql.NullFloat64
		startedAt, completedAt                    sql.NullTime
		processingTimeMS                          sql.NullInt64
	)

	err := row.Scan(
		&t.ID, &t.OwnerID, &t.DeityID, &t.Number, &t.Question, &contextJSON, &t.Language, &t.Priority,
		&state, &t.Progress, &statusCode, &t.LastMessage, &claimedBy, &t.CancelRequested,
		&t.LastActivityAt, &t.SubmittedAt, &startedAt, &completedAt,
		&response, &structuredJSON, &confidence, &sourcesJSON, &processingTimeMS,
		&errorCategory, &errorMessage, &t.CanGenerateReport, &t.RetryCount,
	)
	if err != nil {
		return nil, err
	}

	t.State = models.TaskState(state)
	t.StatusCode = statuscode.Code(statusCode)
	t.ErrorCategory = apperr.Category(errorCategory)
	t.ClaimedBy = claimedBy.String
	t.Response = response.String
	t.ErrorMessage = errorMessage.String

	if startedAt.Valid {
		v := startedAt.Time
		t.StartedAt = &v
	}
	if completedAt.Valid {
		v := completedAt.Time
		t.CompletedAt = &v
	}
	if confidence.Valid {
		v := float32(confidence.Float64)
		t.Confidence = &v
	}
	if processingTimeMS.Valid {
		v := processingTimeMS.Int64
		t.ProcessingTimeMS = &v
	}

	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &t.Context); err != nil {
			return nil, err
		}
	}
	if len(structuredJSON) > 0 {
		t.Structured = &models.Interpretation{}
		if err := json.Unmarshal(structuredJSON, t.Structured); err != nil {
			return nil, err
		}
	}
	if len(sourcesJSON) > 0 {
		if err := json.Unmarshal(sourcesJSON, &t.SourceChunkIDs); err != nil {
			return nil, err
		}
	}
	return &t, nil
}
