package orchestration

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/grc_backend/models"
	"bitbucket.org/mmdatafocus/grc_backend/utils"
	"github.com/xuri/excelize/v2"
)

const auditSheetLineage = "Lineage"
const auditSheetQuality = "Quality"
const auditSheetEvents = "Sync Events"

// BuildAuditWorkbook assembles the organization's sync audit trail into an
// xlsx workbook with one sheet each for lineage, quality and sync events.
func BuildAuditWorkbook(ctx context.Context, orgId string) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := writeLineageSheet(ctx, f, orgId); err != nil {
		return nil, err
	}
	if err := writeQualitySheet(ctx, f, orgId); err != nil {
		return nil, err
	}
	if err := writeEventsSheet(ctx, f, orgId); err != nil {
		return nil, err
	}

	// The default Sheet1 is replaced by the first audit sheet.
	f.DeleteSheet("Sheet1")
	if idx, err := f.GetSheetIndex(auditSheetLineage); err == nil {
		f.SetActiveSheet(idx)
	}
	return f, nil
}

func writeLineageSheet(ctx context.Context, f *excelize.File, orgId string) error {
	if _, err := f.NewSheet(auditSheetLineage); err != nil {
		return err
	}
	setHeaderRow(f, auditSheetLineage, "ID", "SourceTable", "SourceRecordId", "Operation", "SyncStatus", "ResolvedBy", "CreatedAt")

	records, err := models.GetDataLineage(ctx, orgId, "")
	if err != nil {
		return err
	}
	for i, r := range records {
		row := i + 2
		f.SetCellValue(auditSheetLineage, cell('A', row), r.ID)
		f.SetCellValue(auditSheetLineage, cell('B', row), r.SourceTable)
		f.SetCellValue(auditSheetLineage, cell('C', row), r.SourceRecordId)
		f.SetCellValue(auditSheetLineage, cell('D', row), string(r.OperationType))
		f.SetCellValue(auditSheetLineage, cell('E', row), string(r.SyncStatus))
		f.SetCellValue(auditSheetLineage, cell('F', row), r.ResolvedBy)
		f.SetCellValue(auditSheetLineage, cell('G', row), r.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func writeQualitySheet(ctx context.Context, f *excelize.File, orgId string) error {
	if _, err := f.NewSheet(auditSheetQuality); err != nil {
		return err
	}
	setHeaderRow(f, auditSheetQuality, "ID", "TableName", "RecordId", "Completeness", "Accuracy", "Consistency", "Validity", "Quality", "ValidatedAt")

	records, err := models.GetDataQualityMetrics(ctx, orgId, "", "")
	if err != nil {
		return err
	}
	for i, r := range records {
		row := i + 2
		f.SetCellValue(auditSheetQuality, cell('A', row), r.ID)
		f.SetCellValue(auditSheetQuality, cell('B', row), r.TableName)
		f.SetCellValue(auditSheetQuality, cell('C', row), r.RecordId)
		f.SetCellValue(auditSheetQuality, cell('D', row), r.CompletenessScore)
		f.SetCellValue(auditSheetQuality, cell('E', row), r.AccuracyScore)
		f.SetCellValue(auditSheetQuality, cell('F', row), r.ConsistencyScore)
		f.SetCellValue(auditSheetQuality, cell('G', row), r.ValidityScore)
		f.SetCellValue(auditSheetQuality, cell('H', row), r.QualityScore)
		f.SetCellValue(auditSheetQuality, cell('I', row), r.LastValidatedAt.Format(time.RFC3339))
	}
	return nil
}

func writeEventsSheet(ctx context.Context, f *excelize.File, orgId string) error {
	if _, err := f.NewSheet(auditSheetEvents); err != nil {
		return err
	}
	setHeaderRow(f, auditSheetEvents, "ID", "EventType", "SourceModule", "TargetModules", "EntityType", "EntityId", "Status", "Retries", "CreatedAt")

	records, err := models.GetSyncEvents(ctx, orgId, "")
	if err != nil {
		return err
	}
	for i, r := range records {
		row := i + 2
		f.SetCellValue(auditSheetEvents, cell('A', row), r.ID)
		f.SetCellValue(auditSheetEvents, cell('B', row), r.EventType)
		f.SetCellValue(auditSheetEvents, cell('C', row), r.SourceModule)
		f.SetCellValue(auditSheetEvents, cell('D', row), joinModules(r.TargetModuleList()))
		f.SetCellValue(auditSheetEvents, cell('E', row), r.EntityType)
		f.SetCellValue(auditSheetEvents, cell('F', row), r.EntityId)
		f.SetCellValue(auditSheetEvents, cell('G', row), string(r.SyncStatus))
		f.SetCellValue(auditSheetEvents, cell('H', row), r.RetryCount)
		f.SetCellValue(auditSheetEvents, cell('I', row), r.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func setHeaderRow(f *excelize.File, sheet string, headings ...string) {
	col := 'A'
	for _, h := range headings {
		f.SetCellValue(sheet, cell(col, 1), h)
		col++
	}
}

func cell(col rune, row int) string {
	return fmt.Sprintf("%c%d", col, row)
}

func joinModules(modules []string) string {
	out := ""
	for i, m := range modules {
		if i > 0 {
			out += ", "
		}
		out += m
	}
	return out
}

// UploadAuditWorkbook archives the workbook to object storage and returns a
// signed download URL valid for one hour.
func UploadAuditWorkbook(ctx context.Context, orgId string, f *excelize.File) (string, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return "", err
	}

	objectKey := fmt.Sprintf("audit-exports/%s/grc-sync-audit-%s.xlsx", orgId, time.Now().Format("20060102-150405"))
	contentType := "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	if err := utils.UploadBytesToGCS(ctx, objectKey, buf.Bytes(), contentType); err != nil {
		return "", err
	}
	return utils.SignDownloadURL(objectKey, time.Hour)
}
