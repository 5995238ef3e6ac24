package orchestration

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/grc_backend/config"
	"bitbucket.org/mmdatafocus/grc_backend/models"
	"bitbucket.org/mmdatafocus/grc_backend/utils"
	"github.com/gin-gonic/gin"
)

func resolveOrgID(c *gin.Context) (string, error) {
	orgId, ok := utils.GetOrgIdFromContext(c.Request.Context())
	if !ok || orgId == "" {
		return "", errors.New("missing organization")
	}
	return orgId, nil
}

// SyncStatusHandler reports the aggregate sync health for the caller's
// organization.
func SyncStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgId, err := resolveOrgID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		summary, err := models.GetSyncStatusSummary(c.Request.Context(), orgId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

// InitializeHandler brings the organization's change-feed subscriptions up.
func InitializeHandler(manager *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgId, err := resolveOrgID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if err := manager.Initialize(c.Request.Context(), orgId); err != nil {
			if errors.Is(err, ErrOrchestratorBusy) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "initialized", "tables": WatchedTables})
	}
}

// CleanupHandler tears the organization's subscriptions down.
func CleanupHandler(manager *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgId, err := resolveOrgID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		manager.Cleanup(orgId)
		c.JSON(http.StatusOK, gin.H{"status": "cleaned_up"})
	}
}

// TriggerSyncHandler enqueues an administrator-initiated sync event.
func TriggerSyncHandler(manager *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgId, err := resolveOrgID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req TriggerSyncRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		if err := models.ValidateWatchedRecord(c.Request.Context(), orgId, req.EntityType, req.EntityId); err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "entity not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		event, err := manager.Get(orgId).TriggerManualSync(c.Request.Context(), req.EntityType, req.EntityId, req.TargetModules)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, event)
	}
}

// SyncEventsHandler lists sync events, optionally filtered by status.
func SyncEventsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgId, err := resolveOrgID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		status := models.SyncEventStatus(c.Query("status"))
		events, err := models.GetSyncEvents(c.Request.Context(), orgId, status)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
	}
}

// LineageHandler lists lineage records, optionally filtered by table.
func LineageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgId, err := resolveOrgID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		records, err := models.GetDataLineage(c.Request.Context(), orgId, c.Query("table"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"lineage": records, "count": len(records)})
	}
}

// ResolveConflictHandler applies a manual resolution to a conflicted
// lineage record.
func ResolveConflictHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgId, err := resolveOrgID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		lineageId, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lineage id"})
			return
		}

		var req ResolveConflictRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		lineage, err := models.ResolveDataConflict(c.Request.Context(), orgId, lineageId, req.ResolverId, req.Resolution)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "lineage record not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, lineage)
	}
}

// QualityHandler lists quality metrics, optionally filtered by table and
// record.
func QualityHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgId, err := resolveOrgID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		metrics, err := models.GetDataQualityMetrics(c.Request.Context(), orgId, c.Query("table"), c.Query("recordId"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"metrics": metrics, "count": len(metrics)})
	}
}

// ListRulesHandler returns the organization's validation rules.
func ListRulesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgId, err := resolveOrgID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		rules, err := models.GetDataValidationRules(c.Request.Context(), orgId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"rules": rules, "count": len(rules)})
	}
}

// CreateRuleHandler registers a new validation rule.
func CreateRuleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgId, err := resolveOrgID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req models.NewDataValidationRule
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		createdBy, _ := utils.GetUserNameFromContext(c.Request.Context())
		rule, err := models.CreateDataValidationRule(c.Request.Context(), orgId, createdBy, &req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, rule)
	}
}

// PatchRuleHandler updates fields of an existing validation rule.
func PatchRuleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgId, err := resolveOrgID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ruleId, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
			return
		}

		var req models.UpdateDataValidationRule
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		rule, err := models.PatchDataValidationRule(c.Request.Context(), orgId, ruleId, &req)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rule)
	}
}

// AuditExportHandler builds an xlsx audit workbook of lineage, quality and
// sync events. With ?upload=true the workbook is archived to object
// storage and a signed URL returned; otherwise it streams as a download.
func AuditExportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgId, err := resolveOrgID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		workbook, err := BuildAuditWorkbook(c.Request.Context(), orgId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if c.Query("upload") == "true" {
			url, err := UploadAuditWorkbook(c.Request.Context(), orgId, workbook)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"url": url})
			return
		}

		fileName := fmt.Sprintf("grc-sync-audit-%s.xlsx", time.Now().Format("20060102"))
		c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		if err := workbook.Write(c.Writer); err != nil && config.GetLogger() != nil {
			config.LogError(config.GetLogger(), "handlers.go", "AuditExportHandler", "write workbook", orgId, err)
		}
	}
}

// TokenHandler exchanges API client credentials for a JWT.
func TokenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		cred, err := models.VerifyApiCredential(c.Request.Context(), req.ClientId, req.ClientSecret)
		if err != nil {
			if errors.Is(err, models.ErrInvalidCredential) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid client credentials"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		token, err := utils.JwtGenerate(cred.ID, cred.OrgId, cred.Role, cred.ClientId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}
