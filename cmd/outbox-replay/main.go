package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/grc_backend/config"
	"bitbucket.org/mmdatafocus/grc_backend/models"
	"bitbucket.org/mmdatafocus/grc_backend/utils"
)

// Reverts DEAD (and optionally FAILED) outbox records to PENDING so the
// change feed dispatcher retries them. Use after fixing the underlying
// publish problem.
func main() {
	orgID := flag.String("org-id", "", "Optional: replay only one organization's records")
	includeFailed := flag.Bool("include-failed", false, "Also reset FAILED records that are waiting on backoff")
	dryRun := flag.Bool("dry-run", false, "Report matching records without updating them")
	flag.Parse()

	ctx := utils.SetSkipTenantScopeInContext(context.Background())
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	statuses := []string{models.OutboxPublishStatusDead}
	if *includeFailed {
		statuses = append(statuses, models.OutboxPublishStatusFailed)
	}

	q := db.WithContext(ctx).Model(&models.ChangeOutboxRecord{}).
		Where("is_processed = 0").
		Where("publish_status IN ?", statuses)
	if strings.TrimSpace(*orgID) != "" {
		q = q.Where("org_id = ?", strings.TrimSpace(*orgID))
	}

	if *dryRun {
		var count int64
		if err := q.Count(&count).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to count records: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%d records would be reset to PENDING\n", count)
		return
	}

	res := q.Updates(map[string]interface{}{
		"publish_status":     models.OutboxPublishStatusPending,
		"publish_attempts":   0,
		"last_publish_error": nil,
		"next_attempt_at":    nil,
		"locked_at":          nil,
		"locked_by":          nil,
	})
	if res.Error != nil {
		fmt.Fprintf(os.Stderr, "failed to reset records: %v\n", res.Error)
		os.Exit(1)
	}
	fmt.Printf("reset %d records to PENDING\n", res.RowsAffected)
}
