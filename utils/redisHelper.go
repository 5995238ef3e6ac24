package utils

import (
	"os"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/grc_backend/config"
)

func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}

/* Validation rule cache */

// Active rules are cached per (org, table); rule admin writes invalidate the
// whole org to keep wildcard-rule handling simple.

func ruleCacheKey(orgId string, tableName string) string {
	return "ValidationRules:" + orgId + ":" + tableName
}

func ruleCacheSetKey(orgId string) string {
	return "ValidationRuleKeys:" + orgId
}

func StoreRuleCache(orgId string, tableName string, rules any) error {
	key := ruleCacheKey(orgId, tableName)
	if err := config.SetRedisObject(key, rules, GetCacheLifespan()); err != nil {
		return err
	}
	return config.AddRedisSet(ruleCacheSetKey(orgId), key)
}

func GetRuleCache(orgId string, tableName string, dest interface{}) (bool, error) {
	return config.GetRedisObject(ruleCacheKey(orgId, tableName), dest)
}

func ClearRuleCache(orgId string) error {
	setKey := ruleCacheSetKey(orgId)
	keys, err := config.GetRedisSetMembers(setKey)
	if err != nil {
		return err
	}
	if len(keys) > 0 {
		if err := config.RemoveRedisKey(keys...); err != nil {
			return err
		}
	}
	return config.RemoveRedisKey(setKey)
}
