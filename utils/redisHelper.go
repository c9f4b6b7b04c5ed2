package utils

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/fla-erp/ledger_backend/config"
)

// CACHE_LIFESPAN is in hours, default 1.
func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil || lifespan <= 0 {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}

func GetTypeName[T any]() string {
	var v T
	return reflect.TypeOf(v).Name()
}

func cacheKey[T any](id int) string {
	return GetTypeName[T]() + ":" + fmt.Sprint(id)
}

// StoreRedis caches obj under "<Type>:<id>". No-op without redis.
func StoreRedis[T any](obj *T, id int) error {
	return config.SetRedisObject(cacheKey[T](id), obj, GetCacheLifespan())
}

// GetRedis reads a cached "<Type>:<id>" entry.
func GetRedis[T any](id int) (*T, bool, error) {
	var result T
	exists, err := config.GetRedisObject(cacheKey[T](id), &result)
	if err != nil || !exists {
		return nil, false, err
	}
	return &result, true, nil
}

func RemoveRedis[T any](id int) error {
	return config.RemoveRedisKey(cacheKey[T](id))
}
