package handlers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IdempotencyHeader carries the client-chosen retry key on checkout and
// buy-now requests.
const IdempotencyHeader = "Idempotency-Key"

// idem:order:{scope}:{key} -> order id hex
const keyIdemOrder = "idem:order:%s:%s"

var ttlIdempotency = 24 * time.Hour

// replayedOrderID returns the order id a previous request with the same key
// already produced, if any. Redis being down only disables the fast path; the
// request proceeds as a fresh one.
func replayedOrderID(ctx context.Context, rdb *redis.Client, scope, key string) (primitive.ObjectID, bool) {
	if rdb == nil || key == "" {
		return primitive.NilObjectID, false
	}

	hex, err := rdb.Get(ctx, fmt.Sprintf(keyIdemOrder, scope, key)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Println("[IDEM] redis get failed:", err)
		}
		return primitive.NilObjectID, false
	}

	orderID, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return orderID, true
}

func rememberOrderID(ctx context.Context, rdb *redis.Client, scope, key string, orderID primitive.ObjectID) {
	if rdb == nil || key == "" {
		return
	}
	if err := rdb.Set(ctx, fmt.Sprintf(keyIdemOrder, scope, key), orderID.Hex(), ttlIdempotency).Err(); err != nil {
		log.Println("[IDEM] redis set failed:", err)
	}
}
