package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureCartIndexes enforces the one-cart-per-user rule at the database level.
func EnsureCartIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	userIDIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().
			SetName("userId_unique").
			SetUnique(true),
	}

	log.Println("EnsureCartIndexes: creating userId_unique index")
	if _, err := db.Collection("carts").Indexes().CreateOne(ctx, userIDIndex); err != nil {
		log.Println("EnsureCartIndexes: userId index error:", err)
		return err
	}

	cartIDIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "cartId", Value: 1}},
		Options: options.Index().SetName("cartId_index"),
	}

	if _, err := db.Collection("cart_items").Indexes().CreateOne(ctx, cartIDIndex); err != nil {
		log.Println("EnsureCartIndexes: cartId index error:", err)
		return err
	}
	log.Println("EnsureCartIndexes: cart indexes created")
	return nil
}

// EnsureOrderIndexes backs the per-user order listing and newest-first admin view.
func EnsureOrderIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("orders").Indexes()

	userIDIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetName("userId_index"),
	}
	if _, err := indexes.CreateOne(ctx, userIDIndex); err != nil {
		log.Println("EnsureOrderIndexes: userId index error:", err)
		return err
	}

	createdAtIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("createdAt_desc"),
	}
	if _, err := indexes.CreateOne(ctx, createdAtIndex); err != nil {
		log.Println("EnsureOrderIndexes: createdAt index error:", err)
		return err
	}
	log.Println("EnsureOrderIndexes: order indexes created")
	return nil
}

// EnsureProductIndexes supports the public name search.
func EnsureProductIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	nameIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetName("name_index"),
	}

	if _, err := db.Collection("products").Indexes().CreateOne(ctx, nameIndex); err != nil {
		log.Println("EnsureProductIndexes: name index error:", err)
		return err
	}
	log.Println("EnsureProductIndexes: name index created")
	return nil
}
